package tgbot

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"visitor-desk/internal/models"
	"visitor-desk/internal/util"
	"visitor-desk/internal/view"
)

const (
	// Telegram rejects longer message texts.
	maxMessageRunes = 4096
	// room kept free for the overflow note and the storage warning
	footerRunes = 400
	maxListed   = 15
	// per free-text field on a card
	maxFieldRunes  = 120
	maxButtonRunes = 30
)

var filterTabs = []struct {
	filter models.Filter
	label  string
}{
	{models.FilterPending, "⏳ Pendientes"},
	{models.FilterApproved, "✅ Aprobados"},
	{models.FilterRejected, "❌ Rechazados"},
	{models.FilterAll, "📋 Todos"},
}

var emptyAdjective = map[models.Filter]string{
	models.FilterPending:  "pendientes",
	models.FilterApproved: "aprobados",
	models.FilterRejected: "rechazados",
}

// renderPage turns a page into the message shown for its section.
func renderPage(chatID int64, p view.Page, loc *time.Location, sheetsEnabled bool) tgbotapi.MessageConfig {
	var msg tgbotapi.MessageConfig
	switch p.Section {
	case view.SectionLogin:
		msg = tgbotapi.NewMessage(chatID, "🔐 Iniciar sesión\nEscribe tu usuario:")
	case view.SectionRegistration:
		msg = renderVisitor(chatID, p, loc)
	case view.SectionAdmin:
		msg = renderAdmin(chatID, p, loc, sheetsEnabled)
	default:
		msg = tgbotapi.NewMessage(chatID, "🏢 Registro de Visitantes\nTransGlobal Solutions\n\nSolicita el ingreso de tus visitas y consulta su estado.")
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🔑 Acceder al sistema", "u:access"),
			),
		)
	}
	if p.StorageWarning {
		msg.Text += "\n\n⚠️ Los últimos cambios no se pudieron guardar. Se mantienen solo durante esta sesión."
	}
	return msg
}

func renderVisitor(chatID int64, p view.Page, loc *time.Location) tgbotapi.MessageConfig {
	b := strings.Builder{}
	fmt.Fprintf(&b, "👤 %s\n\n📋 Mis registros", displayName(p))
	if len(p.Registrations) == 0 {
		b.WriteString("\n\nNo tienes registros aún.")
	}
	// a long history keeps its order but shows only the latest cards
	regs := p.Registrations
	start, used := len(regs), 0
	for start > 0 && len(regs)-start < maxListed {
		n := utf8.RuneCountInString(renderCard(regs[start-1], loc, false)) + 2
		if utf8.RuneCountInString(b.String())+used+n > maxMessageRunes-footerRunes {
			break
		}
		used += n
		start--
	}
	if start > 0 {
		fmt.Fprintf(&b, "\n\n… %d registros anteriores no se muestran.", start)
	}
	for _, r := range regs[start:] {
		b.WriteString("\n\n" + renderCard(r, loc, false))
	}

	msg := tgbotapi.NewMessage(chatID, b.String())
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📝 Nuevo registro", "u:new"),
			tgbotapi.NewInlineKeyboardButtonData("🔄 Actualizar", "u:mine"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🚪 Cerrar sesión", "u:logout"),
		),
	)
	return msg
}

func renderAdmin(chatID int64, p view.Page, loc *time.Location, sheetsEnabled bool) tgbotapi.MessageConfig {
	b := strings.Builder{}
	fmt.Fprintf(&b, "🛠 Panel de administración · %s\n", displayName(p))
	fmt.Fprintf(&b, "⏳ Pendientes: %d   ✅ Aprobados: %d   ❌ Rechazados: %d   📋 Total: %d\n",
		p.Counts.Pending, p.Counts.Approved, p.Counts.Rejected, p.Counts.Total())
	fmt.Fprintf(&b, "Filtro: %s", tabLabel(p.Filter))

	if len(p.Registrations) == 0 {
		b.WriteString("\n\n📭 No hay registros")
		if adj, ok := emptyAdjective[p.Filter]; ok {
			b.WriteString(" " + adj)
		}
	}

	rows := [][]tgbotapi.InlineKeyboardButton{}
	for i, r := range p.Registrations {
		card := renderCard(r, loc, true)
		if i == maxListed || !fits(&b, card) {
			fmt.Fprintf(&b, "\n\n… y %d más. Usa la exportación CSV para ver todos.", len(p.Registrations)-i)
			break
		}
		b.WriteString("\n\n" + card)
		if r.Actionable {
			id := strconv.FormatInt(r.ID, 10)
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("✓ Aprobar "+clip(r.Name, maxButtonRunes), "a:approve:"+id),
				tgbotapi.NewInlineKeyboardButtonData("✗ Rechazar", "a:reject:"+id),
			))
		}
	}

	tabs := []tgbotapi.InlineKeyboardButton{}
	for _, t := range filterTabs {
		label := t.label
		if t.filter == p.Filter {
			label = "• " + label
		}
		tabs = append(tabs, tgbotapi.NewInlineKeyboardButtonData(label, "a:filter:"+string(t.filter)))
	}
	rows = append(rows, tabs[:2], tabs[2:])

	tools := []tgbotapi.InlineKeyboardButton{tgbotapi.NewInlineKeyboardButtonData("📤 CSV", "a:export")}
	if sheetsEnabled {
		tools = append(tools, tgbotapi.NewInlineKeyboardButtonData("📊 Google Sheets", "a:sheet"))
	}
	tools = append(tools, tgbotapi.NewInlineKeyboardButtonData("🚪 Cerrar sesión", "u:logout"))
	rows = append(rows, tools)

	msg := tgbotapi.NewMessage(chatID, b.String())
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	return msg
}

func renderCard(r view.RegistrationView, loc *time.Location, admin bool) string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "#%d %s · %s\n", r.ID, clip(r.Name, maxFieldRunes), r.StatusLabel)
	if admin {
		fmt.Fprintf(b, "Enviado por: %s\n", clip(r.SubmittedBy, maxFieldRunes))
	}
	fmt.Fprintf(b, "🆔 Cédula: %s\n", clip(r.NationalID, maxFieldRunes))
	fmt.Fprintf(b, "📅 Llegada: %s\n", util.FormatDateTime(r.ArrivalDate, loc))
	fmt.Fprintf(b, "📅 Salida: %s\n", util.FormatDateTime(r.DepartureDate, loc))
	fmt.Fprintf(b, "📝 Motivo: %s\n", clip(r.VisitReason, maxFieldRunes))
	fmt.Fprintf(b, "🏢 Visita a: %s\n", clip(r.PersonToVisit, maxFieldRunes))
	fmt.Fprintf(b, "⏰ Enviado: %s", util.FormatDateTime(r.SubmittedAt, loc))
	if r.ProcessedAt != nil {
		verb := "Aprobado"
		if r.Status == models.StatusRejected {
			verb = "Rechazado"
		}
		fmt.Fprintf(b, "\n%s el %s", verb, util.FormatDateTime(*r.ProcessedAt, loc))
	}
	return b.String()
}

// fits reports whether card can follow b and still leave room for the footer.
func fits(b *strings.Builder, card string) bool {
	n := utf8.RuneCountInString(b.String()) + utf8.RuneCountInString(card) + 2
	return n <= maxMessageRunes-footerRunes
}

func clip(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit-1]) + "…"
}

func tabLabel(f models.Filter) string {
	for _, t := range filterTabs {
		if t.filter == f {
			return t.label
		}
	}
	return string(f)
}

func displayName(p view.Page) string {
	if p.User == nil {
		return ""
	}
	if p.User.DisplayName != "" {
		return p.User.DisplayName
	}
	return p.User.Username
}
