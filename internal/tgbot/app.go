package tgbot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"visitor-desk/internal/config"
	"visitor-desk/internal/models"
	"visitor-desk/internal/server"
	"visitor-desk/internal/session"
	"visitor-desk/internal/util"
	"visitor-desk/internal/view"
)

// botAPI is the subset of *tgbotapi.BotAPI the app uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
}

// Exporter mirrors the full registration list somewhere outside the bot.
type Exporter interface {
	ReplaceRegistrations(ctx context.Context, regs []models.Registration) error
}

type App struct {
	cfg    config.Config
	bot    botAPI
	repo   view.Repository
	auth   session.Authenticator
	sheets Exporter

	// one page session per chat, dropped again on logout
	chats map[int64]*chat
}

type chat struct {
	view  *view.Controller
	state userState
}

// very simple in-memory state machine for login / visit form flows
type userState struct {
	Flow string
	Step int
	Data map[string]string
}

// New connects to Telegram. sheets may be nil when no spreadsheet is
// configured.
func New(cfg config.Config, repo view.Repository, auth session.Authenticator, sheets Exporter) (*App, error) {
	b, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, err
	}
	b.Debug = false
	log.Printf("telegram authorized as @%s", b.Self.UserName)
	return newApp(cfg, b, repo, auth, sheets), nil
}

func newApp(cfg config.Config, bot botAPI, repo view.Repository, auth session.Authenticator, sheets Exporter) *App {
	return &App{
		cfg:    cfg,
		bot:    bot,
		repo:   repo,
		auth:   auth,
		sheets: sheets,
		chats:  map[int64]*chat{},
	}
}

func (a *App) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := a.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return errors.New("updates channel closed")
			}
			a.handleUpdate(ctx, upd)
		}
	}
}

func (a *App) handleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil {
		if err := a.handleMessage(ctx, upd.Message); err != nil {
			log.Printf("handle msg: %v", err)
		}
	} else if upd.CallbackQuery != nil {
		if err := a.handleCallback(ctx, upd.CallbackQuery); err != nil {
			log.Printf("handle cb: %v", err)
		}
	}
}

func (a *App) SendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := a.bot.Send(msg)
	return err
}

func (a *App) chat(chatID int64) *chat {
	c, ok := a.chats[chatID]
	if !ok {
		c = &chat{view: view.New(a.repo, session.New(a.auth), a.cfg.Location())}
		a.chats[chatID] = c
	}
	return c
}

func (a *App) show(chatID int64, p view.Page) error {
	_, err := a.bot.Send(renderPage(chatID, p, a.cfg.Location(), a.sheets != nil))
	return err
}

// ---------- Message handling ----------

func (a *App) handleMessage(ctx context.Context, m *tgbotapi.Message) error {
	chatID := m.Chat.ID
	c := a.chat(chatID)
	txt := strings.TrimSpace(m.Text)

	switch {
	case strings.HasPrefix(txt, "/start"):
		c.state = userState{}
		return a.show(chatID, c.view.Render())
	case strings.HasPrefix(txt, "/logout"):
		return a.logout(chatID, c)
	case strings.HasPrefix(txt, "/cancel"):
		c.state = userState{}
		if err := a.SendText(chatID, "Operación cancelada."); err != nil {
			return err
		}
		return a.show(chatID, c.view.Render())
	}

	if c.state.Flow != "" {
		return a.handleFlowInput(ctx, chatID, c, m, txt)
	}
	return a.show(chatID, c.view.Render())
}

func (a *App) handleFlowInput(ctx context.Context, chatID int64, c *chat, m *tgbotapi.Message, txt string) error {
	switch c.state.Flow {
	case "login":
		return a.handleLoginFlow(ctx, chatID, c, m, txt)
	case "visit":
		return a.handleVisitFlow(ctx, chatID, c, txt)
	default:
		c.state = userState{}
		return a.SendText(chatID, "Estado reiniciado. Pulsa /start")
	}
}

// ---------- Callback handling ----------

func (a *App) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	chatID := q.From.ID
	if q.Message != nil && q.Message.Chat != nil {
		chatID = q.Message.Chat.ID
	}
	c := a.chat(chatID)
	data := q.Data

	// ack
	cb := tgbotapi.NewCallback(q.ID, "")
	_, _ = a.bot.Request(cb)

	if strings.HasPrefix(data, "u:") {
		return a.handleUserCallback(ctx, chatID, c, data)
	}
	if strings.HasPrefix(data, "a:") {
		return a.handleAdminCallback(ctx, chatID, c, data)
	}
	return nil
}

func (a *App) handleUserCallback(ctx context.Context, chatID int64, c *chat, data string) error {
	switch data {
	case "u:access":
		c.state = userState{Flow: "login", Step: 1, Data: map[string]string{}}
		return a.show(chatID, c.view.ShowLogin())
	case "u:new":
		if p := c.view.Render(); p.Section != view.SectionRegistration {
			return a.fail(chatID, models.ErrForbidden)
		}
		c.state = userState{Flow: "visit", Step: 1, Data: map[string]string{}}
		return a.SendText(chatID, "📝 Nuevo registro (1/6)\nNombre completo del visitante:")
	case "u:mine":
		return a.show(chatID, c.view.Render())
	case "u:logout":
		return a.logout(chatID, c)
	}
	return nil
}

func (a *App) handleAdminCallback(ctx context.Context, chatID int64, c *chat, data string) error {
	switch data {
	case "a:menu":
		return a.show(chatID, c.view.Render())
	case "a:export":
		p := c.view.Render()
		if p.Section != view.SectionAdmin {
			return a.fail(chatID, models.ErrForbidden)
		}
		return a.SendText(chatID, "📤 CSV ("+tabLabel(p.Filter)+"): "+server.ExportURL(a.cfg, p.Filter))
	case "a:sheet":
		return a.pushSheet(ctx, chatID, c)
	}

	if strings.HasPrefix(data, "a:filter:") {
		p, err := c.view.SelectFilter(strings.TrimPrefix(data, "a:filter:"))
		if err != nil {
			return a.fail(chatID, err)
		}
		return a.show(chatID, p)
	}

	if strings.HasPrefix(data, "a:approve:") || strings.HasPrefix(data, "a:reject:") {
		approve := strings.HasPrefix(data, "a:approve:")
		raw := strings.TrimPrefix(strings.TrimPrefix(data, "a:approve:"), "a:reject:")
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return a.fail(chatID, fmt.Errorf("%w: bad id %q", models.ErrNotFound, raw))
		}

		op, done := c.view.Reject, "Registro rechazado"
		if approve {
			op, done = c.view.Approve, "Registro aprobado exitosamente"
		}
		_, p, err := op(ctx, id)
		if err != nil {
			return a.fail(chatID, err)
		}
		if err := a.SendText(chatID, done); err != nil {
			return err
		}
		return a.show(chatID, p)
	}

	return nil
}

// ---------- Flows ----------

func (a *App) handleLoginFlow(ctx context.Context, chatID int64, c *chat, m *tgbotapi.Message, txt string) error {
	st := c.state
	switch st.Step {
	case 1:
		if txt == "" {
			return a.SendText(chatID, "El usuario no puede estar vacío. Escríbelo de nuevo:")
		}
		st.Data["username"] = txt
		st.Step = 2
		c.state = st
		return a.SendText(chatID, "Contraseña:")
	case 2:
		// keep the password out of the chat history
		_, _ = a.bot.Request(tgbotapi.NewDeleteMessage(chatID, m.MessageID))
		c.state = userState{}

		p, err := c.view.Login(ctx, st.Data["username"], m.Text)
		if err != nil {
			return a.fail(chatID, err)
		}
		greeting := "¡Bienvenido!"
		if p.User != nil && p.User.IsAdmin() {
			greeting = "¡Bienvenido, " + p.User.DisplayName + "!"
		}
		if err := a.SendText(chatID, greeting); err != nil {
			return err
		}
		return a.show(chatID, p)
	default:
		c.state = userState{}
		return a.show(chatID, c.view.Render())
	}
}

var visitPrompts = map[int]string{
	2: "Cédula del visitante (2/6):",
	3: "Fecha y hora de llegada (3/6), formato AAAA-MM-DD HH:MM:",
	4: "Fecha y hora de salida (4/6), formato AAAA-MM-DD HH:MM:",
	5: "Motivo de la visita (5/6):",
	6: "¿A quién visita? (6/6):",
}

var visitFields = map[int]string{
	1: "name",
	2: "cedula",
	3: "arrival",
	4: "departure",
	5: "reason",
	6: "host",
}

func (a *App) handleVisitFlow(ctx context.Context, chatID int64, c *chat, txt string) error {
	st := c.state
	field, ok := visitFields[st.Step]
	if !ok {
		c.state = userState{}
		return a.show(chatID, c.view.Render())
	}

	if txt == "" {
		return a.SendText(chatID, "Este campo es obligatorio. Escríbelo de nuevo:")
	}
	if field == "arrival" || field == "departure" {
		if _, err := util.ParseDateTime(txt, a.cfg.Location()); err != nil {
			return a.SendText(chatID, "Fecha no válida. Usa el formato AAAA-MM-DD HH:MM, por ejemplo 2024-01-01 08:00:")
		}
	}
	st.Data[field] = txt

	if st.Step < len(visitFields) {
		st.Step++
		c.state = st
		return a.SendText(chatID, visitPrompts[st.Step])
	}

	c.state = userState{}
	_, p, err := c.view.Submit(ctx, view.Form{
		Name:          st.Data["name"],
		NationalID:    st.Data["cedula"],
		ArrivalDate:   st.Data["arrival"],
		DepartureDate: st.Data["departure"],
		VisitReason:   st.Data["reason"],
		PersonToVisit: st.Data["host"],
	})
	if err != nil {
		return a.fail(chatID, err)
	}
	if err := a.SendText(chatID, "✅ Registro enviado exitosamente. Pendiente de aprobación."); err != nil {
		return err
	}
	return a.show(chatID, p)
}

// ---------- Actions ----------

func (a *App) logout(chatID int64, c *chat) error {
	p := c.view.Logout()
	delete(a.chats, chatID)
	if err := a.SendText(chatID, "Sesión cerrada"); err != nil {
		return err
	}
	return a.show(chatID, p)
}

func (a *App) pushSheet(ctx context.Context, chatID int64, c *chat) error {
	if c.view.Render().Section != view.SectionAdmin {
		return a.fail(chatID, models.ErrForbidden)
	}
	if a.sheets == nil {
		return a.SendText(chatID, "Google Sheets no está configurado.")
	}
	regs := a.repo.ListByStatus(models.FilterAll)
	if err := a.sheets.ReplaceRegistrations(ctx, regs); err != nil {
		log.Printf("sheets export: %v", err)
		return a.SendText(chatID, "❌ No se pudo actualizar la hoja de cálculo.")
	}
	return a.SendText(chatID, fmt.Sprintf("📊 Hoja actualizada: %d registros.", len(regs)))
}

// fail answers an error with a short message; the chat session carries on.
func (a *App) fail(chatID int64, err error) error {
	log.Printf("chat %d: %v", chatID, err)
	return a.SendText(chatID, userMessage(err))
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, models.ErrAuth):
		return "Credenciales incorrectas"
	case errors.Is(err, models.ErrForbidden):
		return "Acceso denegado."
	case errors.Is(err, models.ErrNotFound):
		return "Registro no encontrado."
	case errors.Is(err, models.ErrInvalidState):
		return "Este registro ya fue procesado."
	case errors.Is(err, models.ErrDateOrder):
		return "La fecha de salida debe ser posterior a la fecha de llegada"
	case errors.Is(err, models.ErrValidation):
		return "Datos no válidos: revisa el formulario."
	case errors.Is(err, models.ErrStorageUnavailable):
		return "No se pudieron guardar los datos."
	default:
		return "Ocurrió un error. Intenta de nuevo."
	}
}
