package view

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"visitor-desk/internal/models"
	"visitor-desk/internal/registry"
	"visitor-desk/internal/session"
	"visitor-desk/internal/util"
)

type Section string

const (
	SectionLanding      Section = "landing"
	SectionLogin        Section = "login"
	SectionRegistration Section = "registration"
	SectionAdmin        Section = "admin"
)

// Repository is the part of registry.Repository the controller reads and
// mutates through.
type Repository interface {
	Submit(ctx context.Context, sub registry.Submission) (models.Registration, error)
	Approve(ctx context.Context, id int64, processedBy string) (models.Registration, error)
	Reject(ctx context.Context, id int64, processedBy string) (models.Registration, error)
	ListBy(submitterID string) []models.Registration
	ListByStatus(filter models.Filter) []models.Registration
	Counts() models.Counts
	StorageError() error
}

type RegistrationView struct {
	models.Registration
	StatusLabel string
	// Actionable is set for pending records shown to an admin.
	Actionable bool
}

// Page is everything a renderer needs to draw the current section.
type Page struct {
	Section        Section
	User           *models.Identity
	Filter         models.Filter
	Registrations  []RegistrationView
	Counts         models.Counts
	StorageWarning bool
}

// Form holds raw visitor form values.
type Form struct {
	Name          string
	NationalID    string
	ArrivalDate   string
	DepartureDate string
	VisitReason   string
	PersonToVisit string
}

// Controller projects session and repository state into pages. Its only own
// state is the selected admin tab and whether the login screen was asked for.
type Controller struct {
	repo      Repository
	sess      *session.Session
	loc       *time.Location
	filter    models.Filter
	wantLogin bool
}

func New(repo Repository, sess *session.Session, loc *time.Location) *Controller {
	if loc == nil {
		loc = time.Local
	}
	return &Controller{repo: repo, sess: sess, loc: loc, filter: models.FilterPending}
}

func StatusLabel(s models.Status) string {
	switch s {
	case models.StatusPending:
		return "⏳ Pendiente"
	case models.StatusApproved:
		return "✅ Aprobado"
	case models.StatusRejected:
		return "❌ Rechazado"
	default:
		return string(s)
	}
}

func (c *Controller) Render() Page {
	p := Page{StorageWarning: c.repo.StorageError() != nil}

	id, ok := c.sess.Current()
	if !ok {
		p.Section = SectionLanding
		if c.wantLogin {
			p.Section = SectionLogin
		}
		return p
	}
	p.User = &id

	if id.IsAdmin() {
		p.Section = SectionAdmin
		p.Filter = c.filter
		p.Counts = c.repo.Counts()
		p.Registrations = project(c.repo.ListByStatus(c.filter), true)
		return p
	}

	p.Section = SectionRegistration
	p.Registrations = project(c.repo.ListBy(id.Username), false)
	return p
}

func (c *Controller) ShowLogin() Page {
	c.wantLogin = true
	return c.Render()
}

// Login authenticates and moves to the section of the new role. Admins
// always land on the pending tab.
func (c *Controller) Login(ctx context.Context, username, password string) (Page, error) {
	id, err := c.sess.Login(ctx, username, password)
	if err != nil {
		return c.Render(), err
	}
	c.wantLogin = false
	c.filter = models.FilterPending
	log.Printf("login %s role=%s session=%s", id.Username, id.Role, id.SessionID)
	return c.Render(), nil
}

func (c *Controller) Logout() Page {
	if id, ok := c.sess.Current(); ok {
		log.Printf("logout %s session=%s", id.Username, id.SessionID)
	}
	c.sess.Logout()
	c.wantLogin = false
	c.filter = models.FilterPending
	return c.Render()
}

func (c *Controller) SelectFilter(token string) (Page, error) {
	if _, err := c.requireRole(models.RoleAdmin); err != nil {
		return c.Render(), err
	}
	f, err := models.ParseFilter(token)
	if err != nil {
		return c.Render(), err
	}
	c.filter = f
	return c.Render(), nil
}

func (c *Controller) Submit(ctx context.Context, form Form) (models.Registration, Page, error) {
	id, err := c.requireRole(models.RoleVisitor)
	if err != nil {
		return models.Registration{}, c.Render(), err
	}

	arrival, err := c.parseDate("arrival", form.ArrivalDate)
	if err != nil {
		return models.Registration{}, c.Render(), err
	}
	departure, err := c.parseDate("departure", form.DepartureDate)
	if err != nil {
		return models.Registration{}, c.Render(), err
	}

	reg, err := c.repo.Submit(ctx, registry.Submission{
		SubmittedBy:   id.Username,
		Name:          form.Name,
		NationalID:    form.NationalID,
		ArrivalDate:   arrival,
		DepartureDate: departure,
		VisitReason:   form.VisitReason,
		PersonToVisit: form.PersonToVisit,
	})
	if err != nil {
		return models.Registration{}, c.Render(), err
	}
	log.Printf("registration %d submitted by %s", reg.ID, id.Username)
	return reg, c.Render(), nil
}

func (c *Controller) Approve(ctx context.Context, regID int64) (models.Registration, Page, error) {
	return c.process(ctx, regID, c.repo.Approve)
}

func (c *Controller) Reject(ctx context.Context, regID int64) (models.Registration, Page, error) {
	return c.process(ctx, regID, c.repo.Reject)
}

func (c *Controller) process(ctx context.Context, regID int64,
	op func(context.Context, int64, string) (models.Registration, error),
) (models.Registration, Page, error) {
	id, err := c.requireRole(models.RoleAdmin)
	if err != nil {
		return models.Registration{}, c.Render(), err
	}
	reg, err := op(ctx, regID, id.Username)
	if err != nil {
		return models.Registration{}, c.Render(), err
	}
	log.Printf("registration %d %s by %s", reg.ID, reg.Status, id.Username)
	return reg, c.Render(), nil
}

func (c *Controller) requireRole(role models.Role) (models.Identity, error) {
	id, ok := c.sess.Current()
	if !ok {
		return models.Identity{}, fmt.Errorf("%w: not logged in", models.ErrForbidden)
	}
	if id.Role != role {
		return models.Identity{}, fmt.Errorf("%w: requires %s role", models.ErrForbidden, role)
	}
	return id, nil
}

func (c *Controller) parseDate(field, raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, fmt.Errorf("%w: %s date is required", models.ErrValidation, field)
	}
	t, err := util.ParseDateTime(raw, c.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s: %v", models.ErrValidation, field, err)
	}
	return t, nil
}

func project(regs []models.Registration, admin bool) []RegistrationView {
	out := make([]RegistrationView, 0, len(regs))
	for _, r := range regs {
		out = append(out, RegistrationView{
			Registration: r,
			StatusLabel:  StatusLabel(r.Status),
			Actionable:   admin && r.IsPending(),
		})
	}
	return out
}
