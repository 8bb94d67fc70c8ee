package view

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visitor-desk/internal/models"
	"visitor-desk/internal/registry"
	"visitor-desk/internal/session"
	"visitor-desk/internal/store"
)

type harness struct {
	ctx   context.Context
	st    *store.Memory
	repo  *registry.Repository
	clock time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		ctx:   context.Background(),
		st:    store.NewMemory(),
		clock: time.Date(2024, 1, 1, 7, 0, 0, 0, time.UTC),
	}
	h.repo = registry.Open(h.ctx, h.st, registry.WithClock(func() time.Time {
		h.clock = h.clock.Add(time.Second)
		return h.clock
	}))
	return h
}

func (h *harness) controller(t *testing.T) *Controller {
	t.Helper()
	table, err := session.NewCredentialTable(session.DefaultCredentials()...)
	require.NoError(t, err)
	return New(h.repo, session.New(table), time.UTC)
}

func anaForm(arrival, departure string) Form {
	return Form{
		Name:          "Ana",
		NationalID:    "8-123-456",
		ArrivalDate:   arrival,
		DepartureDate: departure,
		VisitReason:   "reunion",
		PersonToVisit: "Carlos",
	}
}

func TestSectionsFollowSession(t *testing.T) {
	h := newHarness(t)
	c := h.controller(t)

	assert.Equal(t, SectionLanding, c.Render().Section)
	assert.Equal(t, SectionLogin, c.ShowLogin().Section)

	p, err := c.Login(h.ctx, "usuario", "wrong")
	require.ErrorIs(t, err, models.ErrAuth)
	assert.Equal(t, SectionLogin, p.Section)
	assert.Nil(t, p.User)

	p, err = c.Login(h.ctx, "usuario", "1234")
	require.NoError(t, err)
	assert.Equal(t, SectionRegistration, p.Section)
	require.NotNil(t, p.User)
	assert.Equal(t, "Usuario", p.User.DisplayName)

	p = c.Logout()
	assert.Equal(t, SectionLanding, p.Section)

	p, err = c.Login(h.ctx, "admin", "admin")
	require.NoError(t, err)
	assert.Equal(t, SectionAdmin, p.Section)
	assert.Equal(t, models.FilterPending, p.Filter)
}

func TestAnaScenario(t *testing.T) {
	h := newHarness(t)
	visitor := h.controller(t)
	_, err := visitor.Login(h.ctx, "usuario", "1234")
	require.NoError(t, err)

	_, p, err := visitor.Submit(h.ctx, anaForm("2024-01-01T10:00", "2024-01-01T08:00"))
	require.ErrorIs(t, err, models.ErrValidation)
	assert.Empty(t, p.Registrations)
	assert.Equal(t, models.Counts{}, h.repo.Counts())

	reg, p, err := visitor.Submit(h.ctx, anaForm("2024-01-01T08:00", "2024-01-01T10:00"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, reg.Status)
	require.Len(t, p.Registrations, 1)
	assert.Equal(t, "⏳ Pendiente", p.Registrations[0].StatusLabel)
	assert.False(t, p.Registrations[0].Actionable)

	admin := h.controller(t)
	p, err = admin.Login(h.ctx, "admin", "admin")
	require.NoError(t, err)
	assert.Equal(t, models.Counts{Pending: 1}, p.Counts)
	require.Len(t, p.Registrations, 1)
	assert.True(t, p.Registrations[0].Actionable)

	approved, p, err := admin.Approve(h.ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, approved.Status)
	assert.NotNil(t, approved.ProcessedAt)
	assert.Equal(t, "admin", approved.ProcessedBy)
	assert.Empty(t, p.Registrations, "pending tab no longer shows the approved record")
	assert.Equal(t, models.Counts{Approved: 1}, p.Counts)

	_, _, err = admin.Approve(h.ctx, reg.ID)
	require.ErrorIs(t, err, models.ErrInvalidState)

	p = visitor.Render()
	require.Len(t, p.Registrations, 1)
	assert.Equal(t, "✅ Aprobado", p.Registrations[0].StatusLabel)
}

func TestFilterTabs(t *testing.T) {
	h := newHarness(t)
	visitor := h.controller(t)
	_, err := visitor.Login(h.ctx, "usuario", "1234")
	require.NoError(t, err)

	var ids []int64
	for i := 0; i < 3; i++ {
		reg, _, err := visitor.Submit(h.ctx, anaForm("2024-01-01 08:00", "2024-01-01 10:00"))
		require.NoError(t, err)
		ids = append(ids, reg.ID)
	}

	admin := h.controller(t)
	_, err = admin.Login(h.ctx, "admin", "admin")
	require.NoError(t, err)
	_, _, err = admin.Reject(h.ctx, ids[1])
	require.NoError(t, err)

	p, err := admin.SelectFilter("all")
	require.NoError(t, err)
	assert.Equal(t, models.FilterAll, p.Filter)
	require.Len(t, p.Registrations, 3)
	assert.Equal(t, ids[2], p.Registrations[0].ID)
	assert.Equal(t, ids[0], p.Registrations[2].ID)
	assert.False(t, p.Registrations[1].Actionable)

	p, err = admin.SelectFilter("rejected")
	require.NoError(t, err)
	require.Len(t, p.Registrations, 1)
	assert.Equal(t, "❌ Rechazado", p.Registrations[0].StatusLabel)

	p, err = admin.SelectFilter("bogus")
	require.ErrorIs(t, err, models.ErrValidation)
	assert.Equal(t, models.FilterRejected, p.Filter, "bad token keeps the current tab")

	admin.Logout()
	p, err = admin.Login(h.ctx, "admin", "admin")
	require.NoError(t, err)
	assert.Equal(t, models.FilterPending, p.Filter)
}

func TestRoleChecks(t *testing.T) {
	h := newHarness(t)
	c := h.controller(t)

	_, _, err := c.Submit(h.ctx, anaForm("2024-01-01T08:00", "2024-01-01T10:00"))
	require.ErrorIs(t, err, models.ErrForbidden)

	_, err = c.Login(h.ctx, "usuario", "1234")
	require.NoError(t, err)
	reg, _, err := c.Submit(h.ctx, anaForm("2024-01-01T08:00", "2024-01-01T10:00"))
	require.NoError(t, err)

	_, _, err = c.Approve(h.ctx, reg.ID)
	require.ErrorIs(t, err, models.ErrForbidden)
	_, err = c.SelectFilter("all")
	require.ErrorIs(t, err, models.ErrForbidden)

	c.Logout()
	_, err = c.Login(h.ctx, "admin", "admin")
	require.NoError(t, err)
	_, _, err = c.Submit(h.ctx, anaForm("2024-01-01T08:00", "2024-01-01T10:00"))
	require.ErrorIs(t, err, models.ErrForbidden)

	_, _, err = c.Reject(h.ctx, 999)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestSubmitRejectsUnparsableDates(t *testing.T) {
	h := newHarness(t)
	c := h.controller(t)
	_, err := c.Login(h.ctx, "usuario", "1234")
	require.NoError(t, err)

	_, _, err = c.Submit(h.ctx, anaForm("", "2024-01-01T10:00"))
	require.ErrorIs(t, err, models.ErrValidation)
	_, _, err = c.Submit(h.ctx, anaForm("2024-01-01T08:00", "pronto"))
	require.ErrorIs(t, err, models.ErrValidation)
	assert.Equal(t, models.Counts{}, h.repo.Counts())
}

func TestStorageWarning(t *testing.T) {
	h := newHarness(t)
	c := h.controller(t)
	_, err := c.Login(h.ctx, "usuario", "1234")
	require.NoError(t, err)

	h.st.FailSaves(models.ErrStorageUnavailable)
	_, p, err := c.Submit(h.ctx, anaForm("2024-01-01T08:00", "2024-01-01T10:00"))
	require.NoError(t, err)
	assert.True(t, p.StorageWarning)
	assert.Len(t, p.Registrations, 1)

	h.st.FailSaves(nil)
	_, p, err = c.Submit(h.ctx, anaForm("2024-01-01T08:00", "2024-01-01T10:00"))
	require.NoError(t, err)
	assert.False(t, p.StorageWarning)
}
