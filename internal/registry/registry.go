package registry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"visitor-desk/internal/metrics"
	"visitor-desk/internal/models"
	"visitor-desk/internal/store"
)

// Submission carries the visitor-supplied fields of a new registration.
type Submission struct {
	SubmittedBy   string
	Name          string
	NationalID    string
	ArrivalDate   time.Time
	DepartureDate time.Time
	VisitReason   string
	PersonToVisit string
}

// Repository owns the registration list and writes it through to the store
// after every mutation. Reads hand out copies.
type Repository struct {
	mu      sync.RWMutex
	store   store.Store
	metrics *metrics.Metrics
	now     func() time.Time

	items   []models.Registration
	lastID  int64
	saveErr error
}

type Option func(*Repository)

func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Repository) { r.metrics = m }
}

// Open loads the persisted list. A failing or corrupt store is logged and
// leaves the repository empty.
func Open(ctx context.Context, st store.Store, opts ...Option) *Repository {
	r := &Repository{store: st, now: time.Now}
	for _, o := range opts {
		o(r)
	}

	regs, err := st.Load(ctx)
	if err != nil {
		log.Printf("load registrations: %v", err)
		r.metrics.IncStorageErrors()
		regs = nil
	}
	r.items = regs
	for _, reg := range regs {
		if reg.ID > r.lastID {
			r.lastID = reg.ID
		}
	}
	log.Printf("loaded %d registrations", len(r.items))
	return r
}

func (r *Repository) Submit(ctx context.Context, sub Submission) (models.Registration, error) {
	if err := validate(sub); err != nil {
		r.metrics.IncRejected("validation")
		return models.Registration{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	reg := models.Registration{
		ID:            r.nextID(now),
		SubmittedBy:   strings.TrimSpace(sub.SubmittedBy),
		SubmittedAt:   now,
		Status:        models.StatusPending,
		Name:          strings.TrimSpace(sub.Name),
		NationalID:    strings.TrimSpace(sub.NationalID),
		ArrivalDate:   sub.ArrivalDate,
		DepartureDate: sub.DepartureDate,
		VisitReason:   strings.TrimSpace(sub.VisitReason),
		PersonToVisit: strings.TrimSpace(sub.PersonToVisit),
	}
	r.items = append(r.items, reg)
	r.persist(ctx)
	r.metrics.IncSubmitted()
	return reg.Clone(), nil
}

func (r *Repository) Approve(ctx context.Context, id int64, processedBy string) (models.Registration, error) {
	return r.transition(ctx, id, processedBy, models.StatusApproved)
}

func (r *Repository) Reject(ctx context.Context, id int64, processedBy string) (models.Registration, error) {
	return r.transition(ctx, id, processedBy, models.StatusRejected)
}

func (r *Repository) transition(ctx context.Context, id int64, processedBy string, to models.Status) (models.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		r.metrics.IncRejected("not_found")
		return models.Registration{}, fmt.Errorf("%w: id %d", models.ErrNotFound, id)
	}
	reg := &r.items[i]
	if !reg.IsPending() {
		r.metrics.IncRejected("invalid_state")
		return models.Registration{}, fmt.Errorf("%w: id %d is %s", models.ErrInvalidState, id, reg.Status)
	}

	at := r.now().UTC()
	reg.Status = to
	reg.ProcessedAt = &at
	reg.ProcessedBy = processedBy
	out := reg.Clone()

	r.persist(ctx)
	r.metrics.IncProcessed(to)
	return out, nil
}

func (r *Repository) Get(id int64) (models.Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.indexOf(id)
	if i < 0 {
		return models.Registration{}, fmt.Errorf("%w: id %d", models.ErrNotFound, id)
	}
	return r.items[i].Clone(), nil
}

// ListBy returns the registrations of one submitter in submission order.
func (r *Repository) ListBy(submitterID string) []models.Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []models.Registration{}
	for _, reg := range r.items {
		if reg.SubmittedBy == submitterID {
			out = append(out, reg.Clone())
		}
	}
	return out
}

// ListByStatus returns the registrations passing filter, newest first.
func (r *Repository) ListByStatus(filter models.Filter) []models.Registration {
	r.mu.RLock()
	out := []models.Registration{}
	for _, reg := range r.items {
		if filter.Match(reg.Status) {
			out = append(out, reg.Clone())
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.After(out[j].SubmittedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r *Repository) Counts() models.Counts {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var c models.Counts
	for _, reg := range r.items {
		switch reg.Status {
		case models.StatusPending:
			c.Pending++
		case models.StatusApproved:
			c.Approved++
		case models.StatusRejected:
			c.Rejected++
		}
	}
	return c
}

// StorageError returns the error of the last failed save, or nil once a
// save succeeds again.
func (r *Repository) StorageError() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saveErr
}

// nextID derives an id from the clock and keeps it strictly increasing.
func (r *Repository) nextID(now time.Time) int64 {
	id := now.UnixMilli()
	if id <= r.lastID {
		id = r.lastID + 1
	}
	r.lastID = id
	return id
}

func (r *Repository) indexOf(id int64) int {
	for i := range r.items {
		if r.items[i].ID == id {
			return i
		}
	}
	return -1
}

// persist must be called with mu held. Failures are logged and kept for
// StorageError; memory stays authoritative.
func (r *Repository) persist(ctx context.Context) {
	snapshot := make([]models.Registration, len(r.items))
	for i, reg := range r.items {
		snapshot[i] = reg.Clone()
	}
	if err := r.store.Save(ctx, snapshot); err != nil {
		log.Printf("save registrations: %v", err)
		r.metrics.IncStorageErrors()
		if !errors.Is(err, models.ErrStorageUnavailable) {
			err = fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
		}
		r.saveErr = err
		return
	}
	r.saveErr = nil
}

func validate(sub Submission) error {
	var missing []string
	if strings.TrimSpace(sub.SubmittedBy) == "" {
		missing = append(missing, "submittedBy")
	}
	if strings.TrimSpace(sub.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(sub.NationalID) == "" {
		missing = append(missing, "cedula")
	}
	if sub.ArrivalDate.IsZero() {
		missing = append(missing, "arrivalDate")
	}
	if sub.DepartureDate.IsZero() {
		missing = append(missing, "departureDate")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", models.ErrValidation, strings.Join(missing, ", "))
	}
	if !sub.DepartureDate.After(sub.ArrivalDate) {
		return models.ErrDateOrder
	}
	return nil
}
