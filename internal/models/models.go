package models

import (
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleVisitor Role = "visitor"
)

// Registration is a visitor's request to enter the premises.
// ProcessedAt and ProcessedBy stay empty while Status is pending.
type Registration struct {
	ID          int64      `json:"id"`
	SubmittedBy string     `json:"submittedBy"`
	SubmittedAt time.Time  `json:"submittedAt"`
	Status      Status     `json:"status"`
	ProcessedAt *time.Time `json:"processedAt,omitempty"`
	ProcessedBy string     `json:"processedBy,omitempty"`

	Name          string    `json:"name"`
	NationalID    string    `json:"cedula"`
	ArrivalDate   time.Time `json:"arrivalDate"`
	DepartureDate time.Time `json:"departureDate"`
	VisitReason   string    `json:"visitReason"`
	PersonToVisit string    `json:"personToVisit"`
}

func (r Registration) IsPending() bool {
	return r.Status == StatusPending
}

// Clone returns a copy that shares no pointers with r.
func (r Registration) Clone() Registration {
	if r.ProcessedAt != nil {
		at := *r.ProcessedAt
		r.ProcessedAt = &at
	}
	return r
}

type Identity struct {
	Username    string
	Role        Role
	DisplayName string
	SessionID   string
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

type Counts struct {
	Pending  int
	Approved int
	Rejected int
}

func (c Counts) Total() int {
	return c.Pending + c.Approved + c.Rejected
}

// Filter selects registrations on the admin dashboard.
type Filter string

const (
	FilterPending  Filter = Filter(StatusPending)
	FilterApproved Filter = Filter(StatusApproved)
	FilterRejected Filter = Filter(StatusRejected)
	FilterAll      Filter = "all"
)

func ParseFilter(token string) (Filter, error) {
	f := Filter(strings.ToLower(strings.TrimSpace(token)))
	switch f {
	case FilterPending, FilterApproved, FilterRejected, FilterAll:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown filter %q", ErrValidation, token)
	}
}

// Match reports whether a record with status s passes the filter.
func (f Filter) Match(s Status) bool {
	return f == FilterAll || Status(f) == s
}
