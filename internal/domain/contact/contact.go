// Package contact holds the contact-form submissions the console manages.
package contact

import (
	"fmt"
	"strings"
	"time"

	"github.com/sparknexora/backoffice/internal/domain/shared"
)

// Status is the handling state of a submission
type Status string

const (
	StatusNew     Status = "new"
	StatusRead    Status = "read"
	StatusReplied Status = "replied"
	StatusClosed  Status = "closed"
)

// Statuses lists every status in workflow order
var Statuses = []Status{StatusNew, StatusRead, StatusReplied, StatusClosed}

// ParseStatus accepts a status case-insensitively
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Statuses {
		if st == known {
			return st, nil
		}
	}
	return "", shared.NewDomainError("CONTACT_INVALID_STATUS", fmt.Sprintf("unknown contact status %q", s))
}

// Priority is the triage level assigned by an admin
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// ParsePriority accepts a priority case-insensitively. The backend leaves it
// unset on fresh submissions, which reads as medium.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return PriorityMedium, nil
	}
	for _, known := range Priorities {
		if p == known {
			return p, nil
		}
	}
	return "", shared.NewDomainError("CONTACT_INVALID_PRIORITY", fmt.Sprintf("unknown contact priority %q", s))
}

// AdminNote is an internal remark attached to a submission
type AdminNote struct {
	Note    string    `json:"note"`
	AddedBy string    `json:"addedBy"`
	AddedAt time.Time `json:"addedAt"`
}

// Contact is one submission as listed in the console
type Contact struct {
	ID         string      `json:"id"`
	Status     Status      `json:"status"`
	Priority   Priority    `json:"priority"`
	CreatedAt  time.Time   `json:"createdAt"`
	Name       string      `json:"name"`
	Email      string      `json:"email"`
	Phone      string      `json:"phone,omitempty"`
	Company    string      `json:"company,omitempty"`
	Subject    string      `json:"subject,omitempty"`
	Message    string      `json:"message"`
	Service    string      `json:"service,omitempty"`
	Budget     string      `json:"budget,omitempty"`
	Timeline   string      `json:"timeline,omitempty"`
	Source     string      `json:"source,omitempty"`
	AdminNotes []AdminNote `json:"adminNotes"`
}

// Label names the contact in prompts, e.g. "Jane Doe <jane@x.io>"
func (c Contact) Label() string {
	switch {
	case c.Name != "" && c.Email != "":
		return fmt.Sprintf("%s <%s>", c.Name, c.Email)
	case c.Name != "":
		return c.Name
	case c.Email != "":
		return c.Email
	default:
		return c.ID
	}
}

// Update is the body of a status change. Priority is optional.
type Update struct {
	Status   Status   `json:"status"`
	Priority Priority `json:"priority,omitempty"`
}

// Stats are the dashboard counters published by the backend
type Stats struct {
	Total     int            `json:"total"`
	ByStatus  map[Status]int `json:"byStatus"`
	Recent    int            `json:"recent"`
	ThisMonth int            `json:"thisMonth"`
	Priority  map[string]int `json:"byPriority,omitempty"`
	Service   map[string]int `json:"byService,omitempty"`
}
