package lifecycle

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"caseflow/internal/models"
)

// EventType names an outbound notification event.
type EventType string

const (
	EventCaseStatusChanged    EventType = "case.status.changed"
	EventCasePersonnelChanged EventType = "case.personnel.changed"
	EventSuspectStatusChanged EventType = "suspect.status.changed"
	EventSuspectIdentified    EventType = "suspect.identified"
	EventWarrantIssued        EventType = "warrant.issued"
	EventWarrantCancelled     EventType = "warrant.cancelled"
)

// Notification is the dispatch contract. Delivery is external, at-least-once
// and best-effort: the engines enqueue after commit and never roll back a
// committed transition on dispatch failure.
type Notification struct {
	Actor      uuid.UUID         `json:"actor"`
	Recipients []uuid.UUID       `json:"recipients"`
	Event      EventType         `json:"event"`
	EntityKind models.EntityKind `json:"entity_kind"`
	EntityID   uuid.UUID         `json:"entity_id"`
	State      string            `json:"state,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Notifier is the outbound port the engines call after a successful
// transition. Dispatch is fire-and-forget; no return value is consumed.
type Notifier interface {
	Dispatch(ctx context.Context, n Notification)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) Dispatch(context.Context, Notification) {}

// caseRecipients routes notable case target states to recipient roles.
func caseRecipients(c *models.Case, target models.CaseStatus) []uuid.UUID {
	var out []uuid.UUID
	add := func(id *uuid.UUID) {
		if id != nil {
			out = append(out, *id)
		}
	}
	switch target {
	case models.CaseReturnedToComplainant, models.CaseVoided, models.CaseOpen:
		out = append(out, c.CreatedBy)
	case models.CaseInvestigation:
		add(c.DetectiveID)
	case models.CaseJudiciary:
		add(c.JudgeID)
	case models.CaseClosed:
		out = append(out, c.CreatedBy)
		add(c.DetectiveID)
	}
	return out
}

// blank implements the uniform "no reason provided" definition: nil or
// whitespace-only after trimming.
func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func strptr(s string) *string { return &s }
