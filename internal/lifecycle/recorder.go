package lifecycle

import (
	"time"

	"caseflow/internal/models"
)

// Recorder receives engine observations. The metrics package provides the
// Prometheus-backed implementation; tests use NopRecorder.
type Recorder interface {
	ObserveTransition(kind models.EntityKind, outcome string, d time.Duration)
	GuardFailure(kind models.EntityKind)
	AutoTransition(kind models.EntityKind, target string)
}

// Transition outcome labels.
const (
	OutcomeApplied  = "applied"
	OutcomeRejected = "rejected"
)

// NopRecorder discards observations.
type NopRecorder struct{}

func (NopRecorder) ObserveTransition(models.EntityKind, string, time.Duration) {}
func (NopRecorder) GuardFailure(models.EntityKind)                             {}
func (NopRecorder) AutoTransition(models.EntityKind, string)                   {}
