package models

import (
	"time"

	"github.com/google/uuid"
)

// Case represents a criminal case tracked from intake through judiciary closure.
type Case struct {
	ID             uuid.UUID     `json:"id" db:"id"`
	Title          string        `json:"title" db:"title" validate:"required,min=1,max=255"`
	Description    *string       `json:"description,omitempty" db:"description"`
	CrimeSeverity  CrimeSeverity `json:"crime_severity" db:"crime_severity" validate:"required,min=1,max=4"`
	Status         CaseStatus    `json:"status" db:"status"`
	CreationPath   CreationPath  `json:"creation_path" db:"creation_path"`
	RejectionCount int           `json:"rejection_count" db:"rejection_count"`
	CreatedBy      uuid.UUID     `json:"created_by" db:"created_by"`
	ApprovedBy     *uuid.UUID    `json:"approved_by,omitempty" db:"approved_by"`
	DetectiveID    *uuid.UUID    `json:"detective_id,omitempty" db:"detective_id"`
	SergeantID     *uuid.UUID    `json:"sergeant_id,omitempty" db:"sergeant_id"`
	CaptainID      *uuid.UUID    `json:"captain_id,omitempty" db:"captain_id"`
	JudgeID        *uuid.UUID    `json:"judge_id,omitempty" db:"judge_id"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
	ClosedAt       *time.Time    `json:"closed_at,omitempty" db:"closed_at"`
}

// Suspect represents a person linked to exactly one case.
type Suspect struct {
	ID                uuid.UUID      `json:"id" db:"id"`
	CaseID            uuid.UUID      `json:"case_id" db:"case_id" validate:"required"`
	FullName          string         `json:"full_name" db:"full_name" validate:"required,min=1,max=255"`
	NationalID        *string        `json:"national_id,omitempty" db:"national_id"`
	Status            SuspectStatus  `json:"status" db:"status"`
	SergeantApproval  ApprovalStatus `json:"sergeant_approval" db:"sergeant_approval"`
	ApprovalDecidedBy *uuid.UUID     `json:"approval_decided_by,omitempty" db:"approval_decided_by"`
	RejectionMessage  *string        `json:"rejection_message,omitempty" db:"rejection_message"`
	WantedSince       time.Time      `json:"wanted_since" db:"wanted_since"`
	ArrestedAt        *time.Time     `json:"arrested_at,omitempty" db:"arrested_at"`
	CreatedBy         uuid.UUID      `json:"created_by" db:"created_by"`
	CreatedAt         time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at" db:"updated_at"`
}

// MostWantedEntry is a wanted suspect joined with its case severity, plus
// the computed bounty.
type MostWantedEntry struct {
	Suspect
	CrimeSeverity CrimeSeverity `json:"crime_severity" db:"crime_severity"`
	Bounty        int64         `json:"bounty" db:"-"`
}

// Bounty computes the reward for a wanted suspect. It is a pure function of
// how long the suspect has been wanted and the case severity: a severity
// base plus a per-day accrual.
func Bounty(wantedSince time.Time, severity CrimeSeverity, now time.Time) int64 {
	if now.Before(wantedSince) {
		return 1000 * int64(severity)
	}
	days := int64(now.Sub(wantedSince).Hours() / 24)
	return 1000*int64(severity) + 50*int64(severity)*days
}

// Warrant represents an arrest warrant issued for a suspect. At most one
// warrant per suspect may be active at any time.
type Warrant struct {
	ID          uuid.UUID     `json:"id" db:"id"`
	SuspectID   uuid.UUID     `json:"suspect_id" db:"suspect_id" validate:"required"`
	Status      WarrantStatus `json:"status" db:"status"`
	Priority    Priority      `json:"priority" db:"priority"`
	Reason      string        `json:"reason" db:"reason" validate:"required,min=1"`
	IssuedBy    uuid.UUID     `json:"issued_by" db:"issued_by"`
	IssuedAt    time.Time     `json:"issued_at" db:"issued_at"`
	ExpiresAt   *time.Time    `json:"expires_at,omitempty" db:"expires_at"`
	ExecutedAt  *time.Time    `json:"executed_at,omitempty" db:"executed_at"`
	ExecutedBy  *uuid.UUID    `json:"executed_by,omitempty" db:"executed_by"`
	CancelledAt *time.Time    `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CancelledBy *uuid.UUID    `json:"cancelled_by,omitempty" db:"cancelled_by"`
}

// Expired reports whether the warrant's expiry time has passed. The scheduler
// sweep applies the same cutoff.
func (w *Warrant) Expired(now time.Time) bool {
	return w.ExpiresAt != nil && now.After(*w.ExpiresAt)
}

// Interrogation represents one interrogation session with two guilt
// assessments, each in the closed range [1,10].
type Interrogation struct {
	ID             uuid.UUID `json:"id" db:"id"`
	SuspectID      uuid.UUID `json:"suspect_id" db:"suspect_id" validate:"required"`
	DetectiveScore int       `json:"detective_score" db:"detective_score" validate:"required,min=1,max=10"`
	SergeantScore  int       `json:"sergeant_score" db:"sergeant_score" validate:"required,min=1,max=10"`
	Notes          *string   `json:"notes,omitempty" db:"notes"`
	ConductedBy    uuid.UUID `json:"conducted_by" db:"conducted_by"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Trial represents the judiciary outcome for a suspect. A guilty verdict
// carries mandatory punishment fields; an innocent verdict carries none.
type Trial struct {
	ID                uuid.UUID    `json:"id" db:"id"`
	SuspectID         uuid.UUID    `json:"suspect_id" db:"suspect_id" validate:"required"`
	JudgeID           uuid.UUID    `json:"judge_id" db:"judge_id"`
	Verdict           TrialVerdict `json:"verdict" db:"verdict" validate:"required"`
	PunishmentTitle   *string      `json:"punishment_title,omitempty" db:"punishment_title"`
	PunishmentDetails *string      `json:"punishment_details,omitempty" db:"punishment_details"`
	CreatedAt         time.Time    `json:"created_at" db:"created_at"`
}

// AuditEntry is one immutable row of an entity's transition history. The
// history is the sole source of historical truth; the entity's status column
// is a derived cache of the latest entry.
type AuditEntry struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	EntityKind EntityKind `json:"entity_kind" db:"entity_kind"`
	EntityID   uuid.UUID  `json:"entity_id" db:"entity_id"`
	Sequence   int64      `json:"sequence" db:"sequence"`
	FromState  string     `json:"from_state" db:"from_state"`
	ToState    string     `json:"to_state" db:"to_state"`
	Actor      uuid.UUID  `json:"actor" db:"actor"`
	Reason     *string    `json:"reason,omitempty" db:"reason"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// Enum types

// CaseStatus enumerates the case lifecycle states.
type CaseStatus string

const (
	CaseComplaintRegistered   CaseStatus = "complaint_registered"
	CaseCadetReview           CaseStatus = "cadet_review"
	CaseReturnedToComplainant CaseStatus = "returned_to_complainant"
	CaseOfficerReview         CaseStatus = "officer_review"
	CaseReturnedToCadet       CaseStatus = "returned_to_cadet"
	CaseVoided                CaseStatus = "voided"
	CasePendingApproval       CaseStatus = "pending_approval"
	CaseOpen                  CaseStatus = "open"
	CaseInvestigation         CaseStatus = "investigation"
	CaseSuspectIdentified     CaseStatus = "suspect_identified"
	CaseSergeantReview        CaseStatus = "sergeant_review"
	CaseArrestOrdered         CaseStatus = "arrest_ordered"
	CaseInterrogation         CaseStatus = "interrogation"
	CaseCaptainReview         CaseStatus = "captain_review"
	CaseChiefReview           CaseStatus = "chief_review"
	CaseJudiciary             CaseStatus = "judiciary"
	CaseClosed                CaseStatus = "closed"
)

// Terminal reports whether the status admits no further transitions.
func (s CaseStatus) Terminal() bool {
	return s == CaseVoided || s == CaseClosed
}

// SuspectStatus enumerates the suspect lifecycle states.
type SuspectStatus string

const (
	SuspectWanted                SuspectStatus = "wanted"
	SuspectArrested              SuspectStatus = "arrested"
	SuspectUnderInterrogation    SuspectStatus = "under_interrogation"
	SuspectPendingCaptainVerdict SuspectStatus = "pending_captain_verdict"
	SuspectPendingChiefApproval  SuspectStatus = "pending_chief_approval"
	SuspectUnderTrial            SuspectStatus = "under_trial"
	SuspectConvicted             SuspectStatus = "convicted"
	SuspectAcquitted             SuspectStatus = "acquitted"
	SuspectReleased              SuspectStatus = "released"
)

// Resolved reports whether the suspect no longer blocks case closure.
func (s SuspectStatus) Resolved() bool {
	return s == SuspectConvicted || s == SuspectAcquitted || s == SuspectReleased
}

// CreationPath records which intake path created a case.
type CreationPath string

const (
	PathComplaint  CreationPath = "complaint"
	PathCrimeScene CreationPath = "crime_scene"
)

// CrimeSeverity is an ordinal 1..4; the maximum value gates escalation to the
// chief review tier.
type CrimeSeverity int

// MaxCrimeSeverity is the highest severity ordinal.
const MaxCrimeSeverity CrimeSeverity = 4

// Valid reports whether the severity lies in the allowed ordinal range.
func (s CrimeSeverity) Valid() bool {
	return s >= 1 && s <= MaxCrimeSeverity
}

// ApprovalStatus is the sergeant approval sub-state on a suspect.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// WarrantStatus enumerates warrant states. A warrant is never re-activated.
type WarrantStatus string

const (
	WarrantActive    WarrantStatus = "active"
	WarrantExecuted  WarrantStatus = "executed"
	WarrantExpired   WarrantStatus = "expired"
	WarrantCancelled WarrantStatus = "cancelled"
)

// Priority ranks warrant urgency for dispatch queues.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// TrialVerdict is the judiciary outcome of a trial.
type TrialVerdict string

const (
	VerdictGuilty   TrialVerdict = "guilty"
	VerdictInnocent TrialVerdict = "innocent"
)

// EntityKind namespaces audit entries and capability checks.
type EntityKind string

const (
	KindCase    EntityKind = "case"
	KindSuspect EntityKind = "suspect"
)

// Role names, used only for the identity-equality checks that capability
// tokens cannot express.
type Role string

const (
	RoleCitizen   Role = "citizen"
	RoleCadet     Role = "cadet"
	RoleOfficer   Role = "officer"
	RoleDetective Role = "detective"
	RoleSergeant  Role = "sergeant"
	RoleCaptain   Role = "captain"
	RoleChief     Role = "chief"
	RoleJudge     Role = "judge"
)

// Request DTOs

// RegisterComplaintRequest opens a case on the complaint intake path.
type RegisterComplaintRequest struct {
	Title         string        `json:"title" validate:"required,min=1,max=255"`
	Description   *string       `json:"description,omitempty"`
	CrimeSeverity CrimeSeverity `json:"crime_severity" validate:"required,min=1,max=4"`
}

// OpenCrimeSceneCaseRequest opens a case on the crime-scene intake path.
type OpenCrimeSceneCaseRequest struct {
	Title         string        `json:"title" validate:"required,min=1,max=255"`
	Description   *string       `json:"description,omitempty"`
	CrimeSeverity CrimeSeverity `json:"crime_severity" validate:"required,min=1,max=4"`
}

// TransitionRequest asks the gateway for a state change.
type TransitionRequest struct {
	Target string  `json:"target" validate:"required"`
	Reason *string `json:"reason,omitempty"`
}

// ReviewDecisionRequest is shared by the cadet/officer/sergeant review
// wrappers.
type ReviewDecisionRequest struct {
	Approve bool    `json:"approve"`
	Reason  *string `json:"reason,omitempty"`
}

// AssignPersonnelRequest assigns one of the four personnel roles to a case.
type AssignPersonnelRequest struct {
	AssigneeID uuid.UUID `json:"assignee_id" validate:"required"`
}

// CreateSuspectRequest identifies a new suspect on a case.
type CreateSuspectRequest struct {
	FullName   string  `json:"full_name" validate:"required,min=1,max=255"`
	NationalID *string `json:"national_id,omitempty"`
}

// ApprovalDecisionRequest decides the sergeant approval sub-state.
type ApprovalDecisionRequest struct {
	Approve bool    `json:"approve"`
	Message *string `json:"message,omitempty"`
}

// IssueWarrantRequest issues an arrest warrant.
type IssueWarrantRequest struct {
	Priority  Priority   `json:"priority" validate:"required"`
	Reason    string     `json:"reason" validate:"required,min=1"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// ArrestRequest executes an arrest, either against the active warrant or with
// an override justification recorded verbatim in the audit note.
type ArrestRequest struct {
	OverrideJustification *string `json:"override_justification,omitempty"`
}

// CreateInterrogationRequest records one interrogation session.
type CreateInterrogationRequest struct {
	DetectiveScore int     `json:"detective_score" validate:"required,min=1,max=10"`
	SergeantScore  int     `json:"sergeant_score" validate:"required,min=1,max=10"`
	Notes          *string `json:"notes,omitempty"`
}

// CaptainVerdictRequest records the captain-level verdict.
type CaptainVerdictRequest struct {
	Guilty bool    `json:"guilty"`
	Reason *string `json:"reason,omitempty"`
}

// ChiefDecisionRequest approves or rejects an escalated verdict.
type ChiefDecisionRequest struct {
	Approve bool    `json:"approve"`
	Reason  *string `json:"reason,omitempty"`
}

// CreateTrialRequest records the trial outcome for a suspect under trial.
type CreateTrialRequest struct {
	Verdict           TrialVerdict `json:"verdict" validate:"required"`
	PunishmentTitle   *string      `json:"punishment_title,omitempty"`
	PunishmentDetails *string      `json:"punishment_details,omitempty"`
}

// Filter structs for the read-side repositories.

type CaseFilter struct {
	Statuses      []CaseStatus    `json:"statuses,omitempty"`
	Severities    []CrimeSeverity `json:"severities,omitempty"`
	CreationPaths []CreationPath  `json:"creation_paths,omitempty"`
	CreatedBy     *uuid.UUID      `json:"created_by,omitempty"`
	DetectiveID   *uuid.UUID      `json:"detective_id,omitempty"`
	Search        *string         `json:"search,omitempty"`
	Limit         int             `json:"limit,omitempty"`
	Offset        int             `json:"offset,omitempty"`
}

type SuspectFilter struct {
	CaseID     *uuid.UUID      `json:"case_id,omitempty"`
	Statuses   []SuspectStatus `json:"statuses,omitempty"`
	NationalID *string         `json:"national_id,omitempty"`
	Search     *string         `json:"search,omitempty"`
	Limit      int             `json:"limit,omitempty"`
	Offset     int             `json:"offset,omitempty"`
}

type AuditFilter struct {
	EntityKind *EntityKind `json:"entity_kind,omitempty"`
	EntityID   *uuid.UUID  `json:"entity_id,omitempty"`
	Actor      *uuid.UUID  `json:"actor,omitempty"`
	Limit      int         `json:"limit,omitempty"`
	Offset     int         `json:"offset,omitempty"`
}
