package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"caseflow/internal/lifecycle"
	"caseflow/internal/models"
)

// SuspectReader is the read surface the suspect handler needs.
type SuspectReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Suspect, error)
	List(ctx context.Context, filter *models.SuspectFilter) ([]*models.Suspect, int64, error)
	MostWanted(ctx context.Context, limit int) ([]*models.MostWantedEntry, error)
	Warrants(ctx context.Context, suspectID uuid.UUID) ([]*models.Warrant, error)
	Interrogations(ctx context.Context, suspectID uuid.UUID) ([]*models.Interrogation, error)
	Trials(ctx context.Context, suspectID uuid.UUID) ([]*models.Trial, error)
}

// SuspectHandler exposes the suspect lifecycle over HTTP.
type SuspectHandler struct {
	engine   *lifecycle.SuspectEngine
	suspects SuspectReader
	audit    AuditReader
	logger   *zap.Logger
}

// NewSuspectHandler creates the suspect handler.
func NewSuspectHandler(engine *lifecycle.SuspectEngine, suspects SuspectReader, audit AuditReader, logger *zap.Logger) *SuspectHandler {
	return &SuspectHandler{
		engine:   engine,
		suspects: suspects,
		audit:    audit,
		logger:   logger.Named("suspect_handler"),
	}
}

// CreateSuspect handles POST /api/v1/cases/:id/suspects
func (h *SuspectHandler) CreateSuspect(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	caseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid case ID"})
		return
	}

	var req models.CreateSuspectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	created, err := h.engine.CreateSuspect(c.Request.Context(), caseID, actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GetSuspect handles GET /api/v1/suspects/:id
func (h *SuspectHandler) GetSuspect(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid suspect ID"})
		return
	}

	found, err := h.suspects.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, found)
}

// ListSuspects handles GET /api/v1/suspects
func (h *SuspectHandler) ListSuspects(c *gin.Context) {
	var filter models.SuspectFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	suspects, total, err := h.suspects.List(c.Request.Context(), &filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": suspects, "total": total})
}

// MostWanted handles GET /api/v1/suspects/most-wanted
func (h *SuspectHandler) MostWanted(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	suspects, err := h.suspects.MostWanted(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": suspects})
}

// GetSuspectAudit handles GET /api/v1/suspects/:id/audit
func (h *SuspectHandler) GetSuspectAudit(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid suspect ID"})
		return
	}

	trail, err := h.audit.Trail(c.Request.Context(), models.KindSuspect, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": trail})
}

// ListWarrants handles GET /api/v1/suspects/:id/warrants
func (h *SuspectHandler) ListWarrants(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid suspect ID"})
		return
	}
	warrants, err := h.suspects.Warrants(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": warrants})
}

// ListInterrogations handles GET /api/v1/suspects/:id/interrogations
func (h *SuspectHandler) ListInterrogations(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid suspect ID"})
		return
	}
	sessions, err := h.suspects.Interrogations(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sessions})
}

// ListTrials handles GET /api/v1/suspects/:id/trials
func (h *SuspectHandler) ListTrials(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid suspect ID"})
		return
	}
	trials, err := h.suspects.Trials(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": trials})
}

// DecideApproval handles POST /api/v1/suspects/:id/approval
func (h *SuspectHandler) DecideApproval(c *gin.Context) {
	actor, id, ok := h.bind(c)
	if !ok {
		return
	}
	var req models.ApprovalDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	updated, err := h.engine.DecideApproval(c.Request.Context(), id, actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// IssueWarrant handles POST /api/v1/suspects/:id/warrants
func (h *SuspectHandler) IssueWarrant(c *gin.Context) {
	actor, id, ok := h.bind(c)
	if !ok {
		return
	}
	var req models.IssueWarrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	w, err := h.engine.IssueWarrant(c.Request.Context(), id, actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, w)
}

// CancelWarrant handles POST /api/v1/suspects/:id/warrants/cancel
func (h *SuspectHandler) CancelWarrant(c *gin.Context) {
	actor, id, ok := h.bind(c)
	if !ok {
		return
	}
	var req struct {
		Reason *string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	w, err := h.engine.CancelWarrant(c.Request.Context(), id, actor, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// Arrest handles POST /api/v1/suspects/:id/arrest
func (h *SuspectHandler) Arrest(c *gin.Context) {
	actor, id, ok := h.bind(c)
	if !ok {
		return
	}
	var req models.ArrestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	updated, err := h.engine.Arrest(c.Request.Context(), id, actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// RecordInterrogation handles POST /api/v1/suspects/:id/interrogations
func (h *SuspectHandler) RecordInterrogation(c *gin.Context) {
	actor, id, ok := h.bind(c)
	if !ok {
		return
	}
	var req models.CreateInterrogationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	rec, err := h.engine.RecordInterrogation(c.Request.Context(), id, actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// SubmitForVerdict handles POST /api/v1/suspects/:id/submit-verdict
func (h *SuspectHandler) SubmitForVerdict(c *gin.Context) {
	actor, id, ok := h.bind(c)
	if !ok {
		return
	}
	updated, err := h.engine.SubmitForVerdict(c.Request.Context(), id, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// CaptainVerdict handles POST /api/v1/suspects/:id/captain-verdict
func (h *SuspectHandler) CaptainVerdict(c *gin.Context) {
	actor, id, ok := h.bind(c)
	if !ok {
		return
	}
	var req models.CaptainVerdictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	updated, err := h.engine.CaptainVerdict(c.Request.Context(), id, actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// ChiefDecision handles POST /api/v1/suspects/:id/chief-decision
func (h *SuspectHandler) ChiefDecision(c *gin.Context) {
	actor, id, ok := h.bind(c)
	if !ok {
		return
	}
	var req models.ChiefDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	updated, err := h.engine.ChiefDecision(c.Request.Context(), id, actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// CreateTrial handles POST /api/v1/suspects/:id/trials
func (h *SuspectHandler) CreateTrial(c *gin.Context) {
	actor, id, ok := h.bind(c)
	if !ok {
		return
	}
	var req models.CreateTrialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	trial, err := h.engine.CreateTrial(c.Request.Context(), id, actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, trial)
}

// Release handles POST /api/v1/suspects/:id/release
func (h *SuspectHandler) Release(c *gin.Context) {
	actor, id, ok := h.bind(c)
	if !ok {
		return
	}
	var req struct {
		Reason *string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	updated, err := h.engine.Release(c.Request.Context(), id, actor, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// Transition handles POST /api/v1/suspects/:id/transition
func (h *SuspectHandler) Transition(c *gin.Context) {
	actor, id, ok := h.bind(c)
	if !ok {
		return
	}
	var req models.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	updated, err := h.engine.TransitionStatus(c.Request.Context(), id, models.SuspectStatus(req.Target), actor, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *SuspectHandler) bind(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	actor, ok := actorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid suspect ID"})
		return uuid.Nil, uuid.Nil, false
	}
	return actor, id, true
}
