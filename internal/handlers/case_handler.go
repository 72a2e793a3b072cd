package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"caseflow/internal/lifecycle"
	"caseflow/internal/models"
)

// CaseReader is the read surface the case handler needs.
type CaseReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Case, error)
	List(ctx context.Context, filter *models.CaseFilter) ([]*models.Case, int64, error)
}

// AuditReader reads the transition history.
type AuditReader interface {
	Trail(ctx context.Context, kind models.EntityKind, id uuid.UUID) ([]*models.AuditEntry, error)
}

// CaseHandler exposes the case lifecycle over HTTP. Every mutation delegates
// to the engine; the handler only binds, parses and maps errors.
type CaseHandler struct {
	engine *lifecycle.CaseEngine
	cases  CaseReader
	audit  AuditReader
	logger *zap.Logger
}

// NewCaseHandler creates the case handler.
func NewCaseHandler(engine *lifecycle.CaseEngine, cases CaseReader, audit AuditReader, logger *zap.Logger) *CaseHandler {
	return &CaseHandler{
		engine: engine,
		cases:  cases,
		audit:  audit,
		logger: logger.Named("case_handler"),
	}
}

// RegisterComplaint handles POST /api/v1/cases/complaints
func (h *CaseHandler) RegisterComplaint(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req models.RegisterComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	created, err := h.engine.RegisterComplaint(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// OpenCrimeSceneCase handles POST /api/v1/cases/crime-scenes
func (h *CaseHandler) OpenCrimeSceneCase(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req models.OpenCrimeSceneCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	created, err := h.engine.OpenCrimeSceneCase(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GetCase handles GET /api/v1/cases/:id
func (h *CaseHandler) GetCase(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid case ID"})
		return
	}

	found, err := h.cases.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, found)
}

// ListCases handles GET /api/v1/cases
func (h *CaseHandler) ListCases(c *gin.Context) {
	var filter models.CaseFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	cases, total, err := h.cases.List(c.Request.Context(), &filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": cases, "total": total})
}

// GetCaseAudit handles GET /api/v1/cases/:id/audit
func (h *CaseHandler) GetCaseAudit(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid case ID"})
		return
	}

	trail, err := h.audit.Trail(c.Request.Context(), models.KindCase, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": trail})
}

// Transition handles POST /api/v1/cases/:id/transition
func (h *CaseHandler) Transition(c *gin.Context) {
	actor, id, ok := h.bindMutation(c)
	if !ok {
		return
	}

	var body models.TransitionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	updated, err := h.engine.Transition(c.Request.Context(), id, models.CaseStatus(body.Target), actor, body.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// SubmitForReview handles POST /api/v1/cases/:id/submit
func (h *CaseHandler) SubmitForReview(c *gin.Context) {
	h.simpleMutation(c, h.engine.SubmitForReview)
}

// Resubmit handles POST /api/v1/cases/:id/resubmit
func (h *CaseHandler) Resubmit(c *gin.Context) {
	h.simpleMutation(c, h.engine.Resubmit)
}

// CadetDecision handles POST /api/v1/cases/:id/cadet-decision
func (h *CaseHandler) CadetDecision(c *gin.Context) {
	h.reviewMutation(c, h.engine.CadetDecision)
}

// OfficerDecision handles POST /api/v1/cases/:id/officer-decision
func (h *CaseHandler) OfficerDecision(c *gin.Context) {
	h.reviewMutation(c, h.engine.OfficerDecision)
}

// CrimeSceneApproval handles POST /api/v1/cases/:id/scene-approval
func (h *CaseHandler) CrimeSceneApproval(c *gin.Context) {
	h.reviewMutation(c, h.engine.CrimeSceneApproval)
}

// DeclareSuspectsIdentified handles POST /api/v1/cases/:id/declare-suspects
func (h *CaseHandler) DeclareSuspectsIdentified(c *gin.Context) {
	h.simpleMutation(c, h.engine.DeclareSuspectsIdentified)
}

// SubmitForSergeantReview handles POST /api/v1/cases/:id/sergeant-review
func (h *CaseHandler) SubmitForSergeantReview(c *gin.Context) {
	h.simpleMutation(c, h.engine.SubmitForSergeantReview)
}

// SergeantDecision handles POST /api/v1/cases/:id/sergeant-decision
func (h *CaseHandler) SergeantDecision(c *gin.Context) {
	h.reviewMutation(c, h.engine.SergeantDecision)
}

// ForwardToJudiciary handles POST /api/v1/cases/:id/forward-judiciary
func (h *CaseHandler) ForwardToJudiciary(c *gin.Context) {
	h.simpleMutation(c, h.engine.ForwardToJudiciary)
}

// AssignDetective handles POST /api/v1/cases/:id/assign-detective
func (h *CaseHandler) AssignDetective(c *gin.Context) {
	h.assignMutation(c, h.engine.AssignDetective)
}

// AssignSergeant handles POST /api/v1/cases/:id/assign-sergeant
func (h *CaseHandler) AssignSergeant(c *gin.Context) {
	h.assignMutation(c, h.engine.AssignSergeant)
}

// AssignCaptain handles POST /api/v1/cases/:id/assign-captain
func (h *CaseHandler) AssignCaptain(c *gin.Context) {
	h.assignMutation(c, h.engine.AssignCaptain)
}

// AssignJudge handles POST /api/v1/cases/:id/assign-judge
func (h *CaseHandler) AssignJudge(c *gin.Context) {
	h.assignMutation(c, h.engine.AssignJudge)
}

func (h *CaseHandler) bindMutation(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	actor, ok := actorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid case ID"})
		return uuid.Nil, uuid.Nil, false
	}
	return actor, id, true
}

func (h *CaseHandler) simpleMutation(c *gin.Context, fn func(ctx context.Context, caseID, actor uuid.UUID) (*models.Case, error)) {
	actor, id, ok := h.bindMutation(c)
	if !ok {
		return
	}
	updated, err := fn(c.Request.Context(), id, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *CaseHandler) reviewMutation(c *gin.Context, fn func(ctx context.Context, caseID, actor uuid.UUID, req *models.ReviewDecisionRequest) (*models.Case, error)) {
	actor, id, ok := h.bindMutation(c)
	if !ok {
		return
	}
	var req models.ReviewDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	updated, err := fn(c.Request.Context(), id, actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *CaseHandler) assignMutation(c *gin.Context, fn func(ctx context.Context, caseID, actor, assignee uuid.UUID) (*models.Case, error)) {
	actor, id, ok := h.bindMutation(c)
	if !ok {
		return
	}
	var req models.AssignPersonnelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	updated, err := fn(c.Request.Context(), id, actor, req.AssigneeID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
