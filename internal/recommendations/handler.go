package recommendations

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"advisor-backend/internal/engine"
	"advisor-backend/internal/extract"
	"advisor-backend/internal/shared/server/middleware"
	"advisor-backend/internal/shared/server/respond"
)

const defaultMaxUploadBytes = 5 << 20

// Handler wires HTTP handlers to the recommendations service.
type Handler struct {
	Svc            *Service
	MaxUploadBytes int64
}

// NewHandler constructs a Handler. A non-positive maxUploadBytes selects 5 MiB.
func NewHandler(svc *Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches recommendation routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyze", h.analyze)
	rg.POST("/recommendations", h.create)
	rg.POST("/recommendations/documents", h.createFromDocument)
	rg.POST("/recommendations/:id/answers", h.answer)
	rg.GET("/recommendations", h.list)
	rg.GET("/recommendations/:id", h.get)
	rg.GET("/catalog", h.catalog)
}

type analyzeRequest struct {
	Text string `json:"text"`
}

type recommendRequest struct {
	Text string `json:"text"`
	InfoInput
}

type recordResponse struct {
	ID             string                       `json:"id"`
	State          engine.State                 `json:"state"`
	Source         string                       `json:"source"`
	ConfidenceFlag engine.ConfidenceFlag        `json:"confidenceFlag,omitempty"`
	Clarification  *engine.ClarificationRequest `json:"clarification,omitempty"`
	Recommendation *engine.Recommendation       `json:"recommendation,omitempty"`
	CreatedAt      string                       `json:"createdAt"`
	UpdatedAt      string                       `json:"updatedAt"`
}

func toResponse(rec Record) recordResponse {
	return recordResponse{
		ID:             rec.ID,
		State:          rec.State,
		Source:         rec.Source,
		ConfidenceFlag: rec.ConfidenceFlag,
		Clarification:  rec.Outcome.Clarification,
		Recommendation: rec.Outcome.Recommendation,
		CreatedAt:      rec.CreatedAt.Format(timeLayout),
		UpdatedAt:      rec.UpdatedAt.Format(timeLayout),
	}
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

func (h *Handler) analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
		return
	}
	res, err := h.Svc.Analyze(req.Text)
	if err != nil {
		h.fail(c, err, "failed to analyze requirements")
		return
	}
	respond.OK(c, res)
}

func (h *Handler) create(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	var req recommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
		return
	}
	info, err := ResolveInfo(h.Svc.Engine.Catalog(), req.InfoInput)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	rec, err := h.Svc.Recommend(c.Request.Context(), userID, req.Text, info)
	if err != nil {
		h.fail(c, err, "failed to create recommendation")
		return
	}
	h.track(c, rec, engine.StateAwaitingInput)
	respond.Created(c, recordLocation(c, rec.ID), toResponse(rec))
}

func (h *Handler) createFromDocument(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, respond.CodePayloadTooLarge, "document exceeds upload limit", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "file is required", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "unable to read file", nil)
		return
	}
	defer file.Close()

	info, err := ResolveInfo(h.Svc.Engine.Catalog(), InfoInput{
		Platform:         c.PostForm("platform"),
		BusinessType:     c.PostForm("businessType"),
		Features:         c.PostFormArray("features"),
		ExistingFeatures: c.PostFormArray("existingFeatures"),
		Portability:      c.PostForm("portability"),
		Access:           c.PostForm("access"),
	})
	if err != nil {
		h.fail(c, err, "")
		return
	}

	rec, err := h.Svc.RecommendDocument(c.Request.Context(), userID, fileHeader.Filename, file, info)
	if err != nil {
		h.fail(c, err, "failed to create recommendation")
		return
	}
	h.track(c, rec, engine.StateAwaitingInput)
	respond.Created(c, recordLocation(c, rec.ID), toResponse(rec))
}

func (h *Handler) answer(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	id := c.Param("id")
	c.Set(middleware.RecommendationIDKey, id)

	var req InfoInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
		return
	}
	info, err := ResolveInfo(h.Svc.Engine.Catalog(), req)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	if info == nil {
		info = &engine.AdditionalInfo{}
	}
	rec, err := h.Svc.Answer(c.Request.Context(), userID, id, *info)
	if err != nil {
		h.fail(c, err, "failed to resolve recommendation")
		return
	}
	h.track(c, rec, engine.StateClarifying)
	respond.OK(c, toResponse(rec))
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	id := c.Param("id")
	c.Set(middleware.RecommendationIDKey, id)

	rec, err := h.Svc.Get(c.Request.Context(), userID, id)
	if err != nil {
		h.fail(c, err, "failed to fetch recommendation")
		return
	}
	respond.OK(c, toResponse(rec))
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	limit := defaultListLimit
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}

	limit, offset = clampPage(limit, offset)
	records, err := h.Svc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "failed to list recommendations", nil)
		return
	}

	items := make([]gin.H, 0, len(records))
	for _, rec := range records {
		item := gin.H{
			"id":        rec.ID,
			"state":     rec.State,
			"source":    rec.Source,
			"createdAt": rec.CreatedAt.Format(timeLayout),
		}
		if rec.State == engine.StateResolved {
			item["platform"] = rec.Platform
			item["businessType"] = rec.BusinessType
			item["confidenceFlag"] = rec.ConfidenceFlag
		}
		items = append(items, item)
	}
	respond.OK(c, gin.H{"items": items, "limit": limit, "offset": offset})
}

func (h *Handler) catalog(c *gin.Context) {
	respond.OK(c, h.Svc.Engine.Catalog().Summary())
}

// recordLocation derives GET /recommendations/:id from the create route.
func recordLocation(c *gin.Context, id string) string {
	return strings.TrimSuffix(c.FullPath(), "/documents") + "/" + id
}

// track exposes the record to the request logger.
func (h *Handler) track(c *gin.Context, rec Record, from engine.State) {
	c.Set(middleware.RecommendationIDKey, rec.ID)
	c.Set(middleware.TransitionKey, Transition(from, rec.State))
}

// fail maps service errors onto the standard error body.
func (h *Handler) fail(c *gin.Context, err error, internalMsg string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "recommendation not found", nil)
	case errors.Is(err, ErrAlreadyResolved):
		respond.Error(c, http.StatusConflict, respond.CodeAlreadyResolved, "recommendation is not awaiting clarification", nil)
	case errors.Is(err, extract.ErrUnsupported):
		respond.Error(c, http.StatusUnsupportedMediaType, respond.CodeUnsupportedDoc, err.Error(), nil)
	case errors.Is(err, extract.ErrNoText):
		respond.Error(c, http.StatusUnprocessableEntity, respond.CodeEmptyDocument, "document contains no readable text", nil)
	case errors.Is(err, engine.ErrCatalogLookup):
		respond.Error(c, http.StatusInternalServerError, respond.CodeCatalog, "catalog has no matching tech stack", nil)
	default:
		if internalMsg == "" {
			internalMsg = "unexpected error"
		}
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, internalMsg, nil)
	}
}
