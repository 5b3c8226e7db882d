package handlers

import (
	"context"

	"github.com/fasthttp/router"

	"github.com/rankitpro/review-followup/internal/followup"
	"github.com/rankitpro/review-followup/internal/model"
	"github.com/rankitpro/review-followup/internal/services"
	xhttp "github.com/rankitpro/review-followup/pkg/http"
)

type SettingsService interface {
	Get(ctx context.Context, companyID string) (*model.FollowUpSettings, error)
	Save(ctx context.Context, companyID string, settings *model.FollowUpSettings) (*model.FollowUpSettings, error)
	Preview(ctx context.Context, companyID string, req services.PreviewRequest) ([]followup.RenderedMessage, error)
}

type SettingsHandler struct {
	svc SettingsService
}

func RegisterSettingsRoutes(e *router.Group, h *SettingsHandler) {
	e.GET("/companies/{companyID}/followup-settings", h.GetSettings)
	e.PUT("/companies/{companyID}/followup-settings", h.SaveSettings)
	e.POST("/companies/{companyID}/followup-settings/preview", h.Preview)
}

func NewSettingsHandler(svc SettingsService) *SettingsHandler {
	return &SettingsHandler{svc: svc}
}

type previewResponse struct {
	Stage    model.Stage                `json:"stage"`
	Messages []followup.RenderedMessage `json:"messages"`
}

func (h *SettingsHandler) GetSettings(ctx *xhttp.RequestCtx) {
	companyID, ok := companyParam(ctx)
	if !ok {
		return
	}
	s, err := h.svc.Get(ctx, companyID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, s)
}

func (h *SettingsHandler) SaveSettings(ctx *xhttp.RequestCtx) {
	companyID, ok := companyParam(ctx)
	if !ok {
		return
	}
	var req model.FollowUpSettings
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	saved, err := h.svc.Save(ctx, companyID, &req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, saved)
}

func (h *SettingsHandler) Preview(ctx *xhttp.RequestCtx) {
	companyID, ok := companyParam(ctx)
	if !ok {
		return
	}
	var req services.PreviewRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	msgs, err := h.svc.Preview(ctx, companyID, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, previewResponse{Stage: req.Stage, Messages: msgs})
}
