package handlers

import (
	"context"

	"github.com/fasthttp/router"

	"github.com/rankitpro/review-followup/internal/model"
	xhttp "github.com/rankitpro/review-followup/pkg/http"
)

type HolidayService interface {
	List(ctx context.Context, companyID string) ([]*model.Holiday, error)
	Put(ctx context.Context, companyID string, holidays []model.Holiday) error
	Delete(ctx context.Context, companyID, date string) error
}

type HolidayHandler struct {
	svc HolidayService
}

func RegisterHolidayRoutes(e *router.Group, h *HolidayHandler) {
	e.GET("/companies/{companyID}/holidays", h.ListHolidays)
	e.PUT("/companies/{companyID}/holidays", h.PutHolidays)
	e.DELETE("/companies/{companyID}/holidays/{date}", h.DeleteHoliday)
}

func NewHolidayHandler(svc HolidayService) *HolidayHandler {
	return &HolidayHandler{svc: svc}
}

type holidaysRequest struct {
	Holidays []model.Holiday `json:"holidays"`
}

type holidaysResponse struct {
	Items []*model.Holiday `json:"items"`
}

func (h *HolidayHandler) ListHolidays(ctx *xhttp.RequestCtx) {
	companyID, ok := companyParam(ctx)
	if !ok {
		return
	}
	items, err := h.svc.List(ctx, companyID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	if items == nil {
		items = []*model.Holiday{}
	}
	writeJSON(ctx, xhttp.StatusOK, holidaysResponse{Items: items})
}

func (h *HolidayHandler) PutHolidays(ctx *xhttp.RequestCtx) {
	companyID, ok := companyParam(ctx)
	if !ok {
		return
	}
	var req holidaysRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := h.svc.Put(ctx, companyID, req.Holidays); err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.SetStatusCode(xhttp.StatusNoContent)
}

func (h *HolidayHandler) DeleteHoliday(ctx *xhttp.RequestCtx) {
	companyID, ok := companyParam(ctx)
	if !ok {
		return
	}
	if err := h.svc.Delete(ctx, companyID, pathParam(ctx, "date")); err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.SetStatusCode(xhttp.StatusNoContent)
}
