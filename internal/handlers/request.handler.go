package handlers

import (
	"context"
	"strings"

	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/rankitpro/review-followup/internal/model"
	"github.com/rankitpro/review-followup/internal/services"
	xhttp "github.com/rankitpro/review-followup/pkg/http"
)

type RequestService interface {
	Admit(ctx context.Context, companyID string, event model.ServiceEvent) (*services.AdmitResult, error)
	Get(ctx context.Context, companyID string, id uuid.UUID) (*model.ReviewRequestStatus, error)
	List(ctx context.Context, f model.StatusFilter) ([]*model.ReviewRequestStatus, int64, error)
	Stats(ctx context.Context, companyID string) (*model.StatusStats, error)
	Next(ctx context.Context, companyID string, id uuid.UUID) (*services.Plan, error)
	RecordReviewSubmitted(ctx context.Context, companyID string, id uuid.UUID) (*model.ReviewRequestStatus, error)
	Unsubscribe(ctx context.Context, companyID string, id uuid.UUID) (*model.ReviewRequestStatus, error)
	RecordLinkClick(ctx context.Context, id uuid.UUID) (string, error)
}

type RequestHandler struct {
	svc RequestService
}

func RegisterRequestRoutes(e *router.Group, h *RequestHandler) {
	e.POST("/companies/{companyID}/service-events", h.AdmitEvent)
	e.GET("/companies/{companyID}/review-requests", h.ListRequests)
	e.GET("/companies/{companyID}/review-requests/stats", h.Stats)
	e.GET("/companies/{companyID}/review-requests/{id}", h.GetRequest)
	e.GET("/companies/{companyID}/review-requests/{id}/next", h.Next)
	e.POST("/companies/{companyID}/review-requests/{id}/review-submitted", h.ReviewSubmitted)
	e.POST("/companies/{companyID}/review-requests/{id}/unsubscribe", h.Unsubscribe)
}

// RegisterTrackingRoutes mounts the public link redirect outside the API group.
func RegisterTrackingRoutes(r *xhttp.Router, h *RequestHandler) {
	r.GET("/r/{id}", h.TrackClick)
}

func NewRequestHandler(svc RequestService) *RequestHandler {
	return &RequestHandler{svc: svc}
}

type listResponse struct {
	Items []*model.ReviewRequestStatus `json:"items"`
	Total int64                        `json:"total"`
}

func (h *RequestHandler) AdmitEvent(ctx *xhttp.RequestCtx) {
	companyID, ok := companyParam(ctx)
	if !ok {
		return
	}
	var event model.ServiceEvent
	if err := readJSON(ctx, &event); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	res, err := h.svc.Admit(ctx, companyID, event)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	switch {
	case !res.Admitted:
		writeJSON(ctx, xhttp.StatusOK, res)
	case res.Existing:
		writeJSON(ctx, xhttp.StatusOK, res)
	default:
		writeJSON(ctx, xhttp.StatusCreated, res)
	}
}

func (h *RequestHandler) ListRequests(ctx *xhttp.RequestCtx) {
	companyID, ok := companyParam(ctx)
	if !ok {
		return
	}

	f := model.StatusFilter{CompanyID: companyID}
	if v := query(ctx, "customer_id"); v != "" {
		f.CustomerID = &v
	}
	if v := query(ctx, "status"); v != "" {
		for _, p := range strings.Split(v, ",") {
			s := model.RequestStatus(strings.TrimSpace(p))
			if s == "" {
				continue
			}
			if !s.Valid() {
				writeError(ctx, xhttp.StatusBadRequest, "unknown status "+string(s))
				return
			}
			f.Statuses = append(f.Statuses, s)
		}
	}
	if v := query(ctx, "from"); v != "" {
		if t, e := parseTime(v); e == nil {
			f.From = &t
		}
	}
	if v := query(ctx, "to"); v != "" {
		if t, e := parseTime(v); e == nil {
			f.To = &t
		}
	}
	if n, ok := queryInt(ctx, "limit"); ok {
		f.Limit = n
	}
	if n, ok := queryInt(ctx, "offset"); ok {
		f.Offset = n
	}
	if strings.EqualFold(query(ctx, "order"), "desc") {
		f.Desc = true
	}

	items, total, err := h.svc.List(ctx, f)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	if items == nil {
		items = []*model.ReviewRequestStatus{}
	}
	writeJSON(ctx, xhttp.StatusOK, listResponse{Items: items, Total: total})
}

func (h *RequestHandler) Stats(ctx *xhttp.RequestCtx) {
	companyID, ok := companyParam(ctx)
	if !ok {
		return
	}
	stats, err := h.svc.Stats(ctx, companyID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, stats)
}

func (h *RequestHandler) GetRequest(ctx *xhttp.RequestCtx) {
	h.withRow(ctx, h.svc.Get)
}

func (h *RequestHandler) ReviewSubmitted(ctx *xhttp.RequestCtx) {
	h.withRow(ctx, h.svc.RecordReviewSubmitted)
}

func (h *RequestHandler) Unsubscribe(ctx *xhttp.RequestCtx) {
	h.withRow(ctx, h.svc.Unsubscribe)
}

func (h *RequestHandler) withRow(ctx *xhttp.RequestCtx, fn func(context.Context, string, uuid.UUID) (*model.ReviewRequestStatus, error)) {
	companyID, ok := companyParam(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx)
	if !ok {
		return
	}
	st, err := fn(ctx, companyID, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, st)
}

func (h *RequestHandler) Next(ctx *xhttp.RequestCtx) {
	companyID, ok := companyParam(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx)
	if !ok {
		return
	}
	plan, err := h.svc.Next(ctx, companyID, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, plan)
}

// TrackClick records the click and redirects to the company review page.
func (h *RequestHandler) TrackClick(ctx *xhttp.RequestCtx) {
	id, ok := idParam(ctx)
	if !ok {
		return
	}
	url, err := h.svc.RecordLinkClick(ctx, id)
	if err != nil {
		if errors.Is(err, services.ErrNoReviewURL) {
			ctx.SetContentType("text/plain; charset=utf-8")
			ctx.SetStatusCode(xhttp.StatusOK)
			ctx.SetBodyString("Thank you for your feedback!")
			return
		}
		writeServiceError(ctx, err)
		return
	}
	ctx.Redirect(url, xhttp.StatusFound)
}
