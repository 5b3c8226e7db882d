package handlers

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/rankitpro/review-followup/internal/model"
	"github.com/rankitpro/review-followup/internal/services"
	xhttp "github.com/rankitpro/review-followup/pkg/http"
	"github.com/rankitpro/review-followup/pkg/logger"
)

type errorResponse struct {
	Error  string             `json:"error"`
	Issues []model.FieldIssue `json:"issues,omitempty"`
}

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, errorResponse{Error: msg})
}

// writeServiceError maps service and repository errors onto HTTP statuses.
func writeServiceError(ctx *xhttp.RequestCtx, err error) {
	var cerr *model.ConfigurationError
	switch {
	case errors.As(err, &cerr):
		writeJSON(ctx, xhttp.StatusUnprocessableEntity, errorResponse{Error: "invalid followup settings", Issues: cerr.Issues})
	case errors.Is(err, model.ErrInvalidCompanyID), errors.Is(err, services.ErrInvalidEvent):
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrStatusNotFound), errors.Is(err, model.ErrHolidayNotFound):
		writeError(ctx, xhttp.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrTerminalStatus), errors.Is(err, model.ErrConcurrentUpdate):
		writeError(ctx, xhttp.StatusConflict, err.Error())
	default:
		logger.Error("request failed", "path", string(ctx.Path()), "error", err)
		writeError(ctx, xhttp.StatusInternalServerError, xhttp.StatusText(xhttp.StatusInternalServerError))
	}
}

func pathParam(ctx *xhttp.RequestCtx, name string) string {
	v, _ := ctx.UserValue(name).(string)
	return v
}

// companyParam reads {companyID} and checks it against the bearer token.
// It writes the error response itself and returns false on failure.
func companyParam(ctx *xhttp.RequestCtx) (string, bool) {
	companyID := pathParam(ctx, "companyID")
	if companyID == "" {
		writeError(ctx, xhttp.StatusBadRequest, model.ErrInvalidCompanyID.Error())
		return "", false
	}
	if !xhttp.AuthorizedFor(ctx, companyID) {
		writeError(ctx, xhttp.StatusForbidden, xhttp.StatusText(xhttp.StatusForbidden))
		return "", false
	}
	return companyID, true
}

func idParam(ctx *xhttp.RequestCtx) (uuid.UUID, bool) {
	id, err := uuid.Parse(pathParam(ctx, "id"))
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func queryInt(ctx *xhttp.RequestCtx, key string) (int, bool) {
	n, err := strconv.Atoi(query(ctx, key))
	return n, err == nil
}

func parseTime(s string) (time.Time, error) {
	// Accept RFC3339 or YYYY-MM-DD
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(model.HolidayDateLayout, s)
}
