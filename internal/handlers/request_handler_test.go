package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rankitpro/review-followup/internal/followup"
	"github.com/rankitpro/review-followup/internal/model"
	"github.com/rankitpro/review-followup/internal/services"
	xhttp "github.com/rankitpro/review-followup/pkg/http"
)

func TestRequestHandler_AdmitEvent(t *testing.T) {
	body := []byte(`{"customerId":"cust-1","customerEmail":"ann@example.com","serviceType":"Plumbing","invoiceAmount":"250.00"}`)
	params := map[string]string{"companyID": "acme"}

	t.Run("admitted is 201", func(t *testing.T) {
		svc := new(MockRequestService)
		st := &model.ReviewRequestStatus{ID: uuid.New(), CompanyID: "acme", Status: model.RequestStatusPending}
		svc.On("Admit", mock.Anything, "acme", mock.MatchedBy(func(e model.ServiceEvent) bool {
			return e.CustomerID == "cust-1" && e.InvoiceAmount.String() == "250"
		})).Return(&services.AdmitResult{Admitted: true, Status: st}, nil)

		ctx := setupTestContext("POST", "/api/v1/companies/acme/service-events", body, params)
		NewRequestHandler(svc).AdmitEvent(ctx)

		assert.Equal(t, xhttp.StatusCreated, ctx.Response.StatusCode())
		var res services.AdmitResult
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &res))
		assert.True(t, res.Admitted)
		assert.Equal(t, st.ID, res.Status.ID)
	})

	t.Run("rejected is 200 with reason", func(t *testing.T) {
		svc := new(MockRequestService)
		svc.On("Admit", mock.Anything, "acme", mock.Anything).
			Return(&services.AdmitResult{Reason: followup.RejectServiceType}, nil)

		ctx := setupTestContext("POST", "/api/v1/companies/acme/service-events", body, params)
		NewRequestHandler(svc).AdmitEvent(ctx)

		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		assert.JSONEq(t, `{"admitted":false,"reason":"service_type_not_targeted"}`, string(ctx.Response.Body()))
	})

	t.Run("invalid event is 400", func(t *testing.T) {
		svc := new(MockRequestService)
		svc.On("Admit", mock.Anything, "acme", mock.Anything).Return(nil, services.ErrInvalidEvent)

		ctx := setupTestContext("POST", "/api/v1/companies/acme/service-events", []byte(`{}`), params)
		NewRequestHandler(svc).AdmitEvent(ctx)
		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
	})
}

func TestRequestHandler_ListRequests(t *testing.T) {
	t.Run("parses filters", func(t *testing.T) {
		svc := new(MockRequestService)
		svc.On("List", mock.Anything, mock.MatchedBy(func(f model.StatusFilter) bool {
			return f.CompanyID == "acme" &&
				len(f.Statuses) == 2 && f.Statuses[1] == model.RequestStatusInProgress &&
				f.From != nil && f.From.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) &&
				f.Limit == 10 && f.Offset == 20 && f.Desc
		})).Return([]*model.ReviewRequestStatus{{ID: uuid.New()}}, int64(31), nil)

		ctx := setupTestContext("GET",
			"/api/v1/companies/acme/review-requests?status=pending,in_progress&from=2024-03-01&limit=10&offset=20&order=desc",
			nil, map[string]string{"companyID": "acme"})
		NewRequestHandler(svc).ListRequests(ctx)

		require.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		var resp listResponse
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
		assert.Equal(t, int64(31), resp.Total)
		assert.Len(t, resp.Items, 1)
	})

	t.Run("unknown status is 400", func(t *testing.T) {
		svc := new(MockRequestService)
		ctx := setupTestContext("GET", "/api/v1/companies/acme/review-requests?status=sent", nil, map[string]string{"companyID": "acme"})
		NewRequestHandler(svc).ListRequests(ctx)
		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
	})
}

func TestRequestHandler_RowRoutes(t *testing.T) {
	id := uuid.New()
	params := map[string]string{"companyID": "acme", "id": id.String()}

	t.Run("get not found", func(t *testing.T) {
		svc := new(MockRequestService)
		svc.On("Get", mock.Anything, "acme", id).Return(nil, model.ErrStatusNotFound)

		ctx := setupTestContext("GET", "/", nil, params)
		NewRequestHandler(svc).GetRequest(ctx)
		assert.Equal(t, xhttp.StatusNotFound, ctx.Response.StatusCode())
	})

	t.Run("malformed id", func(t *testing.T) {
		svc := new(MockRequestService)
		ctx := setupTestContext("GET", "/", nil, map[string]string{"companyID": "acme", "id": "nope"})
		NewRequestHandler(svc).GetRequest(ctx)
		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
	})

	t.Run("review submitted", func(t *testing.T) {
		svc := new(MockRequestService)
		svc.On("RecordReviewSubmitted", mock.Anything, "acme", id).
			Return(&model.ReviewRequestStatus{ID: id, Status: model.RequestStatusCompleted, ReviewSubmitted: true}, nil)

		ctx := setupTestContext("POST", "/", nil, params)
		NewRequestHandler(svc).ReviewSubmitted(ctx)

		require.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		var st model.ReviewRequestStatus
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &st))
		assert.Equal(t, model.RequestStatusCompleted, st.Status)
	})

	t.Run("unsubscribe of a completed row conflicts", func(t *testing.T) {
		svc := new(MockRequestService)
		svc.On("Unsubscribe", mock.Anything, "acme", id).Return(nil, model.ErrTerminalStatus)

		ctx := setupTestContext("POST", "/", nil, params)
		NewRequestHandler(svc).Unsubscribe(ctx)
		assert.Equal(t, xhttp.StatusConflict, ctx.Response.StatusCode())
	})

	t.Run("next", func(t *testing.T) {
		sendAt := time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)
		svc := new(MockRequestService)
		svc.On("Next", mock.Anything, "acme", id).Return(&services.Plan{
			Decision: followup.Decision{Action: followup.ActionWait, Stage: model.StageInitial, Reason: followup.ReasonNotDue},
			SendAt:   &sendAt,
		}, nil)

		ctx := setupTestContext("GET", "/", nil, params)
		NewRequestHandler(svc).Next(ctx)

		require.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		var body map[string]any
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &body))
		assert.Equal(t, "wait", body["action"])
		assert.Equal(t, "initial", body["stage"])
		assert.Equal(t, "2024-03-06T10:00:00Z", body["sendAt"])
	})
}

func TestRequestHandler_TrackClick(t *testing.T) {
	id := uuid.New()

	t.Run("redirects", func(t *testing.T) {
		svc := new(MockRequestService)
		svc.On("RecordLinkClick", mock.Anything, id).Return("https://reviews.example/acme", nil)

		ctx := setupTestContext("GET", "/r/"+id.String(), nil, map[string]string{"id": id.String()})
		NewRequestHandler(svc).TrackClick(ctx)

		assert.Equal(t, xhttp.StatusFound, ctx.Response.StatusCode())
		assert.Equal(t, "https://reviews.example/acme", string(ctx.Response.Header.Peek("Location")))
	})

	t.Run("no review url shows a thank you page", func(t *testing.T) {
		svc := new(MockRequestService)
		svc.On("RecordLinkClick", mock.Anything, id).Return("", services.ErrNoReviewURL)

		ctx := setupTestContext("GET", "/r/"+id.String(), nil, map[string]string{"id": id.String()})
		NewRequestHandler(svc).TrackClick(ctx)

		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		assert.Contains(t, string(ctx.Response.Body()), "Thank you")
	})
}

func TestHolidayHandler(t *testing.T) {
	params := map[string]string{"companyID": "acme"}

	t.Run("put", func(t *testing.T) {
		svc := new(MockHolidayService)
		svc.On("Put", mock.Anything, "acme", []model.Holiday{{Date: "2024-12-25", Name: "Christmas"}}).Return(nil)

		ctx := setupTestContext("PUT", "/", []byte(`{"holidays":[{"date":"2024-12-25","name":"Christmas"}]}`), params)
		NewHolidayHandler(svc).PutHolidays(ctx)
		assert.Equal(t, xhttp.StatusNoContent, ctx.Response.StatusCode())
	})

	t.Run("list empty is an empty array", func(t *testing.T) {
		svc := new(MockHolidayService)
		svc.On("List", mock.Anything, "acme").Return(nil, nil)

		ctx := setupTestContext("GET", "/", nil, params)
		NewHolidayHandler(svc).ListHolidays(ctx)
		assert.JSONEq(t, `{"items":[]}`, string(ctx.Response.Body()))
	})

	t.Run("delete unknown", func(t *testing.T) {
		svc := new(MockHolidayService)
		svc.On("Delete", mock.Anything, "acme", "2024-01-01").Return(model.ErrHolidayNotFound)

		ctx := setupTestContext("DELETE", "/", nil, map[string]string{"companyID": "acme", "date": "2024-01-01"})
		NewHolidayHandler(svc).DeleteHoliday(ctx)
		assert.Equal(t, xhttp.StatusNotFound, ctx.Response.StatusCode())
	})
}

func TestHealthHandler(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	ctx := setupTestContext("GET", "/api/v1/health", nil, nil)
	NewHealthHandler(map[string]HealthCheck{"postgres": ok, "redis": ok}).GetHealth(ctx)
	assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
	assert.JSONEq(t, `{"status":"ok","checks":{"postgres":"ok","redis":"ok"}}`, string(ctx.Response.Body()))

	ctx = setupTestContext("GET", "/api/v1/health", nil, nil)
	NewHealthHandler(map[string]HealthCheck{"postgres": ok, "redis": down}).GetHealth(ctx)
	assert.Equal(t, xhttp.StatusServiceUnavailable, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), "connection refused")
}

func TestRoutes(t *testing.T) {
	svc := new(MockRequestService)
	svc.On("Stats", mock.Anything, "acme").Return(&model.StatusStats{LinkClicked: 2}, nil)

	r := xhttp.CreateDefaultRouter()
	h := NewRequestHandler(svc)
	RegisterRequestRoutes(r.Group("/api/v1"), h)
	RegisterTrackingRoutes(r, h)

	ctx := setupTestContext("GET", "/api/v1/companies/acme/review-requests/stats", nil, nil)
	r.Handler(ctx)
	require.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), `"linkClicked":2`)
	svc.AssertExpectations(t)
}
