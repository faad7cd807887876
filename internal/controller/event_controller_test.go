package controller_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"elarocks/internal/controller"
	"elarocks/internal/dto"
	"elarocks/internal/elasticsearch"
	"elarocks/internal/runstate"
	"elarocks/internal/schema"
	"elarocks/internal/service"
)

type fakeQueryService struct {
	got dto.EventSearchRequest
	err error
}

func (f *fakeQueryService) SearchEvents(_ context.Context, req dto.EventSearchRequest) (*dto.EventSearchResponse, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &dto.EventSearchResponse{
		Action:     "Process Create",
		Events:     []dto.Event{{Key: "Process Create_2023-08-07 03:00:00.00000000", Fields: map[string]any{"process_id": "100"}}},
		TotalCount: 1,
		Offset:     req.Offset,
		Limit:      req.Limit,
	}, nil
}

type fakeExtractionService struct {
	runErr error
	state  runstate.State
}

func (f *fakeExtractionService) Run(_ context.Context, eventCode string) (*service.RunResult, error) {
	if f.runErr != nil {
		return nil, f.runErr
	}
	return &service.RunResult{RunID: "run-1", EventCode: eventCode, Records: 3}, nil
}

func (f *fakeExtractionService) RunAll(context.Context) error { return nil }

func (f *fakeExtractionService) RunState() (runstate.State, error) { return f.state, nil }

func newRouter(q service.EventQueryService, e service.ExtractionService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	controller.RegisterEventRoutes(router, controller.NewEventController(q, e, nil))
	return router
}

func serve(router *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestGetEvents(t *testing.T) {
	q := &fakeQueryService{}
	router := newRouter(q, &fakeExtractionService{})

	w := serve(router, http.MethodGet, "/api/v1/events?code=1&start=2023-08-07T00:00:00Z&end=1691377200000&process_id=100&user=CORP%5Calice&agent_id=aaa&offset=2&limit=5")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "1", q.got.Code)
	assert.True(t, q.got.StartTime.Equal(time.Date(2023, 8, 7, 0, 0, 0, 0, time.UTC)))
	assert.True(t, q.got.EndTime.Equal(time.Date(2023, 8, 7, 3, 0, 0, 0, time.UTC)))
	assert.Equal(t, "100", q.got.ProcessID)
	assert.Equal(t, "CORP\\alice", q.got.User)
	assert.Equal(t, "aaa", q.got.AgentID)
	assert.Equal(t, 2, q.got.Offset)
	assert.Equal(t, 5, q.got.Limit)

	var resp dto.EventSearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.TotalCount)
	assert.Equal(t, "100", resp.Events[0].Fields["process_id"])
}

func TestGetEvents_Defaults(t *testing.T) {
	q := &fakeQueryService{}
	router := newRouter(q, &fakeExtractionService{})

	w := serve(router, http.MethodGet, "/api/v1/events?action=Process%20Create&limit=abc")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Process Create", q.got.Action)
	assert.True(t, q.got.StartTime.IsZero())
	assert.Equal(t, 0, q.got.Offset)
	assert.Equal(t, service.DefaultEventLimit, q.got.Limit)
}

func TestGetEvents_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		status int
	}{
		{"bad time", "/api/v1/events?code=1&start=yesterday", nil, http.StatusBadRequest},
		{"invalid query", "/api/v1/events", service.ErrInvalidQuery, http.StatusBadRequest},
		{"unknown code", "/api/v1/events?code=99", fmt.Errorf("%w: code 99", schema.ErrUnknownEventKind), http.StatusBadRequest},
		{"store failure", "/api/v1/events?code=1", fmt.Errorf("pebble: closed"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(&fakeQueryService{err: tt.err}, &fakeExtractionService{})
			w := serve(router, http.MethodGet, tt.target)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestGetRuns(t *testing.T) {
	state := runstate.State{"1": {RunID: "run-1", Records: 12}}
	router := newRouter(&fakeQueryService{}, &fakeExtractionService{state: state})

	w := serve(router, http.MethodGet, "/api/v1/runs")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data runstate.State `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 12, body.Data["1"].Records)
}

func TestTriggerRun(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"success", nil, http.StatusOK},
		{"unknown code", fmt.Errorf("%w: code 4", schema.ErrUnknownEventKind), http.StatusNotFound},
		{"backend unavailable", fmt.Errorf("%w: refused", elasticsearch.ErrBackendUnavailable), http.StatusBadGateway},
		{"backend error", fmt.Errorf("%w: status 500", elasticsearch.ErrBackendError), http.StatusBadGateway},
		{"other", fmt.Errorf("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(&fakeQueryService{}, &fakeExtractionService{runErr: tt.err})
			w := serve(router, http.MethodPost, "/api/v1/runs/1")
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestTriggerRun_RateLimited(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	controller.RegisterEventRoutes(router, controller.NewEventController(&fakeQueryService{}, &fakeExtractionService{}, limiter))

	assert.Equal(t, http.StatusOK, serve(router, http.MethodPost, "/api/v1/runs/1").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(router, http.MethodPost, "/api/v1/runs/1").Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/v1/runs").Code)
}
