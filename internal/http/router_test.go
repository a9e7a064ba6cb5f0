package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/wikigraph-backend/internal/auth"
	"github.com/yungbote/wikigraph-backend/internal/domain"
	httpH "github.com/yungbote/wikigraph-backend/internal/http/handlers"
	"github.com/yungbote/wikigraph-backend/internal/pipeline"
	"github.com/yungbote/wikigraph-backend/internal/pkg/dbctx"
	"github.com/yungbote/wikigraph-backend/internal/platform/logger"
)

type fakeRuns struct {
	runs []*domain.PipelineRun
}

func (f *fakeRuns) GetByID(_ dbctx.Context, id uuid.UUID) (*domain.PipelineRun, error) {
	for _, r := range f.runs {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeRuns) List(_ dbctx.Context, limit int) ([]*domain.PipelineRun, error) {
	if limit < len(f.runs) {
		return f.runs[:limit], nil
	}
	return f.runs, nil
}

type fakeStarter struct {
	busy     bool
	triggers []string
}

func (f *fakeStarter) Start(_ context.Context, trigger string) (*domain.PipelineRun, error) {
	if f.busy {
		return nil, pipeline.ErrRunInProgress
	}
	f.triggers = append(f.triggers, trigger)
	return &domain.PipelineRun{ID: uuid.New(), Status: domain.RunStatusRunning, Trigger: "http"}, nil
}

type fakeGraph struct{}

func (fakeGraph) Counts(context.Context) (int64, int64, error) { return 2, 1, nil }

func newTestRouter(runs *fakeRuns, starter *fakeStarter, g httpH.GraphCounter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(RouterConfig{
		Log:           logger.NewNop(),
		ServiceName:   "wikigraph-test",
		AdminSecret:   testSecret,
		HealthHandler: httpH.NewHealthHandler(),
		RunHandler:    httpH.NewRunHandler(runs, starter),
		GraphHandler:  httpH.NewGraphHandler(g),
	})
}

const testSecret = "test-admin-secret"

func do(t *testing.T, r http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	return doWithToken(t, r, method, path, "")
}

func doWithToken(t *testing.T, r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error envelope: %v body=%s", err, rec.Body.String())
	}
	return env.Error.Code
}

func TestHealthcheck(t *testing.T) {
	r := newTestRouter(&fakeRuns{}, &fakeStarter{}, fakeGraph{})
	rec := do(t, r, http.MethodGet, "/healthcheck")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck: status=%d body=%q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected X-Request-Id header")
	}
}

func TestRunsEndpoints(t *testing.T) {
	now := time.Now().UTC()
	a := &domain.PipelineRun{ID: uuid.New(), Status: domain.RunStatusSucceeded, StartedAt: now}
	b := &domain.PipelineRun{ID: uuid.New(), Status: domain.RunStatusSkipped, StartedAt: now.Add(-time.Hour)}
	r := newTestRouter(&fakeRuns{runs: []*domain.PipelineRun{a, b}}, &fakeStarter{}, fakeGraph{})

	rec := do(t, r, http.MethodGet, "/api/runs?limit=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status=%d", rec.Code)
	}
	var list struct {
		Runs []domain.PipelineRun `json:"runs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Runs) != 1 || list.Runs[0].ID != a.ID {
		t.Fatalf("list: want [%s] got %+v", a.ID, list.Runs)
	}

	if rec := do(t, r, http.MethodGet, "/api/runs?limit=zero"); rec.Code != http.StatusBadRequest || errorCode(t, rec) != "invalid_limit" {
		t.Fatalf("bad limit: status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = do(t, r, http.MethodGet, "/api/runs/"+b.ID.String())
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), b.ID.String()) {
		t.Fatalf("get: status=%d body=%s", rec.Code, rec.Body.String())
	}
	if rec := do(t, r, http.MethodGet, "/api/runs/"+uuid.New().String()); rec.Code != http.StatusNotFound || errorCode(t, rec) != "run_not_found" {
		t.Fatalf("missing: status=%d body=%s", rec.Code, rec.Body.String())
	}
	if rec := do(t, r, http.MethodGet, "/api/runs/not-a-uuid"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: status=%d", rec.Code)
	}
}

func TestStartRun(t *testing.T) {
	starter := &fakeStarter{}
	r := newTestRouter(&fakeRuns{}, starter, fakeGraph{})

	token := adminToken(t, testSecret)
	rec := doWithToken(t, r, http.MethodPost, "/api/runs", token)
	if rec.Code != http.StatusAccepted || !strings.Contains(rec.Body.String(), "run_id") {
		t.Fatalf("start: status=%d body=%s", rec.Code, rec.Body.String())
	}
	if len(starter.triggers) != 1 || starter.triggers[0] != "http:ops" {
		t.Fatalf("trigger: want=[http:ops] got=%v", starter.triggers)
	}

	starter.busy = true
	rec = doWithToken(t, r, http.MethodPost, "/api/runs", token)
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "run_in_progress" {
		t.Fatalf("busy: status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func adminToken(t *testing.T, secret string) string {
	t.Helper()
	tok, err := auth.SignAdminToken(secret, "ops", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("SignAdminToken: %v", err)
	}
	return tok
}

func TestStartRunRequiresAdminToken(t *testing.T) {
	starter := &fakeStarter{}
	r := newTestRouter(&fakeRuns{}, starter, fakeGraph{})

	cases := map[string]string{
		"missing":      "",
		"wrong secret": adminToken(t, "someone-else"),
		"malformed":    "abc.def.ghi",
	}
	for name, token := range cases {
		rec := doWithToken(t, r, http.MethodPost, "/api/runs", token)
		if rec.Code != http.StatusUnauthorized || errorCode(t, rec) != "unauthorized" {
			t.Fatalf("%s: want 401 unauthorized got status=%d body=%s", name, rec.Code, rec.Body.String())
		}
	}
	if len(starter.triggers) != 0 {
		t.Fatalf("rejected requests must not start runs, got %v", starter.triggers)
	}

	rec := do(t, r, http.MethodPost, "/api/runs?token="+adminToken(t, testSecret))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("query token: want 202 got status=%d body=%s", rec.Code, rec.Body.String())
	}
	if rec := do(t, r, http.MethodGet, "/api/runs"); rec.Code != http.StatusOK {
		t.Fatalf("reads stay open: want 200 got %d", rec.Code)
	}
}

func TestStartRunRefusedWithoutSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)
	starter := &fakeStarter{}
	r := NewRouter(RouterConfig{
		Log:        logger.NewNop(),
		RunHandler: httpH.NewRunHandler(&fakeRuns{}, starter),
	})
	rec := doWithToken(t, r, http.MethodPost, "/api/runs", adminToken(t, testSecret))
	if rec.Code != http.StatusUnauthorized || len(starter.triggers) != 0 {
		t.Fatalf("no secret: want 401 and no run got status=%d triggers=%v", rec.Code, starter.triggers)
	}
}

func TestGraphStats(t *testing.T) {
	r := newTestRouter(&fakeRuns{}, &fakeStarter{}, fakeGraph{})
	rec := do(t, r, http.MethodGet, "/api/graph/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: status=%d", rec.Code)
	}
	var body map[string]int64
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["articles"] != 2 || body["links"] != 1 {
		t.Fatalf("stats: got=%v", body)
	}

	unconfigured := newTestRouter(&fakeRuns{}, &fakeStarter{}, nil)
	if rec := do(t, unconfigured, http.MethodGet, "/api/graph/stats"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("no graph: want 503 got %d", rec.Code)
	}
}
