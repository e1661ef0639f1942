package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"paytrack/internal/billing"
	"paytrack/internal/board"
	"paytrack/internal/handler"
	"paytrack/internal/lifecycle"
	"paytrack/internal/model"
	"paytrack/internal/repository"
	"paytrack/internal/service"
	"paytrack/pkg/trace"
)

const testSecret = "router-test-secret"

type failingStatus struct {
	*repository.MemoryProjects
	err error
}

func (f *failingStatus) UpdateStatus(ctx context.Context, id string, from, to model.ProjectStatus) error {
	if f.err != nil {
		return f.err
	}
	return f.MemoryProjects.UpdateStatus(ctx, id, from, to)
}

type fakeReplayer struct {
	replayed []int64
}

func (f *fakeReplayer) ReplayEvent(_ context.Context, id int64) error {
	f.replayed = append(f.replayed, id)
	return nil
}

func (f *fakeReplayer) ReplayFailedEvents(context.Context, int) (int, error) { return 3, nil }

type testServer struct {
	engine   *gin.Engine
	status   *failingStatus
	replayer *fakeReplayer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	mem := repository.NewMemory(nil, logger)
	status := &failingStatus{MemoryProjects: mem.Projects()}
	scheduler := billing.NewScheduler(mem.Payments(), &billing.BestEffort{Logger: logger}, logger)
	machine := lifecycle.NewMachine(status, mem.Payments(), scheduler, lifecycle.Options{}, logger)
	b := board.New(mem.Projects(), machine, logger)

	projects := service.NewProjectService(mem.Projects(), b, logger)
	payments := service.NewPaymentService(mem.Projects(), mem.Payments(), logger)
	reports := service.NewReportService(mem.Projects(), mem.Payments(), nil, 0, logger)
	auth := service.NewAuthService(mem.Users(), testSecret, time.Hour, []string{"admin@studio.test"}, logger)
	require.NoError(t, auth.SeedAdmins(context.Background(), "correct horse"))
	replayer := &fakeReplayer{}

	router := NewRouter(Handlers{
		Auth:     handler.NewAuthHandler(auth, logger),
		Projects: handler.NewProjectHandler(projects, b, logger),
		Payments: handler.NewPaymentHandler(payments, logger),
		Tasks:    handler.NewTaskHandler(service.NewTaskService(mem.Projects(), mem.Tasks()), logger),
		Clients:  handler.NewClientHandler(service.NewClientService(mem.Clients()), logger),
		Reports:  handler.NewReportHandler(reports, logger),
		Admin:    handler.NewAdminHandler(replayer, logger),
	}, Options{JWTSecret: testSecret, RequestTimeout: 5 * time.Second}, logger)

	return &testServer{engine: router.Engine, status: status, replayer: replayer}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(t *testing.T, email string) string {
	t.Helper()
	creds := map[string]string{"email": email, "password": "correct horse"}
	w := s.do(t, http.MethodPost, "/register", "", creds)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return s.signIn(t, email)
}

func (s *testServer) signIn(t *testing.T, email string) string {
	t.Helper()
	creds := map[string]string{"email": email, "password": "correct horse"}
	w := s.do(t, http.MethodPost, "/login", "", creds)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out.Token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type projectResp struct {
	Project struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"project"`
}

type paymentsResp struct {
	Payments []struct {
		ID      string  `json:"id"`
		Amount  float64 `json:"amount"`
		DueDate string  `json:"dueDate"`
		Status  string  `json:"status"`
	} `json:"payments"`
	Ledger model.Ledger `json:"ledger"`
}

func createRecurring(t *testing.T, s *testServer, token string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/projects", token, map[string]any{
		"name":          "Retainer",
		"totalValue":    12000,
		"isRecurring":   true,
		"isInstallment": false,
		"paymentDate":   "2024-01-10",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[projectResp](t, w).Project.ID
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(trace.HeaderName))

	w = s.do(t, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/projects", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/projects", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterConflictAndBadLogin(t *testing.T) {
	s := newTestServer(t)
	s.login(t, "dev@studio.test")

	w := s.do(t, http.MethodPost, "/register", "", map[string]string{"email": "admin@studio.test", "password": "taken over"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/register", "", map[string]string{"email": "dev@studio.test", "password": "correct horse"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/login", "", map[string]string{"email": "dev@studio.test", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestActivateMarkPaidAndDelete(t *testing.T) {
	s := newTestServer(t)
	member := s.login(t, "dev@studio.test")
	admin := s.signIn(t, "admin@studio.test")
	id := createRecurring(t, s, member)

	w := s.do(t, http.MethodPatch, "/projects/"+id+"/status", member, map[string]string{"status": "active"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	transition := decode[map[string]any](t, w)
	assert.Equal(t, "new", transition["from"])
	assert.Equal(t, "active", transition["to"])
	assert.NotContains(t, transition, "Project")
	moved := decode[paymentsResp](t, w)
	require.Len(t, moved.Payments, 12)
	assert.Equal(t, "2024-01-10", moved.Payments[0].DueDate)
	assert.Equal(t, "2024-12-10", moved.Payments[11].DueDate)

	w = s.do(t, http.MethodPost, "/payments/"+moved.Payments[0].ID+"/pay", member, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	paid := decode[paymentsResp](t, w)
	assert.Equal(t, 1000.0, paid.Ledger.PaidAmount)
	assert.Equal(t, 11000.0, paid.Ledger.RemainingAmount)

	w = s.do(t, http.MethodPost, "/payments/"+moved.Payments[0].ID+"/pay", member, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1000.0, decode[paymentsResp](t, w).Ledger.PaidAmount)

	// members cannot delete payments
	w = s.do(t, http.MethodDelete, "/payments/"+moved.Payments[1].ID, member, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodDelete, "/payments/"+moved.Payments[1].ID, admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 11000.0, decode[paymentsResp](t, w).Ledger.RemainingAmount)

	w = s.do(t, http.MethodGet, "/projects/"+id+"/payments", member, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[paymentsResp](t, w).Payments, 11)

	w = s.do(t, http.MethodGet, "/board", member, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cols := decode[struct {
		Columns []struct {
			Status   string        `json:"status"`
			Projects []projectBody `json:"projects"`
		} `json:"columns"`
	}](t, w).Columns
	require.Len(t, cols, 6)
	assert.Equal(t, "active", cols[3].Status)
	assert.Len(t, cols[3].Projects, 1)
}

type projectBody struct {
	ID string `json:"id"`
}

func TestChangeStatusFailureReturnsReverted(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "dev@studio.test")
	id := createRecurring(t, s, token)

	s.status.err = errors.New("connection reset")
	w := s.do(t, http.MethodPatch, "/projects/"+id+"/status", token, map[string]string{"status": "active"})
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	assert.Equal(t, "new", decode[projectResp](t, w).Project.Status)

	s.status.err = nil
	w = s.do(t, http.MethodGet, "/projects/"+id+"/payments", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[paymentsResp](t, w).Payments)
}

func TestValidationAndNotFound(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "dev@studio.test")

	w := s.do(t, http.MethodPost, "/projects", token, map[string]any{"name": "x", "paymentDate": "10/01/2024"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[map[string]string](t, w)
	assert.Equal(t, "paymentDate", body["field"])
	assert.Equal(t, model.CodeInvalidFormat, body["code"])

	id := createRecurring(t, s, token)
	w = s.do(t, http.MethodPatch, "/projects/"+id+"/status", token, map[string]string{"status": "archived"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/projects/missing", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/payments/missing/pay", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/projects/"+id+"/payments", token, map[string]any{"amount": 0, "dueDate": "2024-01-01"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTasksAndClients(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "dev@studio.test")
	id := createRecurring(t, s, token)

	w := s.do(t, http.MethodPost, "/projects/"+id+"/tasks", token, map[string]any{"title": "Kickoff", "dueDate": "2024-02-01"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	task := decode[struct {
		Task struct {
			ID      string `json:"id"`
			DueDate string `json:"dueDate"`
		} `json:"task"`
	}](t, w).Task
	assert.Equal(t, "2024-02-01", task.DueDate)

	w = s.do(t, http.MethodPost, "/tasks/"+task.ID+"/complete", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodDelete, "/tasks/"+task.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodPost, "/clients", token, map[string]any{"name": "Acme", "email": "ops@acme.test"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/clients", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[struct {
		Clients []model.Client `json:"clients"`
	}](t, w).Clients, 1)
}

func TestReportsAndAdmin(t *testing.T) {
	s := newTestServer(t)
	member := s.login(t, "dev@studio.test")
	admin := s.signIn(t, "admin@studio.test")

	w := s.do(t, http.MethodGet, "/reports/summary", member, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/reports/revenue?year=abc", member, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/reports/revenue?year=2024", member, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/admin/outbox/replay?id=7", member, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/admin/outbox/replay?id=7", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int64{7}, s.replayer.replayed)

	w = s.do(t, http.MethodPost, "/admin/outbox/replay-failed", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 3, decode[map[string]any](t, w)["success_count"])
}
