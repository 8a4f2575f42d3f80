package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teqwa/teqwa-core/internal/api/http/handlers"
	"github.com/teqwa/teqwa-core/internal/auth"
	"github.com/teqwa/teqwa-core/internal/domain"
	"github.com/teqwa/teqwa-core/internal/observability"
	"github.com/teqwa/teqwa-core/internal/repository"
	"github.com/teqwa/teqwa-core/internal/service"
	apperrors "github.com/teqwa/teqwa-core/pkg/util/errorutil"
)

const (
	knownTaskID = "0b9d5c2a-4f1e-4a3b-8c6d-7e8f9a0b1c2d"
	panicTaskID = "d3e4f5a6-b7c8-4d9e-8f0a-1b2c3d4e5f60"
)

type stubTasks struct {
	updateErr error
	panicOn   string
	lastInput service.TaskCreateInput
	calls     int
}

func (s *stubTasks) CreateTask(_ context.Context, _ *auth.Principal, input service.TaskCreateInput) (*domain.StaffTask, error) {
	s.lastInput = input
	return &domain.StaffTask{ID: "task-1", Description: input.Description, Status: domain.TaskStatusPending, DueDate: input.DueDate}, nil
}

func (s *stubTasks) ListTasks(context.Context, *auth.Principal, service.TaskListFilter) ([]domain.StaffTask, error) {
	return nil, nil
}

func (s *stubTasks) GetTask(_ context.Context, _ *auth.Principal, id string) (*domain.StaffTask, error) {
	s.calls++
	if id == s.panicOn {
		panic("boom")
	}
	return nil, apperrors.NewNotFound("task", map[string]any{"id": id})
}

func (s *stubTasks) UpdateTaskStatus(_ context.Context, _ *auth.Principal, id, action string) (*domain.StaffTask, error) {
	s.calls++
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return &domain.StaffTask{ID: id, Status: domain.TaskStatusAccepted}, nil
}

type stubPayments struct {
	mu        sync.Mutex
	body      []byte
	signature string
	verifyErr error
}

func (s *stubPayments) Initialize(context.Context, service.InitializePaymentInput) (*service.InitializePaymentResult, error) {
	return nil, apperrors.NewPaymentUnavailable(errors.New("chapa: 401 Invalid API Key"))
}

func (s *stubPayments) HandleWebhook(_ context.Context, body []byte, signature string) (*service.WebhookResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.body = body
	s.signature = signature
	if signature != "good" {
		return nil, apperrors.NewInvalidSignature()
	}
	return &service.WebhookResult{TxRef: "ref-1", Status: domain.TransactionSuccess}, nil
}

func (s *stubPayments) Verify(_ context.Context, txRef string) (*service.PaymentResult, error) {
	if s.verifyErr != nil {
		return nil, s.verifyErr
	}
	return &service.PaymentResult{
		TxRef:      txRef,
		Status:     domain.TransactionSuccess,
		Amount:     decimal.NewFromInt(500),
		Currency:   "ETB",
		ObjectType: domain.PayableDonation,
		ObjectID:   7,
	}, nil
}

func (s *stubPayments) GetTransaction(context.Context, *auth.Principal, string) (*domain.Transaction, error) {
	return nil, apperrors.NewNotFound("transaction", nil)
}

type stubLimiter struct {
	mu     sync.Mutex
	budget int
	err    error
	keys   []string
}

func (l *stubLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = append(l.keys, key)
	if l.err != nil {
		return true, l.err
	}
	if l.budget <= 0 {
		return false, nil
	}
	l.budget--
	return true, nil
}

type stubAttendance struct {
	staffID string
	day     *time.Time
}

func (s *stubAttendance) record(staffID string, status domain.AttendanceStatus) *domain.StaffAttendance {
	s.staffID = staffID
	return &domain.StaffAttendance{
		ID:         "att-1",
		StaffID:    staffID,
		Date:       time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		TotalHours: decimal.RequireFromString("7.25"),
		Status:     status,
	}
}

func (s *stubAttendance) ClockIn(_ context.Context, _ *auth.Principal, staffID string) (*domain.StaffAttendance, error) {
	return s.record(staffID, domain.AttendancePresent), nil
}

func (s *stubAttendance) ClockOut(context.Context, *auth.Principal, string) (*domain.StaffAttendance, error) {
	return nil, apperrors.NewNotFound("attendance record for today", nil)
}

func (s *stubAttendance) ToggleAttendance(_ context.Context, _ *auth.Principal, staffID string) (*domain.StaffAttendance, error) {
	return s.record(staffID, domain.AttendanceAbsent), nil
}

func (s *stubAttendance) ListByDate(_ context.Context, _ *auth.Principal, day *time.Time) ([]domain.StaffAttendance, error) {
	s.day = day
	return nil, nil
}

func (s *stubAttendance) WorkLog(context.Context, *auth.Principal, *string) ([]domain.StaffAttendance, error) {
	return nil, nil
}

type stubReporter struct {
	period service.ReportPeriod
}

func (s *stubReporter) StaffReport(_ context.Context, _ *auth.Principal, period service.ReportPeriod, _ *string) (*service.StaffReport, error) {
	s.period = period
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	return &service.StaffReport{
		Period:      period,
		From:        day,
		To:          day,
		HoursWorked: decimal.RequireFromString("12.5"),
		Today:       service.TodaySnapshot{PresentCount: 3, AbsentCount: 1, TotalStaff: 4},
	}, nil
}

type nopStaff struct{}

func (nopStaff) CreateStaffProfile(context.Context, *auth.Principal, service.StaffProfileInput) (*domain.StaffMember, error) {
	return nil, apperrors.NewConflict("staff profile already exists", nil)
}

func (nopStaff) ListStaff(context.Context, *auth.Principal, repository.StaffFilter) ([]domain.StaffMember, error) {
	return []domain.StaffMember{}, nil
}

// headerAuth stands in for the JWT middleware: X-Test-Role picks the caller.
func headerAuth(c *fiber.Ctx) error {
	switch c.Get("X-Test-Role") {
	case "admin":
		auth.WithPrincipal(c, &auth.Principal{User: &domain.User{ID: "u-admin", Role: domain.UserRoleAdmin}})
	case "staff":
		auth.WithPrincipal(c, &auth.Principal{
			User:  &domain.User{ID: "u-staff", Role: domain.UserRoleStaff},
			Staff: &domain.StaffMember{ID: "s-1", UserID: "u-staff"},
		})
	case "member":
		auth.WithPrincipal(c, &auth.Principal{User: &domain.User{ID: "u-member", Role: domain.UserRoleMember}})
	default:
		return apperrors.NewUnauthorized("missing authorization header")
	}
	return c.Next()
}

type testServer struct {
	app        *fiber.App
	tasks      *stubTasks
	attendance *stubAttendance
	reports    *stubReporter
	payments   *stubPayments
	limiter    *stubLimiter
	metrics    *observability.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	srv := &testServer{
		app:        fiber.New(),
		tasks:      &stubTasks{},
		attendance: &stubAttendance{},
		reports:    &stubReporter{},
		payments:   &stubPayments{},
		limiter:    &stubLimiter{budget: 2},
		metrics:    observability.NewMetrics(),
	}
	logger := zap.NewNop()
	RegisterMiddlewares(srv.app, logger, srv.metrics, time.Second)
	RegisterRoutes(srv.app, RouteConfig{
		Health:         handlers.NewHealthHandler("teqwa-core", "test", nil, srv.metrics),
		Users:          handlers.NewUsersHandler(nil),
		Staff:          handlers.NewStaffHandler(nopStaff{}),
		Tasks:          handlers.NewTasksHandler(srv.tasks, time.UTC),
		Attendance:     handlers.NewAttendanceHandler(srv.attendance, time.UTC),
		Reports:        handlers.NewReportsHandler(srv.reports),
		Payments:       handlers.NewPaymentsHandler(srv.payments),
		AuthMiddleware: headerAuth,
		VerifyLimiter:  srv.limiter,
		Logger:         logger,
	})
	return srv
}

type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, role, body string, headers map[string]string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if role != "" {
		req.Header.Set("X-Test-Role", role)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func decodeError(t *testing.T, raw []byte) errorBody {
	t.Helper()
	var out errorBody
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestUnknownRouteRendersNotFound(t *testing.T) {
	srv := newTestServer(t)

	status, raw := srv.do(t, "GET", "/api/v1/nowhere", "", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, apperrors.CodeNotFound, decodeError(t, raw).Error.Code)
}

func TestStaffRoutesRequireStaffOrAdmin(t *testing.T) {
	srv := newTestServer(t)

	status, raw := srv.do(t, "GET", "/api/v1/staff/tasks", "", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, apperrors.CodeUnauthorized, decodeError(t, raw).Error.Code)

	status, raw = srv.do(t, "GET", "/api/v1/staff/tasks", "member", "", nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, apperrors.CodeForbidden, decodeError(t, raw).Error.Code)

	status, _ = srv.do(t, "GET", "/api/v1/staff/tasks", "staff", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestAdminOnlyRoutes(t *testing.T) {
	srv := newTestServer(t)

	status, _ := srv.do(t, "POST", "/api/v1/staff/tasks", "staff", `{}`, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = srv.do(t, "GET", "/api/v1/staff/members", "staff", "", nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = srv.do(t, "GET", "/api/v1/staff/members", "admin", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestCreateTaskValidationDetails(t *testing.T) {
	srv := newTestServer(t)

	status, raw := srv.do(t, "POST", "/api/v1/staff/tasks", "admin",
		`{"task":"  ","assigned_to":"not-a-uuid","priority":"whenever"}`, nil)
	require.Equal(t, fiber.StatusBadRequest, status)

	body := decodeError(t, raw)
	assert.Equal(t, apperrors.CodeValidation, body.Error.Code)
	fields, ok := body.Error.Details["fields"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, fields, "task")
	assert.Contains(t, fields, "assigned_to")
	assert.Contains(t, fields, "priority")
	assert.Contains(t, fields, "due_date")
}

func TestCreateTaskParsesDueDate(t *testing.T) {
	srv := newTestServer(t)

	status, raw := srv.do(t, "POST", "/api/v1/staff/tasks", "admin",
		`{"task":"Clean the prayer hall","assigned_to":"6f1c2f7e-8a3b-4c1d-9e2f-0a1b2c3d4e5f","due_date":"2025-03-12"}`, nil)
	require.Equal(t, fiber.StatusCreated, status, string(raw))

	assert.Equal(t, "Clean the prayer hall", srv.tasks.lastInput.Description)
	assert.Equal(t, time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), srv.tasks.lastInput.DueDate)

	var out struct {
		Data struct {
			ID      string `json:"id"`
			DueDate string `json:"due_date"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "task-1", out.Data.ID)
	assert.Equal(t, "2025-03-12", out.Data.DueDate)
}

func TestUpdateTaskStatus(t *testing.T) {
	t.Run("success wraps the task", func(t *testing.T) {
		srv := newTestServer(t)
		status, raw := srv.do(t, "POST", "/api/v1/staff/tasks/"+knownTaskID+"/status", "staff", `{"action":"accept"}`, nil)
		require.Equal(t, fiber.StatusOK, status)

		var out struct {
			Data struct {
				Status string `json:"status"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(raw, &out))
		assert.Equal(t, "accepted", out.Data.Status)
	})

	t.Run("state errors are conflicts", func(t *testing.T) {
		srv := newTestServer(t)
		srv.tasks.updateErr = apperrors.NewInvalidTransition("cannot start a completed task",
			map[string]any{"status": "completed", "action": "start"})

		status, raw := srv.do(t, "POST", "/api/v1/staff/tasks/"+knownTaskID+"/status", "staff", `{"action":"start"}`, nil)
		assert.Equal(t, fiber.StatusConflict, status)
		body := decodeError(t, raw)
		assert.Equal(t, apperrors.CodeInvalidTransition, body.Error.Code)
		assert.Equal(t, "completed", body.Error.Details["status"])
	})

	t.Run("attendance gate", func(t *testing.T) {
		srv := newTestServer(t)
		srv.tasks.updateErr = apperrors.NewAttendanceRequired()

		status, raw := srv.do(t, "POST", "/api/v1/staff/tasks/"+knownTaskID+"/status", "staff", `{"action":"start"}`, nil)
		assert.Equal(t, fiber.StatusConflict, status)
		assert.Equal(t, apperrors.CodeAttendanceRequired, decodeError(t, raw).Error.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := newTestServer(t)
		status, raw := srv.do(t, "POST", "/api/v1/staff/tasks/"+knownTaskID+"/status", "staff", `{"action":`, nil)
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Equal(t, apperrors.CodeValidation, decodeError(t, raw).Error.Code)
		assert.Zero(t, srv.tasks.calls)
	})
}

func TestMalformedTaskIDIsNotFound(t *testing.T) {
	cases := []struct {
		method string
		path   string
		body   string
	}{
		{"GET", "/api/v1/staff/tasks/abc", ""},
		{"POST", "/api/v1/staff/tasks/abc/status", `{"action":"accept"}`},
		{"GET", "/api/v1/staff/tasks/1;DROP", ""},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			srv := newTestServer(t)
			status, raw := srv.do(t, tc.method, tc.path, "staff", tc.body, nil)
			assert.Equal(t, fiber.StatusNotFound, status)
			assert.Equal(t, apperrors.CodeNotFound, decodeError(t, raw).Error.Code)
			assert.Zero(t, srv.tasks.calls)
		})
	}
}

func TestPanicsBecomeInternalErrors(t *testing.T) {
	srv := newTestServer(t)
	srv.tasks.panicOn = panicTaskID

	status, raw := srv.do(t, "GET", "/api/v1/staff/tasks/"+panicTaskID, "admin", "", nil)
	assert.Equal(t, fiber.StatusInternalServerError, status)
	body := decodeError(t, raw)
	assert.Equal(t, apperrors.CodeInternal, body.Error.Code)
	assert.Equal(t, "internal server error", body.Error.Message)
}

func TestInitializeHidesGatewayDiagnostics(t *testing.T) {
	srv := newTestServer(t)

	status, _ := srv.do(t, "POST", "/api/v1/payments/initialize", "", `{}`, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, raw := srv.do(t, "POST", "/api/v1/payments/initialize", "member", `{
		"amount": 500, "email": "donor@example.com", "first_name": "Abebe", "last_name": "Kebede",
		"content_type_model": "donation", "object_id": 7}`, nil)
	assert.Equal(t, fiber.StatusBadGateway, status)
	body := decodeError(t, raw)
	assert.Equal(t, apperrors.CodePaymentUnavailable, body.Error.Code)
	assert.NotContains(t, string(raw), "Invalid API Key")
}

func TestWebhookPassesRawBodyAndSignature(t *testing.T) {
	srv := newTestServer(t)
	payload := `{"tx_ref":"ref-1",  "status":"success"}`

	status, raw := srv.do(t, "POST", "/api/v1/payments/webhook/", "", payload,
		map[string]string{"X-Chapa-Signature": "good"})
	require.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"status":"success","tx_ref":"ref-1"}`, string(raw))
	assert.Equal(t, payload, string(srv.payments.body))
	assert.Equal(t, "good", srv.payments.signature)

	status, raw = srv.do(t, "POST", "/api/v1/payments/webhook", "", payload,
		map[string]string{"Chapa-Signature": "forged", "X-Chapa-Signature": "good"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, apperrors.CodeInvalidSignature, decodeError(t, raw).Error.Code)
	assert.Equal(t, "forged", srv.payments.signature)
}

func TestVerifyIsRateLimited(t *testing.T) {
	srv := newTestServer(t)

	for i := 0; i < 2; i++ {
		status, raw := srv.do(t, "GET", "/api/v1/payments/verify/ref-1", "", "", nil)
		require.Equal(t, fiber.StatusOK, status)
		var out struct {
			Status string `json:"status"`
			Data   struct {
				TxRef  string `json:"tx_ref"`
				Amount string `json:"amount"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(raw, &out))
		assert.Equal(t, "success", out.Status)
		assert.Equal(t, "ref-1", out.Data.TxRef)
		assert.Equal(t, "500", out.Data.Amount)
	}

	status, raw := srv.do(t, "GET", "/api/v1/payments/verify/ref-1", "", "", nil)
	assert.Equal(t, fiber.StatusTooManyRequests, status)
	assert.Equal(t, apperrors.CodeRateLimited, decodeError(t, raw).Error.Code)
	assert.Len(t, srv.limiter.keys, 3)
}

func TestVerifyFailsOpenWhenLimiterErrors(t *testing.T) {
	srv := newTestServer(t)
	srv.limiter.err = errors.New("redis: connection refused")
	srv.payments.verifyErr = apperrors.NewPaymentNotVerified(map[string]any{"tx_ref": "ref-1"})

	status, raw := srv.do(t, "GET", "/api/v1/payments/verify/ref-1", "", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, apperrors.CodePaymentNotVerified, decodeError(t, raw).Error.Code)
}

func TestAdminMetricsCountRequests(t *testing.T) {
	srv := newTestServer(t)
	srv.do(t, "GET", "/health/live", "", "", nil)

	status, _ := srv.do(t, "GET", "/api/v1/admin/metrics", "staff", "", nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, raw := srv.do(t, "GET", "/api/v1/admin/metrics", "admin", "", nil)
	require.Equal(t, fiber.StatusOK, status)

	var out struct {
		Data observability.Snapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.NotEmpty(t, out.Data.Requests)
	assert.NotEmpty(t, out.Data.Errors)
}

func TestAttendanceEndpoints(t *testing.T) {
	srv := newTestServer(t)

	status, raw := srv.do(t, "POST", "/api/v1/staff/attendance/clock-in", "staff", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	var out struct {
		Data struct {
			Date       string `json:"date"`
			TotalHours string `json:"total_hours"`
			Status     string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "2025-03-10", out.Data.Date)
	assert.Equal(t, "7.25", out.Data.TotalHours)
	assert.Equal(t, "present", out.Data.Status)
	assert.Empty(t, srv.attendance.staffID)

	status, raw = srv.do(t, "POST", "/api/v1/staff/attendance/clock-out", "staff", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, apperrors.CodeNotFound, decodeError(t, raw).Error.Code)

	status, raw = srv.do(t, "POST", "/api/v1/staff/attendance/toggle", "admin", `{}`, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, apperrors.CodeValidation, decodeError(t, raw).Error.Code)

	status, _ = srv.do(t, "GET", "/api/v1/staff/attendance?date=2025-03-09", "admin", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.NotNil(t, srv.attendance.day)
	assert.Equal(t, time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), *srv.attendance.day)

	status, _ = srv.do(t, "GET", "/api/v1/staff/attendance?date=09-03-2025", "admin", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestReportsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	status, raw := srv.do(t, "GET", "/api/v1/staff/reports", "admin", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, service.ReportDaily, srv.reports.period)

	var out struct {
		Data struct {
			Period string `json:"period"`
			Hours  string `json:"total_hours_worked"`
			Today  struct {
				Present    *int `json:"present"`
				TotalStaff *int `json:"total_staff"`
			} `json:"today"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "daily", out.Data.Period)
	assert.Equal(t, "12.5", out.Data.Hours)
	require.NotNil(t, out.Data.Today.Present)
	assert.Equal(t, 3, *out.Data.Today.Present)
	assert.Equal(t, 4, *out.Data.Today.TotalStaff)

	status, _ = srv.do(t, "GET", "/api/v1/staff/reports?period=yearly", "admin", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
}
