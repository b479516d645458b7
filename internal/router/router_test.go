package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appointmenthandler "github.com/jwalitptl/visitor-api/internal/handler/appointment"
	"github.com/jwalitptl/visitor-api/internal/handler/health"
	"github.com/jwalitptl/visitor-api/internal/handler/prometheus"
	userhandler "github.com/jwalitptl/visitor-api/internal/handler/user"
	"github.com/jwalitptl/visitor-api/internal/middleware"
	"github.com/jwalitptl/visitor-api/internal/model"
	"github.com/jwalitptl/visitor-api/internal/repository/memory"
	"github.com/jwalitptl/visitor-api/internal/service/appointment"
	"github.com/jwalitptl/visitor-api/internal/service/notification"
	"github.com/jwalitptl/visitor-api/internal/service/user"
	"github.com/jwalitptl/visitor-api/pkg/metrics"
)

const testKey = "test-signing-key"

func newTestRouter(t *testing.T, authRequired bool) *gin.Engine {
	t.Helper()

	reg := prom.NewRegistry()
	m := metrics.NewMetrics("sfs", reg)
	store := memory.NewStore()
	users := memory.NewUserRepository(store)
	appts := memory.NewAppointmentRepository(store)

	apptSvc := appointment.NewService(appts, users, notification.NopNotifier{}, zerolog.Nop(), m)
	userSvc := user.NewService(users, zerolog.Nop())

	r := NewRouter(
		middleware.NewAuthMiddleware(middleware.AuthConfig{Issuer: "sfs", Audience: "admin", Key: testKey}),
		health.NewHandler(store),
		prometheus.New(reg, m),
		appointmenthandler.NewHandler(apptSvc),
		userhandler.NewHandler(userSvc),
		zerolog.Nop(),
		RouterConfig{
			Mode:           gin.TestMode,
			CORSConfig:     middleware.DefaultCORSConfig(),
			RequestTimeout: 5 * time.Second,
			MaxBodyBytes:   1 << 20,
			AuthRequired:   authRequired,
		},
	)
	r.Setup()
	return r.Engine()
}

func do(t *testing.T, e *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	return w
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

func TestVisitorLifecycle(t *testing.T) {
	e := newTestRouter(t, false)

	w := do(t, e, http.MethodPost, "/api/v1/users", map[string]string{
		"firstName": "John", "lastName": "Doe", "email": "john@x.com", "phoneNo": "555-0100",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var u model.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &u))

	w = do(t, e, http.MethodPost, "/api/v1/users", map[string]string{
		"firstName": "John", "lastName": "Doe", "email": "JOHN@x.com", "phoneNo": "555-0101",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, e, http.MethodPost, "/api/v1/appointments", map[string]string{
		"userId": u.ID.String(), "date": "2025-04-26T14:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var a model.Appointment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &a))
	assert.Equal(t, model.StatusScheduled, a.Status)
	assert.Equal(t, model.PassTypeVisitorPass, a.PassType)

	w = do(t, e, http.MethodPost, "/api/v1/appointments", map[string]string{
		"userId": u.ID.String(), "date": "2025-04-27T14:00:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appointment.MsgOpenAppointmentExists, errorMessage(t, w))

	statusPath := "/api/v1/appointments/" + a.ID.String() + "/status/"
	for _, raw := range []string{"bogus", "99"} {
		w = do(t, e, http.MethodPut, statusPath+raw, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, raw)
		assert.Equal(t, appointment.MsgStatusInvalid, errorMessage(t, w), raw)
	}
	assert.Equal(t, http.StatusOK, do(t, e, http.MethodPut, statusPath+"1", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, e, http.MethodPut, statusPath+"3", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, e, http.MethodPut, statusPath+"2", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, e, http.MethodPut, statusPath+"3", nil).Code)

	w = do(t, e, http.MethodPut, statusPath+"4", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appointment.MsgAppointmentComplete, errorMessage(t, w))

	w = do(t, e, http.MethodGet, "/api/v1/appointments/filter?startDate=2025-04-26&statuses=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var filtered []model.Appointment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &filtered))
	require.Len(t, filtered, 1)
	require.NotNil(t, filtered[0].User)
	assert.Equal(t, "john@x.com", filtered[0].User.Email)

	w = do(t, e, http.MethodGet, "/api/v1/appointments?userId="+u.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history []model.Appointment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	assert.Len(t, history, 1)
}

func TestErrorMapping(t *testing.T) {
	e := newTestRouter(t, false)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"unknown appointment", http.MethodGet, "/api/v1/appointments/6f1c1a62-8a3b-4b0e-9a52-2f7d0f3c9b11", nil, http.StatusNotFound},
		{"bad appointment id", http.MethodGet, "/api/v1/appointments/not-a-uuid", nil, http.StatusBadRequest},
		{"unknown status target", http.MethodPut, "/api/v1/appointments/6f1c1a62-8a3b-4b0e-9a52-2f7d0f3c9b11/status/2", nil, http.StatusNotFound},
		{"unrecognised status on unknown appointment", http.MethodPut, "/api/v1/appointments/6f1c1a62-8a3b-4b0e-9a52-2f7d0f3c9b11/status/bogus", nil, http.StatusNotFound},
		{"out of range code on unknown appointment", http.MethodPut, "/api/v1/appointments/6f1c1a62-8a3b-4b0e-9a52-2f7d0f3c9b11/status/99", nil, http.StatusNotFound},
		{"filter without start", http.MethodGet, "/api/v1/appointments/filter", nil, http.StatusBadRequest},
		{"unknown user", http.MethodPost, "/api/v1/appointments", map[string]string{"userId": "6f1c1a62-8a3b-4b0e-9a52-2f7d0f3c9b11", "date": "2025-04-26"}, http.StatusNotFound},
		{"missing email", http.MethodPost, "/api/v1/users", map[string]string{"firstName": "A", "lastName": "B", "phoneNo": "1"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, e, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			assert.NotEmpty(t, errorMessage(t, w))
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	e := newTestRouter(t, false)

	assert.Equal(t, http.StatusOK, do(t, e, http.MethodGet, "/api/v1/health/live", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, e, http.MethodGet, "/api/v1/health/ready", nil).Code)

	w := do(t, e, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sfs_http_requests_total")
}

func TestAdminRoutesRequireToken(t *testing.T) {
	e := newTestRouter(t, true)

	w := do(t, e, http.MethodGet, "/api/v1/appointments/filter?startDate=2025-04-26", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "operator",
		Issuer:    "sfs",
		Audience:  jwt.ClaimStrings{"admin"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testKey))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments/filter?startDate=2025-04-26", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Kiosk routes stay open.
	w = do(t, e, http.MethodPost, "/api/v1/users", map[string]string{
		"firstName": "Jane", "lastName": "Roe", "email": "jane@x.com", "phoneNo": "555-0102",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
}
