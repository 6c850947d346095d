package router

import (
    "context"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/flight-seat-reservation/internal/handler"
    "github.com/iliyamo/flight-seat-reservation/internal/middleware"
    "github.com/iliyamo/flight-seat-reservation/internal/model"
    "github.com/iliyamo/flight-seat-reservation/internal/utils"
)

const secret = "router-secret"

type stubService struct{ calls []string }

func (s *stubService) ok(call string, id uint64) (*model.Reservation, error) {
    s.calls = append(s.calls, call)
    return &model.Reservation{ID: id, Status: model.StatusConfirmed}, nil
}

func (s *stubService) CreateReservation(_ context.Context, _, _, _ uint64, _ string) (*model.Reservation, error) {
    return s.ok("create", 1)
}
func (s *stubService) CancelReservation(context.Context, uint64, uint64) error {
    s.calls = append(s.calls, "cancel")
    return nil
}
func (s *stubService) ConfirmReservation(_ context.Context, id, _ uint64) (*model.Reservation, error) {
    return s.ok("confirm", id)
}
func (s *stubService) CompleteReservation(_ context.Context, id uint64) (*model.Reservation, error) {
    return s.ok("complete", id)
}
func (s *stubService) GetReservationForUser(_ context.Context, id, _ uint64) (*model.Reservation, error) {
    return s.ok("get", id)
}
func (s *stubService) ListReservationsForUser(context.Context, uint64) ([]model.Reservation, error) {
    s.calls = append(s.calls, "list")
    return []model.Reservation{}, nil
}

type okPinger struct{}

func (okPinger) PingContext(context.Context) error { return nil }

func newServer(t *testing.T) (*echo.Echo, *stubService, *int) {
    t.Helper()
    svc := &stubService{}
    limited := 0
    limiter := func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            limited++
            return next(c)
        }
    }
    e := echo.New()
    RegisterRoutes(e, okPinger{})
    RegisterReservations(e, handler.NewReservationHandler(svc), secret, limiter)
    return e, svc, &limited
}

func bearer(t *testing.T, role string) string {
    t.Helper()
    tok, err := utils.NewAccessToken(secret, 7, role, 5)
    require.NoError(t, err)
    return "Bearer " + tok.Token
}

func serve(e *echo.Echo, method, path, auth, body string) *httptest.ResponseRecorder {
    req := httptest.NewRequest(method, path, strings.NewReader(body))
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    if auth != "" {
        req.Header.Set("Authorization", auth)
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func TestHealthRoutes(t *testing.T) {
    e, _, _ := newServer(t)
    assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/healthz", "", "").Code)
    assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/readyz", "", "").Code)
}

func TestReservationRoutesRequireToken(t *testing.T) {
    e, svc, _ := newServer(t)
    rec := serve(e, http.MethodPost, "/v1/flights/3/reservations", "", `{"fare_price_id":9}`)
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
    assert.Empty(t, svc.calls)
}

func TestWritesAreRateLimitedReadsAreNot(t *testing.T) {
    e, svc, limited := newServer(t)
    auth := bearer(t, middleware.RoleCustomer)

    assert.Equal(t, http.StatusCreated, serve(e, http.MethodPost, "/v1/flights/3/reservations", auth, `{"fare_price_id":9}`).Code)
    assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/v1/reservations/1/confirm", auth, "").Code)
    assert.Equal(t, http.StatusNoContent, serve(e, http.MethodDelete, "/v1/reservations/1", auth, "").Code)
    assert.Equal(t, 3, *limited)

    assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/v1/reservations/1", auth, "").Code)
    assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/v1/my-reservations", auth, "").Code)
    assert.Equal(t, 3, *limited)

    assert.Equal(t, []string{"create", "confirm", "cancel", "get", "list"}, svc.calls)
}

func TestCompleteIsAdminOnly(t *testing.T) {
    e, svc, _ := newServer(t)

    rec := serve(e, http.MethodPost, "/v1/admin/reservations/1/complete", bearer(t, middleware.RoleCustomer), "")
    assert.Equal(t, http.StatusForbidden, rec.Code)
    assert.Empty(t, svc.calls)

    rec = serve(e, http.MethodPost, "/v1/admin/reservations/1/complete", bearer(t, middleware.RoleAdmin), "")
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, []string{"complete"}, svc.calls)
}
