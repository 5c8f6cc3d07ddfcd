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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/studio-booking-backend/internal/auth"
	"github.com/nekogravitycat/studio-booking-backend/internal/availability"
	"github.com/nekogravitycat/studio-booking-backend/internal/grid"
	"github.com/nekogravitycat/studio-booking-backend/internal/professional"
)

const (
	anaID = "5a1e3c9e-2b8f-4c61-9d7a-0f3f1f2d4a10"
	biaID = "8c2d4e6f-1a3b-4c5d-8e9f-0a1b2c3d4e5f"
)

type stubService struct {
	replaced []availability.WindowInput
	blocked  *availability.BlockRequest
}

func (s *stubService) Resolve(_ context.Context, professionalID string, _ time.Time, _ int) ([]availability.Slot, error) {
	if professionalID != anaID {
		return nil, professional.ErrNotFound
	}
	return []availability.Slot{{Start: 480, Bookable: true}, {Start: 510, Bookable: false}}, nil
}

func (s *stubService) Windows(_ context.Context, _ string, date time.Time) ([]availability.Window, error) {
	return []availability.Window{{Date: date, Start: 480, Open: true}}, nil
}

func (s *stubService) ReplaceWindows(_ context.Context, _ string, date time.Time, inputs []availability.WindowInput) ([]availability.Window, error) {
	s.replaced = inputs
	var out []availability.Window
	for _, in := range inputs {
		if in.Start%30 != 0 {
			return nil, availability.ErrNotGridPoint
		}
		out = append(out, availability.Window{Date: date, Start: in.Start, Open: in.Open})
	}
	return out, nil
}

func (s *stubService) Blocks(_ context.Context, _ string, _ time.Time) ([]availability.Block, error) {
	return nil, nil
}

func (s *stubService) Block(_ context.Context, req availability.BlockRequest) (*availability.Block, error) {
	s.blocked = &req
	return &availability.Block{ProfessionalID: req.ProfessionalID, Date: req.Date, Start: req.Start, Reason: req.Reason}, nil
}

func (s *stubService) Unblock(_ context.Context, _ string, _ time.Time, start grid.TimeOfDay) error {
	if start != 900 {
		return availability.ErrBlockNotFound
	}
	return nil
}

func setupRouter() (*gin.Engine, *stubService, string) {
	gin.SetMode(gin.TestMode)
	jwtManager := auth.NewJWTManager("test-secret", time.Minute)
	svc := &stubService{}

	r := gin.New()
	RegisterRoutes(r, NewHandler(svc), auth.AuthRequired(jwtManager))

	token, _ := jwtManager.GenerateAccessToken(anaID)
	return r, svc, token
}

func TestResolve(t *testing.T) {
	r, _, _ := setupRouter()

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{name: "ok", query: "?professional_id=" + anaID + "&date=2026-03-10&duration=60", want: http.StatusOK},
		{name: "missing duration", query: "?professional_id=" + anaID + "&date=2026-03-10", want: http.StatusBadRequest},
		{name: "bad date", query: "?professional_id=" + anaID + "&date=10/03/2026&duration=60", want: http.StatusBadRequest},
		{name: "bad professional id", query: "?professional_id=ana&date=2026-03-10&duration=60", want: http.StatusBadRequest},
		{name: "unknown professional", query: "?professional_id=" + biaID + "&date=2026-03-10&duration=60", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/availability"+tt.query, nil))
			assert.Equal(t, tt.want, w.Code)
		})
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/availability?professional_id="+anaID+"&date=2026-03-10&duration=60", nil))
	var resp AvailabilityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []SlotResponse{{Start: "08:00", Bookable: true}, {Start: "08:30", Bookable: false}}, resp.Slots)
}

func TestScheduleRoutesRequireOwnToken(t *testing.T) {
	r, svc, token := setupRouter()

	body := `{"slots":[{"start":"08:00","open":true},{"start":"08:30","open":false}]}`

	req := httptest.NewRequest(http.MethodPut, "/professionals/"+anaID+"/availability/2026-03-10", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodPut, "/professionals/"+biaID+"/availability/2026-03-10", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodPut, "/professionals/"+anaID+"/availability/2026-03-10", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []availability.WindowInput{{Start: 480, Open: true}, {Start: 510, Open: false}}, svc.replaced)

	var resp ScheduleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Windows, 2)

	req = httptest.NewRequest(http.MethodPut, "/professionals/"+anaID+"/availability/2026-03-10", strings.NewReader(`{"slots":[{"start":"08:15","open":true}]}`))
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBlocks(t *testing.T) {
	r, svc, token := setupRouter()

	req := httptest.NewRequest(http.MethodPost, "/professionals/"+anaID+"/blocks", strings.NewReader(`{"date":"2026-03-10","start":"15:00","reason":"dentist"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, svc.blocked)
	assert.Equal(t, grid.TimeOfDay(900), svc.blocked.Start)

	req = httptest.NewRequest(http.MethodDelete, "/professionals/"+anaID+"/blocks/2026-03-10/15:00", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodDelete, "/professionals/"+anaID+"/blocks/2026-03-10/16:00", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
