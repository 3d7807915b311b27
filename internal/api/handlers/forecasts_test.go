package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"fishcast/internal/core"
	"fishcast/internal/forecasts"
	"fishcast/internal/types"
)

// --- Mock Service ---

type mockForecastService struct {
	result  *forecasts.Forecast
	err     error
	lastReq forecasts.Request
	calls   int
}

func (m *mockForecastService) GetForecast(_ context.Context, req forecasts.Request) (*forecasts.Forecast, error) {
	m.calls++
	m.lastReq = req
	return m.result, m.err
}

// --- Helpers ---

func makeRouter(svc ForecastServiceInterface) http.Handler {
	h := NewForecastHandler(svc, nil)
	r := chi.NewRouter()
	r.Route("/v1", h.RegisterRoutes)
	return r
}

func sampleForecast() *forecasts.Forecast {
	return &forecasts.Forecast{
		Location:  "lisbon",
		Hotspot:   "guincho",
		Generated: time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC),
		Slots: []types.ScoredSlot{
			{Timestamp: 1770000000, Results: map[types.Species]types.ScoreResult{
				types.SpeciesSeabass: {Species: types.SpeciesSeabass, Total: 7.2, IsSafe: true, IsInSeason: true},
			}},
		},
	}
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp core.APIErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal error response: %v", err)
	}
	return resp.Error.Code
}

// --- GET /v1/forecast ---

func TestHandleGetForecast_Success(t *testing.T) {
	svc := &mockForecastService{result: sampleForecast()}
	router := makeRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/v1/forecast?lat=38.69&lon=-9.42&location=lisbon&hotspot=guincho", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "private, max-age=300" {
		t.Errorf("Cache-Control = %q", cc)
	}
	if svc.lastReq.LocationName != "lisbon" || svc.lastReq.Hotspot != "guincho" {
		t.Errorf("unexpected request forwarded: %+v", svc.lastReq)
	}
	if svc.lastReq.Species != nil {
		t.Errorf("species should be nil when absent, got %v", *svc.lastReq.Species)
	}

	var resp struct {
		Data forecasts.Forecast `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Data.Location != "lisbon" || len(resp.Data.Slots) != 1 {
		t.Errorf("unexpected payload: %+v", resp.Data)
	}
}

func TestHandleGetForecast_ParamParsing(t *testing.T) {
	svc := &mockForecastService{result: sampleForecast()}
	router := makeRouter(svc)

	url := "/v1/forecast?lat=38.69&lon=-9.42&location=lisbon&species=octopus&days=3&date=2026-03-12"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.lastReq.Species == nil || *svc.lastReq.Species != types.SpeciesOctopus {
		t.Errorf("species not forwarded: %+v", svc.lastReq.Species)
	}
	if svc.lastReq.Days != 3 {
		t.Errorf("days = %d", svc.lastReq.Days)
	}
	want := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
	if !svc.lastReq.Date.Equal(want) {
		t.Errorf("date = %v, want %v", svc.lastReq.Date, want)
	}
}

func TestHandleGetForecast_Validation(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantCode types.ErrorCode
	}{
		{"missing lat", "lon=-9.42&location=lisbon", types.ErrCodeValidationMissingField},
		{"bad lat", "lat=north&lon=-9.42&location=lisbon", types.ErrCodeValidationInvalidLat},
		{"missing lon", "lat=38.69&location=lisbon", types.ErrCodeValidationMissingField},
		{"bad lon", "lat=38.69&lon=west&location=lisbon", types.ErrCodeValidationInvalidLon},
		{"bad days", "lat=38.69&lon=-9.42&location=lisbon&days=week", types.ErrCodeValidationInvalidDays},
		{"bad date", "lat=38.69&lon=-9.42&location=lisbon&date=12-03-2026", types.ErrCodeValidationMissingField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockForecastService{result: sampleForecast()}
			router := makeRouter(svc)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/forecast?"+tt.query, nil))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if got := decodeErrorCode(t, rec); got != string(tt.wantCode) {
				t.Errorf("code = %q, want %q", got, tt.wantCode)
			}
			if svc.calls != 0 {
				t.Errorf("service should not be called on parse failure")
			}
		})
	}
}

func TestHandleGetForecast_ServiceErrorMapped(t *testing.T) {
	svc := &mockForecastService{err: types.NewAppError(types.ErrCodeUpstreamWeather, "weather channel unavailable", nil)}
	router := makeRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/forecast?lat=38.69&lon=-9.42&location=lisbon", nil))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if got := decodeErrorCode(t, rec); got != string(types.ErrCodeUpstreamWeather) {
		t.Errorf("code = %q", got)
	}
}

// --- POST /v1/forecast ---

func TestHandlePostForecast_Success(t *testing.T) {
	svc := &mockForecastService{result: sampleForecast()}
	router := makeRouter(svc)

	body := `{
		"lat": 38.69, "lon": -9.42,
		"location": "lisbon", "hotspot": "guincho",
		"species": "squid",
		"field_report": "full bucket of squid at the pier",
		"recent_catch": 0.7,
		"params": {"swell_height_limit_m": 1.4}
	}`
	req := httptest.NewRequest(http.MethodPost, "/v1/forecast", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastReq.FieldReport != "full bucket of squid at the pier" {
		t.Errorf("field report not forwarded: %q", svc.lastReq.FieldReport)
	}
	if svc.lastReq.RecentCatch == nil || *svc.lastReq.RecentCatch != 0.7 {
		t.Errorf("recent catch not forwarded: %v", svc.lastReq.RecentCatch)
	}
	params, ok := svc.lastReq.Params.(types.SquidParams)
	if !ok {
		t.Fatalf("expected SquidParams, got %T", svc.lastReq.Params)
	}
	if params.SwellHeightLimitM == nil || *params.SwellHeightLimitM != 1.4 {
		t.Errorf("swell limit not decoded: %+v", params)
	}
}

func TestHandlePostForecast_ParamsRequireSpecies(t *testing.T) {
	svc := &mockForecastService{result: sampleForecast()}
	router := makeRouter(svc)

	body := `{"lat": 38.69, "lon": -9.42, "location": "lisbon", "params": {"target_depth_m": 20}}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/forecast", strings.NewReader(body)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := decodeErrorCode(t, rec); got != string(types.ErrCodeValidationInvalidSpecies) {
		t.Errorf("code = %q", got)
	}
}

func TestHandlePostForecast_ParamsMustMatchSpecies(t *testing.T) {
	svc := &mockForecastService{result: sampleForecast()}
	router := makeRouter(svc)

	// Octopus params on a crab request must be rejected.
	body := `{"lat": 38.69, "lon": -9.42, "location": "lisbon", "species": "crab", "params": {"target_depth_m": 20}}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/forecast", strings.NewReader(body)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := decodeErrorCode(t, rec); got != string(types.ErrCodeValidationInvalidSpecies) {
		t.Errorf("code = %q", got)
	}
}

func TestHandlePostForecast_MalformedBody(t *testing.T) {
	svc := &mockForecastService{result: sampleForecast()}
	router := makeRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/forecast", strings.NewReader(`{"lat":`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if svc.calls != 0 {
		t.Errorf("service should not be called for malformed body")
	}
}

// --- GET /v1/species ---

func TestHandleListSpecies(t *testing.T) {
	router := makeRouter(&mockForecastService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/species", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Data []types.Species `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Data) != len(types.AllSpecies) {
		t.Errorf("expected %d species, got %d", len(types.AllSpecies), len(resp.Data))
	}
}
