// Package handlers contains the HTTP handler implementations for the
// fishcast API: forecast retrieval and species listing.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"fishcast/internal/core"
	"fishcast/internal/forecasts"
	"fishcast/internal/types"
)

// dateLayout is the calendar-day format accepted by the date parameter.
const dateLayout = "2006-01-02"

// ForecastServiceInterface defines the service contract for the forecast
// handler. Defined locally to avoid tight coupling per the handler injection
// pattern.
type ForecastServiceInterface interface {
	GetForecast(ctx context.Context, req forecasts.Request) (*forecasts.Forecast, error)
}

// ForecastHandler maps HTTP requests to forecast service calls.
type ForecastHandler struct {
	service ForecastServiceInterface
	logger  *slog.Logger
}

// NewForecastHandler creates a ForecastHandler with the provided dependencies.
func NewForecastHandler(svc ForecastServiceInterface, logger *slog.Logger) *ForecastHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ForecastHandler{
		service: svc,
		logger:  logger,
	}
}

// RegisterRoutes mounts the forecast endpoints onto the mux.
func (h *ForecastHandler) RegisterRoutes(r chi.Router) {
	r.Get("/forecast", h.HandleGetForecast)
	r.Post("/forecast", h.HandlePostForecast)
	r.Get("/species", h.HandleListSpecies)
}

// HandleGetForecast handles GET /v1/forecast.
// Query params: lat, lon, location (required); hotspot, species, days, date
// (optional). Richer inputs such as field reports go through the POST route.
func (h *ForecastHandler) HandleGetForecast(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	latStr := q.Get("lat")
	if latStr == "" {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationMissingField,
			"lat query parameter is required",
			nil,
		))
		return
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationInvalidLat,
			"lat must be a valid number",
			nil,
		))
		return
	}

	lonStr := q.Get("lon")
	if lonStr == "" {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationMissingField,
			"lon query parameter is required",
			nil,
		))
		return
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationInvalidLon,
			"lon must be a valid number",
			nil,
		))
		return
	}

	req := forecasts.Request{
		Lat:          lat,
		Lon:          lon,
		LocationName: q.Get("location"),
		Hotspot:      q.Get("hotspot"),
	}

	if speciesStr := q.Get("species"); speciesStr != "" {
		sp := types.Species(speciesStr)
		req.Species = &sp
	}

	if daysStr := q.Get("days"); daysStr != "" {
		days, err := strconv.Atoi(daysStr)
		if err != nil {
			core.Error(w, r, types.NewAppError(
				types.ErrCodeValidationInvalidDays,
				"days must be a valid integer",
				nil,
			))
			return
		}
		req.Days = days
	}

	if dateStr := q.Get("date"); dateStr != "" {
		parsed, err := time.Parse(dateLayout, dateStr)
		if err != nil {
			core.Error(w, r, types.NewAppError(
				types.ErrCodeValidationMissingField,
				"date must be formatted as YYYY-MM-DD",
				nil,
			))
			return
		}
		req.Date = parsed.UTC()
	}

	h.respond(w, r, req)
}

// forecastRequestBody is the POST /v1/forecast body. Params is decoded into
// the species-specific variant after the species is known.
type forecastRequestBody struct {
	Lat         float64        `json:"lat"`
	Lon         float64        `json:"lon"`
	Location    string         `json:"location"`
	Hotspot     string         `json:"hotspot,omitempty"`
	Species     *types.Species `json:"species,omitempty"`
	Days        int            `json:"days,omitempty"`
	Date        string         `json:"date,omitempty"`
	FieldReport string         `json:"field_report,omitempty"`
	RecentCatch *float64       `json:"recent_catch,omitempty"`

	Params json.RawMessage `json:"params,omitempty"`
}

// HandlePostForecast handles POST /v1/forecast. The body form accepts the
// inputs the query form cannot express: free-text field reports, recent
// catch signals, and per-species parameter overrides.
func (h *ForecastHandler) HandlePostForecast(w http.ResponseWriter, r *http.Request) {
	var body forecastRequestBody
	if err := core.DecodeJSON(w, r, &body); err != nil {
		core.Error(w, r, err)
		return
	}

	req := forecasts.Request{
		Lat:          body.Lat,
		Lon:          body.Lon,
		LocationName: body.Location,
		Hotspot:      body.Hotspot,
		Species:      body.Species,
		Days:         body.Days,
		FieldReport:  body.FieldReport,
		RecentCatch:  body.RecentCatch,
	}

	if body.Date != "" {
		parsed, err := time.Parse(dateLayout, body.Date)
		if err != nil {
			core.Error(w, r, types.NewAppError(
				types.ErrCodeValidationMissingField,
				"date must be formatted as YYYY-MM-DD",
				nil,
			))
			return
		}
		req.Date = parsed.UTC()
	}

	if len(body.Params) > 0 {
		params, err := decodeSpeciesParams(body.Species, body.Params)
		if err != nil {
			core.Error(w, r, err)
			return
		}
		req.Params = params
	}

	h.respond(w, r, req)
}

// HandleListSpecies handles GET /v1/species.
func (h *ForecastHandler) HandleListSpecies(w http.ResponseWriter, r *http.Request) {
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: types.AllSpecies})
}

// respond executes the service call and writes the envelope shared by both
// forecast routes.
func (h *ForecastHandler) respond(w http.ResponseWriter, r *http.Request, req forecasts.Request) {
	result, err := h.service.GetForecast(r.Context(), req)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "private, max-age=300")
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: result})
}

// decodeSpeciesParams decodes the raw params object into the variant matching
// the requested species. Params without a species are rejected since the
// variant cannot be determined.
func decodeSpeciesParams(species *types.Species, raw json.RawMessage) (types.SpeciesParams, error) {
	if species == nil {
		return nil, types.NewAppError(
			types.ErrCodeValidationInvalidSpecies,
			"params require a species to be set",
			nil,
		)
	}

	// Models assert the value variant, so decode into the concrete struct
	// and hand back a copy.
	switch *species {
	case types.SpeciesSeabass:
		var p types.SeabassParams
		return p, decodeStrict(raw, &p)
	case types.SpeciesRockfish:
		var p types.RockfishParams
		return p, decodeStrict(raw, &p)
	case types.SpeciesTautog:
		var p types.TautogParams
		return p, decodeStrict(raw, &p)
	case types.SpeciesOctopus:
		var p types.OctopusParams
		return p, decodeStrict(raw, &p)
	case types.SpeciesCrab:
		var p types.CrabParams
		return p, decodeStrict(raw, &p)
	case types.SpeciesSquid:
		var p types.SquidParams
		return p, decodeStrict(raw, &p)
	default:
		return nil, types.NewAppError(types.ErrCodeValidationInvalidSpecies, "unknown species", nil)
	}
}

func decodeStrict(raw json.RawMessage, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return types.NewAppError(
			types.ErrCodeValidationInvalidSpecies,
			"params do not match the requested species",
			err,
		)
	}
	return nil
}
