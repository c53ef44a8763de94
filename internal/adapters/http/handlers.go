package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/paulmach/orb/geojson"

	"github.com/jobrunner/georef/internal/application"
	"github.com/jobrunner/georef/internal/domain"
	"github.com/jobrunner/georef/internal/domain/srs"
	"github.com/jobrunner/georef/internal/ports/input"
)

// TransformBody is the request body of POST /api/v1/transform.
type TransformBody struct {
	Source          string      `json:"source"`
	Target          string      `json:"target"`
	Points          [][]float64 `json:"points"`
	CheckWithInvert *bool       `json:"check_with_invert,omitempty"`
}

// TransformResponse is the response of POST /api/v1/transform. Points
// that failed to transform are null.
type TransformResponse struct {
	Source string      `json:"source"`
	Target string      `json:"target"`
	Points [][]float64 `json:"points"`
	OK     []bool      `json:"ok"`
	Failed int         `json:"failed"`
}

// ValidateResponse is the response of POST /api/v1/srs/validate.
type ValidateResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

// handleGetDefinition returns the definition resolved for an EPSG code.
func (s *Server) handleGetDefinition(w http.ResponseWriter, r *http.Request) {
	code, err := parseCode(mux.Vars(r)["code"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	def, err := s.services.Resolver.Resolve(r.Context(), code)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupported) || errors.Is(err, domain.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, fmt.Sprintf("EPSG:%d is not known", code))
			return
		}
		s.handleError(w, r, "resolve", err)
		return
	}

	format := r.URL.Query().Get("format")
	var text string
	switch format {
	case "", "wkt":
		format = "wkt"
		text, err = def.ExportToWKT()
	case "pretty":
		text, err = def.ExportToPrettyWKT()
	case "proj":
		text, err = def.ExportToProjString()
	default:
		s.writeError(w, http.StatusBadRequest, "format must be one of wkt, pretty, proj")
		return
	}
	if err != nil {
		s.handleError(w, r, "export", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"code":       code,
		"name":       definitionName(def),
		"kind":       definitionKind(def),
		"format":     format,
		"definition": text,
	})
}

// handleValidate parses the WKT body and runs the structural validator.
// An invalid definition is a successful request with valid=false.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	def, err := srs.NewFromWKT(string(body))
	if err == nil {
		err = def.Validate()
	}
	if err != nil {
		s.writeJSON(w, http.StatusOK, ValidateResponse{Error: err.Error(), Kind: errorKind(err)})
		return
	}
	s.writeJSON(w, http.StatusOK, ValidateResponse{Valid: true})
}

// handleProjString converts a WKT body to an engine parameter string.
func (s *Server) handleProjString(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	def, err := srs.NewFromWKT(string(body))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	proj, err := def.ExportToProjString()
	if err != nil {
		s.handleError(w, r, "export", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"proj": proj})
}

// handleTransform transforms a batch of points.
func (s *Server) handleTransform(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	var req TransformBody
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Source == "" || req.Target == "" {
		s.writeError(w, http.StatusBadRequest, "source and target are required")
		return
	}
	if len(req.Points) == 0 {
		s.writeError(w, http.StatusBadRequest, "points must not be empty")
		return
	}
	if s.config.MaxPoints > 0 && len(req.Points) > s.config.MaxPoints {
		s.writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("at most %d points per request", s.config.MaxPoints))
		return
	}

	batch, err := domain.NewBatch(req.Points)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.services.Transform.TransformPoints(r.Context(), input.TransformRequest{
		Source:          req.Source,
		Target:          req.Target,
		Batch:           batch,
		CheckWithInvert: req.CheckWithInvert,
	})
	if err != nil {
		s.handleError(w, r, "transform", err)
		return
	}

	s.writeJSON(w, http.StatusOK, formatTransformResult(req, result))
}

func formatTransformResult(req TransformBody, result *input.TransformResult) TransformResponse {
	resp := TransformResponse{
		Source: req.Source,
		Target: req.Target,
		Points: result.Batch.Points(),
		OK:     result.OK,
	}
	for i, p := range resp.Points {
		if i < len(resp.OK) && resp.OK[i] && finite(p) {
			continue
		}
		resp.Points[i] = nil
		if i < len(resp.OK) {
			resp.OK[i] = false
		}
		resp.Failed++
	}
	return resp
}

func finite(p []float64) bool {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// handleTransformGeoJSON transforms a GeoJSON geometry, feature or
// feature collection. Properties are kept unchanged.
func (s *Server) handleTransformGeoJSON(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	target := r.URL.Query().Get("target")
	if source == "" || target == "" {
		s.writeError(w, http.StatusBadRequest, "source and target query parameters are required")
		return
	}

	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &head); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ctx := r.Context()
	var out interface{}
	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(body)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		for _, f := range fc.Features {
			if f.Geometry, err = s.services.Transform.TransformGeometry(ctx, source, target, f.Geometry); err != nil {
				s.handleError(w, r, "transform geojson", err)
				return
			}
		}
		out = fc
	case "Feature":
		f, err := geojson.UnmarshalFeature(body)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if f.Geometry, err = s.services.Transform.TransformGeometry(ctx, source, target, f.Geometry); err != nil {
			s.handleError(w, r, "transform geojson", err)
			return
		}
		out = f
	default:
		g, err := geojson.UnmarshalGeometry(body)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		transformed, err := s.services.Transform.TransformGeometry(ctx, source, target, g.Geometry())
		if err != nil {
			s.handleError(w, r, "transform geojson", err)
			return
		}
		out = geojson.NewGeometry(transformed)
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(out)
}

// handleHealth returns detailed health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	details := s.services.Health.GetHealthDetails(r.Context())

	status := http.StatusOK
	if !details.Healthy {
		status = http.StatusServiceUnavailable
	}

	s.writeJSON(w, status, map[string]interface{}{
		"status":         boolToStatus(details.Healthy),
		"ready":          details.Ready,
		"catalog_loaded": details.CatalogLoaded,
		"catalog_path":   details.CatalogPath,
		"engine":         details.Engine,
		"components":     details.Components,
	})
}

// handleLiveness handles Kubernetes liveness probe.
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	if s.services.Health.IsHealthy(r.Context()) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	} else {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
	}
}

// handleReadiness handles Kubernetes readiness probe.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if s.services.Health.IsReady(r.Context()) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	} else {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
	}
}

// handleOpenAPI returns the OpenAPI specification.
func (s *Server) handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	spec, err := openAPIJSON()
	if err != nil {
		s.logger.Error("failed to get OpenAPI spec", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to load OpenAPI specification")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(spec)
}

// handleSync handles the sync trigger endpoint.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if s.services.Sync == nil {
		s.writeError(w, http.StatusNotFound, "Sync service not available")
		return
	}

	result, err := s.services.Sync.TriggerSync(r.Context())
	if err != nil {
		if errors.Is(err, application.ErrRateLimited) {
			w.Header().Set("Retry-After", strconv.Itoa(int(application.SyncCooldown.Seconds())))
			s.writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Try again later.")
			return
		}
		s.logger.Error("sync failed", "error", err, "request_id", RequestID(r.Context()))
		s.writeError(w, http.StatusInternalServerError, "Sync failed")
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

// readBody reads a size limited request body. It writes the error
// response itself and reports false on failure.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		s.writeError(w, http.StatusBadRequest, "failed to read request body")
		return nil, false
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		s.writeError(w, http.StatusBadRequest, "request body is empty")
		return nil, false
	}
	return body, true
}

// handleError maps domain errors to HTTP status codes.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", "error", err, "request_id", RequestID(r.Context()))
	}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) && validationErr.Message != "" {
		s.writeError(w, status, validationErr.Message)
		return
	}
	if status == http.StatusInternalServerError {
		s.writeError(w, status, op+" failed")
		return
	}
	s.writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnsupported):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrCorrupt),
		errors.Is(err, domain.ErrNotEnoughData):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrEngineUnavailable),
		errors.Is(err, domain.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorKind names the error category reported by the validate endpoint.
func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrCorrupt):
		return "corrupt"
	case errors.Is(err, domain.ErrUnsupported):
		return "unsupported"
	case errors.Is(err, domain.ErrNotEnoughData):
		return "not_enough_data"
	default:
		return "invalid"
	}
}

// parseCode accepts "4326" and "EPSG:4326".
func parseCode(s string) (int, error) {
	if len(s) > 5 && strings.EqualFold(s[:5], "EPSG:") {
		s = s[5:]
	}
	code, err := strconv.Atoi(s)
	if err != nil || code <= 0 {
		return 0, fmt.Errorf("invalid EPSG code %q", s)
	}
	return code, nil
}

func definitionName(def *srs.Definition) string {
	if root := def.Root(); root != nil && root.ChildCount() > 0 {
		return root.Child(0).Value()
	}
	return ""
}

func definitionKind(def *srs.Definition) string {
	switch {
	case def.IsCompound():
		return "compound"
	case def.IsProjected():
		return "projected"
	case def.IsGeographic():
		return "geographic"
	case def.IsGeocentric():
		return "geocentric"
	case def.IsVertical():
		return "vertical"
	case def.IsLocal():
		return "local"
	}
	return "unknown"
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

func boolToStatus(b bool) string {
	if b {
		return "ok"
	}
	return "unhealthy"
}
