package http

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"github.com/jobrunner/georef/internal/application"
	"github.com/jobrunner/georef/internal/config"
	"github.com/jobrunner/georef/internal/domain"
	"github.com/jobrunner/georef/internal/domain/srs"
	"github.com/jobrunner/georef/internal/ports/input"
)

// mockResolver serves definitions from a map.
type mockResolver struct {
	defs map[int]string
	err  error
}

func (m *mockResolver) Resolve(_ context.Context, code int) (*srs.Definition, error) {
	if m.err != nil {
		return nil, m.err
	}
	text, ok := m.defs[code]
	if !ok {
		return nil, fmt.Errorf("EPSG:%d: %w", code, domain.ErrUnsupportedCode)
	}
	return srs.NewFromWKT(text)
}

// mockTransformer shifts every point by (+1, +2) and fails points with
// x > 180.
type mockTransformer struct {
	calls    int
	lastReq  input.TransformRequest
	err      error
	geomErr  error
	geometry int
}

func (m *mockTransformer) TransformPoints(_ context.Context, req input.TransformRequest) (*input.TransformResult, error) {
	m.calls++
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	ok := make([]bool, req.Batch.Len())
	for i := range req.Batch.X {
		if req.Batch.X[i] > 180 {
			req.Batch.X[i], req.Batch.Y[i] = domain.HugeVal, domain.HugeVal
			continue
		}
		req.Batch.X[i]++
		req.Batch.Y[i] += 2
		ok[i] = true
	}
	return &input.TransformResult{Batch: req.Batch, OK: ok}, nil
}

func (m *mockTransformer) TransformGeometry(_ context.Context, _, _ string, g orb.Geometry) (orb.Geometry, error) {
	m.calls++
	m.geometry++
	if m.geomErr != nil {
		return nil, m.geomErr
	}
	return project.Geometry(orb.Clone(g), func(p orb.Point) orb.Point {
		return orb.Point{p[0] + 1, p[1] + 2}
	}), nil
}

// mockHealth implements input.HealthChecker.
type mockHealth struct {
	healthy bool
	ready   bool
}

func (m *mockHealth) IsHealthy(_ context.Context) bool { return m.healthy }

func (m *mockHealth) IsReady(_ context.Context) bool { return m.ready }

func (m *mockHealth) GetHealthDetails(_ context.Context) input.HealthDetails {
	return input.HealthDetails{
		Healthy:       m.healthy,
		Ready:         m.ready,
		CatalogLoaded: m.ready,
		CatalogPath:   "/data/epsg.db",
		Engine:        "wgs84",
		Components:    map[string]string{"catalog": "ok", "engine": "ok"},
	}
}

type mockSyncer struct {
	result application.SyncResult
	err    error
}

func (m *mockSyncer) TriggerSync(_ context.Context) (application.SyncResult, error) {
	return m.result, m.err
}

// mockMetrics counts requests seen by its middleware.
type mockMetrics struct {
	requests int
}

func (m *mockMetrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "georef_up 1\n")
	})
}

func (m *mockMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.requests++
		next.ServeHTTP(w, r)
	})
}

// testServices collects the mocks for a test server. Nil fields get
// defaults.
type testServices struct {
	resolver  *mockResolver
	transform *mockTransformer
	health    *mockHealth
	sync      *mockSyncer
	metrics   *mockMetrics
}

func newTestServer(t *testing.T, cfg config.ServerConfig, ts *testServices) *Server {
	t.Helper()

	if ts.resolver == nil {
		ts.resolver = &mockResolver{defs: map[int]string{4326: srs.WKTWGS84}}
	}
	if ts.transform == nil {
		ts.transform = &mockTransformer{}
	}
	if ts.health == nil {
		ts.health = &mockHealth{healthy: true, ready: true}
	}

	services := Services{
		Resolver:  ts.resolver,
		Transform: ts.transform,
		Health:    ts.health,
	}
	if ts.sync != nil {
		services.Sync = ts.sync
	}
	if ts.metrics != nil {
		services.Metrics = ts.metrics
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(cfg, services, "", logger)
}
