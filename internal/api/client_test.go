package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/banshee-data/mocap.render/internal/config"
	"github.com/banshee-data/mocap.render/internal/httputil"
	"github.com/banshee-data/mocap.render/internal/mocap/ingest"
	"github.com/banshee-data/mocap.render/internal/testutil"
)

func TestClient_AgainstServer(t *testing.T) {
	t.Parallel()
	_, d, h := setupTestServer(t, nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	c := NewClient(srv.URL+"/", nil)
	ctx := context.Background()

	v, err := c.Pair(ctx)
	if err != nil || v != PairVersion {
		t.Fatalf("Pair() = %d, %v", v, err)
	}

	kind, err := c.HandlePayload(testutil.PosePayload(testutil.StandingPose()))
	if err != nil || kind != ingest.EventTypePose {
		t.Fatalf("HandlePayload() = %q, %v", kind, err)
	}
	if _, ok := d.Registry().Pose(); !ok {
		t.Error("pose not tracked after remote push")
	}

	noise := 42.0
	cfg, err := c.UpdateParams(ctx, &config.TuningConfig{MeasurementNoiseFace: &noise})
	if err != nil {
		t.Fatalf("UpdateParams() error = %v", err)
	}
	if cfg.GetMeasurementNoiseFace() != 42 {
		t.Errorf("updated face noise = %v", cfg.GetMeasurementNoiseFace())
	}
	cfg, err = c.Params(ctx)
	if err != nil || cfg.GetMeasurementNoiseFace() != 42 {
		t.Errorf("Params() = %v, %v", cfg, err)
	}

	bad := -1.0
	if _, err := c.UpdateParams(ctx, &config.TuningConfig{PositionNoise: &bad}); err == nil || !strings.Contains(err.Error(), "400") {
		t.Errorf("invalid update error = %v", err)
	}
}

func TestClient_HandlePayloadRoutesByKind(t *testing.T) {
	t.Parallel()
	mock := httputil.NewMockHTTPClient()
	c := NewClient("http://mocap.local:8088", mock)

	payloads := [][]byte{
		testutil.PosePayload(testutil.StandingPose()),
		testutil.HandsPayload([]string{"Left"}, testutil.OpenHand(false)),
		testutil.FacePayload(map[string]float64{"jawOpen": 0.1}),
	}
	for _, p := range payloads {
		if _, err := c.HandlePayload(p); err != nil {
			t.Fatalf("HandlePayload() error = %v", err)
		}
	}
	for i, want := range []string{"/set_pose", "/set_hands", "/set_face"} {
		req, body := mock.Request(i)
		if req.Method != http.MethodPost || req.URL.Path != want {
			t.Errorf("request %d = %s %s, want POST %s", i, req.Method, req.URL.Path, want)
		}
		if string(body) != string(payloads[i]) {
			t.Errorf("request %d body differs from payload", i)
		}
	}

	if _, err := c.HandlePayload([]byte(`{}`)); !errors.Is(err, ingest.ErrUnknownPayload) {
		t.Errorf("unknown payload error = %v", err)
	}
	if mock.RequestCount() != 3 {
		t.Errorf("unknown payload was sent: %d requests", mock.RequestCount())
	}
}

func TestClient_Errors(t *testing.T) {
	t.Parallel()

	mock := httputil.NewMockHTTPClient().
		AddResponse(http.StatusOK, `{"is_mocap":false,"version":1}`).
		AddErrorResponse(errors.New("connection refused")).
		AddResponse(http.StatusInternalServerError, `{"error":"pose: no key points"}`)
	c := NewClient("http://mocap.local:8088", mock)

	if _, err := c.Pair(context.Background()); !errors.Is(err, ErrNotMocap) {
		t.Errorf("Pair() error = %v, want ErrNotMocap", err)
	}
	if _, err := c.Pair(context.Background()); err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("Pair() transport error = %v", err)
	}
	_, err := c.HandlePayload(testutil.PosePayload(testutil.StandingPose()))
	if err == nil || !strings.Contains(err.Error(), "pose: no key points") {
		t.Errorf("HandlePayload() error = %v", err)
	}
}
