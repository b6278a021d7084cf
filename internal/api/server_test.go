package api

import (
	"bytes"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/banshee-data/mocap.render/internal/config"
	"github.com/banshee-data/mocap.render/internal/mocap/ingest"
	lm "github.com/banshee-data/mocap.render/internal/mocap/landmark"
	"github.com/banshee-data/mocap.render/internal/mocap/pipeline"
	"github.com/banshee-data/mocap.render/internal/mocap/skeleton"
	"github.com/banshee-data/mocap.render/internal/testutil"
	"github.com/banshee-data/mocap.render/internal/timeutil"
	"github.com/banshee-data/mocap.render/internal/version"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func setupTestServer(t *testing.T, handler ingest.Handler) (*Server, *pipeline.Driver, http.Handler) {
	t.Helper()
	d, err := pipeline.NewDriver(skeleton.DefaultHumanoid(), nil, config.NewStore(nil), timeutil.NewMockClock(epoch))
	if err != nil {
		t.Fatalf("NewDriver() error = %v", err)
	}
	s := NewServer(d, handler)
	return s, d, s.ServeMux()
}

func poseFrame(t *testing.T) lm.PoseFrame {
	t.Helper()
	pose := testutil.StandingPose()
	return lm.PoseFrame{Image: pose, World: pose}
}

func TestPair(t *testing.T) {
	t.Parallel()
	_, _, h := setupTestServer(t, nil)

	w := testutil.Serve(h, testutil.NewTestRequest(http.MethodGet, "/pair", nil))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)

	var got map[string]interface{}
	testutil.DecodeJSON(t, w, &got)
	if got["is_mocap"] != true || got["version"] != float64(PairVersion) {
		t.Errorf("/pair = %v", got)
	}

	w = testutil.Serve(h, testutil.NewTestRequest(http.MethodPost, "/pair", nil))
	testutil.AssertStatusCode(t, w.Code, http.StatusMethodNotAllowed)
}

func TestIndex(t *testing.T) {
	t.Parallel()
	_, _, h := setupTestServer(t, nil)

	w := testutil.Serve(h, testutil.NewTestRequest(http.MethodGet, "/", nil))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	if !strings.Contains(w.Body.String(), `href="/get_pose"`) {
		t.Errorf("index page missing /get_pose link: %s", w.Body.String())
	}

	w = testutil.Serve(h, testutil.NewTestRequest(http.MethodGet, "/nope", nil))
	testutil.AssertStatusCode(t, w.Code, http.StatusNotFound)
}

// ---- Ingestion ----

func TestSetPose_FeedsDriver(t *testing.T) {
	t.Parallel()
	_, d, h := setupTestServer(t, nil)

	body := testutil.PosePayload(testutil.StandingPose())
	w := testutil.Serve(h, testutil.NewTestRequest(http.MethodPost, "/set_pose", body))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	if w.Body.Len() != 0 {
		t.Errorf("set_pose body = %q, want empty", w.Body.String())
	}
	if _, ok := d.Registry().Pose(); !ok {
		t.Fatal("pose track not initialised after set_pose")
	}

	w = testutil.Serve(h, testutil.NewTestRequest(http.MethodGet, "/get_pose", nil))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	var got struct {
		Tracked bool `json:"tracked"`
		Pose    struct {
			Landmarks []interface{} `json:"landmarks"`
			World     []interface{} `json:"world_landmarks"`
		} `json:"pose"`
	}
	testutil.DecodeJSON(t, w, &got)
	if !got.Tracked || len(got.Pose.Landmarks) != 33 || len(got.Pose.World) != 33 {
		t.Errorf("get_pose tracked=%v landmarks=%d world=%d", got.Tracked, len(got.Pose.Landmarks), len(got.Pose.World))
	}
}

func TestGetPose_Untracked(t *testing.T) {
	t.Parallel()
	_, _, h := setupTestServer(t, nil)

	w := testutil.Serve(h, testutil.NewTestRequest(http.MethodGet, "/get_pose", nil))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	if got := strings.TrimSpace(w.Body.String()); got != `{"tracked":false}` {
		t.Errorf("get_pose = %s", got)
	}
}

func TestSetPayload_Rejects(t *testing.T) {
	t.Parallel()
	_, _, h := setupTestServer(t, nil)

	hands := testutil.HandsPayload([]string{"Left"}, testutil.OpenHand(false))
	tests := []struct {
		name   string
		method string
		path   string
		body   []byte
		want   int
	}{
		{"wrong method", http.MethodGet, "/set_pose", nil, http.StatusMethodNotAllowed},
		{"malformed json", http.MethodPost, "/set_pose", []byte(`{"poseLandmarkerResult":`), http.StatusBadRequest},
		{"unknown payload", http.MethodPost, "/set_face", []byte(`{"other":{}}`), http.StatusBadRequest},
		{"kind mismatch", http.MethodPost, "/set_pose", hands, http.StatusBadRequest},
		{"empty pose", http.MethodPost, "/set_pose", []byte(`{"poseLandmarkerResult":{"landmarks":[],"worldLandmarks":[]}}`), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testutil.Serve(h, testutil.NewTestRequest(tt.method, tt.path, tt.body))
			testutil.AssertStatusCode(t, w.Code, tt.want)
			if !strings.Contains(w.Body.String(), `"error"`) {
				t.Errorf("response %q has no error field", w.Body.String())
			}
		})
	}
}

func TestSetPayload_UsesHandler(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	handler := ingest.HandlerFunc(func(data []byte) (string, error) {
		calls.Add(1)
		return ingest.EventTypeFace, errors.New("store full")
	})
	_, d, h := setupTestServer(t, handler)

	body := testutil.FacePayload(map[string]float64{"jawOpen": 0.5})
	w := testutil.Serve(h, testutil.NewTestRequest(http.MethodPost, "/set_face", body))
	testutil.AssertStatusCode(t, w.Code, http.StatusInternalServerError)
	if calls.Load() != 1 {
		t.Errorf("handler called %d times, want 1", calls.Load())
	}
	if _, ok := d.Registry().Face(); ok {
		t.Error("face reached the driver without going through the handler")
	}
}

func TestSetAndGetHands(t *testing.T) {
	t.Parallel()
	_, _, h := setupTestServer(t, nil)

	body := testutil.HandsPayload([]string{"Left", "Right"}, testutil.OpenHand(false), testutil.OpenHand(true))
	w := testutil.Serve(h, testutil.NewTestRequest(http.MethodPost, "/set_hands", body))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)

	w = testutil.Serve(h, testutil.NewTestRequest(http.MethodGet, "/get_hands", nil))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	var got struct {
		Detections []struct {
			Index int    `json:"index"`
			Label string `json:"label"`
		} `json:"detections"`
		Left  *struct{} `json:"left"`
		Right *struct{} `json:"right"`
	}
	testutil.DecodeJSON(t, w, &got)
	if len(got.Detections) != 2 || got.Detections[1].Label != "Right" {
		t.Errorf("detections = %+v", got.Detections)
	}
	if got.Left == nil || got.Right == nil {
		t.Errorf("both hand tracks should be reported, left=%v right=%v", got.Left != nil, got.Right != nil)
	}
}

func TestSetAndGetFace(t *testing.T) {
	t.Parallel()
	_, _, h := setupTestServer(t, nil)

	body := testutil.FacePayload(map[string]float64{"jawOpen": 0.6, "eyeLookInLeft": 0.2})
	w := testutil.Serve(h, testutil.NewTestRequest(http.MethodPost, "/set_face", body))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)

	w = testutil.Serve(h, testutil.NewTestRequest(http.MethodGet, "/get_face", nil))
	var got faceResponse
	testutil.DecodeJSON(t, w, &got)
	if !got.Tracked {
		t.Fatal("face not tracked")
	}
	// A fresh filter returns its first measurement unchanged.
	if got.Jaw != 0.6 {
		t.Errorf("jaw_open = %v, want 0.6", got.Jaw)
	}
	if got.Blendshapes["jawOpen"] != 0.6 {
		t.Errorf("blendshapes = %v", got.Blendshapes)
	}
}

// ---- Tuning ----

func TestParams_GetAndMerge(t *testing.T) {
	t.Parallel()
	_, d, h := setupTestServer(t, nil)

	w := testutil.Serve(h, testutil.NewTestRequest(http.MethodGet, "/api/params", nil))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	var cfg config.TuningConfig
	testutil.DecodeJSON(t, w, &cfg)
	if cfg.GetMeasurementNoiseRightHand() != 10 || cfg.Rotate == nil || cfg.Rotate.Neck == nil {
		t.Errorf("GET /api/params did not return the resolved document: %+v", cfg)
	}

	body := []byte(`{"update_pose_data": false, "rotate": {"rotate_neck": false}}`)
	w = testutil.Serve(h, testutil.NewTestRequest(http.MethodPost, "/api/params", body))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)

	p := d.Store().Params()
	if p.UpdatePoseData || p.Toggles.RotateNeck {
		t.Errorf("update not applied: %+v", p)
	}
	if p.MeasurementNoiseRightHand != 10 || !p.Toggles.RotateRoot {
		t.Errorf("omitted fields changed: %+v", p)
	}

	// Pose updates are now gated: a valid payload is accepted and ignored.
	w = testutil.Serve(h, testutil.NewTestRequest(http.MethodPost, "/set_pose", testutil.PosePayload(testutil.StandingPose())))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	if _, ok := d.Registry().Pose(); ok {
		t.Error("pose tracked while update_pose_data is off")
	}
}

func TestParams_Invalid(t *testing.T) {
	t.Parallel()
	_, d, h := setupTestServer(t, nil)

	for _, body := range []string{`{"velocity_noise": -1}`, `{"hand_routing": "nearest"}`, `not json`} {
		w := testutil.Serve(h, testutil.NewTestRequest(http.MethodPost, "/api/params", []byte(body)))
		testutil.AssertStatusCode(t, w.Code, http.StatusBadRequest)
	}
	if got := d.Store().Params().VelocityNoise; got != 3 {
		t.Errorf("rejected update changed VelocityNoise to %v", got)
	}

	w := testutil.Serve(h, testutil.NewTestRequest(http.MethodDelete, "/api/params", nil))
	testutil.AssertStatusCode(t, w.Code, http.StatusMethodNotAllowed)
}

// ---- State ----

func TestJointsAndTracks(t *testing.T) {
	t.Parallel()
	_, d, h := setupTestServer(t, nil)

	if err := d.SetPose(poseFrame(t)); err != nil {
		t.Fatalf("SetPose() error = %v", err)
	}
	rep := d.Tick()

	w := testutil.Serve(h, testutil.NewTestRequest(http.MethodGet, "/api/joints", nil))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	var got pipeline.FrameReport
	testutil.DecodeJSON(t, w, &got)
	if got.Seq != rep.Seq || got.Body == nil {
		t.Errorf("/api/joints seq=%d body=%v, want seq %d with body", got.Seq, got.Body != nil, rep.Seq)
	}

	w = testutil.Serve(h, testutil.NewTestRequest(http.MethodGet, "/api/tracks", nil))
	var states []pipeline.TrackState
	testutil.DecodeJSON(t, w, &states)
	initialised := 0
	for _, s := range states {
		if s.Initialized {
			initialised++
		}
	}
	if initialised != 1 {
		t.Errorf("%d initialised tracks, want 1: %+v", initialised, states)
	}

	w = testutil.Serve(h, testutil.NewTestRequest(http.MethodGet, "/api/tracks/reset", nil))
	testutil.AssertStatusCode(t, w.Code, http.StatusMethodNotAllowed)
	w = testutil.Serve(h, testutil.NewTestRequest(http.MethodPost, "/api/tracks/reset", nil))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	if _, ok := d.Registry().Pose(); ok {
		t.Error("pose still tracked after reset")
	}
}

func TestVersion(t *testing.T) {
	t.Parallel()
	_, _, h := setupTestServer(t, nil)

	w := testutil.Serve(h, testutil.NewTestRequest(http.MethodGet, "/api/version", nil))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	var got version.Info
	testutil.DecodeJSON(t, w, &got)
	if got.Version != version.Version {
		t.Errorf("version = %q, want %q", got.Version, version.Version)
	}
}

// ---- Middleware ----

func TestStatusCodeColor(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, colorBoldGreen},
		{304, colorYellow},
		{404, colorBoldRed},
		{500, colorBoldRed},
	}
	for _, tt := range tests {
		if got := statusCodeColor(tt.code); !strings.HasPrefix(got, tt.want) {
			t.Errorf("statusCodeColor(%d) = %q", tt.code, got)
		}
	}
	if got := statusCodeColor(101); got != "101" {
		t.Errorf("statusCodeColor(101) = %q", got)
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	orig := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(orig)

	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	w := testutil.Serve(h, testutil.NewTestRequest(http.MethodGet, "/get_pose?x=1", nil))
	testutil.AssertStatusCode(t, w.Code, http.StatusTeapot)

	out := buf.String()
	if !strings.Contains(out, "418") || !strings.Contains(out, "/get_pose?x=1") {
		t.Errorf("log line = %q", out)
	}
}
