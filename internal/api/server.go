// Package api serves the HTTP surface of the retargeting server: the
// ingestion endpoints the perception service posts to, read-back of the
// filtered state, and the live tuning document.
package api

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/mocap.render/internal/config"
	"github.com/banshee-data/mocap.render/internal/httputil"
	"github.com/banshee-data/mocap.render/internal/mocap/ingest"
	lm "github.com/banshee-data/mocap.render/internal/mocap/landmark"
	"github.com/banshee-data/mocap.render/internal/mocap/pipeline"
	"github.com/banshee-data/mocap.render/internal/mocap/rig"
	"github.com/banshee-data/mocap.render/internal/mocap/skeleton"
	"github.com/banshee-data/mocap.render/internal/version"
)

// DefaultListen is the address the perception service posts to.
const DefaultListen = ":8088"

// PairVersion is reported by /pair so clients can check compatibility.
const PairVersion = 1

// Payloads above this size are rejected before decoding.
const maxBodyBytes = 4 << 20

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	driver  *pipeline.Driver
	handler ingest.Handler
}

// NewServer returns a server reading state from driver. Payloads posted to
// the set endpoints go through handler; a nil handler dispatches straight
// into the driver.
func NewServer(driver *pipeline.Driver, handler ingest.Handler) *Server {
	if handler == nil {
		handler = ingest.SinkHandler(driver)
	}
	return &Server{
		driver:  driver,
		handler: handler,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.index)
	mux.HandleFunc("/pair", s.pair)
	mux.HandleFunc("/set_pose", s.setPayload(ingest.EventTypePose))
	mux.HandleFunc("/set_hands", s.setPayload(ingest.EventTypeHands))
	mux.HandleFunc("/set_face", s.setPayload(ingest.EventTypeFace))
	mux.HandleFunc("/get_pose", s.getPose)
	mux.HandleFunc("/get_hands", s.getHands)
	mux.HandleFunc("/get_face", s.getFace)
	mux.HandleFunc("/api/params", s.params)
	mux.HandleFunc("/api/joints", s.joints)
	mux.HandleFunc("/api/tracks", s.tracks)
	mux.HandleFunc("/api/tracks/reset", s.resetTracks)
	mux.HandleFunc("/api/version", s.version)
	return mux
}

const indexHTML = `<!DOCTYPE html>
<html>
<head><title>mocap.render</title></head>
<body>
<h1>Rendering server is running</h1>
<ul>
<li><a href="/get_pose">/get_pose</a></li>
<li><a href="/get_hands">/get_hands</a></li>
<li><a href="/get_face">/get_face</a></li>
<li><a href="/api/joints">/api/joints</a></li>
<li><a href="/api/params">/api/params</a></li>
</ul>
</body>
</html>
`

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		httputil.NotFound(w, "not found")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, indexHTML)
}

func (s *Server) pair(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"is_mocap": true,
		"version":  PairVersion,
	})
}

// setPayload accepts one landmarker envelope of the given kind. Malformed
// or mismatched bodies are client errors; a payload that decodes but
// cannot be applied is reported as a server error.
func (s *Server) setPayload(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			httputil.MethodNotAllowed(w)
			return
		}
		body, err := httputil.ReadBody(w, r, maxBodyBytes)
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		env, err := ingest.Decode(body)
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		if got := env.EventType(); got != kind {
			httputil.BadRequest(w, fmt.Sprintf("expected %s payload, got %s", kind, got))
			return
		}
		if _, err := s.handler.HandlePayload(body); err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

type poseResponse struct {
	Tracked bool          `json:"tracked"`
	Pose    *lm.PoseFrame `json:"pose,omitempty"`
}

func (s *Server) getPose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	var resp poseResponse
	if pose, ok := s.driver.Registry().Pose(); ok {
		resp.Tracked = true
		resp.Pose = &pose
	}
	httputil.WriteJSONOK(w, resp)
}

type handsResponse struct {
	Detections []ingest.HandDetection `json:"detections"`
	Left       *lm.HandFrame          `json:"left,omitempty"`
	Right      *lm.HandFrame          `json:"right,omitempty"`
}

func (s *Server) getHands(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	resp := handsResponse{Detections: s.driver.Hands()}
	reg := s.driver.Registry()
	if f, ok := reg.Hand(skeleton.Left); ok {
		resp.Left = &f
	}
	if f, ok := reg.Hand(skeleton.Right); ok {
		resp.Right = &f
	}
	httputil.WriteJSONOK(w, resp)
}

type faceResponse struct {
	Tracked     bool            `json:"tracked"`
	LookX       float64         `json:"look_x"`
	LookY       float64         `json:"look_y"`
	Jaw         float64         `json:"jaw_open"`
	Mouth       rig.MouthShape  `json:"mouth"`
	Blendshapes rig.Blendshapes `json:"blendshapes"`
}

func (s *Server) getFace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	resp := faceResponse{Blendshapes: s.driver.Face()}
	if v, ok := s.driver.Registry().Face(); ok {
		resp.Tracked = true
		resp.LookX, resp.LookY, resp.Jaw = v.X, v.Y, v.Z
		resp.Mouth = rig.MouthFor(v.Z)
	}
	httputil.WriteJSONOK(w, resp)
}

// params serves the live tuning. POST merges a partial document; fields it
// omits keep their current values.
func (s *Server) params(w http.ResponseWriter, r *http.Request) {
	store := s.driver.Store()
	switch r.Method {
	case http.MethodGet:
		httputil.WriteJSONOK(w, store.Params().Resolved())
	case http.MethodPost:
		body, err := httputil.ReadBody(w, r, maxBodyBytes)
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		update, err := config.ParseTuningConfig(body)
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		p, err := store.Apply(update)
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		log.Printf("[API] tuning updated: routing=%s pose_noise=%.2f", p.HandRouting, p.MeasurementNoisePose)
		httputil.WriteJSONOK(w, p.Resolved())
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) joints(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.driver.Latest())
}

func (s *Server) tracks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.driver.Registry().States())
}

// resetTracks drops every filter so the next observations seed fresh ones.
func (s *Server) resetTracks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	s.driver.Registry().Reset()
	httputil.WriteJSONOK(w, map[string]string{"status": "ok"})
}

func (s *Server) version(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, version.Get())
}
