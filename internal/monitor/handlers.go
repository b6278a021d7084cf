package monitor

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/banshee-data/mocap.render/internal/httputil"
	lm "github.com/banshee-data/mocap.render/internal/mocap/landmark"
)

// AttachRoutes mounts the trace views on mux:
//
//	/debug/filter        line charts, one per axis
//	/debug/filter.png    static plot
//	/debug/filter.json   raw samples
//
// Each takes an optional ?landmark= pose landmark name, defaulting to the
// first traced landmark.
func (t *Trace) AttachRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/debug/filter", t.handleChart)
	mux.HandleFunc("/debug/filter.png", t.handlePNG)
	mux.HandleFunc("/debug/filter.json", t.handleJSON)
}

func (t *Trace) requested(w http.ResponseWriter, r *http.Request) (lm.PoseIndex, []Sample, bool) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return 0, nil, false
	}
	i := t.landmarks[0]
	if name := r.URL.Query().Get("landmark"); name != "" {
		var ok bool
		if i, ok = lm.ParsePoseIndex(name); !ok {
			httputil.BadRequest(w, fmt.Sprintf("unknown landmark %q", name))
			return 0, nil, false
		}
	}
	samples, ok := t.Samples(i)
	if !ok {
		httputil.NotFound(w, fmt.Sprintf("landmark %s is not traced", i))
		return 0, nil, false
	}
	return i, samples, true
}

func (t *Trace) handleChart(w http.ResponseWriter, r *http.Request) {
	i, samples, ok := t.requested(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := RenderChart(&buf, "Filter trace: "+i.String(), samples); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (t *Trace) handlePNG(w http.ResponseWriter, r *http.Request) {
	i, samples, ok := t.requested(w, r)
	if !ok {
		return
	}
	if len(samples) == 0 {
		httputil.NotFound(w, "no samples yet")
		return
	}
	var buf bytes.Buffer
	if err := WritePNG(&buf, "Filter trace: "+i.String(), samples); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render plot: %v", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

func (t *Trace) handleJSON(w http.ResponseWriter, r *http.Request) {
	i, samples, ok := t.requested(w, r)
	if !ok {
		return
	}
	if samples == nil {
		samples = []Sample{}
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"landmark": i.String(),
		"samples":  samples,
	})
}
