package httputil

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestStandardClient(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, r.Method+" "+r.URL.Path)
	}))
	defer srv.Close()

	var c HTTPClient = NewStandardClient(nil)
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/pair", nil)
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "GET /pair" {
		t.Errorf("body = %q", body)
	}
}

func TestMockHTTPClient_QueueAndRecord(t *testing.T) {
	t.Parallel()

	m := NewMockHTTPClient().
		AddResponse(http.StatusCreated, `{"ok":true}`).
		AddErrorResponse(errors.New("connection refused"))

	req, _ := http.NewRequest(http.MethodPost, "http://mocap.local/set_pose", strings.NewReader(`{"a":1}`))
	resp, err := m.Do(req)
	if err != nil {
		t.Fatalf("first Do() error = %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want 201", resp.StatusCode)
	}

	req2, _ := http.NewRequest(http.MethodGet, "http://mocap.local/pair", nil)
	if _, err := m.Do(req2); err == nil || err.Error() != "connection refused" {
		t.Errorf("second Do() error = %v", err)
	}

	req3, _ := http.NewRequest(http.MethodGet, "http://mocap.local/pair", nil)
	resp, err = m.Do(req3)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Errorf("exhausted queue should return 200, got %v, %v", resp, err)
	}

	if m.RequestCount() != 3 {
		t.Errorf("RequestCount() = %d, want 3", m.RequestCount())
	}
	got, body := m.Request(0)
	if got.URL.Path != "/set_pose" || string(body) != `{"a":1}` {
		t.Errorf("Request(0) = %s %q", got.URL.Path, body)
	}
	if r, _ := m.Request(5); r != nil {
		t.Error("Request(5) should be nil")
	}
}
