package db

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/banshee-data/mocap.render/internal/mocap/pipeline"
)

// Payload is one recorded landmarker message.
type Payload struct {
	ID         int64     `json:"payload_id"`
	SessionID  string    `json:"session_id"`
	Seq        int64     `json:"seq"`
	ReceivedAt time.Time `json:"received_at"`
	EventType  string    `json:"event_type"`
	Data       []byte    `json:"-"`
	Accepted   bool      `json:"accepted"`
	Error      string    `json:"error,omitempty"`
}

// RecordPayload stores one payload. dispatchErr is the error the handler
// returned for it, if any.
func (db *DB) RecordPayload(sessionID string, seq int64, at time.Time, kind string, data []byte, dispatchErr error) error {
	errText := ""
	if dispatchErr != nil {
		errText = dispatchErr.Error()
	}
	_, err := db.Exec(
		`INSERT INTO payloads (session_id, seq, received_unix_nanos, event_type, payload, accepted, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID, seq, at.UnixNano(), kind, data, dispatchErr == nil, errText,
	)
	if err != nil {
		return fmt.Errorf("failed to record payload: %w", err)
	}
	return nil
}

// Payloads returns a session's payloads in arrival order. An empty kind
// returns every event type.
func (db *DB) Payloads(sessionID, kind string) ([]Payload, error) {
	rows, err := db.Query(
		`SELECT payload_id, session_id, seq, received_unix_nanos, event_type, payload, accepted, error
		FROM payloads WHERE session_id = ? AND (? = '' OR event_type = ?)
		ORDER BY seq ASC`,
		sessionID, kind, kind,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payload
	for rows.Next() {
		var (
			p  Payload
			ns int64
		)
		if err := rows.Scan(&p.ID, &p.SessionID, &p.Seq, &ns, &p.EventType, &p.Data, &p.Accepted, &p.Error); err != nil {
			return nil, err
		}
		p.ReceivedAt = time.Unix(0, ns).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

// FrameRecord is one stored tick report.
type FrameRecord struct {
	SessionID  string          `json:"session_id"`
	Seq        uint64          `json:"seq"`
	At         time.Time       `json:"at"`
	Applied    int             `json:"applied"`
	ErrorCount int             `json:"error_count"`
	Report     json.RawMessage `json:"report"`
}

// RecordFrame stores one tick report.
func (db *DB) RecordFrame(sessionID string, rep pipeline.FrameReport) error {
	doc, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("failed to encode frame %d: %w", rep.Seq, err)
	}
	_, err = db.Exec(
		`INSERT OR REPLACE INTO frame_reports (session_id, seq, tick_unix_nanos, applied, error_count, report_json)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, int64(rep.Seq), rep.At.UnixNano(), rep.Applied(), len(rep.Errors), string(doc),
	)
	if err != nil {
		return fmt.Errorf("failed to record frame %d: %w", rep.Seq, err)
	}
	return nil
}

// Frames returns a session's tick reports in order.
func (db *DB) Frames(sessionID string) ([]FrameRecord, error) {
	rows, err := db.Query(
		`SELECT session_id, seq, tick_unix_nanos, applied, error_count, report_json
		FROM frame_reports WHERE session_id = ? ORDER BY seq ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FrameRecord
	for rows.Next() {
		var (
			f   FrameRecord
			seq int64
			ns  int64
			doc string
		)
		if err := rows.Scan(&f.SessionID, &seq, &ns, &f.Applied, &f.ErrorCount, &doc); err != nil {
			return nil, err
		}
		f.Seq = uint64(seq)
		f.At = time.Unix(0, ns).UTC()
		f.Report = json.RawMessage(doc)
		out = append(out, f)
	}
	return out, rows.Err()
}
