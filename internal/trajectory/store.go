package trajectory

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// JSONL record types for the audit log format.
const (
	RecordTypeHeader = "header" // session metadata, first line
	RecordTypeRecord = "record" // one invocation record
	RecordTypeFooter = "footer" // final status, last line
)

// Session status values written to the footer.
const (
	StatusActive  = "active"
	StatusDone    = "done"
	StatusAborted = "aborted"
)

// jsonlRecord wraps JSONL lines with type discrimination.
type jsonlRecord struct {
	RecordType string `json:"_type"`

	// Header fields
	SessionID string    `json:"session_id,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`

	// Record fields
	*Record `json:",omitempty"`

	// Footer fields
	Status    string    `json:"status,omitempty"`
	Abort     *Abort    `json:"abort,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Store persists a session trajectory as an append-friendly JSONL audit log.
// Each Save rewrites the file: header, every record, footer.
type Store struct {
	dir string
}

// NewStore creates a file-backed store rooted at dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// Path returns the audit log path for a session.
func (s *Store) Path(sessionID string) string {
	return filepath.Join(s.dir, sessionID+".jsonl")
}

// Save writes the full trajectory for a session. abort may be nil; status
// should be one of the Status constants.
func (s *Store) Save(sessionID string, t *Trajectory, status string, abort *Abort) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create audit directory: %w", err)
	}

	f, err := os.Create(s.Path(sessionID))
	if err != nil {
		return fmt.Errorf("failed to create audit file: %w", err)
	}
	defer f.Close()

	header := jsonlRecord{
		RecordType: RecordTypeHeader,
		SessionID:  sessionID,
		CreatedAt:  time.Now(),
	}
	if err := writeLine(f, header); err != nil {
		return err
	}

	for _, rec := range t.Records() {
		recCopy := rec
		if err := writeLine(f, jsonlRecord{RecordType: RecordTypeRecord, Record: &recCopy}); err != nil {
			return err
		}
	}

	footer := jsonlRecord{
		RecordType: RecordTypeFooter,
		Status:     status,
		Abort:      abort,
		UpdatedAt:  time.Now(),
	}
	return writeLine(f, footer)
}

func writeLine(f *os.File, record jsonlRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal audit record: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		return err
	}
	_, err = f.WriteString("\n")
	return err
}

// Load reads a persisted trajectory. It returns the trajectory, the footer
// status (empty if no footer was written), and any abort recorded.
func (s *Store) Load(sessionID string) (*Trajectory, string, *Abort, error) {
	f, err := os.Open(s.Path(sessionID))
	if err != nil {
		return nil, "", nil, err
	}
	defer f.Close()

	t := New()
	status := ""
	var abort *Abort

	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return nil, "", nil, fmt.Errorf("error reading audit log: %w", err)
		}

		trimmed := bytes.TrimSpace(line)
		if len(trimmed) > 0 {
			var rec jsonlRecord
			if jsonErr := json.Unmarshal(trimmed, &rec); jsonErr != nil {
				return nil, "", nil, fmt.Errorf("failed to parse audit line: %w", jsonErr)
			}
			switch rec.RecordType {
			case RecordTypeRecord:
				if rec.Record != nil {
					t.Append(*rec.Record)
				}
			case RecordTypeFooter:
				status = rec.Status
				abort = rec.Abort
			}
		}

		if err == io.EOF {
			break
		}
	}

	return t, status, abort, nil
}
