package breaker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Snapshot is the serialized form of a breaker's state and metrics,
// matching the wire format in spec.md 6: per-breaker JSON files at
// <config_dir>/circuit_breakers/<id>.json.
type Snapshot struct {
	State               State          `json:"state"`
	OpenedAtOffset       *time.Duration `json:"opened_at_offset,omitempty"`
	TotalRequests        uint64         `json:"total_requests"`
	SuccessfulRequests   uint64         `json:"successful_requests"`
	FailedRequests       uint64         `json:"failed_requests"`
	RejectedRequests     uint64         `json:"rejected_requests"`
	ConsecutiveFailures  uint32         `json:"consecutive_failures"`
	CircuitOpenedCount   uint64         `json:"circuit_opened_count"`
	CircuitClosedCount   uint64         `json:"circuit_closed_count"`
	SavedAt              time.Time      `json:"saved_at"`
}

// wireSnapshot mirrors the exact wire shape of spec.md 6, where
// opened_at_offset and saved_at are expressed in seconds, not
// time.Duration's nanosecond JSON encoding.
type wireSnapshot struct {
	State               string   `json:"state"`
	OpenedAtOffsetSecs   *float64 `json:"opened_at_offset,omitempty"`
	TotalRequests        uint64   `json:"total_requests"`
	SuccessfulRequests   uint64   `json:"successful_requests"`
	FailedRequests       uint64   `json:"failed_requests"`
	RejectedRequests     uint64   `json:"rejected_requests"`
	ConsecutiveFailures  uint32   `json:"consecutive_failures"`
	CircuitOpenedCount   uint64   `json:"circuit_opened_count"`
	CircuitClosedCount   uint64   `json:"circuit_closed_count"`
	SavedAt              float64  `json:"saved_at"`
}

// SnapshotStore persists breaker snapshots as JSON files under a root
// directory, one file per breaker id, written via temp-file-then-rename
// so a write either fully succeeds or leaves the previous file untouched.
type SnapshotStore struct {
	root string
}

// NewSnapshotStore creates a SnapshotStore rooted at
// <configDir>/circuit_breakers.
func NewSnapshotStore(configDir string) *SnapshotStore {
	return &SnapshotStore{root: filepath.Join(configDir, "circuit_breakers")}
}

func (s *SnapshotStore) pathFor(id string) string {
	return filepath.Join(s.root, id+".json")
}

// Save writes snap for id atomically.
func (s *SnapshotStore) Save(id string, snap Snapshot) error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	wire := wireSnapshot{
		State:               string(snap.State),
		TotalRequests:       snap.TotalRequests,
		SuccessfulRequests:  snap.SuccessfulRequests,
		FailedRequests:      snap.FailedRequests,
		RejectedRequests:    snap.RejectedRequests,
		ConsecutiveFailures: snap.ConsecutiveFailures,
		CircuitOpenedCount:  snap.CircuitOpenedCount,
		CircuitClosedCount:  snap.CircuitClosedCount,
		SavedAt:             float64(snap.SavedAt.Unix()),
	}
	if snap.OpenedAtOffset != nil {
		secs := snap.OpenedAtOffset.Seconds()
		wire.OpenedAtOffsetSecs = &secs
	}

	data, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	final := s.pathFor(id)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("rename snapshot into place: %w", err)
	}
	return nil
}

// Load reads the snapshot for id, if one exists. ok is false if no
// snapshot file is present. Any unknown state string deserializes to
// StateClosed, per spec.md 6.
func (s *SnapshotStore) Load(id string) (Snapshot, bool, error) {
	data, err := os.ReadFile(s.pathFor(id))
	if os.IsNotExist(err) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("read snapshot: %w", err)
	}

	var wire wireSnapshot
	if err := json.Unmarshal(data, &wire); err != nil {
		return Snapshot{}, false, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	snap := Snapshot{
		State:               normalizeState(wire.State),
		TotalRequests:       wire.TotalRequests,
		SuccessfulRequests:  wire.SuccessfulRequests,
		FailedRequests:      wire.FailedRequests,
		RejectedRequests:    wire.RejectedRequests,
		ConsecutiveFailures: wire.ConsecutiveFailures,
		CircuitOpenedCount:  wire.CircuitOpenedCount,
		CircuitClosedCount:  wire.CircuitClosedCount,
		SavedAt:             time.Unix(int64(wire.SavedAt), 0),
	}
	if wire.OpenedAtOffsetSecs != nil {
		d := time.Duration(*wire.OpenedAtOffsetSecs * float64(time.Second))
		snap.OpenedAtOffset = &d
	}
	return snap, true, nil
}

func normalizeState(s string) State {
	switch State(s) {
	case StateOpen:
		return StateOpen
	case StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}
