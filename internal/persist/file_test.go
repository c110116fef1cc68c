package persist

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ruiztomas88/fuel-copilot-staging-backend-sub006/internal/history"
)

func testSnapshot() *Snapshot {
	now := time.Now().UTC().Truncate(time.Second)
	snap := NewSnapshot()
	snap.Trucks["T1"] = map[string]Series{
		"oil_pressure": {Readings: []history.Reading{
			{Timestamp: now.Add(-48 * time.Hour), Value: 35},
			{Timestamp: now.Add(-24 * time.Hour), Value: 34},
			{Timestamp: now, Value: 33},
		}},
		"coolant_temp": {Readings: []history.Reading{
			{Timestamp: now, Value: 95.5},
		}},
	}
	snap.Trucks["T2"] = map[string]Series{
		"battery_voltage": {Readings: []history.Reading{
			{Timestamp: now, Value: 12.6},
		}},
	}
	return snap
}

func TestFileBackend_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	backend := NewFileBackend(path)

	orig := testSnapshot()
	if err := backend.Save(orig); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := backend.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Version != SnapshotVersion {
		t.Errorf("expected version %d, got %d", SnapshotVersion, loaded.Version)
	}
	if loaded.ReadingCount() != orig.ReadingCount() {
		t.Errorf("expected %d readings, got %d", orig.ReadingCount(), loaded.ReadingCount())
	}

	got := loaded.Trucks["T1"]["oil_pressure"].Readings
	want := orig.Trucks["T1"]["oil_pressure"].Readings
	if len(got) != len(want) {
		t.Fatalf("expected %d readings for T1/oil_pressure, got %d", len(want), len(got))
	}
	for i := range want {
		if !got[i].Timestamp.Equal(want[i].Timestamp) || got[i].Value != want[i].Value {
			t.Errorf("reading %d differs: %+v vs %+v", i, got[i], want[i])
		}
	}
}

func TestFileBackend_MissingFile(t *testing.T) {
	backend := NewFileBackend(filepath.Join(t.TempDir(), "missing.json"))
	if _, err := backend.Load(); !errors.Is(err, ErrNoRows) {
		t.Errorf("expected ErrNoRows for missing file, got %v", err)
	}
}

func TestFileBackend_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewFileBackend(path).Load(); !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}
}

func TestFileBackend_WrongVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte(`{"version": 99, "histories": {}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewFileBackend(path).Load(); !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt for unknown version, got %v", err)
	}
}

func TestFileBackend_AtomicWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	backend := NewFileBackend(path)

	if err := backend.Save(testSnapshot()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind after save")
	}
}
