package store

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func sampleData(label string) Data {
	return Data{
		KeyTasks:                 fmt.Sprintf(`[{"id":"task-%s","name":"Task-%s","completed":false,"remainingSeconds":1500,"pomodoros":0}]`, label, label),
		KeyCurrentTaskID:         "task-" + label,
		KeyCompletedWorkSessions: "2",
	}
}

func TestLoadMissingFileReturnsEmptyData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	data, err := Load(path)
	if err != nil {
		t.Fatalf("load missing file failed: %v", err)
	}
	if len(data) != 0 {
		t.Fatalf("expected empty data for missing file, got %+v", data)
	}
}

func TestSaveThenLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	want := sampleData("a")

	if err := Save(path, want); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if !reflect.DeepEqual(want, got) {
		t.Fatalf("save/load mismatch\nwant=%+v\ngot=%+v", want, got)
	}
}

func TestLoadNullDocumentIsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	if err := os.WriteFile(path, []byte("null"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	data, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if data == nil || len(data) != 0 {
		t.Fatalf("expected empty non-nil data, got %#v", data)
	}
}

func TestAutosaveCreatesBackupAndPersistsLatestData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	initial := sampleData("old")
	updated := sampleData("new")

	if err := Save(path, initial); err != nil {
		t.Fatalf("initial save failed: %v", err)
	}
	if err := Autosave(path, updated); err != nil {
		t.Fatalf("autosave failed: %v", err)
	}

	gotLatest, err := Load(path)
	if err != nil {
		t.Fatalf("load latest failed: %v", err)
	}
	if !reflect.DeepEqual(updated, gotLatest) {
		t.Fatalf("latest data mismatch\nwant=%+v\ngot=%+v", updated, gotLatest)
	}

	gotBackup, err := Load(path + ".bak")
	if err != nil {
		t.Fatalf("load backup failed: %v", err)
	}
	if !reflect.DeepEqual(initial, gotBackup) {
		t.Fatalf("backup mismatch\nwant=%+v\ngot=%+v", initial, gotBackup)
	}

	leftovers, err := filepath.Glob(path + ".tmp-*")
	if err != nil {
		t.Fatalf("glob temp files failed: %v", err)
	}
	if len(leftovers) != 0 {
		t.Fatalf("expected temp files to be cleaned up, got %v", leftovers)
	}
}

func TestSnapshotRotatingBackupsArePruned(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	if err := Save(path, sampleData("seed")); err != nil {
		t.Fatalf("seed save failed: %v", err)
	}

	for i := 0; i < 15; i++ {
		if err := Snapshot(path); err != nil {
			t.Fatalf("snapshot %d failed: %v", i, err)
		}
		time.Sleep(1 * time.Millisecond)
	}

	files, err := filepath.Glob(path + ".bak.*")
	if err != nil {
		t.Fatalf("glob rotating backups failed: %v", err)
	}
	if len(files) == 0 {
		t.Fatalf("expected rotating backups, found none")
	}
	if len(files) > maxRotatingBackups {
		t.Fatalf("expected at most %d rotating backups, got %d", maxRotatingBackups, len(files))
	}
}

func TestSnapshotMissingFileIsNoop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	if err := Snapshot(path); err != nil {
		t.Fatalf("snapshot of missing file failed: %v", err)
	}
	files, _ := filepath.Glob(path + ".bak.*")
	if len(files) != 0 {
		t.Fatalf("expected no backups, got %v", files)
	}
}

func TestLoadWithRecoveryRestoresFromBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	v1 := sampleData("v1")
	v2 := sampleData("v2")
	v3 := sampleData("v3")

	if err := Save(path, v1); err != nil {
		t.Fatalf("save v1 failed: %v", err)
	}
	if err := Autosave(path, v2); err != nil {
		t.Fatalf("autosave v2 failed: %v", err)
	}
	if err := Autosave(path, v3); err != nil {
		t.Fatalf("autosave v3 failed: %v", err)
	}

	if err := os.WriteFile(path, []byte("{invalid"), 0o644); err != nil {
		t.Fatalf("corrupt write failed: %v", err)
	}

	recovered, status, err := LoadWithRecovery(path)
	if err != nil {
		t.Fatalf("load with recovery failed: %v", err)
	}
	if status == "" {
		t.Fatalf("expected recovery status message, got empty")
	}
	if !reflect.DeepEqual(v2, recovered) {
		t.Fatalf("expected recovery from latest backup (v2), got %+v", recovered)
	}

	persisted, err := Load(path)
	if err != nil {
		t.Fatalf("load persisted recovered data failed: %v", err)
	}
	if !reflect.DeepEqual(v2, persisted) {
		t.Fatalf("expected persisted recovered data to match v2")
	}

	corruptFiles, err := filepath.Glob(filepath.Join(dir, "state.corrupt-*.json"))
	if err != nil {
		t.Fatalf("glob corrupt files failed: %v", err)
	}
	if len(corruptFiles) != 1 {
		t.Fatalf("expected exactly one moved corrupt file, got %d", len(corruptFiles))
	}
}

func TestLoadWithRecoveryWithoutBackupStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	if err := os.WriteFile(path, []byte("{bad json"), 0o644); err != nil {
		t.Fatalf("write corrupt state failed: %v", err)
	}

	recovered, status, err := LoadWithRecovery(path)
	if err != nil {
		t.Fatalf("load with recovery failed: %v", err)
	}
	if status == "" {
		t.Fatalf("expected recovery status message")
	}
	if len(recovered) != 0 {
		t.Fatalf("expected empty data when no valid backup, got %+v", recovered)
	}

	persisted, err := Load(path)
	if err != nil {
		t.Fatalf("load persisted empty data failed: %v", err)
	}
	if len(persisted) != 0 {
		t.Fatalf("expected persisted empty data after recovery")
	}
}

func TestLoadWithRecoveryTreatsWrongShapeAsCorrupt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	// a bare array is valid JSON but not a key/value document
	if err := os.WriteFile(path, []byte(`[1,2,3]`), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	recovered, status, err := LoadWithRecovery(path)
	if err != nil {
		t.Fatalf("load with recovery failed: %v", err)
	}
	if status == "" || len(recovered) != 0 {
		t.Fatalf("expected fresh start with status, got status=%q data=%+v", status, recovered)
	}
}
