package model

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestTaskJSONUsesStorageKeys(t *testing.T) {
	task := Task{
		ID:               "t1",
		Name:             "Write spec",
		RemainingSeconds: 1500,
		Pomodoros:        2,
		EstimatedPomos:   IntPtr(3),
	}

	data, err := json.Marshal(task)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	want := `{"id":"t1","name":"Write spec","completed":false,"remainingSeconds":1500,"pomodoros":2,"estimatedPomos":3}`
	if string(data) != want {
		t.Fatalf("unexpected json\nwant=%s\ngot=%s", want, data)
	}

	var got Task
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !reflect.DeepEqual(task, got) {
		t.Fatalf("round-trip mismatch\nwant=%+v\ngot=%+v", task, got)
	}
}

func TestTaskWithoutEstimateOmitsField(t *testing.T) {
	data, err := json.Marshal(Task{ID: "t1", Name: "a"})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if _, ok := raw["estimatedPomos"]; ok {
		t.Fatalf("expected estimatedPomos to be omitted, got %s", data)
	}
}

func TestTaskValid(t *testing.T) {
	cases := []struct {
		name string
		task Task
		want bool
	}{
		{"ok", Task{ID: "a", Name: "x"}, true},
		{"missing id", Task{Name: "x"}, false},
		{"missing name", Task{ID: "a"}, false},
		{"negative remaining", Task{ID: "a", Name: "x", RemainingSeconds: -1}, false},
		{"negative pomodoros", Task{ID: "a", Name: "x", Pomodoros: -2}, false},
		{"negative estimate", Task{ID: "a", Name: "x", EstimatedPomos: IntPtr(-1)}, false},
		{"zero estimate", Task{ID: "a", Name: "x", EstimatedPomos: IntPtr(0)}, true},
	}
	for _, tc := range cases {
		if got := tc.task.Valid(); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestSettingsValidateAndDurations(t *testing.T) {
	s := DefaultSettings()
	if !s.Validate() {
		t.Fatalf("expected default settings to be valid: %+v", s)
	}
	if got := s.DurationFor(PhaseWork); got != 1500 {
		t.Fatalf("expected work 1500s, got %d", got)
	}
	if got := s.DurationFor(PhaseShortBreak); got != 300 {
		t.Fatalf("expected short break 300s, got %d", got)
	}
	if got := s.DurationFor(PhaseLongBreak); got != 900 {
		t.Fatalf("expected long break 900s, got %d", got)
	}

	bad := s
	bad.LongBreakInterval = 0
	if bad.Validate() {
		t.Fatalf("expected zero interval to be invalid")
	}
	bad = s
	bad.SoundVolume = 1.5
	if bad.Validate() {
		t.Fatalf("expected volume above 1 to be invalid")
	}
}

func TestPhaseHelpers(t *testing.T) {
	if PhaseWork.IsBreak() {
		t.Fatalf("work is not a break")
	}
	if !PhaseShortBreak.IsBreak() || !PhaseLongBreak.IsBreak() {
		t.Fatalf("expected both break phases to report IsBreak")
	}
	if Phase("nap").Valid() {
		t.Fatalf("expected unknown phase to be invalid")
	}
}
