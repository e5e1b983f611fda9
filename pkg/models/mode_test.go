package models

import "testing"

func TestMode_Stages_EveryModeHasPipeline(t *testing.T) {
	for _, m := range AllModes() {
		stages := m.Stages()
		if len(stages) == 0 {
			t.Errorf("mode %s has no stage pipeline", m)
		}
	}
}

func TestMode_Stages_ReturnsCopy(t *testing.T) {
	first := ModeDebug.Stages()
	first[0] = StageSummary

	if got := ModeDebug.Stages()[0]; got != StageInvestigation {
		t.Errorf("pipeline mutated through returned slice: got %s", got)
	}
}

func TestMode_Stages_DebugPipeline(t *testing.T) {
	want := []Stage{StageInvestigation, StageFix, StageVerification}
	got := ModeDebug.Stages()
	if len(got) != len(want) {
		t.Fatalf("debug pipeline has %d stages, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("debug stage %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestMode_Valid(t *testing.T) {
	if !ModeFullCycle.Valid() {
		t.Error("full_cycle should be valid")
	}
	if Mode("yolo").Valid() {
		t.Error("unknown mode should not be valid")
	}
	if Mode("").Valid() {
		t.Error("empty mode should not be valid")
	}
}
