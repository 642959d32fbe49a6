// internal/models/progression_test.go
package models

import "testing"

func TestStageSequence(t *testing.T) {
	want := []Stage{
		StageIntro,
		StageAct1, StageCutscene1,
		StageAct2, StageCutscene2,
		StageAct3, StageCutscene3,
		StageAct4, StageCutscene4,
		StageAct5, StageCutscene5,
		StageOutro, StageComplete,
	}

	stage := StageIntro
	for i, expected := range want {
		if stage != expected {
			t.Fatalf("position %d: got %s, want %s", i, stage, expected)
		}
		stage = stage.Next()
	}

	// Complete is terminal.
	if StageComplete.Next() != StageComplete {
		t.Errorf("Next from complete = %s, want complete", StageComplete.Next())
	}
}

func TestStageActNumber(t *testing.T) {
	cases := []struct {
		stage Stage
		want  int
	}{
		{StageAct1, 1},
		{StageCutscene1, 1},
		{StageAct3, 3},
		{StageCutscene4, 4},
		{StageAct5, 5},
		{StageCutscene5, 5},
		{StageIntro, 1},
		{StageOutro, 1},
		{StageComplete, 1},
	}
	for _, tc := range cases {
		if got := tc.stage.ActNumber(); got != tc.want {
			t.Errorf("ActNumber(%s) = %d, want %d", tc.stage, got, tc.want)
		}
	}
}

func TestActAndCutsceneStage(t *testing.T) {
	for act := 1; act <= ActCount; act++ {
		actStage := ActStage(act)
		if !actStage.IsAct() || actStage.ActNumber() != act {
			t.Errorf("ActStage(%d) = %s", act, actStage)
		}
		cutscene := CutsceneStage(act)
		if !cutscene.IsCutscene() || cutscene.ActNumber() != act {
			t.Errorf("CutsceneStage(%d) = %s", act, cutscene)
		}
		if actStage.Next() != cutscene {
			t.Errorf("stage after %s = %s, want %s", actStage, actStage.Next(), cutscene)
		}
	}
}

func TestParseStage(t *testing.T) {
	stage, err := ParseStage("cutscene3")
	if err != nil {
		t.Fatalf("ParseStage failed: %v", err)
	}
	if stage != StageCutscene3 {
		t.Errorf("got %s, want cutscene3", stage)
	}

	if _, err := ParseStage("epilogue"); err == nil {
		t.Error("expected error for unknown stage name")
	}
}

func TestActMissionStatusCompleted(t *testing.T) {
	status := &ActMissionStatus{
		Act: 1, RequiredSpace: 2, RequiredLand: 2,
	}
	if status.Completed() {
		t.Error("fresh status should not be complete")
	}
	status.SpaceMissionsCompleted = 2
	if status.Completed() {
		t.Error("space quota alone should not complete the act")
	}
	status.LandMissionsCompleted = 2
	if !status.Completed() {
		t.Error("both quotas met should complete the act")
	}
}
