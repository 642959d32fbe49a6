// internal/models/progression.go
package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Stage is the linear position in the overall narrative sequence.
type Stage int

const (
	StageIntro Stage = iota
	StageAct1
	StageCutscene1
	StageAct2
	StageCutscene2
	StageAct3
	StageCutscene3
	StageAct4
	StageCutscene4
	StageAct5
	StageCutscene5
	StageOutro
	StageComplete
)

const ActCount = 5

var stageNames = [...]string{
	StageIntro:     "intro",
	StageAct1:      "act1",
	StageCutscene1: "cutscene1",
	StageAct2:      "act2",
	StageCutscene2: "cutscene2",
	StageAct3:      "act3",
	StageCutscene3: "cutscene3",
	StageAct4:      "act4",
	StageCutscene4: "cutscene4",
	StageAct5:      "act5",
	StageCutscene5: "cutscene5",
	StageOutro:     "outro",
	StageComplete:  "complete",
}

func (s Stage) Valid() bool {
	return s >= StageIntro && s <= StageComplete
}

func (s Stage) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

// Next returns the fixed successor stage. Complete is terminal.
func (s Stage) Next() Stage {
	if s >= StageComplete {
		return StageComplete
	}
	return s + 1
}

// IsAct reports whether the stage is one of the five playable acts.
func (s Stage) IsAct() bool {
	switch s {
	case StageAct1, StageAct2, StageAct3, StageAct4, StageAct5:
		return true
	}
	return false
}

// IsCutscene reports whether the stage is an inter-act cutscene.
func (s Stage) IsCutscene() bool {
	switch s {
	case StageCutscene1, StageCutscene2, StageCutscene3, StageCutscene4, StageCutscene5:
		return true
	}
	return false
}

// ActNumber derives the 1..5 act number encoded in an act or cutscene
// stage. Intro, Outro and Complete fall back to 1; the fallback is kept
// for save compatibility even though Outro follows act 5.
func (s Stage) ActNumber() int {
	switch {
	case s.IsAct():
		return (int(s-StageAct1) / 2) + 1
	case s.IsCutscene():
		return (int(s-StageCutscene1) / 2) + 1
	default:
		return 1
	}
}

// ActStage returns the act stage for an act number 1..5.
func ActStage(act int) Stage {
	return StageAct1 + Stage((act-1)*2)
}

// CutsceneStage returns the cutscene stage that follows an act number 1..5.
func CutsceneStage(act int) Stage {
	return StageCutscene1 + Stage((act-1)*2)
}

// ParseStage converts a stored stage name back to a Stage.
func ParseStage(s string) (Stage, error) {
	for i, name := range stageNames {
		if strings.EqualFold(s, name) {
			return Stage(i), nil
		}
	}
	return StageIntro, fmt.Errorf("unknown stage: %q", s)
}

func (s Stage) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Stage) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseStage(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MissionTheme tags mission content for space/land classification.
type MissionTheme string

const (
	ThemeExploration MissionTheme = "exploration"
	ThemeTrade       MissionTheme = "trade"
	ThemeVoidEntity  MissionTheme = "void_entity"
	ThemeAlliance    MissionTheme = "alliance"
	ThemeSettlers    MissionTheme = "settlers"
	ThemeMystery     MissionTheme = "mystery"
	ThemeRebellion   MissionTheme = "rebellion"
)

// MissionClass is the space/land classification of a mission's themes.
// A mission may match both sets, or neither; that is a content property.
type MissionClass struct {
	IsSpace bool `json:"is_space"`
	IsLand  bool `json:"is_land"`
}

// ActMissionStatus counts completed missions against one act's quotas.
// Counts are monotonic and clamped at their quota.
type ActMissionStatus struct {
	Act                    int `json:"act"`
	SpaceMissionsCompleted int `json:"space_missions_completed"`
	LandMissionsCompleted  int `json:"land_missions_completed"`
	RequiredSpace          int `json:"required_space"`
	RequiredLand           int `json:"required_land"`
}

// Completed reports whether both quotas are met.
func (a *ActMissionStatus) Completed() bool {
	return a.SpaceMissionsCompleted >= a.RequiredSpace &&
		a.LandMissionsCompleted >= a.RequiredLand
}
