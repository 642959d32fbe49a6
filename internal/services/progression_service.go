// internal/services/progression_service.go
package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/astralforge/stellar-odyssey/internal/content"
	apperrors "github.com/astralforge/stellar-odyssey/internal/errors"
	"github.com/astralforge/stellar-odyssey/internal/logger"
	"github.com/astralforge/stellar-odyssey/internal/models"
	"github.com/astralforge/stellar-odyssey/internal/storage"
)

const progressionSnapshot = "progression"

// Default per-act mission quotas, used when the content catalog does not
// override them.
const (
	defaultRequiredSpace = 2
	defaultRequiredLand  = 2
)

var spaceThemes = map[models.MissionTheme]bool{
	models.ThemeExploration: true,
	models.ThemeTrade:       true,
	models.ThemeVoidEntity:  true,
}

var landThemes = map[models.MissionTheme]bool{
	models.ThemeAlliance:  true,
	models.ThemeSettlers:  true,
	models.ThemeMystery:   true,
	models.ThemeRebellion: true,
}

// ProgressionService drives the linear story stage machine and the
// per-act mission completion counters. The stage only ever moves forward;
// completing an act's quotas while playing that act automatically
// transitions into its cutscene.
type ProgressionService struct {
	mu    sync.RWMutex
	stage models.Stage
	acts  [models.ActCount]*models.ActMissionStatus

	store  storage.SnapshotStore
	events EventPublisher
	log    *logger.Logger
}

// progressionState is the persisted snapshot shape.
type progressionState struct {
	Stage models.Stage                              `json:"stage"`
	Acts  [models.ActCount]*models.ActMissionStatus `json:"acts"`
}

// NewProgressionService creates the stage machine at Intro with quotas
// taken from the catalog where defined, then restores the last snapshot.
func NewProgressionService(store storage.SnapshotStore, catalog *content.CatalogService, events EventPublisher) *ProgressionService {
	if events == nil {
		events = NopPublisher{}
	}
	s := &ProgressionService{
		stage:  models.StageIntro,
		store:  store,
		events: events,
		log:    logger.Get(),
	}
	for act := 1; act <= models.ActCount; act++ {
		status := &models.ActMissionStatus{
			Act:           act,
			RequiredSpace: defaultRequiredSpace,
			RequiredLand:  defaultRequiredLand,
		}
		if catalog != nil {
			if quota, ok := catalog.QuotaFor(act); ok {
				status.RequiredSpace = quota.RequiredSpace
				status.RequiredLand = quota.RequiredLand
			}
		}
		s.acts[act-1] = status
	}
	if err := s.Load(context.Background()); err != nil {
		s.log.Warn("failed to restore progression snapshot, starting fresh", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return s
}

// GetStage returns the current story stage.
func (s *ProgressionService) GetStage() models.Stage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stage
}

// CurrentActNumber derives the act number from the current stage.
func (s *ProgressionService) CurrentActNumber() int {
	return s.GetStage().ActNumber()
}

// Advance moves the story to the next stage. Advancing from Complete is a
// no-op; the stage never moves backwards.
func (s *ProgressionService) Advance() models.Stage {
	s.mu.Lock()
	prev := s.stage
	s.stage = s.stage.Next()
	next := s.stage
	s.mu.Unlock()

	if next != prev {
		s.events.Publish(EventStageChanged, map[string]interface{}{
			"from": prev.String(),
			"to":   next.String(),
		})
		s.persist()
	}
	return next
}

// SetStage jumps directly to a stage. Used by save restoration and debug
// tooling; normal play goes through Advance.
func (s *ProgressionService) SetStage(stage models.Stage) error {
	if !stage.Valid() {
		return apperrors.NewValidationError(fmt.Sprintf("invalid stage %d", int(stage)), nil)
	}

	s.mu.Lock()
	prev := s.stage
	s.stage = stage
	s.mu.Unlock()

	if stage != prev {
		s.events.Publish(EventStageChanged, map[string]interface{}{
			"from": prev.String(),
			"to":   stage.String(),
		})
		s.persist()
	}
	return nil
}

// ActStatus returns a copy of one act's mission counters.
func (s *ProgressionService) ActStatus(act int) (models.ActMissionStatus, error) {
	if act < 1 || act > models.ActCount {
		return models.ActMissionStatus{}, apperrors.NewValidationError(
			fmt.Sprintf("invalid act number %d", act), nil)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.acts[act-1], nil
}

// ActStatuses returns copies of all five acts' counters in act order.
func (s *ProgressionService) ActStatuses() []models.ActMissionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.ActMissionStatus, 0, models.ActCount)
	for _, status := range s.acts {
		result = append(result, *status)
	}
	return result
}

// CompleteSpaceMission counts one finished space mission toward an act.
// The count clamps at the quota; extra completions are absorbed.
func (s *ProgressionService) CompleteSpaceMission(act int) error {
	return s.completeMission(act, true)
}

// CompleteLandMission counts one finished land mission toward an act.
func (s *ProgressionService) CompleteLandMission(act int) error {
	return s.completeMission(act, false)
}

func (s *ProgressionService) completeMission(act int, space bool) error {
	if act < 1 || act > models.ActCount {
		return apperrors.NewValidationError(fmt.Sprintf("invalid act number %d", act), nil)
	}

	s.mu.Lock()
	status := s.acts[act-1]
	if space {
		if status.SpaceMissionsCompleted < status.RequiredSpace {
			status.SpaceMissionsCompleted++
		}
	} else {
		if status.LandMissionsCompleted < status.RequiredLand {
			status.LandMissionsCompleted++
		}
	}

	// The act auto-completes only while the player is actually in it;
	// finishing leftover missions during a later stage never rewinds or
	// re-fires the transition.
	transition := status.Completed() && s.stage == models.ActStage(act)
	var prev, next models.Stage
	if transition {
		prev = s.stage
		s.stage = models.CutsceneStage(act)
		next = s.stage
	}
	s.mu.Unlock()

	if transition {
		s.events.Publish(EventActCompleted, map[string]interface{}{
			"act": act,
		})
		s.events.Publish(EventStageChanged, map[string]interface{}{
			"from": prev.String(),
			"to":   next.String(),
		})
		s.log.Infof("act %d complete, entering %s", act, next)
	}
	s.persist()
	return nil
}

// IsActComplete reports whether an act's quotas are both met.
func (s *ProgressionService) IsActComplete(act int) (bool, error) {
	if act < 1 || act > models.ActCount {
		return false, apperrors.NewValidationError(fmt.Sprintf("invalid act number %d", act), nil)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.acts[act-1].Completed(), nil
}

// ClassifyMission classifies a mission's themes into the space and land
// sets. A mission may belong to both sets or to neither.
func (s *ProgressionService) ClassifyMission(themes []models.MissionTheme) models.MissionClass {
	var class models.MissionClass
	for _, theme := range themes {
		if spaceThemes[theme] {
			class.IsSpace = true
		}
		if landThemes[theme] {
			class.IsLand = true
		}
	}
	return class
}

// Reset returns the machine to Intro with zeroed mission counters,
// keeping catalog quotas.
func (s *ProgressionService) Reset() {
	s.mu.Lock()
	s.stage = models.StageIntro
	for _, status := range s.acts {
		status.SpaceMissionsCompleted = 0
		status.LandMissionsCompleted = 0
	}
	s.mu.Unlock()
	s.persist()
}

// Save writes the current stage and mission counters to the snapshot
// store.
func (s *ProgressionService) Save(ctx context.Context) error {
	if s.store == nil {
		return nil
	}

	s.mu.RLock()
	state := progressionState{Stage: s.stage}
	for i, status := range s.acts {
		copied := *status
		state.Acts[i] = &copied
	}
	s.mu.RUnlock()

	if err := s.store.Save(ctx, progressionSnapshot, &state); err != nil {
		return apperrors.NewPersistenceError("failed to save progression snapshot", err)
	}
	return nil
}

// Load restores the snapshot. A missing snapshot keeps the fresh state.
func (s *ProgressionService) Load(ctx context.Context) error {
	if s.store == nil {
		return nil
	}

	var state progressionState
	found, err := s.store.Load(ctx, progressionSnapshot, &state)
	if err != nil {
		return apperrors.NewPersistenceError("failed to load progression snapshot", err)
	}
	if !found {
		return nil
	}
	if !state.Stage.Valid() {
		return apperrors.NewPersistenceError(
			fmt.Sprintf("progression snapshot has invalid stage %d", int(state.Stage)), nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stage = state.Stage
	for i, status := range state.Acts {
		if status == nil {
			continue
		}
		// Counters come from the save; quotas stay catalog-defined so a
		// content update applies to older saves.
		s.acts[i].SpaceMissionsCompleted = status.SpaceMissionsCompleted
		s.acts[i].LandMissionsCompleted = status.LandMissionsCompleted
	}
	return nil
}

func (s *ProgressionService) persist() {
	if s.store == nil {
		return
	}
	if err := s.Save(context.Background()); err != nil {
		s.log.Warn("failed to persist progression snapshot", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
