// internal/services/relationship_service.go
package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	apperrors "github.com/astralforge/stellar-odyssey/internal/errors"
	"github.com/astralforge/stellar-odyssey/internal/logger"
	"github.com/astralforge/stellar-odyssey/internal/models"
	"github.com/astralforge/stellar-odyssey/internal/storage"
)

const relationshipSnapshot = "relationships"

// questCompletionBonus is the fixed effect logged when a personal quest
// completes.
const questCompletionBonus = 10

// RelationshipService is the relationship ledger: per-crew-member leveled
// standing with the player, the append-only log of significant
// interactions, and the separate hidden-until-revealed crew-to-crew
// relationship graph.
//
// Entries are created lazily on first access and persist for the lifetime
// of the save; every mutating call triggers a best-effort snapshot write.
type RelationshipService struct {
	mu      sync.RWMutex
	players map[string]*models.PlayerRelationship
	crew    map[[2]string]*models.CrewRelationship

	store  storage.SnapshotStore
	events EventPublisher
	log    *logger.Logger
}

// relationshipState is the persisted snapshot shape.
type relationshipState struct {
	Players []*models.PlayerRelationship `json:"players"`
	Crew    []*models.CrewRelationship   `json:"crew"`
}

// NewRelationshipService creates the ledger and restores the last-saved
// snapshot. A load failure falls back to a fresh ledger; in-memory state
// is authoritative for the session.
func NewRelationshipService(store storage.SnapshotStore, events EventPublisher) *RelationshipService {
	if events == nil {
		events = NopPublisher{}
	}
	s := &RelationshipService{
		players: make(map[string]*models.PlayerRelationship),
		crew:    make(map[[2]string]*models.CrewRelationship),
		store:   store,
		events:  events,
		log:     logger.Get(),
	}
	if err := s.Load(context.Background()); err != nil {
		s.log.Warn("relationship snapshot load failed, starting fresh", map[string]interface{}{
			"error": err,
		})
	}
	return s
}

// entry returns the relationship for npcID, creating the default
// Neutral/0 entry on first access. Callers must hold mu.
func (s *RelationshipService) entry(npcID string) *models.PlayerRelationship {
	r, exists := s.players[npcID]
	if !exists {
		r = models.NewPlayerRelationship(npcID)
		s.players[npcID] = r
	}
	return r
}

// GetLevel returns the current relationship level with a crew member.
func (s *RelationshipService) GetLevel(npcID string) models.RelationshipLevel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entry(npcID).Level
}

// Relationship returns a copy of the full ledger entry for a crew member.
func (s *RelationshipService) Relationship(npcID string) models.PlayerRelationship {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.entry(npcID)
}

// Relationships returns copies of all ledger entries, sorted by crew id.
func (s *RelationshipService) Relationships() []models.PlayerRelationship {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.PlayerRelationship, 0, len(s.players))
	for _, r := range s.players {
		result = append(result, *r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].NPCID < result[j].NPCID })
	return result
}

// Improve adds points, cascading across level thresholds with carryover.
// Levels are never skipped; at the Devoted ceiling points clamp at the
// ceiling threshold instead of accumulating overflow.
func (s *RelationshipService) Improve(npcID string, amount int) error {
	if amount <= 0 {
		return apperrors.NewValidationError(
			fmt.Sprintf("improve amount must be positive, got %d", amount), nil)
	}

	s.mu.Lock()
	r := s.entry(npcID)
	before := r.Level
	r.Points += amount
	for r.Level < models.LevelDevoted && r.Points >= r.Level.PointsToAdvance() {
		r.Points -= r.Level.PointsToAdvance()
		r.Level++
	}
	if ceiling := models.LevelDevoted.PointsToAdvance(); r.Level == models.LevelDevoted && r.Points > ceiling {
		r.Points = ceiling
	}
	after := r.Level
	s.mu.Unlock()

	if after != before {
		s.events.Publish(EventRelationshipLevel, map[string]interface{}{
			"npc_id": npcID,
			"from":   before.String(),
			"to":     after.String(),
		})
	}
	s.persist()
	return nil
}

// Deteriorate subtracts points, cascading downward through each
// intermediate level and clamping at the Distrustful/0 floor.
func (s *RelationshipService) Deteriorate(npcID string, amount int) error {
	if amount <= 0 {
		return apperrors.NewValidationError(
			fmt.Sprintf("deteriorate amount must be positive, got %d", amount), nil)
	}

	s.mu.Lock()
	r := s.entry(npcID)
	before := r.Level
	r.Points -= amount
	for r.Points < 0 && r.Level > models.LevelDistrustful {
		r.Level--
		r.Points += r.Level.PointsToAdvance()
	}
	if r.Points < 0 {
		r.Points = 0
	}
	after := r.Level
	s.mu.Unlock()

	if after != before {
		s.events.Publish(EventRelationshipLevel, map[string]interface{}{
			"npc_id": npcID,
			"from":   before.String(),
			"to":     after.String(),
		})
	}
	s.persist()
	return nil
}

// SetLevel force-sets the level and resets points to zero. Used for save
// restoration and scripted overrides.
func (s *RelationshipService) SetLevel(npcID string, level models.RelationshipLevel) error {
	if !level.Valid() {
		return apperrors.NewValidationError(
			fmt.Sprintf("invalid relationship level %d", int(level)), nil)
	}

	s.mu.Lock()
	r := s.entry(npcID)
	r.Level = level
	r.Points = 0
	s.mu.Unlock()

	s.persist()
	return nil
}

// GetProgress returns the points/target pair for UI progress bars.
func (s *RelationshipService) GetProgress(npcID string) models.RelationshipProgress {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.entry(npcID)
	return models.RelationshipProgress{Current: r.Points, Target: r.MaxPoints()}
}

// RecordInteraction appends a significant interaction to the log and
// applies its effect to the score. A zero effect is still logged.
func (s *RelationshipService) RecordInteraction(npcID, description string, effect int) models.SignificantInteraction {
	interaction := models.SignificantInteraction{
		ID:          fmt.Sprintf("interaction_%d", time.Now().UnixNano()),
		Description: description,
		Effect:      effect,
		Timestamp:   time.Now(),
	}

	s.mu.Lock()
	r := s.entry(npcID)
	r.SignificantInteractions = append(r.SignificantInteractions, interaction)
	s.mu.Unlock()

	switch {
	case effect > 0:
		s.Improve(npcID, effect)
	case effect < 0:
		s.Deteriorate(npcID, -effect)
	default:
		s.persist()
	}
	return interaction
}

// GetSignificantInteractions returns the interaction log in insertion
// order.
func (s *RelationshipService) GetSignificantInteractions(npcID string) []models.SignificantInteraction {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.entry(npcID)
	result := make([]models.SignificantInteraction, len(r.SignificantInteractions))
	copy(result, r.SignificantInteractions)
	return result
}

// UpdateQuestProgress moves a crew member's personal quest progress by
// delta, clamped to [0,100]. Reaching 100 completes the quest and logs a
// completion interaction with the fixed bonus effect.
func (s *RelationshipService) UpdateQuestProgress(npcID string, delta int) {
	s.mu.Lock()
	r := s.entry(npcID)
	r.PersonalQuestProgress += delta
	if r.PersonalQuestProgress < 0 {
		r.PersonalQuestProgress = 0
	}
	if r.PersonalQuestProgress > 100 {
		r.PersonalQuestProgress = 100
	}
	completed := r.PersonalQuestProgress >= 100 && !r.PersonalQuestCompleted
	if completed {
		r.PersonalQuestCompleted = true
	}
	s.mu.Unlock()

	if completed {
		s.finishQuest(npcID)
		return
	}
	s.persist()
}

// CompleteQuest marks the personal quest finished regardless of progress.
func (s *RelationshipService) CompleteQuest(npcID string) {
	s.mu.Lock()
	r := s.entry(npcID)
	already := r.PersonalQuestCompleted
	r.PersonalQuestProgress = 100
	r.PersonalQuestCompleted = true
	s.mu.Unlock()

	if already {
		s.persist()
		return
	}
	s.finishQuest(npcID)
}

func (s *RelationshipService) finishQuest(npcID string) {
	s.RecordInteraction(npcID, "Completed personal quest", questCompletionBonus)
	s.events.Publish(EventQuestCompleted, map[string]interface{}{"npc_id": npcID})
}

// GetCrewRelationship looks up the crew-to-crew relationship for a pair,
// order-independent. Absence is a routine result, not an error.
func (s *RelationshipService) GetCrewRelationship(idA, idB string) (models.CrewRelationship, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cr, ok := s.crew[models.CanonicalPair(idA, idB)]
	if !ok {
		return models.CrewRelationship{}, false
	}
	return *cr, true
}

// SetCrewRelationship sets the relationship for a pair, replacing any
// prior entry for that pair. Visibility resets to hidden on replacement.
func (s *RelationshipService) SetCrewRelationship(idA, idB string, relType models.CrewRelationType, strength int, background string) error {
	if idA == idB {
		return apperrors.NewValidationError("crew relationship requires two distinct crew members", nil)
	}
	if !relType.Valid() {
		return apperrors.NewValidationError(fmt.Sprintf("invalid crew relationship type %q", relType), nil)
	}
	if strength < 1 || strength > 10 {
		return apperrors.NewValidationError(fmt.Sprintf("crew relationship strength must be 1..10, got %d", strength), nil)
	}

	pair := models.CanonicalPair(idA, idB)
	s.mu.Lock()
	s.crew[pair] = &models.CrewRelationship{
		Between:         pair,
		Type:            relType,
		Strength:        strength,
		Background:      background,
		VisibleToPlayer: false,
	}
	s.mu.Unlock()

	s.persist()
	return nil
}

// Reveal makes a crew relationship visible to the player. Revealing a
// pair with no relationship is a no-op and reports false.
func (s *RelationshipService) Reveal(idA, idB string) bool {
	pair := models.CanonicalPair(idA, idB)

	s.mu.Lock()
	cr, ok := s.crew[pair]
	if ok {
		cr.VisibleToPlayer = true
	}
	s.mu.Unlock()

	if ok {
		s.persist()
	}
	return ok
}

// GetRelationshipsFor returns all crew relationships involving a crew
// member, regardless of visibility; filtering hidden entries is the
// caller's responsibility.
func (s *RelationshipService) GetRelationshipsFor(npcID string) []models.CrewRelationship {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.CrewRelationship
	for _, cr := range s.crew {
		if cr.Involves(npcID) {
			result = append(result, *cr)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Between[0] != result[j].Between[0] {
			return result[i].Between[0] < result[j].Between[0]
		}
		return result[i].Between[1] < result[j].Between[1]
	})
	return result
}

// CrewRelationships returns all crew relationships sorted by pair.
func (s *RelationshipService) CrewRelationships() []models.CrewRelationship {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.CrewRelationship, 0, len(s.crew))
	for _, cr := range s.crew {
		result = append(result, *cr)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Between[0] != result[j].Between[0] {
			return result[i].Between[0] < result[j].Between[0]
		}
		return result[i].Between[1] < result[j].Between[1]
	})
	return result
}

// Reset drops all ledger state. Used when starting a new game.
func (s *RelationshipService) Reset() {
	s.mu.Lock()
	s.players = make(map[string]*models.PlayerRelationship)
	s.crew = make(map[[2]string]*models.CrewRelationship)
	s.mu.Unlock()

	s.persist()
}

// Save writes the full ledger snapshot.
func (s *RelationshipService) Save(ctx context.Context) error {
	if s.store == nil {
		return nil
	}

	s.mu.RLock()
	state := relationshipState{
		Players: make([]*models.PlayerRelationship, 0, len(s.players)),
		Crew:    make([]*models.CrewRelationship, 0, len(s.crew)),
	}
	for _, r := range s.players {
		cp := *r
		state.Players = append(state.Players, &cp)
	}
	for _, cr := range s.crew {
		cp := *cr
		state.Crew = append(state.Crew, &cp)
	}
	s.mu.RUnlock()

	sort.Slice(state.Players, func(i, j int) bool { return state.Players[i].NPCID < state.Players[j].NPCID })

	if err := s.store.Save(ctx, relationshipSnapshot, &state); err != nil {
		return apperrors.NewPersistenceError("failed to save relationship snapshot", err)
	}
	return nil
}

// Load restores the last-saved snapshot, replacing in-memory state.
// A missing snapshot leaves the ledger at defaults.
func (s *RelationshipService) Load(ctx context.Context) error {
	if s.store == nil {
		return nil
	}

	var state relationshipState
	found, err := s.store.Load(ctx, relationshipSnapshot, &state)
	if err != nil {
		return apperrors.NewPersistenceError("failed to load relationship snapshot", err)
	}
	if !found {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.players = make(map[string]*models.PlayerRelationship, len(state.Players))
	for _, r := range state.Players {
		s.players[r.NPCID] = r
	}
	s.crew = make(map[[2]string]*models.CrewRelationship, len(state.Crew))
	for _, cr := range state.Crew {
		s.crew[models.CanonicalPair(cr.Between[0], cr.Between[1])] = cr
	}
	return nil
}

// persist is the best-effort write after a mutation. In-memory state
// stays authoritative when the store is unavailable.
func (s *RelationshipService) persist() {
	if s.store == nil {
		return
	}
	if err := s.Save(context.Background()); err != nil {
		s.log.Warn("relationship snapshot save failed", map[string]interface{}{"error": err})
	}
}
