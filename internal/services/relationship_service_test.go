// internal/services/relationship_service_test.go
package services

import (
	"context"
	"sync"
	"testing"

	apperrors "github.com/astralforge/stellar-odyssey/internal/errors"
	"github.com/astralforge/stellar-odyssey/internal/models"
	"github.com/astralforge/stellar-odyssey/internal/storage"
)

// capturePublisher records published events for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []capturedEvent
}

type capturedEvent struct {
	Event string
	Data  interface{}
}

func (p *capturePublisher) Publish(event string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, capturedEvent{Event: event, Data: data})
}

func (p *capturePublisher) count(event string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Event == event {
			n++
		}
	}
	return n
}

func newTestStore(t *testing.T) storage.SnapshotStore {
	t.Helper()
	store, err := storage.NewFileSnapshotStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create snapshot store: %v", err)
	}
	return store
}

func TestRelationshipDefaultsToNeutral(t *testing.T) {
	s := NewRelationshipService(newTestStore(t), nil)

	if level := s.GetLevel("kira"); level != models.LevelNeutral {
		t.Errorf("default level = %s, want neutral", level)
	}
	r := s.Relationship("kira")
	if r.Points != 0 || len(r.SignificantInteractions) != 0 {
		t.Errorf("default relationship = %+v", r)
	}
}

func TestImproveCascadesWithCarryover(t *testing.T) {
	s := NewRelationshipService(newTestStore(t), nil)

	// 37 from neutral/0 crosses neutral (10) and cooperative (15),
	// landing at friendly with 12 carried over.
	if err := s.Improve("kira", 37); err != nil {
		t.Fatalf("Improve failed: %v", err)
	}
	r := s.Relationship("kira")
	if r.Level != models.LevelFriendly || r.Points != 12 {
		t.Errorf("got %s/%d, want friendly/12", r.Level, r.Points)
	}
}

func TestImproveNeverSkipsLevelEvents(t *testing.T) {
	events := &capturePublisher{}
	s := NewRelationshipService(newTestStore(t), events)

	s.Improve("kira", 37)
	if n := events.count(EventRelationshipLevel); n != 1 {
		t.Errorf("level-change events = %d, want 1", n)
	}
}

func TestImproveClampsAtDevotedCeiling(t *testing.T) {
	s := NewRelationshipService(newTestStore(t), nil)

	s.Improve("kira", 1000)
	r := s.Relationship("kira")
	if r.Level != models.LevelDevoted {
		t.Fatalf("level = %s, want devoted", r.Level)
	}
	if r.Points != models.LevelDevoted.PointsToAdvance() {
		t.Errorf("points = %d, want ceiling %d", r.Points, models.LevelDevoted.PointsToAdvance())
	}

	// Further improvements stay clamped.
	s.Improve("kira", 10)
	if got := s.Relationship("kira").Points; got != models.LevelDevoted.PointsToAdvance() {
		t.Errorf("points after extra improve = %d, want ceiling", got)
	}
}

func TestDeteriorateCascadesDownward(t *testing.T) {
	s := NewRelationshipService(newTestStore(t), nil)

	s.Improve("kira", 37) // friendly/12
	s.Deteriorate("kira", 37)
	r := s.Relationship("kira")
	if r.Level != models.LevelNeutral || r.Points != 0 {
		t.Errorf("got %s/%d, want neutral/0 after symmetric deterioration", r.Level, r.Points)
	}
}

func TestDeteriorateClampsAtFloor(t *testing.T) {
	s := NewRelationshipService(newTestStore(t), nil)

	s.Deteriorate("kira", 500)
	r := s.Relationship("kira")
	if r.Level != models.LevelDistrustful || r.Points != 0 {
		t.Errorf("got %s/%d, want distrustful/0", r.Level, r.Points)
	}
}

func TestImproveFromDistrustfulPromotesImmediately(t *testing.T) {
	s := NewRelationshipService(newTestStore(t), nil)

	s.SetLevel("kira", models.LevelDistrustful)
	s.Improve("kira", 3)
	r := s.Relationship("kira")
	if r.Level != models.LevelNeutral || r.Points != 3 {
		t.Errorf("got %s/%d, want neutral/3", r.Level, r.Points)
	}
}

func TestImproveRejectsNonPositiveAmount(t *testing.T) {
	s := NewRelationshipService(newTestStore(t), nil)

	for _, amount := range []int{0, -5} {
		err := s.Improve("kira", amount)
		if !apperrors.IsValidationError(err) {
			t.Errorf("Improve(%d) error = %v, want validation error", amount, err)
		}
	}
	if err := s.Deteriorate("kira", 0); !apperrors.IsValidationError(err) {
		t.Errorf("Deteriorate(0) error = %v, want validation error", err)
	}
}

func TestRecordInteractionLogsAndApplies(t *testing.T) {
	s := NewRelationshipService(newTestStore(t), nil)

	s.RecordInteraction("engineer", "Helped repair the warp coil", 5)
	r := s.Relationship("engineer")
	if r.Level != models.LevelNeutral || r.Points != 5 {
		t.Errorf("got %s/%d, want neutral/5", r.Level, r.Points)
	}
	if len(r.SignificantInteractions) != 1 {
		t.Fatalf("interaction log length = %d, want 1", len(r.SignificantInteractions))
	}

	s.RecordInteraction("engineer", "Forgot their birthday", -2)
	r = s.Relationship("engineer")
	if r.Points != 3 {
		t.Errorf("points after negative interaction = %d, want 3", r.Points)
	}
	log := s.GetSignificantInteractions("engineer")
	if len(log) != 2 {
		t.Fatalf("interaction log length = %d, want 2", len(log))
	}
	if log[0].Effect != 5 || log[1].Effect != -2 {
		t.Errorf("log effects = %d,%d, want 5,-2", log[0].Effect, log[1].Effect)
	}
}

func TestRecordInteractionZeroEffectStillLogged(t *testing.T) {
	s := NewRelationshipService(newTestStore(t), nil)

	s.RecordInteraction("kira", "Shared a quiet moment", 0)
	r := s.Relationship("kira")
	if r.Points != 0 || len(r.SignificantInteractions) != 1 {
		t.Errorf("got points=%d log=%d, want 0/1", r.Points, len(r.SignificantInteractions))
	}
}

func TestQuestProgressCompletion(t *testing.T) {
	events := &capturePublisher{}
	s := NewRelationshipService(newTestStore(t), events)

	s.UpdateQuestProgress("kira", 60)
	if r := s.Relationship("kira"); r.PersonalQuestProgress != 60 || r.PersonalQuestCompleted {
		t.Fatalf("after +60: %+v", r)
	}

	// Crossing 100 clamps, completes once and logs the bonus interaction.
	s.UpdateQuestProgress("kira", 70)
	r := s.Relationship("kira")
	if r.PersonalQuestProgress != 100 || !r.PersonalQuestCompleted {
		t.Fatalf("after +70: progress=%d completed=%v", r.PersonalQuestProgress, r.PersonalQuestCompleted)
	}
	if r.Points != questCompletionBonus {
		t.Errorf("points = %d, want quest bonus %d", r.Points, questCompletionBonus)
	}
	if len(r.SignificantInteractions) != 1 {
		t.Errorf("log length = %d, want 1", len(r.SignificantInteractions))
	}
	if n := events.count(EventQuestCompleted); n != 1 {
		t.Errorf("quest events = %d, want 1", n)
	}

	// Repeating does not complete twice.
	s.UpdateQuestProgress("kira", 10)
	if n := events.count(EventQuestCompleted); n != 1 {
		t.Errorf("quest events after repeat = %d, want 1", n)
	}
}

func TestQuestProgressClampsAtZero(t *testing.T) {
	s := NewRelationshipService(newTestStore(t), nil)

	s.UpdateQuestProgress("kira", -40)
	if got := s.Relationship("kira").PersonalQuestProgress; got != 0 {
		t.Errorf("progress = %d, want 0", got)
	}
}

func TestCrewRelationshipPairIsOrderIndependent(t *testing.T) {
	s := NewRelationshipService(newTestStore(t), nil)

	err := s.SetCrewRelationship("zel", "ana", models.CrewRelationRival, 7, "Old academy rivalry")
	if err != nil {
		t.Fatalf("SetCrewRelationship failed: %v", err)
	}

	rel, ok := s.GetCrewRelationship("ana", "zel")
	if !ok {
		t.Fatal("relationship not found with reversed ids")
	}
	if rel.Type != models.CrewRelationRival || rel.Strength != 7 {
		t.Errorf("got %+v", rel)
	}
	if rel.VisibleToPlayer {
		t.Error("new crew relationship should start hidden")
	}
}

func TestCrewRelationshipReplacementResetsVisibility(t *testing.T) {
	s := NewRelationshipService(newTestStore(t), nil)

	s.SetCrewRelationship("zel", "ana", models.CrewRelationRival, 7, "")
	if !s.Reveal("zel", "ana") {
		t.Fatal("Reveal failed")
	}

	s.SetCrewRelationship("ana", "zel", models.CrewRelationFriend, 4, "")
	rel, _ := s.GetCrewRelationship("zel", "ana")
	if rel.Type != models.CrewRelationFriend {
		t.Errorf("type = %s, want friend", rel.Type)
	}
	if rel.VisibleToPlayer {
		t.Error("replacement should reset visibility to hidden")
	}
}

func TestCrewRelationshipValidation(t *testing.T) {
	s := NewRelationshipService(newTestStore(t), nil)

	if err := s.SetCrewRelationship("zel", "zel", models.CrewRelationFriend, 5, ""); !apperrors.IsValidationError(err) {
		t.Errorf("same-id pair error = %v, want validation error", err)
	}
	if err := s.SetCrewRelationship("zel", "ana", "nemesis", 5, ""); !apperrors.IsValidationError(err) {
		t.Errorf("bad type error = %v, want validation error", err)
	}
	if err := s.SetCrewRelationship("zel", "ana", models.CrewRelationFriend, 11, ""); !apperrors.IsValidationError(err) {
		t.Errorf("strength 11 error = %v, want validation error", err)
	}
}

func TestRevealMissingRelationship(t *testing.T) {
	s := NewRelationshipService(newTestStore(t), nil)

	if s.Reveal("zel", "ana") {
		t.Error("revealing an absent relationship should report false")
	}
}

func TestGetRelationshipsFor(t *testing.T) {
	s := NewRelationshipService(newTestStore(t), nil)

	s.SetCrewRelationship("zel", "ana", models.CrewRelationRival, 7, "")
	s.SetCrewRelationship("zel", "brin", models.CrewRelationMentor, 5, "")
	s.SetCrewRelationship("ana", "brin", models.CrewRelationFriend, 3, "")

	rels := s.GetRelationshipsFor("zel")
	if len(rels) != 2 {
		t.Fatalf("got %d relationships for zel, want 2", len(rels))
	}
	for _, rel := range rels {
		if !rel.Involves("zel") {
			t.Errorf("relationship %v does not involve zel", rel.Between)
		}
	}
}

func TestRelationshipPersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewFileSnapshotStore(dir)
	if err != nil {
		t.Fatalf("failed to create snapshot store: %v", err)
	}

	s := NewRelationshipService(store, nil)
	s.Improve("kira", 37)
	s.RecordInteraction("engineer", "Saved their life", 20)
	s.SetCrewRelationship("zel", "ana", models.CrewRelationRival, 7, "")
	if err := s.Save(context.Background()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	restored := NewRelationshipService(store, nil)
	r := restored.Relationship("kira")
	if r.Level != models.LevelFriendly || r.Points != 12 {
		t.Errorf("restored kira = %s/%d, want friendly/12", r.Level, r.Points)
	}
	if got := len(restored.GetSignificantInteractions("engineer")); got != 1 {
		t.Errorf("restored engineer log = %d entries, want 1", got)
	}
	if _, ok := restored.GetCrewRelationship("ana", "zel"); !ok {
		t.Error("restored crew relationship missing")
	}
}

func TestResetClearsLedger(t *testing.T) {
	s := NewRelationshipService(newTestStore(t), nil)

	s.Improve("kira", 30)
	s.SetCrewRelationship("zel", "ana", models.CrewRelationRival, 7, "")
	s.Reset()

	if level := s.GetLevel("kira"); level != models.LevelNeutral {
		t.Errorf("level after reset = %s, want neutral", level)
	}
	if got := len(s.CrewRelationships()); got != 0 {
		t.Errorf("crew relationships after reset = %d, want 0", got)
	}
}
