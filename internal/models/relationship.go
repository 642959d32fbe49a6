// internal/models/relationship.go
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RelationshipLevel is the five-rung tier summarizing player standing
// with a crew member. Levels form a total order.
type RelationshipLevel int

const (
	LevelDistrustful RelationshipLevel = iota
	LevelNeutral
	LevelCooperative
	LevelFriendly
	LevelDevoted
)

// levelThresholds is the cumulative point table the level widths derive
// from. Advancing past level L costs levelThresholds[L]-levelThresholds[L-1].
var levelThresholds = [...]int{
	LevelDistrustful: 0,
	LevelNeutral:     10,
	LevelCooperative: 25,
	LevelFriendly:    50,
	LevelDevoted:     100,
}

var levelNames = [...]string{
	LevelDistrustful: "distrustful",
	LevelNeutral:     "neutral",
	LevelCooperative: "cooperative",
	LevelFriendly:    "friendly",
	LevelDevoted:     "devoted",
}

func (l RelationshipLevel) Valid() bool {
	return l >= LevelDistrustful && l <= LevelDevoted
}

func (l RelationshipLevel) String() string {
	if !l.Valid() {
		return fmt.Sprintf("RelationshipLevel(%d)", int(l))
	}
	return levelNames[l]
}

// PointsToAdvance returns the points needed to advance past l.
// Distrustful costs 0, so any improvement promotes straight into Neutral.
// For Devoted the value is the ceiling points clamp at.
func (l RelationshipLevel) PointsToAdvance() int {
	if l <= LevelDistrustful {
		return 0
	}
	if l > LevelDevoted {
		l = LevelDevoted
	}
	return levelThresholds[l] - levelThresholds[l-1]
}

// Meets reports whether l satisfies a required minimum level.
func (l RelationshipLevel) Meets(required RelationshipLevel) bool {
	return l >= required
}

// ParseRelationshipLevel converts a stored/content name back to a level.
func ParseRelationshipLevel(s string) (RelationshipLevel, error) {
	for i, name := range levelNames {
		if strings.EqualFold(s, name) {
			return RelationshipLevel(i), nil
		}
	}
	return LevelNeutral, fmt.Errorf("unknown relationship level: %q", s)
}

func (l RelationshipLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *RelationshipLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRelationshipLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

func (l RelationshipLevel) MarshalYAML() (interface{}, error) {
	return l.String(), nil
}

func (l *RelationshipLevel) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseRelationshipLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// SignificantInteraction is one logged, timestamped event that changed a
// relationship score. The log is append-only and never reordered.
type SignificantInteraction struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Effect      int       `json:"effect"`
	Timestamp   time.Time `json:"timestamp"`
}

// PlayerRelationship tracks the player's standing with one crew member.
type PlayerRelationship struct {
	NPCID                   string                   `json:"npc_id"`
	Level                   RelationshipLevel        `json:"level"`
	Points                  int                      `json:"points"`
	PersonalQuestProgress   int                      `json:"personal_quest_progress"`
	PersonalQuestCompleted  bool                     `json:"personal_quest_completed"`
	SignificantInteractions []SignificantInteraction `json:"significant_interactions"`
}

// NewPlayerRelationship returns the default entry created on first access.
func NewPlayerRelationship(npcID string) *PlayerRelationship {
	return &PlayerRelationship{
		NPCID:  npcID,
		Level:  LevelNeutral,
		Points: 0,
	}
}

// MaxPoints is the points target for the current level, for UI progress bars.
func (r *PlayerRelationship) MaxPoints() int {
	return r.Level.PointsToAdvance()
}

// CrewRelationType classifies a relationship between two crew members.
type CrewRelationType string

const (
	CrewRelationFriend       CrewRelationType = "friend"
	CrewRelationRival        CrewRelationType = "rival"
	CrewRelationAntagonist   CrewRelationType = "antagonist"
	CrewRelationFamily       CrewRelationType = "family"
	CrewRelationMentor       CrewRelationType = "mentor"
	CrewRelationRomantic     CrewRelationType = "romantic"
	CrewRelationProfessional CrewRelationType = "professional"
)

func (t CrewRelationType) Valid() bool {
	switch t {
	case CrewRelationFriend, CrewRelationRival, CrewRelationAntagonist,
		CrewRelationFamily, CrewRelationMentor, CrewRelationRomantic,
		CrewRelationProfessional:
		return true
	}
	return false
}

// CrewRelationship is an undirected, hidden-until-revealed link between two
// crew members, independent of the player's own standing with either.
type CrewRelationship struct {
	Between         [2]string        `json:"between"`
	Type            CrewRelationType `json:"type"`
	Strength        int              `json:"strength"` // 1..10
	Background      string           `json:"background,omitempty"`
	VisibleToPlayer bool             `json:"visible_to_player"`
}

// CanonicalPair orders two crew ids so pair lookups are order-independent.
func CanonicalPair(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}

// Involves reports whether the relationship touches the given crew member.
func (cr *CrewRelationship) Involves(npcID string) bool {
	return cr.Between[0] == npcID || cr.Between[1] == npcID
}

// RelationshipProgress is the UI progress-bar view of a relationship.
type RelationshipProgress struct {
	Current int `json:"current"`
	Target  int `json:"target"`
}
