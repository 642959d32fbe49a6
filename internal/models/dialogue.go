// internal/models/dialogue.go
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// DialogueNodeType is a categorical tag for a line of crew speech.
type DialogueNodeType string

const (
	NodeGreeting     DialogueNodeType = "greeting"
	NodeCombat       DialogueNodeType = "combat"
	NodeExploration  DialogueNodeType = "exploration"
	NodeLocationInfo DialogueNodeType = "location_info"
	NodePuzzle       DialogueNodeType = "puzzle"
	NodeLore         DialogueNodeType = "lore"
	NodeAdvice       DialogueNodeType = "advice"
	NodeReaction     DialogueNodeType = "reaction"
	NodeRandom       DialogueNodeType = "random"
)

// DialogueEffect is a tagged side effect attached to a dialogue option.
// The closed set of kinds keeps effect handling exhaustively type-checked
// instead of string-matched.
type DialogueEffect interface {
	EffectKind() string
}

// UnlockEffect grants access to later content, identified by an opaque id
// handed to external collaborators.
type UnlockEffect struct {
	ContentID string
}

// RewardEffect grants an item or currency reward.
type RewardEffect struct {
	RewardID string
}

// MissionEffect makes a mission available.
type MissionEffect struct {
	MissionID string
}

// InsightEffect surfaces a lore insight to the player journal.
type InsightEffect struct {
	Text string
}

func (UnlockEffect) EffectKind() string  { return "unlock" }
func (RewardEffect) EffectKind() string  { return "reward" }
func (MissionEffect) EffectKind() string { return "mission" }
func (InsightEffect) EffectKind() string { return "insight" }

// rawEffect is the authored wire shape of an effect in content files
// and API payloads.
type rawEffect struct {
	Type  string `json:"type" yaml:"type"`
	Value string `json:"value" yaml:"value"`
}

func decodeEffect(raw rawEffect) (DialogueEffect, error) {
	switch raw.Type {
	case "unlock":
		return UnlockEffect{ContentID: raw.Value}, nil
	case "reward":
		return RewardEffect{RewardID: raw.Value}, nil
	case "mission":
		return MissionEffect{MissionID: raw.Value}, nil
	case "insight":
		return InsightEffect{Text: raw.Value}, nil
	default:
		return nil, fmt.Errorf("unknown dialogue effect type: %q", raw.Type)
	}
}

func encodeEffect(e DialogueEffect) rawEffect {
	switch eff := e.(type) {
	case UnlockEffect:
		return rawEffect{Type: "unlock", Value: eff.ContentID}
	case RewardEffect:
		return rawEffect{Type: "reward", Value: eff.RewardID}
	case MissionEffect:
		return rawEffect{Type: "mission", Value: eff.MissionID}
	case InsightEffect:
		return rawEffect{Type: "insight", Value: eff.Text}
	default:
		return rawEffect{Type: e.EffectKind()}
	}
}

// EffectList carries dialogue effects through JSON/YAML round trips.
type EffectList []DialogueEffect

func (el EffectList) MarshalJSON() ([]byte, error) {
	raws := make([]rawEffect, len(el))
	for i, e := range el {
		raws[i] = encodeEffect(e)
	}
	return json.Marshal(raws)
}

func (el *EffectList) UnmarshalJSON(data []byte) error {
	var raws []rawEffect
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	return el.fromRaw(raws)
}

func (el EffectList) MarshalYAML() (interface{}, error) {
	raws := make([]rawEffect, len(el))
	for i, e := range el {
		raws[i] = encodeEffect(e)
	}
	return raws, nil
}

func (el *EffectList) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raws []rawEffect
	if err := unmarshal(&raws); err != nil {
		return err
	}
	return el.fromRaw(raws)
}

func (el *EffectList) fromRaw(raws []rawEffect) error {
	effects := make(EffectList, 0, len(raws))
	for _, raw := range raws {
		effect, err := decodeEffect(raw)
		if err != nil {
			return err
		}
		effects = append(effects, effect)
	}
	*el = effects
	return nil
}

// DialogueOption is a player choice on a node. An absent NextNodeID ends
// the dialogue.
type DialogueOption struct {
	ID                   string             `json:"id" yaml:"id"`
	Text                 string             `json:"text" yaml:"text"`
	RelationshipEffect   int                `json:"relationship_effect,omitempty" yaml:"relationship_effect,omitempty"`
	RequiredRelationship *RelationshipLevel `json:"required_relationship,omitempty" yaml:"required_relationship,omitempty"`
	NextNodeID           string             `json:"next_node_id,omitempty" yaml:"next_node_id,omitempty"`
	SpecialEffects       EffectList         `json:"special_effects,omitempty" yaml:"special_effects,omitempty"`
}

// DialogueNode is a line of crew speech with the options the player may pick.
type DialogueNode struct {
	ID        string           `json:"id" yaml:"id"`
	Text      string           `json:"text" yaml:"text"`
	SpeakerID string           `json:"speaker_id" yaml:"speaker_id"`
	Type      DialogueNodeType `json:"type" yaml:"type"`
	Options   []DialogueOption `json:"options" yaml:"options"`
}

// DialogueAvailability gates when a tree is offered. Zero-value fields do
// not constrain.
type DialogueAvailability struct {
	MinRelationship     *RelationshipLevel `json:"min_relationship,omitempty" yaml:"min_relationship,omitempty"`
	MinStoryProgress    int                `json:"min_story_progress,omitempty" yaml:"min_story_progress,omitempty"`
	RequiredLocation    string             `json:"required_location,omitempty" yaml:"required_location,omitempty"`
	RequiredPersonality string             `json:"required_personality,omitempty" yaml:"required_personality,omitempty"`
}

// DialogueTree is one branching-conversation content graph.
type DialogueTree struct {
	ID           string                `json:"id" yaml:"id"`
	Title        string                `json:"title" yaml:"title"`
	Description  string                `json:"description" yaml:"description"`
	SpeakerID    string                `json:"speaker_id" yaml:"speaker_id"`
	StartNodeID  string                `json:"start_node_id" yaml:"start_node_id"`
	Nodes        []DialogueNode        `json:"nodes" yaml:"nodes"`
	Availability *DialogueAvailability `json:"availability,omitempty" yaml:"availability,omitempty"`
}

// Node looks a node up by id within the tree.
func (t *DialogueTree) Node(nodeID string) (*DialogueNode, bool) {
	for i := range t.Nodes {
		if t.Nodes[i].ID == nodeID {
			return &t.Nodes[i], true
		}
	}
	return nil, false
}

// DialogueSession is the ephemeral state of one running conversation.
// Revisiting a node (hub-and-return trees) is legitimate, so History may
// contain repeats.
type DialogueSession struct {
	ID              string    `json:"id"`
	TreeID          string    `json:"tree_id"`
	NPCID           string    `json:"npc_id"`
	CurrentNodeID   string    `json:"current_node_id"`
	History         []string  `json:"history"`
	SelectedOptions []string  `json:"selected_options"`
	Unlocks         []string  `json:"unlocks"`
	Ended           bool      `json:"ended"`
	StartedAt       time.Time `json:"started_at"`
}
