// internal/models/dialogue_test.go
package models

import (
	"encoding/json"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestEffectListJSONRoundTrip(t *testing.T) {
	original := EffectList{
		UnlockEffect{ContentID: "engine_room"},
		RewardEffect{RewardID: "plasma_cell"},
		MissionEffect{MissionID: "m_act2_rescue"},
		InsightEffect{Text: "The captain hides something."},
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded EffectList
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if len(decoded) != len(original) {
		t.Fatalf("got %d effects, want %d", len(decoded), len(original))
	}
	unlock, ok := decoded[0].(UnlockEffect)
	if !ok || unlock.ContentID != "engine_room" {
		t.Errorf("effect 0 = %#v, want unlock engine_room", decoded[0])
	}
	insight, ok := decoded[3].(InsightEffect)
	if !ok || insight.Text != "The captain hides something." {
		t.Errorf("effect 3 = %#v, want insight", decoded[3])
	}
}

func TestEffectListUnknownType(t *testing.T) {
	var effects EffectList
	err := json.Unmarshal([]byte(`[{"type":"teleport","value":"bridge"}]`), &effects)
	if err == nil {
		t.Fatal("expected error for unknown effect type")
	}
}

func TestDialogueTreeYAML(t *testing.T) {
	src := `
id: kira_intro
title: First Meeting
speaker_id: kira
start_node_id: n1
availability:
  min_relationship: cooperative
  min_story_progress: 2
nodes:
  - id: n1
    text: "What do you want?"
    speaker_id: kira
    type: greeting
    options:
      - id: o1
        text: "Just checking in."
        relationship_effect: 2
        next_node_id: n2
      - id: o2
        text: "Tell me your secret."
        required_relationship: friendly
        special_effects:
          - type: unlock
            value: kira_backstory
  - id: n2
    text: "Fine. Carry on."
`
	var tree DialogueTree
	if err := yaml.Unmarshal([]byte(src), &tree); err != nil {
		t.Fatalf("yaml unmarshal failed: %v", err)
	}

	if tree.ID != "kira_intro" || tree.StartNodeID != "n1" {
		t.Fatalf("tree header = %s/%s", tree.ID, tree.StartNodeID)
	}
	if tree.Availability == nil || tree.Availability.MinRelationship == nil ||
		*tree.Availability.MinRelationship != LevelCooperative {
		t.Error("availability min_relationship should parse as cooperative")
	}

	node, ok := tree.Node("n1")
	if !ok {
		t.Fatal("node n1 not found")
	}
	if len(node.Options) != 2 {
		t.Fatalf("got %d options, want 2", len(node.Options))
	}
	if node.Options[0].RelationshipEffect != 2 || node.Options[0].NextNodeID != "n2" {
		t.Errorf("option o1 = %+v", node.Options[0])
	}
	if node.Options[1].RequiredRelationship == nil ||
		*node.Options[1].RequiredRelationship != LevelFriendly {
		t.Error("option o2 should require friendly")
	}
	if len(node.Options[1].SpecialEffects) != 1 {
		t.Fatalf("option o2 effects = %d, want 1", len(node.Options[1].SpecialEffects))
	}
	if unlock, ok := node.Options[1].SpecialEffects[0].(UnlockEffect); !ok || unlock.ContentID != "kira_backstory" {
		t.Errorf("effect = %#v, want unlock kira_backstory", node.Options[1].SpecialEffects[0])
	}

	// A terminal node has no options; its presence still resolves.
	if _, ok := tree.Node("n2"); !ok {
		t.Error("node n2 not found")
	}
	if _, ok := tree.Node("missing"); ok {
		t.Error("lookup of a missing node should fail")
	}
}
