// internal/services/dialogue_service.go
package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/astralforge/stellar-odyssey/internal/content"
	apperrors "github.com/astralforge/stellar-odyssey/internal/errors"
	"github.com/astralforge/stellar-odyssey/internal/logger"
	"github.com/astralforge/stellar-odyssey/internal/models"
)

// DialogueService traverses the dialogue tree catalog: it resolves which
// trees and options are currently offered, applies option side effects
// through the relationship ledger, and advances per-session state until a
// terminal option ends the conversation.
//
// Sessions are ephemeral: they live only until the dialogue ends or is
// closed, and are never persisted.
type DialogueService struct {
	catalog       *content.CatalogService
	relationships *RelationshipService
	events        EventPublisher
	log           *logger.Logger

	mu       sync.RWMutex
	sessions map[string]*dialogueSessionState
}

// dialogueSessionState guards one conversation. Every read or mutation of
// the session struct happens under mu; the service-level lock only covers
// the sessions map, so two requests racing on the same session id
// serialize here instead of interleaving the select transition.
type dialogueSessionState struct {
	mu      sync.Mutex
	session *models.DialogueSession
	tree    *models.DialogueTree
}

// OptionAvailability pairs an option with whether the player can pick it
// at their current relationship level.
type OptionAvailability struct {
	Option     models.DialogueOption `json:"option"`
	Selectable bool                  `json:"selectable"`
}

// SelectionResult is the outcome of one option selection. When the
// dialogue ends, Unlocks carries the session's accumulated unlock ids,
// reported exactly once. Session is a detached copy; callers never hold
// a reference into live session state.
type SelectionResult struct {
	Ended   bool                   `json:"ended"`
	Node    *models.DialogueNode   `json:"node,omitempty"`
	Unlocks []string               `json:"unlocks,omitempty"`
	Session models.DialogueSession `json:"session"`
}

// NewDialogueService creates the dialogue engine over the loaded catalog.
func NewDialogueService(catalog *content.CatalogService, relationships *RelationshipService, events EventPublisher) *DialogueService {
	if events == nil {
		events = NopPublisher{}
	}
	return &DialogueService{
		catalog:       catalog,
		relationships: relationships,
		events:        events,
		log:           logger.Get(),
		sessions:      make(map[string]*dialogueSessionState),
	}
}

// FindTree looks up a dialogue tree in the catalog.
func (s *DialogueService) FindTree(treeID string) (*models.DialogueTree, bool) {
	return s.catalog.Tree(treeID)
}

// FindNode looks up a node within a tree.
func (s *DialogueService) FindNode(tree *models.DialogueTree, nodeID string) (*models.DialogueNode, bool) {
	if tree == nil {
		return nil, false
	}
	return tree.Node(nodeID)
}

// ListAvailableTrees filters the catalog to the trees a crew member
// currently offers. Each availability constraint only applies when set;
// a tree with no availability block is always offered.
func (s *DialogueService) ListAvailableTrees(npcID, personality string, level models.RelationshipLevel, storyProgress int, currentLocation string) []*models.DialogueTree {
	var result []*models.DialogueTree
	for _, tree := range s.catalog.Trees() {
		if tree.SpeakerID != "" && tree.SpeakerID != npcID {
			continue
		}
		if !availabilityMatches(tree.Availability, personality, level, storyProgress, currentLocation) {
			continue
		}
		result = append(result, tree)
	}
	return result
}

func availabilityMatches(a *models.DialogueAvailability, personality string, level models.RelationshipLevel, storyProgress int, currentLocation string) bool {
	if a == nil {
		return true
	}
	if a.MinRelationship != nil && !level.Meets(*a.MinRelationship) {
		return false
	}
	if a.RequiredPersonality != "" && a.RequiredPersonality != personality {
		return false
	}
	if storyProgress < a.MinStoryProgress {
		return false
	}
	if a.RequiredLocation != "" && a.RequiredLocation != currentLocation {
		return false
	}
	return true
}

// IsOptionSelectable reports whether an option can be picked at the given
// relationship level.
func (s *DialogueService) IsOptionSelectable(option models.DialogueOption, level models.RelationshipLevel) bool {
	if option.RequiredRelationship == nil {
		return true
	}
	return level.Meets(*option.RequiredRelationship)
}

// StartSession opens a dialogue session at the tree's start node and
// returns a detached copy of it.
func (s *DialogueService) StartSession(treeID, npcID string) (models.DialogueSession, error) {
	tree, ok := s.catalog.Tree(treeID)
	if !ok {
		return models.DialogueSession{}, apperrors.NewNotFoundError(
			fmt.Sprintf("dialogue tree %q not found", treeID), nil)
	}
	if _, ok := tree.Node(tree.StartNodeID); !ok {
		// Authoring defect; cannot open a conversation with no first line.
		s.log.Error("dialogue tree start node missing", map[string]interface{}{
			"tree": treeID,
			"node": tree.StartNodeID,
		})
		return models.DialogueSession{}, apperrors.NewContentError(
			fmt.Sprintf("dialogue tree %q has no start node %q", treeID, tree.StartNodeID), nil)
	}

	session := &models.DialogueSession{
		ID:            fmt.Sprintf("dialogue_%d", time.Now().UnixNano()),
		TreeID:        treeID,
		NPCID:         npcID,
		CurrentNodeID: tree.StartNodeID,
		History:       []string{tree.StartNodeID},
		StartedAt:     time.Now(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = &dialogueSessionState{session: session, tree: tree}
	s.mu.Unlock()

	return copySession(session), nil
}

func (s *DialogueService) state(sessionID string) (*dialogueSessionState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.sessions[sessionID]
	return state, ok
}

// copySession detaches a session from live state, cloning the slices so
// later transitions cannot write into a value a caller still holds.
func copySession(session *models.DialogueSession) models.DialogueSession {
	cp := *session
	cp.History = append([]string(nil), session.History...)
	cp.SelectedOptions = append([]string(nil), session.SelectedOptions...)
	cp.Unlocks = append([]string(nil), session.Unlocks...)
	return cp
}

// Session returns a snapshot of a running session.
func (s *DialogueService) Session(sessionID string) (models.DialogueSession, bool) {
	state, ok := s.state(sessionID)
	if !ok {
		return models.DialogueSession{}, false
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	return copySession(state.session), true
}

// CurrentNode returns the node the session is waiting on.
func (s *DialogueService) CurrentNode(sessionID string) (*models.DialogueNode, error) {
	state, ok := s.state(sessionID)
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("dialogue session %q not found", sessionID), nil)
	}

	state.mu.Lock()
	nodeID := state.session.CurrentNodeID
	state.mu.Unlock()

	node, found := state.tree.Node(nodeID)
	if !found {
		return nil, apperrors.NewContentError(
			fmt.Sprintf("dialogue session %q is at missing node %q", sessionID, nodeID), nil)
	}
	return node, nil
}

// AvailableOptions returns the current node's options with selectability
// resolved against the player's relationship with the session's speaker.
func (s *DialogueService) AvailableOptions(sessionID string) ([]OptionAvailability, error) {
	state, ok := s.state(sessionID)
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("dialogue session %q not found", sessionID), nil)
	}

	state.mu.Lock()
	nodeID := state.session.CurrentNodeID
	npcID := state.session.NPCID
	state.mu.Unlock()

	node, found := state.tree.Node(nodeID)
	if !found {
		return nil, apperrors.NewContentError(
			fmt.Sprintf("dialogue session %q is at missing node %q", sessionID, nodeID), nil)
	}

	level := s.relationships.GetLevel(npcID)
	result := make([]OptionAvailability, 0, len(node.Options))
	for _, option := range node.Options {
		result = append(result, OptionAvailability{
			Option:     option,
			Selectable: s.IsOptionSelectable(option, level),
		})
	}
	return result, nil
}

// SelectOption applies a player's choice: it records the selection,
// applies the relationship effect through the ledger, accumulates unlock
// effects, and either advances to the next node or ends the dialogue.
// The whole transition runs under the session lock, so two requests
// racing on one session serialize instead of interleaving.
// A dangling next-node reference ends the dialogue instead of crashing.
func (s *DialogueService) SelectOption(sessionID, optionID string) (*SelectionResult, error) {
	state, ok := s.state(sessionID)
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("dialogue session %q not found", sessionID), nil)
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	session, tree := state.session, state.tree
	if session.Ended {
		// Lost a race with an ending select or close on this session.
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("dialogue session %q not found", sessionID), nil)
	}

	node, found := tree.Node(session.CurrentNodeID)
	if !found {
		return nil, apperrors.NewContentError(
			fmt.Sprintf("dialogue session %q is at missing node %q", sessionID, session.CurrentNodeID), nil)
	}

	var option *models.DialogueOption
	for i := range node.Options {
		if node.Options[i].ID == optionID {
			option = &node.Options[i]
			break
		}
	}
	if option == nil {
		return nil, apperrors.NewNotFoundError(
			fmt.Sprintf("option %q not found on node %q", optionID, node.ID), nil)
	}

	level := s.relationships.GetLevel(session.NPCID)
	if !s.IsOptionSelectable(*option, level) {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("option %q requires relationship %s", optionID, option.RequiredRelationship), nil)
	}

	session.SelectedOptions = append(session.SelectedOptions, option.ID)

	if option.RelationshipEffect != 0 {
		s.relationships.RecordInteraction(session.NPCID,
			fmt.Sprintf("Dialogue: %s", option.Text), option.RelationshipEffect)
	}

	s.applyEffects(session, option.SpecialEffects)

	if option.NextNodeID == "" {
		return s.endLocked(state), nil
	}

	next, found := tree.Node(option.NextNodeID)
	if !found {
		// Content defect: the option points at a node that does not
		// exist. The conversation ends here rather than crashing.
		s.log.Error("dangling dialogue node reference", map[string]interface{}{
			"tree":   tree.ID,
			"node":   node.ID,
			"option": option.ID,
			"next":   option.NextNodeID,
		})
		return s.endLocked(state), nil
	}

	session.CurrentNodeID = next.ID
	session.History = append(session.History, next.ID)

	return &SelectionResult{
		Ended:   false,
		Node:    next,
		Session: copySession(session),
	}, nil
}

// applyEffects handles each special effect by kind. Unlocks accumulate on
// the session until the dialogue ends; the other kinds are handed to
// external collaborators through the event stream as they occur.
func (s *DialogueService) applyEffects(session *models.DialogueSession, effects models.EffectList) {
	for _, effect := range effects {
		switch eff := effect.(type) {
		case models.UnlockEffect:
			session.Unlocks = append(session.Unlocks, eff.ContentID)
		case models.RewardEffect:
			s.events.Publish("dialogue_reward", map[string]interface{}{
				"npc_id": session.NPCID, "reward_id": eff.RewardID,
			})
		case models.MissionEffect:
			s.events.Publish("dialogue_mission", map[string]interface{}{
				"npc_id": session.NPCID, "mission_id": eff.MissionID,
			})
		case models.InsightEffect:
			s.events.Publish("dialogue_insight", map[string]interface{}{
				"npc_id": session.NPCID, "text": eff.Text,
			})
		}
	}
}

// endLocked terminates and discards a session, reporting accumulated
// unlocks exactly once. Callers must hold state.mu; the service lock is
// only taken after, so lock order is always session then map.
func (s *DialogueService) endLocked(state *dialogueSessionState) *SelectionResult {
	session := state.session
	session.Ended = true

	s.mu.Lock()
	delete(s.sessions, session.ID)
	s.mu.Unlock()

	for _, unlock := range session.Unlocks {
		s.events.Publish(EventDialogueUnlock, map[string]interface{}{
			"npc_id":  session.NPCID,
			"content": unlock,
		})
	}

	return &SelectionResult{
		Ended:   true,
		Unlocks: session.Unlocks,
		Session: copySession(session),
	}
}

// CloseSession discards a session without finishing the conversation.
func (s *DialogueService) CloseSession(sessionID string) (*SelectionResult, error) {
	state, ok := s.state(sessionID)
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("dialogue session %q not found", sessionID), nil)
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	if state.session.Ended {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("dialogue session %q not found", sessionID), nil)
	}
	return s.endLocked(state), nil
}

// ActiveSessions reports how many conversations are currently open.
func (s *DialogueService) ActiveSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
