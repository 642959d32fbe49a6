// internal/api/handlers.go
package api

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/astralforge/stellar-odyssey/internal/content"
	"github.com/astralforge/stellar-odyssey/internal/models"
	"github.com/astralforge/stellar-odyssey/internal/services"
)

// Handler bundles the services behind the HTTP surface.
type Handler struct {
	Catalog       *content.CatalogService
	Relationships *services.RelationshipService
	Dialogues     *services.DialogueService
	Progression   *services.ProgressionService
	Hub           *EventHub

	Responses *ResponseHelper
}

// NewHandler creates the API handler over already-initialized services.
func NewHandler(
	catalog *content.CatalogService,
	relationships *services.RelationshipService,
	dialogues *services.DialogueService,
	progression *services.ProgressionService,
	hub *EventHub,
) *Handler {
	return &Handler{
		Catalog:       catalog,
		Relationships: relationships,
		Dialogues:     dialogues,
		Progression:   progression,
		Hub:           hub,
		Responses:     NewResponseHelper(),
	}
}

// ----------------------------------------
// Story progression
// ----------------------------------------

// GetStory returns the current stage and per-act mission counters.
func (h *Handler) GetStory(c *gin.Context) {
	stage := h.Progression.GetStage()
	h.Responses.Success(c, gin.H{
		"stage":       stage,
		"act":         stage.ActNumber(),
		"is_act":      stage.IsAct(),
		"is_cutscene": stage.IsCutscene(),
		"acts":        h.Progression.ActStatuses(),
	})
}

// AdvanceStory moves the story to the next stage.
func (h *Handler) AdvanceStory(c *gin.Context) {
	stage := h.Progression.Advance()
	h.Responses.Success(c, gin.H{"stage": stage})
}

// SetStage jumps the story to an explicit stage.
func (h *Handler) SetStage(c *gin.Context) {
	var req struct {
		Stage string `json:"stage" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Responses.BadRequest(c, "stage is required")
		return
	}

	stage, err := models.ParseStage(req.Stage)
	if err != nil {
		h.Responses.BadRequest(c, err.Error())
		return
	}
	if err := h.Progression.SetStage(stage); err != nil {
		h.Responses.FromError(c, err)
		return
	}
	h.Responses.Success(c, gin.H{"stage": stage})
}

// ----------------------------------------
// Missions
// ----------------------------------------

// GetMissions returns mission templates plus per-act completion status.
func (h *Handler) GetMissions(c *gin.Context) {
	h.Responses.Success(c, gin.H{
		"templates": h.Catalog.MissionTemplates(),
		"acts":      h.Progression.ActStatuses(),
	})
}

// GetActStatus returns one act's counters.
func (h *Handler) GetActStatus(c *gin.Context) {
	act, err := strconv.Atoi(c.Param("act"))
	if err != nil {
		h.Responses.BadRequest(c, "act must be a number")
		return
	}
	status, serr := h.Progression.ActStatus(act)
	if serr != nil {
		h.Responses.FromError(c, serr)
		return
	}
	h.Responses.Success(c, status)
}

// CompleteMission counts a finished mission toward an act. The mission's
// class comes from its template themes, or from an explicit kind for
// ad-hoc missions.
func (h *Handler) CompleteMission(c *gin.Context) {
	var req struct {
		Act       int    `json:"act" binding:"required"`
		MissionID string `json:"mission_id"`
		Kind      string `json:"kind"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Responses.BadRequest(c, "act is required")
		return
	}

	var class models.MissionClass
	switch {
	case req.MissionID != "":
		template, ok := h.Catalog.MissionTemplate(req.MissionID)
		if !ok {
			h.Responses.NotFound(c, fmt.Sprintf("mission template %q not found", req.MissionID))
			return
		}
		class = h.Progression.ClassifyMission(template.Themes)
	case req.Kind == "space":
		class.IsSpace = true
	case req.Kind == "land":
		class.IsLand = true
	default:
		h.Responses.BadRequest(c, "mission_id or kind (space|land) is required")
		return
	}

	if class.IsSpace {
		if err := h.Progression.CompleteSpaceMission(req.Act); err != nil {
			h.Responses.FromError(c, err)
			return
		}
	}
	if class.IsLand {
		if err := h.Progression.CompleteLandMission(req.Act); err != nil {
			h.Responses.FromError(c, err)
			return
		}
	}

	status, err := h.Progression.ActStatus(req.Act)
	if err != nil {
		h.Responses.FromError(c, err)
		return
	}
	h.Responses.Success(c, gin.H{
		"class":  class,
		"status": status,
		"stage":  h.Progression.GetStage(),
	})
}

// ----------------------------------------
// Crew and relationships
// ----------------------------------------

// GetCrew lists crew member definitions.
func (h *Handler) GetCrew(c *gin.Context) {
	h.Responses.Success(c, h.Catalog.CrewMembers())
}

// GetRelationships lists the player's standing with every known crew
// member.
func (h *Handler) GetRelationships(c *gin.Context) {
	h.Responses.Success(c, h.Relationships.Relationships())
}

// GetRelationship returns the player's standing with one crew member.
func (h *Handler) GetRelationship(c *gin.Context) {
	npcID := c.Param("npc_id")
	h.Responses.Success(c, gin.H{
		"relationship": h.Relationships.Relationship(npcID),
		"progress":     h.Relationships.GetProgress(npcID),
	})
}

// RecordInteraction logs a significant interaction and applies its
// relationship effect.
func (h *Handler) RecordInteraction(c *gin.Context) {
	npcID := c.Param("npc_id")
	var req struct {
		Description string `json:"description" binding:"required"`
		Effect      int    `json:"effect"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Responses.BadRequest(c, "description is required")
		return
	}

	interaction := h.Relationships.RecordInteraction(npcID, req.Description, req.Effect)
	h.Responses.Created(c, gin.H{
		"interaction":  interaction,
		"relationship": h.Relationships.Relationship(npcID),
	})
}

// GetInteractions returns the significant interaction log for one crew
// member.
func (h *Handler) GetInteractions(c *gin.Context) {
	h.Responses.Success(c, h.Relationships.GetSignificantInteractions(c.Param("npc_id")))
}

// UpdateQuestProgress advances a crew member's personal quest.
func (h *Handler) UpdateQuestProgress(c *gin.Context) {
	npcID := c.Param("npc_id")
	var req struct {
		Delta int `json:"delta" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Responses.BadRequest(c, "delta is required")
		return
	}

	h.Relationships.UpdateQuestProgress(npcID, req.Delta)
	h.Responses.Success(c, h.Relationships.Relationship(npcID))
}

// CompleteQuest marks a crew member's personal quest finished outright.
func (h *Handler) CompleteQuest(c *gin.Context) {
	npcID := c.Param("npc_id")
	h.Relationships.CompleteQuest(npcID)
	h.Responses.Success(c, h.Relationships.Relationship(npcID))
}

// GetCrewRelationships lists relationships between crew members. Hidden
// relationships are filtered out unless all=true is passed, which is a
// debugging affordance.
func (h *Handler) GetCrewRelationships(c *gin.Context) {
	all := c.Query("all") == "true"

	var result []models.CrewRelationship
	for _, rel := range h.Relationships.CrewRelationships() {
		if rel.VisibleToPlayer || all {
			result = append(result, rel)
		}
	}
	h.Responses.Success(c, result)
}

// GetCrewRelationshipsFor lists the visible relationships involving one
// crew member.
func (h *Handler) GetCrewRelationshipsFor(c *gin.Context) {
	npcID := c.Param("npc_id")

	var result []models.CrewRelationship
	for _, rel := range h.Relationships.GetRelationshipsFor(npcID) {
		if rel.VisibleToPlayer {
			result = append(result, rel)
		}
	}
	h.Responses.Success(c, result)
}

// SetCrewRelationship defines or replaces the relationship between two
// crew members. New relationships start hidden.
func (h *Handler) SetCrewRelationship(c *gin.Context) {
	var req struct {
		Between    [2]string `json:"between" binding:"required"`
		Type       string    `json:"type" binding:"required"`
		Strength   int       `json:"strength" binding:"required"`
		Background string    `json:"background"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Responses.BadRequest(c, "between, type and strength are required")
		return
	}

	err := h.Relationships.SetCrewRelationship(
		req.Between[0], req.Between[1],
		models.CrewRelationType(req.Type), req.Strength, req.Background)
	if err != nil {
		h.Responses.FromError(c, err)
		return
	}

	rel, _ := h.Relationships.GetCrewRelationship(req.Between[0], req.Between[1])
	h.Responses.Created(c, rel)
}

// RevealCrewRelationship makes a hidden crew relationship visible.
func (h *Handler) RevealCrewRelationship(c *gin.Context) {
	var req struct {
		Between [2]string `json:"between" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Responses.BadRequest(c, "between is required")
		return
	}

	if !h.Relationships.Reveal(req.Between[0], req.Between[1]) {
		h.Responses.NotFound(c, "no relationship between those crew members")
		return
	}
	rel, _ := h.Relationships.GetCrewRelationship(req.Between[0], req.Between[1])
	h.Responses.Success(c, rel)
}

// ----------------------------------------
// Dialogues
// ----------------------------------------

// GetAvailableDialogues lists the trees a crew member currently offers,
// given the player's standing and story position.
func (h *Handler) GetAvailableDialogues(c *gin.Context) {
	npcID := c.Param("npc_id")

	personality := ""
	if member, ok := h.Catalog.CrewMember(npcID); ok {
		personality = member.Personality
	}
	level := h.Relationships.GetLevel(npcID)
	storyProgress := h.Progression.CurrentActNumber()
	location := c.Query("location")

	trees := h.Dialogues.ListAvailableTrees(npcID, personality, level, storyProgress, location)
	h.Responses.Success(c, trees)
}

// StartDialogue opens a session on a tree.
func (h *Handler) StartDialogue(c *gin.Context) {
	var req struct {
		TreeID string `json:"tree_id" binding:"required"`
		NPCID  string `json:"npc_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Responses.BadRequest(c, "tree_id and npc_id are required")
		return
	}

	session, err := h.Dialogues.StartSession(req.TreeID, req.NPCID)
	if err != nil {
		h.Responses.FromError(c, err)
		return
	}

	node, err := h.Dialogues.CurrentNode(session.ID)
	if err != nil {
		h.Responses.FromError(c, err)
		return
	}
	options, err := h.Dialogues.AvailableOptions(session.ID)
	if err != nil {
		h.Responses.FromError(c, err)
		return
	}

	h.Responses.Created(c, gin.H{
		"session": session,
		"node":    node,
		"options": options,
	})
}

// GetDialogueState returns the session's current node and options.
func (h *Handler) GetDialogueState(c *gin.Context) {
	sessionID := c.Param("session_id")

	session, ok := h.Dialogues.Session(sessionID)
	if !ok {
		h.Responses.NotFound(c, fmt.Sprintf("dialogue session %q not found", sessionID))
		return
	}
	node, err := h.Dialogues.CurrentNode(sessionID)
	if err != nil {
		h.Responses.FromError(c, err)
		return
	}
	options, err := h.Dialogues.AvailableOptions(sessionID)
	if err != nil {
		h.Responses.FromError(c, err)
		return
	}

	h.Responses.Success(c, gin.H{
		"session": session,
		"node":    node,
		"options": options,
	})
}

// SelectDialogueOption applies a player's choice.
func (h *Handler) SelectDialogueOption(c *gin.Context) {
	sessionID := c.Param("session_id")
	var req struct {
		OptionID string `json:"option_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Responses.BadRequest(c, "option_id is required")
		return
	}

	result, err := h.Dialogues.SelectOption(sessionID, req.OptionID)
	if err != nil {
		h.Responses.FromError(c, err)
		return
	}

	payload := gin.H{
		"ended":   result.Ended,
		"session": result.Session,
	}
	if result.Ended {
		payload["unlocks"] = result.Unlocks
	} else {
		payload["node"] = result.Node
		options, err := h.Dialogues.AvailableOptions(sessionID)
		if err != nil {
			h.Responses.FromError(c, err)
			return
		}
		payload["options"] = options
	}
	h.Responses.Success(c, payload)
}

// CloseDialogue abandons an open session.
func (h *Handler) CloseDialogue(c *gin.Context) {
	result, err := h.Dialogues.CloseSession(c.Param("session_id"))
	if err != nil {
		h.Responses.FromError(c, err)
		return
	}
	h.Responses.Success(c, gin.H{
		"ended":   result.Ended,
		"unlocks": result.Unlocks,
	})
}

// ----------------------------------------
// Save, load, health
// ----------------------------------------

// SaveGame snapshots the ledger and the progression state.
func (h *Handler) SaveGame(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.Relationships.Save(ctx); err != nil {
		h.Responses.FromError(c, err)
		return
	}
	if err := h.Progression.Save(ctx); err != nil {
		h.Responses.FromError(c, err)
		return
	}
	h.Responses.Success(c, nil, "game saved")
}

// LoadGame restores the last snapshots.
func (h *Handler) LoadGame(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.Relationships.Load(ctx); err != nil {
		h.Responses.FromError(c, err)
		return
	}
	if err := h.Progression.Load(ctx); err != nil {
		h.Responses.FromError(c, err)
		return
	}
	h.Responses.Success(c, gin.H{
		"stage":         h.Progression.GetStage(),
		"relationships": h.Relationships.Relationships(),
	}, "game loaded")
}

// GetHealth reports process liveness plus catalog and connection stats.
func (h *Handler) GetHealth(c *gin.Context) {
	h.Responses.Success(c, gin.H{
		"status":           "ok",
		"dialogue_trees":   len(h.Catalog.Trees()),
		"crew_members":     len(h.Catalog.CrewMembers()),
		"content_problems": len(h.Catalog.Problems),
		"active_dialogues": h.Dialogues.ActiveSessions(),
		"event_clients":    h.Hub.ClientCount(),
	})
}

// GetContentProblems returns the catalog validation report.
func (h *Handler) GetContentProblems(c *gin.Context) {
	h.Responses.Success(c, h.Catalog.Problems)
}
