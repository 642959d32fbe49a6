// internal/api/router.go
package api

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/astralforge/stellar-odyssey/internal/config"
	"github.com/astralforge/stellar-odyssey/internal/content"
	"github.com/astralforge/stellar-odyssey/internal/di"
	"github.com/astralforge/stellar-odyssey/internal/services"
)

// SetupRouter wires HTTP routes over the services registered in the DI
// container. Services are only fetched, never created here.
func SetupRouter(cfg *config.Config) (*gin.Engine, error) {
	container := di.GetContainer()

	catalog, ok := container.Get("catalog").(*content.CatalogService)
	if !ok {
		return nil, fmt.Errorf("catalog service not initialized")
	}
	relationships, ok := container.Get("relationships").(*services.RelationshipService)
	if !ok {
		return nil, fmt.Errorf("relationship service not initialized")
	}
	dialogues, ok := container.Get("dialogues").(*services.DialogueService)
	if !ok {
		return nil, fmt.Errorf("dialogue service not initialized")
	}
	progression, ok := container.Get("progression").(*services.ProgressionService)
	if !ok {
		return nil, fmt.Errorf("progression service not initialized")
	}
	hub, ok := container.Get("events").(*EventHub)
	if !ok {
		return nil, fmt.Errorf("event hub not initialized")
	}

	handler := NewHandler(catalog, relationships, dialogues, progression, hub)

	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	// Browser client assets, when present.
	if info, err := os.Stat(cfg.StaticDir); err == nil && info.IsDir() {
		r.Static("/static", cfg.StaticDir)
		r.StaticFile("/", cfg.StaticDir+"/index.html")
	}

	apiGroup := r.Group("/api")
	{
		story := apiGroup.Group("/story")
		{
			story.GET("", handler.GetStory)
			story.POST("/advance", handler.AdvanceStory)
			story.PUT("/stage", handler.SetStage)
		}

		missions := apiGroup.Group("/missions")
		{
			missions.GET("", handler.GetMissions)
			missions.GET("/acts/:act", handler.GetActStatus)
			missions.POST("/complete", handler.CompleteMission)
		}

		crew := apiGroup.Group("/crew")
		{
			crew.GET("", handler.GetCrew)
			crew.GET("/relationships", handler.GetCrewRelationships)
			crew.POST("/relationships", handler.SetCrewRelationship)
			crew.POST("/relationships/reveal", handler.RevealCrewRelationship)
			crew.GET("/:npc_id/relationships", handler.GetCrewRelationshipsFor)
		}

		relationshipsGroup := apiGroup.Group("/relationships")
		{
			relationshipsGroup.GET("", handler.GetRelationships)
			relationshipsGroup.GET("/:npc_id", handler.GetRelationship)
			relationshipsGroup.POST("/:npc_id/interactions", handler.RecordInteraction)
			relationshipsGroup.GET("/:npc_id/interactions", handler.GetInteractions)
			relationshipsGroup.POST("/:npc_id/quest", handler.UpdateQuestProgress)
			relationshipsGroup.POST("/:npc_id/quest/complete", handler.CompleteQuest)
		}

		dialoguesGroup := apiGroup.Group("/dialogues")
		{
			dialoguesGroup.GET("/available/:npc_id", handler.GetAvailableDialogues)
			dialoguesGroup.POST("/sessions", handler.StartDialogue)
			dialoguesGroup.GET("/sessions/:session_id", handler.GetDialogueState)
			dialoguesGroup.POST("/sessions/:session_id/select", handler.SelectDialogueOption)
			dialoguesGroup.DELETE("/sessions/:session_id", handler.CloseDialogue)
		}

		apiGroup.POST("/save", handler.SaveGame)
		apiGroup.POST("/load", handler.LoadGame)
		apiGroup.GET("/health", handler.GetHealth)
		apiGroup.GET("/content/problems", handler.GetContentProblems)
	}

	r.GET("/ws/events", hub.HandleConnection)

	r.NoRoute(func(c *gin.Context) {
		handler.Responses.Error(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})

	return r, nil
}
