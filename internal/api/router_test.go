// internal/api/router_test.go
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/astralforge/stellar-odyssey/internal/config"
	"github.com/astralforge/stellar-odyssey/internal/content"
	"github.com/astralforge/stellar-odyssey/internal/di"
	"github.com/astralforge/stellar-odyssey/internal/services"
	"github.com/astralforge/stellar-odyssey/internal/storage"
)

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	contentDir := t.TempDir()
	dialogueDir := filepath.Join(contentDir, "dialogues")
	if err := os.MkdirAll(dialogueDir, 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	tree := `
id: kira_intro
speaker_id: kira
start_node_id: n1
nodes:
  - id: n1
    text: "What?"
    options:
      - id: o1
        text: "Nothing."
        relationship_effect: 2
`
	if err := os.WriteFile(filepath.Join(dialogueDir, "kira.yaml"), []byte(tree), 0644); err != nil {
		t.Fatalf("write dialogue failed: %v", err)
	}

	store, err := storage.NewFileSnapshotStore(t.TempDir())
	if err != nil {
		t.Fatalf("store setup failed: %v", err)
	}
	catalog, err := content.NewCatalogService(contentDir)
	if err != nil {
		t.Fatalf("catalog setup failed: %v", err)
	}

	hub := NewEventHub()
	relationships := services.NewRelationshipService(store, hub)
	dialogues := services.NewDialogueService(catalog, relationships, hub)
	progression := services.NewProgressionService(store, catalog, hub)

	container := di.GetContainer()
	container.Reset()
	container.Register("storage", store)
	container.Register("catalog", catalog)
	container.Register("events", hub)
	container.Register("relationships", relationships)
	container.Register("dialogues", dialogues)
	container.Register("progression", progression)
	t.Cleanup(container.Reset)

	router, err := SetupRouter(&config.Config{
		StaticDir: filepath.Join(t.TempDir(), "absent"),
	})
	if err != nil {
		t.Fatalf("SetupRouter failed: %v", err)
	}
	return router
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, *APIResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body failed: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not an API envelope: %v\n%s", err, w.Body.String())
	}
	return w, &resp
}

func TestHealthEndpoint(t *testing.T) {
	router := setupTestRouter(t)

	w, resp := doRequest(t, router, http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusOK || !resp.Success {
		t.Fatalf("health = %d success=%v", w.Code, resp.Success)
	}
}

func TestStoryAdvanceEndpoint(t *testing.T) {
	router := setupTestRouter(t)

	w, resp := doRequest(t, router, http.MethodGet, "/api/story", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get story = %d", w.Code)
	}
	data := resp.Data.(map[string]interface{})
	if data["stage"] != "intro" {
		t.Errorf("stage = %v, want intro", data["stage"])
	}

	w, resp = doRequest(t, router, http.MethodPost, "/api/story/advance", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("advance = %d", w.Code)
	}
	data = resp.Data.(map[string]interface{})
	if data["stage"] != "act1" {
		t.Errorf("stage after advance = %v, want act1", data["stage"])
	}
}

func TestSetStageValidationError(t *testing.T) {
	router := setupTestRouter(t)

	w, resp := doRequest(t, router, http.MethodPut, "/api/story/stage", map[string]string{"stage": "epilogue"})
	if w.Code != http.StatusBadRequest || resp.Success {
		t.Fatalf("bad stage = %d success=%v", w.Code, resp.Success)
	}
}

func TestRelationshipInteractionEndpoint(t *testing.T) {
	router := setupTestRouter(t)

	w, _ := doRequest(t, router, http.MethodPost, "/api/relationships/kira/interactions", map[string]interface{}{
		"description": "Helped recalibrate the nav array",
		"effect":      5,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("record interaction = %d", w.Code)
	}

	_, resp := doRequest(t, router, http.MethodGet, "/api/relationships/kira", nil)
	data := resp.Data.(map[string]interface{})
	rel := data["relationship"].(map[string]interface{})
	if rel["level"] != "neutral" || rel["points"] != float64(5) {
		t.Errorf("relationship = %v", rel)
	}
}

func TestMissionCompleteEndpoint(t *testing.T) {
	router := setupTestRouter(t)

	w, resp := doRequest(t, router, http.MethodPost, "/api/missions/complete", map[string]interface{}{
		"act":  1,
		"kind": "space",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("complete mission = %d: %s", w.Code, w.Body.String())
	}
	data := resp.Data.(map[string]interface{})
	status := data["status"].(map[string]interface{})
	if status["space_missions_completed"] != float64(1) {
		t.Errorf("status = %v", status)
	}

	// Unknown template ids are rejected.
	w, _ = doRequest(t, router, http.MethodPost, "/api/missions/complete", map[string]interface{}{
		"act":        1,
		"mission_id": "no_such_mission",
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown template = %d, want 404", w.Code)
	}
}

func TestDialogueFlowOverHTTP(t *testing.T) {
	router := setupTestRouter(t)

	w, resp := doRequest(t, router, http.MethodPost, "/api/dialogues/sessions", map[string]string{
		"tree_id": "kira_intro",
		"npc_id":  "kira",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("start dialogue = %d: %s", w.Code, w.Body.String())
	}
	data := resp.Data.(map[string]interface{})
	session := data["session"].(map[string]interface{})
	sessionID := session["id"].(string)

	w, resp = doRequest(t, router, http.MethodPost, "/api/dialogues/sessions/"+sessionID+"/select",
		map[string]string{"option_id": "o1"})
	if w.Code != http.StatusOK {
		t.Fatalf("select option = %d: %s", w.Code, w.Body.String())
	}
	data = resp.Data.(map[string]interface{})
	if data["ended"] != true {
		t.Errorf("ended = %v, want true", data["ended"])
	}

	// The session is gone afterwards.
	w, _ = doRequest(t, router, http.MethodGet, "/api/dialogues/sessions/"+sessionID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("ended session lookup = %d, want 404", w.Code)
	}
}

func TestSaveAndLoadEndpoints(t *testing.T) {
	router := setupTestRouter(t)

	doRequest(t, router, http.MethodPost, "/api/story/advance", nil)
	w, _ := doRequest(t, router, http.MethodPost, "/api/save", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("save = %d", w.Code)
	}

	w, resp := doRequest(t, router, http.MethodPost, "/api/load", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("load = %d", w.Code)
	}
	data := resp.Data.(map[string]interface{})
	if data["stage"] != "act1" {
		t.Errorf("loaded stage = %v, want act1", data["stage"])
	}
}

func TestUnknownRoute(t *testing.T) {
	router := setupTestRouter(t)

	w, resp := doRequest(t, router, http.MethodGet, "/api/nope", nil)
	if w.Code != http.StatusNotFound || resp.Success {
		t.Errorf("unknown route = %d success=%v", w.Code, resp.Success)
	}
}
