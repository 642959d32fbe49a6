// internal/content/catalog.go
package content

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/astralforge/stellar-odyssey/internal/errors"
	"github.com/astralforge/stellar-odyssey/internal/logger"
	"github.com/astralforge/stellar-odyssey/internal/models"
)

// CatalogService holds the static content catalog: dialogue trees, crew
// member definitions and mission templates. Content is read once at
// startup and treated as immutable afterwards.
type CatalogService struct {
	trees    map[string]*models.DialogueTree
	treeIDs  []string // stable listing order
	crew     map[string]*models.CrewMember
	missions []*models.MissionTemplate
	quotas   map[int]models.ActQuota

	Problems []Problem
}

// Problem is one content validation finding. Content defects are surfaced
// and logged rather than raised to the player.
type Problem struct {
	TreeID  string `json:"tree_id,omitempty"`
	Message string `json:"message"`
}

// crewFile is the wire shape of crew.yaml.
type crewFile struct {
	Crew []*models.CrewMember `yaml:"crew"`
}

// missionFile is the wire shape of missions.yaml.
type missionFile struct {
	Missions []*models.MissionTemplate `yaml:"missions"`
	Quotas   []models.ActQuota         `yaml:"quotas"`
}

// NewCatalogService loads the catalog from a content directory:
// dialogues/*.yaml (one tree per file), crew.yaml and missions.yaml.
// Missing files yield an empty catalog section, not an error.
func NewCatalogService(contentDir string) (*CatalogService, error) {
	s := &CatalogService{
		trees:  make(map[string]*models.DialogueTree),
		crew:   make(map[string]*models.CrewMember),
		quotas: make(map[int]models.ActQuota),
	}

	if err := s.loadCrew(filepath.Join(contentDir, "crew.yaml")); err != nil {
		return nil, err
	}
	if err := s.loadMissions(filepath.Join(contentDir, "missions.yaml")); err != nil {
		return nil, err
	}
	if err := s.loadDialogues(filepath.Join(contentDir, "dialogues")); err != nil {
		return nil, err
	}

	s.validate()

	log := logger.Get()
	for _, p := range s.Problems {
		log.Warn("content validation problem", map[string]interface{}{
			"tree":    p.TreeID,
			"problem": p.Message,
		})
	}
	log.Infof("content catalog loaded: %d dialogue trees, %d crew members, %d mission templates",
		len(s.trees), len(s.crew), len(s.missions))

	return s, nil
}

func (s *CatalogService) loadCrew(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return apperrors.NewContentError("failed to read crew catalog", err)
	}

	var file crewFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return apperrors.NewContentError("failed to parse crew catalog", err)
	}

	for _, member := range file.Crew {
		if member.ID == "" {
			s.Problems = append(s.Problems, Problem{Message: "crew member without id"})
			continue
		}
		s.crew[member.ID] = member
	}
	return nil
}

func (s *CatalogService) loadMissions(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return apperrors.NewContentError("failed to read mission catalog", err)
	}

	var file missionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return apperrors.NewContentError("failed to parse mission catalog", err)
	}

	s.missions = file.Missions
	for _, quota := range file.Quotas {
		if quota.Act < 1 || quota.Act > models.ActCount {
			s.Problems = append(s.Problems, Problem{
				Message: fmt.Sprintf("mission quota for invalid act %d", quota.Act),
			})
			continue
		}
		s.quotas[quota.Act] = quota
	}
	return nil
}

func (s *CatalogService) loadDialogues(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return apperrors.NewContentError("failed to read dialogue catalog directory", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || (!strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml")) {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return apperrors.NewContentError("failed to read dialogue file "+name, err)
		}

		var tree models.DialogueTree
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return apperrors.NewContentError("failed to parse dialogue file "+name, err)
		}
		if tree.ID == "" {
			s.Problems = append(s.Problems, Problem{
				Message: fmt.Sprintf("dialogue file %s has no tree id", name),
			})
			continue
		}
		if _, dup := s.trees[tree.ID]; dup {
			s.Problems = append(s.Problems, Problem{
				TreeID:  tree.ID,
				Message: "duplicate dialogue tree id",
			})
			continue
		}
		s.trees[tree.ID] = &tree
		s.treeIDs = append(s.treeIDs, tree.ID)
	}

	sort.Strings(s.treeIDs)
	return nil
}

// validate records content-authoring defects: bad start nodes, dangling
// next-node references, unknown speakers.
func (s *CatalogService) validate() {
	for _, id := range s.treeIDs {
		tree := s.trees[id]

		if _, ok := tree.Node(tree.StartNodeID); !ok {
			s.Problems = append(s.Problems, Problem{
				TreeID:  id,
				Message: fmt.Sprintf("start node %q not found", tree.StartNodeID),
			})
		}

		for _, node := range tree.Nodes {
			if node.SpeakerID != "" && len(s.crew) > 0 {
				if _, ok := s.crew[node.SpeakerID]; !ok {
					s.Problems = append(s.Problems, Problem{
						TreeID:  id,
						Message: fmt.Sprintf("node %q has unknown speaker %q", node.ID, node.SpeakerID),
					})
				}
			}
			for _, option := range node.Options {
				if option.NextNodeID == "" {
					continue
				}
				if _, ok := tree.Node(option.NextNodeID); !ok {
					s.Problems = append(s.Problems, Problem{
						TreeID: id,
						Message: fmt.Sprintf("option %q on node %q references missing node %q",
							option.ID, node.ID, option.NextNodeID),
					})
				}
			}
		}
	}
}

// Tree returns a dialogue tree by id.
func (s *CatalogService) Tree(treeID string) (*models.DialogueTree, bool) {
	tree, ok := s.trees[treeID]
	return tree, ok
}

// Trees returns all dialogue trees in stable id order.
func (s *CatalogService) Trees() []*models.DialogueTree {
	result := make([]*models.DialogueTree, 0, len(s.treeIDs))
	for _, id := range s.treeIDs {
		result = append(result, s.trees[id])
	}
	return result
}

// CrewMember returns a crew definition by id.
func (s *CatalogService) CrewMember(npcID string) (*models.CrewMember, bool) {
	member, ok := s.crew[npcID]
	return member, ok
}

// CrewMembers returns all crew definitions sorted by id.
func (s *CatalogService) CrewMembers() []*models.CrewMember {
	result := make([]*models.CrewMember, 0, len(s.crew))
	for _, member := range s.crew {
		result = append(result, member)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// MissionTemplates returns all mission templates.
func (s *CatalogService) MissionTemplates() []*models.MissionTemplate {
	return s.missions
}

// MissionTemplate returns a template by id.
func (s *CatalogService) MissionTemplate(id string) (*models.MissionTemplate, bool) {
	for _, m := range s.missions {
		if m.ID == id {
			return m, true
		}
	}
	return nil, false
}

// QuotaFor returns the content-defined quota override for an act.
func (s *CatalogService) QuotaFor(act int) (models.ActQuota, bool) {
	quota, ok := s.quotas[act]
	return quota, ok
}
