package protoblock

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// legacyShape is the single-object-at-root JSON format documented in
// §6.6. It predates versioned persistence; Load must still accept it.
type legacyShape struct {
	Task               string            `json:"task"`
	WriteFiles         []string          `json:"write_files"`
	ContextFiles       []string          `json:"context_files"`
	CommitMessage      string            `json:"commit_message"`
	BranchName         string            `json:"branch_name"`
	TrustyAgents       []string          `json:"trusty_agents"`
	TrustyAgentPrompts map[string]string `json:"trusty_agent_prompts"`
}

// versionSnapshot is one append-only entry in the versioned format.
type versionSnapshot struct {
	legacyShape
	Timestamp          time.Time         `json:"timestamp"`
	AttemptNumber      int               `json:"attempt_number"`
	TrustyAgentResults map[string]Result `json:"trusty_agent_results,omitempty"`
}

// versionedShape is the on-disk wrapper persisted by every save,
// including the first: {block_id, versions: [...]}.
type versionedShape struct {
	BlockID  string            `json:"block_id"`
	Versions []versionSnapshot `json:"versions"`
}

// Store manages append-only persistence of protoblocks to
// .tac_protoblock_<block_id>.json files under a base directory.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates a protoblock store rooted at dir, creating it if
// necessary.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create protoblock store directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(blockID string) string {
	return filepath.Join(s.dir, fmt.Sprintf(".tac_protoblock_%s.json", blockID))
}

// Save appends a version snapshot of pb to its block's file, creating
// the versioned wrapper on first save. Writes are append-only: no
// existing version is ever rewritten or deleted.
func (s *Store) Save(pb *ProtoBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(pb.BlockID)
	wrapper, err := readWrapper(path, pb.BlockID)
	if err != nil {
		return err
	}

	wrapper.Versions = append(wrapper.Versions, versionSnapshot{
		legacyShape: legacyShape{
			Task:               pb.TaskDescription,
			WriteFiles:         pb.WriteFiles,
			ContextFiles:       pb.ContextFiles,
			CommitMessage:      pb.CommitMessage,
			BranchName:         pb.BranchName,
			TrustyAgents:       pb.TrustyAgents,
			TrustyAgentPrompts: pb.TrustyAgentPrompts,
		},
		Timestamp:          time.Now(),
		AttemptNumber:      pb.AttemptNumber,
		TrustyAgentResults: pb.TrustyAgentResults,
	})

	data, err := json.MarshalIndent(wrapper, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal protoblock %s: %w", pb.BlockID, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write protoblock %s: %w", pb.BlockID, err)
	}
	return nil
}

// readWrapper loads the current versioned wrapper for blockID,
// transparently upgrading a legacy single-object file into a
// one-version wrapper. A missing file yields an empty wrapper.
func readWrapper(path, blockID string) (*versionedShape, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &versionedShape{BlockID: blockID}, nil
		}
		return nil, fmt.Errorf("failed to read protoblock file: %w", err)
	}

	var wrapper versionedShape
	if err := json.Unmarshal(data, &wrapper); err == nil && wrapper.BlockID != "" {
		return &wrapper, nil
	}

	// Fall back to legacy shape: wrap it as the sole existing version.
	var legacy legacyShape
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("protoblock file %s is neither legacy nor versioned shape: %w", path, err)
	}
	return &versionedShape{
		BlockID:  blockID,
		Versions: []versionSnapshot{{legacyShape: legacy}},
	}, nil
}

// Load reads the latest persisted version of a block by ID. It
// tolerates both the legacy single-version format and the new
// versioned-list format, per §6.6.
func (s *Store) Load(blockID string) (*ProtoBlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wrapper, err := readWrapper(s.path(blockID), blockID)
	if err != nil {
		return nil, err
	}
	if len(wrapper.Versions) == 0 {
		return nil, fmt.Errorf("no protoblock found for block_id %s", blockID)
	}
	latest := wrapper.Versions[len(wrapper.Versions)-1]

	pb, err := build(blockID, latest.AttemptNumber, latest.Task, latest.CommitMessage, latest.BranchName,
		latest.WriteFiles, latest.ContextFiles, latest.TrustyAgents, latest.TrustyAgentPrompts)
	if err != nil {
		return nil, fmt.Errorf("loaded protoblock %s failed validation: %w", blockID, err)
	}
	pb.TrustyAgentResults = latest.TrustyAgentResults
	return pb, nil
}

// LoadFromJSON parses a pinned protoblock JSON file supplied via
// `tac make --json <file>` (§6.7). It accepts the legacy shape only —
// a pinned protoblock is authored by hand, not retried.
func LoadFromJSON(path string) (*ProtoBlock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pinned protoblock %s: %w", path, err)
	}
	var legacy legacyShape
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("failed to parse pinned protoblock %s: %w", path, err)
	}
	id, err := newBlockID()
	if err != nil {
		return nil, err
	}
	return build(id, 1, legacy.Task, legacy.CommitMessage, legacy.BranchName,
		legacy.WriteFiles, legacy.ContextFiles, legacy.TrustyAgents, legacy.TrustyAgentPrompts)
}
