package agent

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

var ErrAgentNotFound = errors.New("agent not found")

// Store exposes agent retrieval for handlers and the generation backend.
type Store interface {
	List() []Agent
	FindByID(id string) (Agent, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Agent
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied agents.
func NewMemoryStore(items []Agent) *MemoryStore {
	return &MemoryStore{items: append([]Agent(nil), items...)}
}

// List returns the configured agents in catalog order.
func (s *MemoryStore) List() []Agent {
	return append([]Agent(nil), s.items...)
}

// FindByID looks up an agent by identifier.
func (s *MemoryStore) FindByID(id string) (Agent, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Agent{}, false
}

type catalogFile struct {
	Agents []Agent `toml:"agent"`
}

// LoadCatalog reads [[agent]] tables from a TOML file and merges them over
// base. Entries with a known id replace the base entry; new ids are appended.
func LoadCatalog(path string, base []Agent) ([]Agent, error) {
	var file catalogFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("agent catalog parse failed (%s): %w", path, err)
	}

	merged := append([]Agent(nil), base...)
	index := make(map[string]int, len(merged))
	for i, item := range merged {
		index[item.ID] = i
	}

	for i, item := range file.Agents {
		item.ID = strings.TrimSpace(item.ID)
		if item.ID == "" {
			return nil, fmt.Errorf("agent catalog %s: entry %d has no id", path, i)
		}
		if strings.TrimSpace(item.Instruction) == "" {
			return nil, fmt.Errorf("agent catalog %s: agent %q has no instruction", path, item.ID)
		}
		if pos, ok := index[item.ID]; ok {
			merged[pos] = item
			continue
		}
		index[item.ID] = len(merged)
		merged = append(merged, item)
	}

	return merged, nil
}
