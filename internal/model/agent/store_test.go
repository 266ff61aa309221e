package agent

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSeedContainsStudyModes(t *testing.T) {
	store := NewMemoryStore(Seed())

	for _, id := range []string{OrchestratorID, FlashcardID, PracticeID, ExamID} {
		item, ok := store.FindByID(id)
		if !ok {
			t.Fatalf("expected agent %s in seed", id)
		}
		if item.Instruction == "" {
			t.Fatalf("agent %s has empty instruction", id)
		}
	}

	if _, ok := store.FindByID("missing"); ok {
		t.Fatal("expected lookup of unknown agent to fail")
	}
}

func TestListReturnsCopy(t *testing.T) {
	store := NewMemoryStore(Seed())
	items := store.List()
	items[0].ID = "mutated"

	if _, ok := store.FindByID(OrchestratorID); !ok {
		t.Fatal("mutating List result must not affect the store")
	}
}

func TestLoadCatalogMergesOverSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.toml")
	content := `
[[agent]]
id = "exam_agent"
name = "Strict Examiner"
mode = "exam"
instruction = "Build a hard exam. Respond with JSON only."

[[agent]]
id = "glossary_agent"
name = "Glossary"
mode = "glossary"
description = "Builds glossaries"
instruction = "Return a JSON glossary."
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	merged, err := LoadCatalog(path, Seed())
	if err != nil {
		t.Fatalf("LoadCatalog err: %v", err)
	}
	if len(merged) != len(Seed())+1 {
		t.Fatalf("expected %d agents, got %d", len(Seed())+1, len(merged))
	}

	store := NewMemoryStore(merged)
	exam, _ := store.FindByID(ExamID)
	if exam.Name != "Strict Examiner" {
		t.Fatalf("expected exam agent replaced, got %q", exam.Name)
	}
	if _, ok := store.FindByID("glossary_agent"); !ok {
		t.Fatal("expected new agent appended")
	}
}

func TestLoadCatalogRejectsMissingInstruction(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.toml")
	if err := os.WriteFile(path, []byte("[[agent]]\nid = \"empty\"\n"), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	if _, err := LoadCatalog(path, nil); err == nil {
		t.Fatal("expected error for agent without instruction")
	}
}
