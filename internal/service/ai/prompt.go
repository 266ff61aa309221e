package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/studyai/backend/internal/model/agent"
)

// PromptBuilder renders the system prompt for a study agent.
type PromptBuilder struct {
	contextRules []string
}

// NewPromptBuilder creates a builder with the default session rules.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{
		contextRules: []string{
			"Earlier turns in this conversation belong to the same student; build on them when asked to revise or extend content.",
			"When the request is unclear, reply with the clarification JSON instead of guessing.",
		},
	}
}

// BuildSystemPrompt combines the agent instruction with per-session context.
func (pb *PromptBuilder) BuildSystemPrompt(a agent.Agent, userID string) string {
	instruction := strings.TrimSpace(a.Instruction)
	if instruction == "" {
		return pb.buildBasicSystemPrompt(a, userID)
	}

	return fmt.Sprintf(`%s

Session context:
- Agent: %s (%s)
- Student: %s

Conversation rules:
- %s`,
		instruction,
		a.Name,
		a.ID,
		userID,
		strings.Join(pb.contextRules, "\n- "),
	)
}

// buildBasicSystemPrompt is used for catalog entries without an instruction.
func (pb *PromptBuilder) buildBasicSystemPrompt(a agent.Agent, userID string) string {
	return fmt.Sprintf(`You are %s, a study assistant. %s

Respond with ONLY valid JSON. No markdown, no explanation, no code fences.
You are helping student %s.`,
		a.Name,
		a.Description,
		userID,
	)
}
