package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/studyai/backend/internal/config"
	"github.com/zhouzirui/studyai/backend/internal/model/agent"
	"github.com/zhouzirui/studyai/backend/internal/model/session"
)

// Request is one student message routed to a study agent.
type Request struct {
	SessionID string
	UserID    string
	AgentID   string
	Text      string
}

// Options tunes the generation service.
type Options struct {
	DefaultAgent string
	HistoryLimit int
	Streaming    bool
	Logger       zerolog.Logger
}

// Service runs study agents on an eino chain and keeps per-session history.
type Service struct {
	chain        compose.Runnable[map[string]any, *schema.Message]
	agents       agent.Store
	prompts      *PromptBuilder
	defaultAgent string
	historyLimit int
	streaming    bool
	logger       zerolog.Logger

	mu      sync.Mutex
	history map[string][]*schema.Message
}

// NewService creates the Ark chat model from cfg and wires the study chain.
func NewService(ctx context.Context, agents agent.Store, cfg config.AIConfig, study config.StudyConfig, logger zerolog.Logger) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	return NewServiceWithModel(ctx, chatModel, agents, Options{
		DefaultAgent: study.DefaultAgent,
		HistoryLimit: study.HistoryLimit,
		Streaming:    cfg.StreamResponse,
		Logger:       logger,
	})
}

// NewServiceWithModel compiles the study chain around an existing chat model.
func NewServiceWithModel(ctx context.Context, chatModel model.BaseChatModel, agents agent.Store, opts Options) (*Service, error) {
	if opts.DefaultAgent == "" {
		opts.DefaultAgent = agent.OrchestratorID
	}
	if _, ok := agents.FindByID(opts.DefaultAgent); !ok {
		return nil, fmt.Errorf("default agent %q: %w", opts.DefaultAgent, agent.ErrAgentNotFound)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile study chain: %w", err)
	}

	return &Service{
		chain:        runnable,
		agents:       agents,
		prompts:      NewPromptBuilder(),
		defaultAgent: opts.DefaultAgent,
		historyLimit: opts.HistoryLimit,
		streaming:    opts.Streaming,
		logger:       opts.Logger,
		history:      make(map[string][]*schema.Message),
	}, nil
}

// DefaultAgent returns the agent used when a request names none.
func (s *Service) DefaultAgent() string {
	return s.defaultAgent
}

// HasAgent reports whether id can be served.
func (s *Service) HasAgent(id string) bool {
	_, ok := s.agents.FindByID(id)
	return ok
}

// Generate runs req and returns the text of the final event.
func (s *Service) Generate(ctx context.Context, req Request) (string, error) {
	stream, err := s.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return FinalResponse(stream)
}

// Run starts generation and returns the event stream. Deltas are emitted as
// the model streams; the last event is marked Final and carries the full text.
func (s *Service) Run(ctx context.Context, req Request) (*schema.StreamReader[*Event], error) {
	a, err := s.resolveAgent(req.AgentID)
	if err != nil {
		return nil, err
	}

	input := s.buildChainInput(a, req)

	if !s.streaming {
		response, err := s.chain.Invoke(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to run study chain: %w", err)
		}
		s.remember(ctx, req.SessionID, req.Text, response.Content)
		s.logger.Debug().
			Str("session_id", req.SessionID).
			Str("agent", a.ID).
			Int("length", len(response.Content)).
			Msg("generated study response")
		return schema.StreamReaderFromArray([]*Event{finalEvent(req, a.ID, response.Content)}), nil
	}

	stream, err := s.chain.Stream(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to stream study chain output: %w", err)
	}

	reader, writer := schema.Pipe[*Event](8)
	go s.pump(ctx, req, a.ID, stream, writer)
	return reader, nil
}

func (s *Service) pump(ctx context.Context, req Request, agentID string, stream *schema.StreamReader[*schema.Message], writer *schema.StreamWriter[*Event]) {
	defer writer.Close()
	defer stream.Close()

	chunks := make([]*schema.Message, 0, 8)
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			writer.Send(nil, fmt.Errorf("study stream recv failed: %w", err))
			return
		}
		if chunk == nil {
			continue
		}

		chunks = append(chunks, chunk)
		if chunk.Content == "" {
			continue
		}
		if closed := writer.Send(&Event{SessionID: req.SessionID, AgentID: agentID, Delta: chunk.Content}, nil); closed {
			return
		}
	}

	// No chunks means no final event; the consumer reports ErrNoFinalResponse.
	if len(chunks) == 0 {
		return
	}

	merged, err := schema.ConcatMessages(chunks)
	if err != nil {
		writer.Send(nil, fmt.Errorf("concat study chunks failed: %w", err))
		return
	}

	if closed := writer.Send(finalEvent(req, agentID, merged.Content), nil); closed {
		return
	}
	s.remember(ctx, req.SessionID, req.Text, merged.Content)
	s.logger.Debug().
		Str("session_id", req.SessionID).
		Str("agent", agentID).
		Int("chunks", len(chunks)).
		Int("length", len(merged.Content)).
		Msg("streamed study response")
}

// EndSession drops the conversation history of a closed session.
func (s *Service) EndSession(sess session.Session) {
	s.mu.Lock()
	delete(s.history, sess.ID)
	s.mu.Unlock()
}

func (s *Service) resolveAgent(id string) (agent.Agent, error) {
	if id == "" {
		id = s.defaultAgent
	}
	a, ok := s.agents.FindByID(id)
	if !ok {
		return agent.Agent{}, fmt.Errorf("agent %q: %w", id, agent.ErrAgentNotFound)
	}
	return a, nil
}

func (s *Service) buildChainInput(a agent.Agent, req Request) map[string]any {
	return map[string]any{
		"system":  s.prompts.BuildSystemPrompt(a, req.UserID),
		"history": s.historyFor(req.SessionID),
		"query":   req.Text,
	}
}

func (s *Service) historyFor(sessionID string) []*schema.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	messages := s.history[sessionID]
	if len(messages) == 0 {
		return nil
	}
	return append([]*schema.Message(nil), messages...)
}

// remember appends a turn unless ctx has ended. Callers cancel ctx before
// EndSession, so a turn that completes after its session closed is dropped.
func (s *Service) remember(ctx context.Context, sessionID, userText, reply string) {
	if s.historyLimit <= 0 || sessionID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ctx.Err() != nil {
		return
	}

	messages := append(s.history[sessionID], schema.UserMessage(userText), schema.AssistantMessage(reply, nil))
	if len(messages) > s.historyLimit {
		messages = append([]*schema.Message(nil), messages[len(messages)-s.historyLimit:]...)
	}
	s.history[sessionID] = messages
}
