package ai

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/studyai/backend/internal/model/agent"
	"github.com/zhouzirui/studyai/backend/internal/model/session"
)

type fakeChatModel struct {
	mu     sync.Mutex
	chunks []string
	err    error
	inputs [][]*schema.Message
	// gate, when set, holds streamed chunks until it is closed.
	gate chan struct{}
}

func (f *fakeChatModel) record(input []*schema.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, input)
}

func (f *fakeChatModel) lastInput() []*schema.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.inputs) == 0 {
		return nil
	}
	return f.inputs[len(f.inputs)-1]
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.record(input)
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(strings.Join(f.chunks, ""), nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	f.record(input)
	if f.err != nil {
		return nil, f.err
	}
	msgs := make([]*schema.Message, 0, len(f.chunks))
	for _, c := range f.chunks {
		msgs = append(msgs, schema.AssistantMessage(c, nil))
	}
	if f.gate == nil {
		return schema.StreamReaderFromArray(msgs), nil
	}

	reader, writer := schema.Pipe[*schema.Message](len(msgs))
	go func() {
		defer writer.Close()
		<-f.gate
		for _, m := range msgs {
			writer.Send(m, nil)
		}
	}()
	return reader, nil
}

func newTestService(t *testing.T, fake *fakeChatModel, streaming bool) *Service {
	t.Helper()
	svc, err := NewServiceWithModel(context.Background(), fake, agent.NewMemoryStore(agent.Seed()), Options{
		HistoryLimit: 4,
		Streaming:    streaming,
		Logger:       zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewServiceWithModel err: %v", err)
	}
	return svc
}

func TestGenerateReturnsFinalText(t *testing.T) {
	for _, streaming := range []bool{false, true} {
		fake := &fakeChatModel{chunks: []string{`{"mode":`, `"flashcards"}`}}
		svc := newTestService(t, fake, streaming)

		text, err := svc.Generate(context.Background(), Request{SessionID: "s1", UserID: "u1", Text: "flashcards on cells"})
		if err != nil {
			t.Fatalf("streaming=%v Generate err: %v", streaming, err)
		}
		if text != `{"mode":"flashcards"}` {
			t.Fatalf("streaming=%v unexpected text %q", streaming, text)
		}
	}
}

func TestRunStreamsDeltasBeforeFinal(t *testing.T) {
	fake := &fakeChatModel{chunks: []string{"a", "b", "c"}}
	svc := newTestService(t, fake, true)

	stream, err := svc.Run(context.Background(), Request{SessionID: "s1", UserID: "u1", Text: "quiz me"})
	if err != nil {
		t.Fatalf("Run err: %v", err)
	}
	defer stream.Close()

	var deltas []string
	var final *Event
	for {
		ev, err := stream.Recv()
		if err != nil {
			break
		}
		if ev.Final {
			final = ev
			continue
		}
		deltas = append(deltas, ev.Delta)
	}

	if strings.Join(deltas, "") != "abc" {
		t.Fatalf("unexpected deltas %v", deltas)
	}
	if final == nil || final.Text != "abc" || final.AgentID != agent.OrchestratorID {
		t.Fatalf("unexpected final event %+v", final)
	}
}

func TestGenerateSurfacesModelError(t *testing.T) {
	fake := &fakeChatModel{err: errors.New("quota exceeded")}
	svc := newTestService(t, fake, false)

	if _, err := svc.Generate(context.Background(), Request{SessionID: "s1", Text: "exam"}); err == nil {
		t.Fatal("expected model error")
	}
}

func TestGenerateEmptyStreamHasNoFinal(t *testing.T) {
	fake := &fakeChatModel{}
	svc := newTestService(t, fake, true)

	_, err := svc.Generate(context.Background(), Request{SessionID: "s1", Text: "exam"})
	if !errors.Is(err, ErrNoFinalResponse) {
		t.Fatalf("expected ErrNoFinalResponse, got %v", err)
	}
}

func TestGenerateUnknownAgent(t *testing.T) {
	svc := newTestService(t, &fakeChatModel{chunks: []string{"{}"}}, false)

	_, err := svc.Generate(context.Background(), Request{SessionID: "s1", AgentID: "nope", Text: "hi"})
	if !errors.Is(err, agent.ErrAgentNotFound) {
		t.Fatalf("expected ErrAgentNotFound, got %v", err)
	}
}

func TestHistoryIsScopedAndBounded(t *testing.T) {
	fake := &fakeChatModel{chunks: []string{"{}"}}
	svc := newTestService(t, fake, false)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Generate(ctx, Request{SessionID: "s1", Text: "turn"}); err != nil {
			t.Fatalf("Generate err: %v", err)
		}
	}

	// system + 4 history messages (limit) + user query
	if got := len(fake.lastInput()); got != 6 {
		t.Fatalf("expected 6 prompt messages, got %d", got)
	}

	if _, err := svc.Generate(ctx, Request{SessionID: "s2", Text: "fresh"}); err != nil {
		t.Fatalf("Generate err: %v", err)
	}
	if got := len(fake.lastInput()); got != 2 {
		t.Fatalf("expected new session without history, got %d messages", got)
	}

	svc.EndSession(session.Session{ID: "s1"})
	if got := svc.historyFor("s1"); got != nil {
		t.Fatalf("expected history dropped, got %d messages", len(got))
	}
}

func TestNewServiceRejectsUnknownDefaultAgent(t *testing.T) {
	_, err := NewServiceWithModel(context.Background(), &fakeChatModel{}, agent.NewMemoryStore(agent.Seed()), Options{DefaultAgent: "ghost"})
	if !errors.Is(err, agent.ErrAgentNotFound) {
		t.Fatalf("expected ErrAgentNotFound, got %v", err)
	}
}

func TestLateTurnAfterEndSessionIsNotRemembered(t *testing.T) {
	for _, streaming := range []bool{false, true} {
		fake := &fakeChatModel{chunks: []string{`{"deck":`, `"cells"}`}}
		if streaming {
			fake.gate = make(chan struct{})
		}
		svc := newTestService(t, fake, streaming)

		ctx, cancel := context.WithCancel(context.Background())
		stream, err := svc.Run(ctx, Request{SessionID: "s1", UserID: "u1", Text: "flashcards"})
		if err != nil {
			t.Fatalf("streaming=%v Run err: %v", streaming, err)
		}

		cancel()
		svc.EndSession(session.Session{ID: "s1"})
		if fake.gate != nil {
			close(fake.gate)
		}
		// FinalResponse returns at EOF, after pump has finished.
		_, _ = FinalResponse(stream)

		svc.mu.Lock()
		entries := len(svc.history)
		svc.mu.Unlock()
		if entries != 0 {
			t.Fatalf("streaming=%v expected no history after EndSession, got %d entries", streaming, entries)
		}
	}
}
