package ai

import (
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/studyai/backend/internal/model/agent"
)

func TestFinalResponseKeepsOnlyFinalEvent(t *testing.T) {
	stream := schema.StreamReaderFromArray([]*Event{
		{Delta: "thinking"},
		nil,
		{Final: true, Text: `{"a":1}`},
	})

	text, err := FinalResponse(stream)
	if err != nil {
		t.Fatalf("FinalResponse err: %v", err)
	}
	if text != `{"a":1}` {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestFinalResponseWithoutFinal(t *testing.T) {
	stream := schema.StreamReaderFromArray([]*Event{{Delta: "partial"}})

	if _, err := FinalResponse(stream); !errors.Is(err, ErrNoFinalResponse) {
		t.Fatalf("expected ErrNoFinalResponse, got %v", err)
	}
}

func TestFinalResponsePropagatesStreamError(t *testing.T) {
	errReset := errors.New("upstream reset")
	reader, writer := schema.Pipe[*Event](2)
	go func() {
		defer writer.Close()
		writer.Send(&Event{Delta: "x"}, nil)
		writer.Send(nil, errReset)
	}()

	if _, err := FinalResponse(reader); !errors.Is(err, errReset) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestBuildSystemPromptIncludesInstruction(t *testing.T) {
	pb := NewPromptBuilder()
	seed := agent.Seed()

	got := pb.BuildSystemPrompt(seed[1], "student-7")
	if !strings.Contains(got, seed[1].Instruction) || !strings.Contains(got, "student-7") {
		t.Fatalf("prompt missing instruction or student: %q", got)
	}

	basic := pb.BuildSystemPrompt(agent.Agent{ID: "x", Name: "Tutor", Description: "Helps."}, "s")
	if !strings.Contains(basic, "You are Tutor") {
		t.Fatalf("unexpected basic prompt %q", basic)
	}
}
