package assistant

import (
	"context"
	"errors"
	"testing"

	"globalgigs/internal/services"
	apperrors "globalgigs/pkg/errors"
	"globalgigs/pkg/logger"

	"github.com/google/generative-ai-go/genai"
)

type scriptedSession struct {
	replies []*genai.GenerateContentResponse
	sent    [][]genai.Part
}

func (s *scriptedSession) Send(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	s.sent = append(s.sent, parts)
	if len(s.replies) == 0 {
		return nil, errors.New("no more replies")
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r, nil
}

type stubFinder struct {
	queries []string
}

func (f *stubFinder) FindFreelancers(_ context.Context, query string, limit int) ([]services.FreelancerMatch, error) {
	f.queries = append(f.queries, query)
	return []services.FreelancerMatch{{ID: "f1", Name: "Ana", Role: "React Developer", Skills: []string{"React"}, AverageRating: 4.8}}, nil
}

func reply(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: &genai.Content{Role: "model", Parts: parts}}}}
}

func testAssistant(chat, skills session, finder Finder) *Assistant {
	return &Assistant{
		finder:    finder,
		log:       logger.NewNop(),
		newChat:   func([]Turn) session { return chat },
		newSkills: func() session { return skills },
	}
}

func TestChatRunsFreelancerTool(t *testing.T) {
	finder := &stubFinder{}
	chat := &scriptedSession{replies: []*genai.GenerateContentResponse{
		reply(genai.FunctionCall{Name: "findFreelancers", Args: map[string]any{"query": "react"}}),
		reply(genai.Text("Ana is a great React developer.")),
	}}
	a := testAssistant(chat, nil, finder)

	answer, err := a.Chat(context.Background(), nil, "I need a react dev")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if answer != "Ana is a great React developer." {
		t.Fatalf("unexpected answer %q", answer)
	}
	if len(finder.queries) != 1 || finder.queries[0] != "react" {
		t.Fatalf("tool not invoked as expected: %v", finder.queries)
	}
	fr, ok := chat.sent[1][0].(genai.FunctionResponse)
	if !ok || fr.Name != "findFreelancers" {
		t.Fatalf("expected a function response, got %#v", chat.sent[1])
	}
}

func TestChatStopsAfterMaxToolRounds(t *testing.T) {
	call := reply(genai.FunctionCall{Name: "findFreelancers", Args: map[string]any{"query": "x"}})
	chat := &scriptedSession{replies: []*genai.GenerateContentResponse{call, call, call, call}}
	finder := &stubFinder{}
	a := testAssistant(chat, nil, finder)

	_, err := a.Chat(context.Background(), nil, "loop")
	if !errors.Is(err, apperrors.ErrServiceUnavailable) {
		t.Fatalf("expected unavailable for a response without text, got %v", err)
	}
	if len(finder.queries) != maxToolRounds {
		t.Fatalf("expected %d tool rounds, got %d", maxToolRounds, len(finder.queries))
	}
}

func TestEnhanceSkillsParsesList(t *testing.T) {
	skills := &scriptedSession{replies: []*genai.GenerateContentResponse{
		reply(genai.Text("```json\n{\"suggestedSkills\": \"Docker,  Kubernetes , ,CI/CD\"}\n```")),
	}}
	a := testAssistant(nil, skills, nil)

	got, err := a.EnhanceSkills(context.Background(), "Ran deployments at a startup", "Go")
	if err != nil {
		t.Fatalf("enhance: %v", err)
	}
	if got != "Docker, Kubernetes, CI/CD" {
		t.Fatalf("unexpected skills %q", got)
	}
}

func TestDisabledAssistant(t *testing.T) {
	a, err := New(context.Background(), "", "gemini-1.5-flash", &stubFinder{}, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := a.Chat(context.Background(), nil, "hi"); !errors.Is(err, apperrors.ErrServiceUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if _, err := a.EnhanceSkills(context.Background(), "a", "b"); !errors.Is(err, apperrors.ErrServiceUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}
