package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"globalgigs/internal/services"
	apperrors "globalgigs/pkg/errors"
	"globalgigs/pkg/logger"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	findFreelancersTool = "findFreelancers"
	maxToolRounds       = 3
	toolResultLimit     = 5
)

const systemPrompt = `You are a helpful assistant for GlobalGigs, a freelancer marketplace.
Your goal is to answer user questions about the platform and help them find the right talent.
You are friendly, professional, and concise.

If the user asks for a type of freelancer, use the findFreelancers tool to provide a list of top-rated experts.
When presenting freelancers, mention their name, role, skills, and rating if available.

For general questions about the website, answer them based on your knowledge of a typical freelance marketplace.`

const skillsPrompt = `You are an AI assistant helping freelancers improve their profiles.
Based on their past experiences and existing skills, suggest additional skills they might have.
Reply with JSON of the form {"suggestedSkills": "<comma-separated list>"}.

Past Experiences: %s
Existing Skills: %s`

// Finder looks up freelancers for the chat tool.
type Finder interface {
	FindFreelancers(ctx context.Context, query string, limit int) ([]services.FreelancerMatch, error)
}

// Turn is one prior exchange in a chat. Role is "user" or "model".
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// session is the part of a Gemini chat the assistant drives.
type session interface {
	Send(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type chatSession struct {
	cs *genai.ChatSession
}

func (c chatSession) Send(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	return c.cs.SendMessage(ctx, parts...)
}

type Assistant struct {
	client    *genai.Client
	modelName string
	finder    Finder
	log       *logger.Logger

	newChat   func(history []Turn) session
	newSkills func() session
}

// New connects to Gemini. With an empty apiKey the assistant is returned
// disabled and every call fails with ErrServiceUnavailable.
func New(ctx context.Context, apiKey, modelName string, finder Finder, l *logger.Logger) (*Assistant, error) {
	if l == nil {
		l = logger.NewNop()
	}
	a := &Assistant{modelName: modelName, finder: finder, log: l}
	if apiKey == "" {
		l.Warnf("assistant: GEMINI_API_KEY not set, assistant disabled")
		return a, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	a.client = client
	a.newChat = a.geminiChat
	a.newSkills = a.geminiSkills
	l.Infof("assistant: gemini client initialized (%s)", modelName)
	return a, nil
}

func (a *Assistant) Close() error {
	if a.client == nil {
		return nil
	}
	return a.client.Close()
}

func (a *Assistant) enabled() bool {
	return a.newChat != nil
}

func (a *Assistant) geminiChat(history []Turn) session {
	model := a.client.GenerativeModel(a.modelName)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	model.Tools = []*genai.Tool{{
		FunctionDeclarations: []*genai.FunctionDeclaration{{
			Name:        findFreelancersTool,
			Description: "Finds available freelancers based on a query.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"query": {
						Type:        genai.TypeString,
						Description: `The user's request, such as "web developer", "logo designer", or "react expert".`,
					},
				},
				Required: []string{"query"},
			},
		}},
	}}

	cs := model.StartChat()
	for _, t := range history {
		if strings.TrimSpace(t.Text) == "" {
			continue
		}
		role := "user"
		if t.Role == "model" || t.Role == "assistant" {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(t.Text)}})
	}
	return chatSession{cs: cs}
}

func (a *Assistant) geminiSkills() session {
	model := a.client.GenerativeModel(a.modelName)
	model.ResponseMIMEType = "application/json"
	return chatSession{cs: model.StartChat()}
}

// Chat answers message in the context of history, calling the freelancer
// search tool when the model asks for it.
func (a *Assistant) Chat(ctx context.Context, history []Turn, message string) (string, error) {
	if !a.enabled() {
		return "", apperrors.ErrServiceUnavailable
	}
	if strings.TrimSpace(message) == "" {
		return "", apperrors.Invalid("message", "cannot be empty")
	}

	chat := a.newChat(history)
	resp, err := chat.Send(ctx, genai.Text(message))
	if err != nil {
		return "", apperrors.Unavailable("assistant chat", err)
	}

	for round := 0; round < maxToolRounds; round++ {
		calls := functionCalls(resp)
		if len(calls) == 0 {
			break
		}
		replies := make([]genai.Part, 0, len(calls))
		for _, call := range calls {
			replies = append(replies, a.runTool(ctx, call))
		}
		if resp, err = chat.Send(ctx, replies...); err != nil {
			return "", apperrors.Unavailable("assistant chat", err)
		}
	}

	text := responseText(resp)
	if text == "" {
		return "", apperrors.Unavailable("assistant chat", fmt.Errorf("empty response"))
	}
	return text, nil
}

func (a *Assistant) runTool(ctx context.Context, call genai.FunctionCall) genai.FunctionResponse {
	if call.Name != findFreelancersTool {
		return genai.FunctionResponse{Name: call.Name, Response: map[string]any{"error": "unknown tool"}}
	}
	query, _ := call.Args["query"].(string)
	a.log.Ctx(ctx).Debugf("assistant: searching freelancers for %q", query)

	matches, err := a.finder.FindFreelancers(ctx, query, toolResultLimit)
	if err != nil {
		a.log.Ctx(ctx).Warnf("assistant: freelancer search failed: %v", err)
		return genai.FunctionResponse{Name: call.Name, Response: map[string]any{"error": "search unavailable"}}
	}
	results := make([]map[string]any, 0, len(matches))
	for _, m := range matches {
		results = append(results, map[string]any{
			"name":          m.Name,
			"role":          m.Role,
			"skills":        m.Skills,
			"averageRating": m.AverageRating,
		})
	}
	return genai.FunctionResponse{Name: call.Name, Response: map[string]any{"freelancers": results}}
}

// EnhanceSkills suggests more skills from a freelancer's experience. The
// result is a comma-separated list.
func (a *Assistant) EnhanceSkills(ctx context.Context, pastExperiences, existingSkills string) (string, error) {
	if !a.enabled() {
		return "", apperrors.ErrServiceUnavailable
	}
	if strings.TrimSpace(pastExperiences) == "" && strings.TrimSpace(existingSkills) == "" {
		return "", apperrors.Invalid("pastExperiences", "describe your experience or list some skills")
	}

	resp, err := a.newSkills().Send(ctx, genai.Text(fmt.Sprintf(skillsPrompt, pastExperiences, existingSkills)))
	if err != nil {
		return "", apperrors.Unavailable("enhance skills", err)
	}
	return parseSuggestedSkills(responseText(resp))
}

func parseSuggestedSkills(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimSuffix(strings.TrimPrefix(raw, "```"), "```")

	var out struct {
		SuggestedSkills string `json:"suggestedSkills"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &out); err != nil {
		return "", apperrors.Unavailable("enhance skills", fmt.Errorf("unexpected model output: %w", err))
	}

	parts := strings.Split(out.SuggestedSkills, ",")
	skills := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			skills = append(skills, p)
		}
	}
	return strings.Join(skills, ", "), nil
}

func functionCalls(resp *genai.GenerateContentResponse) []genai.FunctionCall {
	var calls []genai.FunctionCall
	if resp == nil {
		return nil
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			if fc, ok := part.(genai.FunctionCall); ok {
				calls = append(calls, fc)
			}
		}
	}
	return calls
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return strings.TrimSpace(b.String())
}
