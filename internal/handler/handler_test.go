package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"globalgigs/config"
	"globalgigs/internal/assistant"
	"globalgigs/internal/domain"
	"globalgigs/internal/middleware"
	"globalgigs/internal/repository"
	"globalgigs/internal/services"
	"globalgigs/internal/store"
	apperrors "globalgigs/pkg/errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
)

const (
	clientID     = "client-1"
	freelancerID = "freelancer-1"
)

type stubAssistant struct {
	reply string
	err   error
}

func (s stubAssistant) Chat(context.Context, []assistant.Turn, string) (string, error) {
	return s.reply, s.err
}

func (s stubAssistant) EnhanceSkills(context.Context, string, string) (string, error) {
	return s.reply, s.err
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

type testAPI struct {
	router *gin.Engine
	auth   *services.AuthService
}

func newTestAPI(t *testing.T, a Assistant) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	st := store.NewRedisStore(client, store.WithIndexes(repository.Indexes...))
	users := repository.NewUserRepository(st)
	freelancerRepo := repository.NewFreelancerRepository(st)
	convRepo := repository.NewConversationRepository(st)
	gigRepo := repository.NewGigRepository(st)

	participants := services.NewParticipantService(users, freelancerRepo, nil)
	conversations := services.NewConversationService(convRepo, participants, nil, nil)
	proposals := services.NewProposalService(repository.NewProposalRepository(st), gigRepo, convRepo, conversations, participants, nil, nil)
	gigs := services.NewGigService(gigRepo, proposals, conversations, nil, nil)
	reviews := services.NewReviewService(repository.NewReviewRepository(st), freelancerRepo, participants, nil, nil, nil)
	freelancers := services.NewFreelancerService(users, freelancerRepo, nil, nil)

	ctx := context.Background()
	if _, err := freelancers.CreateUser(ctx, clientID, "cara@example.com", domain.RoleClient, "Cara Client"); err != nil {
		t.Fatalf("seed client: %v", err)
	}
	if _, err := freelancers.CreateUser(ctx, freelancerID, "fred@example.com", domain.RoleFreelancer, "Fred Freelancer"); err != nil {
		t.Fatalf("seed freelancer: %v", err)
	}

	auth := services.NewAuthService(&config.Config{JWTSecret: "test-secret", JWTExpiry: time.Hour})

	conv := NewConversationHandler(conversations)
	prop := NewProposalHandler(proposals)
	gig := NewGigHandler(gigs)
	rev := NewReviewHandler(reviews)
	fl := NewFreelancerHandler(freelancers)
	up := NewUploadHandler(nil)
	as := NewAssistantHandler(a)

	r := gin.New()
	v1 := r.Group("/v1", middleware.AuthMiddleware(auth))
	v1.POST("/conversations", conv.Create)
	v1.GET("/conversations", conv.List)
	v1.POST("/conversations/:id/messages", conv.SendMessage)
	v1.GET("/conversations/:id/messages", conv.Messages)
	v1.POST("/proposals", prop.Create)
	v1.POST("/proposals/:id/accept", prop.Accept)
	v1.POST("/proposals/:id/decline", prop.Decline)
	v1.PATCH("/gigs/:id", gig.Edit)
	v1.POST("/gigs/:id/complete", gig.Complete)
	v1.GET("/gigs", gig.List)
	v1.GET("/freelancers/search", fl.Search)
	v1.POST("/freelancers/:id/reviews", rev.Create)
	v1.GET("/freelancers/:id/reviews", rev.List)
	v1.POST("/uploads/presign", up.Presign)
	v1.POST("/assistant/chat", as.Chat)

	return &testAPI{router: r, auth: auth}
}

func (api *testAPI) do(t *testing.T, method, path, userID string, role domain.Role, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, err := api.auth.IssueAccessToken(userID, role)
		if err != nil {
			t.Fatalf("issue token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
	}
	return rec.Code, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
	return out
}

func TestRejectsMissingToken(t *testing.T) {
	api := newTestAPI(t, stubAssistant{})
	code, env := api.do(t, http.MethodGet, "/v1/conversations", "", "", nil)
	if code != http.StatusUnauthorized || env.Success || env.Code != apperrors.CodeUnauthorized {
		t.Fatalf("unexpected %d %+v", code, env)
	}
}

func TestProposalAcceptanceFlow(t *testing.T) {
	api := newTestAPI(t, stubAssistant{})

	code, env := api.do(t, http.MethodPost, "/v1/conversations", clientID, domain.RoleClient, map[string]string{"freelancerId": freelancerID})
	if code != http.StatusOK || !env.Success {
		t.Fatalf("create conversation: %d %+v", code, env)
	}
	conv := decode[struct {
		ID string `json:"id"`
	}](t, env)

	code, env = api.do(t, http.MethodPost, "/v1/proposals", freelancerID, domain.RoleFreelancer, map[string]any{
		"conversationId": conv.ID,
		"clientId":       clientID,
		"title":          "Landing page",
		"description":    "One page site",
		"price":          500,
	})
	if code != http.StatusOK || !env.Success {
		t.Fatalf("create proposal: %d %+v", code, env)
	}
	proposal := decode[struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}](t, env)
	if proposal.Status != string(domain.ProposalPending) {
		t.Fatalf("expected pending proposal, got %s", proposal.Status)
	}

	code, env = api.do(t, http.MethodPost, "/v1/proposals/"+proposal.ID+"/accept", freelancerID, domain.RoleFreelancer, nil)
	if code != http.StatusForbidden || env.Code != apperrors.CodeForbidden {
		t.Fatalf("freelancer accept should be forbidden, got %d %+v", code, env)
	}

	code, env = api.do(t, http.MethodPost, "/v1/proposals/"+proposal.ID+"/accept", clientID, domain.RoleClient, nil)
	if code != http.StatusOK || !env.Success {
		t.Fatalf("accept: %d %+v", code, env)
	}
	g := decode[struct {
		ID     string  `json:"id"`
		Status string  `json:"status"`
		Price  float64 `json:"price"`
	}](t, env)
	if g.Status != string(domain.GigInProgress) || g.Price != 500 {
		t.Fatalf("unexpected gig %+v", g)
	}

	code, env = api.do(t, http.MethodPost, "/v1/proposals/"+proposal.ID+"/accept", clientID, domain.RoleClient, nil)
	if code != http.StatusConflict || env.Success || env.Code != apperrors.CodeConflict {
		t.Fatalf("second accept should conflict, got %d %+v", code, env)
	}

	code, env = api.do(t, http.MethodGet, "/v1/gigs", clientID, domain.RoleClient, nil)
	if code != http.StatusOK {
		t.Fatalf("list gigs: %d %+v", code, env)
	}
	if gigs := decode[[]json.RawMessage](t, env); len(gigs) != 1 {
		t.Fatalf("expected one gig, got %d", len(gigs))
	}

	code, env = api.do(t, http.MethodPost, "/v1/gigs/"+g.ID+"/complete", freelancerID, domain.RoleFreelancer, nil)
	if code != http.StatusOK || !env.Success {
		t.Fatalf("complete: %d %+v", code, env)
	}
	code, env = api.do(t, http.MethodPatch, "/v1/gigs/"+g.ID, freelancerID, domain.RoleFreelancer, map[string]any{"title": "New", "price": 500})
	if code != http.StatusConflict {
		t.Fatalf("completed gig should be immutable, got %d %+v", code, env)
	}

	code, env = api.do(t, http.MethodGet, "/v1/conversations/"+conv.ID+"/messages", clientID, domain.RoleClient, nil)
	if code != http.StatusOK {
		t.Fatalf("messages: %d %+v", code, env)
	}
	msgs := decode[[]struct {
		Text string `json:"text"`
	}](t, env)
	want := []string{
		"Gig Proposal: Landing page",
		"Accepted Gig: Landing page",
		`I have marked the gig "Landing page" as complete. Please let me know if you have any feedback!`,
	}
	if len(msgs) != len(want) {
		t.Fatalf("expected %d messages, got %+v", len(want), msgs)
	}
	for i, m := range msgs {
		if m.Text != want[i] {
			t.Errorf("message %d: expected %q, got %q", i, want[i], m.Text)
		}
	}
}

func TestConversationCreateRequiresClient(t *testing.T) {
	api := newTestAPI(t, stubAssistant{})
	code, env := api.do(t, http.MethodPost, "/v1/conversations", freelancerID, domain.RoleFreelancer, map[string]string{"freelancerId": freelancerID})
	if code != http.StatusForbidden || env.Code != apperrors.CodeForbidden {
		t.Fatalf("unexpected %d %+v", code, env)
	}
}

func TestSendMessageValidation(t *testing.T) {
	api := newTestAPI(t, stubAssistant{})
	_, env := api.do(t, http.MethodPost, "/v1/conversations", clientID, domain.RoleClient, map[string]string{"freelancerId": freelancerID})
	conv := decode[struct {
		ID string `json:"id"`
	}](t, env)

	code, env := api.do(t, http.MethodPost, "/v1/conversations/"+conv.ID+"/messages", clientID, domain.RoleClient, map[string]string{})
	if code != http.StatusBadRequest || env.Code != apperrors.CodeValidation {
		t.Fatalf("missing text: %d %+v", code, env)
	}

	code, env = api.do(t, http.MethodPost, "/v1/conversations/"+conv.ID+"/messages", "stranger", domain.RoleClient, map[string]string{"text": "hi"})
	if code != http.StatusForbidden {
		t.Fatalf("stranger: %d %+v", code, env)
	}
}

func TestReviewEndpoints(t *testing.T) {
	api := newTestAPI(t, stubAssistant{})

	code, env := api.do(t, http.MethodPost, "/v1/freelancers/"+freelancerID+"/reviews", clientID, domain.RoleClient, map[string]any{"rating": 9})
	if code != http.StatusBadRequest || env.Code != apperrors.CodeValidation {
		t.Fatalf("rating 9: %d %+v", code, env)
	}

	for _, rating := range []int{5, 3, 4} {
		code, env = api.do(t, http.MethodPost, "/v1/freelancers/"+freelancerID+"/reviews", clientID, domain.RoleClient, map[string]any{"rating": rating, "comment": "ok"})
		if code != http.StatusOK {
			t.Fatalf("review %d: %d %+v", rating, code, env)
		}
	}

	code, env = api.do(t, http.MethodGet, "/v1/freelancers/"+freelancerID+"/reviews", clientID, domain.RoleClient, nil)
	if code != http.StatusOK {
		t.Fatalf("list: %d %+v", code, env)
	}
	res := decode[reviewListResponse](t, env)
	if len(res.Reviews) != 3 || res.ReviewCount != 3 || res.AverageRating != 4 {
		t.Fatalf("unexpected summary %+v", res)
	}
}

func TestSearchRejectsBadLimit(t *testing.T) {
	api := newTestAPI(t, stubAssistant{})
	code, env := api.do(t, http.MethodGet, "/v1/freelancers/search?q=go&limit=abc", clientID, domain.RoleClient, nil)
	if code != http.StatusBadRequest || env.Code != apperrors.CodeValidation {
		t.Fatalf("unexpected %d %+v", code, env)
	}

	code, env = api.do(t, http.MethodGet, "/v1/freelancers/search?q=fred", clientID, domain.RoleClient, nil)
	if code != http.StatusOK {
		t.Fatalf("search: %d %+v", code, env)
	}
	matches := decode[[]services.FreelancerMatch](t, env)
	if len(matches) != 1 || matches[0].ID != freelancerID {
		t.Fatalf("unexpected matches %+v", matches)
	}
}

func TestUploadsUnavailableWithoutStorage(t *testing.T) {
	api := newTestAPI(t, stubAssistant{})
	code, env := api.do(t, http.MethodPost, "/v1/uploads/presign", clientID, domain.RoleClient, map[string]any{"kind": "avatar", "contentType": "image/png", "size": 10})
	if code != http.StatusServiceUnavailable || env.Code != apperrors.CodeUnavailable {
		t.Fatalf("unexpected %d %+v", code, env)
	}
}

func TestAssistantErrorsBecomeResults(t *testing.T) {
	api := newTestAPI(t, stubAssistant{err: apperrors.Unavailable("assistant", errors.New("quota"))})
	code, env := api.do(t, http.MethodPost, "/v1/assistant/chat", clientID, domain.RoleClient, map[string]any{"message": "find me a designer"})
	if code != http.StatusServiceUnavailable || env.Success || env.Code != apperrors.CodeUnavailable {
		t.Fatalf("unexpected %d %+v", code, env)
	}

	api = newTestAPI(t, stubAssistant{reply: "Try Fred."})
	code, env = api.do(t, http.MethodPost, "/v1/assistant/chat", clientID, domain.RoleClient, map[string]any{"message": "find me a designer"})
	if code != http.StatusOK || !env.Success {
		t.Fatalf("unexpected %d %+v", code, env)
	}
}
