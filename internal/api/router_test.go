package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/redbot/internal/access"
	"github.com/Rrens/redbot/internal/api"
	"github.com/Rrens/redbot/internal/api/handler"
	"github.com/Rrens/redbot/internal/config"
	"github.com/Rrens/redbot/internal/conversation"
	"github.com/Rrens/redbot/internal/domain"
	"github.com/Rrens/redbot/internal/entitlement"
	"github.com/Rrens/redbot/internal/llm"
	"github.com/Rrens/redbot/internal/repository"
	"github.com/Rrens/redbot/internal/repository/sqlite"
	"github.com/Rrens/redbot/internal/responder"
	"github.com/Rrens/redbot/internal/retrieval"
	"github.com/Rrens/redbot/internal/security"
	"github.com/Rrens/redbot/internal/service"
)

const testOrigin = "https://example.com"

type countingGenerator struct {
	calls  atomic.Int32
	answer string
}

func (g *countingGenerator) Generate(context.Context, string, llm.Call) (string, error) {
	g.calls.Add(1)
	return g.answer, nil
}

type staticRetriever struct {
	result retrieval.Result
}

func (s staticRetriever) Retrieve(context.Context, uuid.UUID, string) retrieval.Result {
	return s.result
}

type testEnv struct {
	router     http.Handler
	store      *repository.Store
	tokens     *security.TokenManager
	workspaces *service.WorkspaceService
	bots       *service.BotService
	qa         *service.QAService
	gen        *countingGenerator
	ws         *domain.Workspace
	bot        *domain.Bot
}

func newEnv(t *testing.T, bundle domain.Bundle, knowledge ...string) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "redbot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store := repository.NewSQLiteStore(db)

	cipher, err := security.NewEncryptorFromSecret("router-test-secret", "bot-api-key")
	require.NoError(t, err)
	tokens := security.NewTokenManager("router-test-secret", 30*time.Minute, 5*time.Second, 0,
		security.WithAgentTTL(time.Hour))

	plans := entitlement.NewService(store.Workspaces, store.Plans)
	workspaces := service.NewWorkspaceService(store.Workspaces)
	bots := service.NewBotService(store.Bots, plans, cipher)
	qa := service.NewQAService(store.QA)

	ws, err := workspaces.Create(ctx, domain.WorkspaceCreate{Name: "Acme"})
	require.NoError(t, err)
	ws, err = workspaces.SetApproved(ctx, ws.ID, true)
	require.NoError(t, err)
	_, err = plans.CreatePlan(ctx, domain.PlanCreate{WorkspaceID: ws.ID, Bundle: bundle, Term: domain.TermLifetime, Active: true})
	require.NoError(t, err)

	input := domain.BotCreate{WorkspaceID: ws.ID, Name: "Ava", AllowedDomains: "example.com"}
	if bundle.Includes(domain.ModeAI) {
		input.AIProvider = "stub"
		input.AIModel = "stub-model"
		input.AIKey = "sk-test"
	}
	bot, err := bots.Create(ctx, input)
	require.NoError(t, err)

	var result retrieval.Result
	for i, text := range knowledge {
		result.Fragments = append(result.Fragments, retrieval.Fragment{Text: text, SourceID: string(rune('a' + i))})
	}
	gen := &countingGenerator{answer: "We are open from 9am to 5pm."}

	hub := conversation.NewHub()
	cfg := &config.Config{}
	cfg.Server.MiddlewareTimeout = 10 * time.Second

	router := api.NewRouter(api.Deps{
		Config:        cfg,
		Store:         store,
		Bots:          store.Bots,
		Entitlements:  plans,
		Guard:         access.NewGuard(tokens, false),
		Orchestrator:  responder.NewOrchestrator(gen, staticRetriever{result: result}, cipher),
		Conversations: conversation.NewService(store.Conversations, conversation.NewNotifier(hub, nil)),
		Hub:           hub,
		QA:            qa,
		Enquiries:     service.NewEnquiryService(store.Enquiries),
	})

	return &testEnv{
		router:     router,
		store:      store,
		tokens:     tokens,
		workspaces: workspaces,
		bots:       bots,
		qa:         qa,
		gen:        gen,
		ws:         ws,
		bot:        bot,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   any             `json:"error"`
}

func (e *testEnv) do(t *testing.T, method, path string, body any, origin string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func (e *testEnv) token(t *testing.T) string {
	t.Helper()
	tok, _, err := e.tokens.Issue(e.bot.ID, e.bot.PublicKey)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) chat(t *testing.T, message string) (*httptest.ResponseRecorder, envelope, handler.ChatResponse) {
	t.Helper()
	rec, env := e.do(t, http.MethodPost, "/api/chat", map[string]any{"message": message, "jwt": e.token(t)}, testOrigin)
	var ans handler.ChatResponse
	if env.Success {
		require.NoError(t, json.Unmarshal(env.Data, &ans))
	}
	return rec, env, ans
}

func TestHealth(t *testing.T) {
	e := newEnv(t, domain.BundleAIOnly)

	rec, env := e.do(t, http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	rec, env = e.do(t, http.MethodGet, "/api/v1/ready", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready"}`, string(env.Data))
}

func TestWidget(t *testing.T) {
	e := newEnv(t, domain.BundleFull)
	path := "/embed/widget/" + e.bot.PublicKey

	t.Run("allowed origin gets a token", func(t *testing.T) {
		rec, env := e.do(t, http.MethodGet, path, nil, "https://shop.example.com")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

		var data struct {
			Token          string        `json:"token"`
			BotName        string        `json:"bot_name"`
			AvailableModes []domain.Mode `json:"available_modes"`
			DefaultMode    domain.Mode   `json:"default_mode"`
			Blocked        bool          `json:"blocked"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.False(t, data.Blocked)
		assert.Equal(t, "Ava", data.BotName)
		assert.Equal(t, []domain.Mode{domain.ModeAI, domain.ModeLive, domain.ModeQA}, data.AvailableModes)
		assert.Equal(t, domain.ModeAI, data.DefaultMode)

		claims, err := e.tokens.Validate(data.Token)
		require.NoError(t, err)
		assert.Equal(t, e.bot.ID, claims.BotID)
		assert.False(t, claims.IsAgent())
	})

	t.Run("lookalike origin is refused", func(t *testing.T) {
		rec, env := e.do(t, http.MethodGet, path, nil, "https://example.com.evil.com")
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "This domain is not allowed for this bot.", env.Error)
	})

	t.Run("missing origin is refused", func(t *testing.T) {
		rec, _ := e.do(t, http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown bot", func(t *testing.T) {
		rec, _ := e.do(t, http.MethodGet, "/embed/widget/"+strings.Repeat("0", 32), nil, testOrigin)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("disabled bot is blocked without a token", func(t *testing.T) {
		off := false
		_, err := e.bots.Update(context.Background(), e.bot.ID, domain.BotUpdate{Enabled: &off})
		require.NoError(t, err)

		rec, env := e.do(t, http.MethodGet, path, nil, testOrigin)
		require.Equal(t, http.StatusOK, rec.Code)
		var data map[string]any
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Equal(t, true, data["blocked"])
		assert.Equal(t, "disabled", data["block_reason"])
		assert.Equal(t, "This bot is disabled by the owner.", data["block_message"])
		assert.NotContains(t, data, "token")
	})
}

func TestConfig(t *testing.T) {
	e := newEnv(t, domain.BundleLiveOnly)

	rec, env := e.do(t, http.MethodGet, "/embed/config/"+e.bot.PublicKey, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var data map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "Ava", data["bot_name"])
	assert.NotContains(t, string(env.Data), "ai_")
}

func TestChat_Greeting(t *testing.T) {
	e := newEnv(t, domain.BundleAIOnly)

	rec, env, ans := e.chat(t, "hello")
	require.Equal(t, http.StatusOK, rec.Code, env.Error)
	assert.Contains(t, ans.Answer, "Ava")
	assert.Empty(t, ans.Sources)
	assert.Zero(t, e.gen.calls.Load())
}

func TestChat_EmptyKnowledgeRefuses(t *testing.T) {
	e := newEnv(t, domain.BundleAIOnly)

	rec, _, ans := e.chat(t, "what is your refund policy")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, llm.RefusalSentence, ans.Answer)
	assert.Zero(t, e.gen.calls.Load())
}

func TestChat_GroundedAnswer(t *testing.T) {
	e := newEnv(t, domain.BundleAIOnly, "Opening hours: 9am to 5pm, Monday to Friday.")

	rec, _, ans := e.chat(t, "when are you open")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "We are open from 9am to 5pm.", ans.Answer)
	assert.Equal(t, []string{"a"}, ans.Sources)
	assert.EqualValues(t, 1, e.gen.calls.Load())
}

func TestChat_SoftDenials(t *testing.T) {
	t.Run("plan without AI", func(t *testing.T) {
		e := newEnv(t, domain.BundleLiveOnly)

		rec, _, ans := e.chat(t, "what is your refund policy")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "AI chat is not included in this plan.", ans.Answer)
		assert.Equal(t, string(access.ReasonModeExcluded), ans.Blocked)
		assert.Zero(t, e.gen.calls.Load())
	})

	t.Run("workspace not approved", func(t *testing.T) {
		e := newEnv(t, domain.BundleAIOnly)
		_, err := e.workspaces.SetApproved(context.Background(), e.ws.ID, false)
		require.NoError(t, err)

		rec, _, ans := e.chat(t, "hello")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "This workspace is not approved yet.", ans.Answer)
	})
}

func TestChat_AccessErrors(t *testing.T) {
	e := newEnv(t, domain.BundleAIOnly)

	tests := []struct {
		name   string
		token  string
		origin string
		status int
		error  string
	}{
		{"missing token", "", testOrigin, http.StatusUnauthorized, "Missing JWT"},
		{"garbage token", "not-a-jwt", testOrigin, http.StatusUnauthorized, "Invalid token"},
		{"origin not allowed", e.token(t), "https://evil.test", http.StatusForbidden, "Origin not allowed for this bot."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := e.do(t, http.MethodPost, "/api/chat", map[string]any{"message": "hello", "jwt": tt.token}, tt.origin)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.error, env.Error)
		})
	}

	t.Run("expired token", func(t *testing.T) {
		past := security.NewTokenManager("router-test-secret", 30*time.Minute, 5*time.Second, 0,
			security.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }))
		tok, _, err := past.Issue(e.bot.ID, e.bot.PublicKey)
		require.NoError(t, err)

		rec, env := e.do(t, http.MethodPost, "/api/chat", map[string]any{"message": "hello", "jwt": tok}, testOrigin)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Token expired", env.Error)
	})
}

func TestChat_LeavesLiveThreadUntouched(t *testing.T) {
	e := newEnv(t, domain.BundleFull)
	ctx := context.Background()

	rec, _ := e.do(t, http.MethodPost, "/api/chat", map[string]any{
		"message": "hello", "jwt": e.token(t), "session_id": "visitor-1",
	}, testOrigin)
	require.Equal(t, http.StatusOK, rec.Code)

	conv, err := e.store.Conversations.Get(ctx, e.bot.ID, "visitor-1")
	require.NoError(t, err)
	assert.Nil(t, conv)

	// The first live message still finds the thread in AI mode and hands it over
	rec, env := e.do(t, http.MethodPost, "/embed/live/send", map[string]any{
		"token": e.token(t), "session_id": "visitor-1", "message": "hello",
	}, testOrigin)
	require.Equal(t, http.StatusOK, rec.Code, env.Error)

	conv, err = e.store.Conversations.Get(ctx, e.bot.ID, "visitor-1")
	require.NoError(t, err)
	require.NotNil(t, conv)
	assert.Equal(t, domain.ModeLive, conv.EffectiveMode)

	msgs, err := e.store.Conversations.ListAfter(ctx, conv.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.SenderUser, msgs[0].Sender)
	assert.Equal(t, domain.SenderBot, msgs[1].Sender)
}

func TestLive_SendAndPoll(t *testing.T) {
	e := newEnv(t, domain.BundleFull)
	token := e.token(t)

	type sendResult struct {
		Message *domain.Message `json:"message"`
		Reply   *domain.Message `json:"reply"`
		Mode    domain.Mode     `json:"mode"`
	}
	send := func(text string) sendResult {
		rec, env := e.do(t, http.MethodPost, "/embed/live/send", map[string]any{
			"token": token, "session_id": "s-1", "message": text,
		}, testOrigin)
		require.Equal(t, http.StatusOK, rec.Code, env.Error)
		var res sendResult
		require.NoError(t, json.Unmarshal(env.Data, &res))
		return res
	}

	first := send("hello")
	assert.Equal(t, domain.ModeLive, first.Mode)
	require.NotNil(t, first.Reply, "first message in AI mode gets a bot reply")
	assert.Equal(t, domain.SenderBot, first.Reply.Sender)

	second := send("is anyone there?")
	assert.Equal(t, domain.ModeLive, second.Mode)
	assert.Nil(t, second.Reply)

	type pollResult struct {
		Messages    []domain.Message `json:"messages"`
		HasMore     bool             `json:"has_more"`
		Mode        domain.Mode      `json:"mode"`
		AgentOnline bool             `json:"agent_online"`
	}
	pollPage := func(after int64, limit int) pollResult {
		path := "/embed/live/poll?session_id=s-1&token=" + token +
			"&after=" + strconv.FormatInt(after, 10) + "&limit=" + strconv.Itoa(limit)
		rec, env := e.do(t, http.MethodGet, path, nil, testOrigin)
		require.Equal(t, http.StatusOK, rec.Code, env.Error)
		var res pollResult
		require.NoError(t, json.Unmarshal(env.Data, &res))
		return res
	}
	poll := func(after int64) pollResult { return pollPage(after, 0) }

	all := poll(0)
	require.Len(t, all.Messages, 3)
	assert.False(t, all.HasMore)
	assert.Equal(t, domain.ModeLive, all.Mode)
	assert.False(t, all.AgentOnline)
	for i := 1; i < len(all.Messages); i++ {
		assert.Greater(t, all.Messages[i].ID, all.Messages[i-1].ID)
	}

	newer := poll(first.Reply.ID)
	require.Len(t, newer.Messages, 1)
	assert.Equal(t, "is anyone there?", newer.Messages[0].Text)

	assert.Empty(t, poll(second.Message.ID).Messages)

	page := pollPage(0, 2)
	require.Len(t, page.Messages, 2)
	assert.True(t, page.HasMore)
	rest := pollPage(page.Messages[1].ID, 2)
	require.Len(t, rest.Messages, 1)
	assert.False(t, rest.HasMore)
}

func TestLive_PlanWithoutLive(t *testing.T) {
	e := newEnv(t, domain.BundleAIOnly)

	rec, env := e.do(t, http.MethodPost, "/embed/live/send", map[string]any{
		"token": e.token(t), "session_id": "s-1", "message": "hello",
	}, testOrigin)
	require.Equal(t, http.StatusOK, rec.Code)
	var data map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "Live chat is not included in this plan.", data["notice"])
}

func TestEnquiry(t *testing.T) {
	e := newEnv(t, domain.BundleLiveQA)
	body := map[string]any{"public_key": e.bot.PublicKey, "name": "Sam", "email": "sam@example.com"}

	rec, _ := e.do(t, http.MethodPost, "/embed/enquiry", body, testOrigin)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	on := true
	_, err := e.workspaces.Update(context.Background(), e.ws.ID, domain.WorkspaceUpdate{EnableEnquiryForm: &on})
	require.NoError(t, err)

	rec, _ = e.do(t, http.MethodPost, "/embed/enquiry", map[string]any{"public_key": e.bot.PublicKey, "name": "Sam"}, testOrigin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = e.do(t, http.MethodPost, "/embed/enquiry", map[string]any{"public_key": e.bot.PublicKey, "email": "not-an-email", "name": "Sam"}, testOrigin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env := e.do(t, http.MethodPost, "/embed/enquiry", body, testOrigin)
	assert.Equal(t, http.StatusCreated, rec.Code, env.Error)
}

func TestQATree(t *testing.T) {
	t.Run("plan with Q&A", func(t *testing.T) {
		e := newEnv(t, domain.BundleLiveQA)
		ctx := context.Background()
		root, err := e.qa.Add(ctx, domain.QANodeCreate{BotID: e.bot.ID, Question: "Billing"})
		require.NoError(t, err)
		_, err = e.qa.Add(ctx, domain.QANodeCreate{BotID: e.bot.ID, ParentID: &root.ID, Question: "How do I pay?", Answer: "By card."})
		require.NoError(t, err)

		rec, env := e.do(t, http.MethodGet, "/embed/qa/"+e.bot.PublicKey, nil, testOrigin)
		require.Equal(t, http.StatusOK, rec.Code)
		var data struct {
			Nodes []*domain.QATreeNode `json:"nodes"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &data))
		require.Len(t, data.Nodes, 1)
		assert.Equal(t, "Billing", data.Nodes[0].Question)
		require.Len(t, data.Nodes[0].Children, 1)
		assert.Equal(t, "By card.", data.Nodes[0].Children[0].Answer)
	})

	t.Run("plan without Q&A", func(t *testing.T) {
		e := newEnv(t, domain.BundleAIOnly)
		rec, env := e.do(t, http.MethodGet, "/embed/qa/"+e.bot.PublicKey, nil, testOrigin)
		require.Equal(t, http.StatusOK, rec.Code)
		var data map[string]any
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Equal(t, true, data["blocked"])
		assert.Equal(t, "Q&A is not included in this plan.", data["message"])
	})
}

func TestRealtime(t *testing.T) {
	e := newEnv(t, domain.BundleFull)
	srv := httptest.NewServer(e.router)
	t.Cleanup(srv.Close)

	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat/" + e.bot.PublicKey + "/s-9"
	agentToken, _, err := e.tokens.IssueAgent(e.bot.ID, e.bot.PublicKey)
	require.NoError(t, err)

	dial := func(query string) *websocket.Conn {
		conn, resp, err := websocket.DefaultDialer.Dial(base+"?"+query, nil)
		require.NoError(t, err)
		resp.Body.Close()
		t.Cleanup(func() { conn.Close() })
		return conn
	}
	read := func(conn *websocket.Conn) domain.Event {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var ev domain.Event
		require.NoError(t, conn.ReadJSON(&ev))
		return ev
	}

	t.Run("visitor token cannot join as agent", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial(base+"?role=agent&token="+e.token(t), nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	visitor := dial("token=" + e.token(t))
	ev := read(visitor)
	assert.Equal(t, domain.EventAgentStatus, ev.Type)
	require.NotNil(t, ev.Online)
	assert.False(t, *ev.Online)

	agent := dial("role=agent&token=" + agentToken)
	assert.Equal(t, domain.EventAgentStatus, read(agent).Type)

	ev = read(visitor)
	assert.Equal(t, domain.EventAgentStatus, ev.Type)
	require.NotNil(t, ev.Online)
	assert.True(t, *ev.Online)

	require.NoError(t, visitor.WriteJSON(map[string]any{"type": "chat_message", "message": "I need a human"}))

	var got domain.Event
	for got.Type != domain.EventChatMessage {
		got = read(agent)
	}
	assert.Equal(t, "I need a human", got.Text)
	assert.Equal(t, domain.SenderUser, got.Sender)
	assert.NotZero(t, got.ID)

	conv, err := e.store.Conversations.Get(context.Background(), e.bot.ID, "s-9")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeLive, conv.EffectiveMode)
}
