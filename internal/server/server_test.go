package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brightlearn/campus/internal/auth/device"
	authdomain "github.com/brightlearn/campus/internal/auth/domain"
	"github.com/brightlearn/campus/internal/auth/repository"
	"github.com/brightlearn/campus/internal/auth/score"
	authservice "github.com/brightlearn/campus/internal/auth/service"
	"github.com/brightlearn/campus/internal/auth/session"
	"github.com/brightlearn/campus/internal/auth/token"
	"github.com/brightlearn/campus/internal/clock"
	"github.com/brightlearn/campus/internal/config"
	"github.com/brightlearn/campus/pkg/db"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubVerifier struct {
	identity *authdomain.Identity
	err      error
}

func (s *stubVerifier) Verify(context.Context, string) (*authdomain.Identity, error) {
	return s.identity, s.err
}

type testServer struct {
	engine   *gin.Engine
	srv      *Server
	verifier *stubVerifier
	clk      *clock.FakeClock
	accounts authdomain.Repository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&authdomain.Account{}, &authdomain.Session{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	holder := config.NewStaticSecurityPolicyHolder(config.DefaultSecurityPolicy())
	cfg := config.Config{AuthJWTSecret: "test-secret", UploadDir: t.TempDir()}

	accounts := repository.NewAccountRepository(conn)
	sessions := session.NewManager(
		repository.NewSessionRepository(conn),
		device.NoopLocator{},
		holder, clk, node, zap.NewNop(),
	)
	issuer, err := token.NewIssuer(cfg, holder, clk)
	require.NoError(t, err)

	verifier := &stubVerifier{}
	svc := authservice.New(accounts, sessions, issuer, verifier, holder, node, zap.NewNop())

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	srv := NewServer(ServerParams{
		Gin:      engine,
		Cfg:      cfg,
		Authsvc:  svc,
		Sessions: sessions,
		Scores:   score.NewCalculator(accounts, sessions),
		Accounts: accounts,
		Issuer:   issuer,
		GenID:    node,
		Log:      zap.NewNop(),
	})

	return &testServer{
		engine:   engine,
		srv:      srv,
		verifier: verifier,
		clk:      clk,
		accounts: accounts,
	}
}

func (ts *testServer) do(t *testing.T, method, path, bearer string, body any) (*httptest.ResponseRecorder, Envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)

	var envelope Envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), w.Body.String())
	}
	return w, envelope
}

func (ts *testServer) register(t *testing.T, email string) (token string, accountID string) {
	t.Helper()

	w, envelope := ts.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"email":    email,
		"password": "Str0ngPass!",
		"name":     "Test User",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.True(t, envelope.Success)

	data := envelope.Data.(map[string]any)
	account := data["account"].(map[string]any)
	return data["token"].(string), account["id"].(string)
}

func TestRegisterAndMe(t *testing.T) {
	ts := newTestServer(t)

	bearer, _ := ts.register(t, "me@example.com")

	w, envelope := ts.do(t, http.MethodGet, "/api/auth/me", bearer, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	require.True(t, envelope.Success)

	account := envelope.Data.(map[string]any)["account"].(map[string]any)
	assert.Equal(t, "me@example.com", account["email"])
	assert.Equal(t, "member", account["role"])
}

func TestRegisterWeakPassword(t *testing.T) {
	ts := newTestServer(t)

	w, envelope := ts.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"email":    "weak@example.com",
		"password": "123",
		"name":     "Weak",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, envelope.Success)
	assert.Equal(t, CodePasswordPolicy, envelope.Code)
}

func TestRegisterDuplicateEmailConflict(t *testing.T) {
	ts := newTestServer(t)

	ts.register(t, "dup@example.com")
	w, envelope := ts.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"email":    "dup@example.com",
		"password": "Str0ngPass!",
		"name":     "Other",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, CodeEmailTaken, envelope.Code)
}

func TestLoginFailureCodes(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "known@example.com")

	w, envelope := ts.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "known@example.com",
		"password": "WrongPass1!",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, CodeInvalidCredentials, envelope.Code)

	w, envelope = ts.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "unknown@example.com",
		"password": "WrongPass1!",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, CodeInvalidCredentials, envelope.Code, "unknown email must look identical")
}

func TestAuthPipelineRejections(t *testing.T) {
	ts := newTestServer(t)

	w, envelope := ts.do(t, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, CodeAuthRequired, envelope.Code)

	w, envelope = ts.do(t, http.MethodGet, "/api/auth/me", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, CodeTokenInvalid, envelope.Code)
}

func TestRevokedSessionRejectedImmediately(t *testing.T) {
	ts := newTestServer(t)

	first, _ := ts.register(t, "a@example.com")

	// second login for the same account from another device
	w, envelope := ts.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "a@example.com",
		"password": "Str0ngPass!",
	})
	require.Equal(t, http.StatusOK, w.Code)
	second := envelope.Data.(map[string]any)["token"].(string)

	// revoke the second session from the first one
	w, envelope = ts.do(t, http.MethodGet, "/api/user/sessions", second, nil)
	require.Equal(t, http.StatusOK, w.Code)
	sessions := envelope.Data.(map[string]any)["sessions"].([]any)
	require.Len(t, sessions, 2)

	var otherID string
	for _, raw := range sessions {
		view := raw.(map[string]any)
		if view["isCurrent"] == false {
			otherID = view["id"].(string)
		}
	}
	require.NotEmpty(t, otherID)

	w, _ = ts.do(t, http.MethodDelete, "/api/user/sessions/"+otherID, second, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// the first token's session was just revoked; its next request fails
	w, envelope = ts.do(t, http.MethodGet, "/api/auth/me", first, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, CodeSessionInvalid, envelope.Code)
}

func TestRevokeGuardCodes(t *testing.T) {
	ts := newTestServer(t)

	bearer, _ := ts.register(t, "a@example.com")
	otherBearer, _ := ts.register(t, "b@example.com")

	w, envelope := ts.do(t, http.MethodGet, "/api/user/sessions", bearer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	sessions := envelope.Data.(map[string]any)["sessions"].([]any)
	require.Len(t, sessions, 1)
	ownID := sessions[0].(map[string]any)["id"].(string)

	w, envelope = ts.do(t, http.MethodDelete, "/api/user/sessions/"+ownID, bearer, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeSelfRevocation, envelope.Code)

	// someone else's session id
	w, envelope = ts.do(t, http.MethodGet, "/api/user/sessions", otherBearer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	foreignID := envelope.Data.(map[string]any)["sessions"].([]any)[0].(map[string]any)["id"].(string)

	w, envelope = ts.do(t, http.MethodDelete, "/api/user/sessions/"+foreignID, bearer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, CodeSessionForbidden, envelope.Code)

	w, envelope = ts.do(t, http.MethodDelete, "/api/user/sessions/999999999", bearer, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, CodeSessionNotFound, envelope.Code)
}

func TestPasswordChangeEndpointCodes(t *testing.T) {
	ts := newTestServer(t)
	bearer, _ := ts.register(t, "chg@example.com")

	w, envelope := ts.do(t, http.MethodPut, "/api/user/password/change", bearer, gin.H{
		"currentPassword": "WrongCurrent1!",
		"newPassword":     "N3wPassword!",
		"confirmPassword": "N3wPassword!",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, CodePasswordIncorrect, envelope.Code)

	w, envelope = ts.do(t, http.MethodPut, "/api/user/password/change", bearer, gin.H{
		"currentPassword": "Str0ngPass!",
		"newPassword":     "N3wPassword!",
		"confirmPassword": "other",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodePasswordMismatch, envelope.Code)

	w, envelope = ts.do(t, http.MethodPut, "/api/user/password/change", bearer, gin.H{
		"currentPassword": "Str0ngPass!",
		"newPassword":     "N3wPassword!",
		"confirmPassword": "N3wPassword!",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, envelope.Success)
}

func TestAddPasswordForFederatedAccount(t *testing.T) {
	ts := newTestServer(t)

	ts.verifier.identity = &authdomain.Identity{
		SubjectID: "sub-1",
		Email:     "fed@example.com",
	}
	w, envelope := ts.do(t, http.MethodPost, "/api/auth/sync", "", gin.H{"idToken": "tok"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	bearer := envelope.Data.(map[string]any)["token"].(string)

	w, envelope = ts.do(t, http.MethodPost, "/api/user/password/add", bearer, gin.H{
		"newPassword":     "An0therPass!",
		"confirmPassword": "An0therPass!",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, envelope.Success)

	// second add must redirect to change
	w, envelope = ts.do(t, http.MethodPost, "/api/user/password/add", bearer, gin.H{
		"newPassword":     "Yet4notherPass!",
		"confirmPassword": "Yet4notherPass!",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodePasswordExists, envelope.Code)
}

func TestProfileUpdateValidation(t *testing.T) {
	ts := newTestServer(t)
	bearer, _ := ts.register(t, "p@example.com")

	w, envelope := ts.do(t, http.MethodPut, "/api/user/profile", bearer, gin.H{"name": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeNameInvalid, envelope.Code)

	w, envelope = ts.do(t, http.MethodPut, "/api/user/profile", bearer, gin.H{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeEmailInvalid, envelope.Code)

	w, envelope = ts.do(t, http.MethodPut, "/api/user/profile", bearer, gin.H{
		"name": "Proper Name",
		"bio":  "hello",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	account := envelope.Data.(map[string]any)["account"].(map[string]any)
	assert.Equal(t, "Proper Name", account["name"])
}

func TestSecurityScoreEndpoint(t *testing.T) {
	ts := newTestServer(t)
	bearer, _ := ts.register(t, "score@example.com")

	w, envelope := ts.do(t, http.MethodGet, "/api/user/security-score", bearer, nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := envelope.Data.(map[string]any)
	// password yes, single session, no federated identity, email unverified
	assert.EqualValues(t, 75, data["score"])
	assert.Equal(t, "Good", data["level"])
}

func TestAdminGate(t *testing.T) {
	ts := newTestServer(t)

	memberBearer, _ := ts.register(t, "member@example.com")
	w, envelope := ts.do(t, http.MethodGet, "/api/admin/users", memberBearer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, CodeAccessDenied, envelope.Code)
}

func TestAdminListAndRoleChange(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	adminBearer, adminID := ts.register(t, "admin@example.com")
	id, err := snowflake.ParseString(adminID)
	require.NoError(t, err)
	require.NoError(t, ts.accounts.UpdateFields(ctx, id, map[string]any{"role": authdomain.RoleAdmin}))

	_, targetID := ts.register(t, "target@example.com")

	w, envelope := ts.do(t, http.MethodGet, "/api/admin/users", adminBearer, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	users := envelope.Data.(map[string]any)["users"].([]any)
	assert.Len(t, users, 2)

	w, envelope = ts.do(t, http.MethodPatch,
		fmt.Sprintf("/api/admin/users/%s/role", targetID), adminBearer,
		gin.H{"role": "author"})
	require.Equal(t, http.StatusOK, w.Code)
	account := envelope.Data.(map[string]any)["account"].(map[string]any)
	assert.Equal(t, "author", account["role"])

	w, envelope = ts.do(t, http.MethodPatch,
		fmt.Sprintf("/api/admin/users/%s/role", targetID), adminBearer,
		gin.H{"role": "superuser"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeRoleInvalid, envelope.Code)
}

func TestExpiredTokenRejected(t *testing.T) {
	ts := newTestServer(t)
	bearer, _ := ts.register(t, "old@example.com")

	ts.clk.Advance(8 * 24 * time.Hour) // past the 7-day token lifetime

	w, envelope := ts.do(t, http.MethodGet, "/api/auth/me", bearer, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, CodeTokenInvalid, envelope.Code)
}

func TestMalformedBodyEnvelope(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var envelope Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
	assert.Equal(t, CodeBadRequest, envelope.Code)
}
