package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	nethttp "net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"challenge_arena/internal/attest"
	"challenge_arena/internal/http/handlers"
	"challenge_arena/internal/repository"
	"challenge_arena/internal/service"
	"challenge_arena/internal/tier"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const testSignerKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

type testServer struct {
	router *gin.Engine
}

func newTestServer(t *testing.T, signerKey string, authRequired bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	audit := service.NewAuditService(repository.NewMemoryAuditRepository())
	participants := repository.NewMemoryParticipantRepository()
	challenges := service.NewChallengeService(repository.NewMemoryChallengeRepository(), participants, nil, audit, service.ChallengeOptions{})
	signer, err := attest.NewSigner(signerKey)
	require.NoError(t, err)

	service.InitJWT("router-test-secret", 0)
	h := &handlers.Handler{
		Challenges:   challenges,
		Attestations: service.NewAttestationService(signer, tier.Default, challenges, audit),
		Auth:         service.NewAuthService(participants, repository.NewMemoryEndpointRepository(), audit, "bot"),
		Audit:        audit,
		Version:      "test",
	}

	r := gin.New()
	RegisterRoutes(r, RouterDeps{
		Handler:      h,
		ParseToken:   service.ParseJWT,
		AuthRequired: authRequired,
		Checks: map[string]handlers.Checker{
			"store": handlers.CheckFunc(func(context.Context) error { return nil }),
		},
	})
	return &testServer{router: r}
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func challengeID(t *testing.T, body map[string]any) string {
	t.Helper()
	ch, ok := body["challenge"].(map[string]any)
	require.True(t, ok, "ответ без challenge: %v", body)
	return ch["id"].(string)
}

func TestChallengeFlowOverHTTP(t *testing.T) {
	s := newTestServer(t, testSignerKey, false)

	w, body := s.do(t, "POST", "/api/v1/challenges/create", map[string]any{"challengerId": "alice", "opponentId": "bob"}, "")
	require.Equal(t, nethttp.StatusCreated, w.Code)
	id := challengeID(t, body)

	w, _ = s.do(t, "POST", "/api/v1/challenges/create", map[string]any{"challengerId": "bob", "opponentId": "alice"}, "")
	require.Equal(t, nethttp.StatusConflict, w.Code)

	w, body = s.do(t, "GET", "/api/v1/challenges/pending?participant=bob", nil, "")
	require.Equal(t, nethttp.StatusOK, w.Code)
	require.Len(t, body["challenges"], 1)

	w, _ = s.do(t, "POST", "/api/v1/challenges/accept", map[string]any{"challengeId": id, "callerId": "mallory"}, "")
	require.Equal(t, nethttp.StatusForbidden, w.Code)

	w, _ = s.do(t, "POST", "/api/v1/challenges/accept", map[string]any{"challengeId": id, "callerId": "bob"}, "")
	require.Equal(t, nethttp.StatusOK, w.Code)

	w, _ = s.do(t, "POST", "/api/v1/challenges/accept", map[string]any{"challengeId": id, "callerId": "bob"}, "")
	require.Equal(t, nethttp.StatusConflict, w.Code)

	w, body = s.do(t, "POST", "/api/v1/challenges/submit", map[string]any{"challengeId": id, "callerId": "alice", "score": 50}, "")
	require.Equal(t, nethttp.StatusOK, w.Code)
	require.Equal(t, false, body["completed"])

	w, _ = s.do(t, "POST", "/api/v1/challenges/submit", map[string]any{"challengeId": id, "callerId": "alice", "score": 70}, "")
	require.Equal(t, nethttp.StatusConflict, w.Code)

	w, body = s.do(t, "POST", "/api/v1/challenges/submit", map[string]any{"challengeId": id, "callerId": "bob", "score": 80}, "")
	require.Equal(t, nethttp.StatusOK, w.Code)
	require.Equal(t, true, body["completed"])
	require.Equal(t, "bob", body["challenge"].(map[string]any)["winnerId"])

	w, body = s.do(t, "POST", "/api/v1/attestations/sign-battle", map[string]any{"challengeId": id, "callerId": "bob"}, "")
	require.Equal(t, nethttp.StatusOK, w.Code)
	require.Equal(t, "battle", body["kind"])

	w, verified := s.do(t, "POST", "/api/v1/attestations/verify", map[string]any{
		"messageHash": body["messageHash"], "signature": body["signature"],
	}, "")
	require.Equal(t, nethttp.StatusOK, w.Code)
	require.Equal(t, true, verified["valid"])
	require.Equal(t, body["signer"], verified["signer"])

	w, body = s.do(t, "GET", "/api/v1/challenges/"+id+"/audit", nil, "")
	require.Equal(t, nethttp.StatusOK, w.Code)
	require.NotEmpty(t, body["entries"])

	w, body = s.do(t, "GET", "/api/v1/challenges/history?participant=alice&limit=5", nil, "")
	require.Equal(t, nethttp.StatusOK, w.Code)
	require.Len(t, body["challenges"], 1)
}

func TestChallengeErrorsOverHTTP(t *testing.T) {
	s := newTestServer(t, testSignerKey, false)

	w, body := s.do(t, "POST", "/api/v1/challenges/create", map[string]any{"challengerId": "alice", "opponentId": "alice"}, "")
	require.Equal(t, nethttp.StatusBadRequest, w.Code)
	require.Equal(t, "validation", body["kind"])

	w, _ = s.do(t, "POST", "/api/v1/challenges/create", map[string]any{"challengerId": "alice", "opponentHandle": "ghost"}, "")
	require.Equal(t, nethttp.StatusNotFound, w.Code)

	w, _ = s.do(t, "GET", "/api/v1/challenges/does-not-exist", nil, "")
	require.Equal(t, nethttp.StatusNotFound, w.Code)

	w, _ = s.do(t, "POST", "/api/v1/challenges/submit", map[string]any{"challengeId": "x", "callerId": "alice"}, "")
	require.Equal(t, nethttp.StatusBadRequest, w.Code)

	w, _ = s.do(t, "GET", "/api/v1/challenges/history?participant=alice&limit=-3", nil, "")
	require.Equal(t, nethttp.StatusBadRequest, w.Code)
}

func TestMissingCallerIsValidationError(t *testing.T) {
	s := newTestServer(t, testSignerKey, false)
	_, body := s.do(t, "POST", "/api/v1/challenges/create", map[string]any{"challengerId": "alice", "opponentId": "bob"}, "")
	id := challengeID(t, body)

	cases := []struct {
		path string
		body map[string]any
	}{
		{"/api/v1/challenges/accept", map[string]any{"challengeId": id}},
		{"/api/v1/challenges/decline", map[string]any{"challengeId": id, "callerId": "  "}},
		{"/api/v1/challenges/cancel", map[string]any{"challengeId": id, "callerId": ""}},
		{"/api/v1/challenges/submit", map[string]any{"challengeId": id, "score": 10}},
		{"/api/v1/attestations/sign-battle", map[string]any{"challengeId": id}},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			w, body := s.do(t, "POST", tc.path, tc.body, "")
			require.Equal(t, nethttp.StatusBadRequest, w.Code)
			require.Equal(t, "validation", body["kind"])
		})
	}

	// вызов не тронут
	w, body := s.do(t, "GET", "/api/v1/challenges/"+id, nil, "")
	require.Equal(t, nethttp.StatusOK, w.Code)
	require.Equal(t, "pending", body["challenge"].(map[string]any)["status"])
}

func TestTieBattleAttestationConflict(t *testing.T) {
	s := newTestServer(t, testSignerKey, false)
	_, body := s.do(t, "POST", "/api/v1/challenges/create", map[string]any{"challengerId": "alice", "opponentId": "bob"}, "")
	id := challengeID(t, body)
	s.do(t, "POST", "/api/v1/challenges/accept", map[string]any{"challengeId": id, "callerId": "bob"}, "")
	s.do(t, "POST", "/api/v1/challenges/submit", map[string]any{"challengeId": id, "callerId": "alice", "score": 60}, "")
	s.do(t, "POST", "/api/v1/challenges/submit", map[string]any{"challengeId": id, "callerId": "bob", "score": 60}, "")

	w, body := s.do(t, "POST", "/api/v1/attestations/sign-battle", map[string]any{"challengeId": id, "callerId": "alice"}, "")
	require.Equal(t, nethttp.StatusConflict, w.Code)
	require.Equal(t, "policy_violation", body["kind"])
}

func TestSignAchievementOverHTTP(t *testing.T) {
	s := newTestServer(t, testSignerKey, false)
	claim := map[string]any{
		"player": "0xAB5801a7D398351b8bE11C439e05C5B3259aeC9B",
		"tier":   2,
		"score":  600,
		"nonce":  "115792089237316195423570985008687907853269984665640564039457584007913129639935",
	}

	w, first := s.do(t, "POST", "/api/v1/attestations/sign-achievement", claim, "")
	require.Equal(t, nethttp.StatusOK, w.Code)
	_, second := s.do(t, "POST", "/api/v1/attestations/sign-achievement", claim, "")
	require.Equal(t, first["signature"], second["signature"])

	claim["tier"] = 4
	claim["score"] = 300
	w, body := s.do(t, "POST", "/api/v1/attestations/sign-achievement", claim, "")
	require.Equal(t, nethttp.StatusBadRequest, w.Code)
	require.Equal(t, "policy_violation", body["kind"])
	require.Nil(t, body["signature"])

	claim["tier"] = 0
	claim["nonce"] = "1.5"
	w, _ = s.do(t, "POST", "/api/v1/attestations/sign-achievement", claim, "")
	require.Equal(t, nethttp.StatusBadRequest, w.Code)

	w, body = s.do(t, "GET", "/api/v1/attestations/signer", nil, "")
	require.Equal(t, nethttp.StatusOK, w.Code)
	require.Equal(t, first["signer"], body["address"])
}

func TestSignerUnavailableOverHTTP(t *testing.T) {
	s := newTestServer(t, "", false)
	w, _ := s.do(t, "POST", "/api/v1/attestations/sign-achievement", map[string]any{
		"player": "0xAB5801a7D398351b8bE11C439e05C5B3259aeC9B", "tier": 0, "score": 1, "nonce": 1,
	}, "")
	require.Equal(t, nethttp.StatusServiceUnavailable, w.Code)

	w, _ = s.do(t, "GET", "/api/v1/attestations/signer", nil, "")
	require.Equal(t, nethttp.StatusServiceUnavailable, w.Code)
}

func TestAuthRequiredOverHTTP(t *testing.T) {
	s := newTestServer(t, testSignerKey, true)

	w, _ := s.do(t, "POST", "/api/v1/challenges/create", map[string]any{"challengerId": "tg:1", "opponentId": "bob"}, "")
	require.Equal(t, nethttp.StatusUnauthorized, w.Code)

	token, err := service.GenerateJWT("tg:1")
	require.NoError(t, err)

	w, _ = s.do(t, "POST", "/api/v1/challenges/create", map[string]any{"challengerId": "someone-else", "opponentId": "bob"}, token)
	require.Equal(t, nethttp.StatusForbidden, w.Code)

	w, _ = s.do(t, "POST", "/api/v1/challenges/create", map[string]any{"challengerId": "tg:1", "opponentId": "bob"}, token)
	require.Equal(t, nethttp.StatusCreated, w.Code)

	// чтения доступны без токена
	w, _ = s.do(t, "GET", "/api/v1/challenges/pending?participant=bob", nil, "")
	require.Equal(t, nethttp.StatusOK, w.Code)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, testSignerKey, false)
	w, body := s.do(t, "GET", "/healthz", nil, "")
	require.Equal(t, nethttp.StatusOK, w.Code)
	require.Equal(t, "test", body["version"])

	r := gin.New()
	r.GET("/healthz", handlers.Health("v", map[string]handlers.Checker{
		"pg": handlers.CheckFunc(func(context.Context) error { return errors.New("down") }),
	}))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	require.Equal(t, nethttp.StatusServiceUnavailable, rec.Code)
}

func TestTelegramLoginRejectsGarbage(t *testing.T) {
	s := newTestServer(t, testSignerKey, false)
	w, _ := s.do(t, "POST", "/api/v1/auth/telegram", map[string]any{"initData": "hash=" + strconv.Itoa(1)}, "")
	require.Equal(t, nethttp.StatusForbidden, w.Code)

	w, _ = s.do(t, "POST", "/api/v1/auth/telegram", map[string]any{}, "")
	require.Equal(t, nethttp.StatusBadRequest, w.Code)
}
