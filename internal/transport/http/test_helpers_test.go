package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/duetlink/matchtalk/internal/auth"
	"github.com/duetlink/matchtalk/internal/config"
	"github.com/duetlink/matchtalk/internal/core"
	"github.com/duetlink/matchtalk/internal/service/conversations"
	"github.com/duetlink/matchtalk/internal/service/messaging"
	"github.com/duetlink/matchtalk/internal/store/sqlite"
)

type testEnv struct {
	ts  *httptest.Server
	cfg *config.Config
}

// newTestEnv spins up the full stack on an in-memory database with the hub
// loop running.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := zerolog.New(io.Discard)
	cfg := config.Default()

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      time.Hour,
	}
	authService := auth.NewService(st, jwtConfig)

	registry := core.NewRegistry()
	hub := core.NewHub(registry, &logger)

	msgService := messaging.New(st, hub, &logger)
	convService := conversations.New(st, hub, &logger)

	srv := NewServer(hub, authService, convService, msgService, &cfg, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, cfg: &cfg}
}

// registerUser creates a user through the public API and returns its token
// and id.
func (e *testEnv) registerUser(t *testing.T, username string) (string, int64) {
	t.Helper()

	var resp AuthResponse
	status := e.doJSON(t, "POST", "/api/register", "", map[string]any{
		"username": username,
		"password": "password123",
	}, &resp)
	if status != stdhttp.StatusCreated {
		t.Fatalf("register %q: unexpected status %d", username, status)
	}
	return resp.Token, resp.UserID
}

// doJSON performs a JSON request and decodes the response body into out
// (which may be nil). It returns the response status code.
func (e *testEnv) doJSON(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := stdhttp.NewRequest(method, e.ts.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	resp, err := stdhttp.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			t.Fatalf("decode response of %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

// convPath builds an /api/conversations/:id path with an optional suffix.
func convPath(id int64, suffix string) string {
	return fmt.Sprintf("/api/conversations/%d%s", id, suffix)
}

// createConversation opens a conversation between the token's owner and other.
func (e *testEnv) createConversation(t *testing.T, token string, otherID int64) int64 {
	t.Helper()

	var resp ConversationResponse
	status := e.doJSON(t, "POST", "/api/conversations", token, map[string]any{
		"other_user_id": otherID,
	}, &resp)
	if status != stdhttp.StatusOK {
		t.Fatalf("create conversation: unexpected status %d", status)
	}
	return resp.ID
}
