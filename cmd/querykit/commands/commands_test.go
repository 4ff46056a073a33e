package commands_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/querykit/api"
	"github.com/kbukum/querykit/cmd/querykit/commands"
	"github.com/kbukum/querykit/config"
	qerrors "github.com/kbukum/querykit/errors"
	"github.com/kbukum/querykit/logger"
	"github.com/kbukum/querykit/query"
	"github.com/kbukum/querykit/testutil"
	"github.com/kbukum/querykit/tokenstore"
)

// harness runs CLI invocations against a fake resource server. Invocations
// share one token store, like a persistent store would across processes.
type harness struct {
	t          *testing.T
	srv        *testutil.Server
	store      tokenstore.Store
	configFile string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := testutil.NewServer(t)
	t.Setenv("NEXT_PUBLIC_API_BASE_URL", srv.URL())
	t.Setenv("NODE_ENV", config.EnvTest)
	t.Setenv("QUERYKIT_AUTH_STORE", commands.StoreMemory)
	t.Setenv("QUERYKIT_QUERY_RETRY_MAX_ATTEMPTS", "1")
	return &harness{
		t:          t,
		srv:        srv,
		store:      tokenstore.NewMemoryStore(),
		configFile: filepath.Join(t.TempDir(), "config.yml"),
	}
}

func (h *harness) run(args ...string) (stdout, stderr string, err error) {
	cli := commands.New(commands.WithLogger(logger.Nop()), commands.WithTokenStore(h.store))
	var out, errOut bytes.Buffer
	cli.SetOutput(&out, &errOut)
	cli.SetArgs(append([]string{"--config", h.configFile}, args...))
	err = cli.Execute(context.Background())
	return out.String(), errOut.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, stderr, err := h.run(args...)
	if err != nil {
		h.t.Fatalf("%v: %v (stderr: %s)", args, err, stderr)
	}
	return out
}

func decode[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	return v
}

func TestUsersList(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun("users", "list")

	for _, want := range []string{"Leanne Graham", "LG", "Antonette", "Shanna@melissa.tv"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	if n := h.srv.Calls("GET /users"); n != 1 {
		t.Errorf("expected 1 list request, got %d", n)
	}
}

func TestUsersGet(t *testing.T) {
	h := newHarness(t)

	u := decode[api.User](t, h.mustRun("users", "get", "1", "-o", "json"))
	if u.ID != 1 || u.Name != "Leanne Graham" {
		t.Errorf("unexpected user %+v", u)
	}

	tests := []struct {
		name    string
		args    []string
		wantErr string
		calls   int
	}{
		{name: "not a number", args: []string{"users", "get", "abc"}, wantErr: `invalid user id "abc"`},
		{name: "not positive", args: []string{"users", "get", "0"}, wantErr: `invalid user id "0"`},
		{name: "missing", args: []string{"users", "get", "99"}, wantErr: "HTTP 404", calls: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := h.srv.TotalCalls()
			_, _, err := h.run(tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
			if n := h.srv.TotalCalls() - before; n != tt.calls {
				t.Errorf("expected %d requests, got %d", tt.calls, n)
			}
		})
	}
}

func TestUsersCreate(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("users", "create", "--name", "Ada Lovelace", "--username", "ada", "--email", "ada@example.com", "-o", "json")
	u := decode[api.User](t, out)
	if u.ID != 11 || u.Username != "ada" {
		t.Errorf("unexpected user %+v", u)
	}
	if n := h.srv.Calls("POST /users"); n != 1 {
		t.Errorf("expected 1 create request, got %d", n)
	}
	if n := h.srv.Calls("GET /users/11"); n != 0 {
		t.Errorf("created user should be served from the cache, got %d requests", n)
	}
}

func TestUsersCreate_InvalidSendsNothing(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("users", "create", "--name", "Ada", "--username", "ada", "--email", "not-an-email")
	if !qerrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "email") {
		t.Errorf("expected the email field in %q", err.Error())
	}
	if n := h.srv.TotalCalls(); n != 0 {
		t.Errorf("expected no requests, got %d", n)
	}
}

func TestUsersUpdate(t *testing.T) {
	tests := []struct {
		name     string
		extra    []string
		wantGets int
	}{
		{name: "plain", wantGets: 0},
		{name: "optimistic", extra: []string{"--optimistic"}, wantGets: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			args := append([]string{"users", "update", "1", "--name", "Leanne G.", "-o", "json"}, tt.extra...)
			u := decode[api.User](t, h.mustRun(args...))

			if u.Name != "Leanne G." || u.Username != "Bret" {
				t.Errorf("unexpected user %+v", u)
			}
			if n := h.srv.Calls("PUT /users/1"); n != 1 {
				t.Errorf("expected 1 update request, got %d", n)
			}
			if n := h.srv.Calls("GET /users/1"); n != tt.wantGets {
				t.Errorf("expected %d detail requests, got %d", tt.wantGets, n)
			}
		})
	}
}

func TestUsersUpdate_OptimisticFailure(t *testing.T) {
	h := newHarness(t)
	h.srv.FailNextWithBody("PUT /users/1", 409, 1, `{"message":"conflict","code":"CONFLICT"}`)

	_, _, err := h.run("users", "update", "1", "--name", "Leanne G.", "--optimistic")
	if !qerrors.IsStatus(err, 409) {
		t.Fatalf("expected 409, got %v", err)
	}
	if !strings.Contains(err.Error(), "conflict") {
		t.Errorf("expected the server message in %q", err.Error())
	}
}

func TestUsersDelete(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun("users", "delete", "2")
	if !strings.Contains(out, "Deleted user 2") {
		t.Errorf("unexpected output %q", out)
	}

	_, _, err := h.run("users", "get", "2")
	if !qerrors.IsNotFound(err) {
		t.Errorf("expected 404 after delete, got %v", err)
	}
}

func TestPostsList(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("posts", "list")
	for _, want := range []string{"first", "third", "Leanne Graham", "Ervin Howell"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	if n := h.srv.Calls("GET /users"); n != 1 {
		t.Errorf("expected one users request for author names, got %d", n)
	}

	byUser := decode[[]api.Post](t, h.mustRun("posts", "list", "--user", "2", "-o", "json"))
	if len(byUser) != 1 || byUser[0].ID != 3 {
		t.Errorf("unexpected posts %+v", byUser)
	}
	if n := h.srv.Calls("GET /posts?userId=2"); n != 1 {
		t.Errorf("expected 1 byUser request, got %d", n)
	}
}

func TestPostsList_AuthorsUnavailable(t *testing.T) {
	h := newHarness(t)
	h.srv.FailNext("GET /users", 404, 1)

	out := h.mustRun("posts", "list")
	if !strings.Contains(out, "Unknown User") {
		t.Errorf("expected fallback author label:\n%s", out)
	}
}

func TestPostsCreateAndGet_UnknownAuthor(t *testing.T) {
	h := newHarness(t)

	p := decode[api.Post](t, h.mustRun("posts", "create", "--user", "7", "--title", "orphan", "--body", "text", "-o", "json"))
	if p.ID != 101 || p.UserID != 7 {
		t.Fatalf("unexpected post %+v", p)
	}

	out := h.mustRun("posts", "get", "101")
	if !strings.Contains(out, "orphan") || !strings.Contains(out, "Unknown User") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestPostsCreate_Invalid(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.run("posts", "create", "--title", "no author", "--body", "text")
	if !qerrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if n := h.srv.TotalCalls(); n != 0 {
		t.Errorf("expected no requests, got %d", n)
	}
}

func TestPostsUpdate_KeepsUnsetFields(t *testing.T) {
	h := newHarness(t)

	p := decode[api.Post](t, h.mustRun("posts", "update", "1", "--title", "renamed", "-o", "json"))
	if p.Title != "renamed" || p.Body != "hello" || p.UserID != 1 {
		t.Errorf("unexpected post %+v", p)
	}
	if n := h.srv.Calls("GET /posts/1"); n != 1 {
		t.Errorf("expected the current post to be read once, got %d", n)
	}
}

func TestPostsDelete(t *testing.T) {
	h := newHarness(t)
	if out := h.mustRun("posts", "delete", "2"); !strings.Contains(out, "Deleted post 2") {
		t.Errorf("unexpected output %q", out)
	}
	if _, _, err := h.run("posts", "delete", "2"); !qerrors.IsNotFound(err) {
		t.Errorf("expected 404 for a deleted post, got %v", err)
	}
}

func TestLoginLogout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	out := h.mustRun("login", "--token", "secret-token")
	if !strings.Contains(out, "secr***") || strings.Contains(out, "secret-token") {
		t.Errorf("token must be masked: %q", out)
	}
	if v, _ := h.store.Get(ctx, tokenstore.DefaultKey); v != "secret-token" {
		t.Errorf("expected stored token, got %q", v)
	}

	h.mustRun("logout")
	if _, err := h.store.Get(ctx, tokenstore.DefaultKey); !errors.Is(err, tokenstore.ErrNotFound) {
		t.Errorf("expected token cleared, got %v", err)
	}
}

func TestLogin_JWTExpiry(t *testing.T) {
	h := newHarness(t)

	sign := func(exp time.Time) string {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		}).SignedString([]byte("k"))
		if err != nil {
			t.Fatal(err)
		}
		return tok
	}

	if _, _, err := h.run("login", "--token", sign(time.Now().Add(-time.Hour))); err == nil || !strings.Contains(err.Error(), "expired") {
		t.Errorf("expected expired token to be rejected, got %v", err)
	}
	if _, err := h.store.Get(context.Background(), tokenstore.DefaultKey); !errors.Is(err, tokenstore.ErrNotFound) {
		t.Error("an expired token must not be stored")
	}

	out := h.mustRun("login", "--token", sign(time.Now().Add(time.Hour)))
	if !strings.Contains(out, "Token expires") {
		t.Errorf("expected expiry line, got %q", out)
	}
}

func TestLogin_RequiresToken(t *testing.T) {
	h := newHarness(t)
	if _, _, err := h.run("login"); err == nil {
		t.Error("expected error without --token")
	}
}

func TestUnauthorized_ClearsTokenAndRedirects(t *testing.T) {
	h := newHarness(t)
	h.mustRun("login", "--token", "expired")
	h.srv.FailNext("GET /users", 401, 1)

	_, stderr, err := h.run("users", "list")
	if !qerrors.IsUnauthorized(err) {
		t.Fatalf("expected 401, got %v", err)
	}
	if !strings.Contains(stderr, "querykit login") || !strings.Contains(stderr, "/login") {
		t.Errorf("expected login hint, got %q", stderr)
	}
	if _, err := h.store.Get(context.Background(), tokenstore.DefaultKey); !errors.Is(err, tokenstore.ErrNotFound) {
		t.Errorf("expected token cleared after 401, got %v", err)
	}
}

func TestStatus(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun("status")
	for _, want := range []string{"http", "Query cache", "healthy"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	if n := h.srv.TotalCalls(); n != 0 {
		t.Errorf("status must not contact the server, got %d requests", n)
	}
}

func TestCache(t *testing.T) {
	t.Run("development only", func(t *testing.T) {
		h := newHarness(t)
		if _, _, err := h.run("cache"); err == nil || !strings.Contains(err.Error(), "development") {
			t.Errorf("expected development-only error, got %v", err)
		}
	})

	t.Run("warm snapshot", func(t *testing.T) {
		h := newHarness(t)
		t.Setenv("NODE_ENV", config.EnvDevelopment)

		states := decode[[]query.State](t, h.mustRun("cache", "-o", "json"))
		if len(states) != 2 {
			t.Fatalf("expected 2 entries, got %+v", states)
		}
		for _, s := range states {
			if s.Status != query.StatusSuccess || !s.HasData {
				t.Errorf("unexpected state %+v", s)
			}
		}

		out := h.mustRun("cache", "--warm=false")
		if strings.Contains(out, "users") {
			t.Errorf("cold cache should be empty:\n%s", out)
		}
	})
}

func TestVersion(t *testing.T) {
	h := newHarness(t)
	if out := h.mustRun("version"); !strings.HasPrefix(out, "querykit ") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestUnknownOutputFormat(t *testing.T) {
	h := newHarness(t)
	if _, _, err := h.run("users", "list", "-o", "yaml"); err == nil {
		t.Error("expected error for unknown output format")
	}
	if n := h.srv.TotalCalls(); n != 0 {
		t.Errorf("expected no requests, got %d", n)
	}
}
