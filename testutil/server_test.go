package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
)

func get(t *testing.T, url string) (int, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, body
}

func TestServer_CollectionAndFilter(t *testing.T) {
	s := NewServer(t)

	status, body := get(t, s.URL()+"/posts?userId=1")
	if status != 200 {
		t.Fatalf("unexpected status %d", status)
	}
	var posts []map[string]any
	_ = json.Unmarshal(body, &posts)
	if len(posts) != 2 {
		t.Errorf("expected 2 posts for user 1, got %d", len(posts))
	}
	if s.Calls("GET /posts?userId=1") != 1 {
		t.Errorf("unexpected call count %d", s.Calls("GET /posts?userId=1"))
	}
}

func TestServer_CreateAndMissing(t *testing.T) {
	s := NewServer(t)

	resp, err := http.Post(s.URL()+"/posts", "application/json", strings.NewReader(`{"title":"T","body":"B","userId":1}`))
	if err != nil {
		t.Fatal(err)
	}
	var created map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()
	if resp.StatusCode != 201 || toInt(created["id"]) != 101 {
		t.Errorf("unexpected create %d %v", resp.StatusCode, created)
	}

	if status, _ := get(t, s.URL()+"/users/99"); status != 404 {
		t.Errorf("expected 404, got %d", status)
	}
}

func TestServer_FailNext(t *testing.T) {
	s := NewServer(t)
	s.FailNextWithBody("GET /users/1", 500, 1, `{"message":"boom"}`)

	if status, body := get(t, s.URL()+"/users/1"); status != 500 || !strings.Contains(string(body), "boom") {
		t.Errorf("expected injected failure, got %d %s", status, body)
	}
	if status, _ := get(t, s.URL()+"/users/1"); status != 200 {
		t.Errorf("failure should only apply once, got %d", status)
	}
	if s.TotalCalls() != 2 {
		t.Errorf("expected 2 calls, got %d", s.TotalCalls())
	}
}

func TestServer_UnknownRoutes(t *testing.T) {
	s := NewServer(t)

	if status, _ := get(t, s.URL()+"/comments"); status != http.StatusNotFound {
		t.Errorf("unknown resource: expected 404, got %d", status)
	}
	if status, _ := get(t, s.URL()+"/users/abc"); status != http.StatusNotFound {
		t.Errorf("non-numeric id: expected 404, got %d", status)
	}

	req, _ := http.NewRequest(http.MethodPost, s.URL()+"/users/1", strings.NewReader(`{}`))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST on a member: expected 405, got %d", resp.StatusCode)
	}
	if s.Calls("POST /users/1") != 1 {
		t.Error("rejected requests are still counted")
	}
}
