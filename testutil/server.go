package testutil

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

// Server is a fake resource server serving /users and /posts from memory.
// Records are kept as JSON objects so tests can post any shape.
type Server struct {
	srv    *httptest.Server
	engine *gin.Engine

	mu       sync.Mutex
	data     map[string]map[int]map[string]any
	nextID   map[string]int
	calls    map[string]int
	failures map[string][]failure
	delay    time.Duration
	gate     chan struct{}
}

type failure struct {
	status int
	body   string
}

// NewServer starts a server seeded with two users and three posts. It is
// closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &Server{
		data:     map[string]map[int]map[string]any{"users": {}, "posts": {}},
		nextID:   map[string]int{"users": 11, "posts": 101},
		calls:    make(map[string]int),
		failures: make(map[string][]failure),
	}
	s.seed()
	s.engine = s.routes()
	s.srv = httptest.NewServer(s.engine)
	t.Cleanup(s.srv.Close)
	return s
}

func (s *Server) seed() {
	s.data["users"][1] = map[string]any{"id": 1, "name": "Leanne Graham", "username": "Bret", "email": "Sincere@april.biz"}
	s.data["users"][2] = map[string]any{"id": 2, "name": "Ervin Howell", "username": "Antonette", "email": "Shanna@melissa.tv"}
	s.data["posts"][1] = map[string]any{"id": 1, "userId": 1, "title": "first", "body": "hello"}
	s.data["posts"][2] = map[string]any{"id": 2, "userId": 1, "title": "second", "body": "again"}
	s.data["posts"][3] = map[string]any{"id": 3, "userId": 2, "title": "third", "body": "other"}
}

func (s *Server) routes() *gin.Engine {
	engine := gin.New()
	engine.RedirectTrailingSlash = false
	engine.HandleMethodNotAllowed = true
	engine.Use(s.intercept)

	for _, resource := range []string{"users", "posts"} {
		g := engine.Group("/" + resource)
		g.GET("", s.list(resource))
		g.POST("", s.create(resource))
		g.GET("/:id", s.member(resource, s.show))
		g.PUT("/:id", s.member(resource, s.replace))
		g.PATCH("/:id", s.member(resource, s.replace))
		g.DELETE("/:id", s.member(resource, s.remove))
	}

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{})
	})
	engine.NoMethod(func(c *gin.Context) {
		c.Status(http.StatusMethodNotAllowed)
	})
	return engine
}

// URL returns the base URL.
func (s *Server) URL() string { return s.srv.URL }

// Close stops the server early, e.g. to simulate a network failure.
func (s *Server) Close() { s.srv.Close() }

// Calls returns how many requests matched route, e.g. "GET /users/1".
// Query strings are part of the route: "GET /posts?userId=1".
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// TotalCalls returns the number of requests served.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// FailNext makes the next times requests to route answer with status.
func (s *Server) FailNext(route string, status, times int) {
	s.FailNextWithBody(route, status, times, "")
}

// FailNextWithBody is FailNext with a response body.
func (s *Server) FailNextWithBody(route string, status, times int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < times; i++ {
		s.failures[route] = append(s.failures[route], failure{status: status, body: body})
	}
}

// SetDelay delays every response by d.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Hold blocks every request until the returned release function is called.
func (s *Server) Hold() (release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gate := make(chan struct{})
	s.gate = gate
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.gate == gate {
				s.gate = nil
			}
			s.mu.Unlock()
			close(gate)
		})
	}
}

// intercept counts the request and applies holds, delays and injected
// failures before the route handler runs.
func (s *Server) intercept(c *gin.Context) {
	r := c.Request
	route := r.Method + " " + r.URL.Path
	if r.URL.RawQuery != "" {
		route += "?" + r.URL.RawQuery
	}

	s.mu.Lock()
	s.calls[route]++
	delay, gate := s.delay, s.gate
	var fail *failure
	if q := s.failures[route]; len(q) > 0 {
		fail = &q[0]
		s.failures[route] = q[1:]
	}
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			c.Abort()
			return
		}
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			c.Abort()
			return
		}
	}
	if fail != nil {
		c.Data(fail.status, "application/json", []byte(fail.body))
		c.Abort()
		return
	}
	c.Next()
}

func (s *Server) list(resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.Query("userId")
		s.mu.Lock()
		out := make([]map[string]any, 0, len(s.data[resource]))
		for _, rec := range s.data[resource] {
			if uid != "" && strconv.Itoa(toInt(rec["userId"])) != uid {
				continue
			}
			out = append(out, rec)
		}
		s.mu.Unlock()
		sort.Slice(out, func(i, j int) bool { return toInt(out[i]["id"]) < toInt(out[j]["id"]) })
		c.JSON(http.StatusOK, out)
	}
}

func (s *Server) create(resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var rec map[string]any
		if err := c.ShouldBindJSON(&rec); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body"})
			return
		}
		s.mu.Lock()
		id := s.nextID[resource]
		s.nextID[resource]++
		rec["id"] = id
		s.data[resource][id] = rec
		s.mu.Unlock()
		c.JSON(http.StatusCreated, rec)
	}
}

type memberHandler func(c *gin.Context, resource string, id int, rec map[string]any)

// member resolves :id and runs h with the store locked. Unknown ids are 404.
func (s *Server) member(resource string, h memberHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{})
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		rec, ok := s.data[resource][id]
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{})
			return
		}
		h(c, resource, id, rec)
	}
}

func (s *Server) show(c *gin.Context, _ string, _ int, rec map[string]any) {
	c.JSON(http.StatusOK, rec)
}

func (s *Server) replace(c *gin.Context, resource string, id int, rec map[string]any) {
	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body"})
		return
	}
	merged := make(map[string]any, len(rec)+len(patch))
	for k, v := range rec {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	merged["id"] = id
	s.data[resource][id] = merged
	c.JSON(http.StatusOK, merged)
}

func (s *Server) remove(c *gin.Context, resource string, id int, _ map[string]any) {
	delete(s.data[resource], id)
	c.JSON(http.StatusOK, gin.H{})
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}
