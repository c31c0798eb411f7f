package preview

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DefaultAddr is the loopback address previews are served from
const DefaultAddr = "127.0.0.1:0"

// sandboxPolicy allows scripts but denies same-origin access, top-level
// navigation, popups and forms
const sandboxPolicy = "sandbox allow-scripts"

const maxDocuments = 32

// ServerConfig configures a Server
type ServerConfig struct {
	Addr   string
	Logger *slog.Logger
}

// Server serves published documents under a sandboxing content policy
type Server struct {
	addr   string
	logger *slog.Logger
	engine *gin.Engine

	mu      sync.RWMutex
	docs    map[string]document
	order   []string
	baseURL string
	srv     *http.Server
}

type document struct {
	ID        string
	Title     string
	Body      string
	CreatedAt time.Time
}

// NewServer creates a preview server. Call Start before Publish.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		addr:   cfg.Addr,
		logger: cfg.Logger.With("component", "preview"),
		docs:   map[string]document{},
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.logRequests)
	engine.GET("/", s.handleIndex)
	engine.GET("/p/:id", s.handleDocument)
	s.engine = engine
	return s
}

// Handler returns the HTTP handler serving previews
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens on the configured address and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	srv := &http.Server{Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}

	s.mu.Lock()
	s.srv = srv
	s.baseURL = "http://" + ln.Addr().String()
	s.mu.Unlock()

	s.logger.Info("preview server listening", "url", s.baseURL)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("preview server stopped", "error", err)
		}
	}()
	return nil
}

// BaseURL returns the root URL, empty before Start
func (s *Server) BaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseURL
}

// Publish stores doc and returns its URL. Only the most recent documents
// are kept.
func (s *Server) Publish(title, doc string) string {
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[id] = document{ID: id, Title: title, Body: doc, CreatedAt: time.Now()}
	s.order = append(s.order, id)
	for len(s.order) > maxDocuments {
		delete(s.docs, s.order[0])
		s.order = s.order[1:]
	}
	return s.baseURL + "/p/" + id
}

// PublishCode builds a document for code and publishes it
func (s *Server) PublishCode(block CodeBlock) string {
	return s.Publish(Title(block), BuildDocument(block.Code, block.Language))
}

// Close shuts the server down
func (s *Server) Close(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) handleDocument(c *gin.Context) {
	s.mu.RLock()
	doc, ok := s.docs[c.Param("id")]
	s.mu.RUnlock()
	if !ok {
		c.String(http.StatusNotFound, "preview not found")
		return
	}
	setIsolationHeaders(c)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(doc.Body))
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Previews</title></head>
<body><h1>Previews</h1><ul>
{{- range .}}
<li><a href="/p/{{.ID}}">{{.Title}}</a> <small>{{.CreatedAt.Format "15:04:05"}}</small></li>
{{- else}}
<li>Nothing published yet.</li>
{{- end}}
</ul></body></html>
`))

func (s *Server) handleIndex(c *gin.Context) {
	s.mu.RLock()
	docs := make([]document, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		docs = append(docs, s.docs[s.order[i]])
	}
	s.mu.RUnlock()

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Header("Cache-Control", "no-store")
	c.Status(http.StatusOK)
	if err := indexTemplate.Execute(c.Writer, docs); err != nil {
		s.logger.Error("failed to render index", "error", err)
	}
}

func setIsolationHeaders(c *gin.Context) {
	c.Header("Content-Security-Policy", sandboxPolicy)
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Referrer-Policy", "no-referrer")
	c.Header("Cache-Control", "no-store")
}

func (s *Server) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.logger.Debug("preview request",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"duration", time.Since(start))
}
