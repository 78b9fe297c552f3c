// Package server serves a directory of Markdown pages over HTTP, rendering
// each page with a request context built from the site configuration and
// the request's preview flag.
package server

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ay/mdrender/internal/config"
	"github.com/ay/mdrender/internal/module"
	"github.com/ay/mdrender/request"
)

//go:embed assets/*
var assets embed.FS

// EventsPath is the Server-Sent Events endpoint used for live preview.
const EventsPath = "/_events"

// PreviewParam is the query parameter that switches a request to preview
// mode.
const PreviewParam = "preview"

var pageTemplate = template.Must(template.ParseFS(assets, "assets/page.html"))

// Server renders Markdown pages from a content directory.
type Server struct {
	module   *module.Module
	root     *os.Root
	sitePath string
	site     atomic.Pointer[config.Site]

	sseClients  map[string]map[chan string]bool
	clientsLock sync.RWMutex
}

// New creates a server for contentDir. The module is (re)activated with the
// site's renderer settings.
func New(mod *module.Module, contentDir, sitePath string, site *config.Site) (*Server, error) {
	root, err := os.OpenRoot(contentDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open content directory: %w", err)
	}

	s := &Server{
		module:     mod,
		root:       root,
		sitePath:   sitePath,
		sseClients: make(map[string]map[chan string]bool),
	}
	if err := s.setSite(site); err != nil {
		_ = root.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the content directory.
func (s *Server) Close() error {
	return s.root.Close()
}

// Site returns the current site configuration.
func (s *Server) Site() *config.Site {
	return s.site.Load()
}

func (s *Server) setSite(site *config.Site) error {
	if err := s.module.Activate(site.RendererOptions()...); err != nil {
		return fmt.Errorf("failed to activate renderer: %w", err)
	}
	s.site.Store(site)
	return nil
}

// ReloadSite re-reads the site file and tells every open preview to reload.
func (s *Server) ReloadSite() error {
	site, err := config.LoadSite(s.sitePath)
	if err != nil {
		return err
	}
	if err := s.setSite(site); err != nil {
		return err
	}
	log.Printf("Site config reloaded (context path %s)", site.ContextPath)
	s.notifyAll("reload")
	return nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(EventsPath, s.handleSSE)
	mux.HandleFunc("/", s.handlePage)
	return withRequestID(mux)
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", id)
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s (%s)", id, r.Method, r.URL.Path, time.Since(start))
	})
}

var (
	errOutsideContext = errors.New("path outside context path")
	errTraversal      = errors.New("path escapes content directory")
)

// pageName maps a URL path to a content page name, relative to the
// content directory and without the .md suffix.
func pageName(urlPath, contextPath string) (string, error) {
	if contextPath != "/" {
		rest, ok := strings.CutPrefix(urlPath, contextPath)
		if !ok || (rest != "" && !strings.HasPrefix(rest, "/")) {
			return "", errOutsideContext
		}
		urlPath = rest
	}

	for _, segment := range strings.Split(urlPath, "/") {
		if segment == ".." {
			return "", errTraversal
		}
	}

	page := strings.Trim(path.Clean("/"+urlPath), "/")
	if page == "" {
		return "index", nil
	}
	return page, nil
}

// handlePage renders the page addressed by the request path
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	site := s.Site()

	page, err := pageName(r.URL.Path, site.ContextPath)
	if errors.Is(err, errTraversal) {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if err != nil {
		http.NotFound(w, r)
		return
	}

	source, page, err := s.readPage(page)
	if errors.Is(err, fs.ErrNotExist) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		log.Printf("Failed to read page %s: %v", page, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	renderer, err := s.module.Renderer()
	if err != nil {
		log.Printf("Failed to get renderer: %v", err)
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	rc := request.New()
	request.Add(rc, site.Properties())
	preview := r.URL.Query().Has(PreviewParam)
	if preview {
		request.Add(rc, request.Preview{})
	}
	ctx := request.NewContext(r.Context(), rc)

	content := renderer.Render(ctx, string(source))

	cssContent, err := assets.ReadFile("assets/style.css")
	if err != nil {
		log.Printf("Failed to read CSS: %v", err)
		cssContent = []byte("")
	}

	jsContent, err := assets.ReadFile("assets/script.js")
	if err != nil {
		log.Printf("Failed to read JavaScript: %v", err)
		jsContent = []byte("")
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	data := struct {
		Title     string
		CSS       template.CSS
		Content   template.HTML
		JS        template.JS
		Preview   bool
		EventsURL string
	}{
		Title:     pageTitle(site, page),
		CSS:       template.CSS(cssContent),
		Content:   template.HTML(content),
		JS:        template.JS(jsContent),
		Preview:   preview,
		EventsURL: EventsPath + "?page=" + url.QueryEscape(page),
	}

	if err := pageTemplate.Execute(w, data); err != nil {
		log.Printf("Failed to execute page template: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// readPage loads page.md, falling back to page/index.md. It returns the
// name of the page actually read.
func (s *Server) readPage(page string) ([]byte, string, error) {
	data, err := s.readFile(page + ".md")
	if errors.Is(err, fs.ErrNotExist) {
		index := path.Join(page, "index")
		if data, err := s.readFile(index + ".md"); err == nil || !errors.Is(err, fs.ErrNotExist) {
			return data, index, err
		}
	}
	return data, page, err
}

func (s *Server) readFile(name string) ([]byte, error) {
	f, err := s.root.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("Failed to close %s: %v", name, err)
		}
	}()
	return io.ReadAll(f)
}

func pageTitle(site *config.Site, page string) string {
	title := site.Properties().String("title", "")
	if title == "" {
		return page
	}
	return page + " - " + title
}

// handleSSE handles Server-Sent Events for a specific page
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	page := r.URL.Query().Get("page")
	if page == "" {
		http.Error(w, "Missing page parameter", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	clientChan := make(chan string, 1)

	s.clientsLock.Lock()
	if s.sseClients[page] == nil {
		s.sseClients[page] = make(map[chan string]bool)
	}
	s.sseClients[page][clientChan] = true
	s.clientsLock.Unlock()

	defer func() {
		s.clientsLock.Lock()
		delete(s.sseClients[page], clientChan)
		if len(s.sseClients[page]) == 0 {
			delete(s.sseClients, page)
		}
		close(clientChan)
		s.clientsLock.Unlock()
	}()

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	// Keep connection alive
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg := <-clientChan:
			if _, err := fmt.Fprintf(w, "data: %s\n\n", msg); err != nil {
				log.Printf("Error writing SSE message: %v", err)
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		case <-ticker.C:
			if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
				log.Printf("Error writing keepalive: %v", err)
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		case <-r.Context().Done():
			return
		}
	}
}

// NotifyPage sends a reload message to all SSE clients previewing page.
func (s *Server) NotifyPage(page string) {
	s.clientsLock.RLock()
	defer s.clientsLock.RUnlock()

	for client := range s.sseClients[page] {
		select {
		case client <- "reload":
		default:
		}
	}
}

// notifyAll sends a message to every SSE client
func (s *Server) notifyAll(message string) {
	s.clientsLock.RLock()
	defer s.clientsLock.RUnlock()

	for _, clients := range s.sseClients {
		for client := range clients {
			select {
			case client <- message:
			default:
			}
		}
	}
}

// clientCount returns the number of SSE clients watching page
func (s *Server) clientCount(page string) int {
	s.clientsLock.RLock()
	defer s.clientsLock.RUnlock()
	return len(s.sseClients[page])
}
