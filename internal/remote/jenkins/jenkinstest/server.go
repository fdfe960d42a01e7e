// Package jenkinstest provides an in-process fake of the Jenkins REST API
// subset used by the jenkins client.
package jenkinstest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	// CrumbField is the header name handed out by the crumb issuer.
	CrumbField = "Jenkins-Crumb"
	// SessionCookie carries the session a crumb is bound to.
	SessionCookie = "JSESSIONID"

	// FolderClass and JobClass are the _class values reported in listings.
	FolderClass = "com.cloudbees.hudson.plugins.folder.Folder"
	JobClass    = "hudson.model.FreeStyleProject"
)

// Options configures the fake.
type Options struct {
	Username string
	Token    string
	// DisableCrumbs makes the crumb issuer answer 404.
	DisableCrumbs bool
}

// Server is a fake Jenkins controller backed by maps.
type Server struct {
	*httptest.Server

	opts Options

	mu           sync.Mutex
	jobs         map[string]string
	buildNumbers map[string]int
	views        map[string]string
	folders      map[string]bool
	sessions     map[string]string
	requests     []string
	failures     map[string]int
}

// NewServer starts a fake. Callers must Close it.
func NewServer(opts Options) *Server {
	s := &Server{
		opts:         opts,
		jobs:         make(map[string]string),
		buildNumbers: make(map[string]int),
		views:        make(map[string]string),
		folders:      make(map[string]bool),
		sessions:     make(map[string]string),
		failures:     make(map[string]int),
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record, s.authenticate)

	r.Get("/crumbIssuer/*", s.crumbIssuer)
	r.Group(func(r chi.Router) {
		r.Use(s.requireCrumb)
		r.Post("/createItem", s.createItem(""))
		r.Post("/createView", s.createView)
		r.Post("/view/{name}/config.xml", s.reconfigureView)
		r.Post("/job/*", s.jobAction)
	})
	r.Get("/api/json", s.root)
	r.Get("/view/{name}/api/json", s.viewInfo)
	r.Get("/job/*", s.jobAction)
	return r
}

// AddJob seeds a job.
func (s *Server) AddJob(id, document string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addJobLocked(id, document)
}

func (s *Server) addJobLocked(id, document string) {
	s.jobs[id] = document
	parts := strings.Split(id, "/")
	for i := 1; i < len(parts); i++ {
		s.folders[strings.Join(parts[:i], "/")] = true
	}
}

// AddView seeds a view.
func (s *Server) AddView(name, document string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views[name] = document
}

// FailNext makes the next n requests whose "METHOD path" starts with prefix
// answer 500.
func (s *Server) FailNext(prefix string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[prefix] = n
}

// Job returns a stored job document.
func (s *Server) Job(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.jobs[id]
	return doc, ok
}

// View returns a stored view document.
func (s *Server) View(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.views[name]
	return doc, ok
}

// NextBuildNumber returns the build number last submitted for id.
func (s *Server) NextBuildNumber(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buildNumbers[id]
}

// JobIDs returns the stored job ids, sorted.
func (s *Server) JobIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Sessions returns the number of sessions the crumb issuer has opened.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Requests returns every request seen as "METHOD path".
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		line := r.Method + " " + r.URL.Path

		s.mu.Lock()
		s.requests = append(s.requests, line)
		fail := false
		for prefix, n := range s.failures {
			if n > 0 && strings.HasPrefix(line, prefix) {
				s.failures[prefix] = n - 1
				fail = true
				break
			}
		}
		s.mu.Unlock()

		if fail {
			http.Error(w, "<html><body>Internal Server Error</body></html>", http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.Username != "" {
			user, token, ok := r.BasicAuth()
			if !ok || user != s.opts.Username || token != s.opts.Token {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// requireCrumb accepts a POST only when its crumb was issued to the session
// named by its cookie.
func (s *Server) requireCrumb(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.DisableCrumbs {
			next.ServeHTTP(w, r)
			return
		}
		crumb := r.Header.Get(CrumbField)
		s.mu.Lock()
		issued, ok := s.sessions[sessionID(r)]
		s.mu.Unlock()
		if crumb == "" || !ok || crumb != issued {
			http.Error(w, "No valid crumb was included in the request", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionID(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// crumbIssuer hands out one crumb per session, opening a session when the
// request carries no known session cookie.
func (s *Server) crumbIssuer(w http.ResponseWriter, r *http.Request) {
	if s.opts.DisableCrumbs {
		http.NotFound(w, r)
		return
	}

	s.mu.Lock()
	id := sessionID(r)
	crumb, ok := s.sessions[id]
	if !ok {
		id = uuid.NewString()
		crumb = uuid.NewString()
		s.sessions[id] = crumb
	}
	s.mu.Unlock()

	if !ok {
		http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: id, Path: "/", HttpOnly: true})
	}
	writeJSON(w, map[string]string{"crumb": crumb, "crumbRequestField": CrumbField})
}

type item struct {
	Class string `json:"_class"`
	Name  string `json:"name"`
}

func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Query().Get("tree"), "jobs") {
		writeJSON(w, map[string]string{"mode": "NORMAL"})
		return
	}
	writeJSON(w, map[string]any{"jobs": s.children("")})
}

// children lists the direct children of folder, the root when empty.
func (s *Server) children(folder string) []item {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := ""
	if folder != "" {
		prefix = folder + "/"
	}
	var items []item
	collect := func(full, class string) {
		if !strings.HasPrefix(full, prefix) {
			return
		}
		name := strings.TrimPrefix(full, prefix)
		if name == "" || strings.Contains(name, "/") {
			return
		}
		items = append(items, item{Class: class, Name: name})
	}
	for id := range s.jobs {
		collect(id, JobClass)
	}
	for id := range s.folders {
		collect(id, FolderClass)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items
}

// splitJobPath turns "a/job/b/config.xml" into ("a/b", "config.xml").
func splitJobPath(rest string) (string, string) {
	segments := strings.Split(strings.Trim(rest, "/"), "/")
	var names []string
	i := 0
	for i < len(segments) {
		name, err := url.PathUnescape(segments[i])
		if err != nil {
			name = segments[i]
		}
		names = append(names, name)
		i++
		if i < len(segments) && segments[i] == "job" {
			i++
			continue
		}
		break
	}
	return strings.Join(names, "/"), strings.Join(segments[i:], "/")
}

func (s *Server) jobAction(w http.ResponseWriter, r *http.Request) {
	id, action := splitJobPath(chi.URLParam(r, "*"))

	if r.Method == http.MethodGet {
		if action != "api/json" {
			http.NotFound(w, r)
			return
		}
		s.mu.Lock()
		_, isJob := s.jobs[id]
		isFolder := s.folders[id]
		s.mu.Unlock()
		switch {
		case isFolder && strings.HasPrefix(r.URL.Query().Get("tree"), "jobs"):
			writeJSON(w, map[string]any{"_class": FolderClass, "jobs": s.children(id)})
		case isFolder:
			writeJSON(w, map[string]string{"_class": FolderClass, "name": id})
		case isJob:
			writeJSON(w, map[string]string{"_class": JobClass, "name": id})
		default:
			http.NotFound(w, r)
		}
		return
	}

	switch action {
	case "createItem":
		s.createItem(id)(w, r)
	case "config.xml":
		s.reconfigureJob(id, w, r)
	case "doDelete":
		s.deleteJob(id, w, r)
	case "nextbuildnumber/submit":
		s.submitBuildNumber(id, w, r)
	default:
		http.NotFound(w, r)
	}
}

func readBody(r *http.Request) string {
	data, _ := io.ReadAll(r.Body)
	return string(data)
}

func (s *Server) createItem(folder string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		if name == "" {
			http.Error(w, "Query parameter 'name' is required", http.StatusBadRequest)
			return
		}
		id := name
		if folder != "" {
			id = folder + "/" + name
		}
		doc := readBody(r)

		s.mu.Lock()
		defer s.mu.Unlock()
		if folder != "" && !s.folders[folder] {
			http.NotFound(w, r)
			return
		}
		if _, ok := s.jobs[id]; ok {
			msg := "A job already exists with the name '" + name + "'"
			w.Header().Set("X-Error", msg)
			http.Error(w, msg, http.StatusBadRequest)
			return
		}
		s.addJobLocked(id, doc)
	}
}

func (s *Server) reconfigureJob(id string, w http.ResponseWriter, r *http.Request) {
	doc := readBody(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		http.NotFound(w, r)
		return
	}
	s.jobs[id] = doc
}

func (s *Server) deleteJob(id string, w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		http.NotFound(w, r)
		return
	}
	delete(s.jobs, id)
	delete(s.buildNumbers, id)
}

func (s *Server) submitBuildNumber(id string, w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	n, err := strconv.Atoi(r.PostForm.Get("nextBuildNumber"))
	if err != nil || n < 1 {
		http.Error(w, "invalid build number", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		http.NotFound(w, r)
		return
	}
	s.buildNumbers[id] = n
}

func (s *Server) viewInfo(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s.mu.Lock()
	_, ok := s.views[name]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, map[string]string{"name": name})
}

func (s *Server) createView(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	doc := readBody(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.views[name]; ok || name == "" {
		http.Error(w, "View name is invalid or already exists", http.StatusBadRequest)
		return
	}
	s.views[name] = doc
}

func (s *Server) reconfigureView(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	doc := readBody(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.views[name]; !ok {
		http.NotFound(w, r)
		return
	}
	s.views[name] = doc
}
