package render

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"jenkey/pkg/logging"
)

// DefaultExtension is appended to every logical template path.
const DefaultExtension = ".tmpl"

// MaxIncludeDepth bounds nested include calls.
const MaxIncludeDepth = 64

// Root is one entry of the template search path.
type Root struct {
	// Name identifies the root in diagnostics, usually its directory.
	Name string
	// FS holds the templates. Logical paths are resolved relative to it.
	FS fs.FS
}

// Option configures an Engine.
type Option func(*Engine)

// WithExtension overrides DefaultExtension.
func WithExtension(ext string) Option {
	return func(e *Engine) {
		e.extension = ext
	}
}

// WithFuncs adds template functions on top of the sprig function map.
func WithFuncs(funcs template.FuncMap) Option {
	return func(e *Engine) {
		for name, fn := range funcs {
			e.funcs[name] = fn
		}
	}
}

// Engine renders logical template paths found in an ordered list of roots.
// The first root containing a template wins. Parsed templates are cached and
// an Engine is safe for concurrent use.
type Engine struct {
	roots     []Root
	extension string
	funcs     template.FuncMap

	mu    sync.RWMutex
	cache map[string]*template.Template
}

// New creates an engine searching roots in order.
func New(roots []Root, opts ...Option) *Engine {
	e := &Engine{
		roots:     roots,
		extension: DefaultExtension,
		funcs:     template.FuncMap{},
		cache:     make(map[string]*template.Template),
	}
	for name, fn := range sprig.TxtFuncMap() {
		e.funcs[name] = fn
	}
	e.funcs["xml"] = escapeXML
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewFromPaths creates an engine over directories on disk. Directories that
// do not exist stay in the search path and simply never match.
func NewFromPaths(paths []string, opts ...Option) *Engine {
	roots := make([]Root, 0, len(paths))
	for _, p := range paths {
		roots = append(roots, Root{Name: p, FS: os.DirFS(p)})
	}
	return New(roots, opts...)
}

// SearchPath returns the root names in lookup order.
func (e *Engine) SearchPath() []string {
	names := make([]string, len(e.roots))
	for i, root := range e.roots {
		names[i] = root.Name
	}
	return names
}

// Render executes the template at the logical path (without extension) with
// data as its context.
func (e *Engine) Render(name string, data map[string]any) (string, error) {
	tpl, err := e.load(name)
	if err != nil {
		return "", err
	}
	return e.execute(tpl, data, nil)
}

// execute runs a clone of the cached template with include bound to the
// chain of templates that led here.
func (e *Engine) execute(tpl *template.Template, data any, chain []string) (string, error) {
	chain = append(chain[:len(chain):len(chain)], tpl.Name())
	if len(chain) > MaxIncludeDepth {
		return "", &IncludeDepthError{Chain: chain}
	}

	run, err := tpl.Clone()
	if err != nil {
		return "", &UndefinedError{Path: tpl.Name(), Err: err}
	}
	run.Funcs(template.FuncMap{"include": e.includeFrom(path.Dir(tpl.Name()), chain)})

	var b strings.Builder
	if err := run.Execute(&b, data); err != nil {
		var depth *IncludeDepthError
		if errors.As(err, &depth) {
			if len(chain) > 1 {
				return "", depth
			}
			return "", &UndefinedError{Path: tpl.Name(), Err: depth}
		}
		return "", &UndefinedError{Path: tpl.Name(), Err: err}
	}
	return b.String(), nil
}

// Exists reports whether the logical path resolves in any root.
func (e *Engine) Exists(name string) bool {
	_, _, err := e.read(e.filename(name))
	return err == nil
}

// Reset drops every cached template so that edited files are read again.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = make(map[string]*template.Template)
}

func (e *Engine) filename(name string) string {
	return path.Clean(strings.TrimPrefix(name, "/")) + e.extension
}

func (e *Engine) load(name string) (*template.Template, error) {
	file := e.filename(name)

	e.mu.RLock()
	tpl, ok := e.cache[file]
	e.mu.RUnlock()
	if ok {
		return tpl, nil
	}

	src, root, err := e.read(file)
	if err != nil {
		return nil, err
	}
	logging.Debug("Render", "Resolved template %s from %s", file, root)

	tpl, err = template.New(file).
		Funcs(e.funcs).
		Funcs(template.FuncMap{"include": e.includeFrom(path.Dir(file), nil)}).
		Option("missingkey=error").
		Parse(string(src))
	if err != nil {
		return nil, &SyntaxError{Path: file, Err: err}
	}

	e.mu.Lock()
	e.cache[file] = tpl
	e.mu.Unlock()

	return tpl, nil
}

func (e *Engine) read(file string) ([]byte, string, error) {
	if !fs.ValidPath(file) {
		return nil, "", &TemplateNotFoundError{Path: file, SearchPath: e.SearchPath()}
	}
	for _, root := range e.roots {
		data, err := fs.ReadFile(root.FS, file)
		if err == nil {
			return data, root.Name, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, "", fmt.Errorf("failed to read template %s from %s: %w", file, root.Name, err)
		}
	}
	return nil, "", &TemplateNotFoundError{Path: file, SearchPath: e.SearchPath()}
}

// includeFrom returns the include function for templates living in dir.
// Names are resolved relative to dir first and then from the roots.
func (e *Engine) includeFrom(dir string, chain []string) func(name string, data any) (string, error) {
	return func(name string, data any) (string, error) {
		candidate := name
		if dir != "." && !strings.HasPrefix(name, "/") {
			relative := path.Join(dir, name)
			if e.Exists(relative) {
				candidate = relative
			}
		}
		tpl, err := e.load(candidate)
		if err != nil {
			return "", err
		}
		return e.execute(tpl, data, chain)
	}
}

func escapeXML(v any) (string, error) {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(fmt.Sprint(v))); err != nil {
		return "", err
	}
	return b.String(), nil
}
