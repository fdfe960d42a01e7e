package directory

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"jenkey/internal/remote"
	"jenkey/pkg/logging"
)

const (
	jobsDir        = "jobs"
	viewsDir       = "views"
	documentExt    = ".xml"
	buildNumberExt = ".nextBuildNumber"
	fileMode       = 0644
	dirMode        = 0755
)

// Server implements remote.Server on a local directory tree.
//
// Files are laid out as:
//   - Jobs: {basePath}/jobs/{id}.xml
//   - Next build numbers: {basePath}/jobs/{id}.nextBuildNumber
//   - Views: {basePath}/views/{name}.xml
//
// Job ids containing "/" (folders) become nested directories.
type Server struct {
	basePath string

	mu sync.Mutex
}

var _ remote.Server = (*Server)(nil)

// New creates a directory-backed server rooted at basePath. The directory is
// created on first write.
func New(basePath string) *Server {
	if basePath == "" {
		basePath = "."
	}
	return &Server{basePath: basePath}
}

// BasePath returns the root directory.
func (s *Server) BasePath() string {
	return s.basePath
}

func (s *Server) file(kind, name, ext string) (string, error) {
	clean := strings.Trim(name, "/")
	if clean == "" || !fs.ValidPath(clean) {
		return "", fmt.Errorf("invalid name %q", name)
	}
	return filepath.Join(s.basePath, kind, filepath.FromSlash(clean)+ext), nil
}

func exists(file string) (bool, error) {
	_, err := os.Stat(file)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func write(file, content string) error {
	if err := os.MkdirAll(filepath.Dir(file), dirMode); err != nil {
		return err
	}
	return os.WriteFile(file, []byte(content), fileMode)
}

func (s *Server) has(op, kind, name string) (bool, error) {
	file, err := s.file(kind, name, documentExt)
	if err != nil {
		return false, remote.Wrap(op, name, err)
	}
	ok, err := exists(file)
	return ok, remote.Wrap(op, name, err)
}

func (s *Server) create(op, kind, name, document string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.file(kind, name, documentExt)
	if err != nil {
		return remote.Wrap(op, name, err)
	}
	ok, err := exists(file)
	if err != nil {
		return remote.Wrap(op, name, err)
	}
	if ok {
		return remote.Wrap(op, name, fmt.Errorf("%s already exists", strings.TrimSuffix(kind, "s")))
	}
	logging.Debug("DirectoryServer", "Writing %s", file)
	return remote.Wrap(op, name, write(file, document))
}

func (s *Server) reconfigure(op, kind, name, document string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.file(kind, name, documentExt)
	if err != nil {
		return remote.Wrap(op, name, err)
	}
	ok, err := exists(file)
	if err != nil {
		return remote.Wrap(op, name, err)
	}
	if !ok {
		return remote.Wrap(op, name, fmt.Errorf("%s does not exist", strings.TrimSuffix(kind, "s")))
	}
	logging.Debug("DirectoryServer", "Rewriting %s", file)
	return remote.Wrap(op, name, write(file, document))
}

// JobExists reports whether the job document exists.
func (s *Server) JobExists(_ context.Context, id string) (bool, error) {
	return s.has("JobExists", jobsDir, id)
}

// CreateJob writes a new job document.
func (s *Server) CreateJob(_ context.Context, id, document string) error {
	return s.create("CreateJob", jobsDir, id, document)
}

// ReconfigureJob overwrites an existing job document.
func (s *Server) ReconfigureJob(_ context.Context, id, document string) error {
	return s.reconfigure("ReconfigureJob", jobsDir, id, document)
}

// DeleteJob removes a job document and its build number file.
func (s *Server) DeleteJob(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.file(jobsDir, id, documentExt)
	if err != nil {
		return remote.Wrap("DeleteJob", id, err)
	}
	if err := os.Remove(file); err != nil {
		return remote.Wrap("DeleteJob", id, err)
	}
	numberFile, _ := s.file(jobsDir, id, buildNumberExt)
	if err := os.Remove(numberFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return remote.Wrap("DeleteJob", id, err)
	}
	return nil
}

// ListJobIDs returns every job id, sorted.
func (s *Server) ListJobIDs(_ context.Context) ([]string, error) {
	root := filepath.Join(s.basePath, jobsDir)

	var ids []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) && p == root {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), documentExt) {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		ids = append(ids, strings.TrimSuffix(filepath.ToSlash(rel), documentExt))
		return nil
	})
	if err != nil {
		return nil, remote.Wrap("ListJobIDs", "", err)
	}

	sort.Strings(ids)
	return ids, nil
}

// JobCount returns the number of jobs.
func (s *Server) JobCount(ctx context.Context) (int, error) {
	ids, err := s.ListJobIDs(ctx)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// SetNextBuildNumber records the next build number. A lower number than the
// one already stored is ignored.
func (s *Server) SetNextBuildNumber(_ context.Context, id string, number int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.file(jobsDir, id, documentExt)
	if err != nil {
		return remote.Wrap("SetNextBuildNumber", id, err)
	}
	ok, err := exists(doc)
	if err != nil {
		return remote.Wrap("SetNextBuildNumber", id, err)
	}
	if !ok {
		return remote.Wrap("SetNextBuildNumber", id, fmt.Errorf("job does not exist"))
	}

	file, _ := s.file(jobsDir, id, buildNumberExt)
	if current, err := readNumber(file); err == nil && current >= number {
		logging.Debug("DirectoryServer", "Keeping next build number %d for '%s'", current, id)
		return nil
	}
	return remote.Wrap("SetNextBuildNumber", id, write(file, strconv.Itoa(number)+"\n"))
}

// NextBuildNumber returns the stored next build number, or zero.
func (s *Server) NextBuildNumber(id string) (int, error) {
	file, err := s.file(jobsDir, id, buildNumberExt)
	if err != nil {
		return 0, err
	}
	n, err := readNumber(file)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	return n, err
}

func readNumber(file string) (int, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// ViewExists reports whether the view document exists.
func (s *Server) ViewExists(_ context.Context, name string) (bool, error) {
	return s.has("ViewExists", viewsDir, name)
}

// CreateView writes a new view document.
func (s *Server) CreateView(_ context.Context, name, document string) error {
	return s.create("CreateView", viewsDir, name, document)
}

// ReconfigureView overwrites an existing view document.
func (s *Server) ReconfigureView(_ context.Context, name, document string) error {
	return s.reconfigure("ReconfigureView", viewsDir, name, document)
}

// ReadJob returns the stored job document.
func (s *Server) ReadJob(id string) (string, error) {
	return s.read(jobsDir, id)
}

// ReadView returns the stored view document.
func (s *Server) ReadView(name string) (string, error) {
	return s.read(viewsDir, name)
}

func (s *Server) read(kind, name string) (string, error) {
	file, err := s.file(kind, name, documentExt)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
