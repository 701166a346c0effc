// Package workspace holds the editable state of generated applications and
// the operations a UI performs on it: regenerate, edit, chat, preview,
// download and publish.
package workspace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nexabuild/go-services/internal/bundle"
	"github.com/nexabuild/go-services/internal/fileset"
	"github.com/nexabuild/go-services/pkg/metrics"
	"github.com/tidwall/gjson"
)

var (
	ErrNotFound        = errors.New("workspace not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrPublishDisabled = errors.New("publishing is not configured")
)

// Publisher uploads a site archive and returns a URL it can be downloaded from.
type Publisher interface {
	PublishArchive(ctx context.Context, key string, archive []byte) (string, error)
}

type Service struct {
	store *Store
	pub   Publisher
	now   func() time.Time

	// serializes read-modify-write of stored workspaces
	mu sync.Mutex
}

// NewService returns a workspace service. pub may be nil, in which case
// Publish reports ErrPublishDisabled.
func NewService(store *Store, pub Publisher) *Service {
	return &Service{store: store, pub: pub, now: time.Now}
}

// Create builds a workspace from generator output. The output is either an
// object with "files", "plan" and "design" members or the file tree itself.
func (s *Service) Create(prompt string, output []byte) (*Workspace, error) {
	now := s.now().UTC()
	w := &Workspace{
		ID:        uuid.NewString(),
		Prompt:    prompt,
		History:   []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyOutput(w, output)
	s.store.Put(w)
	metrics.WorkspacesCreated.Inc()
	return w.clone(), nil
}

func (s *Service) Get(id string) (*Workspace, error) {
	w, ok := s.store.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return w.clone(), nil
}

// Regenerate replaces the workspace's files wholesale with new generator output.
func (s *Service) Regenerate(id string, output []byte) (*Workspace, error) {
	return s.update(id, func(w *Workspace) error {
		applyOutput(w, output)
		return nil
	})
}

// ApplyEdits merges a (possibly nested) file tree into the workspace.
func (s *Service) ApplyEdits(id string, updates []byte) (*Workspace, error) {
	return s.update(id, func(w *Workspace) error {
		w.Files = fileset.Merge(w.Files, fileset.FlattenJSON(updates))
		metrics.BundleOps.WithLabelValues("merge", "ok").Inc()
		return nil
	})
}

func (s *Service) PutFile(id, filePath, content string) (*Workspace, error) {
	p, err := cleanPath(filePath)
	if err != nil {
		return nil, err
	}
	return s.update(id, func(w *Workspace) error {
		w.Files[p] = content
		return nil
	})
}

// RemoveFile deletes a file; removing a missing path is not an error.
func (s *Service) RemoveFile(id, filePath string) (*Workspace, error) {
	p, err := cleanPath(filePath)
	if err != nil {
		return nil, err
	}
	return s.update(id, func(w *Workspace) error {
		delete(w.Files, p)
		return nil
	})
}

func (s *Service) AppendMessage(id, role, content string) (*Workspace, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		return nil, fmt.Errorf("%w: role is required", ErrInvalidInput)
	}
	return s.update(id, func(w *Workspace) error {
		w.History = append(w.History, Message{Role: role, Content: content, At: s.now().UTC()})
		return nil
	})
}

// Preview renders the workspace as one self-contained HTML page.
func (s *Service) Preview(id string) (string, error) {
	w, err := s.Get(id)
	if err != nil {
		return "", err
	}
	out, err := bundle.Combine(w.Files)
	if err != nil {
		metrics.BundleOps.WithLabelValues("combine", "error").Inc()
		return "", err
	}
	metrics.BundleOps.WithLabelValues("combine", "ok").Inc()
	return out, nil
}

func (s *Service) Archive(id string) ([]byte, error) {
	w, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	b, err := bundle.Package(w.Files)
	if err != nil {
		metrics.BundleOps.WithLabelValues("package", "error").Inc()
		return nil, err
	}
	metrics.BundleOps.WithLabelValues("package", "ok").Inc()
	return b, nil
}

// Publish uploads the workspace archive and returns its download URL.
func (s *Service) Publish(ctx context.Context, id string) (string, error) {
	if s.pub == nil {
		return "", ErrPublishDisabled
	}
	b, err := s.Archive(id)
	if err != nil {
		return "", err
	}
	url, err := s.pub.PublishArchive(ctx, ArchiveKey(id), b)
	if err != nil {
		metrics.BundleOps.WithLabelValues("publish", "error").Inc()
		return "", fmt.Errorf("publish %s: %w", id, err)
	}
	metrics.BundleOps.WithLabelValues("publish", "ok").Inc()
	return url, nil
}

// ArchiveKey is the object key a workspace's archive is published under.
func ArchiveKey(id string) string {
	return "sites/" + id + "/site.zip"
}

func (s *Service) update(id string, fn func(w *Workspace) error) (*Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.store.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	next := cur.clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = s.now().UTC()
	s.store.Put(next)
	return next.clone(), nil
}

func applyOutput(w *Workspace, output []byte) {
	w.Files, w.Plan, w.Design = ParseOutput(output)
	metrics.BundleOps.WithLabelValues("flatten", "ok").Inc()
}

// ParseOutput splits generator output into its flattened files and the
// plan and design notes. Output without a "files" member is taken to be the
// file tree itself.
func ParseOutput(output []byte) (files fileset.FileSet, plan, design string) {
	if len(bytes.TrimSpace(output)) == 0 {
		return fileset.FileSet{}, "", ""
	}
	r := gjson.ParseBytes(output)
	var tree gjson.Result
	if r.IsObject() {
		tree = r.Get("files")
	}
	if !tree.Exists() {
		return fileset.FlattenJSON(output), "", ""
	}
	return fileset.FlattenJSON([]byte(tree.Raw)), textOf(r.Get("plan")), textOf(r.Get("design"))
}

func textOf(r gjson.Result) string {
	if !r.Exists() {
		return ""
	}
	if r.Type == gjson.String {
		return r.Str
	}
	return r.Raw
}

func cleanPath(p string) (string, error) {
	p = path.Clean("/" + strings.TrimSpace(p))
	p = strings.TrimPrefix(p, "/")
	if p == "" || p == "." {
		return "", fmt.Errorf("%w: empty file path", ErrInvalidInput)
	}
	return p, nil
}
