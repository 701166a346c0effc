package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nexabuild/go-services/internal/document"
	"github.com/nexabuild/go-services/internal/document/repository"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var (
	ErrInvalidPayload     = errors.New("invalid payload")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Service defines the document store operations used by the handler layer.
type Service interface {
	Save(ctx context.Context, collection string, payload []byte) (*document.SaveResult, error)
	List(ctx context.Context, collection string) ([]json.RawMessage, error)
	Delete(ctx context.Context, collection, id string) error
	Ping(ctx context.Context) error
}

// New returns a Service on top of any repository backend.
func New(repo repository.Repository) Service {
	return &docService{repo: repo}
}

// NewMemoryService returns a Service backed by the in-memory repository.
func NewMemoryService() Service {
	return New(repository.NewMemoryRepo())
}

type docService struct {
	repo repository.Repository
}

// Save upserts payload under (collection, id). A missing or falsy id is
// replaced by a fresh UUID written into the document itself.
func (s *docService) Save(ctx context.Context, collection string, payload []byte) (*document.SaveResult, error) {
	if collection == "" {
		return nil, fmt.Errorf("%w: empty collection", ErrInvalidPayload)
	}
	if !gjson.ValidBytes(payload) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrInvalidPayload)
	}
	if !gjson.ParseBytes(payload).IsObject() {
		return nil, fmt.Errorf("%w: document must be a JSON object", ErrInvalidPayload)
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	doc := buf.Bytes()

	idv := gjson.GetBytes(doc, "id")
	if !truthy(idv) {
		var err error
		doc, err = sjson.SetBytes(doc, "id", uuid.NewString())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		idv = gjson.GetBytes(doc, "id")
	}

	rec := &document.Record{ID: storageKey(idv), Collection: collection, Data: doc}
	if err := s.repo.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return &document.SaveResult{ID: json.RawMessage(idv.Raw), Document: doc}, nil
}

func (s *docService) List(ctx context.Context, collection string) ([]json.RawMessage, error) {
	recs, err := s.repo.List(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	out := make([]json.RawMessage, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Data)
	}
	return out, nil
}

// Delete is a no-op for ids that were never stored.
func (s *docService) Delete(ctx context.Context, collection, id string) error {
	if err := s.repo.Delete(ctx, collection, id); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return nil
}

func (s *docService) Ping(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return nil
}

// truthy reports whether an id value counts as supplied: a non-empty string,
// a non-zero number, true, or a non-empty array or object.
func truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.String:
		return v.Str != ""
	case gjson.Number:
		return v.Num != 0
	case gjson.True:
		return true
	case gjson.JSON:
		nonEmpty := false
		v.ForEach(func(_, _ gjson.Result) bool {
			nonEmpty = true
			return false
		})
		return nonEmpty
	}
	return false
}

// storageKey is the text an id is filed under, so {"id":7} and
// DELETE /api/c/7 address the same record.
func storageKey(v gjson.Result) string {
	if v.Type == gjson.String {
		return v.Str
	}
	return v.Raw
}
