package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/nexabuild/go-services/internal/database"
	"github.com/nexabuild/go-services/internal/document"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newSQLiteRepo(t *testing.T) Repository {
	t.Helper()
	db, err := database.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "database.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repo, err := NewSQLiteRepo(context.Background(), db)
	require.NoError(t, err)
	return repo
}

func newRedisRepo(t *testing.T) Repository {
	t.Helper()
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisRepo(client, "test:docstore:")
}

func backends() map[string]func(t *testing.T) Repository {
	return map[string]func(t *testing.T) Repository{
		"memory": func(*testing.T) Repository { return NewMemoryRepo() },
		"sqlite": newSQLiteRepo,
		"redis":  newRedisRepo,
	}
}

func rec(collection, id, data string) *document.Record {
	return &document.Record{ID: id, Collection: collection, Data: []byte(data)}
}

func dataOf(list []*document.Record) []string {
	out := make([]string, 0, len(list))
	for _, r := range list {
		out = append(out, string(r.Data))
	}
	return out
}

func TestRepository_UpsertListDelete(t *testing.T) {
	for name, mk := range backends() {
		t.Run(name, func(t *testing.T) {
			r := mk(t)
			ctx := context.Background()

			require.NoError(t, r.Upsert(ctx, rec("todos", "a", `{"id":"a","title":"write tests"}`)))
			list, err := r.List(ctx, "todos")
			require.NoError(t, err)
			require.Len(t, list, 1)
			require.Equal(t, "a", list[0].ID)
			require.JSONEq(t, `{"id":"a","title":"write tests"}`, string(list[0].Data))
			require.False(t, list[0].CreatedAt.IsZero())

			require.NoError(t, r.Delete(ctx, "todos", "a"))
			list, err = r.List(ctx, "todos")
			require.NoError(t, err)
			require.Empty(t, list)
		})
	}
}

func TestRepository_ReplaceKeepsCreatedAtAndPosition(t *testing.T) {
	for name, mk := range backends() {
		t.Run(name, func(t *testing.T) {
			r := mk(t)
			ctx := context.Background()

			first := rec("notes", "x", `{"id":"x","a":1}`)
			require.NoError(t, r.Upsert(ctx, first))
			require.NoError(t, r.Upsert(ctx, rec("notes", "y", `{"id":"y"}`)))

			second := rec("notes", "x", `{"id":"x","b":2}`)
			require.NoError(t, r.Upsert(ctx, second))
			require.True(t, first.CreatedAt.Equal(second.CreatedAt), "created_at must not move on replace")

			list, err := r.List(ctx, "notes")
			require.NoError(t, err)
			// x was created first, so the overwrite does not bring it to the top
			require.Equal(t, []string{`{"id":"y"}`, `{"id":"x","b":2}`}, dataOf(list))
		})
	}
}

func TestRepository_OrderIsMostRecentFirst(t *testing.T) {
	for name, mk := range backends() {
		t.Run(name, func(t *testing.T) {
			r := mk(t)
			ctx := context.Background()
			for _, id := range []string{"A", "B", "C"} {
				require.NoError(t, r.Upsert(ctx, rec("items", id, fmt.Sprintf(`{"id":%q}`, id))))
			}
			list, err := r.List(ctx, "items")
			require.NoError(t, err)
			ids := []string{}
			for _, d := range list {
				ids = append(ids, d.ID)
			}
			require.Equal(t, []string{"C", "B", "A"}, ids)
		})
	}
}

func TestRepository_CollectionsAreIsolated(t *testing.T) {
	for name, mk := range backends() {
		t.Run(name, func(t *testing.T) {
			r := mk(t)
			ctx := context.Background()
			require.NoError(t, r.Upsert(ctx, rec("todos", "1", `{"id":1}`)))
			require.NoError(t, r.Upsert(ctx, rec("notes", "1", `{"id":1,"body":"other"}`)))

			list, err := r.List(ctx, "never-used")
			require.NoError(t, err)
			require.NotNil(t, list)
			require.Empty(t, list)

			// deleting in one collection leaves the same id elsewhere alone
			require.NoError(t, r.Delete(ctx, "notes", "1"))
			todos, err := r.List(ctx, "todos")
			require.NoError(t, err)
			require.Len(t, todos, 1)
		})
	}
}

func TestRepository_DeleteMissingIsNoop(t *testing.T) {
	for name, mk := range backends() {
		t.Run(name, func(t *testing.T) {
			r := mk(t)
			ctx := context.Background()
			require.NoError(t, r.Upsert(ctx, rec("todos", "keep", `{"id":"keep"}`)))
			require.NoError(t, r.Delete(ctx, "todos", "doesnotexist"))
			require.NoError(t, r.Delete(ctx, "nothing-here", "doesnotexist"))
			list, err := r.List(ctx, "todos")
			require.NoError(t, err)
			require.Len(t, list, 1)
		})
	}
}

func TestRepository_ConcurrentWritersToDistinctIDs(t *testing.T) {
	for name, mk := range backends() {
		t.Run(name, func(t *testing.T) {
			r := mk(t)
			ctx := context.Background()
			const n = 20
			var wg sync.WaitGroup
			errs := make(chan error, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					id := fmt.Sprintf("doc-%d", i)
					errs <- r.Upsert(ctx, rec("shared", id, fmt.Sprintf(`{"id":%q,"n":%d}`, id, i)))
				}(i)
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				require.NoError(t, err)
			}
			list, err := r.List(ctx, "shared")
			require.NoError(t, err)
			require.Len(t, list, n)
		})
	}
}

func TestRepository_Ping(t *testing.T) {
	for name, mk := range backends() {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, mk(t).Ping(context.Background()))
		})
	}
}
