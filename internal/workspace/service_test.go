package workspace

import (
	"context"
	"errors"
	"testing"

	"github.com/nexabuild/go-services/internal/bundle"
	"github.com/nexabuild/go-services/internal/fileset"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	key  string
	data []byte
	err  error
}

func (f *fakePublisher) PublishArchive(_ context.Context, key string, archive []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.key, f.data = key, archive
	return "https://objects.example.com/" + key + "?sig=abc", nil
}

func newService(t *testing.T, size int, pub Publisher) *Service {
	t.Helper()
	st, err := NewStore(size)
	require.NoError(t, err)
	return NewService(st, pub)
}

const generated = `{
	"plan": "one page todo app",
	"design": {"palette": ["#fff", "#000"]},
	"files": {
		"index.html": "<html><head></head><body><ul id=\"todos\"></ul></body></html>",
		"assets": {"app.js": "load()", "style.css": "ul{}"}
	}
}`

func TestCreateAndGet(t *testing.T) {
	svc := newService(t, 8, nil)
	w, err := svc.Create("a todo app", []byte(generated))
	require.NoError(t, err)
	require.NotEmpty(t, w.ID)
	require.Equal(t, "a todo app", w.Prompt)
	require.Equal(t, "one page todo app", w.Plan)
	require.Equal(t, `{"palette": ["#fff", "#000"]}`, w.Design)
	require.Equal(t, []string{"assets/app.js", "assets/style.css", "index.html"}, w.Files.Paths())

	got, err := svc.Get(w.ID)
	require.NoError(t, err)
	require.Equal(t, w, got)

	_, err = svc.Get("missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreate_BareFileTree(t *testing.T) {
	svc := newService(t, 8, nil)
	w, err := svc.Create("p", []byte(`{"index.html":"<p>x</p>"}`))
	require.NoError(t, err)
	require.Equal(t, fileset.FileSet{"index.html": "<p>x</p>"}, w.Files)
	require.Empty(t, w.Plan)

	w, err = svc.Create("p", nil)
	require.NoError(t, err)
	require.Empty(t, w.Files)
}

func TestReturnedStateIsACopy(t *testing.T) {
	svc := newService(t, 8, nil)
	w, err := svc.Create("p", []byte(generated))
	require.NoError(t, err)
	w.Files["index.html"] = "tampered"

	got, err := svc.Get(w.ID)
	require.NoError(t, err)
	require.NotEqual(t, "tampered", got.Files["index.html"])
}

func TestRegenerateReplacesFiles(t *testing.T) {
	svc := newService(t, 8, nil)
	w, err := svc.Create("p", []byte(generated))
	require.NoError(t, err)

	w2, err := svc.Regenerate(w.ID, []byte(`{"files":{"index.html":"<h1>v2</h1>"},"plan":"v2"}`))
	require.NoError(t, err)
	require.Equal(t, fileset.FileSet{"index.html": "<h1>v2</h1>"}, w2.Files)
	require.Equal(t, "v2", w2.Plan)
	require.Equal(t, w.CreatedAt, w2.CreatedAt)
	require.False(t, w2.UpdatedAt.Before(w.UpdatedAt))
}

func TestEdits(t *testing.T) {
	svc := newService(t, 8, nil)
	w, err := svc.Create("p", []byte(generated))
	require.NoError(t, err)

	w, err = svc.ApplyEdits(w.ID, []byte(`{"assets":{"app.js":"load(2)"},"about.html":"<p>about</p>"}`))
	require.NoError(t, err)
	require.Equal(t, "load(2)", w.Files["assets/app.js"])
	require.Equal(t, "<p>about</p>", w.Files["about.html"])
	require.Equal(t, "ul{}", w.Files["assets/style.css"])

	w, err = svc.PutFile(w.ID, "/docs/../README.md", "# hi")
	require.NoError(t, err)
	require.Equal(t, "# hi", w.Files["README.md"])

	w, err = svc.RemoveFile(w.ID, "about.html")
	require.NoError(t, err)
	require.NotContains(t, w.Files, "about.html")

	_, err = svc.RemoveFile(w.ID, "never-existed.txt")
	require.NoError(t, err)

	_, err = svc.PutFile(w.ID, "  /  ", "x")
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.PutFile("missing", "a.txt", "x")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAppendMessage(t *testing.T) {
	svc := newService(t, 8, nil)
	w, err := svc.Create("p", []byte(generated))
	require.NoError(t, err)

	w, err = svc.AppendMessage(w.ID, "user", "make the header blue")
	require.NoError(t, err)
	w, err = svc.AppendMessage(w.ID, "assistant", "done")
	require.NoError(t, err)
	require.Len(t, w.History, 2)
	require.Equal(t, "user", w.History[0].Role)
	require.Equal(t, "done", w.History[1].Content)

	_, err = svc.AppendMessage(w.ID, " ", "x")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestPreviewAndArchive(t *testing.T) {
	svc := newService(t, 8, nil)
	w, err := svc.Create("p", []byte(generated))
	require.NoError(t, err)

	html, err := svc.Preview(w.ID)
	require.NoError(t, err)
	require.Contains(t, html, "<style>ul{}</style>")
	require.Contains(t, html, "<script>load()</script>")

	b, err := svc.Archive(w.ID)
	require.NoError(t, err)
	require.NotEmpty(t, b)

	css, err := svc.Create("p", []byte(`{"files":{"style.css":"a{}"}}`))
	require.NoError(t, err)
	_, err = svc.Preview(css.ID)
	require.ErrorIs(t, err, bundle.ErrNoEntryPoint)
}

func TestPublish(t *testing.T) {
	pub := &fakePublisher{}
	svc := newService(t, 8, pub)
	w, err := svc.Create("p", []byte(generated))
	require.NoError(t, err)

	url, err := svc.Publish(context.Background(), w.ID)
	require.NoError(t, err)
	require.Equal(t, ArchiveKey(w.ID), pub.key)
	require.Contains(t, url, pub.key)

	want, err := svc.Archive(w.ID)
	require.NoError(t, err)
	require.Equal(t, want, pub.data)

	pub.err = errors.New("bucket gone")
	_, err = svc.Publish(context.Background(), w.ID)
	require.Error(t, err)

	_, err = newService(t, 8, nil).Publish(context.Background(), w.ID)
	require.ErrorIs(t, err, ErrPublishDisabled)
}

func TestStoreEvictsLeastRecentlyUsed(t *testing.T) {
	svc := newService(t, 2, nil)
	a, err := svc.Create("a", nil)
	require.NoError(t, err)
	b, err := svc.Create("b", nil)
	require.NoError(t, err)

	// touch a so b becomes the eviction candidate
	_, err = svc.Get(a.ID)
	require.NoError(t, err)
	_, err = svc.Create("c", nil)
	require.NoError(t, err)

	_, err = svc.Get(a.ID)
	require.NoError(t, err)
	_, err = svc.Get(b.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
