// Package bundle composes a FileSet into deliverables: one self-contained
// HTML page for previews and a ZIP archive for downloads.
package bundle

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nexabuild/go-services/internal/fileset"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	// ErrNoEntryPoint means the set has no HTML page, so there is nothing to preview.
	ErrNoEntryPoint = errors.New("no entry point")
	ErrArchive      = errors.New("archive failed")
)

// EntryPoint picks the page a preview starts from: index.html at the root,
// otherwise the shallowest .html file in lexical order.
func EntryPoint(fs fileset.FileSet) (string, bool) {
	if _, ok := fs["index.html"]; ok {
		return "index.html", true
	}
	best, bestDepth := "", -1
	for _, p := range fs.Paths() {
		ext := strings.ToLower(path.Ext(p))
		if ext != ".html" && ext != ".htm" {
			continue
		}
		d := strings.Count(p, "/")
		if bestDepth < 0 || d < bestDepth {
			best, bestDepth = p, d
		}
	}
	return best, bestDepth >= 0
}

// Combine returns the entry page with the set's stylesheets and scripts
// inlined. Referenced files replace their <link>/<script src> tags; files
// nothing references are appended (CSS to <head>, JS to <body>). When there
// is nothing to inline, the page comes back unchanged.
func Combine(fs fileset.FileSet) (string, error) {
	entry, ok := EntryPoint(fs)
	if !ok {
		return "", ErrNoEntryPoint
	}
	markup := fs[entry]

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", entry, err)
	}
	dir := path.Dir(entry)
	used := map[string]bool{}

	doc.Find("link[href]").Each(func(_ int, s *goquery.Selection) {
		if !strings.EqualFold(strings.TrimSpace(s.AttrOr("rel", "")), "stylesheet") {
			return
		}
		p, ok := resolve(fs, dir, s.AttrOr("href", ""))
		if !ok {
			return
		}
		attrs := keepAttrs(s, "media")
		s.ReplaceWithNodes(rawElement(atom.Style, attrs, escapeClosing(fs[p], "style")))
		used[p] = true
	})

	// Inline scripts ignore defer and async, so those move to the end of
	// <body> where the document they expect is already parsed. Modules are
	// deferred regardless of position.
	var deferred []*html.Node
	doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		p, ok := resolve(fs, dir, s.AttrOr("src", ""))
		if !ok {
			return
		}
		attrs := keepAttrs(s, "type")
		n := rawElement(atom.Script, attrs, escapeClosing(fs[p], "script"))
		used[p] = true
		if isDeferred(s) {
			s.Remove()
			deferred = append(deferred, n)
			return
		}
		s.ReplaceWithNodes(n)
	})

	head, body := doc.Find("head").First(), doc.Find("body").First()
	body.AppendNodes(deferred...)
	for _, p := range fs.Paths() {
		if used[p] {
			continue
		}
		switch strings.ToLower(path.Ext(p)) {
		case ".css":
			head.AppendNodes(rawElement(atom.Style, nil, escapeClosing(fs[p], "style")))
			used[p] = true
		case ".js":
			body.AppendNodes(rawElement(atom.Script, nil, escapeClosing(fs[p], "script")))
			used[p] = true
		}
	}

	if len(used) == 0 {
		return markup, nil
	}
	out, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("render %s: %w", entry, err)
	}
	return out, nil
}

// resolve maps a href/src to a FileSet path. External URLs never resolve.
func resolve(fs fileset.FileSet, dir, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	if ref == "" || strings.HasPrefix(ref, "//") || strings.Contains(ref, ":") {
		return "", false
	}
	var p string
	if strings.HasPrefix(ref, "/") {
		p = path.Clean(strings.TrimPrefix(ref, "/"))
	} else {
		p = path.Join(dir, ref)
	}
	if _, ok := fs[p]; !ok {
		return "", false
	}
	return p, true
}

func isDeferred(s *goquery.Selection) bool {
	if strings.EqualFold(strings.TrimSpace(s.AttrOr("type", "")), "module") {
		return false
	}
	_, d := s.Attr("defer")
	_, a := s.Attr("async")
	return d || a
}

func keepAttrs(s *goquery.Selection, names ...string) []html.Attribute {
	var out []html.Attribute
	for _, n := range names {
		if v, ok := s.Attr(n); ok {
			out = append(out, html.Attribute{Key: n, Val: v})
		}
	}
	return out
}

func rawElement(a atom.Atom, attrs []html.Attribute, text string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return n
}

var closingTag = map[string]*regexp.Regexp{
	"style":  regexp.MustCompile(`(?i)</(style)`),
	"script": regexp.MustCompile(`(?i)</(script)`),
}

// escapeClosing keeps inlined content from terminating its own element.
func escapeClosing(content, tag string) string {
	return closingTag[tag].ReplaceAllString(content, `<\/$1`)
}
