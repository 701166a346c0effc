package workspace

import (
	"time"

	"github.com/nexabuild/go-services/internal/fileset"
)

// Message is one entry of the team chat attached to a workspace.
type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Workspace is the state of one generated application: the prompt it came
// from, the generator's plan and design notes, its files and the chat
// history. Values are never mutated after they are stored; every operation
// stores a modified copy.
type Workspace struct {
	ID        string          `json:"id"`
	Prompt    string          `json:"prompt"`
	Plan      string          `json:"plan,omitempty"`
	Design    string          `json:"design,omitempty"`
	Files     fileset.FileSet `json:"files"`
	History   []Message       `json:"history"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// clone returns a deep copy safe to modify.
func (w *Workspace) clone() *Workspace {
	c := *w
	c.Files = w.Files.Clone()
	c.History = append(make([]Message, 0, len(w.History)), w.History...)
	return &c
}
