package document

import (
	"encoding/json"
	"time"
)

// Record is one stored row: a schemaless JSON document filed under a
// caller-named collection. (Collection, ID) is unique; CreatedAt is set on
// first write and survives later overwrites of the same id.
type Record struct {
	ID         string          `json:"id" bson:"id"`
	Collection string          `json:"collection" bson:"collection"`
	Data       json.RawMessage `json:"data" bson:"-"`
	CreatedAt  time.Time       `json:"createdAt" bson:"createdAt"`
}

// SaveResult is what a Save hands back to the caller: the id value exactly
// as it appears in the stored document, and the document itself.
type SaveResult struct {
	ID       json.RawMessage `json:"id"`
	Document json.RawMessage `json:"data"`
}
