package document

import "time"

// Version is one immutable content snapshot in a document's history.
type Version struct {
	Content   string    `json:"content" bson:"content"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// Document is the persistent document model. Versions is append-only:
// entries are never removed or reordered, so version indices handed to
// clients stay valid for the lifetime of the document.
type Document struct {
	ID        string    `json:"id" bson:"_id,omitempty"`
	Title     string    `json:"title" bson:"title"`
	Content   string    `json:"content" bson:"content"`
	Owner     string    `json:"owner,omitempty" bson:"owner,omitempty"`
	Versions  []Version `json:"versions" bson:"versions"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// AppendVersionIfChanged appends a snapshot unless the last stored version
// already carries the same content. Returns true when a version was appended.
func (d *Document) AppendVersionIfChanged(content string, now time.Time) bool {
	if n := len(d.Versions); n > 0 && d.Versions[n-1].Content == content {
		return false
	}
	d.Versions = append(d.Versions, Version{Content: content, Timestamp: now})
	return true
}

// Clone returns a deep copy. The in-memory repository hands out copies so
// callers can never mutate stored state behind the repository's back.
func (d *Document) Clone() *Document {
	cp := *d
	cp.Versions = make([]Version, len(d.Versions))
	copy(cp.Versions, d.Versions)
	return &cp
}
