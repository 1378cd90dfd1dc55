// Package handoff carries document state between the prepare, sign and view
// stages.
package handoff

import (
	"bytes"
	"time"
)

// Stage tags which stage produced a record
type Stage string

const (
	StagePrepared Stage = "PREPARED"
	StageSigned   Stage = "SIGNED"
	StageViewed   Stage = "VIEWED"
)

// Document identifiers used for the records each stage produces
const (
	DocIDPrepared = "prepared-document"
	DocIDSigned   = "signed-document"
)

// Record is an immutable handoff unit. The zero value is EMPTY.
type Record struct {
	contentRef  string
	blob        []byte
	docID       string
	annotations string
	stage       Stage
	producedAt  time.Time
}

// Params are the inputs to NewRecord
type Params struct {
	Stage       Stage
	DocID       string
	ContentRef  string
	Blob        []byte
	Annotations string
}

// NewRecord builds a record, taking its own copy of the blob
func NewRecord(p Params) Record {
	r := Record{
		contentRef:  p.ContentRef,
		docID:       p.DocID,
		annotations: p.Annotations,
		stage:       p.Stage,
		producedAt:  time.Now().UTC(),
	}
	if p.Blob != nil {
		r.blob = make([]byte, len(p.Blob))
		copy(r.blob, p.Blob)
	}
	return r
}

// Next derives the record of a later stage: same content, new identity and
// annotation set. r itself is left untouched.
func (r Record) Next(stage Stage, docID, annotations string) Record {
	return NewRecord(Params{
		Stage:       stage,
		DocID:       docID,
		ContentRef:  r.contentRef,
		Blob:        r.blob,
		Annotations: annotations,
	})
}

// IsEmpty reports whether the record has no content to load
func (r Record) IsEmpty() bool {
	return r.contentRef == "" && r.blob == nil
}

// ContentRef returns the resolvable locator, if any
func (r Record) ContentRef() string { return r.contentRef }

// Blob returns a copy of the owned document bytes, if any
func (r Record) Blob() []byte {
	if r.blob == nil {
		return nil
	}
	out := make([]byte, len(r.blob))
	copy(out, r.blob)
	return out
}

// DocID returns the opaque document identifier
func (r Record) DocID() string { return r.docID }

// Annotations returns the serialized annotation set
func (r Record) Annotations() string { return r.annotations }

// Stage returns the stage tag
func (r Record) Stage() Stage { return r.stage }

// ProducedAt returns when the record was built
func (r Record) ProducedAt() time.Time { return r.producedAt }

// Size returns the length of the owned blob
func (r Record) Size() int { return len(r.blob) }

// SameContent reports whether two records carry identical content and
// annotation state
func (r Record) SameContent(o Record) bool {
	return r.contentRef == o.contentRef &&
		r.docID == o.docID &&
		r.annotations == o.annotations &&
		r.stage == o.stage &&
		bytes.Equal(r.blob, o.blob)
}
