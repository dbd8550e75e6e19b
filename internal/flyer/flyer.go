// Package flyer extracts text from property flyers and turns it into raw,
// unvalidated property records.
package flyer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrUnreadableDocument is matched by every *UnreadableDocumentError.
var ErrUnreadableDocument = errors.New("unreadable document")

// UnreadableDocumentError reports that no text backend could produce
// non-empty text for a document.
type UnreadableDocumentError struct {
	Name   string
	Reason string
}

func (e *UnreadableDocumentError) Error() string {
	return fmt.Sprintf("unreadable document %s: %s", e.Name, e.Reason)
}

// Is reports whether target is ErrUnreadableDocument.
func (e *UnreadableDocumentError) Is(target error) bool {
	return target == ErrUnreadableDocument
}

// Document is a flyer as handed to the parser.
type Document struct {
	Name string
	Data []byte
}

// ReadFile loads a flyer from disk.
func ReadFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("reading flyer %s: %w", path, err)
	}
	return Document{Name: filepath.Base(path), Data: data}, nil
}

// Field names a value extracted from a flyer.
type Field string

const (
	FieldPropertyNumber Field = "property_number"
	FieldAddress        Field = "address"
	FieldRent           Field = "rent"
	FieldLayout         Field = "layout"
	FieldStation        Field = "station"
	FieldWalkMinutes    Field = "walk_minutes"
	FieldArea           Field = "area"
	FieldBuildingAge    Field = "building_age"
	FieldManagementFee  Field = "management_fee"
)

// RawRecord is one property block as found in a flyer. Values are the
// matched text, not yet normalized.
type RawRecord struct {
	Fields  map[Field]string `json:"fields"`
	Source  string           `json:"source"`
	Excerpt string           `json:"excerpt"`
	Index   int              `json:"index"`
}

// Get returns the value for f, or "" if it was not extracted.
func (r RawRecord) Get(f Field) string {
	return r.Fields[f]
}

// Populated returns the number of non-empty fields.
func (r RawRecord) Populated() int {
	n := 0
	for _, v := range r.Fields {
		if v != "" {
			n++
		}
	}
	return n
}
