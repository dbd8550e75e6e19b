package flyer

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/encoding/japanese"
)

// DefaultMaxBytes is the largest flyer accepted by NewExtractor(0).
const DefaultMaxBytes = 50 << 20

var pdfMagic = []byte("%PDF-")

// backend is one way of getting text out of a document.
type backend interface {
	name() string
	accepts(doc Document) bool
	extract(doc Document) (string, error)
}

// Extractor pulls text out of flyer documents using an ordered list of
// backends. The first backend producing non-empty text wins.
type Extractor struct {
	maxBytes int
	backends []backend
}

// NewExtractor creates an extractor that rejects documents larger than
// maxBytes. Zero means DefaultMaxBytes.
func NewExtractor(maxBytes int) *Extractor {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Extractor{
		maxBytes: maxBytes,
		backends: []backend{pdfBackend{}, textBackend{}},
	}
}

// ExtractText returns the text of doc or an *UnreadableDocumentError.
func (e *Extractor) ExtractText(doc Document) (string, error) {
	if len(doc.Data) == 0 {
		return "", &UnreadableDocumentError{Name: doc.Name, Reason: "empty document"}
	}
	if len(doc.Data) > e.maxBytes {
		return "", &UnreadableDocumentError{
			Name:   doc.Name,
			Reason: fmt.Sprintf("document is %d bytes, limit is %d", len(doc.Data), e.maxBytes),
		}
	}

	var reasons []string
	for _, b := range e.backends {
		if !b.accepts(doc) {
			continue
		}
		text, err := b.extract(doc)
		if err != nil {
			reasons = append(reasons, fmt.Sprintf("%s: %v", b.name(), err))
			continue
		}
		if strings.TrimSpace(text) == "" {
			reasons = append(reasons, b.name()+": no text")
			continue
		}
		return text, nil
	}

	if len(reasons) == 0 {
		reasons = append(reasons, "unsupported format")
	}
	return "", &UnreadableDocumentError{Name: doc.Name, Reason: strings.Join(reasons, "; ")}
}

type pdfBackend struct{}

func (pdfBackend) name() string { return "pdf" }

func (pdfBackend) accepts(doc Document) bool {
	return bytes.HasPrefix(doc.Data, pdfMagic)
}

func (pdfBackend) extract(doc Document) (text string, err error) {
	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(doc.Data), int64(len(doc.Data)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pageText, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("reading page %d: %w", i, err)
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// textBackend handles plain-text flyers in UTF-8 or Shift_JIS.
type textBackend struct{}

func (textBackend) name() string { return "text" }

func (textBackend) accepts(doc Document) bool {
	return !bytes.HasPrefix(doc.Data, pdfMagic) && bytes.IndexByte(doc.Data, 0) < 0
}

func (textBackend) extract(doc Document) (string, error) {
	data := bytes.TrimPrefix(doc.Data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, err := japanese.ShiftJIS.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decoding shift_jis: %w", err)
	}
	return string(decoded), nil
}
