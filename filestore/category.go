package filestore

import (
	"fmt"
	"mime"
	"strings"
)

// Category is one of the supported upload kinds.
type Category string

const (
	Image    Category = "image"
	Document Category = "document"
	CSV      Category = "csv"
)

const mib = 1024 * 1024

// Spec describes how one category is accepted and where it is stored.
type Spec struct {
	Category Category `json:"category"`
	Accepted []string `json:"accepted"`
	MaxBytes int64    `json:"max_bytes"`
	Dir      string   `json:"-"`
	Field    string   `json:"field"`
	Label    string   `json:"-"`
}

// Table is an immutable, ordered set of category specs. Order is lookup priority.
type Table struct {
	specs []Spec
}

// NewTable validates specs and builds a table. A media type claimed by two categories,
// a repeated category or a spec without a directory is a configuration error.
func NewTable(specs ...Spec) (*Table, error) {
	seenCat := make(map[Category]bool, len(specs))
	seenType := make(map[string]Category)
	out := make([]Spec, 0, len(specs))
	for _, s := range specs {
		if s.Category == "" || s.Dir == "" || s.MaxBytes <= 0 {
			return nil, fmt.Errorf("incomplete spec for category %q", s.Category)
		}
		if seenCat[s.Category] {
			return nil, fmt.Errorf("category %q declared twice", s.Category)
		}
		seenCat[s.Category] = true

		accepted := make([]string, 0, len(s.Accepted))
		for _, t := range s.Accepted {
			t = normalizeMediaType(t)
			if other, ok := seenType[t]; ok {
				return nil, fmt.Errorf("media type %q claimed by both %q and %q", t, other, s.Category)
			}
			seenType[t] = s.Category
			accepted = append(accepted, t)
		}
		s.Accepted = accepted
		out = append(out, s)
	}
	return &Table{specs: out}, nil
}

// MustTable is NewTable that panics on misconfiguration.
func MustTable(specs ...Spec) *Table {
	t, err := NewTable(specs...)
	if err != nil {
		panic(err)
	}
	return t
}

// DefaultTable is the process-wide category configuration.
var DefaultTable = MustTable(
	Spec{
		Category: Image,
		Accepted: []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
		MaxBytes: 5 * mib,
		Dir:      "images",
		Field:    "image",
		Label:    "image",
	},
	Spec{
		Category: Document,
		Accepted: []string{
			"application/pdf",
			"application/msword",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		},
		MaxBytes: 10 * mib,
		Dir:      "documents",
		Field:    "document",
		Label:    "document",
	},
	Spec{
		Category: CSV,
		Accepted: []string{"text/csv"},
		MaxBytes: 2 * mib,
		Dir:      "csv",
		Field:    "csv",
		Label:    "CSV",
	},
)

// Classify returns the first category accepting contentType.
func (t *Table) Classify(contentType string) (Category, bool) {
	mt := normalizeMediaType(contentType)
	if mt == "" {
		return "", false
	}
	for _, s := range t.specs {
		for _, a := range s.Accepted {
			if a == mt {
				return s.Category, true
			}
		}
	}
	return "", false
}

// Lookup returns the spec of c.
func (t *Table) Lookup(c Category) (Spec, bool) {
	for _, s := range t.specs {
		if s.Category == c {
			return s, true
		}
	}
	return Spec{}, false
}

// Specs returns a copy of the table in priority order.
func (t *Table) Specs() []Spec {
	out := make([]Spec, len(t.specs))
	for i, s := range t.specs {
		s.Accepted = append([]string(nil), s.Accepted...)
		out[i] = s
	}
	return out
}

func normalizeMediaType(contentType string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		return mt
	}
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
