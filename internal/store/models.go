package store

import (
	"encoding/json"
	"time"
)

// Page is the persisted aggregate metadata. Sections are stored as flat rows
// in page_sections and nested again on the way out.
type Page struct {
	ID          string
	Title       string
	Description string
	Category    string
	Tags        []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SectionRow is one flat section row. FrontendID carries the editor-assigned
// section id verbatim so it survives the load/edit/save round trip. Only the
// structured content source is stored; rendered markup is derived on load.
type SectionRow struct {
	PageID          string
	FrontendID      string
	Type            string
	Title           string
	ContentSource   json.RawMessage
	ParentID        *string
	SortOrder       int
	BackgroundColor string
	HighlightColor  string
	TitleTextColor  string
	BorderWidth     int
	BorderStyle     string
	BorderColor     string
	Width           string
	Alignment       string
	ImageKey        string
	Filename        string
	IsExpanded      bool
}
