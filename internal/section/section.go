// Package section implements the content tree of a page: typed sections with
// parent references and sibling ordering, the flat/nested conversions used at
// the persistence boundary, drag reordering, type-change field policies and
// the expansion cascade used for preview.
package section

import "folio/api/internal/quill"

// Type classifies a section's content kind.
type Type string

const (
	TypeExpandable Type = "expandable"
	TypeRawText    Type = "raw_text"
	TypeInfoBox    Type = "info_box"
	TypeImage      Type = "image"
)

// Valid reports whether t is one of the known section types.
func (t Type) Valid() bool {
	switch t {
	case TypeExpandable, TypeRawText, TypeInfoBox, TypeImage:
		return true
	}
	return false
}

// Default styling for newly created sections, matching the editor defaults.
const (
	DefaultBackgroundColor = "#f9fafb"
	DefaultHighlightColor  = "#0284c7"
	DefaultTitleTextColor  = "#ffffff"
	DefaultBorderStyle     = "solid"
	DefaultBorderColor     = "#e0f2fe"
	DefaultWidth           = "100%"
	DefaultAlignment       = "center"

	// ImageBackgroundColor is the neutral background a section receives when
	// its type changes to image.
	ImageBackgroundColor = "#ffffff"
)

// Section is one node of a page's content tree. ParentID is empty for root
// sections. Order positions a section among siblings sharing its ParentID.
type Section struct {
	ID       string
	Type     Type
	ParentID string
	Order    int
	Title    string

	// ContentSource is the authoritative rich-text delta for non-image
	// sections; ContentRendered is the markup derived from it. The two are
	// only ever written together.
	ContentSource   quill.Delta
	ContentRendered string

	// Styling, meaningful for expandable sections.
	BackgroundColor string
	HighlightColor  string
	TitleTextColor  string
	BorderWidth     int
	BorderStyle     string
	BorderColor     string

	// Layout and payload, meaningful for image sections. ImageData holds the
	// persisted payload reference; PendingFile holds bytes attached during
	// this session that have not been saved yet. Filename labels the upload.
	Width       string
	Alignment   string
	ImageData   string
	Filename    string
	PendingFile []byte

	IsExpanded bool
}

// New returns a section with a fresh identity and the editor's defaults:
// an expandable container, expanded, with the standard color scheme. Order
// is assigned by the store when the section is added.
func New(id, parentID string) Section {
	return Section{
		ID:              id,
		Type:            TypeExpandable,
		ParentID:        parentID,
		BackgroundColor: DefaultBackgroundColor,
		HighlightColor:  DefaultHighlightColor,
		TitleTextColor:  DefaultTitleTextColor,
		BorderWidth:     1,
		BorderStyle:     DefaultBorderStyle,
		BorderColor:     DefaultBorderColor,
		Width:           DefaultWidth,
		Alignment:       DefaultAlignment,
		IsExpanded:      true,
	}
}

// HasContent reports whether the section's rendered content is visible:
// non-blank and not the editor's empty-paragraph marker. Image sections have
// content when a payload is attached or persisted.
func (s Section) HasContent() bool {
	if s.Type == TypeImage {
		return s.ImageData != "" || len(s.PendingFile) > 0
	}
	return quill.HasContent(s.ContentRendered)
}
