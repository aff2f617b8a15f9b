// Package quill models Quill rich-text deltas and renders them to HTML.
// The delta is the authoritative content representation; the HTML form is
// derived and cached for display.
package quill

import (
	"encoding/json"
	"strings"
)

// Delta is a Quill document: an ordered list of insert operations.
type Delta struct {
	Ops []Op `json:"ops"`
}

// Op is a single insert operation. Insert is either a string of text or an
// embed object (e.g. {"image": "..."}). Attributes carry inline formatting,
// or block formatting when the insert is a newline.
type Op struct {
	Insert     any            `json:"insert"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Parse decodes a JSON delta. A null or empty payload yields an empty Delta.
func Parse(raw []byte) (Delta, error) {
	var d Delta
	if len(raw) == 0 || string(raw) == "null" {
		return d, nil
	}
	if err := json.Unmarshal(raw, &d); err != nil {
		return Delta{}, err
	}
	return d, nil
}

// IsZero reports whether the delta has no operations at all, which is how an
// absent delta arrives after JSON decoding.
func (d Delta) IsZero() bool {
	return len(d.Ops) == 0
}

// IsBlank reports whether the delta carries no visible content: no embeds and
// no text beyond whitespace. The editor emits {"ops":[{"insert":"\n"}]} for a
// document the user never typed into.
func (d Delta) IsBlank() bool {
	var text strings.Builder
	for _, op := range d.Ops {
		s, ok := op.Insert.(string)
		if !ok {
			// Embeds (images, videos) count as content.
			return false
		}
		text.WriteString(s)
	}
	return strings.TrimSpace(text.String()) == ""
}

// MarshalJSON emits the delta with an explicit ops array so a blank delta
// round-trips as {"ops":[]} rather than null.
func (d Delta) MarshalJSON() ([]byte, error) {
	type alias Delta
	a := alias(d)
	if a.Ops == nil {
		a.Ops = []Op{}
	}
	return json.Marshal(a)
}
