package section

import "folio/api/internal/quill"

// typePair keys the transition table: the section's current type and the
// type it is changing to.
type typePair struct {
	From Type
	To   Type
}

// transitionPolicy says which fields reset when a section's type changes.
// Content never survives a type change. Image targets additionally drop any
// payload and take neutral framing so the previous type's styling does not
// bleed into the picture. Styling fields not named by a policy persist.
type transitionPolicy struct {
	ClearContent bool
	ResetImage   bool
	ImageFraming bool
}

// transitions is the full finite table, current type x new type. Building it
// explicitly keeps the policy enumerable and testable on its own, instead of
// being buried in conditional branches.
var transitions = buildTransitionTable()

func buildTransitionTable() map[typePair]transitionPolicy {
	all := []Type{TypeExpandable, TypeRawText, TypeInfoBox, TypeImage}
	table := make(map[typePair]transitionPolicy, len(all)*len(all))
	for _, from := range all {
		for _, to := range all {
			if from == to {
				table[typePair{from, to}] = transitionPolicy{}
				continue
			}
			table[typePair{from, to}] = transitionPolicy{
				ClearContent: true,
				ResetImage:   to == TypeImage,
				ImageFraming: to == TypeImage,
			}
		}
	}
	return table
}

// applyTransition resets fields on sec according to the policy for from->to.
// It runs before the rest of an update patch, so explicit patch fields can
// still override the defaults it sets.
func applyTransition(sec *Section, from, to Type) {
	policy := transitions[typePair{From: from, To: to}]

	if policy.ClearContent {
		sec.ContentSource = quill.Delta{}
		sec.ContentRendered = ""
	}
	if policy.ResetImage {
		sec.ImageData = ""
		sec.Filename = ""
		sec.PendingFile = nil
	}
	if policy.ImageFraming {
		sec.BackgroundColor = ImageBackgroundColor
		sec.BorderWidth = 0
		sec.BorderStyle = DefaultBorderStyle
		sec.BorderColor = DefaultBorderColor
		if sec.Width == "" {
			sec.Width = DefaultWidth
		}
		if sec.Alignment == "" {
			sec.Alignment = DefaultAlignment
		}
	}
}
