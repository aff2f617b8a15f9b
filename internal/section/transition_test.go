package section

import (
	"testing"

	"folio/api/internal/quill"
)

func TestTransitionTableCoversAllPairs(t *testing.T) {
	all := []Type{TypeExpandable, TypeRawText, TypeInfoBox, TypeImage}
	for _, from := range all {
		for _, to := range all {
			policy, ok := transitions[typePair{From: from, To: to}]
			if !ok {
				t.Fatalf("missing transition policy for %s -> %s", from, to)
			}
			if from == to && policy.ClearContent {
				t.Errorf("%s -> %s: identity transition must not clear content", from, to)
			}
			if from != to && !policy.ClearContent {
				t.Errorf("%s -> %s: content never carries across a type change", from, to)
			}
			if to == TypeImage && from != to && !policy.ResetImage {
				t.Errorf("%s -> image must reset the payload", from)
			}
			if to != TypeImage && policy.ResetImage {
				t.Errorf("%s -> %s: non-image target must not touch the payload", from, to)
			}
		}
	}
}

func TestTransitionToImage(t *testing.T) {
	sec := New("X", "")
	sec.ContentSource = quill.Delta{Ops: []quill.Op{{Insert: "texte\n"}}}
	sec.ContentRendered = "<p>texte</p>"
	sec.ImageData = "stale"
	sec.PendingFile = []byte{1, 2}
	sec.BorderWidth = 3
	sec.Width = "50%"
	sec.Alignment = "left"

	applyTransition(&sec, TypeExpandable, TypeImage)

	if !sec.ContentSource.IsZero() || sec.ContentRendered != "" {
		t.Fatal("content must be cleared")
	}
	if sec.ImageData != "" || sec.PendingFile != nil || sec.Filename != "" {
		t.Fatal("payload must be reset")
	}
	if sec.BackgroundColor != ImageBackgroundColor {
		t.Fatalf("expected white background, got %q", sec.BackgroundColor)
	}
	if sec.BorderWidth != 0 {
		t.Fatalf("expected borderWidth 0, got %d", sec.BorderWidth)
	}
	// Layout fields that were set keep their values.
	if sec.Width != "50%" || sec.Alignment != "left" {
		t.Fatalf("set layout fields must persist, got %q %q", sec.Width, sec.Alignment)
	}
}

func TestTransitionToImageDefaultsUnsetLayout(t *testing.T) {
	sec := Section{ID: "X", Type: TypeRawText}
	applyTransition(&sec, TypeRawText, TypeImage)
	if sec.Width != DefaultWidth {
		t.Fatalf("expected default width, got %q", sec.Width)
	}
	if sec.Alignment != DefaultAlignment {
		t.Fatalf("expected default alignment, got %q", sec.Alignment)
	}
}

func TestTransitionFromImageKeepsStyling(t *testing.T) {
	sec := New("X", "")
	sec.Type = TypeImage
	sec.ImageData = "blob-key"
	sec.HighlightColor = "#16a34a"

	applyTransition(&sec, TypeImage, TypeExpandable)

	// Image fields are merely unused after the change, not force-cleared.
	if sec.ImageData != "blob-key" {
		t.Fatalf("image fields need not be cleared, got %q", sec.ImageData)
	}
	if sec.HighlightColor != "#16a34a" {
		t.Fatalf("unmentioned styling must persist, got %q", sec.HighlightColor)
	}
	if !sec.ContentSource.IsZero() || sec.ContentRendered != "" {
		t.Fatal("content must be cleared in every direction")
	}
}
