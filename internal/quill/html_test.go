package quill

import "testing"

func textOp(text string) Op {
	return Op{Insert: text}
}

func TestRenderBlankDelta(t *testing.T) {
	d := Delta{Ops: []Op{textOp("\n")}}
	if got := Render(d); got != EmptyParagraph {
		t.Fatalf("expected %q for blank delta, got %q", EmptyParagraph, got)
	}
}

func TestRenderZeroDelta(t *testing.T) {
	if got := Render(Delta{}); got != "" {
		t.Fatalf("expected empty output for zero delta, got %q", got)
	}
}

func TestRenderParagraphs(t *testing.T) {
	d := Delta{Ops: []Op{textOp("first\nsecond\n")}}
	want := "<p>first</p><p>second</p>"
	if got := Render(d); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestRenderInlineMarks(t *testing.T) {
	tests := []struct {
		name string
		op   Op
		want string
	}{
		{
			name: "bold",
			op:   Op{Insert: "hi", Attributes: map[string]any{"bold": true}},
			want: "<p><strong>hi</strong></p>",
		},
		{
			name: "italic",
			op:   Op{Insert: "hi", Attributes: map[string]any{"italic": true}},
			want: "<p><em>hi</em></p>",
		},
		{
			name: "underline",
			op:   Op{Insert: "hi", Attributes: map[string]any{"underline": true}},
			want: "<p><u>hi</u></p>",
		},
		{
			name: "bold italic nests bold outermost",
			op:   Op{Insert: "hi", Attributes: map[string]any{"bold": true, "italic": true}},
			want: "<p><strong><em>hi</em></strong></p>",
		},
		{
			name: "link wraps marks",
			op:   Op{Insert: "hi", Attributes: map[string]any{"bold": true, "link": "https://example.com"}},
			want: `<p><a href="https://example.com"><strong>hi</strong></a></p>`,
		},
		{
			name: "color",
			op:   Op{Insert: "hi", Attributes: map[string]any{"color": "#991b1b"}},
			want: `<p><span style="color: #991b1b">hi</span></p>`,
		},
		{
			name: "background",
			op:   Op{Insert: "hi", Attributes: map[string]any{"background": "#dcfce7"}},
			want: `<p><span style="background-color: #dcfce7">hi</span></p>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Delta{Ops: []Op{tt.op, textOp("\n")}}
			if got := Render(d); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRenderHeader(t *testing.T) {
	d := Delta{Ops: []Op{
		textOp("Heading"),
		{Insert: "\n", Attributes: map[string]any{"header": float64(2)}},
		textOp("body\n"),
	}}
	want := "<h2>Heading</h2><p>body</p>"
	if got := Render(d); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestRenderListGrouping(t *testing.T) {
	d := Delta{Ops: []Op{
		textOp("one"),
		{Insert: "\n", Attributes: map[string]any{"list": "bullet"}},
		textOp("two"),
		{Insert: "\n", Attributes: map[string]any{"list": "bullet"}},
		textOp("first"),
		{Insert: "\n", Attributes: map[string]any{"list": "ordered"}},
	}}
	want := "<ul><li>one</li><li>two</li></ul><ol><li>first</li></ol>"
	if got := Render(d); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestRenderEscapesText(t *testing.T) {
	d := Delta{Ops: []Op{textOp("<script>alert(1)</script>\n")}}
	got := Render(d)
	if got != "<p>&lt;script&gt;alert(1)&lt;/script&gt;</p>" {
		t.Fatalf("text was not escaped: %q", got)
	}
}

func TestRenderImageEmbed(t *testing.T) {
	d := Delta{Ops: []Op{
		{Insert: map[string]any{"image": "https://example.com/x.png"}},
		textOp("\n"),
	}}
	want := `<p><img src="https://example.com/x.png"></p>`
	if got := Render(d); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestRenderToleratesMissingTrailingNewline(t *testing.T) {
	d := Delta{Ops: []Op{textOp("dangling")}}
	want := "<p>dangling</p>"
	if got := Render(d); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestHasContent(t *testing.T) {
	tests := []struct {
		name     string
		rendered string
		want     bool
	}{
		{"empty string", "", false},
		{"whitespace only", "  \n\t", false},
		{"empty paragraph marker", EmptyParagraph, false},
		{"empty paragraph with whitespace", "  <p><br></p>\n", false},
		{"real content", "<p>hello</p>", true},
		{"image only", `<p><img src="x"></p>`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasContent(tt.rendered); got != tt.want {
				t.Errorf("HasContent(%q) = %v, want %v", tt.rendered, got, tt.want)
			}
		})
	}
}

func TestIsBlank(t *testing.T) {
	tests := []struct {
		name  string
		delta Delta
		want  bool
	}{
		{"zero delta", Delta{}, true},
		{"single newline", Delta{Ops: []Op{textOp("\n")}}, true},
		{"whitespace", Delta{Ops: []Op{textOp("   \n")}}, true},
		{"text", Delta{Ops: []Op{textOp("hi\n")}}, false},
		{"embed only", Delta{Ops: []Op{{Insert: map[string]any{"image": "x"}}, textOp("\n")}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.delta.IsBlank(); got != tt.want {
				t.Errorf("IsBlank = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	d, err := Parse([]byte(`{"ops":[{"insert":"hello\n"}]}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(d.Ops) != 1 {
		t.Fatalf("expected 1 op, got %d", len(d.Ops))
	}
	if d.Ops[0].Insert != "hello\n" {
		t.Errorf("unexpected insert: %v", d.Ops[0].Insert)
	}

	d, err = Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil) failed: %v", err)
	}
	if !d.IsZero() {
		t.Error("expected zero delta for nil payload")
	}

	d, err = Parse([]byte("null"))
	if err != nil {
		t.Fatalf("Parse(null) failed: %v", err)
	}
	if !d.IsZero() {
		t.Error("expected zero delta for null payload")
	}
}
