package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestExtractText(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "one text object per line",
			content: "BT /F1 11 Tf 72 770 Td (Jane Doe) Tj ET\nBT /F1 11 Tf 72 755 Td (Engineer) Tj ET",
			want:    "Jane Doe\nEngineer",
		},
		{
			name:    "td moves to next line",
			content: "BT /F1 11 Tf 72 770 Td (first) Tj 0 -15 Td (second) Tj ET",
			want:    "first\nsecond",
		},
		{
			name:    "horizontal td stays on line",
			content: "BT (left) Tj 40 0 Td (right) Tj ET",
			want:    "leftright",
		},
		{
			name:    "tj array with kerning gap",
			content: "BT [(Hel) 20 (lo) -300 (world)] TJ ET",
			want:    "Hello world",
		},
		{
			name:    "quote operators start new lines",
			content: "BT (a) Tj (b) ' 1 2 (c) \" ET",
			want:    "a\nb\nc",
		},
		{
			name:    "escapes and nested parens",
			content: `BT (f\(x\) = \(1\) \\ done \101) Tj ET`,
			want:    `f(x) = (1) \ done A`,
		},
		{
			name:    "hex string",
			content: "BT <48656C6C6F> Tj ET",
			want:    "Hello",
		},
		{
			name:    "utf16 hex string",
			content: "BT <FEFF004A00F6> Tj ET",
			want:    "Jö",
		},
		{
			name:    "winansi bytes",
			content: "BT <93686921> Tj ET",
			want:    "“hi!",
		},
		{
			name:    "text matrix changes line",
			content: "BT 1 0 0 1 72 700 Tm (a) Tj 1 0 0 1 120 700 Tm (b) Tj 1 0 0 1 72 685 Tm (c) Tj ET",
			want:    "ab\nc",
		},
		{
			name:    "comments and graphics are ignored",
			content: "% comment\nq 1 0 0 1 0 0 cm /Im1 Do Q\nBT << /MCID 0 >> BDC (x) Tj EMC ET",
			want:    "x",
		},
		{
			name:    "inline image data is skipped",
			content: "BI /W 1 /H 1 /BPC 8 /CS /G ID \x00(\xff EI Q BT (after) Tj ET",
			want:    "after",
		},
		{
			name:    "empty",
			content: "",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractText([]byte(tt.content), nil); got != tt.want {
				t.Errorf("extractText() = %q, want %q", got, tt.want)
			}
		})
	}
}

// identityCMap maps two-byte glyph codes 0001 to 0008 to "Jane DEo".
const identityCMap = `/CIDInit /ProcSet findresource begin
12 dict begin
begincmap
/CIDSystemInfo << /Registry (Adobe) /Ordering (UCS) /Supplement 0 >> def
/CMapName /Adobe-Identity-UCS def
/CMapType 2 def
1 begincodespacerange
<0000> <FFFF>
endcodespacerange
3 beginbfchar
<0004> <0065>
<0005> <0020>
<0008> <006F>
endbfchar
2 beginbfrange
<0001> <0003> [<004A> <0061> <006E>]
<0006> <0007> <0044>
endbfrange
endcmap
CMapName currentdict /CMap defineresource pop
end
end`

func TestParseToUnicodeCMap(t *testing.T) {
	m := parseToUnicodeCMap([]byte(identityCMap))
	if len(m.lengths) != 1 || m.lengths[0] != 2 {
		t.Fatalf("code lengths = %v, want [2]", m.lengths)
	}

	tests := []struct {
		code []byte
		want string
	}{
		{[]byte{0x00, 0x01}, "J"},
		{[]byte{0x00, 0x03}, "n"},
		{[]byte{0x00, 0x04}, "e"},
		{[]byte{0x00, 0x06}, "D"},
		{[]byte{0x00, 0x07}, "E"},
		{[]byte{0x00, 0x08}, "o"},
	}
	for _, tt := range tests {
		n, got := m.lookup(tt.code)
		if n != 2 || got != tt.want {
			t.Errorf("lookup(%x) = %d, %q, want 2, %q", tt.code, n, got, tt.want)
		}
	}

	t.Run("surrogate pairs and single line sections", func(t *testing.T) {
		m := parseToUnicodeCMap([]byte("1 beginbfchar <41> <D83DDE00> endbfchar"))
		if _, got := m.lookup([]byte("A")); got != "\U0001F600" {
			t.Errorf("lookup = %q", got)
		}
	})

	t.Run("oversized range is ignored", func(t *testing.T) {
		m := parseToUnicodeCMap([]byte("1 beginbfrange <00000000> <FFFFFFFF> <0041> endbfrange"))
		if len(m.entries) != 0 {
			t.Errorf("got %d entries", len(m.entries))
		}
	})
}

// staticResources serves fixed fonts and forms by name.
type staticResources struct {
	fonts map[string]*fontDecoder
	forms map[string]string
}

func (r staticResources) font(name string) *fontDecoder { return r.fonts[name] }

func (r staticResources) form(name string) ([]byte, resources, bool) {
	content, ok := r.forms[name]
	return []byte(content), r, ok
}

func TestExtractTextWithFonts(t *testing.T) {
	res := staticResources{
		fonts: map[string]*fontDecoder{
			"F1": {composite: true, toUnicode: parseToUnicodeCMap([]byte(identityCMap))},
			"F2": {composite: true},
			"F3": {},
		},
		forms: map[string]string{
			"Fm1":  "BT /F1 11 Tf <000600080004> Tj ET",
			"Loop": "/Loop Do",
		},
	}

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "identity-h codes through tounicode",
			content: "BT /F1 11 Tf <0001000200030004> Tj ET",
			want:    "Jane",
		},
		{
			name:    "tj array with two byte codes",
			content: "BT /F1 11 Tf [<00010002> -20 <00030004> <0005> <0006>] TJ ET",
			want:    "Jane D",
		},
		{
			name:    "composite font without tounicode yields nothing",
			content: "BT /F2 11 Tf <002D00440051> Tj ET",
			want:    "",
		},
		{
			name:    "unmapped composite codes are dropped",
			content: "BT /F1 11 Tf <00010099> Tj ET",
			want:    "J",
		},
		{
			name:    "simple font decodes winansi",
			content: "BT /F3 11 Tf (Jane) Tj ET",
			want:    "Jane",
		},
		{
			name:    "font switches per text object",
			content: "BT /F1 11 Tf <0001> Tj ET BT /F3 11 Tf (ohn) Tj ET",
			want:    "J\nohn",
		},
		{
			name:    "Q restores the font",
			content: "BT /F3 11 Tf q /F2 11 Tf Q (kept) Tj ET",
			want:    "kept",
		},
		{
			name:    "form xobject text",
			content: "BT /F1 11 Tf <0001000200030004> Tj ET q /Fm1 Do Q",
			want:    "Jane\nDoe",
		},
		{
			name:    "recursive forms stop",
			content: "/Loop Do BT /F3 11 Tf (end) Tj ET",
			want:    "end",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractText([]byte(tt.content), res); got != tt.want {
				t.Errorf("extractText() = %q, want %q", got, tt.want)
			}
		})
	}
}

// buildPDF writes objects numbered from 1 with a valid xref table. Object 1
// must be the catalog.
func buildPDF(objects ...string) []byte {
	var b bytes.Buffer
	b.WriteString("%PDF-1.7\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return b.Bytes()
}

func pdfStream(dict, data string) string {
	return fmt.Sprintf("<< %s /Length %d >>\nstream\n%s\nendstream", dict, len(data), data)
}

// A page drawn the way word processors export: a subset TrueType font as
// Type0 with Identity-H encoding, part of the text inside a form XObject.
func TestExtractType0Font(t *testing.T) {
	pdf := buildPDF(
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> /XObject << /Fm1 9 0 R >> >> /Contents 4 0 R >>",
		pdfStream("", "BT /F1 11 Tf 72 720 Td <0001000200030004> Tj ET\nq /Fm1 Do Q"),
		"<< /Type /Font /Subtype /Type0 /BaseFont /ABCDEF+Calibri /Encoding /Identity-H /DescendantFonts [6 0 R] /ToUnicode 7 0 R >>",
		"<< /Type /Font /Subtype /CIDFontType2 /BaseFont /ABCDEF+Calibri /CIDSystemInfo << /Registry (Adobe) /Ordering (Identity) /Supplement 0 >> /FontDescriptor 8 0 R >>",
		pdfStream("", identityCMap),
		"<< /Type /FontDescriptor /FontName /ABCDEF+Calibri /Flags 32 /FontBBox [0 -250 1000 750] /ItalicAngle 0 /Ascent 750 /Descent -250 /CapHeight 700 /StemV 80 >>",
		pdfStream("/Type /XObject /Subtype /Form /BBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> >>", "BT /F1 11 Tf 72 700 Td <000600080004> Tj ET"),
	)

	doc, err := NewExtractor(zap.NewNop()).Extract(context.Background(), bytes.NewReader(pdf), FormatPDF)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(doc.Pages) != 1 {
		t.Fatalf("got %d pages, want 1", len(doc.Pages))
	}
	if got, want := doc.Pages[0].Text, "Jane\nDoe"; got != want {
		t.Errorf("page text = %q, want %q", got, want)
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		head    []byte
		want    Format
		wantErr bool
	}{
		{"pdf magic", "upload", []byte("%PDF-1.7"), FormatPDF, false},
		{"zip magic", "resume.docx", []byte("PK\x03\x04rest"), FormatDOCX, false},
		{"pdf extension", "resume.PDF", nil, FormatPDF, false},
		{"docx extension", "cv.docx", []byte("junk"), FormatDOCX, false},
		{"unknown", "notes.txt", []byte("hello"), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(tt.file, tt.head)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedFormat) {
					t.Fatalf("DetectFormat() error = %v, want ErrUnsupportedFormat", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DetectFormat() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DetectFormat() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSniffRewinds(t *testing.T) {
	rs := bytes.NewReader([]byte("%PDF-1.4 rest of file"))
	if _, err := Sniff(rs, "x"); err != nil {
		t.Fatalf("Sniff() error = %v", err)
	}
	if pos, _ := rs.Seek(0, 1); pos != 0 {
		t.Errorf("reader position = %d, want 0", pos)
	}
}

func TestDocxText(t *testing.T) {
	const body = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:r><w:t>Jane</w:t></w:r><w:r><w:t xml:space="preserve"> Doe</w:t></w:r></w:p>
<w:p><w:r><w:t>Skills:</w:t><w:tab/><w:t>Go</w:t></w:r></w:p>
<w:p><w:r><w:br w:type="page"/></w:r></w:p>
<w:p><w:r><w:t>Page two</w:t></w:r></w:p>
</w:body></w:document>`

	pages, err := docxText(body)
	if err != nil {
		t.Fatalf("docxText() error = %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("got %d pages, want 2: %q", len(pages), pages)
	}
	if pages[0] != "Jane Doe\nSkills:\tGo" {
		t.Errorf("page 1 = %q", pages[0])
	}
	if pages[1] != "Page two" {
		t.Errorf("page 2 = %q", pages[1])
	}
}

func TestRendererLayout(t *testing.T) {
	r, err := NewRenderer(DefaultRenderOptions(), zap.NewNop())
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}

	t.Run("fixed offsets", func(t *testing.T) {
		spec, stats := r.layout([]string{"first\nsecond\n\nfourth", "other"})
		if len(spec.Pages) != 2 || stats.Pages != 2 {
			t.Fatalf("got %d pages, want 2", len(spec.Pages))
		}
		lines := spec.Pages["1"].Content.Text
		if len(lines) != 3 {
			t.Fatalf("got %d lines, want 3 (blank line skipped)", len(lines))
		}
		if lines[0].Pos != [2]float64{72, r.height - 72} {
			t.Errorf("first line at %v", lines[0].Pos)
		}
		if lines[1].Pos[1] != r.height-87 {
			t.Errorf("second line y = %v, want %v", lines[1].Pos[1], r.height-87)
		}
		if lines[2].Pos[1] != r.height-117 {
			t.Errorf("fourth line keeps its row: y = %v, want %v", lines[2].Pos[1], r.height-117)
		}
		if lines[0].Font.Name != "Helvetica" || lines[0].Font.Size != 11 {
			t.Errorf("font = %+v", lines[0].Font)
		}
	})

	t.Run("clips overflow", func(t *testing.T) {
		text := strings.Repeat("line\n", 100)
		spec, stats := r.layout([]string{text})
		if stats.ClippedLines == 0 {
			t.Fatal("expected clipped lines")
		}
		if got := len(spec.Pages["1"].Content.Text) + stats.ClippedLines; got != 101 {
			t.Errorf("rendered + clipped = %d, want 101", got)
		}
		for _, line := range spec.Pages["1"].Content.Text {
			if line.Pos[1] < r.opts.BottomMargin {
				t.Fatalf("line rendered below bottom margin at y=%v", line.Pos[1])
			}
		}
	})

	t.Run("replaces unsupported characters", func(t *testing.T) {
		if got := printable("naïve\t日本"); got != "naïve ??" {
			t.Errorf("printable() = %q", got)
		}
	})
}

func TestNewRendererRejectsUnknownPaper(t *testing.T) {
	opts := DefaultRenderOptions()
	opts.Paper = "Napkin"
	if _, err := NewRenderer(opts, zap.NewNop()); err == nil {
		t.Fatal("expected error")
	}
}

func TestRenderRoundTrip(t *testing.T) {
	ctx := context.Background()
	r, err := NewRenderer(DefaultRenderOptions(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	pages := []string{"Contact [NAME]\n[EMAIL]", "Second page", ""}
	var out bytes.Buffer
	stats, err := r.Render(ctx, pages, &out)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if stats.Pages != 3 {
		t.Errorf("stats.Pages = %d", stats.Pages)
	}

	n, err := PageCount(bytes.NewReader(out.Bytes()))
	if err != nil {
		t.Fatalf("PageCount() error = %v", err)
	}
	if n != len(pages) {
		t.Fatalf("output has %d pages, want %d", n, len(pages))
	}

	doc, err := NewExtractor(zap.NewNop()).Extract(ctx, bytes.NewReader(out.Bytes()), FormatPDF)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(doc.Pages) != 3 {
		t.Fatalf("extracted %d pages", len(doc.Pages))
	}
	if !strings.Contains(doc.Pages[0].Text, "[NAME]") || !strings.Contains(doc.Pages[1].Text, "Second page") {
		t.Errorf("unexpected extracted text: %q", doc.Texts())
	}

	if _, err := r.Render(ctx, nil, &out); !errors.Is(err, ErrNoPages) {
		t.Errorf("Render(nil) error = %v, want ErrNoPages", err)
	}
}

func TestExtractRejectsGarbage(t *testing.T) {
	_, err := NewExtractor(zap.NewNop()).Extract(context.Background(), bytes.NewReader([]byte("%PDF-1.4 not really")), FormatPDF)
	if !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("Extract() error = %v, want ErrInvalidDocument", err)
	}
}
