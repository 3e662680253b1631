package gauge

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"math"
	"strings"
	"testing"
)

func wellFormed(t *testing.T, data []byte) {
	t.Helper()
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			t.Fatalf("invalid svg: %v\n%s", err, data)
		}
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name      string
		value     float64
		title     string
		wantValue string
	}{
		{"mid value", 4.567, "Content Writer Compatibility Index", "4.57"},
		{"clamped high", 15, "Over", "10.00"},
		{"clamped low", -3, "Under", "0.00"},
		{"nan", math.NaN(), "", "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := New().Render(&buf, tt.value, tt.title); err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			out := buf.String()
			wellFormed(t, buf.Bytes())

			for _, color := range []string{"fill:red", "fill:yellow", "fill:green"} {
				if !strings.Contains(out, color) {
					t.Errorf("missing band %s", color)
				}
			}
			if !strings.Contains(out, ">"+tt.wantValue+"<") {
				t.Errorf("value %s not rendered", tt.wantValue)
			}
			if tt.title != "" && !strings.Contains(out, tt.title) {
				t.Errorf("title %q not rendered", tt.title)
			}
		})
	}
}

func TestRenderEscapesTitle(t *testing.T) {
	var buf bytes.Buffer
	if err := New().Render(&buf, 5, `R&D <Lead>`); err != nil {
		t.Fatal(err)
	}
	wellFormed(t, buf.Bytes())
	if strings.Contains(buf.String(), "<Lead>") {
		t.Error("title was not escaped")
	}
}

func TestPoint(t *testing.T) {
	g := New()
	cx, cy := g.center()

	x, y := g.point(0, 100)
	if math.Abs(x-(cx-100)) > 1e-9 || math.Abs(y-cy) > 1e-9 {
		t.Errorf("0 at (%v, %v), want left end", x, y)
	}
	x, y = g.point(5, 100)
	if math.Abs(x-cx) > 1e-9 || math.Abs(y-(cy-100)) > 1e-9 {
		t.Errorf("5 at (%v, %v), want top", x, y)
	}
	x, y = g.point(10, 100)
	if math.Abs(x-(cx+100)) > 1e-9 || math.Abs(y-cy) > 1e-9 {
		t.Errorf("10 at (%v, %v), want right end", x, y)
	}
}

func TestBandsCoverScale(t *testing.T) {
	bands := Bands()
	if bands[0].From != 0 || bands[len(bands)-1].To != 10 {
		t.Fatalf("bands do not span 0-10: %+v", bands)
	}
	for i := 1; i < len(bands); i++ {
		if bands[i].From != bands[i-1].To {
			t.Errorf("gap between band %d and %d", i-1, i)
		}
	}
	if bands[1].From != 3.3 || bands[2].From != 6.6 {
		t.Errorf("thresholds = %v, %v", bands[1].From, bands[2].From)
	}
}
