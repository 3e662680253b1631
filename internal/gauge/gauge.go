// Package gauge draws compatibility scores as a half-dial SVG gauge.
package gauge

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"

	svg "github.com/ajstarks/svgo"
	"github.com/raaihank/fairhire/internal/compat"
)

// Band is one colored range of the dial
type Band struct {
	From  float64
	To    float64
	Color string
}

// Bands returns the dial ranges from low to high
func Bands() []Band {
	return []Band{
		{From: 0, To: compat.MediumThreshold, Color: "red"},
		{From: compat.MediumThreshold, To: compat.HighThreshold, Color: "yellow"},
		{From: compat.HighThreshold, To: compat.MaxDisplay, Color: "green"},
	}
}

// Gauge holds the dial geometry in pixels
type Gauge struct {
	Width       int
	Height      int
	OuterRadius float64
	InnerRadius float64
}

// New returns a 400x260 gauge
func New() *Gauge {
	return &Gauge{Width: 400, Height: 260, OuterRadius: 160, InnerRadius: 100}
}

func (g *Gauge) center() (float64, float64) {
	return float64(g.Width) / 2, float64(g.Height) - 50
}

// point returns the position of value on a circle of radius r. 0 sits at the
// left end of the dial and MaxDisplay at the right end.
func (g *Gauge) point(value, r float64) (float64, float64) {
	cx, cy := g.center()
	theta := math.Pi * (1 - value/compat.MaxDisplay)
	return cx + r*math.Cos(theta), cy - r*math.Sin(theta)
}

// sector is the annular path of a band.
func (g *Gauge) sector(b Band) string {
	ox0, oy0 := g.point(b.From, g.OuterRadius)
	ox1, oy1 := g.point(b.To, g.OuterRadius)
	ix1, iy1 := g.point(b.To, g.InnerRadius)
	ix0, iy0 := g.point(b.From, g.InnerRadius)
	return fmt.Sprintf("M%.2f,%.2f A%.0f,%.0f 0 0 1 %.2f,%.2f L%.2f,%.2f A%.0f,%.0f 0 0 0 %.2f,%.2f Z",
		ox0, oy0, g.OuterRadius, g.OuterRadius, ox1, oy1,
		ix1, iy1, g.InnerRadius, g.InnerRadius, ix0, iy0)
}

func round(v float64) int {
	return int(math.Round(v))
}

// Render writes the gauge for a display value in [0, 10]. Values outside the
// range are clamped.
func (g *Gauge) Render(w io.Writer, value float64, title string) error {
	if math.IsNaN(value) {
		value = 0
	}
	value = math.Min(math.Max(value, 0), compat.MaxDisplay)
	title = strings.TrimSpace(title)

	var buf bytes.Buffer
	canvas := svg.New(&buf)
	canvas.Start(g.Width, g.Height)
	if title != "" {
		canvas.Title(title)
		canvas.Text(g.Width/2, 30, title, "text-anchor:middle;font-family:sans-serif;font-size:18px")
	}

	for _, b := range Bands() {
		canvas.Path(g.sector(b), "fill:"+b.Color+";stroke:white;stroke-width:1")
	}

	canvas.Gstyle("font-family:sans-serif;font-size:11px;text-anchor:middle;fill:#444")
	for tick := 0; tick <= int(compat.MaxDisplay); tick += 2 {
		x, y := g.point(float64(tick), g.OuterRadius+12)
		canvas.Text(round(x), round(y)+4, fmt.Sprint(tick))
	}
	canvas.Gend()

	// Threshold marker across the band, then the needle.
	mx0, my0 := g.point(value, g.InnerRadius-4)
	mx1, my1 := g.point(value, g.OuterRadius+4)
	canvas.Line(round(mx0), round(my0), round(mx1), round(my1), "stroke:black;stroke-width:4")

	cx, cy := g.center()
	nx, ny := g.point(value, g.InnerRadius-10)
	canvas.Line(round(cx), round(cy), round(nx), round(ny), "stroke:#222;stroke-width:3;stroke-linecap:round")
	canvas.Circle(round(cx), round(cy), 6, "fill:#222")

	canvas.Text(round(cx), round(cy)+38, fmt.Sprintf("%.2f", value),
		"text-anchor:middle;font-family:sans-serif;font-size:28px;font-weight:bold")
	canvas.End()

	_, err := w.Write(buf.Bytes())
	return err
}
