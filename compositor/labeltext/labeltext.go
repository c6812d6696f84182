// Package labeltext measures label text for the compositor's Labels layer:
// shaping a string once via go-text/typesetting to get its advance width
// and an approximate line height, so a scenegraph.Text primitive can carry
// a pre-measured bounding box. It never rasterizes glyphs — that remains
// the host renderer's job.
package labeltext

import (
	"bytes"
	"sync"

	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"
)

// lineHeightFactor approximates a line's total height as a multiple of
// its point size, in lieu of parsing the font's hhea/OS2 metrics tables —
// adequate for the Labels layer's bounding-box reservation, not for
// precise typographic layout.
const lineHeightFactor = 1.2

// Font wraps a parsed font ready for shaping. Safe for concurrent use;
// shaping itself allocates a fresh, non-concurrent-safe Face per call,
// caching the parsed *font.Font rather than a *font.Face.
type Font struct {
	parsed *font.Font
}

// LoadFont parses TrueType/OpenType font bytes for later shaping.
func LoadFont(data []byte) (*Font, error) {
	face, err := font.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &Font{parsed: face.Font}, nil
}

// Bounds is a measured text bounding box in the same units as sizePx
// (typically screen pixels).
type Bounds struct {
	Width  float64
	Height float64
}

var shaperPool = sync.Pool{
	New: func() any { return &shaping.HarfbuzzShaper{} },
}

// Measure shapes text at the given point size and returns its advance
// width and approximate line height. Returns a zero Bounds for empty
// input or a nil font.
func Measure(text string, f *Font, sizePx float64) Bounds {
	if text == "" || f == nil {
		return Bounds{}
	}

	runes := []rune(text)
	input := shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: 0, // LTR, the default go-text/typesetting di.Direction zero value
		Face:      font.NewFace(f.parsed),
		Size:      fixed.Int26_6(sizePx * 64),
		Script:    language.Latin,
		Language:  language.NewLanguage("en"),
	}

	shaper := shaperPool.Get().(*shaping.HarfbuzzShaper)
	output := shaper.Shape(input)
	shaperPool.Put(shaper)

	var width float64
	for _, g := range output.Glyphs {
		width += float64(g.Advance) / 64.0
	}

	return Bounds{Width: width, Height: sizePx * lineHeightFactor}
}
