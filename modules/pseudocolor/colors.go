package pseudocolor

import (
	"fmt"
	"image/color"
	"math"
	"sort"
	"strings"
)

// ColorTable is a piecewise-linear colour map over [0, 1].
type ColorTable []color.RGBA

var tables = map[string]ColorTable{
	"cool2warm": {
		{R: 59, G: 76, B: 192, A: 255},
		{R: 221, G: 221, B: 221, A: 255},
		{R: 180, G: 4, B: 38, A: 255},
	},
	"grayscale": {
		{A: 255},
		{R: 255, G: 255, B: 255, A: 255},
	},
	"rainbow": {
		{B: 255, A: 255},
		{G: 255, B: 255, A: 255},
		{G: 255, A: 255},
		{R: 255, G: 255, A: 255},
		{R: 255, A: 255},
	},
}

// TableNames lists the known colour tables.
func TableNames() []string {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupTable(name string) (ColorTable, error) {
	t, ok := tables[name]
	if !ok {
		return nil, fmt.Errorf("unknown color_table %q (known: %s)", name, strings.Join(TableNames(), ", "))
	}
	return t, nil
}

// At maps a normalized value to a colour. Values outside [0, 1] clamp.
func (t ColorTable) At(v float64) color.RGBA {
	if math.IsNaN(v) || v <= 0 {
		return t[0]
	}
	if v >= 1 {
		return t[len(t)-1]
	}
	pos := v * float64(len(t)-1)
	i := int(pos)
	frac := pos - float64(i)
	a, b := t[i], t[i+1]
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*frac))
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}
