package palette

import (
	"image/color"
	"sort"
	"strings"

	"github.com/juju/errors"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Metric measures the distance between two colors. It must be deterministic.
type Metric interface {
	Distance(a, b color.NRGBA) float64
}

// MetricFunc adapts an ordinary function to the Metric interface.
type MetricFunc func(a, b color.NRGBA) float64

// Distance calls f(a, b)
func (f MetricFunc) Distance(a, b color.NRGBA) float64 {
	return f(a, b)
}

func sqDiff(x, y uint8) float64 {
	d := float64(x) - float64(y)
	return d * d
}

// RGBA is the sum of the squared differences of each 8-bit channel.
var RGBA Metric = MetricFunc(func(a, b color.NRGBA) float64 {
	return sqDiff(a.R, b.R) + sqDiff(a.G, b.G) + sqDiff(a.B, b.B) + sqDiff(a.A, b.A)
})

func lab(c color.NRGBA) colorful.Color {
	// The alpha channel is handled separately, so compare the opaque color
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}
}

// Lab is the Euclidean distance in CIE L*a*b* space with the squared alpha
// difference, scaled to 0-1, added on.
var Lab Metric = MetricFunc(func(a, b color.NRGBA) float64 {
	d := lab(a).DistanceLab(lab(b))
	return d*d + sqDiff(a.A, b.A)/(255*255)
})

var metrics = map[string]Metric{
	"rgba": RGBA,
	"lab":  Lab,
}

// MetricNames returns the names accepted by MetricByName
func MetricNames() []string {
	names := make([]string, 0, len(metrics))
	for k := range metrics {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// MetricByName returns the named metric. An empty name returns RGBA.
func MetricByName(name string) (Metric, error) {
	if name == "" {
		return RGBA, nil
	}
	m, ok := metrics[strings.ToLower(name)]
	if !ok {
		return nil, errors.NotValidf("metric %q", name)
	}
	return m, nil
}
