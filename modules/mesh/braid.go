package mesh

import "math"

// DefaultName is the source name the braid mesh is published under.
const DefaultName = "mesh"

// Braid generates a dims x dims x dims grid over [-10, 10]^3 carrying two
// fields: "braid", a pair of helices twisting with the cycle, and "radial",
// the distance from the origin. Values of braid lie in [-1, 1].
func Braid(name string, dims, cycle int) *Dataset {
	if dims < 2 {
		dims = 2
	}
	n := dims * dims * dims
	d := &Dataset{
		Name:   name,
		Cycle:  cycle,
		Points: make([]Point, 0, n),
		Fields: map[string][]float64{
			"braid":  make([]float64, 0, n),
			"radial": make([]float64, 0, n),
		},
	}

	step := 20.0 / float64(dims-1)
	phase := float64(cycle) * 0.1
	for k := 0; k < dims; k++ {
		z := -10 + float64(k)*step
		for j := 0; j < dims; j++ {
			y := -10 + float64(j)*step
			for i := 0; i < dims; i++ {
				x := -10 + float64(i)*step
				d.Points = append(d.Points, Point{X: x, Y: y, Z: z})
				d.Fields["braid"] = append(d.Fields["braid"], braidValue(x, y, z, phase))
				d.Fields["radial"] = append(d.Fields["radial"], math.Sqrt(x*x+y*y+z*z))
			}
		}
	}
	return d
}

func braidValue(x, y, z, phase float64) float64 {
	theta := z*0.3 + phase
	ax, ay := 3*math.Cos(theta), 3*math.Sin(theta)
	da := math.Hypot(x-ax, y-ay)
	db := math.Hypot(x+ax, y+ay)
	return math.Exp(-da*da/8) - math.Exp(-db*db/8)
}
