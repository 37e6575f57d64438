package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBraid(t *testing.T) {
	t.Parallel()

	// --- Act ---
	d := Braid(DefaultName, 4, 7)

	// --- Assert ---
	assert.Equal(t, 64, d.Len())
	assert.Equal(t, []string{"braid", "radial"}, d.FieldNames())
	assert.Equal(t, "mesh@7", d.Version())
	assert.Equal(t, Point{X: -10, Y: -10, Z: -10}, d.Points[0])
	assert.Equal(t, Point{X: 10, Y: 10, Z: 10}, d.Points[63])

	lo, hi, err := d.Range("braid")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, lo, -1.0)
	assert.LessOrEqual(t, hi, 1.0)
	assert.Less(t, lo, hi)
}

func TestBraid_ClampsDims(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 8, Braid("m", 0, 0).Len())
}

func TestBraid_CycleChangesField(t *testing.T) {
	t.Parallel()

	a := Braid(DefaultName, 3, 0)
	b := Braid(DefaultName, 3, 5)

	assert.Equal(t, a.Points, b.Points)
	assert.Equal(t, a.Fields["radial"], b.Fields["radial"])
	assert.NotEqual(t, a.Fields["braid"], b.Fields["braid"])
	assert.NotEqual(t, a.Version(), b.Version())
}

func TestDataset_SelectAndWithField(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	src := &Dataset{
		Name:   "m",
		Points: []Point{{X: 0}, {X: 1}, {X: 2}},
		Fields: map[string][]float64{"f": {10, 20, 30}, "g": {1, 2, 3}},
	}

	// --- Act ---
	picked := src.Select("threshold", []int{0, 2})
	tagged, err := picked.WithField("contour", "iso", []float64{0.5, 0.5})

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []Point{{X: 0}, {X: 2}}, picked.Points)
	assert.Equal(t, []float64{10, 30}, picked.Fields["f"])
	assert.Equal(t, []float64{1, 3}, picked.Fields["g"])
	assert.Equal(t, []string{"f", "g", "iso"}, tagged.FieldNames())
	assert.Equal(t, "m>threshold>contour", tagged.Lineage())
	assert.Len(t, src.Trail, 0, "source must not be modified")
	assert.Len(t, src.Fields, 2)
}

func TestDataset_Errors(t *testing.T) {
	t.Parallel()

	d := &Dataset{Name: "m", Points: []Point{{}}, Fields: map[string][]float64{"f": {1}}}

	_, err := d.Field("nope")
	assert.EqualError(t, err, `dataset "m" has no field "nope" (have: f)`)

	_, err = d.WithField("s", "g", []float64{1, 2})
	assert.EqualError(t, err, `field "g" has 2 values for 1 points`)

	_, err = Input(nil)
	assert.EqualError(t, err, "expected one input dataset, got 0")

	_, err = Input([]any{"text"})
	assert.EqualError(t, err, "expected a mesh dataset, got string")

	got, err := Input([]any{d})
	require.NoError(t, err)
	assert.Same(t, d, got)
}
