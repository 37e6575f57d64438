package nodeid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddress_String(t *testing.T) {
	testCases := []struct {
		name        string
		addr        Address
		expectedStr string
	}{
		{
			name:        "simple path",
			addr:        New("extract", "e1"),
			expectedStr: "extract.e1",
		},
		{
			name:        "step id",
			addr:        Step("pl1", 3),
			expectedStr: "pipeline.pl1[3]",
		},
		{
			name:        "location with indexed action",
			addr:        New("actions").At(2).Child("add_scenes").Child("s1"),
			expectedStr: "actions[2].add_scenes.s1",
		},
		{
			name:        "zero address",
			addr:        Address{},
			expectedStr: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expectedStr, tc.addr.String())
		})
	}
}

func TestAddress_ChildDoesNotAlias(t *testing.T) {
	base := New("actions").At(0)
	a := base.Child("a")
	b := base.Child("b")

	assert.Equal(t, "actions[0].a", a.String())
	assert.Equal(t, "actions[0].b", b.String())
	assert.Equal(t, "actions[0]", base.String())
}

func TestAddress_RoundTrip(t *testing.T) {
	testIDs := []string{
		"source.mesh",
		"pipeline.pl1[0]",
		"scene.s1.p_1",
		"actions[12].add-pipelines",
	}

	for _, id := range testIDs {
		t.Run(id, func(t *testing.T) {
			addr, err := Parse(id)
			require.NoError(t, err)
			assert.Equal(t, id, addr.String())

			again, err := Parse(addr.String())
			require.NoError(t, err)
			assert.True(t, addr.Equal(again))
		})
	}
}

func TestParse_Errors(t *testing.T) {
	testCases := map[string]string{
		"empty":         "",
		"empty segment": "a..b",
		"bad index":     "a[x]",
		"bad chars":     "a.b c",
		"dash only":     "a.-",
	}
	for name, raw := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(raw)
			assert.Error(t, err)
		})
	}
}

func TestAddress_Equal(t *testing.T) {
	assert.True(t, Step("pl1", 0).Equal(Step("pl1", 0)))
	assert.False(t, Step("pl1", 0).Equal(Step("pl1", 1)))
	assert.False(t, Step("pl1", 0).Equal(Extract("pl1")))
	assert.True(t, Address{}.Equal(Address{}))
}
