package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestValue_Accessors(t *testing.T) {
	t.Parallel()

	tree := Map(
		Entry{Key: "field", Value: String("braid")},
		Entry{Key: "iso_values", Value: List(Number(0.2), Number(0.4))},
		Entry{Key: "enabled", Value: Bool(true)},
	)

	field, ok := tree.Lookup("field")
	require.True(t, ok)
	s, err := field.Str()
	require.NoError(t, err)
	assert.Equal(t, "braid", s)

	iso, _ := tree.Lookup("iso_values")
	items, err := iso.Items()
	require.NoError(t, err)
	require.Len(t, items, 2)
	f, err := items[1].Float()
	require.NoError(t, err)
	assert.Equal(t, 0.4, f)

	_, ok = tree.Lookup("missing")
	assert.False(t, ok)
	_, ok = String("x").Lookup("field")
	assert.False(t, ok)
}

func TestValue_TypeMismatchIsAnError(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		call func() error
		want Kind
		got  Kind
	}{
		{"string from number", func() error { _, err := Number(1).Str(); return err }, KindString, KindNumber},
		{"number from string", func() error { _, err := String("1").Float(); return err }, KindNumber, KindString},
		{"bool from null", func() error { _, err := Null().Boolean(); return err }, KindBool, KindNull},
		{"entries from list", func() error { _, err := List().Entries(); return err }, KindMap, KindList},
		{"items from map", func() error { _, err := Map().Items(); return err }, KindList, KindMap},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.call()
			var typeErr *TypeError
			require.ErrorAs(t, err, &typeErr)
			assert.Equal(t, tc.want, typeErr.Want)
			assert.Equal(t, tc.got, typeErr.Got)
		})
	}
}

func TestValue_EntriesKeepOrderAndDuplicates(t *testing.T) {
	t.Parallel()

	tree := Map(
		Entry{Key: "f2", Value: String("b")},
		Entry{Key: "f1", Value: String("a")},
		Entry{Key: "f2", Value: String("c")},
	)
	entries, err := tree.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"f2", "f1", "f2"}, []string{entries[0].Key, entries[1].Key, entries[2].Key})

	first, _ := tree.Lookup("f2")
	s, _ := first.Str()
	assert.Equal(t, "b", s)
}

func TestFromAny(t *testing.T) {
	t.Parallel()

	v, err := FromAny(map[string]any{
		"b": []any{1, "x", nil},
		"a": map[string]any{"c": true},
	})
	require.NoError(t, err)

	entries, err := v.Entries()
	require.NoError(t, err)
	assert.Equal(t, "a", entries[0].Key)
	assert.Equal(t, "b", entries[1].Key)
	assert.Equal(t, map[string]any{
		"a": map[string]any{"c": true},
		"b": []any{1.0, "x", nil},
	}, v.Interface())

	_, err = FromAny(struct{}{})
	assert.Error(t, err)
}

func TestCtyRoundTrip(t *testing.T) {
	t.Parallel()

	orig := Map(
		Entry{Key: "field", Value: String("braid")},
		Entry{Key: "iso_values", Value: List(Number(0.25), Number(0.5))},
		Entry{Key: "nested", Value: Map(Entry{Key: "on", Value: Bool(false)})},
		Entry{Key: "none", Value: Null()},
		Entry{Key: "empty", Value: List()},
	)

	ctyVal := orig.Cty()
	assert.True(t, ctyVal.Type().IsObjectType())
	assert.Equal(t, cty.StringVal("braid"), ctyVal.GetAttr("field"))

	back, err := FromCty(ctyVal)
	require.NoError(t, err)
	assert.Equal(t, orig.Interface(), back.Interface())
}

func TestFromCty_Unknown(t *testing.T) {
	t.Parallel()

	_, err := FromCty(cty.UnknownVal(cty.String))
	assert.Error(t, err)
}
