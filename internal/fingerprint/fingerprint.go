package fingerprint

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Sum is a 64-bit content fingerprint.
type Sum uint64

func (s Sum) String() string {
	return fmt.Sprintf("%016x", uint64(s))
}

// Versioned is implemented by published datasets that can name their
// content. Two handles with the same name and version are interchangeable.
// An empty version means the content is not versioned.
type Versioned interface {
	Version() string
}

// field separates hashed parts so ("ab","c") and ("a","bc") differ.
const field = 0x1f

func write(d *xxhash.Digest, parts ...string) {
	for _, p := range parts {
		_, _ = d.WriteString(p)
		_, _ = d.Write([]byte{field})
	}
}

// Source fingerprints a published dataset.
func Source(name, version string) Sum {
	d := xxhash.New()
	write(d, "source", name, version)
	return Sum(d.Sum64())
}

// Step fingerprints a filter invocation over the given input.
func Step(typeName string, params cty.Value, upstream Sum) (Sum, error) {
	d := xxhash.New()
	write(d, "step", typeName, upstream.String())
	if params == cty.NilVal {
		params = cty.EmptyObjectVal
	}
	raw, err := ctyjson.Marshal(params, params.Type())
	if err != nil {
		return 0, fmt.Errorf("encode %s params: %w", typeName, err)
	}
	_, _ = d.Write(raw)
	return Sum(d.Sum64()), nil
}
