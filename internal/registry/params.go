package registry

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/vk/insituflow/internal/params"
)

// ParamIssue is one problem found while resolving a directive's parameters.
// Param is empty for problems with the parameter block as a whole.
type ParamIssue struct {
	Param   string
	Message string
}

// VerifyParams resolves the given parameter tree against the descriptor's
// contract: declared defaults are applied, required parameters are checked,
// values are converted to their declared types and unknown names are
// rejected unless the descriptor allows extras. Every issue is collected.
func (d *Descriptor) VerifyParams(given params.Value) (Params, []ParamIssue) {
	var issues []ParamIssue
	attrs := make(map[string]cty.Value, len(d.Params))

	var entries []params.Entry
	switch given.Kind() {
	case params.KindNull:
	case params.KindMap:
		entries, _ = given.Entries()
	default:
		issues = append(issues, ParamIssue{Message: fmt.Sprintf("parameters must be a mapping, got %s", given.Kind())})
	}

	seen := make(map[string]struct{}, len(entries))
	failed := make(map[string]struct{})
	for _, e := range entries {
		if _, dup := seen[e.Key]; dup {
			issues = append(issues, ParamIssue{Param: e.Key, Message: fmt.Sprintf("duplicate parameter '%s'", e.Key)})
			continue
		}
		seen[e.Key] = struct{}{}
		spec, known := d.Param(e.Key)
		if !known {
			if d.AllowExtraParams {
				attrs[e.Key] = e.Value.Cty()
				continue
			}
			issues = append(issues, ParamIssue{Param: e.Key, Message: fmt.Sprintf("unknown parameter '%s' for filter type '%s'", e.Key, d.Type)})
			continue
		}
		if e.Value.IsNull() {
			// Treated as absent below.
			continue
		}
		if spec.Type == cty.DynamicPseudoType {
			attrs[e.Key] = e.Value.Cty()
			continue
		}
		converted, err := convert.Convert(e.Value.Cty(), spec.Type)
		if err != nil {
			issues = append(issues, ParamIssue{Param: e.Key, Message: fmt.Sprintf("parameter '%s' must be %s: %v", e.Key, spec.Type.FriendlyName(), err)})
			failed[e.Key] = struct{}{}
			continue
		}
		attrs[e.Key] = converted
	}

	for _, spec := range d.Params {
		if v, ok := attrs[spec.Name]; ok && !v.IsNull() {
			continue
		}
		if _, bad := failed[spec.Name]; bad {
			continue
		}
		switch {
		case spec.Required:
			issues = append(issues, ParamIssue{Param: spec.Name, Message: fmt.Sprintf("missing required %s parameter '%s'", spec.Type.FriendlyName(), spec.Name)})
		case spec.Default != cty.NilVal:
			def, err := convert.Convert(spec.Default, spec.Type)
			if err != nil {
				def = spec.Default
			}
			attrs[spec.Name] = def
		default:
			attrs[spec.Name] = cty.NullVal(spec.Type)
		}
	}

	return NewParams(attrs), issues
}

// Params is the resolved, type-checked parameter object handed to Invoke.
type Params struct {
	obj cty.Value
}

// NewParams wraps a set of resolved attributes.
func NewParams(attrs map[string]cty.Value) Params {
	if len(attrs) == 0 {
		return Params{obj: cty.EmptyObjectVal}
	}
	return Params{obj: cty.ObjectVal(attrs)}
}

// Value returns the parameters as one cty object.
func (p Params) Value() cty.Value {
	if p.obj == cty.NilVal {
		return cty.EmptyObjectVal
	}
	return p.obj
}

// Get returns the named parameter, or a dynamic null when absent.
func (p Params) Get(name string) cty.Value {
	obj := p.Value()
	if !obj.Type().HasAttribute(name) {
		return cty.NullVal(cty.DynamicPseudoType)
	}
	return obj.GetAttr(name)
}

// Has reports whether the named parameter is present and not null.
func (p Params) Has(name string) bool {
	return !p.Get(name).IsNull()
}

// Decode converts the named parameter into target using gocty.
func (p Params) Decode(name string, target any) error {
	v := p.Get(name)
	if v.IsNull() {
		return fmt.Errorf("parameter '%s' is not set", name)
	}
	if err := gocty.FromCtyValue(v, target); err != nil {
		return fmt.Errorf("parameter '%s': %w", name, err)
	}
	return nil
}

// String returns a string parameter, or "" when it is unset or not a string.
func (p Params) String(name string) string {
	var s string
	if err := p.Decode(name, &s); err != nil {
		return ""
	}
	return s
}

// Float returns a number parameter, or 0 when it is unset or not a number.
func (p Params) Float(name string) float64 {
	var f float64
	if err := p.Decode(name, &f); err != nil {
		return 0
	}
	return f
}

// Floats returns a list-of-number parameter.
func (p Params) Floats(name string) []float64 {
	var fs []float64
	if err := p.Decode(name, &fs); err != nil {
		return nil
	}
	return fs
}

// Bool returns a bool parameter, or false when it is unset.
func (p Params) Bool(name string) bool {
	var b bool
	if err := p.Decode(name, &b); err != nil {
		return false
	}
	return b
}
