package registry

import (
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// validate checks a descriptor for internal consistency before it is
// accepted. All problems are reported together.
func (d *Descriptor) validate() error {
	var errs []string

	if d.Type == "" {
		errs = append(errs, "type name must not be empty")
	}
	if d.Invoke == nil {
		errs = append(errs, "Invoke must not be nil")
	}
	switch d.Role {
	case Transform:
		if !d.OutputPort {
			errs = append(errs, "transform types must declare an output port")
		}
	case Extract, Render:
		if d.OutputPort {
			errs = append(errs, fmt.Sprintf("%s types must not declare an output port", d.Role))
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown role %s", d.Role))
	}
	if len(d.InputPorts) == 0 {
		errs = append(errs, "at least one input port is required")
	}

	seen := make(map[string]struct{}, len(d.Params))
	for _, p := range d.Params {
		if p.Name == "" {
			errs = append(errs, "parameter with empty name")
			continue
		}
		if _, dup := seen[p.Name]; dup {
			errs = append(errs, fmt.Sprintf("parameter '%s' declared twice", p.Name))
		}
		seen[p.Name] = struct{}{}

		if p.Type == cty.NilType {
			errs = append(errs, fmt.Sprintf("parameter '%s' has no type", p.Name))
			continue
		}
		if p.Default == cty.NilVal {
			continue
		}
		if p.Required {
			errs = append(errs, fmt.Sprintf("parameter '%s' is required and also has a default", p.Name))
		}
		if _, err := convert.Convert(p.Default, p.Type); err != nil {
			errs = append(errs, fmt.Sprintf("parameter '%s': default does not conform to %s: %v", p.Name, p.Type.FriendlyName(), err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid descriptor %q:\n- %s", d.Type, strings.Join(errs, "\n- "))
	}
	return nil
}
