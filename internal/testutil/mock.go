package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/insituflow/internal/registry"
)

// ErrMockFailure is returned by the failing mock filters.
var ErrMockFailure = errors.New("mock filter failure")

// MockModule registers a set of counted mock filter types:
//
//	contour      transform  field, iso_values      keeps values equal to an iso value
//	threshold    transform  field, min_value, max_value
//	scale        transform  factor                 multiplies every value
//	slow         transform  delay_ms               sleeps, then passes through
//	fail         transform                         always fails
//	relay        extract    path                   records its input
//	fail_extract extract                           always fails
//	pseudocolor  render     field, image_name, color_table, extras allowed
type MockModule struct {
	calls    sync.Map // type name -> *atomic.Int64
	mu       sync.Mutex
	received map[string][]any
	inFlight atomic.Int64
	peak     atomic.Int64
}

// NewMockModule creates a module with zeroed counters.
func NewMockModule() *MockModule {
	return &MockModule{received: make(map[string][]any)}
}

// Calls returns how many times the given type was invoked.
func (m *MockModule) Calls(typeName string) int {
	c, ok := m.calls.Load(typeName)
	if !ok {
		return 0
	}
	return int(c.(*atomic.Int64).Load())
}

// TotalCalls returns the number of invocations across all types.
func (m *MockModule) TotalCalls() int {
	total := 0
	m.calls.Range(func(_, v any) bool {
		total += int(v.(*atomic.Int64).Load())
		return true
	})
	return total
}

// Received returns the inputs seen by a sink type, in invocation order.
func (m *MockModule) Received(typeName string) []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]any(nil), m.received[typeName]...)
}

// PeakConcurrency is the largest number of simultaneous invocations seen.
func (m *MockModule) PeakConcurrency() int {
	return int(m.peak.Load())
}

func (m *MockModule) count(typeName string) {
	c, _ := m.calls.LoadOrStore(typeName, new(atomic.Int64))
	c.(*atomic.Int64).Add(1)
}

func (m *MockModule) enter() func() {
	now := m.inFlight.Add(1)
	for {
		peak := m.peak.Load()
		if now <= peak || m.peak.CompareAndSwap(peak, now) {
			break
		}
	}
	return func() { m.inFlight.Add(-1) }
}

func (m *MockModule) record(typeName string, input any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.received[typeName] = append(m.received[typeName], input)
}

func input(inputs []any) (*Dataset, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("expected one input, got %d", len(inputs))
	}
	d, ok := inputs[0].(*Dataset)
	if !ok {
		return nil, fmt.Errorf("expected *testutil.Dataset, got %T", inputs[0])
	}
	return d, nil
}

// transform wraps a value mapping into a counted InvokeFunc.
func (m *MockModule) transform(typeName string, fn func(d *Dataset, p registry.Params) ([]float64, error)) registry.InvokeFunc {
	return func(ctx context.Context, inputs []any, p registry.Params) (any, error) {
		m.count(typeName)
		defer m.enter()()
		d, err := input(inputs)
		if err != nil {
			return nil, err
		}
		values, err := fn(d, p)
		if err != nil {
			return nil, err
		}
		return d.derive(typeName, values), nil
	}
}

func (m *MockModule) sink(typeName string, fail bool) registry.InvokeFunc {
	return func(ctx context.Context, inputs []any, p registry.Params) (any, error) {
		m.count(typeName)
		defer m.enter()()
		if fail {
			return nil, ErrMockFailure
		}
		d, err := input(inputs)
		if err != nil {
			return nil, err
		}
		m.record(typeName, d)
		return fmt.Sprintf("%s:%s", typeName, d.Lineage()), nil
	}
}

// Register implements registry.Module.
func (m *MockModule) Register(r *registry.Registry) {
	in := []string{"in"}

	r.MustRegister(&registry.Descriptor{
		Type: "contour", Role: registry.Transform, InputPorts: in, OutputPort: true,
		Params: []registry.ParamSpec{
			{Name: "field", Type: cty.String, Required: true},
			{Name: "iso_values", Type: cty.List(cty.Number), Required: true},
		},
		Invoke: m.transform("contour", func(d *Dataset, p registry.Params) ([]float64, error) {
			var out []float64
			for _, v := range d.Values {
				for _, iso := range p.Floats("iso_values") {
					if v == iso {
						out = append(out, v)
						break
					}
				}
			}
			return out, nil
		}),
	})

	r.MustRegister(&registry.Descriptor{
		Type: "threshold", Role: registry.Transform, InputPorts: in, OutputPort: true,
		Params: []registry.ParamSpec{
			{Name: "field", Type: cty.String, Required: true},
			{Name: "min_value", Type: cty.Number, Default: cty.NumberIntVal(0)},
			{Name: "max_value", Type: cty.Number, Default: cty.NumberIntVal(1)},
		},
		Invoke: m.transform("threshold", func(d *Dataset, p registry.Params) ([]float64, error) {
			var out []float64
			for _, v := range d.Values {
				if v >= p.Float("min_value") && v <= p.Float("max_value") {
					out = append(out, v)
				}
			}
			return out, nil
		}),
	})

	r.MustRegister(&registry.Descriptor{
		Type: "scale", Role: registry.Transform, InputPorts: in, OutputPort: true,
		Params: []registry.ParamSpec{{Name: "factor", Type: cty.Number, Default: cty.NumberIntVal(2)}},
		Invoke: m.transform("scale", func(d *Dataset, p registry.Params) ([]float64, error) {
			out := make([]float64, 0, len(d.Values))
			for _, v := range d.Values {
				out = append(out, v*p.Float("factor"))
			}
			return out, nil
		}),
	})

	r.MustRegister(&registry.Descriptor{
		Type: "slow", Role: registry.Transform, InputPorts: in, OutputPort: true,
		Params: []registry.ParamSpec{{Name: "delay_ms", Type: cty.Number, Default: cty.NumberIntVal(20)}},
		Invoke: m.transform("slow", func(d *Dataset, p registry.Params) ([]float64, error) {
			time.Sleep(time.Duration(p.Float("delay_ms")) * time.Millisecond)
			return d.Values, nil
		}),
	})

	r.MustRegister(&registry.Descriptor{
		Type: "fail", Role: registry.Transform, InputPorts: in, OutputPort: true,
		Invoke: m.transform("fail", func(*Dataset, registry.Params) ([]float64, error) {
			return nil, ErrMockFailure
		}),
	})

	r.MustRegister(&registry.Descriptor{
		Type: "relay", Role: registry.Extract, InputPorts: in,
		Params: []registry.ParamSpec{{Name: "path", Type: cty.String, Default: cty.StringVal("out")}},
		Invoke: m.sink("relay", false),
	})

	r.MustRegister(&registry.Descriptor{
		Type: "fail_extract", Role: registry.Extract, InputPorts: in,
		Invoke: m.sink("fail_extract", true),
	})

	r.MustRegister(&registry.Descriptor{
		Type: "pseudocolor", Role: registry.Render, InputPorts: in,
		Params: []registry.ParamSpec{
			{Name: "field", Type: cty.String, Required: true},
			{Name: "image_name", Type: cty.String},
			{Name: "color_table", Type: cty.DynamicPseudoType},
		},
		AllowExtraParams: true,
		Invoke:           m.sink("pseudocolor", false),
	})
}

// NewRegistry returns a sealed registry holding the mock module and any
// extra modules.
func NewRegistry(mock *MockModule, extra ...registry.Module) *registry.Registry {
	r := registry.New()
	registry.RegisterModules(r, append([]registry.Module{mock}, extra...)...)
	return r
}

// ModuleFunc adapts a function to registry.Module.
type ModuleFunc func(r *registry.Registry)

// Register implements registry.Module.
func (f ModuleFunc) Register(r *registry.Registry) { f(r) }
