// Package socketio provides the "socketio" extract: it connects to a
// socket.io server, emits a summary of the dataset as one event and,
// optionally, waits for an acknowledgement event.
package socketio

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/zclconf/go-cty/cty"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/vk/insituflow/internal/ctxlog"
	"github.com/vk/insituflow/internal/registry"
	"github.com/vk/insituflow/modules/mesh"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Delivery is the result of one emit.
type Delivery struct {
	Event string
	// Response is the first argument of the acknowledgement event, if one
	// was awaited.
	Response any
}

// FieldRange is the min/max of one field in a summary.
type FieldRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Summary is the event payload.
type Summary struct {
	Name    string                `json:"name"`
	Cycle   int                   `json:"cycle"`
	Lineage string                `json:"lineage"`
	Points  int                   `json:"points"`
	Fields  map[string]FieldRange `json:"fields"`
}

// Summarize builds the event payload for a dataset.
func Summarize(d *mesh.Dataset) Summary {
	s := Summary{
		Name:    d.Name,
		Cycle:   d.Cycle,
		Lineage: d.Lineage(),
		Points:  d.Len(),
		Fields:  make(map[string]FieldRange, len(d.Fields)),
	}
	for _, name := range d.FieldNames() {
		lo, hi, _ := d.Range(name)
		s.Fields[name] = FieldRange{Min: lo, Max: hi}
	}
	return s
}

type opResult struct {
	value any
	err   error
}

// Emit is the invoke handler.
func Emit(ctx context.Context, inputs []any, p registry.Params) (any, error) {
	in, err := mesh.Input(inputs)
	if err != nil {
		return nil, err
	}
	rawURL, namespace := p.String("url"), p.String("namespace")
	event, ackEvent := p.String("event"), p.String("ack_event")
	logger := ctxlog.FromContext(ctx).With("extract", "socketio", "url", rawURL, "event", event)

	timeout, err := time.ParseDuration(p.String("timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid timeout: %w", err)
	}
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("url %q must be absolute", rawURL)
	}

	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if p.Bool("insecure_skip_verify") {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)
	defer func() {
		logger.Debug("Disconnecting socket client")
		io.Disconnect()
	}()

	var isConnected atomic.Bool
	done := make(chan opResult, 1)
	finish := func(res opResult) {
		select {
		case done <- res:
		default:
		}
	}

	payload := Summarize(in)
	io.Once(types.EventName("connect"), func(...any) {
		isConnected.Store(true)
		logger.Debug("Connected, emitting summary", "sid", io.Id())
		io.Emit(event, payload)
		if ackEvent == "" {
			finish(opResult{})
		}
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("socket.io connection failed")
		if len(errs) > 0 {
			if cause, ok := errs[0].(error); ok {
				err = fmt.Errorf("socket.io connection failed: %w", cause)
			}
		}
		finish(opResult{err: err})
	})
	if ackEvent != "" {
		io.Once(types.EventName(ackEvent), func(data ...any) {
			var response any
			if len(data) > 0 {
				response = data[0]
			}
			finish(opResult{value: response})
		})
	}

	io.Connect()

	select {
	case <-opCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if isConnected.Load() {
			return nil, fmt.Errorf("timed out after connecting while waiting for event '%s'", ackEvent)
		}
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		logger.Info("Emitted dataset summary.", "lineage", payload.Lineage, "points", payload.Points)
		return &Delivery{Event: event, Response: res.value}, nil
	}
}

// Register registers the filter type with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.MustRegister(&registry.Descriptor{
		Type:       "socketio",
		Role:       registry.Extract,
		InputPorts: []string{"in"},
		Params: []registry.ParamSpec{
			{Name: "url", Type: cty.String, Required: true},
			{Name: "namespace", Type: cty.String, Default: cty.StringVal("/")},
			{Name: "event", Type: cty.String, Default: cty.StringVal("dataset")},
			{Name: "ack_event", Type: cty.String},
			{Name: "timeout", Type: cty.String, Default: cty.StringVal("10s")},
			{Name: "insecure_skip_verify", Type: cty.Bool, Default: cty.False},
		},
		Invoke: Emit,
	})
}
