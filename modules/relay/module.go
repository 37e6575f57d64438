// Package relay provides the "relay" extract: it serializes a dataset as
// JSON and writes it to a file, uploads it with a PUT to a pre-signed URL,
// or both.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/insituflow/internal/ctxlog"
	"github.com/vk/insituflow/internal/registry"
	"github.com/vk/insituflow/modules/mesh"
)

// httpClient is shared by every relay without its own client so uploads
// reuse TCP connections.
var httpClient = &http.Client{}

// Module implements the registry.Module interface for this package.
type Module struct {
	// Dir is the base directory for relative paths.
	Dir string
	// Client overrides the shared HTTP client.
	Client *http.Client
}

// Receipt describes what one relay invocation delivered.
type Receipt struct {
	Path   string
	Bytes  int
	Status string
}

type document struct {
	Name    string               `json:"name"`
	Cycle   int                  `json:"cycle"`
	Lineage string               `json:"lineage"`
	Points  [][3]float64         `json:"points"`
	Fields  map[string][]float64 `json:"fields"`
}

func encode(d *mesh.Dataset, fields []string, indent bool) ([]byte, error) {
	doc := document{
		Name:    d.Name,
		Cycle:   d.Cycle,
		Lineage: d.Lineage(),
		Points:  make([][3]float64, 0, d.Len()),
		Fields:  make(map[string][]float64),
	}
	for _, q := range d.Points {
		doc.Points = append(doc.Points, [3]float64{q.X, q.Y, q.Z})
	}
	if len(fields) == 0 {
		fields = d.FieldNames()
	}
	for _, name := range fields {
		values, err := d.Field(name)
		if err != nil {
			return nil, err
		}
		doc.Fields[name] = values
	}
	if indent {
		return json.MarshalIndent(doc, "", "  ")
	}
	return json.Marshal(doc)
}

// Invoke is the invoke handler.
func (m *Module) Invoke(ctx context.Context, inputs []any, p registry.Params) (any, error) {
	in, err := mesh.Input(inputs)
	if err != nil {
		return nil, err
	}
	path, uploadURL := p.String("path"), p.String("upload_url")
	if path == "" && uploadURL == "" {
		return nil, errors.New("relay requires path or upload_url")
	}

	var fields []string
	if p.Has("fields") {
		if err := p.Decode("fields", &fields); err != nil {
			return nil, err
		}
	}
	body, err := encode(in, fields, p.Bool("indent"))
	if err != nil {
		return nil, fmt.Errorf("failed to encode dataset: %w", err)
	}

	receipt := &Receipt{Bytes: len(body)}
	if path != "" {
		if !filepath.IsAbs(path) && m.Dir != "" {
			path = filepath.Join(m.Dir, path)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory for '%s': %w", path, err)
		}
		if err := os.WriteFile(path, body, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write '%s': %w", path, err)
		}
		receipt.Path = path
	}
	if uploadURL != "" {
		status, err := m.upload(ctx, uploadURL, body)
		if err != nil {
			return nil, err
		}
		receipt.Status = status
	}

	ctxlog.FromContext(ctx).Info("Relayed dataset.", "lineage", in.Lineage(), "path", receipt.Path, "bytes", receipt.Bytes, "status", receipt.Status)
	return receipt, nil
}

func (m *Module) upload(ctx context.Context, url string, body []byte) (string, error) {
	logger := ctxlog.FromContext(ctx).With("action", "upload")

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.ContentLength = int64(len(body))

	logger.Debug("Uploading dataset", "size", len(body))

	client := m.Client
	if client == nil {
		client = httpClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upload failed with status: %s", resp.Status)
	}
	return resp.Status, nil
}

// Register registers the filter type with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.MustRegister(&registry.Descriptor{
		Type:       "relay",
		Role:       registry.Extract,
		InputPorts: []string{"in"},
		Params: []registry.ParamSpec{
			{Name: "path", Type: cty.String},
			{Name: "upload_url", Type: cty.String},
			{Name: "fields", Type: cty.List(cty.String)},
			{Name: "indent", Type: cty.Bool, Default: cty.False},
		},
		Invoke: m.Invoke,
	})
}
