package actionfile

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/vk/insituflow/internal/params"
)

// DecodeYAML parses a YAML or JSON document into a configuration tree.
// Mapping order and duplicate keys are kept as written.
func DecodeYAML(data []byte) (params.Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return params.Value{}, err
	}
	return fromNode(&doc)
}

func fromNode(n *yaml.Node) (params.Value, error) {
	switch n.Kind {
	case 0:
		return params.Null(), nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return params.Null(), nil
		}
		return fromNode(n.Content[0])
	case yaml.AliasNode:
		return fromNode(n.Alias)
	case yaml.SequenceNode:
		items := make([]params.Value, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := fromNode(c)
			if err != nil {
				return params.Value{}, err
			}
			items = append(items, v)
		}
		return params.List(items...), nil
	case yaml.MappingNode:
		entries := make([]params.Entry, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.Kind != yaml.ScalarNode {
				return params.Value{}, fmt.Errorf("line %d: mapping keys must be scalars", k.Line)
			}
			val, err := fromNode(v)
			if err != nil {
				return params.Value{}, err
			}
			entries = append(entries, params.Entry{Key: k.Value, Value: val})
		}
		return params.Map(entries...), nil
	case yaml.ScalarNode:
		return fromScalar(n)
	}
	return params.Value{}, fmt.Errorf("line %d: unsupported YAML node kind %d", n.Line, n.Kind)
}

func fromScalar(n *yaml.Node) (params.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return params.Null(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return params.Value{}, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return params.Bool(b), nil
	case "!!int", "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return params.Value{}, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return params.Number(f), nil
	}
	return params.String(n.Value), nil
}
