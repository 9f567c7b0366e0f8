package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/kvfluent/client-go/pkg/behavior"
)

// Document is the parsed, still-unresolved shape of a behaviors/system
// config document: behaviors and their patches in the exact order they
// appeared in the source text, since document order is load-bearing for
// the "equal specificity, last write wins" resolution rule (spec.md §4.3,
// §8 testable property).
type Document struct {
	Behaviors []BehaviorDoc
	System    SystemDoc
}

// BehaviorDoc is one "behaviors:" entry.
type BehaviorDoc struct {
	Name    string
	Parent  string // empty means "inherits from DEFAULT"
	Patches []PatchDoc
}

// PatchDoc is one selector block within a behavior, in source order.
type PatchDoc struct {
	Selector string
	Fields   map[string]interface{}
}

// SystemDoc holds the three named system blocks, each projected onto a
// fixed system.* selector on DEFAULT by Apply.
type SystemDoc struct {
	Connections    map[string]interface{}
	CircuitBreaker map[string]interface{}
	Refresh        map[string]interface{}
}

// fieldKind classifies how a document-supplied scalar must be decoded.
type fieldKind int

const (
	kindString fieldKind = iota
	kindInt
	kindBool
	kindDuration
)

var fieldKinds = map[string]fieldKind{
	behavior.FieldAttemptTimeout:    kindDuration,
	behavior.FieldTotalTimeout:      kindDuration,
	behavior.FieldConnectTimeout:    kindDuration,
	behavior.FieldPostFailTimeout:   kindDuration,
	behavior.FieldMaxCallAttempts:   kindInt,
	behavior.FieldReplicaOrder:      kindString,
	behavior.FieldSendKey:           kindBool,
	behavior.FieldCompress:          kindBool,
	behavior.FieldDurableDelete:     kindBool,
	behavior.FieldCommitLevel:       kindString,
	behavior.FieldReadConsistencyAP: kindString,
	behavior.FieldReadConsistencyCP: kindString,
	behavior.FieldTouchTTLPercent:   kindInt,

	behavior.FieldBatchConcurrency:       kindInt,
	behavior.FieldBatchAllowInlineRecord: kindBool,
	behavior.FieldBatchAllowInlineSSD:    kindBool,
	behavior.FieldQueryQueueSize:         kindInt,

	behavior.FieldMinConnsPerNode:   kindInt,
	behavior.FieldMaxConnsPerNode:   kindInt,
	behavior.FieldMaxSocketIdle:     kindDuration,
	behavior.FieldErrorWindowTicks:  kindInt,
	behavior.FieldMaxErrorsInWindow: kindInt,
	behavior.FieldTendInterval:      kindDuration,
}

// ParseDocument parses a behaviors/system YAML document, preserving
// behavior and patch order via yaml.Node mapping traversal rather than
// unmarshaling straight into Go maps (which would discard key order).
func ParseDocument(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("config: invalid yaml: %w", err)
	}
	if len(root.Content) == 0 {
		return &Document{}, nil
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("config: document root must be a mapping")
	}

	doc := &Document{}
	for i := 0; i < len(top.Content); i += 2 {
		key, val := top.Content[i], top.Content[i+1]
		switch key.Value {
		case "behaviors":
			behaviors, err := parseBehaviors(val)
			if err != nil {
				return nil, err
			}
			doc.Behaviors = behaviors
		case "system":
			sys, err := parseSystem(val)
			if err != nil {
				return nil, err
			}
			doc.System = sys
		default:
			return nil, fmt.Errorf("config: unknown top-level key %q", key.Value)
		}
	}
	return doc, nil
}

func parseBehaviors(node *yaml.Node) ([]BehaviorDoc, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("config: \"behaviors\" must be a mapping")
	}
	var out []BehaviorDoc
	for i := 0; i < len(node.Content); i += 2 {
		name, val := node.Content[i], node.Content[i+1]
		if val.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("config: behavior %q must be a mapping", name.Value)
		}
		b := BehaviorDoc{Name: name.Value}
		for j := 0; j < len(val.Content); j += 2 {
			fieldKey, fieldVal := val.Content[j], val.Content[j+1]
			switch fieldKey.Value {
			case "parent":
				b.Parent = fieldVal.Value
			case "patches":
				patches, err := parsePatches(fieldVal)
				if err != nil {
					return nil, fmt.Errorf("config: behavior %q: %w", name.Value, err)
				}
				b.Patches = patches
			default:
				return nil, fmt.Errorf("config: behavior %q: unknown key %q", name.Value, fieldKey.Value)
			}
		}
		out = append(out, b)
	}
	return out, nil
}

func parsePatches(node *yaml.Node) ([]PatchDoc, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("\"patches\" must be a mapping")
	}
	var out []PatchDoc
	for i := 0; i < len(node.Content); i += 2 {
		selector, fields := node.Content[i], node.Content[i+1]
		decoded, err := decodeFields(fields)
		if err != nil {
			return nil, fmt.Errorf("selector %q: %w", selector.Value, err)
		}
		out = append(out, PatchDoc{Selector: selector.Value, Fields: decoded})
	}
	return out, nil
}

func parseSystem(node *yaml.Node) (SystemDoc, error) {
	var sys SystemDoc
	if node.Kind != yaml.MappingNode {
		return sys, fmt.Errorf("config: \"system\" must be a mapping")
	}
	for i := 0; i < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		decoded, err := decodeFields(val)
		if err != nil {
			return sys, fmt.Errorf("config: system.%s: %w", key.Value, err)
		}
		switch key.Value {
		case "connections":
			sys.Connections = decoded
		case "circuitBreaker":
			sys.CircuitBreaker = decoded
		case "refresh":
			sys.Refresh = decoded
		default:
			return sys, fmt.Errorf("config: unknown system key %q", key.Value)
		}
	}
	return sys, nil
}

func decodeFields(node *yaml.Node) (map[string]interface{}, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected a mapping of fields")
	}
	out := make(map[string]interface{}, len(node.Content)/2)
	for i := 0; i < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		decoded, err := decodeFieldValue(key.Value, val)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key.Value, err)
		}
		out[key.Value] = decoded
	}
	return out, nil
}

func decodeFieldValue(key string, node *yaml.Node) (interface{}, error) {
	kind, ok := fieldKinds[key]
	if !ok {
		return nil, fmt.Errorf("unknown field %q", key)
	}
	switch kind {
	case kindDuration:
		return ParseDuration(node.Value)
	case kindInt:
		var v int
		if err := node.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	case kindBool:
		var v bool
		if err := node.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return node.Value, nil
	}
}
