package match

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/svintsoff78/krepko/internal/ir"
)

// YAML tags recognised as pattern constructors.
const (
	TagAny             = "!any"
	TagString          = "!string"
	TagNumber          = "!number"
	TagBoolean         = "!boolean"
	TagArray           = "!array"
	TagObject          = "!object"
	TagArrayOf         = "!arrayOf"
	TagArrayContaining = "!arrayContaining"
)

var wildcardTags = map[string]Wildcard{
	TagAny:     WildcardAny,
	TagString:  WildcardString,
	TagNumber:  WildcardNumber,
	TagBoolean: WildcardBoolean,
	TagArray:   WildcardArray,
	TagObject:  WildcardObject,
}

// DecodeError reports an invalid pattern in a flow document.
type DecodeError struct {
	Line    int
	Column  int
	Message string
}

func (e *DecodeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Message)
	}
	return e.Message
}

func yamlError(n *yaml.Node, format string, args ...any) error {
	return &DecodeError{Line: n.Line, Column: n.Column, Message: fmt.Sprintf(format, args...)}
}

// FromYAML decodes a pattern from a YAML node.
//
// Untagged values are literals: scalars match exactly, mappings are partial
// objects in document order, and sequences are positional prefixes. The
// wildcard tags (!any, !string, !number, !boolean, !array, !object) ignore
// their scalar content. !arrayOf takes a one-element sequence, a mapping
// (the item object pattern) or a wildcard name; !arrayContaining takes a
// sequence of item patterns.
//
// In flow collections a tag must be followed by a space before ',', ']' or
// '}': yaml.v3 reads "[!string]" as the tag "!string]". Write "[!string ]",
// "{id: !number }" or use block style.
func FromYAML(n *yaml.Node) (Pattern, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Pattern{}, yamlError(n, "empty document")
		}
		return FromYAML(n.Content[0])
	case yaml.AliasNode:
		if n.Alias == nil {
			return Pattern{}, yamlError(n, "unresolved alias")
		}
		return FromYAML(n.Alias)
	}

	tag := n.ShortTag()
	if w, ok := wildcardTags[tag]; ok {
		if n.Kind != yaml.ScalarNode {
			return Pattern{}, yamlError(n, "%s takes no content", tag)
		}
		return Wild(w), nil
	}

	switch tag {
	case TagArrayOf:
		return arrayOfFromYAML(n)
	case TagArrayContaining:
		if n.Kind != yaml.SequenceNode {
			return Pattern{}, yamlError(n, "%s requires a sequence of patterns", tag)
		}
		items, err := sequenceFromYAML(n)
		if err != nil {
			return Pattern{}, err
		}
		return ArrayContaining(items...), nil
	}

	if strings.HasPrefix(tag, "!") && !strings.HasPrefix(tag, "!!") {
		return Pattern{}, yamlError(n, "unknown pattern tag %s", tag)
	}

	switch n.Kind {
	case yaml.MappingNode:
		return objectFromYAML(n)
	case yaml.SequenceNode:
		items, err := sequenceFromYAML(n)
		if err != nil {
			return Pattern{}, err
		}
		return Items(items...), nil
	case yaml.ScalarNode:
		v, err := ScalarFromYAML(n)
		if err != nil {
			return Pattern{}, err
		}
		return Exact(v), nil
	default:
		return Pattern{}, yamlError(n, "unsupported node kind %d", n.Kind)
	}
}

func arrayOfFromYAML(n *yaml.Node) (Pattern, error) {
	switch n.Kind {
	case yaml.SequenceNode:
		if len(n.Content) != 1 {
			return Pattern{}, yamlError(n, "%s sequence must hold exactly one item pattern, got %d", TagArrayOf, len(n.Content))
		}
		item, err := FromYAML(n.Content[0])
		if err != nil {
			return Pattern{}, err
		}
		return ArrayOf(item), nil
	case yaml.MappingNode:
		item, err := objectFromYAML(n)
		if err != nil {
			return Pattern{}, err
		}
		return ArrayOf(item), nil
	case yaml.ScalarNode:
		w, ok := ParseWildcard(n.Value)
		if !ok {
			return Pattern{}, yamlError(n, "%s scalar must name a wildcard (any, string, number, boolean, array, object), got %q", TagArrayOf, n.Value)
		}
		return ArrayOf(Wild(w)), nil
	default:
		return Pattern{}, yamlError(n, "unsupported %s content", TagArrayOf)
	}
}

func objectFromYAML(n *yaml.Node) (Pattern, error) {
	fields := make([]Field, 0, len(n.Content)/2)
	seen := make(map[string]bool, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		keyNode, valueNode := n.Content[i], n.Content[i+1]
		if keyNode.Kind != yaml.ScalarNode {
			return Pattern{}, yamlError(keyNode, "object keys must be scalars")
		}
		if seen[keyNode.Value] {
			return Pattern{}, yamlError(keyNode, "duplicate key %q", keyNode.Value)
		}
		seen[keyNode.Value] = true

		p, err := FromYAML(valueNode)
		if err != nil {
			return Pattern{}, err
		}
		fields = append(fields, F(keyNode.Value, p))
	}
	return Object(fields...), nil
}

func sequenceFromYAML(n *yaml.Node) ([]Pattern, error) {
	items := make([]Pattern, 0, len(n.Content))
	for _, child := range n.Content {
		p, err := FromYAML(child)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, nil
}

// ScalarFromYAML converts a plain YAML scalar into a value.
func ScalarFromYAML(n *yaml.Node) (ir.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return ir.Null{}, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, yamlError(n, "invalid boolean %q", n.Value)
		}
		return ir.Bool(b), nil
	case "!!int", "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, yamlError(n, "invalid number %q", n.Value)
		}
		return ir.Number(f), nil
	case "!!str", "!!timestamp":
		return ir.String(n.Value), nil
	default:
		return nil, yamlError(n, "unsupported scalar tag %s", n.ShortTag())
	}
}
