// Package export renders a config's assigned values as a YAML document that
// applications can read directly.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"configtree/internal/model"
)

// Error lists the items that could not be exported.
type Error struct {
	Errors []model.ValidationError
}

func (e *Error) Error() string {
	return fmt.Sprintf("export: %d invalid item(s): %s", len(e.Errors), strings.Join(model.Messages(e.Errors), "; "))
}

// YAML renders c as
//
//	name: <config name>
//	desc: <config desc>
//	schema: <schema path>
//	values:
//	  <ungrouped item>: <value>
//	  <group>:
//	    <item>: <value>
//
// Values are coerced to their item type. Groups and items keep config order.
// Items whose keys would repeat within a mapping are rejected.
func YAML(c *model.Config) ([]byte, error) {
	if errs := c.ValidateItems(); len(errs) > 0 {
		return nil, &Error{Errors: errs}
	}
	if errs := keyCollisions(c.Items); len(errs) > 0 {
		return nil, &Error{Errors: errs}
	}

	values := mapping()
	groups := map[string]*yaml.Node{}
	for _, ci := range c.Items {
		v, err := model.Coerce(ci.Value, ci.Type)
		if err != nil {
			return nil, fmt.Errorf("export item %s: %w", ci.Name, err)
		}
		var node yaml.Node
		if err := node.Encode(v); err != nil {
			return nil, fmt.Errorf("export item %s: %w", ci.Name, err)
		}
		if ci.Group == "" {
			appendPair(values, ci.Name, &node)
			continue
		}
		g, ok := groups[ci.Group]
		if !ok {
			g = mapping()
			groups[ci.Group] = g
			appendPair(values, ci.Group, g)
		}
		appendPair(g, ci.Name, &node)
	}

	root := mapping()
	appendPair(root, "name", scalar(c.Name))
	appendPair(root, "desc", scalar(c.Desc))
	appendPair(root, "schema", scalar(c.SchemaPath))
	appendPair(root, "values", values)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// keyCollisions reports items that share a key with a group or another item
// in the same mapping.
func keyCollisions(items []model.ConfigItem) []model.ValidationError {
	groups := map[string]bool{}
	for _, ci := range items {
		if ci.Group != "" {
			groups[ci.Group] = true
		}
	}
	var errs []model.ValidationError
	seen := map[[2]string]bool{}
	for _, ci := range items {
		if ci.Group == "" && groups[ci.Name] {
			errs = append(errs, model.NewValidationError(
				fmt.Sprintf("Item %s clashes with group %s in the exported values", ci.Name, ci.Name),
				model.EntityItem, ci.Name, "name"))
			continue
		}
		key := [2]string{ci.Group, ci.Name}
		if seen[key] {
			errs = append(errs, model.NewValidationError(
				fmt.Sprintf("Item %s appears more than once in group %q", ci.Name, ci.Group),
				model.EntityItem, ci.Name, "name"))
			continue
		}
		seen[key] = true
	}
	return errs
}

func mapping() *yaml.Node { return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"} }

func scalar(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func appendPair(m *yaml.Node, key string, v *yaml.Node) {
	m.Content = append(m.Content, scalar(key), v)
}
