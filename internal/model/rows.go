package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Row is the flat record an editing grid shows and sends back.
type Row map[string]any

// ErrInvalidRow is returned when a grid row cannot be turned back into an entity.
var ErrInvalidRow = errors.New("invalid row")

// ToRow flattens the schema header fields.
func (s *Schema) ToRow() Row {
	return Row{"name": s.Name, "desc": s.Desc, "version": s.Version}
}

// ToRow flattens the config header fields.
func (c *Config) ToRow() Row {
	return Row{"name": c.Name, "desc": c.Desc, "schema_path": c.SchemaPath}
}

// ToRow flattens a group.
func (g SchemaGroup) ToRow() Row {
	return Row{"name": g.Name, "desc": g.Desc, "order": g.Order}
}

// ToRow flattens an item.
func (it SchemaItem) ToRow() Row {
	return Row{
		"name":    it.Name,
		"desc":    it.Desc,
		"group":   it.Group,
		"default": it.Default,
		"type":    string(it.Type),
		"options": it.Options,
	}
}

// ToRow flattens a config item: the definition fields plus value.
func (ci ConfigItem) ToRow() Row {
	r := ci.SchemaItem.ToRow()
	r["value"] = ci.Value
	return r
}

// GroupRows flattens every group, in order.
func (s *Schema) GroupRows() []Row {
	rows := make([]Row, len(s.Groups))
	for i, g := range s.Groups {
		rows[i] = g.ToRow()
	}
	return rows
}

// ItemRows flattens every item, in order.
func (s *Schema) ItemRows() []Row {
	rows := make([]Row, len(s.Items))
	for i, it := range s.Items {
		rows[i] = it.ToRow()
	}
	return rows
}

// ItemRows flattens every config item, in order.
func (c *Config) ItemRows() []Row {
	rows := make([]Row, len(c.Items))
	for i, ci := range c.Items {
		rows[i] = ci.ToRow()
	}
	return rows
}

// GroupFromRow rebuilds a group from a grid row. Error state starts empty.
func GroupFromRow(r Row) (SchemaGroup, error) {
	order, err := rowInt(r, "order")
	if err != nil {
		return SchemaGroup{}, err
	}
	return SchemaGroup{Name: rowString(r, "name"), Desc: rowString(r, "desc"), Order: order}, nil
}

// ItemFromRow rebuilds an item from a grid row. Error state starts empty.
func ItemFromRow(r Row) (SchemaItem, error) {
	t := TypeString
	if raw := rowString(r, "type"); raw != "" {
		parsed, err := ParseItemType(raw)
		if err != nil {
			return SchemaItem{}, fmt.Errorf("%w: %v", ErrInvalidRow, err)
		}
		t = parsed
	}
	return SchemaItem{
		Name:    rowString(r, "name"),
		Desc:    rowString(r, "desc"),
		Group:   rowString(r, "group"),
		Default: r["default"],
		Type:    t,
		Options: rowString(r, "options"),
	}, nil
}

// ConfigItemFromRow rebuilds a config item from a grid row.
func ConfigItemFromRow(r Row) (ConfigItem, error) {
	def, err := ItemFromRow(r)
	if err != nil {
		return ConfigItem{}, err
	}
	return ConfigItem{SchemaItem: def, Value: r["value"]}, nil
}

func rowString(r Row, key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return ValueText(v)
	}
}

func rowInt(r Row, key string) (int, error) {
	switch v := r[key].(type) {
	case nil:
		return 0, nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%w: %s %v is not an Integer", ErrInvalidRow, key, v)
		}
		return int(v), nil
	case json.Number:
		n, err := strconv.Atoi(v.String())
		if err != nil {
			return 0, fmt.Errorf("%w: %s %q is not an Integer", ErrInvalidRow, key, v)
		}
		return n, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%w: %s %q is not an Integer", ErrInvalidRow, key, v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: %s has unsupported type %T", ErrInvalidRow, key, v)
	}
}
