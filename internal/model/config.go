package model

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/samber/lo"

	"configtree/internal/validators"
)

// ConfigItem pairs a copy of the schema item definition with the value the
// operator assigned. The definition is keyed back to the schema by Name.
type ConfigItem struct {
	SchemaItem
	Value Value `json:"value"`

	errors []ValidationError
}

// NewConfigItem starts an item at the definition's default.
func NewConfigItem(def SchemaItem) ConfigItem {
	def = def.clone()
	def.errors = nil
	return ConfigItem{SchemaItem: def, Value: cloneValue(def.Default)}
}

// Validate checks the assigned value against the item type.
func (ci *ConfigItem) Validate() bool {
	ci.errors = nil
	if !Conforms(ci.Value, ci.Type) {
		ci.errors = append(ci.errors, NewValidationError(
			fmt.Sprintf("Item %s value '%s' is not a %s", ci.Name, ValueText(ci.Value), ci.Type),
			EntityItem, ci.Name, "value"))
	}
	return len(ci.errors) == 0
}

// Errors returns the errors from the last Validate.
func (ci *ConfigItem) Errors() []ValidationError { return ci.errors }

func (ci ConfigItem) clone() ConfigItem {
	return ConfigItem{
		SchemaItem: ci.SchemaItem.clone(),
		Value:      cloneValue(ci.Value),
		errors:     append([]ValidationError(nil), ci.errors...),
	}
}

// Config is a concrete set of values for the schema found at SchemaPath.
type Config struct {
	Name       string       `json:"name"`
	Desc       string       `json:"desc"`
	SchemaPath string       `json:"schema_path"`
	Items      []ConfigItem `json:"items"`

	schema *Schema
	errors []ValidationError
}

// NewConfig builds a config and attaches the schema at schemaPath when that
// file exists. A present but unreadable schema is an error.
func NewConfig(name, desc, schemaPath string) (*Config, error) {
	c := &Config{Name: name, Desc: desc, SchemaPath: schemaPath, Items: []ConfigItem{}}
	if err := c.loadSchema(schemaPath); err != nil {
		return nil, err
	}
	return c, nil
}

// Schema returns the attached schema, or nil.
func (c *Config) Schema() *Schema { return c.schema }

// AttachSchema sets the schema used by GenerateItems and ValidateItems.
func (c *Config) AttachSchema(s *Schema) { c.schema = s }

// GenerateItems replaces every item with one per schema item, valued at its
// default. Prior edits are discarded. It does nothing without a schema.
func (c *Config) GenerateItems() {
	if c.schema == nil {
		return
	}
	c.Items = lo.Map(c.schema.Items, func(it SchemaItem, _ int) ConfigItem { return NewConfigItem(it) })
}

// SortByGroupThenName orders items by (group, name).
func (c *Config) SortByGroupThenName() {
	sort.SliceStable(c.Items, func(i, j int) bool {
		a, b := c.Items[i], c.Items[j]
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		return a.Name < b.Name
	})
}

// Validate resets and recomputes the config's own errors. Items are not
// checked here; see ValidateItems.
func (c *Config) Validate() bool {
	c.errors = nil
	if !validators.IsIdentifier(c.Name) {
		c.fail(fmt.Sprintf("Config %s invalid, must not be blank and only contain a-z, A-Z, 0-9 and _", c.Name), "name")
	}
	if !validators.IsNonBlank(c.Desc) {
		c.fail(fmt.Sprintf("Config %s invalid description, must not be blank", c.Name), "desc")
	}
	return len(c.errors) == 0
}

func (c *Config) fail(msg, field string) {
	c.errors = append(c.errors, NewValidationError(msg, EntityConfig, c.Name, field))
}

// Errors returns the config's own errors. Item errors are reported by
// ValidateItems instead.
func (c *Config) Errors() []ValidationError {
	return append([]ValidationError(nil), c.errors...)
}

// ValidateItems checks every assigned value against its type and, when a
// schema is attached, that the item still exists in it.
func (c *Config) ValidateItems() []ValidationError {
	var all []ValidationError
	for i := range c.Items {
		ci := &c.Items[i]
		ci.Validate()
		if c.schema != nil {
			if _, ok := c.schema.Item(ci.Name); !ok {
				ci.errors = append(ci.errors, NewValidationError(
					fmt.Sprintf("Item %s is not defined by schema %s", ci.Name, c.schema.Name),
					EntityItem, ci.Name, "name"))
			}
		}
		all = append(all, ci.errors...)
	}
	return all
}

// Save validates the config and writes it as indented JSON only on success.
func (c *Config) Save(path string) (bool, error) {
	if !c.Validate() {
		return false, nil
	}
	out := *c
	if out.Items == nil {
		out.Items = []ConfigItem{}
	}
	if err := writeDocument(path, &out); err != nil {
		return false, err
	}
	return true, nil
}

// Copy returns a deep clone, including the attached schema.
func (c *Config) Copy() *Config {
	if c == nil {
		return nil
	}
	out := &Config{
		Name:       c.Name,
		Desc:       c.Desc,
		SchemaPath: c.SchemaPath,
		Items:      make([]ConfigItem, len(c.Items)),
		schema:     c.schema.Copy(),
		errors:     append([]ValidationError(nil), c.errors...),
	}
	for i, ci := range c.Items {
		out.Items[i] = ci.clone()
	}
	return out
}

// Equal is full structural equality over the persisted fields, the assigned
// values and the attached schema.
func (c *Config) Equal(other *Config) bool {
	if c == nil || other == nil {
		return c == other
	}
	if c.Name != other.Name || c.Desc != other.Desc || c.SchemaPath != other.SchemaPath {
		return false
	}
	if len(c.Items) != len(other.Items) {
		return false
	}
	for i := range c.Items {
		if !reflect.DeepEqual(c.Items[i].ToRow(), other.Items[i].ToRow()) {
			return false
		}
	}
	return sameSchemaContent(c.schema, other.schema)
}

func sameSchemaContent(a, b *Schema) bool {
	if a == nil || b == nil {
		return a == b
	}
	if !a.Equal(b) || len(a.Groups) != len(b.Groups) || len(a.Items) != len(b.Items) {
		return false
	}
	for i := range a.Groups {
		if !reflect.DeepEqual(a.Groups[i].ToRow(), b.Groups[i].ToRow()) {
			return false
		}
	}
	for i := range a.Items {
		if !reflect.DeepEqual(a.Items[i].ToRow(), b.Items[i].ToRow()) {
			return false
		}
	}
	return true
}

// Item returns a pointer to the first item called name.
func (c *Config) Item(name string) (*ConfigItem, bool) {
	_, idx, ok := lo.FindIndexOf(c.Items, func(ci ConfigItem) bool { return ci.Name == name })
	if !ok {
		return nil, false
	}
	return &c.Items[idx], true
}

// UpdateValues copies edited values from grid rows onto items matched by
// name. Only differing values are assigned; it returns how many changed.
func (c *Config) UpdateValues(rows []Row) int {
	changed := 0
	for _, r := range rows {
		name, _ := r["name"].(string)
		ci, ok := c.Item(name)
		if !ok {
			continue
		}
		v, present := r["value"]
		if !present || reflect.DeepEqual(ci.Value, v) {
			continue
		}
		ci.Value = v
		changed++
	}
	return changed
}
