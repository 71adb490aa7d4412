package model

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"configtree/internal/validators"
)

// Placeholders used when the editor appends a new row.
const (
	NewGroupName   = "<new group name>"
	NewItemName    = "<new item name>"
	NewDescription = "<add description here>"
)

// ItemType determines how an item's default and a config's value are checked.
type ItemType string

const (
	TypeString  ItemType = "String"
	TypeBoolean ItemType = "Boolean"
	TypeInteger ItemType = "Integer"
	TypeFloat   ItemType = "Float"
)

// ItemTypes lists every ItemType in display order.
var ItemTypes = []ItemType{TypeString, TypeBoolean, TypeInteger, TypeFloat}

// ParseItemType maps the persisted spelling to an ItemType.
func ParseItemType(s string) (ItemType, error) {
	t := ItemType(s)
	if !lo.Contains(ItemTypes, t) {
		return "", fmt.Errorf("unknown item type %q", s)
	}
	return t, nil
}

// UnmarshalText rejects unknown type names when decoding documents.
func (t *ItemType) UnmarshalText(b []byte) error {
	parsed, err := ParseItemType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// SchemaGroup clusters related items to make large configs easier to edit.
type SchemaGroup struct {
	Name  string `json:"name"`
	Desc  string `json:"desc"`
	Order int    `json:"order"`

	errors []ValidationError
}

// NewSchemaGroup returns the placeholder group appended by the group editor.
func NewSchemaGroup() SchemaGroup {
	return SchemaGroup{Name: NewGroupName, Desc: NewDescription}
}

// Validate resets and recomputes the group's errors.
func (g *SchemaGroup) Validate() bool {
	g.errors = nil
	if !validators.IsIdentifier(g.Name) {
		g.fail(fmt.Sprintf("Group %s invalid, must not be blank and only contain a-z, A-Z, 0-9 and _", g.Name), "name")
	}
	if !validators.IsNonBlank(g.Desc) {
		g.fail(fmt.Sprintf("Group %s invalid description, must not be blank", g.Name), "desc")
	}
	if g.Order < 0 {
		g.fail(fmt.Sprintf("Group %s invalid order, must be a non-negative Integer", g.Name), "order")
	}
	return len(g.errors) == 0
}

func (g *SchemaGroup) fail(msg, field string) {
	g.errors = append(g.errors, NewValidationError(msg, EntityGroup, g.Name, field))
}

// Errors returns the errors from the last Validate.
func (g *SchemaGroup) Errors() []ValidationError { return g.errors }

// SchemaItem is one configurable variable.
type SchemaItem struct {
	Name    string   `json:"name"`
	Desc    string   `json:"desc"`
	Group   string   `json:"group"`
	Default Value    `json:"default"`
	Type    ItemType `json:"type"`
	Options string   `json:"options"`

	errors []ValidationError
}

// NewSchemaItem returns the placeholder item appended by the item editor.
func NewSchemaItem() SchemaItem {
	return SchemaItem{Name: NewItemName, Desc: NewDescription, Type: TypeString}
}

// OptionTokens splits Options on whitespace.
func (it *SchemaItem) OptionTokens() []string {
	return strings.Fields(it.Options)
}

// Validate resets and recomputes the item's errors. parent supplies the
// groups the item may reference.
func (it *SchemaItem) Validate(parent *Schema) bool {
	it.errors = nil
	if !validators.IsIdentifier(it.Name) {
		it.fail(fmt.Sprintf("Item %s invalid, must not be blank and only contain a-z, A-Z, 0-9 and _", it.Name), "name")
	}
	if !validators.IsNonBlank(it.Desc) {
		it.fail(fmt.Sprintf("Item %s invalid description, must not be blank", it.Name), "desc")
	}
	it.checkType("default", it.Default)
	for _, tok := range it.OptionTokens() {
		it.checkType("options", tok)
	}
	if parent == nil || !parent.HasGroup(it.Group) {
		var names []string
		if parent != nil {
			names = parent.GroupNames()
		}
		it.fail(fmt.Sprintf("Item %s invalid group %s, must be an existing group [%s]",
			it.Name, it.Group, strings.Join(names, ", ")), "group")
	}
	return len(it.errors) == 0
}

func (it *SchemaItem) checkType(field string, v Value) {
	if Conforms(v, it.Type) {
		return
	}
	it.fail(fmt.Sprintf("Item %s column '%s': value '%s' is not a %s", it.Name, field, ValueText(v), it.Type), field)
}

func (it *SchemaItem) fail(msg, field string) {
	it.errors = append(it.errors, NewValidationError(msg, EntityItem, it.Name, field))
}

// Errors returns the errors from the last Validate.
func (it *SchemaItem) Errors() []ValidationError { return it.errors }

func (it SchemaItem) clone() SchemaItem {
	out := it
	out.Default = cloneValue(it.Default)
	out.errors = append([]ValidationError(nil), it.errors...)
	return out
}

// Schema is the definition document: named, versioned, grouped items.
type Schema struct {
	Name    string        `json:"name"`
	Desc    string        `json:"desc"`
	Version string        `json:"version"`
	Groups  []SchemaGroup `json:"groups"`
	Items   []SchemaItem  `json:"items"`

	errors []ValidationError
}

// NewSchema returns an empty schema.
func NewSchema(name, desc, version string) *Schema {
	return &Schema{Name: name, Desc: desc, Version: version, Groups: []SchemaGroup{}, Items: []SchemaItem{}}
}

// Validate checks the schema's own fields, then every item and group.
//
// Only the schema's own name, desc and version gate the result. Item and
// group errors are recorded on those entities and surface through Errors.
func (s *Schema) Validate() bool {
	s.errors = nil
	if !validators.IsIdentifier(s.Name) {
		s.fail(fmt.Sprintf("Schema name %s invalid, must not be blank and only contain a-z, A-Z, 0-9 and _", s.Name), "name")
	}
	if !validators.IsNonBlank(s.Desc) {
		s.fail(fmt.Sprintf("Schema %s invalid description, must not be blank", s.Name), "desc")
	}
	if !validators.IsVersion(s.Version) {
		s.fail(fmt.Sprintf("Schema version number '%s' must be formatted as x.y.z", s.Version), "version")
	}
	for i := range s.Items {
		s.Items[i].Validate(s)
	}
	for i := range s.Groups {
		s.Groups[i].Validate()
	}
	return len(s.errors) == 0
}

// ValidateAll is Validate that also fails on any item or group error.
func (s *Schema) ValidateAll() bool {
	own := s.Validate()
	return own && len(s.Errors()) == 0
}

func (s *Schema) fail(msg, field string) {
	s.errors = append(s.errors, NewValidationError(msg, EntitySchema, s.Name, field))
}

// Errors merges the schema's own errors with those of its items, then groups.
func (s *Schema) Errors() []ValidationError {
	all := append([]ValidationError(nil), s.errors...)
	for i := range s.Items {
		all = append(all, s.Items[i].errors...)
	}
	for i := range s.Groups {
		all = append(all, s.Groups[i].errors...)
	}
	return all
}

// Save validates the schema and, only when that passes, writes it as indented
// JSON to path. A false result with a nil error means validation failed and
// nothing was written.
func (s *Schema) Save(path string) (bool, error) {
	if !s.Validate() {
		return false, nil
	}
	if err := writeDocument(path, s.normalized()); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Schema) normalized() *Schema {
	out := *s
	if out.Groups == nil {
		out.Groups = []SchemaGroup{}
	}
	if out.Items == nil {
		out.Items = []SchemaItem{}
	}
	return &out
}

// Equal compares name, desc and version only. Group and item edits mark the
// editor dirty on their own.
func (s *Schema) Equal(other *Schema) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.Name == other.Name && s.Desc == other.Desc && s.Version == other.Version
}

// Copy returns a deep clone sharing no mutable state with s.
func (s *Schema) Copy() *Schema {
	if s == nil {
		return nil
	}
	out := &Schema{
		Name:    s.Name,
		Desc:    s.Desc,
		Version: s.Version,
		Groups:  make([]SchemaGroup, len(s.Groups)),
		Items:   make([]SchemaItem, len(s.Items)),
		errors:  append([]ValidationError(nil), s.errors...),
	}
	for i, g := range s.Groups {
		g.errors = append([]ValidationError(nil), g.errors...)
		out.Groups[i] = g
	}
	for i, it := range s.Items {
		out.Items[i] = it.clone()
	}
	return out
}

// GroupNames lists group names in declaration order.
func (s *Schema) GroupNames() []string {
	return lo.Map(s.Groups, func(g SchemaGroup, _ int) string { return g.Name })
}

// HasGroup reports whether some group is called name.
func (s *Schema) HasGroup(name string) bool {
	return lo.ContainsBy(s.Groups, func(g SchemaGroup) bool { return g.Name == name })
}

// Item returns the first item called name.
func (s *Schema) Item(name string) (SchemaItem, bool) {
	return lo.Find(s.Items, func(it SchemaItem) bool { return it.Name == name })
}

// AddGroup appends a placeholder group at the end and returns it.
func (s *Schema) AddGroup() SchemaGroup {
	g := NewSchemaGroup()
	s.Groups = append(s.Groups, g)
	return g
}

// DeleteGroups removes, for each name, the first group with that name.
// It returns how many groups were removed.
func (s *Schema) DeleteGroups(names ...string) int {
	removed := 0
	for _, name := range names {
		_, idx, ok := lo.FindIndexOf(s.Groups, func(g SchemaGroup) bool { return g.Name == name })
		if !ok {
			continue
		}
		s.Groups = append(s.Groups[:idx], s.Groups[idx+1:]...)
		removed++
	}
	return removed
}

// ReplaceGroups rebuilds the group list from edited grid rows. The schema is
// left untouched when any row is malformed.
func (s *Schema) ReplaceGroups(rows []Row) error {
	groups := make([]SchemaGroup, 0, len(rows))
	for i, r := range rows {
		g, err := GroupFromRow(r)
		if err != nil {
			return fmt.Errorf("group row %d: %w", i, err)
		}
		groups = append(groups, g)
	}
	s.Groups = groups
	return nil
}

// AddItem appends a placeholder item at the end and returns it.
func (s *Schema) AddItem() SchemaItem {
	it := NewSchemaItem()
	s.Items = append(s.Items, it)
	return it
}

// DeleteItems removes, for each name, the first item with that name.
func (s *Schema) DeleteItems(names ...string) int {
	removed := 0
	for _, name := range names {
		_, idx, ok := lo.FindIndexOf(s.Items, func(it SchemaItem) bool { return it.Name == name })
		if !ok {
			continue
		}
		s.Items = append(s.Items[:idx], s.Items[idx+1:]...)
		removed++
	}
	return removed
}

// ReplaceItems rebuilds the item list from edited grid rows.
func (s *Schema) ReplaceItems(rows []Row) error {
	items := make([]SchemaItem, 0, len(rows))
	for i, r := range rows {
		it, err := ItemFromRow(r)
		if err != nil {
			return fmt.Errorf("item row %d: %w", i, err)
		}
		items = append(items, it)
	}
	s.Items = items
	return nil
}
