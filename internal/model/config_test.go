package model

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func writeSchemaFile(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "input_schema.json")
	ok, err := newTestSchema().Save(path)
	require.NoError(t, err)
	require.True(t, ok)
	return path
}

func TestNewConfig_AttachesExistingSchema(t *testing.T) {
	path := writeSchemaFile(t, t.TempDir())
	c, err := NewConfig("name", "desc", path)
	require.NoError(t, err)
	require.Equal(t, "name", c.Name)
	require.Equal(t, path, c.SchemaPath)
	require.NotNil(t, c.Schema())

	missing, err := NewConfig("name", "desc", "schema_path")
	require.NoError(t, err)
	require.Nil(t, missing.Schema())
	missing.GenerateItems()
	require.Empty(t, missing.Items)
}

func TestConfig_GenerateItemsReplaces(t *testing.T) {
	c := &Config{Name: "name", Desc: "desc", SchemaPath: "schema_path"}
	s := newTestSchema()
	s.Items[0].Default = "zero"
	c.AttachSchema(s)

	c.GenerateItems()
	require.Len(t, c.Items, 3)
	for i, ci := range c.Items {
		require.Equal(t, s.Items[i].Default, ci.Value)
		require.Equal(t, s.Items[i].Name, ci.Name)
	}

	c.Items[0].Value = "edited"
	c.Items = append(c.Items, ConfigItem{SchemaItem: SchemaItem{Name: "extra"}})
	c.GenerateItems()
	require.Len(t, c.Items, 3)
	require.Equal(t, "zero", c.Items[0].Value)
}

func TestConfig_ItemsDoNotAliasSchema(t *testing.T) {
	c := &Config{Name: "n", Desc: "d"}
	s := newTestSchema()
	c.AttachSchema(s)
	c.GenerateItems()
	c.Items[0].Desc = "changed"
	require.Equal(t, "desc0", s.Items[0].Desc)
}

func TestConfig_ValidateOwnFieldsOnly(t *testing.T) {
	c := &Config{Name: "name", Desc: "desc"}
	c.AttachSchema(newTestSchema())
	c.GenerateItems()
	c.Items[0].Value = json.Number("12")

	require.True(t, c.Validate(), "item values are not checked by Validate")
	require.Empty(t, c.Errors())

	itemErrs := c.ValidateItems()
	require.Len(t, itemErrs, 1)
	require.Equal(t, "value", itemErrs[0].Field)

	c.Name = ""
	c.Desc = "\t"
	require.False(t, c.Validate())
	require.Len(t, c.Errors(), 2)
	require.Equal(t, EntityConfig, c.Errors()[0].Entity)
}

func TestConfig_ValidateItemsFlagsUnknownItem(t *testing.T) {
	c := &Config{Name: "n", Desc: "d"}
	c.AttachSchema(newTestSchema())
	c.Items = []ConfigItem{{SchemaItem: SchemaItem{Name: "ghost", Type: TypeString}, Value: "x"}}
	errs := c.ValidateItems()
	require.Len(t, errs, 1)
	require.Equal(t, "name", errs[0].Field)
}

func TestConfig_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeSchemaFile(t, dir)
	c, err := NewConfig("name", "desc", schemaPath)
	require.NoError(t, err)
	c.GenerateItems()

	out := filepath.Join(dir, "config.json")
	ok, err := c.Save(out)
	require.NoError(t, err)
	require.True(t, ok)

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Equal(t, schemaPath, doc["schema_path"])
	require.NotContains(t, doc, "errors")
	require.NotContains(t, doc, "schema")
	item := doc["items"].([]any)[0].(map[string]any)
	for _, k := range []string{"name", "desc", "group", "default", "type", "options", "value"} {
		require.Contains(t, item, k)
	}

	loaded, err := LoadConfig(out)
	require.NoError(t, err)
	require.NotNil(t, loaded.Schema())
	if diff := cmp.Diff(c.ItemRows(), loaded.ItemRows()); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
	require.True(t, c.Equal(loaded))
}

func TestConfig_SaveRejectsInvalid(t *testing.T) {
	c := &Config{Name: "bad name", Desc: "desc"}
	out := filepath.Join(t.TempDir(), "config.json")
	ok, err := c.Save(out)
	require.NoError(t, err)
	require.False(t, ok)
	require.NoFileExists(t, out)
	require.True(t, HasField(c.Errors(), "name"))
}

func TestConfig_CopyAndEqual(t *testing.T) {
	c := &Config{Name: "n", Desc: "d", SchemaPath: "p"}
	c.AttachSchema(newTestSchema())
	c.GenerateItems()

	cp := c.Copy()
	require.True(t, c.Equal(cp))

	cp.Items[1].Value = "changed"
	require.False(t, c.Equal(cp), "config equality is structural")
	require.Equal(t, "", c.Items[1].Value)

	cp = c.Copy()
	cp.Schema().Groups[0].Desc = "other"
	require.False(t, c.Equal(cp))
	require.Equal(t, "desc0", c.Schema().Groups[0].Desc)
}

func TestConfig_UpdateValues(t *testing.T) {
	c := &Config{Name: "n", Desc: "d"}
	c.AttachSchema(newTestSchema())
	c.GenerateItems()

	changed := c.UpdateValues([]Row{
		{"name": "name0", "value": "a"},
		{"name": "name1", "value": ""},
		{"name": "unknown", "value": "z"},
		{"name": "name2"},
	})
	require.Equal(t, 1, changed)
	v, _ := c.Item("name0")
	require.Equal(t, "a", v.Value)
}

func TestConfig_SortByGroupThenName(t *testing.T) {
	c := &Config{Items: []ConfigItem{
		{SchemaItem: SchemaItem{Name: "b", Group: "g2"}},
		{SchemaItem: SchemaItem{Name: "z", Group: "g1"}},
		{SchemaItem: SchemaItem{Name: "a", Group: "g2"}},
		{SchemaItem: SchemaItem{Name: "c", Group: "g1"}},
	}}
	c.SortByGroupThenName()
	got := make([]string, len(c.Items))
	for i, ci := range c.Items {
		got[i] = ci.Group + "/" + ci.Name
	}
	require.Equal(t, []string{"g1/c", "g1/z", "g2/a", "g2/b"}, got)
}
