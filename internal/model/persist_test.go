package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

const legacySchemaArray = `[
  {"name": "first", "desc": "kept", "version": "1.2.3",
   "groups": [{"name": "g", "desc": "group", "order": 1}],
   "items": [{"name": "port", "desc": "listen port", "group": "g", "default": 8080, "type": "Integer", "options": ""},
             {"name": "ratio", "desc": "ratio", "group": "g", "default": 1.0, "type": "Float", "options": "0.5 1.5"}]},
  {"name": "second", "desc": "dropped", "version": "0.0.1"}
]`

func schemaRows(s *Schema) [][]Row {
	return [][]Row{{s.ToRow()}, s.GroupRows(), s.ItemRows()}
}

func TestDecodeSchema_LegacyArrayKeepsFirst(t *testing.T) {
	s, err := DecodeSchema([]byte(legacySchemaArray))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Name != "first" || len(s.Items) != 2 || s.Groups[0].Order != 1 {
		t.Fatalf("unexpected schema: %+v", s)
	}
	if !s.Validate() || len(s.Errors()) != 0 {
		t.Fatalf("literal spelling must survive decoding: %v", s.Errors())
	}
	if got := ValueText(s.Items[1].Default); got != "1.0" {
		t.Fatalf("float default spelled %q", got)
	}
}

func TestDecodeSchema_Rejects(t *testing.T) {
	if _, err := DecodeSchema([]byte(`[]`)); !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("want ErrEmptyDocument, got %v", err)
	}
	if _, err := DecodeSchema([]byte(`{"name": 1`)); !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("want ErrInvalidDocument for truncated JSON, got %v", err)
	}
	if _, err := DecodeConfig([]byte(`{"items": "none"}`)); !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("want ErrInvalidDocument for wrong shape, got %v", err)
	}
	if _, err := DecodeSchema([]byte(`{"name":`)); err == nil {
		t.Fatalf("want error for truncated JSON")
	}
	if _, err := DecodeSchema([]byte(`{"name":"n","items":[{"name":"i","type":"Decimal"}]}`)); err == nil {
		t.Fatalf("want error for unknown item type")
	}
	for _, doc := range []string{
		`{"name":"n","items":[{"name":"i","default":1}]}`,
		`{"name":"n","items":[{"name":"i","type":""}]}`,
		`null`,
		`[null]`,
		`"schema"`,
		`42`,
		`{"name":"n","groups":[{"name":"g","desc":"d","order":"1"}]}`,
		`{"name":"n","groups":[{"name":"g","desc":"d","order":1.5}]}`,
	} {
		if _, err := DecodeSchema([]byte(doc)); !errors.Is(err, ErrInvalidDocument) {
			t.Fatalf("schema %s: want ErrInvalidDocument, got %v", doc, err)
		}
	}
	for _, doc := range []string{
		`{"name":"c","items":[{"name":"i","value":1}]}`,
		`null`,
	} {
		if _, err := DecodeConfig([]byte(doc)); !errors.Is(err, ErrInvalidDocument) {
			t.Fatalf("config %s: want ErrInvalidDocument, got %v", doc, err)
		}
	}
}

func TestLoadSchema_NotFound(t *testing.T) {
	_, err := LoadSchema(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestSchema_SaveWritesIndentedJSONWithoutErrors(t *testing.T) {
	s := newTestSchema()
	s.Groups = nil
	s.Items = nil
	fn := filepath.Join(t.TempDir(), "s.json")
	if ok, err := s.Save(fn); !ok || err != nil {
		t.Fatalf("save: ok=%v err=%v", ok, err)
	}
	raw, err := os.ReadFile(fn)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := doc["errors"]; ok {
		t.Fatalf("errors must not be persisted")
	}
	if _, ok := doc["groups"].([]any); !ok {
		t.Fatalf("groups must be an array, got %T", doc["groups"])
	}
	if raw[1] != '\n' || string(raw[2:6]) != "    " {
		t.Fatalf("expected 4-space indentation: %q", raw[:8])
	}
}

func TestLoadConfig_ResolvesSchemaDir(t *testing.T) {
	dir := t.TempDir()
	writeSchemaFile(t, dir)
	c := &Config{Name: "cfg", Desc: "d", SchemaPath: "input_schema.json"}
	fn := filepath.Join(dir, "cfg.json")
	if ok, err := c.Save(fn); !ok || err != nil {
		t.Fatalf("save: ok=%v err=%v", ok, err)
	}
	loaded, err := LoadConfig(fn, WithSchemaDir(dir))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Schema() == nil || loaded.Schema().Name != "name" {
		t.Fatalf("schema not attached")
	}
}

func TestSchema_RoundTripProperty(t *testing.T) {
	dir := t.TempDir()
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("load(save(s)) equals s", prop.ForAll(
		func(name, group, item, def string, order uint8) bool {
			s := NewSchema(name, "a description", "1.0.0")
			s.Groups = []SchemaGroup{{Name: group, Desc: "g", Order: int(order)}}
			s.Items = []SchemaItem{{Name: item, Desc: "i", Group: group, Default: def, Type: TypeString, Options: def}}
			fn := filepath.Join(dir, name+".json")
			if ok, err := s.Save(fn); !ok || err != nil {
				return false
			}
			loaded, err := LoadSchema(fn)
			if err != nil {
				return false
			}
			return cmp.Equal(schemaRows(s), schemaRows(loaded))
		},
		gen.Identifier(),
		gen.Identifier(),
		gen.Identifier(),
		gen.AlphaString(),
		gen.UInt8(),
	))

	properties.TestingRun(t)
}

func TestSchema_RoundTripKeepsTypedDefaultSpelling(t *testing.T) {
	dir := t.TempDir()
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("numeric and boolean defaults survive load(save(s)) as written", prop.ForAll(
		func(whole int64, frac uint8, flag bool, numericFlag bool) bool {
			integer := json.Number(strconv.FormatInt(whole, 10))
			float := json.Number(fmt.Sprintf("%d.%d", whole, frac))
			var boolean Value = strconv.FormatBool(flag)
			if numericFlag {
				boolean = json.Number(map[bool]string{true: "1", false: "0"}[flag])
			}
			s := NewSchema("typed", "typed defaults", "1.0.0")
			s.Groups = []SchemaGroup{{Name: "g", Desc: "g"}}
			s.Items = []SchemaItem{
				{Name: "count", Desc: "i", Group: "g", Default: integer, Type: TypeInteger},
				{Name: "ratio", Desc: "f", Group: "g", Default: float, Type: TypeFloat},
				{Name: "enabled", Desc: "b", Group: "g", Default: boolean, Type: TypeBoolean},
			}
			fn := filepath.Join(dir, "typed.json")
			if ok, err := s.Save(fn); !ok || err != nil {
				return false
			}
			loaded, err := LoadSchema(fn)
			if err != nil || !loaded.ValidateAll() {
				return false
			}
			return ValueText(loaded.Items[0].Default) == integer.String() &&
				ValueText(loaded.Items[1].Default) == float.String() &&
				ValueText(loaded.Items[2].Default) == ValueText(boolean) &&
				cmp.Equal(schemaRows(s), schemaRows(loaded))
		},
		gen.Int64Range(-1_000_000, 1_000_000),
		gen.UInt8(),
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
