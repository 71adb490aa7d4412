package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"configtree/internal/logx"
)

var modelLogger = logx.GetScope("model")

// ErrNotFound is returned when a document path does not exist.
var ErrNotFound = errors.New("document not found")

// ErrEmptyDocument is returned for a top-level JSON array with no elements.
var ErrEmptyDocument = errors.New("document array is empty")

// ErrInvalidDocument is returned when a document is not valid JSON or does
// not have the document shape.
var ErrInvalidDocument = errors.New("invalid document")

// LoadSchema reads the schema document at path.
func LoadSchema(path string) (*Schema, error) {
	data, err := readDocument(path)
	if err != nil {
		return nil, err
	}
	s, err := DecodeSchema(data)
	if err != nil {
		return nil, fmt.Errorf("decode schema %s: %w", path, err)
	}
	return s, nil
}

// DecodeSchema parses a schema document. A top-level array is accepted and
// only its first element is used.
func DecodeSchema(data []byte) (*Schema, error) {
	doc, err := firstDocument(data)
	if err != nil {
		return nil, err
	}
	s := &Schema{}
	if err := decodeDocument(doc, s); err != nil {
		return nil, err
	}
	for _, it := range s.Items {
		if err := requireType(it); err != nil {
			return nil, err
		}
	}
	if s.Groups == nil {
		s.Groups = []SchemaGroup{}
	}
	if s.Items == nil {
		s.Items = []SchemaItem{}
	}
	return s, nil
}

// LoadOption tunes LoadConfig.
type LoadOption func(*loadOptions)

type loadOptions struct {
	schemaDir string
	resolve   func(string) (string, error)
}

// WithSchemaDir resolves a relative schema_path against dir.
func WithSchemaDir(dir string) LoadOption {
	return func(o *loadOptions) { o.schemaDir = dir }
}

// WithSchemaResolver maps schema_path through resolve instead. When resolve
// fails the config loads without a schema.
func WithSchemaResolver(resolve func(string) (string, error)) LoadOption {
	return func(o *loadOptions) { o.resolve = resolve }
}

func (o loadOptions) schemaPath(path string) string {
	if o.resolve == nil || path == "" {
		return ResolvePath(o.schemaDir, path)
	}
	resolved, err := o.resolve(path)
	if err != nil {
		modelLogger.Warn("schema not attached", zap.String("schema_path", path), zap.Error(err))
		return ""
	}
	return resolved
}

// LoadConfig reads the config document at path, sorts its items by group then
// name, and attaches the referenced schema when that file exists.
func LoadConfig(path string, opts ...LoadOption) (*Config, error) {
	data, err := readDocument(path)
	if err != nil {
		return nil, err
	}
	c, err := DecodeConfig(data)
	if err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}
	if err := c.loadSchema(o.schemaPath(c.SchemaPath)); err != nil {
		return nil, err
	}
	return c, nil
}

// DecodeConfig parses a config document without attaching its schema.
func DecodeConfig(data []byte) (*Config, error) {
	doc, err := firstDocument(data)
	if err != nil {
		return nil, err
	}
	c := &Config{}
	if err := decodeDocument(doc, c); err != nil {
		return nil, err
	}
	for _, ci := range c.Items {
		if err := requireType(ci.SchemaItem); err != nil {
			return nil, err
		}
	}
	if c.Items == nil {
		c.Items = []ConfigItem{}
	}
	c.SortByGroupThenName()
	return c, nil
}

// ResolvePath joins a relative path onto dir. Absolute paths and an empty
// dir leave path unchanged.
func ResolvePath(dir, path string) string {
	if dir == "" || path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

func (c *Config) loadSchema(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		modelLogger.Debug("schema not attached", zap.String("schema_path", path), zap.Error(err))
		return nil
	}
	s, err := LoadSchema(path)
	if err != nil {
		return err
	}
	c.schema = s
	return nil
}

func readDocument(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return data, err
}

func firstDocument(data []byte) ([]byte, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrInvalidDocument)
	}
	res := gjson.ParseBytes(data)
	if res.IsArray() {
		docs := res.Array()
		if len(docs) == 0 {
			return nil, ErrEmptyDocument
		}
		if len(docs) > 1 {
			modelLogger.Warn("multi-document array, keeping the first", zap.Int("dropped", len(docs)-1))
		}
		res = docs[0]
	}
	if !res.IsObject() {
		return nil, fmt.Errorf("%w: document is not a JSON object", ErrInvalidDocument)
	}
	return []byte(res.Raw), nil
}

// requireType rejects items whose type key is missing. Present but unknown
// names are already refused by ItemType.UnmarshalText.
func requireType(it SchemaItem) error {
	if !lo.Contains(ItemTypes, it.Type) {
		return fmt.Errorf("%w: item %q has no valid type", ErrInvalidDocument, it.Name)
	}
	return nil
}

func decodeDocument(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return nil
}

func writeDocument(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return err
	}
	modelLogger.Info("document written", zap.String("path", path), zap.Int("bytes", len(b)))
	return nil
}
