// Package session holds the per-operator editing context: the working and
// baseline copies of the open schema and config, and where they are saved.
package session

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"configtree/internal/logx"
	"configtree/internal/model"
)

var sessionLogger = logx.GetScope("session")

var (
	// ErrSessionNotFound is returned for unknown or expired session ids.
	ErrSessionNotFound = errors.New("session not found")
	// ErrNotFound is returned when the requested document file is missing.
	ErrNotFound = model.ErrNotFound
	// ErrNotLoaded is returned when no schema or config is open.
	ErrNotLoaded = errors.New("document not loaded")
	// ErrNoTarget is returned when a save has no file to write to.
	ErrNoTarget = errors.New("save target not set")
	// ErrInvalidPath is returned for file names that escape the documents root.
	ErrInvalidPath = errors.New("invalid document path")
)

// SchemaDoc is an open schema: the edit buffer, the last saved snapshot and
// the file both map to.
type SchemaDoc struct {
	Working  *model.Schema
	Baseline *model.Schema
	File     string
	Path     string
	// ContentEdited is set by group and item edits, which schema equality
	// does not see.
	ContentEdited bool
}

// ConfigDoc is an open config.
type ConfigDoc struct {
	Working  *model.Config
	Baseline *model.Config
	File     string
	Path     string
}

// SaveResult reports a save attempt. Errors is set when validation refused
// the write.
type SaveResult struct {
	Saved   bool                    `json:"saved"`
	File    string                  `json:"file"`
	Message string                  `json:"message"`
	Errors  []model.ValidationError `json:"errors,omitempty"`
}

// Session is one operator's editing context.
type Session struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	Schema    SchemaDoc
	Config    ConfigDoc

	root   string
	strict bool
}

// New returns an empty session rooted at root.
func New(id, root string) *Session {
	now := time.Now().UTC()
	return &Session{ID: id, CreatedAt: now, UpdatedAt: now, root: root}
}

func (s *Session) bind(root string, strict bool) {
	s.root = root
	s.strict = strict
}

// Resolve maps a requested file name to a path under the documents root.
func (s *Session) Resolve(file string) (string, error) {
	if strings.TrimSpace(file) == "" {
		return "", fmt.Errorf("%w: empty file name", ErrInvalidPath)
	}
	if s.root == "" {
		return filepath.Clean(file), nil
	}
	path := filepath.Join(s.root, file)
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, file)
	}
	return path, nil
}

// OpenSchema loads file as the baseline and starts a working copy of it.
// On failure the previously open schema is kept.
func (s *Session) OpenSchema(file string) error {
	path, err := s.Resolve(file)
	if err != nil {
		return err
	}
	loaded, err := model.LoadSchema(path)
	if err != nil {
		return err
	}
	s.Schema = SchemaDoc{Working: loaded.Copy(), Baseline: loaded, File: file, Path: path}
	sessionLogger.Info("schema opened", zap.String("session", s.ID), zap.String("path", path))
	return nil
}

// WorkingSchema returns the schema edit buffer.
func (s *Session) WorkingSchema() (*model.Schema, error) {
	if s.Schema.Working == nil {
		return nil, fmt.Errorf("schema: %w", ErrNotLoaded)
	}
	return s.Schema.Working, nil
}

// SchemaNeedsSave reports whether the working schema differs from the
// baseline under schema equality, or its groups or items were edited since
// it was opened or saved.
func (s *Session) SchemaNeedsSave() bool {
	if s.Schema.Working == nil {
		return false
	}
	return s.Schema.ContentEdited || !s.Schema.Working.Equal(s.Schema.Baseline)
}

// MarkSchemaEdited records a group or item edit on the working schema.
func (s *Session) MarkSchemaEdited() {
	if s.Schema.Working != nil {
		s.Schema.ContentEdited = true
	}
}

// SaveSchema validates and writes the working schema. On success the working
// copy becomes the new baseline.
func (s *Session) SaveSchema() (SaveResult, error) {
	if s.Schema.Path == "" {
		return SaveResult{}, fmt.Errorf("schema: %w", ErrNoTarget)
	}
	w, err := s.WorkingSchema()
	if err != nil {
		return SaveResult{}, err
	}
	res := SaveResult{File: s.Schema.File}
	if s.strict && !w.ValidateAll() {
		res.Message = "Error saving Schema"
		res.Errors = w.Errors()
		return res, nil
	}
	ok, err := w.Save(s.Schema.Path)
	if err != nil {
		return res, fmt.Errorf("save schema %s: %w", s.Schema.Path, err)
	}
	if !ok {
		res.Message = "Error saving Schema"
		res.Errors = w.Errors()
		sessionLogger.Debug("schema save refused", zap.String("session", s.ID), zap.Int("errors", len(res.Errors)))
		return res, nil
	}
	s.Schema.Baseline = w.Copy()
	s.Schema.ContentEdited = false
	res.Saved = true
	res.Message = fmt.Sprintf("Schema saved successfully to %s", s.Schema.File)
	return res, nil
}

// OpenConfig loads file as the baseline config and starts a working copy.
// Its schema_path resolves under the documents root; a path escaping the
// root leaves the config without a schema.
func (s *Session) OpenConfig(file string) error {
	path, err := s.Resolve(file)
	if err != nil {
		return err
	}
	loaded, err := model.LoadConfig(path, model.WithSchemaResolver(s.Resolve))
	if err != nil {
		return err
	}
	s.Config = ConfigDoc{Working: loaded.Copy(), Baseline: loaded, File: file, Path: path}
	sessionLogger.Info("config opened", zap.String("session", s.ID), zap.String("path", path))
	return nil
}

// NewConfig starts an unsaved config for schemaPath, populated with the
// schema's defaults, that will be saved to file. Both names resolve under
// the documents root.
func (s *Session) NewConfig(file, name, desc, schemaPath string) error {
	path, err := s.Resolve(file)
	if err != nil {
		return err
	}
	schemaFile, err := s.Resolve(schemaPath)
	if err != nil {
		return err
	}
	c, err := model.NewConfig(name, desc, schemaFile)
	if err != nil {
		return err
	}
	c.SchemaPath = schemaPath
	c.GenerateItems()
	s.Config = ConfigDoc{Working: c, File: file, Path: path}
	return nil
}

// WorkingConfig returns the config edit buffer.
func (s *Session) WorkingConfig() (*model.Config, error) {
	if s.Config.Working == nil {
		return nil, fmt.Errorf("config: %w", ErrNotLoaded)
	}
	return s.Config.Working, nil
}

// ConfigNeedsSave reports whether the working config differs structurally
// from the baseline.
func (s *Session) ConfigNeedsSave() bool {
	if s.Config.Working == nil {
		return false
	}
	return !s.Config.Working.Equal(s.Config.Baseline)
}

// SaveConfig validates and writes the working config, promoting it to
// baseline on success.
func (s *Session) SaveConfig() (SaveResult, error) {
	if s.Config.Path == "" {
		return SaveResult{}, fmt.Errorf("config: %w", ErrNoTarget)
	}
	w, err := s.WorkingConfig()
	if err != nil {
		return SaveResult{}, err
	}
	res := SaveResult{File: s.Config.File}
	if s.strict {
		own := w.Validate()
		itemErrs := w.ValidateItems()
		if !own || len(itemErrs) > 0 {
			res.Message = "Error saving Config"
			res.Errors = append(w.Errors(), itemErrs...)
			return res, nil
		}
	}
	ok, err := w.Save(s.Config.Path)
	if err != nil {
		return res, fmt.Errorf("save config %s: %w", s.Config.Path, err)
	}
	if !ok {
		res.Message = "Error saving Config"
		res.Errors = w.Errors()
		return res, nil
	}
	s.Config.Baseline = w.Copy()
	res.Saved = true
	res.Message = fmt.Sprintf("Config saved successfully to %s", s.Config.File)
	return res, nil
}

func (s *Session) clone() *Session {
	out := *s
	out.Schema = SchemaDoc{
		Working:  s.Schema.Working.Copy(),
		Baseline: s.Schema.Baseline.Copy(),
		File:     s.Schema.File,
		Path:     s.Schema.Path,

		ContentEdited: s.Schema.ContentEdited,
	}
	out.Config = ConfigDoc{
		Working:  s.Config.Working.Copy(),
		Baseline: s.Config.Baseline.Copy(),
		File:     s.Config.File,
		Path:     s.Config.Path,
	}
	return &out
}
