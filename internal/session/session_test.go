package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"configtree/internal/model"
)

func seedSchema(t *testing.T, dir string) {
	t.Helper()
	s := model.NewSchema("app", "application settings", "1.0.0")
	s.Groups = []model.SchemaGroup{{Name: "net", Desc: "network"}}
	s.Items = []model.SchemaItem{
		{Name: "port", Desc: "listen port", Group: "net", Default: "8080", Type: model.TypeInteger},
		{Name: "host", Desc: "bind host", Group: "net", Default: "localhost", Type: model.TypeString},
	}
	ok, err := s.Save(filepath.Join(dir, "schema.json"))
	require.NoError(t, err)
	require.True(t, ok)
}

func newManager(t *testing.T, strict bool) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	seedSchema(t, dir)
	return NewManager(NewMemoryStore(time.Hour), Options{Root: dir, StrictSave: strict}), dir
}

func TestSession_OpenEditSaveSchema(t *testing.T) {
	ctx := context.Background()
	m, dir := newManager(t, false)
	s, err := m.Create(ctx)
	require.NoError(t, err)

	err = m.With(ctx, s.ID, func(s *Session) error {
		require.NoError(t, s.OpenSchema("schema.json"))
		require.False(t, s.SchemaNeedsSave())
		w, _ := s.WorkingSchema()
		w.AddGroup()
		require.False(t, s.SchemaNeedsSave(), "contents do not take part in schema equality")
		s.MarkSchemaEdited()
		require.True(t, s.SchemaNeedsSave(), "a group edit marks the schema dirty")
		ok, err := w.SetField("version", "1.1.0")
		require.NoError(t, err)
		require.True(t, ok)
		require.True(t, s.SchemaNeedsSave())
		return nil
	})
	require.NoError(t, err)

	var res SaveResult
	require.NoError(t, m.With(ctx, s.ID, func(s *Session) (err error) {
		res, err = s.SaveSchema()
		return err
	}))
	require.True(t, res.Saved)
	require.Equal(t, "Schema saved successfully to schema.json", res.Message)

	got, err := m.Get(ctx, s.ID)
	require.NoError(t, err)
	require.False(t, got.SchemaNeedsSave())

	reloaded, err := model.LoadSchema(filepath.Join(dir, "schema.json"))
	require.NoError(t, err)
	require.Equal(t, "1.1.0", reloaded.Version)
	require.Len(t, reloaded.Groups, 2)
}

func TestSession_SetFieldRejectsInvalid(t *testing.T) {
	s := model.NewSchema("app", "d", "1.0.0")
	ok, err := s.SetField("version", "1.0")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, "1.0.0", s.Version)

	_, err = s.SetField("colour", "x")
	require.Error(t, err)
}

func TestSession_OpenMissingKeepsState(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, false)
	s, _ := m.Create(ctx)
	require.NoError(t, m.With(ctx, s.ID, func(s *Session) error { return s.OpenSchema("schema.json") }))

	err := m.With(ctx, s.ID, func(s *Session) error { return s.OpenSchema("nope.json") })
	require.ErrorIs(t, err, ErrNotFound)

	got, _ := m.Get(ctx, s.ID)
	require.Equal(t, "schema.json", got.Schema.File)
}

func TestSession_RejectsEscapingPaths(t *testing.T) {
	s := New("id", t.TempDir())
	require.ErrorIs(t, s.OpenSchema("../outside.json"), ErrInvalidPath)
	require.ErrorIs(t, s.OpenSchema(" "), ErrInvalidPath)
}

func TestSession_SchemaPathStaysUnderRoot(t *testing.T) {
	outside := t.TempDir()
	seedSchema(t, outside)
	root := filepath.Join(outside, "docs")
	require.NoError(t, os.Mkdir(root, 0o755))

	s := New("id", root)
	require.ErrorIs(t, s.NewConfig("c.json", "c", "d", "../schema.json"), ErrInvalidPath)
	_, err := s.WorkingConfig()
	require.ErrorIs(t, err, ErrNotLoaded)

	c, err := model.NewConfig("c", "d", filepath.Join(outside, "schema.json"))
	require.NoError(t, err)
	c.GenerateItems()
	c.SchemaPath = "../schema.json"
	ok, err := c.Save(filepath.Join(root, "c.json"))
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.OpenConfig("c.json"))
	w, err := s.WorkingConfig()
	require.NoError(t, err)
	require.Nil(t, w.Schema(), "a schema outside the root is never read")
	require.Len(t, w.Items, 2)
}

func TestSession_NotLoadedAndNoTarget(t *testing.T) {
	s := New("id", t.TempDir())
	_, err := s.WorkingSchema()
	require.ErrorIs(t, err, ErrNotLoaded)
	_, err = s.SaveSchema()
	require.ErrorIs(t, err, ErrNoTarget)
	_, err = s.SaveConfig()
	require.ErrorIs(t, err, ErrNoTarget)
	require.False(t, s.ConfigNeedsSave())
}

func TestSession_NewConfigSaveAndReopen(t *testing.T) {
	ctx := context.Background()
	m, dir := newManager(t, false)
	s, _ := m.Create(ctx)

	require.NoError(t, m.With(ctx, s.ID, func(s *Session) error {
		if err := s.NewConfig("prod.json", "prod", "production", "schema.json"); err != nil {
			return err
		}
		w, _ := s.WorkingConfig()
		require.Len(t, w.Items, 2)
		require.True(t, s.ConfigNeedsSave())
		w.UpdateValues([]model.Row{{"name": "port", "value": "9090"}})
		res, err := s.SaveConfig()
		require.True(t, res.Saved)
		require.Equal(t, "Config saved successfully to prod.json", res.Message)
		return err
	}))

	raw, err := os.ReadFile(filepath.Join(dir, "prod.json"))
	require.NoError(t, err)
	require.Contains(t, string(raw), `"schema_path": "schema.json"`)

	other, _ := m.Create(ctx)
	require.NoError(t, m.With(ctx, other.ID, func(s *Session) error { return s.OpenConfig("prod.json") }))
	got, _ := m.Get(ctx, other.ID)
	require.NotNil(t, got.Config.Working.Schema())
	require.False(t, got.ConfigNeedsSave())
	it, ok := got.Config.Working.Item("port")
	require.True(t, ok)
	require.Equal(t, "9090", model.ValueText(it.Value))
	// loads are ordered by group then name
	require.Equal(t, "host", got.Config.Working.Items[0].Name)
}

func TestSession_StrictSaveChecksItems(t *testing.T) {
	ctx := context.Background()
	m, dir := newManager(t, true)
	s, _ := m.Create(ctx)

	var res SaveResult
	require.NoError(t, m.With(ctx, s.ID, func(s *Session) (err error) {
		if err = s.NewConfig("bad.json", "bad", "bad values", "schema.json"); err != nil {
			return err
		}
		w, _ := s.WorkingConfig()
		w.UpdateValues([]model.Row{{"name": "port", "value": "eighty"}})
		res, err = s.SaveConfig()
		return err
	}))
	require.False(t, res.Saved)
	require.Len(t, res.Errors, 1)
	require.Equal(t, "value", res.Errors[0].Field)
	require.NoFileExists(t, filepath.Join(dir, "bad.json"))

	m.SetStrictSave(false)
	require.NoError(t, m.With(ctx, s.ID, func(s *Session) (err error) {
		res, err = s.SaveConfig()
		return err
	}))
	require.True(t, res.Saved, "the lenient gate only checks name and desc")
}

func TestManager_FailedOperationLeavesNoEdits(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, false)
	s, _ := m.Create(ctx)
	require.NoError(t, m.With(ctx, s.ID, func(s *Session) error { return s.OpenSchema("schema.json") }))

	boom := errors.New("boom")
	err := m.With(ctx, s.ID, func(s *Session) error {
		w, _ := s.WorkingSchema()
		w.DeleteItems("port")
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, _ := m.Get(ctx, s.ID)
	require.Len(t, got.Schema.Working.Items, 2)
}

func TestManager_DeleteAndUnknown(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, false)
	s, _ := m.Create(ctx)
	require.NoError(t, m.Delete(ctx, s.ID))
	_, err := m.Get(ctx, s.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
	require.ErrorIs(t, m.Delete(ctx, s.ID), ErrSessionNotFound)
	require.ErrorIs(t, m.With(ctx, "missing", func(*Session) error { return nil }), ErrSessionNotFound)
}

func TestManager_ConcurrentEditsSerialize(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, false)
	s, _ := m.Create(ctx)
	require.NoError(t, m.With(ctx, s.ID, func(s *Session) error { return s.OpenSchema("schema.json") }))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.With(ctx, s.ID, func(s *Session) error {
				w, _ := s.WorkingSchema()
				w.AddItem()
				return nil
			})
		}()
	}
	wg.Wait()
	got, _ := m.Get(ctx, s.ID)
	require.Len(t, got.Schema.Working.Items, 22)
}

func TestManager_LocksAreReleased(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, false)
	for i := 0; i < 1000; i++ {
		require.ErrorIs(t, m.With(ctx, fmt.Sprintf("gone-%d", i), func(*Session) error { return nil }), ErrSessionNotFound)
	}
	require.Empty(t, m.locks)

	s, _ := m.Create(ctx)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.With(ctx, s.ID, func(*Session) error { return nil })
		}()
	}
	wg.Wait()
	require.Empty(t, m.locks)

	require.NoError(t, m.Delete(ctx, s.ID))
	require.Empty(t, m.locks)
}

func TestMemoryStore_Expires(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore(time.Minute)
	now := time.Now()
	st.now = func() time.Time { return now }
	s := New("id", "")
	s.UpdatedAt = now
	require.NoError(t, st.Save(ctx, s))
	_, err := st.Load(ctx, "id")
	require.NoError(t, err)

	st.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, err = st.Load(ctx, "id")
	require.ErrorIs(t, err, ErrSessionNotFound)
}
