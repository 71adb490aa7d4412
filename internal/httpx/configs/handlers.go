// Package configs provides HTTP handlers for editing the config open in a
// session and exporting its values.
package configs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"

	"configtree/internal/export"
	"configtree/internal/httpx/kit"
	"configtree/internal/httpx/mw"
	"configtree/internal/model"
	"configtree/internal/mqx"
	"configtree/internal/session"
)

// OpenRequest names a config document under the editor root.
// swagger:model ConfigOpenRequest
type OpenRequest struct {
	File string `json:"file"`
}

// NewRequest starts a config from a schema.
// swagger:model NewConfigRequest
type NewRequest struct {
	File       string `json:"file"`
	Name       string `json:"name"`
	Desc       string `json:"desc"`
	SchemaPath string `json:"schema_path"`
}

// ItemsRequest carries edited value rows, matched to items by name.
// swagger:model ItemsRequest
type ItemsRequest struct {
	Rows []model.Row `json:"rows"`
}

// ConfigView is the config as the editor renders it.
// swagger:model ConfigView
type ConfigView struct {
	File      string                  `json:"file"`
	NeedsSave bool                    `json:"needs_save"`
	HasSchema bool                    `json:"has_schema"`
	Header    model.Row               `json:"header"`
	Items     []model.Row             `json:"items"`
	Errors    []model.ValidationError `json:"errors"`
}

func timeout(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context(), 5*time.Second)
}

func edit(c *fiber.Ctx, m *session.Manager, fn func(s *session.Session, w *model.Config) error) error {
	ctx, cancel := timeout(c)
	defer cancel()
	err := m.With(ctx, c.Params("sid"), func(s *session.Session) error {
		w, err := s.WorkingConfig()
		if err != nil {
			return err
		}
		return fn(s, w)
	})
	return kit.FromSession(err)
}

func configView(s *session.Session) ConfigView {
	w := s.Config.Working
	w.Validate()
	errs := append(w.Errors(), w.ValidateItems()...)
	return ConfigView{
		File:      s.Config.File,
		NeedsSave: s.ConfigNeedsSave(),
		HasSchema: w.Schema() != nil,
		Header:    w.ToRow(),
		Items:     w.ItemRows(),
		Errors:    lo.Ternary(errs == nil, []model.ValidationError{}, errs),
	}
}

func open(c *fiber.Ctx, m *session.Manager, fn func(s *session.Session) error) error {
	var out ConfigView
	ctx, cancel := timeout(c)
	defer cancel()
	err := m.With(ctx, c.Params("sid"), func(s *session.Session) error {
		if err := fn(s); err != nil {
			return err
		}
		out = configView(s)
		return nil
	})
	if err != nil {
		return kit.FromSession(err)
	}
	return kit.OK(c, out)
}

// OpenConfigHandler loads a config file and its schema into the session.
//
//	@Summary      Open config
//	@Tags         config
//	@Accept       json
//	@Produce      json
//	@Param        sid   path  string               true  "Session id"
//	@Param        body  body  configs.OpenRequest  true  "file to open"
//	@Success      200   {object}  map[string]interface{}
//	@Failure      404   {object}  map[string]interface{}
//	@Router       /api/v1/sessions/{sid}/config/open [post]
func OpenConfigHandler(m *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req OpenRequest
		if err := kit.DecodeJSON(c, &req); err != nil {
			return err
		}
		return open(c, m, func(s *session.Session) error { return s.OpenConfig(req.File) })
	}
}

// NewConfigHandler starts an unsaved config populated from a schema's defaults.
//
//	@Summary      New config
//	@Tags         config
//	@Accept       json
//	@Produce      json
//	@Param        sid   path  string              true  "Session id"
//	@Param        body  body  configs.NewRequest  true  "config header"
//	@Success      200   {object}  map[string]interface{}
//	@Failure      400   {object}  map[string]interface{}
//	@Router       /api/v1/sessions/{sid}/config/new [post]
func NewConfigHandler(m *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req NewRequest
		if err := kit.DecodeJSON(c, &req); err != nil {
			return err
		}
		if strings.TrimSpace(req.SchemaPath) == "" {
			return kit.BadRequest("schema_path required", nil)
		}
		return open(c, m, func(s *session.Session) error {
			return s.NewConfig(req.File, req.Name, req.Desc, req.SchemaPath)
		})
	}
}

// GetConfigHandler returns the working config with its current errors.
//
//	@Summary      Get config
//	@Tags         config
//	@Produce      json
//	@Param        sid  path  string  true  "Session id"
//	@Success      200  {object}  map[string]interface{}
//	@Failure      409  {object}  map[string]interface{}
//	@Router       /api/v1/sessions/{sid}/config [get]
func GetConfigHandler(m *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := timeout(c)
		defer cancel()
		s, err := m.Get(ctx, c.Params("sid"))
		if err != nil {
			return kit.FromSession(err)
		}
		if _, err := s.WorkingConfig(); err != nil {
			return kit.FromSession(err)
		}
		return kit.OK(c, configView(s))
	}
}

// PatchConfigHandler sets name and desc with set-if-valid semantics.
//
//	@Summary      Update config header
//	@Tags         config
//	@Accept       json
//	@Produce      json
//	@Param        sid   path  string             true  "Session id"
//	@Param        body  body  map[string]string  true  "name and/or desc"
//	@Success      200   {object}  map[string]interface{}
//	@Failure      400   {object}  map[string]interface{}
//	@Router       /api/v1/sessions/{sid}/config [patch]
func PatchConfigHandler(m *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var fields map[string]string
		if err := kit.DecodeJSON(c, &fields); err != nil {
			return err
		}
		accepted, rejected := []string{}, []string{}
		err := edit(c, m, func(_ *session.Session, w *model.Config) error {
			keys := lo.Keys(fields)
			sort.Strings(keys)
			for _, k := range keys {
				ok, err := w.SetField(k, fields[k])
				if err != nil {
					return kit.BadRequest(err.Error(), k)
				}
				if ok {
					accepted = append(accepted, k)
				} else {
					rejected = append(rejected, k)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		return kit.OK(c, fiber.Map{"accepted": accepted, "rejected": rejected})
	}
}

// GenerateItemsHandler resets every item to its schema default.
//
//	@Summary      Generate items
//	@Description  Replace all items with the schema's items at their defaults
//	@Tags         config
//	@Produce      json
//	@Param        sid  path  string  true  "Session id"
//	@Success      200  {object}  map[string]interface{}
//	@Router       /api/v1/sessions/{sid}/config/generate [post]
func GenerateItemsHandler(m *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var rows []model.Row
		err := edit(c, m, func(_ *session.Session, w *model.Config) error {
			if w.Schema() == nil {
				return kit.NotLoaded(fmt.Sprintf("schema %s not loaded", w.SchemaPath))
			}
			w.GenerateItems()
			rows = w.ItemRows()
			return nil
		})
		if err != nil {
			return err
		}
		return kit.OK(c, rows)
	}
}

// UpdateItemsHandler copies edited values onto items matched by name.
//
//	@Summary      Update item values
//	@Tags         config
//	@Accept       json
//	@Produce      json
//	@Param        sid   path  string                true  "Session id"
//	@Param        body  body  configs.ItemsRequest  true  "value rows"
//	@Success      200   {object}  map[string]interface{}
//	@Router       /api/v1/sessions/{sid}/config/items [patch]
func UpdateItemsHandler(m *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req ItemsRequest
		if err := kit.DecodeJSON(c, &req); err != nil {
			return err
		}
		var n int
		err := edit(c, m, func(_ *session.Session, w *model.Config) error {
			n = w.UpdateValues(req.Rows)
			return nil
		})
		if err != nil {
			return err
		}
		return kit.OK(c, fiber.Map{"changed": n})
	}
}

// SaveConfigHandler validates and writes the working config.
//
//	@Summary      Save config
//	@Tags         config
//	@Produce      json
//	@Param        sid  path  string  true  "Session id"
//	@Success      200  {object}  map[string]interface{}
//	@Failure      409  {object}  map[string]interface{}
//	@Failure      422  {object}  map[string]interface{}
//	@Router       /api/v1/sessions/{sid}/config/save [post]
func SaveConfigHandler(m *session.Manager, events *mqx.Events) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var (
			res   session.SaveResult
			name  string
			items int
		)
		err := edit(c, m, func(s *session.Session, w *model.Config) error {
			var err error
			res, err = s.SaveConfig()
			name, items = w.Name, len(w.Items)
			return err
		})
		if err != nil {
			return err
		}
		if !res.Saved {
			return kit.Validation(res.Message, res.Errors)
		}
		ctx, cancel := timeout(c)
		defer cancel()
		_ = events.Saved(ctx, mqx.SavedEvent{
			Kind:     "config",
			Session:  c.Params("sid"),
			File:     res.File,
			Name:     name,
			Items:    items,
			Operator: mw.OperatorName(c),
		})
		return kit.Message(c, res.Message, res)
	}
}

// ExportConfigHandler downloads the config values as YAML.
//
//	@Summary      Export config
//	@Description  Render the working config's values, typed and grouped, as YAML
//	@Tags         config
//	@Produce      application/x-yaml
//	@Param        sid  path  string  true  "Session id"
//	@Success      200  {string}  string
//	@Failure      422  {object}  map[string]interface{}
//	@Router       /api/v1/sessions/{sid}/config/export [get]
func ExportConfigHandler(m *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := timeout(c)
		defer cancel()
		s, err := m.Get(ctx, c.Params("sid"))
		if err != nil {
			return kit.FromSession(err)
		}
		w, err := s.WorkingConfig()
		if err != nil {
			return kit.FromSession(err)
		}
		out, err := export.YAML(w)
		var exportErr *export.Error
		if errors.As(err, &exportErr) {
			return kit.Validation("config has invalid values", exportErr.Errors)
		}
		if err != nil {
			return kit.InternalError("export failed", err.Error())
		}
		file := strings.TrimSuffix(filepath.Base(s.Config.File), filepath.Ext(s.Config.File)) + ".yaml"
		c.Set(fiber.HeaderContentType, "application/x-yaml")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", file))
		return c.Send(out)
	}
}
