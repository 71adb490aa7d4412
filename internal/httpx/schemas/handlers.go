// Package schemas provides HTTP handlers for editing the schema open in a
// session: its header fields, groups and items.
package schemas

import (
	"context"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"configtree/internal/esx"
	"configtree/internal/httpx/kit"
	"configtree/internal/httpx/mw"
	"configtree/internal/logx"
	"configtree/internal/model"
	"configtree/internal/mqx"
	"configtree/internal/session"
)

var schemasLogger = logx.GetScope("schemas")

// OpenRequest names a document under the editor root.
// swagger:model OpenRequest
type OpenRequest struct {
	File string `json:"file"`
}

// NamesRequest lists row names to delete.
// swagger:model NamesRequest
type NamesRequest struct {
	Names []string `json:"names"`
}

// RowsRequest carries the full grid contents for a replace.
// swagger:model RowsRequest
type RowsRequest struct {
	Rows []model.Row `json:"rows"`
}

// FieldsResult reports which header fields a PATCH assigned.
type FieldsResult struct {
	Accepted []string `json:"accepted"`
	Rejected []string `json:"rejected"`
}

// SchemaView is the schema as the editor renders it.
// swagger:model SchemaView
type SchemaView struct {
	File      string                  `json:"file"`
	NeedsSave bool                    `json:"needs_save"`
	Header    model.Row               `json:"header"`
	Groups    []model.Row             `json:"groups"`
	Items     []model.Row             `json:"items"`
	Errors    []model.ValidationError `json:"errors"`
}

// Hooks run after a schema is written to disk.
type Hooks struct {
	Events *mqx.Events
	ES     *esx.Client
	Index  func() string
}

func timeout(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context(), 5*time.Second)
}

// edit runs fn on the working schema of the request's session.
func edit(c *fiber.Ctx, m *session.Manager, fn func(s *session.Session, w *model.Schema) error) error {
	ctx, cancel := timeout(c)
	defer cancel()
	err := m.With(ctx, c.Params("sid"), func(s *session.Session) error {
		w, err := s.WorkingSchema()
		if err != nil {
			return err
		}
		return fn(s, w)
	})
	return kit.FromSession(err)
}

// editContent is edit for group and item changes, which mark the schema as
// needing a save.
func editContent(c *fiber.Ctx, m *session.Manager, fn func(s *session.Session, w *model.Schema) error) error {
	return edit(c, m, func(s *session.Session, w *model.Schema) error {
		if err := fn(s, w); err != nil {
			return err
		}
		s.MarkSchemaEdited()
		return nil
	})
}

func schemaView(s *session.Session) SchemaView {
	w := s.Schema.Working
	w.Validate()
	return SchemaView{
		File:      s.Schema.File,
		NeedsSave: s.SchemaNeedsSave(),
		Header:    w.ToRow(),
		Groups:    w.GroupRows(),
		Items:     w.ItemRows(),
		Errors:    lo.Ternary(w.Errors() == nil, []model.ValidationError{}, w.Errors()),
	}
}

// OpenSchemaHandler loads a schema file into the session.
//
//	@Summary      Open schema
//	@Description  Load a schema document as the session's baseline and working copy
//	@Tags         schema
//	@Accept       json
//	@Produce      json
//	@Param        sid   path  string                true  "Session id"
//	@Param        body  body  schemas.OpenRequest  true  "file to open"
//	@Success      200   {object}  map[string]interface{}
//	@Failure      400   {object}  map[string]interface{}
//	@Failure      404   {object}  map[string]interface{}
//	@Router       /api/v1/sessions/{sid}/schema/open [post]
func OpenSchemaHandler(m *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req OpenRequest
		if err := kit.DecodeJSON(c, &req); err != nil {
			return err
		}
		var out SchemaView
		ctx, cancel := timeout(c)
		defer cancel()
		err := m.With(ctx, c.Params("sid"), func(s *session.Session) error {
			if err := s.OpenSchema(req.File); err != nil {
				return err
			}
			out = schemaView(s)
			return nil
		})
		if err != nil {
			return kit.FromSession(err)
		}
		return kit.OK(c, out)
	}
}

// GetSchemaHandler returns the working schema with its current errors.
//
//	@Summary      Get schema
//	@Tags         schema
//	@Produce      json
//	@Param        sid  path  string  true  "Session id"
//	@Success      200  {object}  map[string]interface{}
//	@Failure      404  {object}  map[string]interface{}
//	@Failure      409  {object}  map[string]interface{}
//	@Router       /api/v1/sessions/{sid}/schema [get]
func GetSchemaHandler(m *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := timeout(c)
		defer cancel()
		s, err := m.Get(ctx, c.Params("sid"))
		if err != nil {
			return kit.FromSession(err)
		}
		if _, err := s.WorkingSchema(); err != nil {
			return kit.FromSession(err)
		}
		return kit.OK(c, schemaView(s))
	}
}

// PatchSchemaHandler sets header fields. A value is only assigned when it
// passes the field's validator; rejected fields keep their old value.
//
//	@Summary      Update schema header
//	@Tags         schema
//	@Accept       json
//	@Produce      json
//	@Param        sid   path  string             true  "Session id"
//	@Param        body  body  map[string]string  true  "name, desc and/or version"
//	@Success      200   {object}  map[string]interface{}
//	@Failure      400   {object}  map[string]interface{}
//	@Router       /api/v1/sessions/{sid}/schema [patch]
func PatchSchemaHandler(m *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var fields map[string]string
		if err := kit.DecodeJSON(c, &fields); err != nil {
			return err
		}
		res := FieldsResult{Accepted: []string{}, Rejected: []string{}}
		err := edit(c, m, func(_ *session.Session, w *model.Schema) error {
			keys := lo.Keys(fields)
			sort.Strings(keys)
			for _, k := range keys {
				ok, err := w.SetField(k, fields[k])
				if err != nil {
					return kit.BadRequest(err.Error(), k)
				}
				if ok {
					res.Accepted = append(res.Accepted, k)
				} else {
					res.Rejected = append(res.Rejected, k)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		return kit.OK(c, res)
	}
}

// SaveSchemaHandler validates and writes the working schema.
//
//	@Summary      Save schema
//	@Description  Validate the working schema and write it to its file
//	@Tags         schema
//	@Produce      json
//	@Param        sid  path  string  true  "Session id"
//	@Success      200  {object}  map[string]interface{}
//	@Failure      409  {object}  map[string]interface{}
//	@Failure      422  {object}  map[string]interface{}
//	@Router       /api/v1/sessions/{sid}/schema/save [post]
func SaveSchemaHandler(m *session.Manager, hooks Hooks) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var (
			res   session.SaveResult
			saved *model.Schema
		)
		err := edit(c, m, func(s *session.Session, w *model.Schema) error {
			var err error
			res, err = s.SaveSchema()
			if res.Saved {
				saved = w.Copy()
			}
			return err
		})
		if err != nil {
			return err
		}
		if !res.Saved {
			return kit.Validation(res.Message, res.Errors)
		}
		afterSave(c, hooks, res.File, saved)
		return kit.Message(c, res.Message, res)
	}
}

func afterSave(c *fiber.Ctx, hooks Hooks, file string, s *model.Schema) {
	ctx, cancel := timeout(c)
	defer cancel()
	_ = hooks.Events.Saved(ctx, mqx.SavedEvent{
		Kind:     "schema",
		Session:  c.Params("sid"),
		File:     file,
		Name:     s.Name,
		Version:  s.Version,
		Items:    len(s.Items),
		Operator: mw.OperatorName(c),
	})
	if hooks.ES == nil || hooks.Index == nil {
		return
	}
	if err := esx.IndexSchema(ctx, hooks.ES, hooks.Index(), file, s); err != nil {
		schemasLogger.Warn("index schema failed", zap.String("file", file), zap.Error(err))
	}
}

// GroupNamesHandler lists group names for the item editor's group choices.
//
//	@Summary      Group names
//	@Tags         schema
//	@Produce      json
//	@Param        sid  path  string  true  "Session id"
//	@Success      200  {object}  map[string]interface{}
//	@Router       /api/v1/sessions/{sid}/schema/group-names [get]
func GroupNamesHandler(m *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := timeout(c)
		defer cancel()
		s, err := m.Get(ctx, c.Params("sid"))
		if err != nil {
			return kit.FromSession(err)
		}
		w, err := s.WorkingSchema()
		if err != nil {
			return kit.FromSession(err)
		}
		return kit.OK(c, w.GroupNames())
	}
}
