package schemas

import (
	"github.com/gofiber/fiber/v2"

	"configtree/internal/httpx/kit"
	"configtree/internal/model"
	"configtree/internal/session"
)

// AddGroupHandler appends a placeholder group.
//
//	@Summary      Add group
//	@Tags         schema
//	@Produce      json
//	@Param        sid  path  string  true  "Session id"
//	@Success      201  {object}  map[string]interface{}
//	@Router       /api/v1/sessions/{sid}/schema/groups [post]
func AddGroupHandler(m *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var rows []model.Row
		err := editContent(c, m, func(_ *session.Session, w *model.Schema) error {
			w.AddGroup()
			rows = w.GroupRows()
			return nil
		})
		if err != nil {
			return err
		}
		return kit.Created(c, rows)
	}
}

// DeleteGroupsHandler removes the first group with each given name.
//
//	@Summary      Delete groups
//	@Tags         schema
//	@Accept       json
//	@Produce      json
//	@Param        sid   path  string                true  "Session id"
//	@Param        body  body  schemas.NamesRequest  true  "group names"
//	@Success      200   {object}  map[string]interface{}
//	@Router       /api/v1/sessions/{sid}/schema/groups [delete]
func DeleteGroupsHandler(m *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req NamesRequest
		if err := kit.DecodeJSON(c, &req); err != nil {
			return err
		}
		var (
			n    int
			rows []model.Row
		)
		err := editContent(c, m, func(_ *session.Session, w *model.Schema) error {
			n = w.DeleteGroups(req.Names...)
			rows = w.GroupRows()
			return nil
		})
		if err != nil {
			return err
		}
		return kit.OK(c, fiber.Map{"deleted": n, "rows": rows})
	}
}

// ReplaceGroupsHandler replaces all groups with the edited grid rows.
//
//	@Summary      Replace groups
//	@Tags         schema
//	@Accept       json
//	@Produce      json
//	@Param        sid   path  string               true  "Session id"
//	@Param        body  body  schemas.RowsRequest  true  "group rows"
//	@Success      200   {object}  map[string]interface{}
//	@Failure      400   {object}  map[string]interface{}
//	@Router       /api/v1/sessions/{sid}/schema/groups [put]
func ReplaceGroupsHandler(m *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req RowsRequest
		if err := kit.DecodeJSON(c, &req); err != nil {
			return err
		}
		var rows []model.Row
		err := editContent(c, m, func(_ *session.Session, w *model.Schema) error {
			if err := w.ReplaceGroups(req.Rows); err != nil {
				return err
			}
			rows = w.GroupRows()
			return nil
		})
		if err != nil {
			return err
		}
		return kit.OK(c, rows)
	}
}

// AddItemHandler appends a placeholder item.
//
//	@Summary      Add item
//	@Tags         schema
//	@Produce      json
//	@Param        sid  path  string  true  "Session id"
//	@Success      201  {object}  map[string]interface{}
//	@Router       /api/v1/sessions/{sid}/schema/items [post]
func AddItemHandler(m *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var rows []model.Row
		err := editContent(c, m, func(_ *session.Session, w *model.Schema) error {
			w.AddItem()
			rows = w.ItemRows()
			return nil
		})
		if err != nil {
			return err
		}
		return kit.Created(c, rows)
	}
}

// DeleteItemsHandler removes the first item with each given name.
//
//	@Summary      Delete items
//	@Tags         schema
//	@Accept       json
//	@Produce      json
//	@Param        sid   path  string                true  "Session id"
//	@Param        body  body  schemas.NamesRequest  true  "item names"
//	@Success      200   {object}  map[string]interface{}
//	@Router       /api/v1/sessions/{sid}/schema/items [delete]
func DeleteItemsHandler(m *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req NamesRequest
		if err := kit.DecodeJSON(c, &req); err != nil {
			return err
		}
		var (
			n    int
			rows []model.Row
		)
		err := editContent(c, m, func(_ *session.Session, w *model.Schema) error {
			n = w.DeleteItems(req.Names...)
			rows = w.ItemRows()
			return nil
		})
		if err != nil {
			return err
		}
		return kit.OK(c, fiber.Map{"deleted": n, "rows": rows})
	}
}

// ReplaceItemsHandler replaces all items with the edited grid rows.
//
//	@Summary      Replace items
//	@Tags         schema
//	@Accept       json
//	@Produce      json
//	@Param        sid   path  string               true  "Session id"
//	@Param        body  body  schemas.RowsRequest  true  "item rows"
//	@Success      200   {object}  map[string]interface{}
//	@Failure      400   {object}  map[string]interface{}
//	@Router       /api/v1/sessions/{sid}/schema/items [put]
func ReplaceItemsHandler(m *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req RowsRequest
		if err := kit.DecodeJSON(c, &req); err != nil {
			return err
		}
		var rows []model.Row
		err := editContent(c, m, func(_ *session.Session, w *model.Schema) error {
			if err := w.ReplaceItems(req.Rows); err != nil {
				return err
			}
			rows = w.ItemRows()
			return nil
		})
		if err != nil {
			return err
		}
		return kit.OK(c, rows)
	}
}
