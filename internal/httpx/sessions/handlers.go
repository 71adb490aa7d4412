// Package sessions provides HTTP handlers for editing sessions.
package sessions

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"configtree/internal/httpx/kit"
	"configtree/internal/session"
)

// DocStatus summarises one open document.
type DocStatus struct {
	Open      bool   `json:"open"`
	File      string `json:"file,omitempty"`
	NeedsSave bool   `json:"needs_save"`
}

// SessionView is the session summary returned by the API.
// swagger:model SessionView
type SessionView struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	StrictSave bool      `json:"strict_save"`
	Schema     DocStatus `json:"schema"`
	Config     DocStatus `json:"config"`
}

func view(s *session.Session, strict bool) SessionView {
	return SessionView{
		ID:         s.ID,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
		StrictSave: strict,
		Schema:     DocStatus{Open: s.Schema.Working != nil, File: s.Schema.File, NeedsSave: s.SchemaNeedsSave()},
		Config:     DocStatus{Open: s.Config.Working != nil, File: s.Config.File, NeedsSave: s.ConfigNeedsSave()},
	}
}

// CreateSessionHandler starts a new editing session.
//
//	@Summary      Create session
//	@Description  Start an empty editing session
//	@Tags         sessions
//	@Produce      json
//	@Success      201  {object}  map[string]interface{}
//	@Router       /api/v1/sessions [post]
func CreateSessionHandler(m *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()
		s, err := m.Create(ctx)
		if err != nil {
			return kit.InternalError("create session failed", err.Error())
		}
		return kit.Created(c, view(s, m.StrictSave()))
	}
}

// GetSessionHandler reports which documents are open and whether they have
// unsaved changes.
//
//	@Summary      Get session
//	@Tags         sessions
//	@Produce      json
//	@Param        sid  path  string  true  "Session id"
//	@Success      200  {object}  map[string]interface{}
//	@Failure      404  {object}  map[string]interface{}
//	@Router       /api/v1/sessions/{sid} [get]
func GetSessionHandler(m *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()
		s, err := m.Get(ctx, c.Params("sid"))
		if err != nil {
			return kit.FromSession(err)
		}
		return kit.OK(c, view(s, m.StrictSave()))
	}
}

// DeleteSessionHandler discards a session and its unsaved edits.
//
//	@Summary      Delete session
//	@Tags         sessions
//	@Produce      json
//	@Param        sid  path  string  true  "Session id"
//	@Success      200  {object}  map[string]string
//	@Failure      404  {object}  map[string]interface{}
//	@Router       /api/v1/sessions/{sid} [delete]
func DeleteSessionHandler(m *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()
		if err := m.Delete(ctx, c.Params("sid")); err != nil {
			return kit.FromSession(err)
		}
		return kit.OK(c, fiber.Map{"status": "ok"})
	}
}
