// Package kit holds the response envelope, API errors and request helpers
// shared by the HTTP handler packages.
package kit

import (
	"bytes"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

// RequestID extracts request id from headers
func RequestID(c *fiber.Ctx) string {
	rid := c.GetRespHeader("X-Request-ID")
	return lo.Ternary(rid != "", rid, c.Get("X-Request-ID"))
}

func envelope(status int, code, msg string, data any, meta any, c *fiber.Ctx) error {
	body := fiber.Map{
		"code":       code,
		"message":    msg,
		"data":       data,
		"request_id": RequestID(c),
	}
	if meta != nil {
		body["meta"] = meta
	}
	return c.Status(status).JSON(body)
}

func OK(c *fiber.Ctx, data any) error {
	return envelope(fiber.StatusOK, "OK", "success", data, nil, c)
}

// Message is OK with a human readable message in place of "success".
func Message(c *fiber.Ctx, msg string, data any) error {
	return envelope(fiber.StatusOK, "OK", msg, data, nil, c)
}

func Created(c *fiber.Ctx, data any) error {
	return envelope(fiber.StatusCreated, "OK", "success", data, nil, c)
}

// PageMeta describes an offset page.
type PageMeta struct {
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
	Count      int   `json:"count"`
	Total      int64 `json:"total"`
	NextOffset *int  `json:"next_offset,omitempty"`
	HasMore    bool  `json:"has_more"`
}

func List(c *fiber.Ctx, items any, meta PageMeta) error {
	return envelope(fiber.StatusOK, "OK", "success", items, meta, c)
}

// DecodeJSON decodes the request body into v. Numbers are kept as
// json.Number so values keep the spelling the operator typed.
func DecodeJSON(c *fiber.Ctx, v any) error {
	body := c.Body()
	if len(bytes.TrimSpace(body)) == 0 {
		return BadRequest("request body required", nil)
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return BadRequest("invalid JSON body", err.Error())
	}
	return nil
}
