// Package search exposes full text search over the items of saved schemas.
package search

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"

	"configtree/internal/esx"
	"configtree/internal/httpx/kit"
)

// ItemsHandler searches indexed schema items.
//
//	@Summary      Search items
//	@Description  Full text search over item names, descriptions and groups of saved schemas
//	@Tags         search
//	@Produce      json
//	@Param        q       query  string  true   "query"
//	@Param        limit   query  int     false  "page size"  default(20)
//	@Param        offset  query  int     false  "offset"     default(0)
//	@Success      200  {object}  map[string]interface{}
//	@Failure      400  {object}  map[string]interface{}
//	@Router       /api/v1/search/items [get]
func ItemsHandler(es *esx.Client, index func() string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := strings.TrimSpace(c.Query("q"))
		if q == "" {
			return kit.BadRequest("q required", nil)
		}
		limit := lo.Clamp(c.QueryInt("limit", 20), 1, 100)
		offset := lo.Max([]int{0, c.QueryInt("offset", 0)})

		ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
		defer cancel()
		hits, total, err := esx.SearchItems(ctx, es, index(), q, offset, limit)
		if err != nil {
			return kit.InternalError("es search failed", err.Error())
		}
		meta := kit.PageMeta{Limit: limit, Offset: offset, Count: len(hits), Total: total}
		if next := offset + len(hits); int64(next) < total {
			meta.NextOffset = &next
			meta.HasMore = true
		}
		return kit.List(c, hits, meta)
	}
}
