package routes

import (
	"cmp"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kwenta-ph/kwenta/backend/internal/server/util"
	"github.com/kwenta-ph/kwenta/backend/pkg/analytics"
	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/logger"
	"github.com/kwenta-ph/kwenta/backend/pkg/store"
)

func GetNodeHandler(c echo.Context) error {
	start := time.Now()
	id, err := pathID(c, "id")
	if err != nil {
		return util.FromError(c, err)
	}

	detail, err := analytics.NodeDetail(c.Request().Context(), app(c).Store, id)
	if err != nil {
		return util.FromError(c, err)
	}
	meta := newMeta(c, start)
	meta.NodeCount = 1 + len(detail.Neighbors)
	meta.EdgeCount = len(detail.Edges)
	return ok(c, detail, meta)
}

func GetNeighborsHandler(c echo.Context) error {
	type neighborsParams struct {
		Type   string `query:"type"`
		Limit  int    `query:"limit" validate:"omitempty,min=1,max=200"`
		Offset int    `query:"offset" validate:"omitempty,min=0"`
	}

	start := time.Now()
	params := new(neighborsParams)
	if err := bind(c, params); err != nil {
		return util.FromError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return util.FromError(c, err)
	}
	filter, err := nodeType(params.Type)
	if err != nil {
		return util.FromError(c, err)
	}
	limit := util.Clamp(params.Limit, 50, 1, 200)

	ctx := c.Request().Context()
	r := app(c).Store
	if _, err := r.GetNode(ctx, id); err != nil {
		return util.FromError(c, err)
	}
	edges, err := r.Neighbors(ctx, []string{id})
	if err != nil {
		return util.FromError(c, err)
	}
	others := make([]string, 0, len(edges))
	for _, e := range edges {
		others = append(others, e.Other(id))
	}
	nodes, err := r.GetNodes(ctx, store.DedupeStrings(others))
	if err != nil {
		return util.FromError(c, err)
	}
	if filter != "" {
		nodes = slices.DeleteFunc(nodes, func(n common.Node) bool { return n.Type != filter })
	}
	slices.SortFunc(nodes, func(a, b common.Node) int { return cmp.Compare(a.ID, b.ID) })

	page := nodes[min(params.Offset, len(nodes)):]
	page = page[:min(limit, len(page))]
	inPage := make(map[string]bool, len(page))
	for _, n := range page {
		inPage[n.ID] = true
	}
	kept := []common.Edge{}
	for _, e := range edges {
		if inPage[e.Other(id)] {
			kept = append(kept, e)
		}
	}

	meta := newMeta(c, start)
	meta.NodeCount = len(page)
	meta.EdgeCount = len(kept)
	meta.Count = len(nodes)
	return ok(c, common.Graph{Nodes: page, Edges: kept}, meta)
}

// SearchHandler matches node names by text. With semantic=true and an
// embedding model configured, it ranks nodes by embedding similarity
// instead and falls back to text search if the embedding fails.
func SearchHandler(c echo.Context) error {
	type searchParams struct {
		Query    string `query:"q" validate:"required,min=1,max=200"`
		Type     string `query:"type"`
		Limit    int    `query:"limit" validate:"omitempty,min=1,max=100"`
		Semantic string `query:"semantic"`
	}

	start := time.Now()
	params := new(searchParams)
	if err := bind(c, params); err != nil {
		return util.FromError(c, err)
	}
	filter, err := nodeType(params.Type)
	if err != nil {
		return util.FromError(c, err)
	}
	limit := util.Clamp(params.Limit, 20, 1, 100)

	ctx := c.Request().Context()
	a := app(c)
	var hits []common.SearchHit
	if util.QueryBool(params.Semantic) && a.Vectors != nil && a.AI != nil {
		vec, err := a.AI.GenerateEmbedding(ctx, []byte(params.Query))
		if err == nil {
			hits, err = a.Vectors.SearchSimilar(ctx, vec, filter, limit)
			if err != nil {
				return util.FromError(c, err)
			}
		} else {
			logger.Warn("[Server] Embedding failed, using text search", "err", err)
		}
	}
	if hits == nil {
		hits, err = a.Store.Search(ctx, params.Query, filter, limit)
		if err != nil {
			return util.FromError(c, err)
		}
	}
	meta := newMeta(c, start)
	meta.NodeCount = len(hits)
	return ok(c, list(hits), meta)
}

func PathHandler(c echo.Context) error {
	type pathParams struct {
		From     string `query:"from" validate:"required"`
		To       string `query:"to" validate:"required"`
		MaxDepth int    `query:"max_depth" validate:"omitempty,min=1,max=10"`
	}

	start := time.Now()
	params := new(pathParams)
	if err := bind(c, params); err != nil {
		return util.FromError(c, err)
	}
	depth := util.Clamp(params.MaxDepth, analytics.DefaultMaxHops, 1, analytics.MaxHopsLimit)

	ctx := c.Request().Context()
	r := app(c).Store
	path, err := analytics.ShortestPath(ctx, r, params.From, params.To, depth)
	if errors.Is(err, common.ErrNotFound) {
		found, nerr := r.GetNodes(ctx, []string{params.From, params.To})
		if nerr == nil && len(found) == 2 {
			return util.Error(c, http.StatusNotFound, util.CodeNoPath,
				fmt.Sprintf("No path found between %s and %s within %d hops", params.From, params.To, depth))
		}
	}
	if err != nil {
		return util.FromError(c, err)
	}

	meta := newMeta(c, start)
	meta.NodeCount = len(path.Nodes)
	meta.EdgeCount = len(path.Edges)
	return ok(c, path, meta)
}

func SubgraphHandler(c echo.Context) error {
	type subgraphParams struct {
		Center string `query:"center" validate:"required"`
		Depth  int    `query:"depth" validate:"omitempty,min=1,max=4"`
		Limit  int    `query:"limit" validate:"omitempty,min=1,max=500"`
	}

	start := time.Now()
	params := new(subgraphParams)
	if err := bind(c, params); err != nil {
		return util.FromError(c, err)
	}

	g, err := analytics.Subgraph(c.Request().Context(), app(c).Store, params.Center, params.Depth, params.Limit)
	if err != nil {
		return util.FromError(c, err)
	}
	meta := newMeta(c, start)
	meta.NodeCount = len(g.Nodes)
	meta.EdgeCount = len(g.Edges)
	return ok(c, g, meta)
}

func MultiHopHandler(c echo.Context) error {
	type multiHopParams struct {
		MinHops int `query:"min_hops" validate:"omitempty,min=1,max=6"`
		MaxHops int `query:"max_hops" validate:"omitempty,min=1,max=6"`
		Limit   int `query:"limit" validate:"omitempty,min=1,max=100"`
	}

	start := time.Now()
	params := new(multiHopParams)
	if err := bind(c, params); err != nil {
		return util.FromError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return util.FromError(c, err)
	}

	paths, err := analytics.MultiHopPaths(c.Request().Context(), app(c).Store, id, params.MinHops, params.MaxHops, params.Limit)
	if err != nil {
		return util.FromError(c, err)
	}
	meta := newMeta(c, start)
	meta.Count = len(paths)
	return ok(c, list(paths), meta)
}
