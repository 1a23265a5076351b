package routes

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kwenta-ph/kwenta/backend/internal/server/util"
	"github.com/kwenta-ph/kwenta/backend/pkg/analytics"
	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/derive"
	"github.com/kwenta-ph/kwenta/backend/pkg/detect"
	"github.com/kwenta-ph/kwenta/backend/pkg/store"
)

// storedLookup serves profile red flags from the persisted flag set.
type storedLookup struct {
	flags store.FlagStore
}

func (l storedLookup) FlagsFor(ctx context.Context, entityID string) ([]common.RedFlag, error) {
	entities, err := l.flags.ListFlags(ctx, "", 0)
	if err != nil {
		return nil, err
	}
	for _, e := range entities {
		if e.EntityID == entityID {
			return e.Flags, nil
		}
	}
	return []common.RedFlag{}, nil
}

func ConcentrationHandler(c echo.Context) error {
	start := time.Now()
	id, err := pathID(c, "id")
	if err != nil {
		return util.FromError(c, err)
	}

	report, err := analytics.AgencyConcentration(c.Request().Context(), app(c).Store, id)
	if err != nil {
		return util.FromError(c, err)
	}
	meta := newMeta(c, start)
	meta.NodeCount = 1 + report.ContractorCount
	return ok(c, report, meta)
}

// ProfileHandler returns a contractor profile. Red flags are computed live
// unless source=stored asks for the persisted set.
func ProfileHandler(c echo.Context) error {
	type profileParams struct {
		Source string `query:"source" validate:"omitempty,oneof=live stored"`
	}

	start := time.Now()
	params := new(profileParams)
	if err := bind(c, params); err != nil {
		return util.FromError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return util.FromError(c, err)
	}

	a := app(c)
	var lookup analytics.FlagLookup = detect.EntityFlags{Reader: a.Store, Params: a.Detect}
	if params.Source == "stored" {
		lookup = storedLookup{flags: a.Store}
	}
	profile, err := analytics.ContractorProfile(c.Request().Context(), a.Store, id, lookup)
	if err != nil {
		return util.FromError(c, err)
	}
	meta := newMeta(c, start)
	meta.NodeCount = 1 + len(profile.Agencies) + len(profile.CoBidders)
	return ok(c, profile, meta)
}

// RedFlagsHandler lists flagged entities by risk score. The default live
// source runs every detector; detectors that fail are named in
// meta.partial. source=stored reads the last persisted run.
func RedFlagsHandler(c echo.Context) error {
	type redFlagParams struct {
		Severity string `query:"severity" validate:"omitempty,oneof=critical high medium low"`
		Limit    int    `query:"limit" validate:"omitempty,min=1,max=200"`
		Source   string `query:"source" validate:"omitempty,oneof=live stored"`
	}

	start := time.Now()
	params := new(redFlagParams)
	if err := bind(c, params); err != nil {
		return util.FromError(c, err)
	}
	limit := util.Clamp(params.Limit, 50, 1, 200)
	severity := common.Severity(params.Severity)

	ctx := c.Request().Context()
	a := app(c)
	var meta Meta
	var entities []common.FlaggedEntity
	if params.Source == "stored" {
		var err error
		entities, err = a.Store.ListFlags(ctx, severity, limit)
		if err != nil {
			return util.FromError(c, err)
		}
		meta = newMeta(c, start)
	} else {
		rep := detect.DetectAll(ctx, a.Store, a.Detect)
		if len(rep.Failures) == len(detect.Names()) {
			return util.FromError(c, fmt.Errorf("%w: every detector failed", common.ErrStoreUnavailable))
		}
		entities = detect.GroupByEntity(rep.All(), severity, limit)
		meta = newMeta(c, start)
		for _, name := range detect.Names() {
			if _, failed := rep.Failures[name]; failed {
				meta.Partial = append(meta.Partial, name)
			}
		}
	}
	meta.NodeCount = len(entities)
	return ok(c, list(entities), meta)
}

func DetectorsHandler(c echo.Context) error {
	meta := newMeta(c, time.Now())
	names := detect.Names()
	meta.Count = len(names)
	return ok(c, names, meta)
}

func DetectorHandler(c echo.Context) error {
	start := time.Now()
	name, err := pathID(c, "name")
	if err != nil {
		return util.FromError(c, err)
	}

	flags, err := detect.RunDetector(c.Request().Context(), app(c).Store, name, app(c).Detect)
	if err != nil {
		return util.FromError(c, err)
	}
	meta := newMeta(c, start)
	meta.Count = len(flags)
	return ok(c, list(flags), meta)
}

func StatsHandler(c echo.Context) error {
	start := time.Now()
	stats, err := analytics.Stats(c.Request().Context(), app(c).Store)
	if err != nil {
		return util.FromError(c, err)
	}
	meta := newMeta(c, start)
	meta.NodeCount = stats.TotalNodes
	meta.EdgeCount = stats.TotalEdges
	return ok(c, stats, meta)
}

func CommunitiesHandler(c echo.Context) error {
	type communityParams struct {
		MinConnections int `query:"min_connections" validate:"omitempty,min=1,max=10"`
	}

	start := time.Now()
	params := new(communityParams)
	if err := bind(c, params); err != nil {
		return util.FromError(c, err)
	}

	communities, err := analytics.Communities(c.Request().Context(), app(c).Store, params.MinConnections)
	if err != nil {
		return util.FromError(c, err)
	}
	meta := newMeta(c, start)
	meta.Count = len(communities)
	return ok(c, list(communities), meta)
}

func SubcontractCyclesHandler(c echo.Context) error {
	type cycleParams struct {
		MaxLength int `query:"max_length" validate:"omitempty,min=2,max=6"`
	}

	start := time.Now()
	params := new(cycleParams)
	if err := bind(c, params); err != nil {
		return util.FromError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return util.FromError(c, err)
	}

	cycles, err := analytics.SubcontractCycles(c.Request().Context(), app(c).Store, id, params.MaxLength)
	if err != nil {
		return util.FromError(c, err)
	}
	meta := newMeta(c, start)
	meta.Count = len(cycles)
	return ok(c, list(cycles), meta)
}

func CampaignContractsHandler(c echo.Context) error {
	start := time.Now()
	id, err := pathID(c, "id")
	if err != nil {
		return util.FromError(c, err)
	}

	paths, err := analytics.CampaignContracts(c.Request().Context(), app(c).Store, id)
	if err != nil {
		return util.FromError(c, err)
	}
	meta := newMeta(c, start)
	meta.Count = len(paths)
	return ok(c, list(paths), meta)
}

func PhoenixCompaniesHandler(c echo.Context) error {
	start := time.Now()
	pairs, err := analytics.PhoenixCompanies(c.Request().Context(), app(c).Store)
	if err != nil {
		return util.FromError(c, err)
	}
	meta := newMeta(c, start)
	meta.Count = len(pairs)
	return ok(c, list(pairs), meta)
}

func SALNTimelineHandler(c echo.Context) error {
	start := time.Now()
	id, err := pathID(c, "id")
	if err != nil {
		return util.FromError(c, err)
	}

	entries, err := analytics.SALNTimeline(c.Request().Context(), app(c).Store, id)
	if err != nil {
		return util.FromError(c, err)
	}
	meta := newMeta(c, start)
	meta.Count = len(entries)
	return ok(c, list(entries), meta)
}

func SplitClustersHandler(c echo.Context) error {
	type splitResponse struct {
		Clusters []derive.SplitCluster `json:"clusters"`
		Stats    derive.Stats          `json:"stats"`
	}

	start := time.Now()
	clusters, stats, err := analytics.SplitClusters(c.Request().Context(), app(c).Store, derive.DefaultSplitOptions())
	if err != nil {
		return util.FromError(c, err)
	}
	meta := newMeta(c, start)
	meta.Count = len(clusters)
	return ok(c, splitResponse{Clusters: list(clusters), Stats: stats}, meta)
}

type scanParams struct {
	Limit int `query:"limit" validate:"omitempty,min=1,max=500"`
}

func RoundAmountsHandler(c echo.Context) error {
	start := time.Now()
	params := new(scanParams)
	if err := bind(c, params); err != nil {
		return util.FromError(c, err)
	}
	rows, err := analytics.RoundAmounts(c.Request().Context(), app(c).Store, params.Limit)
	if err != nil {
		return util.FromError(c, err)
	}
	meta := newMeta(c, start)
	meta.Count = len(rows)
	return ok(c, list(rows), meta)
}

func IdenticalAmountsHandler(c echo.Context) error {
	start := time.Now()
	params := new(scanParams)
	if err := bind(c, params); err != nil {
		return util.FromError(c, err)
	}
	groups, err := analytics.IdenticalAmounts(c.Request().Context(), app(c).Store, params.Limit)
	if err != nil {
		return util.FromError(c, err)
	}
	meta := newMeta(c, start)
	meta.Count = len(groups)
	return ok(c, list(groups), meta)
}

func SpendingTimelineHandler(c echo.Context) error {
	start := time.Now()
	months, err := analytics.SpendingTimeline(c.Request().Context(), app(c).Store)
	if err != nil {
		return util.FromError(c, err)
	}
	meta := newMeta(c, start)
	meta.Count = len(months)
	return ok(c, list(months), meta)
}

func ContractorReachHandler(c echo.Context) error {
	start := time.Now()
	params := new(scanParams)
	if err := bind(c, params); err != nil {
		return util.FromError(c, err)
	}
	reach, err := analytics.ContractorReach(c.Request().Context(), app(c).Store, params.Limit)
	if err != nil {
		return util.FromError(c, err)
	}
	meta := newMeta(c, start)
	meta.Count = len(reach)
	return ok(c, list(reach), meta)
}

func EntityContractsHandler(c echo.Context) error {
	type contractParams struct {
		Counterpart string `query:"counterpart"`
		Limit       int    `query:"limit" validate:"omitempty,min=1,max=200"`
	}

	start := time.Now()
	params := new(contractParams)
	if err := bind(c, params); err != nil {
		return util.FromError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return util.FromError(c, err)
	}

	rows, err := analytics.EntityContracts(c.Request().Context(), app(c).Store, id, params.Counterpart, util.Clamp(params.Limit, 20, 1, 200))
	if err != nil {
		return util.FromError(c, err)
	}
	meta := newMeta(c, start)
	meta.Count = len(rows)
	return ok(c, list(rows), meta)
}

func EntityAuditFindingsHandler(c echo.Context) error {
	type findingParams struct {
		Limit int `query:"limit" validate:"omitempty,min=1,max=100"`
	}

	start := time.Now()
	params := new(findingParams)
	if err := bind(c, params); err != nil {
		return util.FromError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return util.FromError(c, err)
	}

	findings, err := analytics.EntityAuditFindings(c.Request().Context(), app(c).Store, id, util.Clamp(params.Limit, 10, 1, 100))
	if err != nil {
		return util.FromError(c, err)
	}
	meta := newMeta(c, start)
	meta.Count = len(findings)
	return ok(c, list(findings), meta)
}
