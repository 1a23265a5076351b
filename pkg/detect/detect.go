// Package detect is the red-flag engine: a fixed catalog of independent
// detectors, each a read-only traversal of the accountability graph that
// returns typed findings with auditable evidence.
//
// Detectors never mutate the graph and keep no state between calls, so
// DetectAll runs them concurrently against the same reader.
package detect

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/logger"
	"github.com/kwenta-ph/kwenta/backend/pkg/store"

	"golang.org/x/sync/errgroup"
)

// Detector is one red-flag heuristic. It returns no flags and a nil error
// when nothing qualifies.
type Detector func(ctx context.Context, r store.GraphReader, p Params) ([]common.RedFlag, error)

// Observer receives one call per finished detector. internal/metrics
// implements it with Prometheus collectors.
type Observer interface {
	DetectorFinished(name string, took time.Duration, flags int, err error)
}

// Params holds every detector threshold. Zero fields take the defaults from
// DefaultParams.
type Params struct {
	// single_bidder
	SingleBidderMin int
	// identical_bids, relative to the smaller bid
	BidTolerance float64
	// split_contracts
	SplitThreshold    float64
	SplitBandLow      float64
	SplitMinContracts int
	// concentration
	HHIThreshold float64
	// rotating_winners
	RotationMinCoBids int
	// geographic_anomaly
	GeoMinContracts int
	// shell_company
	CapitalRatio float64
	// circular_flow
	MaxCycleLength int
	MaxCycles      int
	// timing_cluster
	TimingDays         int
	TimingMinContracts int

	// Concurrency bounds the detectors DetectAll runs at once.
	Concurrency int
	// Timeout bounds each detector run by DetectAll or RunDetector.
	Timeout time.Duration

	Observer Observer
	Now      func() time.Time
}

func DefaultParams() Params {
	return Params{
		SingleBidderMin:    3,
		BidTolerance:       0.001,
		SplitThreshold:     5_000_000,
		SplitBandLow:       0.7,
		SplitMinContracts:  3,
		HHIThreshold:       0.25,
		RotationMinCoBids:  3,
		GeoMinContracts:    3,
		CapitalRatio:       100,
		MaxCycleLength:     6,
		MaxCycles:          1000,
		TimingDays:         2,
		TimingMinContracts: 3,
		Concurrency:        4,
		Timeout:            60 * time.Second,
		Now:                time.Now,
	}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.SingleBidderMin <= 0 {
		p.SingleBidderMin = d.SingleBidderMin
	}
	if p.BidTolerance <= 0 {
		p.BidTolerance = d.BidTolerance
	}
	if p.SplitThreshold <= 0 {
		p.SplitThreshold = d.SplitThreshold
	}
	if p.SplitBandLow <= 0 || p.SplitBandLow > 1 {
		p.SplitBandLow = d.SplitBandLow
	}
	if p.SplitMinContracts <= 0 {
		p.SplitMinContracts = d.SplitMinContracts
	}
	if p.HHIThreshold <= 0 {
		p.HHIThreshold = d.HHIThreshold
	}
	if p.RotationMinCoBids <= 0 {
		p.RotationMinCoBids = d.RotationMinCoBids
	}
	if p.GeoMinContracts <= 0 {
		p.GeoMinContracts = d.GeoMinContracts
	}
	if p.CapitalRatio <= 0 {
		p.CapitalRatio = d.CapitalRatio
	}
	if p.MaxCycleLength < 2 {
		p.MaxCycleLength = d.MaxCycleLength
	}
	if p.MaxCycles <= 0 {
		p.MaxCycles = d.MaxCycles
	}
	if p.TimingDays <= 0 {
		p.TimingDays = d.TimingDays
	}
	if p.TimingMinContracts <= 0 {
		p.TimingMinContracts = d.TimingMinContracts
	}
	if p.Concurrency <= 0 {
		p.Concurrency = d.Concurrency
	}
	if p.Timeout <= 0 {
		p.Timeout = d.Timeout
	}
	if p.Now == nil {
		p.Now = d.Now
	}
	return p
}

type entry struct {
	name string
	flag string
	fn   Detector
}

// catalog is the fixed detector set, keyed by the names DetectAll reports.
// flag is the RedFlag.Type the detector emits.
var catalog = []entry{
	{"single_bidder", "single_bidder", SingleBidder},
	{"identical_bids", "identical_bid_amounts", IdenticalBids},
	{"split_contracts", "split_contracts", SplitContracts},
	{"concentration", "concentration", Concentration},
	{"rotating_winners", "rotating_winners", RotatingWinners},
	{"political_connections", "political_connection", PoliticalConnections},
	{"geographic_anomaly", "geographic_anomaly", GeographicAnomaly},
	{"shell_company", "shell_company", ShellCompany},
	{"phoenix_company", "phoenix_company", PhoenixCompany},
	{"campaign_connection", "campaign_connection", CampaignConnection},
	{"circular_flow", "circular_flow", CircularFlow},
	{"timing_cluster", "timing_cluster", TimingCluster},
	{"shell_network", "shell_network", ShellNetwork},
}

// DetectorOf returns the detector that emits flags of flagType.
func DetectorOf(flagType string) (string, bool) {
	for _, e := range catalog {
		if e.flag == flagType {
			return e.name, true
		}
	}
	return "", false
}

// Names lists the detector names in catalog order.
func Names() []string {
	out := make([]string, len(catalog))
	for i, e := range catalog {
		out[i] = e.name
	}
	return out
}

func lookup(name string) (Detector, bool) {
	for _, e := range catalog {
		if e.name == name {
			return e.fn, true
		}
	}
	return nil, false
}

// Report is the outcome of DetectAll. Flags has an entry for every detector,
// empty for detectors that failed; Failures holds the reason per failed
// detector.
type Report struct {
	Flags    map[string][]common.RedFlag `json:"flags"`
	Failures map[string]string           `json:"failures,omitempty"`
	Took     time.Duration               `json:"-"`
}

// All returns every flag in catalog order.
func (r Report) All() []common.RedFlag {
	var out []common.RedFlag
	for _, name := range Names() {
		out = append(out, r.Flags[name]...)
	}
	return out
}

// DetectAll runs the whole catalog with at most p.Concurrency detectors in
// flight. A failing detector degrades to no findings and never stops the
// others.
func DetectAll(ctx context.Context, r store.GraphReader, p Params) Report {
	p = p.withDefaults()
	now := p.Now()
	p.Now = func() time.Time { return now }

	start := time.Now()
	flags := make([][]common.RedFlag, len(catalog))
	errs := make([]error, len(catalog))

	var g errgroup.Group
	g.SetLimit(p.Concurrency)
	for i, e := range catalog {
		g.Go(func() error {
			flags[i], errs[i] = run(ctx, e.name, e.fn, r, p)
			return nil
		})
	}
	_ = g.Wait()

	rep := Report{
		Flags:    make(map[string][]common.RedFlag, len(catalog)),
		Failures: make(map[string]string),
		Took:     time.Since(start),
	}
	for i, e := range catalog {
		rep.Flags[e.name] = flags[i]
		if rep.Flags[e.name] == nil {
			rep.Flags[e.name] = []common.RedFlag{}
		}
		if errs[i] != nil {
			rep.Failures[e.name] = errs[i].Error()
		}
	}
	logger.Info("[Detect] Run finished", "flags", len(rep.All()), "failed", len(rep.Failures), "took", rep.Took)
	return rep
}

// RunDetector runs one detector by name. Unknown names yield
// common.ErrNotFound; other errors are returned unchanged.
func RunDetector(ctx context.Context, r store.GraphReader, name string, p Params) ([]common.RedFlag, error) {
	fn, ok := lookup(name)
	if !ok {
		return nil, common.NotFoundf("detector %q", name)
	}
	p = p.withDefaults()
	flags, err := run(ctx, name, fn, r, p)
	if err != nil {
		return nil, err
	}
	if flags == nil {
		flags = []common.RedFlag{}
	}
	return flags, nil
}

func run(ctx context.Context, name string, fn Detector, r store.GraphReader, p Params) (flags []common.RedFlag, err error) {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			logger.Debug("[Detect] Detector panic", "detector", name, "stack", string(debug.Stack()))
			flags, err = nil, fmt.Errorf("detector %s panicked: %v", name, rec)
		}
		if err != nil {
			logger.Error("[Detect] Detector failed", "detector", name, "err", err)
		}
		if p.Observer != nil {
			p.Observer.DetectorFinished(name, time.Since(start), len(flags), err)
		}
	}()

	flags, err = fn(ctx, r, p)
	if err != nil {
		return nil, err
	}
	return flags, nil
}

// GroupByEntity rolls flags up per subject entity, ordered by risk score.
// An empty severity keeps all flags; limit is clamped to [1, 200] with 50
// as the default.
func GroupByEntity(flags []common.RedFlag, severity common.Severity, limit int) []common.FlaggedEntity {
	switch {
	case limit <= 0:
		limit = 50
	case limit > 200:
		limit = 200
	}
	stored := make([]store.StoredFlag, 0, len(flags))
	for _, f := range flags {
		stored = append(stored, store.StoredFlag{Entity: f.Subject(), Flag: f})
	}
	return store.GroupFlags(stored, severity, limit)
}

// Persist replaces the stored flag set with the flags of rep, so the stored
// query path serves exactly what the live detectors produced.
func Persist(ctx context.Context, fs store.FlagStore, rep Report) error {
	all := rep.All()
	stored := make([]store.StoredFlag, 0, len(all))
	for _, f := range all {
		stored = append(stored, store.StoredFlag{Entity: f.Subject(), Flag: f})
	}
	if err := fs.ReplaceFlags(ctx, stored); err != nil {
		return fmt.Errorf("persist red flags: %w", err)
	}
	logger.Info("[Detect] Persisted red flags", "count", len(stored))
	return nil
}

// EntityFlags runs the catalog and returns the flags attributed to one
// entity. It backs the red-flag enrichment of contractor profiles.
type EntityFlags struct {
	Reader store.GraphReader
	Params Params
}

func (e EntityFlags) FlagsFor(ctx context.Context, entityID string) ([]common.RedFlag, error) {
	rep := DetectAll(ctx, e.Reader, e.Params)
	if len(rep.Failures) == len(catalog) {
		return nil, fmt.Errorf("%w: all detectors failed", common.ErrStoreUnavailable)
	}
	var out []common.RedFlag
	for _, f := range rep.All() {
		if f.Subject().ID == entityID {
			out = append(out, f)
		}
	}
	return out, nil
}

// LiveFlags serves grouped red flags computed on demand, in the shape of
// store.FlagStore.ListFlags.
type LiveFlags struct {
	Reader store.GraphReader
	Params Params
}

func (l LiveFlags) ListFlags(ctx context.Context, severity common.Severity, limit int) ([]common.FlaggedEntity, error) {
	rep := DetectAll(ctx, l.Reader, l.Params)
	if len(rep.Failures) == len(catalog) {
		return nil, fmt.Errorf("%w: all detectors failed", common.ErrStoreUnavailable)
	}
	return GroupByEntity(rep.All(), severity, limit), nil
}
