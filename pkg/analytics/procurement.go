package analytics

import (
	"cmp"
	"context"
	"math"
	"slices"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/derive"
	"github.com/kwenta-ph/kwenta/backend/pkg/store"
)

const (
	scanMinAmount    = 1_000_000
	roundAmountUnit  = 500_000
	DefaultScanLimit = 50
)

// contractsView loads every contract with its agency and contractor.
func contractsView(ctx context.Context, r store.GraphReader) (*store.View, error) {
	return store.LoadView(ctx, r,
		[]common.NodeType{common.NodeAgency, common.NodeContract, common.NodeContractor},
		[]common.EdgeType{common.EdgeProcured, common.EdgeAwardedTo})
}

func scanLimit(limit int) int {
	if limit <= 0 {
		return DefaultScanLimit
	}
	return min(limit, 500)
}

// RoundAmounts lists contracts above PHP 1M whose amount is an exact multiple
// of PHP 500,000, largest first.
func RoundAmounts(ctx context.Context, r store.GraphReader, limit int) ([]ContractRow, error) {
	v, err := contractsView(ctx, r)
	if err != nil {
		return nil, err
	}
	out := []ContractRow{}
	for _, c := range v.NodesOf(common.NodeContract) {
		amount, ok := c.Properties.Float("amount")
		if !ok || amount <= scanMinAmount || math.Mod(amount, roundAmountUnit) != 0 {
			continue
		}
		out = append(out, contractRow(v, c.ID))
	}
	sortByAmount(out)
	return out[:min(len(out), scanLimit(limit))], nil
}

type AmountGroup struct {
	Amount    float64       `json:"amount"`
	Count     int           `json:"count"`
	Contracts []ContractRow `json:"contracts"`
}

// IdenticalAmounts groups contracts above PHP 1M that share the exact same
// amount, largest groups first.
func IdenticalAmounts(ctx context.Context, r store.GraphReader, limit int) ([]AmountGroup, error) {
	v, err := contractsView(ctx, r)
	if err != nil {
		return nil, err
	}
	byAmount := make(map[float64][]ContractRow)
	for _, c := range v.NodesOf(common.NodeContract) {
		amount, ok := c.Properties.Float("amount")
		if !ok || amount <= scanMinAmount {
			continue
		}
		byAmount[amount] = append(byAmount[amount], contractRow(v, c.ID))
	}
	out := []AmountGroup{}
	for amount, rows := range byAmount {
		if len(rows) < 2 {
			continue
		}
		out = append(out, AmountGroup{Amount: amount, Count: len(rows), Contracts: rows})
	}
	slices.SortFunc(out, func(a, b AmountGroup) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(b.Amount, a.Amount)
	})
	return out[:min(len(out), scanLimit(limit))], nil
}

type MonthSpend struct {
	Month string  `json:"month"`
	Count int     `json:"count"`
	Value float64 `json:"value"`
}

// SpendingTimeline sums contract value per award month. Contracts without a
// readable award date are left out.
func SpendingTimeline(ctx context.Context, r store.GraphReader) ([]MonthSpend, error) {
	contracts, err := r.NodesByType(ctx, common.NodeContract)
	if err != nil {
		return nil, err
	}
	byMonth := make(map[string]*MonthSpend)
	for _, c := range contracts {
		d, ok := c.Properties.Time("award_date")
		if !ok {
			continue
		}
		key := d.Format("2006-01")
		m, ok := byMonth[key]
		if !ok {
			m = &MonthSpend{Month: key}
			byMonth[key] = m
		}
		m.Count++
		m.Value += c.Properties.FloatOr("amount", 0)
	}
	out := make([]MonthSpend, 0, len(byMonth))
	for _, m := range byMonth {
		out = append(out, *m)
	}
	slices.SortFunc(out, func(a, b MonthSpend) int { return cmp.Compare(a.Month, b.Month) })
	return out, nil
}

type Reach struct {
	ContractorID   string   `json:"contractor_id"`
	ContractorName string   `json:"contractor_name"`
	AgencyCount    int      `json:"agency_count"`
	Agencies       []string `json:"agencies"`
	ContractCount  int      `json:"contract_count"`
	TotalValue     float64  `json:"total_value"`
}

// ContractorReach lists contractors serving at least two agencies, widest
// reach first.
func ContractorReach(ctx context.Context, r store.GraphReader, limit int) ([]Reach, error) {
	v, err := contractsView(ctx, r)
	if err != nil {
		return nil, err
	}
	out := []Reach{}
	for _, con := range v.NodesOf(common.NodeContractor) {
		rc := Reach{ContractorID: con.ID, ContractorName: con.Label()}
		agencies := make(map[string]bool)
		for _, a := range v.In(common.EdgeAwardedTo, con.ID) {
			rc.ContractCount++
			rc.TotalValue += v.Props(a.Source).FloatOr("amount", 0)
			for _, p := range v.In(common.EdgeProcured, a.Source) {
				if !agencies[p.Source] {
					agencies[p.Source] = true
					rc.Agencies = append(rc.Agencies, v.Name(p.Source))
				}
			}
		}
		if len(agencies) < 2 {
			continue
		}
		rc.AgencyCount = len(agencies)
		slices.Sort(rc.Agencies)
		out = append(out, rc)
	}
	slices.SortStableFunc(out, func(a, b Reach) int {
		if c := cmp.Compare(b.AgencyCount, a.AgencyCount); c != 0 {
			return c
		}
		return cmp.Compare(b.TotalValue, a.TotalValue)
	})
	return out[:min(len(out), scanLimit(limit))], nil
}

// SplitClusters runs split-contract derivation over the stored contracts,
// grouping by procuring agency.
func SplitClusters(ctx context.Context, r store.GraphReader, opts derive.SplitOptions) ([]derive.SplitCluster, derive.Stats, error) {
	v, err := contractsView(ctx, r)
	if err != nil {
		return nil, derive.Stats{}, err
	}
	opts.AgencyKey = "procuring_entity"
	records := make([]common.Record, 0, len(v.NodesOf(common.NodeContract)))
	for _, c := range v.NodesOf(common.NodeContract) {
		row := contractRow(v, c.ID)
		rec := common.Record{
			"procuring_entity": row.AgencyName,
			"reference_number": row.ReferenceNumber,
		}
		if amount, ok := c.Properties.Float("amount"); ok {
			rec["amount"] = amount
		}
		if row.AwardDate != "" {
			rec["award_date"] = row.AwardDate
		}
		records = append(records, rec)
	}
	clusters, stats := derive.SplitContracts(records, opts)
	if clusters == nil {
		clusters = []derive.SplitCluster{}
	}
	return clusters, stats, nil
}

func sortByAmount(rows []ContractRow) {
	slices.SortStableFunc(rows, func(a, b ContractRow) int {
		if c := cmp.Compare(b.Amount, a.Amount); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
