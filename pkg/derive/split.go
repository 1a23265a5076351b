package derive

import (
	"cmp"
	"slices"
	"time"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/logger"
)

// Procurement thresholds (PHP) above which stricter bidding rules apply.
var DefaultSplitThresholds = []float64{50_000, 1_000_000, 5_000_000}

type SplitOptions struct {
	Thresholds []float64
	// BandLow is the lower edge of the seed band as a fraction of the threshold.
	BandLow    float64
	WindowDays int
	RatioLow   float64
	RatioHigh  float64
	AgencyKey  string
	AmountKey  string
	DateKey    string
	RefKey     string
}

func DefaultSplitOptions() SplitOptions {
	return SplitOptions{
		Thresholds: DefaultSplitThresholds,
		BandLow:    0.7,
		WindowDays: 30,
		RatioLow:   0.5,
		RatioHigh:  2.0,
		AgencyKey:  "procuring_entity",
		AmountKey:  "amount",
		DateKey:    "award_date",
		RefKey:     "reference_number",
	}
}

func (o SplitOptions) withDefaults() SplitOptions {
	d := DefaultSplitOptions()
	if len(o.Thresholds) == 0 {
		o.Thresholds = d.Thresholds
	}
	if o.BandLow <= 0 || o.BandLow > 1 {
		o.BandLow = d.BandLow
	}
	if o.WindowDays <= 0 {
		o.WindowDays = d.WindowDays
	}
	if o.RatioLow <= 0 {
		o.RatioLow = d.RatioLow
	}
	if o.RatioHigh <= 0 {
		o.RatioHigh = d.RatioHigh
	}
	if o.AgencyKey == "" {
		o.AgencyKey = d.AgencyKey
	}
	if o.AmountKey == "" {
		o.AmountKey = d.AmountKey
	}
	if o.DateKey == "" {
		o.DateKey = d.DateKey
	}
	if o.RefKey == "" {
		o.RefKey = d.RefKey
	}
	return o
}

type SplitContract struct {
	Reference string    `json:"reference_number"`
	Amount    float64   `json:"amount"`
	Date      time.Time `json:"award_date"`
}

// SplitCluster is one suspected split: a seed just under a threshold and the
// similar-sized awards that followed it within the window.
type SplitCluster struct {
	Agency        string          `json:"agency"`
	Threshold     float64         `json:"threshold"`
	ContractCount int             `json:"contract_count"`
	TotalAmount   float64         `json:"total_amount"`
	Contracts     []SplitContract `json:"contracts"`
}

// SplitContracts looks for suspected contract splitting per agency. A record
// whose amount lies in [BandLow*t, t] for some threshold t seeds a search
// forward in date order for awards within WindowDays whose amount is between
// RatioLow and RatioHigh times the seed. Every seed with at least one match
// yields a cluster; clusters from different seeds may overlap.
func SplitContracts(records []common.Record, opts SplitOptions) ([]SplitCluster, Stats) {
	opts = opts.withDefaults()
	stats := Stats{Records: len(records)}

	byAgency := make(map[string][]SplitContract)
	var agencies []string
	for _, r := range records {
		agency := r.Text(opts.AgencyKey)
		amount, okAmount := r.Float(opts.AmountKey)
		date, okDate := r.Time(opts.DateKey)
		if agency == "" || !okAmount || !okDate {
			stats.Skipped++
			continue
		}
		if _, ok := byAgency[agency]; !ok {
			agencies = append(agencies, agency)
		}
		byAgency[agency] = append(byAgency[agency], SplitContract{
			Reference: r.Text(opts.RefKey),
			Amount:    amount,
			Date:      date,
		})
	}

	window := time.Duration(opts.WindowDays) * 24 * time.Hour
	var clusters []SplitCluster
	for _, agency := range agencies {
		contracts := byAgency[agency]
		slices.SortStableFunc(contracts, func(a, b SplitContract) int {
			return a.Date.Compare(b.Date)
		})

		for i, seed := range contracts {
			for _, threshold := range opts.Thresholds {
				if seed.Amount < threshold*opts.BandLow || seed.Amount > threshold {
					continue
				}
				group := []SplitContract{seed}
				for _, other := range contracts[i+1:] {
					if other.Date.Sub(seed.Date) > window {
						break
					}
					ratio := other.Amount / seed.Amount
					if ratio >= opts.RatioLow && ratio <= opts.RatioHigh {
						group = append(group, other)
					}
				}
				if len(group) < 2 {
					continue
				}
				total := 0.0
				for _, c := range group {
					total += c.Amount
				}
				clusters = append(clusters, SplitCluster{
					Agency:        agency,
					Threshold:     threshold,
					ContractCount: len(group),
					TotalAmount:   total,
					Contracts:     group,
				})
			}
		}
	}

	slices.SortStableFunc(clusters, func(a, b SplitCluster) int {
		return cmp.Compare(b.TotalAmount, a.TotalAmount)
	})
	if stats.Skipped > 0 {
		logger.Warn("[Derive] Skipped contract records missing agency, amount or date", "skipped", stats.Skipped)
	}
	return clusters, stats
}
