package timeseries

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pricepally/forecasting/internal/calendar"
	"github.com/pricepally/forecasting/internal/logging"
)

// AggregateOptions controls BuildWeekly
type AggregateOptions struct {
	// FilterAttributeProducts drops rows whose product is in AttributeProducts
	FilterAttributeProducts bool

	// AttributeProducts overrides the built-in exclusion list when non-empty
	AttributeProducts []string

	// SkipInvalidDates skips rows whose business week cannot be mapped to a
	// date instead of failing the whole build
	SkipInvalidDates bool
}

// DefaultAggregateOptions filters attribute-only products and fails on bad dates
func DefaultAggregateOptions() AggregateOptions {
	return AggregateOptions{FilterAttributeProducts: true}
}

// AggregateStats describes one BuildWeekly run
type AggregateStats struct {
	InputRows    int `json:"input_rows"`
	FilteredRows int `json:"filtered_rows"` // Dropped as attribute-only
	InvalidRows  int `json:"invalid_rows"`  // Skipped because of an unmappable week
	Groups       int `json:"groups"`
	Observations int `json:"observations"`
}

type weekKey struct {
	year, month, week int
	group             GroupKey
}

type weekSums struct {
	invoiced  float64
	delivered float64
}

// BuildWeekly aggregates transactions into one observation per group and
// business week. The weekly quantity is the larger of the summed invoiced
// and summed delivered quantities. Output is sorted by group key and date.
func BuildWeekly(rows []Transaction, opts AggregateOptions, logger *logging.Logger) ([]WeeklyObservation, AggregateStats, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	stats := AggregateStats{InputRows: len(rows)}

	var exclude ProductSet
	if opts.FilterAttributeProducts {
		if len(opts.AttributeProducts) > 0 {
			exclude = NewProductSet(opts.AttributeProducts)
		} else {
			exclude = NewProductSet(attributeOnlyProducts)
		}
	}

	sums := make(map[weekKey]*weekSums)
	order := make([]weekKey, 0)

	for _, r := range rows {
		if exclude != nil && exclude.Contains(r.ProductName) {
			stats.FilteredRows++
			continue
		}

		k := weekKey{year: r.Year, month: r.Month, week: r.WeekMonth, group: r.Key()}
		s, ok := sums[k]
		if !ok {
			s = &weekSums{}
			sums[k] = s
			order = append(order, k)
		}
		s.invoiced += r.QtyInvoiced
		s.delivered += r.QtyDelivered
	}

	if stats.FilteredRows > 0 {
		logger.Info("Filtered attribute-only product rows",
			"filtered", stats.FilteredRows,
			"percent", fmt.Sprintf("%.1f", float64(stats.FilteredRows)/float64(stats.InputRows)*100))
	}

	out := make([]WeeklyObservation, 0, len(order))
	groups := make(map[GroupKey]struct{})
	for _, k := range order {
		date, err := calendar.WeekToDate(k.year, k.month, k.week)
		if err != nil {
			if !opts.SkipInvalidDates {
				return nil, stats, fmt.Errorf("map %s %04d-%02d week %d: %w", k.group, k.year, k.month, k.week, err)
			}
			stats.InvalidRows++
			logger.Warn("Skipping unmappable business week",
				"group", k.group.String(), "year", k.year, "month", k.month, "week", k.week, "error", err)
			continue
		}

		s := sums[k]
		out = append(out, WeeklyObservation{
			Year:      k.year,
			Month:     k.month,
			WeekMonth: k.week,
			GroupKey:  k.group,
			Qty:       max(s.invoiced, s.delivered),
			Date:      date,
		})
		groups[k.group] = struct{}{}
	}

	slices.SortStableFunc(out, WeeklyObservation.Compare)

	stats.Groups = len(groups)
	stats.Observations = len(out)
	logger.Info("Weekly timeseries created",
		"rows", stats.Observations,
		"groups", stats.Groups,
		"invalid_rows", stats.InvalidRows)

	return out, stats, nil
}

// FilterSalesChannels keeps rows whose sales channel is in allow, ignoring
// case. An empty allowlist keeps every row.
func FilterSalesChannels(rows []Transaction, allow []string) []Transaction {
	if len(allow) == 0 {
		out := make([]Transaction, len(rows))
		copy(out, rows)
		return out
	}

	allowed := make(map[string]struct{}, len(allow))
	for _, a := range allow {
		allowed[strings.ToLower(strings.TrimSpace(a))] = struct{}{}
	}

	out := make([]Transaction, 0, len(rows))
	for _, r := range rows {
		if _, ok := allowed[strings.ToLower(strings.TrimSpace(r.SalesType))]; ok {
			out = append(out, r)
		}
	}
	return out
}

// CountGroups returns the number of distinct group keys
func CountGroups(obs []WeeklyObservation) int {
	seen := make(map[GroupKey]struct{})
	for _, o := range obs {
		seen[o.GroupKey] = struct{}{}
	}
	return len(seen)
}
