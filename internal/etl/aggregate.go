package etl

import (
	"math"
	"sort"

	"github.com/radiusdt/roi-tracker/internal/models"
)

// Aggregate groups attribution rows by (tenant, platform, source,
// medium, campaign) and computes the ROI metric per group. Unmatched
// calls land in a group with empty tenant and platform and contribute
// zero spend. No group is ever dropped; cost per call clamps its
// divisor to 1 so it is always defined.
func Aggregate(rows []models.AttributionRow) []models.RoiMetric {
	groups := make(map[models.GroupKey]*models.RoiMetric)

	for _, r := range rows {
		key := models.GroupKey{UTM: r.UTM}
		if r.TenantID != nil {
			key.TenantID = *r.TenantID
		}
		if r.Platform != nil {
			key.Platform = *r.Platform
		}

		m, ok := groups[key]
		if !ok {
			m = &models.RoiMetric{GroupKey: key}
			groups[key] = m
		}

		m.TotalCalls++
		switch r.CallStatus {
		case models.CallCompleted:
			m.CompletedCalls++
		case models.CallMissed:
			m.MissedCalls++
		}
		if r.Spend != nil {
			m.TotalSpend += *r.Spend
		}
	}

	out := make([]models.RoiMetric, 0, len(groups))
	for _, m := range groups {
		m.CostPerCall = costPerCall(m.TotalSpend, m.TotalCalls)
		out = append(out, *m)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.TenantID != b.TenantID {
			return a.TenantID < b.TenantID
		}
		if a.Platform != b.Platform {
			return a.Platform < b.Platform
		}
		if a.UTM.Source != b.UTM.Source {
			return a.UTM.Source < b.UTM.Source
		}
		if a.UTM.Medium != b.UTM.Medium {
			return a.UTM.Medium < b.UTM.Medium
		}
		return a.UTM.Campaign < b.UTM.Campaign
	})
	return out
}

// costPerCall divides spend by the call count, clamping a zero divisor
// to 1, rounded to 2 decimal places.
func costPerCall(spend float64, calls int64) float64 {
	if calls < 1 {
		calls = 1
	}
	return round2(spend / float64(calls))
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
