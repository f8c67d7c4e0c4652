package etl

import (
	"github.com/radiusdt/roi-tracker/internal/models"
)

// MergeResult is the merge step output plus the counters the run
// report and metrics want.
type MergeResult struct {
	Rows []models.AttributionRow
	// Unmatched counts calls with no ad row on their key.
	Unmatched int
	// DuplicateKeys counts normalized keys carried by more than one ad
	// row. Such keys fan the join out to multiple rows per call; the
	// fan-out is kept, not deduplicated.
	DuplicateKeys int
}

// Merge left-joins the call snapshot against the unioned ad row set on
// the normalized UTM key. Every call yields at least one output row;
// calls with no match keep nil ad-side fields.
func Merge(adRows []models.AdRow, calls []models.CallRow) MergeResult {
	// Build phase: multimap of normalized key -> ad rows.
	index := make(map[models.UTMKey][]*models.AdRow, len(adRows))
	for i := range adRows {
		k := adRows[i].UTM.Normalize()
		index[k] = append(index[k], &adRows[i])
	}

	var res MergeResult
	for _, matches := range index {
		if len(matches) > 1 {
			res.DuplicateKeys++
		}
	}

	// Probe phase.
	res.Rows = make([]models.AttributionRow, 0, len(calls))
	for _, call := range calls {
		k := call.UTM.Normalize()
		matches := index[k]

		if len(matches) == 0 {
			res.Unmatched++
			res.Rows = append(res.Rows, models.AttributionRow{
				CallID:     call.CallID,
				CallStatus: call.Status,
				UTM:        k,
			})
			continue
		}

		for _, ad := range matches {
			platform := ad.Platform
			tenantID := ad.TenantID
			campaignID := ad.CampaignID
			campaignName := ad.CampaignName
			impressions := ad.Impressions
			clicks := ad.Clicks

			row := models.AttributionRow{
				CallID:       call.CallID,
				CallStatus:   call.Status,
				UTM:          k,
				TenantID:     &tenantID,
				Platform:     &platform,
				AdCampaignID: &campaignID,
				AdCampaign:   &campaignName,
				Impressions:  &impressions,
				Clicks:       &clicks,
			}
			if ad.Spend != nil {
				spend := *ad.Spend
				row.Spend = &spend
			}
			res.Rows = append(res.Rows, row)
		}
	}

	return res
}
