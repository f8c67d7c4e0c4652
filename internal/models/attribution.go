package models

import "time"

// AttributionRow is the result of left-joining a CallRow against the
// unioned AdRow set on the normalized UTM key. Every input call yields
// at least one row; when several ad rows share a key the join fans out
// to one row per match, which is kept rather than deduplicated. Ad-side
// fields are nil when no ad row matched.
type AttributionRow struct {
	CallID     string     `json:"call_id"`
	CallStatus CallStatus `json:"call_status"`
	UTM        UTMKey     `json:"utm"`

	// Ad side; nil for unmatched calls. Campaign id/name carry an _ad
	// suffix in persisted form to disambiguate from call-side fields.
	TenantID     *string   `json:"tenant_id"`
	Platform     *Platform `json:"ad_platform"`
	AdCampaignID *string   `json:"campaign_id_ad"`
	AdCampaign   *string   `json:"campaign_name_ad"`
	Spend        *float64  `json:"spend"`
	Impressions  *int64    `json:"impressions"`
	Clicks       *int64    `json:"clicks"`
}

// Matched reports whether the call found at least one ad row.
func (r *AttributionRow) Matched() bool {
	return r.Platform != nil
}

// GroupKey is the ROI aggregation key.
type GroupKey struct {
	TenantID string   `json:"tenant_id"`
	Platform Platform `json:"ad_platform"`
	UTM      UTMKey   `json:"utm"`
}

// RoiMetric is the per-campaign aggregate over attribution rows.
// CostPerCall is always defined: the divisor clamps to 1 when a group
// somehow carries zero calls.
type RoiMetric struct {
	GroupKey
	TenantName     string  `json:"tenant_name,omitempty"`
	TotalCalls     int64   `json:"total_calls"`
	CompletedCalls int64   `json:"completed_calls"`
	MissedCalls    int64   `json:"missed_calls"`
	TotalSpend     float64 `json:"total_spend"`
	CostPerCall    float64 `json:"cost_per_call"`
}

// StepName identifies one orchestrator step in a run report.
type StepName string

const (
	StepExtractGoogle StepName = "extract_google"
	StepExtractMeta   StepName = "extract_meta"
	StepMerge         StepName = "merge"
	StepAggregate     StepName = "aggregate"
	StepPersist       StepName = "persist"
)

// TenantResult records one tenant's extraction outcome for one
// platform: either a row count or a failure reason. Skipped means the
// tenant lacked credentials for the platform.
type TenantResult struct {
	TenantID string   `json:"tenant_id"`
	Platform Platform `json:"ad_platform"`
	Rows     int      `json:"rows"`
	Skipped  bool     `json:"skipped,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// RunReport is the orchestrator's account of a single pipeline run.
// The top-level OK flag is all an operator gets from the entry point;
// per-tenant granularity lives here and in the logs.
type RunReport struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	OK         bool           `json:"ok"`
	FailedStep StepName       `json:"failed_step,omitempty"`
	Error      string         `json:"error,omitempty"`
	Tenants    []TenantResult `json:"tenants"`

	AdRows          int `json:"ad_rows"`
	CallRows        int `json:"call_rows"`
	AttributionRows int `json:"attribution_rows"`
	MetricRows      int `json:"metric_rows"`
}

// RunStatus is the single etl_status record keyed "last_run".
type RunStatus struct {
	RunID      string    `json:"run_id"`
	FinishedAt time.Time `json:"finished_at"`
	OK         bool      `json:"ok"`
	Error      string    `json:"error,omitempty"`
}
