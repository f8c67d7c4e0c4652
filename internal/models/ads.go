package models

import "strings"

// Platform identifies an ad platform.
type Platform string

const (
	PlatformGoogle Platform = "Google"
	PlatformMeta   Platform = "Meta"
)

// UTMKey is the (source, medium, campaign) attribution triple used to
// join ad spend with call events.
type UTMKey struct {
	Source   string `json:"utm_source"`
	Medium   string `json:"utm_medium"`
	Campaign string `json:"utm_campaign"`
}

// Normalize lowercases and empty-fills the key. It must be applied on
// both sides of the attribution join before any comparison; an
// asymmetry here silently breaks matching.
func (k UTMKey) Normalize() UTMKey {
	return UTMKey{
		Source:   strings.ToLower(strings.TrimSpace(k.Source)),
		Medium:   strings.ToLower(strings.TrimSpace(k.Medium)),
		Campaign: strings.ToLower(strings.TrimSpace(k.Campaign)),
	}
}

// IsZero reports whether all three components are empty.
func (k UTMKey) IsZero() bool {
	return k.Source == "" && k.Medium == "" && k.Campaign == ""
}

// SlugifyCampaign derives a UTM campaign value from a human campaign
// name: lowercased, spaces replaced with underscores. Google Ads
// reporting has no native UTM fields, so the key is synthesized from
// the campaign name this way.
func SlugifyCampaign(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}

// AdRow is one normalized reporting row from one platform for one
// tenant. Rows are recomputed from a full snapshot every run and never
// merged with prior runs.
type AdRow struct {
	TenantID string   `json:"tenant_id"`
	Platform Platform `json:"ad_platform"`

	CampaignID   string `json:"campaign_id"`
	CampaignName string `json:"campaign_name"`
	AdID         string `json:"ad_id,omitempty"`
	AdName       string `json:"ad_name,omitempty"`
	AdsetID      string `json:"adset_id,omitempty"`
	AdsetName    string `json:"adset_name,omitempty"`
	AccountName  string `json:"account_name,omitempty"`
	Status       string `json:"status,omitempty"`
	Channel      string `json:"channel,omitempty"`
	StartDate    string `json:"start_date,omitempty"`
	EndDate      string `json:"end_date,omitempty"`

	Impressions int64 `json:"impressions"`
	Clicks      int64 `json:"clicks"`
	// Spend is nil when the platform report does not carry spend for
	// the row; downstream aggregation treats nil as 0.
	Spend *float64 `json:"spend"`

	UTM UTMKey `json:"utm"`
}

// SpendOrZero returns the reported spend, defaulting missing spend to 0.
func (r *AdRow) SpendOrZero() float64 {
	if r.Spend == nil {
		return 0
	}
	return *r.Spend
}
