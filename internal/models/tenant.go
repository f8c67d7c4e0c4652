package models

import "time"

// Role controls dashboard visibility. Admins see every tenant,
// regular users only their own.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// PlatformCredentials is the per-platform credential bundle stored on a
// tenant record. Field usage depends on the platform: Google Ads uses
// RefreshToken+CustomerID, Meta Ads uses AccessToken+AdAccountID.
type PlatformCredentials struct {
	RefreshToken string `json:"refresh_token,omitempty"`
	CustomerID   string `json:"customer_id,omitempty"`
	AccessToken  string `json:"access_token,omitempty"`
	AdAccountID  string `json:"ad_account_id,omitempty"`
}

// Tenant is one business tracked by the pipeline. Tenant records are
// created and updated by an external admin process; this pipeline only
// reads them.
type Tenant struct {
	ID        string                         `json:"id"`
	Name      string                         `json:"name"`
	Role      Role                           `json:"role"`
	Platforms map[string]PlatformCredentials `json:"platforms"`
	CreatedAt time.Time                      `json:"created_at"`
	UpdatedAt time.Time                      `json:"updated_at"`
}

// Platform config keys as stored in the tenants collection.
const (
	PlatformKeyGoogle = "google_ads"
	PlatformKeyMeta   = "meta_ads"
)

// GoogleCredentials returns the google_ads bundle and whether it is
// complete enough to attempt extraction.
func (t *Tenant) GoogleCredentials() (PlatformCredentials, bool) {
	c, ok := t.Platforms[PlatformKeyGoogle]
	if !ok || c.RefreshToken == "" || c.CustomerID == "" {
		return PlatformCredentials{}, false
	}
	return c, true
}

// MetaCredentials returns the meta_ads bundle and whether it is
// complete enough to attempt extraction.
func (t *Tenant) MetaCredentials() (PlatformCredentials, bool) {
	c, ok := t.Platforms[PlatformKeyMeta]
	if !ok || c.AccessToken == "" || c.AdAccountID == "" {
		return PlatformCredentials{}, false
	}
	return c, true
}

// IsAdmin reports whether the tenant has cross-tenant visibility.
func (t *Tenant) IsAdmin() bool {
	return t.Role == RoleAdmin
}
