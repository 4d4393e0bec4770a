package model

import "time"

// Link is the hot record the dashboard keeps in Redis under "host:key".
// It carries just enough to route a request; secrets and preview metadata
// stay in the relational row.
type Link struct {
	URL      string `json:"url"`
	Password bool   `json:"password,omitempty"`
	Proxy    bool   `json:"proxy,omitempty"`
}

// LinkRecord is the full relational row owned by the dashboard.
type LinkRecord struct {
	Domain      string
	Key         string
	URL         string
	Archived    bool
	ExpiresAt   *time.Time
	Password    string
	Title       string
	Description string
	Image       string
}

// HasPreview reports whether the record carries a complete preview triple.
func (r *LinkRecord) HasPreview() bool {
	return r.Title != "" && r.Description != "" && r.Image != ""
}

// Expired reports whether the row's expiry timestamp has passed.
func (r *LinkRecord) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && now.After(*r.ExpiresAt)
}
