// Package types defines the wire types of the driver-capture local API.
package types

import "time"

// Sample is one captured inspection record as returned by the API.
type Sample struct {
	ID             string     `json:"id"`
	Description    string     `json:"description"`
	Retailer       string     `json:"retailer"`
	SizeKG         *float64   `json:"size_kg,omitempty"`
	PriceGBP       *float64   `json:"price_gbp,omitempty"`
	BirdTempC      *float64   `json:"bird_temp_c,omitempty"`
	VanTempC       *float64   `json:"van_temp_c,omitempty"`
	UseByDate      *time.Time `json:"use_by_date,omitempty"`
	PackCode       string     `json:"pack_code,omitempty"`
	Customer       string     `json:"customer,omitempty"`
	Supplier       string     `json:"supplier,omitempty"`
	Code           string     `json:"code,omitempty"`
	SampleNumber   int        `json:"sample_number"`
	CreatedAtLocal time.Time  `json:"created_at_local"`
	DeviceID       string     `json:"device_id,omitempty"`
	DriverID       string     `json:"driver_id,omitempty"`
	SyncStatus     string     `json:"sync_status"`
	ErrorMsg       string     `json:"error_msg,omitempty"`
}

// SampleInput is a candidate record. Numeric and date fields are raw text so
// malformed values come back as validation violations.
type SampleInput struct {
	ID             string `json:"id,omitempty"`
	Description    string `json:"description"`
	Retailer       string `json:"retailer"`
	SizeKG         string `json:"size_kg,omitempty"`
	PriceGBP       string `json:"price_gbp,omitempty"`
	BirdTempC      string `json:"bird_temp_c,omitempty"`
	VanTempC       string `json:"van_temp_c,omitempty"`
	UseByDate      string `json:"use_by_date,omitempty"`
	PackCode       string `json:"pack_code,omitempty"`
	Customer       string `json:"customer,omitempty"`
	Supplier       string `json:"supplier,omitempty"`
	Code           string `json:"code,omitempty"`
	SampleNumber   string `json:"sample_number,omitempty"`
	CreatedAtLocal string `json:"created_at_local,omitempty"`
	DeviceID       string `json:"device_id,omitempty"`
	DriverID       string `json:"driver_id,omitempty"`
}

// SampleList is a page of samples, newest first.
type SampleList struct {
	Samples []Sample `json:"samples"`
	Total   int      `json:"total"`
}

// StatusCounts reports how many samples are in each sync status.
type StatusCounts struct {
	Pending int `json:"pending"`
	Synced  int `json:"synced"`
	Error   int `json:"error"`
}

// SyncResult reports one completed sync run.
type SyncResult struct {
	Outcome string `json:"outcome"`
	Reason  string `json:"reason"`
	Count   int    `json:"count"`
}

// Snapshot is the device's network attachment at one instant.
type Snapshot struct {
	SSID    string `json:"ssid,omitempty"`
	WiredUp bool   `json:"wired_up"`
}

// Decision is the connectivity-gate outcome.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// SyncRuns is the run-history snapshot kept by the syncer.
type SyncRuns struct {
	InProgress     bool       `json:"in_progress"`
	LastAttemptAt  *time.Time `json:"last_attempt_at,omitempty"`
	LastSyncAt     *time.Time `json:"last_sync_at,omitempty"`
	LastOutcome    string     `json:"last_outcome,omitempty"`
	LastReason     string     `json:"last_reason,omitempty"`
	LastCount      int        `json:"last_count"`
	SuccessfulRuns int64      `json:"successful_runs"`
	BlockedRuns    int64      `json:"blocked_runs"`
	FailedRuns     int64      `json:"failed_runs"`
}

// SyncStatus is the full sync-status view: live connectivity, the gate's
// decision for it, sample counts and run history.
type SyncStatus struct {
	Snapshot     Snapshot     `json:"snapshot"`
	Decision     Decision     `json:"decision"`
	Counts       StatusCounts `json:"counts"`
	Runs         SyncRuns     `json:"runs"`
	AllowedSSIDs []string     `json:"allowed_ssids"`
}

// LookupOptions is the suggestion list for a capture form field.
type LookupOptions struct {
	Field   string   `json:"field"`
	Options []string `json:"options"`
}

// Problem is the API error body.
type Problem struct {
	Status     int      `json:"status"`
	Detail     string   `json:"detail"`
	Violations []string `json:"violations,omitempty"`
}
