// Package model defines the sample record and its validation rules.
package model

import (
	"strings"
	"time"
)

// SyncStatus tracks a sample's remote-durability state.
type SyncStatus string

const (
	// StatusPending marks samples not yet written to the remote store.
	StatusPending SyncStatus = "pending"
	// StatusSynced marks samples durably stored remotely.
	StatusSynced SyncStatus = "synced"
	// StatusError marks samples whose last sync attempt failed.
	StatusError SyncStatus = "error"
)

// Valid reports whether the value is one of the three known statuses.
func (s SyncStatus) Valid() bool {
	switch s {
	case StatusPending, StatusSynced, StatusError:
		return true
	}
	return false
}

// Sample is one captured inspection record.
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
	SyncStatus     SyncStatus `json:"sync_status"`
	ErrorMsg       string     `json:"error_msg,omitempty"`
}

// SampleInput is a candidate record as produced by a capture form. Numeric
// and date fields arrive as raw text so that malformed values can be reported
// as validation violations instead of decode failures.
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

// StatusCounts reports how many samples are in each sync status. All three
// statuses are always present.
type StatusCounts struct {
	Pending int `json:"pending"`
	Synced  int `json:"synced"`
	Error   int `json:"error"`
}

// ValidationError carries the full ordered list of business-rule violations
// found in a candidate record.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Violations, "; ")
}
