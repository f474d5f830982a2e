package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// DateLayout is the wire format for use-by dates.
	DateLayout = "2006-01-02"
	// TimestampLayout is the wire format for local creation timestamps.
	TimestampLayout = "2006-01-02 15:04:05"

	minTempC       = -5.0
	maxTempC       = 20.0
	useByWindowDay = 60
)

// Validate checks a candidate record against the capture business rules and
// returns every violation found. It never short-circuits and never panics;
// malformed numeric or date text is itself a violation. The use-by window is
// evaluated against the supplied today value.
func Validate(in SampleInput, today time.Time) []string {
	var violations []string

	if strings.TrimSpace(in.Description) == "" {
		violations = append(violations, "description is required")
	}
	if strings.TrimSpace(in.Retailer) == "" {
		violations = append(violations, "retailer is required")
	}

	violations = appendTempViolations(violations, "bird temperature", in.BirdTempC)
	violations = appendTempViolations(violations, "van temperature", in.VanTempC)

	if raw := strings.TrimSpace(in.PriceGBP); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		switch {
		case err != nil:
			violations = append(violations, "price must be a valid number")
		case price < 0:
			violations = append(violations, "price must be >= 0")
		}
	}
	if raw := strings.TrimSpace(in.SizeKG); raw != "" {
		size, err := strconv.ParseFloat(raw, 64)
		switch {
		case err != nil:
			violations = append(violations, "size must be a valid number")
		case size < 0:
			violations = append(violations, "size must be >= 0")
		}
	}

	if raw := strings.TrimSpace(in.UseByDate); raw != "" {
		useBy, err := time.ParseInLocation(DateLayout, raw, today.Location())
		if err != nil {
			violations = append(violations, "use-by date must be in YYYY-MM-DD format")
		} else {
			day := truncateToDay(today)
			switch {
			case useBy.Before(day):
				violations = append(violations, "use-by date cannot be in the past")
			case useBy.After(day.AddDate(0, 0, useByWindowDay)):
				violations = append(violations, fmt.Sprintf("use-by date cannot be more than %d days in the future", useByWindowDay))
			}
		}
	}

	if raw := strings.TrimSpace(in.SampleNumber); raw != "" {
		number, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			violations = append(violations, "sample number must be a whole number")
		case number < 1:
			violations = append(violations, "sample number must be >= 1")
		}
	}

	if raw := strings.TrimSpace(in.CreatedAtLocal); raw != "" {
		if _, err := time.ParseInLocation(TimestampLayout, raw, today.Location()); err != nil {
			violations = append(violations, "created-at timestamp must be in YYYY-MM-DD HH:MM:SS format")
		}
	}

	return violations
}

// ParseSample converts a candidate record into a typed Sample. Validation
// runs first; on any violation a *ValidationError is returned and nothing is
// parsed. Sample number and creation timestamp stay zero when absent so the
// store can assign them.
func ParseSample(in SampleInput, today time.Time) (Sample, error) {
	if violations := Validate(in, today); len(violations) > 0 {
		return Sample{}, &ValidationError{Violations: violations}
	}

	sample := Sample{
		ID:          strings.TrimSpace(in.ID),
		Description: strings.TrimSpace(in.Description),
		Retailer:    strings.TrimSpace(in.Retailer),
		PackCode:    strings.TrimSpace(in.PackCode),
		Customer:    strings.TrimSpace(in.Customer),
		Supplier:    strings.TrimSpace(in.Supplier),
		Code:        strings.TrimSpace(in.Code),
		DeviceID:    strings.TrimSpace(in.DeviceID),
		DriverID:    strings.TrimSpace(in.DriverID),
	}

	sample.SizeKG = parsedFloat(in.SizeKG)
	sample.PriceGBP = parsedFloat(in.PriceGBP)
	sample.BirdTempC = parsedFloat(in.BirdTempC)
	sample.VanTempC = parsedFloat(in.VanTempC)

	if raw := strings.TrimSpace(in.UseByDate); raw != "" {
		useBy, _ := time.ParseInLocation(DateLayout, raw, today.Location())
		sample.UseByDate = &useBy
	}
	if raw := strings.TrimSpace(in.SampleNumber); raw != "" {
		sample.SampleNumber, _ = strconv.Atoi(raw)
	}
	if raw := strings.TrimSpace(in.CreatedAtLocal); raw != "" {
		sample.CreatedAtLocal, _ = time.ParseInLocation(TimestampLayout, raw, today.Location())
	}

	return sample, nil
}

func appendTempViolations(violations []string, label, raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return violations
	}
	temp, err := strconv.ParseFloat(raw, 64)
	switch {
	case err != nil:
		return append(violations, fmt.Sprintf("%s must be a valid number", label))
	case temp < minTempC || temp > maxTempC:
		return append(violations, fmt.Sprintf("%s must be between %.1f and %.1f °C", label, minTempC, maxTempC))
	}
	return violations
}

func parsedFloat(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &value
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
