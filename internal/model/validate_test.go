package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oscarchatwin1/microsearch-driver-capture/internal/model"
)

var today = time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

func validInput() model.SampleInput {
	return model.SampleInput{
		Description: "Whole bird",
		Retailer:    "Morrisons",
	}
}

func TestValidate_ValidMinimalInput(t *testing.T) {
	assert.Empty(t, model.Validate(validInput(), today))
}

func TestValidate_RequiredFields(t *testing.T) {
	violations := model.Validate(model.SampleInput{Description: "   ", Retailer: ""}, today)
	require.Len(t, violations, 2)
	assert.Equal(t, "description is required", violations[0])
	assert.Equal(t, "retailer is required", violations[1])
}

func TestValidate_TemperatureBoundaries(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		violation string
	}{
		{name: "lower bound accepted", value: "-5.0"},
		{name: "upper bound accepted", value: "20.0"},
		{name: "zero accepted", value: "0"},
		{name: "below range", value: "-5.01", violation: "bird temperature must be between -5.0 and 20.0 °C"},
		{name: "above range", value: "20.01", violation: "bird temperature must be between -5.0 and 20.0 °C"},
		{name: "not a number", value: "chilly", violation: "bird temperature must be a valid number"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			in.BirdTempC = tc.value
			violations := model.Validate(in, today)
			if tc.violation == "" {
				assert.Empty(t, violations)
				return
			}
			require.Len(t, violations, 1)
			assert.Equal(t, tc.violation, violations[0])
		})
	}
}

func TestValidate_VanTemperatureIsCheckedSeparately(t *testing.T) {
	in := validInput()
	in.BirdTempC = "25"
	in.VanTempC = "warm"
	violations := model.Validate(in, today)
	require.Len(t, violations, 2)
	assert.Contains(t, violations[0], "bird temperature")
	assert.Contains(t, violations[1], "van temperature")
}

func TestValidate_PriceAndSize(t *testing.T) {
	in := validInput()
	in.PriceGBP = "-0.01"
	in.SizeKG = "heavy"
	violations := model.Validate(in, today)
	require.Len(t, violations, 2)
	assert.Equal(t, "price must be >= 0", violations[0])
	assert.Equal(t, "size must be a valid number", violations[1])

	in = validInput()
	in.PriceGBP = "0"
	in.SizeKG = "1.525"
	assert.Empty(t, model.Validate(in, today))
}

func TestValidate_UseByDateWindow(t *testing.T) {
	tests := []struct {
		name      string
		date      string
		violation string
	}{
		{name: "today accepted", date: today.Format(model.DateLayout)},
		{name: "window edge accepted", date: today.AddDate(0, 0, 60).Format(model.DateLayout)},
		{name: "yesterday rejected", date: today.AddDate(0, 0, -1).Format(model.DateLayout), violation: "use-by date cannot be in the past"},
		{name: "too far rejected", date: today.AddDate(0, 0, 61).Format(model.DateLayout), violation: "use-by date cannot be more than 60 days in the future"},
		{name: "malformed rejected", date: "30/08/2026", violation: "use-by date must be in YYYY-MM-DD format"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			in.UseByDate = tc.date
			violations := model.Validate(in, today)
			if tc.violation == "" {
				assert.Empty(t, violations)
				return
			}
			require.Len(t, violations, 1)
			assert.Equal(t, tc.violation, violations[0])
		})
	}
}

func TestValidate_AccumulatesEveryViolation(t *testing.T) {
	in := model.SampleInput{
		BirdTempC: "-40",
		VanTempC:  "hot",
		PriceGBP:  "-1",
		SizeKG:    "big",
		UseByDate: "never",
	}
	violations := model.Validate(in, today)
	assert.Len(t, violations, 7)
}

func TestValidate_SampleNumber(t *testing.T) {
	in := validInput()
	in.SampleNumber = "three"
	violations := model.Validate(in, today)
	require.Len(t, violations, 1)
	assert.Equal(t, "sample number must be a whole number", violations[0])

	in.SampleNumber = "0"
	violations = model.Validate(in, today)
	require.Len(t, violations, 1)
	assert.Equal(t, "sample number must be >= 1", violations[0])

	in.SampleNumber = "7"
	assert.Empty(t, model.Validate(in, today))
}

func TestParseSample_ReturnsValidationError(t *testing.T) {
	in := validInput()
	in.BirdTempC = "99"

	_, err := model.ParseSample(in, today)
	require.Error(t, err)

	var validationErr *model.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Len(t, validationErr.Violations, 1)
	assert.Contains(t, err.Error(), "bird temperature")
}

func TestParseSample_ParsesTypedFields(t *testing.T) {
	in := validInput()
	in.SizeKG = "1.5"
	in.PriceGBP = "10.50"
	in.BirdTempC = "4.0"
	in.UseByDate = today.AddDate(0, 0, 7).Format(model.DateLayout)
	in.SampleNumber = "3"
	in.CreatedAtLocal = "2026-08-30 09:15:00"

	sample, err := model.ParseSample(in, today)
	require.NoError(t, err)

	require.NotNil(t, sample.SizeKG)
	assert.InDelta(t, 1.5, *sample.SizeKG, 1e-9)
	require.NotNil(t, sample.PriceGBP)
	assert.InDelta(t, 10.50, *sample.PriceGBP, 1e-9)
	require.NotNil(t, sample.BirdTempC)
	assert.InDelta(t, 4.0, *sample.BirdTempC, 1e-9)
	assert.Nil(t, sample.VanTempC)
	require.NotNil(t, sample.UseByDate)
	assert.Equal(t, today.AddDate(0, 0, 7).Format(model.DateLayout), sample.UseByDate.Format(model.DateLayout))
	assert.Equal(t, 3, sample.SampleNumber)
	assert.Equal(t, "2026-08-30 09:15:00", sample.CreatedAtLocal.Format(model.TimestampLayout))
}
