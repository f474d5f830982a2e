package client_test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oscarchatwin1/microsearch-driver-capture/internal/config"
	"github.com/oscarchatwin1/microsearch-driver-capture/internal/connectivity"
	"github.com/oscarchatwin1/microsearch-driver-capture/internal/lookup"
	"github.com/oscarchatwin1/microsearch-driver-capture/internal/model"
	"github.com/oscarchatwin1/microsearch-driver-capture/internal/server"
	"github.com/oscarchatwin1/microsearch-driver-capture/internal/store"
	syncer "github.com/oscarchatwin1/microsearch-driver-capture/internal/sync"
	"github.com/oscarchatwin1/microsearch-driver-capture/pkg/client"
	"github.com/oscarchatwin1/microsearch-driver-capture/pkg/types"
)

type okUpserter struct{}

func (okUpserter) UpsertSamples(context.Context, []model.Sample) error { return nil }
func (okUpserter) Ping(context.Context) error                          { return nil }

func newTestClient(t *testing.T) *client.Client {
	t.Helper()

	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "samples.db"), store.Defaults{
		Supplier: "Flixton",
		Code:     "GB S011",
		DeviceID: "DEVICE_001",
		DriverID: "DRIVER_001",
	})
	require.NoError(t, err)

	gate := connectivity.NewGate([]string{"DepotNet"}, false)
	provider := connectivity.StaticProvider{SSID: "DepotNet"}
	sy := syncer.New(st, okUpserter{}, gate, provider, syncer.Config{}, zerolog.Nop())

	cfg := config.Config{AllowedSSIDs: []string{"DepotNet"}}
	cfg.Lookup.Fields = map[string]config.LookupField{
		"retailer": {Source: "static", Options: []string{"Asda", "Morrisons"}},
	}
	lk := lookup.NewProvider(cfg.Lookup, nil, zerolog.Nop())

	s := server.New(st, sy, gate, provider, lk, cfg, zerolog.Nop(), "test")
	srv := httptest.NewServer(s.Router())
	t.Cleanup(func() {
		srv.Close()
		_ = st.Close()
	})

	c, err := client.New(client.Config{BaseURL: srv.URL})
	require.NoError(t, err)
	return c
}

func validInput() types.SampleInput {
	return types.SampleInput{
		Description: "Whole bird",
		Retailer:    "Morrisons",
		BirdTempC:   "4.0",
		PriceGBP:    "10.50",
	}
}

func TestClient_SampleCRUD(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	created, err := c.CreateSample(ctx, validInput())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "pending", created.SyncStatus)
	assert.Equal(t, 1, created.SampleNumber)
	require.NotNil(t, created.BirdTempC)
	assert.InDelta(t, 4.0, *created.BirdTempC, 1e-9)

	got, err := c.GetSample(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	in := validInput()
	in.Description = "Crown"
	updated, err := c.UpdateSample(ctx, created.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Crown", updated.Description)

	list, err := c.ListSamples(ctx, client.ListSamplesOptions{Status: "pending"})
	require.NoError(t, err)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, created.ID, list.Samples[0].ID)

	counts, err := c.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCounts{Pending: 1}, *counts)

	require.NoError(t, c.DeleteSample(ctx, created.ID))
	_, err = c.GetSample(ctx, created.ID)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.StatusCode)
}

func TestClient_ValidationViolationsSurface(t *testing.T) {
	c := newTestClient(t)

	in := validInput()
	in.Description = ""
	in.BirdTempC = "chilly"
	_, err := c.CreateSample(context.Background(), in)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 422, apiErr.StatusCode)
	assert.Equal(t, "sample failed validation", apiErr.Problem.Detail)
	assert.Contains(t, apiErr.Problem.Violations, "description is required")
	assert.Contains(t, apiErr.Problem.Violations, "bird temperature must be a valid number")
	assert.Contains(t, apiErr.Error(), "description is required")
}

func TestClient_SyncRunAndStatus(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, err := c.CreateSample(ctx, validInput())
	require.NoError(t, err)

	result, err := c.RunSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, "synced", result.Outcome)
	assert.Equal(t, 1, result.Count)

	status, err := c.SyncStatus(ctx)
	require.NoError(t, err)
	assert.True(t, status.Decision.Allowed)
	assert.Equal(t, types.StatusCounts{Synced: 1}, status.Counts)
	assert.Equal(t, int64(1), status.Runs.SuccessfulRuns)
}

func TestClient_LookupOptions(t *testing.T) {
	c := newTestClient(t)

	out, err := c.LookupOptions(context.Background(), "retailer")
	require.NoError(t, err)
	assert.Equal(t, "retailer", out.Field)
	assert.Equal(t, []string{"Asda", "Morrisons"}, out.Options)
}

func TestClient_RequiresBaseURL(t *testing.T) {
	_, err := client.New(client.Config{})
	assert.Error(t, err)
}
