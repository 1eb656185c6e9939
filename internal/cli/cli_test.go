package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("GEOCODING_PROVIDER", "mock")
	t.Setenv("APP_ENV", "test")

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSearchCmd_JSON(t *testing.T) {
	out, err := run(t, "search", "BN21 4YB", "--type", "ae", "--json")
	require.NoError(t, err)

	var results []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Equal(t, "ae", r["type"])
	}
	assert.Equal(t, "ae-eastbourne-dgh", results[0]["id"])
}

func TestSearchCmd_Table(t *testing.T) {
	out, err := run(t, "search", "--lat", "50.7712", "--lon", "0.2775", "--radius", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "DISTANCE")
	assert.Contains(t, out, "Eastbourne Station Health Centre")
}

func TestSearchCmd_RejectsBadInput(t *testing.T) {
	_, err := run(t, "search")
	assert.Error(t, err)

	_, err = run(t, "search", "BN21 4YB", "--lat", "50", "--lon", "0")
	assert.Error(t, err)

	_, err = run(t, "search", "BN21 4YB", "--type", "dentist")
	assert.Error(t, err)

	_, err = run(t, "search", "ZZ99 9ZZ")
	assert.ErrorContains(t, err, "Postcode not found")
}

func TestGeocodeCmd(t *testing.T) {
	out, err := run(t, "geocode", "bn21 4yb")
	require.NoError(t, err)
	assert.Contains(t, out, "50.771200")
}
