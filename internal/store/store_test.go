package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratodrop/driftcast/internal/types"
	"github.com/stratodrop/driftcast/internal/windfield"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "driftcast.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testSamples() []types.WindSample {
	return []types.WindSample{
		{Altitude: 1000, U: 5, V: 0},
		{Altitude: 10000, U: 15, V: 5},
		{Altitude: 20000, U: 25, V: 10},
	}
}

func TestSampleSetRoundTrip(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SaveSampleSet("sounding-0412", testSamples()))

	got, err := s.LoadSampleSet("sounding-0412")
	require.NoError(t, err)
	assert.Equal(t, testSamples(), got)
}

func TestSampleSetReplacedOnSave(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SaveSampleSet("current", testSamples()))
	replacement := []types.WindSample{{Altitude: 500, U: 1, V: 1}}
	require.NoError(t, s.SaveSampleSet("current", replacement))

	got, err := s.LoadSampleSet("current")
	require.NoError(t, err)
	assert.Equal(t, replacement, got)
}

func TestLoadMissingSampleSet(t *testing.T) {
	s := openTestStore(t)

	_, err := s.LoadSampleSet("nope")
	assert.ErrorContains(t, err, "not found")
}

func TestModelRoundTripPredictsIdentically(t *testing.T) {
	s := openTestStore(t)

	model, err := windfield.Fit(testSamples(), windfield.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, s.SaveModel("current", model))

	restored, err := s.LoadModel("current")
	require.NoError(t, err)

	for _, alt := range []float64{0, 1000, 4321, 15000, 90000} {
		assert.Equal(t, model.Predict(alt), restored.Predict(alt), "altitude %g", alt)
	}
}

func TestSaveModelOverwrites(t *testing.T) {
	s := openTestStore(t)

	first, err := windfield.Fit(testSamples(), windfield.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, s.SaveModel("current", first))

	second, err := windfield.Fit([]types.WindSample{
		{Altitude: 2000, U: -5, V: 3},
		{Altitude: 18000, U: -20, V: 12},
	}, windfield.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, s.SaveModel("current", second))

	restored, err := s.LoadModel("current")
	require.NoError(t, err)
	assert.Equal(t, second.Predict(10000), restored.Predict(10000))
	assert.NotEqual(t, first.Predict(10000), restored.Predict(10000))
}

func TestLoadMissingModel(t *testing.T) {
	s := openTestStore(t)

	_, err := s.LoadModel("nope")
	assert.ErrorContains(t, err, "not found")
}
