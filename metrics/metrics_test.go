package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveLookupRecordsHit(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := New(reg, "geoip")

	h.ObserveLookup(5*time.Millisecond, true, nil)

	count := testutil.ToFloat64(h.lookups.WithLabelValues("hit"))
	assert.Equal(t, float64(1), count)
}

func TestObserveLookupRecordsMiss(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := New(reg, "geoip")

	h.ObserveLookup(time.Millisecond, false, nil)

	count := testutil.ToFloat64(h.lookups.WithLabelValues("miss"))
	assert.Equal(t, float64(1), count)
}

func TestObserveLookupRecordsError(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := New(reg, "geoip")

	h.ObserveLookup(time.Millisecond, false, errors.New("boom"))

	count := testutil.ToFloat64(h.lookups.WithLabelValues("error"))
	assert.Equal(t, float64(1), count)
}

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() {
		New(reg, "")
	})

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 1) // the duration histogram always reports; the counter vec has no labels yet
}

func TestNewPanicsOnDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg, "geoip")
	assert.Panics(t, func() {
		New(reg, "geoip")
	})
}
