package main

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AntonStoeckl/library-circulation-go/config"
	"github.com/AntonStoeckl/library-circulation-go/library"
	"github.com/AntonStoeckl/library-circulation-go/logging"
)

func Test_newOTelCollector_ExportsThroughTheRegistry(t *testing.T) {
	// arrange
	registry := prometheus.NewRegistry()

	collector, shutdown, err := newOTelCollector(registry)
	require.NoError(t, err)
	t.Cleanup(shutdown)

	// act
	collector.IncrementCounter(library.OperationFailuresMetric, map[string]string{
		library.LabelOperation: "borrow_book",
		library.LabelKind:      "not_found",
	})
	collector.RecordDuration(library.OperationDurationMetric, 20*time.Millisecond, map[string]string{
		library.LabelOperation: "borrow_book",
		library.LabelStatus:    library.StatusFailure,
	})

	// assert
	count, err := testutil.GatherAndCount(registry, library.OperationFailuresMetric)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func Test_openMetrics_Backends(t *testing.T) {
	logger := logging.NewAdapter(zap.NewNop())

	t.Run("disabled", func(t *testing.T) {
		s := &stack{}

		collector, err := s.openMetrics(config.MetricsConfig{Enabled: false}, logger)

		require.NoError(t, err)
		assert.Nil(t, collector)
		assert.Empty(t, s.closers)
	})

	for _, backend := range []string{config.MetricsBackendPrometheus, config.MetricsBackendOTel} {
		t.Run(backend, func(t *testing.T) {
			s := &stack{}
			t.Cleanup(s.Close)

			collector, err := s.openMetrics(
				config.MetricsConfig{Enabled: true, Backend: backend, ListenAddr: "127.0.0.1:0"},
				logger,
			)

			require.NoError(t, err)
			require.NotNil(t, collector)
			assert.NotEmpty(t, s.closers)
			assert.NotPanics(t, func() {
				collector.IncrementCounter(library.OperationFailuresMetric, map[string]string{library.LabelOperation: "add_book"})
			})
		})
	}
}
