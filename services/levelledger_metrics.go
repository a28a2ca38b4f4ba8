package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// registered once per process, every LevelLedger reports into the same series
var (
	ledgerApplyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "evmstore_ledger_apply_duration_seconds",
		Help:    "Duration of level apply transactions",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	})
	ledgerAppliedLevels = promauto.NewCounter(prometheus.CounterOpts{
		Name: "evmstore_ledger_applied_levels_total",
		Help: "Number of levels applied successfully",
	})
	ledgerApplyFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "evmstore_ledger_apply_failures_total",
		Help: "Number of level applies that were rolled back",
	})
	ledgerTopLevel = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "evmstore_ledger_top_level",
		Help: "Highest level stored in the ledger",
	})
	ledgerRollbackRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "evmstore_ledger_rollback_rows_total",
		Help: "Number of rows removed by rollbacks",
	}, []string{"direction"})
	ledgerBlockCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "evmstore_ledger_block_cache_hit_total",
		Help: "Number of block hash lookups answered from the cache",
	})
	ledgerBlockCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "evmstore_ledger_block_cache_miss_total",
		Help: "Number of block hash lookups that went to the database",
	})
	ledgerBlockCacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "evmstore_ledger_block_cache_size",
		Help: "Number of entries in the block hash cache",
	})
)
