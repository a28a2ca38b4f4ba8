package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/evmstore/cache"
	"github.com/ethpandaops/evmstore/db"
	"github.com/ethpandaops/evmstore/dbtypes"
	"github.com/ethpandaops/evmstore/metrics"
)

// LevelLedger coordinates the multi-table writes of the node store: applying
// a level and rolling the store back or forward to a target level.
type LevelLedger struct {
	logger     logrus.FieldLogger
	database   *db.Database
	blockCache *cache.BlockCache

	// held exclusively while a rollback commits and purges the cache, so
	// a concurrent apply or lookup cannot re-insert a removed level
	cacheMutex sync.RWMutex
}

// ErrIncompleteApply is returned for level applies that miss a required field.
var ErrIncompleteApply = errors.New("incomplete level apply")

// ApplyResult carries the informational reads of an apply.
type ApplyResult struct {
	Level               int64  `json:"level"`
	PendingConfirmation []byte `json:"pending_confirmation,omitempty"`
	HistoryMode         string `json:"history_mode"`
}

func NewLevelLedger(logger logrus.FieldLogger, database *db.Database, blockCacheSize int) *LevelLedger {
	ledger := &LevelLedger{
		logger:     logger,
		database:   database,
		blockCache: cache.NewBlockCache(blockCacheSize),
	}

	metrics.AddPreCollectFn(func() {
		ledgerBlockCacheSize.Set(float64(ledger.blockCache.Len()))
	})

	return ledger
}

func (ledger *LevelLedger) Database() *db.Database {
	return ledger.database
}

// ApplyBlueprint writes blueprint, block, transactions and context hash of
// one level in a single transaction. Either all of them become visible or,
// on any error, none.
func (ledger *LevelLedger) ApplyBlueprint(ctx context.Context, apply *dbtypes.LevelApply) (*ApplyResult, error) {
	if err := validateLevelApply(apply); err != nil {
		return nil, err
	}

	// a rollback must not interleave between the commit and the cache insert
	ledger.cacheMutex.RLock()
	defer ledger.cacheMutex.RUnlock()

	startTime := time.Now()
	result := &ApplyResult{
		Level: apply.Level,
	}

	// informational only, the apply is never gated on the attestation. Read
	// outside the write transaction so a failed lookup cannot abort it.
	pending, err := db.GetPendingConfirmation(ctx, ledger.database.Reader(), apply.Level)
	if err == nil {
		result.PendingConfirmation = pending
	} else if !errors.Is(err, db.ErrNotFound) {
		ledger.logger.Debugf("ignoring pending confirmation lookup error for level %v: %v", apply.Level, err)
	}

	err = ledger.database.RunDBTransaction(ctx, func(tx *sqlx.Tx) error {
		err := db.InsertBlueprint(ctx, tx, &dbtypes.Blueprint{
			Level:     apply.Level,
			Payload:   apply.Payload,
			Timestamp: apply.Timestamp,
		})
		if err != nil {
			return err
		}

		err = db.InsertBlock(ctx, tx, &dbtypes.Block{
			Level: apply.Level,
			Hash:  apply.BlockHash,
			Block: apply.Block,
		})
		if err != nil {
			return err
		}

		transactions := make([]*dbtypes.Transaction, len(apply.Transactions))
		for i, transaction := range apply.Transactions {
			txCopy := *transaction
			txCopy.BlockNumber = apply.Level
			txCopy.BlockHash = apply.BlockHash
			transactions[i] = &txCopy
		}
		err = db.InsertTransactions(ctx, tx, transactions)
		if err != nil {
			return err
		}

		err = db.InsertOrReplaceContextHash(ctx, tx, &dbtypes.ContextHash{
			Level:       apply.Level,
			ContextHash: apply.ContextHash,
		})
		if err != nil {
			return err
		}

		historyMode, err := db.GetHistoryMode(ctx, tx)
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			return err
		}
		result.HistoryMode = historyMode

		return nil
	})

	ledgerApplyDuration.Observe(time.Since(startTime).Seconds())
	if err != nil {
		ledgerApplyFailures.Inc()
		return nil, fmt.Errorf("error applying level %v: %w", apply.Level, err)
	}

	ledgerAppliedLevels.Inc()
	ledgerTopLevel.Set(float64(apply.Level))
	ledger.blockCache.Add(apply.Level, apply.BlockHash)

	ledger.logger.WithFields(logrus.Fields{
		"level":        apply.Level,
		"transactions": len(apply.Transactions),
		"duration":     time.Since(startTime),
	}).Debugf("applied level")

	return result, nil
}

func validateLevelApply(apply *dbtypes.LevelApply) error {
	if apply == nil {
		return fmt.Errorf("%w: missing level apply", ErrIncompleteApply)
	}
	switch {
	case apply.Payload == nil:
		return fmt.Errorf("%w: level %v has no payload", ErrIncompleteApply, apply.Level)
	case apply.BlockHash == nil:
		return fmt.Errorf("%w: level %v has no block hash", ErrIncompleteApply, apply.Level)
	case apply.Block == nil:
		return fmt.Errorf("%w: level %v has no block", ErrIncompleteApply, apply.Level)
	case apply.ContextHash == nil:
		return fmt.Errorf("%w: level %v has no context hash", ErrIncompleteApply, apply.Level)
	}
	for i, transaction := range apply.Transactions {
		switch {
		case transaction == nil:
			return fmt.Errorf("%w: missing transaction %v of level %v", ErrIncompleteApply, i, apply.Level)
		case transaction.Hash == nil, transaction.From == nil, transaction.ReceiptFields == nil, transaction.ObjectFields == nil:
			return fmt.Errorf("%w: transaction %v of level %v misses a required field", ErrIncompleteApply, i, apply.Level)
		}
	}
	return nil
}

// ClearAfter removes everything stored above level and resets upgrades
// that were applied after it.
func (ledger *LevelLedger) ClearAfter(ctx context.Context, level int64) (*dbtypes.RollbackResult, error) {
	result, err := ledger.rollback(ctx, func(tx *sqlx.Tx) (*dbtypes.RollbackResult, error) {
		res := &dbtypes.RollbackResult{}
		var err error

		steps := []struct {
			count *int64
			fn    func(context.Context, *sqlx.Tx, int64) (int64, error)
		}{
			{&res.Blueprints, db.ClearBlueprintsAfter},
			{&res.Blocks, db.ClearBlocksAfter},
			{&res.ContextHashes, db.ClearContextHashesAfter},
			{&res.Transactions, db.ClearTransactionsAfter},
			{&res.DelayedTransactions, db.ClearDelayedTransactionsAfter},
			{&res.IrminChunks, db.ClearIrminChunksAfter},
			{&res.L1L2Relationships, db.ClearL1L2LevelRelationshipsAfter},
			{&res.L1L2FinalizedLevels, db.ClearL1L2FinalizedLevelsAfter},
			{&res.KernelUpgradesReset, db.NullifyKernelUpgradesAfter},
			{&res.KernelUpgrades, db.ClearKernelUpgradesAfter},
			{&res.SequencerUpgradesReset, db.NullifySequencerUpgradesAfter},
			{&res.SequencerUpgrades, db.ClearSequencerUpgradesAfter},
		}
		for _, step := range steps {
			*step.count, err = step.fn(ctx, tx, level)
			if err != nil {
				return nil, err
			}
		}

		return res, nil
	})
	if err != nil {
		return nil, fmt.Errorf("error clearing after level %v: %w", level, err)
	}

	ledgerRollbackRows.WithLabelValues("after").Add(float64(result.Total()))
	ledger.refreshTopLevel(ctx)
	ledger.logger.WithField("removed", result.Total()).Infof("cleared store after level %v", level)

	return result, nil
}

// ClearBefore removes everything stored below level. Upgrade application
// stamps are kept.
func (ledger *LevelLedger) ClearBefore(ctx context.Context, level int64) (*dbtypes.RollbackResult, error) {
	result, err := ledger.rollback(ctx, func(tx *sqlx.Tx) (*dbtypes.RollbackResult, error) {
		res := &dbtypes.RollbackResult{}
		var err error

		steps := []struct {
			count *int64
			fn    func(context.Context, *sqlx.Tx, int64) (int64, error)
		}{
			{&res.Blueprints, db.ClearBlueprintsBefore},
			{&res.Blocks, db.ClearBlocksBefore},
			{&res.ContextHashes, db.ClearContextHashesBefore},
			{&res.Transactions, db.ClearTransactionsBefore},
			{&res.DelayedTransactions, db.ClearDelayedTransactionsBefore},
			{&res.IrminChunks, db.ClearIrminChunksBefore},
			{&res.L1L2Relationships, db.ClearL1L2LevelRelationshipsBefore},
			{&res.L1L2FinalizedLevels, db.ClearL1L2FinalizedLevelsBefore},
			{&res.KernelUpgrades, db.ClearKernelUpgradesBefore},
			{&res.SequencerUpgrades, db.ClearSequencerUpgradesBefore},
		}
		for _, step := range steps {
			*step.count, err = step.fn(ctx, tx, level)
			if err != nil {
				return nil, err
			}
		}

		return res, nil
	})
	if err != nil {
		return nil, fmt.Errorf("error clearing before level %v: %w", level, err)
	}

	ledgerRollbackRows.WithLabelValues("before").Add(float64(result.Total()))
	ledger.logger.WithField("removed", result.Total()).Infof("cleared store before level %v", level)

	return result, nil
}

func (ledger *LevelLedger) rollback(ctx context.Context, handler func(tx *sqlx.Tx) (*dbtypes.RollbackResult, error)) (*dbtypes.RollbackResult, error) {
	ledger.cacheMutex.Lock()
	defer ledger.cacheMutex.Unlock()

	var result *dbtypes.RollbackResult
	err := ledger.database.RunDBTransaction(ctx, func(tx *sqlx.Tx) error {
		res, err := handler(tx)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	ledger.blockCache.Purge()
	return result, nil
}

func (ledger *LevelLedger) refreshTopLevel(ctx context.Context) {
	topLevel, err := db.GetBlueprintTopLevel(ctx, ledger.database.Reader())
	switch {
	case err == nil:
		ledgerTopLevel.Set(float64(topLevel))
	case errors.Is(err, db.ErrNotFound):
		ledgerTopLevel.Set(0)
	default:
		ledger.logger.Warnf("error reading top level: %v", err)
	}
}

// RecordUpgradesApplied stamps all pending kernel and sequencer upgrades
// as applied before level.
func (ledger *LevelLedger) RecordUpgradesApplied(ctx context.Context, level int64) (kernel int64, sequencer int64, err error) {
	err = ledger.database.RunDBTransaction(ctx, func(tx *sqlx.Tx) error {
		var err error
		kernel, err = db.RecordKernelUpgradeApply(ctx, tx, level)
		if err != nil {
			return err
		}
		sequencer, err = db.RecordSequencerUpgradeApply(ctx, tx, level)
		return err
	})
	if err != nil {
		return 0, 0, fmt.Errorf("error recording upgrades applied before %v: %w", level, err)
	}
	return kernel, sequencer, nil
}

func (ledger *LevelLedger) GetBlockLevelByHash(ctx context.Context, hash []byte) (int64, error) {
	ledger.cacheMutex.RLock()
	defer ledger.cacheMutex.RUnlock()

	if level, found := ledger.blockCache.GetLevel(hash); found {
		ledgerBlockCacheHits.Inc()
		return level, nil
	}
	ledgerBlockCacheMisses.Inc()

	level, err := db.GetBlockLevelByHash(ctx, ledger.database.Reader(), hash)
	if err != nil {
		return 0, err
	}
	ledger.blockCache.Add(level, hash)
	return level, nil
}

func (ledger *LevelLedger) GetBlockHashByLevel(ctx context.Context, level int64) ([]byte, error) {
	ledger.cacheMutex.RLock()
	defer ledger.cacheMutex.RUnlock()

	if hash, found := ledger.blockCache.GetHash(level); found {
		ledgerBlockCacheHits.Inc()
		return hash, nil
	}
	ledgerBlockCacheMisses.Inc()

	hash, err := db.GetBlockHashByLevel(ctx, ledger.database.Reader(), level)
	if err != nil {
		return nil, err
	}
	ledger.blockCache.Add(level, hash)
	return hash, nil
}
