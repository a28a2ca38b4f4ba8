package services

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/evmstore/db"
	"github.com/ethpandaops/evmstore/dbtypes"
	"github.com/ethpandaops/evmstore/types"
)

func newTestLedger(t *testing.T) (*LevelLedger, *test.Hook) {
	t.Helper()

	database, err := db.NewDatabase(&types.DatabaseConfig{
		Engine: "sqlite",
		Sqlite: &types.SqliteDatabaseConfig{
			File: filepath.Join(t.TempDir(), "ledger.sqlite"),
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		database.Close()
	})
	require.NoError(t, database.ApplyEmbeddedDbSchema(-2))

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return NewLevelLedger(logger, database, 16), hook
}

func testLevelApply(level int64, txHashes ...string) *dbtypes.LevelApply {
	apply := &dbtypes.LevelApply{
		Level:       level,
		Payload:     []byte("blueprint"),
		Timestamp:   level * 10,
		BlockHash:   []byte{0xbb, byte(level)},
		Block:       []byte("body"),
		ContextHash: []byte{0xcc, byte(level)},
	}
	for i, hash := range txHashes {
		apply.Transactions = append(apply.Transactions, &dbtypes.Transaction{
			Index:         int64(i),
			Hash:          []byte(hash),
			From:          []byte("from"),
			To:            []byte("to"),
			ReceiptFields: []byte("receipt"),
			ObjectFields:  []byte("object"),
		})
	}
	return apply
}

func countRows(t *testing.T, ledger *LevelLedger) map[string]int64 {
	t.Helper()
	ctx := context.Background()
	reader := ledger.Database().Reader()

	counts := map[string]int64{}
	var err error
	counts["blueprints"], err = db.CountBlueprints(ctx, reader)
	require.NoError(t, err)
	counts["blocks"], err = db.CountBlocks(ctx, reader)
	require.NoError(t, err)
	counts["transactions"], err = db.CountTransactions(ctx, reader)
	require.NoError(t, err)
	return counts
}

func TestClearAfterRemovesLevelAtomically(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	err := ledger.Database().RunDBTransaction(ctx, func(tx *sqlx.Tx) error {
		if err := db.InsertBlueprint(ctx, tx, &dbtypes.Blueprint{Level: 100, Payload: []byte("abc"), Timestamp: 1000}); err != nil {
			return err
		}
		if err := db.InsertBlock(ctx, tx, &dbtypes.Block{Level: 100, Hash: []byte{0xaa, 0xaa}, Block: []byte("body")}); err != nil {
			return err
		}
		for _, hash := range []string{"t1", "t2"} {
			err := db.InsertTransaction(ctx, tx, &dbtypes.Transaction{
				BlockHash:     []byte{0xaa, 0xaa},
				BlockNumber:   100,
				Hash:          []byte(hash),
				From:          []byte("from"),
				ReceiptFields: []byte("receipt"),
				ObjectFields:  []byte("object"),
			})
			if err != nil {
				return err
			}
		}
		return db.InsertOrReplaceContextHash(ctx, tx, &dbtypes.ContextHash{Level: 100, ContextHash: []byte("ctx")})
	})
	require.NoError(t, err)

	result, err := ledger.ClearAfter(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Blueprints)
	assert.Equal(t, int64(1), result.Blocks)
	assert.Equal(t, int64(2), result.Transactions)
	assert.Equal(t, int64(1), result.ContextHashes)
	assert.Equal(t, int64(5), result.Total())

	_, err = db.GetBlueprintTopLevel(ctx, ledger.Database().Reader())
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestApplyBlueprint(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	apply := testLevelApply(7, "a", "b")
	// block references of transactions are taken from the apply
	apply.Transactions[0].BlockNumber = 999
	apply.Transactions[0].BlockHash = []byte("wrong")

	result, err := ledger.ApplyBlueprint(ctx, apply)
	require.NoError(t, err)
	assert.Equal(t, int64(7), result.Level)
	assert.Nil(t, result.PendingConfirmation)
	assert.Equal(t, "", result.HistoryMode)

	reader := ledger.Database().Reader()
	blueprint, err := db.GetBlueprint(ctx, reader, 7)
	require.NoError(t, err)
	assert.Equal(t, []byte("blueprint"), blueprint.Payload)

	receipts, err := db.GetTransactionReceiptsByBlockNumber(ctx, reader, 7)
	require.NoError(t, err)
	require.Len(t, receipts, 2)
	for _, receipt := range receipts {
		assert.Equal(t, apply.BlockHash, receipt.BlockHash)
	}
	assert.Equal(t, int64(999), apply.Transactions[0].BlockNumber, "input must not be modified")

	contextHash, err := db.GetContextHashByBlockHash(ctx, reader, apply.BlockHash)
	require.NoError(t, err)
	assert.Equal(t, apply.ContextHash, contextHash)

	level, err := ledger.GetBlockLevelByHash(ctx, apply.BlockHash)
	require.NoError(t, err)
	assert.Equal(t, int64(7), level)
}

func TestApplyBlueprintInformationalReads(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	err := ledger.Database().RunDBTransaction(ctx, func(tx *sqlx.Tx) error {
		if err := db.InsertPendingConfirmation(ctx, tx, &dbtypes.PendingConfirmation{Level: 3, Hash: []byte("attested")}); err != nil {
			return err
		}
		return db.SetHistoryMode(ctx, tx, "archive")
	})
	require.NoError(t, err)

	result, err := ledger.ApplyBlueprint(ctx, testLevelApply(3))
	require.NoError(t, err)
	assert.Equal(t, []byte("attested"), result.PendingConfirmation)
	assert.Equal(t, "archive", result.HistoryMode)

	// a missing attestation does not gate the apply
	result, err = ledger.ApplyBlueprint(ctx, testLevelApply(4))
	require.NoError(t, err)
	assert.Nil(t, result.PendingConfirmation)
}

func TestApplyBlueprintIgnoresPendingLookupError(t *testing.T) {
	ledger, hook := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Database().Reader().ExecContext(ctx, `DROP TABLE pending_confirmations`)
	require.NoError(t, err)

	result, err := ledger.ApplyBlueprint(ctx, testLevelApply(2, "tx-a"))
	require.NoError(t, err)
	assert.Nil(t, result.PendingConfirmation)

	blueprint, err := db.GetBlueprint(ctx, ledger.Database().Reader(), 2)
	require.NoError(t, err)
	assert.Equal(t, []byte("blueprint"), blueprint.Payload)

	found := false
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.DebugLevel && strings.Contains(entry.Message, "pending confirmation lookup") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestApplyBlueprintFailureLeavesNoTrace(t *testing.T) {
	tests := []struct {
		name  string
		apply func() *dbtypes.LevelApply
	}{
		{
			name: "duplicate level",
			apply: func() *dbtypes.LevelApply {
				apply := testLevelApply(1, "fresh")
				apply.BlockHash = []byte("other hash")
				return apply
			},
		},
		{
			name: "duplicate block hash",
			apply: func() *dbtypes.LevelApply {
				apply := testLevelApply(2, "fresh")
				apply.BlockHash = testLevelApply(1).BlockHash
				return apply
			},
		},
		{
			name: "duplicate transaction hash",
			apply: func() *dbtypes.LevelApply {
				return testLevelApply(2, "fresh", "existing")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger, _ := newTestLedger(t)
			ctx := context.Background()

			_, err := ledger.ApplyBlueprint(ctx, testLevelApply(1, "existing"))
			require.NoError(t, err)
			before := countRows(t, ledger)

			_, err = ledger.ApplyBlueprint(ctx, tt.apply())
			assert.ErrorIs(t, err, db.ErrConstraintViolation)
			assert.Equal(t, before, countRows(t, ledger))

			_, err = db.GetContextHash(ctx, ledger.Database().Reader(), 2)
			assert.ErrorIs(t, err, db.ErrNotFound)
			_, err = db.GetTransactionReceipt(ctx, ledger.Database().Reader(), []byte("fresh"))
			assert.ErrorIs(t, err, db.ErrNotFound)
		})
	}
}

func TestClearAfterCoversAllLevelTables(t *testing.T) {
	ledger, hook := newTestLedger(t)
	ctx := context.Background()

	for level := int64(1); level <= 3; level++ {
		_, err := ledger.ApplyBlueprint(ctx, testLevelApply(level, string([]byte{'t', byte('0' + level)})))
		require.NoError(t, err)
	}

	err := ledger.Database().RunDBTransaction(ctx, func(tx *sqlx.Tx) error {
		for level := int64(1); level <= 3; level++ {
			if err := db.InsertDelayedTransaction(ctx, tx, &dbtypes.DelayedTransaction{InjectedBefore: level, Hash: []byte{byte(level)}, Payload: []byte("p")}); err != nil {
				return err
			}
			if err := db.InsertIrminChunk(ctx, tx, &dbtypes.IrminChunk{Level: level, Timestamp: level}); err != nil {
				return err
			}
			if err := db.InsertL1L2LevelRelationship(ctx, tx, &dbtypes.L1L2LevelRelationship{LatestL2Level: level, L1Level: level + 100}); err != nil {
				return err
			}
			if err := db.InsertOrReplaceL1L2FinalizedLevel(ctx, tx, &dbtypes.L1L2FinalizedLevel{L1Level: level + 100, StartL2Level: level - 1, EndL2Level: level}); err != nil {
				return err
			}
		}
		if err := db.InsertKernelUpgrade(ctx, tx, &dbtypes.KernelUpgrade{InjectedBefore: 1, RootHash: []byte("k1")}); err != nil {
			return err
		}
		if _, err := db.RecordKernelUpgradeApply(ctx, tx, 3); err != nil {
			return err
		}
		if err := db.InsertKernelUpgrade(ctx, tx, &dbtypes.KernelUpgrade{InjectedBefore: 3, RootHash: []byte("k3")}); err != nil {
			return err
		}
		return db.InsertSequencerUpgrade(ctx, tx, &dbtypes.SequencerUpgrade{InjectedBefore: 2, Sequencer: []byte("s"), PoolAddress: []byte("p")})
	})
	require.NoError(t, err)

	// warm the cache with a level that is about to be removed
	_, err = ledger.GetBlockHashByLevel(ctx, 3)
	require.NoError(t, err)

	result, err := ledger.ClearAfter(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, &dbtypes.RollbackResult{
		Blueprints:          2,
		Blocks:              2,
		Transactions:        2,
		ContextHashes:       2,
		DelayedTransactions: 2,
		IrminChunks:         2,
		L1L2Relationships:   2,
		L1L2FinalizedLevels: 2,
		KernelUpgrades:      1,
		SequencerUpgrades:   1,
		KernelUpgradesReset: 1,
	}, result)
	assert.Equal(t, int64(18), result.Total())

	_, err = ledger.GetBlockHashByLevel(ctx, 3)
	assert.ErrorIs(t, err, db.ErrNotFound)

	upgrade, err := db.GetLatestUnappliedKernelUpgrade(ctx, ledger.Database().Reader())
	require.NoError(t, err)
	assert.Equal(t, int64(1), upgrade.InjectedBefore)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "cleared store after level 1", hook.LastEntry().Message)
}

func TestClearBeforeKeepsUpgradeStamps(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	for level := int64(1); level <= 4; level++ {
		_, err := ledger.ApplyBlueprint(ctx, testLevelApply(level))
		require.NoError(t, err)
	}

	err := ledger.Database().RunDBTransaction(ctx, func(tx *sqlx.Tx) error {
		if err := db.InsertKernelUpgrade(ctx, tx, &dbtypes.KernelUpgrade{InjectedBefore: 1, RootHash: []byte("k1")}); err != nil {
			return err
		}
		return db.InsertKernelUpgrade(ctx, tx, &dbtypes.KernelUpgrade{InjectedBefore: 3, RootHash: []byte("k3")})
	})
	require.NoError(t, err)

	kernel, sequencer, err := ledger.RecordUpgradesApplied(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(2), kernel)
	assert.Equal(t, int64(0), sequencer)

	result, err := ledger.ClearBefore(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Blueprints)
	assert.Equal(t, int64(2), result.Blocks)
	assert.Equal(t, int64(2), result.ContextHashes)
	assert.Equal(t, int64(1), result.KernelUpgrades)
	assert.Equal(t, int64(0), result.KernelUpgradesReset)

	base, err := db.GetBlueprintBaseLevel(ctx, ledger.Database().Reader())
	require.NoError(t, err)
	assert.Equal(t, int64(3), base)

	upgrade, err := db.FindKernelUpgradeInjectedBefore(ctx, ledger.Database().Reader(), 3)
	require.NoError(t, err)
	require.True(t, upgrade.IsApplied())
	assert.Equal(t, int64(4), *upgrade.AppliedBefore)
}

func TestApplyBlueprintRejectsMissingInput(t *testing.T) {
	ledger, _ := newTestLedger(t)

	_, err := ledger.ApplyBlueprint(context.Background(), nil)
	assert.ErrorIs(t, err, ErrIncompleteApply)

	tests := []struct {
		name   string
		modify func(apply *dbtypes.LevelApply)
	}{
		{"nil transaction", func(apply *dbtypes.LevelApply) { apply.Transactions = []*dbtypes.Transaction{nil} }},
		{"no payload", func(apply *dbtypes.LevelApply) { apply.Payload = nil }},
		{"no block hash", func(apply *dbtypes.LevelApply) { apply.BlockHash = nil }},
		{"no block", func(apply *dbtypes.LevelApply) { apply.Block = nil }},
		{"no context hash", func(apply *dbtypes.LevelApply) { apply.ContextHash = nil }},
		{"transaction without hash", func(apply *dbtypes.LevelApply) { apply.Transactions[0].Hash = nil }},
		{"transaction without receipt", func(apply *dbtypes.LevelApply) { apply.Transactions[0].ReceiptFields = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apply := testLevelApply(1, "tx-a")
			tt.modify(apply)
			_, err := ledger.ApplyBlueprint(context.Background(), apply)
			assert.ErrorIs(t, err, ErrIncompleteApply)
		})
	}

	_, err = db.GetBlueprint(context.Background(), ledger.Database().Reader(), 1)
	assert.ErrorIs(t, err, db.ErrNotFound)
	count, err := db.CountBlocks(context.Background(), ledger.Database().Reader())
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestApplyBlueprintAcceptsEmptyByteFields(t *testing.T) {
	ledger, _ := newTestLedger(t)

	apply := testLevelApply(1)
	apply.Payload = []byte{}
	apply.Block = []byte{}
	_, err := ledger.ApplyBlueprint(context.Background(), apply)
	require.NoError(t, err)

	blueprint, err := db.GetBlueprint(context.Background(), ledger.Database().Reader(), 1)
	require.NoError(t, err)
	assert.Empty(t, blueprint.Payload)
}
