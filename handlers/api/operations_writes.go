package api

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ethpandaops/evmstore/db"
	"github.com/ethpandaops/evmstore/dbtypes"
)

// Inserts into the side tables that are fed next to the level applies:
// upgrades, attestations, delayed inbox messages, irmin chunks, l1/l2
// bookkeeping and metadata. Each runs in its own transaction.

func runWrite(ctx context.Context, d *Dispatcher, handler func(tx *sqlx.Tx) error) error {
	return d.ledger.Database().RunDBTransaction(ctx, handler)
}

func opInsertKernelUpgrade(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	param := &kernelUpgradeParam{}
	if err := p.decode(0, param); err != nil {
		return nil, err
	}
	err := runWrite(ctx, d, func(tx *sqlx.Tx) error {
		return db.InsertKernelUpgrade(ctx, tx, &dbtypes.KernelUpgrade{
			InjectedBefore:      param.InjectedBefore,
			RootHash:            param.RootHash,
			ActivationTimestamp: param.ActivationTimestamp,
		})
	})
	if err != nil {
		return nil, err
	}
	return &LevelResponse{Level: param.InjectedBefore}, nil
}

func opInsertSequencerUpgrade(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	param := &sequencerUpgradeParam{}
	if err := p.decode(0, param); err != nil {
		return nil, err
	}
	err := runWrite(ctx, d, func(tx *sqlx.Tx) error {
		return db.InsertSequencerUpgrade(ctx, tx, &dbtypes.SequencerUpgrade{
			InjectedBefore:      param.InjectedBefore,
			Sequencer:           param.Sequencer,
			PoolAddress:         param.PoolAddress,
			ActivationTimestamp: param.ActivationTimestamp,
		})
	})
	if err != nil {
		return nil, err
	}
	return &LevelResponse{Level: param.InjectedBefore}, nil
}

func opRecordUpgradesApplied(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	level, err := p.int64(0)
	if err != nil {
		return nil, err
	}
	kernel, sequencer, err := d.ledger.RecordUpgradesApplied(ctx, level)
	if err != nil {
		return nil, err
	}
	return &UpgradesAppliedResponse{Level: level, Kernel: kernel, Sequencer: sequencer}, nil
}

func opInsertPendingConfirmation(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	param := &pendingConfirmationParam{}
	if err := p.decode(0, param); err != nil {
		return nil, err
	}
	err := runWrite(ctx, d, func(tx *sqlx.Tx) error {
		return db.InsertPendingConfirmation(ctx, tx, &dbtypes.PendingConfirmation{
			Level: param.Level,
			Hash:  param.Hash,
		})
	})
	if err != nil {
		return nil, err
	}
	return &LevelResponse{Level: param.Level}, nil
}

func opDeletePendingConfirmation(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	level, err := p.int64(0)
	if err != nil {
		return nil, err
	}
	var deleted int64
	err = runWrite(ctx, d, func(tx *sqlx.Tx) error {
		deleted, err = db.DeletePendingConfirmation(ctx, tx, level)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &CountResponse{Count: deleted}, nil
}

func opClearPendingConfirmations(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	var deleted int64
	err := runWrite(ctx, d, func(tx *sqlx.Tx) error {
		var err error
		deleted, err = db.ClearPendingConfirmations(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &CountResponse{Count: deleted}, nil
}

func opInsertDelayedTransaction(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	param := &delayedTransactionParam{}
	if err := p.decode(0, param); err != nil {
		return nil, err
	}
	err := runWrite(ctx, d, func(tx *sqlx.Tx) error {
		return db.InsertDelayedTransaction(ctx, tx, &dbtypes.DelayedTransaction{
			InjectedBefore: param.InjectedBefore,
			Hash:           param.Hash,
			Payload:        param.Payload,
		})
	})
	if err != nil {
		return nil, err
	}
	return &LevelResponse{Level: param.InjectedBefore}, nil
}

func opInsertIrminChunk(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	param := &irminChunkParam{}
	if err := p.decode(0, param); err != nil {
		return nil, err
	}
	err := runWrite(ctx, d, func(tx *sqlx.Tx) error {
		return db.InsertIrminChunk(ctx, tx, &dbtypes.IrminChunk{
			Level:     param.Level,
			Timestamp: param.Timestamp,
		})
	})
	if err != nil {
		return nil, err
	}
	return &LevelResponse{Level: param.Level}, nil
}

func opClearIrminChunks(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	var deleted int64
	err := runWrite(ctx, d, func(tx *sqlx.Tx) error {
		var err error
		deleted, err = db.ClearIrminChunks(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &CountResponse{Count: deleted}, nil
}

func opClearIrminChunksBeforeIncluded(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	level, err := p.int64(0)
	if err != nil {
		return nil, err
	}
	var deleted int64
	err = runWrite(ctx, d, func(tx *sqlx.Tx) error {
		deleted, err = db.ClearIrminChunksBeforeIncluded(ctx, tx, level)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &CountResponse{Count: deleted}, nil
}

func opInsertL1L2LevelRelationship(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	param := &l1l2LevelRelationshipParam{}
	if err := p.decode(0, param); err != nil {
		return nil, err
	}
	err := runWrite(ctx, d, func(tx *sqlx.Tx) error {
		return db.InsertL1L2LevelRelationship(ctx, tx, &dbtypes.L1L2LevelRelationship{
			LatestL2Level: param.LatestL2Level,
			L1Level:       param.L1Level,
		})
	})
	if err != nil {
		return nil, err
	}
	return &LevelResponse{Level: param.LatestL2Level}, nil
}

func opInsertL1L2FinalizedLevel(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	param := &l1l2FinalizedLevelParam{}
	if err := p.decode(0, param); err != nil {
		return nil, err
	}
	err := runWrite(ctx, d, func(tx *sqlx.Tx) error {
		return db.InsertOrReplaceL1L2FinalizedLevel(ctx, tx, &dbtypes.L1L2FinalizedLevel{
			L1Level:      param.L1Level,
			StartL2Level: param.StartL2Level,
			EndL2Level:   param.EndL2Level,
		})
	})
	if err != nil {
		return nil, err
	}
	return &LevelResponse{Level: param.L1Level}, nil
}

func opSetSmartRollupAddress(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	address, err := p.string(0)
	if err != nil {
		return nil, err
	}
	err = runWrite(ctx, d, func(tx *sqlx.Tx) error {
		return db.SetSmartRollupAddress(ctx, tx, address)
	})
	if err != nil {
		return nil, err
	}
	return &SmartRollupAddressResponse{Address: address}, nil
}

func opSetHistoryMode(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	mode, err := p.string(0)
	if err != nil {
		return nil, err
	}
	err = runWrite(ctx, d, func(tx *sqlx.Tx) error {
		return db.SetHistoryMode(ctx, tx, mode)
	})
	if err != nil {
		return nil, err
	}
	return &HistoryModeResponse{HistoryMode: mode}, nil
}
