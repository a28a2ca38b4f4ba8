package api

import (
	"context"

	"github.com/ethpandaops/evmstore/db"
	"github.com/ethpandaops/evmstore/dbtypes"
)

func newKernelUpgradeResponse(upgrade *dbtypes.KernelUpgrade, withLevel bool) *KernelUpgradeResponse {
	response := &KernelUpgradeResponse{
		RootHash:            upgrade.RootHash,
		ActivationTimestamp: upgrade.ActivationTimestamp,
	}
	if withLevel {
		injectedBefore := upgrade.InjectedBefore
		response.InjectedBefore = &injectedBefore
	}
	return response
}

func newSequencerUpgradeResponse(upgrade *dbtypes.SequencerUpgrade, withLevel bool) *SequencerUpgradeResponse {
	response := &SequencerUpgradeResponse{
		Sequencer:           upgrade.Sequencer,
		PoolAddress:         upgrade.PoolAddress,
		ActivationTimestamp: upgrade.ActivationTimestamp,
	}
	if withLevel {
		injectedBefore := upgrade.InjectedBefore
		response.InjectedBefore = &injectedBefore
	}
	return response
}

func opKernelActivationLevels(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	levels, err := db.GetKernelActivationLevels(ctx, d.ledger.Database().Reader())
	if err != nil {
		return nil, err
	}
	return &ActivationLevelsResponse{ActivationLevels: levels}, nil
}

func opLatestUnappliedKernelUpgrade(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	upgrade, err := db.GetLatestUnappliedKernelUpgrade(ctx, d.ledger.Database().Reader())
	if err != nil {
		return nil, err
	}
	return newKernelUpgradeResponse(upgrade, true), nil
}

func opFindKernelUpgradeInjectedBefore(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	level, err := p.int64(0)
	if err != nil {
		return nil, err
	}
	upgrade, err := db.FindKernelUpgradeInjectedBefore(ctx, d.ledger.Database().Reader(), level)
	if err != nil {
		return nil, err
	}
	return newKernelUpgradeResponse(upgrade, false), nil
}

func opFindLatestKernelUpgradeInjectedAfter(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	level, err := p.int64(0)
	if err != nil {
		return nil, err
	}
	upgrade, err := db.FindLatestKernelUpgradeInjectedAfter(ctx, d.ledger.Database().Reader(), level)
	if err != nil {
		return nil, err
	}
	return newKernelUpgradeResponse(upgrade, true), nil
}

func opSequencerActivationLevels(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	levels, err := db.GetSequencerActivationLevels(ctx, d.ledger.Database().Reader())
	if err != nil {
		return nil, err
	}
	return &ActivationLevelsResponse{ActivationLevels: levels}, nil
}

func opLatestUnappliedSequencerUpgrade(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	upgrade, err := db.GetLatestUnappliedSequencerUpgrade(ctx, d.ledger.Database().Reader())
	if err != nil {
		return nil, err
	}
	return newSequencerUpgradeResponse(upgrade, true), nil
}

func opFindSequencerUpgradeInjectedBefore(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	level, err := p.int64(0)
	if err != nil {
		return nil, err
	}
	upgrade, err := db.FindSequencerUpgradeInjectedBefore(ctx, d.ledger.Database().Reader(), level)
	if err != nil {
		return nil, err
	}
	return newSequencerUpgradeResponse(upgrade, false), nil
}

func opFindLatestSequencerUpgradeInjectedAfter(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	level, err := p.int64(0)
	if err != nil {
		return nil, err
	}
	upgrade, err := db.FindLatestSequencerUpgradeInjectedAfter(ctx, d.ledger.Database().Reader(), level)
	if err != nil {
		return nil, err
	}
	return newSequencerUpgradeResponse(upgrade, true), nil
}

func opSelectDelayedTransactionAtLevel(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	level, err := p.int64(0)
	if err != nil {
		return nil, err
	}
	payload, err := db.GetDelayedTransactionAtLevel(ctx, d.ledger.Database().Reader(), level)
	if err != nil {
		return nil, err
	}
	return &PayloadResponse{Payload: payload}, nil
}

func opSelectDelayedTransactionAtHash(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	hash, err := p.bytes(0)
	if err != nil {
		return nil, err
	}
	payload, err := db.GetDelayedTransactionByHash(ctx, d.ledger.Database().Reader(), hash)
	if err != nil {
		return nil, err
	}
	return &PayloadResponse{Payload: payload}, nil
}

func opGetL1L2LevelRelationship(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	relationship, err := db.GetLatestL1L2LevelRelationship(ctx, d.ledger.Database().Reader())
	if err != nil {
		return nil, err
	}
	return &L1L2LevelRelationshipResponse{
		LatestL2Level: relationship.LatestL2Level,
		L1Level:       relationship.L1Level,
	}, nil
}

func opGetL1L2FinalizedLevel(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	l1Level, err := p.int64(0)
	if err != nil {
		return nil, err
	}
	finalized, err := db.GetL1L2FinalizedLevel(ctx, d.ledger.Database().Reader(), l1Level)
	if err != nil {
		return nil, err
	}
	return &L1L2FinalizedRangeResponse{
		StartL2Level: finalized.StartL2Level,
		EndL2Level:   finalized.EndL2Level,
	}, nil
}

func opLastFinalizedL2Level(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	level, err := db.GetLastFinalizedL2Level(ctx, d.ledger.Database().Reader())
	if err != nil {
		return nil, err
	}
	return &LevelResponse{Level: level}, nil
}

func opLastL1L2FinalizedLevel(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	finalized, err := db.GetLastL1L2FinalizedLevel(ctx, d.ledger.Database().Reader())
	if err != nil {
		return nil, err
	}
	return &L1L2FinalizedLevelLastResponse{FinalizedLevel: newFinalizedLevel(finalized)}, nil
}

func opFindFinalizedL1Level(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	l2Level, err := p.int64(0)
	if err != nil {
		return nil, err
	}
	level, err := db.FindFinalizingL1Level(ctx, d.ledger.Database().Reader(), l2Level)
	if err != nil {
		return nil, err
	}
	return &LevelResponse{Level: level}, nil
}

func finalizedLevelList(levels []*dbtypes.L1L2FinalizedLevel) *L1L2FinalizedLevelListResponse {
	response := &L1L2FinalizedLevelListResponse{Levels: make([]*FinalizedLevel, len(levels))}
	for i, level := range levels {
		response.Levels[i] = newFinalizedLevel(level)
	}
	return response
}

func opListFinalizedLevelsByL2Levels(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	start, end, err := p.int64Pair()
	if err != nil {
		return nil, err
	}
	levels, err := db.GetL1L2FinalizedLevelsByL2Range(ctx, d.ledger.Database().Reader(), start, end)
	if err != nil {
		return nil, err
	}
	return finalizedLevelList(levels), nil
}

func opListFinalizedLevelsByL1Levels(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	start, end, err := p.int64Pair()
	if err != nil {
		return nil, err
	}
	levels, err := db.GetL1L2FinalizedLevelsByL1Range(ctx, d.ledger.Database().Reader(), start, end)
	if err != nil {
		return nil, err
	}
	return finalizedLevelList(levels), nil
}

func opNthIrminChunk(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	offset, err := p.int64(0)
	if err != nil {
		return nil, err
	}
	chunk, err := db.GetNthIrminChunk(ctx, d.ledger.Database().Reader(), offset)
	if err != nil {
		return nil, err
	}
	return &IrminChunkResponse{Level: chunk.Level, Timestamp: chunk.Timestamp}, nil
}

func opLatestIrminChunk(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	chunk, err := db.GetLatestIrminChunk(ctx, d.ledger.Database().Reader())
	if err != nil {
		return nil, err
	}
	return &IrminChunkResponse{Level: chunk.Level, Timestamp: chunk.Timestamp}, nil
}

func opBlockStorageMode(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	legacy, err := db.IsLegacyBlockStorage(ctx, d.ledger.Database().Reader())
	if err != nil {
		return nil, err
	}
	return &BlockStorageModeResponse{Legacy: legacy}, nil
}

func opCurrentMigration(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	version, err := d.ledger.Database().GetCurrentMigration()
	if err != nil {
		return nil, err
	}
	return &MigrationResponse{Version: version}, nil
}
