package api

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ethpandaops/evmstore/db"
	"github.com/ethpandaops/evmstore/dbtypes"
)

func readOp(responseType string, handler operationFn) *operation {
	return &operation{responseType: responseType, handler: handler}
}

// writeOp marks operations that modify the store. They need a write token
// when write authentication is enabled.
func writeOp(responseType string, handler operationFn) *operation {
	return &operation{responseType: responseType, handler: handler, write: true}
}

func buildOperations() map[string]*operation {
	return map[string]*operation{
		// level ledger & block store
		"select_blueprint":            readOp("Blueprint", opSelectBlueprint),
		"select_blueprint_range":      readOp("BlueprintRange", opSelectBlueprintRange),
		"select_block_with_level":     readOp("Block", opSelectBlockWithLevel),
		"select_block_with_hash":      readOp("Block", opSelectBlockWithHash),
		"select_block_hash_of_number": readOp("BlockHash", opSelectBlockHashOfNumber),
		"select_block_number_of_hash": readOp("BlockId", opSelectBlockNumberOfHash),
		"select_blueprint_top_level":  readOp("Level", levelBoundOp(db.GetBlueprintTopLevel)),
		"select_blueprint_base_level": readOp("Level", levelBoundOp(db.GetBlueprintBaseLevel)),
		"select_block_top_level":      readOp("Level", levelBoundOp(db.GetBlockTopLevel)),
		"select_block_base_level":     readOp("Level", levelBoundOp(db.GetBlockBaseLevel)),

		// pending confirmations
		"select_pending_confirmation_with_level": readOp("PendingConfirmation", opSelectPendingConfirmation),
		"count_pending_confirmations":            readOp("PendingConfirmationCount", opCountPendingConfirmations),

		// transactions
		"select_transaction_receipt":                    readOp("TransactionReceipt", opSelectTransactionReceipt),
		"select_transaction_receipts_from_block_number": readOp("TransactionReceipts", opSelectTransactionReceipts),
		"select_transaction_object":                     readOp("TransactionObject", opSelectTransactionObject),
		"select_transaction_objects_from_block_number":  readOp("TransactionObjects", opSelectTransactionObjects),

		// context hashes
		"select_context_hash":       readOp("ContextHash", opSelectContextHash),
		"get_latest_context_hash":   readOp("ContextHashGet", opGetLatestContextHash),
		"get_earliest_context_hash": readOp("ContextHashGet", opGetEarliestContextHash),

		"select_context_hash_of_block_hash": readOp("ContextHash", opSelectContextHashOfBlockHash),

		// metadata
		"get_smart_rollup_address": readOp("MetadataSmartRollupAddress", opGetSmartRollupAddress),
		"get_history_mode":         readOp("MetadataHistoryMode", opGetHistoryMode),

		// upgrades
		"kernel_upgrade_activation_levels":             readOp("ActivationLevels", opKernelActivationLevels),
		"get_latest_unapplied_kernel_upgrade":          readOp("KernelUpgradeLatestUnapplied", opLatestUnappliedKernelUpgrade),
		"find_kernel_upgrade_injected_before":          readOp("KernelUpgradeInjected", opFindKernelUpgradeInjectedBefore),
		"find_latest_kernel_upgrade_injected_after":    readOp("KernelUpgradeLatestUnapplied", opFindLatestKernelUpgradeInjectedAfter),
		"sequencer_upgrade_activation_levels":          readOp("ActivationLevels", opSequencerActivationLevels),
		"get_latest_unapplied_sequencer_upgrade":       readOp("SequencerUpgradeLatestUnapplied", opLatestUnappliedSequencerUpgrade),
		"find_sequencer_upgrade_injected_before":       readOp("SequencerUpgradeInjected", opFindSequencerUpgradeInjectedBefore),
		"find_latest_sequencer_upgrade_injected_after": readOp("SequencerUpgradeLatestUnapplied", opFindLatestSequencerUpgradeInjectedAfter),

		// delayed transactions, l1/l2 levels, irmin chunks
		"select_delayed_transaction_at_level":      readOp("DelayedTransactionSelect", opSelectDelayedTransactionAtLevel),
		"select_delayed_transaction_at_hash":       readOp("DelayedTransactionSelect", opSelectDelayedTransactionAtHash),
		"get_l1_l2_level_relationship":             readOp("L1L2LevelRelationshipGet", opGetL1L2LevelRelationship),
		"get_l1_l2_finalized_level":                readOp("L1L2FinalizedLevelGet", opGetL1L2FinalizedLevel),
		"last_finalized_l2_level":                  readOp("L1L2FinalizedLevel", opLastFinalizedL2Level),
		"last_l1_l2_finalized_level":               readOp("L1L2FinalizedLevelLast", opLastL1L2FinalizedLevel),
		"find_finalized_l1_level":                  readOp("L1L2FinalizedLevel", opFindFinalizedL1Level),
		"list_l1_l1_finalized_levels_by_l2_levels": readOp("L1L2FinalizedLevelList", opListFinalizedLevelsByL2Levels),
		"list_l1_l1_finalized_levels_by_l1_levels": readOp("L1L2FinalizedLevelList", opListFinalizedLevelsByL1Levels),
		"nth_irmin_chunk":                          readOp("IrminChunk", opNthIrminChunk),
		"latest_irmin_chunk":                       readOp("IrminChunk", opLatestIrminChunk),
		"block_storage_mode":                       readOp("BlockStorageMode", opBlockStorageMode),
		"current_migration":                        readOp("CurrentMigrationId", opCurrentMigration),

		// writes
		"apply_blueprint": writeOp("BlueprintApplied", opApplyBlueprint),
		"clear_after":     writeOp("Rollback", opClearAfter),
		"clear_before":    writeOp("Rollback", opClearBefore),

		"insert_kernel_upgrade":              writeOp("KernelUpgradeInsert", opInsertKernelUpgrade),
		"insert_sequencer_upgrade":           writeOp("SequencerUpgradeInsert", opInsertSequencerUpgrade),
		"record_upgrades_applied":            writeOp("UpgradesApplied", opRecordUpgradesApplied),
		"insert_pending_confirmation":        writeOp("PendingConfirmationInsert", opInsertPendingConfirmation),
		"delete_pending_confirmation":        writeOp("PendingConfirmationDelete", opDeletePendingConfirmation),
		"clear_pending_confirmations":        writeOp("PendingConfirmationClear", opClearPendingConfirmations),
		"insert_delayed_transaction":         writeOp("DelayedTransactionInsert", opInsertDelayedTransaction),
		"insert_irmin_chunk":                 writeOp("IrminChunkInsert", opInsertIrminChunk),
		"clear_irmin_chunks":                 writeOp("IrminChunkClear", opClearIrminChunks),
		"clear_irmin_chunks_before_included": writeOp("IrminChunkClear", opClearIrminChunksBeforeIncluded),
		"insert_l1_l2_level_relationship":    writeOp("L1L2LevelRelationshipInsert", opInsertL1L2LevelRelationship),
		"insert_l1_l2_finalized_level":       writeOp("L1L2FinalizedLevelInsert", opInsertL1L2FinalizedLevel),
		"set_smart_rollup_address":           writeOp("MetadataSmartRollupAddress", opSetSmartRollupAddress),
		"set_history_mode":                   writeOp("MetadataHistoryMode", opSetHistoryMode),
	}
}

func opSelectBlueprint(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	level, err := p.int64(0)
	if err != nil {
		return nil, err
	}
	blueprint, err := db.GetBlueprint(ctx, d.ledger.Database().Reader(), level)
	if err != nil {
		return nil, err
	}
	return &BlueprintResponse{Payload: blueprint.Payload, Timestamp: blueprint.Timestamp}, nil
}

func opSelectBlueprintRange(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	low, high, err := p.int64Pair()
	if err != nil {
		return nil, err
	}
	payloads, err := db.GetBlueprintRange(ctx, d.ledger.Database().Reader(), low, high)
	if err != nil {
		return nil, err
	}
	response := &BlueprintRangeResponse{Blueprints: make([]*BlueprintRangeEntry, len(payloads))}
	for i, payload := range payloads {
		response.Blueprints[i] = &BlueprintRangeEntry{Level: payload.Level, Payload: payload.Payload}
	}
	return response, nil
}

func opSelectBlockWithLevel(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	level, err := p.int64(0)
	if err != nil {
		return nil, err
	}
	block, err := db.GetBlockByLevel(ctx, d.ledger.Database().Reader(), level)
	if err != nil {
		return nil, err
	}
	return &BlockResponse{Block: block.Block}, nil
}

func opSelectBlockWithHash(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	hash, err := p.bytes(0)
	if err != nil {
		return nil, err
	}
	block, err := db.GetBlockByHash(ctx, d.ledger.Database().Reader(), hash)
	if err != nil {
		return nil, err
	}
	return &BlockResponse{Block: block.Block}, nil
}

func opSelectBlockHashOfNumber(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	level, err := p.int64(0)
	if err != nil {
		return nil, err
	}
	hash, err := d.ledger.GetBlockHashByLevel(ctx, level)
	if err != nil {
		return nil, err
	}
	return &BlockHashResponse{Hash: hash}, nil
}

func opSelectBlockNumberOfHash(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	hash, err := p.bytes(0)
	if err != nil {
		return nil, err
	}
	level, err := d.ledger.GetBlockLevelByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	return &BlockLevelResponse{Level: level}, nil
}

// levelBoundOp serves the top and base level lookups of the level keyed tables.
func levelBoundOp(lookup func(ctx context.Context, q sqlx.QueryerContext) (int64, error)) operationFn {
	return func(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
		level, err := lookup(ctx, d.ledger.Database().Reader())
		if err != nil {
			return nil, err
		}
		return &LevelResponse{Level: level}, nil
	}
}

func opSelectPendingConfirmation(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	level, err := p.int64(0)
	if err != nil {
		return nil, err
	}
	hash, err := db.GetPendingConfirmation(ctx, d.ledger.Database().Reader(), level)
	if err != nil {
		return nil, err
	}
	return &HashResponse{Hash: hash}, nil
}

func opCountPendingConfirmations(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	count, err := db.CountPendingConfirmations(ctx, d.ledger.Database().Reader())
	if err != nil {
		return nil, err
	}
	return &CountResponse{Count: count}, nil
}

func opSelectTransactionReceipt(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	hash, err := p.bytes(0)
	if err != nil {
		return nil, err
	}
	receipt, err := db.GetTransactionReceipt(ctx, d.ledger.Database().Reader(), hash)
	if err != nil {
		return nil, err
	}
	return &TransactionReceiptResponse{TransactionReceipt: newTransactionReceipt(receipt)}, nil
}

func opSelectTransactionReceipts(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	blockNumber, err := p.int64(0)
	if err != nil {
		return nil, err
	}
	receipts, err := db.GetTransactionReceiptsByBlockNumber(ctx, d.ledger.Database().Reader(), blockNumber)
	if err != nil {
		return nil, err
	}
	response := &TransactionReceiptsResponse{Receipts: make([]*TransactionReceipt, len(receipts))}
	for i, receipt := range receipts {
		response.Receipts[i] = newTransactionReceipt(receipt)
	}
	return response, nil
}

func opSelectTransactionObject(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	hash, err := p.bytes(0)
	if err != nil {
		return nil, err
	}
	object, err := db.GetTransactionObject(ctx, d.ledger.Database().Reader(), hash)
	if err != nil {
		return nil, err
	}
	return &TransactionObjectResponse{TransactionObject: newTransactionObject(object)}, nil
}

func opSelectTransactionObjects(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	blockNumber, err := p.int64(0)
	if err != nil {
		return nil, err
	}
	objects, err := db.GetTransactionObjectsByBlockNumber(ctx, d.ledger.Database().Reader(), blockNumber)
	if err != nil {
		return nil, err
	}
	response := &TransactionObjectsResponse{Objects: make([]*TransactionObject, len(objects))}
	for i, object := range objects {
		response.Objects[i] = newTransactionObject(object)
	}
	return response, nil
}

func opSelectContextHash(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	level, err := p.int64(0)
	if err != nil {
		return nil, err
	}
	hash, err := db.GetContextHash(ctx, d.ledger.Database().Reader(), level)
	if err != nil {
		return nil, err
	}
	return &ContextHashResponse{ContextHash: hash}, nil
}

func opGetLatestContextHash(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	contextHash, err := db.GetLatestContextHash(ctx, d.ledger.Database().Reader())
	if err != nil {
		return nil, err
	}
	return &LevelContextHashResponse{Level: contextHash.Level, ContextHash: contextHash.ContextHash}, nil
}

func opGetEarliestContextHash(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	contextHash, err := db.GetEarliestContextHash(ctx, d.ledger.Database().Reader())
	if err != nil {
		return nil, err
	}
	return &LevelContextHashResponse{Level: contextHash.Level, ContextHash: contextHash.ContextHash}, nil
}

func opSelectContextHashOfBlockHash(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	hash, err := p.bytes(0)
	if err != nil {
		return nil, err
	}
	contextHash, err := db.GetContextHashByBlockHash(ctx, d.ledger.Database().Reader(), hash)
	if err != nil {
		return nil, err
	}
	return &ContextHashResponse{ContextHash: contextHash}, nil
}

func opGetSmartRollupAddress(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	address, err := db.GetSmartRollupAddress(ctx, d.ledger.Database().Reader())
	if err != nil {
		return nil, err
	}
	return &SmartRollupAddressResponse{Address: address}, nil
}

func opGetHistoryMode(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	mode, err := db.GetHistoryMode(ctx, d.ledger.Database().Reader())
	if err != nil {
		return nil, err
	}
	return &HistoryModeResponse{HistoryMode: mode}, nil
}

func opApplyBlueprint(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	param := &levelApplyParam{}
	if err := p.decode(0, param); err != nil {
		return nil, err
	}

	apply := &dbtypes.LevelApply{
		Level:        param.Level,
		Payload:      param.Payload,
		Timestamp:    param.Timestamp,
		BlockHash:    param.BlockHash,
		Block:        param.Block,
		ContextHash:  param.ContextHash,
		Transactions: make([]*dbtypes.Transaction, len(param.Transactions)),
	}
	for i, tx := range param.Transactions {
		apply.Transactions[i] = &dbtypes.Transaction{
			Index:         tx.Index,
			Hash:          tx.Hash,
			From:          tx.From,
			To:            tx.To,
			ReceiptFields: tx.ReceiptFields,
			ObjectFields:  tx.ObjectFields,
		}
	}

	result, err := d.ledger.ApplyBlueprint(ctx, apply)
	if err != nil {
		return nil, err
	}
	return &BlueprintAppliedResponse{
		Level:               result.Level,
		PendingConfirmation: optionalBytes(result.PendingConfirmation),
		HistoryMode:         result.HistoryMode,
	}, nil
}

func opClearAfter(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	level, err := p.int64(0)
	if err != nil {
		return nil, err
	}
	result, err := d.ledger.ClearAfter(ctx, level)
	if err != nil {
		return nil, err
	}
	return &RollbackResponse{RollbackResult: result, Total: result.Total()}, nil
}

func opClearBefore(ctx context.Context, d *Dispatcher, p params) (typedResponse, error) {
	level, err := p.int64(0)
	if err != nil {
		return nil, err
	}
	result, err := d.ledger.ClearBefore(ctx, level)
	if err != nil {
		return nil, err
	}
	return &RollbackResponse{RollbackResult: result, Total: result.Total()}, nil
}
