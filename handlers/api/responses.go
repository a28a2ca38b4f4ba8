package api

import (
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/ethpandaops/evmstore/dbtypes"
)

// ResponseHeader tags every response with its type. The dispatcher fills
// it from the operation table.
type ResponseHeader struct {
	Type string `json:"type"`
}

func (h *ResponseHeader) setType(responseType string) {
	h.Type = responseType
}

type typedResponse interface {
	setType(responseType string)
}

func optionalBytes(b []byte) *hexutil.Bytes {
	if b == nil {
		return nil
	}
	hb := hexutil.Bytes(b)
	return &hb
}

type BlueprintResponse struct {
	ResponseHeader
	Payload   hexutil.Bytes `json:"payload"`
	Timestamp int64         `json:"timestamp"`
}

type BlueprintRangeEntry struct {
	Level   int64         `json:"level"`
	Payload hexutil.Bytes `json:"payload"`
}

type BlueprintRangeResponse struct {
	ResponseHeader
	Blueprints []*BlueprintRangeEntry `json:"blueprints"`
}

type BlockResponse struct {
	ResponseHeader
	Block hexutil.Bytes `json:"block"`
}

type BlockHashResponse struct {
	ResponseHeader
	Hash hexutil.Bytes `json:"hash"`
}

type BlockLevelResponse struct {
	ResponseHeader
	Level int64 `json:"level"`
}

type HashResponse struct {
	ResponseHeader
	Hash hexutil.Bytes `json:"hash"`
}

type CountResponse struct {
	ResponseHeader
	Count int64 `json:"count"`
}

type TransactionReceipt struct {
	BlockHash     hexutil.Bytes  `json:"block_hash"`
	BlockNumber   int64          `json:"block_number"`
	Index         int64          `json:"index"`
	Hash          hexutil.Bytes  `json:"hash"`
	From          hexutil.Bytes  `json:"from"`
	To            *hexutil.Bytes `json:"to"`
	ReceiptFields hexutil.Bytes  `json:"receipt_fields"`
}

func newTransactionReceipt(receipt *dbtypes.TransactionReceipt) *TransactionReceipt {
	return &TransactionReceipt{
		BlockHash:     receipt.BlockHash,
		BlockNumber:   receipt.BlockNumber,
		Index:         receipt.Index,
		Hash:          receipt.Hash,
		From:          receipt.From,
		To:            optionalBytes(receipt.To),
		ReceiptFields: receipt.ReceiptFields,
	}
}

type TransactionReceiptResponse struct {
	ResponseHeader
	*TransactionReceipt
}

type TransactionReceiptsResponse struct {
	ResponseHeader
	Receipts []*TransactionReceipt `json:"receipts"`
}

type TransactionObject struct {
	BlockHash    hexutil.Bytes  `json:"block_hash"`
	BlockNumber  int64          `json:"block_number"`
	Index        int64          `json:"index"`
	Hash         hexutil.Bytes  `json:"hash"`
	From         hexutil.Bytes  `json:"from"`
	To           *hexutil.Bytes `json:"to"`
	ObjectFields hexutil.Bytes  `json:"object_fields"`
}

func newTransactionObject(object *dbtypes.TransactionObject) *TransactionObject {
	return &TransactionObject{
		BlockHash:    object.BlockHash,
		BlockNumber:  object.BlockNumber,
		Index:        object.Index,
		Hash:         object.Hash,
		From:         object.From,
		To:           optionalBytes(object.To),
		ObjectFields: object.ObjectFields,
	}
}

type TransactionObjectResponse struct {
	ResponseHeader
	*TransactionObject
}

type TransactionObjectsResponse struct {
	ResponseHeader
	Objects []*TransactionObject `json:"objects"`
}

type ContextHashResponse struct {
	ResponseHeader
	ContextHash hexutil.Bytes `json:"context_hash"`
}

type LevelContextHashResponse struct {
	ResponseHeader
	Level       int64         `json:"level"`
	ContextHash hexutil.Bytes `json:"context_hash"`
}

type SmartRollupAddressResponse struct {
	ResponseHeader
	Address string `json:"address"`
}

type HistoryModeResponse struct {
	ResponseHeader
	HistoryMode string `json:"history_mode"`
}

type ActivationLevelsResponse struct {
	ResponseHeader
	ActivationLevels []int64 `json:"activation_levels"`
}

type KernelUpgradeResponse struct {
	ResponseHeader
	InjectedBefore      *int64        `json:"injected_before,omitempty"`
	RootHash            hexutil.Bytes `json:"root_hash"`
	ActivationTimestamp int64         `json:"activation_timestamp"`
}

type SequencerUpgradeResponse struct {
	ResponseHeader
	InjectedBefore      *int64        `json:"injected_before,omitempty"`
	Sequencer           hexutil.Bytes `json:"sequencer"`
	PoolAddress         hexutil.Bytes `json:"pool_address"`
	ActivationTimestamp int64         `json:"activation_timestamp"`
}

type PayloadResponse struct {
	ResponseHeader
	Payload hexutil.Bytes `json:"payload"`
}

type L1L2LevelRelationshipResponse struct {
	ResponseHeader
	LatestL2Level int64 `json:"latest_l2_level"`
	L1Level       int64 `json:"l1_level"`
}

type L1L2FinalizedRangeResponse struct {
	ResponseHeader
	StartL2Level int64 `json:"start_l2_level"`
	EndL2Level   int64 `json:"end_l2_level"`
}

type FinalizedLevel struct {
	L1Level      int64 `json:"l1_level"`
	StartL2Level int64 `json:"start_l2_level"`
	EndL2Level   int64 `json:"end_l2_level"`
}

func newFinalizedLevel(level *dbtypes.L1L2FinalizedLevel) *FinalizedLevel {
	return &FinalizedLevel{
		L1Level:      level.L1Level,
		StartL2Level: level.StartL2Level,
		EndL2Level:   level.EndL2Level,
	}
}

type L1L2FinalizedLevelLastResponse struct {
	ResponseHeader
	*FinalizedLevel
}

type L1L2FinalizedLevelListResponse struct {
	ResponseHeader
	Levels []*FinalizedLevel `json:"levels"`
}

type LevelResponse struct {
	ResponseHeader
	Level int64 `json:"level"`
}

type UpgradesAppliedResponse struct {
	ResponseHeader
	Level     int64 `json:"level"`
	Kernel    int64 `json:"kernel"`
	Sequencer int64 `json:"sequencer"`
}

type IrminChunkResponse struct {
	ResponseHeader
	Level     int64 `json:"level"`
	Timestamp int64 `json:"timestamp"`
}

type BlockStorageModeResponse struct {
	ResponseHeader
	Legacy bool `json:"legacy"`
}

type MigrationResponse struct {
	ResponseHeader
	Version int64 `json:"version"`
}

type BlueprintAppliedResponse struct {
	ResponseHeader
	Level               int64          `json:"level"`
	PendingConfirmation *hexutil.Bytes `json:"pending_confirmation"`
	HistoryMode         string         `json:"history_mode"`
}

type RollbackResponse struct {
	ResponseHeader
	*dbtypes.RollbackResult
	Total int64 `json:"total"`
}
