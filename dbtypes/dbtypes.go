package dbtypes

// Blueprint is the raw input payload that produced the block at a level.
type Blueprint struct {
	Level     int64  `db:"level"`
	Payload   []byte `db:"payload"`
	Timestamp int64  `db:"timestamp"`
}

// BlueprintPayload is a (level, payload) pair returned by range queries.
type BlueprintPayload struct {
	Level   int64  `db:"level"`
	Payload []byte `db:"payload"`
}

type Block struct {
	Level int64  `db:"level"`
	Hash  []byte `db:"hash"`
	Block []byte `db:"block"`
}

type ContextHash struct {
	Level       int64  `db:"level"`
	ContextHash []byte `db:"context_hash"`
}

type PendingConfirmation struct {
	Level int64  `db:"level"`
	Hash  []byte `db:"hash"`
}

// Transaction is the physical transaction row. Receipts and objects are
// read-time projections of it.
type Transaction struct {
	BlockHash     []byte `db:"block_hash"`
	BlockNumber   int64  `db:"block_number"`
	Index         int64  `db:"tx_index"`
	Hash          []byte `db:"hash"`
	From          []byte `db:"from_address"`
	To            []byte `db:"to_address"` // nil for contract creations
	ReceiptFields []byte `db:"receipt_fields"`
	ObjectFields  []byte `db:"object_fields"`
}

type TransactionReceipt struct {
	BlockHash     []byte `db:"block_hash"`
	BlockNumber   int64  `db:"block_number"`
	Index         int64  `db:"tx_index"`
	Hash          []byte `db:"hash"`
	From          []byte `db:"from_address"`
	To            []byte `db:"to_address"`
	ReceiptFields []byte `db:"receipt_fields"`
}

type TransactionObject struct {
	BlockHash    []byte `db:"block_hash"`
	BlockNumber  int64  `db:"block_number"`
	Index        int64  `db:"tx_index"`
	Hash         []byte `db:"hash"`
	From         []byte `db:"from_address"`
	To           []byte `db:"to_address"`
	ObjectFields []byte `db:"object_fields"`
}

func (tx *Transaction) Receipt() *TransactionReceipt {
	return &TransactionReceipt{
		BlockHash:     tx.BlockHash,
		BlockNumber:   tx.BlockNumber,
		Index:         tx.Index,
		Hash:          tx.Hash,
		From:          tx.From,
		To:            tx.To,
		ReceiptFields: tx.ReceiptFields,
	}
}

func (tx *Transaction) Object() *TransactionObject {
	return &TransactionObject{
		BlockHash:    tx.BlockHash,
		BlockNumber:  tx.BlockNumber,
		Index:        tx.Index,
		Hash:         tx.Hash,
		From:         tx.From,
		To:           tx.To,
		ObjectFields: tx.ObjectFields,
	}
}
