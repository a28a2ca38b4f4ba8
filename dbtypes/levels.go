package dbtypes

type DelayedTransaction struct {
	InjectedBefore int64  `db:"injected_before"`
	Hash           []byte `db:"hash"`
	Payload        []byte `db:"payload"`
}

type IrminChunk struct {
	Level     int64 `db:"level"`
	Timestamp int64 `db:"timestamp"`
}

type L1L2LevelRelationship struct {
	LatestL2Level int64 `db:"latest_l2_level"`
	L1Level       int64 `db:"l1_level"`
}

type L1L2FinalizedLevel struct {
	L1Level      int64 `db:"l1_level"`
	StartL2Level int64 `db:"start_l2_level"`
	EndL2Level   int64 `db:"end_l2_level"`
}

type MetadataEntry struct {
	Key   string `db:"key"`
	Value string `db:"value"`
}

const (
	MetadataKeySmartRollupAddress = "smart_rollup_address"
	MetadataKeyHistoryMode        = "history_mode"
)
