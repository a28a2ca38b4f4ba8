package dbtypes

// LevelApply carries everything written for one level by an apply.
type LevelApply struct {
	Level        int64
	Payload      []byte
	Timestamp    int64
	BlockHash    []byte
	Block        []byte
	Transactions []*Transaction
	ContextHash  []byte
}

// RollbackResult holds the number of rows touched per table by one rollback pass.
type RollbackResult struct {
	Blueprints             int64 `json:"blueprints"`
	Blocks                 int64 `json:"blocks"`
	Transactions           int64 `json:"transactions"`
	ContextHashes          int64 `json:"context_hashes"`
	DelayedTransactions    int64 `json:"delayed_transactions"`
	IrminChunks            int64 `json:"irmin_chunks"`
	L1L2Relationships      int64 `json:"l1_l2_relationships"`
	L1L2FinalizedLevels    int64 `json:"l1_l2_finalized_levels"`
	KernelUpgrades         int64 `json:"kernel_upgrades"`
	SequencerUpgrades      int64 `json:"sequencer_upgrades"`
	KernelUpgradesReset    int64 `json:"kernel_upgrades_reset"`
	SequencerUpgradesReset int64 `json:"sequencer_upgrades_reset"`
}

// Total returns the number of deleted rows. Upgrade rows that were only
// reset to unapplied are not counted.
func (r *RollbackResult) Total() int64 {
	return r.Blueprints + r.Blocks + r.Transactions + r.ContextHashes +
		r.DelayedTransactions + r.IrminChunks + r.L1L2Relationships +
		r.L1L2FinalizedLevels + r.KernelUpgrades + r.SequencerUpgrades
}
