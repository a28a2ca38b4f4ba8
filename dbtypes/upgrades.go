package dbtypes

// KernelUpgrade is a scheduled kernel activation. AppliedBefore stays nil
// until the upgrade is applied and is reset to nil when the chain rewinds
// past the application level.
type KernelUpgrade struct {
	InjectedBefore      int64  `db:"injected_before"`
	RootHash            []byte `db:"root_hash"`
	ActivationTimestamp int64  `db:"activation_timestamp"`
	AppliedBefore       *int64 `db:"applied_before"`
}

type SequencerUpgrade struct {
	InjectedBefore      int64  `db:"injected_before"`
	Sequencer           []byte `db:"sequencer"`
	PoolAddress         []byte `db:"pool_address"`
	ActivationTimestamp int64  `db:"activation_timestamp"`
	AppliedBefore       *int64 `db:"applied_before"`
}

func (u *KernelUpgrade) IsApplied() bool {
	return u.AppliedBefore != nil
}

func (u *SequencerUpgrade) IsApplied() bool {
	return u.AppliedBefore != nil
}
