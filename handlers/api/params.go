package api

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/mitchellh/mapstructure"
)

var bytesType = reflect.TypeOf([]byte(nil))

// hexBytesHook decodes 0x prefixed hex strings into byte slices. Numbers
// arrive as json.Number, which is string kinded too, and fail the prefix check.
func hexBytesHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != bytesType {
		return data, nil
	}
	return hexutil.Decode(reflect.ValueOf(data).String())
}

// params holds the positional parameters of one request. Numbers are
// json.Number values, so integers are decoded without float rounding.
type params []any

// decode converts parameter idx into target.
func (p params) decode(idx int, target any) error {
	if idx >= len(p) {
		return fmt.Errorf("%w: missing parameter %v", ErrMalformedInput, idx)
	}
	if p[idx] == nil {
		return fmt.Errorf("%w: parameter %v is null", ErrMalformedInput, idx)
	}

	// every object key has to be present, nullable fields are sent as null
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  hexBytesHook,
		ErrorUnused: true,
		ErrorUnset:  true,
		Result:      target,
	})
	if err != nil {
		return err
	}

	if err := decoder.Decode(p[idx]); err != nil {
		return fmt.Errorf("%w: parameter %v: %v", ErrMalformedInput, idx, err)
	}
	if v, ok := target.(validator); ok {
		if err := v.validate(); err != nil {
			return fmt.Errorf("%w: parameter %v: %v", ErrMalformedInput, idx, err)
		}
	}
	return nil
}

// validator is implemented by object parameters with non-nullable fields.
type validator interface {
	validate() error
}

// requireFields returns an error naming all nil fields.
func requireFields(fields map[string][]byte) error {
	names := make([]string, 0, len(fields))
	for name, value := range fields {
		if value == nil {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	sort.Strings(names)
	return fmt.Errorf("%v must not be null", strings.Join(names, ", "))
}

func (p params) int64(idx int) (int64, error) {
	var value int64
	err := p.decode(idx, &value)
	return value, err
}

func (p params) bytes(idx int) ([]byte, error) {
	var value []byte
	err := p.decode(idx, &value)
	return value, err
}

func (p params) string(idx int) (string, error) {
	var value string
	err := p.decode(idx, &value)
	return value, err
}

func (p params) int64Pair() (int64, int64, error) {
	first, err := p.int64(0)
	if err != nil {
		return 0, 0, err
	}
	second, err := p.int64(1)
	if err != nil {
		return 0, 0, err
	}
	return first, second, nil
}

// levelApplyParam is the object parameter of apply_blueprint.
type levelApplyParam struct {
	Level        int64               `mapstructure:"level"`
	Payload      []byte              `mapstructure:"payload"`
	Timestamp    int64               `mapstructure:"timestamp"`
	BlockHash    []byte              `mapstructure:"block_hash"`
	Block        []byte              `mapstructure:"block"`
	ContextHash  []byte              `mapstructure:"context_hash"`
	Transactions []*transactionParam `mapstructure:"transactions"`
}

func (p *levelApplyParam) validate() error {
	err := requireFields(map[string][]byte{
		"payload":      p.Payload,
		"block_hash":   p.BlockHash,
		"block":        p.Block,
		"context_hash": p.ContextHash,
	})
	if err != nil {
		return err
	}
	for i, tx := range p.Transactions {
		if tx == nil {
			return fmt.Errorf("transaction %v is null", i)
		}
		if err := tx.validate(); err != nil {
			return fmt.Errorf("transaction %v: %v", i, err)
		}
	}
	return nil
}

// transactionParam is one transaction of a level apply. To is null for
// contract creations.
type transactionParam struct {
	Index         int64  `mapstructure:"index"`
	Hash          []byte `mapstructure:"hash"`
	From          []byte `mapstructure:"from"`
	To            []byte `mapstructure:"to"`
	ReceiptFields []byte `mapstructure:"receipt_fields"`
	ObjectFields  []byte `mapstructure:"object_fields"`
}

func (p *transactionParam) validate() error {
	return requireFields(map[string][]byte{
		"hash":           p.Hash,
		"from":           p.From,
		"receipt_fields": p.ReceiptFields,
		"object_fields":  p.ObjectFields,
	})
}

type kernelUpgradeParam struct {
	InjectedBefore      int64  `mapstructure:"injected_before"`
	RootHash            []byte `mapstructure:"root_hash"`
	ActivationTimestamp int64  `mapstructure:"activation_timestamp"`
}

func (p *kernelUpgradeParam) validate() error {
	return requireFields(map[string][]byte{"root_hash": p.RootHash})
}

type sequencerUpgradeParam struct {
	InjectedBefore      int64  `mapstructure:"injected_before"`
	Sequencer           []byte `mapstructure:"sequencer"`
	PoolAddress         []byte `mapstructure:"pool_address"`
	ActivationTimestamp int64  `mapstructure:"activation_timestamp"`
}

func (p *sequencerUpgradeParam) validate() error {
	return requireFields(map[string][]byte{
		"sequencer":    p.Sequencer,
		"pool_address": p.PoolAddress,
	})
}

type pendingConfirmationParam struct {
	Level int64  `mapstructure:"level"`
	Hash  []byte `mapstructure:"hash"`
}

func (p *pendingConfirmationParam) validate() error {
	return requireFields(map[string][]byte{"hash": p.Hash})
}

type delayedTransactionParam struct {
	InjectedBefore int64  `mapstructure:"injected_before"`
	Hash           []byte `mapstructure:"hash"`
	Payload        []byte `mapstructure:"payload"`
}

func (p *delayedTransactionParam) validate() error {
	return requireFields(map[string][]byte{
		"hash":    p.Hash,
		"payload": p.Payload,
	})
}

type irminChunkParam struct {
	Level     int64 `mapstructure:"level"`
	Timestamp int64 `mapstructure:"timestamp"`
}

type l1l2LevelRelationshipParam struct {
	LatestL2Level int64 `mapstructure:"latest_l2_level"`
	L1Level       int64 `mapstructure:"l1_level"`
}

type l1l2FinalizedLevelParam struct {
	L1Level      int64 `mapstructure:"l1_level"`
	StartL2Level int64 `mapstructure:"start_l2_level"`
	EndL2Level   int64 `mapstructure:"end_l2_level"`
}

func (p *l1l2FinalizedLevelParam) validate() error {
	if p.StartL2Level > p.EndL2Level {
		return fmt.Errorf("start_l2_level %v is above end_l2_level %v", p.StartL2Level, p.EndL2Level)
	}
	return nil
}
