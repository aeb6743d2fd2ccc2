package domain

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
)

const defaultAnonymitySet = 1

// Coin is an unspent output of a store wallet enriched with the label
// metadata attached to its transaction, address and outpoint.
type Coin struct {
	Outpoint      wire.OutPoint
	Value         btcutil.Amount
	Confirmations int64
	Address       string
	ScriptPubKey  []byte
	KeyPath       string
	AnonymitySet  float64
	Labels        []LabelAttachment
}

func NewCoin(
	outpoint wire.OutPoint, value btcutil.Amount, confirmations int64,
	address string, script []byte, keyPath string,
) Coin {
	return Coin{
		Outpoint:      outpoint,
		Value:         value,
		Confirmations: confirmations,
		Address:       address,
		ScriptPubKey:  script,
		KeyPath:       keyPath,
		AnonymitySet:  defaultAnonymitySet,
	}
}

func (c Coin) Id() string {
	return OutpointId(c.Outpoint)
}

func (c Coin) Confirmed() bool {
	return c.Confirmations > 0
}

// HasAnyLabel reports whether at least one attachment id of the coin is in ids.
func (c Coin) HasAnyLabel(ids map[string]struct{}) bool {
	for _, label := range c.Labels {
		if _, ok := ids[label.Id]; ok {
			return true
		}
	}
	return false
}

// MixedAtOtherCoordinator reports whether the coin carries a coinjoin
// attachment recorded by a coordinator other than the given one.
// Attachments whose data cannot be decoded are ignored.
func (c Coin) MixedAtOtherCoordinator(coordinator string) bool {
	for _, label := range c.Labels {
		if label.Type != CoinjoinType {
			continue
		}
		name, err := label.CoordinatorName()
		if err != nil || len(name) <= 0 {
			continue
		}
		if name != coordinator {
			return true
		}
	}
	return false
}

// OutpointId formats an outpoint as "<txid>-<index>", the object id used
// for utxo objects in the label store.
func OutpointId(outpoint wire.OutPoint) string {
	return fmt.Sprintf("%s-%d", outpoint.Hash, outpoint.Index)
}

func TotalValue(coins []Coin) btcutil.Amount {
	tot := btcutil.Amount(0)
	for _, c := range coins {
		tot += c.Value
	}
	return tot
}
