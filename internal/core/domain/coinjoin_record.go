package domain

import (
	"encoding/json"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/shopspring/decimal"
)

type CoinjoinCoin struct {
	Outpoint     string          `json:"outpoint"`
	Amount       decimal.Decimal `json:"amount"`
	AnonymitySet float64         `json:"anonymitySet"`
	PayoutId     *string         `json:"payoutId,omitempty"`
}

func NewCoinjoinCoin(outpoint string, value btcutil.Amount, anonset float64) CoinjoinCoin {
	return CoinjoinCoin{
		Outpoint:     outpoint,
		Amount:       decimal.New(int64(value), -8),
		AnonymitySet: anonset,
	}
}

// CoinjoinRecord is stored as the data of the coinjoin object of a round
// and never updated once written.
type CoinjoinRecord struct {
	Round           string         `json:"round"`
	CoordinatorName string         `json:"coordinatorName"`
	Transaction     string         `json:"transaction"`
	Timestamp       time.Time      `json:"timestamp"`
	CoinsIn         []CoinjoinCoin `json:"coinsIn"`
	CoinsOut        []CoinjoinCoin `json:"coinsOut"`
}

func (r CoinjoinRecord) Serialize() (json.RawMessage, error) {
	return json.Marshal(r)
}

func ParseCoinjoinRecord(data json.RawMessage) (*CoinjoinRecord, error) {
	var r CoinjoinRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
