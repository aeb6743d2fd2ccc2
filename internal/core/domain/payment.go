package domain

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/shopspring/decimal"
)

type PayoutState string

const (
	PayoutAwaitingApproval PayoutState = "AwaitingApproval"
	PayoutAwaitingPayment  PayoutState = "AwaitingPayment"
	PayoutInProgress       PayoutState = "InProgress"
	PayoutCompleted        PayoutState = "Completed"
	PayoutCancelled        PayoutState = "Cancelled"
)

// CoinjoinProofType tags payouts being settled inside a coinjoin round.
const CoinjoinProofType = "Wabisabi"

type Payout struct {
	Id            string
	StoreId       string
	PaymentMethod string
	Destination   string
	Amount        decimal.Decimal
	State         PayoutState
}

// Value converts the decimal BTC amount of the payout to satoshis.
func (p Payout) Value() btcutil.Amount {
	return btcutil.Amount(p.Amount.Shift(8).Round(0).IntPart())
}

type PayoutQuery struct {
	States         []PayoutState
	StoreIds       []string
	PaymentMethods []string
}

func (q PayoutQuery) Matches(p Payout) bool {
	return matchAny(q.States, p.State) &&
		matchAny(q.StoreIds, p.StoreId) &&
		matchAny(q.PaymentMethods, p.PaymentMethod)
}

type MarkPayoutRequest struct {
	State        PayoutState     `json:"state"`
	PaymentProof json.RawMessage `json:"paymentProof,omitempty"`
}

type RoundPaymentProof struct {
	ProofType string `json:"proofType"`
}

type OnChainPaymentProof struct {
	Candidates    []string `json:"candidates"`
	TransactionId string   `json:"transactionId"`
}

func NewRoundPaymentProof() json.RawMessage {
	buf, _ := json.Marshal(RoundPaymentProof{CoinjoinProofType})
	return buf
}

func NewOnChainPaymentProof(txid chainhash.Hash) json.RawMessage {
	buf, _ := json.Marshal(OnChainPaymentProof{
		Candidates:    []string{txid.String()},
		TransactionId: txid.String(),
	})
	return buf
}

type PaymentCallbacks struct {
	Started   func(ctx context.Context) bool
	Failed    func(ctx context.Context)
	Succeeded func(ctx context.Context, roundId, txid chainhash.Hash, outputIndex uint32)
}

// PendingPayment is a payout that can be settled by an output of the
// current round. It is rebuilt on every resolution pass.
type PendingPayment struct {
	Id           string
	Destination  btcutil.Address
	ScriptPubKey []byte
	ScriptType   txscript.ScriptClass
	Value        btcutil.Amount

	callbacks PaymentCallbacks
}

func NewPendingPayment(
	id string, destination btcutil.Address, value btcutil.Amount,
	callbacks PaymentCallbacks,
) (*PendingPayment, error) {
	script, err := txscript.PayToAddrScript(destination)
	if err != nil {
		return nil, fmt.Errorf("failed to build script for %s: %w", destination, err)
	}
	return &PendingPayment{
		Id:           id,
		Destination:  destination,
		ScriptPubKey: script,
		ScriptType:   txscript.GetScriptClass(script),
		Value:        value,
		callbacks:    callbacks,
	}, nil
}

// PaymentStarted notifies that the payment has been registered in a round.
// It returns false if the payout could not be reserved.
func (p *PendingPayment) PaymentStarted(ctx context.Context) bool {
	if p.callbacks.Started == nil {
		return true
	}
	return p.callbacks.Started(ctx)
}

func (p *PendingPayment) PaymentFailed(ctx context.Context) {
	if p.callbacks.Failed != nil {
		p.callbacks.Failed(ctx)
	}
}

func (p *PendingPayment) PaymentSucceeded(
	ctx context.Context, roundId, txid chainhash.Hash, outputIndex uint32,
) {
	if p.callbacks.Succeeded != nil {
		p.callbacks.Succeeded(ctx, roundId, txid, outputIndex)
	}
}

func matchAny[T comparable](list []T, v T) bool {
	if len(list) <= 0 {
		return true
	}
	for _, l := range list {
		if l == v {
			return true
		}
	}
	return false
}
