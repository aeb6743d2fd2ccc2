package domain

import (
	"bytes"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// RoundParameters are the output constraints announced by a coordinator
// for a round.
type RoundParameters struct {
	AllowedOutputAmounts     []btcutil.Amount
	AllowedOutputScriptTypes []txscript.ScriptClass
}

func (p RoundParameters) AllowsAmount(amount btcutil.Amount) bool {
	for _, a := range p.AllowedOutputAmounts {
		if a == amount {
			return true
		}
	}
	return false
}

func (p RoundParameters) AllowsScriptType(class txscript.ScriptClass) bool {
	for _, c := range p.AllowedOutputScriptTypes {
		if c == class {
			return true
		}
	}
	return false
}

// HandledPayment is a pending payment the wallet registered as an output
// of a round.
type HandledPayment struct {
	PayoutId     string
	ScriptPubKey []byte
	Value        btcutil.Amount
}

func (p HandledPayment) Matches(out *wire.TxOut) bool {
	return out != nil && p.Value == btcutil.Amount(out.Value) &&
		bytes.Equal(p.ScriptPubKey, out.PkScript)
}

// CoinjoinResult is what a round driver hands back once a round
// transaction the wallet took part in has been signed.
type CoinjoinResult struct {
	RoundId           chainhash.Hash
	Tx                *wire.MsgTx
	RegisteredCoins   []Coin
	RegisteredOutputs [][]byte
	HandledPayments   []HandledPayment
}

func (r CoinjoinResult) IsRegisteredOutput(script []byte) bool {
	for _, s := range r.RegisteredOutputs {
		if bytes.Equal(s, script) {
			return true
		}
	}
	return false
}

type KeyPathInfo struct {
	KeyPath          string
	ScriptPubKey     []byte
	Address          string
	DerivationScheme DerivationScheme
}

// ViewCoin is an input or output of a round transaction owned by one of
// the wallets taking part in the bookkeeping.
type ViewCoin struct {
	Outpoint     wire.OutPoint
	Value        btcutil.Amount
	ScriptPubKey []byte
	KeyPath      *KeyPathInfo
	StoreId      string
	AnonymitySet float64
}

// TransactionView is a round transaction restricted to the inputs and
// outputs owned by the wallet. The analyzer updates the anonymity sets of
// the outputs in place.
type TransactionView struct {
	Tx            *wire.MsgTx
	WalletInputs  []*ViewCoin
	WalletOutputs []*ViewCoin
}

func (v *TransactionView) IsWalletOutput(index uint32) bool {
	for _, out := range v.WalletOutputs {
		if out.Outpoint.Index == index {
			return true
		}
	}
	return false
}

type DerivationScheme string

// ScriptType returns the class of the scripts derived by the scheme,
// following the suffix conventions of NBXplorer derivation strategies.
func (s DerivationScheme) ScriptType() txscript.ScriptClass {
	str := string(s)
	multisig := strings.Contains(str, "-of-")
	switch {
	case strings.HasSuffix(str, "-[taproot]"):
		return txscript.WitnessV1TaprootTy
	case strings.HasSuffix(str, "-[legacy]"):
		if multisig {
			return txscript.ScriptHashTy
		}
		return txscript.PubKeyHashTy
	case strings.HasSuffix(str, "-[p2sh]"):
		return txscript.ScriptHashTy
	case multisig:
		return txscript.WitnessV0ScriptHashTy
	default:
		return txscript.WitnessV0PubKeyHashTy
	}
}

type PaymentMethod struct {
	CryptoCode       string
	Enabled          bool
	DerivationScheme DerivationScheme
}
