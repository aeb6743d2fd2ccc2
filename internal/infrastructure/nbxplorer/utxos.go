package nbxplorer

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/coinjoin-tools/cjwallet/internal/core/domain"
	"github.com/coinjoin-tools/cjwallet/internal/infrastructure/rest"
	log "github.com/sirupsen/logrus"
)

type utxo struct {
	TransactionHash string `json:"transactionHash"`
	Index           uint32 `json:"index"`
	Value           int64  `json:"value"`
	ScriptPubKey    string `json:"scriptPubKey"`
	Address         string `json:"address"`
	KeyPath         string `json:"keyPath"`
	Confirmations   int64  `json:"confirmations"`
}

type utxoChanges struct {
	UTXOs          []utxo   `json:"utxOs"`
	SpentOutpoints []string `json:"spentOutpoints"`
}

type utxosResponse struct {
	CurrentHeight int64       `json:"currentHeight"`
	Unconfirmed   utxoChanges `json:"unconfirmed"`
	Confirmed     utxoChanges `json:"confirmed"`
}

// GetUnspentCoins returns the confirmed coins of the scheme, minus those
// spent by unconfirmed transactions, along with the unconfirmed ones if
// requested.
func (c *Client) GetUnspentCoins(
	ctx context.Context, scheme domain.DerivationScheme, includeUnconfirmed bool,
) ([]domain.Coin, error) {
	var res utxosResponse
	req := c.client.R().
		SetContext(ctx).
		SetPathParams(c.derivationParams(string(scheme))).
		SetResult(&res)
	if err := rest.Do(req, http.MethodGet, utxosPath); err != nil {
		return nil, err
	}

	spent := make(map[wire.OutPoint]struct{})
	for _, s := range res.Unconfirmed.SpentOutpoints {
		outpoint, err := parseOutpoint(s)
		if err != nil {
			return nil, fmt.Errorf("invalid spent outpoint %s: %w", s, err)
		}
		spent[*outpoint] = struct{}{}
	}

	utxos := res.Confirmed.UTXOs
	if includeUnconfirmed {
		utxos = append(utxos, res.Unconfirmed.UTXOs...)
	}

	coins := make([]domain.Coin, 0, len(utxos))
	for _, u := range utxos {
		coin, err := u.toCoin()
		if err != nil {
			log.WithError(err).Warnf("skipping invalid utxo %s:%d", u.TransactionHash, u.Index)
			continue
		}
		if _, ok := spent[coin.Outpoint]; ok {
			continue
		}
		coins = append(coins, *coin)
	}
	return coins, nil
}

func (u utxo) toCoin() (*domain.Coin, error) {
	hash, err := chainhash.NewHashFromStr(u.TransactionHash)
	if err != nil {
		return nil, err
	}
	script, err := hex.DecodeString(u.ScriptPubKey)
	if err != nil {
		return nil, err
	}
	coin := domain.NewCoin(
		wire.OutPoint{Hash: *hash, Index: u.Index}, btcutil.Amount(u.Value),
		u.Confirmations, u.Address, script, u.KeyPath,
	)
	return &coin, nil
}

// parseOutpoint decodes the hex of a serialized outpoint, the 32 bytes of
// the hash followed by the little endian index.
func parseOutpoint(str string) (*wire.OutPoint, error) {
	buf, err := hex.DecodeString(str)
	if err != nil {
		return nil, err
	}
	if len(buf) != chainhash.HashSize+4 {
		return nil, fmt.Errorf("invalid length %d", len(buf))
	}
	hash, err := chainhash.NewHash(buf[:chainhash.HashSize])
	if err != nil {
		return nil, err
	}
	return &wire.OutPoint{
		Hash:  *hash,
		Index: binary.LittleEndian.Uint32(buf[chainhash.HashSize:]),
	}, nil
}
