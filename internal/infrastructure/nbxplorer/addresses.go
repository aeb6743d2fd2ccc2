package nbxplorer

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/coinjoin-tools/cjwallet/internal/core/domain"
	"github.com/coinjoin-tools/cjwallet/internal/infrastructure/rest"
)

type keyPathInformation struct {
	Feature            string `json:"feature"`
	DerivationStrategy string `json:"derivationStrategy"`
	KeyPath            string `json:"keyPath"`
	ScriptPubKey       string `json:"scriptPubKey"`
	Address            string `json:"address"`
}

func (k keyPathInformation) toDomain(scheme domain.DerivationScheme) (*domain.KeyPathInfo, error) {
	script, err := hex.DecodeString(k.ScriptPubKey)
	if err != nil {
		return nil, fmt.Errorf("invalid script: %w", err)
	}
	return &domain.KeyPathInfo{
		KeyPath:          k.KeyPath,
		ScriptPubKey:     script,
		Address:          k.Address,
		DerivationScheme: scheme,
	}, nil
}

// ReserveAddress reserves the next unused deposit address of the scheme
// and labels it in the wallet of the store.
func (c *Client) ReserveAddress(
	ctx context.Context, storeId string, scheme domain.DerivationScheme, label string,
) (btcutil.Address, error) {
	var res keyPathInformation
	req := c.client.R().
		SetContext(ctx).
		SetPathParams(c.derivationParams(string(scheme))).
		SetQueryParams(map[string]string{
			"feature": "Deposit",
			"reserve": "true",
		}).
		SetResult(&res)
	if err := rest.Do(req, http.MethodGet, unusedPath); err != nil {
		return nil, err
	}

	addr, err := btcutil.DecodeAddress(res.Address, c.network)
	if err != nil {
		return nil, fmt.Errorf("invalid address %s: %w", res.Address, err)
	}
	if !addr.IsForNet(c.network) {
		return nil, fmt.Errorf("address %s is not for network %s", res.Address, c.network.Name)
	}

	if len(label) > 0 {
		wallet := domain.WalletId{StoreId: storeId, CryptoCode: c.cryptoCode}
		addrObject := domain.NewObjectId(domain.AddressType, addr.EncodeAddress())
		labelObject := domain.LabelObject(label)
		if err := c.labels.AddOrUpdateObject(ctx, wallet, domain.WalletObject{ObjectId: addrObject}); err != nil {
			return nil, fmt.Errorf("failed to label address: %w", err)
		}
		if err := c.labels.AddOrUpdateObject(ctx, wallet, domain.WalletObject{ObjectId: labelObject}); err != nil {
			return nil, fmt.Errorf("failed to label address: %w", err)
		}
		if err := c.labels.AddOrUpdateLink(ctx, wallet, addrObject, labelObject); err != nil {
			return nil, fmt.Errorf("failed to label address: %w", err)
		}
	}
	return addr, nil
}

// GetKeyInformation returns nil if the script was not derived from the
// scheme.
func (c *Client) GetKeyInformation(
	ctx context.Context, scheme domain.DerivationScheme, script []byte,
) (*domain.KeyPathInfo, error) {
	params := c.derivationParams(string(scheme))
	params["script"] = hex.EncodeToString(script)

	var res *keyPathInformation
	req := c.client.R().
		SetContext(ctx).
		SetPathParams(params).
		SetResult(&res)
	if err := rest.Do(req, http.MethodGet, scriptPath); err != nil {
		if rest.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if res == nil || len(res.KeyPath) <= 0 {
		return nil, nil
	}
	return res.toDomain(scheme)
}
