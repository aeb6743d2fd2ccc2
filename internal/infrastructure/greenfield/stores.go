package greenfield

import (
	"context"
	"net/http"

	"github.com/coinjoin-tools/cjwallet/internal/core/domain"
	"github.com/coinjoin-tools/cjwallet/internal/infrastructure/rest"
)

type paymentMethodResponse struct {
	Enabled          bool   `json:"enabled"`
	CryptoCode       string `json:"cryptoCode"`
	DerivationScheme string `json:"derivationScheme"`
}

// PaymentMethod returns nil if the store has no on-chain wallet set up for
// the crypto code.
func (c *Client) PaymentMethod(
	ctx context.Context, storeId, cryptoCode string,
) (*domain.PaymentMethod, error) {
	var res paymentMethodResponse
	req := c.client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"storeId":    storeId,
			"cryptoCode": cryptoCode,
		}).
		SetResult(&res)
	if err := rest.Do(req, http.MethodGet, paymentMethodPath); err != nil {
		if rest.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(res.DerivationScheme) <= 0 {
		return nil, nil
	}

	if len(res.CryptoCode) <= 0 {
		res.CryptoCode = cryptoCode
	}
	return &domain.PaymentMethod{
		CryptoCode:       res.CryptoCode,
		Enabled:          res.Enabled,
		DerivationScheme: domain.DerivationScheme(res.DerivationScheme),
	}, nil
}
