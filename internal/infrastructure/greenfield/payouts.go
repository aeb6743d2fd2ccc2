package greenfield

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coinjoin-tools/cjwallet/internal/core/domain"
	"github.com/coinjoin-tools/cjwallet/internal/infrastructure/rest"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// payoutResponse.Amount is in the currency of the pull payment, the
// amount to send is PaymentMethodAmount, unset until the payout is priced.
type payoutResponse struct {
	Id                  string              `json:"id"`
	PullPaymentId       string              `json:"pullPaymentId"`
	Destination         string              `json:"destination"`
	Amount              decimal.Decimal     `json:"amount"`
	Currency            string              `json:"currency"`
	PaymentMethodAmount decimal.NullDecimal `json:"paymentMethodAmount"`
	PaymentMethod       string              `json:"paymentMethod"`
	CryptoCode          string              `json:"cryptoCode"`
	State               string              `json:"state"`
}

// GetPayouts lists the payouts of every store of the query and keeps those
// matching it.
func (c *Client) GetPayouts(
	ctx context.Context, query domain.PayoutQuery,
) ([]domain.Payout, error) {
	if len(query.StoreIds) <= 0 {
		return nil, fmt.Errorf("payouts can only be listed by store")
	}

	payouts := make([]domain.Payout, 0)
	for _, storeId := range query.StoreIds {
		var res []payoutResponse
		req := c.client.R().
			SetContext(ctx).
			SetPathParam("storeId", storeId).
			SetQueryParam("includeCancelled", "false").
			SetResult(&res)
		if err := rest.Do(req, http.MethodGet, payoutsPath); err != nil {
			return nil, fmt.Errorf("failed to list payouts of store %s: %w", storeId, err)
		}

		for _, p := range res {
			if !p.PaymentMethodAmount.Valid {
				log.WithFields(log.Fields{
					"store":  storeId,
					"payout": p.Id,
				}).Debug("skipping payout without payment method amount")
				continue
			}
			payout := domain.Payout{
				Id:            p.Id,
				StoreId:       storeId,
				PaymentMethod: p.PaymentMethod,
				Destination:   p.Destination,
				Amount:        p.PaymentMethodAmount.Decimal,
				State:         domain.PayoutState(p.State),
			}
			if query.Matches(payout) {
				payouts = append(payouts, payout)
			}
		}
	}
	return payouts, nil
}

func (c *Client) MarkPaid(
	ctx context.Context, storeId, payoutId string, req domain.MarkPayoutRequest,
) error {
	r := c.client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"storeId":  storeId,
			"payoutId": payoutId,
		}).
		SetBody(req)
	return rest.Do(r, http.MethodPost, markPayoutPath)
}
