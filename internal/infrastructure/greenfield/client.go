package greenfield

import (
	"fmt"

	"github.com/coinjoin-tools/cjwallet/internal/infrastructure/rest"
	"github.com/go-resty/resty/v2"
)

const (
	storePath         = "/api/v1/stores/{storeId}"
	paymentMethodPath = storePath + "/payment-methods/onchain/{cryptoCode}"
	objectsPath       = paymentMethodPath + "/objects"
	objectLinksPath   = objectsPath + "/{objectType}/{objectId}/links"
	payoutsPath       = storePath + "/payouts"
	markPayoutPath    = payoutsPath + "/{payoutId}/mark"
)

// Client talks to the Greenfield API of a BTCPay Server instance. It serves
// as label store, payout service and store directory.
type Client struct {
	client *resty.Client
}

func NewClient(baseURL, apiKey string) (*Client, error) {
	if len(baseURL) <= 0 {
		return nil, fmt.Errorf("missing greenfield url")
	}
	if len(apiKey) <= 0 {
		return nil, fmt.Errorf("missing greenfield api key")
	}

	client := rest.NewClient(baseURL).
		SetHeader("Authorization", fmt.Sprintf("token %s", apiKey))
	return &Client{client}, nil
}

func (c *Client) Close() {}
