package nbxplorer

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/coinjoin-tools/cjwallet/internal/core/ports"
	"github.com/coinjoin-tools/cjwallet/internal/infrastructure/rest"
	"github.com/go-resty/resty/v2"
)

const (
	derivationPath = "/v1/cryptos/{cryptoCode}/derivations/{scheme}"
	utxosPath      = derivationPath + "/utxos"
	unusedPath     = derivationPath + "/addresses/unused"
	scriptPath     = derivationPath + "/scripts/{script}"
)

// Client reads the utxos and addresses of the derivation schemes tracked
// by an NBXplorer instance.
type Client struct {
	client     *resty.Client
	cryptoCode string
	network    *chaincfg.Params
	labels     ports.LabelStore
}

// NewClient returns a client for the given crypto code. Auth is either
// empty or in the form user:password. Reserved addresses are labeled
// through the given label store.
func NewClient(
	baseURL, auth, cryptoCode string, network *chaincfg.Params, labels ports.LabelStore,
) (*Client, error) {
	if len(baseURL) <= 0 {
		return nil, fmt.Errorf("missing nbxplorer url")
	}
	if len(cryptoCode) <= 0 {
		return nil, fmt.Errorf("missing crypto code")
	}
	if network == nil {
		return nil, fmt.Errorf("missing network")
	}
	if labels == nil {
		return nil, fmt.Errorf("missing label store")
	}

	client := rest.NewClient(baseURL)
	if len(auth) > 0 {
		user, password, ok := strings.Cut(auth, ":")
		if !ok {
			return nil, fmt.Errorf("invalid nbxplorer auth, must be user:password")
		}
		client.SetBasicAuth(user, password)
	}

	return &Client{client, cryptoCode, network, labels}, nil
}

func (c *Client) derivationParams(scheme string) map[string]string {
	return map[string]string{
		"cryptoCode": c.cryptoCode,
		"scheme":     scheme,
	}
}
