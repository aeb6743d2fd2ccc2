package greenfield

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/coinjoin-tools/cjwallet/internal/core/domain"
	"github.com/coinjoin-tools/cjwallet/internal/infrastructure/rest"
)

type objectRequest struct {
	Type string          `json:"type"`
	Id   string          `json:"id"`
	Data json.RawMessage `json:"data,omitempty"`
}

type objectLinkResponse struct {
	Type       string          `json:"type"`
	Id         string          `json:"id"`
	LinkData   json.RawMessage `json:"linkData,omitempty"`
	ObjectData json.RawMessage `json:"objectData,omitempty"`
}

type objectResponse struct {
	Type  string               `json:"type"`
	Id    string               `json:"id"`
	Data  json.RawMessage      `json:"data,omitempty"`
	Links []objectLinkResponse `json:"links"`
}

func (c *Client) AddOrUpdateObject(
	ctx context.Context, wallet domain.WalletId, obj domain.WalletObject,
) error {
	req := c.client.R().
		SetContext(ctx).
		SetPathParams(walletParams(wallet)).
		SetBody(objectRequest{Type: obj.Type, Id: obj.Id, Data: nullToEmpty(obj.Data)})
	return rest.Do(req, http.MethodPost, objectsPath)
}

func (c *Client) AddOrUpdateLink(
	ctx context.Context, wallet domain.WalletId, a, b domain.ObjectId,
) error {
	params := walletParams(wallet)
	params["objectType"] = a.Type
	params["objectId"] = a.Id

	req := c.client.R().
		SetContext(ctx).
		SetPathParams(params).
		SetBody(objectRequest{Type: b.Type, Id: b.Id})
	return rest.Do(req, http.MethodPost, objectLinksPath)
}

func (c *Client) GetObjects(
	ctx context.Context, wallet domain.WalletId, query domain.ObjectQuery,
) ([]domain.ObjectInfo, error) {
	values := url.Values{}
	if len(query.Type) > 0 {
		values.Set("type", query.Type)
	}
	for _, id := range query.Ids {
		values.Add("ids", id)
	}
	values.Set("includeNeighbourData", strconv.FormatBool(query.IncludeNeighbourData))

	var res []objectResponse
	req := c.client.R().
		SetContext(ctx).
		SetPathParams(walletParams(wallet)).
		SetQueryParamsFromValues(values).
		SetResult(&res)
	if err := rest.Do(req, http.MethodGet, objectsPath); err != nil {
		return nil, err
	}

	infos := make([]domain.ObjectInfo, 0, len(res))
	for _, obj := range res {
		info := domain.ObjectInfo{
			ObjectId: domain.NewObjectId(obj.Type, obj.Id),
			Data:     nullToEmpty(obj.Data),
		}
		for _, l := range obj.Links {
			info.Links = append(info.Links, domain.ObjectLink{
				ObjectId:   domain.NewObjectId(l.Type, l.Id),
				ObjectData: nullToEmpty(l.ObjectData),
			})
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func walletParams(wallet domain.WalletId) map[string]string {
	return map[string]string{
		"storeId":    wallet.StoreId,
		"cryptoCode": wallet.CryptoCode,
	}
}

func nullToEmpty(data json.RawMessage) json.RawMessage {
	if string(data) == "null" {
		return nil
	}
	return data
}
