package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Object types of the wallet label store.
const (
	TxType       = "tx"
	UtxoType     = "utxo"
	AddressType  = "address"
	LabelType    = "label"
	PayoutType   = "payout"
	CoinjoinType = "coinjoin"
)

const (
	CoinjoinLabel = "coinjoin"
	PayoutLabel   = "payout"
)

// LabelAttachment links a coin, address or transaction to a neighbour
// object of the label store. Data is the neighbour's structured data and is
// decoded on read with the schema of the attachment type.
type LabelAttachment struct {
	Id   string
	Type string
	Data json.RawMessage
}

type coinjoinAttachmentData struct {
	CoordinatorName string `json:"coordinatorName"`
}

type utxoAttachmentData struct {
	AnonymitySet float64 `json:"anonymitySet"`
}

func (a LabelAttachment) CoordinatorName() (string, error) {
	if a.Type != CoinjoinType {
		return "", fmt.Errorf("attachment of type %s has no coordinator", a.Type)
	}
	if len(a.Data) <= 0 {
		return "", nil
	}
	var data coinjoinAttachmentData
	if err := json.Unmarshal(a.Data, &data); err != nil {
		return "", fmt.Errorf("invalid coinjoin attachment data: %w", err)
	}
	return data.CoordinatorName, nil
}

// AnonymitySetLabel returns the "anonset-<n>" label for an anonymity score.
func AnonymitySetLabel(anonset float64) string {
	return fmt.Sprintf("anonset-%s", strconv.FormatFloat(anonset, 'f', -1, 64))
}

func UtxoObjectData(anonset float64) (json.RawMessage, error) {
	return json.Marshal(utxoAttachmentData{anonset})
}

// ParseUtxoObjectData returns the anonymity set stored in the data of a
// utxo object.
func ParseUtxoObjectData(data json.RawMessage) (float64, bool) {
	if len(data) <= 0 {
		return 0, false
	}
	var d utxoAttachmentData
	if err := json.Unmarshal(data, &d); err != nil || d.AnonymitySet <= 0 {
		return 0, false
	}
	return d.AnonymitySet, true
}

// WalletId scopes label store objects to the on-chain wallet of a store.
type WalletId struct {
	StoreId    string
	CryptoCode string
}

func (w WalletId) String() string {
	return fmt.Sprintf("%s-%s", w.StoreId, w.CryptoCode)
}

type ObjectId struct {
	Type string `json:"type"`
	Id   string `json:"id"`
}

func NewObjectId(typ, id string) ObjectId {
	return ObjectId{Type: typ, Id: id}
}

func LabelObject(label string) ObjectId {
	return ObjectId{Type: LabelType, Id: label}
}

func (o ObjectId) String() string {
	return fmt.Sprintf("%s:%s", o.Type, o.Id)
}

type WalletObject struct {
	ObjectId
	Data json.RawMessage
}

type ObjectLink struct {
	ObjectId
	ObjectData json.RawMessage
}

// ObjectInfo is an object of the label store together with its neighbours.
type ObjectInfo struct {
	ObjectId
	Data  json.RawMessage
	Links []ObjectLink
}

func (o ObjectInfo) Attachments() []LabelAttachment {
	attachments := make([]LabelAttachment, 0, len(o.Links))
	for _, l := range o.Links {
		attachments = append(attachments, LabelAttachment{
			Id:   l.Id,
			Type: l.Type,
			Data: l.ObjectData,
		})
	}
	return attachments
}

type ObjectQuery struct {
	Type                 string
	Ids                  []string
	IncludeNeighbourData bool
}
