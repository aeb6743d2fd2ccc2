package badgerdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/coinjoin-tools/cjwallet/internal/core/domain"
	"github.com/coinjoin-tools/cjwallet/internal/core/ports"
	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
)

const labelStoreDir = "labels"

type objectDTO struct {
	Wallet string
	Type   string
	Id     string
	Data   []byte
}

func (o objectDTO) key() string {
	return joinKey(o.Wallet, o.Type, o.Id)
}

func (o objectDTO) objectId() domain.ObjectId {
	return domain.NewObjectId(o.Type, o.Id)
}

// linkDTO is stored once per pair of objects, with the endpoints sorted so
// that the link has no direction.
type linkDTO struct {
	Wallet string
	A      string
	B      string
}

func (l linkDTO) key() string {
	return joinKey(l.Wallet, l.A, l.B)
}

type labelRepository struct {
	store *badgerhold.Store
}

func NewLabelRepository(config ...interface{}) (ports.LabelRepository, error) {
	store, err := openStore(labelStoreDir, config...)
	if err != nil {
		return nil, fmt.Errorf("failed to open label store: %s", err)
	}
	return &labelRepository{store}, nil
}

func (r *labelRepository) AddOrUpdateObject(
	ctx context.Context, wallet domain.WalletId, obj domain.WalletObject,
) error {
	dto := objectDTO{
		Wallet: wallet.String(),
		Type:   obj.Type,
		Id:     obj.Id,
		Data:   obj.Data,
	}
	return withRetry(func() error {
		return r.store.Badger().Update(func(tx *badger.Txn) error {
			return r.upsertObject(tx, dto)
		})
	})
}

func (r *labelRepository) AddOrUpdateLink(
	ctx context.Context, wallet domain.WalletId, a, b domain.ObjectId,
) error {
	walletKey := wallet.String()
	objA := objectDTO{Wallet: walletKey, Type: a.Type, Id: a.Id}
	objB := objectDTO{Wallet: walletKey, Type: b.Type, Id: b.Id}

	link := linkDTO{Wallet: walletKey, A: objA.key(), B: objB.key()}
	if link.A > link.B {
		link.A, link.B = link.B, link.A
	}

	return withRetry(func() error {
		return r.store.Badger().Update(func(tx *badger.Txn) error {
			// Linking an unknown object creates it.
			for _, obj := range []objectDTO{objA, objB} {
				if err := r.upsertObject(tx, obj); err != nil {
					return err
				}
			}
			return r.store.TxUpsert(tx, link.key(), link)
		})
	})
}

func (r *labelRepository) GetObjects(
	ctx context.Context, wallet domain.WalletId, query domain.ObjectQuery,
) ([]domain.ObjectInfo, error) {
	walletKey := wallet.String()
	q := badgerhold.Where("Wallet").Eq(walletKey)
	if len(query.Type) > 0 {
		q = q.And("Type").Eq(query.Type)
	}
	if len(query.Ids) > 0 {
		ids := make([]interface{}, 0, len(query.Ids))
		for _, id := range query.Ids {
			ids = append(ids, id)
		}
		q = q.And("Id").In(ids...)
	}

	objects := make([]objectDTO, 0)
	if err := r.store.Find(&objects, q); err != nil {
		return nil, fmt.Errorf("failed to find objects: %w", err)
	}

	infos := make([]domain.ObjectInfo, 0, len(objects))
	for _, obj := range objects {
		links, err := r.findLinks(walletKey, obj.key(), query.IncludeNeighbourData)
		if err != nil {
			return nil, err
		}
		infos = append(infos, domain.ObjectInfo{
			ObjectId: obj.objectId(),
			Data:     obj.Data,
			Links:    links,
		})
	}
	return infos, nil
}

func (r *labelRepository) Close() {
	r.store.Close()
}

// upsertObject writes the object, keeping the stored data when the update
// carries none.
func (r *labelRepository) upsertObject(tx *badger.Txn, obj objectDTO) error {
	var stored objectDTO
	err := r.store.TxGet(tx, obj.key(), &stored)
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return err
	}
	if err == nil && len(obj.Data) <= 0 {
		return nil
	}
	return r.store.TxUpsert(tx, obj.key(), obj)
}

func (r *labelRepository) findLinks(
	walletKey, objectKey string, withData bool,
) ([]domain.ObjectLink, error) {
	links := make([]linkDTO, 0)
	for _, field := range []string{"A", "B"} {
		found := make([]linkDTO, 0)
		q := badgerhold.Where("Wallet").Eq(walletKey).And(field).Eq(objectKey)
		if err := r.store.Find(&found, q); err != nil {
			return nil, fmt.Errorf("failed to find links: %w", err)
		}
		links = append(links, found...)
	}

	res := make([]domain.ObjectLink, 0, len(links))
	for _, l := range links {
		neighbourKey := l.A
		if neighbourKey == objectKey {
			neighbourKey = l.B
		}
		var neighbour objectDTO
		if err := r.store.Get(neighbourKey, &neighbour); err != nil {
			if errors.Is(err, badgerhold.ErrNotFound) {
				continue
			}
			return nil, err
		}

		link := domain.ObjectLink{ObjectId: neighbour.objectId()}
		if withData {
			link.ObjectData = neighbour.Data
		}
		res = append(res, link)
	}
	return res, nil
}
