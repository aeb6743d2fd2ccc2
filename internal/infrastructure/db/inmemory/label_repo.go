package inmemorydb

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/coinjoin-tools/cjwallet/internal/core/domain"
	"github.com/coinjoin-tools/cjwallet/internal/core/ports"
)

type objectKey struct {
	wallet domain.WalletId
	object domain.ObjectId
}

type labelRepository struct {
	lock    *sync.RWMutex
	objects map[objectKey][]byte
	links   map[objectKey]map[domain.ObjectId]struct{}
}

func NewLabelRepository(_ ...interface{}) (ports.LabelRepository, error) {
	return &labelRepository{
		lock:    &sync.RWMutex{},
		objects: make(map[objectKey][]byte),
		links:   make(map[objectKey]map[domain.ObjectId]struct{}),
	}, nil
}

func (r *labelRepository) AddOrUpdateObject(
	_ context.Context, wallet domain.WalletId, obj domain.WalletObject,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.upsertObject(objectKey{wallet, obj.ObjectId}, obj.Data)
	return nil
}

func (r *labelRepository) AddOrUpdateLink(
	_ context.Context, wallet domain.WalletId, a, b domain.ObjectId,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	keyA, keyB := objectKey{wallet, a}, objectKey{wallet, b}
	r.upsertObject(keyA, nil)
	r.upsertObject(keyB, nil)
	r.addNeighbour(keyA, b)
	r.addNeighbour(keyB, a)
	return nil
}

func (r *labelRepository) GetObjects(
	_ context.Context, wallet domain.WalletId, query domain.ObjectQuery,
) ([]domain.ObjectInfo, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	infos := make([]domain.ObjectInfo, 0)
	for key, data := range r.objects {
		if key.wallet != wallet {
			continue
		}
		if len(query.Type) > 0 && key.object.Type != query.Type {
			continue
		}
		if len(query.Ids) > 0 && !slices.Contains(query.Ids, key.object.Id) {
			continue
		}

		info := domain.ObjectInfo{ObjectId: key.object, Data: clone(data)}
		for neighbour := range r.links[key] {
			link := domain.ObjectLink{ObjectId: neighbour}
			if query.IncludeNeighbourData {
				link.ObjectData = clone(r.objects[objectKey{wallet, neighbour}])
			}
			info.Links = append(info.Links, link)
		}
		sort.Slice(info.Links, func(i, j int) bool {
			return info.Links[i].String() < info.Links[j].String()
		})
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].String() < infos[j].String()
	})
	return infos, nil
}

func (r *labelRepository) Close() {}

// upsertObject keeps the stored data when the update carries none.
func (r *labelRepository) upsertObject(key objectKey, data []byte) {
	if _, ok := r.objects[key]; ok && len(data) <= 0 {
		return
	}
	r.objects[key] = clone(data)
}

func (r *labelRepository) addNeighbour(key objectKey, neighbour domain.ObjectId) {
	if _, ok := r.links[key]; !ok {
		r.links[key] = make(map[domain.ObjectId]struct{})
	}
	r.links[key][neighbour] = struct{}{}
}

func clone(data []byte) []byte {
	if data == nil {
		return nil
	}
	return append([]byte{}, data...)
}
