package db

import (
	"fmt"

	"github.com/coinjoin-tools/cjwallet/internal/core/domain"
	"github.com/coinjoin-tools/cjwallet/internal/core/ports"
	badgerdb "github.com/coinjoin-tools/cjwallet/internal/infrastructure/db/badger"
	inmemorydb "github.com/coinjoin-tools/cjwallet/internal/infrastructure/db/inmemory"
)

var (
	labelStoreTypes = map[string]func(...interface{}) (ports.LabelRepository, error){
		"badger":   badgerdb.NewLabelRepository,
		"inmemory": inmemorydb.NewLabelRepository,
	}
	settingsStoreTypes = map[string]func(...interface{}) (domain.SettingsRepository, error){
		"badger":   badgerdb.NewSettingsRepository,
		"inmemory": inmemorydb.NewSettingsRepository,
	}
	lockStoreTypes = map[string]func(...interface{}) (ports.LockRepository, error){
		"badger":   badgerdb.NewLockRepository,
		"inmemory": inmemorydb.NewLockRepository,
	}
)

type ServiceConfig struct {
	DataStoreType   string
	DataStoreConfig []interface{}
}

type service struct {
	labelStore    ports.LabelRepository
	settingsStore domain.SettingsRepository
	lockStore     ports.LockRepository
}

func NewService(config ServiceConfig) (ports.RepoManager, error) {
	labelStoreFactory, ok := labelStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}
	settingsStoreFactory, ok := settingsStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}
	lockStoreFactory, ok := lockStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}

	labelStore, err := labelStoreFactory(config.DataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to create label store: %w", err)
	}
	settingsStore, err := settingsStoreFactory(config.DataStoreConfig...)
	if err != nil {
		labelStore.Close()
		return nil, fmt.Errorf("failed to create settings store: %w", err)
	}
	lockStore, err := lockStoreFactory(config.DataStoreConfig...)
	if err != nil {
		labelStore.Close()
		settingsStore.Close()
		return nil, fmt.Errorf("failed to create lock store: %w", err)
	}

	return &service{
		labelStore:    labelStore,
		settingsStore: settingsStore,
		lockStore:     lockStore,
	}, nil
}

func (s *service) Labels() ports.LabelRepository {
	return s.labelStore
}

func (s *service) Settings() domain.SettingsRepository {
	return s.settingsStore
}

func (s *service) Locks() ports.LockRepository {
	return s.lockStore
}

func (s *service) Close() {
	s.labelStore.Close()
	s.settingsStore.Close()
	s.lockStore.Close()
}
