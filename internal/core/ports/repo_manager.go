package ports

import "github.com/coinjoin-tools/cjwallet/internal/core/domain"

// LabelRepository is a LabelStore backed by a local database.
type LabelRepository interface {
	LabelStore
	Close()
}

// LockRepository is a UtxoLocker backed by a local database.
type LockRepository interface {
	UtxoLocker
	Close()
}

type RepoManager interface {
	Labels() LabelRepository
	Settings() domain.SettingsRepository
	Locks() LockRepository
	Close()
}
