package factory

import (
	"fmt"

	"github.com/anime-shed/note-inspector-go/internal/config"
	"github.com/anime-shed/note-inspector-go/internal/storage"
)

// StorageType represents the reference storage backends
type StorageType string

const (
	// LocalStorage reads reference notes from a directory
	LocalStorage StorageType = config.SourceLocal
	// AzureStorage reads reference notes from an Azure blob container
	AzureStorage StorageType = config.SourceAzure
	// MinIOStorage reads reference notes from an S3-compatible bucket
	MinIOStorage StorageType = config.SourceMinIO
)

// StorageFactory creates reference stores
type StorageFactory interface {
	CreateStorage(storageType StorageType) (storage.BlobStore, error)
}

type storageFactory struct {
	cfg config.ReferenceConfig
}

// NewStorageFactory creates a storage factory for the given reference settings
func NewStorageFactory(cfg config.ReferenceConfig) StorageFactory {
	return &storageFactory{cfg: cfg}
}

// CreateStorage creates a storage implementation based on the specified type
func (f *storageFactory) CreateStorage(storageType StorageType) (storage.BlobStore, error) {
	switch storageType {
	case LocalStorage:
		return storage.NewLocalStorage(f.cfg.Dir), nil
	case AzureStorage:
		return storage.NewAzureStorage(f.cfg.AzureAccount, f.cfg.AzureKey, f.cfg.AzureContainer)
	case MinIOStorage:
		return storage.NewMinIOStorage(f.cfg.MinIOEndpoint, f.cfg.MinIOAccessKey, f.cfg.MinIOSecretKey, f.cfg.MinIOBucket, f.cfg.MinIOUseSSL)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// ReferenceStore creates the store selected by cfg.Source
func ReferenceStore(cfg config.ReferenceConfig) (storage.BlobStore, error) {
	return NewStorageFactory(cfg).CreateStorage(StorageType(cfg.Source))
}
