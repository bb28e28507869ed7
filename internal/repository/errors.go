package repository

import "errors"

var (
	// ErrVerdictNotFound indicates no verdict is stored under the id
	ErrVerdictNotFound = errors.New("verdict not found")

	// ErrDuplicateVerdict indicates a verdict id was stored twice
	ErrDuplicateVerdict = errors.New("verdict already exists")

	// ErrSnapshotNotFound indicates no descriptor snapshot exists on disk
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrSnapshotStale indicates the snapshot was built from other references or settings
	ErrSnapshotStale = errors.New("snapshot is stale")

	// ErrRepositoryUnavailable indicates the repository is unavailable
	ErrRepositoryUnavailable = errors.New("repository unavailable")
)
