package port

import "errors"

// Sentinel errors used across ports.
var (
	ErrRepoLocked       = errors.New("repository is already being indexed")
	ErrNotIndexed       = errors.New("repository is not indexed")
	ErrFileNotFound     = errors.New("file not found")
	ErrEmptyResponse    = errors.New("empty response from embedding service")
	ErrInvalidEmbedding = errors.New("embedding response is not a numeric array")
)
