package domain

import (
	"crypto/md5"
	"encoding/hex"
)

// RepoSlug returns the "owner/name" form used in metadata.
func RepoSlug(owner, name string) string {
	return owner + "/" + name
}

// RepoID derives the store key for a repository. It depends only on
// owner and name.
func RepoID(owner, name string) string {
	sum := md5.Sum([]byte(RepoSlug(owner, name)))
	return hex.EncodeToString(sum[:])
}

// ChunkID derives the key of a chunk inside a repository from the file
// path, the chunk name and the chunk content.
func ChunkID(filePath, chunkName, content string) string {
	sum := md5.Sum([]byte(filePath + chunkName + ":" + content))
	return hex.EncodeToString(sum[:])
}
