package port

import "context"

// ContentProvider exposes the files of one repository snapshot.
type ContentProvider interface {
	// ListFiles returns every file path of the branch, with VCS, build
	// and dependency directories already removed.
	ListFiles(ctx context.Context, owner, repo, branch string) ([]string, error)

	// GetFileContent returns the text of one file. ErrFileNotFound means
	// the content is absent.
	GetFileContent(ctx context.Context, owner, repo, path, branch string) (string, error)
}

// ProviderFactory builds a provider bound to a caller credential.
type ProviderFactory func(credential string) (ContentProvider, error)
