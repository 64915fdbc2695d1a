package repository

import (
	"context"
	"total_loc/internal/domain/model"
)

// RemoteRepositoryClient talks to the hosting provider on behalf of one caller.
type RemoteRepositoryClient interface {
	// ListOwnedRepositories returns every repository the caller owns, forks included.
	ListOwnedRepositories(ctx context.Context) ([]model.Repository, error)
	// ListFiles lists one directory; an empty path is the repository root.
	ListFiles(ctx context.Context, fullName, path string) ([]model.RepositoryEntry, error)
	FetchFileContent(ctx context.Context, downloadURL string) (string, error)
	// Identity is a stable, non-reversible fingerprint of the caller's credential.
	Identity() string
}

// RemoteClientFactory builds a client bound to one access token.
type RemoteClientFactory interface {
	ForToken(token string) RemoteRepositoryClient
}
