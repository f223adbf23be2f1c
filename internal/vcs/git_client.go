package vcs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-git/go-billy/v5/memfs"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

// GitClient wraps the git operations the clone-backed drivers need.
type GitClient interface {
	// Clone performs a shallow in-memory clone of the repository's
	// default branch.
	Clone(ctx context.Context, url string) (*RepositoryInfo, error)

	// FileContent reads a file from the repository's HEAD commit.
	FileContent(repoInfo *RepositoryInfo, path string) ([]byte, error)
}

// RepositoryInfo holds a cloned repository and its resolved default branch.
type RepositoryInfo struct {
	Repository *gogit.Repository
	Branch     string
}

// defaultGitClient implements GitClient using go-git
type defaultGitClient struct{}

// NewDefaultGitClient creates a new defaultGitClient
func NewDefaultGitClient() GitClient {
	return &defaultGitClient{}
}

// Clone performs a shallow in-memory clone of the repository.
func (*defaultGitClient) Clone(ctx context.Context, url string) (*RepositoryInfo, error) {
	slog.Debug("Cloning repository", "url", url)

	// go-git wants separate filesystems for the storer and the checkout.
	worktreeFs := memfs.New()
	storerFs := memfs.New()
	storer := filesystem.NewStorage(storerFs, cache.NewObjectLRUDefault())

	repo, err := gogit.CloneContext(ctx, storer, worktreeFs, &gogit.CloneOptions{
		URL:   url,
		Depth: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to clone repository: %w", err)
	}

	ref, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD reference: %w", err)
	}

	info := &RepositoryInfo{Repository: repo}
	if ref.Name().IsBranch() {
		info.Branch = ref.Name().Short()
	}
	return info, nil
}

// FileContent reads a file from the repository's HEAD commit.
func (*defaultGitClient) FileContent(repoInfo *RepositoryInfo, path string) ([]byte, error) {
	if repoInfo == nil || repoInfo.Repository == nil {
		return nil, fmt.Errorf("repository is nil")
	}

	ref, err := repoInfo.Repository.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD reference: %w", err)
	}

	commit, err := repoInfo.Repository.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit object: %w", err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}

	file, err := tree.File(path)
	if err != nil {
		if err == object.ErrFileNotFound {
			return nil, fmt.Errorf("file %s: %w", path, object.ErrFileNotFound)
		}
		return nil, fmt.Errorf("failed to get file %s: %w", path, err)
	}

	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read file contents: %w", err)
	}

	return []byte(content), nil
}
