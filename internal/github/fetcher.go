package github

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/go-github/v81/github"
)

// Source identifies a directory of markdown files in a repository.
type Source struct {
	Owner    string
	Repo     string
	BasePath string // Directory to walk; empty means the repository root
	Ref      string // Branch, tag or SHA; empty means the default branch
}

// String formats the source as owner/repo/path@ref.
func (s Source) String() string {
	out := s.Owner + "/" + s.Repo
	if s.BasePath != "" {
		out += "/" + s.BasePath
	}
	if s.Ref != "" {
		out += "@" + s.Ref
	}
	return out
}

// FetchedDoc represents a markdown document fetched from GitHub
type FetchedDoc struct {
	Path    string // Relative path within the base directory
	Content string // Full markdown content
	SHA     string // File's Git blob SHA
}

// Filename returns the base name of the document path.
func (d *FetchedDoc) Filename() string {
	return path.Base(d.Path)
}

// Fetcher handles fetching documentation from GitHub repositories
type Fetcher struct {
	client *Client
	source Source
}

// NewFetcher creates a new document fetcher
func NewFetcher(client *Client, source Source) *Fetcher {
	return &Fetcher{client: client, source: source}
}

// Source returns the repository location the fetcher reads from.
func (f *Fetcher) Source() Source {
	return f.source
}

func (f *Fetcher) contentOptions() *github.RepositoryContentGetOptions {
	if f.source.Ref == "" {
		return nil
	}
	return &github.RepositoryContentGetOptions{Ref: f.source.Ref}
}

// ListDocs recursively lists all markdown files under the base path
func (f *Fetcher) ListDocs(ctx context.Context) ([]string, error) {
	return f.listDocsRecursive(ctx, f.source.BasePath, "")
}

// listDocsRecursive recursively traverses directories to find all .md files
func (f *Fetcher) listDocsRecursive(ctx context.Context, fullPath, relativePath string) ([]string, error) {
	var docs []string

	_, dirContents, _, err := f.client.Repositories.GetContents(
		ctx,
		f.source.Owner,
		f.source.Repo,
		fullPath,
		f.contentOptions(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get contents of %s: %w", fullPath, err)
	}

	for _, item := range dirContents {
		name := item.GetName()
		itemRelPath := path.Join(relativePath, name)

		switch item.GetType() {
		case "file":
			if strings.HasSuffix(strings.ToLower(name), ".md") {
				docs = append(docs, itemRelPath)
			}

		case "dir":
			subDocs, err := f.listDocsRecursive(ctx, path.Join(fullPath, name), itemRelPath)
			if err != nil {
				return nil, err
			}
			docs = append(docs, subDocs...)
		}
	}

	return docs, nil
}

// FetchDoc fetches the content of a specific markdown file
func (f *Fetcher) FetchDoc(ctx context.Context, relativePath string) (*FetchedDoc, error) {
	fullPath := path.Join(f.source.BasePath, relativePath)

	fileContent, _, _, err := f.client.Repositories.GetContents(
		ctx,
		f.source.Owner,
		f.source.Repo,
		fullPath,
		f.contentOptions(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get content of %s: %w", fullPath, err)
	}

	if fileContent == nil {
		return nil, fmt.Errorf("no file content returned for %s", fullPath)
	}

	content, err := fileContent.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode content of %s: %w", fullPath, err)
	}

	return &FetchedDoc{
		Path:    relativePath,
		Content: content,
		SHA:     fileContent.GetSHA(),
	}, nil
}

// GetLatestCommitSHA retrieves the SHA of the most recent commit affecting the base path
func (f *Fetcher) GetLatestCommitSHA(ctx context.Context) (string, error) {
	commits, _, err := f.client.Repositories.ListCommits(
		ctx,
		f.source.Owner,
		f.source.Repo,
		&github.CommitsListOptions{
			SHA:  f.source.Ref,
			Path: f.source.BasePath,
			ListOptions: github.ListOptions{
				PerPage: 1,
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to get latest commit: %w", err)
	}

	if len(commits) == 0 {
		return "", fmt.Errorf("no commits found for path %s", f.source.BasePath)
	}

	if commits[0].SHA == nil {
		return "", fmt.Errorf("commit SHA is nil")
	}

	return *commits[0].SHA, nil
}
