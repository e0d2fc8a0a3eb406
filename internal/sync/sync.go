// Package sync imports question lists from configured sources into the
// store. Sources are local directories or git repositories containing
// markdown question lists. Importing only creates questions that are not
// yet tracked; it never mutates or deletes existing rows, so review history
// cannot be destroyed by a trimmed source file.
package sync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/conorfennell/leetrack/internal/domain"
	"github.com/conorfennell/leetrack/internal/gitsource"
	"github.com/conorfennell/leetrack/internal/parser"
	"github.com/conorfennell/leetrack/internal/storage"
)

// IsGitSource reports whether a configured source path refers to a git
// repository rather than a local directory.
func IsGitSource(path string) bool {
	return strings.HasSuffix(path, ".git") || strings.HasPrefix(path, "git@") ||
		strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://")
}

// Run imports every configured source. Git sources are cloned or pulled
// into reposDir first. Individual source failures are logged and skipped;
// Run only fails outright when the repos directory cannot be prepared.
func Run(ctx context.Context, store *storage.DB, sources []string, reposDir string) error {
	slog.Info("starting question import", "sources", len(sources))
	if len(sources) == 0 {
		slog.Info("no sources configured, nothing to import")
		return nil
	}

	if err := os.MkdirAll(reposDir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create repos directory %s: %w", reposDir, err)
	}

	for _, source := range sources {
		localPath := source
		if IsGitSource(source) {
			var err error
			localPath, err = gitURLToLocalPath(reposDir, source)
			if err != nil {
				slog.Error("error determining local path for git source", "url", source, "error", err)
				continue
			}
			if err := gitsource.Sync(ctx, source, localPath); err != nil {
				slog.Error("error syncing git source", "url", source, "error", err)
				continue
			}
		}
		importLocalSource(ctx, store, localPath)
	}
	slog.Info("question import complete")
	return nil
}

func importLocalSource(ctx context.Context, store *storage.DB, path string) {
	var created, skipped, invalid int
	var importErrors []error

	walkErr := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		entries, parseErr := parser.ParseFile(p)
		if parseErr != nil {
			importErrors = append(importErrors, fmt.Errorf("parsing %s: %w", p, parseErr))
			return nil
		}
		for _, entry := range entries {
			difficulty, ok := domain.ParseDifficulty(strings.TrimSpace(entry.Difficulty))
			if !ok {
				slog.Warn("skipping entry with unknown difficulty", "file", p, "title", entry.Title, "difficulty", entry.Difficulty)
				invalid++
				continue
			}
			_, createErr := store.Create(ctx, entry.Title, entry.SourceURL, difficulty)
			switch {
			case createErr == nil:
				slog.Info("imported new question", "title", entry.Title, "url", entry.SourceURL)
				created++
			case errors.Is(createErr, domain.ErrConflict):
				// Already tracked.
				skipped++
			case errors.Is(createErr, domain.ErrInvalidArgument):
				slog.Warn("skipping invalid entry", "file", p, "title", entry.Title, "error", createErr)
				invalid++
			default:
				importErrors = append(importErrors, fmt.Errorf("storing %s: %w", entry.SourceURL, createErr))
			}
		}
		return nil
	})

	if walkErr != nil {
		slog.Error("error walking source directory", "path", path, "error", walkErr)
		return
	}

	slog.Info("source import complete",
		"path", path,
		"created", created,
		"already_tracked", skipped,
		"invalid", invalid,
		"errors", len(importErrors),
	)
	for _, err := range importErrors {
		slog.Error("import error", "error", err)
	}
}

func gitURLToLocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || (parsedURL.Scheme != "https" && parsedURL.Scheme != "http") {
		if strings.Contains(repoURL, "@") {
			parts := strings.Split(repoURL, ":")
			if len(parts) == 2 {
				hostAndUser := strings.Split(parts[0], "@")
				if len(hostAndUser) == 2 {
					host := hostAndUser[1]
					repoPath := strings.TrimSuffix(parts[1], ".git")
					return filepath.Join(baseDir, host, repoPath), nil
				}
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	sanitizedPath := strings.TrimSuffix(parsedURL.Path, ".git")
	return filepath.Join(baseDir, parsedURL.Host, sanitizedPath), nil
}
