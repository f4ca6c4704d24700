// Package content reads posts and projects written as markdown files with YAML
// front matter.
package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/meghashyamc/foliosearch/logger"
	"github.com/meghashyamc/foliosearch/services/search"
	"gopkg.in/yaml.v3"
)

const (
	PostsDir    = "posts"
	ProjectsDir = "projects"
)

var markdownExtensions = []string{".md", ".mdx", ".markdown"}

var frontMatterFence = []byte("---")
var frontMatterOpening = []byte("---\n")

type frontMatter struct {
	Title       string     `yaml:"title"`
	Date        string     `yaml:"date"`
	Category    string     `yaml:"category"`
	Tags        stringList `yaml:"tags"`
	Excerpt     string     `yaml:"excerpt"`
	Description string     `yaml:"description"`
	Published   *bool      `yaml:"published"`
	Status      string     `yaml:"status"`
	DemoURL     string     `yaml:"demoUrl"`
	RepoURL     string     `yaml:"repoUrl"`
}

// Loader reads <root>/posts and <root>/projects. It satisfies search.Source.
type Loader struct {
	root   string
	logger logger.Logger
}

var _ search.Source = (*Loader)(nil)

func NewLoader(logger logger.Logger, root string) *Loader {
	return &Loader{root: root, logger: logger}
}

// Dirs lists the directories the loader reads from.
func (l *Loader) Dirs() []string {
	return []string{filepath.Join(l.root, PostsDir), filepath.Join(l.root, ProjectsDir)}
}

func (l *Loader) Posts(ctx context.Context) ([]search.Record, error) {
	return l.loadDir(ctx, filepath.Join(l.root, PostsDir))
}

func (l *Loader) Projects(ctx context.Context) ([]search.Record, error) {
	return l.loadDir(ctx, filepath.Join(l.root, ProjectsDir))
}

// loadDir parses every markdown file in dir, in name order. Files that fail to
// parse are logged and skipped; a missing directory is an empty feed.
func (l *Loader) loadDir(ctx context.Context, dir string) ([]search.Record, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			l.logger.Warn("content directory does not exist", "path", dir)
			return []search.Record{}, nil
		}
		l.logger.Error("could not read content directory", "path", dir, "err", err.Error())
		return nil, fmt.Errorf("failed to read content directory %s: %w", dir, err)
	}

	records := make([]search.Record, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") || !isMarkdownFile(entry.Name()) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		record, err := readRecord(path)
		if err != nil {
			l.logger.Error("skipping content file", "path", path, "err", err.Error())
			continue
		}
		records = append(records, record)
	}

	l.logger.Debug("loaded content directory", "path", dir, "num_of_files", len(records))
	return records, nil
}

func readRecord(path string) (search.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return search.Record{}, err
	}

	record, err := parseRecord(data)
	if err != nil {
		return search.Record{}, err
	}
	record.Slug = slugFromFilename(filepath.Base(path))

	return record, nil
}

func parseRecord(data []byte) (search.Record, error) {
	header, body, err := splitFrontMatter(data)
	if err != nil {
		return search.Record{}, err
	}

	var meta frontMatter
	if len(header) > 0 {
		if err := yaml.Unmarshal(header, &meta); err != nil {
			return search.Record{}, fmt.Errorf("invalid front matter: %w", err)
		}
	}

	excerpt := meta.Excerpt
	if excerpt == "" {
		excerpt = meta.Description
	}

	return search.Record{
		Title:     strings.TrimSpace(meta.Title),
		Content:   stripMarkdown(string(body)),
		Category:  strings.TrimSpace(meta.Category),
		Tags:      []string(meta.Tags),
		Date:      strings.TrimSpace(meta.Date),
		Excerpt:   strings.TrimSpace(excerpt),
		Published: meta.Published,
		Status:    strings.TrimSpace(meta.Status),
		DemoURL:   meta.DemoURL,
		RepoURL:   meta.RepoURL,
	}, nil
}

// splitFrontMatter separates a leading "---" fenced YAML block from the body.
// Files without a leading fence have no front matter.
func splitFrontMatter(data []byte) ([]byte, []byte, error) {
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	normalised := bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))

	if !bytes.HasPrefix(normalised, frontMatterOpening) {
		return nil, normalised, nil
	}

	rest := normalised[len(frontMatterOpening):]
	for offset := 0; offset <= len(rest); {
		lineEnd := bytes.IndexByte(rest[offset:], '\n')
		var line []byte
		if lineEnd < 0 {
			line = rest[offset:]
		} else {
			line = rest[offset : offset+lineEnd]
		}

		if bytes.Equal(bytes.TrimRight(line, " \t"), frontMatterFence) {
			header := rest[:offset]
			if lineEnd < 0 {
				return header, nil, nil
			}
			return header, rest[offset+lineEnd+1:], nil
		}

		if lineEnd < 0 {
			break
		}
		offset += lineEnd + 1
	}

	return nil, nil, errors.New("front matter is not closed")
}

// stringList accepts either a YAML sequence or a comma-separated scalar.
type stringList []string

func (s *stringList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var items []string
		for _, item := range strings.Split(node.Value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		*s = items
		return nil
	}

	var items []string
	if err := node.Decode(&items); err != nil {
		return err
	}
	*s = items
	return nil
}

func isMarkdownFile(name string) bool {
	return slices.Contains(markdownExtensions, strings.ToLower(filepath.Ext(name)))
}

func slugFromFilename(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
