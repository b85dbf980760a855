package ingest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	quarry "github.com/quarryhq/quarry"
)

// SkippedDocument records one document the pipeline did not ingest and why.
type SkippedDocument struct {
	Path   string
	Reason string
}

// Source enumerates documents for ingestion. Enumeration is best-effort:
// documents that cannot be ingested are returned as skips, not errors.
type Source interface {
	// Name identifies the source in reports and chunk records.
	Name() string
	// Documents returns the extractable documents and the files skipped.
	Documents() ([]quarry.Document, []SkippedDocument, error)
}

// DefaultAllowedExtensions are the file extensions ingested when a
// RepoSource is not configured otherwise.
var DefaultAllowedExtensions = []string{".docx", ".txt", ".md"}

// DefaultDisallowedNames are filenames excluded regardless of extension.
var DefaultDisallowedNames = []string{"LICENSE.md", "CHANGELOG.md", "CODE_OF_CONDUCT.md"}

// RepoSource enumerates documents from a directory tree on disk. Files are
// filtered by extension and filename, extracted by format, and sanitized;
// anything that fails becomes a skip entry.
type RepoSource struct {
	root            string
	name            string
	internalOnly    bool
	allowedExts     map[string]bool
	disallowedNames map[string]bool
}

var _ Source = (*RepoSource)(nil)

// RepoOption configures a RepoSource.
type RepoOption func(*RepoSource)

// RepoInternalOnly marks every document from this source as internal, so
// external-scoped retrievals never see its chunks.
func RepoInternalOnly() RepoOption {
	return func(r *RepoSource) { r.internalOnly = true }
}

// RepoAllowedExtensions replaces the allowed extension list. Extensions are
// matched case-insensitively, with or without the leading dot.
func RepoAllowedExtensions(exts ...string) RepoOption {
	return func(r *RepoSource) {
		r.allowedExts = make(map[string]bool, len(exts))
		for _, e := range exts {
			r.allowedExts[normalizeExt(e)] = true
		}
	}
}

// RepoDisallowedNames replaces the excluded filename list.
func RepoDisallowedNames(names ...string) RepoOption {
	return func(r *RepoSource) {
		r.disallowedNames = make(map[string]bool, len(names))
		for _, n := range names {
			r.disallowedNames[strings.ToLower(n)] = true
		}
	}
}

func normalizeExt(e string) string {
	e = strings.ToLower(strings.TrimSpace(e))
	if e != "" && !strings.HasPrefix(e, ".") {
		e = "." + e
	}
	return e
}

// NewRepoSource creates a source over the directory at root. The source
// name defaults to the directory's base name.
func NewRepoSource(root string, opts ...RepoOption) *RepoSource {
	r := &RepoSource{
		root: root,
		name: filepath.Base(filepath.Clean(root)),
	}
	RepoAllowedExtensions(DefaultAllowedExtensions...)(r)
	RepoDisallowedNames(DefaultDisallowedNames...)(r)
	for _, o := range opts {
		o(r)
	}
	return r
}

// Name returns the source's repo name.
func (r *RepoSource) Name() string { return r.name }

// Documents walks the tree and extracts every allowed file. The returned
// document IDs are content-independent path hashes, so re-ingesting the same
// tree yields the same IDs.
func (r *RepoSource) Documents() ([]quarry.Document, []SkippedDocument, error) {
	var docs []quarry.Document
	var skipped []SkippedDocument

	err := filepath.WalkDir(r.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != r.root {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		if r.disallowedNames[strings.ToLower(name)] {
			skipped = append(skipped, SkippedDocument{Path: path, Reason: "disallowed filename"})
			return nil
		}
		ext := strings.ToLower(filepath.Ext(name))
		if !r.allowedExts[ext] {
			skipped = append(skipped, SkippedDocument{Path: path, Reason: fmt.Sprintf("extension %q not allowed", ext)})
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			skipped = append(skipped, SkippedDocument{Path: path, Reason: fmt.Sprintf("read failed: %v", err)})
			return nil
		}

		text, err := ForExtension(ext).Extract(content)
		if err != nil {
			skipped = append(skipped, SkippedDocument{Path: path, Reason: fmt.Sprintf("extraction failed: %v", err)})
			return nil
		}
		text, err = SanitizeText(text)
		if err != nil {
			skipped = append(skipped, SkippedDocument{Path: path, Reason: err.Error()})
			return nil
		}
		if strings.TrimSpace(text) == "" {
			skipped = append(skipped, SkippedDocument{Path: path, Reason: "no extractable text"})
			return nil
		}

		rel, relErr := filepath.Rel(r.root, path)
		if relErr != nil {
			rel = path
		}
		docs = append(docs, quarry.Document{
			ID:           quarry.HashText(filepath.ToSlash(filepath.Join(r.name, rel))),
			Name:         name,
			Path:         path,
			Repo:         r.name,
			Text:         text,
			InternalOnly: r.internalOnly,
		})
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walk %s: %w", r.root, err)
	}
	return docs, skipped, nil
}

// StaticSource serves a fixed set of documents, mainly for tests and
// programmatic ingestion.
type StaticSource struct {
	Repo string
	Docs []quarry.Document
}

var _ Source = (*StaticSource)(nil)

// Name returns the static repo name.
func (s *StaticSource) Name() string { return s.Repo }

// Documents returns the fixed documents, sanitizing each text.
func (s *StaticSource) Documents() ([]quarry.Document, []SkippedDocument, error) {
	var docs []quarry.Document
	var skipped []SkippedDocument
	for _, d := range s.Docs {
		text, err := SanitizeText(d.Text)
		if err != nil {
			skipped = append(skipped, SkippedDocument{Path: d.Path, Reason: err.Error()})
			continue
		}
		d.Text = text
		if d.Repo == "" {
			d.Repo = s.Repo
		}
		if d.ID == "" {
			d.ID = quarry.HashText(filepath.ToSlash(filepath.Join(d.Repo, d.Path)))
		}
		docs = append(docs, d)
	}
	return docs, skipped, nil
}
