// Package documents handles storage, listing, and text extraction for
// user-provided documents referenced during slot filling.
package documents

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
)

var supportedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".json": true,
	".html": true,
}

// LoadResult is the outcome of a document load attempt.
type LoadResult struct {
	Success bool
	Text    string
	Error   string
	Source  string
}

type Manager struct {
	BaseDir   string
	client    *http.Client
	sanitizer *bluemonday.Policy
}

func NewManager(baseDir string) (*Manager, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, err
	}
	return &Manager{
		BaseDir:   abs,
		client:    &http.Client{Timeout: 30 * time.Second},
		sanitizer: bluemonday.StrictPolicy(),
	}, nil
}

// ListDocuments returns the names of supported files in the managed
// directory, sorted.
func (m *Manager) ListDocuments() []string {
	entries, err := os.ReadDir(m.BaseDir)
	if err != nil {
		return nil
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if supportedExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names
}

// HasDocument reports whether a document with the given name exists,
// matched case-insensitively.
func (m *Manager) HasDocument(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, doc := range m.ListDocuments() {
		if strings.ToLower(doc) == lower {
			return true
		}
	}
	return false
}

// LoadByReference loads text from a managed document, an explicit path, or
// an http(s) URL.
func (m *Manager) LoadByReference(reference string) LoadResult {
	reference = strings.Trim(strings.TrimSpace(reference), `"`)
	if reference == "" {
		return LoadResult{Error: "No file reference provided."}
	}

	if strings.HasPrefix(reference, "http://") || strings.HasPrefix(reference, "https://") {
		return m.loadURL(reference)
	}

	// Explicit path outside the managed directory
	if info, err := os.Stat(reference); err == nil && !info.IsDir() && m.isSupported(reference) {
		return m.readText(reference)
	}

	candidate := filepath.Join(m.BaseDir, reference)
	if m.isWithinBase(candidate) {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			if !m.isSupported(candidate) {
				return LoadResult{Error: fmt.Sprintf("Unsupported file type: %s", filepath.Ext(candidate))}
			}
			return m.readText(candidate)
		}
	}

	// Case-insensitive lookup inside the managed directory
	lower := strings.ToLower(reference)
	for _, doc := range m.ListDocuments() {
		if strings.ToLower(doc) == lower {
			return m.readText(filepath.Join(m.BaseDir, doc))
		}
	}

	return LoadResult{Error: fmt.Sprintf("Document not found: %s", reference)}
}

// LoadLatest loads the most recently modified supported document.
func (m *Manager) LoadLatest() LoadResult {
	names := m.ListDocuments()
	if len(names) == 0 {
		return LoadResult{Error: "No supported documents found in the shared folder."}
	}

	var latest string
	var latestMod time.Time
	for _, name := range names {
		info, err := os.Stat(filepath.Join(m.BaseDir, name))
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().After(latestMod) {
			latest = name
			latestMod = info.ModTime()
		}
	}

	if latest == "" {
		return LoadResult{Error: "Unable to read documents in the shared folder."}
	}
	return m.readText(filepath.Join(m.BaseDir, latest))
}

// ParseReferenceInput interprets user input that may carry a "file:" prefix
// or name a managed document; otherwise the raw text is returned as-is.
func (m *Manager) ParseReferenceInput(raw string) LoadResult {
	stripped := strings.TrimSpace(raw)
	lowered := strings.ToLower(stripped)

	if strings.HasPrefix(lowered, "file:") || strings.HasPrefix(lowered, "file ") {
		return m.LoadByReference(strings.TrimSpace(stripped[5:]))
	}

	if m.HasDocument(stripped) {
		return m.LoadByReference(stripped)
	}

	return LoadResult{Success: true, Text: stripped}
}

func (m *Manager) isSupported(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

func (m *Manager) isWithinBase(path string) bool {
	rel, err := filepath.Rel(m.BaseDir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (m *Manager) readText(path string) LoadResult {
	if strings.ToLower(filepath.Ext(path)) == ".html" {
		return m.loadHTMLFile(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return LoadResult{Error: err.Error()}
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return LoadResult{Error: fmt.Sprintf("No readable text found in %s", filepath.Base(path))}
	}
	return LoadResult{Success: true, Text: text, Source: filepath.Base(path)}
}

// loadHTMLFile extracts the main content from a local HTML document and
// sanitizes it to plain text.
func (m *Manager) loadHTMLFile(path string) LoadResult {
	f, err := os.Open(path)
	if err != nil {
		return LoadResult{Error: err.Error()}
	}
	defer f.Close()

	fakeURL, _ := url.Parse("file://" + path)
	article, err := readability.FromReader(f, fakeURL)
	if err != nil {
		return LoadResult{Error: fmt.Sprintf("failed to parse %s: %v", filepath.Base(path), err)}
	}

	text := strings.TrimSpace(m.sanitizer.Sanitize(article.TextContent))
	if text == "" {
		return LoadResult{Error: fmt.Sprintf("No readable content found in %s", filepath.Base(path))}
	}
	return LoadResult{Success: true, Text: text, Source: filepath.Base(path)}
}

func (m *Manager) loadURL(rawURL string) LoadResult {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return LoadResult{Error: fmt.Sprintf("invalid URL: %v", err)}
	}

	resp, err := m.client.Get(rawURL)
	if err != nil {
		return LoadResult{Error: fmt.Sprintf("failed to fetch URL: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return LoadResult{Error: fmt.Sprintf("failed to fetch URL: status code %d", resp.StatusCode)}
	}

	article, err := readability.FromReader(resp.Body, parsed)
	if err != nil {
		return LoadResult{Error: fmt.Sprintf("failed to parse article: %v", err)}
	}

	text := strings.TrimSpace(m.sanitizer.Sanitize(article.TextContent))
	if len(text) > 50000 {
		text = text[:50000] + "\n... (content truncated) ..."
	}
	if text == "" {
		return LoadResult{Error: "No readable content found at URL"}
	}
	return LoadResult{Success: true, Text: text, Source: rawURL}
}
