package file

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/neuroquery/internal/core/ports/driven"
)

//go:embed prompts/*.txt
var builtinPrompts embed.FS

// ErrUnknownPrompt is returned for a prompt name with no built-in template.
var ErrUnknownPrompt = errors.New("unknown prompt")

var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore serves answer prompts from a directory of {name}.txt files.
// Files are read on every Load so edits apply to the next question.
// A missing or blank file falls back to the built-in template.
type PromptStore struct {
	dir string
}

// NewPromptStore returns a store over dir.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		return nil, errors.New("prompt directory is required")
	}
	return &PromptStore{dir: dir}, nil
}

// Dir returns the directory prompts are read from.
func (s *PromptStore) Dir() string {
	return s.dir
}

// Seed writes the built-in templates for any prompt file that does not
// exist yet, so users have something to edit. Existing files are kept.
func (s *PromptStore) Seed() error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("creating prompt directory: %w", err)
	}

	entries, err := fs.ReadDir(builtinPrompts, "prompts")
	if err != nil {
		return err
	}
	for _, e := range entries {
		path := filepath.Join(s.dir, e.Name())
		if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		data, err := builtinPrompts.ReadFile("prompts/" + e.Name())
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0600); err != nil {
			return fmt.Errorf("writing %s: %w", e.Name(), err)
		}
	}
	return nil
}

// Load returns the template for name.
func (s *PromptStore) Load(name string) (string, error) {
	builtin, err := builtinPrompts.ReadFile("prompts/" + name + ".txt")
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownPrompt, name)
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name+".txt"))
	if err == nil {
		if custom := strings.TrimSpace(string(data)); custom != "" {
			return custom, nil
		}
	}
	return strings.TrimSpace(string(builtin)), nil
}
