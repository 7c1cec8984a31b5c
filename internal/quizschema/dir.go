package quizschema

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"typologylab/internal/domain"
)

// LoadDir parses every *.json file in dir. A quiz without a slug is keyed by
// its file name.
func LoadDir(dir string) (map[string]domain.Quiz, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read quiz dir: %w", err)
	}
	quizzes := make(map[string]domain.Quiz)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		quiz, err := Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		if quiz.Slug == "" {
			quiz.Slug = strings.TrimSuffix(e.Name(), ".json")
		}
		if quiz.ID == "" {
			quiz.ID = quiz.Slug
		}
		if _, dup := quizzes[quiz.Slug]; dup {
			return nil, fmt.Errorf("%s: duplicate slug %q", e.Name(), quiz.Slug)
		}
		quizzes[quiz.Slug] = quiz
	}
	return quizzes, nil
}
