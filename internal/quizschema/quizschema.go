// Package quizschema validates externally authored quiz documents before they
// reach the scoring engine.
package quizschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"typologylab/internal/domain"
)

//go:embed quiz.schema.json
var quizSchemaJSON []byte

const schemaURL = "schema://quiz.json"

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// ValidationError reports a quiz document that cannot be traversed.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid quiz: %s: %v", e.Reason, e.Err)
	}
	return "invalid quiz: " + e.Reason
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Parse validates raw against the quiz schema and the engine's structural
// rules, then decodes it.
func Parse(raw []byte) (domain.Quiz, error) {
	schema, err := quizSchema()
	if err != nil {
		return domain.Quiz{}, err
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return domain.Quiz{}, &ValidationError{Reason: "malformed JSON", Err: err}
	}
	if err := schema.Validate(doc); err != nil {
		return domain.Quiz{}, &ValidationError{Reason: "schema", Err: err}
	}

	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, &ValidationError{Reason: "decode", Err: err}
	}
	if err := Check(quiz); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

// Check enforces the rules a JSON schema cannot express.
func Check(quiz domain.Quiz) error {
	seen := make(map[string]struct{}, len(quiz.Questions))
	for i, q := range quiz.Questions {
		if q.ID == "" {
			return &ValidationError{Reason: fmt.Sprintf("question %d has no id", i)}
		}
		if _, dup := seen[q.ID]; dup {
			return &ValidationError{Reason: fmt.Sprintf("duplicate question id %q", q.ID)}
		}
		seen[q.ID] = struct{}{}
		if len(q.Options) == 0 {
			return &ValidationError{Reason: fmt.Sprintf("question %q has no options", q.ID)}
		}
	}
	for _, r := range quiz.Results {
		if r.ConditionValue.Min > r.ConditionValue.Max {
			return &ValidationError{Reason: fmt.Sprintf("result %q has min %v above max %v", r.ID, r.ConditionValue.Min, r.ConditionValue.Max)}
		}
	}
	return nil
}

func quizSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(quizSchemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("parse quiz schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile(schemaURL)
	})
	return compiled, compileErr
}
