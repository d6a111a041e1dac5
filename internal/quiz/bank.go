package quiz

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// definitionSchema is the JSON Schema every quiz file must satisfy before
// decoding. Variant-specific constraints beyond what the schema can
// express are covered by Definition.Validate.
const definitionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "topic", "questions"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "topic": {"type": "string", "minLength": 1},
    "randomizeQuestions": {"type": "boolean"},
    "timeLimitMinutes": {"type": "integer", "minimum": 0},
    "difficulty": {"type": "string"},
    "questions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "questionType"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "questionType": {"enum": ["multipleChoice", "identification", "enumeration"]},
          "prompt": {"type": "string"},
          "options": {"type": "array", "items": {"type": "string"}},
          "correctAnswerIndex": {"type": "integer", "minimum": 0},
          "answerKey": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`

// Bank holds the loaded quiz definitions, keyed by quiz id.
type Bank struct {
	quizzes map[string]Definition
	byTopic map[string][]Definition
}

// LoadBank reads every *.json file under dir, validates it against the
// definition schema, and indexes the result by quiz id and topic.
func LoadBank(dir string) (*Bank, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(definitionSchema))
	if err != nil {
		return nil, fmt.Errorf("compiling quiz schema: %w", err)
	}

	b := &Bank{
		quizzes: make(map[string]Definition),
		byTopic: make(map[string][]Definition),
	}

	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || !strings.HasSuffix(path, ".json") {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
		if err != nil {
			return fmt.Errorf("validating %s: %w", path, err)
		}
		if !result.Valid() {
			return fmt.Errorf("quiz file %s fails schema: %s", path, formatSchemaErrors(result))
		}

		var def Definition
		if err := json.Unmarshal(data, &def); err != nil {
			return fmt.Errorf("decoding %s: %w", path, err)
		}
		if err := def.Validate(); err != nil {
			return fmt.Errorf("quiz file %s: %w", path, err)
		}
		if _, dup := b.quizzes[def.ID]; dup {
			return fmt.Errorf("duplicate quiz id %s in %s", def.ID, path)
		}

		b.quizzes[def.ID] = def
		b.byTopic[def.Topic] = append(b.byTopic[def.Topic], def)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading quiz bank: %w", err)
	}

	slog.Info("quiz bank loaded", "quizzes", len(b.quizzes), "dir", dir)
	return b, nil
}

// Quiz returns a definition by id.
func (b *Bank) Quiz(id string) (Definition, bool) {
	def, ok := b.quizzes[id]
	return def, ok
}

// ForTopic returns all quizzes attached to a topic slug.
func (b *Bank) ForTopic(topic string) []Definition {
	return append([]Definition{}, b.byTopic[topic]...)
}

// Len returns the number of quizzes in the bank.
func (b *Bank) Len() int {
	return len(b.quizzes)
}

func formatSchemaErrors(result *gojsonschema.Result) string {
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return strings.Join(msgs, "; ")
}
