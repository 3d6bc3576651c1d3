package policy

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const ResultSchemaName = "outreach_draft"

const resultSchemaURL = "https://outreach.schemas.local/draft/outreach_draft.schema.json"

// ErrInvalidResult marks a generation result that does not satisfy the draft schema.
var ErrInvalidResult = errors.New("generation result invalid")

// Result is a schema-valid generation result.
type Result struct {
	Subject           string `json:"subject"`
	PreviewText       string `json:"preview_text"`
	BodyHTML          string `json:"body_html"`
	SentimentAnalysis string `json:"sentiment_analysis,omitempty"`
}

// ResultSchema is the structured-output schema sent to the provider. Strict mode
// needs every property listed as required, so the optional field is nullable instead.
func ResultSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"subject", "preview_text", "body_html", "sentiment_analysis"},
		"properties": map[string]any{
			"subject":            map[string]any{"type": "string"},
			"preview_text":       map[string]any{"type": "string"},
			"body_html":          map[string]any{"type": "string"},
			"sentiment_analysis": map[string]any{"type": []string{"string", "null"}},
		},
	}
}

// validationSchema is what a result must satisfy before it is stored.
const validationSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["subject", "preview_text", "body_html"],
  "properties": {
    "subject":            {"type": "string", "minLength": 1, "pattern": "\\S"},
    "preview_text":       {"type": "string", "minLength": 1, "pattern": "\\S"},
    "body_html":          {"type": "string", "minLength": 1, "pattern": "\\S"},
    "sentiment_analysis": {"type": ["string", "null"]}
  }
}`

// ResultValidator checks raw provider output against the draft schema.
type ResultValidator struct {
	schema *jsonschema.Schema
}

func NewResultValidator() (*ResultValidator, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(resultSchemaURL, strings.NewReader(validationSchema)); err != nil {
		return nil, fmt.Errorf("draft schema load failed: %w", err)
	}
	compiled, err := c.Compile(resultSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("draft schema compile failed: %w", err)
	}
	return &ResultValidator{schema: compiled}, nil
}

// Decode validates raw and returns the typed result. Any failure wraps ErrInvalidResult.
func (v *ResultValidator) Decode(raw []byte) (Result, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidResult, err)
	}
	return v.DecodeValue(doc)
}

func (v *ResultValidator) DecodeValue(doc any) (Result, error) {
	if doc == nil {
		return Result{}, fmt.Errorf("%w: empty result", ErrInvalidResult)
	}
	if err := v.schema.Validate(doc); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidResult, err)
	}
	obj, _ := doc.(map[string]any)
	out := Result{
		Subject:     strings.TrimSpace(asString(obj["subject"])),
		PreviewText: strings.TrimSpace(asString(obj["preview_text"])),
		BodyHTML:    strings.TrimSpace(asString(obj["body_html"])),
	}
	out.SentimentAnalysis = strings.TrimSpace(asString(obj["sentiment_analysis"]))
	return out, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
