package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const responseSchemaJSON = `{
	"type": "object",
	"required": ["classifications"],
	"properties": {
		"classifications": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["transaction_id", "category_name", "confidence_score"],
				"properties": {
					"transaction_id": {"type": "string", "minLength": 1},
					"category_name": {"type": "string"},
					"hmrc_mapping": {"type": "string"},
					"is_tax_deductible": {"type": "boolean"},
					"reasoning": {"type": "string"},
					"confidence_score": {"type": "number"}
				}
			}
		}
	}
}`

var responseSchema = mustCompileSchema("classification-response.json", responseSchemaJSON)

func mustCompileSchema(name, src string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader([]byte(src))); err != nil {
		panic(fmt.Sprintf("add schema resource: %v", err))
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("compile schema: %v", err))
	}
	return schema
}

var (
	openFencePattern  = regexp.MustCompile("^```[\\w-]*[ \\t]*\\n?")
	closeFencePattern = regexp.MustCompile("\\n?[ \\t]*```$")
)

// stripCodeFence removes markdown fence lines around a reply. The opening and
// closing fences are stripped independently so a truncated reply with no
// closing fence still loses its opener.
func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	trimmed = openFencePattern.ReplaceAllString(trimmed, "")
	trimmed = closeFencePattern.ReplaceAllString(trimmed, "")
	return strings.TrimSpace(trimmed)
}

// extractJSON returns the JSON object in a reply. Replies that are not JSON
// after fence stripping fall back to the first balanced object, which drops
// leading or trailing prose. If none is found the stripped body is returned
// so the decoder reports the error.
func extractJSON(raw string) string {
	body := stripCodeFence(raw)
	if json.Valid([]byte(body)) {
		return body
	}
	if obj, ok := balancedObject(body); ok && json.Valid([]byte(obj)) {
		return obj
	}
	return body
}

// balancedObject finds the first {...} span, skipping braces inside strings.
func balancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

type classificationEnvelope struct {
	Classifications []model.ClassificationSuggestion `json:"classifications"`
}

// ParseResponse decodes and validates a model reply. Tax mappings outside the
// vocabulary become "none" and confidence is clamped to [0, 1].
func ParseResponse(raw string) ([]model.ClassificationSuggestion, error) {
	body := extractJSON(raw)

	var doc any
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w", err)
	}
	if err := responseSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("response does not match schema: %w", err)
	}

	var env classificationEnvelope
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		return nil, fmt.Errorf("failed to decode classifications: %w", err)
	}

	for i := range env.Classifications {
		s := &env.Classifications[i]
		s.TaxMapping = model.ParseTaxMapping(string(s.TaxMapping))
		s.ConfidenceScore = clamp01(s.ConfidenceScore)
		s.CategoryName = strings.TrimSpace(s.CategoryName)
		if s.CategoryName == "" {
			s.CategoryName = model.UncategorizedName
		}
	}
	return env.Classifications, nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
