package ai

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/kaptinlin/jsonrepair"
)

var codeFencePattern = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

func stripDuplicateLeadingBrace(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") {
		rest := strings.TrimSpace(s[1:])
		if strings.HasPrefix(rest, "{") {
			return rest
		}
	}
	return s
}

func stripCodeFence(s string) string {
	if m := codeFencePattern.FindStringSubmatch(strings.TrimSpace(s)); m != nil {
		return m[1]
	}
	return s
}

// GenerateSchema creates a JSON Schema from the given Go type.
// It uses reflection to inspect the type structure and generates
// a schema suitable for use with AI structured output.
func GenerateSchema(value any) any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	t := reflect.TypeOf(value)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	v := reflect.New(t).Interface()
	return reflector.Reflect(v)
}

// UnmarshalFlexible attempts to unmarshal JSON into the target with multiple fallback strategies.
// It first tries standard JSON unmarshaling, then handles markdown code fences and
// double-encoded JSON strings, and finally attempts to repair malformed JSON before parsing.
//
// Failures wrap ErrInvalidResponse.
//
// Example:
//
//	var result QueriesResponse
//	UnmarshalFlexible(`{"queries": ["a", "b"]}`, &result)     // standard JSON
//	UnmarshalFlexible("```json\n{\"queries\": []}\n```", &result) // fenced
//	UnmarshalFlexible(`{queries: ['a', 'b',]}`, &result)       // malformed (repaired)
func UnmarshalFlexible(input string, out any) error {
	input = stripCodeFence(strings.TrimSpace(input))

	if err := json.Unmarshal([]byte(input), out); err == nil {
		return nil
	}

	var asString string
	if err := json.Unmarshal([]byte(input), &asString); err == nil {
		asString = strings.TrimSpace(asString)
		if err := json.Unmarshal([]byte(asString), out); err == nil {
			return nil
		}
		input = asString
	}

	input = stripDuplicateLeadingBrace(input)
	repaired, err := jsonrepair.JSONRepair(input)
	if err != nil {
		return fmt.Errorf("%w: json repair failed: %v", ErrInvalidResponse, err)
	}

	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("%w: unmarshal failed after repair: %v", ErrInvalidResponse, err)
	}
	return nil
}
