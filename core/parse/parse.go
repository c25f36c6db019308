package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ParseStringAs parses model output into T.
//
// Primitive kinds (string, bool, integers, floats) are converted directly,
// also when the model wrapped them as {"type": ..., "value": ...}. Every
// other kind is decoded as JSON: the content itself is tried first, then any
// fenced code block or balanced {...}/[...] block found in it. Each
// candidate is repaired with jsonrepair when it does not decode as is, and
// schema-style wrappers are unwrapped as a last resort.
//
//	type Route struct {
//	    Step string `json:"step"`
//	}
//
//	route, err := parse.ParseStringAs[Route]("Sure! ```json\n{step: 'poem'}\n```")
func ParseStringAs[T any](content string) (T, error) {
	var result T
	err := ParseInto(content, &result)
	return result, err
}

// ParseInto is the non-generic form of ParseStringAs. target must be a
// non-nil pointer; it is only written on success.
func ParseInto(content string, target any) error {
	pointer := reflect.ValueOf(target)
	if pointer.Kind() != reflect.Pointer || pointer.IsNil() {
		return fmt.Errorf("parse target must be a non-nil pointer, got %T", target)
	}
	element := pointer.Elem()

	switch element.Kind() {
	case reflect.String:
		trimmed := strings.TrimSpace(content)
		if strings.HasPrefix(trimmed, "{") {
			if unwrapped, err := tryUnwrapPrimitive(trimmed); err == nil {
				content = unwrapped
			}
		}
		element.SetString(content)
		return nil

	case reflect.Bool:
		parsed, err := parsePrimitive(content, strconv.ParseBool)
		if err != nil {
			return fmt.Errorf("failed to parse content as bool: %w", err)
		}
		element.SetBool(parsed)
		return nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		parsed, err := parsePrimitive(content, func(text string) (int64, error) {
			return strconv.ParseInt(text, 10, element.Type().Bits())
		})
		if err != nil {
			return fmt.Errorf("failed to parse content as int: %w", err)
		}
		element.SetInt(parsed)
		return nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		parsed, err := parsePrimitive(content, func(text string) (uint64, error) {
			return strconv.ParseUint(text, 10, element.Type().Bits())
		})
		if err != nil {
			return fmt.Errorf("failed to parse content as uint: %w", err)
		}
		element.SetUint(parsed)
		return nil

	case reflect.Float32, reflect.Float64:
		parsed, err := parsePrimitive(content, func(text string) (float64, error) {
			return strconv.ParseFloat(text, element.Type().Bits())
		})
		if err != nil {
			return fmt.Errorf("failed to parse content as float: %w", err)
		}
		element.SetFloat(parsed)
		return nil
	}

	decoded, err := decodeJSON(content, element.Type())
	if err != nil {
		return err
	}
	element.Set(decoded)
	return nil
}

func parsePrimitive[V any](content string, convert func(string) (V, error)) (V, error) {
	trimmed := strings.TrimSpace(content)
	value, err := convert(trimmed)
	if err == nil {
		return value, nil
	}
	if unwrapped, unwrapErr := tryUnwrapPrimitive(trimmed); unwrapErr == nil {
		if value, retryErr := convert(unwrapped); retryErr == nil {
			return value, nil
		}
	}
	return value, err
}

// decodeJSON tries every candidate found in content and returns the first
// one that decodes into targetType.
func decodeJSON(content string, targetType reflect.Type) (reflect.Value, error) {
	candidates := append([]string{strings.TrimSpace(content)}, extractJSONCandidates(content)...)

	var firstErr error
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		decoded, err := decodeCandidate(candidate, targetType)
		if err == nil {
			return decoded, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = errors.New("content is empty")
	}
	return reflect.Value{}, fmt.Errorf("failed to decode content as %s: %w", targetType, firstErr)
}

func decodeCandidate(candidate string, targetType reflect.Type) (reflect.Value, error) {
	decoded := reflect.New(targetType)
	err := json.Unmarshal([]byte(candidate), decoded.Interface())
	if err == nil {
		return decoded.Elem(), nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(candidate)
	if repairErr != nil {
		return reflect.Value{}, fmt.Errorf("unmarshal: %w (repair failed: %v)", err, repairErr)
	}

	decoded = reflect.New(targetType)
	if err = json.Unmarshal([]byte(repaired), decoded.Interface()); err == nil {
		return decoded.Elem(), nil
	}

	// Models sometimes answer with the schema shape instead of the data.
	unwrapped, unwrapErr := unwrapSchemaValues(repaired)
	if unwrapErr == nil {
		decoded = reflect.New(targetType)
		if retryErr := json.Unmarshal([]byte(unwrapped), decoded.Interface()); retryErr == nil {
			return decoded.Elem(), nil
		}
	}
	return reflect.Value{}, fmt.Errorf("unmarshal repaired JSON: %w", err)
}

// extractJSONCandidates returns fenced code blocks followed by balanced
// {...} and [...] blocks, in order of appearance.
func extractJSONCandidates(content string) []string {
	var candidates []string

	rest := content
	for {
		start := strings.Index(rest, "```")
		if start < 0 {
			break
		}
		body := rest[start+3:]
		if newline := strings.IndexByte(body, '\n'); newline >= 0 && !strings.ContainsAny(body[:newline], "{[") {
			body = body[newline+1:]
		}
		end := strings.Index(body, "```")
		if end < 0 {
			break
		}
		candidates = append(candidates, strings.TrimSpace(body[:end]))
		rest = body[end+3:]
	}

	for index := 0; index < len(content); index++ {
		if content[index] != '{' && content[index] != '[' {
			continue
		}
		if end := matchingBracket(content, index); end > index {
			candidates = append(candidates, content[index:end+1])
			index = end
		}
	}
	return candidates
}

// matchingBracket returns the index closing the bracket at open, skipping
// string literals, or -1.
func matchingBracket(content string, open int) int {
	var stack []byte
	inString := false
	escaped := false
	for index := open; index < len(content); index++ {
		char := content[index]
		if inString {
			switch {
			case escaped:
				escaped = false
			case char == '\\':
				escaped = true
			case char == '"':
				inString = false
			}
			continue
		}
		switch char {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != char {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return index
			}
		}
	}
	return -1
}

// tryUnwrapPrimitive extracts value from {"type": ..., "value": ...}.
func tryUnwrapPrimitive(content string) (string, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return "", err
	}
	if _, hasType := data["type"]; !hasType || len(data) != 2 {
		return "", errors.New("not a schema-wrapped value")
	}
	value, hasValue := data["value"]
	if !hasValue {
		return "", errors.New("not a schema-wrapped value")
	}
	switch typed := value.(type) {
	case string:
		return typed, nil
	case float64, bool:
		return fmt.Sprintf("%v", typed), nil
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return "", err
		}
		return string(encoded), nil
	}
}

// unwrapSchemaValues replaces every {"type": ..., "value": v} object with v.
//
//	{"name": {"type": "string", "value": "John"}}  ->  {"name": "John"}
func unwrapSchemaValues(content string) (string, error) {
	var data any
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return "", err
	}
	encoded, err := json.Marshal(recursiveUnwrap(data))
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func recursiveUnwrap(data any) any {
	switch typed := data.(type) {
	case map[string]any:
		if _, hasType := typed["type"]; hasType {
			if value, hasValue := typed["value"]; hasValue && len(typed) == 2 {
				return recursiveUnwrap(value)
			}
		}
		result := make(map[string]any, len(typed))
		for key, value := range typed {
			result[key] = recursiveUnwrap(value)
		}
		return result
	case []any:
		result := make([]any, len(typed))
		for index, value := range typed {
			result[index] = recursiveUnwrap(value)
		}
		return result
	default:
		return data
	}
}
