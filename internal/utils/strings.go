package utils

import "encoding/json"

// JSONToString serialises object as JSON, pretty-printed when indent is true.
// Marshalling failures come back as a JSON error object so the result is
// always safe to log or send to a model.
func JSONToString(object any, indent ...bool) string {
	var encoded []byte
	var err error
	if len(indent) > 0 && indent[0] {
		encoded, err = json.MarshalIndent(object, "", "  ")
	} else {
		encoded, err = json.Marshal(object)
	}
	if err != nil {
		fallback, _ := json.Marshal(map[string]string{"error": "failed to marshal to JSON: " + err.Error()})
		return string(fallback)
	}
	return string(encoded)
}
