package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJSONToString(testCase *testing.T) {
	input := map[string]int{"a": 1}

	assert.Equal(testCase, `{"a":1}`, JSONToString(input))
	assert.Equal(testCase, "{\n  \"a\": 1\n}", JSONToString(input, true))
}

func TestJSONToString_MarshalError(testCase *testing.T) {
	result := JSONToString(make(chan int))

	assert.Contains(testCase, result, `"error"`)
	assert.Contains(testCase, result, "failed to marshal")
}
