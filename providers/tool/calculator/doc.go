// Package calculator provides in-process arithmetic tools that a model can
// call: a four-operation calculator and a multiply tool.
package calculator
