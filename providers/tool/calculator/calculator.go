package calculator

import (
	"context"
	"errors"
	"fmt"

	"github.com/leofalp/aiflow/providers/tool"
)

// ErrDivisionByZero is returned by Calc for a zero divisor.
var ErrDivisionByZero = errors.New("calculator: division by zero")

// NewCalculatorTool returns the "Calculator" tool backed by [Calc].
func NewCalculatorTool() *tool.Tool[Input, Output] {
	return tool.MustTool(
		"Calculator",
		Calc,
		tool.WithDescription("A simple calculator for addition, subtraction, multiplication and division of two numbers."),
	)
}

// NewMultiplyTool returns the "multiply" tool: the product of two integers.
func NewMultiplyTool() *tool.Tool[MultiplyInput, int] {
	return tool.MustTool(
		"multiply",
		func(_ context.Context, input MultiplyInput) (int, error) {
			return input.A * input.B, nil
		},
		tool.WithDescription("Multiply a and b."),
	)
}

// Calc applies req.Op to req.A and req.B. Supported operations are
// "add"/"+", "sub"/"-", "mul"/"*" and "div"/"/".
//
//	result, err := calculator.Calc(ctx, calculator.Input{A: 10, B: 4, Op: "div"})
//	// result.Result == 2.5
func Calc(_ context.Context, req Input) (Output, error) {
	switch req.Op {
	case "add", "+":
		return Output{Result: req.A + req.B}, nil
	case "sub", "-":
		return Output{Result: req.A - req.B}, nil
	case "mul", "*":
		return Output{Result: req.A * req.B}, nil
	case "div", "/":
		if req.B == 0 {
			return Output{}, ErrDivisionByZero
		}
		return Output{Result: req.A / req.B}, nil
	default:
		return Output{}, fmt.Errorf("calculator: unsupported operation %q", req.Op)
	}
}

type Input struct {
	A  float64 `json:"A" jsonschema:"description=First operand"`
	B  float64 `json:"B" jsonschema:"description=Second operand"`
	Op string  `json:"Op" jsonschema:"description=Operation type,enum=add,enum=sub,enum=mul,enum=div"`
}

type Output struct {
	Result float64 `json:"result" jsonschema:"description=The result of the calculation"`
}

type MultiplyInput struct {
	A int `json:"a" jsonschema:"description=First factor"`
	B int `json:"b" jsonschema:"description=Second factor"`
}
