// Package code implements the bytecode instruction model used by the
// compiler and virtual machine: the flat, closed opcode set, the
// immutable [Set] an AST lowers into, and a disassembler used for
// diagnostics.
//
// Unlike bytecodes whose operands are small integer indices into a
// constant pool, PUSH/GET_VARIABLE/CALL_* here carry literal values and
// operator names directly, so each element of a [Set] is a typed
// [Instruction] struct rather than a byte-packed slice: an instruction
// is immutable operands plus a diagnostic record, which maps onto a
// struct far more directly than an encoded stream would.
package code

import (
	"fmt"
	"strings"

	"github.com/sqc-lang/sqcvm/diag"
	"github.com/sqc-lang/sqcvm/value"
)

// Opcode is one of the closed set of instruction kinds.
type Opcode byte

//nolint:revive
const (
	PUSH Opcode = iota
	MAKE_ARRAY
	GET_VARIABLE
	ASSIGN_TO
	ASSIGN_TO_LOCAL
	CALL_NULAR
	CALL_UNARY
	CALL_BINARY
	END_STATEMENT
)

// Definition describes an opcode for disassembly purposes.
type Definition struct {
	Name string
}

var definitions = map[Opcode]Definition{
	PUSH:            {"PUSH"},
	MAKE_ARRAY:      {"MAKE_ARRAY"},
	GET_VARIABLE:    {"GET_VARIABLE"},
	ASSIGN_TO:       {"ASSIGN_TO"},
	ASSIGN_TO_LOCAL: {"ASSIGN_TO_LOCAL"},
	CALL_NULAR:      {"CALL_NULAR"},
	CALL_UNARY:      {"CALL_UNARY"},
	CALL_BINARY:     {"CALL_BINARY"},
	END_STATEMENT:   {"END_STATEMENT"},
}

// Lookup returns the Definition for op, or an error if op is not one of
// the closed set of opcodes.
func Lookup(op Opcode) (Definition, error) {
	def, ok := definitions[op]
	if !ok {
		return Definition{}, fmt.Errorf("code: opcode %d undefined", op)
	}
	return def, nil
}

// Instruction is one immutable step of the bytecode, carrying whichever
// operands its Op needs plus the diag_info record used for diagnostics
// and reconstruction.
type Instruction struct {
	Op Opcode

	// Literal is the PUSH operand.
	Literal value.Value

	// Name is the identifier/operator-name operand for GET_VARIABLE,
	// ASSIGN_TO, ASSIGN_TO_LOCAL, CALL_NULAR, CALL_UNARY and CALL_BINARY.
	Name string

	// Count is the MAKE_ARRAY operand: how many stack values to pop.
	Count int

	// Precedence is the CALL_BINARY operand used only for reconstruction.
	Precedence int

	Diag diag.Info
}

// Instructions is an ordered, finite sequence of instructions.
type Instructions []Instruction

// Set is an immutable instruction sequence together with the source text
// window it was lowered from. A Set is itself a valid CODE value payload
// (it implements [value.CodePayload]), since "a code value *is* an
// instruction set plus capture metadata".
type Set struct {
	Instructions Instructions
	Source       string
}

// SourceText implements value.CodePayload.
func (s *Set) SourceText() string { return s.Source }

// Push builds a PUSH instruction.
func Push(v value.Value, at diag.Info) Instruction {
	return Instruction{Op: PUSH, Literal: v, Diag: at}
}

// MakeArray builds a MAKE_ARRAY instruction.
func MakeArray(count int, at diag.Info) Instruction {
	return Instruction{Op: MAKE_ARRAY, Count: count, Diag: at}
}

// GetVariable builds a GET_VARIABLE instruction.
func GetVariable(name string, at diag.Info) Instruction {
	return Instruction{Op: GET_VARIABLE, Name: name, Diag: at}
}

// AssignTo builds an ASSIGN_TO instruction.
func AssignTo(name string, at diag.Info) Instruction {
	return Instruction{Op: ASSIGN_TO, Name: name, Diag: at}
}

// AssignToLocal builds an ASSIGN_TO_LOCAL instruction.
func AssignToLocal(name string, at diag.Info) Instruction {
	return Instruction{Op: ASSIGN_TO_LOCAL, Name: name, Diag: at}
}

// CallNular builds a CALL_NULAR instruction.
func CallNular(op string, at diag.Info) Instruction {
	return Instruction{Op: CALL_NULAR, Name: op, Diag: at}
}

// CallUnary builds a CALL_UNARY instruction.
func CallUnary(op string, at diag.Info) Instruction {
	return Instruction{Op: CALL_UNARY, Name: op, Diag: at}
}

// CallBinary builds a CALL_BINARY instruction. prec is informational,
// carried only for source reconstruction.
func CallBinary(op string, prec int, at diag.Info) Instruction {
	return Instruction{Op: CALL_BINARY, Name: op, Precedence: prec, Diag: at}
}

// EndStatement builds an END_STATEMENT instruction.
func EndStatement(at diag.Info) Instruction {
	return Instruction{Op: END_STATEMENT, Diag: at}
}

// String disassembles the instruction stream into a human-readable
// listing, one instruction per line ("%04d %s").
func (ins Instructions) String() string {
	var out strings.Builder
	for i, in := range ins {
		def, err := Lookup(in.Op)
		name := "ERROR"
		if err == nil {
			name = def.Name
		}
		fmt.Fprintf(&out, "%04d %s\n", i, operandString(name, in))
	}
	return out.String()
}

func operandString(name string, in Instruction) string {
	switch in.Op {
	case PUSH:
		return fmt.Sprintf("%s %s", name, in.Literal.ToStringSQF())
	case MAKE_ARRAY:
		return fmt.Sprintf("%s %d", name, in.Count)
	case GET_VARIABLE, ASSIGN_TO, ASSIGN_TO_LOCAL, CALL_NULAR, CALL_UNARY:
		return fmt.Sprintf("%s %s", name, in.Name)
	case CALL_BINARY:
		return fmt.Sprintf("%s %s %d", name, in.Name, in.Precedence)
	case END_STATEMENT:
		return name
	default:
		return name
	}
}

// Reconstruct renders ins back into SQF-like source form by walking the
// instructions with a simple stack machine. It does not consult operator
// precedence and inserts no parentheses, so a nested expression whose
// grouping differs from the default precedence is not reproduced
// faithfully. This supports pretty-printing for the
// subset of instructions that carry enough information to do so (PUSH,
// CALL_NULAR/UNARY/BINARY, GET_VARIABLE, MAKE_ARRAY); it is used only for
// diagnostics, never for re-parsing.
func Reconstruct(ins Instructions) string {
	var stack []string
	for _, in := range ins {
		switch in.Op {
		case PUSH:
			stack = append(stack, in.Literal.ToStringSQF())
		case GET_VARIABLE:
			stack = append(stack, in.Name)
		case MAKE_ARRAY:
			if in.Count <= len(stack) {
				args := stack[len(stack)-in.Count:]
				stack = stack[:len(stack)-in.Count]
				stack = append(stack, "["+strings.Join(args, ", ")+"]")
			}
		case CALL_NULAR:
			stack = append(stack, in.Name)
		case CALL_UNARY:
			if len(stack) >= 1 {
				right := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				stack = append(stack, in.Name+" "+right)
			}
		case CALL_BINARY:
			if len(stack) >= 2 {
				right := stack[len(stack)-1]
				left := stack[len(stack)-2]
				stack = stack[:len(stack)-2]
				stack = append(stack, left+" "+in.Name+" "+right)
			}
		case ASSIGN_TO, ASSIGN_TO_LOCAL:
			if len(stack) >= 1 {
				right := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				stack = append(stack, in.Name+" = "+right)
			}
		case END_STATEMENT:
			stack = nil
		}
	}
	return strings.Join(stack, "; ")
}
