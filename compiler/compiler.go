// Package compiler lowers the SQC abstract syntax tree into the flat
// bytecode of package code.
//
// The lowering is a recursive walk with two outputs: an append-only
// instruction sink (one per nested code value being built) and a lexical
// list of in-scope local identifiers ([Locals]) that decides whether a
// bare identifier means "local" (underscore-prefixed at runtime) or
// "non-local". Control flow does not compile to branches: each construct
// lowers to the operator pipeline of the target scripting language
// (`c; if; {t}; {f}; else; then`, `{cond} while; {body} do`, ...), and
// the operators build the specialized call-stack frames at run time.
//
// Operator identity is resolved against the registry at emit time: a
// unary word whose name is not a registered operator is rewritten as
// `[arg] call word`, preserving the surface language's user-function
// invocation syntax.
package compiler

import (
	"fmt"
	"strings"

	"github.com/sqc-lang/sqcvm/ast"
	"github.com/sqc-lang/sqcvm/code"
	"github.com/sqc-lang/sqcvm/diag"
	"github.com/sqc-lang/sqcvm/token"
	"github.com/sqc-lang/sqcvm/value"
)

// FunctionScopeName is the auto-scope tag prepended to every function
// literal's instruction set; `return` lowers to a breakOut against it.
const FunctionScopeName = "___fnc"

// defaultCommandPrecedence is the reconstruction precedence attached to
// a CALL_BINARY whose operator is not (yet) registered: generic word
// commands sit at level 4.
const defaultCommandPrecedence = 4

// OperatorTable is the emit-time view of the operator registry the
// lowering needs: existence checks to resolve identifier roles, and
// binary precedences for CALL_BINARY's informational operand. It is
// satisfied by *registry.Registry of any machine type.
type OperatorTable interface {
	Exists(name string, arity int) bool
	BinaryPrecedence(name string) (int, bool)
}

// Compiler lowers one parsed source unit. It carries the source text and
// path only to stamp diag_info records onto every emitted instruction.
type Compiler struct {
	ops    OperatorTable
	path   string
	source string
	lines  []string
}

// New creates a Compiler for a source unit. path is the pathinfo label
// attached to diagnostics; source is the
// text the AST was parsed from.
func New(ops OperatorTable, path, source string) *Compiler {
	return &Compiler{
		ops:    ops,
		path:   path,
		source: source,
		lines:  strings.Split(source, "\n"),
	}
}

// Compile lowers program into an immutable instruction set.
func (c *Compiler) Compile(program *ast.Program) (*code.Set, error) {
	b := &setBuilder{source: c.source}
	if err := c.lowerStatements(b, program.Statements, NewLocals()); err != nil {
		return nil, err
	}
	return b.set(), nil
}

// setBuilder is the append-only instruction sink for one instruction set
// under construction; nested code literals each get their own.
type setBuilder struct {
	ins    code.Instructions
	source string
}

func (b *setBuilder) emit(in code.Instruction) {
	b.ins = append(b.ins, in)
}

func (b *setBuilder) set() *code.Set {
	return &code.Set{Instructions: b.ins, Source: b.source}
}

// at builds the diag_info record for tok: position plus a one-line
// snippet from the source window.
func (c *Compiler) at(tok token.Token) diag.Info {
	info := diag.Info{
		File:   c.path,
		Line:   tok.Line,
		Column: tok.Column,
		Offset: tok.Offset,
	}
	if tok.Line >= 1 && tok.Line <= len(c.lines) {
		info.Snippet = strings.TrimSpace(c.lines[tok.Line-1])
	}
	return info
}

// localized prefixes name with `_` unless it already carries one: the
// canonical lowering adds the local marker at emit time.
func localized(name string) string {
	if strings.HasPrefix(name, "_") {
		return name
	}
	return "_" + name
}

// isLocalRef reports whether an identifier refers to a local: either it
// is spelled with the `_` prefix, or it was declared in the lexical
// environment.
func isLocalRef(name string, env *Locals) bool {
	return strings.HasPrefix(name, "_") || env.Contains(name)
}

func (c *Compiler) lowerStatements(b *setBuilder, stmts []ast.Statement, env *Locals) error {
	for i, s := range stmts {
		if i > 0 {
			b.emit(code.EndStatement(c.at(tokenOf(s))))
		}
		if err := c.lowerStatement(b, s, env); err != nil {
			return err
		}
	}
	return nil
}

// tokenOf recovers the leading token of a statement for diagnostics.
func tokenOf(s ast.Statement) token.Token {
	switch s := s.(type) {
	case *ast.ExpressionStatement:
		return s.Token
	case *ast.DeclarationStatement:
		return s.Token
	case *ast.ForwardDeclarationStatement:
		return s.Token
	case *ast.AssignmentStatement:
		return s.Token
	case *ast.IfStatement:
		return s.Token
	case *ast.WhileStatement:
		return s.Token
	case *ast.DoWhileStatement:
		return s.Token
	case *ast.ForStatement:
		return s.Token
	case *ast.ForeachStatement:
		return s.Token
	case *ast.SwitchStatement:
		return s.Token
	case *ast.TryCatchStatement:
		return s.Token
	case *ast.ThrowStatement:
		return s.Token
	case *ast.ReturnStatement:
		return s.Token
	case *ast.FunctionDeclaration:
		return s.Token
	case *ast.BlockStatement:
		return s.Token
	default:
		return token.Token{}
	}
}

//nolint:gocyclo
func (c *Compiler) lowerStatement(b *setBuilder, s ast.Statement, env *Locals) error {
	switch s := s.(type) {
	case *ast.ExpressionStatement:
		return c.lowerExpression(b, s.Expression, env)

	case *ast.DeclarationStatement:
		at := c.at(s.Token)
		name := s.Name.Value
		if s.Value != nil {
			if err := c.lowerExpression(b, s.Value, env); err != nil {
				return err
			}
			b.emit(code.AssignToLocal(localized(name), at))
		} else {
			b.emit(code.Push(value.Str(localized(name)), at))
			b.emit(code.CallUnary("private", at))
		}
		env.Declare(name)
		return nil

	case *ast.ForwardDeclarationStatement:
		at := c.at(s.Token)
		b.emit(code.Push(value.Nothing, at))
		b.emit(code.AssignTo(s.Name.Value, at))
		return nil

	case *ast.AssignmentStatement:
		return c.lowerAssignment(b, s, env)

	case *ast.IfStatement:
		at := c.at(s.Token)
		if err := c.lowerExpression(b, s.Condition, env); err != nil {
			return err
		}
		b.emit(code.CallUnary("if", at))
		cons, err := c.lowerBlockSet(s.Consequence, env.Clone(), nil)
		if err != nil {
			return err
		}
		b.emit(code.Push(value.Code(cons), at))
		if s.Alternative != nil {
			alt, err := c.lowerBlockSet(s.Alternative, env.Clone(), nil)
			if err != nil {
				return err
			}
			b.emit(code.Push(value.Code(alt), at))
			b.emit(code.CallBinary("else", c.precedenceOf("else"), at))
		}
		b.emit(code.CallBinary("then", c.precedenceOf("then"), at))
		return nil

	case *ast.WhileStatement:
		at := c.at(s.Token)
		cond, err := c.lowerBlockSet(s.Condition, env.Clone(), nil)
		if err != nil {
			return err
		}
		body, err := c.lowerBlockSet(s.Body, env.Clone(), nil)
		if err != nil {
			return err
		}
		b.emit(code.Push(value.Code(cond), at))
		b.emit(code.CallUnary("while", at))
		b.emit(code.Push(value.Code(body), at))
		b.emit(code.CallBinary("do", c.precedenceOf("do"), at))
		return nil

	case *ast.DoWhileStatement:
		return c.lowerDoWhile(b, s, env)

	case *ast.ForStatement:
		return c.lowerFor(b, s, env)

	case *ast.ForeachStatement:
		return c.lowerForeach(b, s, env)

	case *ast.SwitchStatement:
		return c.lowerSwitch(b, s, env)

	case *ast.TryCatchStatement:
		at := c.at(s.Token)
		body, err := c.lowerBlockSet(s.Body, env.Clone(), nil)
		if err != nil {
			return err
		}
		handler, err := c.lowerBlockSet(s.Handler, env.Clone(), nil)
		if err != nil {
			return err
		}
		b.emit(code.Push(value.Code(body), at))
		b.emit(code.Push(value.Code(handler), at))
		b.emit(code.CallBinary("catch", c.precedenceOf("catch"), at))
		return nil

	case *ast.ThrowStatement:
		at := c.at(s.Token)
		if err := c.lowerExpression(b, s.Value, env); err != nil {
			return err
		}
		b.emit(code.CallUnary("throw", at))
		return nil

	case *ast.ReturnStatement:
		at := c.at(s.Token)
		b.emit(code.Push(value.Str(FunctionScopeName), at))
		if s.Value != nil {
			if err := c.lowerExpression(b, s.Value, env); err != nil {
				return err
			}
			b.emit(code.CallBinary("breakout", c.precedenceOf("breakout"), at))
		} else {
			b.emit(code.CallUnary("breakout", at))
		}
		return nil

	case *ast.FunctionDeclaration:
		at := c.at(s.Token)
		set, err := c.lowerFunctionBody(s.Body, env.Clone(), s.Parameters)
		if err != nil {
			return err
		}
		b.emit(code.Push(value.Code(set), at))
		if isLocalRef(s.Name.Value, env) {
			b.emit(code.AssignTo(localized(s.Name.Value), at))
		} else {
			b.emit(code.AssignTo(s.Name.Value, at))
		}
		return nil

	case *ast.BlockStatement:
		// A bare block in statement position runs as its own frame so the
		// locals it declares vanish when it pops.
		at := c.at(s.Token)
		set, err := c.lowerBlockSet(s, env.Clone(), nil)
		if err != nil {
			return err
		}
		b.emit(code.Push(value.Code(set), at))
		b.emit(code.CallUnary("call", at))
		return nil

	default:
		return fmt.Errorf("compiler: cannot lower statement %T", s)
	}
}

func (c *Compiler) lowerAssignment(b *setBuilder, s *ast.AssignmentStatement, env *Locals) error {
	at := c.at(s.Token)
	switch target := s.Target.(type) {
	case *ast.Identifier:
		if err := c.lowerExpression(b, s.Value, env); err != nil {
			return err
		}
		if isLocalRef(target.Value, env) {
			b.emit(code.AssignTo(localized(target.Value), at))
		} else {
			b.emit(code.AssignTo(target.Value, at))
		}
		return nil

	case *ast.IndexExpression:
		if err := c.lowerExpression(b, target.Left, env); err != nil {
			return err
		}
		if err := c.lowerExpression(b, target.Index, env); err != nil {
			return err
		}
		if err := c.lowerExpression(b, s.Value, env); err != nil {
			return err
		}
		b.emit(code.MakeArray(2, at))
		b.emit(code.CallBinary("set", c.precedenceOf("set"), at))
		return nil

	default:
		return fmt.Errorf("line %d: invalid assignment target %T", s.Token.Line, s.Target)
	}
}

func (c *Compiler) lowerDoWhile(b *setBuilder, s *ast.DoWhileStatement, env *Locals) error {
	at := c.at(s.Token)
	body, err := c.lowerBlockSet(s.Body, env.Clone(), nil)
	if err != nil {
		return err
	}
	cond, err := c.lowerExpressionSet(s.Condition, env.Clone())
	if err != nil {
		return err
	}

	// Run the body once, then hand the same body to an ordinary
	// while-frame: `do {b} while (c)` is `{b} call; {c} while {b} do`.
	b.emit(code.Push(value.Code(body), at))
	b.emit(code.CallUnary("call", at))
	b.emit(code.EndStatement(at))
	b.emit(code.Push(value.Code(cond), at))
	b.emit(code.CallUnary("while", at))
	b.emit(code.Push(value.Code(body), at))
	b.emit(code.CallBinary("do", c.precedenceOf("do"), at))
	return nil
}

func (c *Compiler) lowerFor(b *setBuilder, s *ast.ForStatement, env *Locals) error {
	at := c.at(s.Token)
	b.emit(code.Push(value.Str(localized(s.Index.Value)), at))
	b.emit(code.CallUnary("for", at))
	if err := c.lowerExpression(b, s.From, env); err != nil {
		return err
	}
	b.emit(code.CallBinary("from", c.precedenceOf("from"), at))
	if err := c.lowerExpression(b, s.To, env); err != nil {
		return err
	}
	b.emit(code.CallBinary("to", c.precedenceOf("to"), at))
	if s.Step != nil {
		if err := c.lowerExpression(b, s.Step, env); err != nil {
			return err
		}
		b.emit(code.CallBinary("step", c.precedenceOf("step"), at))
	}

	bodyEnv := env.Clone()
	bodyEnv.Declare(s.Index.Value)
	body, err := c.lowerBlockSet(s.Body, bodyEnv, nil)
	if err != nil {
		return err
	}
	b.emit(code.Push(value.Code(body), at))
	b.emit(code.CallBinary("do", c.precedenceOf("do"), at))
	return nil
}

func (c *Compiler) lowerForeach(b *setBuilder, s *ast.ForeachStatement, env *Locals) error {
	at := c.at(s.Token)
	bodyEnv := env.Clone()
	bodyEnv.Declare(s.Element.Value)

	// The foreach-frame binds _x per iteration; a prologue renames it to
	// the element variable the script chose.
	var prologue prologueFn
	if localized(s.Element.Value) != "_x" {
		prologue = func(inner *setBuilder) {
			inner.emit(code.GetVariable("_x", at))
			inner.emit(code.AssignToLocal(localized(s.Element.Value), at))
			inner.emit(code.EndStatement(at))
		}
	}
	body, err := c.lowerBlockSet(s.Body, bodyEnv, prologue)
	if err != nil {
		return err
	}
	b.emit(code.Push(value.Code(body), at))
	if err := c.lowerExpression(b, s.Iterable, env); err != nil {
		return err
	}
	b.emit(code.CallBinary("foreach", c.precedenceOf("foreach"), at))
	return nil
}

func (c *Compiler) lowerSwitch(b *setBuilder, s *ast.SwitchStatement, env *Locals) error {
	at := c.at(s.Token)
	if err := c.lowerExpression(b, s.Subject, env); err != nil {
		return err
	}
	b.emit(code.CallUnary("switch", at))

	// The switch body is its own instruction set registering the arms;
	// the switch-frame runs the matched arm after the body exhausts.
	inner := &setBuilder{source: switchBodySource(s)}
	for i, arm := range s.Cases {
		armAt := c.at(arm.Token)
		if i > 0 {
			inner.emit(code.EndStatement(armAt))
		}
		if err := c.lowerExpression(inner, arm.Match, env); err != nil {
			return err
		}
		inner.emit(code.CallUnary("case", armAt))
		armBody, err := c.lowerBlockSet(arm.Body, env.Clone(), nil)
		if err != nil {
			return err
		}
		inner.emit(code.Push(value.Code(armBody), armAt))
		inner.emit(code.CallBinary(":", c.precedenceOf(":"), armAt))
	}
	if s.Default != nil {
		if len(s.Cases) > 0 {
			inner.emit(code.EndStatement(at))
		}
		def, err := c.lowerBlockSet(s.Default, env.Clone(), nil)
		if err != nil {
			return err
		}
		inner.emit(code.Push(value.Code(def), at))
		inner.emit(code.CallUnary("default", at))
	}

	b.emit(code.Push(value.Code(inner.set()), at))
	b.emit(code.CallBinary("do", c.precedenceOf("do"), at))
	return nil
}

func switchBodySource(s *ast.SwitchStatement) string {
	var sb strings.Builder
	for _, arm := range s.Cases {
		sb.WriteString(arm.String())
	}
	if s.Default != nil {
		sb.WriteString("default: {" + s.Default.String() + "}")
	}
	return sb.String()
}

//nolint:gocyclo
func (c *Compiler) lowerExpression(b *setBuilder, e ast.Expression, env *Locals) error {
	switch e := e.(type) {
	case *ast.Identifier:
		at := c.at(e.Token)
		switch {
		case isLocalRef(e.Value, env):
			b.emit(code.GetVariable(localized(e.Value), at))
		case c.ops.Exists(e.Value, 0):
			b.emit(code.CallNular(strings.ToLower(e.Value), at))
		default:
			b.emit(code.GetVariable(e.Value, at))
		}
		return nil

	case *ast.NumberLiteral:
		b.emit(code.Push(value.Scalar(e.Value), c.at(e.Token)))
		return nil

	case *ast.StringLiteral:
		b.emit(code.Push(value.Str(e.Value), c.at(e.Token)))
		return nil

	case *ast.BoolLiteral:
		b.emit(code.Push(value.Bool(e.Value), c.at(e.Token)))
		return nil

	case *ast.NilLiteral:
		b.emit(code.Push(value.Nothing, c.at(e.Token)))
		return nil

	case *ast.ArrayLiteral:
		for _, el := range e.Elements {
			if err := c.lowerExpression(b, el, env); err != nil {
				return err
			}
		}
		b.emit(code.MakeArray(len(e.Elements), c.at(e.Token)))
		return nil

	case *ast.IndexExpression:
		if err := c.lowerExpression(b, e.Left, env); err != nil {
			return err
		}
		if err := c.lowerExpression(b, e.Index, env); err != nil {
			return err
		}
		b.emit(code.CallBinary("select", c.precedenceOf("select"), c.at(e.Token)))
		return nil

	case *ast.PrefixExpression:
		return c.lowerPrefix(b, e, env)

	case *ast.InfixExpression:
		if err := c.lowerExpression(b, e.Left, env); err != nil {
			return err
		}
		if err := c.lowerExpression(b, e.Right, env); err != nil {
			return err
		}
		op := strings.ToLower(e.Operator)
		b.emit(code.CallBinary(op, c.precedenceOf(op), c.at(e.Token)))
		return nil

	case *ast.NularExpression:
		b.emit(code.CallNular(strings.ToLower(e.Name), c.at(e.Token)))
		return nil

	case *ast.CodeLiteral:
		set, err := c.lowerFunctionBody(e.Body, env.Clone(), nil)
		if err != nil {
			return err
		}
		b.emit(code.Push(value.Code(set), c.at(e.Token)))
		return nil

	default:
		return fmt.Errorf("compiler: cannot lower expression %T", e)
	}
}

// lowerPrefix resolves a unary word against the registry at emit time.
// An unknown word with an expression operand falls back to the
// user-function call form `[arg] call word`.
func (c *Compiler) lowerPrefix(b *setBuilder, e *ast.PrefixExpression, env *Locals) error {
	at := c.at(e.Token)
	op := strings.ToLower(e.Operator)
	if c.ops.Exists(op, 1) {
		if err := c.lowerExpression(b, e.Right, env); err != nil {
			return err
		}
		b.emit(code.CallUnary(op, at))
		return nil
	}

	if err := c.lowerExpression(b, e.Right, env); err != nil {
		return err
	}
	b.emit(code.MakeArray(1, at))
	if isLocalRef(e.Operator, env) {
		b.emit(code.GetVariable(localized(e.Operator), at))
	} else {
		b.emit(code.GetVariable(e.Operator, at))
	}
	b.emit(code.CallBinary("call", c.precedenceOf("call"), at))
	return nil
}

type prologueFn func(*setBuilder)

// lowerBlockSet lowers a control-flow body (if/while/for/switch arm,
// try/catch handler) into its own instruction set. These bodies carry no
// auto-scope tag: a `return` inside them must unwind through to the
// enclosing function frame.
func (c *Compiler) lowerBlockSet(block *ast.BlockStatement, env *Locals, prologue prologueFn) (*code.Set, error) {
	b := &setBuilder{source: block.String()}
	if prologue != nil {
		prologue(b)
	}
	if err := c.lowerStatements(b, block.Statements, env); err != nil {
		return nil, err
	}
	return b.set(), nil
}

// lowerFunctionBody lowers a function literal or declaration body:
// auto-scope prologue, optional parameter binding, then the statements.
func (c *Compiler) lowerFunctionBody(block *ast.BlockStatement, env *Locals, params []*ast.Identifier) (*code.Set, error) {
	b := &setBuilder{source: block.String()}
	at := c.at(block.Token)

	b.emit(code.Push(value.Str(FunctionScopeName), at))
	b.emit(code.CallUnary("scopename", at))
	b.emit(code.EndStatement(at))

	if len(params) > 0 {
		for _, p := range params {
			b.emit(code.Push(value.Str(localized(p.Value)), at))
			env.Declare(p.Value)
		}
		b.emit(code.MakeArray(len(params), at))
		b.emit(code.CallUnary("params", at))
		b.emit(code.EndStatement(at))
	}

	if err := c.lowerStatements(b, block.Statements, env); err != nil {
		return nil, err
	}
	return b.set(), nil
}

// lowerExpressionSet wraps a single expression in its own instruction
// set, used where a construct needs condition code (do-while).
func (c *Compiler) lowerExpressionSet(e ast.Expression, env *Locals) (*code.Set, error) {
	b := &setBuilder{source: e.String()}
	if err := c.lowerExpression(b, e, env); err != nil {
		return nil, err
	}
	return b.set(), nil
}

func (c *Compiler) precedenceOf(op string) int {
	if p, ok := c.ops.BinaryPrecedence(op); ok {
		return p
	}
	return defaultCommandPrecedence
}
