// Package ast defines the SQC abstract syntax tree produced by package
// parser and consumed by package compiler's lowering pass.
//
// Every node carries the token.Token it started from, backing
// TokenLiteral/String support. The grammar covers declarations,
// array-index assignment, the control-flow statement family
// (if/while/do-while/for/foreach/switch/try-catch), throw/return,
// function declarations and function-literal ("code") values, and the
// generic unary/binary "word command" expression that stands in for
// SQF's identifier-disambiguated-by-position operator grammar.
package ast

import (
	"bytes"
	"strings"

	"github.com/sqc-lang/sqcvm/token"
)

// Node is any AST node.
type Node interface {
	TokenLiteral() string
	String() string
}

// Statement is a node that appears in a statement position.
type Statement interface {
	Node
	statementNode()
}

// Expression is a node that produces a value.
type Expression interface {
	Node
	expressionNode()
}

// Program is the root node: an ordered list of top-level statements.
type Program struct {
	Statements []Statement
}

func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}

func (p *Program) String() string {
	var b bytes.Buffer
	for _, s := range p.Statements {
		b.WriteString(s.String())
		b.WriteString(" ")
	}
	return b.String()
}

// Identifier is a variable reference, private (`_x`) or namespace-scoped.
type Identifier struct {
	Token token.Token
	Value string
}

func (i *Identifier) expressionNode()      {}
func (i *Identifier) TokenLiteral() string { return i.Token.Literal }
func (i *Identifier) String() string       { return i.Value }

// NumberLiteral is a scalar literal (decimal or hex).
type NumberLiteral struct {
	Token token.Token
	Value float64
}

func (n *NumberLiteral) expressionNode()      {}
func (n *NumberLiteral) TokenLiteral() string { return n.Token.Literal }
func (n *NumberLiteral) String() string       { return n.Token.Literal }

// StringLiteral is a quoted string literal with escapes already resolved
// by the lexer.
type StringLiteral struct {
	Token token.Token
	Value string
}

func (s *StringLiteral) expressionNode()      {}
func (s *StringLiteral) TokenLiteral() string { return s.Token.Literal }
func (s *StringLiteral) String() string       { return s.Token.Literal }

// BoolLiteral is `true` or `false`.
type BoolLiteral struct {
	Token token.Token
	Value bool
}

func (b *BoolLiteral) expressionNode()      {}
func (b *BoolLiteral) TokenLiteral() string { return b.Token.Literal }
func (b *BoolLiteral) String() string       { return b.Token.Literal }

// NilLiteral is the `nil` literal, lowering to NOTHING.
type NilLiteral struct {
	Token token.Token
}

func (n *NilLiteral) expressionNode()      {}
func (n *NilLiteral) TokenLiteral() string { return n.Token.Literal }
func (n *NilLiteral) String() string       { return "nil" }

// ArrayLiteral is a `[a, b, c]` array literal.
type ArrayLiteral struct {
	Token    token.Token // the '['
	Elements []Expression
}

func (a *ArrayLiteral) expressionNode()      {}
func (a *ArrayLiteral) TokenLiteral() string { return a.Token.Literal }
func (a *ArrayLiteral) String() string {
	parts := make([]string, len(a.Elements))
	for i, e := range a.Elements {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// IndexExpression is `array select index`'s surface form, `arr[idx]`.
type IndexExpression struct {
	Token token.Token // the '['
	Left  Expression
	Index Expression
}

func (ie *IndexExpression) expressionNode()      {}
func (ie *IndexExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *IndexExpression) String() string {
	return "(" + ie.Left.String() + "[" + ie.Index.String() + "])"
}

// PrefixExpression is a unary word- or symbol-command applied to one
// operand: `-x`, `!flag`, or a generic unary operator like `call code`.
type PrefixExpression struct {
	Token    token.Token
	Operator string
	Right    Expression
}

func (pe *PrefixExpression) expressionNode()      {}
func (pe *PrefixExpression) TokenLiteral() string { return pe.Token.Literal }
func (pe *PrefixExpression) String() string {
	return "(" + pe.Operator + " " + pe.Right.String() + ")"
}

// InfixExpression is a binary word- or symbol-command applied to two
// operands: `a + b`, `a select b`, or any generic-command binary call.
type InfixExpression struct {
	Token    token.Token
	Left     Expression
	Operator string
	Right    Expression
}

func (ie *InfixExpression) expressionNode()      {}
func (ie *InfixExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *InfixExpression) String() string {
	return "(" + ie.Left.String() + " " + ie.Operator + " " + ie.Right.String() + ")"
}

// NularExpression is a bare word with no operands, e.g. `diag_log` used
// as a call rather than a variable reference. The parser never builds
// this node: a bare word is always parsed as a plain Identifier, and the
// compiler decides from the registry whether it is a nular call. The
// compiler lowers a NularExpression to CALL_NULAR when one is built
// directly into an AST.
type NularExpression struct {
	Token token.Token
	Name  string
}

func (n *NularExpression) expressionNode()      {}
func (n *NularExpression) TokenLiteral() string { return n.Token.Literal }
func (n *NularExpression) String() string       { return n.Name + "()" }

// CodeLiteral is a `{ ... }` function literal used as a first-class
// value: an anonymous block of statements that
// lowers to its own nested instruction set instead of executing inline.
type CodeLiteral struct {
	Token token.Token // the '{'
	Body  *BlockStatement
}

func (cl *CodeLiteral) expressionNode()      {}
func (cl *CodeLiteral) TokenLiteral() string { return cl.Token.Literal }
func (cl *CodeLiteral) String() string       { return "{" + cl.Body.String() + "}" }

// BlockStatement is a `{ ... }` sequence of statements in statement
// position (a function body, an if/while/for/foreach body, a try or
// catch body).
type BlockStatement struct {
	Token      token.Token // the '{'
	Statements []Statement
}

func (bs *BlockStatement) statementNode()       {}
func (bs *BlockStatement) TokenLiteral() string { return bs.Token.Literal }
func (bs *BlockStatement) String() string {
	var b bytes.Buffer
	for _, s := range bs.Statements {
		b.WriteString(s.String())
	}
	return b.String()
}

// ExpressionStatement is a bare expression used as a statement, the
// ordinary way SQC scripts invoke commands for effect.
type ExpressionStatement struct {
	Token      token.Token
	Expression Expression
}

func (es *ExpressionStatement) statementNode()       {}
func (es *ExpressionStatement) TokenLiteral() string { return es.Token.Literal }
func (es *ExpressionStatement) String() string {
	if es.Expression != nil {
		return es.Expression.String()
	}
	return ""
}

// DeclarationStatement is `private _x = expr;` or a bare `private _x;`,
// lowering to ASSIGN_TO_LOCAL.
type DeclarationStatement struct {
	Token token.Token // the 'private' keyword
	Name  *Identifier
	Value Expression // nil for a bare declaration with no initializer
}

func (ds *DeclarationStatement) statementNode()       {}
func (ds *DeclarationStatement) TokenLiteral() string { return ds.Token.Literal }
func (ds *DeclarationStatement) String() string {
	if ds.Value != nil {
		return "private " + ds.Name.String() + " = " + ds.Value.String() + ";"
	}
	return "private " + ds.Name.String() + ";"
}

// ForwardDeclarationStatement predeclares a function name as NOTHING in
// the current namespace, so later assignment-as-definition can be
// referenced by earlier code in the same scope.
type ForwardDeclarationStatement struct {
	Token token.Token
	Name  *Identifier
}

func (fd *ForwardDeclarationStatement) statementNode()       {}
func (fd *ForwardDeclarationStatement) TokenLiteral() string { return fd.Token.Literal }
func (fd *ForwardDeclarationStatement) String() string {
	return "function " + fd.Name.String() + ";"
}

// AssignmentStatement is `target = expr;`, where target is either a
// plain Identifier (lowers to ASSIGN_TO, which the VM localizes for
// `_`-prefixed names) or an IndexExpression (lowers to a `set` call that
// writes the element into the indexed array in place).
type AssignmentStatement struct {
	Token  token.Token // the '='
	Target Expression
	Value  Expression
}

func (as *AssignmentStatement) statementNode()       {}
func (as *AssignmentStatement) TokenLiteral() string { return as.Token.Literal }
func (as *AssignmentStatement) String() string {
	return as.Target.String() + " = " + as.Value.String() + ";"
}

// IfStatement is `if (cond) then { ... }` with an optional `else { ... }`.
type IfStatement struct {
	Token       token.Token // the 'if'
	Condition   Expression
	Consequence *BlockStatement
	Alternative *BlockStatement // nil if no else clause
}

func (is *IfStatement) statementNode()       {}
func (is *IfStatement) TokenLiteral() string { return is.Token.Literal }
func (is *IfStatement) String() string {
	var b bytes.Buffer
	b.WriteString("if (")
	b.WriteString(is.Condition.String())
	b.WriteString(") then {")
	b.WriteString(is.Consequence.String())
	b.WriteString("}")
	if is.Alternative != nil {
		b.WriteString(" else {")
		b.WriteString(is.Alternative.String())
		b.WriteString("}")
	}
	return b.String()
}

// WhileStatement is `while { cond } do { body }`.
type WhileStatement struct {
	Token     token.Token
	Condition *BlockStatement
	Body      *BlockStatement
}

func (ws *WhileStatement) statementNode()       {}
func (ws *WhileStatement) TokenLiteral() string { return ws.Token.Literal }
func (ws *WhileStatement) String() string {
	return "while {" + ws.Condition.String() + "} do {" + ws.Body.String() + "}"
}

// DoWhileStatement is `do { body } while (cond);`: its condition runs
// only after the body has executed once.
type DoWhileStatement struct {
	Token     token.Token
	Body      *BlockStatement
	Condition Expression
}

func (dw *DoWhileStatement) statementNode()       {}
func (dw *DoWhileStatement) TokenLiteral() string { return dw.Token.Literal }
func (dw *DoWhileStatement) String() string {
	return "do {" + dw.Body.String() + "} while (" + dw.Condition.String() + ");"
}

// ForStatement is `for _i from lo to hi [step s] do { body }`.
type ForStatement struct {
	Token token.Token
	Index *Identifier
	From  Expression
	To    Expression
	Step  Expression // nil when omitted (defaults to 1)
	Body  *BlockStatement
}

func (fs *ForStatement) statementNode()       {}
func (fs *ForStatement) TokenLiteral() string { return fs.Token.Literal }
func (fs *ForStatement) String() string {
	var b bytes.Buffer
	b.WriteString("for ")
	b.WriteString(fs.Index.String())
	b.WriteString(" from ")
	b.WriteString(fs.From.String())
	b.WriteString(" to ")
	b.WriteString(fs.To.String())
	if fs.Step != nil {
		b.WriteString(" step ")
		b.WriteString(fs.Step.String())
	}
	b.WriteString(" do {")
	b.WriteString(fs.Body.String())
	b.WriteString("}")
	return b.String()
}

// ForeachStatement is `foreach (elementVar in array) do { body }`:
// sugar over a for-style frame iterating an array value.
type ForeachStatement struct {
	Token    token.Token
	Element  *Identifier
	Iterable Expression
	Body     *BlockStatement
}

func (fe *ForeachStatement) statementNode()       {}
func (fe *ForeachStatement) TokenLiteral() string { return fe.Token.Literal }
func (fe *ForeachStatement) String() string {
	return "foreach (" + fe.Element.String() + " in " + fe.Iterable.String() + ") do {" + fe.Body.String() + "}"
}

// SwitchStatement is `switch (subject) { case v: { ...} default: {...} }`.
type SwitchStatement struct {
	Token   token.Token
	Subject Expression
	Cases   []*CaseClause
	Default *BlockStatement // nil if no default clause
}

func (ss *SwitchStatement) statementNode()       {}
func (ss *SwitchStatement) TokenLiteral() string { return ss.Token.Literal }
func (ss *SwitchStatement) String() string {
	var b bytes.Buffer
	b.WriteString("switch (")
	b.WriteString(ss.Subject.String())
	b.WriteString(") {")
	for _, c := range ss.Cases {
		b.WriteString(c.String())
	}
	if ss.Default != nil {
		b.WriteString("default: {")
		b.WriteString(ss.Default.String())
		b.WriteString("}")
	}
	b.WriteString("}")
	return b.String()
}

// CaseClause is one `case value: { body }` arm of a SwitchStatement.
type CaseClause struct {
	Token token.Token
	Match Expression
	Body  *BlockStatement
}

func (cc *CaseClause) String() string {
	return "case " + cc.Match.String() + ": {" + cc.Body.String() + "}"
}

// TryCatchStatement is `try { body } catch { handler }`.
type TryCatchStatement struct {
	Token   token.Token
	Body    *BlockStatement
	Handler *BlockStatement
}

func (tc *TryCatchStatement) statementNode()       {}
func (tc *TryCatchStatement) TokenLiteral() string { return tc.Token.Literal }
func (tc *TryCatchStatement) String() string {
	return "try {" + tc.Body.String() + "} catch {" + tc.Handler.String() + "}"
}

// ThrowStatement is `throw expr;`.
type ThrowStatement struct {
	Token token.Token
	Value Expression
}

func (ts *ThrowStatement) statementNode()       {}
func (ts *ThrowStatement) TokenLiteral() string { return ts.Token.Literal }
func (ts *ThrowStatement) String() string       { return "throw " + ts.Value.String() + ";" }

// ReturnStatement is `return [expr];`, lowering to a breakOut of the
// enclosing function frame.
type ReturnStatement struct {
	Token token.Token
	Value Expression // nil for a bare `return;`
}

func (rs *ReturnStatement) statementNode()       {}
func (rs *ReturnStatement) TokenLiteral() string { return rs.Token.Literal }
func (rs *ReturnStatement) String() string {
	if rs.Value != nil {
		return "return " + rs.Value.String() + ";"
	}
	return "return;"
}

// FunctionDeclaration is `function name(params) { body }`: sugar that
// lowers to an assignment of a CodeLiteral (with an implicit `params`
// prologue) to name.
type FunctionDeclaration struct {
	Token      token.Token
	Name       *Identifier
	Parameters []*Identifier
	Body       *BlockStatement
}

func (fd *FunctionDeclaration) statementNode()       {}
func (fd *FunctionDeclaration) TokenLiteral() string { return fd.Token.Literal }
func (fd *FunctionDeclaration) String() string {
	parts := make([]string, len(fd.Parameters))
	for i, p := range fd.Parameters {
		parts[i] = p.String()
	}
	return "function " + fd.Name.String() + "(" + strings.Join(parts, ", ") + ") {" + fd.Body.String() + "}"
}
