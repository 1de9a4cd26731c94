// Package parser implements the syntactic analyzer for the SQC
// mission-scripting dialect.
//
// The parser takes a stream of tokens from package lexer and constructs
// an AST (package ast) that package compiler lowers to instructions.
// It is a Pratt parser (prefix/infix parse function tables keyed by
// token type, a precedence table driving parseExpression's climbing
// loop, curToken/peekToken lookahead, an accumulated error list) with
// a "generic word command" extension: a bare identifier can act as a
// unary prefix command (`call someCode`) or a binary infix command
// (`_a select _b`) at COMMAND precedence.
//
// Whether an identifier in primary position is a unary command or a
// plain variable reference is decided against the operator registry
// ([Operators]): a registered unary name followed by an operand parses
// as a prefix command, anything else stays a variable so that infix
// positions (`arr select 0`, `x[0]`, `a - b`) parse through the normal
// climbing loop. An unregistered word followed by a literal,
// parenthesized or brace operand still parses as a prefix command to
// support the late-bound user-function call form, which package
// compiler lowers to `[arg] call word`.
package parser

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/sqc-lang/sqcvm/ast"
	"github.com/sqc-lang/sqcvm/lexer"
	"github.com/sqc-lang/sqcvm/token"
)

const (
	_ int = iota

	// LOWEST is the precedence floor: top-level expression parsing
	// starts here.
	LOWEST

	OR          // ||
	AND         // &&
	EQUALS      // == != === !==
	LESSGREATER // < > <= >=
	COMMAND     // a word used as a binary command: `a select b`
	SUM         // + -
	PRODUCT     // * / %
	PREFIX      // -x !x, or a word used as a unary command: `call x`
	INDEX       // arr[0]
)

var precedences = map[token.Type]int{
	token.OR:          OR,
	token.AND:         AND,
	token.EQ:          EQUALS,
	token.NOT_EQ:      EQUALS,
	token.EQ_EXACT:    EQUALS,
	token.NOT_EQ_EXCL:  EQUALS,
	token.LT:          LESSGREATER,
	token.GT:          LESSGREATER,
	token.LE:          LESSGREATER,
	token.GE:          LESSGREATER,
	token.PLUS:        SUM,
	token.MINUS:       SUM,
	token.ASTERISK:    PRODUCT,
	token.SLASH:       PRODUCT,
	token.PERCENT:     PRODUCT,
	token.LBRACKET:    INDEX,
	token.IDENT:       COMMAND,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

// Operators is the parse-time view of the operator registry: the parser
// needs only arity-existence checks to tell a unary word command apart
// from a variable reference in an infix position. It is satisfied by
// *registry.Registry of any machine type.
type Operators interface {
	Exists(name string, arity int) bool
}

// Parser turns a token stream into an *ast.Program.
type Parser struct {
	l   *lexer.Lexer
	ops Operators

	curToken  token.Token
	peekToken token.Token

	errors []string

	prefixParseFns map[token.Type]prefixParseFn
	infixParseFns  map[token.Type]infixParseFn
}

// New creates a Parser reading from l with no operator table: only the
// late-bound word-command form is recognized in prefix position.
func New(l *lexer.Lexer) *Parser {
	return NewWithOperators(l, nil)
}

// NewWithOperators creates a Parser reading from l that resolves bare
// identifiers against ops, and primes its two-token lookahead.
func NewWithOperators(l *lexer.Lexer, ops Operators) *Parser {
	p := &Parser{l: l, ops: ops, errors: []string{}}

	p.prefixParseFns = make(map[token.Type]prefixParseFn)
	p.registerPrefix(token.IDENT, p.parseIdentifierOrUnaryCommand)
	p.registerPrefix(token.NUMBER, p.parseNumberLiteral)
	p.registerPrefix(token.STRING, p.parseStringLiteral)
	p.registerPrefix(token.TRUE, p.parseBoolLiteral)
	p.registerPrefix(token.FALSE, p.parseBoolLiteral)
	p.registerPrefix(token.NIL, p.parseNilLiteral)
	p.registerPrefix(token.BANG, p.parsePrefixExpression)
	p.registerPrefix(token.MINUS, p.parsePrefixExpression)
	p.registerPrefix(token.LPAREN, p.parseGroupedExpression)
	p.registerPrefix(token.LBRACKET, p.parseArrayLiteral)
	p.registerPrefix(token.LBRACE, p.parseCodeLiteral)

	p.infixParseFns = make(map[token.Type]infixParseFn)
	for _, t := range []token.Type{
		token.PLUS, token.MINUS, token.ASTERISK, token.SLASH, token.PERCENT,
		token.LT, token.GT, token.LE, token.GE,
		token.EQ, token.NOT_EQ, token.EQ_EXACT, token.NOT_EQ_EXCL,
		token.AND, token.OR,
	} {
		p.registerInfix(t, p.parseInfixExpression)
	}
	p.registerInfix(token.LBRACKET, p.parseIndexExpression)
	p.registerInfix(token.IDENT, p.parseBinaryCommand)

	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) registerPrefix(t token.Type, fn prefixParseFn) { p.prefixParseFns[t] = fn }
func (p *Parser) registerInfix(t token.Type, fn infixParseFn)   { p.infixParseFns[t] = fn }

// Errors returns every syntax error accumulated while parsing.
func (p *Parser) Errors() []string { return p.errors }

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t token.Type) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t token.Type) bool { return p.peekToken.Type == t }

func (p *Parser) expectPeek(t token.Type) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) peekError(t token.Type) {
	p.errors = append(p.errors, fmt.Sprintf(
		"line %d: expected next token to be %s, got %s (%q) instead",
		p.peekToken.Line, t, p.peekToken.Type, p.peekToken.Literal))
}

func (p *Parser) noPrefixParseFnError(t token.Token) {
	p.errors = append(p.errors, fmt.Sprintf("line %d: no prefix parse function for %q found", t.Line, t.Type))
}

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peekToken.Type]; ok {
		return pr
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if pr, ok := precedences[p.curToken.Type]; ok {
		return pr
	}
	return LOWEST
}

// ParseProgram parses a whole script into a Program of top-level
// statements.
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{Statements: []ast.Statement{}}

	for !p.curTokenIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
		p.nextToken()
	}
	return program
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.PRIVATE:
		return p.parseDeclarationStatement()
	case token.FUNCTION:
		return p.parseFunctionStatement()
	case token.IF:
		return p.parseIfStatement()
	case token.WHILE:
		return p.parseWhileStatement()
	case token.DO:
		return p.parseDoWhileStatement()
	case token.FOR:
		return p.parseForStatement()
	case token.FOREACH:
		return p.parseForeachStatement()
	case token.SWITCH:
		return p.parseSwitchStatement()
	case token.TRY:
		return p.parseTryCatchStatement()
	case token.THROW:
		return p.parseThrowStatement()
	case token.RETURN:
		return p.parseReturnStatement()
	case token.LBRACE:
		return p.parseBlockStatement()
	case token.SEMICOLON:
		// A stray `;` (e.g. after a closing `}`) is an empty statement.
		return nil
	default:
		return p.parseAssignmentOrExpressionStatement()
	}
}

func (p *Parser) parseDeclarationStatement() ast.Statement {
	stmt := &ast.DeclarationStatement{Token: p.curToken}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}

	if p.peekTokenIs(token.ASSIGN) {
		p.nextToken()
		p.nextToken()
		stmt.Value = p.parseExpression(LOWEST)
	}
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
	return stmt
}

// parseFunctionStatement parses either `function name;` (a forward
// declaration) or `function name(params) { body }` (a full definition).
func (p *Parser) parseFunctionStatement() ast.Statement {
	tok := p.curToken
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	name := &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}

	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
		return &ast.ForwardDeclarationStatement{Token: tok, Name: name}
	}

	fd := &ast.FunctionDeclaration{Token: tok, Name: name}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	fd.Parameters = p.parseParameterList()
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	fd.Body = p.parseBlockStatement()
	return fd
}

func (p *Parser) parseParameterList() []*ast.Identifier {
	var params []*ast.Identifier

	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return params
	}
	p.nextToken()
	params = append(params, &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal})

	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		params = append(params, &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal})
	}

	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return params
}

func (p *Parser) parseIfStatement() ast.Statement {
	stmt := &ast.IfStatement{Token: p.curToken}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	if !p.expectPeek(token.THEN) {
		return nil
	}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	stmt.Consequence = p.parseBlockStatement()

	if p.peekTokenIs(token.ELSE) {
		p.nextToken()
		if !p.expectPeek(token.LBRACE) {
			return nil
		}
		stmt.Alternative = p.parseBlockStatement()
	}
	return stmt
}

func (p *Parser) parseWhileStatement() ast.Statement {
	stmt := &ast.WhileStatement{Token: p.curToken}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	stmt.Condition = p.parseBlockStatement()
	if !p.expectPeek(token.DO) {
		return nil
	}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	stmt.Body = p.parseBlockStatement()
	return stmt
}

func (p *Parser) parseDoWhileStatement() ast.Statement {
	stmt := &ast.DoWhileStatement{Token: p.curToken}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	stmt.Body = p.parseBlockStatement()
	if !p.expectPeek(token.WHILE) {
		return nil
	}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parseForStatement() ast.Statement {
	stmt := &ast.ForStatement{Token: p.curToken}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt.Index = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	if !p.expectPeek(token.FROM) {
		return nil
	}
	p.nextToken()
	stmt.From = p.parseExpression(LOWEST)
	if !p.expectPeek(token.TO) {
		return nil
	}
	p.nextToken()
	stmt.To = p.parseExpression(LOWEST)

	if p.peekTokenIs(token.STEP) {
		p.nextToken()
		p.nextToken()
		stmt.Step = p.parseExpression(LOWEST)
	}
	if !p.expectPeek(token.DO) {
		return nil
	}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	stmt.Body = p.parseBlockStatement()
	return stmt
}

func (p *Parser) parseForeachStatement() ast.Statement {
	stmt := &ast.ForeachStatement{Token: p.curToken}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt.Element = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	if !p.expectPeek(token.IN) {
		return nil
	}
	p.nextToken()
	stmt.Iterable = p.parseExpression(LOWEST)
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	if !p.expectPeek(token.DO) {
		return nil
	}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	stmt.Body = p.parseBlockStatement()
	return stmt
}

func (p *Parser) parseSwitchStatement() ast.Statement {
	stmt := &ast.SwitchStatement{Token: p.curToken}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Subject = p.parseExpression(LOWEST)
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	p.nextToken()

	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		switch p.curToken.Type {
		case token.CASE:
			clause := &ast.CaseClause{Token: p.curToken}
			p.nextToken()
			clause.Match = p.parseExpression(LOWEST)
			if !p.expectPeek(token.COLON) {
				return nil
			}
			if !p.expectPeek(token.LBRACE) {
				return nil
			}
			clause.Body = p.parseBlockStatement()
			stmt.Cases = append(stmt.Cases, clause)
		case token.DEFAULT:
			if !p.expectPeek(token.COLON) {
				return nil
			}
			if !p.expectPeek(token.LBRACE) {
				return nil
			}
			stmt.Default = p.parseBlockStatement()
		default:
			p.errors = append(p.errors, fmt.Sprintf(
				"line %d: expected case or default in switch body, got %s", p.curToken.Line, p.curToken.Type))
			return nil
		}
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parseTryCatchStatement() ast.Statement {
	stmt := &ast.TryCatchStatement{Token: p.curToken}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	stmt.Body = p.parseBlockStatement()
	if !p.expectPeek(token.CATCH) {
		return nil
	}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	stmt.Handler = p.parseBlockStatement()
	return stmt
}

func (p *Parser) parseThrowStatement() ast.Statement {
	stmt := &ast.ThrowStatement{Token: p.curToken}
	p.nextToken()
	stmt.Value = p.parseExpression(LOWEST)
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parseReturnStatement() ast.Statement {
	stmt := &ast.ReturnStatement{Token: p.curToken}
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
		return stmt
	}
	p.nextToken()
	stmt.Value = p.parseExpression(LOWEST)
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
	return stmt
}

// parseBlockStatement expects curToken to already be the opening '{' and
// leaves curToken on the matching '}'.
func (p *Parser) parseBlockStatement() *ast.BlockStatement {
	block := &ast.BlockStatement{Token: p.curToken}
	p.nextToken()

	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		p.nextToken()
	}
	return block
}

// parseAssignmentOrExpressionStatement parses a leading expression, then
// decides whether it is an assignment target (peek is '=') or a plain
// expression statement.
func (p *Parser) parseAssignmentOrExpressionStatement() ast.Statement {
	tok := p.curToken
	expr := p.parseExpression(LOWEST)

	if p.peekTokenIs(token.ASSIGN) {
		eqTok := p.peekToken
		p.nextToken()
		p.nextToken()
		value := p.parseExpression(LOWEST)
		if p.peekTokenIs(token.SEMICOLON) {
			p.nextToken()
		}
		return &ast.AssignmentStatement{Token: eqTok, Target: expr, Value: value}
	}

	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
	return &ast.ExpressionStatement{Token: tok, Expression: expr}
}

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError(p.curToken)
		return nil
	}
	left := prefix()

	for !p.peekTokenIs(token.SEMICOLON) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return left
		}
		p.nextToken()
		left = infix(left)
	}
	return left
}

// parseIdentifierOrUnaryCommand handles a bare identifier in prefix
// (primary-expression) position. An identifier registered as a unary
// operator and followed by an operand parses as a unary word command
// (`call someCode`, `parseNumber "3"`). An unregistered word followed
// by a literal, parenthesized or brace operand also parses as a unary
// command (the late-bound user-function call form). Everything else is
// a plain variable reference, which leaves infix and index positions
// (`arr select 0`, `x[0]`, `a - b`) to the climbing loop.
func (p *Parser) parseIdentifierOrUnaryCommand() ast.Expression {
	tok := p.curToken

	command := false
	switch {
	case p.ops != nil && p.ops.Exists(tok.Literal, 1):
		command = p.startsUnaryOperand(p.peekToken.Type)
	default:
		command = p.startsLateBoundArgument(p.peekToken.Type)
	}
	if command {
		p.nextToken()
		right := p.parseExpression(PREFIX)
		return &ast.PrefixExpression{Token: tok, Operator: tok.Literal, Right: right}
	}
	return &ast.Identifier{Token: tok, Value: tok.Literal}
}

// startsUnaryOperand reports whether t can open the operand of a
// registered unary word command.
func (p *Parser) startsUnaryOperand(t token.Type) bool {
	switch t {
	case token.IDENT, token.NUMBER, token.STRING, token.TRUE, token.FALSE, token.NIL,
		token.BANG, token.MINUS, token.LPAREN, token.LBRACKET, token.LBRACE:
		return true
	default:
		return false
	}
}

// startsLateBoundArgument reports whether t can open the argument of an
// unregistered word used as a call (`double 21`, `fn (x)`). Identifier,
// bracket and minus tokens are deliberately absent: after an
// unregistered word they mean an infix command, an index, or a
// subtraction, not an argument.
func (p *Parser) startsLateBoundArgument(t token.Type) bool {
	switch t {
	case token.NUMBER, token.STRING, token.TRUE, token.FALSE, token.NIL,
		token.BANG, token.LPAREN, token.LBRACE:
		return true
	default:
		return false
	}
}

func (p *Parser) parseNumberLiteral() ast.Expression {
	lit := &ast.NumberLiteral{Token: p.curToken}
	text := p.curToken.Literal
	var value float64
	var err error
	if len(text) > 2 && text[0] == '0' && (text[1] == 'x' || text[1] == 'X') {
		var n int64
		n, err = strconv.ParseInt(text, 0, 64)
		value = float64(n)
	} else {
		value, err = strconv.ParseFloat(text, 64)
	}
	if err != nil {
		// An out-of-range literal still lexed as a number; it becomes NaN
		// rather than failing the whole parse.
		if errors.Is(err, strconv.ErrRange) {
			lit.Value = math.NaN()
			return lit
		}
		p.errors = append(p.errors, fmt.Sprintf("line %d: could not parse %q as a number", p.curToken.Line, text))
		return nil
	}
	lit.Value = value
	return lit
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseBoolLiteral() ast.Expression {
	return &ast.BoolLiteral{Token: p.curToken, Value: p.curTokenIs(token.TRUE)}
}

func (p *Parser) parseNilLiteral() ast.Expression {
	return &ast.NilLiteral{Token: p.curToken}
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expr := &ast.PrefixExpression{Token: p.curToken, Operator: p.curToken.Literal}
	p.nextToken()
	expr.Right = p.parseExpression(PREFIX)
	return expr
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expr := &ast.InfixExpression{Token: p.curToken, Operator: p.curToken.Literal, Left: left}
	precedence := p.curPrecedence()
	p.nextToken()
	expr.Right = p.parseExpression(precedence)
	return expr
}

// parseBinaryCommand handles a bare identifier used as an infix word
// command (`_arr select 0`), at COMMAND precedence.
func (p *Parser) parseBinaryCommand(left ast.Expression) ast.Expression {
	expr := &ast.InfixExpression{Token: p.curToken, Operator: p.curToken.Literal, Left: left}
	p.nextToken()
	expr.Right = p.parseExpression(COMMAND)
	return expr
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()
	expr := p.parseExpression(LOWEST)
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return expr
}

func (p *Parser) parseArrayLiteral() ast.Expression {
	arr := &ast.ArrayLiteral{Token: p.curToken}
	arr.Elements = p.parseExpressionList(token.RBRACKET)
	return arr
}

func (p *Parser) parseExpressionList(end token.Type) []ast.Expression {
	var list []ast.Expression

	if p.peekTokenIs(end) {
		p.nextToken()
		return list
	}
	p.nextToken()
	list = append(list, p.parseExpression(LOWEST))

	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		list = append(list, p.parseExpression(LOWEST))
	}

	if !p.expectPeek(end) {
		return nil
	}
	return list
}

func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	expr := &ast.IndexExpression{Token: p.curToken, Left: left}
	p.nextToken()
	expr.Index = p.parseExpression(LOWEST)
	if !p.expectPeek(token.RBRACKET) {
		return nil
	}
	return expr
}

func (p *Parser) parseCodeLiteral() ast.Expression {
	lit := &ast.CodeLiteral{Token: p.curToken}
	lit.Body = p.parseBlockStatement()
	return lit
}
