package klox

import (
	"fmt"
	"strconv"
)

// FunctionType distinguishes the four shapes a compiling function can
// take, each with slightly different codegen rules around `this` and
// `return`.
type FunctionType uint8

const (
	TypeFunction FunctionType = iota
	TypeInitializer
	TypeMethod
	TypeScript
)

const maxLocals = 256
const maxUpvalues = 256
const maxArgs = 255

type localVar struct {
	name       Token
	depth      int
	isCaptured bool
}

type upvalueRef struct {
	index   byte
	isLocal bool
}

// compilerState is one nested function's compile-time context, chained
// via enclosing to outer contexts the way nested recursive-descent
// scopes chain.
type compilerState struct {
	enclosing  *compilerState
	function   *ObjFunction
	fnType     FunctionType
	locals     []localVar
	upvalues   []upvalueRef
	scopeDepth int
}

// classCompilerState tracks whether the class currently being compiled
// has a superclass, so `super` usage can be validated.
type classCompilerState struct {
	enclosing     *classCompilerState
	hasSuperclass bool
}

// Precedence levels, ascending.
type precedence uint8

const (
	precNone       precedence = iota
	precAssignment            // =
	precOr                    // or
	precAnd                   // and
	precEquality              // == !=
	precComparison            // < > <= >=
	precTerm                  // + -
	precFactor                // * /
	precUnary                 // ! -
	precCall                  // . ()
	precPrimary
)

type parseFn func(p *compilerParser, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence precedence
}

// compilerParser drives the single-pass scan-parse-emit pipeline: it
// owns the lexer, the current/previous token pair, and the chain of
// compilerState/classCompilerState contexts. There is no intermediate
// AST — every parse function writes opcodes straight into the current
// function's chunk as it recognizes syntax.
type compilerParser struct {
	vm      *VM
	lexer   *Lexer
	current Token
	prev    Token

	hadError  bool
	panicMode bool

	cur      *compilerState
	class    *classCompilerState
	errs     []error
}

var rules [int(TokenEOF) + 1]parseRule

func init() {
	rules[TokenLeftParen] = parseRule{(*compilerParser).grouping, (*compilerParser).call, precCall}
	rules[TokenDot] = parseRule{nil, (*compilerParser).dot, precCall}
	rules[TokenMinus] = parseRule{(*compilerParser).unary, (*compilerParser).binary, precTerm}
	rules[TokenPlus] = parseRule{nil, (*compilerParser).binary, precTerm}
	rules[TokenSlash] = parseRule{nil, (*compilerParser).binary, precFactor}
	rules[TokenStar] = parseRule{nil, (*compilerParser).binary, precFactor}
	rules[TokenBang] = parseRule{(*compilerParser).unary, nil, precNone}
	rules[TokenBangEqual] = parseRule{nil, (*compilerParser).binary, precEquality}
	rules[TokenEqualEqual] = parseRule{nil, (*compilerParser).binary, precEquality}
	rules[TokenGreater] = parseRule{nil, (*compilerParser).binary, precComparison}
	rules[TokenGreaterEqual] = parseRule{nil, (*compilerParser).binary, precComparison}
	rules[TokenLess] = parseRule{nil, (*compilerParser).binary, precComparison}
	rules[TokenLessEqual] = parseRule{nil, (*compilerParser).binary, precComparison}
	rules[TokenIdentifier] = parseRule{(*compilerParser).variable, nil, precNone}
	rules[TokenString] = parseRule{(*compilerParser).stringLiteral, nil, precNone}
	rules[TokenNumber] = parseRule{(*compilerParser).number, nil, precNone}
	rules[TokenAnd] = parseRule{nil, (*compilerParser).and_, precAnd}
	rules[TokenOr] = parseRule{nil, (*compilerParser).or_, precOr}
	rules[TokenFalse] = parseRule{(*compilerParser).literal, nil, precNone}
	rules[TokenTrue] = parseRule{(*compilerParser).literal, nil, precNone}
	rules[TokenNil] = parseRule{(*compilerParser).literal, nil, precNone}
	rules[TokenThis] = parseRule{(*compilerParser).this_, nil, precNone}
	rules[TokenSuper] = parseRule{(*compilerParser).super_, nil, precNone}
}

func ruleFor(t TokenType) *parseRule { return &rules[t] }

// Compile runs the whole pipeline and returns the top-level script
// function, or a CompileError aggregating every reported error.
func Compile(vm *VM, source string) (*ObjFunction, error) {
	p := &compilerParser{vm: vm, lexer: NewLexer(source)}
	p.cur = &compilerState{fnType: TypeScript, function: p.vm.newFunction()}
	p.cur.locals = append(p.cur.locals, localVar{name: Token{Lexeme: ""}, depth: 0})
	vm.pushCompiler(p.cur)
	defer vm.popCompiler()

	p.advance()
	for !p.match(TokenEOF) {
		p.declaration()
	}
	fn := p.endCompiler()
	if vm.flags.PrintCode && !p.hadError {
		name := "<script>"
		DisassembleChunk(&fn.Chunk, name)
	}

	if p.hadError {
		return nil, &CompileError{Errs: p.errs}
	}
	return fn, nil
}

func (p *compilerParser) currentChunk() *Chunk { return &p.cur.function.Chunk }

func (p *compilerParser) advance() {
	p.prev = p.current
	for {
		p.current = p.lexer.NextToken()
		if p.current.Type != TokenError {
			break
		}
		p.errorAtCurrent(p.current.Lexeme)
	}
}

func (p *compilerParser) consume(t TokenType, msg string) {
	if p.current.Type == t {
		p.advance()
		return
	}
	p.errorAtCurrent(msg)
}

func (p *compilerParser) check(t TokenType) bool { return p.current.Type == t }

func (p *compilerParser) match(t TokenType) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

func (p *compilerParser) errorAtCurrent(msg string) { p.errorAt(&p.current, msg) }
func (p *compilerParser) errorAtPrev(msg string)    { p.errorAt(&p.prev, msg) }

func (p *compilerParser) errorAt(tok *Token, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	var where string
	switch {
	case tok.Type == TokenEOF:
		where = " at end"
	case tok.Type == TokenError:
		where = ""
	default:
		where = fmt.Sprintf(" at '%s'", tok.Lexeme)
	}
	p.hadError = true
	p.errs = append(p.errs, fmt.Errorf("[line %d] Error%s: %s", tok.Line, where, msg))
}

func (p *compilerParser) synchronize() {
	p.panicMode = false
	for p.current.Type != TokenEOF {
		if p.prev.Type == TokenSemicolon {
			return
		}
		switch p.current.Type {
		case TokenClass, TokenFun, TokenVar, TokenFor, TokenIf, TokenWhile, TokenPrint, TokenReturn:
			return
		}
		p.advance()
	}
}

// --- emission ---

func (p *compilerParser) emitByte(b byte) {
	p.currentChunk().Write(b, p.prev.Line)
}

func (p *compilerParser) emitOp(op OpCode) { p.emitByte(byte(op)) }

func (p *compilerParser) emitBytes(a, b byte) {
	p.emitByte(a)
	p.emitByte(b)
}

func (p *compilerParser) emitOpByte(op OpCode, b byte) { p.emitBytes(byte(op), b) }

func (p *compilerParser) emitLoop(loopStart int) {
	p.emitOp(OpLoop)
	offset := len(p.currentChunk().Code) - loopStart + 2
	if offset > 0xFFFF {
		p.errorAtPrev("Loop body too large.")
	}
	p.emitByte(byte(offset >> 8))
	p.emitByte(byte(offset))
}

func (p *compilerParser) emitJump(op OpCode) int {
	p.emitOp(op)
	p.emitByte(0xff)
	p.emitByte(0xff)
	return len(p.currentChunk().Code) - 2
}

func (p *compilerParser) patchJump(offset int) {
	jump := len(p.currentChunk().Code) - offset - 2
	if jump > 0xFFFF {
		p.errorAtPrev("Too much code to jump over.")
	}
	p.currentChunk().Code[offset] = byte(jump >> 8)
	p.currentChunk().Code[offset+1] = byte(jump)
}

func (p *compilerParser) emitReturn() {
	if p.cur.fnType == TypeInitializer {
		p.emitOpByte(OpGetLocal, 0)
	} else {
		p.emitOp(OpNil)
	}
	p.emitOp(OpReturn)
}

func (p *compilerParser) makeConstant(v Value) byte {
	idx := p.currentChunk().AddConstant(v)
	if idx > 255 {
		p.errorAtPrev("Too many constants in one chunk.")
		return 0
	}
	return byte(idx)
}

func (p *compilerParser) emitConstant(v Value) {
	p.emitOpByte(OpConstant, p.makeConstant(v))
}

func (p *compilerParser) endCompiler() *ObjFunction {
	p.emitReturn()
	fn := p.cur.function
	p.cur = p.cur.enclosing
	return fn
}

func (p *compilerParser) beginScope() { p.cur.scopeDepth++ }

func (p *compilerParser) endScope() {
	p.cur.scopeDepth--
	for len(p.cur.locals) > 0 && p.cur.locals[len(p.cur.locals)-1].depth > p.cur.scopeDepth {
		last := p.cur.locals[len(p.cur.locals)-1]
		if last.isCaptured {
			p.emitOp(OpCloseUpvalue)
		} else {
			p.emitOp(OpPop)
		}
		p.cur.locals = p.cur.locals[:len(p.cur.locals)-1]
	}
}

// --- variables & scope resolution ---

func (p *compilerParser) identifierConstant(tok *Token) byte {
	return p.makeConstant(ObjValue(p.vm.copyString(tok.Lexeme)))
}

func identifiersEqual(a, b *Token) bool { return a.Lexeme == b.Lexeme }

func (p *compilerParser) resolveLocal(c *compilerState, name *Token) int {
	for i := len(c.locals) - 1; i >= 0; i-- {
		local := &c.locals[i]
		if identifiersEqual(name, &local.name) {
			if local.depth == -1 {
				p.errorAtPrev("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

func (p *compilerParser) addUpvalue(c *compilerState, index byte, isLocal bool) int {
	for i, uv := range c.upvalues {
		if uv.index == index && uv.isLocal == isLocal {
			return i
		}
	}
	if len(c.upvalues) >= maxUpvalues {
		p.errorAtPrev("Too many closure variables in function.")
		return 0
	}
	c.upvalues = append(c.upvalues, upvalueRef{index: index, isLocal: isLocal})
	c.function.UpvalueCount = len(c.upvalues)
	return len(c.upvalues) - 1
}

func (p *compilerParser) resolveUpvalue(c *compilerState, name *Token) int {
	if c.enclosing == nil {
		return -1
	}
	if local := p.resolveLocal(c.enclosing, name); local != -1 {
		c.enclosing.locals[local].isCaptured = true
		return p.addUpvalue(c, byte(local), true)
	}
	if uv := p.resolveUpvalue(c.enclosing, name); uv != -1 {
		return p.addUpvalue(c, byte(uv), false)
	}
	return -1
}

func (p *compilerParser) addLocal(name Token) {
	if len(p.cur.locals) >= maxLocals {
		p.errorAtPrev("Too many local variables in function.")
		return
	}
	p.cur.locals = append(p.cur.locals, localVar{name: name, depth: -1})
}

func (p *compilerParser) declareVariable() {
	if p.cur.scopeDepth == 0 {
		return
	}
	name := &p.prev
	for i := len(p.cur.locals) - 1; i >= 0; i-- {
		local := &p.cur.locals[i]
		if local.depth != -1 && local.depth < p.cur.scopeDepth {
			break
		}
		if identifiersEqual(name, &local.name) {
			p.errorAtPrev("Already a variable with this name in this scope.")
		}
	}
	p.addLocal(*name)
}

func (p *compilerParser) parseVariable(msg string) byte {
	p.consume(TokenIdentifier, msg)
	p.declareVariable()
	if p.cur.scopeDepth > 0 {
		return 0
	}
	return p.identifierConstant(&p.prev)
}

func (p *compilerParser) markInitialized() {
	if p.cur.scopeDepth == 0 {
		return
	}
	p.cur.locals[len(p.cur.locals)-1].depth = p.cur.scopeDepth
}

func (p *compilerParser) defineVariable(global byte) {
	if p.cur.scopeDepth > 0 {
		p.markInitialized()
		return
	}
	p.emitOpByte(OpDefineGlobal, global)
}

func (p *compilerParser) argumentList() byte {
	argc := 0
	if !p.check(TokenRightParen) {
		for {
			p.parsePrecedence(precAssignment)
			if argc == maxArgs {
				p.errorAtPrev("Can't have more than 255 arguments.")
			}
			argc++
			if !p.match(TokenComma) {
				break
			}
		}
	}
	p.consume(TokenRightParen, "Expect ')' after arguments.")
	return byte(argc)
}

func (p *compilerParser) and_(canAssign bool) {
	endJump := p.emitJump(OpJumpIfFalse)
	p.emitOp(OpPop)
	p.parsePrecedence(precAnd)
	p.patchJump(endJump)
}

func (p *compilerParser) or_(canAssign bool) {
	elseJump := p.emitJump(OpJumpIfFalse)
	endJump := p.emitJump(OpJump)
	p.patchJump(elseJump)
	p.emitOp(OpPop)
	p.parsePrecedence(precOr)
	p.patchJump(endJump)
}

// --- Pratt core ---

func (p *compilerParser) parsePrecedence(prec precedence) {
	p.advance()
	prefix := ruleFor(p.prev.Type).prefix
	if prefix == nil {
		p.errorAtPrev("Expect expression.")
		return
	}
	canAssign := prec <= precAssignment
	prefix(p, canAssign)

	for prec <= ruleFor(p.current.Type).precedence {
		p.advance()
		infix := ruleFor(p.prev.Type).infix
		infix(p, canAssign)
	}

	if canAssign && p.match(TokenEqual) {
		p.errorAtPrev("Invalid assignment target.")
	}
}

func (p *compilerParser) expression() { p.parsePrecedence(precAssignment) }

func (p *compilerParser) number(canAssign bool) {
	v, _ := strconv.ParseFloat(p.prev.Lexeme, 64)
	p.emitConstant(NumberValue(v))
}

func (p *compilerParser) stringLiteral(canAssign bool) {
	raw := p.prev.Lexeme[1 : len(p.prev.Lexeme)-1]
	p.emitConstant(ObjValue(p.vm.copyString(raw)))
}

func (p *compilerParser) literal(canAssign bool) {
	switch p.prev.Type {
	case TokenFalse:
		p.emitOp(OpFalse)
	case TokenTrue:
		p.emitOp(OpTrue)
	case TokenNil:
		p.emitOp(OpNil)
	}
}

func (p *compilerParser) grouping(canAssign bool) {
	p.expression()
	p.consume(TokenRightParen, "Expect ')' after expression.")
}

func (p *compilerParser) unary(canAssign bool) {
	opType := p.prev.Type
	p.parsePrecedence(precUnary)
	switch opType {
	case TokenBang:
		p.emitOp(OpNot)
	case TokenMinus:
		p.emitOp(OpNegate)
	}
}

func (p *compilerParser) binary(canAssign bool) {
	opType := p.prev.Type
	rule := ruleFor(opType)
	p.parsePrecedence(rule.precedence + 1)

	switch opType {
	case TokenBangEqual:
		p.emitOp(OpEqual)
		p.emitOp(OpNot)
	case TokenEqualEqual:
		p.emitOp(OpEqual)
	case TokenGreater:
		p.emitOp(OpGreater)
	case TokenGreaterEqual:
		p.emitOp(OpLess)
		p.emitOp(OpNot)
	case TokenLess:
		p.emitOp(OpLess)
	case TokenLessEqual:
		p.emitOp(OpGreater)
		p.emitOp(OpNot)
	case TokenPlus:
		p.emitOp(OpAdd)
	case TokenMinus:
		p.emitOp(OpSubtract)
	case TokenStar:
		p.emitOp(OpMultiply)
	case TokenSlash:
		p.emitOp(OpDivide)
	}
}

func (p *compilerParser) call(canAssign bool) {
	argc := p.argumentList()
	p.emitOpByte(OpCall, argc)
}

func (p *compilerParser) dot(canAssign bool) {
	p.consume(TokenIdentifier, "Expect property name after '.'.")
	name := p.identifierConstant(&p.prev)

	if canAssign && p.match(TokenEqual) {
		p.expression()
		p.emitOpByte(OpSetProperty, name)
	} else if p.match(TokenLeftParen) {
		argc := p.argumentList()
		p.emitOpByte(OpInvoke, name)
		p.emitByte(argc)
	} else {
		p.emitOpByte(OpGetProperty, name)
	}
}

func (p *compilerParser) namedVariable(name Token, canAssign bool) {
	var getOp, setOp OpCode
	arg := p.resolveLocal(p.cur, &name)
	if arg != -1 {
		getOp, setOp = OpGetLocal, OpSetLocal
	} else if arg = p.resolveUpvalue(p.cur, &name); arg != -1 {
		getOp, setOp = OpGetUpvalue, OpSetUpvalue
	} else {
		arg = int(p.identifierConstant(&name))
		getOp, setOp = OpGetGlobal, OpSetGlobal
	}

	if canAssign && p.match(TokenEqual) {
		p.expression()
		p.emitOpByte(setOp, byte(arg))
	} else {
		p.emitOpByte(getOp, byte(arg))
	}
}

func (p *compilerParser) variable(canAssign bool) { p.namedVariable(p.prev, canAssign) }

func syntheticToken(lexeme string) Token { return Token{Type: TokenIdentifier, Lexeme: lexeme} }

func (p *compilerParser) this_(canAssign bool) {
	if p.class == nil {
		p.errorAtPrev("Can't use 'this' outside of a class.")
		return
	}
	p.variable(false)
}

func (p *compilerParser) super_(canAssign bool) {
	if p.class == nil {
		p.errorAtPrev("Can't use 'super' outside of a class.")
	} else if !p.class.hasSuperclass {
		p.errorAtPrev("Can't use 'super' in a class with no superclass.")
	}

	p.consume(TokenDot, "Expect '.' after 'super'.")
	p.consume(TokenIdentifier, "Expect superclass method name.")
	name := p.identifierConstant(&p.prev)

	p.namedVariable(syntheticToken("this"), false)
	if p.match(TokenLeftParen) {
		argc := p.argumentList()
		p.namedVariable(syntheticToken("super"), false)
		p.emitOpByte(OpSuperInvoke, name)
		p.emitByte(argc)
	} else {
		p.namedVariable(syntheticToken("super"), false)
		p.emitOpByte(OpGetSuper, name)
	}
}

// --- statements & declarations ---

func (p *compilerParser) declaration() {
	switch {
	case p.match(TokenClass):
		p.classDeclaration()
	case p.match(TokenFun):
		p.funDeclaration()
	case p.match(TokenVar):
		p.varDeclaration()
	default:
		p.statement()
	}
	if p.panicMode {
		p.synchronize()
	}
}

func (p *compilerParser) varDeclaration() {
	global := p.parseVariable("Expect variable name.")
	if p.match(TokenEqual) {
		p.expression()
	} else {
		p.emitOp(OpNil)
	}
	p.consume(TokenSemicolon, "Expect ';' after variable declaration.")
	p.defineVariable(global)
}

func (p *compilerParser) funDeclaration() {
	global := p.parseVariable("Expect function name.")
	p.markInitialized()
	p.function(TypeFunction)
	p.defineVariable(global)
}

func (p *compilerParser) function(fnType FunctionType) {
	name := p.vm.copyString(p.prev.Lexeme)
	c := &compilerState{enclosing: p.cur, fnType: fnType, function: p.vm.newFunction()}
	c.function.Name = name
	receiverName := ""
	if fnType == TypeMethod || fnType == TypeInitializer {
		receiverName = "this"
	}
	c.locals = append(c.locals, localVar{name: Token{Lexeme: receiverName}, depth: 0})
	p.cur = c
	p.vm.pushCompiler(c)

	p.beginScope()
	p.consume(TokenLeftParen, "Expect '(' after function name.")
	if !p.check(TokenRightParen) {
		for {
			p.cur.function.Arity++
			if p.cur.function.Arity > maxArgs {
				p.errorAtCurrent("Can't have more than 255 parameters.")
			}
			constant := p.parseVariable("Expect parameter name.")
			p.defineVariable(constant)
			if !p.match(TokenComma) {
				break
			}
		}
	}
	p.consume(TokenRightParen, "Expect ')' after parameters.")
	p.consume(TokenLeftBrace, "Expect '{' before function body.")
	p.block()

	fn := p.endCompiler()
	p.vm.popCompiler()
	if p.vm.flags.PrintCode && !p.hadError {
		DisassembleChunk(&fn.Chunk, fn.Name.Chars)
	}
	idx := p.makeConstant(ObjValue(fn))
	p.emitOpByte(OpClosure, idx)
	for _, uv := range c.upvalues {
		p.emitByte(boolByte(uv.isLocal))
		p.emitByte(uv.index)
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func (p *compilerParser) method() {
	p.consume(TokenIdentifier, "Expect method name.")
	name := p.identifierConstant(&p.prev)
	fnType := TypeMethod
	if p.prev.Lexeme == "init" {
		fnType = TypeInitializer
	}
	p.function(fnType)
	p.emitOpByte(OpMethod, name)
}

func (p *compilerParser) classDeclaration() {
	p.consume(TokenIdentifier, "Expect class name.")
	className := p.prev
	nameConstant := p.identifierConstant(&p.prev)
	p.declareVariable()

	p.emitOpByte(OpClass, nameConstant)
	p.defineVariable(nameConstant)

	classComp := &classCompilerState{enclosing: p.class}
	p.class = classComp

	if p.match(TokenLess) {
		p.consume(TokenIdentifier, "Expect superclass name.")
		p.variable(false)
		if identifiersEqual(&className, &p.prev) {
			p.errorAtPrev("A class can't inherit from itself.")
		}

		p.beginScope()
		p.addLocal(syntheticToken("super"))
		p.defineVariable(0)

		p.namedVariable(className, false)
		p.emitOp(OpInherit)
		classComp.hasSuperclass = true
	}

	p.namedVariable(className, false)
	p.consume(TokenLeftBrace, "Expect '{' before class body.")
	for !p.check(TokenRightBrace) && !p.check(TokenEOF) {
		p.method()
	}
	p.consume(TokenRightBrace, "Expect '}' after class body.")
	p.emitOp(OpPop)

	if classComp.hasSuperclass {
		p.endScope()
	}
	p.class = p.class.enclosing
}

func (p *compilerParser) statement() {
	switch {
	case p.match(TokenPrint):
		p.printStatement()
	case p.match(TokenIf):
		p.ifStatement()
	case p.match(TokenReturn):
		p.returnStatement()
	case p.match(TokenWhile):
		p.whileStatement()
	case p.match(TokenFor):
		p.forStatement()
	case p.match(TokenLeftBrace):
		p.beginScope()
		p.block()
		p.endScope()
	default:
		p.expressionStatement()
	}
}

func (p *compilerParser) block() {
	for !p.check(TokenRightBrace) && !p.check(TokenEOF) {
		p.declaration()
	}
	p.consume(TokenRightBrace, "Expect '}' after block.")
}

func (p *compilerParser) printStatement() {
	p.expression()
	p.consume(TokenSemicolon, "Expect ';' after value.")
	p.emitOp(OpPrint)
}

func (p *compilerParser) expressionStatement() {
	p.expression()
	p.consume(TokenSemicolon, "Expect ';' after expression.")
	p.emitOp(OpPop)
}

func (p *compilerParser) ifStatement() {
	p.consume(TokenLeftParen, "Expect '(' after 'if'.")
	p.expression()
	p.consume(TokenRightParen, "Expect ')' after condition.")

	thenJump := p.emitJump(OpJumpIfFalse)
	p.emitOp(OpPop)
	p.statement()

	elseJump := p.emitJump(OpJump)
	p.patchJump(thenJump)
	p.emitOp(OpPop)

	if p.match(TokenElse) {
		p.statement()
	}
	p.patchJump(elseJump)
}

func (p *compilerParser) whileStatement() {
	loopStart := len(p.currentChunk().Code)
	p.consume(TokenLeftParen, "Expect '(' after 'while'.")
	p.expression()
	p.consume(TokenRightParen, "Expect ')' after condition.")

	exitJump := p.emitJump(OpJumpIfFalse)
	p.emitOp(OpPop)
	p.statement()
	p.emitLoop(loopStart)

	p.patchJump(exitJump)
	p.emitOp(OpPop)
}

func (p *compilerParser) forStatement() {
	p.beginScope()
	p.consume(TokenLeftParen, "Expect '(' after 'for'.")
	switch {
	case p.match(TokenSemicolon):
	case p.match(TokenVar):
		p.varDeclaration()
	default:
		p.expressionStatement()
	}

	loopStart := len(p.currentChunk().Code)
	exitJump := -1
	if !p.match(TokenSemicolon) {
		p.expression()
		p.consume(TokenSemicolon, "Expect ';' after loop condition.")
		exitJump = p.emitJump(OpJumpIfFalse)
		p.emitOp(OpPop)
	}

	if !p.match(TokenRightParen) {
		bodyJump := p.emitJump(OpJump)
		incrementStart := len(p.currentChunk().Code)
		p.expression()
		p.emitOp(OpPop)
		p.consume(TokenRightParen, "Expect ')' after for clauses.")

		p.emitLoop(loopStart)
		loopStart = incrementStart
		p.patchJump(bodyJump)
	}

	p.statement()
	p.emitLoop(loopStart)

	if exitJump != -1 {
		p.patchJump(exitJump)
		p.emitOp(OpPop)
	}
	p.endScope()
}

func (p *compilerParser) returnStatement() {
	if p.cur.fnType == TypeScript {
		p.errorAtPrev("Can't return from top-level code.")
	}
	if p.match(TokenSemicolon) {
		p.emitReturn()
		return
	}
	if p.cur.fnType == TypeInitializer {
		p.errorAtPrev("Can't return a value from an initializer.")
	}
	p.expression()
	p.consume(TokenSemicolon, "Expect ';' after return value.")
	p.emitOp(OpReturn)
}
