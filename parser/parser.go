package parser

import (
	"fmt"

	"github.com/katalvlaran/toyfence/ast"
)

// Parse lexes and parses source into an ast.Program. The init block's
// `let` declarations populate Program.GlobalVars; a thread-local `let`
// that reuses a global's name returns a *ShadowError (ErrShadow) instead
// of the panic the original implementation raised.
func Parse(source string) (*ast.Program, error) {
	p := &parser{lex: newLexer(source)}
	if err := p.advance(); err != nil {
		return nil, err
	}

	return p.parseProgram()
}

type parser struct {
	lex  *lexer
	tok  token
	prev token
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.prev = p.tok
	p.tok = tok

	return nil
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	if p.tok.kind != kind {
		return token{}, p.unexpected(what)
	}
	tok := p.tok
	if err := p.advance(); err != nil {
		return token{}, err
	}

	return tok, nil
}

func (p *parser) unexpected(what string) error {
	return &SyntaxError{Line: p.tok.line, Col: p.tok.col, Msg: fmt.Sprintf("expected %s, got %q", what, tokenText(p.tok))}
}

func tokenText(t token) string {
	if t.kind == tokEOF {
		return "<eof>"
	}

	return t.text
}

func (p *parser) parseProgram() (*ast.Program, error) {
	prog := &ast.Program{}

	for p.tok.kind == tokLet {
		init, err := p.parseInit()
		if err != nil {
			return nil, err
		}
		prog.Init = append(prog.Init, init)
		prog.GlobalVars = append(prog.GlobalVars, init.Name)
	}

	for p.tok.kind == tokThread {
		thread, err := p.parseThread(prog.GlobalVars)
		if err != nil {
			return nil, err
		}
		prog.Threads = append(prog.Threads, thread)
	}

	if _, err := p.expect(tokFinal, "'final'"); err != nil {
		return nil, err
	}
	if _, err := p.expect(tokLBrace, "'{'"); err != nil {
		return nil, err
	}
	for p.tok.kind == tokAssert {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(tokLParen, "'('"); err != nil {
			return nil, err
		}
		expr, err := p.parseLogicExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		if _, err := p.expect(tokSemi, "';'"); err != nil {
			return nil, err
		}
		prog.Assert = append(prog.Assert, expr)
	}
	if _, err := p.expect(tokRBrace, "'}'"); err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.unexpected("end of input")
	}

	return prog, nil
}

func (p *parser) parseInit() (ast.Init, error) {
	if err := p.advance(); err != nil { // consume 'let'
		return ast.Init{}, err
	}
	name, err := p.expect(tokIdent, "identifier")
	if err != nil {
		return ast.Init{}, err
	}
	if _, err := p.expect(tokColon, "':'"); err != nil {
		return ast.Init{}, err
	}
	if _, err := p.expect(tokU32, "'u32'"); err != nil {
		return ast.Init{}, err
	}
	if _, err := p.expect(tokAssign, "'='"); err != nil {
		return ast.Init{}, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return ast.Init{}, err
	}
	if _, err := p.expect(tokSemi, "';'"); err != nil {
		return ast.Init{}, err
	}

	return ast.Init{Name: name.text, Value: value}, nil
}

func (p *parser) parseExpr() (ast.Expr, error) {
	switch p.tok.kind {
	case tokNumber:
		tok := p.tok
		if err := p.advance(); err != nil {
			return nil, err
		}

		return ast.Num{Value: parseU32(tok.text)}, nil
	case tokIdent:
		tok := p.tok
		if err := p.advance(); err != nil {
			return nil, err
		}

		return ast.Var{Name: tok.text}, nil
	default:
		return nil, p.unexpected("a number or identifier")
	}
}

func parseU32(text string) uint32 {
	var v uint32
	for _, r := range text {
		v = v*10 + uint32(r-'0')
	}

	return v
}

func (p *parser) parseThread(globals []ast.Name) (ast.Thread, error) {
	if err := p.advance(); err != nil { // consume 'thread'
		return ast.Thread{}, err
	}
	name, err := p.expect(tokIdent, "thread name")
	if err != nil {
		return ast.Thread{}, err
	}
	if _, err := p.expect(tokLBrace, "'{'"); err != nil {
		return ast.Thread{}, err
	}

	var stmts []ast.Statement
	for p.tok.kind != tokRBrace {
		stmt, err := p.parseStatement(globals)
		if err != nil {
			return ast.Thread{}, err
		}
		stmts = append(stmts, stmt)
	}
	if _, err := p.expect(tokRBrace, "'}'"); err != nil {
		return ast.Thread{}, err
	}

	return ast.Thread{Name: name.text, Instructions: stmts}, nil
}

func (p *parser) parseStatement(globals []ast.Name) (ast.Statement, error) {
	switch p.tok.kind {
	case tokLet:
		letTok := p.tok
		if err := p.advance(); err != nil {
			return nil, err
		}
		name, err := p.expect(tokIdent, "identifier")
		if err != nil {
			return nil, err
		}
		if isGlobal(globals, name.text) {
			return nil, &ShadowError{Line: letTok.line, Col: letTok.col, Name: name.text}
		}
		if _, err := p.expect(tokColon, "':'"); err != nil {
			return nil, err
		}
		if _, err := p.expect(tokU32, "'u32'"); err != nil {
			return nil, err
		}
		if _, err := p.expect(tokAssign, "'='"); err != nil {
			return nil, err
		}
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokSemi, "';'"); err != nil {
			return nil, err
		}

		return &ast.Assign{Name: name.text, Value: value}, nil
	case tokIdent:
		name := p.tok
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(tokAssign, "'='"); err != nil {
			return nil, err
		}
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokSemi, "';'"); err != nil {
			return nil, err
		}

		return &ast.Modify{Name: name.text, Value: value}, nil
	case tokFence:
		return p.parseFence()
	case tokIf:
		return p.parseIf(globals)
	case tokWhile:
		return p.parseWhile(globals)
	default:
		return nil, p.unexpected("a statement")
	}
}

func (p *parser) parseFence() (ast.Statement, error) {
	if err := p.advance(); err != nil { // consume 'Fence'
		return nil, err
	}
	if _, err := p.expect(tokLParen, "'('"); err != nil {
		return nil, err
	}
	kindTok, err := p.expect(tokIdent, "fence kind")
	if err != nil {
		return nil, err
	}
	kind, ok := fenceKinds[kindTok.text]
	if !ok {
		return nil, &SyntaxError{Line: kindTok.line, Col: kindTok.col, Msg: fmt.Sprintf("unknown fence kind %q", kindTok.text)}
	}
	if _, err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}
	if _, err := p.expect(tokSemi, "';'"); err != nil {
		return nil, err
	}

	return &ast.Fence{Kind: kind}, nil
}

var fenceKinds = map[string]ast.FenceKind{
	"WR": ast.FenceWR,
	"WW": ast.FenceWW,
	"RW": ast.FenceRW,
	"RR": ast.FenceRR,
}

func (p *parser) parseIf(globals []ast.Name) (ast.Statement, error) {
	if err := p.advance(); err != nil { // consume 'if'
		return nil, err
	}
	if _, err := p.expect(tokLParen, "'('"); err != nil {
		return nil, err
	}
	cond, err := p.parseCondExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}
	thn, err := p.parseBlock(globals)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokElse, "'else'"); err != nil {
		return nil, err
	}
	els, err := p.parseBlock(globals)
	if err != nil {
		return nil, err
	}

	return &ast.If{Cond: cond, Then: thn, Else: els}, nil
}

func (p *parser) parseWhile(globals []ast.Name) (ast.Statement, error) {
	if err := p.advance(); err != nil { // consume 'while'
		return nil, err
	}
	if _, err := p.expect(tokLParen, "'('"); err != nil {
		return nil, err
	}
	cond, err := p.parseCondExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}
	body, err := p.parseBlock(globals)
	if err != nil {
		return nil, err
	}

	return &ast.While{Cond: cond, Body: body}, nil
}

func (p *parser) parseBlock(globals []ast.Name) ([]ast.Statement, error) {
	if _, err := p.expect(tokLBrace, "'{'"); err != nil {
		return nil, err
	}
	var stmts []ast.Statement
	for p.tok.kind != tokRBrace {
		stmt, err := p.parseStatement(globals)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	if _, err := p.expect(tokRBrace, "'}'"); err != nil {
		return nil, err
	}

	return stmts, nil
}

func (p *parser) parseCondExpr() (ast.CondExpr, error) {
	atom, err := p.parseCondAtom()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokAndAnd {
		if err := p.advance(); err != nil {
			return nil, err
		}
		rhs, err := p.parseCondAtom()
		if err != nil {
			return nil, err
		}
		atom = ast.And{Left: atom, Right: rhs}
	}

	return atom, nil
}

func (p *parser) parseCondAtom() (ast.CondExpr, error) {
	switch p.tok.kind {
	case tokBang:
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(tokLParen, "'('"); err != nil {
			return nil, err
		}
		inner, err := p.parseCondExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}

		return ast.Neg{X: inner}, nil
	case tokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseCondExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}

		return inner, nil
	default:
		left, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		switch p.tok.kind {
		case tokEqEq:
			if err := p.advance(); err != nil {
				return nil, err
			}
			right, err := p.parseExpr()
			if err != nil {
				return nil, err
			}

			return ast.Eq{Left: left, Right: right}, nil
		case tokLeq:
			if err := p.advance(); err != nil {
				return nil, err
			}
			right, err := p.parseExpr()
			if err != nil {
				return nil, err
			}

			return ast.Leq{Left: left, Right: right}, nil
		default:
			return nil, p.unexpected("'==' or '<='")
		}
	}
}

func (p *parser) parseLogicExpr() (ast.LogicExpr, error) {
	atom, err := p.parseLogicAtom()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokAndAnd {
		if err := p.advance(); err != nil {
			return nil, err
		}
		rhs, err := p.parseLogicAtom()
		if err != nil {
			return nil, err
		}
		atom = ast.LogicAnd{Left: atom, Right: rhs}
	}

	return atom, nil
}

func (p *parser) parseLogicAtom() (ast.LogicExpr, error) {
	switch p.tok.kind {
	case tokBang:
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(tokLParen, "'('"); err != nil {
			return nil, err
		}
		inner, err := p.parseLogicExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}

		return ast.LogicNeg{X: inner}, nil
	case tokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseLogicExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}

		return inner, nil
	default:
		left, err := p.parseLogicInt()
		if err != nil {
			return nil, err
		}
		switch p.tok.kind {
		case tokEqEq:
			if err := p.advance(); err != nil {
				return nil, err
			}
			right, err := p.parseLogicInt()
			if err != nil {
				return nil, err
			}

			return ast.LogicEq{Left: left, Right: right}, nil
		case tokLeq:
			if err := p.advance(); err != nil {
				return nil, err
			}
			right, err := p.parseLogicInt()
			if err != nil {
				return nil, err
			}

			return ast.LogicLeq{Left: left, Right: right}, nil
		default:
			return nil, p.unexpected("'==' or '<='")
		}
	}
}

func (p *parser) parseLogicInt() (ast.LogicInt, error) {
	switch p.tok.kind {
	case tokNumber:
		tok := p.tok
		if err := p.advance(); err != nil {
			return nil, err
		}

		return ast.LogicNum{Value: parseU32(tok.text)}, nil
	case tokIdent:
		thread := p.tok
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(tokDot, "'.'"); err != nil {
			return nil, err
		}
		variable, err := p.expect(tokIdent, "variable name")
		if err != nil {
			return nil, err
		}

		return ast.LogicVar{Thread: thread.text, Variable: variable.text}, nil
	default:
		return nil, p.unexpected("a number or thread.variable")
	}
}

func isGlobal(globals []ast.Name, name ast.Name) bool {
	for _, g := range globals {
		if g == name {
			return true
		}
	}

	return false
}
