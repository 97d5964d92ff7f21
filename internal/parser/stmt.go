package parser

import (
	"github.com/gmofishsauce/cc99/internal/ast"
	"github.com/gmofishsauce/cc99/internal/token"
)

// parseStatement parses one statement, per C99 6.8.
func (p *Parser) parseStatement() ast.Handle {
	defer p.enter()()
	t := p.sc.Peek()

	if t.Kind == token.Ident {
		// label: statement — requires one token of lookahead past the
		// identifier to distinguish from an expression statement.
		mark := p.sc.Mark()
		ident := p.sc.Next()
		if p.sc.Peek().IsPunct(token.PColon) {
			pos := posOf(ident)
			p.sc.Next()
			n := p.arena.New(ast.LabelStmt, pos)
			p.arena.Get(n).Name = ident.Ident
			return n
		}
		p.sc.Reset(mark)
	}

	switch {
	case t.IsPunct(token.PLBrace):
		return p.parseCompoundStatement()
	case t.IsKeyword(token.KwIf):
		return p.parseIf()
	case t.IsKeyword(token.KwWhile):
		return p.parseWhile()
	case t.IsKeyword(token.KwDo):
		return p.parseDoWhile()
	case t.IsKeyword(token.KwFor):
		return p.parseFor()
	case t.IsKeyword(token.KwSwitch):
		return p.parseSwitch()
	case t.IsKeyword(token.KwCase):
		return p.parseCase()
	case t.IsKeyword(token.KwDefault):
		return p.parseDefault()
	case t.IsKeyword(token.KwBreak):
		pos := posOf(p.sc.Next())
		p.expected(isPunct(token.PSemi), "';'")
		return p.arena.New(ast.BreakStmt, pos)
	case t.IsKeyword(token.KwContinue):
		pos := posOf(p.sc.Next())
		p.expected(isPunct(token.PSemi), "';'")
		return p.arena.New(ast.ContinueStmt, pos)
	case t.IsKeyword(token.KwReturn):
		return p.parseReturn()
	case t.IsKeyword(token.KwGoto):
		pos := posOf(p.sc.Next())
		n := p.arena.New(ast.GotoStmt, pos)
		if id := p.expected(isIdent, "label name"); id != nil {
			p.arena.Get(n).Name = id.Ident
		}
		p.expected(isPunct(token.PSemi), "';'")
		return n
	case t.IsPunct(token.PSemi):
		pos := posOf(p.sc.Next())
		return p.arena.New(ast.NullStmt, pos)
	default:
		return p.parseExprStatement()
	}
}

func (p *Parser) parseExprStatement() ast.Handle {
	pos := posOf(p.sc.Peek())
	e := p.parseExpression()
	p.expected(isPunct(token.PSemi), "';'")
	n := p.arena.New(ast.ExprStmt, pos)
	node := p.arena.Get(n)
	node.A = e
	p.arena.SetParent(e, n)
	return n
}

// parseCompoundStatement parses a { ... } block, per C99 6.8.2.
// Declarations and statements interleave freely, as in C99 (unlike
// strict C89 which requires declarations first).
func (p *Parser) parseCompoundStatement() ast.Handle {
	defer p.enter()()
	pos := posOf(p.sc.Peek())
	p.expected(isPunct(token.PLBrace), "'{'")
	n := p.arena.New(ast.CompoundStmt, pos)
	node := p.arena.Get(n)
	for !p.sc.Peek().IsPunct(token.PRBrace) && !p.sc.AtEOF() {
		mark := p.sc.Mark()
		var item ast.Handle
		if p.startsTypeName() || p.startsStorageClass() {
			item = p.parseBlockItemDeclaration()
		} else {
			item = p.parseStatement()
		}
		if p.sc.Mark() == mark {
			// A block item that consumed nothing has already recorded
			// its diagnostic; skip a token so the block still closes.
			p.sc.Next()
			continue
		}
		p.arena.SetParent(item, n)
		node.Children = append(node.Children, item)
	}
	p.expected(isPunct(token.PRBrace), "'}'")
	return n
}

func (p *Parser) startsStorageClass() bool {
	t := p.sc.Peek()
	if t.Kind != token.Keyword {
		return false
	}
	switch t.Keyword {
	case token.KwTypedef, token.KwExtern, token.KwStatic, token.KwAuto, token.KwRegister:
		return true
	}
	return false
}

func (p *Parser) parseIf() ast.Handle {
	pos := posOf(p.sc.Next())
	p.expected(isPunct(token.PLParen), "'('")
	cond := p.parseExpression()
	p.expected(isPunct(token.PRParen), "')'")
	then := p.parseStatement()
	n := p.arena.New(ast.IfStmt, pos)
	node := p.arena.Get(n)
	node.A, node.B = cond, then
	p.arena.SetParent(cond, n)
	p.arena.SetParent(then, n)
	if p.optional(isKeyword(token.KwElse)) != nil {
		els := p.parseStatement()
		node.C = els
		p.arena.SetParent(els, n)
	}
	return n
}

func (p *Parser) parseWhile() ast.Handle {
	pos := posOf(p.sc.Next())
	p.expected(isPunct(token.PLParen), "'('")
	cond := p.parseExpression()
	p.expected(isPunct(token.PRParen), "')'")
	body := p.parseStatement()
	n := p.arena.New(ast.WhileStmt, pos)
	node := p.arena.Get(n)
	node.A, node.B = cond, body
	p.arena.SetParent(cond, n)
	p.arena.SetParent(body, n)
	return n
}

func (p *Parser) parseDoWhile() ast.Handle {
	pos := posOf(p.sc.Next())
	body := p.parseStatement()
	p.expected(isKeyword(token.KwWhile), "'while'")
	p.expected(isPunct(token.PLParen), "'('")
	cond := p.parseExpression()
	p.expected(isPunct(token.PRParen), "')'")
	p.expected(isPunct(token.PSemi), "';'")
	n := p.arena.New(ast.DoWhileStmt, pos)
	node := p.arena.Get(n)
	node.A, node.B = body, cond
	p.arena.SetParent(body, n)
	p.arena.SetParent(cond, n)
	return n
}

func (p *Parser) parseFor() ast.Handle {
	pos := posOf(p.sc.Next())
	p.expected(isPunct(token.PLParen), "'('")
	n := p.arena.New(ast.ForStmt, pos)
	node := p.arena.Get(n)
	if !p.sc.Peek().IsPunct(token.PSemi) {
		if p.startsTypeName() || p.startsStorageClass() {
			node.A = p.parseBlockItemDeclaration()
		} else {
			init := p.parseExpression()
			p.expected(isPunct(token.PSemi), "';'")
			node.A = init
		}
	} else {
		p.sc.Next()
	}
	if !p.sc.Peek().IsPunct(token.PSemi) {
		node.B = p.parseExpression()
	}
	p.expected(isPunct(token.PSemi), "';'")
	if !p.sc.Peek().IsPunct(token.PRParen) {
		node.D = p.parseExpression()
	}
	p.expected(isPunct(token.PRParen), "')'")
	node.C = p.parseStatement()
	for _, h := range []ast.Handle{node.A, node.B, node.C, node.D} {
		p.arena.SetParent(h, n)
	}
	return n
}

func (p *Parser) parseSwitch() ast.Handle {
	pos := posOf(p.sc.Next())
	p.expected(isPunct(token.PLParen), "'('")
	tag := p.parseExpression()
	p.expected(isPunct(token.PRParen), "')'")
	body := p.parseStatement()
	n := p.arena.New(ast.SwitchStmt, pos)
	node := p.arena.Get(n)
	node.A, node.B = tag, body
	p.arena.SetParent(tag, n)
	p.arena.SetParent(body, n)
	return n
}

func (p *Parser) parseCase() ast.Handle {
	pos := posOf(p.sc.Next())
	expr := p.parseExpression()
	p.expected(isPunct(token.PColon), "':'")
	stmt := p.parseStatement()
	n := p.arena.New(ast.CaseStmt, pos)
	node := p.arena.Get(n)
	node.A, node.B = expr, stmt
	p.arena.SetParent(expr, n)
	p.arena.SetParent(stmt, n)
	return n
}

func (p *Parser) parseDefault() ast.Handle {
	pos := posOf(p.sc.Next())
	p.expected(isPunct(token.PColon), "':'")
	stmt := p.parseStatement()
	n := p.arena.New(ast.DefaultStmt, pos)
	node := p.arena.Get(n)
	node.A = stmt
	p.arena.SetParent(stmt, n)
	return n
}

func (p *Parser) parseReturn() ast.Handle {
	pos := posOf(p.sc.Next())
	n := p.arena.New(ast.ReturnStmt, pos)
	if !p.sc.Peek().IsPunct(token.PSemi) {
		v := p.parseExpression()
		p.arena.Get(n).A = v
		p.arena.SetParent(v, n)
	}
	p.expected(isPunct(token.PSemi), "';'")
	return n
}
