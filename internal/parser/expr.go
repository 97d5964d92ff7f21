package parser

import (
	"github.com/gmofishsauce/cc99/internal/ast"
	"github.com/gmofishsauce/cc99/internal/diag"
	"github.com/gmofishsauce/cc99/internal/token"
)

// parseExpression parses a comma-expression, the widest expression
// grammar, per C99 6.5.17.
func (p *Parser) parseExpression() ast.Handle {
	defer p.enter()()
	e := p.parseAssignment()
	for p.check(isPunct(token.PComma)) {
		pos := posOf(p.sc.Next())
		rhs := p.parseAssignment()
		n := p.arena.New(ast.CommaExpr, pos)
		node := p.arena.Get(n)
		node.A, node.B = e, rhs
		p.arena.SetParent(e, n)
		p.arena.SetParent(rhs, n)
		e = n
	}
	return e
}

var compoundAssignOps = map[token.Punct]ast.BinOp{
	token.PMulAssign: ast.OpMul,
	token.PDivAssign: ast.OpDiv,
	token.PModAssign: ast.OpMod,
	token.PAddAssign: ast.OpAdd,
	token.PSubAssign: ast.OpSub,
	token.PShlAssign: ast.OpShl,
	token.PShrAssign: ast.OpShr,
	token.PAndAssign: ast.OpBitAnd,
	token.PXorAssign: ast.OpBitXor,
	token.POrAssign:  ast.OpBitOr,
}

// parseAssignment parses an assignment-expression, per C99 6.5.16.
// This subset treats the left operand of `=` and the compound
// assignment operators as already-parsed conditional-expressions and
// does not itself validate lvalue-ness; that constraint is the
// semantic analyzer's job .
func (p *Parser) parseAssignment() ast.Handle {
	defer p.enter()()
	lhs := p.parseConditional()
	t := p.sc.Peek()
	if t.IsPunct(token.PAssign) {
		pos := posOf(p.sc.Next())
		rhs := p.parseAssignment()
		n := p.arena.New(ast.AssignExpr, pos)
		node := p.arena.Get(n)
		node.A, node.B = lhs, rhs
		p.arena.SetParent(lhs, n)
		p.arena.SetParent(rhs, n)
		return n
	}
	if t.Kind == token.PunctKind {
		if op, ok := compoundAssignOps[t.Punct]; ok {
			pos := posOf(p.sc.Next())
			rhs := p.parseAssignment()
			n := p.arena.New(ast.CompoundAssignExpr, pos)
			node := p.arena.Get(n)
			node.A, node.B, node.Op = lhs, rhs, op
			p.arena.SetParent(lhs, n)
			p.arena.SetParent(rhs, n)
			return n
		}
	}
	return lhs
}

// parseConditional parses a conditional-expression, per C99 6.5.15.
func (p *Parser) parseConditional() ast.Handle {
	defer p.enter()()
	cond := p.parseBinary(0)
	if p.check(isPunct(token.PQuestion)) {
		pos := posOf(p.sc.Next())
		then := p.parseExpression()
		p.expected(isPunct(token.PColon), "':'")
		els := p.parseConditional()
		n := p.arena.New(ast.ConditionalExpr, pos)
		node := p.arena.Get(n)
		node.A, node.B, node.C = cond, then, els
		p.arena.SetParent(cond, n)
		p.arena.SetParent(then, n)
		p.arena.SetParent(els, n)
		return n
	}
	return cond
}

// binOpPrec maps a punctuator to (operator, precedence); higher binds
// tighter. Implements the chain of C99 6.5.5-6.5.14 as one
// precedence-climbing loop instead of thirteen separate mutually
// recursive productions.
var binOpPrec = map[token.Punct]struct {
	op   ast.BinOp
	prec int
}{
	token.PPipePipe: {ast.OpLOr, 1},
	token.PAmpAmp:   {ast.OpLAnd, 2},
	token.PPipe:     {ast.OpBitOr, 3},
	token.PCaret:    {ast.OpBitXor, 4},
	token.PAmp:      {ast.OpBitAnd, 5},
	token.PEq:       {ast.OpEq, 6},
	token.PNe:       {ast.OpNe, 6},
	token.PLt:       {ast.OpLt, 7},
	token.PGt:       {ast.OpGt, 7},
	token.PLe:       {ast.OpLe, 7},
	token.PGe:       {ast.OpGe, 7},
	token.PShl:      {ast.OpShl, 8},
	token.PShr:      {ast.OpShr, 8},
	token.PPlus:     {ast.OpAdd, 9},
	token.PMinus:    {ast.OpSub, 9},
	token.PStar:     {ast.OpMul, 10},
	token.PSlash:    {ast.OpDiv, 10},
	token.PPercent:  {ast.OpMod, 10},
}

func (p *Parser) parseBinary(minPrec int) ast.Handle {
	defer p.enter()()
	lhs := p.parseCast()
	for {
		t := p.sc.Peek()
		if t.Kind != token.PunctKind {
			return lhs
		}
		info, ok := binOpPrec[t.Punct]
		if !ok || info.prec < minPrec {
			return lhs
		}
		pos := posOf(p.sc.Next())
		rhs := p.parseBinary(info.prec + 1)
		n := p.arena.New(ast.BinaryExpr, pos)
		node := p.arena.Get(n)
		node.A, node.B, node.Op = lhs, rhs, info.op
		p.arena.SetParent(lhs, n)
		p.arena.SetParent(rhs, n)
		lhs = n
	}
}

// parseCast parses a cast-expression, per C99 6.5.4. Disambiguating
// "(type-name) expr" from a parenthesized expression requires
// consulting the typedef-name scope.
func (p *Parser) parseCast() ast.Handle {
	defer p.enter()()
	if p.sc.Peek().IsPunct(token.PLParen) {
		mark := p.sc.Mark()
		pos := posOf(p.sc.Next())
		if p.startsTypeName() {
			ty := p.parseTypeName()
			if p.expected(isPunct(token.PRParen), "')'") != nil {
				if p.sc.Peek().IsPunct(token.PLBrace) {
					return p.parseCompoundLiteral(ty, pos)
				}
				operand := p.parseCast()
				n := p.arena.New(ast.CastExpr, pos)
				node := p.arena.Get(n)
				node.Type, node.A = resolvedType(ty), operand
				p.arena.SetParent(operand, n)
				return n
			}
		}
		p.sc.Reset(mark)
	}
	return p.parseUnary()
}

func (p *Parser) parseCompoundLiteral(ty *typeRef, pos token.Pos) ast.Handle {
	init := p.parseInitializerList()
	n := p.arena.New(ast.CompoundLiteralExpr, pos)
	node := p.arena.Get(n)
	node.Type, node.A = resolvedType(ty), init
	p.arena.SetParent(init, n)
	return n
}

var unaryOps = map[token.Punct]ast.UnOp{
	token.PAmp:   ast.UnAddr,
	token.PStar:  ast.UnDeref,
	token.PPlus:  ast.UnPlus,
	token.PMinus: ast.UnMinus,
	token.PTilde: ast.UnBitNot,
	token.PBang:  ast.UnLNot,
}

// parseUnary parses a unary-expression, per C99 6.5.3.
func (p *Parser) parseUnary() ast.Handle {
	defer p.enter()()
	t := p.sc.Peek()
	if t.Kind == token.PunctKind {
		if t.Punct == token.PIncr || t.Punct == token.PDecr {
			pos := posOf(p.sc.Next())
			operand := p.parseUnary()
			n := p.arena.New(ast.PreIncrDecrExpr, pos)
			node := p.arena.Get(n)
			node.A = operand
			if t.Punct == token.PIncr {
				node.UOp = ast.UnPreIncr
			} else {
				node.UOp = ast.UnPreDecr
			}
			p.arena.SetParent(operand, n)
			return n
		}
		if op, ok := unaryOps[t.Punct]; ok {
			pos := posOf(p.sc.Next())
			operand := p.parseCast()
			n := p.arena.New(ast.UnaryExpr, pos)
			node := p.arena.Get(n)
			node.A, node.UOp = operand, op
			p.arena.SetParent(operand, n)
			return n
		}
	}
	if t.IsKeyword(token.KwSizeof) {
		pos := posOf(p.sc.Next())
		if p.sc.Peek().IsPunct(token.PLParen) {
			mark := p.sc.Mark()
			p.sc.Next()
			if p.startsTypeName() {
				ty := p.parseTypeName()
				p.expected(isPunct(token.PRParen), "')'")
				n := p.arena.New(ast.SizeofTypeExpr, pos)
				p.arena.Get(n).Type = resolvedType(ty)
				return n
			}
			p.sc.Reset(mark)
		}
		operand := p.parseUnary()
		n := p.arena.New(ast.SizeofExprExpr, pos)
		node := p.arena.Get(n)
		node.A = operand
		p.arena.SetParent(operand, n)
		return n
	}
	return p.parsePostfix()
}

// parsePostfix parses a postfix-expression, per C99 6.5.2.
func (p *Parser) parsePostfix() ast.Handle {
	defer p.enter()()
	e := p.parsePrimary()
	for {
		t := p.sc.Peek()
		switch {
		case t.IsPunct(token.PLBracket):
			pos := posOf(p.sc.Next())
			idx := p.parseExpression()
			p.expected(isPunct(token.PRBracket), "']'")
			n := p.arena.New(ast.IndexExpr, pos)
			node := p.arena.Get(n)
			node.A, node.B = e, idx
			p.arena.SetParent(e, n)
			p.arena.SetParent(idx, n)
			e = n
		case t.IsPunct(token.PLParen):
			pos := posOf(p.sc.Next())
			n := p.arena.New(ast.CallExpr, pos)
			node := p.arena.Get(n)
			node.A = e
			p.arena.SetParent(e, n)
			if !p.sc.Peek().IsPunct(token.PRParen) {
				for {
					arg := p.parseAssignment()
					p.arena.SetParent(arg, n)
					node.Children = append(node.Children, arg)
					if p.optional(isPunct(token.PComma)) == nil {
						break
					}
				}
			}
			p.expected(isPunct(token.PRParen), "')'")
			e = n
		case t.IsPunct(token.PDot), t.IsPunct(token.PArrow):
			isArrow := t.Punct == token.PArrow
			pos := posOf(p.sc.Next())
			name := p.expected(isIdent, "member name")
			n := p.arena.New(ast.MemberExpr, pos)
			node := p.arena.Get(n)
			node.A, node.IsArrow = e, isArrow
			if name != nil {
				node.Name = name.Ident
			}
			p.arena.SetParent(e, n)
			e = n
		case t.IsPunct(token.PIncr), t.IsPunct(token.PDecr):
			pos := posOf(p.sc.Next())
			n := p.arena.New(ast.PostIncrDecrExpr, pos)
			node := p.arena.Get(n)
			node.A = e
			if t.Punct == token.PIncr {
				node.UOp = ast.UnPostIncr
			} else {
				node.UOp = ast.UnPostDecr
			}
			p.arena.SetParent(e, n)
			e = n
		default:
			return e
		}
	}
}

// parsePrimary parses a primary-expression, per C99 6.5.1.
func (p *Parser) parsePrimary() ast.Handle {
	defer p.enter()()
	t := p.sc.Peek()
	switch t.Kind {
	case token.Ident:
		p.sc.Next()
		n := p.arena.New(ast.IdentExpr, posOf(t))
		p.arena.Get(n).Name = t.Ident
		return n
	case token.IntConst:
		p.sc.Next()
		n := p.arena.New(ast.IntLiteral, posOf(t))
		p.arena.Get(n).IntVal = t.IntVal
		return n
	case token.FloatConst:
		p.sc.Next()
		n := p.arena.New(ast.FloatLiteral, posOf(t))
		p.arena.Get(n).FloatVal = t.FloatVal
		return n
	case token.CharConst:
		p.sc.Next()
		n := p.arena.New(ast.CharLiteral, posOf(t))
		node := p.arena.Get(n)
		node.CharVal, node.Wide = t.CharVal, t.Wide
		return n
	case token.StringConst:
		p.sc.Next()
		n := p.arena.New(ast.StringLiteral, posOf(t))
		node := p.arena.Get(n)
		node.StrVal, node.Wide = t.StrVal, t.Wide
		return n
	case token.PunctKind:
		if t.Punct == token.PLParen {
			p.sc.Next()
			e := p.parseExpression()
			p.expected(isPunct(token.PRParen), "')'")
			return e
		}
	}
	p.bag.AddAt(diag.Error, toDiagPos(posOf(t)), p.depth, "expected expression, found %s", describe(t))
	return ast.NoHandle
}
