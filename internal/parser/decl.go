package parser

import (
	"github.com/gmofishsauce/cc99/internal/ast"
	"github.com/gmofishsauce/cc99/internal/symtab"
	"github.com/gmofishsauce/cc99/internal/token"
	"github.com/gmofishsauce/cc99/internal/types"
)

// parseExternalDeclaration parses one top-level declaration or
// function definition, per C99 6.9.
func (p *Parser) parseExternalDeclaration() ast.Handle {
	defer p.enter()()
	pos := posOf(p.sc.Peek())
	spec := p.parseDeclarationSpecifiers()

	if p.optional(isPunct(token.PSemi)) != nil {
		// A bare tag declaration with no declarator: "struct S;",
		// "union U { ... };", "enum { A, B };".
		n := p.arena.New(tagDeclKind(spec), pos)
		p.arena.Get(n).Type = resolvedType(spec)
		return n
	}

	tr, name := p.parseDeclarator(spec)
	if spec.storage == ast.SCTypedef {
		p.typedefNames.Declare(&symtab.Symbol{Name: name, NS: symtab.Ordinary(), Type: resolvedType(tr)})
		n := p.arena.New(ast.TypedefDecl, pos)
		node := p.arena.Get(n)
		node.Name, node.Type, node.StorageClass = name, resolvedType(tr), spec.storage
		p.expected(isPunct(token.PSemi), "';'")
		return n
	}

	if tr.isFunc && p.sc.Peek().IsPunct(token.PLBrace) {
		return p.parseFunctionDefinition(pos, name, tr, spec.storage)
	}

	n := p.arena.New(ast.VarDecl, pos)
	node := p.arena.Get(n)
	node.Name, node.Type, node.StorageClass = name, resolvedType(tr), spec.storage
	if p.optional(isPunct(token.PAssign)) != nil {
		var init ast.Handle
		if p.sc.Peek().IsPunct(token.PLBrace) {
			init = p.parseInitializerList()
		} else {
			init = p.parseAssignment()
		}
		node.A = init
		p.arena.SetParent(init, n)
	}
	for p.optional(isPunct(token.PComma)) != nil {
		p.parseDeclarator(spec)
		if p.optional(isPunct(token.PAssign)) != nil {
			if p.sc.Peek().IsPunct(token.PLBrace) {
				p.parseInitializerList()
			} else {
				p.parseAssignment()
			}
		}
	}
	p.expected(isPunct(token.PSemi), "';'")
	return n
}

// tagDeclKind picks the declaration node kind matching a bare tag
// declaration's specifier.
func tagDeclKind(spec *typeRef) ast.Kind {
	if spec.base != nil {
		switch spec.base.Kind {
		case types.Union:
			return ast.UnionDecl
		case types.Enum:
			return ast.EnumDecl
		}
	}
	return ast.StructDecl
}

// parseFunctionDefinition parses a function body following a
// function declarator, per C99 6.9.1.
func (p *Parser) parseFunctionDefinition(pos token.Pos, name string, tr *typeRef, sc ast.StorageClass) ast.Handle {
	n := p.arena.New(ast.FuncDecl, pos)
	node := p.arena.Get(n)
	node.Name, node.Type, node.StorageClass = name, resolvedType(tr), sc

	// A lone unnamed "(void)" parameter means no parameters, not one
	// void-typed parameter; every other slot becomes a ParamDecl child,
	// named when the declarator named it. The semantic analyzer fills
	// in each one's Sym once it opens the function's scope.
	skipVoid := len(tr.funcParams) == 1 && resolvedType(tr.funcParams[0]).Kind == types.Void
	if !skipVoid {
		for i, pt := range tr.funcParams {
			pname := ""
			if i < len(tr.funcParamNames) {
				pname = tr.funcParamNames[i]
			}
			ph := p.arena.New(ast.ParamDecl, pos)
			pn := p.arena.Get(ph)
			pn.Name, pn.Type = pname, resolvedType(pt)
			p.arena.SetParent(ph, n)
			node.Children = append(node.Children, ph)
		}
	}

	body := p.parseCompoundStatement()
	p.arena.SetParent(body, n)
	node.A = body
	return n
}

// parseInitializerList parses a brace-enclosed initializer list, per
// C99 6.7.8. Designated initializers are not part of this subset
// (supported-subset declarations do not mention them);
// plain positional elements are supported.
func (p *Parser) parseInitializerList() ast.Handle {
	defer p.enter()()
	pos := posOf(p.sc.Peek())
	p.expected(isPunct(token.PLBrace), "'{'")
	n := p.arena.New(ast.InitializerList, pos)
	node := p.arena.Get(n)
	if !p.sc.Peek().IsPunct(token.PRBrace) {
		for {
			var elem ast.Handle
			if p.sc.Peek().IsPunct(token.PLBrace) {
				elem = p.parseInitializerList()
			} else {
				elem = p.parseAssignment()
			}
			p.arena.SetParent(elem, n)
			node.Children = append(node.Children, elem)
			if p.optional(isPunct(token.PComma)) == nil {
				break
			}
			if p.sc.Peek().IsPunct(token.PRBrace) {
				break
			}
		}
	}
	p.expected(isPunct(token.PRBrace), "'}'")
	return n
}

// parseBlockItemDeclaration parses a declaration appearing as a block
// item inside a compound statement (C99 6.8.2's declaration
// alternative), sharing the specifier/declarator machinery with
// parseExternalDeclaration but never admitting a function definition.
func (p *Parser) parseBlockItemDeclaration() ast.Handle {
	defer p.enter()()
	pos := posOf(p.sc.Peek())
	spec := p.parseDeclarationSpecifiers()

	if p.optional(isPunct(token.PSemi)) != nil {
		n := p.arena.New(tagDeclKind(spec), pos)
		p.arena.Get(n).Type = resolvedType(spec)
		return n
	}

	tr, name := p.parseDeclarator(spec)

	if spec.storage == ast.SCTypedef {
		p.typedefNames.Declare(&symtab.Symbol{Name: name, NS: symtab.Ordinary(), Type: resolvedType(tr)})
		n := p.arena.New(ast.TypedefDecl, pos)
		node := p.arena.Get(n)
		node.Name, node.Type, node.StorageClass = name, resolvedType(tr), spec.storage
		p.expected(isPunct(token.PSemi), "';'")
		return n
	}

	n := p.arena.New(ast.VarDecl, pos)
	node := p.arena.Get(n)
	node.Name, node.Type, node.StorageClass = name, resolvedType(tr), spec.storage
	if p.optional(isPunct(token.PAssign)) != nil {
		var init ast.Handle
		if p.sc.Peek().IsPunct(token.PLBrace) {
			init = p.parseInitializerList()
		} else {
			init = p.parseAssignment()
		}
		node.A = init
		p.arena.SetParent(init, n)
	}
	for p.optional(isPunct(token.PComma)) != nil {
		p.parseDeclarator(spec)
	}
	p.expected(isPunct(token.PSemi), "';'")
	return n
}
