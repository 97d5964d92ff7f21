package parser

import (
	"github.com/gmofishsauce/cc99/internal/ast"
	"github.com/gmofishsauce/cc99/internal/diag"
	"github.com/gmofishsauce/cc99/internal/symtab"
	"github.com/gmofishsauce/cc99/internal/token"
	"github.com/gmofishsauce/cc99/internal/types"
)

// typeRef is the parser's working representation of a type while
// still assembling it from declaration-specifiers and a declarator:
// unlike types.Type, it is mutable and mid-construction, and is
// resolved into a *types.Type only once complete via resolvedType.
// Struct/union/enum specifiers resolve against the tag namespaces as
// they are parsed (parseTagType), so base already points at the shared
// tag type by the time a declarator wraps it.
type typeRef struct {
	base *types.Type // fully formed for basic/struct-stub/enum-stub kinds

	// ptrQuals, outermost first, wraps base in successive pointer
	// derivations as the declarator is walked right-to-left.
	ptrQuals []types.Qualifier

	arrayLen *int64 // set when this typeRef denotes an array of base
	isArray  bool

	funcParams   []*typeRef
	funcParamNames []string
	funcVariadic bool
	isFunc       bool

	storage ast.StorageClass
	inline  bool
}

// resolvedType collapses a typeRef into a concrete *types.Type.
func resolvedType(tr *typeRef) *types.Type {
	if tr == nil {
		return types.Basic(types.Error)
	}
	t := tr.base
	if tr.isArray {
		t = types.ArrayOf(t, tr.arrayLen)
	}
	if tr.isFunc {
		params := make([]*types.Type, len(tr.funcParams))
		for i, p := range tr.funcParams {
			params[i] = resolvedType(p)
		}
		fs := types.FuncSpecNone
		if tr.inline {
			fs = types.FuncSpecInline
		}
		t = &types.Type{Kind: types.Function, Of: t, Params: params, Variadic: tr.funcVariadic, FuncSpec: fs}
	}
	for i := len(tr.ptrQuals) - 1; i >= 0; i-- {
		t = types.PointerTo(t, tr.ptrQuals[i])
	}
	return t
}

var keywordBasicType = map[token.KeywordID]types.Kind{
	token.KwVoid:   types.Void,
	token.KwBool:   types.Bool,
	token.KwChar:   types.Char,
	token.KwShort:  types.Short,
	token.KwInt:    types.Int,
	token.KwLong:   types.Long,
	token.KwFloat:  types.Float,
	token.KwDouble: types.Double,
}

// startsTypeName reports whether the current token can begin a
// type-name: a type-specifier keyword, a type qualifier, or an
// identifier currently in scope as a typedef name.
func (p *Parser) startsTypeName() bool {
	t := p.sc.Peek()
	if t.Kind == token.Keyword {
		switch t.Keyword {
		case token.KwVoid, token.KwBool, token.KwChar, token.KwShort, token.KwInt,
			token.KwLong, token.KwFloat, token.KwDouble, token.KwSigned, token.KwUnsigned,
			token.KwStruct, token.KwUnion, token.KwEnum,
			token.KwConst, token.KwRestrict, token.KwVolatile,
			token.KwComplex, token.KwImaginary:
			return true
		}
		return false
	}
	if t.Kind == token.Ident {
		return p.isTypedefName(t.Ident)
	}
	return false
}

// parseDeclarationSpecifiers parses storage-class specifiers, type
// specifiers/qualifiers, and function specifiers, per C99 6.7. It
// stops at the first token that cannot extend the specifier list,
// leaving the declarator for the caller.
func (p *Parser) parseDeclarationSpecifiers() *typeRef {
	defer p.enter()()
	tr := &typeRef{}
	var signed, unsigned, short, complexSeen bool
	var long int
	var qual types.Qualifier
	var kind types.Kind = types.Int // default-int fallback for K&R-flavored declarations
	kindSet := false

	for {
		t := p.sc.Peek()
		if t.Kind != token.Keyword {
			break
		}
		switch t.Keyword {
		case token.KwTypedef:
			tr.storage = ast.SCTypedef
		case token.KwExtern:
			tr.storage = ast.SCExtern
		case token.KwStatic:
			tr.storage = ast.SCStatic
		case token.KwAuto:
			tr.storage = ast.SCAuto
		case token.KwRegister:
			tr.storage = ast.SCRegister
		case token.KwConst:
			qual |= types.QualConst
		case token.KwRestrict:
			qual |= types.QualRestrict
		case token.KwVolatile:
			qual |= types.QualVolatile
		case token.KwInline:
			tr.inline = true
		case token.KwSigned:
			signed = true
		case token.KwUnsigned:
			unsigned = true
		case token.KwLong:
			long++
		case token.KwShort:
			short = true
		case token.KwComplex:
			complexSeen = true
		case token.KwImaginary:
			complexSeen = true
		case token.KwStruct, token.KwUnion, token.KwEnum:
			p.sc.Next()
			tr.base = p.parseTagType(t.Keyword)
			kindSet = true
			continue
		default:
			if bk, ok := keywordBasicType[t.Keyword]; ok {
				kind, kindSet = bk, true
			} else {
				goto done
			}
		}
		p.sc.Next()
		continue
	done:
		break
	}
	// identifiers only extend the specifier list when they name a
	// typedef and no type specifier has been seen yet.
	if !kindSet && p.sc.Peek().Kind == token.Ident && p.isTypedefName(p.sc.Peek().Ident) {
		sym := p.typedefNames.Lookup(p.sc.Peek().Ident, symtab.Ordinary())
		p.sc.Next()
		if sym != nil {
			tr.base = sym.Type
			kindSet = true
		}
	}

	if tr.base == nil {
		switch {
		case long > 0 && kind == types.Double:
			kind = types.LongDouble
		case long >= 2 && unsigned:
			kind = types.ULongLong
		case long >= 2:
			kind = types.LongLong
		case long == 1 && unsigned:
			kind = types.ULong
		case long == 1:
			kind = types.Long
		case short && unsigned:
			kind = types.UShort
		case short:
			kind = types.Short
		case unsigned && kind == types.Char:
			kind = types.UChar
		case unsigned:
			kind = types.UInt
		case signed && kind == types.Char:
			kind = types.SChar
		case signed && kind == types.Int:
			kind = types.Int
		}
		if complexSeen {
			switch kind {
			case types.Float:
				kind = types.FloatComplex
			case types.Double:
				kind = types.DoubleComplex
			case types.LongDouble:
				kind = types.LongDoubleComplex
			}
		}
		tr.base = types.Basic(kind)
	}
	if qual != 0 {
		// Qualifying copies the type; unqualified declarations keep the
		// shared tag-type identity intact.
		tr.base = tr.base.Qualified(qual)
	}
	return tr
}

// parseTagType parses a struct/union/enum specifier after its keyword:
// an optional tag, then an optional body. A specifier with a tag and a
// body installs the tag symbol in the matching tag namespace; a tag
// reference without a body resolves against that namespace, entering a
// forward declaration when the tag is not yet known, so every mention
// of one tag shares one *types.Type and a later body completes all of
// them at once.
func (p *Parser) parseTagType(kw token.KeywordID) *types.Type {
	defer p.enter()()
	var kind types.Kind
	var ns symtab.Namespace
	switch kw {
	case token.KwStruct:
		kind, ns = types.Struct, symtab.Tag(symtab.NSTagStruct)
	case token.KwUnion:
		kind, ns = types.Union, symtab.Tag(symtab.NSTagUnion)
	default:
		kind, ns = types.Enum, symtab.Tag(symtab.NSTagEnum)
	}

	tag := ""
	if t := p.optional(isIdent); t != nil {
		tag = t.Ident
	}

	hasBody := p.sc.Peek().IsPunct(token.PLBrace)
	ty := (*types.Type)(nil)
	if tag != "" {
		if sym := p.syms.Lookup(tag, ns); sym != nil {
			ty = sym.Type
		}
	}
	if ty == nil {
		ty = &types.Type{Kind: kind, Tag: tag}
		if tag != "" {
			p.syms.Declare(&symtab.Symbol{Name: tag, NS: ns, Type: ty})
		}
	}
	if !hasBody {
		return ty
	}
	if ty.Defined {
		// A second body for an already-defined tag: parse into a fresh
		// type so the redefinition does not corrupt the first. The
		// redefinition itself is not diagnosed.
		ty = &types.Type{Kind: kind, Tag: tag}
	}
	if kind == types.Enum {
		p.parseEnumeratorList(ty)
	} else {
		p.parseMemberList(ty)
	}
	return ty
}

// parseMemberList parses a brace-enclosed struct-declaration-list into
// ty's member set, laying the members out as soon as the body closes.
func (p *Parser) parseMemberList(ty *types.Type) {
	p.expected(isPunct(token.PLBrace), "'{'")
	for !p.sc.Peek().IsPunct(token.PRBrace) && !p.sc.AtEOF() {
		mark := p.sc.Mark()
		spec := p.parseDeclarationSpecifiers()
		for {
			var memberType *types.Type
			name := ""
			width := -1
			if !p.sc.Peek().IsPunct(token.PColon) {
				tr, declName := p.parseDeclarator(spec)
				memberType = resolvedType(tr)
				name = declName
			} else {
				memberType = resolvedType(spec) // unnamed bit-field padding
			}
			if p.optional(isPunct(token.PColon)) != nil {
				width = p.parseBitFieldWidth(memberType)
			}
			ty.Members = append(ty.Members, types.Member{Name: name, Type: memberType, BitWidth: width})
			if p.optional(isPunct(token.PComma)) == nil {
				break
			}
		}
		p.expected(isPunct(token.PSemi), "';'")
		if p.sc.Mark() == mark {
			p.sc.Next() // never stall on an unparsable member
		}
	}
	p.expected(isPunct(token.PRBrace), "'}'")
	if n := len(ty.Members); n > 0 {
		last := ty.Members[n-1].Type
		ty.HasFlexArr = last.Kind == types.Array && last.Len == nil
	}
	ty.Defined = true
	types.LayoutMembers(ty)
}

// parseBitFieldWidth parses and checks a member's bit-field width: it
// must be a nonnegative integer constant no wider than the member's
// declared type.
func (p *Parser) parseBitFieldWidth(memberType *types.Type) int {
	pos := posOf(p.sc.Peek())
	h := p.parseConditional()
	v, ok := p.evalConstInt(h)
	if !ok {
		return -1
	}
	if v < 0 || (memberType != nil && memberType.Size() > 0 && v > memberType.Size()*8) {
		p.bag.AddAt(diag.Error, toDiagPos(pos), p.depth, "bit-field width %d exceeds the width of its type", v)
		return -1
	}
	return int(v)
}

// parseEnumeratorList parses a brace-enclosed enumerator list,
// declaring each enumeration constant as an ordinary-namespace symbol
// with its evaluated value, so later constant expressions (including
// later enumerators in the same list) can refer to it.
func (p *Parser) parseEnumeratorList(ty *types.Type) {
	p.expected(isPunct(token.PLBrace), "'{'")
	next := int64(0)
	for !p.sc.Peek().IsPunct(token.PRBrace) && !p.sc.AtEOF() {
		id := p.expected(isIdent, "enumerator name")
		if id == nil {
			break
		}
		val := next
		if p.optional(isPunct(token.PAssign)) != nil {
			h := p.parseConditional()
			if v, ok := p.evalConstInt(h); ok {
				val = v
			}
		}
		p.syms.Declare(&symtab.Symbol{
			Name:        id.Ident,
			NS:          symtab.Ordinary(),
			Type:        types.Basic(types.Int),
			IsEnumConst: true,
			EnumVal:     val,
		})
		ty.EnumConsts = append(ty.EnumConsts, types.EnumConst{Name: id.Ident, Value: val})
		next = val + 1
		if p.optional(isPunct(token.PComma)) == nil {
			break
		}
	}
	p.expected(isPunct(token.PRBrace), "'}'")
	ty.Defined = true
}

// parseDeclarator parses a (possibly abstract) declarator: pointer
// derivations followed by a direct-declarator, per C99 6.7.5. name
// receives the declared identifier, empty for an abstract declarator.
func (p *Parser) parseDeclarator(base *typeRef) (tr *typeRef, name string) {
	defer p.enter()()
	tr = &typeRef{base: base.base, storage: base.storage, inline: base.inline}
	for p.optional(isPunct(token.PStar)) != nil {
		var q types.Qualifier
		for {
			t := p.sc.Peek()
			if t.IsKeyword(token.KwConst) {
				q |= types.QualConst
			} else if t.IsKeyword(token.KwRestrict) {
				q |= types.QualRestrict
			} else if t.IsKeyword(token.KwVolatile) {
				q |= types.QualVolatile
			} else {
				break
			}
			p.sc.Next()
		}
		tr.ptrQuals = append(tr.ptrQuals, q)
	}
	name = p.parseDirectDeclarator(tr)
	return tr, name
}

func (p *Parser) parseDirectDeclarator(tr *typeRef) (name string) {
	defer p.enter()()
	if p.sc.Peek().IsPunct(token.PLParen) {
		mark := p.sc.Mark()
		p.sc.Next()
		if !p.sc.Peek().IsPunct(token.PRParen) && !p.startsParamTypeList() {
			inner, innerName := p.parseDeclarator(&typeRef{base: tr.base, storage: tr.storage, inline: tr.inline})
			p.expected(isPunct(token.PRParen), "')'")
			p.parseDeclaratorSuffixes(inner)
			inner.ptrQuals = append(append([]types.Qualifier{}, tr.ptrQuals...), inner.ptrQuals...)
			*tr = *inner
			return innerName
		}
		p.sc.Reset(mark)
	}
	if t := p.optional(isIdent); t != nil {
		name = t.Ident
	}
	p.parseDeclaratorSuffixes(tr)
	return name
}

func (p *Parser) startsParamTypeList() bool {
	return p.startsTypeName()
}

// parseDeclaratorSuffixes consumes trailing [..] and (..) suffixes,
// applying array-of/function-returning wrapping in the order C's
// "declaration follows use" grammar implies (left-to-right as written,
// composed innermost-first).
func (p *Parser) parseDeclaratorSuffixes(tr *typeRef) {
	for {
		switch {
		case p.sc.Peek().IsPunct(token.PLBracket):
			p.sc.Next()
			var length *int64
			if !p.sc.Peek().IsPunct(token.PRBracket) {
				// Array bounds in this subset are integer constant
				// expressions (no runtime-extent VLAs); the evaluator
				// resolves enumeration constants and folded sizeofs the
				// same way it does for case labels.
				h := p.parseConditional()
				if v, ok := p.evalConstInt(h); ok {
					length = &v
				}
			}
			p.expected(isPunct(token.PRBracket), "']'")
			inner := &typeRef{base: tr.base, ptrQuals: tr.ptrQuals, isArray: tr.isArray, arrayLen: tr.arrayLen, isFunc: tr.isFunc, funcParams: tr.funcParams, funcVariadic: tr.funcVariadic}
			tr.base = resolvedType(inner)
			tr.ptrQuals = nil
			tr.isArray = true
			tr.arrayLen = length
			tr.isFunc = false
		case p.sc.Peek().IsPunct(token.PLParen):
			p.sc.Next()
			var params []*typeRef
			var paramNames []string
			variadic := false
			if !p.sc.Peek().IsPunct(token.PRParen) {
				for {
					if p.optional(isPunct(token.PEllipsis)) != nil {
						variadic = true
						break
					}
					spec := p.parseDeclarationSpecifiers()
					ptr, pname := p.parseDeclarator(spec)
					params = append(params, ptr)
					paramNames = append(paramNames, pname)
					if p.optional(isPunct(token.PComma)) == nil {
						break
					}
				}
			}
			p.expected(isPunct(token.PRParen), "')'")
			inner := &typeRef{base: tr.base, ptrQuals: tr.ptrQuals, isArray: tr.isArray, arrayLen: tr.arrayLen}
			tr.base = resolvedType(inner)
			tr.ptrQuals = nil
			tr.isArray = false
			tr.isFunc = true
			tr.funcParams = params
			tr.funcParamNames = paramNames
			tr.funcVariadic = variadic
		default:
			return
		}
	}
}

// parseTypeName parses a type-name (abstract declarator, no
// identifier), per C99 6.7.6, used by cast-expressions, sizeof, and
// compound literals.
func (p *Parser) parseTypeName() *typeRef {
	defer p.enter()()
	spec := p.parseDeclarationSpecifiers()
	tr, _ := p.parseDeclarator(spec)
	return tr
}

