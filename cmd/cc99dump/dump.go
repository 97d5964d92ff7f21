package main

// dump.go holds the recursive printers the tokens/ast/air/localize
// subcommands use to render intermediate state as text; none of
// internal/ast or internal/air carry a String/Dump method of their
// own, since nothing in the core pipeline ever needs one.

import (
	"fmt"
	"io"
	"strings"

	"github.com/gmofishsauce/cc99/internal/air"
	"github.com/gmofishsauce/cc99/internal/ast"
	"github.com/gmofishsauce/cc99/internal/localize"
	"github.com/gmofishsauce/cc99/internal/token"
)

func printTokens(w io.Writer, head *token.Token) {
	for t := head; t != nil; t = t.Next {
		fmt.Fprintf(w, "%-4d:%-4d %s\n", t.Pos.Line, t.Pos.Col, tokenString(t))
		if t.Kind == token.EOF {
			break
		}
	}
}

func tokenString(t *token.Token) string {
	switch t.Kind {
	case token.EOF:
		return "EOF"
	case token.Ident:
		return "ident " + t.Ident
	case token.Keyword:
		return "keyword"
	case token.IntConst:
		return fmt.Sprintf("int %d (%s)", t.IntVal, t.IntType)
	case token.FloatConst:
		return fmt.Sprintf("float %g (%s)", t.FloatVal, t.FloatType)
	case token.CharConst:
		return fmt.Sprintf("char %q", t.CharVal)
	case token.StringConst:
		return fmt.Sprintf("string %q", string(t.StrVal))
	case token.PunctKind:
		return "punct"
	default:
		return "?"
	}
}

func printAST(w io.Writer, arena *ast.Arena, h ast.Handle) {
	printASTNode(w, arena, h, 0)
}

func printASTNode(w io.Writer, arena *ast.Arena, h ast.Handle, depth int) {
	n := arena.Get(h)
	if n == nil {
		return
	}
	indent := strings.Repeat("  ", depth)
	label := kindName(n.Kind)
	if n.Name != "" {
		label += " " + n.Name
	}
	if n.Type != nil {
		label += " : " + n.Type.String()
	}
	fmt.Fprintf(w, "%s%s\n", indent, label)
	for _, c := range []ast.Handle{n.A, n.B, n.C, n.D} {
		if c != ast.NoHandle {
			printASTNode(w, arena, c, depth+1)
		}
	}
	for _, c := range n.Children {
		printASTNode(w, arena, c, depth+1)
	}
}

func kindName(k ast.Kind) string {
	switch k {
	case ast.TranslationUnit:
		return "TranslationUnit"
	case ast.FuncDecl:
		return "FuncDecl"
	case ast.VarDecl:
		return "VarDecl"
	case ast.TypedefDecl:
		return "TypedefDecl"
	case ast.StructDecl:
		return "StructDecl"
	case ast.UnionDecl:
		return "UnionDecl"
	case ast.EnumDecl:
		return "EnumDecl"
	case ast.ParamDecl:
		return "ParamDecl"
	case ast.CompoundStmt:
		return "CompoundStmt"
	case ast.IfStmt:
		return "IfStmt"
	case ast.WhileStmt:
		return "WhileStmt"
	case ast.DoWhileStmt:
		return "DoWhileStmt"
	case ast.ForStmt:
		return "ForStmt"
	case ast.SwitchStmt:
		return "SwitchStmt"
	case ast.CaseStmt:
		return "CaseStmt"
	case ast.DefaultStmt:
		return "DefaultStmt"
	case ast.BreakStmt:
		return "BreakStmt"
	case ast.ContinueStmt:
		return "ContinueStmt"
	case ast.ReturnStmt:
		return "ReturnStmt"
	case ast.GotoStmt:
		return "GotoStmt"
	case ast.LabelStmt:
		return "LabelStmt"
	case ast.ExprStmt:
		return "ExprStmt"
	case ast.NullStmt:
		return "NullStmt"
	case ast.IdentExpr:
		return "IdentExpr"
	case ast.IntLiteral:
		return "IntLiteral"
	case ast.FloatLiteral:
		return "FloatLiteral"
	case ast.CharLiteral:
		return "CharLiteral"
	case ast.StringLiteral:
		return "StringLiteral"
	case ast.BinaryExpr:
		return "BinaryExpr"
	case ast.UnaryExpr:
		return "UnaryExpr"
	case ast.PreIncrDecrExpr:
		return "PreIncrDecrExpr"
	case ast.PostIncrDecrExpr:
		return "PostIncrDecrExpr"
	case ast.AssignExpr:
		return "AssignExpr"
	case ast.CompoundAssignExpr:
		return "CompoundAssignExpr"
	case ast.ConditionalExpr:
		return "ConditionalExpr"
	case ast.CastExpr:
		return "CastExpr"
	case ast.CallExpr:
		return "CallExpr"
	case ast.IndexExpr:
		return "IndexExpr"
	case ast.MemberExpr:
		return "MemberExpr"
	case ast.CommaExpr:
		return "CommaExpr"
	case ast.SizeofExprExpr:
		return "SizeofExprExpr"
	case ast.SizeofTypeExpr:
		return "SizeofTypeExpr"
	case ast.CompoundLiteralExpr:
		return "CompoundLiteralExpr"
	case ast.InitializerList:
		return "InitializerList"
	default:
		return "Invalid"
	}
}

func printFunc(w io.Writer, fn *air.Func) {
	fmt.Fprintf(w, "func %s:\n", fn.Name)
	fn.Walk(func(h air.InstrHandle, instr *air.Instruction) {
		fmt.Fprintf(w, "  %4d: %s\n", h, instrString(instr))
	})
}

func printLocalized(w io.Writer, fn *air.Func, rodata []localize.RodataConstant) {
	printFunc(w, fn)
	for _, rc := range rodata {
		fmt.Fprintf(w, "  .rodata %s align=%d bytes=%v\n", rc.Label, rc.Align, rc.Bytes)
	}
}

func instrString(instr *air.Instruction) string {
	var b strings.Builder
	b.WriteString(opName(instr.Op))
	if instr.Type != nil {
		b.WriteString(" ")
		b.WriteString(instr.Type.String())
	}
	for _, op := range instr.Operands {
		b.WriteString(" ")
		b.WriteString(operandString(op))
	}
	return b.String()
}

func operandString(op air.Operand) string {
	switch op.Kind {
	case air.OperandSymbol:
		return fmt.Sprintf("sym(%v)", op.Sym)
	case air.OperandVReg:
		return fmt.Sprintf("v%d", op.VReg)
	case air.OperandIndirect:
		if op.Index != 0 {
			return fmt.Sprintf("[v%d+v%d*%d%+d]", op.Base, op.Index, op.Scale, op.Offset)
		}
		return fmt.Sprintf("[v%d%+d]", op.Base, op.Offset)
	case air.OperandIndirectSymbol:
		if op.Label != "" {
			return fmt.Sprintf("[%s%+d]", op.Label, op.Offset)
		}
		return fmt.Sprintf("[sym(%v)%+d]", op.Sym, op.Offset)
	case air.OperandIntConst:
		return fmt.Sprintf("$%d", op.IntConst)
	case air.OperandFloatConst:
		return fmt.Sprintf("$%g", op.FloatConst)
	case air.OperandLabel:
		return op.Label
	case air.OperandTypeLiteral:
		if op.TypeLiteral != nil {
			return op.TypeLiteral.String()
		}
		return "<type>"
	default:
		return "<none>"
	}
}

func opName(op air.Op) string {
	switch op {
	case air.OpDeclare:
		return "declare"
	case air.OpLoad:
		return "load"
	case air.OpLoadAddr:
		return "loadaddr"
	case air.OpAssign:
		return "assign"
	case air.OpStoreAddr:
		return "storeaddr"
	case air.OpAdd:
		return "add"
	case air.OpSub:
		return "sub"
	case air.OpMul:
		return "mul"
	case air.OpDiv:
		return "div"
	case air.OpMod:
		return "mod"
	case air.OpBitAnd:
		return "and"
	case air.OpBitOr:
		return "or"
	case air.OpBitXor:
		return "xor"
	case air.OpShl:
		return "shl"
	case air.OpShr:
		return "shr"
	case air.OpNeg:
		return "neg"
	case air.OpBitNot:
		return "not"
	case air.OpLNot:
		return "lnot"
	case air.OpCmpEq:
		return "cmpeq"
	case air.OpCmpNe:
		return "cmpne"
	case air.OpCmpLt:
		return "cmplt"
	case air.OpCmpGt:
		return "cmpgt"
	case air.OpCmpLe:
		return "cmple"
	case air.OpCmpGe:
		return "cmpge"
	case air.OpSExt:
		return "sext"
	case air.OpZExt:
		return "zext"
	case air.OpTrunc:
		return "trunc"
	case air.OpS2D:
		return "s2d"
	case air.OpD2S:
		return "d2s"
	case air.OpS2SI:
		return "s2si"
	case air.OpS2UI:
		return "s2ui"
	case air.OpSI2S:
		return "si2s"
	case air.OpUI2S:
		return "ui2s"
	case air.OpJmp:
		return "jmp"
	case air.OpJz:
		return "jz"
	case air.OpJnz:
		return "jnz"
	case air.OpLabel:
		return "label"
	case air.OpPush:
		return "push"
	case air.OpFuncCall:
		return "call"
	case air.OpReturn:
		return "return"
	case air.OpLeave:
		return "leave"
	case air.OpNop:
		return "nop"
	case air.OpPhi:
		return "phi"
	case air.OpSequencePoint:
		return "seqpoint"
	case air.OpRetain:
		return "retain"
	case air.OpRestore:
		return "restore"
	default:
		return "invalid"
	}
}
