package ast

import (
	"fmt"
	"strings"
)

// exprString renders an Expr using the toy-language surface syntax.
func exprString(e Expr) string {
	switch v := e.(type) {
	case Num:
		return fmt.Sprintf("%d", v.Value)
	case Var:
		return v.Name
	default:
		return "?expr"
	}
}

// condString renders a CondExpr using the toy-language surface syntax.
func condString(c CondExpr) string {
	switch v := c.(type) {
	case Neg:
		return fmt.Sprintf("!(%s)", condString(v.X))
	case And:
		return fmt.Sprintf("(%s) && (%s)", condString(v.Left), condString(v.Right))
	case Eq:
		return fmt.Sprintf("%s == %s", exprString(v.Left), exprString(v.Right))
	case Leq:
		return fmt.Sprintf("%s <= %s", exprString(v.Left), exprString(v.Right))
	default:
		return "?cond"
	}
}

// logicIntString renders a LogicInt using the toy-language surface syntax.
func logicIntString(l LogicInt) string {
	switch v := l.(type) {
	case LogicNum:
		return fmt.Sprintf("%d", v.Value)
	case LogicVar:
		return fmt.Sprintf("%s.%s", v.Thread, v.Variable)
	default:
		return "?logicint"
	}
}

// logicExprString renders a LogicExpr using the toy-language surface syntax.
func logicExprString(l LogicExpr) string {
	switch v := l.(type) {
	case LogicNeg:
		return fmt.Sprintf("!(%s)", logicExprString(v.X))
	case LogicAnd:
		return fmt.Sprintf("(%s) && (%s)", logicExprString(v.Left), logicExprString(v.Right))
	case LogicEq:
		return fmt.Sprintf("%s == %s", logicIntString(v.Left), logicIntString(v.Right))
	case LogicLeq:
		return fmt.Sprintf("%s <= %s", logicIntString(v.Left), logicIntString(v.Right))
	default:
		return "?logicexpr"
	}
}

func statementString(s Statement, indent int) string {
	pad := strings.Repeat(" ", indent)
	switch v := s.(type) {
	case *Assign:
		return fmt.Sprintf("%slet %s: u32 = %s;", pad, v.Name, exprString(v.Value))
	case *Modify:
		return fmt.Sprintf("%s%s = %s;", pad, v.Name, exprString(v.Value))
	case *Fence:
		return fmt.Sprintf("%sFence(%s);", pad, v.Kind)
	case *If:
		var b strings.Builder
		fmt.Fprintf(&b, "%sif (%s) {\n", pad, condString(v.Cond))
		for _, stmt := range v.Then {
			b.WriteString(statementString(stmt, indent+4))
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s} else {\n", pad)
		for _, stmt := range v.Else {
			b.WriteString(statementString(stmt, indent+4))
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s}", pad)

		return b.String()
	case *While:
		var b strings.Builder
		if len(v.Body) == 0 {
			fmt.Fprintf(&b, "%swhile (%s) {}", pad, condString(v.Cond))

			return b.String()
		}
		fmt.Fprintf(&b, "%swhile (%s) {\n", pad, condString(v.Cond))
		for _, stmt := range v.Body {
			b.WriteString(statementString(stmt, indent+4))
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s}", pad)

		return b.String()
	default:
		return pad + "?stmt"
	}
}

// String renders the program using the toy-language surface syntax,
// suitable for round-tripping through the parser and for diagnostics.
func (p *Program) String() string {
	var b strings.Builder
	for _, init := range p.Init {
		fmt.Fprintf(&b, "let %s: u32 = %s;\n", init.Name, exprString(init.Value))
	}
	b.WriteByte('\n')
	for _, thread := range p.Threads {
		fmt.Fprintf(&b, "thread %s {\n", thread.Name)
		for _, stmt := range thread.Instructions {
			b.WriteString(statementString(stmt, 4))
			b.WriteByte('\n')
		}
		b.WriteString("}\n\n")
	}
	b.WriteString("final {\n")
	for _, expr := range p.Assert {
		fmt.Fprintf(&b, "    assert( %s );\n", logicExprString(expr))
	}
	b.WriteString("}")

	return b.String()
}
