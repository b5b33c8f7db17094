package smt

import (
	"fmt"
	"sort"
	"strings"
)

// Print serializes a term as SMT-LIB2. Multisets are lowered to counting
// arrays (element -> Int) so any SMT-LIB consumer with array and integer
// support can read the output.
func Print(e Expr) string {
	var b strings.Builder
	printExpr(&b, e)
	return b.String()
}

func printExpr(b *strings.Builder, e Expr) {
	switch e := e.(type) {
	case *ConstantExpr:
		fmt.Fprintf(b, "(_ bv%d %d)", e.Value, e.Width)
	case *BoolConstExpr:
		if e.Value {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case *ConstExpr:
		b.WriteString(e.Name)
	case *BoundVarExpr:
		b.WriteString(e.Name)
	case *NotExpr:
		b.WriteString("(not ")
		printExpr(b, e.Expr)
		b.WriteString(")")
	case *BinaryExpr:
		fmt.Fprintf(b, "(%s ", e.Op)
		printExpr(b, e.LHS)
		b.WriteString(" ")
		printExpr(b, e.RHS)
		b.WriteString(")")
	case *ExtractExpr:
		fmt.Fprintf(b, "((_ extract %d %d) ", e.High, e.Low)
		printExpr(b, e.Expr)
		b.WriteString(")")
	case *ZExtExpr:
		fmt.Fprintf(b, "((_ zero_extend %d) ", e.Extra)
		printExpr(b, e.Expr)
		b.WriteString(")")
	case *IteExpr:
		b.WriteString("(ite ")
		printExpr(b, e.Cond)
		b.WriteString(" ")
		printExpr(b, e.Then)
		b.WriteString(" ")
		printExpr(b, e.Else)
		b.WriteString(")")
	case *SelectExpr:
		b.WriteString("(select ")
		printExpr(b, e.Array)
		b.WriteString(" ")
		printExpr(b, e.Index)
		b.WriteString(")")
	case *LambdaExpr:
		fmt.Fprintf(b, "(lambda ((%s %s)) ", e.Bound.Name, e.Bound.VarSort)
		printExpr(b, e.Body)
		b.WriteString(")")
	case *ApplyExpr:
		fmt.Fprintf(b, "(%s", e.Decl.Name())
		for _, a := range e.Args {
			b.WriteString(" ")
			printExpr(b, a)
		}
		b.WriteString(")")
	case *MultisetExpr:
		printMultiset(b, e)
	default:
		panic("unreachable")
	}
}

func printMultiset(b *strings.Builder, m *MultisetExpr) {
	acc := fmt.Sprintf("((as const %s) 0)", m.Sort())
	for _, el := range m.Elems {
		var eb strings.Builder
		printExpr(&eb, el)
		acc = fmt.Sprintf("(store %s %s (+ (select %s %s) 1))", acc, eb.String(), acc, eb.String())
	}
	b.WriteString(acc)
}

// CollectSymbols walks the given terms and returns every free uninterpreted
// constant and function declaration, deduplicated by name and sorted.
func CollectSymbols(exprs ...Expr) ([]*ConstExpr, []*FnDecl) {
	consts := map[string]*ConstExpr{}
	decls := map[string]*FnDecl{}
	for _, e := range exprs {
		collect(e, consts, decls)
	}
	cs := make([]*ConstExpr, 0, len(consts))
	for _, c := range consts {
		cs = append(cs, c)
	}
	sort.Slice(cs, func(i, j int) bool { return cs[i].Name < cs[j].Name })
	ds := make([]*FnDecl, 0, len(decls))
	for _, d := range decls {
		ds = append(ds, d)
	}
	sort.Slice(ds, func(i, j int) bool { return ds[i].Name() < ds[j].Name() })
	return cs, ds
}

func collect(e Expr, consts map[string]*ConstExpr, decls map[string]*FnDecl) {
	switch e := e.(type) {
	case *ConstantExpr, *BoolConstExpr, *BoundVarExpr:
	case *ConstExpr:
		consts[e.Name] = e
	case *NotExpr:
		collect(e.Expr, consts, decls)
	case *BinaryExpr:
		collect(e.LHS, consts, decls)
		collect(e.RHS, consts, decls)
	case *ExtractExpr:
		collect(e.Expr, consts, decls)
	case *ZExtExpr:
		collect(e.Expr, consts, decls)
	case *IteExpr:
		collect(e.Cond, consts, decls)
		collect(e.Then, consts, decls)
		collect(e.Else, consts, decls)
	case *SelectExpr:
		collect(e.Array, consts, decls)
		collect(e.Index, consts, decls)
	case *LambdaExpr:
		collect(e.Body, consts, decls)
	case *ApplyExpr:
		decls[e.Decl.Name()] = e.Decl
		for _, a := range e.Args {
			collect(a, consts, decls)
		}
	case *MultisetExpr:
		for _, el := range e.Elems {
			collect(el, consts, decls)
		}
	default:
		panic("unreachable")
	}
}

// Decls renders declare-const / declare-fun lines for every free symbol of
// the given terms.
func Decls(exprs ...Expr) []string {
	consts, fns := CollectSymbols(exprs...)
	lines := make([]string, 0, len(consts)+len(fns))
	for _, c := range consts {
		lines = append(lines, fmt.Sprintf("(declare-const %s %s)", c.Name, c.ConstSort))
	}
	for _, d := range fns {
		doms := make([]string, len(d.Domain()))
		for i, s := range d.Domain() {
			doms[i] = s.String()
		}
		lines = append(lines, fmt.Sprintf("(declare-fun %s (%s) %s)", d.Name(), strings.Join(doms, " "), d.Range()))
	}
	return lines
}
