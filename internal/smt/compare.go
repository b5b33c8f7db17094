package smt

import "strings"

// exprRank orders term kinds for the structural comparator.
func exprRank(e Expr) int {
	switch e.(type) {
	case *ConstantExpr:
		return 0
	case *BoolConstExpr:
		return 1
	case *ConstExpr:
		return 2
	case *BoundVarExpr:
		return 3
	case *NotExpr:
		return 4
	case *BinaryExpr:
		return 5
	case *ExtractExpr:
		return 6
	case *ZExtExpr:
		return 7
	case *IteExpr:
		return 8
	case *SelectExpr:
		return 9
	case *LambdaExpr:
		return 10
	case *ApplyExpr:
		return 11
	case *MultisetExpr:
		return 12
	}
	panic("unreachable")
}

func compareUint(a, b uint64) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// Compare defines a deterministic total order on terms. It returns 0 exactly
// when a and b are structurally identical.
func Compare(a, b Expr) int {
	if ra, rb := exprRank(a), exprRank(b); ra != rb {
		return ra - rb
	}
	switch a := a.(type) {
	case *ConstantExpr:
		b := b.(*ConstantExpr)
		if c := compareUint(uint64(a.Width), uint64(b.Width)); c != 0 {
			return c
		}
		return compareUint(a.Value, b.Value)
	case *BoolConstExpr:
		b := b.(*BoolConstExpr)
		if a.Value == b.Value {
			return 0
		}
		if !a.Value {
			return -1
		}
		return 1
	case *ConstExpr:
		b := b.(*ConstExpr)
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return compareSort(a.ConstSort, b.ConstSort)
	case *BoundVarExpr:
		b := b.(*BoundVarExpr)
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return compareSort(a.VarSort, b.VarSort)
	case *NotExpr:
		return Compare(a.Expr, b.(*NotExpr).Expr)
	case *BinaryExpr:
		b := b.(*BinaryExpr)
		if c := int(a.Op) - int(b.Op); c != 0 {
			return c
		}
		if c := Compare(a.LHS, b.LHS); c != 0 {
			return c
		}
		return Compare(a.RHS, b.RHS)
	case *ExtractExpr:
		b := b.(*ExtractExpr)
		if c := compareUint(uint64(a.High), uint64(b.High)); c != 0 {
			return c
		}
		if c := compareUint(uint64(a.Low), uint64(b.Low)); c != 0 {
			return c
		}
		return Compare(a.Expr, b.Expr)
	case *ZExtExpr:
		b := b.(*ZExtExpr)
		if c := compareUint(uint64(a.Extra), uint64(b.Extra)); c != 0 {
			return c
		}
		return Compare(a.Expr, b.Expr)
	case *IteExpr:
		b := b.(*IteExpr)
		if c := Compare(a.Cond, b.Cond); c != 0 {
			return c
		}
		if c := Compare(a.Then, b.Then); c != 0 {
			return c
		}
		return Compare(a.Else, b.Else)
	case *SelectExpr:
		b := b.(*SelectExpr)
		if c := Compare(a.Array, b.Array); c != 0 {
			return c
		}
		return Compare(a.Index, b.Index)
	case *LambdaExpr:
		b := b.(*LambdaExpr)
		if c := Compare(a.Bound, b.Bound); c != 0 {
			return c
		}
		return Compare(a.Body, b.Body)
	case *ApplyExpr:
		b := b.(*ApplyExpr)
		if c := strings.Compare(a.Decl.Name(), b.Decl.Name()); c != 0 {
			return c
		}
		if c := len(a.Args) - len(b.Args); c != 0 {
			return c
		}
		for i := range a.Args {
			if c := Compare(a.Args[i], b.Args[i]); c != 0 {
				return c
			}
		}
		return 0
	case *MultisetExpr:
		b := b.(*MultisetExpr)
		if c := compareSort(a.ElemSort, b.ElemSort); c != 0 {
			return c
		}
		if c := len(a.Elems) - len(b.Elems); c != 0 {
			return c
		}
		for i := range a.Elems {
			if c := Compare(a.Elems[i], b.Elems[i]); c != 0 {
				return c
			}
		}
		return 0
	}
	panic("unreachable")
}

// Equal reports structural identity of two terms.
func Equal(a, b Expr) bool {
	return Compare(a, b) == 0
}
