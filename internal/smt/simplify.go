package smt

// Simplify rebuilds a term bottom-up through the folding constructors.
// Constructors already fold eagerly, so this is mainly useful for terms
// assembled from pieces that were built before their subterms folded.
func Simplify(e Expr) Expr {
	switch e := e.(type) {
	case *ConstantExpr, *BoolConstExpr, *ConstExpr, *BoundVarExpr:
		return e
	case *NotExpr:
		return Not(Simplify(e.Expr))
	case *BinaryExpr:
		lhs, rhs := Simplify(e.LHS), Simplify(e.RHS)
		switch e.Op {
		case BVADD:
			return BVAdd(lhs, rhs)
		case BVMUL:
			return BVMul(lhs, rhs)
		case ULT:
			return Ult(lhs, rhs)
		case CONCAT:
			return Concat(lhs, rhs)
		case EQ:
			return Eq(lhs, rhs)
		case AND:
			return And(lhs, rhs)
		case OR:
			return Or(lhs, rhs)
		case IMPLIES:
			return Implies(lhs, rhs)
		}
		panic("unreachable")
	case *ExtractExpr:
		return Extract(e.High, e.Low, Simplify(e.Expr))
	case *ZExtExpr:
		return ZExt(e.Extra, Simplify(e.Expr))
	case *IteExpr:
		return Ite(Simplify(e.Cond), Simplify(e.Then), Simplify(e.Else))
	case *SelectExpr:
		return Select(Simplify(e.Array), Simplify(e.Index))
	case *LambdaExpr:
		return NewLambda(e.Bound, Simplify(e.Body))
	case *ApplyExpr:
		args := make([]Expr, len(e.Args))
		for i, a := range e.Args {
			args[i] = Simplify(a)
		}
		return e.Decl.Apply(args...)
	case *MultisetExpr:
		out := NewEmptyMultiset(e.ElemSort)
		for _, el := range e.Elems {
			out = out.Insert(Simplify(el))
		}
		return out
	}
	panic("unreachable")
}
