package aop

import (
	"fmt"

	"github.com/makslevental/mlir-tv/internal/smt"
)

// Reductions take an array (or lambda) operand and a logical length n. The
// operand is masked to n elements by wrapping it in
// lambda idx. ite(idx < n, a[idx], 0) and handed to an uninterpreted
// reduction function, so nothing outside [0, n) can influence the result.

func (e *Engine) indexVar() *smt.BoundVarExpr {
	return smt.NewBoundVar("idx", smt.BitVecSort(indexBits))
}

func (e *Engine) maskedLambda(a, n smt.Expr) *smt.LambdaExpr {
	i := e.indexVar()
	return smt.NewLambda(i, smt.Ite(smt.Ult(i, n), smt.Select(a, i), e.MkZeroElemFromArr(a)))
}

func (e *Engine) getIntSumFn(arrSort smt.Sort, bitwidth uint) *smt.FnDecl {
	if fn, ok := e.intSumFns[bitwidth]; ok {
		return fn
	}
	fn := smt.NewFnDecl(fmt.Sprintf("int_sum%d", bitwidth), []smt.Sort{arrSort}, smt.BitVecSort(bitwidth))
	e.intSumFns[bitwidth] = fn
	return fn
}

func (e *Engine) getIntDotFn(arrSort smt.Sort, bitwidth uint) *smt.FnDecl {
	if fn, ok := e.intDotFns[bitwidth]; ok {
		return fn
	}
	fn := smt.NewFnDecl(fmt.Sprintf("int_dot%d", bitwidth), []smt.Sort{arrSort, arrSort}, smt.BitVecSort(bitwidth))
	e.intDotFns[bitwidth] = fn
	return fn
}

// FpSum encodes the sum of the first n elements of a.
func (e *Engine) FpSum(a, n smt.Expr) smt.Expr {
	e.used.FpSum = true

	if e.fpAddAssociative && e.useMultiset {
		return e.fpMultisetSum(a, n)
	}

	lam := e.maskedLambda(a, n)
	if e.sumFn == nil {
		e.sumFn = smt.NewFnDecl("fp_sum", []smt.Sort{lam.Sort()}, e.FpSort())
	}
	result := e.sumFn.Apply(lam)

	if e.fpAddAssociative && smt.IsNumeral(n) {
		e.staticArrays = append(e.staticArrays, staticArray{operand: a, n: n, result: result})
	}
	return result
}

// fpMultisetSum encodes the sum as an uninterpreted function of the
// multiset of summed elements. Permuted arrays produce the same multiset,
// so this is exactly the associative-and-commutative sum; it requires the
// length to be a numeral because the multiset is built by unrolling.
func (e *Engine) fpMultisetSum(a, n smt.Expr) smt.Expr {
	length, ok := smt.AsUint64(n)
	if !ok {
		panic("aop: multiset sum requires an array of constant length")
	}

	bag := smt.NewEmptyMultiset(e.FpSort())
	for i := uint64(0); i < length; i++ {
		bag = bag.Insert(smt.Select(a, smt.NewBV(i, indexBits)))
	}

	if e.assocSumFn == nil {
		e.assocSumFn = smt.NewFnDecl("fp_assoc_sum", []smt.Sort{bag.Sort()}, e.FpSort())
	}
	result := e.assocSumFn.Apply(bag)

	e.staticArrays = append(e.staticArrays, staticArray{operand: bag, n: n, result: result})
	return result
}

// FpDot encodes the dot product of the first n elements of a and b.
func (e *Engine) FpDot(a, b, n smt.Expr) smt.Expr {
	switch e.alFpDot {
	case FpDotFullyAbs:
		e.used.FpDot = true

		la, lb := e.maskedLambda(a, n), e.maskedLambda(b, n)
		if e.dotFn == nil {
			e.dotFn = smt.NewFnDecl("fp_dot", []smt.Sort{la.Sort(), la.Sort()}, e.FpSort())
		}
		// dot(a, b) = dot(b, a)
		return smt.BVAdd(e.dotFn.Apply(la, lb), e.dotFn.Apply(lb, la))

	case FpDotSumMul:
		// usage flags for mul and sum are set by the calls below
		i := e.indexVar()
		arr := smt.NewLambda(i, e.FpMul(smt.Select(a, i), smt.Select(b, i)))
		return e.FpSum(arr, n)
	}
	panic("aop: unknown abstraction level for fp dot")
}

// IntSum encodes the sum of the first n elements of an integer array.
// Reduction functions are shared per element width within a session.
func (e *Engine) IntSum(a, n smt.Expr) smt.Expr {
	e.used.IntSum = true

	lam := e.maskedLambda(a, n)
	sumFn := e.getIntSumFn(lam.Sort(), e.MkZeroElemFromArr(a).Sort().Width())
	return sumFn.Apply(lam)
}

// IntDot encodes the dot product of the first n elements of two integer
// arrays.
func (e *Engine) IntDot(a, b, n smt.Expr) smt.Expr {
	switch e.alIntDot {
	case IntDotFullyAbs:
		e.used.IntDot = true

		la, lb := e.maskedLambda(a, n), e.maskedLambda(b, n)
		dotFn := e.getIntDotFn(la.Sort(), e.MkZeroElemFromArr(a).Sort().Width())
		return smt.BVAdd(dotFn.Apply(la, lb), dotFn.Apply(lb, la))

	case IntDotSumMul:
		i := e.indexVar()
		arr := smt.NewLambda(i, smt.BVMul(smt.Select(a, i), smt.Select(b, i)))
		return e.IntSum(arr, n)
	}
	panic("aop: unknown abstraction level for int dot")
}
