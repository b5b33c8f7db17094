package aop

import (
	"fmt"

	"github.com/makslevental/mlir-tv/internal/smt"
)

func (e *Engine) freshName(prefix string) string {
	name := fmt.Sprintf("%s%d", prefix, e.hashCount)
	e.hashCount++
	return name
}

// FpAssociativePrecondition builds the side condition that lets a solver
// relate independent reductions of equal literal length. It must be
// asserted alongside the main query whenever float addition is treated as
// associative.
//
// In multiset mode, equal multisets must yield equal sums; spelling the
// instance out at the term level lets the solver specialize the
// uninterpreted-function axiom. In lambda mode, a fresh hash function per
// pair encodes the contrapositive: if two sums differ, some hash
// distinguishes the element multisets, so agreeing hash sums force sum
// equality.
func (e *Engine) FpAssociativePrecondition() smt.Expr {
	if !e.fpAddAssociative {
		panic("aop: associativity precondition requested while fp add is not associative")
	}

	precond := smt.Expr(smt.NewBoolVal(true))

	if e.useMultiset {
		for i := 0; i < len(e.staticArrays); i++ {
			for j := i + 1; j < len(e.staticArrays); j++ {
				abag, an, asum := e.staticArrays[i].operand, e.staticArrays[i].n, e.staticArrays[i].result
				bbag, bn, bsum := e.staticArrays[j].operand, e.staticArrays[j].n, e.staticArrays[j].result
				alen, aok := smt.AsUint64(an)
				blen, bok := smt.AsUint64(bn)
				if !aok || !bok || alen != blen {
					continue
				}
				precond = smt.And(precond, smt.Implies(smt.Eq(abag, bbag), smt.Eq(asum, bsum)))
			}
		}
		return smt.Simplify(precond)
	}

	for i := 0; i < len(e.staticArrays); i++ {
		for j := i + 1; j < len(e.staticArrays); j++ {
			a, an, asum := e.staticArrays[i].operand, e.staticArrays[i].n, e.staticArrays[i].result
			b, bn, bsum := e.staticArrays[j].operand, e.staticArrays[j].n, e.staticArrays[j].result
			alen, aok := smt.AsUint64(an)
			blen, bok := smt.AsUint64(bn)
			if !aok || !bok || alen != blen {
				continue
			}

			// A hash shared across pairs would let one pair's instance
			// constrain another, so every pair gets its own symbol.
			hashFn := smt.NewFnDecl(e.freshName("fp_hash"), []smt.Sort{e.FpSort()}, smt.BitVecSort(indexBits))

			aVal := hashFn.Apply(smt.Select(a, smt.NewBV(0, indexBits)))
			for k := uint64(1); k < alen; k++ {
				aVal = smt.BVAdd(aVal, hashFn.Apply(smt.Select(a, smt.NewBV(k, indexBits))))
			}
			bVal := hashFn.Apply(smt.Select(b, smt.NewBV(0, indexBits)))
			for k := uint64(1); k < blen; k++ {
				bVal = smt.BVAdd(bVal, hashFn.Apply(smt.Select(b, smt.NewBV(k, indexBits))))
			}

			// sum(A) != sum(B) -> hash(A) != hash(B)
			precond = smt.And(precond, smt.Implies(smt.Not(smt.Eq(asum, bsum)), smt.Not(smt.Eq(aVal, bVal))))
		}
	}
	return smt.Simplify(precond)
}
