package aop

import (
	"fmt"
	"math"

	"github.com/makslevental/mlir-tv/internal/smt"
)

// The abstract float layout is sign(1) :: type(1) :: value(valueBits).
// Reserved encodings: +0 is all zeros, -0 sets only the sign bit, +inf sets
// only the type bit, NaN is the type bit plus value 1, and -inf is +inf
// with the sign bit set. Finite nonzero magnitudes live in [1, 2^v - 1];
// 1.0 is always value 1, everything else is numbered as encountered.

// FpSort returns the sort of abstract float terms.
func (e *Engine) FpSort() smt.Sort {
	return smt.BitVecSort(e.fpBits)
}

// FpConst maps a concrete float to its abstract term. Repeated calls with
// the same value return structurally identical terms; negation only flips
// the sign bit.
func (e *Engine) FpConst(f float32) smt.Expr {
	if f != f {
		return e.nan
	}
	neg := math.Signbit(float64(f))
	if math.IsInf(float64(f), 0) {
		if neg {
			return e.infNeg
		}
		return e.infPos
	}
	if f == 0 {
		if neg {
			return e.zeroNeg
		}
		return e.zeroPos
	}

	mag := float32(math.Abs(float64(f)))
	key := math.Float32bits(mag)

	var absval uint64
	if v, ok := e.pool.Get(key); ok {
		absval = v.(uint64)
	} else {
		if mag == 1.0 {
			absval = 1
		} else {
			// Reserved values and 1.0 occupy ids 0 and 1.
			if 2+e.poolCount >= e.infValue {
				panic(fmt.Sprintf("aop: abstract float values exhausted (fpBits too small for %d distinct constants)", e.poolCount+1))
			}
			absval = 2 + e.poolCount
			e.poolCount++
		}
		e.pool = e.pool.Set(key, absval)
	}

	if neg {
		return smt.NewBV(e.signedValue+absval, e.fpBits)
	}
	return smt.NewBV(absval, e.fpBits)
}

// FpPossibleConsts is the reverse of FpConst: every concrete float whose
// abstract term is structurally identical to v. More than one entry means
// the abstract value is ambiguous.
func (e *Engine) FpPossibleConsts(v smt.Expr) []float32 {
	var out []float32
	itr := e.pool.Iterator()
	for !itr.Done() {
		k, val := itr.Next()
		mag := math.Float32frombits(k.(uint32))
		absval := val.(uint64)
		if smt.Equal(smt.NewBV(absval, e.fpBits), v) {
			out = append(out, mag)
		}
		if smt.Equal(smt.NewBV(e.signedValue+absval, e.fpBits), v) {
			out = append(out, -mag)
		}
	}

	// Reserved values do not live in the pool.
	if smt.Equal(e.nan, v) {
		out = append(out, float32(math.NaN()))
	} else if smt.Equal(e.zeroPos, v) {
		out = append(out, 0.0)
	} else if smt.Equal(e.zeroNeg, v) {
		out = append(out, float32(math.Copysign(0, -1)))
	} else if smt.Equal(e.infPos, v) {
		out = append(out, float32(math.Inf(1)))
	} else if smt.Equal(e.infNeg, v) {
		out = append(out, float32(math.Inf(-1)))
	}
	return out
}

// MkZeroElemFromArr builds a zero of arr's element width.
func (e *Engine) MkZeroElemFromArr(arr smt.Expr) smt.Expr {
	w := smt.Select(arr, smt.NewBV(0, indexBits)).Sort().Width()
	return smt.NewBV(0, w)
}

func (e *Engine) getMSB(f smt.Expr) smt.Expr {
	w := f.Sort().Width()
	return smt.Extract(w-1, w-1, f)
}

// FpAdd encodes abstract float addition: IEEE special cases resolved as a
// rewrite cascade over a commutative uninterpreted core. -0.0 is the
// identity, so that the identity rewrite composes with the additive-inverse
// rewrite without erasing signs.
func (e *Engine) FpAdd(f1, f2 smt.Expr) smt.Expr {
	e.used.FpAdd = true
	fty := f1.Sort()
	if !fty.Equal(f2.Sort()) {
		panic(fmt.Sprintf("aop: fp add operand sorts differ: %s vs %s", fty, f2.Sort()))
	}

	if e.addFn == nil {
		// The core models a finite result, so it yields only sign and value
		// bits; the zero type bit is re-inserted below. Widening the range
		// to the full layout would let the core alias reserved encodings.
		valueTy := smt.BitVecSort(signBits + e.valueBits)
		e.addFn = smt.NewFnDecl("fp_add", []smt.Sort{fty, fty}, valueTy)
	}

	bvTrue := smt.NewBV(1, 1)
	bvFalse := smt.NewBV(0, 1)

	addRes := smt.BVAdd(e.addFn.Apply(f1, f2), e.addFn.Apply(f2, f1))
	addSign := smt.Extract(signBits+e.valueBits-1, signBits+e.valueBits-1, addRes)
	addValue := smt.Extract(e.valueBits-1, 0, addRes)

	return smt.Ite(smt.Eq(f1, e.zeroNeg), f2, // -0.0 + x -> x
		smt.Ite(smt.Eq(f2, e.zeroNeg), f1, // x + -0.0 -> x
			smt.Ite(smt.Eq(f1, e.nan), f1, // NaN + x -> NaN
				smt.Ite(smt.Eq(f2, e.nan), f2, // x + NaN -> NaN
					// inf + -inf and -inf + inf are invalid operations
					smt.Ite(smt.Or(
						smt.And(smt.Eq(f1, e.infPos), smt.Eq(f2, e.infNeg)),
						smt.And(smt.Eq(f1, e.infNeg), smt.Eq(f2, e.infPos))), e.nan,
						// remaining infinities absorb the other operand
						smt.Ite(smt.Or(smt.Eq(f1, e.infPos), smt.Eq(f1, e.infNeg)), f1,
							smt.Ite(smt.Or(smt.Eq(f2, e.infPos), smt.Eq(f2, e.infNeg)), f2,
								// Same-sign operands cannot change sign, so the
								// core's sign bit is overridden; mixed signs take
								// whatever the core yields.
								smt.Ite(smt.And(smt.Eq(e.getMSB(f1), bvFalse), smt.Eq(e.getMSB(f2), bvFalse)),
									smt.Concat(bvFalse, smt.ZExt(typeBits, addValue)),
									smt.Ite(smt.And(smt.Eq(e.getMSB(f1), bvTrue), smt.Eq(e.getMSB(f2), bvTrue)),
										smt.Concat(bvTrue, smt.ZExt(typeBits, addValue)),
										smt.Ite(smt.Eq(smt.Extract(e.valueBits-1, 0, f1), smt.Extract(e.valueBits-1, 0, f2)),
											// x + -x -> +0.0
											e.zeroPos,
											smt.Concat(addSign, smt.ZExt(typeBits, addValue))))))))))))
}

// FpMul encodes abstract float multiplication. Only the multiplicative
// identity is rewritten; zeros, infinities and NaN pass through to the
// uninterpreted core, so queries that rely on 0 * inf or NaN propagation
// are outside what this encoding can decide.
func (e *Engine) FpMul(f1, f2 smt.Expr) smt.Expr {
	e.used.FpMul = true
	fty := f1.Sort()
	if !fty.Equal(f2.Sort()) {
		panic(fmt.Sprintf("aop: fp mul operand sorts differ: %s vs %s", fty, f2.Sort()))
	}

	if e.mulFn == nil {
		e.mulFn = smt.NewFnDecl("fp_mul", []smt.Sort{fty, fty}, e.FpSort())
	}

	id := e.FpConst(1.0)
	return smt.Ite(smt.Eq(f1, id), f2,
		smt.Ite(smt.Eq(f2, id), f1,
			// pairwise commutative via symmetrization
			smt.BVAdd(e.mulFn.Apply(f1, f2), e.mulFn.Apply(f2, f1))))
}
