package aop

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makslevental/mlir-tv/internal/smt"
)

func newTestEngine(t *testing.T, afd AbsLevelFpDot, aid AbsLevelIntDot, assoc bool, fpBits uint) *Engine {
	e, err := NewEngine(afd, aid, assoc, fpBits)
	require.Nil(t, err)
	return e
}

func Test_NewEngineRejectsBadBits(t *testing.T) {
	_, err := NewEngine(FpDotSumMul, IntDotSumMul, false, 0)
	assert.NotNil(t, err)
	_, err = NewEngine(FpDotSumMul, IntDotSumMul, false, 64)
	assert.NotNil(t, err)
}

func Test_ValueBitsQuirk(t *testing.T) {
	// fpBits of 1 and 2 both leave a one-bit value field.
	for _, fpBits := range []uint{1, 2} {
		e := newTestEngine(t, FpDotSumMul, IntDotSumMul, false, fpBits)
		assert.Equal(t, uint(3), e.FpSort().Width())
	}
	e := newTestEngine(t, FpDotSumMul, IntDotSumMul, false, 8)
	assert.Equal(t, uint(9), e.FpSort().Width())
}

func Test_FpConstDeterminism(t *testing.T) {
	e := newTestEngine(t, FpDotSumMul, IntDotSumMul, false, 8)
	assert.True(t, smt.Equal(e.FpConst(1.3), e.FpConst(1.3)))
	assert.True(t, smt.Equal(e.FpConst(-2.5), e.FpConst(-2.5)))
	assert.False(t, smt.Equal(e.FpConst(1.3), e.FpConst(2.5)))
}

func Test_FpConstSignInvariance(t *testing.T) {
	e := newTestEngine(t, FpDotSumMul, IntDotSumMul, false, 8)
	w := e.FpSort().Width()
	pos := e.FpConst(2.5)
	neg := e.FpConst(-2.5)

	assert.True(t, smt.Equal(smt.Extract(w-1, w-1, pos), smt.NewBV(0, 1)))
	assert.True(t, smt.Equal(smt.Extract(w-1, w-1, neg), smt.NewBV(1, 1)))
	assert.True(t, smt.Equal(smt.Extract(w-2, 0, pos), smt.Extract(w-2, 0, neg)))
}

func Test_ReservedDistinct(t *testing.T) {
	for _, fpBits := range []uint{2, 8} {
		e := newTestEngine(t, FpDotSumMul, IntDotSumMul, false, fpBits)
		reserved := []smt.Expr{
			e.FpConst(0.0),
			e.FpConst(float32(math.Copysign(0, -1))),
			e.FpConst(float32(math.Inf(1))),
			e.FpConst(float32(math.Inf(-1))),
			e.FpConst(float32(math.NaN())),
		}
		for i := range reserved {
			for j := i + 1; j < len(reserved); j++ {
				assert.False(t, smt.Equal(reserved[i], reserved[j]),
					"reserved values %d and %d collide at fpBits=%d", i, j, fpBits)
			}
		}
	}
}

func Test_FpConstOne(t *testing.T) {
	e := newTestEngine(t, FpDotSumMul, IntDotSumMul, false, 8)
	// 1.0 always takes abstract value 1, regardless of allocation order.
	_ = e.FpConst(7.25)
	one := e.FpConst(1.0)
	assert.True(t, smt.Equal(one, smt.NewBV(1, e.FpSort().Width())))
}

func Test_FpConstPoolExhaustion(t *testing.T) {
	e := newTestEngine(t, FpDotSumMul, IntDotSumMul, false, 2)
	// one value bit: only the reserved values and +-1.0 fit
	_ = e.FpConst(1.0)
	_ = e.FpConst(-1.0)
	assert.Panics(t, func() { e.FpConst(3.5) })
}

func Test_FpPossibleConsts(t *testing.T) {
	e := newTestEngine(t, FpDotSumMul, IntDotSumMul, false, 8)
	c := e.FpConst(1.5)
	got := e.FpPossibleConsts(c)
	assert.Equal(t, []float32{1.5}, got)

	neg := e.FpConst(-1.5)
	assert.Equal(t, []float32{-1.5}, e.FpPossibleConsts(neg))

	nan := e.FpPossibleConsts(e.FpConst(float32(math.NaN())))
	assert.Equal(t, 1, len(nan))
	assert.True(t, nan[0] != nan[0])

	assert.Empty(t, e.FpPossibleConsts(smt.NewConst("x", e.FpSort())))
}

func Test_FpAddIdentity(t *testing.T) {
	e := newTestEngine(t, FpDotSumMul, IntDotSumMul, false, 8)
	one := e.FpConst(1.0)
	negZero := e.FpConst(float32(math.Copysign(0, -1)))
	assert.True(t, smt.Equal(e.FpAdd(one, negZero), one))
	assert.True(t, smt.Equal(e.FpAdd(negZero, one), one))

	x := smt.NewConst("x", e.FpSort())
	assert.True(t, smt.Equal(e.FpAdd(x, negZero), x))
	assert.True(t, smt.Equal(e.FpAdd(negZero, x), x))
}

func Test_FpAddNaNAbsorption(t *testing.T) {
	e := newTestEngine(t, FpDotSumMul, IntDotSumMul, false, 8)
	nan := e.FpConst(float32(math.NaN()))
	x := smt.NewConst("x", e.FpSort())
	assert.True(t, smt.Equal(e.FpAdd(nan, x), nan))
	assert.True(t, smt.Equal(e.FpAdd(x, nan), nan))
}

func Test_FpAddInfArithmetic(t *testing.T) {
	e := newTestEngine(t, FpDotSumMul, IntDotSumMul, false, 8)
	inf := e.FpConst(float32(math.Inf(1)))
	negInf := e.FpConst(float32(math.Inf(-1)))
	nan := e.FpConst(float32(math.NaN()))

	assert.True(t, smt.Equal(e.FpAdd(inf, negInf), nan))
	assert.True(t, smt.Equal(e.FpAdd(negInf, inf), nan))
	assert.True(t, smt.Equal(e.FpAdd(inf, e.FpConst(2.0)), inf))
	assert.True(t, smt.Equal(e.FpAdd(e.FpConst(2.0), negInf), negInf))
}

func Test_FpAddAdditiveInverse(t *testing.T) {
	e := newTestEngine(t, FpDotSumMul, IntDotSumMul, false, 8)
	zero := e.FpConst(0.0)
	assert.True(t, smt.Equal(e.FpAdd(e.FpConst(1.5), e.FpConst(-1.5)), zero))
	assert.True(t, smt.Equal(e.FpAdd(e.FpConst(-2.5), e.FpConst(2.5)), zero))
}

func Test_FpAddCommutative(t *testing.T) {
	e := newTestEngine(t, FpDotSumMul, IntDotSumMul, false, 8)
	a := e.FpConst(2.0)
	b := e.FpConst(3.0)
	assert.True(t, smt.Equal(e.FpAdd(a, b), e.FpAdd(b, a)))

	// mixed signs delegate to the symmetrized core
	c := e.FpConst(-3.0)
	assert.True(t, smt.Equal(e.FpAdd(a, c), e.FpAdd(c, a)))
}

func Test_FpAddSignMonotone(t *testing.T) {
	e := newTestEngine(t, FpDotSumMul, IntDotSumMul, false, 8)
	w := e.FpSort().Width()
	sum := e.FpAdd(e.FpConst(2.0), e.FpConst(3.0))
	// same-sign operands force a positive sign bit
	assert.True(t, smt.Equal(smt.Extract(w-1, w-1, sum), smt.NewBV(0, 1)))
	negSum := e.FpAdd(e.FpConst(-2.0), e.FpConst(-3.0))
	assert.True(t, smt.Equal(smt.Extract(w-1, w-1, negSum), smt.NewBV(1, 1)))
}

func Test_FpMul(t *testing.T) {
	e := newTestEngine(t, FpDotSumMul, IntDotSumMul, false, 8)
	one := e.FpConst(1.0)
	x := smt.NewConst("x", e.FpSort())

	assert.True(t, smt.Equal(e.FpMul(x, one), x))
	assert.True(t, smt.Equal(e.FpMul(one, x), x))

	a := e.FpConst(2.0)
	b := e.FpConst(3.0)
	assert.True(t, smt.Equal(e.FpMul(a, b), e.FpMul(b, a)))
}

func Test_FpAddSortMismatch(t *testing.T) {
	e := newTestEngine(t, FpDotSumMul, IntDotSumMul, false, 8)
	assert.Panics(t, func() {
		e.FpAdd(smt.NewConst("x", smt.BitVecSort(4)), e.FpConst(1.0))
	})
}

func Test_UsedAbstractOps(t *testing.T) {
	e := newTestEngine(t, FpDotSumMul, IntDotSumMul, false, 8)
	assert.Equal(t, UsedAbstractOps{}, e.UsedAbstractOps())

	x := smt.NewConst("x", e.FpSort())
	e.FpAdd(x, x)
	assert.Equal(t, UsedAbstractOps{FpAdd: true}, e.UsedAbstractOps())

	e.FpMul(x, x)
	used := e.UsedAbstractOps()
	assert.True(t, used.FpAdd)
	assert.True(t, used.FpMul)
	assert.False(t, used.FpSum)
}
