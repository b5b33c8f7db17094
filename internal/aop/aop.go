// Package aop encodes concrete numeric operations as coarse symbolic terms
// built from uninterpreted functions. The encoding is a sound
// over-approximation of IEEE-754: anything proven equivalent under it also
// holds under real float semantics, modulo the associativity option.
package aop

import (
	"github.com/benbjohnson/immutable"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/makslevental/mlir-tv/internal/smt"
)

// AbsLevelFpDot selects how float dot products are abstracted.
type AbsLevelFpDot int

const (
	// FpDotFullyAbs encodes a dot product as a single opaque function of
	// both operand arrays.
	FpDotFullyAbs AbsLevelFpDot = iota
	// FpDotSumMul lowers a dot product to a sum over elementwise products.
	FpDotSumMul
)

// AbsLevelIntDot selects how integer dot products are abstracted.
type AbsLevelIntDot int

const (
	IntDotFullyAbs AbsLevelIntDot = iota
	IntDotSumMul
)

// UsedAbstractOps reports which abstract operations a session exercised.
// The driver reads it to skip axioms for unused symbols.
type UsedAbstractOps struct {
	FpAdd  bool
	FpMul  bool
	FpSum  bool
	FpDot  bool
	IntSum bool
	IntDot bool
}

const (
	signBits = 1
	typeBits = 1
	// indexBits is the width of array indices and of the hash codomain.
	indexBits = 64
)

// staticArray records one encoded reduction over a literal-length array:
// the operand (array, lambda or multiset), the length numeral, and the
// reduction result. The associativity precondition relates these pairwise.
type staticArray struct {
	operand smt.Expr
	n       smt.Expr
	result  smt.Expr
}

// Engine owns all state of one encoding session: the abstraction
// configuration, the float constant pool, the uninterpreted function
// declarations and the recorded reductions. Constructing a new Engine is
// the session reset; nothing is shared between engines.
type Engine struct {
	alFpDot          AbsLevelFpDot
	alIntDot         AbsLevelIntDot
	fpAddAssociative bool
	useMultiset      bool

	valueBits   uint
	fpBits      uint
	infValue    uint64
	nanValue    uint64
	signedValue uint64

	zeroPos smt.Expr
	zeroNeg smt.Expr
	nan     smt.Expr
	infPos  smt.Expr
	infNeg  smt.Expr

	// Finite nonzero magnitudes, keyed by the float32 bit pattern of the
	// magnitude; values are the positive abstract numerals. NaNs, infs and
	// zeros stay out of the map entirely.
	pool      *immutable.SortedMap
	poolCount uint64

	addFn      *smt.FnDecl
	mulFn      *smt.FnDecl
	sumFn      *smt.FnDecl
	assocSumFn *smt.FnDecl
	dotFn      *smt.FnDecl
	intSumFns  map[uint]*smt.FnDecl
	intDotFns  map[uint]*smt.FnDecl

	staticArrays []staticArray
	used         UsedAbstractOps
	hashCount    int
}

// NewEngine builds an encoding session. fpBits bounds how many distinct
// float values the session can observe; the value field keeps at least one
// bit, so fpBits of 1 and 2 both yield a one-bit value field.
func NewEngine(afd AbsLevelFpDot, aid AbsLevelIntDot, addAssociative bool, fpBits uint) (*Engine, error) {
	if fpBits == 0 {
		return nil, errors.Errorf("fpBits must be positive")
	}
	if fpBits > 63 {
		return nil, errors.Errorf("fpBits %d exceeds the numeral-foldable range", fpBits)
	}

	valueBits := fpBits
	if fpBits != 1 {
		valueBits = fpBits - 1
	}

	e := &Engine{
		alFpDot:          afd,
		alIntDot:         aid,
		fpAddAssociative: addAssociative,
		valueBits:        valueBits,
		fpBits:           signBits + typeBits + valueBits,
		pool:             immutable.NewSortedMap(&float32BitsComparer{}),
		intSumFns:        make(map[uint]*smt.FnDecl),
		intDotFns:        make(map[uint]*smt.FnDecl),
	}
	e.infValue = uint64(1) << valueBits
	e.nanValue = e.infValue + 1
	e.signedValue = uint64(1) << (typeBits + valueBits)

	e.zeroPos = smt.NewBV(0, e.fpBits)
	e.zeroNeg = smt.NewBV(e.signedValue, e.fpBits)
	e.nan = smt.NewBV(e.nanValue, e.fpBits)
	e.infPos = smt.NewBV(e.infValue, e.fpBits)
	e.infNeg = smt.NewBV(e.signedValue+e.infValue, e.fpBits)

	log.Debugf("abstract-op engine: fpBits=%d valueBits=%d fpDot=%v intDot=%v addAssociative=%v",
		fpBits, valueBits, afd, aid, addAssociative)
	return e, nil
}

// SetEncodingOptions toggles options that must not change the precision of
// validation, only the encoding cost.
func (e *Engine) SetEncodingOptions(useMultiset bool) {
	e.useMultiset = useMultiset
}

func (e *Engine) FpAddAssociativity() bool { return e.fpAddAssociative }

func (e *Engine) UsedAbstractOps() UsedAbstractOps { return e.used }

// float32BitsComparer orders float32 bit patterns. Implements
// immutable.Comparer.
type float32BitsComparer struct{}

func (c *float32BitsComparer) Compare(a, b interface{}) int {
	if i, j := a.(uint32), b.(uint32); i < j {
		return -1
	} else if i > j {
		return 1
	}
	return 0
}
