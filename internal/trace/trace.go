// Package trace maps a YAML description of abstract numeric operations
// onto an encoding session. It exists so the encoder can be driven end to
// end without the surrounding equivalence checker.
package trace

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/makslevental/mlir-tv/internal/aop"
	"github.com/makslevental/mlir-tv/internal/smt"
)

const indexBits = 64

// File is the root of a trace document.
type File struct {
	Abstraction Abstraction `yaml:"abstraction"`
	Options     Options     `yaml:"options"`
	Ops         []Op        `yaml:"ops"`
}

type Abstraction struct {
	FpDot            string `yaml:"fp_dot"`
	IntDot           string `yaml:"int_dot"`
	FpAddAssociative bool   `yaml:"fp_add_associative"`
	FpBits           uint   `yaml:"fp_bits"`
}

type Options struct {
	Multiset bool `yaml:"multiset"`
}

// Op is one operation to encode. Which fields apply depends on Op.
type Op struct {
	Op     string  `yaml:"op"`
	LHS    *Value  `yaml:"lhs,omitempty"`
	RHS    *Value  `yaml:"rhs,omitempty"`
	Array  *Array  `yaml:"array,omitempty"`
	Array2 *Array  `yaml:"array2,omitempty"`
	Len    *Length `yaml:"len,omitempty"`
	Width  uint    `yaml:"width,omitempty"`
}

// Value is a scalar operand: a concrete float or a named symbolic one.
type Value struct {
	Const *float32 `yaml:"const,omitempty"`
	Var   string   `yaml:"var,omitempty"`
}

// Array is an array operand. Concrete contents are lowered to a lambda of
// nested if-then-else terms, so element reads fold to the constants.
type Array struct {
	Var    string    `yaml:"var,omitempty"`
	Consts []float32 `yaml:"consts,omitempty"`
	Ints   []uint64  `yaml:"ints,omitempty"`
}

// Length is a reduction length: a literal or a named symbolic one.
type Length struct {
	Lit *uint64 `yaml:"lit,omitempty"`
	Var string  `yaml:"var,omitempty"`
}

// Term is one encoded result.
type Term struct {
	Name string
	Expr smt.Expr
}

// Result carries everything a session produced.
type Result struct {
	Engine       *aop.Engine
	Terms        []Term
	Precondition smt.Expr
}

// Load reads and parses a trace file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "ReadFile")
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "Unmarshal")
	}
	return &f, nil
}

func absLevels(a Abstraction) (aop.AbsLevelFpDot, aop.AbsLevelIntDot, error) {
	var afd aop.AbsLevelFpDot
	switch a.FpDot {
	case "", "fully_abs":
		afd = aop.FpDotFullyAbs
	case "sum_mul":
		afd = aop.FpDotSumMul
	default:
		return 0, 0, errors.Errorf("unknown fp_dot level %q", a.FpDot)
	}
	var aid aop.AbsLevelIntDot
	switch a.IntDot {
	case "", "fully_abs":
		aid = aop.IntDotFullyAbs
	case "sum_mul":
		aid = aop.IntDotSumMul
	default:
		return 0, 0, errors.Errorf("unknown int_dot level %q", a.IntDot)
	}
	return afd, aid, nil
}

// Encode runs every operation of the trace through a fresh engine.
func Encode(f *File) (*Result, error) {
	afd, aid, err := absLevels(f.Abstraction)
	if err != nil {
		return nil, err
	}
	fpBits := f.Abstraction.FpBits
	if fpBits == 0 {
		fpBits = 32
	}
	engine, err := aop.NewEngine(afd, aid, f.Abstraction.FpAddAssociative, fpBits)
	if err != nil {
		return nil, errors.Wrap(err, "NewEngine")
	}
	engine.SetEncodingOptions(f.Options.Multiset)

	enc := &encoder{engine: engine}
	result := &Result{Engine: engine}
	for i, op := range f.Ops {
		term, err := enc.encodeOp(op)
		if err != nil {
			return nil, errors.Wrapf(err, "op %d (%s)", i, op.Op)
		}
		result.Terms = append(result.Terms, Term{Name: termName(i), Expr: term})
	}

	if engine.FpAddAssociativity() {
		result.Precondition = engine.FpAssociativePrecondition()
	}
	return result, nil
}

func termName(i int) string {
	return fmt.Sprintf("t%d", i)
}

type encoder struct {
	engine *aop.Engine
}

func (enc *encoder) encodeOp(op Op) (smt.Expr, error) {
	switch op.Op {
	case "add", "mul":
		lhs, err := enc.value(op.LHS)
		if err != nil {
			return nil, err
		}
		rhs, err := enc.value(op.RHS)
		if err != nil {
			return nil, err
		}
		if op.Op == "add" {
			return enc.engine.FpAdd(lhs, rhs), nil
		}
		return enc.engine.FpMul(lhs, rhs), nil

	case "sum":
		arr, err := enc.fpArray(op.Array)
		if err != nil {
			return nil, err
		}
		n, err := enc.length(op.Len)
		if err != nil {
			return nil, err
		}
		return enc.engine.FpSum(arr, n), nil

	case "dot":
		a, err := enc.fpArray(op.Array)
		if err != nil {
			return nil, err
		}
		b, err := enc.fpArray(op.Array2)
		if err != nil {
			return nil, err
		}
		n, err := enc.length(op.Len)
		if err != nil {
			return nil, err
		}
		return enc.engine.FpDot(a, b, n), nil

	case "int_sum":
		arr, err := enc.intArray(op.Array, op.Width)
		if err != nil {
			return nil, err
		}
		n, err := enc.length(op.Len)
		if err != nil {
			return nil, err
		}
		return enc.engine.IntSum(arr, n), nil

	case "int_dot":
		a, err := enc.intArray(op.Array, op.Width)
		if err != nil {
			return nil, err
		}
		b, err := enc.intArray(op.Array2, op.Width)
		if err != nil {
			return nil, err
		}
		n, err := enc.length(op.Len)
		if err != nil {
			return nil, err
		}
		return enc.engine.IntDot(a, b, n), nil
	}
	return nil, errors.Errorf("unknown op %q", op.Op)
}

func (enc *encoder) value(v *Value) (smt.Expr, error) {
	if v == nil {
		return nil, errors.Errorf("missing scalar operand")
	}
	if v.Const != nil {
		return enc.engine.FpConst(*v.Const), nil
	}
	if v.Var != "" {
		return smt.NewConst(v.Var, enc.engine.FpSort()), nil
	}
	return nil, errors.Errorf("scalar operand needs const or var")
}

func (enc *encoder) fpArray(a *Array) (smt.Expr, error) {
	if a == nil {
		return nil, errors.Errorf("missing array operand")
	}
	if a.Var != "" {
		sort := smt.ArraySort(smt.BitVecSort(indexBits), enc.engine.FpSort())
		return smt.NewConst(a.Var, sort), nil
	}
	if len(a.Consts) > 0 {
		elems := make([]smt.Expr, len(a.Consts))
		for i, c := range a.Consts {
			elems[i] = enc.engine.FpConst(c)
		}
		return constArray(elems), nil
	}
	return nil, errors.Errorf("array operand needs var or consts")
}

func (enc *encoder) intArray(a *Array, width uint) (smt.Expr, error) {
	if a == nil {
		return nil, errors.Errorf("missing array operand")
	}
	if width == 0 {
		width = 32
	}
	if a.Var != "" {
		sort := smt.ArraySort(smt.BitVecSort(indexBits), smt.BitVecSort(width))
		return smt.NewConst(a.Var, sort), nil
	}
	if len(a.Ints) > 0 {
		elems := make([]smt.Expr, len(a.Ints))
		for i, c := range a.Ints {
			elems[i] = smt.NewBV(c, width)
		}
		return constArray(elems), nil
	}
	return nil, errors.Errorf("array operand needs var or ints")
}

// constArray builds lambda i. ite(i = 0, e0, ite(i = 1, e1, ...)).
func constArray(elems []smt.Expr) smt.Expr {
	i := smt.NewBoundVar("idx", smt.BitVecSort(indexBits))
	body := elems[len(elems)-1]
	for k := len(elems) - 2; k >= 0; k-- {
		body = smt.Ite(smt.Eq(i, smt.NewBV(uint64(k), indexBits)), elems[k], body)
	}
	return smt.NewLambda(i, body)
}

func (enc *encoder) length(l *Length) (smt.Expr, error) {
	if l == nil {
		return nil, errors.Errorf("missing reduction length")
	}
	if l.Lit != nil {
		return smt.NewBV(*l.Lit, indexBits), nil
	}
	if l.Var != "" {
		return smt.NewConst(l.Var, smt.BitVecSort(indexBits)), nil
	}
	return nil, errors.Errorf("length needs lit or var")
}
