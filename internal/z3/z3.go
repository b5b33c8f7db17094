// Package z3 lowers smt terms to Z3 ASTs and exposes a minimal solver
// boundary. It is the only package in the module that talks to a solver;
// the encoding layer itself never imports it.
package z3

import (
	"strings"
	"unsafe"

	"github.com/pkg/errors"

	"github.com/makslevental/mlir-tv/internal/smt"
)

/*
#cgo LDFLAGS: -lz3
#include <z3.h>
#include <stdlib.h>
*/
import "C"

// Solver errors.
var (
	ErrSolverTimeout       = errors.New("solver timeout")
	ErrSolverCanceled      = errors.New("solver canceled")
	ErrSolverResourceLimit = errors.New("solver resource limit reached")
	ErrSolverUnknown       = errors.New("solver unknown")
)

// Context wraps a Z3 context used for constructing ASTs.
type Context struct {
	raw C.Z3_context

	decls map[string]C.Z3_func_decl
	// bound maps in-scope lambda variables to the constants standing in
	// for them during conversion.
	bound map[string]C.Z3_ast
}

// NewContext returns a new instance of Context.
func NewContext() *Context {
	cfg := C.Z3_mk_config()
	defer C.Z3_del_config(cfg)
	return &Context{
		raw:   C.Z3_mk_context(cfg),
		decls: make(map[string]C.Z3_func_decl),
		bound: make(map[string]C.Z3_ast),
	}
}

// Close deletes the underlying Z3 context.
func (ctx *Context) Close() error {
	C.Z3_del_context(ctx.raw)
	return nil
}

// err returns an error if the last Z3 call failed.
func (ctx *Context) err(op string) error {
	if code := C.Z3_get_error_code(ctx.raw); code != C.Z3_OK {
		msg := C.GoString(C.Z3_get_error_msg(ctx.raw, code))
		return errors.Errorf("z3: %s: %s", op, msg)
	}
	return nil
}

func (ctx *Context) symbol(name string) C.Z3_symbol {
	cstr := C.CString(name)
	defer C.free(unsafe.Pointer(cstr))
	return C.Z3_mk_string_symbol(ctx.raw, cstr)
}

func (ctx *Context) toSort(s smt.Sort) C.Z3_sort {
	switch s.Kind() {
	case smt.BoolKind:
		return C.Z3_mk_bool_sort(ctx.raw)
	case smt.BitVecKind:
		return C.Z3_mk_bv_sort(ctx.raw, C.uint(s.Width()))
	case smt.ArrayKind:
		return C.Z3_mk_array_sort(ctx.raw, ctx.toSort(s.Domain()), ctx.toSort(s.Range()))
	case smt.MultisetKind:
		// counting array: element -> Int
		return C.Z3_mk_array_sort(ctx.raw, ctx.toSort(s.Elem()), C.Z3_mk_int_sort(ctx.raw))
	}
	panic("unreachable")
}

func (ctx *Context) funcDecl(d *smt.FnDecl) C.Z3_func_decl {
	if fd, ok := ctx.decls[d.Name()]; ok {
		return fd
	}
	domain := make([]C.Z3_sort, len(d.Domain()))
	for i, s := range d.Domain() {
		domain[i] = ctx.toSort(s)
	}
	var domainPtr *C.Z3_sort
	if len(domain) > 0 {
		domainPtr = &domain[0]
	}
	fd := C.Z3_mk_func_decl(ctx.raw, ctx.symbol(d.Name()), C.uint(len(domain)), domainPtr, ctx.toSort(d.Range()))
	ctx.decls[d.Name()] = fd
	return fd
}

// convert lowers a term to a Z3 AST, surfacing any conversion error the C
// API recorded.
func (ctx *Context) convert(e smt.Expr) (C.Z3_ast, error) {
	ast := ctx.toAST(e)
	if err := ctx.err("toAST"); err != nil {
		return nil, err
	}
	return ast, nil
}

func (ctx *Context) toAST(e smt.Expr) C.Z3_ast {
	switch e := e.(type) {
	case *smt.ConstantExpr:
		return C.Z3_mk_unsigned_int64(ctx.raw, C.uint64_t(e.Value), C.Z3_mk_bv_sort(ctx.raw, C.uint(e.Width)))
	case *smt.BoolConstExpr:
		if e.Value {
			return C.Z3_mk_true(ctx.raw)
		}
		return C.Z3_mk_false(ctx.raw)
	case *smt.ConstExpr:
		return C.Z3_mk_const(ctx.raw, ctx.symbol(e.Name), ctx.toSort(e.ConstSort))
	case *smt.BoundVarExpr:
		if ast, ok := ctx.bound[e.Name]; ok {
			return ast
		}
		panic("z3: unbound variable " + e.Name)
	case *smt.NotExpr:
		return C.Z3_mk_not(ctx.raw, ctx.toAST(e.Expr))
	case *smt.BinaryExpr:
		lhs, rhs := ctx.toAST(e.LHS), ctx.toAST(e.RHS)
		switch e.Op {
		case smt.BVADD:
			return C.Z3_mk_bvadd(ctx.raw, lhs, rhs)
		case smt.BVMUL:
			return C.Z3_mk_bvmul(ctx.raw, lhs, rhs)
		case smt.ULT:
			return C.Z3_mk_bvult(ctx.raw, lhs, rhs)
		case smt.CONCAT:
			return C.Z3_mk_concat(ctx.raw, lhs, rhs)
		case smt.EQ:
			return C.Z3_mk_eq(ctx.raw, lhs, rhs)
		case smt.AND:
			args := [2]C.Z3_ast{lhs, rhs}
			return C.Z3_mk_and(ctx.raw, 2, &args[0])
		case smt.OR:
			args := [2]C.Z3_ast{lhs, rhs}
			return C.Z3_mk_or(ctx.raw, 2, &args[0])
		case smt.IMPLIES:
			return C.Z3_mk_implies(ctx.raw, lhs, rhs)
		}
		panic("unreachable")
	case *smt.ExtractExpr:
		return C.Z3_mk_extract(ctx.raw, C.uint(e.High), C.uint(e.Low), ctx.toAST(e.Expr))
	case *smt.ZExtExpr:
		return C.Z3_mk_zero_ext(ctx.raw, C.uint(e.Extra), ctx.toAST(e.Expr))
	case *smt.IteExpr:
		return C.Z3_mk_ite(ctx.raw, ctx.toAST(e.Cond), ctx.toAST(e.Then), ctx.toAST(e.Else))
	case *smt.SelectExpr:
		return C.Z3_mk_select(ctx.raw, ctx.toAST(e.Array), ctx.toAST(e.Index))
	case *smt.LambdaExpr:
		// Stand the bound variable in as a fresh constant; Z3 abstracts it
		// back out in Z3_mk_lambda_const.
		v := C.Z3_mk_const(ctx.raw, ctx.symbol(e.Bound.Name), ctx.toSort(e.Bound.VarSort))
		prev, shadowed := ctx.bound[e.Bound.Name]
		ctx.bound[e.Bound.Name] = v
		body := ctx.toAST(e.Body)
		if shadowed {
			ctx.bound[e.Bound.Name] = prev
		} else {
			delete(ctx.bound, e.Bound.Name)
		}
		app := C.Z3_to_app(ctx.raw, v)
		return C.Z3_mk_lambda_const(ctx.raw, 1, &app, body)
	case *smt.ApplyExpr:
		fd := ctx.funcDecl(e.Decl)
		args := make([]C.Z3_ast, len(e.Args))
		for i, a := range e.Args {
			args[i] = ctx.toAST(a)
		}
		var argsPtr *C.Z3_ast
		if len(args) > 0 {
			argsPtr = &args[0]
		}
		return C.Z3_mk_app(ctx.raw, fd, C.uint(len(args)), argsPtr)
	case *smt.MultisetExpr:
		intSort := C.Z3_mk_int_sort(ctx.raw)
		zero := C.Z3_mk_int(ctx.raw, 0, intSort)
		one := C.Z3_mk_int(ctx.raw, 1, intSort)
		acc := C.Z3_mk_const_array(ctx.raw, ctx.toSort(e.ElemSort), zero)
		for _, el := range e.Elems {
			elAST := ctx.toAST(el)
			count := C.Z3_mk_select(ctx.raw, acc, elAST)
			args := [2]C.Z3_ast{count, one}
			acc = C.Z3_mk_store(ctx.raw, acc, elAST, C.Z3_mk_add(ctx.raw, 2, &args[0]))
		}
		return acc
	}
	panic("unreachable")
}

// Solver wraps a Z3 solver over its own context.
type Solver struct {
	ctx *Context
	raw C.Z3_solver
}

// NewSolver returns a new instance of Solver.
func NewSolver() *Solver {
	ctx := NewContext()
	raw := C.Z3_mk_solver(ctx.raw)
	C.Z3_solver_inc_ref(ctx.raw, raw)
	return &Solver{ctx: ctx, raw: raw}
}

// Close releases the solver and its context.
func (s *Solver) Close() error {
	C.Z3_solver_dec_ref(s.ctx.raw, s.raw)
	return s.ctx.Close()
}

// Assert adds a boolean term to the solver.
func (s *Solver) Assert(e smt.Expr) error {
	ast, err := s.ctx.convert(e)
	if err != nil {
		return errors.Wrap(err, "convert")
	}
	C.Z3_solver_assert(s.ctx.raw, s.raw, ast)
	return s.ctx.err("Z3_solver_assert")
}

// Check reports whether the asserted terms are satisfiable.
func (s *Solver) Check() (bool, error) {
	ret := C.Z3_solver_check(s.ctx.raw, s.raw)
	if err := s.ctx.err("Z3_solver_check"); err != nil {
		return false, err
	}
	switch ret {
	case C.Z3_L_TRUE:
		return true, nil
	case C.Z3_L_FALSE:
		return false, nil
	}
	reason := C.GoString(C.Z3_solver_get_reason_unknown(s.ctx.raw, s.raw))
	switch {
	case strings.Contains(reason, "timeout"):
		return false, ErrSolverTimeout
	case strings.Contains(reason, "canceled"):
		return false, ErrSolverCanceled
	case strings.Contains(reason, "resource limits reached"):
		return false, ErrSolverResourceLimit
	default:
		return false, errors.Wrap(ErrSolverUnknown, reason)
	}
}
