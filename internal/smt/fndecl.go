package smt

import "fmt"

// FnDecl names an uninterpreted function of fixed domain and codomain.
// Two declarations with the same name denote the same solver symbol.
type FnDecl struct {
	name   string
	domain []Sort
	rng    Sort
}

func NewFnDecl(name string, domain []Sort, rng Sort) *FnDecl {
	d := &FnDecl{
		name:   name,
		domain: make([]Sort, len(domain)),
		rng:    rng,
	}
	copy(d.domain, domain)
	return d
}

func (d *FnDecl) Name() string   { return d.name }
func (d *FnDecl) Domain() []Sort { return d.domain }
func (d *FnDecl) Range() Sort    { return d.rng }

// Apply builds an application of d. Arity and argument sorts are checked.
func (d *FnDecl) Apply(args ...Expr) Expr {
	if len(args) != len(d.domain) {
		panic(fmt.Sprintf("smt: %s applied to %d args, want %d", d.name, len(args), len(d.domain)))
	}
	for i, a := range args {
		if !a.Sort().Equal(d.domain[i]) {
			panic(fmt.Sprintf("smt: %s arg %d has sort %s, want %s", d.name, i, a.Sort(), d.domain[i]))
		}
	}
	held := make([]Expr, len(args))
	copy(held, args)
	return &ApplyExpr{Decl: d, Args: held}
}
