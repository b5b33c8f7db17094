package smt_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/makslevental/mlir-tv/internal/smt"
)

func TestPrint(t *testing.T) {
	x := smt.NewConst("x", smt.BitVecSort(8))
	t.Run("Numeral", func(t *testing.T) {
		if got, want := smt.Print(smt.NewBV(5, 8)), "(_ bv5 8)"; got != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	})
	t.Run("Binary", func(t *testing.T) {
		got := smt.Print(smt.BVAdd(x, smt.NewConst("y", smt.BitVecSort(8))))
		if want := "(bvadd x y)"; got != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	})
	t.Run("Ite", func(t *testing.T) {
		got := smt.Print(smt.Ite(smt.Eq(x, smt.NewBV(1, 8)), smt.NewBV(2, 8), x))
		if !strings.HasPrefix(got, "(ite (= ") {
			t.Fatalf("unexpected form: %q", got)
		}
	})
	t.Run("Lambda", func(t *testing.T) {
		i := smt.NewBoundVar("idx", smt.BitVecSort(64))
		arr := smt.NewConst("a", smt.ArraySort(smt.BitVecSort(64), smt.BitVecSort(8)))
		got := smt.Print(smt.NewLambda(i, smt.Select(arr, i)))
		if want := "(lambda ((idx (_ BitVec 64))) (select a idx))"; got != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	})
	t.Run("Multiset", func(t *testing.T) {
		m := smt.NewEmptyMultiset(smt.BitVecSort(8)).Insert(smt.NewBV(1, 8))
		got := smt.Print(m)
		if !strings.Contains(got, "as const") || !strings.Contains(got, "store") {
			t.Fatalf("multiset not lowered to counting array: %q", got)
		}
	})
}

func TestDecls(t *testing.T) {
	fp := smt.BitVecSort(9)
	x := smt.NewConst("x", fp)
	fn := smt.NewFnDecl("fp_mul", []smt.Sort{fp, fp}, fp)
	e := smt.BVAdd(fn.Apply(x, x), fn.Apply(x, x))

	got := smt.Decls(e)
	want := []string{
		"(declare-const x (_ BitVec 9))",
		"(declare-fun fp_mul ((_ BitVec 9) (_ BitVec 9)) (_ BitVec 9))",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected declarations (-want +got):\n%s", diff)
	}
}
