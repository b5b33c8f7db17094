package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/makslevental/mlir-tv/internal/smt"
	"github.com/makslevental/mlir-tv/internal/trace"
)

var (
	traceFile string
	smt2Out   string
	verbose   bool
)

var encodeCommand = &cobra.Command{
	Use:   "encode",
	Short: "encode an operation trace as SMT-LIB2",
	Long:  ``,
	Run: func(*cobra.Command, []string) {
		if err := encodeExec(); err != nil {
			fmt.Printf("encode err: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	encodeCommand.Flags().StringVar(&traceFile, "file", "", "trace file (yaml)")
	encodeCommand.Flags().StringVar(&smt2Out, "smt2", "", "write output to this file instead of stdout")
	encodeCommand.Flags().BoolVar(&verbose, "verbose", false, "debug logging")
}

func encodeExec() error {
	if verbose {
		log.SetLevel(log.DebugLevel)
	}
	if traceFile == "" {
		return errors.Errorf("--file is required")
	}

	f, err := trace.Load(traceFile)
	if err != nil {
		return errors.Wrap(err, "Load")
	}
	log.Debugf("parsed trace:\n%s", spew.Sdump(f))

	result, err := trace.Encode(f)
	if err != nil {
		return errors.Wrap(err, "Encode")
	}
	log.Infof("encoded %d ops, used ops: %+v", len(result.Terms), result.Engine.UsedAbstractOps())

	out := renderSMT2(result)
	if smt2Out == "" {
		fmt.Print(out)
		return nil
	}
	if err := os.WriteFile(smt2Out, []byte(out), 0o644); err != nil {
		return errors.Wrap(err, "WriteFile")
	}
	log.Infof("wrote %s", smt2Out)
	return nil
}

func renderSMT2(result *trace.Result) string {
	exprs := make([]smt.Expr, 0, len(result.Terms)+1)
	for _, t := range result.Terms {
		exprs = append(exprs, t.Expr)
	}
	if result.Precondition != nil {
		exprs = append(exprs, result.Precondition)
	}

	var b strings.Builder
	for _, line := range smt.Decls(exprs...) {
		b.WriteString(line)
		b.WriteString("\n")
	}
	for _, t := range result.Terms {
		fmt.Fprintf(&b, "(define-fun %s () %s %s)\n", t.Name, t.Expr.Sort(), smt.Print(t.Expr))
	}
	if result.Precondition != nil {
		fmt.Fprintf(&b, "(assert %s)\n", smt.Print(result.Precondition))
	}
	return b.String()
}
