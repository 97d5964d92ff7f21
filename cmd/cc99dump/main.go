// Command cc99dump is a harness for exercising the compiler pipeline
// one stage at a time: each subcommand runs the pipeline up through a
// fixed point and prints whatever that stage produced, the way the
// teacher's own per-stage dump tools let a developer inspect a
// pipeline without running it end to end.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gmofishsauce/cc99/internal/air"
	"github.com/gmofishsauce/cc99/internal/ast"
	"github.com/gmofishsauce/cc99/internal/config"
	"github.com/gmofishsauce/cc99/internal/diag"
	"github.com/gmofishsauce/cc99/internal/localize"
	"github.com/gmofishsauce/cc99/internal/parser"
	"github.com/gmofishsauce/cc99/internal/pipeline"
	"github.com/gmofishsauce/cc99/internal/sema"
	"github.com/gmofishsauce/cc99/internal/symtab"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "cc99dump",
		Short: "Inspect one stage of the C99-to-x86-64 compiler pipeline",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "TOML config file (defaults used if omitted)")

	root.AddCommand(
		tokensCmd(),
		astCmd(),
		airCmd(),
		localizeCmd(),
		asmCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (config.Options, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func tokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens <file.c>",
		Short: "Print the token stream of a source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			head := Lex(f, args[0])
			printTokens(os.Stdout, head)
			return nil
		},
	}
}

func astCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ast <file.c>",
		Short: "Parse a source file and print its syntax tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			head := Lex(f, args[0])

			syms := symtab.New()
			p := parser.New(head, syms)
			tu := p.ParseTranslationUnit()
			printDiagnostics(p.Diagnostics().All())
			printAST(os.Stdout, p.Arena(), tu)
			return nil
		},
	}
}

func airCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "air <file.c>",
		Short: "Type, analyze, and lower a source file to AIR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runThroughAIR(args[0], func(fn *air.Func, _ *symtab.Symbol) error {
				printFunc(os.Stdout, fn)
				return nil
			})
		},
	}
}

func localizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "localize <file.c>",
		Short: "Lower a source file to AIR and localize it to x86-64 SysV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runThroughAIR(args[0], func(fn *air.Func, _ *symtab.Symbol) error {
				rodata := localize.Localize(fn)
				printLocalized(os.Stdout, fn, rodata)
				return nil
			})
		},
	}
}

func asmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "asm <file.c>",
		Short: "Compile a source file to GAS assembly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			head := Lex(f, args[0])

			opts, err := loadConfig()
			if err != nil {
				return err
			}
			result := pipeline.Compile(head, opts)
			printDiagnostics(result.Diagnostics)
			if result.Assembly != "" {
				fmt.Print(result.Assembly)
			}
			return nil
		},
	}
}

// runThroughAIR runs the pipeline up through the semantic analyzer and
// the AIR builder, calling visit once per function definition found at
// file scope.
func runThroughAIR(path string, visit func(fn *air.Func, sym *symtab.Symbol) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	head := Lex(f, path)

	syms := symtab.New()
	p := parser.New(head, syms)
	tu := p.ParseTranslationUnit()
	arena := p.Arena()
	bag := p.Diagnostics()

	sema.Run(tu, arena, syms, bag)
	bag.SortBySource()
	printDiagnostics(bag.All())
	if bag.HasErrors() {
		return nil
	}

	builder := air.NewBuilder(arena, syms)
	root := arena.Get(tu)
	for _, h := range root.Children {
		n := arena.Get(h)
		if n.Kind != ast.FuncDecl {
			continue
		}
		fn := builder.BuildFunction(h)
		if err := visit(fn, n.Sym); err != nil {
			return err
		}
	}
	return nil
}

func printDiagnostics(items []diag.Diagnostic) {
	diag.Print(os.Stderr, items)
}
