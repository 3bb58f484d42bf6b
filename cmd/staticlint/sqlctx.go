package main

import (
	"go/ast"
	"go/types"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

// contextVariants maps database/sql methods to the variant that takes a context.
var contextVariants = map[string]string{
	"Query":    "QueryContext",
	"QueryRow": "QueryRowContext",
	"Exec":     "ExecContext",
	"Ping":     "PingContext",
	"Prepare":  "PrepareContext",
	"Begin":    "BeginTx",
}

// SQLContextAnalyzer reports database/sql calls that ignore the caller's context.
var SQLContextAnalyzer = &analysis.Analyzer{
	Name:     "sqlctxlint",
	Doc:      "reports database/sql calls without a context",
	Run:      runSQLContext,
	Requires: []*analysis.Analyzer{inspect.Analyzer},
}

func runSQLContext(pass *analysis.Pass) (interface{}, error) {
	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	insp.Preorder([]ast.Node{(*ast.CallExpr)(nil)}, func(n ast.Node) {
		call := n.(*ast.CallExpr)

		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok {
			return
		}

		want, ok := contextVariants[sel.Sel.Name]
		if !ok {
			return
		}

		fn, ok := pass.TypesInfo.Uses[sel.Sel].(*types.Func)
		if !ok || fn.Pkg() == nil || fn.Pkg().Path() != "database/sql" {
			return
		}

		// only methods: sql.Open and friends are package funcs
		if sig, ok := fn.Type().(*types.Signature); !ok || sig.Recv() == nil {
			return
		}

		pass.Reportf(call.Pos(), "use %s instead of %s", want, sel.Sel.Name)
	})

	return nil, nil
}
