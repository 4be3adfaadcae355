// Package frontend is the stable embedding API a driver, LSP host, or test
// harness links against directly instead of reassembling the
// lexer→parser→checker pipeline itself: a New() constructor plus one
// method call, returning the checked package plus its diagnostics.
//
// Grounded on _examples/funvibe-funxy/pkg/embed/vm.go's New()+method-call
// embedding idiom, adapted from "embed a VM you can Bind/Call into" to
// "embed a front end you compile one package through" — this package
// never runs anything, since execution is outside this module's scope.
package frontend

import (
	"github.com/jade-lang/jadec/internal/ast"
	"github.com/jade-lang/jadec/internal/chir"
	"github.com/jade-lang/jadec/internal/config"
	"github.com/jade-lang/jadec/internal/diagnostics"
	"github.com/jade-lang/jadec/internal/pipeline"
	"github.com/jade-lang/jadec/internal/types"
)

// Frontend is a reusable compilation entry point, configured once from a
// project manifest and then called once per package.
type Frontend struct {
	manifest config.Manifest
}

// New builds a Frontend bound to manifest (source roots/macro/incremental
// settings a caller's own driver loop has already resolved).
func New(manifest config.Manifest) *Frontend {
	return &Frontend{manifest: manifest}
}

// Package is one compiled package: its merged AST, the type manager that
// interned every type reference the checker produced, and the diagnostics
// bag every stage committed into.
type Package struct {
	AST     *ast.Package
	TypeMgr *types.Manager
	Bag     *diagnostics.Bag
	// IR is the C9 → IR builder → C12 lowering of AST into the chir typed
	// IR, nil if the package never made it past checking without errors.
	IR *chir.Module
}

// HasErrors reports whether compiling the package committed at least one
// error-severity diagnostic.
func (p *Package) HasErrors() bool { return p.Bag.HasErrors() }

// CompilePackage runs the lexer, parser, and checker over every file in
// files (file path -> source text) and returns the merged result. Every
// file shares one diagnostics Bag and one Type Manager, but, as in
// internal/driver, each file is checked on its own as a one-file package:
// a name declared in one file is not resolved from another.
func (f *Frontend) CompilePackage(files map[string]string) *Package {
	seed := pipeline.NewPipelineContext("")
	stages := pipeline.New(&pipeline.LexerProcessor{}, &pipeline.ParserProcessor{}, &pipeline.CheckerProcessor{})

	pkg := &ast.Package{}
	for path, src := range files {
		fileCtx := pipeline.NewPipelineContext(src)
		fileCtx.FilePath = path
		fileCtx.Bag = seed.Bag
		fileCtx.TypeMgr = seed.TypeMgr
		fileCtx.SourceMgr = seed.SourceMgr
		fileCtx = stages.Run(fileCtx)
		if fileCtx.Package != nil {
			pkg.Files = append(pkg.Files, fileCtx.Package.Files...)
			pkg.InstantiatedDecls = append(pkg.InstantiatedDecls, fileCtx.Package.InstantiatedDecls...)
		}
	}

	// Lower the whole merged package once the per-file checker passes have
	// run (and, with it, every generic call site's C7 instantiation is
	// already folded into pkg.InstantiatedDecls), rather than per file, so
	// one chir.Module holds every file's declarations.
	irCtx := pipeline.NewPipelineContext("")
	irCtx.Package = pkg
	irCtx.Bag = seed.Bag
	irBuild := &pipeline.IRBuilderProcessor{}
	irCtx = irBuild.Process(irCtx)

	return &Package{AST: pkg, TypeMgr: seed.TypeMgr, Bag: seed.Bag, IR: irCtx.Module}
}
