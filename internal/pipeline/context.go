package pipeline

import (
	"github.com/jade-lang/jadec/internal/ast"
	"github.com/jade-lang/jadec/internal/chir"
	"github.com/jade-lang/jadec/internal/diagnostics"
	"github.com/jade-lang/jadec/internal/source"
	"github.com/jade-lang/jadec/internal/token"
	"github.com/jade-lang/jadec/internal/types"
)

// PipelineContext carries one package's state through the C1→C13 data flow
// spec.md §2 describes: source text in, lexed tokens, parsed AST, checked
// package, and finally a CHIR module out, with a diagnostics Bag collecting
// errors from every stage along the way. Unlike the teacher's
// single-file/string context, Tokens/Package/Module generalize the shape to
// whole compilation packages rather than one source buffer.
type PipelineContext struct {
	FilePath string
	Source   string
	// SourceMgr registers ctx.Source under FilePath (C1) and backs every
	// downstream token.Position the lexer/parser/diagnostics produce: the
	// pipeline's single, shared owner of source buffers and line tables,
	// rather than each stage reading ctx.Source as a bare string.
	SourceMgr *source.Manager
	FileID    int
	Tokens    []token.Token
	Package   *ast.Package
	TypeMgr   *types.Manager
	Module    *chir.Module
	Bag       *diagnostics.Bag
	// Stopped is set by a Processor that hit an unrecoverable failure (e.g.
	// lex failure with no tokens at all); later processors should no-op
	// rather than panic on a nil Package/Module.
	Stopped bool
}

// NewPipelineContext seeds a context from raw source text, with a fresh
// diagnostics Bag, Type Manager ready for the checker to intern into, and a
// Source Manager that FilePath/Source get registered into once FilePath is
// known (LexerProcessor does the registration, since that's the first
// stage that needs a byte offset for lexing).
func NewPipelineContext(source_ string) *PipelineContext {
	return &PipelineContext{
		Source:    source_,
		SourceMgr: source.NewManager(),
		TypeMgr:   types.NewManager(),
		Bag:       diagnostics.NewBag(),
	}
}

// Errors reports every diagnostic the pipeline's stages have committed so
// far, for callers that only care whether compilation succeeded.
func (c *PipelineContext) Errors() []diagnostics.CompileError {
	return c.Bag.Errors()
}

// Processor is one pipeline stage: it consumes and returns a
// PipelineContext, mutating it in place and returning it (rather than a
// copy) so stages share one Bag/TypeMgr across the whole run.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// ProcessorFunc adapts a plain function to the Processor interface, for
// stages too small to warrant a named type.
type ProcessorFunc func(ctx *PipelineContext) *PipelineContext

func (f ProcessorFunc) Process(ctx *PipelineContext) *PipelineContext { return f(ctx) }
