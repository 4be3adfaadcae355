// Stages wires C2 (lexer), C3 (parser), C6 (checker), and the IR builder
// into the Processor chain, one stage per compiler phase, grounded on the teacher's
// own LexerProcessor/ParserProcessor/SemanticAnalyzerProcessor split
// (_examples/funvibe-funxy/internal/{lexer,parser,analyzer}/processor.go) —
// kept as four small adapter types rather than folded into one, so a
// caller assembling a pipeline can stop after lexing (for a tokenize-only
// tool) or after parsing (for a syntax-only check) without touching the
// checker at all.
package pipeline

import (
	"path/filepath"

	"github.com/jade-lang/jadec/internal/ast"
	"github.com/jade-lang/jadec/internal/checker"
	"github.com/jade-lang/jadec/internal/diagnostics"
	"github.com/jade-lang/jadec/internal/irbuilder"
	"github.com/jade-lang/jadec/internal/lexer"
	"github.com/jade-lang/jadec/internal/parser"
	"github.com/jade-lang/jadec/internal/token"
)

// LexerProcessor runs C2, filling ctx.Tokens. It first registers
// ctx.Source with ctx.SourceMgr (C1) under ctx.FilePath, so every
// downstream token.Position carries the Source Manager's file_id and every
// diagnostic position this package/the checker/box marker produce resolves
// back to real source text and line/column info through
// SourceMgr.PosToOffset rather than a bare FileID the caller guessed.
type LexerProcessor struct {
	FileID int // fallback file_id used only when ctx.SourceMgr is nil
}

func (p *LexerProcessor) Process(ctx *PipelineContext) *PipelineContext {
	fileID := p.FileID
	buffer := ctx.Source
	if ctx.SourceMgr != nil {
		fileID = ctx.SourceMgr.AddSource(ctx.FilePath, ctx.Source, "")
		if f := ctx.SourceMgr.File(fileID); f != nil {
			buffer = f.Buffer
		}
	}
	ctx.FileID = fileID

	lx := lexer.New(fileID, buffer, ctx.Bag)
	for {
		t := lx.Next()
		ctx.Tokens = append(ctx.Tokens, t)
		if t.Kind == token.EOF {
			break
		}
	}
	if len(ctx.Tokens) == 0 {
		ctx.Stopped = true
	}
	return ctx
}

// tokenFeed replays an already-lexed token slice through the tokenSource
// interface parser.New expects, so the parser stage can run against
// ctx.Tokens rather than re-driving the lexer.
type tokenFeed struct {
	toks []token.Token
	pos  int
}

func (f *tokenFeed) Next() token.Token {
	if f.pos >= len(f.toks) {
		return token.Token{Kind: token.EOF}
	}
	t := f.toks[f.pos]
	f.pos++
	return t
}

func (f *tokenFeed) LookAhead(k int, skipNewlines bool) []token.Token {
	var out []token.Token
	i := f.pos
	for len(out) < k {
		if i >= len(f.toks) {
			out = append(out, token.Token{Kind: token.EOF})
			continue
		}
		t := f.toks[i]
		i++
		if skipNewlines && t.Kind == token.NEWLINE {
			continue
		}
		out = append(out, t)
	}
	return out
}

// ParserProcessor runs C3 over ctx.Tokens, filling ctx.Package with a
// single-file package (the driver assembles multi-file packages by calling
// this stage once per file and merging the resulting Files slices). It
// parses against ctx.FileID (the id LexerProcessor registered with
// ctx.SourceMgr), falling back to its own FileID field only when no lexer
// stage ran first in this chain.
type ParserProcessor struct {
	FileID int
}

func (p *ParserProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Stopped {
		return ctx
	}
	fileID := p.FileID
	if ctx.FileID != 0 {
		fileID = ctx.FileID
	}
	feed := &tokenFeed{toks: ctx.Tokens}
	prs := parser.New(feed, ctx.Bag, fileID, ctx.FilePath)
	file := prs.ParseFile()
	ctx.Package = &ast.Package{Files: []*ast.File{file}}
	return ctx
}

// CheckerProcessor runs C6 over ctx.Package, resolving names, inferring
// types, and desugaring in place.
type CheckerProcessor struct{}

func (c *CheckerProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Stopped || ctx.Package == nil {
		return ctx
	}
	chk := checker.New(ctx.TypeMgr, ctx.Bag)
	chk.CheckPackage(ctx.Package)
	return ctx
}

// IRBuilderProcessor runs the C9 → IR builder → C12 tail of the pipeline:
// it lowers the checked, desugared, box-marked package into a chir.Module,
// filling ctx.Module. It is the sole non-test caller of internal/irbuilder
// and, transitively, of chir.Serialize/Deserialize outside cmd/chir-dis.
type IRBuilderProcessor struct{}

func (p *IRBuilderProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Stopped || ctx.Package == nil || ctx.Bag.HasErrors() {
		return ctx
	}
	b := irbuilder.New()
	b.LowerPackage(ctx.Package)

	var files []string
	for _, f := range ctx.Package.Files {
		files = append(files, filepath.Base(f.Path))
	}
	mod, err := b.Build("checked", "main", files)
	if err != nil {
		ctx.Bag.Add(diagnostics.NewError(diagnostics.ErrC001IRBuildFailed, token.Token{}, err.Error()))
		return ctx
	}
	ctx.Module = mod
	return ctx
}
