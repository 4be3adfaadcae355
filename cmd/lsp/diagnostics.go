package main

import (
	"path/filepath"

	"github.com/jade-lang/jadec/internal/diagnostics"
	"github.com/jade-lang/jadec/internal/pipeline"
)

func (s *LanguageServer) publishDiagnostics(uri string, finalCtx *pipeline.PipelineContext) error {
	lspDiagnostics := convertDiagnostics(finalCtx.Errors(), s.uriToPath(uri))

	return s.sendNotification(NotificationMessage{
		Jsonrpc: "2.0",
		Method:  "textDocument/publishDiagnostics",
		Params: PublishDiagnosticsParams{
			URI:         uri,
			Diagnostics: lspDiagnostics,
		},
	})
}

func convertDiagnostics(errs []diagnostics.CompileError, filePath string) []Diagnostic {
	result := make([]Diagnostic, 0, len(errs))
	targetPath := filepath.Clean(filePath)

	for _, err := range errs {
		if err.File != "" && targetPath != "" && filepath.Clean(err.File) != targetPath {
			continue
		}

		severity := SeverityError
		if err.Severity == diagnostics.SeverityWarning {
			severity = SeverityWarning
		}

		result = append(result, Diagnostic{
			Range: Range{
				Start: Position{Line: err.Main.Begin.Line - 1, Character: err.Main.Begin.Column - 1},
				End:   Position{Line: err.Main.End.Line - 1, Character: err.Main.End.Column - 1},
			},
			Severity: severity,
			Code:     err.Code,
			Message:  err.Error(),
			Source:   "jadec",
		})
	}

	return result
}
