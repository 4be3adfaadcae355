// Command lsp is the parse-mode + cache-query LSP host spec.md §4.3/§6
// name: full-document sync with published diagnostics, plus a
// jade/queryCachedDecl custom request — not a full language server.
package main

import (
	"log"
	"os"

	"github.com/jade-lang/jadec/internal/config"
	"github.com/jade-lang/jadec/internal/incremental"
	"github.com/jade-lang/jadec/internal/lspsupport"
)

func main() {
	config.IsLSPMode = true

	log.SetFlags(0)
	log.SetOutput(os.Stderr) // stdout is reserved for LSP protocol frames

	// cache starts empty: this host answers jade/queryCachedDecl against
	// whatever image a prior incremental-load pass populates via
	// lspsupport.NewSession, not against the sqlite store directly (the
	// store holds an opaque blob; decoding it into an Image is the
	// incremental loader's job, not this host's).
	cache := incremental.Image{}

	manifest := config.DefaultManifest()
	if m, err := config.LoadManifest(config.ManifestFileName); err == nil {
		manifest = m
	}

	session := lspsupport.NewSession(manifest.EnableMacroInLSP, cache)
	server := NewLanguageServer(os.Stdout, session)
	server.Start()
}
