// Package lspsupport holds the two things spec.md §4.3/§6 actually asks an
// LSP host to provide: a parse-mode flag (cmd/lsp reads it to decide
// whether to run the checker after lexing and parsing), and a read-only
// cache-query
// accessor over an incremental.Image. It is deliberately not a language
// server — cmd/lsp owns the JSON-RPC transport and calls into this
// package rather than the other way around.
//
// Grounded on _examples/funvibe-funxy/internal/config's IsLSPMode
// package-level flag idiom, generalized from a bare bool to a struct so a
// cache.Image can be attached alongside it.
package lspsupport

import "github.com/jade-lang/jadec/internal/incremental"

// Session is the LSP host's live state: whether macro-expansion-in-LSP is
// enabled for this workspace, and the cached package image (if any) a
// jade/queryCachedDecl request should be answered from.
type Session struct {
	EnableMacroInLSP bool
	Cache            incremental.Image
}

// NewSession builds a Session from a manifest's EnableMacroInLSP flag and
// the package image a prior incremental-load pass produced.
func NewSession(enableMacroInLSP bool, cache incremental.Image) *Session {
	return &Session{EnableMacroInLSP: enableMacroInLSP, Cache: cache}
}

// QueryCachedDecl answers the cache-query contract: look up a declaration
// by its post-mangling name in the session's cached image.
func (s *Session) QueryCachedDecl(mangledName string) (*incremental.CachedDecl, bool) {
	return s.Cache.QueryCachedDecl(mangledName)
}
