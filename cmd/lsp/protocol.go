package main

// LSP message envelopes, trimmed to what the parse-mode + cache-query
// contract actually exchanges: lifecycle, document sync, published
// diagnostics, and one custom request for cached-decl lookup. Request/
// response/notification framing mirrors the teacher's own JSON-RPC
// structs one-for-one; the removed request/response pairs (hover,
// definition, completion, formatting) are not part of this contract.

type RequestMessage struct {
	Jsonrpc string      `json:"jsonrpc"`
	ID      interface{} `json:"id,omitempty"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type ResponseMessage struct {
	Jsonrpc string      `json:"jsonrpc"`
	ID      interface{} `json:"id,omitempty"`
	Result  interface{} `json:"result"`
	Error   *Error      `json:"error,omitempty"`
}

type NotificationMessage struct {
	Jsonrpc string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type InitializeParams struct {
	ProcessID    *int               `json:"processId,omitempty"`
	RootURI      *string            `json:"rootUri,omitempty"`
	RootPath     *string            `json:"rootPath,omitempty"`
	Capabilities ClientCapabilities `json:"capabilities"`
}

type ClientCapabilities struct {
	TextDocument *TextDocumentClientCapabilities `json:"textDocument,omitempty"`
}

type TextDocumentClientCapabilities struct {
	Synchronization *SynchronizationCapabilities `json:"synchronization,omitempty"`
}

type SynchronizationCapabilities struct {
	DidSave           bool `json:"didSave"`
	WillSave          bool `json:"willSave"`
	WillSaveWaitUntil bool `json:"willSaveWaitUntil"`
}

type InitializeResult struct {
	Capabilities ServerCapabilities `json:"capabilities"`
}

// ServerCapabilities advertises only full-document sync: no hover,
// definition, completion, or formatting providers, since this server's
// contract is limited to parsing and the cached-decl query.
type ServerCapabilities struct {
	TextDocumentSync int `json:"textDocumentSync"`
}

type DidOpenTextDocumentParams struct {
	TextDocument TextDocumentItem `json:"textDocument"`
}

type DidChangeTextDocumentParams struct {
	TextDocument   VersionedTextDocumentIdentifier  `json:"textDocument"`
	ContentChanges []TextDocumentContentChangeEvent `json:"contentChanges"`
}

type DidCloseTextDocumentParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

type TextDocumentItem struct {
	URI        string `json:"uri"`
	LanguageID string `json:"languageId"`
	Version    int    `json:"version"`
	Text       string `json:"text"`
}

type VersionedTextDocumentIdentifier struct {
	URI     string `json:"uri"`
	Version int    `json:"version"`
}

type TextDocumentIdentifier struct {
	URI string `json:"uri"`
}

type TextDocumentContentChangeEvent struct {
	Range       *Range `json:"range,omitempty"`
	RangeLength *int   `json:"rangeLength,omitempty"`
	Text        string `json:"text"`
}

type PublishDiagnosticsParams struct {
	URI         string       `json:"uri"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

type Diagnostic struct {
	Range    Range              `json:"range"`
	Severity DiagnosticSeverity `json:"severity"`
	Code     interface{}        `json:"code,omitempty"`
	Message  string             `json:"message"`
	Source   string             `json:"source"`
}

type DiagnosticSeverity int

const (
	SeverityError   DiagnosticSeverity = 1
	SeverityWarning DiagnosticSeverity = 2
)

type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// QueryCachedDeclParams/Result back the jade/queryCachedDecl custom
// request, spec.md §4.3/§6's cache-query contract.
type QueryCachedDeclParams struct {
	MangledName string `json:"mangledName"`
}

type QueryCachedDeclResult struct {
	Found bool                    `json:"found"`
	Decl  *incrementalDeclSummary `json:"decl,omitempty"`
}

// incrementalDeclSummary is the wire-safe projection of
// incremental.CachedDecl the query response carries — fields a client
// would actually want, not the full removal-closure bookkeeping.
type incrementalDeclSummary struct {
	MangledName      string `json:"mangledName"`
	ExportID         string `json:"exportId"`
	IsGenericInstance bool  `json:"isGenericInstance"`
	IsAnnotation      bool  `json:"isAnnotation"`
	IsMainOrMacro     bool  `json:"isMainOrMacro"`
}
