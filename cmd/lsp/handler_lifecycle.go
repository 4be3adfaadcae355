package main

import "log"

func (s *LanguageServer) handleInitialize(id interface{}, params InitializeParams) error {
	log.Printf("Handling initialize request with ID: %v", id)

	if params.RootURI != nil && *params.RootURI != "" {
		s.rootPath = s.uriToPath(*params.RootURI)
	} else if params.RootPath != nil && *params.RootPath != "" {
		s.rootPath = *params.RootPath
	}

	result := InitializeResult{
		Capabilities: ServerCapabilities{
			TextDocumentSync: 1, // full sync
		},
	}

	return s.sendResponse(ResponseMessage{
		Jsonrpc: "2.0",
		ID:      id,
		Result:  result,
	})
}

func (s *LanguageServer) handleShutdown(id interface{}) error {
	return s.sendResponse(ResponseMessage{
		Jsonrpc: "2.0",
		ID:      id,
		Result:  nil,
	})
}
