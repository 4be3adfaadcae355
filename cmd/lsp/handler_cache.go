package main

// handleQueryCachedDecl answers the jade/queryCachedDecl custom request,
// the one cache-query contract spec.md §4.3/§6 names: a lookup by
// post-mangling name against the session's cached package image, with no
// recomputation.
func (s *LanguageServer) handleQueryCachedDecl(id interface{}, params QueryCachedDeclParams) error {
	cached, found := s.session.QueryCachedDecl(params.MangledName)

	result := QueryCachedDeclResult{Found: found}
	if found {
		result.Decl = &incrementalDeclSummary{
			MangledName:       cached.MangledName,
			ExportID:          cached.ExportID,
			IsGenericInstance: cached.IsGenericInstance,
			IsAnnotation:      cached.IsAnnotation,
			IsMainOrMacro:     cached.IsMainOrMacro,
		}
	}

	return s.sendResponse(ResponseMessage{
		Jsonrpc: "2.0",
		ID:      id,
		Result:  result,
	})
}
