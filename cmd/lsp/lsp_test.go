package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/jade-lang/jadec/internal/incremental"
	"github.com/jade-lang/jadec/internal/lspsupport"
)

func sendMessage(t *testing.T, s *LanguageServer, msg interface{}) {
	t.Helper()
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := s.handleMessage(data); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}
}

func lastResponse(t *testing.T, buf *bytes.Buffer) ResponseMessage {
	t.Helper()
	var resp ResponseMessage
	if err := decodeFrame(buf, &resp); err != nil {
		t.Fatalf("decoding response frame: %v", err)
	}
	return resp
}

// decodeFrame strips one "Content-Length: N\r\n\r\n<json>" frame from buf
// and unmarshals its body into v.
func decodeFrame(buf *bytes.Buffer, v interface{}) error {
	data := buf.Bytes()
	sep := []byte("\r\n\r\n")
	idx := bytes.Index(data, sep)
	if idx < 0 {
		return fmt.Errorf("no frame separator found in %q", data)
	}
	body := data[idx+len(sep):]
	return json.Unmarshal(body, v)
}

func TestHandleInitializeAdvertisesFullSyncOnly(t *testing.T) {
	var out bytes.Buffer
	s := NewLanguageServer(&out, nil)

	sendMessage(t, s, RequestMessage{Jsonrpc: "2.0", ID: 1, Method: "initialize", Params: InitializeParams{}})

	resp := lastResponse(t, &out)
	if resp.Error != nil {
		t.Fatalf("initialize returned an error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("result = %#v, want a map", resp.Result)
	}
	caps, ok := result["capabilities"].(map[string]interface{})
	if !ok {
		t.Fatalf("capabilities = %#v, want a map", result["capabilities"])
	}
	if sync, _ := caps["textDocumentSync"].(float64); sync != 1 {
		t.Errorf("textDocumentSync = %v, want 1 (full sync)", caps["textDocumentSync"])
	}
	if len(caps) != 1 {
		t.Errorf("capabilities = %v, want only textDocumentSync", caps)
	}
}

func TestDidOpenPublishesParseDiagnostics(t *testing.T) {
	var out bytes.Buffer
	s := NewLanguageServer(&out, nil)

	sendMessage(t, s, NotificationMessage{
		Jsonrpc: "2.0",
		Method:  "textDocument/didOpen",
		Params: DidOpenTextDocumentParams{
			TextDocument: TextDocumentItem{URI: "file:///bad.jd", Text: "func (("},
		},
	})

	var notif NotificationMessage
	if err := decodeFrame(&out, &notif); err != nil {
		t.Fatalf("decoding notification: %v", err)
	}
	if notif.Method != "textDocument/publishDiagnostics" {
		t.Fatalf("method = %q, want textDocument/publishDiagnostics", notif.Method)
	}
}

func TestQueryCachedDeclFindsByMangledName(t *testing.T) {
	image := incremental.Image{
		Valid: true,
		Decls: []incremental.CachedDecl{
			{MangledName: "pkg.foo#0", ExportID: "exp1"},
		},
	}
	session := lspsupport.NewSession(false, image)

	var out bytes.Buffer
	s := NewLanguageServer(&out, session)

	sendMessage(t, s, RequestMessage{
		Jsonrpc: "2.0", ID: 1, Method: "jade/queryCachedDecl",
		Params: QueryCachedDeclParams{MangledName: "pkg.foo#0"},
	})

	resp := lastResponse(t, &out)
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("result = %#v, want a map", resp.Result)
	}
	if found, _ := result["found"].(bool); !found {
		t.Errorf("found = %v, want true", result["found"])
	}
}

func TestQueryCachedDeclMissReportsNotFound(t *testing.T) {
	session := lspsupport.NewSession(false, incremental.Image{Valid: true})

	var out bytes.Buffer
	s := NewLanguageServer(&out, session)

	sendMessage(t, s, RequestMessage{
		Jsonrpc: "2.0", ID: 1, Method: "jade/queryCachedDecl",
		Params: QueryCachedDeclParams{MangledName: "pkg.missing#0"},
	})

	resp := lastResponse(t, &out)
	result := resp.Result.(map[string]interface{})
	if found, _ := result["found"].(bool); found {
		t.Errorf("found = %v, want false", found)
	}
}
