package generator_test

import (
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/f0mster/xpctoolbox/internal/generator"
)

const echoProto = `syntax = "proto3";

package echo.v1;

option go_package = "github.com/example/echo/echopb;echopb";

import "common.proto";

// Echo repeats what it hears.
// @event Said, Said:said_loudly
service Echo {
  // Say says it back.
  rpc Say (SayRequest) returns (SayResponse);
  rpc Ping (Empty) returns (Empty);
  rpc Nested (SayRequest.Part) returns (SayResponse);
}

message SayRequest {
  string text = 1;
  message Part {
    string text = 1;
  }
}

message SayResponse {
  string text = 1;
}

message Said {
  string text = 1;
}
`

const commonProto = `syntax = "proto3";

package echo.v1;

message Empty {}
`

// echoTypes stands in for the protoc-gen-go output of echoProto.
const echoTypes = `
import (
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type (
	SayRequest      = wrapperspb.StringValue
	SayRequest_Part = wrapperspb.StringValue
	SayResponse     = wrapperspb.StringValue
	Said            = wrapperspb.StringValue
	Empty           = emptypb.Empty
)
`

// typeCheck compiles src together with decls, the message declarations it
// refers to, against the real xpctoolbox packages.
func typeCheck(t *testing.T, src []byte, decls string) {
	if testing.Short() {
		t.Skip("type checking from source is slow")
	}
	wd, err := os.Getwd()
	require.NoError(t, err)
	fset := token.NewFileSet()
	gen, err := parser.ParseFile(fset, filepath.Join(wd, "gen.xpc.go"), src, 0)
	require.NoError(t, err)
	msgs, err := parser.ParseFile(fset, filepath.Join(wd, "messages.go"), "package "+gen.Name.Name+"\n"+decls, 0)
	require.NoError(t, err)

	conf := types.Config{Importer: importer.ForCompiler(fset, "source", nil)}
	_, err = conf.Check("example.com/"+gen.Name.Name, fset, []*ast.File{gen, msgs}, nil)
	require.NoError(t, err, string(src))
}

func writeProto(t *testing.T, files map[string]string) string {
	dir := t.TempDir()
	for name, src := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0644))
	}
	return dir
}

func TestRender(t *testing.T) {
	dir := writeProto(t, map[string]string{"echo.proto": echoProto, "common.proto": commonProto})
	src, err := generator.Render(filepath.Join(dir, "echo.proto"), "", zerolog.Nop())
	require.NoError(t, err)

	f, err := parser.ParseFile(token.NewFileSet(), "echo.xpc.go", src, parser.ParseComments)
	require.NoError(t, err)
	require.Equal(t, "echopb", f.Name.Name)

	out := string(src)
	for _, want := range []string{
		"// Code generated by xpctoolbox-gen from echo.proto. DO NOT EDIT.",
		"type EchoServer interface",
		"Say(ctx context.Context, req *SayRequest) (*SayResponse, error)",
		"Nested(ctx context.Context, req *SayRequest_Part) (*SayResponse, error)",
		"func NewEchoHandler(srv EchoServer) xpc.MessageHandler",
		"func (c *EchoClient) Say(ctx context.Context, req *SayRequest) (*SayResponse, error)",
		"func (c *EchoClient) PingSync(ctx context.Context, req *Empty) (*Empty, error)",
		"// Say says it back.",
		"func PublishEchoSaid(p pubsub.Publisher, namespace string, ev *Said) error",
		"func SubscribeEchoSaidLoudly(s pubsub.Subscriber, namespace string, cb func(ev *Said)) (pubsub.CancelFunc, error)",
		`p.Publish(namespace, "said_loudly", data)`,
	} {
		require.Contains(t, out, want)
	}
	typeCheck(t, src, echoTypes)
}

func TestRender_NoEvents(t *testing.T) {
	dir := writeProto(t, map[string]string{"plain.proto": `syntax = "proto3";
package plain;
message M {}
service S {
  rpc Do (M) returns (M);
}
`})
	src, err := generator.Render(filepath.Join(dir, "plain.proto"), "", zerolog.Nop())
	require.NoError(t, err)
	out := string(src)
	require.NotContains(t, out, "google.golang.org/protobuf/proto")
	require.NotContains(t, out, "pkg/pubsub")
	require.NotContains(t, out, "_ = ")
	require.Contains(t, out, "func (c *SClient) DoSync(ctx context.Context, req *M) (*M, error)")

	typeCheck(t, src, `
import "google.golang.org/protobuf/types/known/emptypb"

type M = emptypb.Empty
`)
}

func TestRender_PackageOverride(t *testing.T) {
	dir := writeProto(t, map[string]string{"echo.proto": echoProto, "common.proto": commonProto})
	src, err := generator.Render(filepath.Join(dir, "echo.proto"), "custom", zerolog.Nop())
	require.NoError(t, err)
	require.Contains(t, string(src), "package custom\n")
}

func TestGenerate(t *testing.T) {
	dir := writeProto(t, map[string]string{"echo.proto": echoProto, "common.proto": commonProto})
	out := filepath.Join(dir, "gen", "echo.xpc.go")
	require.NoError(t, generator.Generate(filepath.Join(dir, "echo.proto"), out, "", zerolog.Nop()))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Contains(t, string(data), "type EchoClient struct")
}

func TestRender_Errors(t *testing.T) {
	cases := map[string]struct {
		proto string
		err   string
	}{
		"no services": {
			proto: `syntax = "proto3"; package a; message M {}`,
			err:   generator.ErrNoServices.Error(),
		},
		"unknown message": {
			proto: `syntax = "proto3"; package a; message M {} service S { rpc Do (M) returns (Missing); }`,
			err:   "rpc S.Do: unknown message Missing",
		},
		"streaming": {
			proto: `syntax = "proto3"; package a; message M {} service S { rpc Do (stream M) returns (M); }`,
			err:   "rpc S.Do: streaming is not supported",
		},
		"unknown event": {
			proto: "syntax = \"proto3\";\npackage a;\nmessage M {}\n// @event Nope\nservice S { rpc Do (M) returns (M); }\n",
			err:   `service S: event "Nope" uses unknown message Nope`,
		},
		"duplicate event": {
			proto: "syntax = \"proto3\";\npackage a;\nmessage M {}\n// @event M, M\nservice S { rpc Do (M) returns (M); }\n",
			err:   `service S: event "M" declared twice`,
		},
		"missing import": {
			proto: `syntax = "proto3"; package a; import "gone.proto"; message M {} service S { rpc Do (M) returns (M); }`,
			err:   "import gone.proto",
		},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			dir := writeProto(t, map[string]string{"x.proto": c.proto})
			_, err := generator.Render(filepath.Join(dir, "x.proto"), "", zerolog.Nop())
			require.Error(t, err)
			require.Contains(t, err.Error(), c.err)
		})
	}
}
