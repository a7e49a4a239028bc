package generator

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/emicklei/proto"
	"github.com/rs/zerolog"
)

type service struct {
	Name string
	Rpc  []rpc
	// Events maps event names to message types.
	Events map[string]string
}

type rpc struct {
	Name     string
	Request  string
	Response string
	Comments []string
}

var (
	eventLine  = regexp.MustCompile(`^\s*\*?\s*@event\s*(.*)\s*$`)
	eventSplit = regexp.MustCompile(`\s*[,]+\s*`)
)

// Parser collects the services of a proto file. Walk callbacks cannot fail,
// so the first problem is kept in err and reported by Render.
type Parser struct {
	Pkg string
	// GoPkg comes from the go_package option and wins over Pkg.
	GoPkg          string
	CurrentService string
	Services       map[string]*service
	// every message visible to the file, imports included
	Messages map[string]bool
	Filepath string

	log zerolog.Logger
	err error
}

func NewParser(protoFilePath string, log zerolog.Logger) *Parser {
	return &Parser{
		Services: map[string]*service{},
		Messages: map[string]bool{},
		Filepath: protoFilePath,
		log:      log,
	}
}

func (g *Parser) fail(format string, args ...interface{}) {
	if g.err == nil {
		g.err = fmt.Errorf(format, args...)
	}
}

func (g *Parser) handleImport(p *proto.Import) {
	if strings.HasPrefix(p.Filename, "google/protobuf/") {
		return
	}
	path := filepath.Join(filepath.Dir(g.Filepath), p.Filename)
	r, err := os.Open(path)
	if err != nil {
		g.fail("import %s: %w", p.Filename, err)
		return
	}
	defer r.Close()
	definition, err := proto.NewParser(r).Parse()
	if err != nil {
		g.fail("parse import %s: %w", p.Filename, err)
		return
	}
	proto.Walk(definition,
		proto.WithMessage(g.handleMessage),
	)
}

func (g *Parser) handlePackage(p *proto.Package) {
	g.Pkg = p.Name
	if i := strings.LastIndex(p.Name, "."); i >= 0 {
		g.Pkg = p.Name[i+1:]
	}
}

func (g *Parser) handleOption(o *proto.Option) {
	if o.Name != "go_package" {
		return
	}
	pkg := o.Constant.Source
	if i := strings.LastIndex(pkg, ";"); i >= 0 {
		pkg = pkg[i+1:]
	} else {
		pkg = filepath.Base(pkg)
	}
	g.GoPkg = pkg
}

func (g *Parser) handleService(s *proto.Service) {
	svc := &service{
		Name:   s.Name,
		Rpc:    []rpc{},
		Events: map[string]string{},
	}
	g.Services[s.Name] = svc
	g.CurrentService = s.Name
	if s.Comment == nil {
		return
	}
	for _, line := range s.Comment.Lines {
		match := eventLine.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		for _, event := range eventSplit.Split(strings.TrimSpace(match[1]), -1) {
			msg, name := event, event
			// Message:name publishes Message under a custom event name
			if parts := strings.SplitN(event, ":", 2); len(parts) == 2 {
				msg, name = parts[0], parts[1]
			}
			if !g.Messages[msg] {
				g.fail("service %s: event %q uses unknown message %s", s.Name, name, msg)
				return
			}
			if _, dup := svc.Events[name]; dup {
				g.fail("service %s: event %q declared twice", s.Name, name)
				return
			}
			g.log.Debug().Str("service", s.Name).Str("event", name).Str("message", msg).Msg("event")
			svc.Events[name] = msg
		}
	}
}

func (g *Parser) handleRPC(prpc *proto.RPC) {
	if prpc.StreamsRequest || prpc.StreamsReturns {
		g.fail("rpc %s.%s: streaming is not supported", g.CurrentService, prpc.Name)
		return
	}
	request, response := goType(prpc.RequestType), goType(prpc.ReturnsType)
	for _, typ := range []string{request, response} {
		if !g.Messages[typ] {
			g.fail("rpc %s.%s: unknown message %s", g.CurrentService, prpc.Name, typ)
			return
		}
	}

	myRpc := rpc{
		Name:     prpc.Name,
		Request:  request,
		Response: response,
	}
	if prpc.Comment != nil && len(prpc.Comment.Lines) > 0 {
		myRpc.Comments = append([]string(nil), prpc.Comment.Lines...)
	}
	g.log.Debug().Str("service", g.CurrentService).Str("rpc", prpc.Name).Msg("rpc")

	svc := g.Services[g.CurrentService]
	svc.Rpc = append(svc.Rpc, myRpc)
}

func (g *Parser) handleMessage(m *proto.Message) {
	g.Messages[m.Name] = true
	// nested messages (one level deep) are generated as Parent_Child
	for _, f := range m.Elements {
		if msg, ok := f.(*proto.Message); ok {
			g.Messages[fmt.Sprintf("%s_%s", m.Name, msg.Name)] = true
		}
	}
}

// goType is the name protoc-gen-go gives a (possibly nested) message.
func goType(protoType string) string {
	return strings.ReplaceAll(protoType, ".", "_")
}
