// Package generator turns the services of a proto file into typed xpc
// clients, handlers and event helpers.
package generator

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/emicklei/proto"
	"github.com/rs/zerolog"
)

var ErrNoServices = errors.New("generator: proto file declares no services")

// Render parses the proto file at protoPath and returns the generated Go
// source. pkg overrides the package name taken from the file.
func Render(protoPath string, pkg string, log zerolog.Logger) ([]byte, error) {
	r, err := os.Open(protoPath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	definition, err := proto.NewParser(r).Parse()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", protoPath, err)
	}

	p := NewParser(protoPath, log)

	// step 1: collect messages
	proto.Walk(definition,
		proto.WithImport(p.handleImport),
		proto.WithMessage(p.handleMessage),
	)

	// step 2: walk over services and RPCs
	proto.Walk(definition,
		proto.WithPackage(p.handlePackage),
		proto.WithOption(p.handleOption),
		proto.WithService(p.handleService),
		proto.WithRPC(p.handleRPC),
	)
	if p.err != nil {
		return nil, p.err
	}
	if len(p.Services) == 0 {
		return nil, ErrNoServices
	}
	switch {
	case pkg != "":
		p.Pkg = pkg
	case p.GoPkg != "":
		p.Pkg = p.GoPkg
	}
	if p.Pkg == "" {
		return nil, fmt.Errorf("%s: no package name, set one with go_package", protoPath)
	}

	buf := &bytes.Buffer{}
	if err = render(buf, &file{Parser: p, Source: filepath.Base(protoPath)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Generate renders protoPath into outFile.
func Generate(protoPath, outFile, pkg string, log zerolog.Logger) error {
	src, err := Render(protoPath, pkg, log)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(outFile), 0755); err != nil {
		return err
	}
	log.Info().Str("file", outFile).Msg("writing output file")
	return os.WriteFile(outFile, src, 0644)
}

type file struct {
	*Parser
	Source string
}

// SortedServices keeps the output stable between runs.
func (f *file) SortedServices() []*service {
	res := make([]*service, 0, len(f.Services))
	for _, s := range f.Services {
		res = append(res, s)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res
}

// HasEvents reports whether any service declares events, which is when the
// output needs the proto and pubsub imports.
func (f *file) HasEvents() bool {
	for _, s := range f.Services {
		if len(s.Events) > 0 {
			return true
		}
	}
	return false
}
