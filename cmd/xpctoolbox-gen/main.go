package main

import (
	"flag"
	"os"
	"path"
	"strings"

	"github.com/rs/zerolog"

	"github.com/f0mster/xpctoolbox/internal/generator"
)

var version = "unknown"

func main() {
	fDebug := flag.Bool("d", false, "debug mode")
	fProto := flag.String("proto", "", "path to proto file")
	fOutPath := flag.String("out", "", "output path")
	fPkg := flag.String("pkg", "", "go package name of the generated file")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	level := zerolog.InfoLevel
	if *fDebug {
		level = zerolog.DebugLevel
	}
	log = log.Level(level)
	log.Info().Str("version", version).Msg("xpctoolbox code generator")

	if *fProto == "" {
		log.Error().Msg("-proto flag must be used")
		os.Exit(1)
	}
	name := strings.TrimSuffix(path.Base(*fProto), ".proto") + ".xpc.go"
	out := path.Join(path.Dir(*fProto), name)
	if *fOutPath != "" {
		out = path.Join(*fOutPath, name)
	}
	if err := generator.Generate(*fProto, out, *fPkg, log); err != nil {
		log.Error().Err(err).Msg("gen error")
		os.Exit(1)
	}
	log.Info().Msg("done.")
}
