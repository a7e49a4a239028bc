package generator

import (
	_ "embed"
	"fmt"
	"go/format"
	"io"
	"strings"
	"text/template"
	"unicode"
)

//go:embed template.tmpl
var mainTpl string

var tpl = template.Must(template.New("xpc").Funcs(template.FuncMap{
	"ToCamelCase": toCamelCase,
}).Parse(mainTpl))

func render(w io.Writer, data interface{}) error {
	buf := &strings.Builder{}
	if err := tpl.Execute(buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}
	src, err := format.Source([]byte(buf.String()))
	if err != nil {
		return fmt.Errorf("generated code does not parse: %w", err)
	}
	_, err = w.Write(src)
	return err
}

// toCamelCase turns snake_case or dotted names into CamelCase.
func toCamelCase(s string) string {
	b := strings.Builder{}
	upper := true
	for _, r := range s {
		switch {
		case r == '_' || r == '.' || r == '-':
			upper = true
		case upper:
			b.WriteRune(unicode.ToUpper(r))
			upper = false
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
