package page

import (
	"bytes"
	"context"
	_ "embed"
	"sync"
	"text/template"

	"github.com/dmorgan81/drawthings/internal/log"
	"github.com/samber/do"
)

//go:embed assets/summary.tmpl
var summaryTmpl string

type Params struct {
	Prompt string
	Model  string
	Seed   string
	Paths  []string
}

// Templator renders the generation summary printed after a txt2img run.
type Templator struct {
	tmpl *template.Template
	once sync.Once
}

func NewTemplator(i *do.Injector) (*Templator, error) {
	return &Templator{}, nil
}

func (g *Templator) Template(ctx context.Context, params Params) ([]byte, error) {
	g.once.Do(func() {
		g.tmpl = template.Must(template.New("summary").Parse(summaryTmpl))
	})

	log := log.FromContextOrDiscard(ctx).WithGroup("templator")
	log.Debug("rendering summary")

	var data bytes.Buffer
	if err := g.tmpl.Execute(&data, params); err != nil {
		return nil, err
	}
	return data.Bytes(), nil
}
