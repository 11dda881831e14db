package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/conduit-lang/dispatch/internal/conversion"
)

// SystemModule is the module name of the built-in introspection actions
const SystemModule = "system"

// RegisterSystemModule installs the built-in "system" actions:
//
//	ping        liveness check
//	modules     registered modules and their actions
//	formats     formats known to the converter registry
//	converters  registered converters with their quality
//	path        resolved conversion chain for ?from=&to=
func RegisterSystemModule(d *Dispatcher) error {
	return d.Actions().RegisterModule(SystemModule, map[string]Action{
		"ping":       ActionFunc(ping),
		"modules":    ActionFunc(d.listModules),
		"formats":    ActionFunc(d.listFormats),
		"converters": ActionFunc(d.listConverters),
		"path":       ActionFunc(d.describePath),
	})
}

func ping(ctx context.Context, req *Request) (*conversion.Result, error) {
	return conversion.NewResult(map[string]any{
		"pong": true,
		"time": time.Now().UTC().Format(time.RFC3339),
	}, "native"), nil
}

func (d *Dispatcher) listModules(ctx context.Context, req *Request) (*conversion.Result, error) {
	modules := make(map[string][]string)
	for _, m := range d.actions.Modules() {
		modules[m] = d.actions.Actions(m)
	}
	return conversion.NewResult(modules, "native"), nil
}

func (d *Dispatcher) listFormats(ctx context.Context, req *Request) (*conversion.Result, error) {
	return conversion.NewResult(d.converters.Formats(), "native"), nil
}

// ConverterInfo describes a registered converter
type ConverterInfo struct {
	Input   string `json:"input"`
	Output  string `json:"output"`
	Quality string `json:"quality"`
	Weight  int    `json:"weight"`
}

// DescribeConverters lists the converters of reg in registration order
func DescribeConverters(reg *conversion.Registry) []ConverterInfo {
	convs := reg.Converters()
	infos := make([]ConverterInfo, len(convs))
	for i, c := range convs {
		infos[i] = converterInfo(c)
	}
	return infos
}

func converterInfo(c conversion.Converter) ConverterInfo {
	return ConverterInfo{
		Input:   c.InputFormat(),
		Output:  c.OutputFormat(),
		Quality: c.Quality().String(),
		Weight:  c.Quality().Weight(),
	}
}

func (d *Dispatcher) listConverters(ctx context.Context, req *Request) (*conversion.Result, error) {
	return conversion.NewResult(DescribeConverters(d.converters), "native"), nil
}

// PathInfo describes the resolution of a conversion request
type PathInfo struct {
	From      string          `json:"from"`
	To        string          `json:"to"`
	Reachable bool            `json:"reachable"`
	Formats   []string        `json:"formats,omitempty"`
	Steps     []ConverterInfo `json:"steps,omitempty"`
	Weight    int             `json:"weight"`
	Reason    string          `json:"reason,omitempty"`
}

// DescribePath resolves from -> to in reg. Missing chains are reported in
// the returned PathInfo, not as an error.
func DescribePath(reg *conversion.Registry, from, to string) PathInfo {
	info := PathInfo{From: from, To: to}

	chain, err := reg.Path(from, to)
	if err != nil {
		var unknown *conversion.UnknownFormatError
		switch {
		case errors.As(err, &unknown):
			info.Reason = "unknown source format"
		default:
			info.Reason = "target format unreachable"
		}
		return info
	}

	info.Reachable = true
	info.Formats = chain.Formats()
	info.Weight = chain.Weight
	for _, step := range chain.Steps {
		info.Steps = append(info.Steps, converterInfo(step))
	}
	return info
}

func (d *Dispatcher) describePath(ctx context.Context, req *Request) (*conversion.Result, error) {
	from, err := req.RequireParam("from")
	if err != nil {
		return nil, err
	}
	to, err := req.RequireParam("to")
	if err != nil {
		return nil, err
	}
	return conversion.NewResult(DescribePath(d.converters, from, to), "native"), nil
}
