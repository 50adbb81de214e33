// Package analyze runs the decode, graph and loop passes over every lambda of
// a container in parallel.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"dcdis/internal/cfg"
	"dcdis/internal/dc"
	"dcdis/internal/disasm"
	"dcdis/internal/sid"
)

// Options controls a run.
type Options struct {
	Workers    int // <= 0 means runtime.NumCPU()
	Disasm     disasm.Options
	CFG        cfg.Options
	Classifier dc.Classifier
	Names      disasm.Resolver
	Logger     *zerolog.Logger // nil discards
}

// Result is the outcome for one lambda entry. Func may be set even when Err
// is, holding the lines decoded before the failure.
type Result struct {
	Entry  dc.Entry
	Name   string
	Lambda dc.Lambda
	Func   *disasm.Function
	Graph  *cfg.Graph
	Err    error
}

// Report collects the results of one container in entry order.
type Report struct {
	File    *dc.File
	Results []Result
}

// Functions returns the decoded functions keyed by entry index.
func (r *Report) Functions() map[int]*disasm.Function {
	out := make(map[int]*disasm.Function, len(r.Results))
	for _, res := range r.Results {
		if res.Func != nil {
			out[res.Entry.Index] = res.Func
		}
	}
	return out
}

// Graphs returns the graphs that were built, in entry order.
func (r *Report) Graphs() []*cfg.Graph {
	var out []*cfg.Graph
	for _, res := range r.Results {
		if res.Graph != nil {
			out = append(out, res.Graph)
		}
	}
	return out
}

// Failed counts results with an error.
func (r *Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

func resolve(names disasm.Resolver, h uint64) string {
	if names == nil {
		return sid.Format(h)
	}
	return names.Resolve(h)
}

// Lambdas returns the entries f classifies as script lambdas.
func Lambdas(f *dc.File, c dc.Classifier) []dc.Entry {
	var out []dc.Entry
	for _, e := range f.Entries {
		if c.Kind(e.TypeHash) == dc.KindLambda {
			out = append(out, e)
		}
	}
	return out
}

// Run analyzes every lambda of f. Each lambda is independent: a failure is
// stored in its Result and never stops the others. The returned error joins
// all per-lambda errors and is nil when every lambda succeeded.
func Run(ctx context.Context, f *dc.File, opts Options) (*Report, error) {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	dopts := opts.Disasm
	if dopts.Names == nil {
		dopts.Names = opts.Names
	}

	entries := Lambdas(f, opts.Classifier)
	report := &Report{File: f, Results: make([]Result, len(entries))}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, e := range entries {
		g.Go(func() error {
			res := &report.Results[i]
			res.Entry = e
			res.Name = resolve(opts.Names, e.NameHash)
			if err := gctx.Err(); err != nil {
				res.Err = err
				return nil
			}
			analyzeOne(f, res, dopts, opts.CFG)
			logResult(&log, res)
			return nil
		})
	}
	_ = g.Wait()

	var errs *multierror.Error
	for _, res := range report.Results {
		if res.Err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", res.Name, res.Err))
		}
	}
	return report, errs.ErrorOrNil()
}

func analyzeOne(f *dc.File, res *Result, dopts disasm.Options, copts cfg.Options) {
	l, err := f.Lambda(res.Entry)
	res.Lambda = l
	if err != nil {
		res.Err = err
		return
	}
	fn, err := disasm.Disassemble(disasm.Input{
		Name:        res.Name,
		Data:        f.Data,
		InstrOffset: l.InstrOffset,
		ConstOffset: l.ConstOffset,
	}, dopts)
	res.Func = fn
	if err != nil {
		res.Err = err
		return
	}
	res.Graph = cfg.Build(fn, copts)
}

func logResult(log *zerolog.Logger, res *Result) {
	if res.Func != nil {
		for _, ft := range res.Func.Faults {
			ev := log.Warn()
			if errors.Is(ft.Err, disasm.ErrUnknownOpcode) {
				ev = log.Debug()
			}
			ev.Str("func", res.Name).Int("line", ft.Location).Err(ft.Err).Msg("decode fault")
		}
	}
	if res.Err != nil {
		log.Error().Str("func", res.Name).Int("entry", res.Entry.Index).Err(res.Err).Msg("analysis failed")
		return
	}
	for _, lp := range res.Graph.Loops {
		if !lp.Dominated {
			log.Warn().Str("func", res.Name).Int("head", lp.Head).Int("latch", lp.Latch).Msg("loop head does not dominate latch")
		}
	}
	log.Debug().
		Str("func", res.Name).
		Int("lines", res.Func.Len()).
		Int("nodes", len(res.Graph.Nodes)).
		Int("loops", len(res.Graph.Loops)).
		Msg("analyzed")
}
