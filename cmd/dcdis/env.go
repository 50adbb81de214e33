package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mitchellh/go-homedir"

	"dcdis/internal/analyze"
	"dcdis/internal/cfg"
	"dcdis/internal/dc"
	"dcdis/internal/dcfmt"
	"dcdis/internal/disasm"
	"dcdis/internal/sid"
)

// env is a loaded container together with the naming context used to read it.
type env struct {
	path       string
	file       *dc.File
	table      *sid.Table
	names      disasm.Resolver // nil without a table
	classifier dc.Classifier
}

func (e *env) resolve(h uint64) string {
	if e.names == nil {
		return sid.Format(h)
	}
	return e.names.Resolve(h)
}

func (a *app) formatOptions() dcfmt.Options {
	opts := dcfmt.Options{Mode: dcfmt.ModeBestEffort, MaxSteps: a.v.GetInt("max-steps")}
	if a.v.GetBool("strict") {
		opts.Mode = dcfmt.ModeStrict
	}
	return opts
}

// loadTable loads the resolver table named by the sid key. It returns nil
// when no table is configured.
func (a *app) loadTable() (*sid.Table, error) {
	path := a.v.GetString("sid")
	if path == "" {
		return nil, nil
	}
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("sid: %w", err)
	}
	t, err := sid.Load(path)
	if err != nil {
		return nil, err
	}
	a.log.Debug().Str("path", path).Int("names", t.Len()).Msg("resolver table loaded")
	return t, nil
}

// typeOverrides parses the types key: a map of type hash (hex) to view kind.
func (a *app) typeOverrides() (map[uint64]dc.Kind, error) {
	raw := a.v.GetStringMapString("types")
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[uint64]dc.Kind, len(raw))
	for k, name := range raw {
		h, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimPrefix(k, "#"), "0x"), 16, 64)
		if err != nil {
			return nil, fmt.Errorf("config: types: bad hash %q: %w", k, err)
		}
		kind, ok := dc.ParseKind(name)
		if !ok {
			return nil, fmt.Errorf("config: types: unknown kind %q for %s", name, k)
		}
		out[h] = kind
	}
	return out, nil
}

func (a *app) load(path string) (*env, error) {
	t, err := a.loadTable()
	if err != nil {
		return nil, err
	}
	overrides, err := a.typeOverrides()
	if err != nil {
		return nil, err
	}
	f, err := dc.Open(path, a.formatOptions())
	if err != nil {
		return nil, err
	}
	for _, d := range f.Diags {
		a.log.Warn().Str("file", path).Msg(d.String())
	}

	e := &env{path: path, file: f, table: t, classifier: dc.Classifier{Overrides: overrides}}
	if t != nil {
		e.names = t
		e.classifier.Names = t
	} else if overrides == nil {
		a.log.Warn().Msg("no resolver table or type overrides: every entry is unknown")
	}
	return e, nil
}

func (a *app) disasmOptions(e *env) disasm.Options {
	return disasm.Options{Options: a.formatOptions(), Names: e.names}
}

func (a *app) cfgOptions() cfg.Options {
	return cfg.Options{
		ContinuePastReturn: a.v.GetBool("continue-past-return"),
		ExactLoops:         a.v.GetBool("exact-loops"),
	}
}

func (a *app) analyzeOptions(e *env) analyze.Options {
	return analyze.Options{
		Workers:    a.v.GetInt("workers"),
		Disasm:     a.disasmOptions(e),
		CFG:        a.cfgOptions(),
		Classifier: e.classifier,
		Names:      e.names,
		Logger:     &a.log,
	}
}
