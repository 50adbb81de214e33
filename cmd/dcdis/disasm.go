package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zboralski/lattice"
	lrender "github.com/zboralski/lattice/render"

	"dcdis/internal/analyze"
	"dcdis/internal/callgraph"
	"dcdis/internal/listing"
	"dcdis/internal/output"
	"dcdis/internal/render"
)

func (a *app) disasmCmd() *cobra.Command {
	var outDir string
	var graph, cborOut bool
	cmd := &cobra.Command{
		Use:   "disasm <file.bin>",
		Short: "Disassemble every lambda and write listings, records and graphs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDisasm(cmd.Context(), args[0], outDir, graph, cborOut)
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "output directory (required)")
	cmd.Flags().BoolVar(&graph, "graph", false, "write CFG and call graph DOT files")
	cmd.Flags().BoolVar(&cborOut, "cbor", false, "write analysis.cbor")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

// fileNames assigns each result a unique file name.
func fileNames(results []analyze.Result) []string {
	seen := make(map[string]bool)
	out := make([]string, len(results))
	for i, res := range results {
		name := output.SafeName(res.Name)
		if seen[name] {
			name = fmt.Sprintf("%s_%d", name, res.Entry.Index)
		}
		seen[name] = true
		out[i] = name
	}
	return out
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (a *app) runDisasm(ctx context.Context, path, outDir string, graph, cborOut bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	e, err := a.load(path)
	if err != nil {
		return err
	}
	report, runErr := analyze.Run(ctx, e.file, a.analyzeOptions(e))
	if runErr != nil && a.v.GetBool("strict") {
		return runErr
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("mkdir output: %w", err)
	}

	lf, err := os.Create(filepath.Join(outDir, "listing.txt"))
	if err != nil {
		return fmt.Errorf("create listing.txt: %w", err)
	}
	err = listing.Write(lf, e.file, listing.Options{
		Names:      e.names,
		Classifier: e.classifier,
		Disasm:     a.disasmOptions(e),
		Functions:  report.Functions(),
	})
	lf.Close()
	if err != nil {
		return fmt.Errorf("write listing.txt: %w", err)
	}

	funcs, err := output.CreateJSONL(outDir, "functions.jsonl")
	if err != nil {
		return err
	}
	defer funcs.Close()
	loops, err := output.CreateJSONL(outDir, "loops.jsonl")
	if err != nil {
		return err
	}
	defer loops.Close()
	calls, err := output.CreateJSONL(outDir, "call_edges.jsonl")
	if err != nil {
		return err
	}
	defer calls.Close()

	bundle := &output.Bundle{File: filepath.Base(path), Size: e.file.Size(), Entries: len(e.file.Entries)}
	var infos []callgraph.FuncInfo
	var index []render.IndexFunc
	var written, nloops, dots int

	names := fileNames(report.Results)
	for i, res := range report.Results {
		name := names[i]
		if res.Func == nil {
			rec := output.FuncRecord{Name: res.Name, Entry: res.Entry.Index, Error: errString(res.Err)}
			if err := funcs.Write(rec); err != nil {
				return err
			}
			bundle.Functions = append(bundle.Functions, rec)
			index = append(index, render.IndexFunc{Name: res.Name, Error: rec.Error})
			continue
		}

		if err := output.WriteASM(outDir, name, res.Func); err != nil {
			return fmt.Errorf("write asm %s: %w", name, err)
		}
		rec := output.NewFuncRecord(res.Entry.Index, res.Func, res.Graph)
		rec.File = filepath.ToSlash(filepath.Join("asm", name+".txt"))
		rec.Error = errString(res.Err)
		if err := funcs.Write(rec); err != nil {
			return err
		}
		bundle.Functions = append(bundle.Functions, rec)
		index = append(index, render.IndexFunc{
			Name:  res.Name,
			File:  name,
			Lines: rec.Instructions,
			Nodes: rec.Nodes,
			Loops: rec.Loops,
			Error: rec.Error,
		})
		written++

		for _, ce := range output.NewCallEdgeRecords(res.Func) {
			if err := calls.Write(ce); err != nil {
				return err
			}
			bundle.Calls = append(bundle.Calls, ce)
		}
		infos = append(infos, callgraph.Info(res.Func))

		if res.Graph == nil {
			continue
		}
		if err := output.WriteCFGText(outDir, name, res.Graph); err != nil {
			return fmt.Errorf("write cfg %s: %w", name, err)
		}
		for _, lr := range output.NewLoopRecords(res.Graph) {
			if err := loops.Write(lr); err != nil {
				return err
			}
			bundle.Loops = append(bundle.Loops, lr)
			nloops++
		}

		if graph {
			if err := output.WriteDOT(outDir, filepath.Join("cfg", name+".dot"), render.CFGDOT(res.Graph, render.NASA)); err != nil {
				return fmt.Errorf("write cfg dot %s: %w", name, err)
			}
			lg := &lattice.CFGGraph{Funcs: []*lattice.FuncCFG{callgraph.FuncCFG(res.Graph)}}
			if err := output.WriteDOT(outDir, filepath.Join("lattice", name+".dot"), lrender.DOTCFG(lg, res.Name)); err != nil {
				return fmt.Errorf("write lattice dot %s: %w", name, err)
			}
			dots++
		}
	}

	title := filepath.Base(path)
	if graph && len(infos) > 0 {
		if err := output.WriteDOT(outDir, "callgraph.dot", render.CallgraphDOT(infos, title, render.NASA, 0)); err != nil {
			return fmt.Errorf("write callgraph.dot: %w", err)
		}
		cg := callgraph.BuildCallGraph(infos)
		if err := output.WriteDOT(outDir, "callgraph_lattice.dot", lrender.DOT(cg, title)); err != nil {
			return fmt.Errorf("write callgraph_lattice.dot: %w", err)
		}
		if err := output.WriteDOT(outDir, "reachable.dot", render.ReachabilityDOT(infos, title, render.NASA)); err != nil {
			return fmt.Errorf("write reachable.dot: %w", err)
		}
		stats := render.ComputeStats(infos)
		fmt.Fprintf(a.stderr, "callgraph: %d functions, %d call sites, %d external callees\n",
			stats.Functions, stats.CallSites, stats.External)
	}

	entries := render.FindEntryPoints(infos)
	var sb strings.Builder
	if err := render.WriteIndexHTML(&sb, render.Index{
		Title:       title,
		Size:        e.file.Size(),
		Entries:     len(e.file.Entries),
		Funcs:       index,
		Stats:       render.ComputeStats(infos),
		EntryPoints: entries,
		Reachable:   len(render.ReachableSet(entries, infos)),
		Graphs:      graph,
	}); err != nil {
		return err
	}
	if err := output.WriteText(outDir, "index.html", sb.String()); err != nil {
		return fmt.Errorf("write index.html: %w", err)
	}

	if cborOut {
		if err := output.WriteCBOR(filepath.Join(outDir, "analysis.cbor"), bundle); err != nil {
			return err
		}
	}

	fmt.Fprintf(a.stderr, "disasm: %d/%d lambdas written, %d loops, %d failed\n",
		written, len(report.Results), nloops, report.Failed())
	if graph {
		fmt.Fprintf(a.stderr, "graphs: %d CFG DOT files\n", dots)
	}
	fmt.Fprintf(a.stderr, "output: %s\n", outDir)
	return nil
}
