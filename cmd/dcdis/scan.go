package main

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/hokaccha/go-prettyjson"
	"github.com/spf13/cobra"

	"dcdis/internal/dc"
)

type scanEntry struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Kind  string `json:"kind"`
	Ptr   string `json:"ptr"`
	Code  string `json:"code,omitempty"`
	Size  int    `json:"instructions,omitempty"`
}

type scanReport struct {
	File    string      `json:"file"`
	Size    int         `json:"size"`
	Header  dc.Header   `json:"header"`
	Entries []scanEntry `json:"entries"`
	Diags   []string    `json:"diags,omitempty"`
}

func (a *app) scanCmd() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "scan <file.bin>",
		Short: "Print the container header and entry table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.load(args[0])
			if err != nil {
				return err
			}
			rep := buildScan(e)
			if jsonOut {
				return a.printJSON(rep)
			}
			a.printScan(rep)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON")
	return cmd
}

func buildScan(e *env) scanReport {
	f := e.file
	rep := scanReport{File: e.path, Size: f.Size(), Header: f.Header}
	for _, ent := range f.Entries {
		kind := e.classifier.Kind(ent.TypeHash)
		se := scanEntry{
			Index: ent.Index,
			Name:  e.resolve(ent.NameHash),
			Type:  e.resolve(ent.TypeHash),
			Kind:  kind.String(),
			Ptr:   fmt.Sprintf("0x%06x", ent.Ptr),
		}
		if kind == dc.KindLambda {
			if l, err := f.Lambda(ent); err == nil {
				se.Code = fmt.Sprintf("0x%06x", l.InstrOffset)
				se.Size = l.NumInstructions()
			}
		}
		rep.Entries = append(rep.Entries, se)
	}
	for _, d := range f.Diags {
		rep.Diags = append(rep.Diags, d.String())
	}
	return rep
}

func (a *app) printJSON(v any) error {
	var out []byte
	var err error
	if color.NoColor {
		out, err = json.MarshalIndent(v, "", "  ")
	} else {
		out, err = prettyjson.Marshal(v)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.stdout, string(out))
	return err
}

func (a *app) printScan(rep scanReport) {
	h := rep.Header
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(a.stdout, "%s %s (%d bytes)\n", bold("file:"), rep.File, rep.Size)
	fmt.Fprintf(a.stdout, "magic=0x%08x version=%d text_size=0x%x strings=0x%x entries=%d at 0x%x\n",
		h.Magic, h.Version, h.TextSize, h.StringsOffset, h.NumEntries, h.EntriesPtr)
	fmt.Fprintf(a.stdout, "%5s  %-8s  %-14s  %-24s  %s\n", "IDX", "PTR", "KIND", "TYPE", "NAME")
	for _, se := range rep.Entries {
		fmt.Fprintf(a.stdout, "%5d  %-8s  %-14s  %-24s  %s", se.Index, se.Ptr, se.Kind, se.Type, se.Name)
		if se.Code != "" {
			fmt.Fprintf(a.stdout, "  (code %s, %d instructions)", se.Code, se.Size)
		}
		fmt.Fprintln(a.stdout)
	}
	for _, d := range rep.Diags {
		fmt.Fprintf(a.stderr, "diag: %s\n", d)
	}
}
