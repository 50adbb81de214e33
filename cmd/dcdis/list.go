package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"dcdis/internal/listing"
)

func listingStyle() listing.Style {
	return listing.Style{
		Header:  color.New(color.FgCyan, color.Bold).SprintFunc(),
		Comment: color.New(color.FgHiBlack).SprintFunc(),
		Opcode:  color.New(color.FgWhite).SprintFunc(),
		Text:    color.New(color.FgGreen).SprintFunc(),
		Hash:    color.New(color.FgYellow).SprintFunc(),
		Label:   color.New(color.FgMagenta).SprintFunc(),
	}
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <file.bin>",
		Short: "Print the annotated listing of a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.load(args[0])
			if err != nil {
				return err
			}
			opts := listing.Options{
				Names:      e.names,
				Classifier: e.classifier,
				Disasm:     a.disasmOptions(e),
			}
			if !color.NoColor {
				opts.Style = listingStyle()
			}
			return listing.Write(a.stdout, e.file, opts)
		},
	}
}
