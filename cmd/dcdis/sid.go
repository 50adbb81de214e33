package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"dcdis/internal/sid"
)

func parseHash(s string) (uint64, error) {
	s = strings.TrimPrefix(s, "#")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return strconv.ParseUint(s, 16, 64)
}

func (a *app) sidCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sid <hash>...",
		Short: "Resolve StringId64 hashes through the resolver table",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.loadTable()
			if err != nil {
				return err
			}
			if t == nil {
				return errors.New("sid: no resolver table configured (use --sid)")
			}
			for _, arg := range args {
				h, err := parseHash(arg)
				if err != nil {
					return fmt.Errorf("sid: bad hash %q: %w", arg, err)
				}
				name, ok := t.Lookup(h)
				if !ok {
					name = "(not found)"
				}
				fmt.Fprintf(a.stdout, "%s  %s\n", sid.Format(h), name)
			}
			return nil
		},
	}
}
