package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/kata/internal/adapter"
)

// FrameworkInfo describes one registered adapter.
type FrameworkInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Globals     []string `json:"globals"`
	Setup       bool     `json:"setup"`
}

// NewFrameworksCommand creates the frameworks command.
func NewFrameworksCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "frameworks",
		Short: "List supported test frameworks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			infos := frameworkInfos(adapter.NewRegistry())
			if f.JSON() {
				return f.Success(infos)
			}
			tw := tabwriter.NewWriter(f.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tGLOBALS")
			for _, info := range infos {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", info.ID, info.Name, strings.Join(info.Globals, ", "))
			}
			return tw.Flush()
		},
	}
}

func frameworkInfos(r *adapter.Registry) []FrameworkInfo {
	var infos []FrameworkInfo
	for _, a := range r.List() {
		globals := append([]string{"Test"}, a.Vocabulary.Names()...)
		infos = append(infos, FrameworkInfo{
			ID:          a.ID,
			Name:        a.Name,
			Description: a.Description,
			Globals:     globals,
			Setup:       a.Bootstrap,
		})
	}
	return infos
}
