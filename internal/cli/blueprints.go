package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// BlueprintInfo describes one configured blueprint.
type BlueprintInfo struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Schema string `json:"schema"`
}

// NewBlueprintsCommand creates the blueprints command.
func NewBlueprintsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "blueprints",
		Short:         "List configured blueprints",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBlueprints(rootOpts, cmd)
		},
	}
}

func runBlueprints(opts *RootOptions, cmd *cobra.Command) error {
	s, err := loadSession(opts, cmd)
	if err != nil {
		return err
	}

	var infos []BlueprintInfo
	for _, name := range s.blueprints.Names() {
		bp, _ := s.blueprints.Get(name)
		infos = append(infos, BlueprintInfo{
			Name:   bp.Name,
			Kind:   bp.Kind.String(),
			Schema: bp.Schema.Format(),
		})
	}

	if s.formatter.Format == "json" {
		return s.formatter.Success(infos)
	}
	tw := tabwriter.NewWriter(s.formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tSCHEMA")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", info.Name, info.Kind, info.Schema)
	}
	return tw.Flush()
}
