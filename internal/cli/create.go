package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// CreateResult is the output of the create command.
type CreateResult struct {
	Address string `json:"address"`
	Kind    string `json:"kind"`
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create <blueprint>",
		Short: "Create a new store",
		Long: `Create a new store from a configured blueprint and print its address.

Stores from writers-controlled blueprints are writable by the current
identity and the blueprint's fixed writers.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(rootOpts, args[0], cmd)
		},
	}
}

func runCreate(opts *RootOptions, bpName string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	bp, err := s.blueprint(bpName)
	if err != nil {
		return fail(s.formatter, err)
	}
	st, err := s.manager.CreateStore(ctx, bp, s.createProps())
	if err != nil {
		return fail(s.formatter, err)
	}

	result := CreateResult{Address: st.Address().String(), Kind: st.Kind().String()}
	if s.formatter.Format == "json" {
		return s.formatter.Success(result)
	}
	fmt.Fprintf(s.formatter.Writer, "✓ Created %s store %s\n", result.Kind, result.Address)
	return nil
}
