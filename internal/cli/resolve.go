package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ResolveResult is the output of the resolve command.
type ResolveResult struct {
	Identifier string `json:"identifier"`
	Address    string `json:"address"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <identifier>",
		Short: "Resolve an identifier to a store address",
		Long: `Resolve an identifier of the form <key>.<id> through the configured
resolvers. A canonical address resolves to itself.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(rootOpts, args[0], cmd)
		},
	}
}

func runResolve(opts *RootOptions, identifier string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	addr, found, err := s.manager.Resolve(ctx, identifier)
	if err != nil {
		return fail(s.formatter, err)
	}
	if !found {
		return fail(s.formatter, fmt.Errorf("identifier %s: %w", identifier, errNotFound))
	}

	result := ResolveResult{Identifier: identifier, Address: addr.String()}
	if s.formatter.Format == "json" {
		return s.formatter.Success(result)
	}
	fmt.Fprintln(s.formatter.Writer, result.Address)
	return nil
}
