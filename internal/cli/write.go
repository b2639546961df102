package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ddb/internal/blueprint"
	"github.com/roach88/ddb/internal/canon"
	"github.com/roach88/ddb/internal/ddb"
)

// WriteResult is the output of the put and add commands.
type WriteResult struct {
	Address string `json:"address"`
	Hash    string `json:"hash"`
}

// NewPutCommand creates the put command.
func NewPutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "put <blueprint> <store> <key> <json>",
		Short: "Store a value under a key",
		Long: `Validate a JSON value against the blueprint schema and store it under key.

For docstore stores the value must be an object; key becomes its _id
unless the object already carries one.`,
		Args:          cobra.ExactArgs(4),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPut(rootOpts, args, cmd)
		},
	}
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "add <blueprint> <store> <json>",
		Short:         "Append a value to a feed or event log",
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(rootOpts, args, cmd)
		},
	}
}

func runPut(opts *RootOptions, args []string, cmd *cobra.Command) error {
	return runWrite(opts, args[0], args[1], args[3], cmd, func(st *ddb.Store, value any) (string, error) {
		key := args[2]
		if st.Kind() != blueprint.DocStore {
			return st.Put(cmd.Context(), key, value)
		}
		doc, ok := value.(map[string]any)
		if !ok {
			return "", fmt.Errorf("docstore value must be a JSON object: %w", errInvalidJSON)
		}
		if _, has := doc[ddb.DocIDField]; !has {
			doc[ddb.DocIDField] = key
		}
		return st.PutDoc(cmd.Context(), doc)
	})
}

func runAdd(opts *RootOptions, args []string, cmd *cobra.Command) error {
	return runWrite(opts, args[0], args[1], args[2], cmd, func(st *ddb.Store, value any) (string, error) {
		return st.Add(cmd.Context(), value)
	})
}

func runWrite(opts *RootOptions, bpName, identifier, raw string, cmd *cobra.Command, write func(*ddb.Store, any) (string, error)) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	value, err := canon.Decode([]byte(raw))
	if err != nil {
		return failWith(s.formatter, ErrCodeInvalidJSON, err)
	}
	st, err := s.store(ctx, bpName, identifier)
	if err != nil {
		return fail(s.formatter, err)
	}
	hash, err := write(st, value)
	if err != nil {
		return fail(s.formatter, err)
	}

	result := WriteResult{Address: st.Address().String(), Hash: hash}
	if s.formatter.Format == "json" {
		return s.formatter.Success(result)
	}
	fmt.Fprintf(s.formatter.Writer, "✓ %s\n", result.Hash)
	return nil
}
