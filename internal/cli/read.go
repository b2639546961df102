package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ddb/internal/blueprint"
	"github.com/roach88/ddb/internal/ddb"
	"github.com/roach88/ddb/internal/peer"
)

// GetResult is the output of the get command.
type GetResult struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// EntryInfo is one log entry as printed by the entries command.
type EntryInfo struct {
	Seq      int64  `json:"seq"`
	Hash     string `json:"hash"`
	Op       string `json:"op"`
	Key      string `json:"key,omitempty"`
	Value    any    `json:"value,omitempty"`
	Identity string `json:"identity"`
}

// EntriesOptions holds flags for the entries command.
type EntriesOptions struct {
	Limit   int
	Reverse bool
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get <blueprint> <store> <key>",
		Short:         "Read the value stored under a key",
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(rootOpts, args, cmd)
		},
	}
}

// NewEntriesCommand creates the entries command.
func NewEntriesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EntriesOptions{}

	cmd := &cobra.Command{
		Use:   "entries <blueprint> <store>",
		Short: "List log entries",
		Long: `List the entries of a store's log.

Feeds and event logs list their live entries; keyvalue and docstore
stores list their full write history.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEntries(rootOpts, opts, args, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "maximum number of entries (0 = all)")
	cmd.Flags().BoolVar(&opts.Reverse, "reverse", false, "newest entries first")

	return cmd
}

func runGet(opts *RootOptions, args []string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	st, err := s.store(ctx, args[0], args[1])
	if err != nil {
		return fail(s.formatter, err)
	}

	key := args[2]
	var (
		value any
		ok    bool
	)
	if st.Kind() == blueprint.DocStore {
		value, ok, err = st.GetDoc(key)
	} else {
		value, ok, err = st.Get(key)
	}
	if err != nil {
		return fail(s.formatter, err)
	}
	if !ok {
		return fail(s.formatter, fmt.Errorf("key %q in %s: %w", key, st.Address(), errNotFound))
	}

	if s.formatter.Format == "json" {
		return s.formatter.Success(GetResult{Key: key, Value: value})
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fail(s.formatter, err)
	}
	fmt.Fprintln(s.formatter.Writer, string(data))
	return nil
}

func runEntries(rootOpts *RootOptions, opts *EntriesOptions, args []string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, rootOpts, cmd)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	st, err := s.store(ctx, args[0], args[1])
	if err != nil {
		return fail(s.formatter, err)
	}

	var entries []peer.Entry
	switch st.Kind() {
	case blueprint.Feed, blueprint.EventLog:
		entries, err = st.Iterate(ddb.IterateOptions{Limit: opts.Limit, Reverse: opts.Reverse})
		if err != nil {
			return fail(s.formatter, err)
		}
	default:
		entries = limitEntries(st.History(), opts)
	}

	infos := make([]EntryInfo, len(entries))
	for i, e := range entries {
		infos[i] = EntryInfo{
			Seq:      e.Seq,
			Hash:     e.Hash,
			Op:       string(e.Op),
			Key:      e.Key,
			Value:    e.Value,
			Identity: e.Identity,
		}
	}

	if s.formatter.Format == "json" {
		return s.formatter.Success(infos)
	}
	for _, info := range infos {
		value, _ := json.Marshal(info.Value)
		fmt.Fprintf(s.formatter.Writer, "%d %s %s %s %s\n",
			info.Seq, shortHash(info.Hash), info.Op, info.Key, value)
	}
	s.formatter.VerboseLog("%d entries in %s", len(infos), st.Address())
	return nil
}

func limitEntries(entries []peer.Entry, opts *EntriesOptions) []peer.Entry {
	if opts.Reverse {
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
	}
	if opts.Limit > 0 && len(entries) > opts.Limit {
		entries = entries[:opts.Limit]
	}
	return entries
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
