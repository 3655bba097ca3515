package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/pmogan77/KVStore/kv/client"
	"github.com/spf13/cobra"
)

const (
	defaultAddr    = "127.0.0.1:8000"
	defaultTimeout = 10 * time.Second
)

type ctl struct {
	addr    string
	timeout time.Duration
}

func (c *ctl) client() *client.Client {
	return client.NewClient(c.addr)
}

func (c *ctl) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.timeout)
}

func newRootCommand() *cobra.Command {
	c := &ctl{}
	root := &cobra.Command{
		Use:           "kvstore-ctl",
		Short:         "Command line client of the kvstore server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.addr, "addr", defaultAddr, "server address")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", defaultTimeout, "request timeout")
	root.AddCommand(c.commands()...)
	root.AddCommand(&cobra.Command{
		Use:   "shell",
		Short: "Interactive shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return shellLoop(c)
		},
	})
	return root
}

// commands are the subcommands shared by the command line and the shell.
func (c *ctl) commands() []*cobra.Command {
	return []*cobra.Command{
		{
			Use:                   "get key",
			Short:                 "Read a key",
			Args:                  cobra.ExactArgs(1),
			RunE:                  c.runGet,
			DisableFlagsInUseLine: true,
		},
		{
			Use:                   "set key value",
			Short:                 "Write a key. A value that is not JSON is stored as a string",
			Args:                  cobra.ExactArgs(2),
			RunE:                  c.runSet,
			DisableFlagsInUseLine: true,
		},
		{
			Use:                   "delete key",
			Short:                 "Delete a key",
			Args:                  cobra.ExactArgs(1),
			RunE:                  c.runDelete,
			DisableFlagsInUseLine: true,
		},
		{
			Use:                   "begin",
			Short:                 "Open a nested transaction",
			Args:                  cobra.NoArgs,
			RunE:                  c.runBegin,
			DisableFlagsInUseLine: true,
		},
		{
			Use:                   "commit",
			Short:                 "Commit the innermost transaction",
			Args:                  cobra.NoArgs,
			RunE:                  c.runCommit,
			DisableFlagsInUseLine: true,
		},
		{
			Use:                   "rollback",
			Short:                 "Discard the innermost transaction",
			Args:                  cobra.NoArgs,
			RunE:                  c.runRollback,
			DisableFlagsInUseLine: true,
		},
		{
			Use:                   "snapshot",
			Short:                 "Print every visible key",
			Args:                  cobra.NoArgs,
			RunE:                  c.runSnapshot,
			DisableFlagsInUseLine: true,
		},
		{
			Use:                   "scan [start] [limit]",
			Short:                 "Print keys in order starting at start",
			Args:                  cobra.MaximumNArgs(2),
			RunE:                  c.runScan,
			DisableFlagsInUseLine: true,
		},
		{
			Use:                   "status",
			Short:                 "Print transaction depth and key count",
			Args:                  cobra.NoArgs,
			RunE:                  c.runStatus,
			DisableFlagsInUseLine: true,
		},
	}
}

// parseValue accepts any JSON text and otherwise quotes the argument.
func parseValue(arg string) (json.RawMessage, error) {
	if json.Valid([]byte(arg)) {
		return json.RawMessage(arg), nil
	}
	b, err := json.Marshal(arg)
	return json.RawMessage(b), err
}

func printJSON(w io.Writer, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func printWarning(w io.Writer, warning string) {
	if warning != "" {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
}

func (c *ctl) runGet(cmd *cobra.Command, args []string) error {
	ctx, cancel := c.context()
	defer cancel()
	val, err := c.client().Get(ctx, args[0])
	if err == client.ErrNotFound {
		fmt.Fprintf(cmd.OutOrStdout(), "%s not found\n", args[0])
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", val)
	return nil
}

func (c *ctl) runSet(cmd *cobra.Command, args []string) error {
	val, err := parseValue(args[1])
	if err != nil {
		return err
	}
	ctx, cancel := c.context()
	defer cancel()
	warning, err := c.client().Set(ctx, args[0], val)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], val)
	printWarning(cmd.OutOrStdout(), warning)
	return nil
}

func (c *ctl) runDelete(cmd *cobra.Command, args []string) error {
	ctx, cancel := c.context()
	defer cancel()
	warning, err := c.client().Delete(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
	printWarning(cmd.OutOrStdout(), warning)
	return nil
}

func (c *ctl) runBegin(cmd *cobra.Command, args []string) error {
	ctx, cancel := c.context()
	defer cancel()
	resp, err := c.client().Begin(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s, depth %d\n", resp.Status, resp.Depth)
	return nil
}

func (c *ctl) runCommit(cmd *cobra.Command, args []string) error {
	ctx, cancel := c.context()
	defer cancel()
	resp, err := c.client().Commit(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s, depth %d\n", resp.Status, resp.Depth)
	printWarning(cmd.OutOrStdout(), resp.Warning)
	return nil
}

func (c *ctl) runRollback(cmd *cobra.Command, args []string) error {
	ctx, cancel := c.context()
	defer cancel()
	resp, err := c.client().Rollback(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s, depth %d\n", resp.Status, resp.Depth)
	return nil
}

func (c *ctl) runSnapshot(cmd *cobra.Command, args []string) error {
	ctx, cancel := c.context()
	defer cancel()
	snap, err := c.client().Snapshot(ctx)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), snap)
}

func (c *ctl) runScan(cmd *cobra.Command, args []string) error {
	var (
		start string
		limit int
	)
	if len(args) > 0 {
		start = args[0]
	}
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 0 {
			return fmt.Errorf("invalid limit %s", args[1])
		}
		limit = n
	}
	ctx, cancel := c.context()
	defer cancel()
	pairs, err := c.client().Scan(ctx, start, limit)
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "0 keys")
		return nil
	}
	for _, p := range pairs {
		fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", p.Key, p.Value)
	}
	return nil
}

func (c *ctl) runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := c.context()
	defer cancel()
	status, err := c.client().Status(ctx)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), status)
}
