package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mattn/go-shellwords"
	"github.com/spf13/cobra"
)

func shellLoop(c *ctl) error {
	l, err := readline.NewEx(&readline.Config{
		Prompt:            "\033[31m»\033[0m ",
		HistoryFile:       filepath.Join(os.TempDir(), "kvstore-ctl.history"),
		InterruptPrompt:   "^C",
		EOFPrompt:         "^D",
		HistorySearchFold: true,
	})
	if err != nil {
		return err
	}
	defer l.Close()

	for {
		line, err := l.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				return nil
			} else if err == io.EOF {
				return nil
			}
			continue
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}
		runShellCommand(c, l.Stdout(), line)
	}
}

// runShellCommand parses line with shell quoting rules, so JSON values can be
// written as 'set k {"a": 1}'.
func runShellCommand(c *ctl, out io.Writer, line string) {
	args, err := shellwords.Parse(line)
	if err != nil {
		fmt.Fprintf(out, "parse %q failed: %v\n", line, err)
		return
	}

	cmd := &cobra.Command{
		Use:           "shell",
		Short:         "kvstore shell command",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOutput(out)
	cmd.SetArgs(args)
	cmd.AddCommand(c.commands()...)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
	}
}
