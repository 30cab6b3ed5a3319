package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/casualjim/hostlink/commands"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Exit statuses used when the process did not report its own code.
const (
	exitTimedOut = 124
	exitNoCode   = 1
)

type execFlags struct {
	stdin   string
	timeout time.Duration
	stream  bool
	raw     bool
}

func newExecCmd(a *app) *cobra.Command {
	var f execFlags
	cmd := &cobra.Command{
		Use:   "exec [flags] -- COMMAND [ARGS...]",
		Short: "Run a command on the host",
		Long: "Run a command on the host and print its output.\n\n" +
			"Stdout lines go to stdout and stderr lines to stderr. hostlink exits with the\n" +
			"command's exit code, 124 when it timed out, and 1 when it ended without a code.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := commands.Request{Command: args[0], Args: args[1:], Timeout: f.timeout}
			if f.stdin != "" {
				in, err := readStdin(a.stdin, f.stdin)
				if err != nil {
					return err
				}
				req.Stdin = in
			}
			if f.stream || f.raw {
				return a.streamExec(cmd, req, f.raw)
			}
			return a.execute(cmd, req)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.stdin, "stdin", "", `text passed on the command's stdin, "-" reads it from hostlink's stdin`)
	flags.DurationVar(&f.timeout, "timeout", 0, "kill the command after this long")
	flags.BoolVar(&f.stream, "stream", false, "print output as it is produced")
	flags.BoolVar(&f.raw, "raw", false, "dump every event as it arrives")
	return cmd
}

func readStdin(r io.Reader, value string) (string, error) {
	if value != "-" {
		return value, nil
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(b), nil
}

func (a *app) execute(cmd *cobra.Command, req commands.Request) error {
	res, err := commands.New(a.client).Execute(cmd.Context(), req)
	if err != nil {
		return err
	}
	if res.Stdout != "" {
		fmt.Fprintln(a.stdout, res.Stdout)
	}
	if res.Stderr != "" {
		fmt.Fprintln(a.stderr, color.RedString(res.Stderr))
	}
	return a.exited(commands.Exit{ExitCode: res.ExitCode, TimedOut: res.TimedOut, Signal: res.Signal})
}

func (a *app) streamExec(cmd *cobra.Command, req commands.Request, raw bool) error {
	printer := newPrinter(a.stdout)
	for ev, err := range commands.New(a.client).Stream(cmd.Context(), req) {
		if err != nil {
			return err
		}
		if raw {
			printer.Println(ev)
			if exit, ok := ev.(commands.Exit); ok {
				return exitStatus(exit)
			}
			continue
		}
		switch e := ev.(type) {
		case commands.Stdout:
			fmt.Fprintln(a.stdout, e.Data)
		case commands.Stderr:
			fmt.Fprintln(a.stderr, color.RedString(e.Data))
		case commands.Exit:
			return a.exited(e)
		}
	}
	return cmd.Context().Err()
}

// exited reports an unsuccessful exit on stderr and turns it into the CLI's exit status.
func (a *app) exited(e commands.Exit) error {
	err := exitStatus(e)
	if err == nil {
		return nil
	}
	var reason []string
	if e.ExitCode != nil {
		reason = append(reason, fmt.Sprintf("code %d", *e.ExitCode))
	}
	if e.TimedOut {
		reason = append(reason, "timed out")
	}
	if e.Signal != "" {
		reason = append(reason, "signal "+e.Signal)
	}
	if len(reason) == 0 {
		reason = append(reason, "no exit code")
	}
	fmt.Fprintln(a.stderr, color.YellowString("exited: %s", strings.Join(reason, ", ")))
	return err
}

func exitStatus(e commands.Exit) error {
	switch {
	case e.TimedOut:
		return &exitError{code: exitTimedOut}
	case e.ExitCode == nil:
		return &exitError{code: exitNoCode}
	case *e.ExitCode != 0:
		return &exitError{code: *e.ExitCode}
	default:
		return nil
	}
}
