package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/casualjim/hostlink"
	"github.com/casualjim/hostlink/pkg/slogx"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// exitError carries the exit status the process should end with.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// app is the state shared by every subcommand.
type app struct {
	v      *viper.Viper
	client *hostlink.Client
	logger *slog.Logger

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// envFiles are loaded before the environment is read, .env.local wins over .env.
var envFiles = []string{".env.local", ".env"}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{v: viper.New(), logger: slog.Default(), stdin: stdin, stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "hostlink",
		Short:         "Run commands and exchange signals with a host",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.String("base-url", hostlink.DefaultBaseURL, "host API base URL")
	flags.String("nats-url", "", "NATS server URL used by relay commands")
	flags.BoolP("verbose", "v", false, "enable debug logging")
	flags.Bool("no-color", false, "disable colored output")
	_ = a.v.BindPFlags(flags)

	root.AddCommand(
		newExecCmd(a),
		newSignalsCmd(a),
		newRelayCmd(a),
	)
	return root
}

// setup resolves configuration from flags, HOSTLINK_* variables and .env files,
// in that order of precedence.
func (a *app) setup() error {
	for _, f := range envFiles {
		// godotenv never overrides variables that are already set
		_ = godotenv.Load(f)
	}

	a.v.SetEnvPrefix("HOSTLINK")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if a.v.GetBool("no-color") {
		color.NoColor = true
	}

	hostlink.Configure(hostlink.Config{BaseURL: a.v.GetString("base-url")})
	cfg := hostlink.Current()

	var options []hostlink.Option
	if a.v.GetBool("verbose") {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		options = append(options, hostlink.WithLogger(
			a.logger.With(slogx.LoggerName("hostlink"), slog.String("base_url", cfg.BaseURL)),
		))
	}
	a.client = hostlink.New(options...)
	return nil
}
