package main

import (
	"fmt"

	"github.com/casualjim/hostlink/pkg/natsx"
	"github.com/casualjim/hostlink/relay"
	"github.com/casualjim/hostlink/signals"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

func newRelayCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Bridge host signal channels and NATS subjects",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "forward CHANNEL SUBJECT",
			Short: "Republish every payload of a channel on a NATS subject",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.runRelay(cmd, func(r *relay.Relay) (*relay.Route, error) {
					return r.Forward(cmd.Context(), args[0], args[1])
				})
			},
		},
		&cobra.Command{
			Use:   "inbound SUBJECT CHANNEL",
			Short: "Publish every message of a NATS subject to a channel",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.runRelay(cmd, func(r *relay.Relay) (*relay.Route, error) {
					return r.Inbound(cmd.Context(), args[0], args[1])
				})
			},
		},
	)
	return cmd
}

// runRelay starts one route and blocks until it ends or the command is interrupted.
func (a *app) runRelay(cmd *cobra.Command, start func(*relay.Relay) (*relay.Route, error)) error {
	var (
		nc  *nats.Conn
		err error
	)
	if u := a.v.GetString("nats-url"); u != "" {
		nc, err = nats.Connect(u, nats.Name("hostlink-relay"), nats.Compression(true))
	} else {
		nc, err = natsx.NewClient()
	}
	if err != nil {
		return fmt.Errorf("failed to connect to nats: %w", err)
	}
	defer nc.Close()

	sc := signals.New(a.client)
	defer func() { _ = sc.Close() }()

	r := relay.New(nc, sc, a.client.Logger())
	defer func() { _ = r.Close() }()

	route, err := start(r)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stderr, "relaying %s\n", route)

	select {
	case <-cmd.Context().Done():
	case <-route.Done():
	}
	return nil
}
