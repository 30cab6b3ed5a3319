package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/casualjim/hostlink/signals"
	"github.com/casualjim/hostlink/sse"
	"github.com/fatih/color"
	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

func newSignalsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signals",
		Short: "List, listen to and publish host signals",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List signal channels and their subscriber counts",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.listSignals(cmd.Context())
			},
		},
		newListenCmd(a),
		&cobra.Command{
			Use:   "publish CHANNEL JSON",
			Short: "Publish a JSON payload to every subscriber of a channel",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				if !gjson.Valid(args[1]) {
					return fmt.Errorf("payload is not valid JSON: %s", args[1])
				}
				return signals.New(a.client).Publish(cmd.Context(), args[0], json.RawMessage(args[1]))
			},
		},
	)
	return cmd
}

func (a *app) listSignals(ctx context.Context) error {
	list, err := signals.New(a.client).List(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CHANNEL\tSUBSCRIBERS")
	for pair := list.Oldest(); pair != nil; pair = pair.Next() {
		fmt.Fprintf(tw, "%s\t%d\n", pair.Key, pair.Value)
	}
	return tw.Flush()
}

func newListenCmd(a *app) *cobra.Command {
	var (
		raw    bool
		events []string
	)
	cmd := &cobra.Command{
		Use:   "listen CHANNEL",
		Short: "Print every payload published to a channel until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			printer := newPrinter(a.stdout)
			options := []sse.Option{sse.Events(events...)}
			if len(events) == 0 {
				options = []sse.Option{sse.AllEvents()}
			}
			sub, err := signals.New(a.client).Subscribe(cmd.Context(), args[0], func(_ context.Context, msg sse.Message[json.RawMessage]) error {
				if raw {
					printer.Println(msg)
					return nil
				}
				fmt.Fprintf(a.stdout, "%s %s\n", color.CyanString(msg.Event), msg.Raw)
				return nil
			}, options...)
			if err != nil {
				return err
			}
			defer func() { _ = sub.Close() }()

			select {
			case <-cmd.Context().Done():
				return nil
			case <-sub.Done():
			}
			if err := sub.Err(); err != nil && !errors.Is(err, sse.ErrStreamEnded) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "dump every message with its metadata")
	cmd.Flags().StringSliceVar(&events, "event", nil, "only print these event types, all when empty")
	return cmd
}
