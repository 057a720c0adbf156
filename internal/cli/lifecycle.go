package cli

import (
	"context"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/morezero/snapkit-bridge/pkg/bridge"
	"github.com/morezero/snapkit-bridge/pkg/lifecycle"
)

type notifyFunc func(ctx context.Context, c *bridge.Client, host lifecycle.HostInfo) (*bridge.LifecycleStatus, error)

func newAttachCmd(o *options) *cobra.Command {
	return hostCmd(o, "attach <hostId>", "Bind the bridge to a host context",
		func(ctx context.Context, c *bridge.Client, host lifecycle.HostInfo) (*bridge.LifecycleStatus, error) {
			return c.Attach(ctx, host)
		})
}

func newReattachCmd(o *options) *cobra.Command {
	return hostCmd(o, "reattach <hostId>", "Replace the bound host context (e.g. after a configuration change)",
		func(ctx context.Context, c *bridge.Client, host lifecycle.HostInfo) (*bridge.LifecycleStatus, error) {
			return c.Reattach(ctx, host)
		})
}

func newDetachCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "detach",
		Short: "Release the bound host context",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, nc, err := o.client()
			if err != nil {
				return err
			}
			defer nc.Close()
			status, err := c.Detach(cmd.Context())
			if err != nil {
				return err
			}
			return printStatus(status)
		},
	}
}

func hostCmd(o *options, use, short string, notify notifyFunc) *cobra.Command {
	var platform string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, nc, err := o.client()
			if err != nil {
				return err
			}
			defer nc.Close()
			status, err := notify(cmd.Context(), c, lifecycle.HostInfo{HostID: args[0], HostPlatform: platform})
			if err != nil {
				return err
			}
			return printStatus(status)
		},
	}
	cmd.Flags().StringVar(&platform, "platform", "", "host platform (android, ios, ...)")
	return cmd
}

func printStatus(s *bridge.LifecycleStatus) error {
	host := s.HostID
	if host == "" {
		host = "-"
	}
	return pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{
		{"state", "host", "generation"},
		{s.State, host, strconv.FormatUint(s.Generation, 10)},
	}).Render()
}
