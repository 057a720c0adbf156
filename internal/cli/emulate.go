package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/morezero/snapkit-bridge/pkg/lifecycle"
	"github.com/morezero/snapkit-bridge/pkg/provider/remote"
	"github.com/morezero/snapkit-bridge/pkg/provider/sandbox"
)

func newEmulateHostCmd(o *options) *cobra.Command {
	var (
		platform   string
		sbOpts     sandbox.Options
		attachHost bool
	)
	cmd := &cobra.Command{
		Use:   "emulate-host <hostId>",
		Short: "Serve sandbox capabilities as a native host for PROVIDER=remote",
		Long: `emulate-host answers native capability calls on <native-prefix>.<hostId>
using the sandbox provider, so a bridge running with PROVIDER=remote can be
exercised without a device. Stop it with Ctrl-C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			nc, err := o.connect()
			if err != nil {
				return err
			}
			defer nc.Close()

			host := lifecycle.HostInfo{HostID: args[0], HostPlatform: platform}
			set, err := sandbox.New(sbOpts).Factory()(ctx, host)
			if err != nil {
				return err
			}
			defer set.Close()

			ch, err := remote.Serve(ctx, nc, set, remote.NativeOptions{SubjectPrefix: o.nativePrefix, Host: host})
			if err != nil {
				return err
			}
			defer ch.Close()
			pterm.Info.Printfln("emulating host %s on %s", host.HostID, ch.Subject())

			if attachHost {
				c, cnc, err := o.client()
				if err != nil {
					return err
				}
				defer cnc.Close()
				if _, err := c.Attach(ctx, host); err != nil {
					return fmt.Errorf("attach %s: %w", host.HostID, err)
				}
				pterm.Success.Printfln("bridge %s attached to %s", o.channel, host.HostID)
			}

			<-ctx.Done()
			pterm.Info.Println("stopping")
			return nil
		},
	}
	cmd.Flags().StringVar(&platform, "platform", "android", "platform reported for the host")
	cmd.Flags().BoolVar(&attachHost, "attach", false, "also attach the bridge to this host")
	cmd.Flags().StringVar(&sbOpts.KeyringService, "keyring-service", sandbox.DefaultKeyringService, "keyring service holding sandbox sessions")
	cmd.Flags().StringVar(&sbOpts.DisplayName, "display-name", sandbox.DefaultDisplayName, "display name of the sandbox user")
	cmd.Flags().StringVar(&sbOpts.SDKVersion, "sdk-version", sandbox.DefaultSDKVersion, "SDK version the host reports")
	return cmd
}
