// Package cli implements snapkitctl, the operator CLI that issues bridge
// commands and host lifecycle notices, and can stand in for a native host.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	comms "github.com/nats-io/nats.go"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/morezero/snapkit-bridge/pkg/bridge"
	"github.com/morezero/snapkit-bridge/pkg/commsutil"
)

const logPrefix = "cli:root"

// env supplies flag defaults shared with the service configuration.
type env struct {
	URL          string `envconfig:"COMMS_URL" default:"nats://127.0.0.1:4222"`
	Channel      string `envconfig:"BRIDGE_CHANNEL" default:"snapkit"`
	Prefix       string `envconfig:"BRIDGE_SUBJECT_PREFIX" default:"snapkit.bridge"`
	Codec        string `envconfig:"BRIDGE_CODEC" default:"json"`
	NativePrefix string `envconfig:"NATIVE_SUBJECT_PREFIX" default:"snapkit.native"`
}

// options holds the persistent flags.
type options struct {
	url          string
	channel      string
	prefix       string
	codec        string
	nativePrefix string
	timeout      time.Duration
}

// NewRootCmd builds the snapkitctl command tree.
func NewRootCmd() *cobra.Command {
	var e env
	if err := envconfig.Process("", &e); err != nil {
		slog.Warn(fmt.Sprintf("%s - ignoring environment: %v", logPrefix, err))
	}

	o := &options{}
	root := &cobra.Command{
		Use:   "snapkitctl",
		Short: "Issue commands to a snapkit bridge over COMMS",
		Long: `snapkitctl talks to a running snapkit-bridge on <prefix>.<channel>.
It can invoke any registered command, bind or release the host context,
and emulate a native host for the remote provider.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := root.PersistentFlags()
	f.StringVar(&o.url, "url", e.URL, "COMMS server URL")
	f.StringVar(&o.channel, "channel", e.Channel, "bridge channel name")
	f.StringVar(&o.prefix, "prefix", e.Prefix, "bridge subject prefix")
	f.StringVar(&o.codec, "codec", e.Codec, "wire codec (json or cbor)")
	f.StringVar(&o.nativePrefix, "native-prefix", e.NativePrefix, "subject prefix native hosts listen on")
	f.DurationVar(&o.timeout, "timeout", 30*time.Second, "how long to wait for a reply")

	root.AddCommand(
		newCallCmd(o),
		newAttachCmd(o),
		newReattachCmd(o),
		newDetachCmd(o),
		newEmulateHostCmd(o),
	)
	return root
}

// Execute runs snapkitctl and exits non-zero on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func (o *options) connect() (*comms.Conn, error) {
	nc, err := comms.Connect(o.url, comms.Name("snapkitctl"), comms.Timeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", o.url, err)
	}
	return nc, nil
}

// client connects and returns a bridge client plus the connection to close.
func (o *options) client() (*bridge.Client, *comms.Conn, error) {
	codec, err := commsutil.CodecFor(o.codec)
	if err != nil {
		return nil, nil, err
	}
	nc, err := o.connect()
	if err != nil {
		return nil, nil, err
	}
	c := bridge.NewClient(nc, bridge.ClientOptions{
		Name:          o.channel,
		SubjectPrefix: o.prefix,
		Codec:         codec,
		Timeout:       o.timeout,
	})
	return c, nc, nil
}
