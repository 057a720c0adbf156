package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/morezero/snapkit-bridge/pkg/commsutil"
	"github.com/morezero/snapkit-bridge/pkg/dispatcher"
)

var (
	errCommandFailed  = errors.New("command failed")
	errNotImplemented = errors.New("command not implemented")
)

func newCallCmd(o *options) *cobra.Command {
	var (
		pairs     []string
		jsonPairs []string
		raw       string
	)
	cmd := &cobra.Command{
		Use:   "call <method>",
		Short: "Invoke a bridge command and print its reply",
		Example: `  snapkitctl call isInstalled
  snapkitctl call verifyPhoneNumber --arg phoneNumber=5551234 --arg region=US
  snapkitctl call sendMedia --arg mediaType=PHOTO --arg path=/tmp/a.jpg --arg-json 'sticker={"imagePath":"/tmp/s.png","width":100,"height":100,"offsetX":0,"offsetY":0,"rotation":0}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arguments, err := parseArguments(raw, pairs, jsonPairs)
			if err != nil {
				return err
			}
			c, nc, err := o.client()
			if err != nil {
				return err
			}
			defer nc.Close()

			reply, err := c.Call(cmd.Context(), args[0], arguments)
			if err != nil {
				return err
			}
			return printReply(reply)
		},
	}
	cmd.Flags().StringArrayVarP(&pairs, "arg", "a", nil, "string argument as key=value (repeatable)")
	cmd.Flags().StringArrayVar(&jsonPairs, "arg-json", nil, "typed argument as key=<json value> (repeatable)")
	cmd.Flags().StringVar(&raw, "json", "", "all arguments as one JSON object; --arg and --arg-json override its keys")
	return cmd
}

// parseArguments merges a JSON object with key=value pairs. Plain pairs stay
// strings; --arg-json values keep their JSON type.
func parseArguments(raw string, pairs, jsonPairs []string) (map[string]interface{}, error) {
	args := map[string]interface{}{}
	if strings.TrimSpace(raw) != "" {
		if err := commsutil.DecodePayload([]byte(raw), &args); err != nil {
			return nil, fmt.Errorf("--json must be an object: %w", err)
		}
		if args == nil {
			args = map[string]interface{}{}
		}
	}
	for _, p := range pairs {
		k, v, err := splitPair(p)
		if err != nil {
			return nil, err
		}
		args[k] = v
	}
	for _, p := range jsonPairs {
		k, v, err := splitPair(p)
		if err != nil {
			return nil, err
		}
		var val interface{}
		if err := commsutil.DecodePayload([]byte(v), &val); err != nil {
			return nil, fmt.Errorf("--arg-json %s: %w", k, err)
		}
		args[k] = val
	}
	return args, nil
}

func splitPair(p string) (string, string, error) {
	k, v, ok := strings.Cut(p, "=")
	if !ok || strings.TrimSpace(k) == "" {
		return "", "", fmt.Errorf("argument %q must be key=value", p)
	}
	return strings.TrimSpace(k), v, nil
}

func printReply(reply *dispatcher.Reply) error {
	switch reply.Variant() {
	case dispatcher.VariantSuccess:
		pterm.Success.Println(formatValue(reply.Result))
		return nil
	case dispatcher.VariantUnimplemented:
		pterm.Warning.Println("the bridge has no handler for this method")
		return errNotImplemented
	case dispatcher.VariantFailure:
		e := reply.Error
		pterm.Error.Printfln("%s: %s", e.Code, e.Message)
		if e.Details != nil {
			pterm.DefaultBox.WithTitle("details").Println(formatValue(e.Details))
		}
		if e.Retryable {
			pterm.Info.Println("this failure is retryable")
		}
		return fmt.Errorf("%w: %s", errCommandFailed, e.Code)
	default:
		return fmt.Errorf("malformed reply %s", reply.ID)
	}
}

func formatValue(v interface{}) string {
	if v == nil {
		return "(no result)"
	}
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
