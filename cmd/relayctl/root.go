package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aurelio-labs/aiversity/internal/adapter/relayclient"
	"github.com/aurelio-labs/aiversity/internal/domain"
	"github.com/aurelio-labs/aiversity/internal/platform/config"
	"github.com/aurelio-labs/aiversity/internal/platform/logging"
	"github.com/aurelio-labs/aiversity/internal/platform/version"
)

type rootOptions struct {
	relayURL string
	timeout  time.Duration
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "relayctl",
		Short:         "Push messages to every client connected to a relay",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logging.InitLogger(opts.logLevel, "text", cmd.ErrOrStderr())
			if opts.relayURL != "" {
				return nil
			}
			cfg, err := config.LoadClient()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			opts.relayURL = cfg.RelayURL
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.relayURL, "relay", "", "relay base URL (default: $RELAY_URL)")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "per-request timeout")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level")

	cmd.AddCommand(newSendCmd(opts), newVersionCmd())
	return cmd
}

type sendOptions struct {
	content    string
	actionType string
	raw        bool
}

func newSendCmd(root *rootOptions) *cobra.Command {
	opts := &sendOptions{}

	cmd := &cobra.Command{
		Use:   "send [json]",
		Short: "Broadcast one message",
		Long: `Broadcast one message to every subscriber.

With --content the message is a chat frame {"content": ...}. Otherwise the
JSON document is taken from the argument or, when absent, from stdin. With
--type the document is wrapped as {"type": ..., "data": ...}.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message, err := buildMessage(opts, args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			client := relayclient.NewClient(root.relayURL, root.timeout)
			resp, err := client.Submit(cmd.Context(), message)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), resp.Status)
			return err
		},
	}

	cmd.Flags().StringVar(&opts.content, "content", "", "send a chat message with this text")
	cmd.Flags().StringVar(&opts.actionType, "type", "", "wrap the document as an action frame of this type (execution_update, actions)")
	return cmd
}

func buildMessage(opts *sendOptions, args []string, stdin io.Reader) (json.RawMessage, error) {
	if opts.content != "" {
		if len(args) > 0 || opts.actionType != "" {
			return nil, errors.New("--content cannot be combined with a JSON document or --type")
		}
		return json.Marshal(map[string]string{"content": opts.content})
	}

	var doc string
	if len(args) == 1 {
		doc = args[0]
	} else {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		doc = string(b)
	}
	doc = strings.TrimSpace(doc)
	if doc == "" {
		return nil, errors.New("nothing to send: pass a JSON document, pipe one on stdin, or use --content")
	}
	if !json.Valid([]byte(doc)) {
		return nil, errors.New("message is not valid JSON")
	}

	if opts.actionType == "" {
		return json.RawMessage(doc), nil
	}
	switch opts.actionType {
	case domain.FrameTypeExecutionUpdate, domain.FrameTypeActions:
	default:
		return nil, fmt.Errorf("unknown action type %q", opts.actionType)
	}
	return json.Marshal(struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}{Type: opts.actionType, Data: json.RawMessage(doc)})
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Get().String())
			return err
		},
	}
}
