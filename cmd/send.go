package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/motorpanel/app"
	"github.com/kilianp07/motorpanel/core/model"
	"github.com/kilianp07/motorpanel/infra/logger"
)

var sendCmd = &cobra.Command{
	Use:   "send <off|left|middle|right|custom N|N>",
	Short: "Send a single motor command and exit",
	Example: `  motorpanel send middle
  motorpanel send custom 30
  motorpanel send 75`,
	Args:         cobra.RangeArgs(1, 2),
	RunE:         sendCommand,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(sendCmd)
}

func sendCommand(cmd *cobra.Command, args []string) error {
	intent, value, err := model.ParseIntent(strings.Join(args, " "))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Reconnect.Enabled = false
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("send-command").Errorf("service close: %v", err)
		}
	}()
	if err := svc.Send(ctx, intent, value); err != nil {
		return fmt.Errorf("send %s: %w", intent, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "sent %s=%d to %s\n", intent, value, model.CommandTopic)
	return nil
}
