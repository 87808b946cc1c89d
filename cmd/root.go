package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/motorpanel/app"
	"github.com/kilianp07/motorpanel/config"
	"github.com/kilianp07/motorpanel/infra/logger"
)

var (
	cfgPath   string
	httpAddr  string
	noConsole bool
)

var rootCmd = &cobra.Command{
	Use:   "motorpanel",
	Short: "MQTT control panel for the ESP32 motor",
	Long: `motorpanel connects to the MQTT broker and sends motor positions to
esp/motor/pwm from an operator console and an HTTP API.`,
	RunE:         run,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (yaml or json)")
	rootCmd.Flags().StringVar(&httpAddr, "http", "", "listen address of the panel API, overrides http.addr")
	rootCmd.Flags().BoolVar(&noConsole, "no-console", false, "disable the interactive console")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if httpAddr != "" {
		cfg.HTTP.Addr = httpAddr
	}
	// Without the HTTP API the console is the only surface.
	if noConsole {
		cfg.Console = false
	} else if cfg.HTTP.Addr == "" {
		cfg.Console = true
	}

	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	svc.In = cmd.InOrStdin()
	svc.Out = cmd.OutOrStdout()
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	return svc.Run(ctx)
}
