package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/LouYuanbo1/listingcrawler/internal/config"
	"github.com/LouYuanbo1/listingcrawler/internal/logger"
	"github.com/spf13/cobra"
)

var (
	defaultConfig []byte
	configPath    string
)

var rootCmd = &cobra.Command{
	Use:           "newest",
	Short:         "newest walks the newest used-vehicle listings page by page and saves every listing it can read.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "JSON config file merged over the built-in defaults")
}

func ExecuteContext(ctx context.Context, defaults []byte) {
	defaultConfig = defaults
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup 读取配置并创建日志
func setup() (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(defaultConfig, configPath)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
