package commands

import (
	"encoding/json"
	"fmt"

	"github.com/LouYuanbo1/listingcrawler/internal/domain/model"
	"github.com/LouYuanbo1/listingcrawler/internal/infra/persistence/es"
	"github.com/LouYuanbo1/listingcrawler/internal/logger"
	"github.com/LouYuanbo1/listingcrawler/internal/service/scheduler"
	"github.com/spf13/cobra"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect or reset the saved pagination progress.",
}

var stateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the saved run state as JSON.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()

		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		state, err := scheduler.New(store, log, nil).Load(cmd.Context())
		if err != nil {
			return err
		}
		if state == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "no saved state, the next run starts at page 1")
			return nil
		}
		out, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var dropIndex bool

var stateResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the saved run state so the next run starts at page 1.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()

		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := scheduler.New(store, log, nil).Reset(cmd.Context()); err != nil {
			return err
		}
		log.Info("Run state reset", logger.String("store", cfg.Store.Name))

		if !dropIndex {
			return nil
		}
		if err := esOnly(cfg); err != nil {
			return err
		}
		client, err := es.InitTypedEsClient[*model.ListingDoc](cfg.Elasticsearch, esTransport, log)
		if err != nil {
			return err
		}
		if err := es.NewListingSink(client, nil, log).DropIndex(cmd.Context()); err != nil {
			return err
		}
		log.Info("Listing index dropped", logger.String("address", cfg.Elasticsearch.Address))
		return nil
	},
}

func init() {
	stateResetCmd.Flags().BoolVar(&dropIndex, "drop-index", false, "also delete the Elasticsearch listing index")
	stateCmd.AddCommand(stateShowCmd, stateResetCmd)
	rootCmd.AddCommand(stateCmd)
}
