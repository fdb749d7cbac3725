package commands

import (
	"errors"

	"github.com/LouYuanbo1/listingcrawler/internal/config"
	"github.com/LouYuanbo1/listingcrawler/internal/infra/persistence/dataset"
	"github.com/LouYuanbo1/listingcrawler/internal/logger"
	"github.com/spf13/cobra"
)

var reindexFile string

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Bulk load a JSONL dataset into the Elasticsearch index, embedding listings when the embedder is enabled.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()
		if err := esOnly(cfg); err != nil {
			return err
		}

		path := reindexFile
		if path == "" {
			path = cfg.Sink.Path
		}
		if path == "" {
			return errors.New("reindex needs --file or sink.path")
		}

		docs, err := dataset.ReadJSONL(path)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		sink, err := openListingSink(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer sink.Close()

		if err := sink.AppendAll(ctx, docs); err != nil {
			return err
		}
		total, err := sink.Count(ctx)
		if err != nil {
			log.Warn("Count after reindex failed", logger.Error(err))
			total = -1
		}
		log.Info("Reindex finished",
			logger.String("file", path),
			logger.String("address", cfg.Elasticsearch.Address),
			logger.Int("loaded", len(docs)),
			logger.Int64("indexed", total),
		)
		return nil
	},
}

func init() {
	reindexCmd.Flags().StringVar(&reindexFile, "file", "", "JSONL dataset to load, defaults to sink.path")
	rootCmd.AddCommand(reindexCmd)
}

// esOnly reindex 与 --drop-index 只对 Elasticsearch 生效
func esOnly(cfg *config.Config) error {
	if cfg.Elasticsearch.Address == "" {
		return errors.New("elasticsearch.address is not configured")
	}
	return nil
}
