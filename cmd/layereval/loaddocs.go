package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/docstore"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/termvec"
	pkgredis "github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/redis"
)

const loadBatchSize = 500

func newLoadDocsCmd(a *app) *cobra.Command {
	var (
		corpusPath string
		clearFirst bool
	)
	cmd := &cobra.Command{
		Use:   "load-docs",
		Short: "Copy corpus document vectors into the Redis document store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := corpus.Load(corpusPath)
			if err != nil {
				return err
			}
			client, err := pkgredis.NewClient(a.cfg.Redis)
			if err != nil {
				return fmt.Errorf("connecting to document store: %w", err)
			}
			defer client.Close()
			store := docstore.New(client, a.cfg.Redis, nil)

			if clearFirst {
				if _, err := store.Clear(ctx); err != nil {
					return err
				}
			}
			for start := 0; start < len(c.Documents); start += loadBatchSize {
				end := min(start+loadBatchSize, len(c.Documents))
				batch := make(map[string]termvec.Vector, end-start)
				for _, d := range c.Documents[start:end] {
					batch[d.ID] = d.Terms
				}
				if err := store.PutAll(ctx, batch); err != nil {
					return err
				}
			}
			slog.Info("documents loaded", "count", len(c.Documents), "addr", a.cfg.Redis.Addr)
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d documents\n", len(c.Documents))
			return nil
		},
	}
	cmd.Flags().StringVar(&corpusPath, "corpus", "", "JSON file with document vectors")
	cmd.Flags().BoolVar(&clearFirst, "clear", false, "delete stored documents first")
	_ = cmd.MarkFlagRequired("corpus")
	return cmd
}
