// Command trialscore is the offline companion to the API server: it
// scores single trials, runs the batch scoring pipeline, and prints
// collaboration graphs without starting an HTTP server.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ybbu/NexJen-Bio/internal/batch"
	"github.com/ybbu/NexJen-Bio/internal/config"
	"github.com/ybbu/NexJen-Bio/internal/network"
	"github.com/ybbu/NexJen-Bio/internal/normalize"
	"github.com/ybbu/NexJen-Bio/internal/publications"
	"github.com/ybbu/NexJen-Bio/internal/scoring"
	"github.com/ybbu/NexJen-Bio/internal/trials"
)

var cfgFile string

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	root := &cobra.Command{
		Use:           "trialscore",
		Short:         "Clinical-trial quality scoring and collaboration networks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", os.Getenv("TRIALSCORE_CONFIG"), "path to config file")

	root.AddCommand(scoreCmd(), batchCmd(), networkCmd())

	if err := root.Execute(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

func loadStore(cfg *config.Config) (*trials.Store, error) {
	return trials.LoadStore(cfg.Data.TrialsCSV)
}

// newScorer builds a scorer, attaching publication sources only when
// lookups are enabled in configuration.
func newScorer(cfg *config.Config, store *trials.Store) (*scoring.Scorer, *publications.FailureLog) {
	if !cfg.Providers.LookupsEnabled {
		return scoring.NewScorer(store), nil
	}

	failures := publications.NewFailureLog(cfg.Data.FailuresPath)
	ctClient := publications.NewClinicalTrialsClient()
	ctClient.BaseURL = cfg.Providers.ClinicalTrialsBaseURL
	pmClient := publications.NewPubMedClient(failures)
	pmClient.BaseURL = cfg.Providers.PubMedBaseURL

	return scoring.NewScorer(store,
		scoring.WithPublicationSources(ctClient, pmClient),
		scoring.WithFailureRecorder(failures),
	), failures
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func scoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score <nct-id>",
		Short: "Score a single trial and print the full breakdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := loadStore(cfg)
			if err != nil {
				return err
			}

			scorer, _ := newScorer(cfg, store)
			score, err := scorer.Score(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return printJSON(map[string]interface{}{
				"nct_id":         score.NCTID,
				"base_score":     score.BaseScore(),
				"total_score":    score.TotalScore(),
				"interpretation": score.Interpretation(),
				"components":     score.Components,
				"bonuses":        score.Bonuses,
				"penalties":      score.Penalties,
			})
		},
	}
}

func batchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch",
		Short: "Score every interventional trial and persist the results",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := loadStore(cfg)
			if err != nil {
				return err
			}

			scorer, failures := newScorer(cfg, store)
			opts := []batch.Option{}
			if failures != nil {
				opts = append(opts, batch.WithFailureLog(failures))
			}
			processor := batch.NewProcessor(store, scorer, cfg.Data.ScoresPath, cfg.Data.BreakdownsPath, opts...)

			summary, err := processor.Run(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(summary)
		},
	}
}

func networkCmd() *cobra.Command {
	var (
		mode      string
		topK      int
		condition string
		timeframe string
	)

	cmd := &cobra.Command{
		Use:   "network",
		Short: "Build the sponsor collaboration graph and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := loadStore(cfg)
			if err != nil {
				return err
			}

			normalizer, err := normalize.NewNormalizer()
			if err != nil {
				return err
			}

			builder := network.NewBuilder(normalizer)
			graph := builder.BuildGraph(store.All(), network.BuildOptions{
				Filters: &network.Filters{
					Condition: condition,
					Timeframe: timeframe,
				},
				Mode: network.WeightingMode(mode),
				TopK: topK,
			})

			fmt.Fprintf(os.Stderr, "graph: %d nodes, %d edges\n", len(graph.Nodes), len(graph.Edges))
			return printJSON(graph)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "established_network", "weighting mode: fresh_collaborations, established_network, only_recent")
	cmd.Flags().IntVar(&topK, "top-k", 0, "keep only the top K edges per node (0 keeps all)")
	cmd.Flags().StringVar(&condition, "condition", "", "condition filter (substring match)")
	cmd.Flags().StringVar(&timeframe, "timeframe", "", "timeframe: 1y, 5y, or all")

	return cmd
}
