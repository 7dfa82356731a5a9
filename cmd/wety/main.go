// Command wety runs the three-pass etymology graph pipeline of
// spec.md §4.9 end to end: ingest a Wiktionary extraction dump, embed
// the items the disambiguator will need, resolve etymology/descendants
// /root templates into graph edges, and write the result as a single
// serialized blob (§6).
//
// Ground: cmd/nerd/main.go's rootCmd + PersistentPreRunE logging-init
// pattern, narrowed to the one command this pipeline needs instead of
// codeNERD's dozens of subcommands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"wetygraph/internal/config"
	"wetygraph/internal/dumpsource"
	"wetygraph/internal/embedding"
	"wetygraph/internal/graphio"
	"wetygraph/internal/lang"
	"wetygraph/internal/logging"
	"wetygraph/internal/pipeline"
	"wetygraph/internal/strpool"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "wety",
	Short: "Build an etymology graph from a Wiktionary extraction dump",
	Long: `wety ingests a wiktextract-format dump, disambiguates the
etymological relationships its templates describe, and writes a
single serialized graph blob.`,
	RunE: runPipeline,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "wety.yaml", "path to the pipeline YAML config")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "wety:", err)
		os.Exit(1)
	}
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		return fmt.Errorf("wety: logging init: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	langs, err := loadLanguages(cfg.Language.Path)
	if err != nil {
		return err
	}

	cache, err := embedding.OpenCache(cfg.Embedding.CachePath)
	if err != nil {
		return fmt.Errorf("wety: opening embedding cache: %w", err)
	}
	defer cache.Close()

	encoder := embedding.NewHTTPEncoder(cfg.Embedding.Endpoint, cfg.Embedding.Dimensions)
	mgr := embedding.NewManager(encoder, cache, cfg.Embedding.BatchSize)

	driver := pipeline.New(strpool.New(), langs, mgr, cfg.Disambig.SimilarityThreshold, cfg.Disambig.AncestorDiscount)

	log := logging.Get(logging.CategoryPipeline)

	src1, err := dumpsource.Open(cfg.Dump.Path)
	if err != nil {
		return err
	}
	log.Info("pass1: ingesting %s", cfg.Dump.Path)
	err = driver.Pass1(src1)
	src1.Close()
	if err != nil {
		return fmt.Errorf("wety: pass1: %w", err)
	}

	src2, err := dumpsource.Open(cfg.Dump.Path)
	if err != nil {
		return err
	}
	log.Info("pass2: embedding ambiguous items")
	err = driver.Pass2(ctx, src2)
	src2.Close()
	if err != nil {
		return fmt.Errorf("wety: pass2: %w", err)
	}

	log.Info("pass3: resolving etymologies and removing cycles")
	if err := driver.Pass3(ctx); err != nil {
		return fmt.Errorf("wety: pass3: %w", err)
	}

	blob := graphio.Build(driver.Pool, driver.Items.Graph, driver.Langs)
	data, err := graphio.Encode(blob)
	if err != nil {
		return fmt.Errorf("wety: encoding graph: %w", err)
	}
	if err := os.WriteFile(cfg.Output.Path, data, 0o644); err != nil {
		return fmt.Errorf("wety: writing %s: %w", cfg.Output.Path, err)
	}

	log.Info("wrote %d items to %s", driver.Items.Len(), cfg.Output.Path)
	return nil
}

func loadLanguages(path string) (*lang.Registry, error) {
	langs, err := lang.Load(path)
	if err == nil {
		return langs, nil
	}
	if os.IsNotExist(err) {
		return lang.LoadEmbedded()
	}
	return nil, err
}
