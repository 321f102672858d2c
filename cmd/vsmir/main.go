package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/indexer/weighting"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/pkg/resilience"
)

const configKey = "config"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout).RunContext(ctx, os.Args); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newApp(stdout io.Writer) *cli.App {
	return &cli.App{
		Name:      "vsmir",
		Usage:     "Build and query a TF-IDF vector-space index over an XML record corpus",
		Writer:    stdout,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file",
				EnvVars: []string{"VSM_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log output format (text, json)",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:      "create_index",
				Usage:     "Build the inverted index of a corpus directory",
				ArgsUsage: "<corpus_dir>",
				Action:    createIndexCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Index file to write (file store only; .msgpack selects MessagePack)",
					},
					&cli.StringFlag{
						Name:  "store",
						Usage: "Index store backend (file, redis, postgres)",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Documents processed concurrently (0 = number of CPUs)",
					},
				},
			},
			{
				Name:      "query",
				Usage:     "Rank the corpus against a question and write matching record numbers",
				ArgsUsage: "<index_path> <question>",
				Action:    queryCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Result file, one record number per line ('-' for stdout)",
					},
					&cli.StringFlag{
						Name:  "store",
						Usage: "Index store backend (file, redis, postgres)",
					},
				},
			},
		},
	}
}

// setup loads the configuration once for every command and installs the
// logger. Flags override the config file, which overrides the defaults.
func setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if v := c.String("log-level"); v != "" {
		cfg.Logging.Level = v
	}
	if v := c.String("log-format"); v != "" {
		cfg.Logging.Format = v
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]interface{})
	}
	c.App.Metadata[configKey] = cfg
	return nil
}

func loadedConfig(c *cli.Context) (*config.Config, error) {
	cfg, ok := c.App.Metadata[configKey].(*config.Config)
	if !ok {
		return nil, fmt.Errorf("configuration not loaded")
	}
	if v := c.String("store"); v != "" {
		cfg.Indexer.Store = v
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func createIndexCommand(c *cli.Context) error {
	ctx := c.Context
	if c.NArg() != 1 {
		return fmt.Errorf("usage: vsmir create_index <corpus_dir>")
	}
	cfg, err := loadedConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("workers") {
		cfg.Indexer.Workers = c.Int("workers")
	}
	corpusDir := c.Args().First()

	b := indexer.NewBuilder(cfg.Indexer, weighting.FromConfig(cfg.Weights), nil)
	idx, err := b.BuildDir(ctx, corpusDir)
	if err != nil {
		return fmt.Errorf("building index of %s: %w", corpusDir, err)
	}

	s, err := store.Open(cfg, c.String("output"))
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.Save(ctx, idx); err != nil {
		return fmt.Errorf("saving index: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "indexed %d documents, %d terms -> %s\n", idx.DocCount, idx.TermCount(), s.Name())

	if cfg.Kafka.Enabled {
		notifyIndexBuilt(ctx, cfg, s.Name(), idx)
	}
	return nil
}

// notifyIndexBuilt tells running search services to reload. The index is
// already saved, so a failure here is logged and does not fail the command.
func notifyIndexBuilt(ctx context.Context, cfg *config.Config, storeName string, idx *index.InvertedIndex) {
	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
	defer producer.Close()
	ev := kafka.IndexBuiltEvent{
		Store:     storeName,
		Analyzer:  idx.Analyzer,
		Version:   idx.Version,
		DocCount:  idx.DocCount,
		TermCount: idx.TermCount(),
		BuiltAt:   idx.BuiltAt,
	}
	err := resilience.Retry(ctx, "notify-index-built", resilience.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 200 * time.Millisecond,
	}, func() error {
		pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		err := producer.NotifyIndexBuilt(pubCtx, ev)
		if errors.Is(err, kafka.ErrInvalidEvent) {
			return resilience.Permanent(err)
		}
		return err
	})
	if err != nil {
		slog.Warn("index saved but build notification failed", "store", storeName, "error", err)
	}
}

func queryCommand(c *cli.Context) error {
	ctx := c.Context
	if c.NArg() < 2 {
		return fmt.Errorf("usage: vsmir query <index_path> <question>")
	}
	cfg, err := loadedConfig(c)
	if err != nil {
		return err
	}
	indexPath := c.Args().First()
	question := strings.Join(c.Args().Tail(), " ")

	s, err := store.Open(cfg, indexPath)
	if err != nil {
		return err
	}
	defer s.Close()
	idx, err := s.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading index: %w", err)
	}

	result, err := executor.New(cfg.Search, nil).Execute(ctx, idx, question)
	if err != nil {
		return err
	}

	output := c.String("output")
	if output == "" {
		output = cfg.Search.ResultPath
	}
	return writeDocIDs(c.App.Writer, output, result.DocIDs())
}

// writeDocIDs writes one id per line to path, or to stdout for "-". An empty
// result produces an empty file.
func writeDocIDs(stdout io.Writer, path string, ids []string) error {
	var b strings.Builder
	for _, id := range ids {
		b.WriteString(id)
		b.WriteByte('\n')
	}
	if path == "-" {
		_, err := io.WriteString(stdout, b.String())
		return err
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}
	slog.Info("query results written", "path", path, "results", len(ids))
	return nil
}
