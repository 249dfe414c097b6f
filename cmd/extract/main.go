package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rxtech-lab/rates-export/internal/logger"
	"github.com/rxtech-lab/rates-export/internal/types"
	"github.com/rxtech-lab/rates-export/internal/version"
	"github.com/rxtech-lab/rates-export/pkg/marketdata"
	"github.com/rxtech-lab/rates-export/pkg/marketdata/source"
	"github.com/rxtech-lab/rates-export/pkg/marketdata/writer"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// loadConfig builds the export config: file (or defaults) first, then the environment, then flags.
func loadConfig(cmd *cli.Command) (*marketdata.ExportConfig, error) {
	config := marketdata.DefaultExportConfig()

	if path := cmd.String("config"); path != "" {
		loaded, err := marketdata.ReadExportConfig(path)
		if err != nil {
			return nil, err
		}

		config = *loaded
	} else {
		config.ApplyEnv()
	}

	if cmd.IsSet("symbol") {
		config.Symbols = cmd.StringSlice("symbol")
	}

	if cmd.IsSet("timeframe") {
		config.Timeframes = cmd.StringSlice("timeframe")
	}

	if cmd.IsSet("output") {
		config.Output.Path = cmd.String("output")
	}

	if cmd.IsSet("partition") {
		config.Output.PartitionBy = cmd.StringSlice("partition")
	}

	if cmd.IsSet("compression") {
		config.Output.Compression = cmd.String("compression")
	}

	if cmd.IsSet("source") {
		config.Source.Type = cmd.String("source")
	}

	if cmd.IsSet("bridge-url") {
		config.Source.BridgeURL = cmd.String("bridge-url")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// exportAction collects every symbol/timeframe pair and saves the dataset to Parquet.
func exportAction(ctx context.Context, cmd *cli.Command) error {
	config, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("invalid export configuration: %w", err)
	}

	appLogger, err := logger.NewLoggerFromString(cmd.String("log-level"))
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer appLogger.Sync() //nolint:errcheck

	timeframes, err := config.ParsedTimeframes()
	if err != nil {
		return err
	}

	extractorConfig, err := config.ToExtractorConfig()
	if err != nil {
		return err
	}

	total := len(config.Symbols) * len(timeframes)
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Extracting rates"),
		progressbar.OptionShowCount(),
	)
	extractorConfig.OnProgress = func(current float64, _ float64, message string) {
		bar.Describe(message)
		_ = bar.Set(int(current))
	}

	appLogger.Info("Starting export",
		zap.String("source", config.Source.Type),
		zap.Strings("symbols", config.Symbols),
		zap.Strings("timeframes", config.Timeframes),
		zap.String("output", config.Output.Path),
	)

	extractor, err := marketdata.NewExtractor(ctx, extractorConfig, appLogger)
	if err != nil {
		return err
	}
	defer extractor.Close()

	if _, err := extractor.ExtractMultipleData(ctx, config.Symbols, timeframes); err != nil {
		return err
	}

	_ = bar.Finish()

	if err := extractor.SaveToParquet(ctx, config.Output.Path, config.Output.PartitionBy...); err != nil {
		return err
	}

	fmt.Fprintf(cmd.Root().Writer, "File saved to: %s\n", config.Output.Path)

	return nil
}

// inspectAction prints the series of a persisted dataset.
func inspectAction(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("path to a Parquet file or directory is required")
	}

	stats, err := writer.Stats(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to inspect %s: %w", path, err)
	}

	return printStats(cmd.Root().Writer, stats)
}

func printStats(w io.Writer, stats writer.DatasetStats) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TICKET\tTIMEFRAME\tROWS\tFIRST\tLAST")

	for _, series := range stats.Series {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			series.Ticket,
			series.Timeframe,
			series.Rows,
			series.First.Format(time.RFC3339),
			series.Last.Format(time.RFC3339),
		)
	}

	fmt.Fprintf(tw, "TOTAL\t\t%d\t\t\n", stats.TotalRows)

	return tw.Flush()
}

// browseAction opens an interactive viewer over a persisted dataset.
func browseAction(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("path to a Parquet file or directory is required")
	}

	program := tea.NewProgram(newBrowseModel(ctx, path), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("browser exited: %w", err)
	}

	return nil
}

func schemaAction(_ context.Context, cmd *cli.Command) error {
	schema, err := marketdata.GetExportConfigSchema()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	fmt.Fprintln(cmd.Root().Writer, schema)

	return nil
}

const (
	schemaFileName = "export-config.json"
	sampleFileName = "export.yaml"
)

// initAction writes the config schema and, unless one already exists, a sample export config.
func initAction(_ context.Context, cmd *cli.Command) error {
	dir := cmd.String("dir")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	schema, err := marketdata.GetExportConfigSchema()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	schemaPath := filepath.Join(dir, schemaFileName)
	if err := os.WriteFile(schemaPath, []byte(schema), 0644); err != nil {
		return fmt.Errorf("failed to write schema: %w", err)
	}

	fmt.Fprintf(cmd.Root().Writer, "Schema written to: %s\n", schemaPath)

	samplePath := filepath.Join(dir, sampleFileName)
	if _, err := os.Stat(samplePath); err == nil {
		return nil
	}

	sample := marketdata.DefaultExportConfig()
	sample.Symbols = []string{"WDO$", "WIN$"}
	sample.Timeframes = []string{types.TimeframeM1.Label(), types.TimeframeD1.Label()}
	sample.Output.Path = filepath.Join("data", "rates.parquet")

	body, err := yaml.Marshal(sample)
	if err != nil {
		return fmt.Errorf("failed to marshal sample config: %w", err)
	}

	body = append([]byte("# yaml-language-server: $schema="+schemaFileName+"\n"), body...)
	if err := os.WriteFile(samplePath, body, 0644); err != nil {
		return fmt.Errorf("failed to write sample config: %w", err)
	}

	fmt.Fprintf(cmd.Root().Writer, "Sample config written to: %s\n", samplePath)

	return nil
}

func timeframesAction(_ context.Context, cmd *cli.Command) error {
	tw := tabwriter.NewWriter(cmd.Root().Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LABEL\tCODE\tDURATION")

	for _, tf := range types.AllTimeframes() {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", tf.Label(), int32(tf), tf.Duration())
	}

	return tw.Flush()
}

func versionAction(_ context.Context, cmd *cli.Command) error {
	fmt.Fprintf(cmd.Root().Writer, "extract %s (bridge API %s)\n", version.GetVersion(), version.BridgeAPIVersion)

	return nil
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "extract",
		Usage:   "Export historical rates to Parquet",
		Version: version.GetVersion(),
		Commands: []*cli.Command{
			{
				Name:  "export",
				Usage: "Collect every symbol/timeframe pair and save it as Parquet",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to a YAML export config",
					},
					&cli.StringSliceFlag{
						Name:    "symbol",
						Aliases: []string{"s"},
						Usage:   "Symbol to export (repeatable)",
					},
					&cli.StringSliceFlag{
						Name:    "timeframe",
						Aliases: []string{"t"},
						Usage:   "Timeframe label to export, e.g. M1 or D1 (repeatable)",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Parquet file, or root directory when partitioned",
					},
					&cli.StringSliceFlag{
						Name:    "partition",
						Aliases: []string{"p"},
						Usage:   "Column to partition by, e.g. ticket (repeatable)",
					},
					&cli.StringFlag{
						Name:  "source",
						Usage: fmt.Sprintf("Bar source (%s, %s, %s)", source.SourceTerminal, source.SourcePolygon, source.SourceBinance),
					},
					&cli.StringFlag{
						Name:  "bridge-url",
						Usage: "Base URL of the terminal bridge",
					},
					&cli.StringFlag{
						Name:  "compression",
						Usage: "Parquet compression (snappy, zstd, gzip, uncompressed)",
					},
					&cli.StringFlag{
						Name:  "log-level",
						Usage: "Log level (debug, info, warn, error)",
						Value: "info",
					},
				},
				Action: exportAction,
			},
			{
				Name:      "inspect",
				Usage:     "Print the series of a Parquet file or partitioned directory",
				ArgsUsage: "<path>",
				Action:    inspectAction,
			},
			{
				Name:      "browse",
				Usage:     "Browse the series and bars of a Parquet file or partitioned directory",
				ArgsUsage: "<path>",
				Action:    browseAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the export config",
				Action: schemaAction,
			},
			{
				Name:  "init",
				Usage: "Write the config schema and a sample export config",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "dir",
						Usage: "Directory to write into",
						Value: "config",
					},
				},
				Action: initAction,
			},
			{
				Name:   "timeframes",
				Usage:  "List the supported timeframes",
				Action: timeframesAction,
			},
			{
				Name:   "version",
				Usage:  "Print the CLI and bridge API versions",
				Action: versionAction,
			},
		},
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
