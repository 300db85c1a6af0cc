package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tordrt/bizobj"
	"github.com/tordrt/bizobj/internal/api"
	"github.com/tordrt/bizobj/internal/config"
	"github.com/tordrt/bizobj/internal/crypt"
	"github.com/tordrt/bizobj/internal/formatter"
	"github.com/tordrt/bizobj/internal/logging"
	"github.com/tordrt/bizobj/internal/quoting"
	"github.com/tordrt/bizobj/internal/schema"
)

// errDrift makes check exit non-zero after printing its report.
var errDrift = errors.New("schema drift detected")

type options struct {
	configPath string
	dbURL      string
	logLevel   string
	logFormat  string

	addr      string
	bootstrap bool

	format     string
	outputFile string
	outputDir  string
	tables     string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "bizobj",
		Short:         "Quoting back office business objects",
		Long:          `bizobj serves the quoting back office's relational business objects over HTTP and checks their property schemas against PostgreSQL, MySQL, or SQLite databases.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "bizobj.yaml", "Path to config YAML")
	rootCmd.PersistentFlags().StringVar(&opts.dbURL, "db-url", "", "Database URL (postgres://, mysql://, or sqlite://)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format: json or console")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the quoting API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
	serveCmd.Flags().StringVar(&opts.addr, "addr", "", "HTTP listen address (default from config, :8080)")
	serveCmd.Flags().BoolVar(&opts.bootstrap, "bootstrap", false, "Create missing tables (SQLite only)")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Compare the property schemas with the live database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, opts)
		},
	}
	checkCmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text or markdown")
	checkCmd.Flags().StringVarP(&opts.tables, "tables", "t", "", "Specific tables (comma-separated, optional)")

	describeCmd := &cobra.Command{
		Use:   "describe",
		Short: "Print the property schemas",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(cmd, opts)
		},
	}
	describeCmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text or markdown")
	describeCmd.Flags().StringVarP(&opts.tables, "tables", "t", "", "Specific tables (comma-separated, optional)")
	describeCmd.Flags().StringVarP(&opts.outputFile, "output", "o", "", "Output file (default: stdout)")
	describeCmd.Flags().StringVarP(&opts.outputDir, "output-dir", "d", "", "Output directory for multi-file output")

	rootCmd.AddCommand(serveCmd, checkCmd, describeCmd)
	return rootCmd
}

// loadConfig reads the config file and environment, then applies flags the
// user set explicitly.
func loadConfig(cmd *cobra.Command, opts *options) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("db-url") {
		cfg.DatabaseURL = strings.TrimSpace(opts.dbURL)
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = opts.logFormat
	}
	if flags.Changed("addr") {
		cfg.HTTPAddr = opts.addr
	}

	return cfg, cfg.Validate()
}

func runServe(cmd *cobra.Command, opts *options) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	key, err := cfg.RequireKey()
	if err != nil {
		return err
	}
	box, err := crypt.NewBox(key)
	if err != nil {
		return err
	}

	client, err := bizobj.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close database connection")
		}
	}()

	if opts.bootstrap {
		if err := quoting.Bootstrap(ctx, client); err != nil {
			return err
		}
	}

	mapper := bizobj.NewMapper(client,
		bizobj.WithEncrypter(box),
		bizobj.WithHasher(crypt.NewBcrypt(cfg.HashCost)),
		bizobj.WithLogger(log),
	)
	return api.NewServer(mapper, box, log).Run(cfg.HTTPAddr)
}

func runCheck(cmd *cobra.Command, opts *options) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	schemas, err := selectSchemas(opts.tables)
	if err != nil {
		return err
	}

	client, err := bizobj.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to close database connection: %v\n", err)
		}
	}()

	drifts, err := bizobj.Check(ctx, client, schemas...)
	if err != nil {
		return fmt.Errorf("failed to check schemas: %w", err)
	}

	w := cmd.OutOrStdout()
	switch opts.format {
	case "text":
		err = formatter.NewTextFormatter(w).FormatDrift(drifts)
	case "markdown":
		err = formatter.NewMarkdownFormatter(w).FormatDrift(drifts)
	default:
		return fmt.Errorf("invalid format: %s (must be 'text' or 'markdown')", opts.format)
	}
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	if len(drifts) > 0 {
		return errDrift
	}
	return nil
}

func runDescribe(cmd *cobra.Command, opts *options) error {
	schemas, err := selectSchemas(opts.tables)
	if err != nil {
		return err
	}
	entities := describe(schemas)

	// Validate flag combinations
	if opts.outputDir != "" && opts.outputFile != "" {
		return fmt.Errorf("cannot use both --output-dir and --output flags")
	}
	if opts.format != "text" && opts.format != "markdown" {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'markdown')", opts.format)
	}

	// Multi-file output
	if opts.outputDir != "" {
		if err := formatter.NewMultiFileFormatter(opts.outputDir, opts.format).Format(entities); err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		return nil
	}

	// Single-file output
	var writer io.Writer = cmd.OutOrStdout()
	if opts.outputFile != "" {
		f, err := os.Create(opts.outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to close output file: %v\n", err)
			}
		}()
		writer = f
	}

	if opts.format == "markdown" {
		err = formatter.NewMarkdownFormatter(writer).Format(entities)
	} else {
		err = formatter.NewTextFormatter(writer).Format(entities)
	}
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	return nil
}

// selectSchemas returns the quoting schemas named in the comma-separated list,
// or all of them for an empty list.
func selectSchemas(tables string) ([]*bizobj.Schema, error) {
	all := quoting.Schemas()
	if strings.TrimSpace(tables) == "" {
		return all, nil
	}

	byTable := make(map[string]*bizobj.Schema, len(all))
	for _, s := range all {
		byTable[s.Table()] = s
	}

	var selected []*bizobj.Schema
	for _, name := range strings.Split(tables, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		s, ok := byTable[name]
		if !ok {
			return nil, fmt.Errorf("unknown table: %s", name)
		}
		selected = append(selected, s)
	}
	return selected, nil
}

func describe(schemas []*bizobj.Schema) []schema.Entity {
	entities := make([]schema.Entity, len(schemas))
	for i, s := range schemas {
		entities[i] = s.Describe()
	}
	return entities
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errDrift) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
