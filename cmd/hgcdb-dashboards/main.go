package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/wcatz/hgcdb-dashboards/internal/config"
	"github.com/wcatz/hgcdb-dashboards/internal/grafana"
	"github.com/wcatz/hgcdb-dashboards/internal/logging"
	"github.com/wcatz/hgcdb-dashboards/internal/pipeline"
	"github.com/wcatz/hgcdb-dashboards/internal/schema"
)

var (
	settingsDir  string
	configDir    string
	schemaDir    string
	schemaSource string
	workDir      string
	verbose      bool
	dryRun       bool
	deleteAll    bool
	includes     []string
	excludes     []string
)

func addCommonFlags(fs *pflag.FlagSet) {
	fs.StringVar(&settingsDir, "settings-dir", "./a_EverythingNeedToChange", "directory holding gf_conn.yaml and db_conn.yaml")
	fs.StringVar(&configDir, "config-dir", "./config_folders", "directory of dashboard and alert config files")
	fs.StringVar(&schemaDir, "schema-dir", "./tool/postgres_tables", "directory of <table>.csv column lists")
	fs.StringVar(&schemaSource, "schema-source", "csv", "where table columns come from: csv or postgres")
	fs.StringVar(&workDir, "work-dir", ".", "directory generated JSON is written under")
	fs.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "hgcdb-dashboards",
		Short:         "generate HGCDB Grafana dashboards and alert rules from YAML config",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Init(verbose)
		},
	}
	addCommonFlags(rootCmd.PersistentFlags())

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "write template connection files into the settings dir",
		Args:  cobra.NoArgs,
		RunE:  runInit,
	}

	bootstrapCmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "create the service account token and register the Postgres datasource",
		Args:  cobra.NoArgs,
		RunE:  runBootstrap,
	}

	foldersCmd := &cobra.Command{
		Use:   "folders",
		Short: "create or look up one Grafana folder per config file",
		Args:  cobra.NoArgs,
		RunE:  runFolders,
	}

	dashboardsCmd := &cobra.Command{
		Use:   "dashboards",
		Short: "generate and upload every dashboard",
		Args:  cobra.NoArgs,
		RunE:  runDashboards,
	}

	alertsCmd := &cobra.Command{
		Use:   "alerts",
		Short: "generate and upload every alert rule",
		Args:  cobra.NoArgs,
		RunE:  runAlerts,
	}

	genCmd := &cobra.Command{
		Use:   "generate",
		Short: "generate dashboard and alert JSON without uploading",
		Args:  cobra.NoArgs,
		RunE:  runGenerate,
	}
	genCmd.Flags().BoolVar(&dryRun, "dry-run", false, "generate to memory only")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "check every config file against the table schema",
		Args:  cobra.NoArgs,
		RunE:  runValidate,
	}

	discoverCmd := &cobra.Command{
		Use:   "discover",
		Short: "list tables and print suggested dashboard YAML",
		Args:  cobra.NoArgs,
		RunE:  runDiscover,
	}
	discoverCmd.Flags().StringSliceVar(&includes, "include", nil, "table glob patterns to include")
	discoverCmd.Flags().StringSliceVar(&excludes, "exclude", nil, "table glob patterns to exclude")

	deleteCmd := &cobra.Command{
		Use:   "delete-alert [uid...]",
		Short: "delete provisioned alert rules",
		RunE:  runDeleteAlert,
	}
	deleteCmd.Flags().BoolVar(&deleteAll, "all", false, "delete every provisioned alert rule")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "bootstrap on first run, then folders, dashboards and alerts",
		Args:  cobra.NoArgs,
		RunE:  runAll,
	}

	rootCmd.AddCommand(initCmd, bootstrapCmd, foldersCmd, dashboardsCmd, alertsCmd,
		genCmd, validateCmd, discoverCmd, deleteCmd, runCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Error().Err(err).Msg("failed")
		os.Exit(1)
	}
}

func loadCatalog(ctx context.Context, settings *config.Settings) (schema.Catalog, error) {
	switch schemaSource {
	case "csv":
		return schema.LoadCSVCatalog(schemaDir)
	case "postgres":
		if settings == nil {
			return nil, fmt.Errorf("postgres schema source needs %s", config.DatabaseFile)
		}
		return schema.LoadPostgresCatalog(ctx, settings.Database.DSN())
	default:
		return nil, fmt.Errorf("unknown schema source %q (want csv or postgres)", schemaSource)
	}
}

// loadPipeline loads the settings, the table catalog and a Grafana client.
func loadPipeline(ctx context.Context) (*pipeline.Pipeline, error) {
	settings, err := config.Load(settingsDir)
	if err != nil {
		return nil, err
	}
	cat, err := loadCatalog(ctx, settings)
	if err != nil {
		return nil, err
	}
	gf := settings.Grafana
	client := grafana.NewClient(gf.BaseURL(), gf.User, gf.Pass, gf.APIKey)
	return pipeline.New(settings, cat, client, configDir, workDir)
}

// loadReadyPipeline is loadPipeline for steps that need a bootstrapped
// Grafana.
func loadReadyPipeline(ctx context.Context) (*pipeline.Pipeline, error) {
	p, err := loadPipeline(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.Settings.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
