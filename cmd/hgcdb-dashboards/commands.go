package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wcatz/hgcdb-dashboards/internal/config"
	"github.com/wcatz/hgcdb-dashboards/internal/pipeline"
	"github.com/wcatz/hgcdb-dashboards/internal/schema"
)

func runInit(cmd *cobra.Command, args []string) error {
	created, err := config.WriteTemplates(settingsDir)
	if err != nil {
		return err
	}
	if len(created) == 0 {
		fmt.Printf("connection files already present in %s\n", settingsDir)
		return nil
	}
	for _, path := range created {
		fmt.Printf("  wrote %s\n", path)
	}
	fmt.Println("edit these files, then run bootstrap")
	return nil
}

func runBootstrap(cmd *cobra.Command, args []string) error {
	p, err := loadPipeline(cmd.Context())
	if err != nil {
		return err
	}
	return p.Bootstrap(cmd.Context())
}

func runFolders(cmd *cobra.Command, args []string) error {
	p, err := loadReadyPipeline(cmd.Context())
	if err != nil {
		return err
	}
	sum, err := p.Folders(cmd.Context())
	printSummary("folders", sum)
	return err
}

func runDashboards(cmd *cobra.Command, args []string) error {
	p, err := loadReadyPipeline(cmd.Context())
	if err != nil {
		return err
	}
	sum, err := p.Dashboards(cmd.Context())
	printSummary("dashboards", sum)
	return err
}

func runAlerts(cmd *cobra.Command, args []string) error {
	p, err := loadReadyPipeline(cmd.Context())
	if err != nil {
		return err
	}
	sum, err := p.Alerts(cmd.Context())
	printSummary("alerts", sum)
	return err
}

func runGenerate(cmd *cobra.Command, args []string) error {
	p, err := loadPipeline(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Println("hgcdb dashboard generator:")
	sum, err := p.Generate(dryRun)
	printSummary("generate", sum)
	return err
}

func runValidate(cmd *cobra.Command, args []string) error {
	p, err := loadPipeline(cmd.Context())
	if err != nil {
		return err
	}
	sum, failed, err := p.Validate()
	if err != nil {
		return err
	}
	for _, r := range failed {
		fmt.Printf("%s:\n", r.File)
		for _, prob := range r.Problems {
			fmt.Printf("  - %s\n", prob)
		}
	}
	fmt.Printf("\n  total: %d files, %d passed, %d failed\n", sum.Files, sum.Generated, sum.Skipped)
	if sum.Skipped > 0 {
		return fmt.Errorf("%d config file(s) failed validation", sum.Skipped)
	}
	return nil
}

func runDiscover(cmd *cobra.Command, args []string) error {
	var settings *config.Settings
	if schemaSource == "postgres" {
		s, err := config.Load(settingsDir)
		if err != nil {
			return err
		}
		settings = s
	}
	cat, err := loadCatalog(cmd.Context(), settings)
	if err != nil {
		return err
	}
	return schema.NewDiscovery(cat).PrintDiscovery(os.Stdout, includes, excludes)
}

func runDeleteAlert(cmd *cobra.Command, args []string) error {
	if deleteAll == (len(args) > 0) {
		return errors.New("give alert uids or --all, not both")
	}
	p, err := loadReadyPipeline(cmd.Context())
	if err != nil {
		return err
	}
	sum, err := p.DeleteAlerts(cmd.Context(), args, deleteAll)
	fmt.Printf("\n  deleted %d alert rule(s), %d failed\n", sum.Deleted, sum.Failed)
	return err
}

func runAll(cmd *cobra.Command, args []string) error {
	p, err := loadPipeline(cmd.Context())
	if err != nil {
		return err
	}
	return p.Run(cmd.Context())
}

func printSummary(step string, sum pipeline.Summary) {
	fmt.Printf("\n  %s: %s\n", step, sum)
}
