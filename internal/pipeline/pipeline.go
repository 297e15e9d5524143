// Package pipeline runs the provisioning steps: bootstrap, folders,
// dashboards and alerts, each over every panel config file.
package pipeline

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/wcatz/hgcdb-dashboards/internal/config"
	"github.com/wcatz/hgcdb-dashboards/internal/generator"
	"github.com/wcatz/hgcdb-dashboards/internal/grafana"
	"github.com/wcatz/hgcdb-dashboards/internal/logging"
	"github.com/wcatz/hgcdb-dashboards/internal/schema"
	"github.com/wcatz/hgcdb-dashboards/internal/sqlbuilder"
)

// GeneralFolder is Grafana's built-in root folder. It has no uid and is
// never created.
const GeneralFolder = "General"

// Pipeline holds everything a step needs. Settings are mutated by the
// bootstrap and folder steps and saved after every change.
type Pipeline struct {
	Settings  *config.Settings
	Catalog   schema.Catalog
	Client    *grafana.Client
	ConfigDir string
	WorkDir   string
	SQL       *sqlbuilder.Builder
}

// New creates a pipeline. client may be nil for steps that never call
// Grafana.
func New(settings *config.Settings, cat schema.Catalog, client *grafana.Client, configDir, workDir string) (*Pipeline, error) {
	tz, err := settings.Database.TimeZone()
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		Settings:  settings,
		Catalog:   cat,
		Client:    client,
		ConfigDir: configDir,
		WorkDir:   workDir,
		SQL:       sqlbuilder.New(tz, cat),
	}, nil
}

// Summary counts what a step did.
type Summary struct {
	Files     int
	Skipped   int
	Generated int
	Uploaded  int
	Deleted   int
	Failed    int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d files (%d skipped), %d generated, %d uploaded, %d failed",
		s.Files, s.Skipped, s.Generated, s.Uploaded, s.Failed)
}

func (s *Summary) add(o Summary) {
	s.Files += o.Files
	s.Skipped += o.Skipped
	s.Generated += o.Generated
	s.Uploaded += o.Uploaded
	s.Deleted += o.Deleted
	s.Failed += o.Failed
}

// loadConfigs parses every config file in name order. Files that fail to
// parse are logged and counted as skipped.
func (p *Pipeline) loadConfigs(sum *Summary) ([]*config.PanelConfig, error) {
	paths, err := config.ListConfigFiles(p.ConfigDir)
	if err != nil {
		return nil, err
	}
	var configs []*config.PanelConfig
	for _, path := range paths {
		sum.Files++
		pc, err := config.LoadPanelConfig(path)
		if err != nil {
			logging.Skipped(err, "file", path)
			sum.Skipped++
			continue
		}
		configs = append(configs, pc)
	}
	return configs, nil
}

// folderUID returns the uid recorded for folder, or the one it will be
// created under.
func (p *Pipeline) folderUID(folder string) string {
	if folder == GeneralFolder {
		return ""
	}
	if uid, ok := p.Settings.Grafana.FolderUIDs[folder]; ok {
		return uid
	}
	return generator.CreateUID(folder)
}

func (p *Pipeline) requireClient() error {
	if p.Client == nil {
		return fmt.Errorf("no grafana client configured")
	}
	return nil
}

func logSummary(step string, sum Summary) {
	log.Info().
		Int("files", sum.Files).
		Int("skipped", sum.Skipped).
		Int("generated", sum.Generated).
		Int("uploaded", sum.Uploaded).
		Int("failed", sum.Failed).
		Msgf("%s done", step)
}
