package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/wcatz/hgcdb-dashboards/internal/generator"
	"github.com/wcatz/hgcdb-dashboards/internal/logging"
	"github.com/wcatz/hgcdb-dashboards/internal/validate"
)

// GenerateDashboards validates every config file and writes the JSON of
// each dashboard under <work>/Dashboards/<folder>/. A file that fails
// validation is skipped whole.
func (p *Pipeline) GenerateDashboards(dryRun bool) (Summary, error) {
	var sum Summary
	configs, err := p.loadConfigs(&sum)
	if err != nil {
		return sum, err
	}

	factory := generator.NewPanelFactory(p.Settings.Grafana.DataSourceUID, p.SQL)
	builder := generator.NewDashboardBuilder(factory)
	for _, pc := range configs {
		if len(pc.Spec.Dashboards) == 0 {
			continue
		}
		if err := validate.Dashboards(pc.Path, pc.Raw, p.Catalog).Err(); err != nil {
			logging.Skipped(err, "file", pc.Path)
			sum.Skipped++
			continue
		}
		for _, spec := range pc.Spec.Dashboards {
			dash, skipped := builder.Build(spec)
			if skipped > 0 {
				log.Warn().Str("dashboard", spec.Title).Int("panels", skipped).Msg("panels skipped")
			}
			fpath := generator.OutputPath(p.WorkDir, generator.DashboardsDir, pc.Folder, spec.Title)
			if _, err := generator.WriteJSON(dash, fpath, dryRun); err != nil {
				log.Error().Err(err).Str("dashboard", spec.Title).Msg("write failed")
				sum.Failed++
				continue
			}
			sum.Generated++
		}
	}
	return sum, nil
}

// UploadDashboards uploads every generated dashboard file into the folder
// it was generated for. Failures are logged per file.
func (p *Pipeline) UploadDashboards(ctx context.Context) (Summary, error) {
	var sum Summary
	if err := p.requireClient(); err != nil {
		return sum, err
	}
	folders, err := generatedFolders(filepath.Join(p.WorkDir, generator.DashboardsDir))
	if err != nil {
		return sum, err
	}
	for _, folder := range folders {
		paths, err := generator.ListJSON(filepath.Join(p.WorkDir, generator.DashboardsDir, folder))
		if err != nil {
			return sum, err
		}
		folderUID := p.folderUID(folder)
		for _, path := range paths {
			body, err := generator.ReadJSON(path)
			if err == nil {
				err = p.Client.UploadDashboard(ctx, body, folderUID)
			}
			if err != nil {
				log.Error().Err(err).Str("file", path).Msg("dashboard upload failed")
				sum.Failed++
				continue
			}
			log.Info().Str("folder", folder).Str("file", filepath.Base(path)).Msg("dashboard uploaded")
			sum.Uploaded++
		}
	}
	return sum, nil
}

// Dashboards regenerates and uploads every dashboard. The generated tree
// is removed once every upload succeeded.
func (p *Pipeline) Dashboards(ctx context.Context) (Summary, error) {
	if err := p.requireClient(); err != nil {
		return Summary{}, err
	}
	if err := generator.RemoveTree(p.WorkDir, generator.DashboardsDir); err != nil {
		return Summary{}, err
	}
	sum, err := p.GenerateDashboards(false)
	if err != nil {
		return sum, err
	}
	up, err := p.UploadDashboards(ctx)
	sum.add(up)
	if err != nil {
		return sum, err
	}
	if sum.Failed == 0 {
		if err := generator.RemoveTree(p.WorkDir, generator.DashboardsDir); err != nil {
			return sum, err
		}
	}
	logSummary("dashboards", sum)
	return sum, nil
}

// generatedFolders lists the folder directories of an output tree. A
// missing tree has none.
func generatedFolders(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var folders []string
	for _, e := range entries {
		if e.IsDir() {
			folders = append(folders, e.Name())
		}
	}
	return folders, nil
}
