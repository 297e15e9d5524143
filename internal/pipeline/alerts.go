package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/wcatz/hgcdb-dashboards/internal/generator"
	"github.com/wcatz/hgcdb-dashboards/internal/logging"
	"github.com/wcatz/hgcdb-dashboards/internal/validate"
)

// GenerateAlerts validates the alert list of every config file and writes
// each rule under <work>/Alerts/<folder>/.
func (p *Pipeline) GenerateAlerts(dryRun bool) (Summary, error) {
	var sum Summary
	configs, err := p.loadConfigs(&sum)
	if err != nil {
		return sum, err
	}

	builder := generator.NewAlertBuilder(p.Settings.Grafana.DataSourceUID)
	for _, pc := range configs {
		if len(pc.Spec.Alerts) == 0 {
			continue
		}
		if err := validate.Alerts(pc.Path, pc.Raw, p.Catalog).Err(); err != nil {
			logging.Skipped(err, "file", pc.Path)
			sum.Skipped++
			continue
		}
		folderUID := p.folderUID(pc.Folder)
		for _, a := range pc.Spec.Alerts {
			rule := builder.Build(a, folderUID)
			fpath := generator.OutputPath(p.WorkDir, generator.AlertsDir, pc.Folder, a.Title)
			if _, err := generator.WriteJSON(rule, fpath, dryRun); err != nil {
				log.Error().Err(err).Str("alert", a.Title).Msg("write failed")
				sum.Failed++
				continue
			}
			sum.Generated++
		}
	}
	return sum, nil
}

// UploadAlerts provisions every generated alert rule file. A rule that
// still conflicts after one delete and retry is logged and skipped.
func (p *Pipeline) UploadAlerts(ctx context.Context) (Summary, error) {
	var sum Summary
	if err := p.requireClient(); err != nil {
		return sum, err
	}
	root := filepath.Join(p.WorkDir, generator.AlertsDir)
	folders, err := generatedFolders(root)
	if err != nil {
		return sum, err
	}
	for _, folder := range folders {
		paths, err := generator.ListJSON(filepath.Join(root, folder))
		if err != nil {
			return sum, err
		}
		for _, path := range paths {
			if err := p.uploadAlertFile(ctx, path); err != nil {
				log.Error().Err(err).Str("file", path).Msg("alert upload failed")
				sum.Failed++
				continue
			}
			log.Info().Str("folder", folder).Str("file", filepath.Base(path)).Msg("alert uploaded")
			sum.Uploaded++
		}
	}
	return sum, nil
}

func (p *Pipeline) uploadAlertFile(ctx context.Context, path string) error {
	body, err := generator.ReadJSON(path)
	if err != nil {
		return err
	}
	var rule struct {
		UID string `json:"uid"`
	}
	if err := json.Unmarshal(body, &rule); err != nil {
		return fmt.Errorf("reading uid of %s: %w", path, err)
	}
	return p.Client.UploadAlertRule(ctx, body, rule.UID)
}

// Alerts regenerates and uploads every alert rule, then forgets the folder
// uids so the next run looks folders up again. The generated tree is
// removed once every upload succeeded.
func (p *Pipeline) Alerts(ctx context.Context) (Summary, error) {
	if err := p.requireClient(); err != nil {
		return Summary{}, err
	}
	if err := generator.RemoveTree(p.WorkDir, generator.AlertsDir); err != nil {
		return Summary{}, err
	}
	sum, err := p.GenerateAlerts(false)
	if err != nil {
		return sum, err
	}
	up, err := p.UploadAlerts(ctx)
	sum.add(up)
	if err != nil {
		return sum, err
	}

	p.Settings.Grafana.FolderUIDs = make(map[string]string)
	if err := p.Settings.SaveGrafana(); err != nil {
		return sum, err
	}
	if sum.Failed == 0 {
		if err := generator.RemoveTree(p.WorkDir, generator.AlertsDir); err != nil {
			return sum, err
		}
	}
	logSummary("alerts", sum)
	return sum, nil
}

// DeleteAlerts deletes the alert rules with the given uids, or every
// provisioned rule when all is set.
func (p *Pipeline) DeleteAlerts(ctx context.Context, uids []string, all bool) (Summary, error) {
	var sum Summary
	if err := p.requireClient(); err != nil {
		return sum, err
	}
	if all {
		listed, err := p.Client.ListAlertRuleUIDs(ctx)
		if err != nil {
			return sum, err
		}
		uids = listed
	}
	for _, uid := range uids {
		if err := p.Client.DeleteAlertRule(ctx, uid); err != nil {
			log.Error().Err(err).Str("uid", uid).Msg("delete failed")
			sum.Failed++
			continue
		}
		log.Info().Str("uid", uid).Msg("alert rule deleted")
		sum.Deleted++
	}
	return sum, nil
}
