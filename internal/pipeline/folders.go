package pipeline

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/wcatz/hgcdb-dashboards/internal/config"
)

// Folders creates or looks up one Grafana folder per config file and
// records its uid. A folder that fails is logged and the next one tried.
func (p *Pipeline) Folders(ctx context.Context) (Summary, error) {
	var sum Summary
	if err := p.requireClient(); err != nil {
		return sum, err
	}
	paths, err := config.ListConfigFiles(p.ConfigDir)
	if err != nil {
		return sum, err
	}

	for _, path := range paths {
		sum.Files++
		folder := config.FolderName(path)
		if folder == GeneralFolder {
			sum.Skipped++
			continue
		}
		uid, err := p.Client.CreateOrGetFolder(ctx, folder, p.folderUID(folder))
		if err != nil {
			log.Error().Err(err).Str("folder", folder).Msg("folder failed")
			sum.Failed++
			continue
		}
		sum.Uploaded++
		if p.Settings.Grafana.FolderUIDs[folder] == uid {
			continue
		}
		p.Settings.Grafana.FolderUIDs[folder] = uid
		if err := p.Settings.SaveGrafana(); err != nil {
			return sum, err
		}
	}
	logSummary("folders", sum)
	return sum, nil
}
