package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/wcatz/hgcdb-dashboards/internal/validate"
)

// Generate writes every dashboard and alert to disk without calling
// Grafana. With dryRun nothing is written.
func (p *Pipeline) Generate(dryRun bool) (Summary, error) {
	fmt.Println("dashboards:")
	sum, err := p.GenerateDashboards(dryRun)
	if err != nil {
		return sum, err
	}
	fmt.Println("alerts:")
	alerts, err := p.GenerateAlerts(dryRun)
	alerts.Files = 0
	sum.add(alerts)
	return sum, err
}

// Validate runs the dashboard and alert checks over every config file and
// returns a report per failing file.
func (p *Pipeline) Validate() (Summary, []*validate.Report, error) {
	var sum Summary
	configs, err := p.loadConfigs(&sum)
	if err != nil {
		return sum, nil, err
	}
	var failed []*validate.Report
	for _, pc := range configs {
		var reports []*validate.Report
		if _, ok := pc.Raw["dashboards"]; ok {
			reports = append(reports, validate.Dashboards(pc.Path, pc.Raw, p.Catalog))
		}
		if _, ok := pc.Raw["alert"]; ok {
			reports = append(reports, validate.Alerts(pc.Path, pc.Raw, p.Catalog))
		}
		ok := true
		for _, r := range reports {
			if !r.OK() {
				failed = append(failed, r)
				ok = false
			}
		}
		if ok {
			sum.Generated++
		} else {
			sum.Skipped++
		}
	}
	return sum, failed, nil
}

// Run executes the whole sequence: bootstrap on the first run only, then
// folders, dashboards and alerts. The run counter is saved at the end.
// Bootstrap is also skipped when the connection file already holds a token
// and datasource uid, so an earlier bootstrap or failed run is not repeated.
func (p *Pipeline) Run(ctx context.Context) error {
	gf := &p.Settings.Grafana
	if p.needsBootstrap() {
		log.Info().Msg("first run, bootstrapping grafana")
		if err := p.Bootstrap(ctx); err != nil {
			return err
		}
	} else {
		log.Debug().Int("run", gf.RunTimes+1).Msg("skipping bootstrap")
	}
	if err := p.Settings.Validate(); err != nil {
		return err
	}

	if _, err := p.Folders(ctx); err != nil {
		return fmt.Errorf("folders: %w", err)
	}
	if _, err := p.Dashboards(ctx); err != nil {
		return fmt.Errorf("dashboards: %w", err)
	}
	if _, err := p.Alerts(ctx); err != nil {
		return fmt.Errorf("alerts: %w", err)
	}

	gf.RunTimes++
	return p.Settings.SaveGrafana()
}

func (p *Pipeline) needsBootstrap() bool {
	return p.Settings.Grafana.RunTimes == 0 && p.Settings.Validate() != nil
}
