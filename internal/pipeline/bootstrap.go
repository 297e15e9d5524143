package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/wcatz/hgcdb-dashboards/internal/grafana"
)

// Bootstrap creates the service account and its token with basic auth,
// then registers the HGCDB Postgres datasource with the new token. Both
// results are saved to the Grafana connection file.
func (p *Pipeline) Bootstrap(ctx context.Context) error {
	if err := p.requireClient(); err != nil {
		return err
	}
	gf := &p.Settings.Grafana
	db := p.Settings.Database
	inst := strings.ToLower(strings.TrimSpace(db.Institution))

	saName := inst + "-service-account"
	saID, err := p.Client.CreateServiceAccount(ctx, saName)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	key, err := p.Client.CreateServiceAccountToken(ctx, saID, inst+"-sa-token")
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	gf.SAName = saName
	gf.SAID = strconv.FormatInt(saID, 10)
	gf.APIKey = key
	p.Client.Token = key
	if err := p.Settings.SaveGrafana(); err != nil {
		return err
	}
	log.Info().Str("service_account", saName).Int64("id", saID).Msg("service account created")

	dsName := strings.ToUpper(inst + "-" + db.DBName)
	uid, created, err := p.Client.AddPostgresDatasource(ctx, grafana.PostgresDatasource{
		Name:     dsName,
		UID:      gf.DataSourceUID,
		Host:     db.Host,
		Port:     db.Port,
		Database: db.DBName,
		User:     db.User,
		Password: db.Password,
	})
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	gf.DataSourceName = dsName
	gf.DataSourceUID = uid
	if err := p.Settings.SaveGrafana(); err != nil {
		return err
	}
	log.Info().Str("datasource", dsName).Str("uid", uid).Bool("created", created).Msg("datasource registered")
	return nil
}
