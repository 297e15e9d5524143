package grafana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const alertRulesPath = "/api/v1/provisioning/alert-rules"

// CreateServiceAccount creates an Admin service account and returns its id.
func (c *Client) CreateServiceAccount(ctx context.Context, name string) (int64, error) {
	var resp struct {
		ID int64 `json:"id"`
	}
	payload := map[string]interface{}{"name": name, "role": "Admin"}
	if err := c.do(ctx, "POST", "/api/serviceaccounts", payload, authBasic, &resp); err != nil {
		return 0, fmt.Errorf("creating service account %s: %w", name, err)
	}
	return resp.ID, nil
}

// CreateServiceAccountToken issues a non-expiring token for the service
// account and returns its key.
func (c *Client) CreateServiceAccountToken(ctx context.Context, saID int64, name string) (string, error) {
	var resp struct {
		Key string `json:"key"`
	}
	payload := map[string]interface{}{"name": name, "secondsToLive": 0}
	path := fmt.Sprintf("/api/serviceaccounts/%d/tokens", saID)
	if err := c.do(ctx, "POST", path, payload, authBasic, &resp); err != nil {
		return "", fmt.Errorf("creating token %s: %w", name, err)
	}
	if resp.Key == "" {
		return "", fmt.Errorf("creating token %s: empty key in response", name)
	}
	return resp.Key, nil
}

// PostgresDatasource describes the HGCDB datasource registered in Grafana.
type PostgresDatasource struct {
	Name     string
	UID      string
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// AddPostgresDatasource registers ds as the default datasource and returns
// the uid it was registered under, generating one when ds.UID is empty.
// A datasource that already exists is not an error; created is false then.
func (c *Client) AddPostgresDatasource(ctx context.Context, ds PostgresDatasource) (uid string, created bool, err error) {
	uid = ds.UID
	if uid == "" {
		uid = uuid.NewString()
	}
	payload := map[string]interface{}{
		"name":           ds.Name,
		"type":           "postgres",
		"access":         "proxy",
		"url":            fmt.Sprintf("%s:%s", ds.Host, ds.Port),
		"database":       ds.Database,
		"user":           ds.User,
		"secureJsonData": map[string]interface{}{"password": ds.Password},
		"isDefault":      true,
		"editable":       true,
		"uid":            uid,
		"jsonData": map[string]interface{}{
			"database": ds.Database,
			"sslmode":  "disable",
			"alerting": true,
		},
	}
	err = c.do(ctx, "POST", "/api/datasources", payload, authDefault, nil)
	switch {
	case errors.Is(err, ErrConflict):
		log.Info().Str("datasource", ds.Name).Msg("datasource already exists")
		return uid, false, nil
	case err != nil:
		return "", false, fmt.Errorf("adding datasource %s: %w", ds.Name, err)
	}
	return uid, true, nil
}

// CreateOrGetFolder returns the uid of the folder with uid, creating it with
// title when Grafana does not have it yet.
func (c *Client) CreateOrGetFolder(ctx context.Context, title, uid string) (string, error) {
	var existing struct {
		UID string `json:"uid"`
	}
	err := c.do(ctx, "GET", "/api/folders/"+url.PathEscape(uid), nil, authDefault, &existing)
	switch {
	case err == nil:
		if existing.UID == "" {
			existing.UID = uid
		}
		log.Debug().Str("folder", title).Str("uid", existing.UID).Msg("folder exists")
		return existing.UID, nil
	case !errors.Is(err, ErrNotFound):
		return "", fmt.Errorf("looking up folder %s: %w", title, err)
	}

	var created struct {
		UID string `json:"uid"`
	}
	payload := map[string]interface{}{"title": title, "uid": uid}
	if err := c.do(ctx, "POST", "/api/folders", payload, authDefault, &created); err != nil {
		return "", fmt.Errorf("creating folder %s: %w", title, err)
	}
	if created.UID == "" {
		created.UID = uid
	}
	log.Info().Str("folder", title).Str("uid", created.UID).Msg("folder created")
	return created.UID, nil
}

// UploadDashboard creates or overwrites a dashboard in the folder.
func (c *Client) UploadDashboard(ctx context.Context, dashboard json.RawMessage, folderUID string) error {
	payload := map[string]interface{}{
		"dashboard": dashboard,
		"folderUid": folderUID,
		"overwrite": true,
	}
	var resp struct {
		UID    string `json:"uid"`
		Status string `json:"status"`
	}
	if err := c.do(ctx, "POST", "/api/dashboards/db", payload, authDefault, &resp); err != nil {
		return fmt.Errorf("uploading dashboard: %w", err)
	}
	log.Debug().Str("uid", resp.UID).Str("status", resp.Status).Msg("dashboard uploaded")
	return nil
}

// UploadAlertRule provisions an alert rule. When a rule with uid already
// exists it is deleted and the upload retried once.
func (c *Client) UploadAlertRule(ctx context.Context, rule json.RawMessage, uid string) error {
	err := c.do(ctx, "POST", alertRulesPath, rule, authDefault, nil)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrConflict) {
		return fmt.Errorf("uploading alert %s: %w", uid, err)
	}

	log.Warn().Str("uid", uid).Msg("alert rule exists, replacing")
	if err := c.DeleteAlertRule(ctx, uid); err != nil {
		return fmt.Errorf("replacing alert %s: %w", uid, err)
	}
	if err := c.do(ctx, "POST", alertRulesPath, rule, authDefault, nil); err != nil {
		return fmt.Errorf("retrying alert %s: %w", uid, err)
	}
	return nil
}

// DeleteAlertRule deletes the provisioned alert rule with uid.
func (c *Client) DeleteAlertRule(ctx context.Context, uid string) error {
	if err := c.do(ctx, "DELETE", alertRulesPath+"/"+url.PathEscape(uid), nil, authDefault, nil); err != nil {
		return fmt.Errorf("deleting alert %s: %w", uid, err)
	}
	return nil
}

// ListAlertRuleUIDs returns the uids of every provisioned alert rule.
func (c *Client) ListAlertRuleUIDs(ctx context.Context) ([]string, error) {
	var rules []struct {
		UID string `json:"uid"`
	}
	if err := c.do(ctx, "GET", alertRulesPath, nil, authDefault, &rules); err != nil {
		return nil, fmt.Errorf("listing alert rules: %w", err)
	}
	uids := make([]string, 0, len(rules))
	for _, r := range rules {
		uids = append(uids, r.UID)
	}
	return uids, nil
}
