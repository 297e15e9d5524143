package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when a connection file does not exist.
var ErrNotFound = errors.New("config file not found")

const (
	GrafanaFile  = "gf_conn.yaml"
	DatabaseFile = "db_conn.yaml"
)

// GrafanaConn is the content of gf_conn.yaml. Bootstrap and folder steps
// update it and persist it with Settings.SaveGrafana.
type GrafanaConn struct {
	Port           string            `yaml:"GF_PORT"`
	Protocol       string            `yaml:"GF_PROTOCOL"`
	URL            string            `yaml:"GF_URL"`
	User           string            `yaml:"GF_USER"`
	Pass           string            `yaml:"GF_PASS"`
	SAName         string            `yaml:"GF_SA_NAME"`
	SAID           string            `yaml:"GF_SA_ID"`
	APIKey         string            `yaml:"GF_API_KEY"`
	DataSourceName string            `yaml:"GF_DATA_SOURCE_NAME"`
	DataSourceUID  string            `yaml:"GF_DATA_SOURCE_UID"`
	FolderUIDs     map[string]string `yaml:"GF_FOLDER_UIDS"`
	RunTimes       int               `yaml:"GF_RUN_TIMES"`
}

// BaseURL returns the Grafana root URL, built from protocol and port when
// GF_URL is not set.
func (g *GrafanaConn) BaseURL() string {
	if g.URL != "" {
		return strings.TrimRight(g.URL, "/")
	}
	proto := g.Protocol
	if proto == "" {
		proto = "http"
	}
	port := g.Port
	if port == "" {
		port = "3000"
	}
	return proto + "://" + net.JoinHostPort("127.0.0.1", port)
}

// DatabaseConn is the content of db_conn.yaml.
type DatabaseConn struct {
	DBName      string `yaml:"dbname"`
	Port        string `yaml:"port"`
	Host        string `yaml:"db_hostname"`
	Institution string `yaml:"institution_abbr"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
}

// DSN returns a postgres connection URL.
func (d DatabaseConn) DSN() string {
	port := d.Port
	if port == "" {
		port = "5432"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, port),
		Path:     "/" + d.DBName,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// TimeZone returns the display zone of the configured institution.
func (d DatabaseConn) TimeZone() (string, error) {
	return TimeZoneFor(d.Institution)
}

// Settings holds both connection files of a settings directory.
type Settings struct {
	Dir      string
	Grafana  GrafanaConn
	Database DatabaseConn

	envAPIKey string
}

// GrafanaPath returns the path of gf_conn.yaml.
func (s *Settings) GrafanaPath() string {
	return filepath.Join(s.Dir, GrafanaFile)
}

// DatabasePath returns the path of db_conn.yaml.
func (s *Settings) DatabasePath() string {
	return filepath.Join(s.Dir, DatabaseFile)
}

// Load reads both connection files from dir, then applies environment
// overrides. A .env file in the working directory is loaded first.
func Load(dir string) (*Settings, error) {
	_ = godotenv.Load()

	s := &Settings{Dir: dir}
	if err := readYAML(s.GrafanaPath(), &s.Grafana); err != nil {
		return nil, err
	}
	if err := readYAML(s.DatabasePath(), &s.Database); err != nil {
		return nil, err
	}
	s.applyEnv()
	if s.Grafana.FolderUIDs == nil {
		s.Grafana.FolderUIDs = make(map[string]string)
	}
	return s, nil
}

func readYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func (s *Settings) applyEnv() {
	if v := os.Getenv("GF_URL"); v != "" {
		s.Grafana.URL = v
	}
	if v := os.Getenv("GF_API_KEY"); v != "" {
		s.Grafana.APIKey = v
		s.envAPIKey = v
	}
	if v := os.Getenv("GF_USER"); v != "" {
		s.Grafana.User = v
	}
	if v := os.Getenv("GF_PASS"); v != "" {
		s.Grafana.Pass = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		s.Database.Password = v
	}
}

// SaveGrafana writes the keys this tool manages back into gf_conn.yaml,
// leaving comments and other keys untouched. An API key that came from the
// environment is not persisted.
func (s *Settings) SaveGrafana() error {
	g := s.Grafana
	return NewYAMLEditor(s.GrafanaPath()).Update(func(root *yaml.Node) error {
		setScalar(root, "GF_SA_NAME", g.SAName, "")
		setScalar(root, "GF_SA_ID", g.SAID, "")
		if s.envAPIKey == "" || g.APIKey != s.envAPIKey {
			setScalar(root, "GF_API_KEY", g.APIKey, "")
		}
		setScalar(root, "GF_DATA_SOURCE_NAME", g.DataSourceName, "")
		setScalar(root, "GF_DATA_SOURCE_UID", g.DataSourceUID, "")
		setStringMap(root, "GF_FOLDER_UIDS", g.FolderUIDs)
		setScalar(root, "GF_RUN_TIMES", strconv.Itoa(g.RunTimes), "!!int")
		return nil
	})
}

// Validate reports missing keys the Grafana steps cannot run without.
func (s *Settings) Validate() error {
	var missing []string
	if s.Grafana.APIKey == "" {
		missing = append(missing, "GF_API_KEY")
	}
	if s.Grafana.DataSourceUID == "" {
		missing = append(missing, "GF_DATA_SOURCE_UID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: missing %s (run bootstrap first)", s.GrafanaPath(), strings.Join(missing, ", "))
	}
	return nil
}
