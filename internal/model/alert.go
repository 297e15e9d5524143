package model

// AlertSpec is one alert rule declared under `alert:` in a config file.
type AlertSpec struct {
	Title     string            `yaml:"title"`
	Table     string            `yaml:"table"`
	PanelID   string            `yaml:"panelID"`
	Parameter string            `yaml:"parameter"`
	Threshold []float64         `yaml:"threshold"`
	LogicType string            `yaml:"logicType"`
	Duration  string            `yaml:"duration"`
	Interval  string            `yaml:"interval"`
	Summary   string            `yaml:"summary"`
	Labels    map[string]string `yaml:"labels"`
	Dashboard string            `yaml:"dashboard"`
}
