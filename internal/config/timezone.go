package config

import (
	"fmt"
	"strings"
)

// institutionTimeZones maps HGCAL assembly centers to their local zone.
var institutionTimeZones = map[string]string{
	"CMU":  "America/New_York",
	"IHEP": "Asia/Shanghai",
	"NTU":  "Asia/Taipei",
	"TTU":  "America/Chicago",
	"TIFR": "Asia/Kolkata",
	"UCSB": "America/Los_Angeles",
}

// TimeZoneFor returns the display zone for an institution abbreviation.
func TimeZoneFor(institution string) (string, error) {
	tz, ok := institutionTimeZones[strings.ToUpper(strings.TrimSpace(institution))]
	if !ok {
		return "", fmt.Errorf("unknown institution_abbr %q", institution)
	}
	return tz, nil
}
