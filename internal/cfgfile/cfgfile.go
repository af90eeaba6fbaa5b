// Package cfgfile loads YAML configuration for the demo binaries, searching
// a fixed list of candidate locations the way the teacher's device-id table
// loader does.
package cfgfile

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/doismellburning/samoyed-hal/internal/logx"
)

var log = logx.For("cfgfile")

// SearchLocations lists the paths checked, in order, when name is a bare
// filename rather than an absolute or relative path containing a separator.
var SearchLocations = []string{
	".",
	"config",
	"/etc/samoyed-hal",
	"/usr/local/etc/samoyed-hal",
}

// Load finds name along SearchLocations (or opens it directly if it already
// names a path) and unmarshals its YAML content into out.
func Load(name string, out any) error {
	fp, resolved, err := open(name)
	if err != nil {
		return err
	}
	defer fp.Close()

	data, err := io.ReadAll(fp)
	if err != nil {
		return fmt.Errorf("cfgfile: reading %s: %w", resolved, err)
	}

	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("cfgfile: parsing %s: %w", resolved, err)
	}

	log.Debug("loaded config", "path", resolved)
	return nil
}

func open(name string) (*os.File, string, error) {
	if containsSeparator(name) {
		fp, err := os.Open(name)
		return fp, name, err
	}

	var lastErr error
	for _, dir := range SearchLocations {
		path := dir + string(os.PathSeparator) + name
		fp, err := os.Open(path)
		if err == nil {
			return fp, path, nil
		}
		lastErr = err
	}

	log.Warn("config file not found in any search location", "name", name, "locations", SearchLocations)
	return nil, name, fmt.Errorf("cfgfile: %s not found: %w", name, lastErr)
}

func containsSeparator(name string) bool {
	for _, r := range name {
		if r == '/' || r == os.PathSeparator {
			return true
		}
	}
	return false
}
