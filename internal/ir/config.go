package ir

// Config represents the top-level project configuration.
type Config struct {
	Source         string   `json:"source" yaml:"source" pkl:"source"`
	Output         string   `json:"output" yaml:"output" pkl:"output"`
	Manifest       string   `json:"manifest,omitempty" yaml:"manifest,omitempty" pkl:"manifest"`
	Targets        []string `json:"targets,omitempty" yaml:"targets,omitempty" pkl:"targets"`
	Package        string   `json:"package,omitempty" yaml:"package,omitempty" pkl:"package"`
	Exclude        []string `json:"exclude,omitempty" yaml:"exclude,omitempty" pkl:"exclude"`
	DefaultVersion string   `json:"defaultVersion,omitempty" yaml:"defaultVersion,omitempty" pkl:"defaultVersion"`
}

// ManifestDir returns the directory holding the manifest file.
// It falls back to the output directory when no manifest directory is set.
func (c *Config) ManifestDir() string {
	if c.Manifest != "" {
		return c.Manifest
	}
	return c.Output
}
