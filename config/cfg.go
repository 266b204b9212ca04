package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

//go:embed config.yaml
var configDefaults []byte

type (
	// GeometryConfig provides fallback values for page geometry fields which
	// cannot be read from the document package. Units are points.
	GeometryConfig struct {
		PageWidth    float64 `yaml:"page_width"`
		PageHeight   float64 `yaml:"page_height"`
		MarginTop    float64 `yaml:"margin_top"`
		MarginBottom float64 `yaml:"margin_bottom"`
		MarginLeft   float64 `yaml:"margin_left"`
		MarginRight  float64 `yaml:"margin_right"`
		BaseFontSize float64 `yaml:"base_font_size"`
		LineSpacing  float64 `yaml:"line_spacing"`
	}

	// DetectorConfig controls heading detection heuristics.
	DetectorConfig struct {
		// Keywords is the vocabulary of well known section names which make a
		// short emphasized paragraph a heading even without numbering.
		Keywords []string `yaml:"keywords"`
	}

	// FrontMatterConfig controls generated TOC/LOF/LOT sections.
	FrontMatterConfig struct {
		TOCTitle string `yaml:"toc_title"`
		LOFTitle string `yaml:"lof_title"`
		LOTTitle string `yaml:"lot_title"`
		// Entry label templates, expanded with {{.Number}} and {{.Title}}.
		FigureEntryTemplate string `yaml:"figure_entry_template"`
		TableEntryTemplate  string `yaml:"table_entry_template"`
	}

	DocumentConfig struct {
		Geometry    GeometryConfig    `yaml:"geometry"`
		Detector    DetectorConfig    `yaml:"detector"`
		FrontMatter FrontMatterConfig `yaml:"front_matter"`
	}

	Config struct {
		Version   int            `yaml:"version"`
		Document  DocumentConfig `yaml:"document"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

func unmarshalConfig(data []byte, cfg *Config) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of embedded defaults and performs validation.
func LoadConfiguration(path string) (*Config, error) {

	cfg, err := unmarshalConfig(configDefaults, &Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to process embedded configuration: %w", err)
	}
	if len(path) > 0 {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// overwrite cfg values with values from the file
		if cfg, err = unmarshalConfig(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to process configuration file: %w", err)
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("bad configuration: %w", err)
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported configuration version %d", cfg.Version)
	}
	g := cfg.Document.Geometry
	if g.PageWidth <= 0 || g.PageHeight <= 0 || g.BaseFontSize <= 0 || g.LineSpacing <= 0 {
		return fmt.Errorf("geometry defaults must be positive")
	}
	if g.MarginLeft+g.MarginRight >= g.PageWidth {
		return fmt.Errorf("horizontal margins exceed page width")
	}
	if g.MarginTop+g.MarginBottom >= g.PageHeight {
		return fmt.Errorf("vertical margins exceed page height")
	}
	for _, lvl := range []string{cfg.Logging.ConsoleLogger.Level, cfg.Logging.FileLogger.Level} {
		switch lvl {
		case "none", "normal", "debug":
		default:
			return fmt.Errorf("unknown logging level %q", lvl)
		}
	}
	for i, kw := range cfg.Document.Detector.Keywords {
		if len(strings.TrimSpace(kw)) == 0 {
			return fmt.Errorf("detector keyword %d is empty", i)
		}
	}
	fm := cfg.Document.FrontMatter
	if len(fm.TOCTitle) == 0 || len(fm.LOFTitle) == 0 || len(fm.LOTTitle) == 0 {
		return fmt.Errorf("front matter titles cannot be empty")
	}
	return nil
}

// Prepare returns default embedded configuration.
func Prepare() ([]byte, error) {
	return bytes.Clone(configDefaults), nil
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
