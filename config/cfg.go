package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	EditorConfig struct {
		ImageWidthDefault float64 `yaml:"image_width_default" validate:"gt=0,lte=1"`
		PreviewMath       bool    `yaml:"preview_math"`
	}

	RenderingConfig struct {
		HighlightStyle string `yaml:"highlight_style" validate:"required"`
		ThumbnailWidth int    `yaml:"thumbnail_width" validate:"min=16,max=4096"`
		AssetsDir      string `yaml:"assets_dir" sanitize:"path_clean" validate:"required"`
	}

	CompileConfig struct {
		Mode    string        `yaml:"mode" validate:"required,oneof=local remote"`
		Engine  string        `yaml:"engine" validate:"required_if=Mode local"`
		URL     string        `yaml:"url" validate:"required_if=Mode remote,omitempty,url"`
		Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
	}

	SharingConfig struct {
		URL         string `yaml:"url" validate:"omitempty,url"`
		FrontendURL string `yaml:"frontend_url" validate:"omitempty,url"`
	}

	StoreConfig struct {
		Path string `yaml:"path" sanitize:"path_clean,assure_dir_exists_for_file" validate:"required"`
	}

	Config struct {
		Version   int             `yaml:"version" validate:"eq=1"`
		Editor    EditorConfig    `yaml:"editor"`
		Rendering RenderingConfig `yaml:"rendering"`
		Compile   CompileConfig   `yaml:"compile"`
		Sharing   SharingConfig   `yaml:"sharing"`
		Store     StoreConfig     `yaml:"store"`
		Logging   LoggingConfig   `yaml:"logging"`
	}
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// only fields defined above are accepted, so yaml.Unmarshal can not be used here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads configuration file at the given path and lays its values over the expanded configuration
// template, which provides defaults. Empty path means defaults only.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare expands configuration template, the result is a configuration file with default values.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %w", err)
	}
	return data, nil
}
