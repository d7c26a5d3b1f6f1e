// Package config holds the shell's settings: defaults, the YAML rc file and
// the values taken from the command line.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"

	"github.com/cryptexctl/gosh/internal/variables"
)

//go:embed default/goshrc.yaml
var defaultConfigData []byte

// FileName is the rc file looked up in the home directory.
const FileName = ".goshrc.yaml"

type Config struct {
	HistorySize      int               `json:"history_size" validate:"gte=0"`
	HistoryFile      string            `json:"history_file"`
	PS1              string            `json:"ps1" validate:"required"`
	EnableColors     bool              `json:"enable_colors"`
	EnableCompletion bool              `json:"enable_completion"`
	Debug            bool              `json:"debug"`
	Env              map[string]string `json:"env" validate:"dive,keys,varname,endkeys"`

	// Set from the command line only.
	Command     string `json:"-"`
	ScriptFile  string `json:"-"`
	Interactive bool   `json:"-"`
}

// New returns the built-in defaults.
func New() *Config {
	var out Config
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}

// Load overlays the YAML file at path on the defaults. A missing file
// leaves the defaults in place.
func Load(fsys afero.Fs, path string) (*Config, error) {
	out := New()
	if path == "" {
		return out, nil
	}

	data, err := afero.ReadFile(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.UnmarshalStrict(data, out); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return out, nil
}

// Validate the configuration for basic semantic errors.
func (c *Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})
	if err := validate.RegisterValidation("varname", func(fl validator.FieldLevel) bool {
		return variables.ValidName(fl.Field().String())
	}); err != nil {
		return err
	}

	return validate.Struct(c)
}

// HistoryPath returns the history file with a leading "~/" replaced by home.
func (c *Config) HistoryPath(home string) string {
	switch {
	case c.HistoryFile == "":
		return ""
	case c.HistoryFile == "~":
		return home
	case strings.HasPrefix(c.HistoryFile, "~/"):
		if home == "" {
			return ""
		}
		return filepath.Join(home, c.HistoryFile[2:])
	default:
		return c.HistoryFile
	}
}

// DefaultPath returns the rc file location for the given home directory.
func DefaultPath(home string) string {
	if home == "" {
		return ""
	}
	return filepath.Join(home, FileName)
}
