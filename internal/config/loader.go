package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvMapping ties an environment variable to a koanf path.
type EnvMapping struct {
	EnvVar     string
	ConfigPath string
}

// Options control where Load reads from.
type Options struct {
	// DotEnvFiles are loaded into the process environment when they exist.
	// Variables already set are not overwritten.
	DotEnvFiles []string
	// Environ replaces os.Environ as the variable source.
	Environ func() []string
}

// Load builds a Config from defaults, .env and the environment.
func Load() (*Config, error) {
	return LoadWithOptions(Options{DotEnvFiles: []string{".env"}})
}

// LoadWithOptions builds a Config with explicit sources.
func LoadWithOptions(opts Options) (*Config, error) {
	for _, file := range opts.DotEnvFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	envToPath := make(map[string]string)
	for _, m := range EnvMappings() {
		envToPath[m.EnvVar] = m.ConfigPath
	}
	environ := opts.Environ
	if environ == nil {
		environ = os.Environ
	}
	if err := k.Load(env.Provider(".", env.Opt{
		EnvironFunc: environ,
		TransformFunc: func(key, value string) (string, any) {
			path, ok := envToPath[key]
			if !ok || value == "" {
				return "", nil
			}
			return path, value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.TextUnmarshallerHookFunc(),
			),
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints declared in validate tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// EnvMappings lists every recognized environment variable.
func EnvMappings() []EnvMapping {
	return extractMappings(reflect.TypeOf(Config{}), "")
}

func extractMappings(t reflect.Type, prefix string) []EnvMapping {
	var mappings []EnvMapping
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("koanf")
		if tag == "" || tag == "-" {
			continue
		}
		path := tag
		if prefix != "" {
			path = prefix + "." + tag
		}
		if envVar := field.Tag.Get("env"); envVar != "" {
			mappings = append(mappings, EnvMapping{EnvVar: envVar, ConfigPath: path})
		}
		if field.Type.Kind() == reflect.Struct && field.Type.PkgPath() != "time" {
			mappings = append(mappings, extractMappings(field.Type, path)...)
		}
	}
	return mappings
}

// Addr returns host:port for the HTTP listener.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "****"
	}
	c.OpenAI.APIKey = mask(c.OpenAI.APIKey)
	c.Qdrant.APIKey = mask(c.Qdrant.APIKey)
	c.GitHub.Token = mask(c.GitHub.Token)
	if i := strings.Index(c.Database.URL, "@"); i > 0 {
		if j := strings.Index(c.Database.URL, "://"); j >= 0 && j+3 < i {
			c.Database.URL = c.Database.URL[:j+3] + "****" + c.Database.URL[i:]
		}
	}
	return c
}
