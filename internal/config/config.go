// Package config loads annotator settings from a TOML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"

	"github.com/clinicboard/annotator/internal/state"
	"github.com/clinicboard/annotator/internal/store"
)

// Environment variables read on top of the file.
const (
	EnvMasterKey = "ANNOTATOR_MASTER_KEY_HEX"
	EnvDataDir   = "ANNOTATOR_DATA_DIR"
	EnvServerURL = "ANNOTATOR_SERVER_URL"
)

type Config struct {
	DataDir      string  `toml:"data_dir"`
	Listen       string  `toml:"listen"`
	Advertise    bool    `toml:"advertise"`
	ServiceName  string  `toml:"service_name"`
	ServerURL    string  `toml:"server_url"`
	MasterKeyHex string  `toml:"master_key_hex"`
	DefaultColor string  `toml:"default_color"`
	DefaultWidth float64 `toml:"default_width"`
	Log          Log     `toml:"log"`
}

type Log struct {
	Level string `toml:"level"`
	JSON  bool   `toml:"json"`
}

func Default() Config {
	return Config{
		DataDir:      "annotations",
		Listen:       ":8888",
		ServiceName:  "annotator",
		DefaultColor: state.DefaultColor,
		DefaultWidth: state.DefaultWidth,
		Log:          Log{Level: "info"},
	}
}

// Load returns the defaults overlaid with the file at path (skipped when path
// is empty) and then the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		for _, k := range md.Undecoded() {
			log.WithField("key", k.String()).Warn("[CONFIG] unknown setting ignored")
		}
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvMasterKey); v != "" {
		c.MasterKeyHex = v
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv(EnvServerURL); v != "" {
		c.ServerURL = v
	}
}

func (c Config) Validate() error {
	var errs []error
	if _, ok := state.CanonicalColor(c.DefaultColor); !ok {
		errs = append(errs, fmt.Errorf("default_color %q is not #RRGGBB", c.DefaultColor))
	}
	if !state.ValidWidth(c.DefaultWidth) {
		errs = append(errs, fmt.Errorf("default_width must be positive and finite, got %v", c.DefaultWidth))
	}
	if c.MasterKeyHex != "" {
		if _, err := store.ParseMasterKey(c.MasterKeyHex); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Sealer returns the at-rest sealer for the configured master key, or nil
// when none is set.
func (c Config) Sealer() (*store.Sealer, error) {
	if c.MasterKeyHex == "" {
		return nil, nil
	}
	key, err := store.ParseMasterKey(c.MasterKeyHex)
	if err != nil {
		return nil, err
	}
	return store.NewSealer(key)
}

// FileStore opens the data directory, sealed when a master key is set.
func (c Config) FileStore() (*store.FileStore, error) {
	sealer, err := c.Sealer()
	if err != nil {
		return nil, err
	}
	if sealer == nil {
		return store.NewFileStore(c.DataDir), nil
	}
	return store.NewFileStore(c.DataDir, store.WithSealer(sealer)), nil
}

// Store picks the remote server when one is configured and the local data
// directory otherwise.
func (c Config) Store() (store.Store, error) {
	if c.ServerURL != "" {
		return store.NewRemoteStore(c.ServerURL), nil
	}
	return c.FileStore()
}

// EngineOptions applies the default pen style.
func (c Config) EngineOptions() []state.Option {
	return []state.Option{state.WithStyle(c.DefaultColor, c.DefaultWidth)}
}

// SetupLogging configures the standard logrus logger.
func (l Log) SetupLogging() error {
	level, err := log.ParseLevel(strings.TrimSpace(l.Level))
	if err != nil {
		return err
	}
	log.SetLevel(level)
	if l.JSON {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}
