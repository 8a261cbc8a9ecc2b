package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type EditorOptions struct {
	InitialCapacity int `toml:"initial-capacity"`
	GapSlack        int `toml:"gap-slack"`
}

type HistoryOptions struct {
	Enabled      *bool `toml:"enabled"`
	Sync         *bool `toml:"sync"`
	PreviewBytes int   `toml:"preview-bytes"`
	ThresholdMB  int   `toml:"threshold-mb"`
}

type LogOptions struct {
	Debug bool   `toml:"debug"`
	File  string `toml:"file"`
}

type Config struct {
	Editor  EditorOptions  `toml:"editor"`
	History HistoryOptions `toml:"history"`
	Log     LogOptions     `toml:"log"`
}

// HistoryEnabled reports whether edits are recorded to a history log.
func (c Config) HistoryEnabled() bool {
	return c.History.Enabled == nil || *c.History.Enabled
}

// HistorySync reports whether history writes are fsynced.
func (c Config) HistorySync() bool {
	return c.History.Sync == nil || *c.History.Sync
}

func Default() Config {
	enabled, sync := true, true
	return Config{
		Editor: EditorOptions{
			InitialCapacity: 4096,
			GapSlack:        1024,
		},
		History: HistoryOptions{
			Enabled:      &enabled,
			Sync:         &sync,
			PreviewBytes: 50,
			ThresholdMB:  50,
		},
	}
}

func Load() (Config, error) {
	cfg := Default()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	var userCfg Config
	if _, err := toml.Decode(string(data), &userCfg); err != nil {
		return cfg, err
	}

	if userCfg.Editor.InitialCapacity > 0 {
		cfg.Editor.InitialCapacity = userCfg.Editor.InitialCapacity
	}
	if userCfg.Editor.GapSlack > 0 {
		cfg.Editor.GapSlack = userCfg.Editor.GapSlack
	}
	if userCfg.History.Enabled != nil {
		cfg.History.Enabled = userCfg.History.Enabled
	}
	if userCfg.History.Sync != nil {
		cfg.History.Sync = userCfg.History.Sync
	}
	if userCfg.History.PreviewBytes > 0 {
		cfg.History.PreviewBytes = userCfg.History.PreviewBytes
	}
	if userCfg.History.ThresholdMB > 0 {
		cfg.History.ThresholdMB = userCfg.History.ThresholdMB
	}
	if userCfg.Log.Debug {
		cfg.Log.Debug = userCfg.Log.Debug
	}
	if userCfg.Log.File != "" {
		cfg.Log.File = userCfg.Log.File
	}

	return cfg, nil
}

func ConfigDir() (string, error) {
	if v := os.Getenv("TEDIT_CONFIG_HOME"); v != "" {
		return filepath.Join(v), nil
	}
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "tedit"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "tedit"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}
