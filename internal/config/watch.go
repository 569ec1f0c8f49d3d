package config

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// WatchProfiles reloads profiles.yaml on change and calls onUpdate with the latest config.
// It performs an initial load before entering the watch loop.
func WatchProfiles(ctx context.Context, path string, interval time.Duration, logger *zerolog.Logger, onUpdate func(*ProfilesConfig)) error {
	if path == "" {
		path = DefaultProfilesPath
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	cfg, err := LoadProfilesConfig(path)
	if err != nil {
		return err
	}
	if onUpdate != nil {
		onUpdate(cfg)
	}

	var lastMod time.Time
	if info, err := os.Stat(path); err == nil {
		lastMod = info.ModTime()
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				info, err := os.Stat(path)
				if err != nil {
					continue // file may not exist yet
				}
				if !info.ModTime().After(lastMod) {
					continue
				}
				cfg, err := LoadProfilesConfig(path)
				if err != nil {
					logger.Error().Err(err).Str("path", path).Msg("profiles reload rejected")
					continue
				}
				lastMod = info.ModTime()
				logger.Info().Str("path", path).Str("summary", cfg.String()).Msg("profiles reloaded")
				if onUpdate != nil {
					onUpdate(cfg)
				}
			}
		}
	}()

	return nil
}
