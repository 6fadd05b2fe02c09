// Copyright © 2024 Jeff Berkowitz (pdxjjb@gmail.com)
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.

package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kartoffels-sim/kartoffels/internal/config"
	"github.com/kartoffels-sim/kartoffels/internal/logging"
	"github.com/kartoffels-sim/kartoffels/internal/sim"
	"github.com/kartoffels-sim/kartoffels/internal/worldsim"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run every world declared in the config file until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logCfg := cfg.Logging
	if verbose {
		logCfg.Level = "debug"
	}
	setGlobalLogLevel(logCfg.Level)

	logWriter := logging.Writer(os.Stdout, logCfg.Format)
	log := logging.New(os.Stdout, logCfg)

	var registry prometheus.Registerer
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		registry = reg

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

		server := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()

		log.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics listening")
	}

	handles := make([]worldsim.Handle, 0, len(cfg.Worlds))

	for _, wc := range cfg.Worlds {
		w, err := buildWorld(wc, logWriter, registry)
		if err != nil {
			return fmt.Errorf("building world %q: %w", wc.Name, err)
		}

		go w.Run()
		handles = append(handles, w.Handle())

		log.Info().Str("world", wc.Name).Msg("started")
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Info().Msg("shutting down")
	for _, h := range handles {
		h.Shutdown()
	}

	return nil
}

// buildWorld turns one config.WorldConfig into a worldsim.World (not yet
// running), spawning its map from the configured theme and deterministic
// seed.
func buildWorld(wc config.WorldConfig, logWriter io.Writer, registry prometheus.Registerer) (*worldsim.World, error) {
	theme := themeFromConfig(wc)
	rngState := uint32(wc.Seed)
	m := theme.CreateMap(func() uint32 {
		rngState = rngState*1664525 + 1013904223 // deterministic LCG, seeds map generation only
		return rngState
	})

	spawn := sim.Pos{X: m.Width / 2, Y: m.Height / 2}

	cfg := worldsim.Config{
		Name:      wc.Name,
		Policy:    policyFromConfig(wc),
		Clock:     clockFromConfig(wc.Clock),
		Map:       m,
		Spawn:     spawn,
		Mode:      modeFromConfig(wc.Mode),
		Seed:      wc.Seed,
		LogOutput: logWriter,
		Registry:  registry,
	}

	return worldsim.NewWorld(cfg)
}

// setGlobalLogLevel applies level as zerolog's process-wide floor, so
// every logger built afterwards (the root one and each world's own)
// honours it without needing its own explicit .Level() call.
func setGlobalLogLevel(level string) {
	switch strings.ToLower(level) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func policyFromConfig(wc config.WorldConfig) worldsim.Policy {
	return worldsim.Policy{
		AutoRespawn:      wc.AutoRespawn,
		MaxAliveBots:     wc.MaxAliveBots,
		MaxQueuedBots:    wc.MaxQueuedBots,
		AllowBreakpoints: wc.AllowBreakpoints,
	}
}

func clockFromConfig(cc config.ClockConfig) worldsim.Clock {
	switch cc.Kind {
	case "fixed_hz":
		return worldsim.FixedHzClock(cc.Hz)
	case "unlimited":
		return worldsim.UnlimitedClock()
	default:
		return worldsim.ManualClock()
	}
}

func modeFromConfig(name string) worldsim.Mode {
	switch name {
	default:
		return worldsim.DeathmatchMode{}
	}
}

func themeFromConfig(wc config.WorldConfig) worldsim.Theme {
	switch wc.Theme {
	default:
		return worldsim.ArenaTheme{Radius: wc.Radius}
	}
}
