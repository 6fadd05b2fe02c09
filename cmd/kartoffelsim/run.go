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
	"os"

	"github.com/spf13/cobra"

	"github.com/kartoffels-sim/kartoffels/internal/sim"
	"github.com/kartoffels-sim/kartoffels/internal/worldsim"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one firmware image in a single-bot arena for a fixed number of ticks and print the result",
	Args:  cobra.NoArgs,
	RunE:  runSmokeTest,
}

var (
	runFirmwarePath string
	runTicks        uint64
	runSeed         uint64
	runRadius       int32
)

func init() {
	runCmd.Flags().StringVar(&runFirmwarePath, "firmware", "", "path to an ELF32 RISC-V firmware image (required)")
	runCmd.Flags().Uint64Var(&runTicks, "ticks", 1000, "number of ticks to run")
	runCmd.Flags().Uint64Var(&runSeed, "seed", 1, "deterministic RNG seed")
	runCmd.Flags().Int32Var(&runRadius, "radius", 8, "arena radius in tiles")
}

func runSmokeTest(cmd *cobra.Command, args []string) error {
	if runFirmwarePath == "" {
		return fmt.Errorf("--firmware is required")
	}

	fw, err := os.ReadFile(runFirmwarePath)
	if err != nil {
		return fmt.Errorf("reading firmware: %w", err)
	}

	theme := worldsim.ArenaTheme{Radius: runRadius}
	rngState := uint32(runSeed)
	m := theme.CreateMap(func() uint32 {
		rngState = rngState*1664525 + 1013904223
		return rngState
	})

	w, err := worldsim.NewWorld(worldsim.Config{
		Name:   "smoke",
		Policy: worldsim.Policy{MaxAliveBots: 1, MaxQueuedBots: 1},
		Clock:  worldsim.ManualClock(),
		Map:    m,
		Spawn:  sim.Pos{X: m.Width / 2, Y: m.Height / 2},
		Seed:   runSeed,
	})
	if err != nil {
		return err
	}

	go w.Run()
	defer w.Handle().Shutdown()

	result := w.Handle().Send(worldsim.Request{
		Kind:        worldsim.ReqCreateBot,
		BotName:     "smoke-bot",
		BotFirmware: fw,
	})
	if result.Err != nil {
		return fmt.Errorf("loading firmware: %w", result.Err)
	}

	if res := w.Handle().Tick(runTicks); res.Err != nil {
		return res.Err
	}

	snap := w.Snapshot()
	fmt.Println(snap.Render())
	fmt.Printf("tick=%d alive=%d dead=%d\n", snap.Tick, len(snap.Alive), len(snap.Dead))

	for _, d := range snap.Dead {
		fmt.Printf("  %s died: %s (age %d ticks, score %d)\n", d.Name, d.Reason, d.AgeTicks, d.Score)
	}

	return nil
}
