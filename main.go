/*
Soak runner for the geometry store: drives a randomised workload through
the engine loop and checks every live slot at each frame boundary.
*/
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/geostore/engine"
	"github.com/spaghettifunk/geostore/engine/core"
	"github.com/spaghettifunk/geostore/testbed"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML configuration file")
	frames := flag.Int("frames", -1, "frames to run, overrides the configuration; 0 runs until interrupted")
	writeConfig := flag.Bool("write-config", false, "print the effective configuration and exit")
	mapOut := flag.String("map-out", "", "write the store's free-range map as JSON to this file after the run")
	flag.Parse()

	appConfig, err := engine.NewApplicationConfig(*configPath)
	if err != nil {
		core.LogFatal("%+v", err)
	}
	if *frames >= 0 {
		appConfig.Config.Soak.Frames = *frames
	}
	if *writeConfig {
		if err := appConfig.Config.Encode(os.Stdout); err != nil {
			core.LogFatal("%+v", err)
		}
		return
	}

	tb := testbed.NewTestGame(appConfig)

	e, err := engine.New(tb.Game)
	if err != nil {
		core.LogFatal("%+v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	if err := e.Initialize(ctx); err != nil {
		core.LogFatal("%+v", err)
	}

	runErr := e.Run()
	if *mapOut != "" {
		if err := writeDetailedMap(tb.Game, *mapOut); err != nil {
			core.LogError("%+v", err)
		}
	}
	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown: %+v", err)
	}
	if runErr != nil {
		core.LogFatal("%+v", runErr)
	}
}

func writeDetailedMap(g *engine.Game, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "could not create %s", path)
	}
	defer f.Close()
	return g.Renderer.Store().WriteDetailedMap(f)
}
