/*
This is an example of application that will use the
engine package to test things out
*/
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/nou/engine"
	"github.com/spaghettifunk/nou/engine/core"
	"github.com/spaghettifunk/nou/testbed"
)

func main() {
	config, err := engine.LoadConfig(engine.ConfigPath())
	if err != nil {
		core.LogFatal("failed to load the configuration: %s", err)
	}

	tb := testbed.NewTestGame(config)

	e, err := engine.New(tb.Game)
	if err != nil {
		core.LogFatal("failed to create the engine: %s", err)
	}

	// cancelled on SIGTERM, SIGINT or SIGQUIT; the frame loop checks it between frames
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	if err := e.Initialize(); err != nil {
		_ = e.Shutdown()
		core.LogFatal("failed to initialize the engine: %+v", err)
	}

	runErr := e.Run(ctx)
	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown: %s", err)
	}
	if runErr != nil {
		core.LogFatal("frame loop stopped: %+v", runErr)
	}
}
