package main

import (
	"github.com/clinigraph/backend/internal/server"
	"github.com/clinigraph/backend/internal/util"
	"github.com/clinigraph/backend/pkg/logger"
	"github.com/clinigraph/backend/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
