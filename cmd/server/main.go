package main

import (
	"github.com/fablecourt/continuity/internal/server"
	"github.com/fablecourt/continuity/internal/util"
	"github.com/fablecourt/continuity/pkg/logger"
	"github.com/fablecourt/continuity/pkg/logger/console"

	_ "github.com/lib/pq"
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
