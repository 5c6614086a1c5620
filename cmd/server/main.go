package main

import (
	"github.com/knothq/mailgraph/internal/server"
	"github.com/knothq/mailgraph/internal/util"
	"github.com/knothq/mailgraph/pkg/logger"
	"github.com/knothq/mailgraph/pkg/logger/console"
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
