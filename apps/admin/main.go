package main

import (
	"os"

	"github.com/trezcool/njia/core"
	logsvc "github.com/trezcool/njia/services/logger"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(nil, conf)
	logger.Enable(!conf.Debug)

	cli := newCommandLine(conf, logger, os.Stdout)
	defer cli.close()

	if err := cli.execute(os.Args[1:]...); err != nil {
		cli.close()
		os.Exit(1)
	}
}
