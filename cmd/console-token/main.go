package main

import (
	"flag"
	"os"

	"github.com/stonegate/stonegate/internal/platform/config"
	"github.com/stonegate/stonegate/internal/tools/consoletoken"
)

func main() {
	cfg, err := consoletoken.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	if err := consoletoken.Run(cfg, os.Stdout, nil); err != nil {
		config.Exitf("mint token: %v", err)
	}
}
