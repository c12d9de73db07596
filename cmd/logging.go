// Package cmd implements the command line actions.
package cmd

import (
	"github.com/urfave/cli"

	"github.com/df07/go-light-transport/pkg/log"
)

var logger = log.New("lt")

func setupLogging(ctx *cli.Context) {
	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}
}
