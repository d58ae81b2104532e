// Package main starts the payroll projection process lifecycle.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	payrollcmd "github.com/louisbranch/payrollwatch/internal/cmd/payrollwatch"
	"github.com/louisbranch/payrollwatch/internal/platform/config"
)

func main() {
	cfg, err := payrollcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix("[PAYROLLWATCH] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := payrollcmd.Run(ctx, cfg); err != nil {
		config.Exitf("failed to serve: %v", err)
	}
}
