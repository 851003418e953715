package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"requestbot/internal/app"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	var (
		cfgPath  string
		check    bool
		sendTest bool
		showVer  bool
	)
	flag.StringVarP(&cfgPath, "config", "c", "./config.json", "path to config (json or yaml)")
	flag.BoolVar(&check, "check", false, "verify token, database and state, then exit")
	flag.BoolVar(&sendTest, "send-test", false, "with --check: also post a test message to the channel")
	flag.BoolVarP(&showVer, "version", "v", false, "print version and exit")
	flag.Parse()

	if showVer {
		fmt.Println("requestbot", version)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	openCtx, openCancel := context.WithTimeout(ctx, 30*time.Second)
	a, err := app.New(openCtx, cfgPath)
	openCancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	if check {
		if err := a.Check(ctx, os.Stdout, sendTest); err != nil {
			os.Exit(1)
		}
		return
	}

	if err := a.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}
