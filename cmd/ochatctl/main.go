// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Command ochatctl manages an oChat record store from the shell.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/olegiv/ochat-go/internal/cli"
	"github.com/olegiv/ochat-go/internal/config"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadStore()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "ochatctl: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCmd(cli.StoreOpener(cfg)).ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "ochatctl: %v\n", err)
		stop()
		os.Exit(1)
	}
}
