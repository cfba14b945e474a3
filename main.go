package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fjacquet/txsort/cmd/cancel"
	"fjacquet/txsort/cmd/categories"
	"fjacquet/txsort/cmd/common"
	"fjacquet/txsort/cmd/decide"
	"fjacquet/txsort/cmd/finalize"
	"fjacquet/txsort/cmd/next"
	"fjacquet/txsort/cmd/pause"
	"fjacquet/txsort/cmd/resume"
	"fjacquet/txsort/cmd/root"
	"fjacquet/txsort/cmd/skip"
	"fjacquet/txsort/cmd/status"
	"fjacquet/txsort/cmd/upload"
	"fjacquet/txsort/internal/apperror"
	"fjacquet/txsort/internal/config"
)

func init() {
	// 1. Load .env before anything reads the environment
	_, _ = config.LoadEnv()

	// 2. Initialize root command flags
	root.Init()

	// 3. Add all subcommands
	root.Cmd.AddCommand(upload.Cmd)
	root.Cmd.AddCommand(next.Cmd)
	root.Cmd.AddCommand(decide.Cmd)
	root.Cmd.AddCommand(skip.Cmd)
	root.Cmd.AddCommand(status.Cmd)
	root.Cmd.AddCommand(pause.Cmd)
	root.Cmd.AddCommand(resume.Cmd)
	root.Cmd.AddCommand(cancel.Cmd)
	root.Cmd.AddCommand(finalize.Cmd)
	root.Cmd.AddCommand(categories.Cmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.Cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !common.IsReported(err) {
			fmt.Fprintf(os.Stderr, "%s: %v\n", apperror.KindOf(err), err)
		}
		os.Exit(1)
	}
}
