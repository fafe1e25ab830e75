package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"leafbase/internal/engine"
	"leafbase/internal/pager"
	"leafbase/internal/repl"
)

func main() {
	os.Exit(run())
}

func run() int {
	var pageCache int
	var logLevel string
	replCode := 0

	root := &cobra.Command{
		Use:           "leafbase <dbfile>",
		Short:         "A single-file relational store with a SQL-like REPL",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("Must supply a database filename.")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(logLevel)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			tbl := engine.Open(args[0], pageCache, log)

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          repl.Prompt,
				HistoryFile:     "",
				InterruptPrompt: "^C",
				EOFPrompt:       ".exit",
			})
			if err != nil {
				return fmt.Errorf("init line editor: %w", err)
			}
			defer rl.Close()

			replCode = repl.Run(tbl, rl, os.Stdout, log)
			return nil
		},
	}

	root.Flags().IntVar(&pageCache, "page-cache", pager.TableMaxPages,
		"maximum number of pages the pager will hold in memory")
	root.Flags().StringVar(&logLevel, "log-level", "info",
		"zap log level: debug, info, warn, error")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}
	return replCode
}

func newLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.Set(level); err != nil {
		return nil, fmt.Errorf("--log-level: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.EncoderConfig.TimeKey = "ts"
	return cfg.Build()
}
