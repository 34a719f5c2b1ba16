// Package cli 提供 datastorm 命令行：按表查询、计数、执行语句与清空表，
// 以及通过模型写入记录并发布生命周期事件。
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"datastorm/config"
	"datastorm/data/db/basic"
	sharederrors "datastorm/errors"
	"datastorm/logging"
	"datastorm/validation"
)

// Version 构建时注入
var Version = "0.1.0"

// 输出格式
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

// app 一次命令执行共享的状态
type app struct {
	cfgFile string
	output  string

	cfg    *config.Config
	logger logging.Logger
	db     *basic.DB
}

// NewRootCmd 创建根命令
func NewRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "datastorm",
		Short: "datastorm - table datasets and models from the command line",
		Long: `datastorm opens the configured database and runs dataset operations
against a single table: count, list, fetch the first row, truncate, or execute
a raw statement. Records written through insert/update/destroy go through a
model and publish lifecycle events when an events transport is configured.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			return a.open(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default: ./datastorm.yaml)")
	pf.String("driver", "", "database driver (sqlite|mysql|pgx)")
	pf.String("database", "", "database name or sqlite file")
	pf.String("dsn", "", "full data source name, overrides the other connection settings")
	pf.String("log-level", "", "log level (debug|info|warn|error)")
	pf.String("log-format", "", "log format (text|json|std)")
	pf.String("events", "", "lifecycle events transport (none|sync|memory|nats|redis)")
	pf.String("events-url", "", "NATS url or Redis address for lifecycle events")
	pf.StringVarP(&a.output, "output", "o", OutputTable, "output format (table|json|yaml)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{OutputTable, OutputJSON, OutputYAML}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("driver", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return config.Drivers, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(
		newCountCommand(a),
		newAllCommand(a),
		newFirstCommand(a),
		newExecCommand(a),
		newTruncateCommand(a),
		newInsertCommand(a),
		newUpdateCommand(a),
		newDestroyCommand(a),
	)
	return rootCmd
}

func (a *app) open(cmd *cobra.Command) error {
	if err := validation.ValidateEnum(a.output, "output", []string{OutputTable, OutputJSON, OutputYAML}); err != nil {
		return err
	}
	cfg, err := config.Load(a.cfgFile, cmd.Root().PersistentFlags())
	if err != nil {
		return err
	}
	logger, err := cfg.Logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	logging.SetLogger(logger)

	db, err := basic.New(cfg.Database)
	if err != nil {
		return sharederrors.WrapDatabaseError(cmd.Context(), err, "open database")
	}
	a.cfg, a.logger, a.db = cfg, logger, db
	if cfg.File != "" {
		logger.Debug(cmd.Context(), "config loaded", logging.String("file", cfg.File))
	}
	return nil
}

func (a *app) close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

// Execute 运行根命令；错误经 Normalize 后输出到 stderr
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		err = sharederrors.Normalize(err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
