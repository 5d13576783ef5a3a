package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wbrown/spanlog/datalog/annotations"
	"github.com/wbrown/spanlog/datalog/config"
	"github.com/wbrown/spanlog/datalog/session"
)

// rootOptions holds the persistent flags
type rootOptions struct {
	ConfigPath string
	Store      string
	StorePath  string
	Verbose    bool
	Trace      bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "spanlog",
		Short: "Datalog with regex information extraction",
		Long: `spanlog evaluates Datalog programs whose rules may call information
extraction functions, such as regular expressions that turn text into
spans, as if they were relations.

Programs are YAML documents: an ordered list of declarations, facts,
rules, queries and removals.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "engine configuration file (YAML)")
	cmd.PersistentFlags().StringVar(&opts.Store, "store", "", "store backend override (memory|badger|sqlite)")
	cmd.PersistentFlags().StringVar(&opts.StorePath, "store-path", "", "store path override")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().BoolVar(&opts.Trace, "trace", false, "print evaluation events to stderr")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newGraphCommand(opts))
	cmd.AddCommand(newFunctionsCommand(opts))
	return cmd
}

func (o *rootOptions) config() (*config.Config, error) {
	cfg := config.Default()
	if o.ConfigPath != "" {
		var err error
		if cfg, err = config.Load(o.ConfigPath); err != nil {
			return nil, err
		}
	}
	if o.Store != "" {
		cfg.Store.Backend = o.Store
	}
	if o.StorePath != "" {
		cfg.Store.Path = o.StorePath
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
		cfg.Log.Development = true
	}
	return cfg, cfg.Validate()
}

// openSession builds the logger and session described by the flags. The
// returned cleanup closes the session and flushes the logger.
func (o *rootOptions) openSession(cmd *cobra.Command) (*session.Session, func(), error) {
	cfg, err := o.config()
	if err != nil {
		return nil, nil, err
	}
	logger, err := cfg.Logger()
	if err != nil {
		return nil, nil, err
	}

	var handler annotations.Handler
	if o.Trace {
		handler = annotations.NewOutputFormatter(cmd.ErrOrStderr()).Handle
	}

	s, err := session.NewFromConfig(cfg, logger, handler)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	logger.Debug("session opened",
		zap.String("session", s.ID()),
		zap.String("store", cfg.Store.Backend),
		zap.String("path", cfg.Store.Path),
	)
	cleanup := func() {
		if err := s.Close(); err != nil {
			logger.Warn("failed to close session", zap.Error(err))
		}
		_ = logger.Sync()
	}
	return s, cleanup, nil
}

func validFormat(format string) error {
	switch format {
	case "table", "text":
		return nil
	}
	return fmt.Errorf("invalid format %q: must be table or text", format)
}
