// Package cli wires command line flags to the shell.
package cli

import (
	"fmt"
	"io"
	"log"
	"os"
	"runtime"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/cryptexctl/gosh/internal/config"
	"github.com/cryptexctl/gosh/internal/shell"
)

// BuildInfo is stamped into the binary at link time.
type BuildInfo struct {
	Version   string
	BuildTime string
	GitCommit string
}

type rootOptions struct {
	command     string
	interactive bool
	configPath  string
	historyFile string
	noColor     bool
	debug       bool
}

// Execute runs gosh with the process arguments and returns its exit status.
func Execute(info BuildInfo) int {
	rootCmd, status := newRootCmd(info, afero.NewOsFs(), os.Exit)
	if err := rootCmd.Execute(); err != nil {
		return 2
	}
	return *status
}

func newRootCmd(info BuildInfo, fsys afero.Fs, exit func(int)) (*cobra.Command, *int) {
	var (
		opts   rootOptions
		status int
	)

	rootCmd := &cobra.Command{
		Use:     "gosh [script [args...]]",
		Short:   "gosh - Go Shell",
		Long:    `An interactive command shell with pipes and redirections.`,
		Version: info.Version,
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, err := loadConfig(fsys, cmd, &opts)
			if err != nil {
				return err
			}
			logger := log.New(io.Discard, "", 0)
			if cfg.Debug {
				logger = log.New(cmd.ErrOrStderr(), "[DEBUG] ", log.Lmicroseconds)
			}

			if len(args) > 0 {
				cfg.ScriptFile = args[0]
				// There are no positional parameters to bind them to.
				if len(args) > 1 {
					logger.Printf("ignoring script arguments %q", args[1:])
				}
			}

			sh, err := shell.New(shell.Options{
				Config:  cfg,
				Version: info.Version,
				Fs:      fsys,
				Stdin:   stdinFile(cmd),
				Stdout:  cmd.OutOrStdout(),
				Stderr:  cmd.ErrOrStderr(),
				Logger:  logger,
				Exit:    exit,
			})
			if err != nil {
				return err
			}

			status = sh.Run()
			return nil
		},
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("gosh {{.Version}} (built %s, commit %s)\nGo version: %s %s/%s\n",
		info.BuildTime, info.GitCommit, runtime.Version(), runtime.GOOS, runtime.GOARCH))

	flags := rootCmd.Flags()
	// Everything after the script name belongs to the script.
	flags.SetInterspersed(false)
	flags.StringVarP(&opts.command, "command", "c", "", "execute `cmd` and exit")
	flags.BoolVarP(&opts.interactive, "interactive", "i", false, "force interactive mode")
	flags.StringVar(&opts.configPath, "config", "", "config file (default ~/"+config.FileName+")")
	flags.StringVar(&opts.historyFile, "history-file", "", "history file, empty to keep history in memory")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable coloured prompt and errors")
	flags.BoolVar(&opts.debug, "debug", false, "log debug tracing to stderr")

	return rootCmd, &status
}

// loadConfig reads the rc file and applies the flags on top of it.
func loadConfig(fsys afero.Fs, cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	path := opts.configPath
	if path == "" {
		home, _ := os.UserHomeDir()
		path = config.DefaultPath(home)
	}

	cfg, err := config.Load(fsys, path)
	if err != nil {
		return nil, err
	}

	cfg.Command = opts.command
	cfg.Interactive = opts.interactive
	if cmd.Flags().Changed("history-file") {
		cfg.HistoryFile = opts.historyFile
	}
	if opts.noColor {
		cfg.EnableColors = false
	}
	if opts.debug {
		cfg.Debug = true
	}
	return cfg, nil
}

func stdinFile(cmd *cobra.Command) *os.File {
	if f, ok := cmd.InOrStdin().(*os.File); ok {
		return f
	}
	return nil
}
