package main

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lmburns/hoard/internal/version"
	"github.com/lmburns/hoard/pkg/config"
	"github.com/lmburns/hoard/pkg/logging"
	"github.com/lmburns/hoard/pkg/ops"
	"github.com/lmburns/hoard/pkg/paths"
)

var (
	verbosity  int
	force      bool
	configPath string

	rootCmd = &cobra.Command{
		Use:   "hoard",
		Short: "An environment-aware backup manager",
		Long: `hoard backs up files whose locations differ between machines.
Each backed-up item maps environment conditions to paths; hoard
evaluates the conditions on the current machine, picks the most
specific match, and copies files to or from its storage.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command. Errors are printed here since cobra
// is silenced.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	rootCmd.PersistentFlags().BoolVar(&force, "force", false, "Proceed even when pile paths diverged from the last operation")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file (default is $XDG_CONFIG_HOME/hoard/config.toml)")

	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)

	convertCmd.Flags().StringVar(&convertFormat, "format", "toml", "Output format (toml, yaml, or json)")
}

// loadRunner builds the paths, loads the configuration, and wires an
// operation runner. Used by every command that operates on hoards.
func loadRunner() (*ops.Runner, error) {
	p, err := paths.New()
	if err != nil {
		return nil, err
	}
	file := configPath
	if file == "" {
		file = p.ConfigFile()
	}
	cfg, err := config.Load(file)
	if err != nil {
		return nil, err
	}
	return &ops.Runner{Config: cfg, Paths: p, Force: force}, nil
}

var backupCmd = &cobra.Command{
	Use:   "backup [hoards...]",
	Short: "Back up hoards into storage",
	Long: `Backup resolves every pile of the named hoards (all hoards when
none are named) to its path on this machine and copies the matching
files into hoard's storage.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := loadRunner()
		if err != nil {
			return err
		}
		return r.Backup(cmd.Context(), args)
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore [hoards...]",
	Short: "Restore hoards from storage",
	Long: `Restore copies the stored files of the named hoards (all hoards
when none are named) back to the paths they resolve to on this
machine.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := loadRunner()
		if err != nil {
			return err
		}
		return r.Restore(cmd.Context(), args)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured hoards and their resolved paths",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := loadRunner()
		if err != nil {
			return err
		}

		names := make([]string, 0, len(r.Config.Hoards))
		for name := range r.Config.Hoards {
			names = append(names, name)
		}
		sort.Strings(names)

		out := cmd.OutOrStdout()
		for _, name := range names {
			fmt.Fprintln(out, name)
			piles := r.Config.Hoards[name].Piles()
			pileNames := make([]string, 0, len(piles))
			for pileName := range piles {
				pileNames = append(pileNames, pileName)
			}
			sort.Strings(pileNames)
			for _, pileName := range pileNames {
				pile := piles[pileName]
				label := pileName
				if label == "" {
					label = "(anonymous)"
				}
				path := pile.Path
				if !pile.HasPath() {
					path = "(no match on this machine)"
				}
				fmt.Fprintf(out, "  %s -> %s\n", label, path)
			}
		}
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that the configuration loads and resolves cleanly",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := loadRunner()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "configuration is valid: %d environments, %d hoards\n",
			len(r.Config.Environments), len(r.Config.Hoards))
		return nil
	},
}

var convertFormat string

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Re-serialize the configuration in another format",
	Long: `Convert parses the configuration file and prints it on stdout in
the requested format. Conversion does not resolve environments, so it
works on any machine.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := config.ParseFormat(convertFormat)
		if err != nil {
			return err
		}
		file := configPath
		if file == "" {
			p, err := paths.New()
			if err != nil {
				return err
			}
			file = p.ConfigFile()
		}
		return config.Convert(file, format, cmd.OutOrStdout())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hoard version %s\n", version.Version)
		fmt.Printf("  commit: %s\n", version.Commit)
		fmt.Printf("  built:  %s\n", version.Date)
	},
}

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `To load completions:

Bash:
  $ source <(hoard completion bash)

Zsh:
  $ hoard completion zsh > "${fpath[1]}/_hoard"

Fish:
  $ hoard completion fish | source

PowerShell:
  PS> hoard completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	Run: func(cmd *cobra.Command, args []string) {
		switch args[0] {
		case "bash":
			if err := cmd.Root().GenBashCompletion(cmd.OutOrStdout()); err != nil {
				log.Error().Err(err).Msg("Failed to generate bash completion")
			}
		case "zsh":
			if err := cmd.Root().GenZshCompletion(cmd.OutOrStdout()); err != nil {
				log.Error().Err(err).Msg("Failed to generate zsh completion")
			}
		case "fish":
			if err := cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true); err != nil {
				log.Error().Err(err).Msg("Failed to generate fish completion")
			}
		case "powershell":
			if err := cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout()); err != nil {
				log.Error().Err(err).Msg("Failed to generate powershell completion")
			}
		}
	},
}
