package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/fieldsync/internal/refdata"
	"github.com/roach88/fieldsync/internal/store"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	RefData string // directory of .cue reference files; empty uses the embedded set
}

// InitResult is the JSON payload of init.
type InitResult struct {
	Database  string `json:"database"`
	Countries int    `json:"countries"`
	States    int    `json:"states"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database and load reference data",
		Long: `Create or migrate the database and load country and state reference data.

Running init again updates existing reference rows in place.

Examples:
  fieldsync init --db ./fieldsync.db
  fieldsync init --refdata ./refdata`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.RefData, "refdata", "", "directory of CUE reference data (default: embedded)")

	return cmd
}

func runInit(cmd *cobra.Command, opts *InitOptions) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}

	var ds *refdata.Dataset
	if opts.RefData != "" {
		ds, err = refdata.Load(opts.RefData)
	} else {
		ds, err = refdata.Default()
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load reference data", err)
	}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if err := st.SeedReference(commandContext(cmd), ds); err != nil {
		return WrapExitError(ExitFailure, "failed to seed reference data", err)
	}

	result := InitResult{
		Database:  cfg.Database.Path,
		Countries: len(ds.Countries),
		States:    ds.StateCount(),
	}
	text := fmt.Sprintf("Initialized %s: %d countries, %d states\n",
		result.Database, result.Countries, result.States)
	return opts.formatter(cmd).Result(text, result)
}
