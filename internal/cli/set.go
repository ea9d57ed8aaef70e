package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// SetResult is the JSON payload of set.
type SetResult struct {
	Profile string `json:"profile"`
	Key     string `json:"key"`
	Value   string `json:"value"`
}

// NewSetCommand creates the set command.
func NewSetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <profile-id> <key> <value>",
		Short: "Write a profile field and sync it to the contact",
		Long: `Write one flat profile field with the sync engine attached.

billing_* and shipping_* keys are mirrored to the linked contact's billing or
primary address, and billing_phone to its primary phone. Use an empty value
to clear a field.

Examples:
  fieldsync set 7 billing_city Portland
  fieldsync set 7 billing_state OR
  fieldsync set 7 billing_phone "555-0100"`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSet(cmd, rootOpts, args[0], args[1], args[2])
		},
	}
	return cmd
}

func runSet(cmd *cobra.Command, opts *RootOptions, profileID, key, value string) error {
	s, err := openSession(cmd, opts, true)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.store.SetField(commandContext(cmd), profileID, key, value); err != nil {
		return WrapExitError(ExitFailure, "failed to set field", err)
	}

	result := SetResult{Profile: profileID, Key: key, Value: value}
	text := fmt.Sprintf("Set profile %s %s = %q\n", profileID, key, value)
	return opts.formatter(cmd).Result(text, result)
}
