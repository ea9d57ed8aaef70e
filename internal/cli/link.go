package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/fieldsync/internal/store"
)

// LinkOptions holds flags for the link command.
type LinkOptions struct {
	*RootOptions
	Contact string // existing contact id; empty creates a contact
}

// LinkResult is the JSON payload of link.
type LinkResult struct {
	Profile string `json:"profile"`
	Contact string `json:"contact"`
	Created bool   `json:"created"`
}

// NewLinkCommand creates the link command.
func NewLinkCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LinkOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "link <profile-id>",
		Short: "Link a profile to a contact",
		Long: `Link a profile to an existing contact, or to a new one when --contact
is not given. Relinking a profile replaces its previous contact.

Examples:
  fieldsync link 7
  fieldsync link 7 --contact 100`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLink(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Contact, "contact", "", "existing contact id")

	return cmd
}

func runLink(cmd *cobra.Command, opts *LinkOptions, profileID string) error {
	s, err := openSession(cmd, opts.RootOptions, false)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := commandContext(cmd)
	result := LinkResult{Profile: profileID, Contact: opts.Contact}

	if result.Contact == "" {
		id, err := s.store.CreateContact(ctx, "Profile "+profileID)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to create contact", err)
		}
		result.Contact = id
		result.Created = true
	}

	if err := s.store.Link(ctx, profileID, result.Contact); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return WrapExitError(ExitCommandError, "contact "+result.Contact+" does not exist", err)
		}
		return WrapExitError(ExitFailure, "failed to link profile", err)
	}
	s.logger.Debug("profile linked", "profile_id", profileID, "contact_id", result.Contact)

	text := fmt.Sprintf("Linked profile %s to contact %s\n", profileID, result.Contact)
	if result.Created {
		text = fmt.Sprintf("Linked profile %s to new contact %s\n", profileID, result.Contact)
	}
	return opts.formatter(cmd).Result(text, result)
}
