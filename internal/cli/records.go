package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/fieldsync/internal/record"
	"github.com/roach88/fieldsync/internal/store"
)

// NewAddressCommand creates the address command.
func NewAddressCommand(rootOpts *RootOptions) *cobra.Command {
	return newUpsertCommand(rootOpts, record.TypeAddress, `Create or edit a contact address with the sync engine attached.

Pass id=<n> to edit an existing address. Flags are is_primary and is_billing;
country_id accepts an id or ISO code and state_province_id an id or name.

Examples:
  fieldsync address 1 is_billing=1 city=Portland country_id=US
  fieldsync address 1 id=3 state_province_id=Oregon`)
}

// NewPhoneCommand creates the phone command.
func NewPhoneCommand(rootOpts *RootOptions) *cobra.Command {
	return newUpsertCommand(rootOpts, record.TypePhone, `Create or edit a contact phone with the sync engine attached.

Pass id=<n> to edit an existing phone. A primary phone is mirrored to the
linked profile's billing_phone.

Examples:
  fieldsync phone 1 phone=555-0100 is_primary=1
  fieldsync phone 1 id=2 phone=555-0199`)
}

func newUpsertCommand(rootOpts *RootOptions, t record.Type, long string) *cobra.Command {
	use := strings.ToLower(string(t))
	return &cobra.Command{
		Use:           use + " <contact-id> key=value...",
		Short:         fmt.Sprintf("Create or edit a contact %s", use),
		Long:          long,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpsert(cmd, rootOpts, t, args[0], args[1:])
		},
	}
}

func runUpsert(cmd *cobra.Command, opts *RootOptions, t record.Type, contactID string, pairs []string) error {
	req, err := parsePairs(pairs)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid arguments", err)
	}
	req[record.FieldContactID] = contactID

	s, err := openSession(cmd, opts, true)
	if err != nil {
		return err
	}
	defer s.Close()

	saved, err := s.store.Upsert(commandContext(cmd), t, req)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to save %s", t), err)
		}
		return WrapExitError(ExitFailure, fmt.Sprintf("failed to save %s", t), err)
	}

	text := fmt.Sprintf("Saved %s %s\n%s", t, saved[record.FieldID], formatRecord(saved, "  "))
	return opts.formatter(cmd).Result(text, saved)
}

// DeleteResult is the JSON payload of delete.
type DeleteResult struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <address|phone> <id>",
		Short: "Delete a contact address or phone",
		Long: `Delete a contact address or phone with the sync engine attached.

Deleting the primary or billing address clears the profile fields of the
roles it held. Deleting the primary phone clears billing_phone.

Examples:
  fieldsync delete address 3
  fieldsync delete phone 2`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd, rootOpts, args[0], args[1])
		},
	}
	return cmd
}

func runDelete(cmd *cobra.Command, opts *RootOptions, typeArg, id string) error {
	t, err := parseRecordType(typeArg)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid arguments", err)
	}

	s, err := openSession(cmd, opts, true)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.store.Delete(commandContext(cmd), t, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return WrapExitError(ExitCommandError, fmt.Sprintf("%s %s does not exist", t, id), err)
		}
		return WrapExitError(ExitFailure, fmt.Sprintf("failed to delete %s", t), err)
	}

	text := fmt.Sprintf("Deleted %s %s\n", t, id)
	return opts.formatter(cmd).Result(text, DeleteResult{Type: string(t), ID: id})
}

// parsePairs turns key=value arguments into a request. Later keys win.
func parsePairs(pairs []string) (record.Fields, error) {
	req := make(record.Fields, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", p)
		}
		req[key] = value
	}
	return req, nil
}

// parseRecordType accepts address or phone in any case.
func parseRecordType(s string) (record.Type, error) {
	for _, t := range []record.Type{record.TypeAddress, record.TypePhone} {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown record type %q: want address or phone", s)
}

// formatRecord renders non-empty fields one per line in sorted key order.
func formatRecord(f record.Fields, indent string) string {
	var b strings.Builder
	for _, k := range f.Keys() {
		if k == record.FieldID || f[k] == "" {
			continue
		}
		fmt.Fprintf(&b, "%s%s = %s\n", indent, k, f[k])
	}
	return b.String()
}
