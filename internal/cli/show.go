package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/fieldsync/internal/record"
)

// ShowResult is the JSON payload of show.
type ShowResult struct {
	Profile   string            `json:"profile"`
	Fields    map[string]string `json:"fields"`
	Contact   string            `json:"contact,omitempty"`
	Addresses []record.Fields   `json:"addresses,omitempty"`
	Phones    []record.Fields   `json:"phones,omitempty"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <profile-id>",
		Short: "Show a profile's fields and its contact's records",
		Long: `Print a profile's flat fields and, when the profile is linked, the
contact's addresses and phones.

Examples:
  fieldsync show 7
  fieldsync show 7 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, rootOpts, args[0])
		},
	}
	return cmd
}

func runShow(cmd *cobra.Command, opts *RootOptions, profileID string) error {
	s, err := openSession(cmd, opts, false)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := commandContext(cmd)
	result := ShowResult{Profile: profileID}

	result.Fields, err = s.store.Fields(ctx, profileID)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read profile", err)
	}

	contactID, linked, err := s.store.ContactForProfile(ctx, profileID)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to resolve contact", err)
	}
	if linked {
		result.Contact = contactID
		if result.Addresses, err = s.store.Records(ctx, record.TypeAddress, contactID); err != nil {
			return WrapExitError(ExitFailure, "failed to read addresses", err)
		}
		if result.Phones, err = s.store.Records(ctx, record.TypePhone, contactID); err != nil {
			return WrapExitError(ExitFailure, "failed to read phones", err)
		}
	}

	return opts.formatter(cmd).Result(formatShow(result), result)
}

func formatShow(r ShowResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Profile %s\n", r.Profile)
	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s = %s\n", k, r.Fields[k])
	}

	if r.Contact == "" {
		b.WriteString("Not linked to a contact\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Contact %s\n", r.Contact)
	for _, a := range r.Addresses {
		fmt.Fprintf(&b, "  Address %s%s\n", a[record.FieldID], roles(a))
		b.WriteString(formatRecord(a, "    "))
	}
	for _, p := range r.Phones {
		fmt.Fprintf(&b, "  Phone %s%s\n", p[record.FieldID], roles(p))
		b.WriteString(formatRecord(p, "    "))
	}
	return b.String()
}

// roles renders a record's flags as " [primary billing]".
func roles(f record.Fields) string {
	var out []string
	if f.Flag(record.FieldIsPrimary) {
		out = append(out, "primary")
	}
	if f.Flag(record.FieldIsBilling) {
		out = append(out, "billing")
	}
	if len(out) == 0 {
		return ""
	}
	return " [" + strings.Join(out, " ") + "]"
}
