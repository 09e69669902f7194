package commands

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/54b3r/orangebot-go/internal/customer"
	"github.com/54b3r/orangebot-go/internal/logging"
	"github.com/54b3r/orangebot-go/internal/tracing"
)

// NewAskCmd constructs the `orangebot ask` command, which answers a single
// question and prints the reply to stdout.
func NewAskCmd() *cobra.Command {
	var phone string
	var password string
	var showIntent bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the assistant a single question",
		Long: `Ask OrangeBot one question and print the answer.

Pass --phone and --password to answer as a logged-in customer, so questions
about "my plan" or upgrades use that customer's profile.

Examples:
  orangebot ask "what are the GO bundles?"
  orangebot ask --phone 01226285272 --password 12345678 "can I upgrade my plan?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			flush, _ := tracing.Install()
			defer flush()

			a, err := newApp(ctx, log)
			defer a.Close()
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			var profile *customer.Profile
			if phone != "" {
				p, err := a.customers.Authenticate(phone, password)
				if err != nil {
					return fmt.Errorf("ask: %w", err)
				}
				profile = &p
			}

			question := strings.Join(args, " ")
			reply := a.conversation.Ask(ctx, "ask-"+uuid.NewString(), question, profile)

			out := cmd.OutOrStdout()
			if showIntent {
				fmt.Fprintf(out, "[%s]\n", reply.Intent)
			}
			fmt.Fprintln(out, reply.Text)
			if reply.Failed {
				return fmt.Errorf("ask: the assistant could not answer")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&phone, "phone", "", "Customer phone number to answer as")
	cmd.Flags().StringVar(&password, "password", "", "Customer password")
	cmd.Flags().BoolVar(&showIntent, "intent", false, "Print the classified intent before the answer")

	return cmd
}
