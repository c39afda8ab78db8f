package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	identityapp "github.com/mpp365/backend/internal/application/identity"
	subscriptionapp "github.com/mpp365/backend/internal/application/subscription"
	"github.com/mpp365/backend/internal/domain/shared"
	"github.com/mpp365/backend/internal/domain/subscription"
)

type services struct {
	tenants  *identityapp.TenantService
	expiry   *subscriptionapp.ExpiryService
	exporter *subscriptionapp.PaymentExportService
	abuse    *subscriptionapp.TrialAbuseService
	close    func() error
}

type rootOptions struct {
	verbose bool
}

// opener connects the services for one command invocation
type opener func(ctx context.Context, opts rootOptions) (*services, error)

func newRootCmd(open opener) *cobra.Command {
	var opts rootOptions

	root := &cobra.Command{
		Use:           "tenantctl",
		Short:         "MPP365 back-office operations",
		Long:          `Inspect tenants, run the expiry sweep and manage trial abuse from the command line`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log SQL and debug output")

	// with runs fn against freshly opened services and closes them after
	with := func(fn func(cmd *cobra.Command, args []string, svc *services) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			svc, err := open(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer func() { _ = svc.close() }()
			return fn(cmd, args, svc)
		}
	}

	root.AddCommand(
		newTenantsCmd(with),
		newSweepCmd(with),
		newTrialsCmd(with),
		newPaymentsCmd(with),
	)
	return root
}

type wrapper func(fn func(cmd *cobra.Command, args []string, svc *services) error) func(*cobra.Command, []string) error

func newTenantsCmd(with wrapper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenants",
		Short: "Tenant subscription commands",
	}

	var search string
	var pageSize int
	list := &cobra.Command{
		Use:   "list",
		Short: "List tenants with their evaluated subscription state",
		Args:  cobra.NoArgs,
		RunE: with(func(cmd *cobra.Command, _ []string, svc *services) error {
			filter := shared.DefaultFilter()
			filter.Search = search
			filter.PageSize = pageSize
			tenants, total, err := svc.tenants.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SLUG\tNAME\tSTATUS\tTYPE\tEXPIRES\tDAYS\tEQUIPMENT")
			for _, t := range tenants {
				expires := "-"
				if t.SubscriptionExpiration != nil {
					expires = t.SubscriptionExpiration.Format("2006-01-02")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%t\n",
					t.Slug, t.Name, t.SubscriptionStatus, t.SubscriptionType, expires, t.DaysRemaining, t.EquipmentIncluded)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d of %d tenants\n", len(tenants), total)
			return nil
		}),
	}
	list.Flags().StringVarP(&search, "search", "s", "", "Filter by name or slug")
	list.Flags().IntVar(&pageSize, "limit", 100, "Maximum tenants to show")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Count tenants per stored subscription status",
		Args:  cobra.NoArgs,
		RunE: with(func(cmd *cobra.Command, _ []string, svc *services) error {
			counts, err := svc.tenants.Stats(cmd.Context())
			if err != nil {
				return err
			}
			for _, st := range subscription.AllStatuses() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %d\n", st, counts[st])
			}
			return nil
		}),
	}

	simulate := &cobra.Command{
		Use:       "simulate <slug> <scenario>",
		Short:     "Rewrite a tenant's subscription window for a test scenario",
		Example:   "  tenantctl tenants simulate acme warn7\n  tenantctl tenants simulate acme reset",
		Long:      "Scenarios: " + strings.Join(identityapp.Scenarios(), ", "),
		Args:      cobra.ExactArgs(2),
		ValidArgs: identityapp.Scenarios(),
		RunE: with(func(cmd *cobra.Command, args []string, svc *services) error {
			t, err := svc.tenants.Simulate(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s until %s (%d days)\n",
				t.Slug, t.SubscriptionStatus, t.SubscriptionExpiration.Format("2006-01-02"), t.DaysRemaining)
			return nil
		}),
	}

	cancel := &cobra.Command{
		Use:   "cancel <slug>",
		Short: "Cancel a tenant's subscription",
		Args:  cobra.ExactArgs(1),
		RunE: with(func(cmd *cobra.Command, args []string, svc *services) error {
			t, err := svc.tenants.Cancel(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", t.Slug, t.SubscriptionStatus)
			return nil
		}),
	}

	deactivate := &cobra.Command{
		Use:   "deactivate <slug>",
		Short: "Hide a tenant from slug resolution",
		Args:  cobra.ExactArgs(1),
		RunE: with(func(cmd *cobra.Command, args []string, svc *services) error {
			if err := svc.tenants.Deactivate(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: deactivated\n", args[0])
			return nil
		}),
	}

	cmd.AddCommand(list, stats, simulate, cancel, deactivate)
	return cmd
}

func newSweepCmd(with wrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Mark every lapsed trial and active subscription as expired",
		Args:  cobra.NoArgs,
		RunE: with(func(cmd *cobra.Command, _ []string, svc *services) error {
			n, err := svc.expiry.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d tenants expired\n", n)
			return nil
		}),
	}
}

func newTrialsCmd(with wrapper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trials",
		Short: "Trial abuse commands",
	}

	var reason string
	blockIP := &cobra.Command{
		Use:   "block-ip <ip>",
		Short: "Ban an origin IP from starting new trials",
		Args:  cobra.ExactArgs(1),
		RunE: with(func(cmd *cobra.Command, args []string, svc *services) error {
			n, err := svc.abuse.BlockIP(cmd.Context(), args[0], reason)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d trial records blocked\n", args[0], n)
			return nil
		}),
	}
	blockIP.Flags().StringVarP(&reason, "reason", "r", "", "Reason stored on the blocked records")

	cmd.AddCommand(blockIP)
	return cmd
}

func newPaymentsCmd(with wrapper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payments",
		Short: "Payment report commands",
	}

	var status, output string
	export := &cobra.Command{
		Use:     "export",
		Short:   "Export payment reports to an XLSX workbook",
		Example: "  tenantctl payments export --status pending -o pending.xlsx",
		Args:    cobra.NoArgs,
		RunE: with(func(cmd *cobra.Command, _ []string, svc *services) error {
			st := subscription.ReportStatus(status)
			switch st {
			case subscription.ReportPending, subscription.ReportConfirmed, subscription.ReportRejected:
			default:
				return fmt.Errorf("unknown report status %q", status)
			}
			data, err := svc.exporter.ExportByStatus(cmd.Context(), st)
			if err != nil {
				return err
			}
			if output == "" {
				output = fmt.Sprintf("payment-reports-%s.xlsx", st)
			}
			if err := os.WriteFile(output, data, 0o600); err != nil {
				return fmt.Errorf("failed to write export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %s reports to %s\n", st, output)
			return nil
		}),
	}
	export.Flags().StringVar(&status, "status", string(subscription.ReportPending), "Report status: pending, confirmed or rejected")
	export.Flags().StringVarP(&output, "output", "o", "", "Output file (default payment-reports-<status>.xlsx)")

	cmd.AddCommand(export)
	return cmd
}
