package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	bookingrepo "slotbook/internal/bookings/repository"
	creditrepo "slotbook/internal/credits/repository"
	creditservice "slotbook/internal/credits/service"
	"slotbook/internal/migrations"
	"slotbook/internal/notifications"
	reminderrepo "slotbook/internal/reminders/repository"
	"slotbook/internal/reminders/scheduler"
	"slotbook/internal/reminders/templates"
	tenantrepo "slotbook/internal/tenants/repository"
	"slotbook/pkg/auth"
	"slotbook/pkg/clock"
	"slotbook/pkg/config"
	"slotbook/pkg/kafka"
	"slotbook/pkg/model"
	"slotbook/pkg/validation"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

const appName = "slotbookctl"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Operate a slotbook deployment",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(migrateCmd(), scanCmd(), creditsCmd(), tokenCmd())
	return cmd
}

// connect loads configuration and opens the stores a command needs.
func connect(name string, postgres bool) *config.Config {
	cfg := config.Load(appName + "-" + name)
	cfg.SetMongo()
	if postgres && cfg.CreditsStore == config.CreditsStorePostgres {
		cfg.SetPostgres()
	}
	return cfg
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create collections, indexes and credit tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := connect("migrate", true)
			defer cfg.GracefulShutdown()

			if err := migrations.Run(cmd.Context(), cfg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func scanCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one reminder scan and print the outcome counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := connect("scan", true)
			defer cfg.GracefulShutdown()
			if dryRun {
				cfg.NotificationDriver = config.NotificationDriverLog
			}

			catalog, err := templates.Load(cfg.ReminderTemplateLocale)
			if err != nil {
				return fmt.Errorf("load templates: %w", err)
			}
			dispatcher, err := notifications.New(cfg)
			if err != nil {
				return fmt.Errorf("create dispatcher: %w", err)
			}
			defer dispatcher.Close()

			tenants := tenantrepo.NewMongoTenantRepository(cfg)
			credits := creditservice.NewCreditService(creditrepo.NewCreditStore(cfg), tenants, validation.New(cfg.Log), cfg)
			s := scheduler.New(
				bookingrepo.NewMongoBookingRepository(cfg),
				tenants,
				reminderrepo.NewMongoPolicyRepository(cfg),
				reminderrepo.NewMongoDispatchStore(cfg),
				credits,
				dispatcher,
				kafka.NopPublisher{},
				catalog,
				scheduler.NewMetrics(prometheus.NewRegistry()),
				clock.System,
				cfg,
			)

			result, err := s.Scan(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log messages instead of sending them (credits are still debited)")
	return cmd
}

func creditsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credits",
		Short: "Inspect and top up message credits",
	}

	var tenantID string
	balance := &cobra.Command{
		Use:   "balance",
		Short: "Print a tenant's credit balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := connect("credits", true)
			defer cfg.GracefulShutdown()

			svc := creditservice.NewCreditService(creditrepo.NewCreditStore(cfg), tenantrepo.NewMongoTenantRepository(cfg), validation.New(cfg.Log), cfg)
			b, err := svc.Balance(cmd.Context(), tenantID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), b)
		},
	}
	balance.Flags().StringVar(&tenantID, "tenant", "", "Tenant ID")
	_ = balance.MarkFlagRequired("tenant")

	var req model.TopUpRequest
	var channel string
	topUp := &cobra.Command{
		Use:   "topup",
		Short: "Add credits under a payment reference; repeating a reference is a no-op",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := connect("credits", true)
			defer cfg.GracefulShutdown()

			req.Channel = config.Channel(channel)
			svc := creditservice.NewCreditService(creditrepo.NewCreditStore(cfg), tenantrepo.NewMongoTenantRepository(cfg), validation.New(cfg.Log), cfg)
			result, err := svc.TopUp(cmd.Context(), tenantID, &req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	topUp.Flags().StringVar(&tenantID, "tenant", "", "Tenant ID")
	topUp.Flags().StringVar(&channel, "channel", string(config.SMS), "Channel: sms, whatsapp or email")
	topUp.Flags().Int64Var(&req.Amount, "amount", 0, "Number of credits to add")
	topUp.Flags().StringVar(&req.PaymentRef, "ref", "", "Payment reference used for idempotency")
	for _, flag := range []string{"tenant", "amount", "ref"} {
		_ = topUp.MarkFlagRequired(flag)
	}

	cmd.AddCommand(balance, topUp)
	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage API access tokens",
	}

	var subject, tenantID, role string
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Issue a signed access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if role != auth.RoleAdmin && role != auth.RoleOwner {
				return fmt.Errorf("role must be %s or %s, got %q", auth.RoleAdmin, auth.RoleOwner, role)
			}
			if role == auth.RoleOwner && tenantID == "" {
				return fmt.Errorf("owner tokens need --tenant")
			}

			cfg := config.Load(appName + "-token")
			manager := auth.NewManager(cfg.AuthJWTSecret, cfg.AuthTokenTTL)
			if !manager.Enabled() {
				return fmt.Errorf("%s is not configured", config.EnvAuthJWTSecret)
			}

			token, err := manager.Issue(subject, tenantID, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	issue.Flags().StringVar(&subject, "subject", "", "Token subject, e.g. an e-mail address")
	issue.Flags().StringVar(&tenantID, "tenant", "", "Tenant the token is scoped to")
	issue.Flags().StringVar(&role, "role", auth.RoleOwner, "Role: admin or owner")
	_ = issue.MarkFlagRequired("subject")

	cmd.AddCommand(issue)
	return cmd
}
