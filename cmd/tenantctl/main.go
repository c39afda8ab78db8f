// Command tenantctl runs back-office subscription operations against the
// configured database without going through the HTTP surface.
package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	identityapp "github.com/mpp365/backend/internal/application/identity"
	subscriptionapp "github.com/mpp365/backend/internal/application/subscription"
	"github.com/mpp365/backend/internal/domain/subscription"
	"github.com/mpp365/backend/internal/infrastructure/config"
	"github.com/mpp365/backend/internal/infrastructure/logger"
	"github.com/mpp365/backend/internal/infrastructure/persistence"
)

func main() {
	if err := newRootCmd(openFromConfig).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openFromConfig wires the services from config.toml and MPP_* variables
func openFromConfig(_ context.Context, opts rootOptions) (*services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	level := cfg.Log.Level
	if opts.verbose {
		level = "debug"
	}
	log, err := logger.New(&logger.Config{Level: level, Format: "console", Output: "stderr"})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := persistence.NewDatabase(&cfg.Database,
		logger.NewGormLogger(log, logger.MapGormLogLevel(level)))
	if err != nil {
		return nil, err
	}
	clock, err := subscription.NewClock(cfg.Subscription.Timezone)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("invalid subscription timezone: %w", err)
	}

	svc := newServices(db, clock, cfg.Billing.Currency, log)
	svc.close = func() error {
		_ = log.Sync()
		return db.Close()
	}
	return svc, nil
}

// newServices builds the operations the commands call
func newServices(db *persistence.Database, clock subscription.Clock, currency string, log *zap.Logger) *services {
	tenants := persistence.NewGormTenantRepository(db.DB)
	reports := persistence.NewGormPaymentReportRepository(db.DB)
	abuse := persistence.NewGormTrialAbuseRepository(db.DB)

	return &services{
		tenants:  identityapp.NewTenantService(tenants, clock, log),
		expiry:   subscriptionapp.NewExpiryService(tenants, clock, log),
		exporter: subscriptionapp.NewPaymentExportService(reports, tenants, currency, log),
		abuse:    subscriptionapp.NewTrialAbuseService(abuse, log),
		close:    func() error { return nil },
	}
}
