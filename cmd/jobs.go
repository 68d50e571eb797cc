package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/savannahpay/ms-go-payment-gateway/app/service"
	"github.com/savannahpay/ms-go-payment-gateway/config"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Run payment lifecycle jobs",
}

var verifyPendingCmd = &cobra.Command{
	Use:   "verify-pending",
	Short: "Re-verify stale pending transactions against their providers",
	Run: func(_ *cobra.Command, _ []string) {
		runJob(
			"verify_pending",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.VerifyPendingInterval },
			func(ctx context.Context, s *service.PaymentService) error {
				return s.RunVerifyPendingBatch(ctx)
			},
		)
	},
}

var expirePendingCmd = &cobra.Command{
	Use:   "expire-pending",
	Short: "Fail transactions stuck pending past the configured timeout",
	Run: func(_ *cobra.Command, _ []string) {
		runJob(
			"expire_pending",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.ExpirePendingInterval },
			func(ctx context.Context, s *service.PaymentService) error {
				return s.RunExpirePendingBatch(ctx)
			},
		)
	},
}

func init() {
	jobsCmd.AddCommand(verifyPendingCmd)
	jobsCmd.AddCommand(expirePendingCmd)
	rootCmd.AddCommand(jobsCmd)
}

func runJob(
	name string,
	interval func(cfg *config.Config) time.Duration,
	batch func(ctx context.Context, s *service.PaymentService) error,
) {
	cfg, paymentService := mustCreatePaymentService()

	logger := logrus.WithField("job", name)
	ticker := time.NewTicker(interval(cfg))
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	logger.WithField("interval", interval(cfg).String()).Info("Job loop started")
	for {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		if err := batch(ctx, paymentService); err != nil {
			logger.WithError(err).Error("Job batch failed")
		}
		cancel()

		select {
		case <-quit:
			logger.Info("Job loop stopped")
			return
		case <-ticker.C:
		}
	}
}
