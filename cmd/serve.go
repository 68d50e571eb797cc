package cmd

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/savannahpay/ms-go-payment-gateway/app/controller"
	"github.com/savannahpay/ms-go-payment-gateway/app/provider"
	"github.com/savannahpay/ms-go-payment-gateway/app/service"
	"github.com/savannahpay/ms-go-payment-gateway/app/store"
	"github.com/savannahpay/ms-go-payment-gateway/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  "Start the HTTP server exposing payment initiation, verification, and the provider callback endpoint.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, paymentService := mustCreatePaymentService()

	paymentController := controller.NewPaymentController(paymentService)
	e := setupHTTPServer(paymentController)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}

	logrus.Info("Server stopped")
}

func setupHTTPServer(paymentController *controller.PaymentController) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	e.GET("/health", paymentController.Health)

	payments := e.Group("/payments")
	payments.POST("", paymentController.InitiatePayment)
	payments.GET("/:id", paymentController.GetTransaction)
	payments.GET("/:id/verify", paymentController.VerifyPayment)

	// Provider callbacks carry no caller headers; they get their own group
	// outside any request-id requirements.
	callbacks := e.Group("/callbacks")
	callbacks.POST("/mpesa", paymentController.HandleMobileMoneyCallback)

	return e
}

func mustCreatePaymentService() (*config.Config, *service.PaymentService) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	mpesaProvider := provider.NewMpesaProvider(provider.MpesaConfig{
		ConsumerKey:       cfg.Mpesa.ConsumerKey,
		ConsumerSecret:    cfg.Mpesa.ConsumerSecret,
		ShortCode:         cfg.Mpesa.ShortCode,
		PassKey:           cfg.Mpesa.PassKey,
		CallbackURL:       cfg.Mpesa.CallbackURL,
		Environment:       cfg.Mpesa.Environment,
		TokenSafetyMargin: cfg.Payments.TokenSafetyMargin,
		HTTPTimeout:       cfg.Mpesa.HTTPTimeout,
	})
	paypalProvider := provider.NewPayPalProvider(provider.PayPalConfig{
		ClientID:          cfg.PayPal.ClientID,
		ClientSecret:      cfg.PayPal.ClientSecret,
		Environment:       cfg.PayPal.Environment,
		ReturnURL:         cfg.PayPal.ReturnURL,
		CancelURL:         cfg.PayPal.CancelURL,
		TokenSafetyMargin: cfg.Payments.TokenSafetyMargin,
		HTTPTimeout:       cfg.PayPal.HTTPTimeout,
	})
	coinbaseProvider := provider.NewCoinbaseProvider(provider.CoinbaseConfig{
		APIKey:      cfg.Coinbase.APIKey,
		HTTPTimeout: cfg.Coinbase.HTTPTimeout,
	})

	paymentService := service.NewPaymentService(store.NewMemoryStore(), provider.NewRegistry(), cfg.Payments)

	paymentService.Register("mobile_money", mpesaProvider)
	paymentService.Register(mpesaProvider.Name(), mpesaProvider)
	paymentService.Register("hosted_checkout", paypalProvider)
	paymentService.Register(paypalProvider.Name(), paypalProvider)
	paymentService.Register("crypto", coinbaseProvider)
	paymentService.Register(coinbaseProvider.Name(), coinbaseProvider)

	return cfg, paymentService
}

func configureLogging(cfg *config.Config) error {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.JSONFormatter{})
	return nil
}
