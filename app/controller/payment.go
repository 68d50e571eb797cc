package controller

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/savannahpay/ms-go-payment-gateway/app/factory"
	"github.com/savannahpay/ms-go-payment-gateway/app/mapper"
	"github.com/savannahpay/ms-go-payment-gateway/app/provider"
	"github.com/savannahpay/ms-go-payment-gateway/app/service"
	"github.com/savannahpay/ms-go-payment-gateway/app/types"
)

type PaymentController struct {
	paymentService *service.PaymentService
	logger         logrus.FieldLogger
}

func NewPaymentController(paymentService *service.PaymentService) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
		logger:         factory.NewModuleLogger("payments-controller"),
	}
}

func (c *PaymentController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *PaymentController) InitiatePayment(ctx echo.Context) error {
	req, err := types.NewInitiatePaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, tx := c.paymentService.Initiate(ctx.Request().Context(), &provider.Request{
		Amount:      req.Amount,
		Currency:    req.Currency,
		CustomerID:  req.CustomerID,
		Method:      req.Method,
		Description: req.Description,
		Metadata:    req.Metadata,
	})

	response := mapper.ResultToResponse(result, "")
	if tx != nil {
		response = mapper.TransactionToResponse(tx)
	}

	// Failed results are still HTTP 200: the caller always receives a value
	// it can persist and display, never a fault to special-case.
	return ctx.JSON(http.StatusOK, response)
}

func (c *PaymentController) VerifyPayment(ctx echo.Context) error {
	req, err := types.NewVerifyPaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result := c.paymentService.Verify(ctx.Request().Context(), req.ProviderTransactionID, req.ProviderName)
	return ctx.JSON(http.StatusOK, mapper.ResultToResponse(result, ""))
}

func (c *PaymentController) GetTransaction(ctx echo.Context) error {
	id := ctx.Param("id")
	tx, err := c.paymentService.GetTransaction(ctx.Request().Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrTransactionNotFound) {
			return c.writeError(ctx, http.StatusNotFound, "transaction not found")
		}
		c.logger.WithError(err).Error("Get transaction failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}
	return ctx.JSON(http.StatusOK, mapper.TransactionToResponse(tx))
}

// HandleMobileMoneyCallback receives the provider's asynchronous completion
// notification. The provider-mandated acknowledgment is returned with HTTP
// 200 no matter what downstream processing does; a slow or failing write must
// never make the provider believe the callback was undelivered.
func (c *PaymentController) HandleMobileMoneyCallback(ctx echo.Context) error {
	payload, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to read callback body")
		return ctx.JSON(http.StatusOK, &types.MobileMoneyCallbackAck{ResultCode: 0, ResultDesc: "Accepted"})
	}

	logger := factory.LoggerWithContext(c.logger, ctx)
	if _, err := c.paymentService.HandleMobileMoneyCallback(ctx.Request().Context(), payload); err != nil {
		switch {
		case errors.Is(err, service.ErrCallbackRejected), errors.Is(err, service.ErrProviderUnsupported):
			logger.WithError(err).Warn("Callback rejected")
		case errors.Is(err, service.ErrTransactionNotFound):
			logger.WithError(err).Warn("Callback for unknown transaction")
		default:
			logger.WithError(err).Error("Callback processing failed")
		}
	}

	return ctx.JSON(http.StatusOK, &types.MobileMoneyCallbackAck{ResultCode: 0, ResultDesc: "Accepted"})
}

func (c *PaymentController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
