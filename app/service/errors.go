package service

import "errors"

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrProviderUnsupported = errors.New("provider is not supported")
	ErrCallbackRejected    = errors.New("callback rejected")
)
