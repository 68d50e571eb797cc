package provider

import (
	"errors"
	"net"
	"testing"
)

func errorsIsCredential(err error) bool {
	return errors.Is(err, ErrCredentialAcquisition)
}

func isNetTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func TestRegistryRegisterAndGet(t *testing.T) {
	reg := NewRegistry()

	if _, err := reg.Get("mobile_money"); !errors.Is(err, ErrProviderNotSupported) {
		t.Fatalf("expected ErrProviderNotSupported, got %v", err)
	}

	first := NewCoinbaseProvider(CoinbaseConfig{APIKey: "k1"})
	reg.Register("crypto", first)

	got, err := reg.Get("crypto")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != Provider(first) {
		t.Fatal("expected registered provider")
	}

	// Keys are case-insensitive and trimmed.
	if _, err := reg.Get("  CRYPTO "); err != nil {
		t.Fatalf("expected case-insensitive lookup, got %v", err)
	}

	// Re-registering replaces the adapter (sandbox/production cutover).
	second := NewCoinbaseProvider(CoinbaseConfig{APIKey: "k2"})
	reg.Register("crypto", second)
	got, err = reg.Get("crypto")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != Provider(second) {
		t.Fatal("expected replacement provider")
	}
}
