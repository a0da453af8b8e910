//go:build !blpapi

package blp

import (
	"errors"
	"testing"
)

func TestDialWithoutSDK(t *testing.T) {
	_, err := Dial(Options{})
	if !errors.Is(err, ErrSDKUnavailable) {
		t.Errorf("Dial() error = %v, want ErrSDKUnavailable", err)
	}
}
