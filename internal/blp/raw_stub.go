//go:build !blpapi

package blp

// The blpapi C SDK is proprietary and not present on every build host; this
// stub keeps the module compiling and testable without it.

const sdkAvailable = false

func openRaw(Options) (rawConn, error) {
	return nil, ErrSDKUnavailable
}
