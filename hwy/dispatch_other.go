//go:build !amd64 && !arm64

package hwy

func init() {
	// Non-amd64/arm64 architectures run in scalar mode.
	setScalarMode()
}

// HasFMA returns false on architectures without detection support.
func HasFMA() bool {
	return false
}
