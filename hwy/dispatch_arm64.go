//go:build arm64

package hwy

import "golang.org/x/sys/cpu"

func init() {
	if NoSimdEnv() {
		setScalarMode()
		return
	}

	// cpu.ARM64.HasASIMD is always true for ARMv8+, checked for consistency.
	if !cpu.ARM64.HasASIMD {
		setScalarMode()
		return
	}
	currentLevel = DispatchNEON
	currentWidth = 16 // NEON is 128-bit (16 bytes)

	// SVE vector length is implementation defined; 16 bytes is the
	// architectural minimum and what a lane group can always rely on.
	if cpu.ARM64.HasSVE {
		currentLevel = DispatchSVE
	}
}

// HasFMA returns true; fused multiply-add is part of ARMv8 ASIMD.
func HasFMA() bool {
	return cpu.ARM64.HasASIMD
}
