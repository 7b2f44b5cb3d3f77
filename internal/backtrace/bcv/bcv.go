// Package bcv implements the packed byte-code-index/version column value
// used by the backtrace store.
//
// Packed represents one captured code location as a compact 32-bit value:
// - Top 16 bits: class-file version active when the frame was captured
// - Bottom 16 bits: byte-code index (bci) within the method
//
// Storing the version next to the bci is what makes a backtrace survive
// live class redefinition: materialization resolves the method at the
// recorded version and can detect that the version is gone, instead of
// dereferencing a stale method pointer.
package bcv

// Packed is a 32-bit value encoding both byte-code index and class version.
// Layout: [Version:16][BCI:16]
//
// Example: 0x00030048 represents version=3, bci=0x48 (72 decimal).
type Packed uint32

const (
	// BCIBits is the number of bits allocated for the byte-code index.
	BCIBits = 16

	// BCIMask is the bitmask for extracting the byte-code index (0x0000FFFF).
	BCIMask = (1 << BCIBits) - 1

	// MaxVersion is the largest representable class version. After this many
	// redefinitions of one class the recorded version saturates and stack
	// traces for older versions become unreliable.
	MaxVersion = (1 << 16) - 1

	// MaxBCI is the largest representable byte-code index. Methods are
	// rejected by the class-file parser long before their code reaches
	// this size, so clamping is a formality.
	MaxBCI = BCIMask
)

// Pack merges a byte-code index and a class version into one column value.
//
// Both inputs are clamped into their 16-bit fields. Negative bci values
// must be normalized by the caller before packing (the capture builder
// smears the synchronization-entry sentinel to 0).
func Pack(bci, version int) Packed {
	if bci < 0 {
		bci = 0
	} else if bci > MaxBCI {
		bci = MaxBCI
	}
	if version < 0 {
		version = 0
	} else if version > MaxVersion {
		version = MaxVersion
	}
	return Packed(uint32(version)<<BCIBits | uint32(bci))
}

// BCI extracts the byte-code index from the packed value.
func (p Packed) BCI() int {
	return int(uint32(p) & BCIMask)
}

// Version extracts the class version from the packed value.
func (p Packed) Version() int {
	return int(uint32(p) >> BCIBits)
}

// Decode extracts both fields from the packed value.
//
// Returns: (bci int, version int)
func (p Packed) Decode() (bci, version int) {
	return p.BCI(), p.Version()
}
