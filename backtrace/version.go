package backtrace

// Version information for the Amber backtrace engine.
const (
	// Version is the current version of the backtrace engine.
	Version = "0.1.0"

	// VersionMajor is the major version number.
	VersionMajor = 0

	// VersionMinor is the minor version number.
	VersionMinor = 1

	// VersionPatch is the patch version number.
	VersionPatch = 0
)

// Info provides runtime information about the backtrace engine.
type Info struct {
	// Version is the engine version string.
	Version string

	// ChunkCapacity is the number of frame records per store chunk.
	ChunkCapacity int

	// Enabled indicates whether capture is active under the current
	// configuration.
	Enabled bool
}

// GetInfo returns information about the backtrace engine.
//
// Example:
//
//	info := backtrace.GetInfo()
//	fmt.Printf("Backtrace engine %s (chunk=%d)\n", info.Version, info.ChunkCapacity)
func GetInfo() Info {
	return Info{
		Version:       Version,
		ChunkCapacity: ChunkCapacity,
		Enabled:       CurrentConfig().Enabled,
	}
}
