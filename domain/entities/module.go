package entities

import "fmt"

// ModuleState is the lifecycle state of one module name within a linker.
// The only transitions are Unloaded -> Loading -> Loaded and, on failure,
// Loading -> Unloaded.
type ModuleState int

const (
	ModuleUnloaded ModuleState = iota
	ModuleLoading
	ModuleLoaded
)

func (s ModuleState) String() string {
	switch s {
	case ModuleLoading:
		return "loading"
	case ModuleLoaded:
		return "loaded"
	default:
		return "unloaded"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s ModuleState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ModuleState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "loading":
		*s = ModuleLoading
	case "loaded":
		*s = ModuleLoaded
	case "unloaded":
		*s = ModuleUnloaded
	default:
		return fmt.Errorf("unknown module state %q", b)
	}
	return nil
}
