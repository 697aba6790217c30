package cpu

import "gitlab.com/efronlicht/enve"

const (
	DefaultStackSize = 40
	DefaultVRAMSize  = 50
	DefaultDumpEvery = 20
)

// Config sizes a machine and sets how often it reports progress.
type Config struct {
	StackSize int
	VRAMSize  int
	MaxSteps  int // 0 means unlimited
	DumpEvery int // tracer cadence in steps; 0 disables
	Color     bool
}

func DefaultConfig() Config {
	return Config{
		StackSize: DefaultStackSize,
		VRAMSize:  DefaultVRAMSize,
		DumpEvery: DefaultDumpEvery,
		Color:     true,
	}
}

// ConfigFromEnv reads VGVM_STACK_SIZE, VGVM_VRAM_SIZE, VGVM_DUMP_EVERY,
// VGVM_MAX_STEPS and VGVM_COLOR, falling back to DefaultConfig.
func ConfigFromEnv() Config {
	d := DefaultConfig()
	return Config{
		StackSize: enve.IntOr("VGVM_STACK_SIZE", d.StackSize),
		VRAMSize:  enve.IntOr("VGVM_VRAM_SIZE", d.VRAMSize),
		DumpEvery: enve.IntOr("VGVM_DUMP_EVERY", d.DumpEvery),
		MaxSteps:  enve.IntOr("VGVM_MAX_STEPS", d.MaxSteps),
		Color:     enve.BoolOr("VGVM_COLOR", d.Color),
	}
}

func (cfg Config) withDefaults() Config {
	if cfg.StackSize <= 0 {
		cfg.StackSize = DefaultStackSize
	}
	if cfg.VRAMSize <= 0 {
		cfg.VRAMSize = DefaultVRAMSize
	}
	if cfg.MaxSteps < 0 {
		cfg.MaxSteps = 0
	}
	if cfg.DumpEvery < 0 {
		cfg.DumpEvery = 0
	}
	return cfg
}
