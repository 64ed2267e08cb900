package flash

import (
	"fmt"
	"log/slog"

	"github.com/ardnew/softflash/flash/hal"
	"github.com/ardnew/softflash/pkg"
)

// Geometry describes the flash array of a silicon variant.
type Geometry struct {
	// PageSize is the erase granule in bytes (power of two).
	PageSize uint32

	// FlashBase is the address of the first byte of flash.
	FlashBase uint32

	// FlashSize is the total flash size in bytes.
	FlashSize uint32

	// BootloaderSize is the size in bytes reserved for the bootloader at
	// the start of flash. The safe-wipe guard never erases it.
	BootloaderSize uint32
}

// DefaultGeometry is a 64 KiB medium-density F1 part with a 16 KiB
// bootloader.
var DefaultGeometry = Geometry{
	PageSize:       1024,
	FlashBase:      0x08000000,
	FlashSize:      64 * 1024,
	BootloaderSize: 16 * 1024,
}

// Validate checks the geometry for internal consistency.
func (g Geometry) Validate() error {
	switch {
	case g.PageSize < 4 || g.PageSize&(g.PageSize-1) != 0:
		return fmt.Errorf("%w: page size %d is not a power of two >= 4", pkg.ErrInvalidParameter, g.PageSize)
	case g.FlashSize == 0 || g.FlashSize%g.PageSize != 0:
		return fmt.Errorf("%w: flash size %d is not a multiple of page size", pkg.ErrInvalidParameter, g.FlashSize)
	case g.FlashBase%g.PageSize != 0:
		return fmt.Errorf("%w: flash base 0x%08X is not page aligned", pkg.ErrInvalidParameter, g.FlashBase)
	case g.FlashBase+g.FlashSize < g.FlashBase:
		return fmt.Errorf("%w: flash region overflows address space", pkg.ErrInvalidParameter)
	case g.BootloaderSize%g.PageSize != 0 || g.BootloaderSize >= g.FlashSize:
		return fmt.Errorf("%w: bootloader size %d must be a page multiple below flash size", pkg.ErrInvalidParameter, g.BootloaderSize)
	}
	return nil
}

// Region returns the whole programmable flash range.
func (g Geometry) Region() hal.Region {
	return hal.Region{Base: g.FlashBase, Size: g.FlashSize}
}

// AppRegion returns the application range following the bootloader.
func (g Geometry) AppRegion() hal.Region {
	return hal.Region{Base: g.FlashBase + g.BootloaderSize, Size: g.FlashSize - g.BootloaderSize}
}

// Pages returns the number of pages in flash.
func (g Geometry) Pages() int {
	return int(g.FlashSize / g.PageSize)
}

// LockPolicy selects how Unlock approaches the key sequence.
type LockPolicy uint8

// Lock policies.
const (
	// LockPolicyForceRelock locks the controller first if it reports
	// unlocked, then always issues the key sequence.
	LockPolicyForceRelock LockPolicy = iota

	// LockPolicyIfLocked issues the key sequence only while the lock bit
	// is set.
	LockPolicyIfLocked
)

// String returns the policy name used in device profiles.
func (p LockPolicy) String() string {
	switch p {
	case LockPolicyForceRelock:
		return "force-relock"
	case LockPolicyIfLocked:
		return "if-locked"
	default:
		return "unknown"
	}
}

// OptionUnlock selects when UnlockOptionBytes writes OPTKEYR.
type OptionUnlock uint8

// Option unlock policies.
const (
	// OptionUnlockAlways writes the option key sequence on every call.
	OptionUnlockAlways OptionUnlock = iota

	// OptionUnlockGated writes it only while CR.OPTWRE is clear.
	OptionUnlockGated
)

// String returns the policy name used in device profiles.
func (o OptionUnlock) String() string {
	switch o {
	case OptionUnlockAlways:
		return "always"
	case OptionUnlockGated:
		return "gated"
	default:
		return "unknown"
	}
}

// Family is a device family preset for the protocol knobs.
type Family uint8

// Device families.
const (
	// FamilyGD32F1 force-relocks before unlocking (GD32 faults when the
	// lock bit is set on a locked controller), polls immediately, writes
	// option keys unconditionally and leaves error bits to the caller.
	FamilyGD32F1 Family = iota

	// FamilySTM32F1 unlocks only when locked, inserts a one-cycle delay
	// before each busy poll, gates option keys on OPTWRE and reports
	// PGERR/WRPRTERR as errors.
	FamilySTM32F1
)

// String returns the family name used in device profiles.
func (f Family) String() string {
	switch f {
	case FamilyGD32F1:
		return "gd32f1"
	case FamilySTM32F1:
		return "stm32f1"
	default:
		return "unknown"
	}
}

func (f Family) apply(c *Config) {
	c.Family = f
	switch f {
	case FamilySTM32F1:
		c.LockPolicy = LockPolicyIfLocked
		c.PollDelay = true
		c.OptionUnlock = OptionUnlockGated
		c.FaultCheck = true
	default:
		c.LockPolicy = LockPolicyForceRelock
		c.PollDelay = false
		c.OptionUnlock = OptionUnlockAlways
		c.FaultCheck = false
	}
}

// DefaultPollLimit bounds every busy-wait, in status reads.
const DefaultPollLimit = 1000000

// Config holds the driver configuration.
type Config struct {
	// Geometry of the flash array.
	Geometry Geometry

	// Family is the preset the protocol knobs were last derived from.
	Family Family

	// LockPolicy selects the unlock ordering.
	LockPolicy LockPolicy

	// PollDelay inserts a one-cycle delay before each busy-bit poll.
	PollDelay bool

	// OptionUnlock selects when option keys are written.
	OptionUnlock OptionUnlock

	// OptionBytes enables the option-byte engine.
	OptionBytes bool

	// SafeWipe enables the one-shot application wipe before the first
	// write or erase.
	SafeWipe bool

	// FaultCheck makes operations return PGERR/WRPRTERR as errors.
	// When false the bits are only observable through Driver.Status.
	FaultCheck bool

	// PollLimit is the number of status reads after which a busy-wait
	// fails with pkg.ErrControllerTimeout.
	PollLimit int

	// Latch records completion of the safe wipe. Nil uses DefaultLatch.
	Latch *Latch

	// Logger receives driver logs. Nil uses pkg.DefaultLogger.
	Logger *slog.Logger
}

// defaultConfig returns the GD32F1 preset with the default geometry.
func defaultConfig() Config {
	c := Config{
		Geometry:  DefaultGeometry,
		PollLimit: DefaultPollLimit,
	}
	FamilyGD32F1.apply(&c)
	return c
}

// Option is a functional option for configuring the Driver.
type Option func(*Config)

// WithConfig replaces the whole configuration. Later options still apply.
func WithConfig(cfg Config) Option {
	return func(c *Config) {
		*c = cfg
	}
}

// WithGeometry sets the flash geometry.
//
// Example:
//
//	drv, err := flash.New(bus, flash.WithGeometry(flash.Geometry{
//	    PageSize:       2048,
//	    FlashBase:      0x08000000,
//	    FlashSize:      256 * 1024,
//	    BootloaderSize: 8 * 1024,
//	}))
func WithGeometry(g Geometry) Option {
	return func(c *Config) {
		c.Geometry = g
	}
}

// WithFamily applies a device family preset. Options given after it
// override individual knobs.
func WithFamily(f Family) Option {
	return func(c *Config) {
		f.apply(c)
	}
}

// WithLockPolicy sets the unlock ordering.
func WithLockPolicy(p LockPolicy) Option {
	return func(c *Config) {
		c.LockPolicy = p
	}
}

// WithPollDelay enables or disables the one-cycle delay before each poll.
func WithPollDelay(enabled bool) Option {
	return func(c *Config) {
		c.PollDelay = enabled
	}
}

// WithOptionUnlock sets when option keys are written.
func WithOptionUnlock(o OptionUnlock) Option {
	return func(c *Config) {
		c.OptionUnlock = o
	}
}

// WithOptionBytes enables or disables the option-byte engine.
func WithOptionBytes(enabled bool) Option {
	return func(c *Config) {
		c.OptionBytes = enabled
	}
}

// WithSafeWipe enables or disables the one-shot application wipe.
func WithSafeWipe(enabled bool) Option {
	return func(c *Config) {
		c.SafeWipe = enabled
	}
}

// WithFaultCheck enables or disables reporting of PGERR/WRPRTERR.
func WithFaultCheck(enabled bool) Option {
	return func(c *Config) {
		c.FaultCheck = enabled
	}
}

// WithPollLimit bounds each busy-wait to n status reads.
func WithPollLimit(n int) Option {
	return func(c *Config) {
		c.PollLimit = n
	}
}

// WithLatch injects the safe-wipe latch.
//
// Example:
//
//	latch := new(flash.Latch)
//	drv, err := flash.New(bus, flash.WithSafeWipe(true), flash.WithLatch(latch))
func WithLatch(l *Latch) Option {
	return func(c *Config) {
		c.Latch = l
	}
}

// WithLogger sets the logger for driver operations.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}
