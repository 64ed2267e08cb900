package sim

// Config holds the simulated controller configuration.
type Config struct {
	// FlashBase is the address of the first byte of the flash array.
	FlashBase uint32

	// FlashSize is the size of the flash array in bytes.
	FlashSize uint32

	// PageSize is the erase granule in bytes (power of two).
	PageSize uint32

	// ProtectGranule is the number of bytes covered by one WRPR bit.
	ProtectGranule uint32

	// Latency is the number of status reads that observe BSY before an
	// operation completes.
	Latency int

	// LockErratum faults when CR.LOCK is set while already locked, as
	// observed on GD32F1 parts.
	LockErratum bool

	// PollErratum makes the first status read after a store return stale
	// (not busy) status unless a Delay intervenes.
	PollErratum bool
}

// defaultConfig returns a 64 KiB medium-density F1 layout.
func defaultConfig() Config {
	return Config{
		FlashBase:      0x08000000,
		FlashSize:      64 * 1024,
		PageSize:       1024,
		ProtectGranule: 4 * 1024,
		Latency:        3,
	}
}

// Option is a functional option for configuring a Controller.
type Option func(*Config)

// WithGeometry sets the flash array base, size and page size.
// The write protection granule becomes four pages.
//
// Example:
//
//	ctl := sim.New(sim.WithGeometry(0x08000000, 128*1024, 2048))
func WithGeometry(base, size, pageSize uint32) Option {
	return func(c *Config) {
		if pageSize == 0 || pageSize&(pageSize-1) != 0 || size < pageSize {
			return
		}
		c.FlashBase = base
		c.FlashSize = size
		c.PageSize = pageSize
		c.ProtectGranule = 4 * pageSize
	}
}

// WithProtectGranule sets the number of bytes covered by one WRPR bit.
func WithProtectGranule(n uint32) Option {
	return func(c *Config) {
		if n > 0 {
			c.ProtectGranule = n
		}
	}
}

// WithLatency sets how many status reads observe BSY per operation.
func WithLatency(polls int) Option {
	return func(c *Config) {
		if polls >= 0 {
			c.Latency = polls
		}
	}
}

// WithLockErratum enables the lock-while-locked fault.
func WithLockErratum() Option {
	return func(c *Config) {
		c.LockErratum = true
	}
}

// WithPollErratum enables stale status reads immediately after a store.
func WithPollErratum() Option {
	return func(c *Config) {
		c.PollErratum = true
	}
}
