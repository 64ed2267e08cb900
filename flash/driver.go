package flash

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/ardnew/softflash/flash/hal"
	"github.com/ardnew/softflash/pkg"
)

// Driver controls the flash program/erase controller through a hal.Bus.
//
// The controller executes one operation at a time and its unlock, command
// and lock steps must not interleave. The raw operations (Unlock, Lock,
// ErasePage, Program and the option-byte engine) perform no locking of
// their own; callers either serialize externally or use Run, which holds
// the driver mutex across the whole unlock, operate, lock sequence.
type Driver struct {
	bus   hal.Bus
	cfg   Config
	latch *Latch

	// fault is the outcome of the last command that failed without an SR
	// error bit to show for it.
	fault pkg.Fault

	mutex sync.Mutex
}

// New creates a driver for the controller behind bus.
//
// Example:
//
//	drv, err := flash.New(mmio.Bus{},
//	    flash.WithFamily(flash.FamilySTM32F1),
//	    flash.WithSafeWipe(true),
//	)
func New(bus hal.Bus, opts ...Option) (*Driver, error) {
	if bus == nil {
		return nil, fmt.Errorf("%w: nil bus", pkg.ErrInvalidParameter)
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.Geometry.Validate(); err != nil {
		return nil, err
	}
	if cfg.PollLimit <= 0 {
		return nil, fmt.Errorf("%w: poll limit %d", pkg.ErrInvalidParameter, cfg.PollLimit)
	}

	latch := cfg.Latch
	if latch == nil {
		latch = DefaultLatch
	}

	d := &Driver{
		bus:   bus,
		cfg:   cfg,
		latch: latch,
	}

	d.logDebug(pkg.ComponentFlash, "driver created",
		"family", cfg.Family.String(),
		"lockPolicy", cfg.LockPolicy.String(),
		"pageSize", cfg.Geometry.PageSize,
		"flashSize", cfg.Geometry.FlashSize,
		"bootloaderSize", cfg.Geometry.BootloaderSize)

	return d, nil
}

// Config returns the driver configuration.
func (d *Driver) Config() Config {
	return d.cfg
}

// Geometry returns the flash geometry.
func (d *Driver) Geometry() Geometry {
	return d.cfg.Geometry
}

// Run serializes one logical flash operation: it unlocks the controller,
// performs the safe wipe if enabled and not yet done, calls fn, and
// restores the locked state. The first error is returned.
//
// A controller still busy after one more bounded wait is not relocked, as
// CR must not be written while BSY is set. It stays unlocked until reset
// and Run reports pkg.ErrControllerTimeout if fn succeeded.
//
// fn must use only the raw operations of d; calling Run from fn deadlocks.
func (d *Driver) Run(fn func() error) (err error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	defer func() {
		if rerr := d.relock(); err == nil {
			err = rerr
		}
	}()

	if err := d.Unlock(); err != nil {
		return err
	}
	if err := d.EnsureWiped(); err != nil {
		return err
	}
	return fn()
}

// relock waits for the controller to go idle and locks it.
func (d *Driver) relock() error {
	if err := d.wait(); err != nil {
		d.logWarn(pkg.ComponentFlash, "controller busy, left unlocked until reset")
		return opError("lock", regCR, err)
	}
	d.Lock()
	return nil
}

// Locked reports whether the controller lock bit is set.
func (d *Driver) Locked() bool {
	return d.read(regCR)&crLOCK != 0
}

// Unlock authorizes program and erase operations by writing the key
// sequence to KEYR, following the configured LockPolicy. It returns
// pkg.ErrLocked if the controller is still locked afterwards, which
// happens after a bad key sequence until the next reset.
func (d *Driver) Unlock() error {
	switch d.cfg.LockPolicy {
	case LockPolicyIfLocked:
		if d.Locked() {
			d.writeKeys(regKEYR)
		}
	default:
		if !d.Locked() {
			d.set(regCR, crLOCK)
		}
		d.writeKeys(regKEYR)
	}

	if d.Locked() {
		d.fault = pkg.FaultLocked
		d.logWarn(pkg.ComponentFlash, "unlock failed")
		return opError("unlock", regKEYR, pkg.ErrLocked)
	}
	d.logDebug(pkg.ComponentFlash, "unlocked")
	return nil
}

// Lock sets the controller lock bit. A controller that is already locked
// is left untouched.
func (d *Driver) Lock() {
	if d.Locked() {
		return
	}
	d.set(regCR, crLOCK)
	d.logDebug(pkg.ComponentFlash, "locked")
}

// writeKeys writes the two-key authorization sequence to reg.
func (d *Driver) writeKeys(reg uint32) {
	d.write(reg, key1)
	d.write(reg, key2)
}

// wait polls SR until BSY clears or the poll limit is reached.
func (d *Driver) wait() error {
	for n := 0; n < d.cfg.PollLimit; n++ {
		if d.cfg.PollDelay {
			d.bus.Delay()
		}
		if d.read(regSR)&srBSY == 0 {
			return nil
		}
	}
	d.fault = pkg.FaultTimeout
	d.logWarn(pkg.ComponentFlash, "busy-wait timeout", "polls", d.cfg.PollLimit)
	return pkg.ErrControllerTimeout
}

// Status reports the outcome of the last operation. Error bits currently
// set in SR take precedence, write-protection errors over programming
// errors. Otherwise it reports a busy-wait timeout or a rejected unlock or
// command enable seen since the last command started.
func (d *Driver) Status() pkg.Fault {
	if f := faultFromStatus(d.read(regSR)); f != pkg.FaultNone {
		return f
	}
	return d.fault
}

func faultFromStatus(sr uint32) pkg.Fault {
	switch {
	case sr&srWRPRTERR != 0:
		return pkg.FaultWriteProtect
	case sr&srPGERR != 0:
		return pkg.FaultProgram
	default:
		return pkg.FaultNone
	}
}

// clearStatus clears the recorded fault and, when fault checking is
// enabled, the sticky error and end-of-operation bits before a new command.
func (d *Driver) clearStatus() {
	d.fault = pkg.FaultNone
	if d.cfg.FaultCheck {
		d.write(regSR, srPGERR|srWRPRTERR|srEOP)
	}
}

// checkFault returns the error for any fault reported by the completed
// command when fault checking is enabled.
func (d *Driver) checkFault() error {
	if !d.cfg.FaultCheck {
		return nil
	}
	return faultFromStatus(d.read(regSR)).Error()
}

// enable sets a command enable bit in CR and confirms it latched. CR
// ignores writes while the controller is locked.
func (d *Driver) enable(bit uint32) error {
	d.set(regCR, bit)
	if d.read(regCR)&bit == 0 {
		d.fault = pkg.FaultLocked
		return pkg.ErrLocked
	}
	return nil
}

func (d *Driver) logDebug(c pkg.Component, msg string, args ...any) {
	pkg.LogTo(d.cfg.Logger, slog.LevelDebug, c, msg, args...)
}

func (d *Driver) logInfo(c pkg.Component, msg string, args ...any) {
	pkg.LogTo(d.cfg.Logger, slog.LevelInfo, c, msg, args...)
}

func (d *Driver) logWarn(c pkg.Component, msg string, args ...any) {
	pkg.LogTo(d.cfg.Logger, slog.LevelWarn, c, msg, args...)
}

func hex32(v uint32) string {
	return fmt.Sprintf("0x%08X", v)
}
