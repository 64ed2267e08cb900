// Package sim provides a simulated flash controller for testing.
//
// [Controller] models the program/erase controller of STM32F1 and GD32F1
// microcontrollers together with its flash array and option bytes, and
// implements [github.com/ardnew/softflash/flash/hal.Bus]. The flash driver
// runs against it unchanged.
//
// # Fidelity
//
// The simulator reproduces the hardware behaviours the driver protocol
// depends on:
//
//   - KEYR accepts 0x45670123 then 0xCDEF89AB; any other write, or any key
//     write while unlocked, locks the controller until [Controller.Reset]
//   - CR is write-protected while CR.LOCK is set
//   - Operations hold SR.BSY for a configurable number of status polls
//   - Programming can only clear bits; reprogramming a non-erased half-word
//     sets SR.PGERR
//   - WRPR is latched from option bytes at reset; erasing or programming a
//     protected page sets SR.WRPRTERR
//   - Option bytes store a byte and its hardware-computed complement
//
// Two silicon errata can be enabled: [WithLockErratum] faults when the lock
// bit is set on an already locked controller, and [WithPollErratum] returns
// stale status when SR is read without a one-cycle delay after a store.
//
// # Inspection
//
// Protocol misuse is recorded as a [Violation] rather than panicking.
// Tests can enable an access trace, inject a stuck busy bit or a power cut,
// and read the array directly with [Controller.Peek].
//
// # Example
//
//	ctl := sim.New(sim.WithGeometry(0x08000000, 64*1024, 1024))
//	drv, err := flash.New(ctl, flash.WithFamily(flash.FamilyGD32F1))
//	...
//	if v := ctl.Violations(); len(v) > 0 {
//	    // protocol error
//	}
package sim
