// Package flash implements the flash controller driver of an STM32F1/GD32F1
// class bootloader.
//
// The driver unlocks the flash program/erase controller, erases pages,
// programs half-words, optionally manipulates option bytes, and optionally
// wipes the whole application region once before the first write or erase.
// Every register access goes through a [hal.Bus], so the same code drives
// real hardware under TinyGo and the simulator in
// [github.com/ardnew/softflash/flash/hal/sim].
//
// # Protocol
//
// Each logical operation follows the same shape:
//
//	unlock -> [safe wipe, once] -> erase/program -> poll BSY -> lock
//
// [Driver.Run] performs that sequence under a mutex. The raw operations
// ([Driver.Unlock], [Driver.ErasePage], [Driver.Program], ...) are also
// exported for callers that serialize access themselves.
//
// # Device families
//
// The two supported families run the same protocol with different knobs:
//
//   - [FamilyGD32F1]: relock before the key sequence, no poll delay, option
//     keys written unconditionally, error bits left to the caller
//   - [FamilySTM32F1]: key sequence only while locked, one-cycle delay
//     before each status poll, option keys gated on OPTWRE, PGERR and
//     WRPRTERR reported as errors
//
// # Errors
//
// Operations return an [*OpError] wrapping one of the sentinel errors in
// [github.com/ardnew/softflash/pkg]. Every busy-wait is bounded by
// [Config.PollLimit]; a controller that never clears BSY yields
// pkg.ErrControllerTimeout instead of hanging.
//
// # Example
//
//	drv, err := flash.New(bus, flash.WithFamily(flash.FamilySTM32F1), flash.WithSafeWipe(true))
//	if err != nil {
//	    return err
//	}
//	err = drv.Run(func() error {
//	    if err := drv.ErasePage(0x08004000); err != nil {
//	        return err
//	    }
//	    return drv.Program(0x08004000, image)
//	})
package flash
