// Package hal defines the Register Access Layer used by the flash driver.
//
// The driver never dereferences hardware addresses itself. All register and
// flash array accesses go through a [Bus], so the same protocol code runs on
// a microcontroller and against a simulated controller on the host.
//
// # Implementations
//
//   - [github.com/ardnew/softflash/flash/hal/mmio]: volatile memory-mapped
//     access for TinyGo on Cortex-M targets.
//   - [github.com/ardnew/softflash/flash/hal/sim]: a simulated STM32F1/GD32F1
//     flash controller for tests and host tooling.
//   - [github.com/ardnew/softflash/flash/hal/mock]: a gomock mock for
//     asserting exact access sequences.
//
// # Implementing a Bus
//
//	type MyBus struct{}
//
//	func (MyBus) Load32(addr uint32) uint32 {
//	    return (*volatile.Register32)(unsafe.Pointer(uintptr(addr))).Get()
//	}
//
//	// ... implement remaining Bus methods
package hal
