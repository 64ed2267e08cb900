//go:build tinygo && cortexm

// Package mmio implements hal.Bus with volatile memory-mapped access for
// TinyGo on ARM Cortex-M targets.
package mmio

import (
	"device/arm"
	"runtime/volatile"
	"unsafe"
)

// Bus accesses physical addresses directly. The zero value is ready to use.
type Bus struct{}

// Load32 reads the 32-bit word at addr.
func (Bus) Load32(addr uint32) uint32 {
	return volatile.LoadUint32((*uint32)(unsafe.Pointer(uintptr(addr))))
}

// Store32 writes the 32-bit word at addr.
func (Bus) Store32(addr uint32, value uint32) {
	volatile.StoreUint32((*uint32)(unsafe.Pointer(uintptr(addr))), value)
}

// Load16 reads the 16-bit half-word at addr.
func (Bus) Load16(addr uint32) uint16 {
	return volatile.LoadUint16((*uint16)(unsafe.Pointer(uintptr(addr))))
}

// Store16 writes the 16-bit half-word at addr.
func (Bus) Store16(addr uint32, value uint16) {
	volatile.StoreUint16((*uint16)(unsafe.Pointer(uintptr(addr))), value)
}

// Barrier issues DMB (full system, all access types).
func (Bus) Barrier() {
	arm.Asm("dmb 0xF")
}

// Delay issues a single NOP.
func (Bus) Delay() {
	arm.Asm("nop")
}
