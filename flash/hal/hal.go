package hal

//go:generate mockgen -destination=mock/mock_hal.go -package=mock github.com/ardnew/softflash/flash/hal Bus

// Bus is the Register Access Layer between the flash driver and the memory
// system of the target microcontroller.
//
// Every access is a single aligned load or store to a fixed address. Stores
// must be volatile: an implementation may not elide, merge, reorder or cache
// them. The driver issues Barrier after each store that a subsequent status
// poll depends on, and around the key sequence.
//
// Bus methods cannot fail. A bus is a direct hardware proxy; faults surface
// through controller status bits or as a busy bit that never clears.
type Bus interface {
	// Load32 reads the aligned 32-bit word at addr.
	Load32(addr uint32) uint32

	// Store32 writes the aligned 32-bit word at addr.
	Store32(addr uint32, value uint32)

	// Load16 reads the aligned 16-bit half-word at addr.
	Load16(addr uint32) uint16

	// Store16 writes the aligned 16-bit half-word at addr.
	// Flash programming goes through Store16 (the program unit).
	Store16(addr uint32, value uint16)

	// Barrier is a data memory barrier. All stores issued before Barrier
	// are observed by the flash controller before any access issued after.
	Barrier()

	// Delay stalls for a single instruction cycle (one NOP).
	Delay()
}

// Region describes a contiguous address range on the bus.
type Region struct {
	Base uint32 // First address
	Size uint32 // Length in bytes
}

// End returns the first address past the region.
func (r Region) End() uint32 {
	return r.Base + r.Size
}

// Contains reports whether [addr, addr+n) lies inside the region.
func (r Region) Contains(addr, n uint32) bool {
	if addr < r.Base || n > r.Size {
		return false
	}
	return addr-r.Base <= r.Size-n
}
