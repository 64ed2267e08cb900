package flash

// Flash program/erase controller register map (STM32F1 / GD32F1).
const (
	regBase    uint32 = 0x40022000
	regKEYR           = regBase + 0x04 // Key
	regOPTKEYR        = regBase + 0x08 // Option byte key
	regSR             = regBase + 0x0C // Status
	regCR             = regBase + 0x10 // Control
	regAR             = regBase + 0x14 // Address
	regOBR            = regBase + 0x1C // Option byte status
	regWRPR           = regBase + 0x20 // Write protection
)

// SR bits. Error and EOP bits are cleared by writing 1.
const (
	srBSY      = 1 << 0
	srPGERR    = 1 << 2
	srWRPRTERR = 1 << 4
	srEOP      = 1 << 5
)

// CR bits.
const (
	crPG     = 1 << 0
	crPER    = 1 << 1
	crOPTPG  = 1 << 4
	crOPTER  = 1 << 5
	crSTRT   = 1 << 6
	crLOCK   = 1 << 7
	crOPTWRE = 1 << 9
)

// Key sequence, shared by KEYR and OPTKEYR.
const (
	key1 uint32 = 0x45670123
	key2 uint32 = 0xCDEF89AB
)

// Option byte region.
const (
	OptionBase uint32 = 0x1FFFF800
	OptionSize uint32 = 16
)

// Option byte addresses. Each holds a byte and its complement.
const (
	OptionRDP   = OptionBase + 0x0
	OptionUSER  = OptionBase + 0x2
	OptionData0 = OptionBase + 0x4
	OptionData1 = OptionBase + 0x6
	OptionWRP0  = OptionBase + 0x8
	OptionWRP1  = OptionBase + 0xA
	OptionWRP2  = OptionBase + 0xC
	OptionWRP3  = OptionBase + 0xE
)

// ProgramUnit is the size in bytes of one flash program operation.
const ProgramUnit = 2

// read loads a controller register.
func (d *Driver) read(reg uint32) uint32 {
	return d.bus.Load32(reg)
}

// write stores a controller register and waits for the store to be
// observed before any later access.
func (d *Driver) write(reg, value uint32) {
	d.bus.Store32(reg, value)
	d.bus.Barrier()
}

// set sets bits in a controller register.
func (d *Driver) set(reg, bits uint32) {
	d.write(reg, d.read(reg)|bits)
}

// clear clears bits in a controller register.
func (d *Driver) clear(reg, bits uint32) {
	d.write(reg, d.read(reg)&^bits)
}
