package sim

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/ardnew/softflash/pkg"
)

// Register addresses of the simulated flash program/erase controller.
// These must match the register map used by the flash driver.
const (
	RegBase    uint32 = 0x40022000
	RegACR            = RegBase + 0x00
	RegKEYR           = RegBase + 0x04
	RegOPTKEYR        = RegBase + 0x08
	RegSR             = RegBase + 0x0C
	RegCR             = RegBase + 0x10
	RegAR             = RegBase + 0x14
	RegOBR            = RegBase + 0x1C
	RegWRPR           = RegBase + 0x20
)

// Status register bits.
const (
	srBSY      = 1 << 0
	srPGERR    = 1 << 2
	srWRPRTERR = 1 << 4
	srEOP      = 1 << 5
	srW1C      = srPGERR | srWRPRTERR | srEOP
)

// Control register bits.
const (
	crPG     = 1 << 0
	crPER    = 1 << 1
	crOPTPG  = 1 << 4
	crOPTER  = 1 << 5
	crSTRT   = 1 << 6
	crLOCK   = 1 << 7
	crOPTWRE = 1 << 9
)

// Authorization keys accepted by KEYR and OPTKEYR.
const (
	Key1 uint32 = 0x45670123
	Key2 uint32 = 0xCDEF89AB
)

// Option byte region.
const (
	OptionBase uint32 = 0x1FFFF800
	OptionSize        = 16
)

// rdpUnprotected is the RDP value that disables readout protection.
const rdpUnprotected = 0xA5

// Controller simulates an STM32F1-class flash program/erase controller and
// the flash array behind it. It implements hal.Bus.
//
// The simulation is faithful where the driver's correctness depends on it:
// the key sequence lockout, write-protected control register while locked,
// busy timing, AND-only programming with PGERR, write protection loaded from
// option bytes at reset, and option-byte complement encoding.
//
// Controller is safe for concurrent use.
type Controller struct {
	cfg Config

	flash  []byte
	option [OptionSize]byte

	// Registers
	sr, cr, ar uint32
	obr, wrpr  uint32

	keyStage    int
	optKeyStage int
	keyFault    bool

	busy      bool
	busyPolls int
	pending   func()
	stale     bool

	powerBudget int // remaining program stores before power loss, <0 = unlimited
	powerLost   bool
	stuck       bool

	tracing    bool
	trace      []Access
	violations []Violation
	stores     int
	barriers   int
	delays     int

	mutex sync.Mutex
}

// New creates a simulated controller with an erased flash array, default
// (unprotected) option bytes and the controller locked, as after reset.
func New(opts ...Option) *Controller {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Controller{
		cfg:         cfg,
		flash:       make([]byte, cfg.FlashSize),
		powerBudget: -1,
	}
	for i := range c.flash {
		c.flash[i] = 0xFF
	}
	c.option = defaultOptionBytes()
	c.reset()
	return c
}

// defaultOptionBytes returns factory option bytes: readout unprotected,
// no write protection.
func defaultOptionBytes() [OptionSize]byte {
	var ob [OptionSize]byte
	for i := 0; i < OptionSize; i += 2 {
		ob[i] = 0xFF
		ob[i+1] = 0x00
	}
	ob[0] = rdpUnprotected
	ob[1] = ^byte(rdpUnprotected)
	return ob
}

// Reset simulates a system reset: the controller locks, pending operations
// are lost, power is restored and option bytes are reloaded into OBR/WRPR.
func (c *Controller) Reset() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.reset()
}

func (c *Controller) reset() {
	c.sr = 0
	c.cr = crLOCK
	c.ar = 0
	c.keyStage = 0
	c.optKeyStage = 0
	c.keyFault = false
	c.busy = false
	c.busyPolls = 0
	c.pending = nil
	c.stale = false
	c.powerLost = false
	c.stuck = false
	c.loadOptionBytes()
}

// loadOptionBytes latches option bytes into OBR and WRPR.
func (c *Controller) loadOptionBytes() {
	var obr uint32
	for i := 0; i < OptionSize; i += 2 {
		if c.option[i] != ^c.option[i+1] {
			obr |= 1 << 0 // OPTERR
		}
	}
	if c.option[0] != rdpUnprotected {
		obr |= 1 << 1 // RDPRT
	}
	obr |= uint32(c.option[2]) << 2
	obr |= uint32(c.option[4]) << 10
	obr |= uint32(c.option[6]) << 18
	c.obr = obr
	c.wrpr = uint32(c.option[8]) | uint32(c.option[10])<<8 |
		uint32(c.option[12])<<16 | uint32(c.option[14])<<24
}

// Geometry returns the simulated flash array geometry.
func (c *Controller) Geometry() (base, size, pageSize uint32) {
	return c.cfg.FlashBase, c.cfg.FlashSize, c.cfg.PageSize
}

// inFlash reports whether [addr, addr+n) is inside the main array.
func (c *Controller) inFlash(addr, n uint32) bool {
	return addr >= c.cfg.FlashBase && n <= c.cfg.FlashSize &&
		addr-c.cfg.FlashBase <= c.cfg.FlashSize-n
}

// inOption reports whether [addr, addr+n) is inside the option region.
func inOption(addr, n uint32) bool {
	return addr >= OptionBase && n <= OptionSize && addr-OptionBase <= OptionSize-n
}

// Load32 implements hal.Bus.
func (c *Controller) Load32(addr uint32) uint32 {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	v := c.load32(addr)
	c.record(Access{Kind: AccessLoad, Addr: addr, Value: v, Width: 32})
	return v
}

func (c *Controller) load32(addr uint32) uint32 {
	switch addr {
	case RegSR:
		return c.pollStatus()
	case RegCR:
		return c.cr
	case RegAR:
		return c.ar
	case RegOBR:
		return c.obr
	case RegWRPR:
		return c.wrpr
	case RegACR, RegKEYR, RegOPTKEYR:
		return 0
	}

	switch {
	case c.inFlash(addr, 4) && addr%4 == 0:
		if c.busy {
			c.violate(ViolationReadWhileBusy, addr, 0)
		}
		off := addr - c.cfg.FlashBase
		return binary.LittleEndian.Uint32(c.flash[off:])
	case inOption(addr, 4) && addr%4 == 0:
		off := addr - OptionBase
		return binary.LittleEndian.Uint32(c.option[off:])
	}

	c.violate(ViolationUnmapped, addr, 0)
	return 0
}

// pollStatus returns SR, advancing the busy state machine.
func (c *Controller) pollStatus() uint32 {
	if c.stale {
		// Status read too soon after a store returns the previous state.
		c.stale = false
		return c.sr &^ srBSY
	}
	if !c.busy {
		return c.sr
	}
	if c.stuck || c.powerLost {
		return c.sr | srBSY
	}
	if c.busyPolls > 0 {
		c.busyPolls--
		return c.sr | srBSY
	}
	c.complete()
	return c.sr
}

// complete commits the pending operation and clears BSY.
func (c *Controller) complete() {
	if c.pending != nil {
		c.pending()
		c.pending = nil
	}
	c.busy = false
	c.sr = (c.sr &^ srBSY) | srEOP
	c.cr &^= crSTRT
}

// start marks the controller busy with op to be committed on completion.
func (c *Controller) start(op func()) {
	c.busy = true
	c.busyPolls = c.cfg.Latency
	c.pending = op
	c.sr |= srBSY
}

// Store32 implements hal.Bus.
func (c *Controller) Store32(addr uint32, value uint32) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.record(Access{Kind: AccessStore, Addr: addr, Value: value, Width: 32})
	c.stores++
	c.markStale()

	switch addr {
	case RegKEYR:
		c.writeKey(value)
		return
	case RegOPTKEYR:
		c.writeOptionKey(value)
		return
	case RegSR:
		c.sr &^= value & srW1C
		return
	case RegACR:
		return
	}

	if c.busy {
		c.violate(ViolationWriteWhileBusy, addr, value)
		return
	}

	switch {
	case addr == RegCR:
		c.writeControl(value)
	case addr == RegAR:
		if c.cr&crLOCK == 0 {
			c.ar = value
		}
	case c.inFlash(addr, 4) || inOption(addr, 4):
		c.violate(ViolationWidth, addr, value)
	default:
		c.violate(ViolationUnmapped, addr, value)
	}
}

// writeKey advances the KEYR sequence. Any key write while unlocked, or an
// out-of-order key, locks the controller until the next reset.
func (c *Controller) writeKey(value uint32) {
	if c.keyFault {
		return
	}
	if c.cr&crLOCK == 0 {
		c.keyLockout(value)
		return
	}
	switch {
	case c.keyStage == 0 && value == Key1:
		c.keyStage = 1
	case c.keyStage == 1 && value == Key2:
		c.keyStage = 0
		c.cr &^= crLOCK
		pkg.LogDebug(pkg.ComponentSim, "controller unlocked")
	default:
		c.keyLockout(value)
	}
}

func (c *Controller) keyLockout(value uint32) {
	c.keyFault = true
	c.keyStage = 0
	c.cr |= crLOCK
	c.cr &^= crOPTWRE
	c.violate(ViolationKeySequence, RegKEYR, value)
}

// writeOptionKey advances the OPTKEYR sequence. It is ignored while the
// main area is locked.
func (c *Controller) writeOptionKey(value uint32) {
	if c.cr&crLOCK != 0 {
		c.optKeyStage = 0
		return
	}
	switch {
	case c.optKeyStage == 0 && value == Key1:
		c.optKeyStage = 1
	case c.optKeyStage == 1 && value == Key2:
		c.optKeyStage = 0
		c.cr |= crOPTWRE
	default:
		c.optKeyStage = 0
	}
}

// writeControl applies a CR store. CR is write-protected while locked.
func (c *Controller) writeControl(value uint32) {
	old := c.cr
	if old&crLOCK != 0 {
		if value&crLOCK != 0 && c.cfg.LockErratum {
			c.violate(ViolationLockWhileLocked, RegCR, value)
		}
		return
	}

	if value&crLOCK != 0 {
		c.cr = crLOCK
		c.optKeyStage = 0
		return
	}

	// OPTWRE can only be cleared by software.
	next := value & (crPG | crPER | crOPTPG | crOPTER)
	next |= old & value & crOPTWRE
	c.cr = next

	if value&crSTRT != 0 && old&crSTRT == 0 {
		c.startCommand()
	}
}

// startCommand begins the erase selected by CR when STRT is set.
func (c *Controller) startCommand() {
	switch {
	case c.cr&crPER != 0:
		c.erasePage(c.ar)
	case c.cr&crOPTER != 0:
		if c.cr&crOPTWRE == 0 {
			c.violate(ViolationOptionNotEnabled, RegCR, c.cr)
			return
		}
		c.cr |= crSTRT
		c.start(func() {
			for i := range c.option {
				c.option[i] = 0xFF
			}
		})
	}
}

// erasePage starts erasure of the page containing addr.
func (c *Controller) erasePage(addr uint32) {
	if !c.inFlash(addr, 1) {
		c.violate(ViolationUnmapped, addr, 0)
		return
	}
	if c.protected(addr) {
		c.sr |= srWRPRTERR
		return
	}
	page := (addr - c.cfg.FlashBase) &^ (c.cfg.PageSize - 1)
	c.cr |= crSTRT
	c.start(func() {
		for i := page; i < page+c.cfg.PageSize; i++ {
			c.flash[i] = 0xFF
		}
	})
}

// protected reports whether the write protection granule holding addr is
// protected. A cleared WRPR bit protects its granule.
func (c *Controller) protected(addr uint32) bool {
	bit := (addr - c.cfg.FlashBase) / c.cfg.ProtectGranule
	if bit >= 32 {
		bit = 31
	}
	return c.wrpr&(1<<bit) == 0
}

// Load16 implements hal.Bus.
func (c *Controller) Load16(addr uint32) uint16 {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var v uint16
	switch {
	case addr%2 != 0:
		c.violate(ViolationWidth, addr, 0)
	case c.inFlash(addr, 2):
		if c.busy {
			c.violate(ViolationReadWhileBusy, addr, 0)
		}
		v = binary.LittleEndian.Uint16(c.flash[addr-c.cfg.FlashBase:])
	case inOption(addr, 2):
		v = binary.LittleEndian.Uint16(c.option[addr-OptionBase:])
	default:
		v = uint16(c.load32(addr))
	}
	c.record(Access{Kind: AccessLoad, Addr: addr, Value: uint32(v), Width: 16})
	return v
}

// Store16 implements hal.Bus. Half-word stores to the flash array program
// one unit when CR.PG is set; stores to the option region program one
// option byte when CR.OPTPG and CR.OPTWRE are set.
func (c *Controller) Store16(addr uint32, value uint16) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.record(Access{Kind: AccessStore, Addr: addr, Value: uint32(value), Width: 16})
	c.stores++
	c.markStale()

	if c.busy {
		c.violate(ViolationWriteWhileBusy, addr, uint32(value))
		return
	}

	switch {
	case addr%2 != 0:
		c.violate(ViolationWidth, addr, uint32(value))
	case c.inFlash(addr, 2):
		c.programUnit(addr, value)
	case inOption(addr, 2):
		c.programOption(addr, value)
	default:
		c.violate(ViolationWidth, addr, uint32(value))
	}
}

func (c *Controller) programUnit(addr uint32, value uint16) {
	if c.cr&crPG == 0 {
		c.violate(ViolationProgramNotEnabled, addr, uint32(value))
		return
	}
	if c.powerLost {
		return
	}
	if c.powerBudget == 0 {
		c.powerLost = true
		c.busy = true
		c.sr |= srBSY
		pkg.LogDebug(pkg.ComponentSim, "power lost", "addr", fmt.Sprintf("0x%08X", addr))
		return
	}
	if c.protected(addr) {
		c.sr |= srWRPRTERR
		return
	}
	off := addr - c.cfg.FlashBase
	cur := binary.LittleEndian.Uint16(c.flash[off:])
	if cur != 0xFFFF && value != 0 {
		c.sr |= srPGERR
		return
	}
	if c.powerBudget > 0 {
		c.powerBudget--
	}
	c.start(func() {
		binary.LittleEndian.PutUint16(c.flash[off:], value)
	})
}

func (c *Controller) programOption(addr uint32, value uint16) {
	if c.cr&crOPTPG == 0 || c.cr&crOPTWRE == 0 {
		c.violate(ViolationOptionNotEnabled, addr, uint32(value))
		return
	}
	off := addr - OptionBase
	if binary.LittleEndian.Uint16(c.option[off:]) != 0xFFFF {
		c.sr |= srPGERR
		return
	}
	b := byte(value)
	c.start(func() {
		c.option[off] = b
		c.option[off+1] = ^b
	})
}

// Barrier implements hal.Bus.
func (c *Controller) Barrier() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.barriers++
	c.record(Access{Kind: AccessBarrier})
}

// Delay implements hal.Bus.
func (c *Controller) Delay() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.delays++
	c.stale = false
	c.record(Access{Kind: AccessDelay})
}

func (c *Controller) markStale() {
	if c.cfg.PollErratum {
		c.stale = true
	}
}

func (c *Controller) record(a Access) {
	if c.tracing {
		c.trace = append(c.trace, a)
	}
}

func (c *Controller) violate(kind ViolationKind, addr, value uint32) {
	c.violations = append(c.violations, Violation{Kind: kind, Addr: addr, Value: value})
	pkg.LogWarn(pkg.ComponentSim, "protocol violation",
		"kind", kind.String(),
		"addr", fmt.Sprintf("0x%08X", addr),
		"value", fmt.Sprintf("0x%08X", value))
}

// WriteTo writes the flash array followed by the option bytes to w.
// It implements io.WriterTo.
func (c *Controller) WriteTo(w io.Writer) (int64, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	n, err := w.Write(c.flash)
	if err != nil {
		return int64(n), fmt.Errorf("write flash image: %w", err)
	}
	m, err := w.Write(c.option[:])
	if err != nil {
		return int64(n + m), fmt.Errorf("write option bytes: %w", err)
	}
	return int64(n + m), nil
}

// ReadFrom loads an image written by WriteTo and resets the controller.
// It implements io.ReaderFrom.
func (c *Controller) ReadFrom(r io.Reader) (int64, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	n, err := io.ReadFull(r, c.flash)
	if err != nil {
		return int64(n), fmt.Errorf("read flash image: %w", err)
	}
	m, err := io.ReadFull(r, c.option[:])
	if err != nil {
		return int64(n + m), fmt.Errorf("read option bytes: %w", err)
	}
	c.reset()
	return int64(n + m), nil
}
