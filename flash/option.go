package flash

import (
	"github.com/ardnew/softflash/flash/hal"
	"github.com/ardnew/softflash/pkg"
)

// rdpUnprotected is the RDP value that leaves readout protection disabled.
// Any other value, including the erased 0xFF, enables it.
const rdpUnprotected = 0xA5

var optionRegion = hal.Region{Base: OptionBase, Size: OptionSize}

// UnlockOptionBytes authorizes option-byte erase and program by writing the
// key sequence to OPTKEYR, following the configured OptionUnlock policy.
// The main flash area must already be unlocked.
func (d *Driver) UnlockOptionBytes() error {
	if !d.cfg.OptionBytes {
		return opError("unlock options", regOPTKEYR, pkg.ErrNotSupported)
	}
	if d.Locked() {
		return opError("unlock options", regOPTKEYR, pkg.ErrLocked)
	}

	switch d.cfg.OptionUnlock {
	case OptionUnlockGated:
		if d.read(regCR)&crOPTWRE == 0 {
			d.writeKeys(regOPTKEYR)
		}
	default:
		d.writeKeys(regOPTKEYR)
	}

	if d.read(regCR)&crOPTWRE == 0 {
		return opError("unlock options", regOPTKEYR, pkg.ErrLocked)
	}
	d.logDebug(pkg.ComponentOption, "option bytes unlocked")
	return nil
}

// optionsWritable checks the feature toggle and OPTWRE.
func (d *Driver) optionsWritable() error {
	if !d.cfg.OptionBytes {
		return pkg.ErrNotSupported
	}
	if d.read(regCR)&crOPTWRE == 0 {
		return pkg.ErrLocked
	}
	return nil
}

// EraseOptionBytes erases the whole option-byte region. Until RDP is
// reprogrammed to 0xA5, the device comes out of the next reset with
// readout protection enabled.
func (d *Driver) EraseOptionBytes() error {
	if err := d.optionsWritable(); err != nil {
		return opError("erase options", OptionBase, err)
	}
	return opError("erase options", OptionBase, d.eraseOptionBytes())
}

func (d *Driver) eraseOptionBytes() error {
	if err := d.wait(); err != nil {
		return err
	}
	d.clearStatus()

	if err := d.enable(crOPTER); err != nil {
		return err
	}
	d.set(regCR, crSTRT)
	if err := d.wait(); err != nil {
		return err
	}
	d.clear(regCR, crOPTER)

	if err := d.checkFault(); err != nil {
		return err
	}
	d.logDebug(pkg.ComponentOption, "option bytes erased")
	return nil
}

// ProgramOptionByte programs the option half-word at addr. The controller
// stores the low byte of value and its complement.
func (d *Driver) ProgramOptionByte(addr uint32, value uint16) error {
	if addr%ProgramUnit != 0 {
		return opError("program option", addr, pkg.ErrMisalignedAddress)
	}
	if !optionRegion.Contains(addr, ProgramUnit) {
		return opError("program option", addr, pkg.ErrOutOfRange)
	}
	if err := d.optionsWritable(); err != nil {
		return opError("program option", addr, err)
	}
	return opError("program option", addr, d.programOptionByte(addr, value))
}

func (d *Driver) programOptionByte(addr uint32, value uint16) error {
	if err := d.wait(); err != nil {
		return err
	}
	d.clearStatus()

	if err := d.enable(crOPTPG); err != nil {
		return err
	}
	d.bus.Store16(addr, value)
	d.bus.Barrier()
	if err := d.wait(); err != nil {
		return err
	}
	d.clear(regCR, crOPTPG)

	if err := d.checkFault(); err != nil {
		return err
	}
	d.logDebug(pkg.ComponentOption, "option byte programmed", "addr", hex32(addr), "value", value&0xFF)
	return nil
}

// OptionBytes is the decoded option-byte region.
type OptionBytes struct {
	RDP   uint8
	USER  uint8
	Data0 uint8
	Data1 uint8
	WRP   [4]uint8

	// Valid is false if any byte does not match its complement.
	Valid bool
}

// ReadoutProtected reports whether RDP enables readout protection.
func (o OptionBytes) ReadoutProtected() bool {
	return o.RDP != rdpUnprotected
}

// WriteProtected returns the write protection mask: bit n set means
// protection granule n is protected. The WRP bytes store the inverse.
func (o OptionBytes) WriteProtected() uint32 {
	return ^(uint32(o.WRP[0]) | uint32(o.WRP[1])<<8 | uint32(o.WRP[2])<<16 | uint32(o.WRP[3])<<24)
}

// ReadOptionBytes reads and decodes the option-byte region. The values
// are those stored in flash, which take effect at the next reset.
func (d *Driver) ReadOptionBytes() OptionBytes {
	var raw [OptionSize / 2]uint16
	for i := range raw {
		raw[i] = d.bus.Load16(OptionBase + uint32(i)*2)
	}

	ob := OptionBytes{Valid: true}
	for _, hw := range raw {
		if byte(hw) != ^byte(hw>>8) {
			ob.Valid = false
		}
	}
	ob.RDP = byte(raw[0])
	ob.USER = byte(raw[1])
	ob.Data0 = byte(raw[2])
	ob.Data1 = byte(raw[3])
	for i := range ob.WRP {
		ob.WRP[i] = byte(raw[4+i])
	}
	return ob
}

// ActiveProtection reports the protection latched by the controller at the
// last reset: readout protection from OBR and the write protection mask
// (bit set = protected) from WRPR.
func (d *Driver) ActiveProtection() (readout bool, writeProtected uint32) {
	return d.read(regOBR)&(1<<1) != 0, ^d.read(regWRPR)
}

// Protection is the desired device protection.
type Protection struct {
	// Readout enables readout protection.
	Readout bool

	// User is the USER option byte. Zero selects the erased value 0xFF.
	User uint8

	// WriteProtect is the write protection mask: bit n set protects
	// granule n.
	WriteProtect uint32
}

// rdpProtected is the RDP value programmed to enable readout protection.
const rdpProtected = 0x00

// ApplyProtection rewrites the option bytes to match p. It unlocks the
// option bytes, erases them and programs every option half-word so that
// each byte matches its complement. DATA0 and DATA1 keep their previous
// values. The main area must be unlocked. Changes take effect after the
// next reset.
//
// An error after the erase leaves the device readout protected.
func (d *Driver) ApplyProtection(p Protection) error {
	if err := d.UnlockOptionBytes(); err != nil {
		return err
	}
	prev := d.ReadOptionBytes()

	rdp := uint8(rdpUnprotected)
	if p.Readout {
		rdp = rdpProtected
	}
	user := p.User
	if user == 0 {
		user = 0xFF
	}
	values := [OptionSize / 2]uint8{rdp, user, prev.Data0, prev.Data1}
	for i := 0; i < 4; i++ {
		values[4+i] = ^byte(p.WriteProtect >> (8 * i))
	}

	if err := d.EraseOptionBytes(); err != nil {
		return err
	}
	for i, v := range values {
		if err := d.ProgramOptionByte(OptionBase+uint32(i)*2, uint16(v)); err != nil {
			return err
		}
	}

	d.logInfo(pkg.ComponentOption, "protection applied",
		"readout", p.Readout,
		"writeProtect", hex32(p.WriteProtect))
	return nil
}
