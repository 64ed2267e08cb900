package flash

import "github.com/ardnew/softflash/pkg"

// Program writes data to flash at addr one half-word at a time. The
// controller must be unlocked and the target range erased. addr and
// len(data) must be even. An empty buffer is a no-op.
//
// Programming is not atomic. If a unit fails or the controller stops
// responding, the units before it stay programmed and the rest of the
// range stays erased; the returned *OpError carries the failing address.
// Arguments are validated before any bus access.
func (d *Driver) Program(addr uint32, data []byte) error {
	if addr%ProgramUnit != 0 || len(data)%ProgramUnit != 0 {
		return opError("program", addr, pkg.ErrMisalignedAddress)
	}
	if len(data) == 0 {
		return nil
	}
	if !d.cfg.Geometry.Region().Contains(addr, uint32(len(data))) {
		return opError("program", addr, pkg.ErrOutOfRange)
	}

	at, err := d.program(addr, data)
	return opError("program", at, err)
}

// program returns the address of the failing unit along with any error.
func (d *Driver) program(addr uint32, data []byte) (uint32, error) {
	if err := d.wait(); err != nil {
		return addr, err
	}
	d.clearStatus()

	if err := d.enable(crPG); err != nil {
		return addr, err
	}

	for i := 0; i < len(data); i += ProgramUnit {
		at := addr + uint32(i)
		d.bus.Store16(at, uint16(data[i])|uint16(data[i+1])<<8)
		d.bus.Barrier()
		if err := d.wait(); err != nil {
			// CR cannot be written while the controller is busy.
			return at, err
		}
		if err := d.checkFault(); err != nil {
			d.clear(regCR, crPG)
			return at, err
		}
	}

	d.clear(regCR, crPG)
	d.logDebug(pkg.ComponentFlash, "programmed", "addr", hex32(addr), "len", len(data))
	return addr, nil
}

// ReadAt reads len(p) bytes of flash starting at addr into p.
func (d *Driver) ReadAt(p []byte, addr uint32) (int, error) {
	if !d.cfg.Geometry.Region().Contains(addr, uint32(len(p))) {
		return 0, opError("read", addr, pkg.ErrOutOfRange)
	}
	for i := range p {
		a := addr + uint32(i)
		p[i] = byte(d.bus.Load16(a&^1) >> (8 * (a & 1)))
	}
	return len(p), nil
}
