package flash

import "github.com/ardnew/softflash/pkg"

// ErasePage erases the flash page starting at addr. The controller must be
// unlocked. addr must be page aligned and inside flash. The bootloader
// region is not excluded; keeping a command out of it is the caller's
// policy, for example by checking Geometry().AppRegion().
//
// On success every byte of the page reads 0xFF.
func (d *Driver) ErasePage(addr uint32) error {
	if err := d.checkPage(addr); err != nil {
		return opError("erase", addr, err)
	}
	return opError("erase", addr, d.erasePage(addr))
}

// checkPage validates a page address.
func (d *Driver) checkPage(addr uint32) error {
	g := d.cfg.Geometry
	if !g.Region().Contains(addr, g.PageSize) {
		return pkg.ErrOutOfRange
	}
	if (addr-g.FlashBase)%g.PageSize != 0 {
		return pkg.ErrMisalignedAddress
	}
	return nil
}

func (d *Driver) erasePage(addr uint32) error {
	if err := d.wait(); err != nil {
		return err
	}
	d.clearStatus()

	if err := d.enable(crPER); err != nil {
		return err
	}
	d.write(regAR, addr)
	d.set(regCR, crSTRT)
	if err := d.wait(); err != nil {
		return err
	}
	d.clear(regCR, crPER)

	if err := d.checkFault(); err != nil {
		return err
	}
	d.logDebug(pkg.ComponentFlash, "page erased", "addr", hex32(addr))
	return nil
}

// PageIsErased reports whether every word of the page at addr reads
// 0xFFFFFFFF. It returns false for an address that is not a valid page.
func (d *Driver) PageIsErased(addr uint32) bool {
	if d.checkPage(addr) != nil {
		return false
	}
	end := addr + d.cfg.Geometry.PageSize
	for a := addr; a < end; a += 4 {
		if d.bus.Load32(a) != 0xFFFFFFFF {
			return false
		}
	}
	return true
}
