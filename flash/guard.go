package flash

import (
	"sync/atomic"

	"github.com/ardnew/softflash/pkg"
)

// Latch records that the safe wipe has completed. It starts clear and is
// set exactly once; only Reset clears it again.
type Latch struct {
	done atomic.Bool
}

// DefaultLatch is the process-wide latch used by drivers that are not
// given one with WithLatch.
var DefaultLatch = new(Latch)

// Done reports whether the wipe has completed.
func (l *Latch) Done() bool {
	return l.done.Load()
}

// Reset clears the latch. Firmware never calls it.
func (l *Latch) Reset() {
	l.done.Store(false)
}

func (l *Latch) set() {
	l.done.Store(true)
}

// EnsureWiped erases every page of the application region that is not
// already erased, once per latch lifetime, so that no residue of earlier
// firmware survives the first write or erase. The controller must be
// unlocked. It is a no-op when safe wipe is disabled or already done.
//
// If an erase fails the latch stays clear and the next call rescans.
func (d *Driver) EnsureWiped() error {
	if !d.cfg.SafeWipe || d.latch.Done() {
		return nil
	}

	app := d.cfg.Geometry.AppRegion()
	erased := 0
	for addr := app.Base; addr < app.End(); addr += d.cfg.Geometry.PageSize {
		if d.PageIsErased(addr) {
			continue
		}
		if err := d.erasePage(addr); err != nil {
			d.logWarn(pkg.ComponentGuard, "wipe aborted", "addr", hex32(addr), "error", err)
			return opError("wipe", addr, err)
		}
		erased++
	}

	d.latch.set()
	d.logInfo(pkg.ComponentGuard, "application region wiped",
		"start", hex32(app.Base),
		"end", hex32(app.End()),
		"erased", erased)
	return nil
}
