package sim

// Test and tooling hooks. None of these are reachable through hal.Bus.

// SetTrace enables or disables access tracing. Disabling clears the trace.
func (c *Controller) SetTrace(enabled bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.tracing = enabled
	if !enabled {
		c.trace = nil
	}
}

// Trace returns a copy of the recorded accesses.
func (c *Controller) Trace() []Access {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return append([]Access(nil), c.trace...)
}

// Violations returns a copy of the recorded protocol violations.
func (c *Controller) Violations() []Violation {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return append([]Violation(nil), c.violations...)
}

// ClearViolations discards recorded violations.
func (c *Controller) ClearViolations() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.violations = nil
}

// Counters returns the number of stores, barriers and delays observed.
func (c *Controller) Counters() (stores, barriers, delays int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.stores, c.barriers, c.delays
}

// Locked reports the state of CR.LOCK.
func (c *Controller) Locked() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.cr&crLOCK != 0
}

// KeyFault reports whether a bad key sequence locked the controller until
// the next reset.
func (c *Controller) KeyFault() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.keyFault
}

// SetStuck holds BSY set indefinitely, as on a controller that never
// completes. Clearing it lets a pending operation complete normally.
func (c *Controller) SetStuck(stuck bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.stuck = stuck
	if stuck {
		c.busy = true
		c.sr |= srBSY
	}
}

// CutPowerAfter lets n more half-word programs complete; the next one is
// lost along with power and the controller stays busy until Reset.
// A negative n disables power loss.
func (c *Controller) CutPowerAfter(n int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.powerBudget = n
}

// Fill writes data directly into the flash array at addr, bypassing the
// controller. It models residue left by earlier firmware.
func (c *Controller) Fill(addr uint32, data []byte) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if !c.inFlash(addr, uint32(len(data))) {
		return false
	}
	copy(c.flash[addr-c.cfg.FlashBase:], data)
	return true
}

// Peek returns a copy of n bytes of the flash array at addr, bypassing the
// controller.
func (c *Controller) Peek(addr, n uint32) []byte {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if !c.inFlash(addr, n) {
		return nil
	}
	off := addr - c.cfg.FlashBase
	return append([]byte(nil), c.flash[off:off+n]...)
}

// OptionBytes returns a copy of the raw option byte region.
func (c *Controller) OptionBytes() [OptionSize]byte {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.option
}
