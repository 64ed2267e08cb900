package flash

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ardnew/softflash/pkg"
)

var residue = []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x11, 0x22, 0x33}

func TestEnsureWipedOnce(t *testing.T) {
	d, ctl := newTestDriver(t, nil, WithSafeWipe(true))

	const lastPage = 0x08000000 + 64*1024 - 1024
	boot := []byte{0x00, 0x20, 0x00, 0x20, 0x01, 0x01, 0x00, 0x08}
	ctl.Fill(0x08000000, boot)
	ctl.Fill(testAppBase, residue)
	ctl.Fill(lastPage+512, residue)

	noop := func() error { return nil }
	if err := d.Run(noop); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !d.latch.Done() {
		t.Fatal("latch not set after wipe")
	}
	for _, addr := range []uint32{testAppBase, lastPage} {
		if !d.PageIsErased(addr) {
			t.Errorf("page 0x%08X not erased", addr)
		}
	}
	if got := ctl.Peek(0x08000000, uint32(len(boot))); !bytes.Equal(got, boot) {
		t.Errorf("bootloader = % X, want % X", got, boot)
	}

	// Residue appearing after the wipe is left alone.
	ctl.Fill(testAppBase, residue)
	for i := 0; i < 3; i++ {
		if err := d.Run(noop); err != nil {
			t.Fatalf("Run() #%d error = %v", i, err)
		}
	}
	if got := ctl.Peek(testAppBase, uint32(len(residue))); !bytes.Equal(got, residue) {
		t.Errorf("page rewiped: % X", got)
	}
	if !ctl.Locked() {
		t.Error("controller left unlocked")
	}
	assertNoViolations(t, ctl)
}

func TestEnsureWipedDisabled(t *testing.T) {
	d, ctl := newTestDriver(t, nil)
	ctl.Fill(testAppBase, residue)

	if err := d.Run(func() error { return nil }); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if d.latch.Done() {
		t.Error("latch set with safe wipe disabled")
	}
	if got := ctl.Peek(testAppBase, uint32(len(residue))); !bytes.Equal(got, residue) {
		t.Errorf("application modified: % X", got)
	}
}

func TestEnsureWipedBeforeFirstWrite(t *testing.T) {
	d, ctl := newTestDriver(t, nil, WithSafeWipe(true))
	ctl.Fill(testAppBase+testPage, residue)

	data := []byte{0x01, 0x02, 0x03, 0x04}
	err := d.Run(func() error {
		if err := d.ErasePage(testAppBase); err != nil {
			return err
		}
		return d.Program(testAppBase, data)
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !d.PageIsErased(testAppBase + testPage) {
		t.Error("residue survived first write")
	}
	if got := ctl.Peek(testAppBase, 4); !bytes.Equal(got, data) {
		t.Errorf("programmed = % X, want % X", got, data)
	}
}

func TestEnsureWipedSharedLatch(t *testing.T) {
	latch := new(Latch)
	first, ctl := newTestDriver(t, nil, WithSafeWipe(true), WithLatch(latch))
	if err := first.Run(func() error { return nil }); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	ctl.Fill(testAppBase, residue)
	second, err := New(ctl, WithSafeWipe(true), WithLatch(latch))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := second.Run(func() error { return nil }); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := ctl.Peek(testAppBase, uint32(len(residue))); !bytes.Equal(got, residue) {
		t.Errorf("second driver rewiped: % X", got)
	}

	latch.Reset()
	if err := second.Run(func() error { return nil }); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !second.PageIsErased(testAppBase) {
		t.Error("wipe not repeated after Reset")
	}
}

func TestEnsureWipedFailureLeavesLatchClear(t *testing.T) {
	d, ctl := newTestDriver(t, nil,
		WithFamily(FamilySTM32F1),
		WithOptionBytes(true),
		WithSafeWipe(true))

	// Protect the first application granule, then reset to latch WRPR.
	if err := d.Unlock(); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	if err := d.ApplyProtection(Protection{WriteProtect: 1 << 4}); err != nil {
		t.Fatalf("ApplyProtection() error = %v", err)
	}
	ctl.Reset()
	ctl.Fill(testAppBase, residue)

	called := false
	err := d.Run(func() error {
		called = true
		return nil
	})
	if !errors.Is(err, pkg.ErrWriteProtected) {
		t.Fatalf("Run() error = %v, want %v", err, pkg.ErrWriteProtected)
	}
	var opErr *OpError
	if !errors.As(err, &opErr) || opErr.Op != "wipe" || opErr.Addr != testAppBase {
		t.Errorf("Run() error = %#v, want wipe at 0x%08X", err, testAppBase)
	}
	if called {
		t.Error("operation ran after failed wipe")
	}
	if d.latch.Done() {
		t.Error("latch set after failed wipe")
	}
	if !ctl.Locked() {
		t.Error("controller left unlocked after failed wipe")
	}
}
