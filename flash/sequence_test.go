package flash

import (
	"errors"
	"testing"

	"github.com/golang/mock/gomock"

	"github.com/ardnew/softflash/flash/hal/mock"
	"github.com/ardnew/softflash/pkg"
)

// newMockDriver returns a driver over a strict mock bus. Any access not
// expected by the test fails it.
func newMockDriver(t *testing.T, opts ...Option) (*Driver, *mock.MockBus) {
	t.Helper()
	ctrl := gomock.NewController(t)
	bus := mock.NewMockBus(ctrl)
	opts = append([]Option{WithLatch(new(Latch)), WithPollLimit(8)}, opts...)
	d, err := New(bus, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return d, bus
}

func TestUnlockSequenceForceRelock(t *testing.T) {
	tests := []struct {
		name     string
		crBefore uint32
		relock   bool
	}{
		{"already locked", crLOCK, false},
		{"reports unlocked", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, bus := newMockDriver(t, WithLockPolicy(LockPolicyForceRelock))

			calls := []*gomock.Call{
				bus.EXPECT().Load32(regCR).Return(tt.crBefore),
			}
			if tt.relock {
				calls = append(calls,
					bus.EXPECT().Load32(regCR).Return(tt.crBefore),
					bus.EXPECT().Store32(regCR, uint32(crLOCK)),
					bus.EXPECT().Barrier(),
				)
			}
			calls = append(calls,
				bus.EXPECT().Store32(regKEYR, key1),
				bus.EXPECT().Barrier(),
				bus.EXPECT().Store32(regKEYR, key2),
				bus.EXPECT().Barrier(),
				bus.EXPECT().Load32(regCR).Return(uint32(0)),
			)
			gomock.InOrder(calls...)

			if err := d.Unlock(); err != nil {
				t.Fatalf("Unlock() error = %v", err)
			}
		})
	}
}

func TestUnlockSequenceIfLocked(t *testing.T) {
	t.Run("locked", func(t *testing.T) {
		d, bus := newMockDriver(t, WithLockPolicy(LockPolicyIfLocked))
		gomock.InOrder(
			bus.EXPECT().Load32(regCR).Return(uint32(crLOCK)),
			bus.EXPECT().Store32(regKEYR, key1),
			bus.EXPECT().Barrier(),
			bus.EXPECT().Store32(regKEYR, key2),
			bus.EXPECT().Barrier(),
			bus.EXPECT().Load32(regCR).Return(uint32(0)),
		)
		if err := d.Unlock(); err != nil {
			t.Fatalf("Unlock() error = %v", err)
		}
	})

	t.Run("unlocked", func(t *testing.T) {
		d, bus := newMockDriver(t, WithLockPolicy(LockPolicyIfLocked))
		bus.EXPECT().Load32(regCR).Return(uint32(0)).Times(2)
		if err := d.Unlock(); err != nil {
			t.Fatalf("Unlock() error = %v", err)
		}
	})

	t.Run("keys rejected", func(t *testing.T) {
		d, bus := newMockDriver(t, WithLockPolicy(LockPolicyIfLocked))
		gomock.InOrder(
			bus.EXPECT().Load32(regCR).Return(uint32(crLOCK)),
			bus.EXPECT().Store32(regKEYR, key1),
			bus.EXPECT().Barrier(),
			bus.EXPECT().Store32(regKEYR, key2),
			bus.EXPECT().Barrier(),
			bus.EXPECT().Load32(regCR).Return(uint32(crLOCK)),
		)
		if err := d.Unlock(); !errors.Is(err, pkg.ErrLocked) {
			t.Fatalf("Unlock() error = %v, want %v", err, pkg.ErrLocked)
		}
	})
}

func TestLockSequence(t *testing.T) {
	d, bus := newMockDriver(t)
	gomock.InOrder(
		bus.EXPECT().Load32(regCR).Return(uint32(crPG)),
		bus.EXPECT().Load32(regCR).Return(uint32(crPG)),
		bus.EXPECT().Store32(regCR, uint32(crPG|crLOCK)),
		bus.EXPECT().Barrier(),
	)
	d.Lock()
}

func TestEraseSequence(t *testing.T) {
	const page uint32 = 0x08004000

	t.Run("gd32f1", func(t *testing.T) {
		d, bus := newMockDriver(t, WithFamily(FamilyGD32F1))
		gomock.InOrder(
			bus.EXPECT().Load32(regSR).Return(uint32(0)),
			bus.EXPECT().Load32(regCR).Return(uint32(0)),
			bus.EXPECT().Store32(regCR, uint32(crPER)),
			bus.EXPECT().Barrier(),
			bus.EXPECT().Load32(regCR).Return(uint32(crPER)),
			bus.EXPECT().Store32(regAR, page),
			bus.EXPECT().Barrier(),
			bus.EXPECT().Load32(regCR).Return(uint32(crPER)),
			bus.EXPECT().Store32(regCR, uint32(crPER|crSTRT)),
			bus.EXPECT().Barrier(),
			bus.EXPECT().Load32(regSR).Return(uint32(srBSY)),
			bus.EXPECT().Load32(regSR).Return(uint32(srBSY)),
			bus.EXPECT().Load32(regSR).Return(uint32(srEOP)),
			bus.EXPECT().Load32(regCR).Return(uint32(crPER)),
			bus.EXPECT().Store32(regCR, uint32(0)),
			bus.EXPECT().Barrier(),
		)
		if err := d.ErasePage(page); err != nil {
			t.Fatalf("ErasePage() error = %v", err)
		}
	})

	t.Run("stm32f1", func(t *testing.T) {
		d, bus := newMockDriver(t, WithFamily(FamilySTM32F1))
		gomock.InOrder(
			bus.EXPECT().Delay(),
			bus.EXPECT().Load32(regSR).Return(uint32(0)),
			bus.EXPECT().Store32(regSR, uint32(srPGERR|srWRPRTERR|srEOP)),
			bus.EXPECT().Barrier(),
			bus.EXPECT().Load32(regCR).Return(uint32(0)),
			bus.EXPECT().Store32(regCR, uint32(crPER)),
			bus.EXPECT().Barrier(),
			bus.EXPECT().Load32(regCR).Return(uint32(crPER)),
			bus.EXPECT().Store32(regAR, page),
			bus.EXPECT().Barrier(),
			bus.EXPECT().Load32(regCR).Return(uint32(crPER)),
			bus.EXPECT().Store32(regCR, uint32(crPER|crSTRT)),
			bus.EXPECT().Barrier(),
			bus.EXPECT().Delay(),
			bus.EXPECT().Load32(regSR).Return(uint32(srBSY)),
			bus.EXPECT().Delay(),
			bus.EXPECT().Load32(regSR).Return(uint32(srEOP)),
			bus.EXPECT().Load32(regCR).Return(uint32(crPER)),
			bus.EXPECT().Store32(regCR, uint32(0)),
			bus.EXPECT().Barrier(),
			bus.EXPECT().Load32(regSR).Return(uint32(srWRPRTERR)),
		)
		if err := d.ErasePage(page); !errors.Is(err, pkg.ErrWriteProtected) {
			t.Fatalf("ErasePage() error = %v, want %v", err, pkg.ErrWriteProtected)
		}
	})
}

func TestEraseTimeoutSequence(t *testing.T) {
	d, bus := newMockDriver(t, WithPollLimit(3))
	bus.EXPECT().Load32(regSR).Return(uint32(srBSY)).Times(3)

	if err := d.ErasePage(0x08004000); !errors.Is(err, pkg.ErrControllerTimeout) {
		t.Fatalf("ErasePage() error = %v, want %v", err, pkg.ErrControllerTimeout)
	}
}

func TestProgramSequence(t *testing.T) {
	const addr uint32 = 0x08004000

	d, bus := newMockDriver(t, WithFamily(FamilyGD32F1))
	gomock.InOrder(
		bus.EXPECT().Load32(regSR).Return(uint32(0)),
		bus.EXPECT().Load32(regCR).Return(uint32(0)),
		bus.EXPECT().Store32(regCR, uint32(crPG)),
		bus.EXPECT().Barrier(),
		bus.EXPECT().Load32(regCR).Return(uint32(crPG)),
		bus.EXPECT().Store16(addr, uint16(0x3412)),
		bus.EXPECT().Barrier(),
		bus.EXPECT().Load32(regSR).Return(uint32(srBSY)),
		bus.EXPECT().Load32(regSR).Return(uint32(0)),
		bus.EXPECT().Store16(addr+2, uint16(0x7856)),
		bus.EXPECT().Barrier(),
		bus.EXPECT().Load32(regSR).Return(uint32(0)),
		bus.EXPECT().Load32(regCR).Return(uint32(crPG)),
		bus.EXPECT().Store32(regCR, uint32(0)),
		bus.EXPECT().Barrier(),
	)

	if err := d.Program(addr, []byte{0x12, 0x34, 0x56, 0x78}); err != nil {
		t.Fatalf("Program() error = %v", err)
	}
}

func TestRejectedCallsTouchNothing(t *testing.T) {
	// The mock has no expectations: any bus access fails the test.
	d, _ := newMockDriver(t, WithOptionBytes(true))

	if err := d.Program(0x08004000, []byte{0x12}); !errors.Is(err, pkg.ErrMisalignedAddress) {
		t.Errorf("Program() error = %v, want %v", err, pkg.ErrMisalignedAddress)
	}
	if err := d.Program(0x08004000, nil); err != nil {
		t.Errorf("Program(nil) error = %v", err)
	}
	if err := d.ErasePage(0x08004001); !errors.Is(err, pkg.ErrMisalignedAddress) {
		t.Errorf("ErasePage() error = %v, want %v", err, pkg.ErrMisalignedAddress)
	}
	if err := d.ProgramOptionByte(OptionBase+1, 0); !errors.Is(err, pkg.ErrMisalignedAddress) {
		t.Errorf("ProgramOptionByte() error = %v, want %v", err, pkg.ErrMisalignedAddress)
	}
	if err := d.ProgramOptionByte(OptionBase+OptionSize, 0); !errors.Is(err, pkg.ErrOutOfRange) {
		t.Errorf("ProgramOptionByte() error = %v, want %v", err, pkg.ErrOutOfRange)
	}
}

func TestOptionUnlockSequence(t *testing.T) {
	t.Run("always", func(t *testing.T) {
		d, bus := newMockDriver(t, WithOptionBytes(true), WithOptionUnlock(OptionUnlockAlways))
		gomock.InOrder(
			bus.EXPECT().Load32(regCR).Return(uint32(crOPTWRE)),
			bus.EXPECT().Store32(regOPTKEYR, key1),
			bus.EXPECT().Barrier(),
			bus.EXPECT().Store32(regOPTKEYR, key2),
			bus.EXPECT().Barrier(),
			bus.EXPECT().Load32(regCR).Return(uint32(crOPTWRE)),
		)
		if err := d.UnlockOptionBytes(); err != nil {
			t.Fatalf("UnlockOptionBytes() error = %v", err)
		}
	})

	t.Run("gated", func(t *testing.T) {
		d, bus := newMockDriver(t, WithOptionBytes(true), WithOptionUnlock(OptionUnlockGated))
		bus.EXPECT().Load32(regCR).Return(uint32(crOPTWRE)).Times(3)
		if err := d.UnlockOptionBytes(); err != nil {
			t.Fatalf("UnlockOptionBytes() error = %v", err)
		}
	})
}

func TestOptionEraseSequence(t *testing.T) {
	d, bus := newMockDriver(t, WithOptionBytes(true))
	gomock.InOrder(
		bus.EXPECT().Load32(regCR).Return(uint32(crOPTWRE)),
		bus.EXPECT().Load32(regSR).Return(uint32(0)),
		bus.EXPECT().Load32(regCR).Return(uint32(crOPTWRE)),
		bus.EXPECT().Store32(regCR, uint32(crOPTWRE|crOPTER)),
		bus.EXPECT().Barrier(),
		bus.EXPECT().Load32(regCR).Return(uint32(crOPTWRE|crOPTER)),
		bus.EXPECT().Load32(regCR).Return(uint32(crOPTWRE|crOPTER)),
		bus.EXPECT().Store32(regCR, uint32(crOPTWRE|crOPTER|crSTRT)),
		bus.EXPECT().Barrier(),
		bus.EXPECT().Load32(regSR).Return(uint32(srBSY)),
		bus.EXPECT().Load32(regSR).Return(uint32(0)),
		bus.EXPECT().Load32(regCR).Return(uint32(crOPTWRE|crOPTER)),
		bus.EXPECT().Store32(regCR, uint32(crOPTWRE)),
		bus.EXPECT().Barrier(),
	)
	if err := d.EraseOptionBytes(); err != nil {
		t.Fatalf("EraseOptionBytes() error = %v", err)
	}
}

func TestOptionProgramSequence(t *testing.T) {
	d, bus := newMockDriver(t, WithOptionBytes(true))
	gomock.InOrder(
		bus.EXPECT().Load32(regCR).Return(uint32(crOPTWRE)),
		bus.EXPECT().Load32(regSR).Return(uint32(0)),
		bus.EXPECT().Load32(regCR).Return(uint32(crOPTWRE)),
		bus.EXPECT().Store32(regCR, uint32(crOPTWRE|crOPTPG)),
		bus.EXPECT().Barrier(),
		bus.EXPECT().Load32(regCR).Return(uint32(crOPTWRE|crOPTPG)),
		bus.EXPECT().Store16(OptionRDP, uint16(0x00A5)),
		bus.EXPECT().Barrier(),
		bus.EXPECT().Load32(regSR).Return(uint32(0)),
		bus.EXPECT().Load32(regCR).Return(uint32(crOPTWRE|crOPTPG)),
		bus.EXPECT().Store32(regCR, uint32(crOPTWRE)),
		bus.EXPECT().Barrier(),
	)
	if err := d.ProgramOptionByte(OptionRDP, 0x00A5); err != nil {
		t.Fatalf("ProgramOptionByte() error = %v", err)
	}
}
