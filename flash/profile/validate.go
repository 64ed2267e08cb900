package profile

import (
	"fmt"

	"github.com/ardnew/softflash/pkg"
)

// Validate checks profile correctness.
// It performs declarative validation only and does not mutate p.
func Validate(p *Profile) error {
	if p == nil {
		return fmt.Errorf("%w: nil profile", pkg.ErrInvalidParameter)
	}

	if _, err := parseFamily(p.Family); err != nil {
		return fmt.Errorf("%w: %v", pkg.ErrInvalidParameter, err)
	}

	// ---- geometry ----

	if p.Geometry.FlashSizeKB == 0 {
		return fmt.Errorf("%w: geometry: flash_size_kb must be set", pkg.ErrInvalidParameter)
	}
	if p.Geometry.FlashSizeKB > 4*1024*1024 {
		return fmt.Errorf("%w: geometry: flash_size_kb %d exceeds the address space",
			pkg.ErrInvalidParameter, p.Geometry.FlashSizeKB)
	}
	if p.Geometry.BootloaderSizeKB >= p.Geometry.FlashSizeKB {
		return fmt.Errorf("%w: geometry: bootloader_size_kb %d must be below flash_size_kb %d",
			pkg.ErrInvalidParameter, p.Geometry.BootloaderSizeKB, p.Geometry.FlashSizeKB)
	}
	if err := p.FlashGeometry().Validate(); err != nil {
		return fmt.Errorf("geometry: %w", err)
	}

	// ---- poll bound ----

	if p.PollLimit < 0 {
		return fmt.Errorf("%w: poll_limit %d must not be negative", pkg.ErrInvalidParameter, p.PollLimit)
	}

	// ---- overrides ----

	if s := p.Overrides.LockPolicy; s != "" {
		if _, err := parseLockPolicy(s); err != nil {
			return fmt.Errorf("%w: overrides: %v", pkg.ErrInvalidParameter, err)
		}
	}
	if s := p.Overrides.OptionUnlock; s != "" {
		if _, err := parseOptionUnlock(s); err != nil {
			return fmt.Errorf("%w: overrides: %v", pkg.ErrInvalidParameter, err)
		}
		if !p.Features.OptionBytes {
			return fmt.Errorf("%w: overrides: option_unlock set without features.option_bytes",
				pkg.ErrInvalidParameter)
		}
	}

	return nil
}
