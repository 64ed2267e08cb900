// Package profile loads device profiles for host tooling. A profile names a
// device family, its flash geometry and the driver features to enable, and
// may override individual protocol knobs of the family preset.
//
//	family: stm32f1
//	geometry:
//	  page_size: 1024
//	  flash_base: 0x08000000
//	  flash_size_kb: 64
//	  bootloader_size_kb: 16
//	features:
//	  option_bytes: true
//	  safe_wipe: true
//	poll_limit: 100000
//	overrides:
//	  lock_policy: force-relock
package profile

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ardnew/softflash/flash"
)

// Profile describes one device. Fields left out of a YAML document keep
// the values of Default.
type Profile struct {
	Family    string          `yaml:"family"`
	Geometry  GeometryConfig  `yaml:"geometry"`
	Features  FeaturesConfig  `yaml:"features"`
	PollLimit int             `yaml:"poll_limit"`
	Overrides OverridesConfig `yaml:"overrides,omitempty"`
}

// GeometryConfig is the flash layout. Sizes are in KiB.
type GeometryConfig struct {
	PageSize         uint32 `yaml:"page_size"`
	FlashBase        uint32 `yaml:"flash_base"`
	FlashSizeKB      uint32 `yaml:"flash_size_kb"`
	BootloaderSizeKB uint32 `yaml:"bootloader_size_kb"`
}

// FeaturesConfig enables optional driver features.
type FeaturesConfig struct {
	OptionBytes bool `yaml:"option_bytes"`
	SafeWipe    bool `yaml:"safe_wipe"`
}

// OverridesConfig replaces knobs of the family preset. Unset fields keep
// the preset value.
type OverridesConfig struct {
	LockPolicy   string `yaml:"lock_policy,omitempty"`
	PollDelay    *bool  `yaml:"poll_delay,omitempty"`
	OptionUnlock string `yaml:"option_unlock,omitempty"`
	FaultCheck   *bool  `yaml:"fault_check,omitempty"`
}

// Default returns the built-in profile: a GD32F1 part with 64 KiB of flash
// and a 16 KiB bootloader.
func Default() *Profile {
	g := flash.DefaultGeometry
	return &Profile{
		Family: flash.FamilyGD32F1.String(),
		Geometry: GeometryConfig{
			PageSize:         g.PageSize,
			FlashBase:        g.FlashBase,
			FlashSizeKB:      g.FlashSize / 1024,
			BootloaderSizeKB: g.BootloaderSize / 1024,
		},
		PollLimit: flash.DefaultPollLimit,
	}
}

// Load decodes and validates a profile. Fields missing from the document
// keep their Default values; unknown fields are rejected.
func Load(r io.Reader) (*Profile, error) {
	p := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode profile: %w", err)
	}

	if err := Validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadFile loads the profile at path.
func LoadFile(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Marshal encodes p as YAML.
func (p *Profile) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}

// FlashGeometry returns the flash geometry of p.
func (p *Profile) FlashGeometry() flash.Geometry {
	return flash.Geometry{
		PageSize:       p.Geometry.PageSize,
		FlashBase:      p.Geometry.FlashBase,
		FlashSize:      p.Geometry.FlashSizeKB * 1024,
		BootloaderSize: p.Geometry.BootloaderSizeKB * 1024,
	}
}

// Options returns the driver options described by p. The family preset is
// applied first so that overrides take precedence. p must be valid.
func (p *Profile) Options() []flash.Option {
	family, _ := parseFamily(p.Family)
	opts := []flash.Option{
		flash.WithFamily(family),
		flash.WithGeometry(p.FlashGeometry()),
		flash.WithOptionBytes(p.Features.OptionBytes),
		flash.WithSafeWipe(p.Features.SafeWipe),
	}
	if p.PollLimit > 0 {
		opts = append(opts, flash.WithPollLimit(p.PollLimit))
	}

	o := p.Overrides
	if o.LockPolicy != "" {
		policy, _ := parseLockPolicy(o.LockPolicy)
		opts = append(opts, flash.WithLockPolicy(policy))
	}
	if o.PollDelay != nil {
		opts = append(opts, flash.WithPollDelay(*o.PollDelay))
	}
	if o.OptionUnlock != "" {
		unlock, _ := parseOptionUnlock(o.OptionUnlock)
		opts = append(opts, flash.WithOptionUnlock(unlock))
	}
	if o.FaultCheck != nil {
		opts = append(opts, flash.WithFaultCheck(*o.FaultCheck))
	}
	return opts
}

func parseFamily(s string) (flash.Family, error) {
	for _, f := range []flash.Family{flash.FamilyGD32F1, flash.FamilySTM32F1} {
		if s == f.String() {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown family %q", s)
}

func parseLockPolicy(s string) (flash.LockPolicy, error) {
	for _, lp := range []flash.LockPolicy{flash.LockPolicyForceRelock, flash.LockPolicyIfLocked} {
		if s == lp.String() {
			return lp, nil
		}
	}
	return 0, fmt.Errorf("unknown lock_policy %q", s)
}

func parseOptionUnlock(s string) (flash.OptionUnlock, error) {
	for _, ou := range []flash.OptionUnlock{flash.OptionUnlockAlways, flash.OptionUnlockGated} {
		if s == ou.String() {
			return ou, nil
		}
	}
	return 0, fmt.Errorf("unknown option_unlock %q", s)
}
