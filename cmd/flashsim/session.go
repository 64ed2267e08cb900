package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/ardnew/softflash/flash"
	"github.com/ardnew/softflash/flash/hal/sim"
	"github.com/ardnew/softflash/flash/profile"
	"github.com/ardnew/softflash/pkg"
)

// session is one power cycle of the simulated device.
type session struct {
	profile *profile.Profile
	ctl     *sim.Controller
	drv     *flash.Driver
	state   string
}

// openSession loads the profile and the persisted image and builds a
// driver over the simulator. extra options are applied after the profile.
func openSession(g *globalFlags, extra ...flash.Option) (*session, error) {
	p := profile.Default()
	if g.profile != "" {
		var err error
		if p, err = profile.LoadFile(g.profile); err != nil {
			return nil, err
		}
	}

	geo := p.FlashGeometry()
	ctl := sim.New(sim.WithGeometry(geo.FlashBase, geo.FlashSize, geo.PageSize))

	data, err := os.ReadFile(g.state)
	switch {
	case errors.Is(err, os.ErrNotExist):
		pkg.LogInfo(pkg.ComponentCLI, "new flash image", "path", g.state)
	case err != nil:
		return nil, err
	default:
		if _, err := ctl.ReadFrom(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("%s: %w", g.state, err)
		}
		pkg.LogDebug(pkg.ComponentCLI, "flash image loaded", "path", g.state, "size", len(data))
	}

	// The latch lives as long as the simulated power cycle.
	opts := append(p.Options(),
		flash.WithLatch(new(flash.Latch)),
		flash.WithLogger(pkg.Logger()))
	opts = append(opts, extra...)

	drv, err := flash.New(ctl, opts...)
	if err != nil {
		return nil, err
	}
	return &session{profile: p, ctl: ctl, drv: drv, state: g.state}, nil
}

// run performs fn through the driver's serialized sequence and saves the
// image, also when fn fails part way.
func (s *session) run(fn func() error) error {
	err := s.drv.Run(fn)
	for _, v := range s.ctl.Violations() {
		pkg.LogWarn(pkg.ComponentSim, "protocol violation",
			"kind", v.Kind.String(),
			"addr", fmt.Sprintf("0x%08X", v.Addr),
			"value", fmt.Sprintf("0x%08X", v.Value))
	}
	if serr := s.save(); serr != nil && err == nil {
		err = serr
	}
	return err
}

func (s *session) save() error {
	var buf bytes.Buffer
	if _, err := s.ctl.WriteTo(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(s.state, buf.Bytes(), 0o644); err != nil {
		return err
	}
	pkg.LogDebug(pkg.ComponentCLI, "flash image saved", "path", s.state, "size", buf.Len())
	return nil
}
