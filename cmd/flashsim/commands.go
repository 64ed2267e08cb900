package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ardnew/softflash/flash"
	"github.com/ardnew/softflash/pkg"
)

// parseUint32 accepts decimal, 0x hex, 0o octal and 0b binary.
func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a 32-bit number", pkg.ErrInvalidParameter, s)
	}
	return uint32(v), nil
}

func newInfoCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the device profile and flash state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(g)
			if err != nil {
				return err
			}
			cfg := s.drv.Config()
			geo := cfg.Geometry
			app := geo.AppRegion()

			erased := 0
			for addr := app.Base; addr < app.End(); addr += geo.PageSize {
				if s.drv.PageIsErased(addr) {
					erased++
				}
			}
			readout, wrp := s.drv.ActiveProtection()

			printf(cmd, "family:        %s\n", cfg.Family)
			printf(cmd, "lock policy:   %s\n", cfg.LockPolicy)
			printf(cmd, "option unlock: %s\n", cfg.OptionUnlock)
			printf(cmd, "poll delay:    %t\n", cfg.PollDelay)
			printf(cmd, "fault check:   %t\n", cfg.FaultCheck)
			printf(cmd, "poll limit:    %d\n", cfg.PollLimit)
			printf(cmd, "option bytes:  %t\n", cfg.OptionBytes)
			printf(cmd, "safe wipe:     %t\n", cfg.SafeWipe)
			printf(cmd, "flash:         0x%08X-0x%08X (%d pages of %d bytes)\n",
				geo.FlashBase, geo.Region().End(), geo.Pages(), geo.PageSize)
			printf(cmd, "application:   0x%08X-0x%08X (%d of %d pages erased)\n",
				app.Base, app.End(), erased, app.Size/geo.PageSize)
			printf(cmd, "locked:        %t\n", s.drv.Locked())
			printf(cmd, "readout prot:  %t\n", readout)
			printf(cmd, "write prot:    0x%08X\n", wrp)
			return nil
		},
	}
}

func newEraseCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "erase <addr>",
		Short: "Erase the flash page at addr",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseUint32(args[0])
			if err != nil {
				return err
			}
			s, err := openSession(g)
			if err != nil {
				return err
			}
			if err := s.run(func() error { return s.drv.ErasePage(addr) }); err != nil {
				return err
			}
			printf(cmd, "erased page 0x%08X\n", addr)
			return nil
		},
	}
}

func newProgramCmd(g *globalFlags) *cobra.Command {
	var erase bool

	cmd := &cobra.Command{
		Use:   "program <addr> <file>",
		Short: "Program the contents of file at addr",
		Long:  "Program the contents of file at addr. An odd-length file is padded with one 0xFF byte. The target range must be erased unless --erase is given.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseUint32(args[0])
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			if len(data)%flash.ProgramUnit != 0 {
				data = append(data, 0xFF)
			}

			s, err := openSession(g)
			if err != nil {
				return err
			}
			err = s.run(func() error {
				if erase {
					if err := erasePages(s.drv, addr, uint32(len(data))); err != nil {
						return err
					}
				}
				return s.drv.Program(addr, data)
			})
			if err != nil {
				return err
			}
			printf(cmd, "programmed %d bytes at 0x%08X\n", len(data), addr)
			return nil
		},
	}
	cmd.Flags().BoolVar(&erase, "erase", false, "erase the pages covering the target range first")
	return cmd
}

func newLoadCmd(g *globalFlags) *cobra.Command {
	var erase bool

	cmd := &cobra.Command{
		Use:   "load <file.hex>",
		Short: "Program every segment of an Intel HEX file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			segs, err := loadIntelHex(args[0])
			if err != nil {
				return err
			}
			s, err := openSession(g)
			if err != nil {
				return err
			}
			err = s.run(func() error {
				for _, seg := range segs {
					if erase {
						if err := erasePages(s.drv, seg.addr, uint32(len(seg.data))); err != nil {
							return err
						}
					}
					if err := s.drv.Program(seg.addr, seg.data); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
			for _, seg := range segs {
				printf(cmd, "programmed %d bytes at 0x%08X\n", len(seg.data), seg.addr)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&erase, "erase", false, "erase the pages covering each segment first")
	return cmd
}

func newCheckCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check <addr>",
		Short: "Report whether the page at addr is erased",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseUint32(args[0])
			if err != nil {
				return err
			}
			s, err := openSession(g)
			if err != nil {
				return err
			}
			if s.drv.PageIsErased(addr) {
				printf(cmd, "0x%08X: erased\n", addr)
			} else {
				printf(cmd, "0x%08X: not erased\n", addr)
			}
			return nil
		},
	}
}

func newDumpCmd(g *globalFlags) *cobra.Command {
	var ihex bool

	cmd := &cobra.Command{
		Use:   "dump <addr> <len>",
		Short: "Hex dump len bytes of flash at addr",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseUint32(args[0])
			if err != nil {
				return err
			}
			n, err := parseUint32(args[1])
			if err != nil {
				return err
			}
			s, err := openSession(g)
			if err != nil {
				return err
			}
			if !s.drv.Geometry().Region().Contains(addr, n) {
				return fmt.Errorf("%w: 0x%08X+%d", pkg.ErrOutOfRange, addr, n)
			}
			buf := make([]byte, n)
			if _, err := s.drv.ReadAt(buf, addr); err != nil {
				return err
			}
			if ihex {
				return writeIntelHex(cmd.OutOrStdout(), addr, buf)
			}
			printf(cmd, "%s", hex.Dump(buf))
			return nil
		},
	}
	cmd.Flags().BoolVar(&ihex, "ihex", false, "write Intel HEX instead of a hex dump")
	return cmd
}

func newWipeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "wipe",
		Short: "Erase every non-erased page of the application region",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(g, flash.WithSafeWipe(true))
			if err != nil {
				return err
			}
			if err := s.run(func() error { return nil }); err != nil {
				return err
			}
			app := s.drv.Geometry().AppRegion()
			printf(cmd, "wiped 0x%08X-0x%08X\n", app.Base, app.End())
			return nil
		},
	}
}

func newProtectCmd(g *globalFlags) *cobra.Command {
	var (
		readout bool
		user    uint8
		wrp     string
	)

	cmd := &cobra.Command{
		Use:   "protect",
		Short: "Rewrite the option bytes with the given protection",
		Long:  "Rewrite the option bytes with the given protection. The new protection takes effect at the next invocation, which resets the simulated device.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mask, err := parseUint32(wrp)
			if err != nil {
				return err
			}
			s, err := openSession(g, flash.WithOptionBytes(true))
			if err != nil {
				return err
			}
			p := flash.Protection{Readout: readout, User: user, WriteProtect: mask}
			if err := s.run(func() error { return s.drv.ApplyProtection(p) }); err != nil {
				return err
			}
			printf(cmd, "protection written: readout=%t wrp=0x%08X\n", readout, mask)
			return nil
		},
	}
	cmd.Flags().BoolVar(&readout, "readout", false, "enable readout protection")
	cmd.Flags().Uint8Var(&user, "user", 0, "USER option byte (0 leaves it erased)")
	cmd.Flags().StringVar(&wrp, "wrp", "0", "write protection mask, one bit per protection granule")
	return cmd
}

func newOptionsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "options",
		Short: "Decode the stored option bytes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(g)
			if err != nil {
				return err
			}
			ob := s.drv.ReadOptionBytes()
			printf(cmd, "RDP:   0x%02X (readout protected: %t)\n", ob.RDP, ob.ReadoutProtected())
			printf(cmd, "USER:  0x%02X\n", ob.USER)
			printf(cmd, "DATA0: 0x%02X\n", ob.Data0)
			printf(cmd, "DATA1: 0x%02X\n", ob.Data1)
			printf(cmd, "WRP:   % X (mask 0x%08X)\n", ob.WRP[:], ob.WriteProtected())
			printf(cmd, "valid: %t\n", ob.Valid)
			return nil
		},
	}
}
