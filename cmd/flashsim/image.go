package main

import (
	"fmt"
	"io"
	"os"

	"github.com/marcinbor85/gohex"

	"github.com/ardnew/softflash/flash"
	"github.com/ardnew/softflash/pkg"
)

// segment is a contiguous run of image bytes at an absolute address.
type segment struct {
	addr uint32
	data []byte
}

// loadIntelHex reads every data segment of an Intel HEX file. Odd-length
// segments are padded with 0xFF to a whole program unit.
func loadIntelHex(path string) ([]segment, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(file); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var segs []segment
	for _, s := range mem.GetDataSegments() {
		data := s.Data
		if s.Address%flash.ProgramUnit != 0 {
			return nil, fmt.Errorf("%s: segment at 0x%08X: %w", path, s.Address, pkg.ErrMisalignedAddress)
		}
		if len(data)%flash.ProgramUnit != 0 {
			data = append(data, 0xFF)
		}
		segs = append(segs, segment{addr: s.Address, data: data})
	}
	return segs, nil
}

// writeIntelHex encodes data at addr as Intel HEX.
func writeIntelHex(w io.Writer, addr uint32, data []byte) error {
	mem := gohex.NewMemory()
	if err := mem.AddBinary(addr, data); err != nil {
		return err
	}
	return mem.DumpIntelHex(w, 16)
}

// erasePages erases every page overlapping [addr, addr+n).
func erasePages(drv *flash.Driver, addr, n uint32) error {
	if n == 0 {
		return nil
	}
	geo := drv.Geometry()
	first := addr - (addr-geo.FlashBase)%geo.PageSize
	last := addr + n - 1
	for p := first; p <= last && p >= first; p += geo.PageSize {
		if err := drv.ErasePage(p); err != nil {
			return err
		}
	}
	return nil
}
