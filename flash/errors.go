package flash

import "fmt"

// OpError records the operation and address at which a fault occurred.
// Err is one of the sentinel errors in package pkg.
type OpError struct {
	Op   string
	Addr uint32
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("flash %s at 0x%08X: %v", e.Op, e.Addr, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func opError(op string, addr uint32, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Addr: addr, Err: err}
}
