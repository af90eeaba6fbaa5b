package adcbutton

import "errors"

// ErrInvalidChannel is returned by query operations against a button index
// outside the configured range count. Poll itself never errors - a failed
// ADC read silently retains the prior ref-window state.
var ErrInvalidChannel = errors.New("adcbutton: button index out of range")
