package cmd

import (
	"os"
	"strconv"
)

// minPickerWidth is the narrowest terminal the picker renders usably in.
const minPickerWidth = 20

// termWidth returns the terminal width in columns, preferring the ioctl
// and falling back to $COLUMNS. Returns 0 when neither is available.
func termWidth() int {
	if w := termWidthIoctl(); w > 0 {
		return w
	}
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if w, err := strconv.Atoi(cols); err == nil && w > 0 {
			return w
		}
	}
	return 0
}
