package layer

import "fmt"

var sizeUnits = [...]string{"B", "KiB", "MiB", "GiB", "TiB"}

// FormatSize converts a byte count to a human string using base-1024 units.
//
// The largest unit u with size >= 1024^k(u) is chosen. Bytes are printed as
// an integer, every other unit with one fractional digit:
//
//	FormatSize(0)       // "0 B"
//	FormatSize(1023)    // "1023 B"
//	FormatSize(1024)    // "1.0 KiB"
//	FormatSize(1 << 40) // "1.0 TiB"
func FormatSize(size int64) string {
	for k := len(sizeUnits) - 1; k > 0; k-- {
		div := int64(1) << (10 * k)
		if size >= div {
			return fmt.Sprintf("%.1f %s", float64(size)/float64(div), sizeUnits[k])
		}
	}
	return fmt.Sprintf("%d %s", size, sizeUnits[0])
}
