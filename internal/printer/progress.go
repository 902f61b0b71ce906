package printer

import (
	"fmt"
	"math"
	"strings"
)

const progressBarWidth = 20

// FormatProgress returns a fixed width progress bar with its percentage.
// Examples: "[....................]   0%", "[##########..........]  50%".
func FormatProgress(percent float64) string {
	switch {
	case math.IsNaN(percent) || percent < 0:
		percent = 0
	case percent > 100:
		percent = 100
	}

	filled := int(percent / 100 * progressBarWidth)
	bar := strings.Repeat("#", filled) + strings.Repeat(".", progressBarWidth-filled)
	return fmt.Sprintf("[%s] %3d%%", bar, int(percent))
}
