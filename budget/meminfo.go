package budget

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// readProcMeminfo attempts a best-effort read of total physical RAM from
// /proc/meminfo (Linux). No cross-platform memory-detection library
// appears anywhere in the example corpus, so this one ambient concern
// falls back to stdlib parsing (documented in DESIGN.md); on any other
// platform, or if the file can't be read or parsed, it reports false and
// the caller falls back to fallbackRAMBytes.
func readProcMeminfo() (int64, bool) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "MemTotal:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0, false
		}
		kb, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return 0, false
		}
		return kb * 1024, true
	}
	return 0, false
}
