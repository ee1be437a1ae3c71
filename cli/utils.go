package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// printf writes a line to w. Write errors are ignored.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

// warningf writes a warning line to w.
func warningf(w io.Writer, format string, a ...interface{}) {
	printf(w, "Warning: "+format, a...)
}

// outputPath returns the file under dir named after the scenario file, with suffix and ext.
func outputPath(dir, scenarioPath, suffix, ext string) string {
	base := strings.TrimSuffix(filepath.Base(scenarioPath), filepath.Ext(scenarioPath))
	return filepath.Join(dir, base+suffix+ext)
}
