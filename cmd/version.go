package cmd

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/paulschiretz/pgl-press/pkg/format"
)

// supportedExtensions is the extension list printed by RunVersion.
var supportedExtensions = []format.Format{
	format.Tar, format.Zip, format.SevenZip,
	format.Gzip, format.Bzip, format.Lz4, format.Lzma,
	format.Snappy, format.Zstd, format.Brotli,
}

// RunVersion prints the application version and the formats it can write.
func RunVersion(w io.Writer, appName, appVersion string) error {
	exts := make([]string, len(supportedExtensions))
	for i, f := range supportedExtensions {
		exts[i] = f.Extension()
	}
	_, err := fmt.Fprintf(w, "%s version %s (%s %s/%s)\nformats: %s\n",
		appName, appVersion, runtime.Version(), runtime.GOOS, runtime.GOARCH, strings.Join(exts, " "))
	return err
}
