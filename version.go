package quranbot

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"
)

// Version and Builddate are set with -ldflags at build time
var Version = ""
var Builddate = ""

// Banner prints the version banner to w, stdout if w is nil
func Banner(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	if Version == "" {
		if build, ok := debug.ReadBuildInfo(); ok {
			Version = build.Main.Version
		}
	}
	banner := []string{
		"\n                               _           _   \n",
		"  __ _ _   _ _ __ __ _ _ __  | |__   ___ | |_ \n",
		" / _` | | | | '__/ _` | '_ \\ | '_ \\ / _ \\| __|\n",
		"| (_| | |_| | | | (_| | | | || |_) | (_) | |_ \n",
		" \\__, |\\__,_|_|  \\__,_|_| |_||_.__/ \\___/ \\__|\n",
		"    |_|                                        %s\n\n",
	}
	for i, line := range banner {
		if i == len(banner)-1 {
			fmt.Fprintf(w, line, Version)
			continue
		}
		fmt.Fprint(w, line)
	}
	if Builddate != "" {
		fmt.Fprintf(w, "built %s\n", Builddate)
	}
}
