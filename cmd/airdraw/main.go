package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/ayusman/airdraw/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// OpenCV windows and the system tray both need the main OS thread.
func init() {
	runtime.LockOSThread()
}

func main() {
	cli.SetVersion(version, commit, date)
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "airdraw:", err)
		os.Exit(1)
	}
}
