package main

import (
	"os"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/bigbag/wuart/internal/bridge"
)

// newMeter returns a traffic hook drawing a byte counter, or nil when the
// meter is disabled.
func newMeter(enabled bool, description string) (func(bridge.Direction, int), func()) {
	if !enabled {
		return nil, func() {}
	}

	bar := progressbar.NewOptions64(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)

	hook := func(dir bridge.Direction, n int) {
		bar.Add(n)
	}
	return hook, func() { bar.Finish() }
}
