// Package statsview serves charts of the Go runtime statistics of the
// emulator process (goroutines, heap, GC pauses).
package statsview

import (
	"log/slog"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

const DefaultAddress = "localhost:12600"
const url = "/debug/statsview"

// Launch starts the stats server in the background.
func Launch(addr string) {
	go func() {
		viewer.SetConfiguration(viewer.WithAddr(addr))
		mgr := statsview.New()
		if err := mgr.Start(); err != nil {
			slog.Error("stats server stopped", slog.Any("error", err))
		}
	}()

	slog.Info("stats server available", slog.String("url", "http://"+addr+url))
}
