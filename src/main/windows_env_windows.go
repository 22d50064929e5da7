//go:build windows

package main

import (
	"log"

	"golang.org/x/sys/windows"
)

var (
	shcore                 = windows.NewLazySystemDLL("Shcore.dll")
	user32                 = windows.NewLazySystemDLL("user32.dll")
	setProcessDpiAwareness = shcore.NewProc("SetProcessDpiAwareness")
	setProcessDPIAware     = user32.NewProc("SetProcessDPIAware")
	getSystemMetrics       = user32.NewProc("GetSystemMetrics")
)

// enableDPIAwareness keeps the overlay geometry in physical pixels so it
// centres correctly on scaled monitors.
func enableDPIAwareness() {
	const processPerMonitorDPIAware = 2
	if err := setProcessDpiAwareness.Find(); err == nil {
		ret, _, _ := setProcessDpiAwareness.Call(uintptr(processPerMonitorDPIAware))
		if ret == 0 {
			log.Printf("DPI: per-monitor awareness enabled")
		} else {
			log.Printf("DPI: SetProcessDpiAwareness failed, error code: %d", ret)
		}
		return
	}

	if err := setProcessDPIAware.Find(); err != nil {
		log.Printf("DPI: no DPI awareness API available")
		return
	}
	if ret, _, _ := setProcessDPIAware.Call(); ret != 0 {
		log.Printf("DPI: system awareness enabled (fallback)")
	} else {
		log.Printf("DPI: SetProcessDPIAware failed (fallback)")
	}
}

func logMonitorConfiguration() {
	const (
		smCXScreen        = 0
		smCYScreen        = 1
		smXVirtualScreen  = 76
		smYVirtualScreen  = 77
		smCXVirtualScreen = 78
		smCYVirtualScreen = 79
		smCMonitors       = 80
	)
	metric := func(i int) int {
		v, _, _ := getSystemMetrics.Call(uintptr(i))
		return int(int32(v))
	}
	log.Printf("MONITOR: %d monitors, virtual screen x:%d y:%d w:%d h:%d, primary %dx%d",
		metric(smCMonitors),
		metric(smXVirtualScreen), metric(smYVirtualScreen), metric(smCXVirtualScreen), metric(smCYVirtualScreen),
		metric(smCXScreen), metric(smCYScreen))
}
