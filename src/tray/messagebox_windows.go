//go:build windows

package tray

import "golang.org/x/sys/windows"

// showAbout displays a Windows message box
func showAbout(title, message string) {
	titlePtr, _ := windows.UTF16PtrFromString(title)
	messagePtr, _ := windows.UTF16PtrFromString(message)
	_, _ = windows.MessageBox(0, messagePtr, titlePtr, windows.MB_OK|windows.MB_ICONINFORMATION)
}
