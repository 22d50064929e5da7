//go:build windows

package notification

import (
	"log"
	"runtime"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"omnikey/src/overlay"
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	gdi32    = windows.NewLazySystemDLL("gdi32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procCreateWindowEx             = user32.NewProc("CreateWindowExW")
	procDefWindowProc              = user32.NewProc("DefWindowProcW")
	procDestroyWindow              = user32.NewProc("DestroyWindow")
	procShowWindow                 = user32.NewProc("ShowWindow")
	procSetWindowPos               = user32.NewProc("SetWindowPos")
	procSetLayeredWindowAttributes = user32.NewProc("SetLayeredWindowAttributes")
	procSetTimer                   = user32.NewProc("SetTimer")
	procKillTimer                  = user32.NewProc("KillTimer")
	procRegisterClassEx            = user32.NewProc("RegisterClassExW")
	procGetMessage                 = user32.NewProc("GetMessageW")
	procPeekMessage                = user32.NewProc("PeekMessageW")
	procDispatchMessage            = user32.NewProc("DispatchMessageW")
	procTranslateMessage           = user32.NewProc("TranslateMessage")
	procBeginPaint                 = user32.NewProc("BeginPaint")
	procEndPaint                   = user32.NewProc("EndPaint")
	procDrawText                   = user32.NewProc("DrawTextW")
	procPostMessage                = user32.NewProc("PostMessageW")
	procPostThreadMessage          = user32.NewProc("PostThreadMessageW")
	procCreateSolidBrush           = gdi32.NewProc("CreateSolidBrush")
	procSetTextColor               = gdi32.NewProc("SetTextColor")
	procSetBkMode                  = gdi32.NewProc("SetBkMode")
	procGetModuleHandle            = kernel32.NewProc("GetModuleHandleW")
)

const (
	wsPopup           = 0x80000000
	wsExLayered       = 0x00080000
	wsExTransparent   = 0x00000020
	wsExTopmost       = 0x00000008
	wsExNoActivate    = 0x08000000
	wsExToolWindow    = 0x00000080
	wmDestroy         = 0x0002
	wmPaint           = 0x000F
	wmTimer           = 0x0113
	wmClose           = 0x0010
	wmUser            = 0x0400
	wmExitLoop        = wmUser + 2
	swShowNoActivate  = 4
	swpNoActivate     = 0x0010
	swpNoMove         = 0x0002
	swpNoSize         = 0x0001
	hwndTopmost       = ^uintptr(0)
	lwaAlpha          = 0x00000002
	dtCenter          = 0x00000001
	dtWordBreak       = 0x00000010
	bkTransparent     = 1
	pmRemove          = 1
	timerFade         = 1
	fadeTickMillis    = 16
	popupClassName    = "OmniKeyStatusOverlay"
	backgroundColor   = 0x00202020
	foregroundColor   = 0x00F0F0F0
	queueCapacity     = 10
	textPaddingPixels = 12
)

type wndClassEx struct {
	CbSize        uint32
	Style         uint32
	LpfnWndProc   uintptr
	CbClsExtra    int32
	CbWndExtra    int32
	HInstance     windows.Handle
	HIcon         windows.Handle
	HCursor       windows.Handle
	HbrBackground windows.Handle
	LpszMenuName  *uint16
	LpszClassName *uint16
	HIconSm       windows.Handle
}

type point struct {
	X, Y int32
}

type msg struct {
	Hwnd    windows.HWND
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      point
}

type rect struct {
	Left, Top, Right, Bottom int32
}

type paintStruct struct {
	Hdc         windows.Handle
	FErase      int32
	RcPaint     rect
	FRestore    int32
	FIncUpdate  int32
	RgbReserved [32]byte
}

type request struct {
	title string
	body  string
	hold  time.Duration
}

var (
	queue     chan request
	queueOnce sync.Once

	// Owned by the popup thread except hwnd, which Show reads to supersede
	// a visible overlay.
	stateMu  sync.Mutex
	current  request
	shownAt  time.Time
	timeline overlay.Timeline
	hwnd     uintptr
)

func startPopupThread() {
	queueOnce.Do(func() {
		queue = make(chan request, queueCapacity)
		go func() {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			defer func() {
				if r := recover(); r != nil {
					log.Printf("notification: popup thread panic: %v", r)
				}
			}()

			if err := registerClass(); err != nil {
				log.Printf("notification: failed to register window class: %v", err)
				return
			}
			for req := range queue {
				if err := present(req); err != nil {
					log.Printf("notification: failed to show overlay: %v", err)
				}
			}
		}()
	})
}

func show(title, body string, hold time.Duration) {
	startPopupThread()

	select {
	case queue <- request{title: title, body: body, hold: hold}:
	default:
		log.Printf("notification: queue full, dropping %q", title)
		return
	}

	// A newer status replaces the visible one.
	stateMu.Lock()
	visible := hwnd
	stateMu.Unlock()
	if visible != 0 {
		procPostMessage.Call(visible, wmClose, 0, 0)
	}
}

// ShowBlockingError displays a modal error dialog and returns once the user
// dismisses it.
func ShowBlockingError(title, message string) {
	titlePtr, _ := windows.UTF16PtrFromString(title)
	msgPtr, _ := windows.UTF16PtrFromString(message)
	_, _ = windows.MessageBox(0, msgPtr, titlePtr, windows.MB_OK|windows.MB_ICONERROR|windows.MB_SYSTEMMODAL)
}

func registerClass() error {
	className, _ := windows.UTF16PtrFromString(popupClassName)
	instance, _, _ := procGetModuleHandle.Call(0)
	brush, _, _ := procCreateSolidBrush.Call(backgroundColor)
	wc := wndClassEx{
		CbSize:        uint32(unsafe.Sizeof(wndClassEx{})),
		LpfnWndProc:   windows.NewCallback(wndProc),
		HInstance:     windows.Handle(instance),
		HbrBackground: windows.Handle(brush),
		LpszClassName: className,
	}
	atom, _, err := procRegisterClassEx.Call(uintptr(unsafe.Pointer(&wc)))
	if atom == 0 {
		return err
	}
	return nil
}

func wndProc(h uintptr, message uint32, wParam, lParam uintptr) uintptr {
	switch message {
	case wmPaint:
		stateMu.Lock()
		text := current.title
		if current.body != "" {
			text += "\n" + current.body
		}
		stateMu.Unlock()

		var ps paintStruct
		hdc, _, _ := procBeginPaint.Call(h, uintptr(unsafe.Pointer(&ps)))
		procSetBkMode.Call(hdc, bkTransparent)
		procSetTextColor.Call(hdc, foregroundColor)
		r := rect{Left: textPaddingPixels, Top: textPaddingPixels, Right: overlay.Width - textPaddingPixels, Bottom: overlay.Height - textPaddingPixels}
		textPtr, _ := windows.UTF16PtrFromString(text)
		procDrawText.Call(hdc, uintptr(unsafe.Pointer(textPtr)), ^uintptr(0), uintptr(unsafe.Pointer(&r)), dtCenter|dtWordBreak)
		procEndPaint.Call(h, uintptr(unsafe.Pointer(&ps)))
		return 0

	case wmTimer:
		if wParam != timerFade {
			break
		}
		stateMu.Lock()
		elapsed := time.Since(shownAt)
		tl := timeline
		stateMu.Unlock()
		if tl.Done(elapsed) {
			procKillTimer.Call(h, timerFade)
			procDestroyWindow.Call(h)
			return 0
		}
		procSetLayeredWindowAttributes.Call(h, 0, uintptr(tl.Alpha(elapsed)), lwaAlpha)
		return 0

	case wmClose:
		procKillTimer.Call(h, timerFade)
		procDestroyWindow.Call(h)
		return 0

	case wmDestroy:
		stateMu.Lock()
		hwnd = 0
		stateMu.Unlock()
		procPostThreadMessage.Call(uintptr(windows.GetCurrentThreadId()), wmExitLoop, 0, 0)
		return 0
	}

	ret, _, _ := procDefWindowProc.Call(h, uintptr(message), wParam, lParam)
	return ret
}

// present creates one overlay and pumps its messages until it is destroyed.
func present(req request) error {
	bounds := overlay.ActivePlacement()

	stateMu.Lock()
	current = req
	timeline = overlay.DefaultTimeline(req.hold)
	shownAt = time.Now()
	stateMu.Unlock()

	className, _ := windows.UTF16PtrFromString(popupClassName)
	windowName, _ := windows.UTF16PtrFromString(req.title)
	h, _, err := procCreateWindowEx.Call(
		wsExLayered|wsExTransparent|wsExTopmost|wsExNoActivate|wsExToolWindow,
		uintptr(unsafe.Pointer(className)),
		uintptr(unsafe.Pointer(windowName)),
		wsPopup,
		uintptr(int32(bounds.Min.X)),
		uintptr(int32(bounds.Min.Y)),
		uintptr(bounds.Dx()),
		uintptr(bounds.Dy()),
		0, 0, 0, 0,
	)
	if h == 0 {
		return err
	}

	stateMu.Lock()
	hwnd = h
	stateMu.Unlock()

	procSetLayeredWindowAttributes.Call(h, 0, 0, lwaAlpha)
	procSetWindowPos.Call(h, hwndTopmost, 0, 0, 0, 0, swpNoActivate|swpNoMove|swpNoSize)
	procShowWindow.Call(h, swShowNoActivate)
	procSetTimer.Call(h, timerFade, fadeTickMillis, 0)

	var m msg
	for {
		ret, _, _ := procGetMessage.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		if ret == 0 || m.Message == wmExitLoop {
			break
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		procDispatchMessage.Call(uintptr(unsafe.Pointer(&m)))
	}

	// Drop leftovers so they cannot reach the next overlay.
	var leftover msg
	for {
		ret, _, _ := procPeekMessage.Call(uintptr(unsafe.Pointer(&leftover)), 0, 0, 0, pmRemove)
		if ret == 0 {
			break
		}
	}
	return nil
}
