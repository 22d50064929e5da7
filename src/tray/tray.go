package tray

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/getlantern/systray"

	"omnikey/src/command"
)

// Item is one command entry of the menu.
type Item struct {
	Command command.Command
	Label   string
	Hotkey  string
}

type Options struct {
	Items     []Item
	Tooltip   string
	About     string
	OnCommand func(command.Command)
	OnQuit    func()
}

var (
	mu         sync.Mutex
	ready      bool
	tooltip    string
	aboutExtra string
)

// MenuItems builds one item per command in menu order. Commands without a
// hotkey are still listed.
func MenuItems(hotkeys map[command.Command]string) []Item {
	var items []Item
	for _, spec := range command.Specs() {
		items = append(items, Item{Command: spec.Command, Label: spec.MenuLabel, Hotkey: hotkeys[spec.Command]})
	}
	return items
}

func (it Item) title() string {
	if it.Hotkey == "" {
		return it.Label
	}
	return fmt.Sprintf("%s (%s)", it.Label, it.Hotkey)
}

// Run shows the tray icon and blocks until Quit. onReady runs once the icon
// exists, on its own goroutine.
func Run(opts Options, onReady func()) {
	systray.Run(func() {
		setup(opts)
		if onReady != nil {
			go onReady()
		}
	}, func() {
		mu.Lock()
		ready = false
		mu.Unlock()
		log.Printf("Tray exited")
	})
}

func setup(opts Options) {
	systray.SetIcon(Icon())
	systray.SetTitle("")
	if opts.Tooltip != "" {
		systray.SetTooltip(opts.Tooltip)
	}

	for _, it := range opts.Items {
		item := it
		m := systray.AddMenuItem(item.title(), "Rewrite the selected text: "+item.Label)
		go func() {
			for range m.ClickedCh {
				log.Printf("Tray: %s clicked", item.Command)
				if opts.OnCommand != nil {
					opts.OnCommand(item.Command)
				}
			}
		}()
	}
	systray.AddSeparator()
	mAbout := systray.AddMenuItem("About", "About OmniKey")
	mQuit := systray.AddMenuItem("Quit", "Quit OmniKey")

	mu.Lock()
	ready = true
	if tooltip != "" {
		systray.SetTooltip(tooltip)
	}
	mu.Unlock()

	go func() {
		for {
			select {
			case <-mAbout.ClickedCh:
				showAbout("About OmniKey", aboutText(opts.About))
			case <-mQuit.ClickedCh:
				log.Printf("Tray: quit clicked")
				if opts.OnQuit != nil {
					opts.OnQuit()
				}
				systray.Quit()
				return
			}
		}
	}()
}

func aboutText(base string) string {
	mu.Lock()
	extra := aboutExtra
	mu.Unlock()
	parts := []string{}
	if base != "" {
		parts = append(parts, base)
	}
	if extra != "" {
		parts = append(parts, extra)
	}
	return strings.Join(parts, "\n\n")
}

// UpdateTooltip sets the tooltip now, or once the tray is ready.
func UpdateTooltip(text string) {
	mu.Lock()
	defer mu.Unlock()
	tooltip = text
	if ready {
		systray.SetTooltip(text)
	}
}

// SetAboutExtra appends runtime details, e.g. the resident port, to About.
func SetAboutExtra(text string) {
	mu.Lock()
	aboutExtra = text
	mu.Unlock()
}

// Quit closes the tray and makes Run return.
func Quit() {
	systray.Quit()
}
