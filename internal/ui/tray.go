// Package ui provides the system tray surface for the agent.
package ui

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/seamline/seamline-agent/internal/editor"
)

type Tray struct {
	session *editor.Session
	logger  *slog.Logger

	statusItem *systray.MenuItem
	clipsItem  *systray.MenuItem
	playItem   *systray.MenuItem

	mu   sync.Mutex
	done chan struct{}

	onOpenEditor func() error
	onQuit       func()
}

type TrayConfig struct {
	Session      *editor.Session
	Logger       *slog.Logger
	OnOpenEditor func() error
	OnQuit       func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		session:      cfg.Session,
		logger:       cfg.Logger,
		done:         make(chan struct{}),
		onOpenEditor: cfg.OnOpenEditor,
		onQuit:       cfg.OnQuit,
	}
}

func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Seamline")
	systray.SetTooltip("Seamline Agent")

	t.statusItem = systray.AddMenuItem("Status: Paused", "Current playback status")
	t.statusItem.Disable()

	t.clipsItem = systray.AddMenuItem("Clips: 0", "Clips in the current edit")
	t.clipsItem.Disable()

	systray.AddSeparator()

	t.playItem = systray.AddMenuItem("Play", "Toggle playback")

	openItem := systray.AddMenuItem("Open Editor...", "Open the editor in your browser")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Seamline Agent")

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-t.playItem.ClickedCh:
				t.togglePlayback()
			case <-openItem.ClickedCh:
				t.handleOpenEditor()
			case <-ticker.C:
				t.refresh()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			case <-t.done:
				systray.Quit()
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

func (t *Tray) togglePlayback() {
	if t.session == nil {
		return
	}
	t.session.Toggle()
	t.refresh()
}

func (t *Tray) handleOpenEditor() {
	if t.onOpenEditor != nil {
		if err := t.onOpenEditor(); err != nil {
			t.logger.Error("failed to open editor", "error", err)
		}
	}
}

// refresh pulls the session snapshot into the menu items.
func (t *Tray) refresh() {
	if t.session == nil {
		return
	}
	state := t.session.Snapshot()

	t.mu.Lock()
	defer t.mu.Unlock()

	if state.IsPlaying {
		t.statusItem.SetTitle("Status: Playing")
		t.playItem.SetTitle("Pause")
	} else {
		t.statusItem.SetTitle("Status: Paused")
		t.playItem.SetTitle("Play")
	}
	t.clipsItem.SetTitle(fmt.Sprintf("Clips: %d", len(state.Clips)))
}

func (t *Tray) Quit() {
	select {
	case <-t.done:
	default:
		close(t.done)
	}
}
