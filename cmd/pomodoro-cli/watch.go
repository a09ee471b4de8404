package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"pomodoro/internal/event"
	"pomodoro/internal/ipc"
)

const watchHelp = "space: start/pause   s: skip   r: reset   q: quit"

var kindColors = map[event.SessionKind]string{
	event.KindWork:       "red",
	event.KindShortBreak: "green",
	event.KindLongBreak:  "blue",
}

// watchText renders a status for the live view using tview color tags.
func watchText(st ipc.StatusData) string {
	var b strings.Builder
	color := kindColors[st.CurrentSession]
	if color == "" {
		color = "white"
	}
	fmt.Fprintf(&b, "\n[%s::b]%s[-::-]\n\n", color, st.CurrentSession.Label())
	fmt.Fprintf(&b, "[::b]%s[::-]\n\n", formatClock(st.TimeRemaining))
	fmt.Fprintf(&b, "%s, session %d\n", st.State, st.SessionCount)
	if st.State == event.StateIdle && !st.AutoStartAt.IsZero() {
		fmt.Fprintf(&b, "starts at %s\n", st.AutoStartAt.Format(time.Kitchen))
	}
	fmt.Fprintf(&b, "\n%s\n%d/%d pomodoros, %s focus today\n",
		goalBar(st.CompletedPomodorosToday, st.DailyGoal), st.CompletedPomodorosToday, st.DailyGoal,
		formatMinutes(st.TotalFocusTimeTodayMin))
	if st.PersistenceLost {
		b.WriteString("\n[yellow]storage unavailable, progress is kept in memory only[-]\n")
	}
	return b.String()
}

// runWatch shows a live view of the timer until the user quits.
func runWatch(c *client, interval time.Duration) error {
	app := tview.NewApplication()
	view := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	view.SetBorder(true).SetTitle(" pomodoro ")
	help := tview.NewTextView().
		SetTextAlign(tview.AlignCenter).
		SetText(watchHelp)
	layout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(view, 0, 1, false).
		AddItem(help, 1, 0, false)

	refresh := func() {
		text := ""
		st, err := c.status()
		if err != nil {
			text = fmt.Sprintf("\n[red]%s[-]", tview.Escape(err.Error()))
		} else {
			text = watchText(st)
		}
		app.QueueUpdateDraw(func() {
			view.SetText(text)
		})
	}
	send := func(name string) {
		go func() {
			if _, _, err := c.send(ipc.Command{Name: name}); err != nil {
				app.QueueUpdateDraw(func() {
					help.SetText(fmt.Sprintf("[red]%s[-]", tview.Escape(err.Error())))
				})
				return
			}
			refresh()
		}()
	}

	app.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		switch {
		case ev.Key() == tcell.KeyEscape, ev.Rune() == 'q':
			app.Stop()
			return nil
		case ev.Rune() == ' ':
			send(ipc.CmdToggle)
		case ev.Rune() == 's':
			send(ipc.CmdSkip)
		case ev.Rune() == 'r':
			send(ipc.CmdReset)
		default:
			return ev
		}
		return nil
	})

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		refresh()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				refresh()
			}
		}
	}()

	err := app.SetRoot(layout, true).Run()
	close(done)
	return err
}
