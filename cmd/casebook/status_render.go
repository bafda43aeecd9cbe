package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"casebook/internal/daemonctl"
	"casebook/internal/preflight"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 18
	statusIndent     = "  "
)

var statusStyles = map[statusKind]struct{ tag, color string }{
	statusInfo:  {"INFO", ansiBlue},
	statusOK:    {"OK", ansiGreen},
	statusWarn:  {"WARN", ansiYellow},
	statusError: {"ERROR", ansiRed},
}

// statusReport writes `casebook status` as titled sections of aligned
// label lines.
type statusReport struct {
	out      io.Writer
	colorize bool
	sections int
}

func (r *statusReport) section(title string) {
	if r.sections > 0 {
		fmt.Fprintln(r.out)
	}
	r.sections++
	rule := strings.Repeat("-", len(title))
	if r.colorize {
		title, rule = ansiBlue+title+ansiReset, ansiBlue+rule+ansiReset
	}
	fmt.Fprintln(r.out, title)
	fmt.Fprintln(r.out, rule)
}

func (r *statusReport) line(label string, kind statusKind, message string) {
	fmt.Fprintln(r.out, renderStatusLine(label, kind, message, r.colorize))
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	style := statusStyles[kind]
	text := "[" + style.tag + "]"
	if message != "" {
		text += " " + message
	}
	line := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", text)
	if colorize {
		return style.color + line + ansiReset
	}
	return line
}

func renderStatus(out io.Writer, snap daemonctl.Snapshot, colorize bool) {
	r := &statusReport{out: out, colorize: colorize}

	r.section("Daemon")
	r.daemon(snap)

	r.section("Watch Session")
	r.watch(snap)

	r.section("Environment")
	for _, check := range snap.Checks {
		r.check(check)
	}
}

func (r *statusReport) daemon(snap daemonctl.Snapshot) {
	if !snap.Reachable {
		r.line("Daemon", statusWarn, "Not running")
		return
	}
	status := snap.Status
	if status.Running {
		r.line("Daemon", statusOK, fmt.Sprintf("Running (pid %d)", status.PID))
	} else {
		r.line("Daemon", statusWarn, fmt.Sprintf("Idle (pid %d, lock not held)", status.PID))
	}
	if !status.StartedAt.IsZero() {
		r.line("Started", statusInfo, status.StartedAt.Local().Format(time.DateTime))
	}
	r.line("Store", statusInfo, status.StorePath)
	if status.LogPath != "" {
		r.line("Log", statusInfo, status.LogPath)
	}
	r.line("Push notifications", statusInfo, yesNo(status.NtfyEnabled))
	r.line("Event sequence", statusInfo, strconv.FormatUint(status.EventSequence, 10))
}

func (r *statusReport) watch(snap daemonctl.Snapshot) {
	if !snap.Reachable {
		r.line("Session", statusInfo, "Unknown (daemon not running)")
		return
	}
	w := snap.Status.Watch
	if !w.IsActive {
		r.line("Session", statusInfo, "Not watching")
	} else {
		kind, state := statusOK, string(w.State)
		if w.Degraded {
			// Recovery is a fresh `casebook watch` on the same project.
			kind, state = statusError, state+" (degraded)"
		}
		r.line("Session", kind, state)
		r.line("Project", statusInfo, w.ProjectRoot)
		r.line("Tracked assets", statusInfo, strconv.Itoa(w.WatchedFileCount))
	}
	if w.LastError != "" {
		r.line("Last error", statusError, w.LastError)
	}
}

func (r *statusReport) check(check preflight.Result) {
	kind := statusError
	if check.Passed {
		kind = statusOK
	}
	r.line(check.Name, kind, check.Detail)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
