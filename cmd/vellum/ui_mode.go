package main

import (
	"fmt"
	"os"
	"strings"
)

// uiMode selects between the Bubble Tea watch view and plain event lines.
type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	switch mode := uiMode(strings.ToLower(strings.TrimSpace(value))); mode {
	case "":
		return uiModeAuto, nil
	case uiModeAuto, uiModeOn, uiModeOff:
		return mode, nil
	}
	return "", fmt.Errorf("invalid --ui value %q for the watch view (expected auto|on|off)", value)
}

// useWatchView decides whether watch draws the interactive view on out. In
// auto mode that needs a terminal which can redraw in place.
func useWatchView(mode uiMode, out *os.File) bool {
	switch mode {
	case uiModeOn:
		return true
	case uiModeOff:
		return false
	}
	return canRedraw(isTerminal(out), os.Getenv("TERM"))
}

func canRedraw(tty bool, term string) bool {
	return tty && term != "dumb"
}
