package ui

import "strings"

const statusLogDepth = 5

// statusLog keeps the most recent status lines, newest last.
type statusLog struct {
	depth int
	lines []string
}

func newStatusLog(depth int) statusLog {
	return statusLog{depth: depth}
}

func (l *statusLog) push(line string) {
	l.lines = append(l.lines, line)
	if len(l.lines) > l.depth {
		l.lines = l.lines[len(l.lines)-l.depth:]
	}
}

func (l *statusLog) last() string {
	if len(l.lines) == 0 {
		return ""
	}
	return l.lines[len(l.lines)-1]
}

// view renders the log, oldest dimmest, truncated to width.
func (l *statusLog) view(width int) string {
	if len(l.lines) == 0 {
		return mutedStyle.Render("Ready")
	}

	out := make([]string, len(l.lines))
	for i, line := range l.lines {
		line = truncateLine(line, width)
		if i == len(l.lines)-1 {
			out[i] = statusStyle.Render(line)
		} else {
			out[i] = mutedStyle.Render(line)
		}
	}
	return strings.Join(out, "\n")
}
