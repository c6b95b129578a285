package main

import (
	"fmt"
	"strings"
)

// StatusLine collects the per-second status shown in the window title.
type StatusLine struct {
	parts []string
}

func (s *StatusLine) Add(format string, args ...any) {
	s.parts = append(s.parts, fmt.Sprintf(format, args...))
}

func (s *StatusLine) Clear() {
	s.parts = s.parts[:0]
}

func (s *StatusLine) String() string {
	return strings.Join(s.parts, " | ")
}
