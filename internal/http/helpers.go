package http

import (
	"strings"

	"financeiro/internal/core"
)

func (s *Server) today() core.Date {
	return core.DateOf(s.now())
}

// invalidateDashboard drops cached month overviews after a write.
func (s *Server) invalidateDashboard() {
	if s.svc.Dashboard != nil {
		s.svc.Dashboard.Invalidate()
	}
}

// sanitizeInput removes control characters except tab and newlines, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func sanitizePtr(p *string) {
	if p != nil {
		*p = sanitizeInput(*p)
	}
}
