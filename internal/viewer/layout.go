package viewer

import (
	"github.com/a3tai/mcp-pdf-signer/internal/forms"
	flowerrors "github.com/a3tai/mcp-pdf-signer/internal/pdf/errors"
)

// Pages are laid out in a single column at the current zoom, separated by the
// page gap. Window points are relative to the top-left of the viewport and
// get the scroll offset added before hit testing.

// displayedSize returns the on-screen size of a page, swapping sides on a
// quarter turn
func (s *Session) displayedSize(page int) (float64, float64, error) {
	info, err := s.pageInfoLocked(page)
	if err != nil {
		return 0, 0, err
	}
	quadrant, err := s.completeRotationLocked(page)
	if err != nil {
		return 0, 0, err
	}
	w, h := info.Width*s.zoom, info.Height*s.zoom
	if quadrant%2 == 1 {
		w, h = h, w
	}
	return w, h, nil
}

// pageTop returns the window-space y of the top of a page
func (s *Session) pageTop(page int) (float64, error) {
	top := 0.0
	for p := 1; p < page; p++ {
		_, h, err := s.displayedSize(p)
		if err != nil {
			return 0, err
		}
		top += h + s.pageGap
	}
	return top, nil
}

// SelectedPage returns the page under a window point, or false when the
// point falls between or outside pages
func (s *Session) SelectedPage(window forms.Point) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return 0, false
	}

	x := window.X + s.scroll.X
	y := window.Y + s.scroll.Y
	if x < 0 || y < 0 {
		return 0, false
	}

	top := 0.0
	for p := 1; p <= s.doc.PageCount(); p++ {
		w, h, err := s.displayedSize(p)
		if err != nil {
			return 0, false
		}
		if y < top {
			return 0, false
		}
		if y <= top+h {
			if x > w {
				return 0, false
			}
			return p, true
		}
		top += h + s.pageGap
	}
	return 0, false
}

// WindowToPage converts a window point into the page space of the given page.
// The offset inside the displayed box is turned back through the page's
// quadrant so a drop on a rotated view lands where it was shown.
func (s *Session) WindowToPage(window forms.Point, page int) (forms.Point, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return forms.Point{}, flowerrors.ErrNoDocumentLoaded
	}
	top, err := s.pageTop(page)
	if err != nil {
		return forms.Point{}, err
	}
	info, err := s.pageInfoLocked(page)
	if err != nil {
		return forms.Point{}, err
	}
	quadrant, err := s.completeRotationLocked(page)
	if err != nil {
		return forms.Point{}, err
	}

	dx := (window.X + s.scroll.X) / s.zoom
	dy := (window.Y + s.scroll.Y - top) / s.zoom
	switch quadrant {
	case 1:
		return forms.Point{X: dy, Y: info.Height - dx}, nil
	case 2:
		return forms.Point{X: info.Width - dx, Y: info.Height - dy}, nil
	case 3:
		return forms.Point{X: info.Width - dy, Y: dx}, nil
	default:
		return forms.Point{X: dx, Y: dy}, nil
	}
}
