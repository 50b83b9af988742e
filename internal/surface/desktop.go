package surface

import "github.com/go-vgo/robotgo"

// Injector delivers text to whichever desktop window has keyboard focus.
type Injector interface {
	Inject(text string) error
}

// Desktop treats the focused desktop window as the surface. A window is
// considered focused when the window system reports a title for it.
type Desktop struct {
	injector Injector
	title    func() string
}

var _ Focus = (*Desktop)(nil)

// NewDesktop creates a Desktop focus that inserts through injector.
func NewDesktop(injector Injector) *Desktop {
	return &Desktop{
		injector: injector,
		title:    func() string { return robotgo.GetTitle() },
	}
}

func (d *Desktop) Focused() (Surface, bool) {
	if d.title() == "" {
		return nil, false
	}
	return desktopSurface{d.injector}, true
}

type desktopSurface struct {
	injector Injector
}

func (s desktopSurface) Insert(text string) error {
	return s.injector.Inject(text)
}
