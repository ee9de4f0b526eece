package screen

import (
	"fmt"
	"image"

	"github.com/go-vgo/robotgo"
)

// LocateWindow returns the monitor position of the first window whose
// process matches title
func LocateWindow(title string) (image.Point, error) {
	pids, err := robotgo.FindIds(title)
	if err != nil {
		return image.Point{}, fmt.Errorf("find window %q: %w", title, err)
	}
	for _, pid := range pids {
		x, y, w, h := robotgo.GetBounds(pid)
		if w > 0 && h > 0 {
			return image.Point{X: x, Y: y}, nil
		}
	}
	return image.Point{}, fmt.Errorf("no visible window for %q", title)
}
