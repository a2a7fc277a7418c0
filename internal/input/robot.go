package input

import (
	"fmt"
	"time"

	"github.com/go-vgo/robotgo"
	"go.uber.org/zap"

	"github.com/Faultbox/d2sight/internal/logger"
	"github.com/Faultbox/d2sight/pkg/geom"
)

// RobotEmitter drives the OS cursor and keyboard through robotgo. Points are
// relative to the game window and clamped into it.
type RobotEmitter struct {
	Offset geom.PointU16
	Size   geom.PointU16

	// Settle is slept after moving the cursor, before a click.
	Settle time.Duration

	held map[string]bool
}

// NewRobotEmitter creates an emitter for the window at offset with size.
func NewRobotEmitter(offset, size geom.PointU16, settle time.Duration) *RobotEmitter {
	return &RobotEmitter{Offset: offset, Size: size, Settle: settle, held: make(map[string]bool)}
}

// ScreenPoint clamps p into the window and returns its screen coordinates.
func (e *RobotEmitter) ScreenPoint(p geom.PointU16) (x, y int) {
	row := min(p.Row, e.Size.Row-1)
	col := min(p.Col, e.Size.Col-1)
	return int(e.Offset.Col) + int(col), int(e.Offset.Row) + int(row)
}

func (e *RobotEmitter) KeyDown(key string) error {
	k, err := KeyName(key)
	if err != nil {
		return err
	}
	if err := robotgo.KeyToggle(k, "down"); err != nil {
		return fmt.Errorf("key down %s: %w", k, err)
	}
	e.held[k] = true
	return nil
}

func (e *RobotEmitter) KeyUp(key string) error {
	k, err := KeyName(key)
	if err != nil {
		return err
	}
	if err := robotgo.KeyToggle(k, "up"); err != nil {
		return fmt.Errorf("key up %s: %w", k, err)
	}
	delete(e.held, k)
	return nil
}

func (e *RobotEmitter) KeyClick(key string) error {
	k, err := KeyName(key)
	if err != nil {
		return err
	}
	if err := robotgo.KeyTap(k); err != nil {
		return fmt.Errorf("key click %s: %w", k, err)
	}
	return nil
}

func (e *RobotEmitter) MouseMove(p geom.PointU16) error {
	x, y := e.ScreenPoint(p)
	robotgo.Move(x, y)
	return nil
}

func (e *RobotEmitter) MouseClick(p geom.PointU16, b Button) error {
	if err := e.MouseMove(p); err != nil {
		return err
	}
	if e.Settle > 0 {
		time.Sleep(e.Settle)
	}
	robotgo.Click(b.String(), false)
	return nil
}

// ReleaseAll lifts every key still held down.
func (e *RobotEmitter) ReleaseAll() {
	for k := range e.held {
		if err := robotgo.KeyToggle(k, "up"); err != nil {
			logger.Warn("releasing key", zap.String("key", k), zap.Error(err))
		}
		delete(e.held, k)
	}
}

// CursorPosition reports the OS cursor position.
func CursorPosition() (x, y int) {
	return robotgo.Location()
}
