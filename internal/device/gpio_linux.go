//go:build linux

package device

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/lidgate/internal/logic"
)

// GPIOOptions configures a GPIO-backed lid switch.
type GPIOOptions struct {
	Chip      string        // e.g. "gpiochip0"
	Line      int           // line offset on the chip
	ActiveLow bool          // lid closed pulls the line low
	Debounce  time.Duration // kernel debounce period, 0 to disable
}

// GPIOSwitch watches a GPIO line for lid edges and buffers them into a
// Switch. Active (after ActiveLow inversion) means lid closed.
type GPIOSwitch struct {
	*Switch
	chip   *gpiocdev.Chip
	line   *gpiocdev.Line
	logger *slog.Logger
}

// OpenGPIOSwitch requests the line with both-edge detection and returns the
// switch together with the line's current state.
func OpenGPIOSwitch(id logic.SwitchID, opts GPIOOptions, logger *slog.Logger) (*GPIOSwitch, logic.State, error) {
	chip, err := gpiocdev.NewChip(opts.Chip)
	if err != nil {
		return nil, "", fmt.Errorf("open gpio chip: %w", err)
	}

	s := &GPIOSwitch{Switch: NewSwitch(id), chip: chip, logger: logger}

	reqOpts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithRealtimeEventClock,
		gpiocdev.WithEventHandler(s.handleEvent),
	}
	if opts.ActiveLow {
		reqOpts = append(reqOpts, gpiocdev.AsActiveLow)
	}
	if opts.Debounce > 0 {
		reqOpts = append(reqOpts, gpiocdev.WithDebounce(opts.Debounce))
	}

	line, err := chip.RequestLine(opts.Line, reqOpts...)
	if err != nil {
		chip.Close()
		return nil, "", fmt.Errorf("request lid line %d: %w", opts.Line, err)
	}
	s.line = line

	v, err := line.Value()
	if err != nil {
		s.Close()
		return nil, "", fmt.Errorf("read lid line %d: %w", opts.Line, err)
	}
	initial := stateFromValue(v)

	logger.Info("gpio switch opened", "switch", id, "chip", opts.Chip, "line", opts.Line, "state", initial)
	return s, initial, nil
}

// handleEvent runs on the gpiocdev watcher goroutine. Edges carry the
// kernel's CLOCK_REALTIME timestamp so they order against other sources.
func (s *GPIOSwitch) handleEvent(evt gpiocdev.LineEvent) {
	state := logic.StateOff
	if evt.Type == gpiocdev.LineEventRisingEdge {
		state = logic.StateOn
	}
	s.logger.Debug("lid edge", "switch", s.id, "state", state, "seqno", evt.Seqno)
	s.Toggle(state, time.Unix(0, int64(evt.Timestamp)))
}

// Close releases GPIO resources.
// The line is reconfigured to input with pull-up before closing so the pin
// is left in a defined state.
func (s *GPIOSwitch) Close() error {
	var errs []error

	if s.line != nil {
		if err := s.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure lid line: %w", err))
		}
		if err := s.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close lid line: %w", err))
		}
	}
	if s.chip != nil {
		if err := s.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
