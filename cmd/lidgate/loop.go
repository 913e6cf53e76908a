package main

import (
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/sweeney/lidgate/internal/logic"
	"github.com/sweeney/lidgate/internal/mqtt"
	"github.com/sweeney/lidgate/internal/status"
)

type loopDeps struct {
	dispatcher *logic.Dispatcher
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus // may be nil
	tracker    *status.Tracker       // may be nil
	heartbeat  time.Duration
	logger     *slog.Logger
}

// runLoop dispatches on every tick and forwards queued events until a signal
// arrives. A dispatch error is a wiring fault and ends the loop.
func runLoop(deps loopDeps, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	logger := deps.logger
	hb := status.NewHeartbeat(deps.heartbeat, now())

	refresh := func() {
		if deps.tracker == nil {
			return
		}
		if deps.mqttStatus != nil {
			deps.tracker.SetMQTTConnected(deps.mqttStatus.IsConnected())
			ob := deps.mqttStatus.BufferStats()
			deps.tracker.SetOutbox(status.Outbox{
				Buffered:   ob.Buffered,
				Dropped:    ob.Dropped,
				Superseded: ob.Superseded,
				DroppedBy:  ob.DroppedBy,
			})
		}
		deps.tracker.Update(deps.dispatcher.Snapshot())
	}

	system := func(event, reason string) mqtt.SystemEvent {
		ev := mqtt.SystemEvent{
			Timestamp: now(),
			Event:     event,
			Reason:    reason,
		}
		if deps.tracker != nil {
			refresh()
			ev.RawPayload = status.FormatStatusEvent(deps.tracker.Snapshot(), event, reason)
		}
		return ev
	}

	for {
		select {
		case s := <-sig:
			logger.Info("shutting down", "signal", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := system("SHUTDOWN", signalName)
			event.Retained = true
			if err := deps.publisher.PublishSystem(event); err != nil {
				logger.Warn("failed to publish shutdown event", "err", err)
			} else {
				logger.Info("published shutdown event")
			}
			return nil

		case <-tick:
			if err := deps.dispatcher.Dispatch(); err != nil {
				return fmt.Errorf("dispatch: %w", err)
			}

			for {
				ev, ok := deps.dispatcher.GetEvent()
				if !ok {
					break
				}
				forward(deps.publisher, ev, logger)
			}

			refresh()

			if hb.Due(now()) {
				logger.Info("heartbeat")
				if err := deps.publisher.PublishSystem(system("HEARTBEAT", "")); err != nil {
					logger.Warn("failed to publish heartbeat", "err", err)
				}
			}
		}
	}
}

// forward publishes switch toggles. Pointer events stay local and are only
// logged; the gated devices deliver them to the compositor themselves.
func forward(publisher mqtt.Publisher, ev logic.Event, logger *slog.Logger) {
	switch ev.Kind {
	case logic.KindSwitchToggle:
		logger.Info("switch toggle", "switch", ev.Switch.Switch, "state", ev.Switch.State)
		if err := publisher.Publish(*ev.Switch); err != nil {
			// Don't crash on publish failure
			logger.Warn("publish error", "err", err)
		}
	case logic.KindPointerMotion:
		logger.Debug("pointer motion", "device", ev.Device, "dx", ev.Motion.Dx, "dy", ev.Motion.Dy)
	case logic.KindPointerAxis:
		logger.Debug("pointer axis", "device", ev.Device, "axis", ev.Axis.Axis, "value", ev.Axis.Value)
	}
}
