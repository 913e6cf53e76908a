package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sweeney/lidgate/internal/device"
	"github.com/sweeney/lidgate/internal/logic"
	"github.com/sweeney/lidgate/internal/mqtt"
	"github.com/sweeney/lidgate/internal/status"
	"github.com/sweeney/lidgate/internal/web"
)

// Switch ids for the built-in lid sources.
const (
	evdevSwitchID logic.SwitchID = "lid"
	gpioSwitchID  logic.SwitchID = "lid-gpio"
)

type runOptions struct {
	*rootOptions

	Poll        time.Duration
	LidEvdev    string
	GPIOChip    string
	GPIOLine    int
	ActiveLow   bool
	Debounce    time.Duration
	Inhibit     []string
	Bind        []string
	Broker      string
	TopicPrefix string
	Heartbeat   time.Duration
	HTTPAddr    string
	AccessLog   bool
	PrintState  bool
}

func newRunCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &runOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the gating daemon",
		Long: `Run watches the configured lid sources and inhibits the bound input
devices while any of their switches is closed.

Examples:
  lidgate run --lid-evdev /dev/input/event0 --inhibit touchpad=/sys/class/input/input5
  lidgate run --lid-gpio-line 17 --lid-active-low --inhibit kbd=/sys/class/input/input3 --bind lid-gpio=kbd`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(opts, cmd)
		},
	}

	f := cmd.Flags()
	f.DurationVar(&opts.Poll, "poll", 20*time.Millisecond, "dispatch interval")
	f.StringVar(&opts.LidEvdev, "lid-evdev", "", "evdev node reporting SW_LID, e.g. /dev/input/event0")
	f.StringVar(&opts.GPIOChip, "lid-gpio-chip", "gpiochip0", "GPIO chip for a lid switch line")
	f.IntVar(&opts.GPIOLine, "lid-gpio-line", -1, "GPIO line offset for a lid switch (-1 to disable)")
	f.BoolVar(&opts.ActiveLow, "lid-active-low", false, "GPIO lid line reads low when closed")
	f.DurationVar(&opts.Debounce, "debounce", 10*time.Millisecond, "kernel debounce for the GPIO lid line")
	f.StringArrayVar(&opts.Inhibit, "inhibit", nil, "device to gate as id=/sys/class/input/inputN (repeatable)")
	f.StringArrayVar(&opts.Bind, "bind", nil, "switch=device binding (repeatable; default binds every switch to every device)")
	f.StringVar(&opts.Broker, "broker", "tcp://localhost:1883", "MQTT broker address")
	f.StringVar(&opts.TopicPrefix, "topic-prefix", mqtt.DefaultTopicPrefix, "MQTT topic prefix")
	f.DurationVar(&opts.Heartbeat, "heartbeat", 15*time.Minute, "heartbeat interval (0 to disable)")
	f.StringVar(&opts.HTTPAddr, "http", ":8080", "HTTP status address (empty to disable)")
	f.BoolVar(&opts.AccessLog, "access-log", false, "log HTTP requests to stderr")
	f.BoolVar(&opts.PrintState, "print-state", false, "print the current switch states and exit")

	return cmd
}

// parseAssignments splits repeated key=value flags.
func parseAssignments(flag string, values []string) ([][2]string, error) {
	out := make([][2]string, 0, len(values))
	for _, v := range values {
		k, val, ok := strings.Cut(v, "=")
		if !ok || k == "" || val == "" {
			return nil, fmt.Errorf("--%s %q: want key=value", flag, v)
		}
		out = append(out, [2]string{k, val})
	}
	return out, nil
}

// buildBindings maps switches to devices. Without explicit bindings every
// switch gates every device.
func buildBindings(switches []logic.SwitchID, devices []logic.DeviceID, binds [][2]string) (logic.Bindings, error) {
	b := make(logic.Bindings)
	if len(binds) == 0 {
		for _, sw := range switches {
			b[sw] = append([]logic.DeviceID(nil), devices...)
		}
		return b, nil
	}

	knownSw := make(map[logic.SwitchID]bool, len(switches))
	for _, sw := range switches {
		knownSw[sw] = true
	}
	knownDev := make(map[logic.DeviceID]bool, len(devices))
	for _, dev := range devices {
		knownDev[dev] = true
	}
	for _, kv := range binds {
		sw, dev := logic.SwitchID(kv[0]), logic.DeviceID(kv[1])
		if !knownSw[sw] {
			return nil, fmt.Errorf("bind %s=%s: %w", sw, dev, logic.ErrUnknownSwitch)
		}
		if !knownDev[dev] {
			return nil, fmt.Errorf("bind %s=%s: %w", sw, dev, logic.ErrUnknownDevice)
		}
		b[sw] = append(b[sw], dev)
	}
	return b, nil
}

type lidSource struct {
	src     logic.SwitchSource
	initial logic.State
	desc    string
	run     func(context.Context) error
	close   func() error
}

func openSources(opts *runOptions, logger *slog.Logger) ([]lidSource, error) {
	var sources []lidSource
	closeAll := func() {
		for _, s := range sources {
			s.close()
		}
	}

	if opts.LidEvdev != "" {
		sw, initial, err := device.OpenEvdevSwitch(evdevSwitchID, opts.LidEvdev, logger)
		if err != nil {
			return nil, fmt.Errorf("init evdev lid: %w", err)
		}
		sources = append(sources, lidSource{
			src: sw, initial: initial, run: sw.Run, close: sw.Close,
			desc: fmt.Sprintf("%s=%s", evdevSwitchID, opts.LidEvdev),
		})
	}
	if opts.GPIOLine >= 0 {
		sw, initial, err := device.OpenGPIOSwitch(gpioSwitchID, device.GPIOOptions{
			Chip:      opts.GPIOChip,
			Line:      opts.GPIOLine,
			ActiveLow: opts.ActiveLow,
			Debounce:  opts.Debounce,
		}, logger)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("init gpio lid: %w", err)
		}
		sources = append(sources, lidSource{
			src: sw, initial: initial, close: sw.Close,
			desc: fmt.Sprintf("%s=%s:%d", gpioSwitchID, opts.GPIOChip, opts.GPIOLine),
		})
	}
	if len(sources) == 0 {
		return nil, errors.New("no lid source: set --lid-evdev or --lid-gpio-line")
	}
	return sources, nil
}

func runDaemon(opts *runOptions, cmd *cobra.Command) error {
	logger := opts.logger

	sources, err := openSources(opts, logger)
	if err != nil {
		return err
	}
	defer func() {
		for _, s := range sources {
			if err := s.close(); err != nil {
				logger.Warn("close lid source", "err", err)
			}
		}
	}()

	// Print state mode
	if opts.PrintState {
		for _, s := range sources {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", s.src.ID(), s.initial)
		}
		return nil
	}

	inhibits, err := parseAssignments("inhibit", opts.Inhibit)
	if err != nil {
		return err
	}
	binds, err := parseAssignments("bind", opts.Bind)
	if err != nil {
		return err
	}

	var switchIDs []logic.SwitchID
	var descs []string
	for _, s := range sources {
		switchIDs = append(switchIDs, s.src.ID())
		descs = append(descs, s.desc)
	}
	var deviceIDs []logic.DeviceID
	for _, kv := range inhibits {
		deviceIDs = append(deviceIDs, logic.DeviceID(kv[0]))
	}
	bindings, err := buildBindings(switchIDs, deviceIDs, binds)
	if err != nil {
		return err
	}

	d := logic.NewDispatcher(bindings, logic.WithLogger(logger))
	for _, s := range sources {
		if err := d.AttachSwitch(s.src, s.initial); err != nil {
			return fmt.Errorf("attach %s: %w", s.src.ID(), err)
		}
	}
	for _, kv := range inhibits {
		inh := device.NewInhibitor(logic.DeviceID(kv[0]), kv[1], logger)
		if err := d.AttachDevice(inh); err != nil {
			return fmt.Errorf("attach %s: %w", kv[0], err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for _, s := range sources {
		if s.run == nil {
			continue
		}
		run, id := s.run, s.src.ID()
		go func() {
			if err := run(ctx); err != nil {
				logger.Error("lid source stopped", "switch", id, "err", err)
			}
		}()
	}

	session := uuid.NewString()
	logger = logger.With("session", session)

	publisher := mqtt.NewRealPublisher(mqtt.Options{
		Broker:      opts.Broker,
		ClientID:    "lidgate-" + session[:8],
		TopicPrefix: opts.TopicPrefix,
		Session:     session,
		Logger:      logger,
	})
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	sort.Strings(descs)
	tracker := status.NewTracker(session, time.Now(), status.Config{
		PollMs:      opts.Poll.Milliseconds(),
		DebounceMs:  opts.Debounce.Milliseconds(),
		HeartbeatMs: opts.Heartbeat.Milliseconds(),
		Broker:      opts.Broker,
		TopicPrefix: opts.TopicPrefix,
		HTTPPort:    opts.HTTPAddr,
		Sources:     descs,
	})
	tracker.Update(d.Snapshot())

	snap := tracker.Snapshot()
	startup := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		logger.Warn("failed to publish startup event", "err", err)
	}

	if opts.HTTPAddr != "" {
		webOpts := []web.Option{web.WithLogger(logger)}
		if opts.AccessLog {
			webOpts = append(webOpts, web.WithAccessLog(cmd.ErrOrStderr()))
		}
		srv := web.New(opts.HTTPAddr, tracker, webOpts...)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "err", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Info("http status server listening", "addr", opts.HTTPAddr)
	}

	logger.Info("started", "poll", opts.Poll, "switches", switchIDs, "devices", deviceIDs, "broker", opts.Broker)

	ticker := time.NewTicker(opts.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	return runLoop(loopDeps{
		dispatcher: d,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		heartbeat:  opts.Heartbeat,
		logger:     logger,
	}, time.Now, ticker.C, sigCh)
}
