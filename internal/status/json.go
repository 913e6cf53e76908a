package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Session       string       `json:"session"`
	Lid           string       `json:"lid"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Switches      []SwitchJSON `json:"switches"`
	Devices       []DeviceJSON `json:"devices"`
	Pending       int          `json:"pending_events"`
	Dropped       int          `json:"dropped_events"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected  bool           `json:"connected"`
	Broker     string         `json:"broker"`
	Buffered   int            `json:"buffered"`
	Dropped    int            `json:"dropped"`
	Superseded int            `json:"superseded"`
	DroppedBy  map[string]int `json:"dropped_by,omitempty"`
}

// SwitchJSON is the JSON representation of one switch.
type SwitchJSON struct {
	ID      string     `json:"id"`
	State   string     `json:"state"`
	Current string     `json:"current"`
	Counts  CountsJSON `json:"event_counts"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	On  int `json:"on"`
	Off int `json:"off"`
}

// DeviceJSON is the JSON representation of one gated device.
type DeviceJSON struct {
	ID       string   `json:"id"`
	State    string   `json:"state"`
	Switches []string `json:"switches"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64    `json:"poll_ms"`
	DebounceMs  int64    `json:"debounce_ms"`
	HeartbeatMs int64    `json:"heartbeat_ms"`
	Broker      string   `json:"broker"`
	TopicPrefix string   `json:"topic_prefix"`
	HTTPPort    string   `json:"http_port"`
	Sources     []string `json:"sources,omitempty"`
}

// BuildInner converts a snapshot into its JSON form.
func BuildInner(snap Snapshot) StatusInner {
	lid := "OPEN"
	if len(snap.Pipeline.Switches) == 0 {
		lid = "UNKNOWN"
	} else if snap.Closed() {
		lid = "CLOSED"
	}

	inner := StatusInner{
		Session:       snap.Session,
		Lid:           lid,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT: MQTTStatus{
			Connected:  snap.MQTTConnected,
			Broker:     snap.Config.Broker,
			Buffered:   snap.Outbox.Buffered,
			Dropped:    snap.Outbox.Dropped,
			Superseded: snap.Outbox.Superseded,
			DroppedBy:  snap.Outbox.DroppedBy,
		},
		Switches:      []SwitchJSON{},
		Devices:       []DeviceJSON{},
		Pending:       snap.Pipeline.Pending,
		Dropped:       snap.Pipeline.Dropped,
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			DebounceMs:  snap.Config.DebounceMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			TopicPrefix: snap.Config.TopicPrefix,
			HTTPPort:    snap.Config.HTTPPort,
			Sources:     snap.Config.Sources,
		},
	}

	for _, sw := range snap.Pipeline.Switches {
		inner.Switches = append(inner.Switches, SwitchJSON{
			ID:      string(sw.ID),
			State:   string(sw.State.LastEmitted),
			Current: string(sw.State.Current),
			Counts:  CountsJSON{On: sw.Counts.On, Off: sw.Counts.Off},
		})
	}
	for _, dev := range snap.Pipeline.Devices {
		switches := make([]string, 0, len(dev.Switches))
		for _, sw := range dev.Switches {
			switches = append(switches, string(sw))
		}
		inner.Devices = append(inner.Devices, DeviceJSON{
			ID:       string(dev.ID),
			State:    string(dev.State),
			Switches: switches,
		})
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: BuildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := BuildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
