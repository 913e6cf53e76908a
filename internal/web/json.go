package web

import (
	"encoding/json"

	"github.com/sweeney/lidgate/internal/status"
)

// switchJSON renders one switch from the snapshot, or ok=false if the id is
// not attached.
func switchJSON(snap status.Snapshot, id string) ([]byte, bool) {
	for _, sw := range status.BuildInner(snap).Switches {
		if sw.ID == id {
			data, _ := json.MarshalIndent(sw, "", "  ")
			return data, true
		}
	}
	return nil, false
}

// deviceJSON renders one gated device from the snapshot.
func deviceJSON(snap status.Snapshot, id string) ([]byte, bool) {
	for _, dev := range status.BuildInner(snap).Devices {
		if dev.ID == id {
			data, _ := json.MarshalIndent(dev, "", "  ")
			return data, true
		}
	}
	return nil, false
}
