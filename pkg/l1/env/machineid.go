package env

import (
	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// appID keys the hashed machine ID so it can't be correlated with other
// applications on the same host.
const appID = "boardlink"

// FallbackID is used when the machine ID is unavailable.
const FallbackID = "unknown"

// MachineID retrieves the unique ID identifying the machine.
func MachineID() string {
	id, err := machineid.ProtectedID(appID)
	if err != nil {
		glog.Warningf("machine id unavailable: %v", err)
		return FallbackID
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}
