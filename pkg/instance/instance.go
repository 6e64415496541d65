package instance

import "github.com/angelmondragon/cartsync/pkg/env"

// GetID returns the process instance identifier used in startup logs.
func GetID() string {
	return env.First("local", "CARTSYNC_INSTANCE_ID", "DYNO", "HOSTNAME")
}
