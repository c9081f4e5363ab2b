package sim

import "github.com/rs/xid"

// GenerateID returns a globally unique ID string.
func GenerateID() string {
	return xid.New().String()
}
