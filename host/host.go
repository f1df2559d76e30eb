// Defines Host interfaces for swarmdb
package host

import (
	"github.com/drpcorg/swarmdb/rdx"
)

// Host is the controller side of a replicated object: it stamps new
// ops and takes the locally originated ones for dissemination.
type Host interface {
	// Time issues a new event stamp
	Time() rdx.UUID
	// Offer takes an op already applied locally
	Offer(op rdx.Op)
}
