package storekv

// AccessStatus reports whether this replica may currently serve reads
// and/or writes against the durable store, per spec.md §4.1. Engines check
// both ReadStatus and WriteStatus at the top of every tick; if either is
// not Granted, the tick is a no-op.
type AccessStatus struct {
	Granted    bool
	Reconfig   bool
	NotReady   bool
	NotPrimary bool
}

// GrantedStatus is the status a primary replica reports once fully caught up.
var GrantedStatus = AccessStatus{Granted: true}

// notPrimaryStatus is reported while this replica does not hold the role
// election lease.
var notPrimaryStatus = AccessStatus{NotPrimary: true}

// reconfigStatus is reported for a brief window after a role transition,
// while the RoleSource reports Settling; it takes precedence over
// notPrimaryStatus.
var reconfigStatus = AccessStatus{Reconfig: true}

// RoleSource supplies the store with the replica's current primary/secondary
// standing. internal/coordinator's role elector implements this.
type RoleSource interface {
	// IsPrimary reports whether this replica currently holds write status.
	IsPrimary() bool
	// Settling reports whether a role transition happened recently enough
	// that callers should treat access as Reconfig rather than Granted.
	Settling() bool
}

// staticRole is a RoleSource that is always primary and settled — used when
// the store runs standalone (the common case for a single watchdog
// instance) or in tests.
type staticRole struct{}

func (staticRole) IsPrimary() bool { return true }
func (staticRole) Settling() bool  { return false }
