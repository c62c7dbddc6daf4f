package i2cs

// MaxSlaves is the capacity of the slave registry.
const MaxSlaves = 4

type entry struct {
	addr Addr
	ops  Slave
}

// Registry maps 7-bit addresses to virtual devices.
// Insertion order is scan order. Entries are never removed.
type Registry struct {
	slots [MaxSlaves]entry
	n     uint8
}

// Register adds a device to the first free slot.
//
// A full table drops the registration. The false return exists so startup
// code and tests can assert capacity; the engine itself never reports it.
func (r *Registry) Register(addr Addr, ops Slave) bool {
	if ops == nil || addr > AddrMask {
		return false
	}
	if int(r.n) >= len(r.slots) {
		return false
	}
	r.slots[r.n] = entry{addr: addr, ops: ops}
	r.n++
	return true
}

// Lookup returns the slot index of the first device registered at addr.
func (r *Registry) Lookup(addr Addr) (int, bool) {
	for i := uint8(0); i < r.n; i++ {
		if r.slots[i].addr == addr {
			return int(i), true
		}
	}
	return -1, false
}

// Len returns the number of registered devices.
func (r *Registry) Len() int {
	return int(r.n)
}

// Cap returns the registry capacity.
func (r *Registry) Cap() int {
	return len(r.slots)
}

func (r *Registry) at(idx int8) *entry {
	return &r.slots[idx]
}
