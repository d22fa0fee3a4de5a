package primary

import (
	"sort"

	"github.com/mohitkumar/mqueue/errs"
)

// BrokerRegistry tracks every known broker host and how many partitions it has been given.
// A host is in exactly one of the active or inactive sets. It is not safe for concurrent
// use; Directory guards it.
type BrokerRegistry struct {
	active   map[string]int
	inactive map[string]int
}

func NewBrokerRegistry() *BrokerRegistry {
	return &BrokerRegistry{
		active:   make(map[string]int),
		inactive: make(map[string]int),
	}
}

func (r *BrokerRegistry) Add(host string) error {
	if r.known(host) {
		return errs.ErrBrokerExistsf(host)
	}
	r.active[host] = 0
	return nil
}

func (r *BrokerRegistry) Remove(host string) error {
	if _, ok := r.active[host]; ok {
		delete(r.active, host)
		return nil
	}
	if _, ok := r.inactive[host]; ok {
		delete(r.inactive, host)
		return nil
	}
	return errs.ErrBrokerNotFoundf(host)
}

func (r *BrokerRegistry) Activate(host string) error {
	if _, ok := r.active[host]; ok {
		return errs.ErrBrokerAlreadyActivef(host)
	}
	load, ok := r.inactive[host]
	if !ok {
		return errs.ErrBrokerNotFoundf(host)
	}
	delete(r.inactive, host)
	r.active[host] = load
	return nil
}

func (r *BrokerRegistry) Deactivate(host string) error {
	if _, ok := r.inactive[host]; ok {
		return errs.ErrBrokerAlreadyInactivef(host)
	}
	load, ok := r.active[host]
	if !ok {
		return errs.ErrBrokerNotFoundf(host)
	}
	delete(r.active, host)
	r.inactive[host] = load
	return nil
}

func (r *BrokerRegistry) known(host string) bool {
	_, a := r.active[host]
	_, i := r.inactive[host]
	return a || i
}

// IsActive reports whether host is known and active.
func (r *BrokerRegistry) IsActive(host string) bool {
	_, ok := r.active[host]
	return ok
}

// Load returns the partition count of host in either set.
func (r *BrokerRegistry) Load(host string) (int, bool) {
	if n, ok := r.active[host]; ok {
		return n, true
	}
	n, ok := r.inactive[host]
	return n, ok
}

// Choose picks a host for each of n partitions, greedily taking the active host with the
// fewest partitions (counting picks already made) and breaking ties by hostname. The
// registry is not modified; call Assign to commit the result.
func (r *BrokerRegistry) Choose(n int) ([]string, error) {
	if len(r.active) == 0 {
		return nil, errs.ErrNoActiveBrokers
	}
	hosts := make([]string, 0, len(r.active))
	loads := make(map[string]int, len(r.active))
	for h, l := range r.active {
		hosts = append(hosts, h)
		loads[h] = l
	}
	sort.Strings(hosts)

	chosen := make([]string, n)
	for i := 0; i < n; i++ {
		best := hosts[0]
		for _, h := range hosts[1:] {
			if loads[h] < loads[best] {
				best = h
			}
		}
		chosen[i] = best
		loads[best]++
	}
	return chosen, nil
}

// Assign adds one partition to each listed host's load. Unknown hosts are ignored.
func (r *BrokerRegistry) Assign(hosts []string) {
	for _, h := range hosts {
		if _, ok := r.active[h]; ok {
			r.active[h]++
		} else if _, ok := r.inactive[h]; ok {
			r.inactive[h]++
		}
	}
}

// Loads returns copies of the active and inactive load maps.
func (r *BrokerRegistry) Loads() (active, inactive map[string]int) {
	active = make(map[string]int, len(r.active))
	for h, l := range r.active {
		active[h] = l
	}
	inactive = make(map[string]int, len(r.inactive))
	for h, l := range r.inactive {
		inactive[h] = l
	}
	return active, inactive
}

func (r *BrokerRegistry) restore(host string, active bool) {
	if active {
		r.active[host] = 0
	} else {
		r.inactive[host] = 0
	}
}
