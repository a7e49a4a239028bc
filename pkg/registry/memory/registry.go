package memory

import (
	"sync"

	"github.com/f0mster/xpctoolbox/pkg/registry"
)

type watchers[F any] struct {
	last int64
	fns  map[int64]F
}

func (w *watchers[F]) add(fn F) int64 {
	if w.fns == nil {
		w.fns = map[int64]F{}
	}
	w.last++
	w.fns[w.last] = fn
	return w.last
}

type data struct {
	instances            map[registry.InstanceId]bool
	registered           watchers[func()]
	unregistered         watchers[func()]
	instanceRegistered   watchers[func(instanceId registry.InstanceId)]
	instanceUnregistered watchers[func(instanceId registry.InstanceId)]
}

type memRegistry struct {
	reg      map[string]*data
	regMutex sync.RWMutex
}

var _ registry.Registry = (*memRegistry)(nil)

// New returns an in-process registry. Watch callbacks run on their own
// goroutines.
func New() *memRegistry {
	return &memRegistry{
		reg: map[string]*data{},
	}
}

func (m *memRegistry) Register(namespace string, instanceId registry.InstanceId) {
	m.regMutex.Lock()
	defer m.regMutex.Unlock()
	rns := m.namespace(namespace)
	if rns.instances[instanceId] {
		return
	}
	rns.instances[instanceId] = true
	if len(rns.instances) == 1 {
		for _, v := range rns.registered.fns {
			go v()
		}
	}
	for _, v := range rns.instanceRegistered.fns {
		go v(instanceId)
	}
}

func (m *memRegistry) Unregister(namespace string, instanceId registry.InstanceId) {
	m.regMutex.Lock()
	defer m.regMutex.Unlock()
	rns := m.namespace(namespace)
	if !rns.instances[instanceId] {
		return
	}
	delete(rns.instances, instanceId)

	for _, v := range rns.instanceUnregistered.fns {
		go v(instanceId)
	}
	if len(rns.instances) == 0 {
		for _, v := range rns.unregistered.fns {
			go v()
		}
	}
}

func (m *memRegistry) Instances(namespace string) map[registry.InstanceId]bool {
	m.regMutex.RLock()
	defer m.regMutex.RUnlock()
	resp := map[registry.InstanceId]bool{}
	rns, ok := m.reg[namespace]
	if !ok {
		return resp
	}
	for k, v := range rns.instances {
		resp[k] = v
	}
	return resp
}

func (m *memRegistry) WatchUnregistered(namespace string, onchange func()) registry.CancelFunc {
	m.regMutex.Lock()
	defer m.regMutex.Unlock()
	return watch(m, &m.namespace(namespace).unregistered, onchange)
}

func (m *memRegistry) WatchRegistered(namespace string, onchange func()) registry.CancelFunc {
	m.regMutex.Lock()
	defer m.regMutex.Unlock()
	return watch(m, &m.namespace(namespace).registered, onchange)
}

func (m *memRegistry) WatchInstanceUnregistered(namespace string, onchange func(instanceId registry.InstanceId)) registry.CancelFunc {
	m.regMutex.Lock()
	defer m.regMutex.Unlock()
	return watch(m, &m.namespace(namespace).instanceUnregistered, onchange)
}

// WatchInstanceRegistered also reports the instances registered so far.
func (m *memRegistry) WatchInstanceRegistered(namespace string, onchange func(instanceId registry.InstanceId)) registry.CancelFunc {
	m.regMutex.Lock()
	defer m.regMutex.Unlock()
	rns := m.namespace(namespace)
	for inst := range rns.instances {
		go onchange(inst)
	}
	return watch(m, &rns.instanceRegistered, onchange)
}

// watch must be called with regMutex held. The returned CancelFunc is
// idempotent.
func watch[F any](m *memRegistry, w *watchers[F], fn F) registry.CancelFunc {
	i := w.add(fn)
	once := sync.Once{}
	return func() {
		once.Do(func() {
			m.regMutex.Lock()
			delete(w.fns, i)
			m.regMutex.Unlock()
		})
	}
}

func (m *memRegistry) namespace(namespace string) *data {
	rns, ok := m.reg[namespace]
	if !ok {
		rns = &data{instances: map[registry.InstanceId]bool{}}
		m.reg[namespace] = rns
	}
	return rns
}
