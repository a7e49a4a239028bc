package registry

// Registries are not meant to be used directly. Listeners publish their
// namespace here and sessions resolve against it.

type Registerer interface {
	Register(namespace string, instanceId InstanceId)
	Unregister(namespace string, instanceId InstanceId)
}

type InstanceId string
type CancelFunc func()

type Watcher interface {
	// WatchUnregistered calls onchange every time the last instance of
	// namespace goes away, until CancelFunc is called.
	WatchUnregistered(namespace string, onchange func()) CancelFunc
	// WatchRegistered calls onchange every time the first instance of
	// namespace shows up, until CancelFunc is called.
	WatchRegistered(namespace string, onchange func()) CancelFunc
	WatchInstanceUnregistered(namespace string, onchange func(instanceId InstanceId)) CancelFunc
	WatchInstanceRegistered(namespace string, onchange func(instanceId InstanceId)) CancelFunc
	// Instances enumerates registered instances by namespace.
	Instances(namespace string) map[InstanceId]bool
}

type Registry interface {
	Registerer
	Watcher
}
