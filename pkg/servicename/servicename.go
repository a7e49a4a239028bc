package servicename

// ServiceName is anything that can be used where a service name is required.
// Only SystemServiceName and AppServiceName are understood by the channel
// constructors; any other implementation is rejected at construction time.
type ServiceName interface {
	RawValue() string
}

// SystemServiceName is resolved through the system-wide service namespace.
// The service has to be registered with the system before clients can reach it.
type SystemServiceName string

func NewSystemServiceName(raw string) SystemServiceName {
	return SystemServiceName(raw)
}

func (n SystemServiceName) RawValue() string {
	return string(n)
}

func (n SystemServiceName) String() string {
	return SchemeSystem.Namespace(string(n))
}

// AppServiceName is resolved through the namespace declared by the running
// application.
type AppServiceName string

func NewAppServiceName(raw string) AppServiceName {
	return AppServiceName(raw)
}

func (n AppServiceName) RawValue() string {
	return string(n)
}

func (n AppServiceName) String() string {
	return SchemeApp.Namespace(string(n))
}

var (
	_ ServiceName = SystemServiceName("")
	_ ServiceName = AppServiceName("")
)
