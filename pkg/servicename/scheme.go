package servicename

// Scheme is a naming scheme a service name is resolved in.
type Scheme int

const (
	SchemeSystem Scheme = iota + 1
	SchemeApp
)

func (s Scheme) String() string {
	switch s {
	case SchemeSystem:
		return "system"
	case SchemeApp:
		return "app"
	}
	return "unknown"
}

// Namespace returns the scheme qualified name registries and transports use.
func (s Scheme) Namespace(raw string) string {
	return s.String() + "/" + raw
}
