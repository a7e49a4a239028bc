package metadata

import "context"

// Metadata is a set of string values carried along a call.
type Metadata map[string]string

type mdKey struct{}

func FromContext(ctx context.Context) (Metadata, bool) {
	if ctx == nil {
		return nil, false
	}
	md, ok := ctx.Value(mdKey{}).(Metadata)
	return md, ok
}

func NewContext(ctx context.Context, md Metadata) context.Context {
	return context.WithValue(ctx, mdKey{}, md)
}

// Set returns a copy of ctx with key set. Metadata attached to ctx is not
// modified.
func Set(ctx context.Context, key, value string) context.Context {
	old, _ := FromContext(ctx)
	md := make(Metadata, len(old)+1)
	for k, v := range old {
		md[k] = v
	}
	md[key] = value
	return NewContext(ctx, md)
}

func Get(ctx context.Context, key string) (string, bool) {
	md, ok := FromContext(ctx)
	if !ok {
		return "", false
	}
	v, ok := md[key]
	return v, ok
}
