package contextmarshaller

import (
	"context"
	"encoding/json"
	"time"

	"github.com/f0mster/xpctoolbox/pkg/metadata"
)

type DefaultCtxMarshaller struct {
}

type Data struct {
	Metadata metadata.Metadata `json:",omitempty"`
	Deadline *time.Time        `json:",omitempty"`
}

func (d *DefaultCtxMarshaller) Marshal(ctx context.Context) ([]byte, error) {
	tmp := Data{}
	if ctx != nil {
		tmp.Metadata, _ = metadata.FromContext(ctx)
		dl, ok := ctx.Deadline()
		if ok {
			tmp.Deadline = &dl
		}
	}
	return json.Marshal(tmp)
}

func (d *DefaultCtxMarshaller) Unmarshal(parent context.Context, data []byte) (context.Context, context.CancelFunc, error) {
	if parent == nil {
		parent = context.Background()
	}
	tmp := Data{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &tmp); err != nil {
			return nil, nil, err
		}
	}

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if tmp.Deadline == nil || tmp.Deadline.IsZero() {
		ctx, cancel = context.WithCancel(parent)
	} else {
		ctx, cancel = context.WithDeadline(parent, *tmp.Deadline)
	}
	if tmp.Metadata != nil {
		ctx = metadata.NewContext(ctx, tmp.Metadata)
	}
	return ctx, cancel, nil
}
