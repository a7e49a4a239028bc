package memory

import (
	"context"
	"sync"

	"github.com/f0mster/xpctoolbox/pkg/pubsub"
	"github.com/f0mster/xpctoolbox/pkg/queue"
)

type subscription struct {
	callback func(event []byte) error
	q        *queue.Queue
}

// Events is an in-process pubsub. Every subscription gets the events of its
// topic in publish order on a serial queue of its own.
type Events struct {
	subscribeMap   map[string]map[int64]*subscription
	lastEl         int64
	subscribeMutex sync.Mutex
}

var _ pubsub.PubSub = (*Events)(nil)

func New() (inst *Events) {
	return &Events{
		subscribeMap: map[string]map[int64]*subscription{},
	}
}

func (r *Events) PublishToTopic(topic string, eventData []byte) error {
	r.subscribeMutex.Lock()
	defer r.subscribeMutex.Unlock()
	for _, sub := range r.subscribeMap[topic] {
		cb := sub.callback
		sub.q.Async(func(context.Context) {
			_ = cb(eventData)
		})
	}
	return nil
}

func (r *Events) Publish(namespace string, eventName string, eventData []byte) (err error) {
	return r.PublishToTopic(pubsub.Topic(namespace, eventName), eventData)
}

func (r *Events) SubscribeForTopic(topic string, callback func(event []byte) error) (pubsub.CancelFunc, error) {
	r.subscribeMutex.Lock()
	defer r.subscribeMutex.Unlock()
	subs, ok := r.subscribeMap[topic]
	if !ok {
		subs = map[int64]*subscription{}
		r.subscribeMap[topic] = subs
	}
	r.lastEl++
	i := r.lastEl
	sub := &subscription{callback: callback, q: queue.NewSerial(topic)}
	subs[i] = sub

	once := sync.Once{}
	return func() {
		once.Do(func() {
			r.subscribeMutex.Lock()
			delete(subs, i)
			if len(subs) == 0 {
				delete(r.subscribeMap, topic)
			}
			r.subscribeMutex.Unlock()
			sub.q.Close()
		})
	}, nil
}

func (r *Events) Subscribe(namespace string, eventName string, callback func(event []byte) error) (cancel pubsub.CancelFunc, err error) {
	return r.SubscribeForTopic(pubsub.Topic(namespace, eventName), callback)
}
