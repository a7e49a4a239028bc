package redis

import (
	"context"
	"fmt"
	"sync"

	"github.com/mediocregopher/radix/v3"

	"github.com/f0mster/xpctoolbox/pkg/pubsub"
	"github.com/f0mster/xpctoolbox/pkg/queue"
)

type subscription struct {
	callback func(event []byte) error
	q        *queue.Queue
}

// topic is one redis subscription shared by every local subscriber of it.
type topic struct {
	msgChan chan radix.PubSubMessage
	done    chan struct{}
	subs    map[int64]*subscription
}

// Events is a pubsub over redis PUBLISH/SUBSCRIBE. Every subscription gets the
// events of its topic in publish order on a serial queue of its own.
type Events struct {
	pool   *radix.Pool
	pubsub radix.PubSubConn

	subscribeMutex sync.Mutex
	topics         map[string]*topic
	lastEl         int64
}

var _ pubsub.PubSub = (*Events)(nil)

func New(network, addr string, poolSize int) (inst *Events, err error) {
	inst = &Events{
		topics: map[string]*topic{},
	}
	inst.pubsub, err = radix.PersistentPubSubWithOpts(network, addr)
	if err != nil {
		return nil, fmt.Errorf("radix pubsub create error: %w", err)
	}
	inst.pool, err = radix.NewPool(network, addr, poolSize)
	if err != nil {
		inst.pubsub.Close()
		return nil, fmt.Errorf("radix pool create error: %w", err)
	}
	return inst, nil
}

func (r *Events) Close() {
	r.subscribeMutex.Lock()
	topics := r.topics
	r.topics = map[string]*topic{}
	r.subscribeMutex.Unlock()
	for _, t := range topics {
		close(t.done)
		for _, sub := range t.subs {
			sub.q.Close()
		}
	}
	r.pubsub.Close()
	r.pool.Close()
}

func (r *Events) PublishToTopic(topic string, eventData []byte) error {
	return r.pool.Do(radix.FlatCmd(nil, "PUBLISH", topic, eventData))
}

func (r *Events) Publish(namespace string, eventName string, eventData []byte) error {
	return r.PublishToTopic(pubsub.Topic(namespace, eventName), eventData)
}

func (r *Events) SubscribeForTopic(name string, callback func(event []byte) error) (pubsub.CancelFunc, error) {
	r.subscribeMutex.Lock()
	defer r.subscribeMutex.Unlock()
	t, ok := r.topics[name]
	if !ok {
		t = &topic{
			msgChan: make(chan radix.PubSubMessage, 1000),
			done:    make(chan struct{}),
			subs:    map[int64]*subscription{},
		}
		if err := r.pubsub.Subscribe(t.msgChan, name); err != nil {
			return nil, err
		}
		r.topics[name] = t
		go r.fanout(t)
	}
	r.lastEl++
	i := r.lastEl
	sub := &subscription{callback: callback, q: queue.NewSerial(name)}
	t.subs[i] = sub

	once := sync.Once{}
	return func() {
		once.Do(func() {
			r.subscribeMutex.Lock()
			delete(t.subs, i)
			last := len(t.subs) == 0 && r.topics[name] == t
			if last {
				delete(r.topics, name)
			}
			r.subscribeMutex.Unlock()
			sub.q.Close()
			if last {
				// outside the lock: radix may be blocked handing fanout a message
				_ = r.pubsub.Unsubscribe(t.msgChan, name)
				close(t.done)
			}
		})
	}, nil
}

func (r *Events) Subscribe(namespace string, eventName string, callback func(event []byte) error) (pubsub.CancelFunc, error) {
	return r.SubscribeForTopic(pubsub.Topic(namespace, eventName), callback)
}

func (r *Events) fanout(t *topic) {
	for {
		select {
		case <-t.done:
			return
		case msg := <-t.msgChan:
			data := msg.Message
			r.subscribeMutex.Lock()
			for _, sub := range t.subs {
				cb := sub.callback
				sub.q.Async(func(context.Context) {
					_ = cb(data)
				})
			}
			r.subscribeMutex.Unlock()
		}
	}
}
