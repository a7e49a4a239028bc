package pubsub

type Publisher interface {
	Publish(namespace string, eventName string, event []byte) error
	PublishToTopic(topic string, event []byte) error
}

type CancelFunc func()

type Subscriber interface {
	Subscribe(namespace string, eventName string, callback func(event []byte) error) (CancelFunc, error)
	SubscribeForTopic(topic string, callback func(event []byte) error) (CancelFunc, error)
}

type PubSub interface {
	Publisher
	Subscriber
}

// Topic is the topic Publish and Subscribe use for an event of namespace.
func Topic(namespace string, eventName string) string {
	return namespace + "." + eventName
}
