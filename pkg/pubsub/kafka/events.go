package kafka

import (
	"errors"
	"sync"

	"github.com/Shopify/sarama"

	"github.com/f0mster/xpctoolbox/pkg/pubsub"
)

var ErrNoActiveBrokers = errors.New("failed to find active brokers")

// Events publishes to and consumes from kafka. Topics are created on first
// use with a single partition, so events of a topic keep their order.
type Events struct {
	client       sarama.Client
	admin        sarama.ClusterAdmin
	syncProducer sarama.SyncProducer
	consumer     sarama.Consumer
	config       *sarama.Config
	prefix       string

	m      sync.Mutex
	topics map[string]bool
}

var _ pubsub.PubSub = (*Events)(nil)

// Config returns a sarama configuration Events works with.
func Config() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Consumer.Return.Errors = false
	return cfg
}

func New(config *sarama.Config, brokers []string) (*Events, error) {
	return NewWithPrefix(config, brokers, "")
}

func NewWithPrefix(config *sarama.Config, brokers []string, prefix string) (*Events, error) {
	client, err := sarama.NewClient(brokers, config)
	if err != nil {
		return nil, err
	}
	producer, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	consumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		_ = producer.Close()
		_ = client.Close()
		return nil, err
	}
	// closing the admin closes client as well
	admin, err := sarama.NewClusterAdminFromClient(client)
	if err != nil {
		_ = consumer.Close()
		_ = producer.Close()
		_ = client.Close()
		return nil, err
	}
	return &Events{
		client:       client,
		admin:        admin,
		syncProducer: producer,
		consumer:     consumer,
		config:       config,
		prefix:       prefix,
		topics:       map[string]bool{},
	}, nil
}

func (r *Events) Close() error {
	errC := r.consumer.Close()
	errP := r.syncProducer.Close()
	errA := r.admin.Close()
	for _, err := range []error{errC, errP, errA} {
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Events) ensureTopic(topic string) error {
	r.m.Lock()
	defer r.m.Unlock()
	if r.topics[topic] {
		return nil
	}
	if len(r.client.Brokers()) < 1 {
		return ErrNoActiveBrokers
	}
	topics, err := r.admin.ListTopics()
	if err != nil {
		return err
	}
	if _, ok := topics[topic]; !ok {
		topicDetail := &sarama.TopicDetail{
			NumPartitions:     1,
			ReplicationFactor: 1,
			ConfigEntries:     map[string]*string{},
		}
		err = r.admin.CreateTopic(topic, topicDetail, false)
		var se *sarama.TopicError
		if err != nil && !(errors.As(err, &se) && se.Err == sarama.ErrTopicAlreadyExists) {
			return err
		}
	}
	r.topics[topic] = true
	return nil
}

func (r *Events) PublishToTopic(topic string, eventData []byte) error {
	topic = r.prefix + topic
	if err := r.ensureTopic(topic); err != nil {
		return err
	}
	_, _, err := r.syncProducer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(eventData),
	})
	return err
}

func (r *Events) Publish(namespace string, eventName string, event []byte) error {
	return r.PublishToTopic(pubsub.Topic(namespace, eventName), event)
}

// SubscribeForTopic delivers events published after the call, in order.
// Errors returned by callback are dropped.
func (r *Events) SubscribeForTopic(topic string, callback func(event []byte) error) (pubsub.CancelFunc, error) {
	topic = r.prefix + topic
	if err := r.ensureTopic(topic); err != nil {
		return nil, err
	}
	pc, err := r.consumer.ConsumePartition(topic, 0, sarama.OffsetNewest)
	if err != nil {
		return nil, err
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for message := range pc.Messages() {
			_ = callback(message.Value)
		}
	}()
	once := sync.Once{}
	return func() {
		once.Do(func() {
			pc.AsyncClose()
			<-done
		})
	}, nil
}

func (r *Events) Subscribe(namespace string, eventName string, callback func(event []byte) error) (pubsub.CancelFunc, error) {
	return r.SubscribeForTopic(pubsub.Topic(namespace, eventName), callback)
}
