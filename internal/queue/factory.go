package queue

import (
	"fmt"
	"strings"

	"github.com/pricepally/forecasting/internal/config"
	"github.com/pricepally/forecasting/internal/utils"
)

// NewPublisher creates a Publisher based on configuration.
// Default is NATS if type is not specified.
func NewPublisher(cfg config.QueueConfig) (Publisher, error) {
	queueType := utils.QueueType(strings.ToLower(cfg.Type))
	if queueType == "" {
		queueType = utils.QueueTypeNATS
	}

	var (
		publisher Publisher
		err       error
	)
	switch queueType {
	case utils.QueueTypeNATS:
		publisher, err = nullable(newNATSQueue(NATSConfig{
			URL:      cfg.URL,
			Username: cfg.Username,
			Password: cfg.Password,
			Subject:  cfg.Subject,
		}))

	case utils.QueueTypeRedis:
		publisher, err = nullable(newRedisQueue(RedisConfig{
			URL:      cfg.URL,
			Password: cfg.Password,
			DB:       cfg.RedisDB,
			Stream:   cfg.RedisStream,
		}))

	case utils.QueueTypeKafka:
		publisher, err = nullable(newKafkaQueue(KafkaConfig{
			Brokers: cfg.KafkaBrokers,
		}))

	case utils.QueueTypeMemory:
		publisher = newMemoryQueue()

	default:
		return nil, fmt.Errorf("unsupported queue type: %s (supported: nats, redis, kafka, memory)", queueType)
	}

	return publisher, err
}

// nullable keeps a failed constructor from returning a typed nil Publisher
func nullable[T Publisher](p T, err error) (Publisher, error) {
	if err != nil {
		return nil, err
	}
	return p, nil
}
