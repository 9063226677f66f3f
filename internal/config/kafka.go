package config

import "time"

type Kafka struct {
	Addresses       []string `env:"KAFKA_ADDRESSES,required" envSeparator:","`
	Group           string   `env:"KAFKA_GROUP,required"`
	Topic           string   `env:"KAFKA_TOPIC" envDefault:"product.changed"`
	DeadLetterTopic string   `env:"KAFKA_DEAD_LETTER_TOPIC"`
	// RetryBackoff is the pause before a partition rewound after a
	// retryable failure is polled again.
	RetryBackoff time.Duration `env:"KAFKA_RETRY_BACKOFF" envDefault:"2s"`
}
