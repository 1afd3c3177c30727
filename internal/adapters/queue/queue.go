// Package queue provides JobQueue implementations: an in-process queue for
// single-binary deployments, a Redis list with pub/sub wake-ups, and an AMQP
// queue for RabbitMQ deployments.
package queue

import "errors"

// ErrClosed is returned by operations on a closed queue.
var ErrClosed = errors.New("job queue closed")
