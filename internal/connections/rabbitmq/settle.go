package rabbitmq

import (
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	ErrRequeue = errors.New("requeue")     // nack(requeue=true)
	ErrDLQ     = errors.New("dead_letter") // nack(requeue=false)
)

// Outcome is what happened to a delivery after Settle.
type Outcome string

const (
	Acked       Outcome = "ack"
	Requeued    Outcome = "requeue"
	DeadLetter  Outcome = "dead_letter"
	SettleError Outcome = "settle_error"
)

// Settle acks or nacks d according to the handler error: nil acks, ErrDLQ
// dead-letters, anything else goes back to the queue.
func Settle(d amqp.Delivery, err error) Outcome {
	var (
		out  Outcome
		serr error
	)
	switch {
	case err == nil:
		out, serr = Acked, d.Ack(false)
	case errors.Is(err, ErrDLQ):
		out, serr = DeadLetter, d.Nack(false, false)
	default:
		out, serr = Requeued, d.Nack(false, true)
	}
	if serr != nil {
		return SettleError
	}
	return out
}
