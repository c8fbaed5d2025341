package publisher

import (
	"errors"
	"fmt"

	"pubbot/internal/post"
)

// ErrUnknownType marks an unsupported publication type. Matched with
// errors.Is by callers that want to distinguish bad payloads from
// platform failures.
var ErrUnknownType = errors.New("unknown publication type")

type TypeError struct {
	Type post.Type
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("publication type %q is not supported", string(e.Type))
}

func (e *TypeError) Unwrap() error { return ErrUnknownType }

// Delivery steps, in order.
const (
	StepSend    = "send"
	StepForward = "forward"
	StepPin     = "pin"
)

// DeliveryError is a messaging-platform rejection at a specific step of
// the send-forward-pin sequence.
type DeliveryError struct {
	Step string
	Err  error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery failed at %s: %v", e.Step, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
