package events

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/glue-go/uccookie/pkg/ucclient"
)

const (
	pollTopic       = "event.poll"
	transitionTopic = "event.transition"
)

// TopicPoll carries a [PollAttempt] for every status poll of one login.
func TopicPoll(attempt uuid.UUID) string {
	return fmt.Sprintf("%s:%s", pollTopic, attempt)
}

// TopicTransition carries the single [Transition] of one login.
func TopicTransition(attempt uuid.UUID) string {
	return fmt.Sprintf("%s:%s", transitionTopic, attempt)
}

// PollAttempt describes one status poll.
type PollAttempt struct {
	AttemptID uuid.UUID
	// Seq counts polls from 1.
	Seq  int
	At   time.Time
	Kind ucclient.PollKind
	Code int
	// Errors counts the failed polls of the attempt so far, this one included.
	Errors int
	Err    error
}

// Transition reports the move from pending to a terminal status.
type Transition struct {
	AttemptID uuid.UUID
	Status    string
	At        time.Time
	Err       error
}
