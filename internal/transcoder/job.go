package transcoder

import (
	"errors"
	"fmt"
	"time"

	"media-filter/internal/filter"
	"media-filter/internal/mediatypes"

	"github.com/google/uuid"
)

// State is the lifecycle state of a job.
type State string

// Job states.
const (
	StateReceived   State = "received"
	StateValidated  State = "validated"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// ErrIllegalTransition is returned when a job is moved to a state its
// current state does not lead to.
var ErrIllegalTransition = errors.New("illegal job state transition")

var transitions = map[State][]State{
	StateReceived:   {StateValidated, StateFailed},
	StateValidated:  {StateProcessing, StateFailed},
	StateProcessing: {StateCompleted, StateFailed},
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// CanTransition reports whether from leads directly to to.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Request is one unit of work: an uploaded file plus the parameters to apply.
type Request struct {
	Filename  string
	MimeType  string
	InputPath string
	Size      int64
	Params    filter.Parameters
}

// Job tracks a Request through the state machine.
type Job struct {
	ID         string
	Kind       mediatypes.Kind
	State      State
	Request    Request
	RecordID   int64
	OutputPath string
	Err        error
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func newJob(req Request) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Kind:      mediatypes.KindFromMIME(req.MimeType),
		State:     StateReceived,
		Request:   req,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (j *Job) transition(to State) error {
	if !CanTransition(j.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, j.State, to)
	}
	j.State = to
	j.UpdatedAt = time.Now()
	return nil
}

func (j *Job) fail(err error) error {
	j.Err = err
	if tErr := j.transition(StateFailed); tErr != nil {
		return errors.Join(err, tErr)
	}
	return err
}
