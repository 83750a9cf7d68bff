package notify

import (
	"encoding/json"
	"time"
)

// JobTypeDispatch is the queue job type carrying a serialized Event.
const JobTypeDispatch = "NOTIFY_DISPATCH"

// Enqueuer is the slice of the job queue the dispatcher needs.
type Enqueuer interface {
	Enqueue(jobType string, payload []byte, runAt time.Time) error
}

// QueueDispatcher writes events onto the job queue so delivery happens in
// the background worker, outside the request that produced the event.
type QueueDispatcher struct {
	Queue Enqueuer
}

func (d *QueueDispatcher) Dispatch(e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return d.Queue.Enqueue(JobTypeDispatch, payload, time.Now())
}
