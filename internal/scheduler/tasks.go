package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskStaleSweep = "leads.stale_sweep"

// Sweep triggers recorded in logs and events.
const (
	TriggerSchedule = "schedule"
	TriggerStartup  = "startup"
)

type StaleSweepPayload struct {
	Trigger string `json:"trigger"`
}

func NewStaleSweepTask(payload StaleSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStaleSweep, data), nil
}

// ParseStaleSweepPayload decodes a sweep task. An empty trigger means the
// periodic schedule.
func ParseStaleSweepPayload(task *asynq.Task) (StaleSweepPayload, error) {
	var payload StaleSweepPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return StaleSweepPayload{}, err
		}
	}
	if payload.Trigger == "" {
		payload.Trigger = TriggerSchedule
	}
	return payload, nil
}
