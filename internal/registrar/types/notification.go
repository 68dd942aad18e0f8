package types

import "time"

type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// NotificationTask is a side-channel message (e.g. "your child was absent")
// raised by a committed change.  Its lifetime is independent of the change
// that created it.
type NotificationTask struct {
	ID        string             `json:"id"`
	EntityID  string             `json:"entity_id"`
	Target    string             `json:"target"`
	Subject   string             `json:"subject"`
	Payload   string             `json:"payload"`
	Status    NotificationStatus `json:"status"`
	Reason    string             `json:"reason,omitempty"`
	Attempts  int                `json:"attempts"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

type NotificationSummary struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

func (s *NotificationSummary) Add(o NotificationSummary) {
	s.Sent += o.Sent
	s.Failed += o.Failed
}
