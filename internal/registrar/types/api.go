package types

type SubmitRequest struct {
	Fields  Fields `json:"fields"`
	Confirm bool   `json:"confirm"`
}

type SubmitResponse struct {
	Outcome       OutcomeKind          `json:"outcome"`
	Entity        *Entity              `json:"entity,omitempty"`
	Violations    []Violation          `json:"violations,omitempty"`
	Reason        string               `json:"reason,omitempty"`
	Attempts      int                  `json:"attempts,omitempty"`
	Notifications *NotificationSummary `json:"notifications,omitempty"`
	ServerTime    string               `json:"server_time"`
}

type RecordList struct {
	Records []Entity `json:"records"`
}

type NotificationList struct {
	Notifications []NotificationTask `json:"notifications"`
}
