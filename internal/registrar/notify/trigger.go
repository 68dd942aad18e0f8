package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/types"
)

// Trigger derives the notification tasks a committed entity raises.
type Trigger interface {
	Tasks(e types.Entity) []types.NotificationTask
}

type TriggerFunc func(e types.Entity) []types.NotificationTask

func (f TriggerFunc) Tasks(e types.Entity) []types.NotificationTask { return f(e) }

// Triggers combines several triggers.  Nil entries are skipped.
func Triggers(ts ...Trigger) Trigger {
	return TriggerFunc(func(e types.Entity) []types.NotificationTask {
		var out []types.NotificationTask
		for _, t := range ts {
			if t == nil {
				continue
			}
			out = append(out, t.Tasks(e)...)
		}
		return out
	})
}

// AbsenceTrigger raises one guardian notice when an attendance record is
// committed with its presence flag false.  A missing target address still
// yields a task; dispatch reports it as failed.
type AbsenceTrigger struct {
	Flag        string // default "present"
	TargetField string // default "guardian_email"
	Now         func() time.Time
}

func (t AbsenceTrigger) Tasks(e types.Entity) []types.NotificationTask {
	flag := t.Flag
	if flag == "" {
		flag = "present"
	}
	targetField := t.TargetField
	if targetField == "" {
		targetField = "guardian_email"
	}
	now := time.Now
	if t.Now != nil {
		now = t.Now
	}

	present, ok := e.GetBool(flag)
	if !ok || present {
		return nil
	}

	target, _ := e.GetString(targetField)
	name, _ := e.GetString("name")
	if name == "" {
		name = e.ID
	}
	date, _ := e.GetString("date")
	notes, _ := e.GetString("notes")

	ts := now().UTC()
	return []types.NotificationTask{{
		ID:        uuid.NewString(),
		EntityID:  e.ID,
		Target:    strings.TrimSpace(target),
		Subject:   "Absence Notification for " + name,
		Payload:   absenceBody(e.ID, name, date, notes),
		Status:    types.NotificationPending,
		CreatedAt: ts,
		UpdatedAt: ts,
	}}
}

func absenceBody(id, name, date, notes string) string {
	var b strings.Builder
	b.WriteString("Dear Parent/Guardian,\n\n")
	if date != "" {
		fmt.Fprintf(&b, "This is to inform you that %s was absent on %s.\n", name, date)
	} else {
		fmt.Fprintf(&b, "This is to inform you that %s was absent.\n", name)
	}
	if n := strings.TrimSpace(notes); n != "" {
		fmt.Fprintf(&b, "Notes: %s\n", n)
	}
	fmt.Fprintf(&b, "\nStudent ID: %s\n\n", id)
	b.WriteString("Please contact the school if you have any questions.\n")
	b.WriteString("Sincerely,\nSchool Administration")
	return b.String()
}
