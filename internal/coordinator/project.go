package coordinator

import (
	"fmt"

	"github.com/inkwell/calsync/internal/core"
)

// Project turns a booking record into the canonical event every adapter
// consumes. The title is "<service> - <client>", attendees are the client
// and the staff member with empty emails filtered out, and the metadata
// carries the appointment id so remote mirrors stay traceable.
func (c *Coordinator) Project(appt core.Appointment) core.CalendarEvent {
	event := core.CalendarEvent{
		ID:          appt.ID,
		Title:       fmt.Sprintf("%s - %s", appt.ServiceName, appt.ClientName),
		Description: appt.Notes,
		Location:    appt.Location,
		Timezone:    c.timezone,
		Start:       appt.Start,
		End:         appt.End,
		Reminders:   c.defaultReminders,
		Metadata:    map[string]string{"appointment_id": appt.ID},
	}

	if appt.ClientEmail != "" {
		event.Attendees = append(event.Attendees, core.Attendee{
			Email:    appt.ClientEmail,
			Name:     appt.ClientName,
			Status:   core.StatusNeedsAction,
			Required: true,
		})
	}
	if appt.StaffEmail != "" {
		event.Attendees = append(event.Attendees, core.Attendee{
			Email:    appt.StaffEmail,
			Name:     appt.StaffName,
			Status:   core.StatusAccepted,
			Required: true,
		})
	}

	return event
}
