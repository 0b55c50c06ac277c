package scheduling

import "github.com/nikhilbhutani/petdesk/internal/models"

var appointmentNext = map[models.AppointmentStatus][]models.AppointmentStatus{
	models.AppointmentScheduled: {models.AppointmentInService, models.AppointmentCancelled},
	models.AppointmentInService: {models.AppointmentFinished, models.AppointmentCancelled},
}

var stayNext = map[models.StayStatus][]models.StayStatus{
	models.StayReserved:  {models.StayCheckedIn, models.StayCancelled},
	models.StayCheckedIn: {models.StayCheckedOut, models.StayCancelled},
}

// CanMoveAppointment reports whether an appointment may go from one status
// to another. Finished and cancelled appointments are terminal.
func CanMoveAppointment(from, to models.AppointmentStatus) bool {
	for _, s := range appointmentNext[from] {
		if s == to {
			return true
		}
	}
	return false
}

func CanMoveStay(from, to models.StayStatus) bool {
	for _, s := range stayNext[from] {
		if s == to {
			return true
		}
	}
	return false
}

func AppointmentTerminal(s models.AppointmentStatus) bool {
	return len(appointmentNext[s]) == 0
}

func StayTerminal(s models.StayStatus) bool {
	return len(stayNext[s]) == 0
}

func validKanban(k models.KanbanStatus) bool {
	switch k {
	case models.KanbanWaiting, models.KanbanBath, models.KanbanGrooming, models.KanbanDrying, models.KanbanReady:
		return true
	}
	return false
}

func validPayment(p models.PaymentStatus) bool {
	return p == models.PaymentPending || p == models.PaymentPaid
}
