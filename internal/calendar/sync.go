package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/petdesk/internal/metrics"
	"github.com/nikhilbhutani/petdesk/internal/models"
	"github.com/nikhilbhutani/petdesk/internal/scheduling"
)

const defaultService = "Banho"

var (
	ErrPetNotFound   = errors.New("no pet matches the event title")
	ErrStartRequired = errors.New("start_date is required to create an appointment")
)

// Scheduler is the slice of the scheduling service the sync needs.
type Scheduler interface {
	AppointmentByEvent(ctx context.Context, tenantID uuid.UUID, eventID string) (*models.Appointment, error)
	StayByEvent(ctx context.Context, tenantID uuid.UUID, eventID string) (*models.HotelStay, error)
	UpdateAppointment(ctx context.Context, tenantID, id uuid.UUID, p scheduling.AppointmentPatch) (*models.Appointment, error)
	SetAppointmentStatus(ctx context.Context, tenantID, id uuid.UUID, to models.AppointmentStatus) (*models.Appointment, error)
	UpdateStay(ctx context.Context, tenantID, id uuid.UUID, p scheduling.StayPatch) (*models.HotelStay, error)
	SetStayStatus(ctx context.Context, tenantID, id uuid.UUID, to models.StayStatus) (*models.HotelStay, error)
	FindPetByName(ctx context.Context, tenantID uuid.UUID, name string) (*models.Pet, error)
	CreateAppointment(ctx context.Context, tenantID uuid.UUID, in scheduling.AppointmentInput) (*models.Appointment, error)
}

// SyncRequest is what the calendar watcher posts when an event changes.
type SyncRequest struct {
	EventID     string     `json:"event_id" validate:"required"`
	Status      string     `json:"status,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	Description string     `json:"description,omitempty"`
}

func (r SyncRequest) cancelled() bool {
	return r.Status == "cancelled"
}

const (
	SyncUpdated   = "updated"
	SyncCancelled = "cancelled"
	SyncCreated   = "created"
	SyncUnchanged = "unchanged"
)

type SyncResult struct {
	Action string    `json:"action"`
	Kind   string    `json:"kind,omitempty"`
	ID     uuid.UUID `json:"id,omitempty"`
}

type Syncer struct {
	sched   Scheduler
	metrics *metrics.Metrics
}

func NewSyncer(sched Scheduler, m *metrics.Metrics) *Syncer {
	return &Syncer{sched: sched, metrics: m}
}

// Sync applies an external calendar change. A known event updates or
// cancels its appointment or stay. An unknown event becomes a new
// appointment for the pet named in its title.
func (s *Syncer) Sync(ctx context.Context, tenantID uuid.UUID, req SyncRequest) (*SyncResult, error) {
	if req.EventID == "" {
		return nil, ErrEventIDRequired
	}

	res, err := s.sync(ctx, tenantID, req)
	outcome := "error"
	switch {
	case errors.Is(err, ErrPetNotFound):
		outcome = "pet_not_found"
	case err == nil:
		outcome = res.Action
	}
	s.metrics.CalendarSync(outcome)
	if err == nil {
		slog.Info("calendar event synced", "tenant_id", tenantID, "event_id", req.EventID, "action", res.Action, "kind", res.Kind)
	}
	return res, err
}

func (s *Syncer) sync(ctx context.Context, tenantID uuid.UUID, req SyncRequest) (*SyncResult, error) {
	appt, err := s.sched.AppointmentByEvent(ctx, tenantID, req.EventID)
	switch {
	case err == nil:
		return s.syncAppointment(ctx, tenantID, appt, req)
	case !errors.Is(err, scheduling.ErrNotFound):
		return nil, err
	}

	stay, err := s.sched.StayByEvent(ctx, tenantID, req.EventID)
	switch {
	case err == nil:
		return s.syncStay(ctx, tenantID, stay, req)
	case !errors.Is(err, scheduling.ErrNotFound):
		return nil, err
	}

	if req.cancelled() {
		return &SyncResult{Action: SyncUnchanged}, nil
	}
	return s.create(ctx, tenantID, req)
}

func (s *Syncer) syncAppointment(ctx context.Context, tenantID uuid.UUID, a *models.Appointment, req SyncRequest) (*SyncResult, error) {
	res := &SyncResult{Kind: "appointment", ID: a.ID}
	if req.cancelled() {
		if scheduling.AppointmentTerminal(a.Status) {
			res.Action = SyncUnchanged
			return res, nil
		}
		if _, err := s.sched.SetAppointmentStatus(ctx, tenantID, a.ID, models.AppointmentCancelled); err != nil {
			return nil, err
		}
		res.Action = SyncCancelled
		return res, nil
	}
	if req.StartDate == nil || req.StartDate.Equal(a.DataHora) {
		res.Action = SyncUnchanged
		return res, nil
	}
	if _, err := s.sched.UpdateAppointment(ctx, tenantID, a.ID, scheduling.AppointmentPatch{DataHora: req.StartDate}); err != nil {
		return nil, err
	}
	res.Action = SyncUpdated
	return res, nil
}

func (s *Syncer) syncStay(ctx context.Context, tenantID uuid.UUID, st *models.HotelStay, req SyncRequest) (*SyncResult, error) {
	res := &SyncResult{Kind: "hotel_stay", ID: st.ID}
	if req.cancelled() {
		if scheduling.StayTerminal(st.Status) {
			res.Action = SyncUnchanged
			return res, nil
		}
		if _, err := s.sched.SetStayStatus(ctx, tenantID, st.ID, models.StayCancelled); err != nil {
			return nil, err
		}
		res.Action = SyncCancelled
		return res, nil
	}
	var patch scheduling.StayPatch
	if req.StartDate != nil && !req.StartDate.Equal(st.CheckIn) {
		patch.CheckIn = req.StartDate
	}
	if req.EndDate != nil && !req.EndDate.Equal(st.CheckOut) {
		patch.CheckOut = req.EndDate
	}
	if patch.CheckIn == nil && patch.CheckOut == nil {
		res.Action = SyncUnchanged
		return res, nil
	}
	if _, err := s.sched.UpdateStay(ctx, tenantID, st.ID, patch); err != nil {
		return nil, err
	}
	res.Action = SyncUpdated
	return res, nil
}

func (s *Syncer) create(ctx context.Context, tenantID uuid.UUID, req SyncRequest) (*SyncResult, error) {
	petName, service := ParseSummary(req.Summary)
	pet, err := s.sched.FindPetByName(ctx, tenantID, petName)
	if errors.Is(err, scheduling.ErrNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrPetNotFound, petName)
	}
	if err != nil {
		return nil, err
	}
	if req.StartDate == nil {
		return nil, ErrStartRequired
	}
	if service == "" {
		service = defaultService
	}

	eventID := req.EventID
	a, err := s.sched.CreateAppointment(ctx, tenantID, scheduling.AppointmentInput{
		ClientID:      pet.ClientID,
		PetID:         pet.ID,
		Servico:       service,
		DataHora:      *req.StartDate,
		GoogleEventID: &eventID,
	})
	if err != nil {
		return nil, err
	}
	return &SyncResult{Action: SyncCreated, Kind: "appointment", ID: a.ID}, nil
}
