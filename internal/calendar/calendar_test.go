package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/nikhilbhutani/petdesk/internal/models"
	"github.com/nikhilbhutani/petdesk/internal/scheduling"
	"github.com/nikhilbhutani/petdesk/internal/tenant"
)

func TestParseSummary(t *testing.T) {
	tests := []struct {
		in, pet, service string
	}{
		{"Banho - Rex", "Rex", "Banho"},
		{"Rex - Banho e Tosa", "Rex", "Banho e Tosa"},
		{"Rex (Tosa)", "Rex", "Tosa"},
		{"Mel Maria (Hidratação)", "Mel Maria", "Hidratação"},
		{"Hotel: Thor", "Thor", "Hotel"},
		{"  Luna  ", "Luna", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			pet, service := ParseSummary(tt.in)
			assert.Equal(t, tt.pet, pet)
			assert.Equal(t, tt.service, service)
		})
	}
}

type memTokens struct {
	conns map[uuid.UUID]*Connection
}

func (m *memTokens) Connection(_ context.Context, tenantID uuid.UUID) (*Connection, error) {
	c, ok := m.conns[tenantID]
	if !ok {
		return nil, ErrNotConnected
	}
	return c, nil
}

func (m *memTokens) SaveConnection(_ context.Context, c *Connection) error {
	m.conns[c.TenantID] = c
	return nil
}

func (m *memTokens) DeleteConnection(_ context.Context, tenantID uuid.UUID) error {
	delete(m.conns, tenantID)
	return nil
}

// googleFake serves both the OAuth token endpoint and the Calendar API.
func googleFake(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		switch r.PostForm.Get("grant_type") {
		case "authorization_code":
			if r.PostForm.Get("code") != "good-code" {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":"invalid_grant"}`))
				return
			}
			w.Write([]byte(`{"access_token":"at-1","refresh_token":"rt-1","token_type":"Bearer","expires_in":3600}`))
		case "refresh_token":
			if r.PostForm.Get("refresh_token") != "rt-1" {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":"invalid_grant"}`))
				return
			}
			w.Write([]byte(`{"access_token":"at-2","token_type":"Bearer","expires_in":3600}`))
		}
	})
	mux.HandleFunc("/users/me/calendarList/primary", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"petshop@example.com","summary":"Pet Shop","primary":true}`))
	})
	mux.HandleFunc("/users/me/calendarList", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at-2", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[{"id":"petshop@example.com","summary":"Pet Shop","primary":true},{"id":"hotel","summary":"Hotel"}]}`))
	})
	mux.HandleFunc("/calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			assert.Equal(t, "true", r.URL.Query().Get("singleEvents"))
			w.Write([]byte(`{"items":[{"id":"ev1","summary":"Banho - Rex","start":{"dateTime":"2026-05-04T10:00:00-03:00"},"end":{"dateTime":"2026-05-04T11:00:00-03:00"}}]}`))
		case http.MethodPost:
			var ev Event
			require.NoError(t, json.NewDecoder(r.Body).Decode(&ev))
			ev.ID = "created-1"
			json.NewEncoder(w).Encode(ev)
		}
	})
	mux.HandleFunc("/calendars/primary/events/missing", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":404,"message":"Not Found"}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newService(t *testing.T) (*Service, *memTokens) {
	srv := googleFake(t)
	tokens := &memTokens{conns: map[uuid.UUID]*Connection{}}
	svc := NewService(OAuthConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "https://app.example.com/oauth/callback",
		Endpoint:     oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token", AuthStyle: oauth2.AuthStyleInParams},
	}, tokens, NewClient(srv.URL, 5*time.Second), nil)
	return svc, tokens
}

func adminSession(tenantID uuid.UUID) *tenant.Session {
	return &tenant.Session{
		UserID:  uuid.New(),
		Profile: &models.UserProfile{TenantID: &tenantID, Role: models.RoleOwner},
		Tenant:  &models.Tenant{ID: tenantID},
	}
}

func TestAuthURL(t *testing.T) {
	svc, _ := newService(t)
	tid := uuid.New()

	u, err := url.Parse(svc.AuthURL(tid))
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, tid.String(), q.Get("state"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, calendarScope, q.Get("scope"))
}

func TestExchangeAndCheckConnection(t *testing.T) {
	svc, tokens := newService(t)
	tid := uuid.New()
	ctx := context.Background()

	st, err := svc.CheckConnection(ctx, tid)
	require.NoError(t, err)
	assert.False(t, st.Connected)

	_, err = svc.ExchangeCode(ctx, adminSession(tid), "")
	assert.ErrorIs(t, err, ErrCodeRequired)

	employee := adminSession(tid)
	employee.Profile.Role = models.RoleEmployee
	_, err = svc.ExchangeCode(ctx, employee, "good-code")
	assert.ErrorIs(t, err, ErrNotTenantAdmin)

	st, err = svc.ExchangeCode(ctx, adminSession(tid), "good-code")
	require.NoError(t, err)
	assert.True(t, st.Connected)
	assert.Equal(t, "petshop@example.com", st.Email)
	assert.Equal(t, "rt-1", tokens.conns[tid].RefreshToken)

	tok, err := svc.RefreshToken(ctx, tid)
	require.NoError(t, err)
	assert.Equal(t, "at-2", tok.AccessToken)

	st, err = svc.CheckConnection(ctx, tid)
	require.NoError(t, err)
	assert.True(t, st.Connected)

	tokens.conns[tid].RefreshToken = "revoked"
	st, err = svc.CheckConnection(ctx, tid)
	require.NoError(t, err)
	assert.False(t, st.Connected)
	assert.NotEmpty(t, st.Error)
}

func TestCalendarActions(t *testing.T) {
	svc, tokens := newService(t)
	tid := uuid.New()
	ctx := context.Background()
	tokens.conns[tid] = &Connection{TenantID: tid, RefreshToken: "rt-1", CalendarID: "primary"}

	cals, err := svc.ListCalendars(ctx, tid)
	require.NoError(t, err)
	assert.Len(t, cals, 2)

	events, err := svc.ListEvents(ctx, tid, time.Now(), time.Now().Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Banho - Rex", events[0].Summary)
	require.NotNil(t, events[0].Start.DateTime)

	start := time.Date(2026, 5, 4, 13, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	created, err := svc.CreateEvent(ctx, tid, &Event{Summary: "Tosa - Luna", Start: EventTime{DateTime: &start}, End: EventTime{DateTime: &end}})
	require.NoError(t, err)
	assert.Equal(t, "created-1", created.ID)
	assert.Equal(t, "Tosa - Luna", created.Summary)

	_, err = svc.GetEvent(ctx, tid, "missing")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.True(t, strings.Contains(apiErr.Error(), "Not Found"))

	_, err = svc.ListCalendars(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.ErrorIs(t, svc.DeleteEvent(ctx, tid, ""), ErrEventIDRequired)
}

type fakeScheduler struct {
	appts   map[string]*models.Appointment
	stays   map[string]*models.HotelStay
	pets    map[string]*models.Pet
	created []scheduling.AppointmentInput
	patched []scheduling.AppointmentPatch
	stayPat []scheduling.StayPatch
}

func (f *fakeScheduler) AppointmentByEvent(_ context.Context, _ uuid.UUID, eventID string) (*models.Appointment, error) {
	if a, ok := f.appts[eventID]; ok {
		return a, nil
	}
	return nil, scheduling.ErrNotFound
}

func (f *fakeScheduler) StayByEvent(_ context.Context, _ uuid.UUID, eventID string) (*models.HotelStay, error) {
	if s, ok := f.stays[eventID]; ok {
		return s, nil
	}
	return nil, scheduling.ErrNotFound
}

func (f *fakeScheduler) UpdateAppointment(_ context.Context, _, id uuid.UUID, p scheduling.AppointmentPatch) (*models.Appointment, error) {
	f.patched = append(f.patched, p)
	return &models.Appointment{ID: id}, nil
}

func (f *fakeScheduler) SetAppointmentStatus(_ context.Context, _, id uuid.UUID, to models.AppointmentStatus) (*models.Appointment, error) {
	for _, a := range f.appts {
		if a.ID == id {
			a.Status = to
			return a, nil
		}
	}
	return nil, scheduling.ErrNotFound
}

func (f *fakeScheduler) UpdateStay(_ context.Context, _, id uuid.UUID, p scheduling.StayPatch) (*models.HotelStay, error) {
	f.stayPat = append(f.stayPat, p)
	return &models.HotelStay{ID: id}, nil
}

func (f *fakeScheduler) SetStayStatus(_ context.Context, _, id uuid.UUID, to models.StayStatus) (*models.HotelStay, error) {
	for _, s := range f.stays {
		if s.ID == id {
			s.Status = to
			return s, nil
		}
	}
	return nil, scheduling.ErrNotFound
}

func (f *fakeScheduler) FindPetByName(_ context.Context, _ uuid.UUID, name string) (*models.Pet, error) {
	if p, ok := f.pets[strings.ToLower(name)]; ok {
		return p, nil
	}
	return nil, scheduling.ErrNotFound
}

func (f *fakeScheduler) CreateAppointment(_ context.Context, _ uuid.UUID, in scheduling.AppointmentInput) (*models.Appointment, error) {
	f.created = append(f.created, in)
	return &models.Appointment{ID: uuid.New(), PetID: in.PetID}, nil
}

func newSyncFixture() *fakeScheduler {
	rex := &models.Pet{ID: uuid.New(), ClientID: uuid.New(), Nome: "Rex"}
	return &fakeScheduler{
		appts: map[string]*models.Appointment{
			"ev-appt": {ID: uuid.New(), Status: models.AppointmentScheduled, DataHora: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)},
		},
		stays: map[string]*models.HotelStay{
			"ev-stay": {ID: uuid.New(), Status: models.StayReserved,
				CheckIn: time.Date(2026, 5, 4, 14, 0, 0, 0, time.UTC), CheckOut: time.Date(2026, 5, 6, 10, 0, 0, 0, time.UTC)},
		},
		pets: map[string]*models.Pet{"rex": rex},
	}
}

func TestSync_MatchedAppointment(t *testing.T) {
	sched := newSyncFixture()
	s := NewSyncer(sched, nil)
	ctx := context.Background()
	tid := uuid.New()

	moved := time.Date(2026, 5, 4, 15, 0, 0, 0, time.UTC)
	res, err := s.Sync(ctx, tid, SyncRequest{EventID: "ev-appt", StartDate: &moved})
	require.NoError(t, err)
	assert.Equal(t, SyncUpdated, res.Action)
	require.Len(t, sched.patched, 1)
	assert.Equal(t, moved, *sched.patched[0].DataHora)

	res, err = s.Sync(ctx, tid, SyncRequest{EventID: "ev-appt", Status: "cancelled"})
	require.NoError(t, err)
	assert.Equal(t, SyncCancelled, res.Action)
	assert.Equal(t, models.AppointmentCancelled, sched.appts["ev-appt"].Status)

	res, err = s.Sync(ctx, tid, SyncRequest{EventID: "ev-appt", Status: "cancelled"})
	require.NoError(t, err)
	assert.Equal(t, SyncUnchanged, res.Action)
	assert.Empty(t, sched.created)
}

func TestSync_MatchedStay(t *testing.T) {
	sched := newSyncFixture()
	s := NewSyncer(sched, nil)
	end := time.Date(2026, 5, 7, 10, 0, 0, 0, time.UTC)

	res, err := s.Sync(context.Background(), uuid.New(), SyncRequest{EventID: "ev-stay", EndDate: &end})
	require.NoError(t, err)
	assert.Equal(t, SyncUpdated, res.Action)
	assert.Equal(t, "hotel_stay", res.Kind)
	require.Len(t, sched.stayPat, 1)
	assert.Nil(t, sched.stayPat[0].CheckIn)
	assert.Equal(t, end, *sched.stayPat[0].CheckOut)
}

func TestSync_UnmatchedCreatesAppointment(t *testing.T) {
	sched := newSyncFixture()
	s := NewSyncer(sched, nil)
	start := time.Date(2026, 5, 8, 9, 0, 0, 0, time.UTC)

	res, err := s.Sync(context.Background(), uuid.New(), SyncRequest{EventID: "ev-new", Summary: "Banho - Rex", StartDate: &start})
	require.NoError(t, err)
	assert.Equal(t, SyncCreated, res.Action)
	require.Len(t, sched.created, 1)
	in := sched.created[0]
	assert.Equal(t, sched.pets["rex"].ID, in.PetID)
	assert.Equal(t, sched.pets["rex"].ClientID, in.ClientID)
	assert.Equal(t, "Banho", in.Servico)
	assert.Equal(t, "ev-new", *in.GoogleEventID)
}

func TestSync_UnknownPetInsertsNothing(t *testing.T) {
	sched := newSyncFixture()
	s := NewSyncer(sched, nil)
	start := time.Now()

	_, err := s.Sync(context.Background(), uuid.New(), SyncRequest{EventID: "ev-x", Summary: "Thor (Tosa)", StartDate: &start})
	assert.ErrorIs(t, err, ErrPetNotFound)
	assert.Empty(t, sched.created)

	res, err := s.Sync(context.Background(), uuid.New(), SyncRequest{EventID: "ev-y", Status: "cancelled", Summary: "Rex"})
	require.NoError(t, err)
	assert.Equal(t, SyncUnchanged, res.Action)

	_, err = s.Sync(context.Background(), uuid.New(), SyncRequest{})
	assert.ErrorIs(t, err, ErrEventIDRequired)
}
