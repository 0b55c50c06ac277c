package dashboard

import (
	"time"

	"github.com/nikhilbhutani/petdesk/internal/models"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Day is the rollup of one calendar day in the tenant's location.
type Day struct {
	Date              string                           `json:"date"`
	Revenue           decimal.Decimal                  `json:"revenue"`
	SalesRevenue      decimal.Decimal                  `json:"sales_revenue"`
	ServicesRevenue   decimal.Decimal                  `json:"services_revenue"`
	SalesCount        int                              `json:"sales_count"`
	Appointments      map[models.AppointmentStatus]int `json:"appointments"`
	AppointmentsTotal int                              `json:"appointments_total"`
	Occupied          int                              `json:"occupied"`
	Capacity          int                              `json:"capacity"`
	Occupancy         float64                          `json:"occupancy"`
	CheckIns          int                              `json:"check_ins"`
	CheckOuts         int                              `json:"check_outs"`
}

type Month struct {
	Month             string                           `json:"month"`
	Revenue           decimal.Decimal                  `json:"revenue"`
	SalesCount        int                              `json:"sales_count"`
	Appointments      map[models.AppointmentStatus]int `json:"appointments"`
	AppointmentsTotal int                              `json:"appointments_total"`
	AverageOccupancy  float64                          `json:"average_occupancy"`
	CheckIns          int                              `json:"check_ins"`
	CheckOuts         int                              `json:"check_outs"`
	Days              []Day                            `json:"days"`
}

// Window is the half-open interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

func (w Window) overlaps(from, to time.Time) bool {
	return from.Before(w.End) && to.After(w.Start)
}

// DayWindow returns the calendar day containing t in loc.
func DayWindow(t time.Time, loc *time.Location) Window {
	t = t.In(loc)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return Window{Start: start, End: start.AddDate(0, 0, 1)}
}

func MonthWindow(year int, month time.Month, loc *time.Location) Window {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return Window{Start: start, End: start.AddDate(0, 1, 0)}
}

// Rollup aggregates the rows of one day. Rows outside the day are ignored,
// so callers may pass a wider result set.
//
// Revenue counts every sale of the day plus finished, paid appointments.
// A stay occupies a slot on every day it overlaps unless it was cancelled.
func Rollup(day Window, appts []models.Appointment, stays []models.HotelStay, sales []models.Sale, capacity int) Day {
	d := Day{
		Date:            day.Start.Format(dateLayout),
		Revenue:         decimal.Zero,
		SalesRevenue:    decimal.Zero,
		ServicesRevenue: decimal.Zero,
		Appointments:    make(map[models.AppointmentStatus]int),
		Capacity:        capacity,
	}

	for _, s := range sales {
		if !day.contains(s.CreatedAt) {
			continue
		}
		d.SalesCount++
		d.SalesRevenue = d.SalesRevenue.Add(s.Total)
	}

	for _, a := range appts {
		if !day.contains(a.DataHora) {
			continue
		}
		d.Appointments[a.Status]++
		d.AppointmentsTotal++
		if a.Status == models.AppointmentFinished && a.PaymentStatus == models.PaymentPaid {
			d.ServicesRevenue = d.ServicesRevenue.Add(a.Preco)
		}
	}

	for _, st := range stays {
		if st.Status == models.StayCancelled {
			continue
		}
		if day.overlaps(st.CheckIn, st.CheckOut) {
			d.Occupied++
		}
		if day.contains(st.CheckIn) {
			d.CheckIns++
		}
		if day.contains(st.CheckOut) {
			d.CheckOuts++
		}
	}

	d.Revenue = d.SalesRevenue.Add(d.ServicesRevenue)
	if capacity > 0 {
		d.Occupancy = float64(d.Occupied) / float64(capacity)
	}
	return d
}

// RollupMonth builds one Day per calendar day of the month and sums them.
func RollupMonth(month Window, appts []models.Appointment, stays []models.HotelStay, sales []models.Sale, capacity int) Month {
	m := Month{
		Month:        month.Start.Format("2006-01"),
		Revenue:      decimal.Zero,
		Appointments: make(map[models.AppointmentStatus]int),
	}

	var occupancy float64
	loc := month.Start.Location()
	for start := month.Start; start.Before(month.End); start = start.AddDate(0, 0, 1) {
		d := Rollup(DayWindow(start, loc), appts, stays, sales, capacity)
		m.Revenue = m.Revenue.Add(d.Revenue)
		m.SalesCount += d.SalesCount
		m.AppointmentsTotal += d.AppointmentsTotal
		for status, n := range d.Appointments {
			m.Appointments[status] += n
		}
		m.CheckIns += d.CheckIns
		m.CheckOuts += d.CheckOuts
		occupancy += d.Occupancy
		m.Days = append(m.Days, d)
	}
	if len(m.Days) > 0 {
		m.AverageOccupancy = occupancy / float64(len(m.Days))
	}
	return m
}
