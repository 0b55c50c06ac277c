package calendar

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

type CalendarEntry struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
	Primary bool   `json:"primary,omitempty"`
}

type EventTime struct {
	DateTime *time.Time `json:"dateTime,omitempty"`
	Date     string     `json:"date,omitempty"`
	TimeZone string     `json:"timeZone,omitempty"`
}

type Event struct {
	ID          string    `json:"id,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status,omitempty"`
	Start       EventTime `json:"start"`
	End         EventTime `json:"end"`
	HTMLLink    string    `json:"htmlLink,omitempty"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError is a non-2xx answer from the Calendar API.
type APIError struct {
	Action     string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: calendar api returned %d: %s", e.Action, e.StatusCode, e.Message)
}

// Client calls the Calendar v3 REST API with a caller supplied access
// token.
type Client struct {
	http *resty.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{http: resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")}
}

func (c *Client) request(ctx context.Context, token string) *resty.Request {
	return c.http.R().SetContext(ctx).SetAuthToken(token).SetError(&apiError{})
}

func check(action string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	if resp.IsError() {
		msg := resp.Status()
		if ae, ok := resp.Error().(*apiError); ok && ae.Error.Message != "" {
			msg = ae.Error.Message
		}
		return &APIError{Action: action, StatusCode: resp.StatusCode(), Message: msg}
	}
	return nil
}

func (c *Client) ListCalendars(ctx context.Context, token string) ([]CalendarEntry, error) {
	var out struct {
		Items []CalendarEntry `json:"items"`
	}
	resp, err := c.request(ctx, token).SetResult(&out).Get("/users/me/calendarList")
	if err := check("list-calendars", resp, err); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// PrimaryCalendar returns the account's primary calendar, whose id is the
// account email.
func (c *Client) PrimaryCalendar(ctx context.Context, token string) (*CalendarEntry, error) {
	var out CalendarEntry
	resp, err := c.request(ctx, token).SetResult(&out).Get("/users/me/calendarList/primary")
	if err := check("primary-calendar", resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListEvents(ctx context.Context, token, calendarID string, from, to time.Time) ([]Event, error) {
	var out struct {
		Items []Event `json:"items"`
	}
	resp, err := c.request(ctx, token).
		SetQueryParams(map[string]string{
			"timeMin":      from.Format(time.RFC3339),
			"timeMax":      to.Format(time.RFC3339),
			"singleEvents": "true",
			"orderBy":      "startTime",
			"maxResults":   "250",
		}).
		SetResult(&out).
		Get(eventsPath(calendarID))
	if err := check("list-events", resp, err); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) GetEvent(ctx context.Context, token, calendarID, eventID string) (*Event, error) {
	var out Event
	resp, err := c.request(ctx, token).SetResult(&out).Get(eventsPath(calendarID) + "/" + url.PathEscape(eventID))
	if err := check("get-event", resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateEvent(ctx context.Context, token, calendarID string, ev *Event) (*Event, error) {
	var out Event
	resp, err := c.request(ctx, token).
		SetHeader("Content-Type", "application/json").
		SetBody(ev).
		SetResult(&out).
		Post(eventsPath(calendarID))
	if err := check("create-event", resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateEvent patches the event; zero fields in ev are left alone.
func (c *Client) UpdateEvent(ctx context.Context, token, calendarID, eventID string, ev *Event) (*Event, error) {
	var out Event
	resp, err := c.request(ctx, token).
		SetHeader("Content-Type", "application/json").
		SetBody(ev).
		SetResult(&out).
		Patch(eventsPath(calendarID) + "/" + url.PathEscape(eventID))
	if err := check("update-event", resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteEvent(ctx context.Context, token, calendarID, eventID string) error {
	resp, err := c.request(ctx, token).Delete(eventsPath(calendarID) + "/" + url.PathEscape(eventID))
	return check("delete-event", resp, err)
}

func eventsPath(calendarID string) string {
	if calendarID == "" {
		calendarID = "primary"
	}
	return "/calendars/" + url.PathEscape(calendarID) + "/events"
}
