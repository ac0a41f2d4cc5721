package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/comer/experience-booking/internal/model"
	"github.com/comer/experience-booking/internal/repository"
	"github.com/comer/experience-booking/internal/service"
)

func newTestHandlers(t *testing.T) (*ScheduleHandler, *BookingHandler, *PublicHandler) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	mem := repository.NewMemoryStore()
	alloc := service.NewAllocationService(mem, mem, nil, log)
	return NewScheduleHandler(alloc), NewBookingHandler(alloc), NewPublicHandler(alloc)
}

// doJSON runs a handler against a synthetic request the way the JWT
// middleware would deliver it, with identity claims preset in context.
func doJSON(t *testing.T, h echo.HandlerFunc, method, target, body, userID string, params ...string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != "" {
		c.Set("user_id", userID)
		c.Set("email", userID+"@example.com")
	}
	for i := 0; i+1 < len(params); i += 2 {
		c.SetParamNames(params[i])
		c.SetParamValues(params[i+1])
	}
	if err := h(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func defineTestSchedule(t *testing.T, sh *ScheduleHandler) *model.AvailabilitySet {
	t.Helper()
	body := `{
		"title": "Pottery Class",
		"start_date": "2024-03-01",
		"end_date": "2024-03-02",
		"start_time": "2:00 PM",
		"end_time": "4:00 PM",
		"max_guest": 1,
		"price": "35.50",
		"currency": "usd"
	}`
	rec := doJSON(t, sh.DefineSchedule, http.MethodPost, "/v1/experiences/exp-1/schedule", body, "host-1", "id", "exp-1")
	if rec.Code != http.StatusCreated {
		t.Fatalf("DefineSchedule status = %d, body %s", rec.Code, rec.Body.String())
	}
	var set model.AvailabilitySet
	if err := json.Unmarshal(rec.Body.Bytes(), &set); err != nil {
		t.Fatalf("decode schedule response: %v", err)
	}
	return &set
}

func TestDefineScheduleEndpoint(t *testing.T) {
	sh, _, _ := newTestHandlers(t)
	set := defineTestSchedule(t, sh)
	if len(set.Slots) != 2 {
		t.Fatalf("got %d slots, want 2", len(set.Slots))
	}
	if set.Slots[0].Currency != "USD" {
		t.Fatalf("currency not normalized: %q", set.Slots[0].Currency)
	}
	if !set.Slots[0].Price.Equal(decimal.RequireFromString("35.50")) {
		t.Fatalf("price = %s, want 35.50", set.Slots[0].Price)
	}
}

func TestDefineScheduleRejectsBadTimes(t *testing.T) {
	sh, _, _ := newTestHandlers(t)
	body := `{
		"title": "Pottery Class",
		"start_date": "2024-03-01",
		"end_date": "2024-03-02",
		"start_time": "4:00 PM",
		"end_time": "2:00 PM",
		"max_guest": 1,
		"currency": "USD"
	}`
	rec := doJSON(t, sh.DefineSchedule, http.MethodPost, "/v1/experiences/exp-1/schedule", body, "host-1", "id", "exp-1")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestBookingEndpointFlow(t *testing.T) {
	sh, bh, _ := newTestHandlers(t)
	set := defineTestSchedule(t, sh)
	slotID := set.Slots[0].ID

	bookBody := `{"experience_id":"exp-1","slot_id":"` + slotID + `"}`

	rec := doJSON(t, bh.Book, http.MethodPost, "/v1/bookings", bookBody, "alice")
	if rec.Code != http.StatusCreated {
		t.Fatalf("Book status = %d, body %s", rec.Code, rec.Body.String())
	}
	var booked model.Booking
	if err := json.Unmarshal(rec.Body.Bytes(), &booked); err != nil {
		t.Fatalf("decode booking: %v", err)
	}
	if booked.UserID != "alice" || booked.SlotID != slotID {
		t.Fatalf("unexpected booking: %+v", booked)
	}

	// Slot had capacity one, so the next guest sees a conflict.
	rec = doJSON(t, bh.Book, http.MethodPost, "/v1/bookings", bookBody, "bob")
	if rec.Code != http.StatusConflict {
		t.Fatalf("full slot status = %d, want 409", rec.Code)
	}

	rec = doJSON(t, bh.CancelBySlot, http.MethodPost, "/v1/bookings/cancel", bookBody, "alice")
	if rec.Code != http.StatusOK {
		t.Fatalf("CancelBySlot status = %d, body %s", rec.Code, rec.Body.String())
	}

	// Cancelled booking is gone from the user's list.
	rec = doJSON(t, bh.ListMine, http.MethodGet, "/v1/my-bookings", "", "alice")
	if rec.Code != http.StatusOK {
		t.Fatalf("ListMine status = %d", rec.Code)
	}
	var listing struct {
		Items []model.Booking `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(listing.Items) != 0 {
		t.Fatalf("got %d bookings, want 0", len(listing.Items))
	}
}

func TestBookingEndpointRequiresIdentity(t *testing.T) {
	_, bh, _ := newTestHandlers(t)
	rec := doJSON(t, bh.Book, http.MethodPost, "/v1/bookings", `{"experience_id":"x","slot_id":"y"}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCancelByIDEndpoint(t *testing.T) {
	sh, bh, _ := newTestHandlers(t)
	set := defineTestSchedule(t, sh)
	slotID := set.Slots[1].ID

	rec := doJSON(t, bh.Book, http.MethodPost, "/v1/bookings", `{"experience_id":"exp-1","slot_id":"`+slotID+`"}`, "alice")
	if rec.Code != http.StatusCreated {
		t.Fatalf("Book status = %d", rec.Code)
	}
	var booked model.Booking
	if err := json.Unmarshal(rec.Body.Bytes(), &booked); err != nil {
		t.Fatalf("decode booking: %v", err)
	}
	id := strconv.FormatUint(booked.ID, 10)

	rec = doJSON(t, bh.CancelByID, http.MethodDelete, "/v1/bookings/"+id, "", "alice", "id", id)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("CancelByID status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, bh.CancelByID, http.MethodDelete, "/v1/bookings/"+id, "", "alice", "id", id)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second CancelByID status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, bh.CancelByID, http.MethodDelete, "/v1/bookings/zero", "", "alice", "id", "zero")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d, want 400", rec.Code)
	}
}

func TestAvailabilityEndpoint(t *testing.T) {
	sh, _, ph := newTestHandlers(t)
	defineTestSchedule(t, sh)

	rec := doJSON(t, ph.GetAvailability, http.MethodGet, "/v1/experiences/exp-1/availability", "", "", "id", "exp-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var set model.AvailabilitySet
	if err := json.Unmarshal(rec.Body.Bytes(), &set); err != nil {
		t.Fatalf("decode availability: %v", err)
	}
	if set.ExperienceID != "exp-1" || len(set.Slots) != 2 {
		t.Fatalf("unexpected set: %+v", set)
	}

	rec = doJSON(t, ph.GetAvailability, http.MethodGet, "/v1/experiences/unknown/availability", "", "", "id", "unknown")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown experience status = %d, want 404", rec.Code)
	}
}
