package booking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/Akil08/booking-api/internal/platform/auth"
)

func patientRequest(t *testing.T, method, target string, patientID int64) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	ctx := context.WithValue(req.Context(), auth.UserIDKey, patientID)
	ctx = context.WithValue(ctx, auth.RoleKey, auth.RolePatient)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) BookingResponse {
	t.Helper()
	var resp BookingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestHandler_Book_Success(t *testing.T) {
	h := NewHandler(newTestService(newMemStore(), newMockSink(), 10))

	c, rec := patientRequest(t, http.MethodPost, "/bookings/book", 1)
	if err := h.Book(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if !resp.Success || resp.Message != "Booked" || resp.BookingID == nil {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestHandler_Book_AlreadyBooked(t *testing.T) {
	h := NewHandler(newTestService(newMemStore(), newMockSink(), 10))

	c, _ := patientRequest(t, http.MethodPost, "/bookings/book", 1)
	if err := h.Book(c); err != nil {
		t.Fatalf("first booking failed: %v", err)
	}

	c, rec := patientRequest(t, http.MethodPost, "/bookings/book", 1)
	if err := h.Book(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Success || resp.Message != "Already booked for today" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestHandler_Book_NoSlots(t *testing.T) {
	h := NewHandler(newTestService(newMemStore(), newMockSink(), 1))

	c, _ := patientRequest(t, http.MethodPost, "/bookings/book", 1)
	if err := h.Book(c); err != nil {
		t.Fatalf("first booking failed: %v", err)
	}

	c, rec := patientRequest(t, http.MethodPost, "/bookings/book", 2)
	if err := h.Book(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if resp := decodeResponse(t, rec); resp.Message != "No slots available" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestHandler_Cancel_NoActiveBooking(t *testing.T) {
	h := NewHandler(newTestService(newMemStore(), newMockSink(), 10))

	c, rec := patientRequest(t, http.MethodPost, "/bookings/cancel", 1)
	if err := h.Cancel(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if resp := decodeResponse(t, rec); resp.Message != "No active booking found" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestHandler_SubscribePriority(t *testing.T) {
	h := NewHandler(newTestService(newMemStore(), newMockSink(), 10))

	c, rec := patientRequest(t, http.MethodPost, "/bookings/priority/subscribe", 1)
	if err := h.SubscribePriority(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if resp := decodeResponse(t, rec); resp.Message != "Subscribed for priority booking" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestHandler_CancelDay_Twice(t *testing.T) {
	h := NewHandler(newTestService(newMemStore(), newMockSink(), 10))

	c, rec := patientRequest(t, http.MethodPost, "/bookings/doctor/cancel-day", 99)
	if err := h.CancelDay(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	c, rec = patientRequest(t, http.MethodPost, "/bookings/doctor/cancel-day", 99)
	if err := h.CancelDay(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if resp := decodeResponse(t, rec); resp.Message != "Day already cancelled" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestHandler_ListDay(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, newMockSink(), 10)
	h := NewHandler(svc)

	for pid := int64(1); pid <= 2; pid++ {
		if _, err := svc.Book(context.Background(), pid); err != nil {
			t.Fatalf("Book(%d) failed: %v", pid, err)
		}
	}

	c, rec := patientRequest(t, http.MethodGet, "/bookings/doctor/day", 99)
	if err := h.ListDay(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Data  []*Booking `json:"data"`
		Total int        `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.Total != 2 || len(resp.Data) != 2 {
		t.Errorf("expected 2 bookings, got total=%d len=%d", resp.Total, len(resp.Data))
	}
}

func TestHandler_DayState(t *testing.T) {
	h := NewHandler(newTestService(newMemStore(), newMockSink(), 10))

	c, rec := patientRequest(t, http.MethodGet, "/bookings/doctor/day/state", 99)
	if err := h.DayState(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var day DayState
	if err := json.Unmarshal(rec.Body.Bytes(), &day); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if day.MaxSlots != 10 || day.BookedCount != 0 || day.IsCancelled {
		t.Errorf("unexpected day state %+v", day)
	}
}
