package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hubertat/cso"
	"github.com/hubertat/cso/drivers"
)

func testObject(t testing.TB) *cso.Object {
	t.Helper()

	lamp := cso.NewDigitalOutputDevice(1, cso.Low)
	lamp.DriverName = "mock_driver"
	lamp.DisableHomekit = true

	door := cso.NewDigitalInputDevice(2)
	door.DriverName = "mock_driver"
	door.DisableHomekit = true

	obj := &cso.Object{
		DigitalOutputs: []*cso.DigitalOutputDevice{lamp},
		DigitalInputs:  []*cso.DigitalInputDevice{door},
		FakeDriver:     &drivers.MockIoDriver{},
	}
	if err := obj.InitDrivers(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := obj.InitDevices(); err != nil {
		t.Fatal(err)
	}
	return obj
}

func assertStatus(t testing.TB, got, want int) {
	t.Helper()

	if got != want {
		t.Errorf("got status %d want %d", got, want)
	}
}

func TestListDevices(t *testing.T) {
	handler := NewHandler(testObject(t))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/devices", nil))
	assertStatus(t, rec.Code, http.StatusOK)

	statuses := []deviceStatus{}
	if err := json.NewDecoder(rec.Body).Decode(&statuses); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("got %d devices want 2", len(statuses))
	}
	if statuses[0].Address != "/digitalOutput/0" || statuses[1].Address != "/digitalInput/0" {
		t.Errorf("unexpected addresses %s, %s", statuses[0].Address, statuses[1].Address)
	}
}

func TestPutAndGetDevice(t *testing.T) {
	obj := testObject(t)
	handler := NewHandler(obj)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/devices/digitalOutput/0", strings.NewReader("high")))
	assertStatus(t, rec.Code, http.StatusOK)

	if obj.Find("/digitalOutput/0").State() != cso.High {
		t.Error("PUT did not set the device")
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/devices/digitalOutput/0", nil))
	assertStatus(t, rec.Code, http.StatusOK)
	if rec.Body.String() != "1" {
		t.Errorf("got body %q want %q", rec.Body.String(), "1")
	}
}

func TestPutErrors(t *testing.T) {
	handler := NewHandler(testObject(t))

	cases := []struct {
		name string
		path string
		body string
		want int
	}{
		{"unknown device", "/devices/digitalOutput/5", "1", http.StatusNotFound},
		{"bad level", "/devices/digitalOutput/0", "sideways", http.StatusBadRequest},
		{"read only", "/devices/digitalInput/0", "1", http.StatusMethodNotAllowed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, tc.path, strings.NewReader(tc.body)))
			assertStatus(t, rec.Code, tc.want)
		})
	}
}

func TestGetUnknownDevice(t *testing.T) {
	handler := NewHandler(testObject(t))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/devices/digitalOutput/9", nil))
	assertStatus(t, rec.Code, http.StatusNotFound)
}
