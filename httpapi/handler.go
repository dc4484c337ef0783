package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hypebeast/go-osc/osc"
	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"

	"github.com/hubertat/cso"
)

const httpTimeout = 3 * time.Second
const maxBodyBytes = 64

// Controller is the part of the object the HTTP surface needs.
type Controller interface {
	Devices() []cso.Device
	Find(address string) cso.Device
	Dispatch(msg *osc.Message) error
}

type deviceStatus struct {
	Address string
	Kind    string
	Id      uint8
	Driver  string
	Pins    []uint16
	Level   int
}

func NewHandler(ctrl Controller) http.Handler {
	router := httprouter.New()

	router.GET("/devices", func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		statuses := []deviceStatus{}
		for _, dev := range ctrl.Devices() {
			statuses = append(statuses, deviceStatus{
				Address: dev.Address(),
				Kind:    dev.Kind(),
				Id:      dev.Id(),
				Driver:  dev.GetDriverName(),
				Pins:    dev.UsedPins(),
				Level:   int(dev.State()),
			})
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(statuses)
	})

	router.GET("/devices/:kind/:id", func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		dev := ctrl.Find(addressOf(p))
		if dev == nil {
			http.Error(w, "device not found", http.StatusNotFound)
			return
		}
		fmt.Fprintf(w, "%d", dev.State())
	})

	router.PUT("/devices/:kind/:id", func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		address := addressOf(p)
		if ctrl.Find(address) == nil {
			http.Error(w, "device not found", http.StatusNotFound)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			http.Error(w, "unable to read body", http.StatusBadRequest)
			return
		}

		level, err := cso.ParseLevel(string(body))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		err = ctrl.Dispatch(osc.NewMessage(address, int32(level)))
		if errors.Is(err, cso.ErrReadOnly) {
			http.Error(w, err.Error(), http.StatusMethodNotAllowed)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
	})

	return router
}

func addressOf(p httprouter.Params) string {
	return "/" + p.ByName("kind") + "/" + p.ByName("id")
}

func NewServer(addr string, ctrl Controller) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewHandler(ctrl),
		ReadTimeout:       httpTimeout,
		ReadHeaderTimeout: httpTimeout,
		WriteTimeout:      httpTimeout,
		IdleTimeout:       2 * httpTimeout,
	}
}
