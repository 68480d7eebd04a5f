package httpctrl

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Agrid-Dev/thermobeat/internal/bench"
	"github.com/Agrid-Dev/thermobeat/internal/energy"
	"github.com/Agrid-Dev/thermobeat/internal/metrics"
	"github.com/Agrid-Dev/thermobeat/internal/ports"
)

const transport = "http"

type Server struct {
	svc      ports.BenchService
	srv      *http.Server
	deviceID string
}

// New returns a runnable server.
func New(svc ports.BenchService, addr string, deviceID string) *Server {
	mux := http.NewServeMux()
	s := &Server{svc: svc, deviceID: deviceID}

	// Read
	mux.HandleFunc("GET /v1", s.handleGet)
	mux.HandleFunc("GET /v1/trace", s.handleTrace)
	mux.HandleFunc("GET /v1/power_management", s.handlePowerManagement)
	mux.HandleFunc("GET /v1/optimal_gradient", s.handleOptimalGradient)
	mux.HandleFunc("GET /v1/lifetime_savings", s.handleLifetimeSavings)
	mux.HandleFunc("GET /v1/ambient_sweep", s.handleAmbientSweep)

	// Write: one endpoint per variable
	mux.HandleFunc("POST /v1/gradient", s.handlePostParam(bench.ParamGradient))
	mux.HandleFunc("POST /v1/duration", s.handlePostParam(bench.ParamDuration))
	mux.HandleFunc("POST /v1/device_power", s.handlePostParam(bench.ParamDevicePower))
	mux.HandleFunc("POST /v1/battery", s.handlePostBattery)

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// ---- DTOs ----

type electricalDTO struct {
	VoltageMV float64 `json:"voltage_mv"`
	CurrentMA float64 `json:"current_ma"`
}

type snapshotDTO struct {
	DeviceID      string               `json:"device_id"`
	Gradient      float64              `json:"gradient"`
	DurationHours float64              `json:"duration_hours"`
	DevicePowerMW float64              `json:"device_power_mw"`
	Battery       energy.BatteryConfig `json:"battery"`
	Report        reportDTO            `json:"report"`
}

type reportDTO struct {
	TEG                electricalDTO `json:"teg"`
	Converter          electricalDTO `json:"converter"`
	HarvestPowerMW     float64       `json:"harvest_power_mw"`
	HarvestedEnergyMWh float64       `json:"harvested_energy_mwh"`
	Efficiency         *float64      `json:"efficiency"`
	BatteryLifeHours   *float64      `json:"battery_life_hours"` // null when sustainable
	Sustainable        bool          `json:"sustainable"`
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func toDTO(op bench.OperatingPoint, r bench.Report) snapshotDTO {
	return snapshotDTO{
		Gradient:      op.Gradient,
		DurationHours: op.DurationHours,
		DevicePowerMW: op.DevicePowerMW,
		Battery:       op.Battery,
		Report: reportDTO{
			TEG:                electricalDTO(r.Reading.TEG),
			Converter:          electricalDTO(r.Reading.Converter),
			HarvestPowerMW:     r.HarvestPowerMW,
			HarvestedEnergyMWh: r.HarvestedEnergyMWh,
			Efficiency:         finite(r.Efficiency),
			BatteryLifeHours:   finite(r.BatteryLifeHours),
			Sustainable:        r.Sustainable,
		},
	}
}

type traceDTO struct {
	DeviceID string          `json:"device_id"`
	Samples  []energy.Sample `json:"samples"`
}

// ---- Handlers ----

func (s *Server) handleGet(w http.ResponseWriter, _ *http.Request) {
	s.respondSnapshot(w)
}

func (s *Server) handlePostParam(p bench.Parameter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postValue(s, w, r, func(v float64) error {
			return s.svc.Set(p, v)
		})
	}
}

func (s *Server) handlePostBattery(w http.ResponseWriter, r *http.Request) {
	// body: {"value": {"capacity_mah": 1200, "voltage_v": 3.7, "degradation_rate": 0.02}}
	postValue(s, w, r, func(v energy.BatteryConfig) error {
		return s.svc.SetBattery(v)
	})
}

func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	step, err := queryFloat(r, "step", 0.1)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	trace, err := s.svc.Trace(step)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, traceDTO{DeviceID: s.deviceID, Samples: trace})
}

func (s *Server) handlePowerManagement(w http.ResponseWriter, r *http.Request) {
	hours, err := queryInt(r, "hours", 72)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	trace, err := s.svc.PowerManagement(hours)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, traceDTO{DeviceID: s.deviceID, Samples: trace})
}

func (s *Server) handleOptimalGradient(w http.ResponseWriter, _ *http.Request) {
	g, ok := s.svc.OptimalGradient()
	resp := struct {
		DevicePowerMW float64  `json:"device_power_mw"`
		Gradient      *float64 `json:"gradient"` // null when out of range
		Found         bool     `json:"found"`
	}{DevicePowerMW: s.svc.Get().DevicePowerMW, Found: ok}
	if ok {
		resp.Gradient = &g
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLifetimeSavings(w http.ResponseWriter, r *http.Request) {
	years, err := queryInt(r, "years", 10)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	savings, err := s.svc.LifetimeSavings(years)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, struct {
		energy.Savings
		NetMWh float64 `json:"net_mwh"`
	}{savings, savings.Net()})
}

func (s *Server) handleAmbientSweep(w http.ResponseWriter, r *http.Request) {
	ambients, err := queryRange(r, "ambient", energy.GradientRange{Min: 20, Max: 40, Samples: 21})
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	gradients, err := queryRange(r, "gradient", energy.GradientRange{Min: 1, Max: 10, Samples: 10})
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	grid := s.svc.AmbientSweep(ambients, gradients)
	rows := make([][]float64, len(ambients))
	for i := range rows {
		rows[i] = make([]float64, len(gradients))
		if grid != nil {
			copy(rows[i], grid.RawRowView(i))
		}
	}
	writeJSON(w, http.StatusOK, struct {
		Ambients  []float64   `json:"ambient_temperatures"`
		Gradients []float64   `json:"gradients"`
		EnergyMWh [][]float64 `json:"energy_mwh"`
	}{ambients, gradients, rows})
}

// ---- generic helpers ----
func (s *Server) respondSnapshot(w http.ResponseWriter) {
	dto := toDTO(s.svc.Get(), s.svc.Report())
	dto.DeviceID = s.deviceID
	writeJSON(w, http.StatusOK, dto)
}

func postValue[T any](s *Server, w http.ResponseWriter, r *http.Request, apply func(T) error) {
	dec := json.NewDecoder(r.Body)
	var req struct {
		Value *T `json:"value"`
	}
	if err := dec.Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Value == nil {
		writeErr(w, http.StatusBadRequest, "missing field 'value'")
		return
	}

	err := apply(*req.Value)
	metrics.ObserveCommand(transport, err)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}

	s.respondSnapshot(w)
}

func queryFloat(r *http.Request, name string, def float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.New("invalid query parameter '" + name + "'")
	}
	return v, nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("invalid query parameter '" + name + "'")
	}
	return v, nil
}

// queryRange reads <prefix>_min, <prefix>_max and <prefix>_n.
func queryRange(r *http.Request, prefix string, def energy.GradientRange) ([]float64, error) {
	lo, err := queryFloat(r, prefix+"_min", def.Min)
	if err != nil {
		return nil, err
	}
	hi, err := queryFloat(r, prefix+"_max", def.Max)
	if err != nil {
		return nil, err
	}
	n, err := queryInt(r, prefix+"_n", def.Samples)
	if err != nil {
		return nil, err
	}
	if n < 1 || n > 1000 {
		return nil, errors.New("query parameter '" + prefix + "_n' must be in [1, 1000]")
	}
	return energy.Linspace(lo, hi, n), nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
