// Package monitoring turns a simulation into a small web server so that a
// running simulation can be observed and controlled from outside the process.
package monitoring

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/sirupsen/logrus"

	"github.com/modsim-lab/modsim/sim"
)

// Monitor exposes the progress, the dependency graph, and the shared objects
// of a simulation over HTTP, and allows pausing and continuing the scheduler.
type Monitor struct {
	simulation *sim.Simulation
	portNumber int
	log        logrus.FieldLogger
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{
		log: logrus.StandardLogger(),
	}
}

// WithPortNumber sets the port number of the monitor. Ports below 1000 are
// rejected and a random port is used instead.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n",
			portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterSimulation registers the simulation to be monitored.
func (m *Monitor) RegisterSimulation(s *sim.Simulation) {
	m.simulation = s
}

// StartServer starts the monitor as a web server and returns the address it
// listens on. If openBrowser is set, the default browser is pointed at the
// status page.
func (m *Monitor) StartServer(openBrowser bool) (string, error) {
	r := mux.NewRouter()

	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/status", m.status)
	r.HandleFunc("/api/pause", m.pauseScheduler)
	r.HandleFunc("/api/continue", m.continueScheduler)
	r.HandleFunc("/api/graph", m.dependencyGraph)
	r.HandleFunc("/api/modules", m.listModules)
	r.HandleFunc("/api/objects", m.listObjects)
	r.HandleFunc("/api/resource", m.listResources)

	actualPort := ":0"
	if m.portNumber >= 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return "", err
	}

	addr := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	m.log.WithField("addr", addr).Info("monitoring simulation")

	go func() {
		if err := http.Serve(listener, r); err != nil {
			m.log.WithError(err).Error("monitoring server stopped")
		}
	}()

	if openBrowser {
		if err := browser.OpenURL(addr + "/api/status"); err != nil {
			m.log.WithError(err).Warn("cannot open browser")
		}
	}

	return addr, nil
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	m.writeJSON(w, map[string]float64{
		"now": float64(m.simulation.Scheduler().CurrentTime()),
	})
}

type statusRsp struct {
	SimulationID string  `json:"simulation_id"`
	State        string  `json:"state"`
	Now          float64 `json:"now"`
	StartTime    float64 `json:"start_time"`
	EndTime      float64 `json:"end_time"`
	TimeUnit     string  `json:"time_unit,omitempty"`
	Progress     float64 `json:"progress"`
	PendingEvent int     `json:"pending_events"`
}

func (m *Monitor) status(w http.ResponseWriter, _ *http.Request) {
	sched := m.simulation.Scheduler()

	rsp := statusRsp{
		SimulationID: m.simulation.ID(),
		State:        sched.SchedState().String(),
		Now:          float64(sched.CurrentTime()),
		StartTime:    float64(sched.StartTime()),
		EndTime:      float64(sched.EndTime()),
		TimeUnit:     m.simulation.TimeUnit(),
		PendingEvent: sched.QueueLen(),
	}

	span := rsp.EndTime - rsp.StartTime
	if span > 0 {
		rsp.Progress = (rsp.Now - rsp.StartTime) / span
	}

	m.writeJSON(w, rsp)
}

func (m *Monitor) pauseScheduler(w http.ResponseWriter, _ *http.Request) {
	m.simulation.Scheduler().Pause()
	w.WriteHeader(http.StatusNoContent)
}

func (m *Monitor) continueScheduler(w http.ResponseWriter, _ *http.Request) {
	m.simulation.Scheduler().Continue()
	w.WriteHeader(http.StatusNoContent)
}

func (m *Monitor) dependencyGraph(w http.ResponseWriter, _ *http.Request) {
	m.writeJSON(w, m.simulation.DependencyGraph())
}

func (m *Monitor) listModules(w http.ResponseWriter, _ *http.Request) {
	m.writeJSON(w, m.simulation.ActivationOrder())
}

func (m *Monitor) listObjects(w http.ResponseWriter, _ *http.Request) {
	m.writeJSON(w, m.simulation.State().ObjectNames())
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	memoryInfo, err := proc.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m.writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memoryInfo.RSS,
	})
}

func (m *Monitor) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		m.log.WithError(err).Error("cannot write response")
	}
}
