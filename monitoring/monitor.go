// Package monitoring turns a live kernel into a small web server for
// inspection and control.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/cadence/rtk"
)

// PortEnvVar names the environment variable consulted when no port is set
// explicitly.
const PortEnvVar = "CADENCE_MONITOR_PORT"

// A FrameSnapshotter can encode the current display frame as a PNG image.
type FrameSnapshotter interface {
	EncodePNG(w io.Writer) error
}

// Monitor serves the state of a running kernel over HTTP and allows pausing
// and resuming its wall tick source.
type Monitor struct {
	kernel      *rtk.Kernel
	wallSource  *rtk.WallSource
	snapshotter FrameSnapshotter
	portNumber  int

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor. Ports below 1000 are
// rejected and a random port is used instead.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n",
			portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterKernel registers the kernel to be monitored.
func (m *Monitor) RegisterKernel(k *rtk.Kernel) {
	m.kernel = k
}

// RegisterWallSource registers the tick source gated by the pause and
// continue endpoints.
func (m *Monitor) RegisterWallSource(s *rtk.WallSource) {
	m.wallSource = s
}

// RegisterFrameSnapshotter registers a display whose frames can be fetched
// as PNG snapshots.
func (m *Monitor) RegisterFrameSnapshotter(s FrameSnapshotter) {
	m.snapshotter = s
}

// CreateProgressBar creates a new progress bar shown on the dashboard.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := NewProgressBar(name, total)

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar from the dashboard.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars)-1)
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// StartServer starts the monitor as a web server. It returns the address the
// server listens on.
func (m *Monitor) StartServer() string {
	r := m.router()

	listener, err := net.Listen("tcp", ":"+strconv.Itoa(m.port()))
	dieOnErr(err)

	addr := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring kernel with %s\n", addr)

	go func() {
		err := http.Serve(listener, r)
		dieOnErr(err)
	}()

	return addr
}

// OpenDashboard starts the server and opens the dashboard in the default
// browser.
func (m *Monitor) OpenDashboard() {
	addr := m.StartServer()

	err := browser.OpenURL(addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot open browser: %s\n", err)
	}
}

func (m *Monitor) port() int {
	if m.portNumber != 0 {
		return m.portNumber
	}

	if s := os.Getenv(PortEnvVar); s != "" {
		p, err := strconv.Atoi(s)
		if err == nil && p >= 1000 {
			return p
		}

		fmt.Fprintf(os.Stderr,
			"Ignoring invalid %s value %q\n", PortEnvVar, s)
	}

	return 0
}

func (m *Monitor) router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pauseTicks)
	r.HandleFunc("/api/continue", m.continueTicks)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/timebase", m.timeBase)
	r.HandleFunc("/api/tasks", m.listTasks)
	r.HandleFunc("/api/task/{id}", m.taskDetails)
	r.HandleFunc("/api/semaphores", m.listSemaphores)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.HandleFunc("/api/framebuffer.png", m.frameSnapshot)
	r.HandleFunc("/", m.index)

	return r
}

func (m *Monitor) pauseTicks(w http.ResponseWriter, _ *http.Request) {
	if m.wallSource == nil {
		http.Error(w, "no wall tick source registered", http.StatusNotFound)
		return
	}

	m.wallSource.Pause()
	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) continueTicks(w http.ResponseWriter, _ *http.Request) {
	if m.wallSource == nil {
		http.Error(w, "no wall tick source registered", http.StatusNotFound)
		return
	}

	m.wallSource.Continue()
	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprintf(w, "{\"now\":%d}", m.kernel.CurrentTick())
}

type timeBaseRsp struct {
	TimeBase      string `json:"time_base"`
	TicksPerSec   uint64 `json:"ticks_per_second"`
	ElapsedMillis uint64 `json:"elapsed_ms"`
}

func (m *Monitor) timeBase(w http.ResponseWriter, _ *http.Request) {
	tb := m.kernel.TimeBase()
	now := m.kernel.CurrentTick()

	writeJSON(w, timeBaseRsp{
		TimeBase:    tb.Period().String(),
		TicksPerSec: uint64(tb.PerSecond()),
		ElapsedMillis: uint64(
			tb.Duration(now) / time.Millisecond),
	})
}

type taskRsp struct {
	ID           int64  `json:"id"`
	Priority     int64  `json:"priority"`
	State        string `json:"state"`
	BlockedOn    string `json:"blocked_on,omitempty"`
	BlockedOnSem int64  `json:"blocked_on_sem,omitempty"`
	Periodic     bool   `json:"periodic"`
	Period       uint64 `json:"period,omitempty"`
	NextDeadline uint64 `json:"next_deadline,omitempty"`
}

func taskToRsp(s rtk.TaskStatus) taskRsp {
	rsp := taskRsp{
		ID:       int64(s.ID),
		Priority: int64(s.Priority),
		State:    s.State.String(),
		Periodic: s.Periodic,
	}

	if s.State == rtk.TaskBlocked {
		rsp.BlockedOn = s.BlockedOn.String()
		if s.BlockedOn == rtk.BlockedOnSemaphore {
			rsp.BlockedOnSem = int64(s.BlockedOnSem)
		}
	}

	if s.Periodic {
		rsp.Period = uint64(s.Period)
		rsp.NextDeadline = uint64(s.NextDeadline)
	}

	return rsp
}

func (m *Monitor) listTasks(w http.ResponseWriter, _ *http.Request) {
	statuses := m.kernel.TaskStatuses()

	rsp := make([]taskRsp, 0, len(statuses))
	for _, s := range statuses {
		rsp = append(rsp, taskToRsp(s))
	}

	writeJSON(w, rsp)
}

func (m *Monitor) taskDetails(w http.ResponseWriter, r *http.Request) {
	idStr := mux.Vars(r)["id"]

	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "invalid task id", http.StatusBadRequest)
		return
	}

	for _, s := range m.kernel.TaskStatuses() {
		if s.ID == rtk.TaskID(id) {
			serializer := goseth.NewSerializer()
			serializer.SetRoot(s)
			serializer.SetMaxDepth(2)

			err := serializer.Serialize(w)
			dieOnErr(err)

			return
		}
	}

	http.Error(w, "task not found", http.StatusNotFound)
}

type semRsp struct {
	ID      int64   `json:"id"`
	Count   int     `json:"count"`
	Waiters []int64 `json:"waiters"`
}

func (m *Monitor) listSemaphores(w http.ResponseWriter, _ *http.Request) {
	statuses := m.kernel.SemStatuses()

	rsp := make([]semRsp, 0, len(statuses))
	for _, s := range statuses {
		waiters := make([]int64, 0, len(s.Waiters))
		for _, id := range s.Waiters {
			waiters = append(waiters, int64(id))
		}

		rsp = append(rsp, semRsp{
			ID:      int64(s.ID),
			Count:   s.Count,
			Waiters: waiters,
		})
	}

	writeJSON(w, rsp)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	writeJSON(w, m.progressBars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	proc, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := proc.CPUPercent()
	dieOnErr(err)

	memoryInfo, err := proc.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memoryInfo.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func (m *Monitor) frameSnapshot(w http.ResponseWriter, _ *http.Request) {
	if m.snapshotter == nil {
		http.Error(w, "no display registered", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/png")

	err := m.snapshotter.EncodePNG(w)
	dieOnErr(err)
}

const indexPage = `<!DOCTYPE html>
<html>
<head><title>cadence monitor</title></head>
<body>
<h1>cadence monitor</h1>
<ul>
<li><a href="/api/now">/api/now</a></li>
<li><a href="/api/timebase">/api/timebase</a></li>
<li><a href="/api/tasks">/api/tasks</a></li>
<li><a href="/api/semaphores">/api/semaphores</a></li>
<li><a href="/api/progress">/api/progress</a></li>
<li><a href="/api/resource">/api/resource</a></li>
<li><a href="/api/profile">/api/profile</a></li>
<li><a href="/api/framebuffer.png">/api/framebuffer.png</a></li>
<li><a href="/api/pause">/api/pause</a> / <a href="/api/continue">/api/continue</a></li>
</ul>
</body>
</html>
`

func (m *Monitor) index(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, indexPage)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	bytes, err := json.Marshal(v)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
