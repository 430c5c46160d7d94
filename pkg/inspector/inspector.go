// Package inspector serves live machine state over HTTP: JSON
// snapshots, rendered diagrams, and a websocket feed of transitions.
package inspector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fluxionlab/fsmkit/pkg/core"
	"github.com/fluxionlab/fsmkit/pkg/machine"
)

// Source exposes a machine to the inspector. *machine.Machine[S]
// satisfies it for any id type.
type Source interface {
	ID() string
	Snapshot() machine.Snapshot
}

// TransitionEvent is one state change pushed to websocket clients.
type TransitionEvent struct {
	Machine   string    `json:"machine"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to"`
	Event     string    `json:"event,omitempty"`
	Elapsed   float64   `json:"elapsed"`
	Timestamp time.Time `json:"timestamp"`
}

// Inspector is an HTTP server over a set of registered machines.
//
// Machines tick on the host thread while HTTP handlers run on server
// goroutines, so handlers only read through Snapshot values captured
// under the mutex.
type Inspector struct {
	addr   string
	logger core.Logger
	server *http.Server

	mu      sync.Mutex
	sources []Source
	clients map[*websocket.Conn]struct{}

	upgrader websocket.Upgrader
}

// NewInspector creates an inspector listening on addr once started.
func NewInspector(addr string, logger core.Logger) *Inspector {
	if logger == nil {
		logger = core.NewDefaultLogger()
	}
	return &Inspector{
		addr:    addr,
		logger:  logger,
		clients: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Register adds a machine to the inspector.
func (i *Inspector) Register(src Source) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.sources = append(i.sources, src)
}

// Handler returns the inspector's HTTP handler, for embedding into a
// host-owned server.
func (i *Inspector) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", i.handleStatus)
	mux.HandleFunc("/diagram", i.handleDiagram)
	mux.HandleFunc("/ws", i.handleWS)
	return mux
}

// Start serves the inspector on its own listener.
func (i *Inspector) Start() {
	i.server = &http.Server{
		Addr:              i.addr,
		Handler:           i.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := i.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			i.logger.Errorf("inspector server: %v", err)
		}
	}()
	i.logger.Infof("inspector listening on %s", i.addr)
}

// Stop shuts the server down and disconnects websocket clients.
func (i *Inspector) Stop(ctx context.Context) error {
	i.mu.Lock()
	for conn := range i.clients {
		conn.Close()
	}
	i.clients = make(map[*websocket.Conn]struct{})
	i.mu.Unlock()

	if i.server == nil {
		return nil
	}
	return i.server.Shutdown(ctx)
}

// Broadcast pushes a transition event to every connected client.
// Clients that fail the write are dropped.
func (i *Inspector) Broadcast(ev TransitionEvent) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for conn := range i.clients {
		if err := conn.WriteJSON(ev); err != nil {
			i.logger.Debugf("inspector: dropping client: %v", err)
			conn.Close()
			delete(i.clients, conn)
		}
	}
}

func (i *Inspector) snapshots() map[string]machine.Snapshot {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make(map[string]machine.Snapshot, len(i.sources))
	for _, src := range i.sources {
		out[src.ID()] = src.Snapshot()
	}
	return out
}

func (i *Inspector) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(i.snapshots()); err != nil {
		i.logger.Errorf("inspector: encoding status: %v", err)
	}
}

func (i *Inspector) handleDiagram(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("machine")
	snap, ok := i.snapshots()[id]
	if !ok {
		http.Error(w, "unknown machine", http.StatusNotFound)
		return
	}

	v := machine.NewVisualizer(snap)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if r.URL.Query().Get("format") == "dot" {
		w.Write([]byte(v.ToGraphviz()))
		return
	}
	w.Write([]byte(v.ToMermaid()))
}

func (i *Inspector) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := i.upgrader.Upgrade(w, r, nil)
	if err != nil {
		i.logger.Warnf("inspector: websocket upgrade: %v", err)
		return
	}

	i.mu.Lock()
	i.clients[conn] = struct{}{}
	i.mu.Unlock()

	// Read loop exists only to notice the close.
	go func() {
		defer func() {
			i.mu.Lock()
			delete(i.clients, conn)
			i.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Feed returns an observer that broadcasts every state change of the
// named machine to this inspector's websocket clients.
func Feed[S comparable](i *Inspector, machineID string) machine.Observer[S] {
	return machine.ObserverFuncs[S]{
		StateChanged: func(ctx context.Context, change machine.Change[S]) {
			ev := TransitionEvent{
				Machine:   machineID,
				To:        fmt.Sprint(change.To),
				Event:     change.Event,
				Elapsed:   change.Elapsed,
				Timestamp: time.Now(),
			}
			if change.HasFrom {
				ev.From = fmt.Sprint(change.From)
			}
			i.Broadcast(ev)
		},
	}
}
