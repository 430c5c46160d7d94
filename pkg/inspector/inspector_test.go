package inspector

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fluxionlab/fsmkit/pkg/core"
	"github.com/fluxionlab/fsmkit/pkg/machine"
)

func newInspected(t *testing.T) (*Inspector, *machine.Machine[string]) {
	t.Helper()
	m := machine.NewMachine[string](
		machine.WithID[string]("light"),
		machine.WithLogger[string](core.NewNopLogger()),
	)
	m.AddState("red")
	m.AddState("green")
	m.AddTransition("red", "green").OnEvent("go")
	m.Start(context.Background())

	insp := NewInspector("", core.NewNopLogger())
	insp.Register(m)
	return insp, m
}

func TestInspector_Status(t *testing.T) {
	insp, _ := newInspected(t)
	srv := httptest.NewServer(insp.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var snaps map[string]machine.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snaps); err != nil {
		t.Fatalf("Decoding status: %v", err)
	}
	snap, ok := snaps["light"]
	if !ok {
		t.Fatalf("Machine missing from status: %v", snaps)
	}
	if snap.Current != "red" || len(snap.States) != 2 {
		t.Errorf("Unexpected snapshot: %+v", snap)
	}
}

func TestInspector_Diagram(t *testing.T) {
	insp, _ := newInspected(t)
	srv := httptest.NewServer(insp.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/diagram?machine=light")
	if err != nil {
		t.Fatalf("GET /diagram: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("Reading diagram: %v", err)
	}
	if !strings.Contains(string(body), "stateDiagram-v2") {
		t.Errorf("Expected a Mermaid diagram, got: %s", body)
	}

	resp, err = http.Get(srv.URL + "/diagram?machine=light&format=dot")
	if err != nil {
		t.Fatalf("GET /diagram dot: %v", err)
	}
	body, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("Reading diagram: %v", err)
	}
	if !strings.Contains(string(body), "digraph Machine") {
		t.Errorf("Expected a Graphviz diagram, got: %s", body)
	}

	resp, err = http.Get(srv.URL + "/diagram?machine=ghost")
	if err != nil {
		t.Fatalf("GET /diagram: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown machine, got %d", resp.StatusCode)
	}
}

func TestInspector_WebsocketFeed(t *testing.T) {
	insp, m := newInspected(t)
	m.AddObserver(Feed[string](insp, "light"))

	srv := httptest.NewServer(insp.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dialing websocket: %v", err)
	}
	defer conn.Close()

	// Registration of the client happens in the upgrade handler, which
	// completes before Dial returns.
	ctx := context.Background()
	m.SendEvent("go")
	m.Process(ctx, machine.ProcessUpdate, 0.016)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev TransitionEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("Reading transition event: %v", err)
	}
	if ev.Machine != "light" || ev.From != "red" || ev.To != "green" || ev.Event != "go" {
		t.Errorf("Unexpected event: %+v", ev)
	}
}

func TestInspector_StopDisconnectsClients(t *testing.T) {
	insp, _ := newInspected(t)
	srv := httptest.NewServer(insp.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dialing websocket: %v", err)
	}
	defer conn.Close()

	if err := insp.Stop(context.Background()); err != nil {
		t.Errorf("Stop failed: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("Expected the connection to be closed")
	}
}
