package web

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/guslan/chip8"
)

// websocketDisplay sends every rendered frame, packed, to the connected
// client. Only one client is served at a time, the last one to connect.
type websocketDisplay struct {
	mu        sync.Mutex
	socket    *websocket.Conn
	lastFrame []byte
}

func newWebsocketDisplay() *websocketDisplay {
	return &websocketDisplay{}
}

// Boot implements chip8.Display.
func (d *websocketDisplay) Boot() error {
	return nil
}

// Render implements chip8.Display.
func (d *websocketDisplay) Render(screen chip8.Screen, settings chip8.ScreenSettings) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.lastFrame = screen.Pack()
	if d.socket == nil {
		return nil
	}

	if err := d.socket.WriteMessage(websocket.BinaryMessage, d.lastFrame); err != nil {
		// drop the client, the console keeps running
		d.socket.Close()
		d.socket = nil
	}

	return nil
}

// attach makes conn the connected client and sends it the current frame.
func (d *websocketDisplay) attach(conn *websocket.Conn) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.socket = conn
	if d.lastFrame == nil {
		return nil
	}

	return conn.WriteMessage(websocket.BinaryMessage, d.lastFrame)
}

func (d *websocketDisplay) detach(conn *websocket.Conn) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.socket == conn {
		d.socket = nil
	}
}
