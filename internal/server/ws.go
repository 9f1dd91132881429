package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/hammamikhairi/pocketprompter/internal/domain"
	"github.com/hammamikhairi/pocketprompter/internal/session"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	maxCommandBytes = 64 << 10
)

type wsConnection struct {
	conn      *websocket.Conn
	clientID  string
	send      chan []byte
	server    *Server
	closeOnce sync.Once
}

// wsCommand is a remote-control message sent by a client.
type wsCommand struct {
	Type  string `json:"type"` // start, stop, interact, speed, font, mirror, edit, rewrite
	Value *int   `json:"value,omitempty"`
	On    *bool  `json:"on,omitempty"`
	Text  string `json:"text,omitempty"`
	Tone  string `json:"tone,omitempty"`
}

type wsMessage struct {
	Type  string     `json:"type"` // state, error
	State *stateView `json:"state,omitempty"`
	Error string     `json:"error,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	clientID := mux.Vars(r)["clientID"]
	if _, err := uuid.Parse(clientID); err != nil {
		http.Error(w, "Invalid client ID", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed: %v", err)
		return
	}

	c := &wsConnection{
		conn:     conn,
		clientID: clientID,
		send:     make(chan []byte, 64),
		server:   s,
	}
	s.register(c)
	s.log.Debug("websocket client %s connected", clientID)

	st := s.state()
	c.reply(wsMessage{Type: "state", State: &st})

	go c.writePump()
	go c.readPump()
}

func (s *Server) register(c *wsConnection) {
	s.connsMu.Lock()
	s.conns[c] = struct{}{}
	s.connsMu.Unlock()
}

// unregister removes c and closes its send channel. Sends only happen
// under connsMu to registered connections, so the close is safe.
func (s *Server) unregister(c *wsConnection) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	if _, ok := s.conns[c]; !ok {
		return
	}
	delete(s.conns, c)
	c.closeOnce.Do(func() { close(c.send) })
}

func (s *Server) closeConnections() {
	s.connsMu.Lock()
	conns := make([]*wsConnection, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.connsMu.Unlock()

	for _, c := range conns {
		s.unregister(c)
	}
}

func (s *Server) stateMessage() ([]byte, error) {
	st := s.state()
	return json.Marshal(wsMessage{Type: "state", State: &st})
}

// broadcastState pushes the current state to every client. A client whose
// buffer is full misses this frame; the next one carries the full state.
func (s *Server) broadcastState() {
	msg, err := s.stateMessage()
	if err != nil {
		s.log.Error("server: marshal state: %v", err)
		return
	}

	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	for c := range s.conns {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// reply queues a message for this client only.
func (c *wsConnection) reply(m wsMessage) {
	msg, err := json.Marshal(m)
	if err != nil {
		return
	}
	c.server.connsMu.Lock()
	defer c.server.connsMu.Unlock()
	if _, ok := c.server.conns[c]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (c *wsConnection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsConnection) readPump() {
	defer func() {
		c.server.unregister(c)
		c.conn.Close()
		c.server.log.Debug("websocket client %s disconnected", c.clientID)
	}()

	c.conn.SetReadLimit(maxCommandBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.log.Error("websocket read error: %v", err)
			}
			break
		}

		var cmd wsCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			c.reply(wsMessage{Type: "error", Error: "invalid command: " + err.Error()})
			continue
		}
		if err := c.server.apply(cmd); err != nil {
			c.reply(wsMessage{Type: "error", Error: err.Error()})
		}
	}
}

var errUnknownCommand = errors.New("unknown command")

// apply turns a client command into a session event.
func (s *Server) apply(cmd wsCommand) error {
	var ev session.Event
	switch cmd.Type {
	case "start":
		ev = session.StartPlayback{}
	case "stop":
		ev = session.StopPlayback{}
	case "interact":
		ev = session.Interact{}
	case "edit":
		ev = session.EditScript{Text: cmd.Text}
	case "speed":
		if cmd.Value == nil {
			return errors.New("speed: value required")
		}
		ev = session.SetSpeed{Value: *cmd.Value}
	case "font":
		if cmd.Value == nil {
			return errors.New("font: value required")
		}
		ev = session.SetFontSize{Px: *cmd.Value}
	case "mirror":
		if cmd.On == nil {
			ev = session.ToggleMirrored{}
		} else {
			ev = session.SetMirrored{On: *cmd.On}
		}
	case "rewrite":
		tone, _ := domain.ParseTone(cmd.Tone)
		ev = session.RequestRewrite{Tone: tone, OnDone: s.recordRewrite}
	default:
		return errUnknownCommand
	}
	return s.ctrl.Dispatch(context.Background(), ev)
}
