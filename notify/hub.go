// notify/hub.go
package notify

import (
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/wfunc/tournament-client/logger"
	"github.com/wfunc/tournament-client/models"
	"github.com/wfunc/tournament-client/monitor"
	"github.com/wfunc/tournament-client/network"
)

var ErrListenerNotFound = errors.New("listener not found")

// Subscription is the payload of MsgTypeSubscribe and MsgTypeUnsubscribe.
type Subscription struct {
	Tournament common.Address `json:"tournament"`
}

// StateMessage is the payload of MsgTypeViewState.
type StateMessage struct {
	Tournament common.Address `json:"tournament"`
	State      interface{}    `json:"state"`
}

// Listener is one connected front-end. With no subscriptions it receives
// everything; otherwise only messages for its tournaments.
type Listener struct {
	ID          string
	conn        network.Connection
	mutex       sync.RWMutex
	tournaments map[common.Address]struct{}
}

func (l *Listener) Subscribe(tournament common.Address) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.tournaments[tournament] = struct{}{}
}

func (l *Listener) Unsubscribe(tournament common.Address) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	delete(l.tournaments, tournament)
}

func (l *Listener) Wants(tournament common.Address) bool {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	if len(l.tournaments) == 0 || tournament == (common.Address{}) {
		return true
	}
	_, ok := l.tournaments[tournament]
	return ok
}

// Hub 广播器: fans messages out to websocket listeners.
type Hub struct {
	mutex     sync.RWMutex
	listeners map[string]*Listener
	monitor   *monitor.Monitor
	heartbeat time.Duration
}

func NewHub(m *monitor.Monitor, heartbeat time.Duration) *Hub {
	return &Hub{
		listeners: make(map[string]*Listener),
		monitor:   m,
		heartbeat: heartbeat,
	}
}

func (h *Hub) Add(conn network.Connection) *Listener {
	l := &Listener{
		ID:          uuid.New().String(),
		conn:        conn,
		tournaments: make(map[common.Address]struct{}),
	}

	h.mutex.Lock()
	h.listeners[l.ID] = l
	h.mutex.Unlock()

	h.monitor.IncListeners()
	logger.Log.Infof("Listener %s connected from %s", l.ID, conn.RemoteAddr())
	return l
}

func (h *Hub) Remove(id string) error {
	h.mutex.Lock()
	l, ok := h.listeners[id]
	delete(h.listeners, id)
	h.mutex.Unlock()

	if !ok {
		return ErrListenerNotFound
	}
	h.monitor.DecListeners()
	l.conn.Close()
	logger.Log.Infof("Listener %s disconnected", id)
	return nil
}

func (h *Hub) Get(id string) (*Listener, bool) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	l, ok := h.listeners[id]
	return l, ok
}

func (h *Hub) Count() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.listeners)
}

// Serve owns conn until it fails; it handles subscriptions and heartbeats.
func (h *Hub) Serve(conn network.Connection) {
	l := h.Add(conn)
	defer h.Remove(l.ID)

	if h.heartbeat > 0 {
		conn.SetHeartbeat(h.heartbeat)
	}

	for {
		p, err := conn.ReadPacket()
		if err != nil {
			return
		}

		switch p.MsgID {
		case network.MsgTypeHeartbeat:
			conn.Send(network.MsgTypeHeartbeat, nil)
		case network.MsgTypeSubscribe, network.MsgTypeUnsubscribe:
			var sub Subscription
			if err := p.Decode(&sub); err != nil {
				logger.Log.Warnf("Listener %s sent a bad %s: %v", l.ID, network.MsgName(p.MsgID), err)
				continue
			}
			if p.MsgID == network.MsgTypeSubscribe {
				l.Subscribe(sub.Tournament)
			} else {
				l.Unsubscribe(sub.Tournament)
			}
		default:
			logger.Log.Debugf("Listener %s sent unexpected message %d", l.ID, p.MsgID)
		}
	}
}

func (h *Hub) BroadcastToTournament(tournament common.Address, msgID uint16, v interface{}) {
	// Get a thread-safe copy of the listeners
	h.mutex.RLock()
	targets := make([]*Listener, 0, len(h.listeners))
	for _, l := range h.listeners {
		if l.Wants(tournament) {
			targets = append(targets, l)
		}
	}
	h.mutex.RUnlock()

	for _, l := range targets {
		if err := l.conn.SendJSON(msgID, v); err != nil {
			logger.Log.Warnf("Dropping listener %s: %v", l.ID, err)
			h.Remove(l.ID)
		}
	}
}

func (h *Hub) BroadcastToAll(msgID uint16, v interface{}) {
	h.BroadcastToTournament(common.Address{}, msgID, v)
}

func (h *Hub) Notify(n models.Notification) {
	h.BroadcastToTournament(n.Tournament, network.MsgTypeNotification, n)
}

func (h *Hub) Navigate(nav models.Navigation) {
	h.BroadcastToAll(network.MsgTypeNavigate, nav)
}

func (h *Hub) PublishState(tournament common.Address, state interface{}) {
	h.BroadcastToTournament(tournament, network.MsgTypeViewState, StateMessage{Tournament: tournament, State: state})
}
