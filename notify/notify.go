// Package notify delivers notifications, navigation requests and card state to
// whatever front-end is listening.
package notify

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/wfunc/tournament-client/logger"
	"github.com/wfunc/tournament-client/models"
)

// Sink receives every action outcome. Implementations must not block.
type Sink interface {
	Notify(n models.Notification)
	Navigate(nav models.Navigation)
}

// StatePublisher is implemented by sinks that also stream card state.
type StatePublisher interface {
	PublishState(tournament common.Address, state interface{})
}

// LogSink writes everything to the global logger.
type LogSink struct{}

func (LogSink) Notify(n models.Notification) {
	if n.Kind == models.NotificationFailure {
		logger.Log.Warnf("[%s] %s (tournament %s, tx %s)", n.Kind, n.Content, n.Tournament.Hex(), n.TxHash)
		return
	}
	logger.Log.Infof("[%s] %s (tournament %s, tx %s)", n.Kind, n.Content, n.Tournament.Hex(), n.TxHash)
}

func (LogSink) Navigate(nav models.Navigation) {
	logger.Log.Infof("Navigate to %s (reload=%t)", nav.Route, nav.Reload)
}

// Multi fans out to several sinks in order.
type Multi []Sink

func (m Multi) Notify(n models.Notification) {
	for _, s := range m {
		s.Notify(n)
	}
}

func (m Multi) Navigate(nav models.Navigation) {
	for _, s := range m {
		s.Navigate(nav)
	}
}

func (m Multi) PublishState(tournament common.Address, state interface{}) {
	for _, s := range m {
		if p, ok := s.(StatePublisher); ok {
			p.PublishState(tournament, state)
		}
	}
}
