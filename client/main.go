// Command client listens to the tournament server's websocket stream and prints
// every notification, navigation and card state it receives.
package main

import (
	"encoding/json"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/wfunc/tournament-client/logger"
	"github.com/wfunc/tournament-client/models"
	"github.com/wfunc/tournament-client/network"
	"github.com/wfunc/tournament-client/notify"
)

func main() {
	var host string
	var tournaments []string
	var heartbeat time.Duration

	cmd := &cobra.Command{
		Use:   "client",
		Short: "Print the tournament server's notification stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.InitDevelopment()
			defer logger.Sync()
			return listen(host, tournaments, heartbeat)
		},
	}
	cmd.Flags().StringVar(&host, "host", "localhost:8080", "server host:port")
	cmd.Flags().StringSliceVar(&tournaments, "tournament", nil, "only follow these tournament addresses")
	cmd.Flags().DurationVar(&heartbeat, "heartbeat", 20*time.Second, "heartbeat interval")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func listen(host string, tournaments []string, heartbeat time.Duration) error {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: host, Path: "/ws"}
	logger.Log.Infof("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return err
	}
	conn := network.NewWSConnection(c)
	defer conn.Close()

	for _, t := range tournaments {
		if err := conn.SendJSON(network.MsgTypeSubscribe, notify.Subscription{Tournament: common.HexToAddress(t)}); err != nil {
			return err
		}
	}

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			p, err := conn.ReadPacket()
			if err != nil {
				logger.Log.Infof("Read error: %v", err)
				return
			}
			printPacket(p)
		}
	}()

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return nil
		case <-ticker.C:
			if err := conn.Send(network.MsgTypeHeartbeat, nil); err != nil {
				return err
			}
		case <-interrupt:
			logger.Log.Info("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				logger.Log.Warnf("Write close error: %v", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return nil
		}
	}
}

func printPacket(p *network.Packet) {
	switch p.MsgID {
	case network.MsgTypeNotification:
		var n models.Notification
		if err := p.Decode(&n); err == nil {
			logger.Log.Infof("<- [%s] %s (tx %s)", n.Kind, n.Content, n.TxHash)
			return
		}
	case network.MsgTypeNavigate:
		var nav models.Navigation
		if err := p.Decode(&nav); err == nil {
			logger.Log.Infof("<- navigate to %s (reload=%t)", nav.Route, nav.Reload)
			return
		}
	case network.MsgTypeViewState:
		var msg struct {
			Tournament common.Address  `json:"tournament"`
			State      json.RawMessage `json:"state"`
		}
		if err := p.Decode(&msg); err == nil {
			logger.Log.Infof("<- state of %s: %s", msg.Tournament.Hex(), msg.State)
			return
		}
	case network.MsgTypeHeartbeat:
		return
	}
	logger.Log.Infof("<- RECV %s (ID: %d): %s", network.MsgName(p.MsgID), p.MsgID, string(p.Data))
}
