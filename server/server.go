package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"

	"github.com/wfunc/tournament-client/card"
	"github.com/wfunc/tournament-client/config"
	"github.com/wfunc/tournament-client/contracts"
	"github.com/wfunc/tournament-client/logger"
	"github.com/wfunc/tournament-client/models"
	"github.com/wfunc/tournament-client/network"
	"github.com/wfunc/tournament-client/notify"
	"github.com/wfunc/tournament-client/persistence"
	"github.com/wfunc/tournament-client/rpc"
	"github.com/wfunc/tournament-client/services"
	"github.com/wfunc/tournament-client/session"
	"github.com/wfunc/tournament-client/state"
	"github.com/wfunc/tournament-client/units"
	"github.com/wfunc/tournament-client/wallet"
)

var errBadAddress = errors.New("tournament address is not valid")

type TournamentServer struct {
	addr      string
	upgrader  websocket.Upgrader
	connector *wallet.Connector
	sessions  *session.Manager
	service   *services.TournamentService
	hub       *notify.Hub
	siwe      config.SIWEConfig
	rpcServer *rpc.Server
	http      *http.Server
}

// NewTournamentServer wires the HTTP API to the session manager, and the session
// manager to the card board. rpcServer may be nil.
func NewTournamentServer(addr string, connector *wallet.Connector, sessions *session.Manager,
	service *services.TournamentService, hub *notify.Hub, siwe config.SIWEConfig, rpcServer *rpc.Server) *TournamentServer {
	s := &TournamentServer{
		addr:      addr,
		connector: connector,
		sessions:  sessions,
		service:   service,
		hub:       hub,
		siwe:      siwe,
		rpcServer: rpcServer,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}
	sessions.Subscribe(service.Board().OnSessionChange)
	return s
}

func (s *TournamentServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/connect", s.handleConnect)
	mux.HandleFunc("POST /api/signin", s.handleSignIn)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("POST /api/tournaments", s.handleOpen)
	mux.HandleFunc("GET /api/tournaments/{addr}/view", s.handleView)
	mux.HandleFunc("POST /api/tournaments/{addr}/approve", s.handleApprove)
	mux.HandleFunc("POST /api/tournaments/{addr}/participate", s.handleParticipate)
	mux.HandleFunc("POST /api/tournaments/{addr}/grant", s.handleGrant)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	return mux
}

func (s *TournamentServer) Start() error {
	if s.rpcServer != nil {
		go s.rpcServer.Start()
	}

	s.http = &http.Server{Addr: s.addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	logger.Log.Infof("Tournament server listening on %s", s.addr)
	if err := s.http.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for started flights.
func (s *TournamentServer) Shutdown(ctx context.Context) error {
	if s.rpcServer != nil {
		s.rpcServer.Stop()
	}
	var err error
	if s.http != nil {
		err = s.http.Shutdown(ctx)
	}
	s.service.Board().Wait()
	return err
}

func (s *TournamentServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.hub.Serve(network.NewWSConnection(conn))
}

type sessionReply struct {
	ID      string         `json:"id"`
	Address common.Address `json:"address"`
	ChainID string         `json:"chain_id"`
}

func (s *TournamentServer) handleConnect(w http.ResponseWriter, r *http.Request) {
	sess, err := s.connector.Connect(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	s.sessions.Replace(sess)
	writeJSON(w, http.StatusOK, sessionReply{ID: sess.GetID(), Address: sess.Address, ChainID: sess.ChainID.String()})
}

func (s *TournamentServer) handleSignIn(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.Current()
	if !ok {
		writeError(w, wallet.ErrNoWallet)
		return
	}
	in, err := wallet.SignInWithEthereum(r.Context(), sess, s.siwe)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := wallet.VerifySignIn(in, s.siwe.Domain); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

func (s *TournamentServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.Current()
	if !ok {
		writeError(w, wallet.ErrNoWallet)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := s.service.History(r.Context(), sess.Address, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *TournamentServer) handleOpen(w http.ResponseWriter, r *http.Request) {
	var summary models.TournamentSummary
	if err := json.NewDecoder(r.Body).Decode(&summary); err != nil {
		writeJSON(w, http.StatusBadRequest, errorReply{Error: err.Error()})
		return
	}
	if summary.ContractAddress == (common.Address{}) {
		writeError(w, errBadAddress)
		return
	}
	vc, err := s.service.Open(r.Context(), summary)
	if vc == nil {
		writeError(w, err)
		return
	}
	if err != nil {
		// the card exists but stays unresolved, with no actions, until the next refresh
		logger.Log.Warnf("Opening %s: %v", summary.ContractAddress.Hex(), err)
	}
	writeJSON(w, http.StatusOK, vc)
}

func tournamentParam(r *http.Request) (common.Address, error) {
	addr := r.PathValue("addr")
	if !common.IsHexAddress(addr) {
		return common.Address{}, errBadAddress
	}
	return common.HexToAddress(addr), nil
}

func (s *TournamentServer) handleView(w http.ResponseWriter, r *http.Request) {
	tournament, err := tournamentParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	vc, err := s.service.View(tournament)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vc)
}

type actionRequest struct {
	Amount   string `json:"amount"`
	Nickname string `json:"nickname"`
}

type flightReply struct {
	Tournament common.Address   `json:"tournament"`
	Action     state.ActionKind `json:"action"`
	Status     string           `json:"status"`
}

func (s *TournamentServer) startAction(w http.ResponseWriter, r *http.Request,
	start func(ctx context.Context, tournament common.Address, req actionRequest) (*card.Flight, error)) {
	tournament, err := tournamentParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req actionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorReply{Error: err.Error()})
			return
		}
	}
	f, err := start(r.Context(), tournament, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, flightReply{Tournament: tournament, Action: f.Kind, Status: string(state.PhaseBusy)})
}

func (s *TournamentServer) handleApprove(w http.ResponseWriter, r *http.Request) {
	s.startAction(w, r, func(ctx context.Context, tournament common.Address, req actionRequest) (*card.Flight, error) {
		return s.service.Approve(ctx, tournament, req.Amount)
	})
}

func (s *TournamentServer) handleParticipate(w http.ResponseWriter, r *http.Request) {
	s.startAction(w, r, func(ctx context.Context, tournament common.Address, req actionRequest) (*card.Flight, error) {
		return s.service.Participate(ctx, tournament, req.Nickname, req.Amount)
	})
}

func (s *TournamentServer) handleGrant(w http.ResponseWriter, r *http.Request) {
	s.startAction(w, r, func(ctx context.Context, tournament common.Address, _ actionRequest) (*card.Flight, error) {
		return s.service.GrantPrize(ctx, tournament)
	})
}

type errorReply struct {
	Error string `json:"error"`
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, state.ErrActionInFlight):
		return http.StatusConflict
	case errors.Is(err, card.ErrActionUnavailable), errors.Is(err, wallet.ErrUserRejected):
		return http.StatusForbidden
	case errors.Is(err, units.ErrInvalidAmount), errors.Is(err, card.ErrNicknameRequired), errors.Is(err, errBadAddress):
		return http.StatusBadRequest
	case errors.Is(err, card.ErrCardNotFound):
		return http.StatusNotFound
	case errors.Is(err, contracts.ErrNoSigner), errors.Is(err, wallet.ErrNoWallet):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrLedgerDisabled), errors.Is(err, persistence.ErrRecordNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		logger.Log.Errorf("Request failed: %v", err)
	}
	writeJSON(w, status, errorReply{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Warnf("Writing response: %v", err)
	}
}
