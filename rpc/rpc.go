package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/wfunc/tournament-client/logger"
	"github.com/wfunc/tournament-client/models"
	"github.com/wfunc/tournament-client/role"
	"github.com/wfunc/tournament-client/services"
)

// ServiceName is the name TournamentRPC is registered under.
const ServiceName = "Tournament"

const callTimeout = 15 * time.Second

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
	server   *rpc.Server
}

// NewServer listens on addr and serves svc on its own rpc.Server.
func NewServer(addr string, svc *TournamentRPC) (*Server, error) {
	server := rpc.NewServer()
	if err := server.RegisterName(ServiceName, svc); err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  listener.Addr().String(),
		server:   server,
	}, nil
}

func (s *Server) Addr() string {
	return s.address
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.server.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// TournamentRPC is the struct that exposes RPC methods.
type TournamentRPC struct {
	resolver *role.Resolver
	service  *services.TournamentService
}

func NewTournamentRPC(resolver *role.Resolver, service *services.TournamentService) *TournamentRPC {
	return &TournamentRPC{resolver: resolver, service: service}
}

// Methods must follow the net/rpc signature: exported method, exported arguments,
// second argument is a pointer, return type is error.

type ResolveRoleArgs struct {
	Account    string
	Tournament string
}

type ResolveRoleReply struct {
	Role models.Role
}

func (t *TournamentRPC) ResolveRole(args *ResolveRoleArgs, reply *ResolveRoleReply) error {
	account, err := parseAddress("account", args.Account)
	if err != nil {
		return err
	}
	tournament, err := parseAddress("tournament", args.Tournament)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	r, err := t.resolver.Resolve(ctx, account, tournament)
	if err != nil {
		return err
	}
	reply.Role = r
	return nil
}

type ViewArgs struct {
	Tournament string
}

type ViewReply struct {
	View services.ViewContext
}

func (t *TournamentRPC) View(args *ViewArgs, reply *ViewReply) error {
	tournament, err := parseAddress("tournament", args.Tournament)
	if err != nil {
		return err
	}
	vc, err := t.service.View(tournament)
	if err != nil {
		return err
	}
	reply.View = *vc
	return nil
}

func parseAddress(field, value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("rpc: %s %q is not an address", field, value)
	}
	return common.HexToAddress(value), nil
}
