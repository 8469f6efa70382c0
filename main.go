package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"

	"github.com/wfunc/tournament-client/card"
	"github.com/wfunc/tournament-client/config"
	"github.com/wfunc/tournament-client/contracts"
	"github.com/wfunc/tournament-client/logger"
	"github.com/wfunc/tournament-client/models"
	"github.com/wfunc/tournament-client/monitor"
	"github.com/wfunc/tournament-client/notify"
	"github.com/wfunc/tournament-client/persistence"
	"github.com/wfunc/tournament-client/role"
	"github.com/wfunc/tournament-client/rpc"
	"github.com/wfunc/tournament-client/server"
	"github.com/wfunc/tournament-client/services"
	"github.com/wfunc/tournament-client/session"
	"github.com/wfunc/tournament-client/timer"
	"github.com/wfunc/tournament-client/units"
	"github.com/wfunc/tournament-client/wallet"
)

const metricsNamespace = "tournament_client"

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "tournament-client",
		Short:         "Headless client for on-chain tournaments",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", ".", "directory holding config.yaml")

	root.AddCommand(
		serveCmd(),
		roleCmd(),
		approveCmd(),
		participateCmd(),
		grantCmd(),
		signinCmd(),
		historyCmd(),
	)

	if err := root.Execute(); err != nil {
		logger.Log.Errorf("%v", err)
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

// app is what every subcommand starts from.
type app struct {
	cfg       *config.Config
	connector *wallet.Connector
	client    *ethclient.Client
	manifest  contracts.Manifest
	ledger    persistence.Ledger
}

func setup(ctx context.Context, cli bool) (*app, error) {
	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	// Initialize logger
	if cli {
		logger.InitDevelopment()
	} else {
		logger.Init(cfg.LogLevel)
	}

	confirm := wallet.PromptConfirm(os.Stdin, os.Stdout)
	connector, client, err := wallet.Dial(ctx, cfg.Chain, cfg.Wallet, confirm)
	if err != nil {
		return nil, err
	}

	// Initialize Database
	ledger, err := persistence.Open(cfg.Database)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if ledger != nil {
		logger.Log.Info("Database connection successful.")
	}

	return &app{
		cfg:       cfg,
		connector: connector,
		client:    client,
		manifest:  contracts.ManifestFromConfig(cfg.Manifest),
		ledger:    ledger,
	}, nil
}

func (a *app) Close() {
	if a.ledger != nil {
		a.ledger.Close()
	}
	a.client.Close()
}

func (a *app) gatewayFactory() card.GatewayFactory {
	return func(sess *session.WalletSession) card.Gateway {
		return contracts.ForSession(a.manifest, sess, a.connector.Backend())
	}
}

func parseTournament(arg string) (common.Address, error) {
	if !common.IsHexAddress(arg) {
		return common.Address{}, fmt.Errorf("%q is not a tournament address", arg)
	}
	return common.HexToAddress(arg), nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP, websocket, RPC and metrics servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := setup(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()
			cfg := a.cfg

			mon := monitor.NewMonitor(metricsNamespace)
			mon.StartServer(cfg.Server.MetricsAddress)

			hub := notify.NewHub(mon, 30*time.Second)
			board := card.NewBoard(card.Deps{
				Sink:    notify.Multi{notify.LogSink{}, hub},
				Ledger:  a.ledger,
				Monitor: mon,
			}, a.gatewayFactory())
			svc := services.NewTournamentService(board, a.ledger)

			resolver := role.NewResolver(contracts.New(a.manifest, a.connector.Backend(), nil), mon)
			rpcServer, err := rpc.NewServer(cfg.Server.RPCAddress, rpc.NewTournamentRPC(resolver, svc))
			if err != nil {
				return fmt.Errorf("create RPC server: %w", err)
			}

			sessions := session.NewManager()
			srv := server.NewTournamentServer(cfg.Server.HTTPAddress, a.connector, sessions, svc, hub, cfg.SIWE, rpcServer)

			scheduler := timer.NewScheduler(100 * time.Millisecond)
			defer scheduler.Stop()
			watcher := wallet.NewWatcher(a.connector, sessions, scheduler, time.Duration(cfg.Chain.WatchInterval)*time.Second)
			watcher.Start()
			defer watcher.Stop()

			errs := make(chan error, 1)
			go func() {
				// Start Server
				errs <- srv.Start()
			}()

			select {
			case err := <-errs:
				return err
			case <-ctx.Done():
			}

			logger.Log.Info("Shutting down, waiting for pending transactions")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func roleCmd() *cobra.Command {
	var account string
	cmd := &cobra.Command{
		Use:   "role <tournament>",
		Short: "Resolve the role of an account in a tournament",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tournament, err := parseTournament(args[0])
			if err != nil {
				return err
			}
			a, err := setup(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			var addr common.Address
			if account != "" {
				if !common.IsHexAddress(account) {
					return fmt.Errorf("%q is not an account address", account)
				}
				addr = common.HexToAddress(account)
			} else {
				sess, err := a.connector.Connect(cmd.Context())
				if err != nil {
					return err
				}
				addr = sess.Address
			}

			r, err := role.NewResolver(contracts.New(a.manifest, a.connector.Backend(), nil), nil).
				Resolve(cmd.Context(), addr, tournament)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is %s", addr.Hex(), r.Kind)
			switch r.Kind {
			case models.RoleOrganizer:
				fmt.Fprintf(cmd.OutOrStdout(), " (organizer id %s", r.OrganizerID)
				if r.Ambiguous {
					fmt.Fprint(cmd.OutOrStdout(), ", also registered as a player")
				}
				fmt.Fprint(cmd.OutOrStdout(), ")")
			case models.RolePlayer:
				fmt.Fprintf(cmd.OutOrStdout(), " (player id %s)", r.PlayerID)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().StringVar(&account, "account", "", "account to resolve instead of the wallet's")
	return cmd
}

// runAction connects the wallet, binds a card for the tournament and waits for the
// flight started by start.
func runAction(cmd *cobra.Command, tournamentArg string, start func(ctx context.Context, c *card.Card) (*card.Flight, error)) error {
	tournament, err := parseTournament(tournamentArg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	sess, err := a.connector.Connect(ctx)
	if err != nil {
		return err
	}

	c := card.New(models.TournamentSummary{ContractAddress: tournament}, card.Deps{
		Sink:   notify.LogSink{},
		Ledger: a.ledger,
	})
	if err := c.Bind(ctx, sess.Address, a.gatewayFactory()(sess)); err != nil {
		return err
	}
	logger.Log.Infof("Acting as %s on %s", c.Role().Kind, tournament.Hex())

	f, err := start(ctx, c)
	if err != nil {
		if errors.Is(err, card.ErrActionUnavailable) {
			return fmt.Errorf("%w: account %s is %s", err, sess.Address.Hex(), c.Role().Kind)
		}
		return err
	}
	return f.Wait(context.Background())
}

func approveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve <tournament> <amount>",
		Short: "Increase the tournament's token allowance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, args[0], func(ctx context.Context, c *card.Card) (*card.Flight, error) {
				return c.Approve(ctx, args[1])
			})
		},
	}
}

func participateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "participate <tournament> <nickname> <amount>",
		Short: "Join a tournament by staking tokens",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, args[0], func(ctx context.Context, c *card.Card) (*card.Flight, error) {
				return c.Participate(ctx, args[1], args[2])
			})
		},
	}
}

func grantCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grant <tournament>",
		Short: "Grant the prize to the tournament's winner (organizers only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, args[0], func(ctx context.Context, c *card.Card) (*card.Flight, error) {
				return c.GrantPrize(ctx)
			})
		},
	}
}

func signinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signin",
		Short: "Sign in with Ethereum and print the signed message",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			sess, err := a.connector.Connect(cmd.Context())
			if err != nil {
				return err
			}
			in, err := wallet.SignInWithEthereum(cmd.Context(), sess, a.cfg.SIWE)
			if err != nil {
				return err
			}
			if _, err := wallet.VerifySignIn(in, a.cfg.SIWE.Domain); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n\nsignature: %s\n", in.Message, in.Signature)
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the wallet's recorded transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.ledger == nil {
				return services.ErrLedgerDisabled
			}

			sess, err := a.connector.Connect(cmd.Context())
			if err != nil {
				return err
			}
			records, err := a.ledger.ListByAccount(cmd.Context(), sess.Address.Hex(), limit)
			if err != nil {
				return err
			}
			for _, r := range records {
				amount := "-"
				if r.Amount != "" {
					if base, ok := new(big.Int).SetString(r.Amount, 10); ok {
						amount = units.FormatAmount(base)
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-12s %-10s %s  %s\n",
					r.SubmittedAt.Format(time.RFC3339), r.Kind, r.Status, amount, r.Hash)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of records")
	return cmd
}
