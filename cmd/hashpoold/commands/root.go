package commands

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hashpool/snarkOS-1/api/httpjson"
	"github.com/hashpool/snarkOS-1/api/websocket"
	"github.com/hashpool/snarkOS-1/chain/pool"
	"github.com/hashpool/snarkOS-1/chain/store"
	"github.com/hashpool/snarkOS-1/config"
	"github.com/hashpool/snarkOS-1/lnode"
	"github.com/hashpool/snarkOS-1/node"
	"github.com/hashpool/snarkOS-1/por"
	"github.com/hashpool/snarkOS-1/util/log"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "hashpoold",
	Version: config.Version,
	Short:   "hashpoold - full node daemon for the hashpool blockchain",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := nodeMain(); err != nil {
			log.Error(err)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	runtime.GOMAXPROCS(runtime.NumCPU())

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.Flags().StringVar(&config.Parameters.LogPath, "log", config.Parameters.LogPath, "directory where your log file will be generated")
	rootCmd.Flags().StringVar(&config.Parameters.ChainDBPath, "chaindb", config.Parameters.ChainDBPath, "directory where your blockchain data will be stored")
	rootCmd.Flags().StringVar(&config.Parameters.OperatorAddress, "operatoraddr", "", "pool operator address")
}

func nodeMain() error {
	if err := config.Init(); err != nil {
		return err
	}
	if err := log.Init(config.Parameters.LogPath, config.Parameters.LogLevel); err != nil {
		return err
	}

	log.Infof("%s %s starting, network %d", config.SoftwareName, config.Version, config.Parameters.NetworkID)

	ledgerStore, err := store.NewLedgerStore(config.Parameters.ChainDBPath)
	if err != nil {
		return err
	}
	defer ledgerStore.Close()

	capacity := config.Parameters.MailboxCapacity
	proverRouter := node.NewRouter("prover", capacity)
	ledgerRouter := node.NewRouter("ledger", capacity)
	peersRouter := node.NewRouter("peers", capacity)
	operatorRouter := node.NewRouter("operator", capacity)

	var operatorAddr por.Address
	if config.Parameters.OperatorAddress != "" {
		operatorAddr, err = por.ToAddress(config.Parameters.OperatorAddress)
		if err != nil {
			return err
		}
	}

	txnPool := pool.NewTxnPool()
	peers := node.NewPeers(peersRouter)
	operator := por.NewOperator(operatorAddr, operatorRouter)
	localNode := lnode.NewLocalNode(ledgerStore, txnPool, operator, peers, proverRouter, ledgerRouter)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go peers.Run(ctx)
	go operator.Run(ctx)
	go localNode.Run(ctx)

	rpcServer := httpjson.NewServer(localNode)
	wsServer := websocket.NewServer(localNode)
	go func() {
		if err := rpcServer.Start(); err != nil {
			log.Errorf("JSON-RPC server: %v", err)
		}
	}()
	go func() {
		if err := wsServer.Start(); err != nil {
			log.Errorf("websocket server: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	rpcServer.Stop(shutdownCtx)
	wsServer.Stop(shutdownCtx)
	return nil
}
