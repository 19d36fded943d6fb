package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rohitroy-github/ico-init/internal/chain"
	"github.com/rohitroy-github/ico-init/internal/config"
	"github.com/rohitroy-github/ico-init/internal/contract"
	"github.com/rohitroy-github/ico-init/internal/database"
	"github.com/rohitroy-github/ico-init/internal/logger"
	"github.com/rohitroy-github/ico-init/internal/monitor"
	"github.com/rohitroy-github/ico-init/internal/router"
	"github.com/rohitroy-github/ico-init/internal/task"
	"github.com/spf13/cobra"
)

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:          "icod",
	Short:        "ICO project registry and token sale service",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 加载配置
		loaded, err := config.LoadFrom(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		if err := logger.Setup(cfg.Log); err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dev chain, indexer, jobs and HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the projection tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := database.Init(cfg.Database)
		return err
	},
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Print the deterministic dev accounts and their keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		accounts, err := chain.DevAccounts(cfg.Chain.DevAccounts)
		if err != nil {
			return err
		}
		for i, account := range accounts {
			fmt.Fprintf(cmd.OutOrStdout(), "(%d) %s %s\n", i, account.Address.Hex(),
				hexutil.Encode(crypto.FromECDSA(account.Key)))
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: ./config.yaml)")
	rootCmd.AddCommand(serveCmd, migrateCmd, accountsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	// 初始化数据库
	db, err := database.Init(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	// 开发链每次启动从创世区块开始, 旧投影不再对应链上状态
	if cfg.Indexer.ResetOnStart {
		if err := database.Reset(db); err != nil {
			return err
		}
	}

	// 初始化开发链并部署注册合约
	backend, accounts, err := chain.NewDevBackend(cfg.Chain)
	if err != nil {
		return fmt.Errorf("failed to initialize dev chain: %w", err)
	}
	listingFee, err := cfg.Registry.ListingFeeWei()
	if err != nil {
		return err
	}
	registry, receipt, err := contract.DeployProjectRegistry(backend, &chain.TransactOpts{From: accounts[0].Address}, listingFee)
	if err != nil {
		return fmt.Errorf("failed to deploy registry: %w", err)
	}
	logger.Info("ProjectRegistry deployed at %s in block %s by %s", registry.Address().Hex(), receipt.BlockNumber, accounts[0].Address.Hex())

	// 启动事件索引
	eventMonitor := monitor.NewEventMonitor(backend, db, registry, cfg.Indexer.Interval)
	if err := eventMonitor.Start(); err != nil {
		return err
	}
	defer eventMonitor.Stop()

	// 启动定时任务
	taskManager, err := task.NewManager(db, backend, registry, cfg)
	if err != nil {
		return err
	}
	if err := taskManager.Start(); err != nil {
		return err
	}
	defer taskManager.Stop()

	// 启动服务器
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router.Setup(db, backend, registry, accounts, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
