// cmd/solkit/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.uber.org/zap"

	"github.com/solkit/solkit"
	"github.com/solkit/solkit/internal/config"
	"github.com/solkit/solkit/internal/logger"
	"github.com/solkit/solkit/internal/wallet"
)

const usage = `usage: solkit [flags] <command> [args]

commands:
  price <pool>                 probe the lamport price of one base token
  buy   <pool> <sol> [slip%]   spend SOL for the pool's base token
  sell  <pool> <tokens> [slip%] trade base tokens back into SOL
  send  <recipient> <sol>      transfer SOL and wait for confirmation
  balance                      print the wallet's SOL balance

flags:
`

func main() {
	configPath := flag.String("config", "configs/config.json", "path to configuration file")
	walletName := flag.String("wallet", "default", "wallet name from the wallets file")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*configPath, *walletName, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(configPath, walletName string, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Development = cfg.DebugLogging
	if cfg.LogFile != "" {
		logCfg.LogFile = cfg.LogFile
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	kit, err := solkit.New(cfg, log.Logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command, args := args[0], args[1:]
	if command == "price" {
		if len(args) != 1 {
			return fmt.Errorf("price expects a pool id")
		}
		price, err := kit.Price(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%d lamports per token\n", price)
		return nil
	}

	w, err := loadWallet(cfg.WalletsFile, walletName)
	if err != nil {
		return err
	}
	log.Info("wallet loaded", zap.String("pubkey", w.String()))

	switch command {
	case "buy":
		pool, amount, slip, err := parseTradeArgs(args)
		if err != nil {
			return err
		}
		result, err := kit.Buy(ctx, w, pool, amount, slip)
		if err != nil {
			return err
		}
		fmt.Printf("bought %s tokens (%d raw)\n", strconv.FormatFloat(result.ValueUI, 'f', -1, 64), result.Value)
	case "sell":
		pool, amount, slip, err := parseTradeArgs(args)
		if err != nil {
			return err
		}
		result, err := kit.Sell(ctx, w, pool, amount, slip)
		if err != nil {
			return err
		}
		fmt.Printf("received %s SOL (%d lamports)\n", strconv.FormatFloat(result.ValueUI, 'f', -1, 64), result.Value)
	case "send":
		if len(args) != 2 {
			return fmt.Errorf("send expects a recipient and a SOL amount")
		}
		amount, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", args[1], err)
		}
		result, err := kit.Send(ctx, w, args[0], amount)
		if err != nil {
			return err
		}
		fmt.Printf("sent %d lamports\n", result.Value)
	case "balance":
		result, err := kit.Balance(ctx, w)
		if err != nil {
			return err
		}
		fmt.Printf("%s SOL (%d lamports)\n", strconv.FormatFloat(result.ValueUI, 'f', -1, 64), result.Value)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
	return nil
}

func parseTradeArgs(args []string) (pool string, amount, slippage float64, err error) {
	if len(args) < 2 || len(args) > 3 {
		return "", 0, 0, fmt.Errorf("expected <pool> <amount> [slippage%%]")
	}
	amount, err = strconv.ParseFloat(args[1], 64)
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid amount %q: %w", args[1], err)
	}
	if len(args) == 3 {
		slippage, err = strconv.ParseFloat(args[2], 64)
		if err != nil {
			return "", 0, 0, fmt.Errorf("invalid slippage %q: %w", args[2], err)
		}
	}
	return args[0], amount, slippage, nil
}

func loadWallet(path, name string) (*wallet.Wallet, error) {
	wallets, err := wallet.LoadWallets(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallets: %w", err)
	}
	w, ok := wallets[name]
	if !ok {
		return nil, fmt.Errorf("wallet %q not found in %s", name, path)
	}
	return w, nil
}
