package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"stock-backtest/internal/dto"
	"stock-backtest/internal/repository"
	"stock-backtest/internal/service"
	"stock-backtest/pkg/utils"

	"github.com/spf13/cobra"
)

var (
	backtestProfileIDs []uint
	backtestMode       string
	backtestStart      string
	backtestEnd        string
	backtestModels     []string
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a one-shot backtest and print the summary",
	Run:   RunBacktestCLI,
}

func init() {
	backtestCmd.Flags().UintSliceVar(&backtestProfileIDs, "profile", nil, "profile id (repeatable)")
	backtestCmd.Flags().StringVar(&backtestMode, "mode", string(dto.RunModeUniverseScan), "run mode")
	backtestCmd.Flags().StringVar(&backtestStart, "start", "", "start date (YYYY-MM-DD)")
	backtestCmd.Flags().StringVar(&backtestEnd, "end", "", "end date (YYYY-MM-DD)")
	backtestCmd.Flags().StringSliceVar(&backtestModels, "model", nil, "model name for models_comparison mode (repeatable)")
}

func RunBacktestCLI(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appDep, err := NewAppDependency(ctx)
	if err != nil {
		log.Fatalf("Failed to create app dependency: %v", err)
	}
	defer appDep.Close()

	repo, err := repository.NewRepository(appDep.cfg, appDep.db.DB, appDep.log)
	if err != nil {
		log.Fatalf("Failed to create repository: %v", err)
	}

	services := service.NewService(appDep.cfg, appDep.log, repo, appDep.cache)

	startDate, err := utils.ParseDate(backtestStart)
	if err != nil {
		log.Fatalf("Invalid start date: %v", err)
	}
	endDate, err := utils.ParseDate(backtestEnd)
	if err != nil {
		log.Fatalf("Invalid end date: %v", err)
	}

	req := dto.BacktestRequest{
		ProfileIDs: backtestProfileIDs,
		Mode:       dto.RunMode(backtestMode),
		StartDate:  startDate,
		EndDate:    endDate,
		Models:     backtestModels,
	}

	result, err := services.BacktestService.RunBacktestSync(ctx, req)
	if err != nil {
		log.Fatalf("Backtest failed: %v", err)
	}

	fmt.Printf("Run %s finished: %s\n", result.RunID, result.State)
	for _, c := range result.Combinations {
		fmt.Printf("  %-28s return %s (%.2f%%)  trades %d  win rate %.1f%%  max drawdown %.2f%%  ledger %s\n",
			c.Strategy, c.TotalReturn, c.ReturnPct, c.TotalTrades, c.WinRate, c.MaxDrawdownPct, c.LedgerPath)
	}
	if result.Error != "" {
		fmt.Printf("  error: %s\n", result.Error)
		os.Exit(1)
	}
}
