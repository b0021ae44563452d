package main

import (
	"fmt"
	"os"

	config "hourly-forecast-api/configs"
	"hourly-forecast-api/pkg/models"
	"hourly-forecast-api/pkg/services"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	historyFile string
	cutoffs     []int
	date        string
	cutoff      int
)

// rootCmd 履歴ファイルを読み込んでオフラインで予測精度を検証する
var rootCmd = &cobra.Command{
	Use:   "backtest",
	Short: "履歴データで予測エンジンを自己検証する",
	Long: `backtest は履歴ファイル（CSV/Excel）を読み込み、過去日の後半を隠して
予測を実行し、実績との相対誤差を表示します。

例:
  backtest --file history.csv                       # 6,12,18時のカットオフで全日を検証
  backtest --file history.csv --cutoffs 9,15         # カットオフを指定
  backtest --file history.csv --date 2024-05-01 --cutoff 18`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&historyFile, "file", "f", "", "履歴ファイル（省略時は HISTORY_FILE）")
	rootCmd.Flags().IntSliceVar(&cutoffs, "cutoffs", services.DefaultBacktestCutoffs, "全日検証のカットオフ時刻")
	rootCmd.Flags().StringVar(&date, "date", "", "1日だけ検証する場合の日付（YYYY-MM-DD）")
	rootCmd.Flags().IntVar(&cutoff, "cutoff", 18, "--date 指定時のカットオフ時刻")
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "エラー:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command) error {
	if historyFile == "" {
		historyFile = config.LoadConfig().HistoryFile
	}
	if historyFile == "" {
		return fmt.Errorf("履歴ファイルを --file または HISTORY_FILE で指定してください")
	}

	records, summary, err := services.NewHistoryImportService().LoadFile(historyFile)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "=== 履歴: %s（%d日分, %s〜%s） ===\n",
		historyFile, summary.RecordsImported, summary.FirstDate, summary.LastDate)

	store := services.NewHistoryStore(records)
	backtester := services.NewBacktester(nil)

	if date != "" {
		normalized, ok := services.NormalizeDate(date)
		if !ok {
			return services.ErrInvalidDate
		}
		result, err := backtester.Run(store, normalized, cutoff)
		if err != nil {
			return err
		}
		printResult(cmd, result)
		return nil
	}

	printSummary(cmd, backtester.EvaluateHistory(store, cutoffs))
	return nil
}

func printResult(cmd *cobra.Command, result models.BacktestResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n--- %s（カットオフ %d時） ---\n", result.Date, result.CutoffHour)
	for _, h := range result.Hours {
		fmt.Fprintf(out, "  %2d時: 実績 %8.0f / 予測 %8.0f / 誤差 %5.1f%%\n", h.Hour, h.Actual, h.Predicted, h.Error*100)
	}
	if !result.Sufficient {
		fmt.Fprintln(out, "  評価できる時間がありません（データ不足）")
		return
	}
	fmt.Fprintf(out, "平均誤差: %.1f%%（%d時間）\n", result.MeanError*100, result.ScoredHours)
}

func printSummary(cmd *cobra.Command, summary models.BacktestSummary) {
	out := cmd.OutOrStdout()
	for _, c := range summary.Cutoffs {
		fmt.Fprintf(out, "カットオフ %2d時: 平均誤差 %5.1f%%（評価 %d日 / スキップ %d日）\n",
			c.CutoffHour, c.MeanError*100, c.DaysEvaluated, c.DaysSkipped)
	}
	if !summary.Sufficient {
		fmt.Fprintln(out, "評価できる日がありません（データ不足）")
		return
	}
	fmt.Fprintf(out, "全体平均誤差: %.1f%%\n", summary.OverallMeanError*100)
}
