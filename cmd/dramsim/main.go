// Command dramsim drives a standalone memory controller with synthetic
// random traffic and reports the controller statistics.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sarchlab/dramctrl/datarecording"
	"github.com/sarchlab/dramctrl/dram"
	"github.com/sarchlab/dramctrl/sim"
)

var (
	flagPreset     string
	flagSched      string
	flagPage       string
	flagMapping    string
	flagRequests   int
	flagReadRatio  float64
	flagSeed       int64
	flagMaxAddress uint64
	flagTrace      bool
	flagTraceFile  string
	flagPowerDown  int
	flagSelfRef    int
)

func main() {
	// A .env file in the working directory can supply flag defaults.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "dramsim",
		Short: "Simulate a DRAM memory controller",
	}
	root.AddCommand(runCommand(), presetsCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run random traffic through one controller",
		RunE: func(_ *cobra.Command, _ []string) error {
			return run()
		},
	}

	cmd.Flags().StringVar(&flagPreset, "preset",
		envOr("DRAMSIM_PRESET", "DDR3_1600_8x8"),
		"device preset, see `dramsim presets`")
	cmd.Flags().StringVar(&flagSched, "sched",
		envOr("DRAMSIM_SCHED", "frfcfs"),
		"scheduling policy: fcfs, frfcfs")
	cmd.Flags().StringVar(&flagPage, "page",
		envOr("DRAMSIM_PAGE", ""),
		"page policy: open, open_adaptive, close, close_adaptive")
	cmd.Flags().StringVar(&flagMapping, "mapping",
		envOr("DRAMSIM_MAPPING", ""),
		"address mapping: RoRaBaChCo, RoRaBaCoCh, RoCoRaBaCh")
	cmd.Flags().IntVar(&flagRequests, "requests",
		envIntOr("DRAMSIM_REQUESTS", 10000),
		"number of requests to generate")
	cmd.Flags().Float64Var(&flagReadRatio, "read-ratio", 0.7,
		"fraction of requests that are reads")
	cmd.Flags().Int64Var(&flagSeed, "seed", 1, "random seed")
	cmd.Flags().Uint64Var(&flagMaxAddress, "max-address", 1<<26,
		"requests are spread over [0, max-address)")
	cmd.Flags().BoolVar(&flagTrace, "trace", false,
		"record issued commands into a SQLite trace")
	cmd.Flags().StringVar(&flagTraceFile, "trace-file", "",
		"trace database name, generated if empty")
	cmd.Flags().IntVar(&flagPowerDown, "power-down-after", 0,
		"idle cycles before a rank powers down, 0 disables")
	cmd.Flags().IntVar(&flagSelfRef, "self-refresh-after", 0,
		"idle cycles before a rank enters self refresh, 0 disables")

	return cmd
}

func presetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the available device presets",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(strings.Join(dram.PresetNames(), "\n"))
		},
	}
}

func run() error {
	builder, err := dram.PresetByName(flagPreset)
	if err != nil {
		return err
	}

	sched, err := dram.ParseSchedulingPolicy(flagSched)
	if err != nil {
		return err
	}
	builder = builder.WithSchedulingPolicy(sched)

	if flagPage != "" {
		page, err := dram.ParsePagePolicy(flagPage)
		if err != nil {
			return err
		}
		builder = builder.WithPagePolicy(page)
	}

	if flagMapping != "" {
		mapping, err := dram.ParseAddressMapping(flagMapping)
		if err != nil {
			return err
		}
		builder = builder.WithAddressMapping(mapping)
	}

	engine := sim.NewSerialEngine()
	ctrl := builder.
		WithEngine(engine).
		WithPowerDownAfter(flagPowerDown).
		WithSelfRefreshAfter(flagSelfRef).
		Build("DRAM")

	if flagTrace {
		recorder := datarecording.New(flagTraceFile)
		dram.NewCommandTracer(recorder, ctrl)
		defer recorder.Flush()
	}

	gen := newTrafficGen(engine, ctrl)
	gen.start()

	if err := engine.Run(); err != nil {
		return err
	}

	if gen.completed != flagRequests {
		return fmt.Errorf("only %d of %d requests completed",
			gen.completed, flagRequests)
	}

	printStats(ctrl.Stats(), engine.Now())

	return nil
}

func printStats(s dram.Stats, endTime sim.VTimeInSec) {
	fmt.Printf("simulated time:     %.9f s\n", float64(endTime))
	fmt.Printf("read transactions:  %d\n", s.NumReadTransactions)
	fmt.Printf("write transactions: %d\n", s.NumWriteTransactions)
	fmt.Printf("read bursts:        %d\n", s.NumReadBursts)
	fmt.Printf("write bursts:       %d\n", s.NumWriteBursts)
	fmt.Printf("queue rejections:   %d\n", s.NumRejections)
	fmt.Printf("row hit rate:       %.3f\n", s.RowHitRate())
	fmt.Printf("avg read latency:   %.1f cycles\n", s.AvgReadLatency())
	fmt.Printf("avg write latency:  %.1f cycles\n", s.AvgWriteLatency())

	for i, r := range s.Ranks {
		fmt.Printf("rank %d: ACT %d, PRE %d, RD %d, WR %d, REF %d\n",
			i, r.NumActivates, r.NumPrecharges,
			r.NumReads, r.NumWrites, r.NumRefreshes)
		fmt.Printf("rank %d: energy %.1f pJ, avg power %.2f mW\n",
			i, r.TotalEnergy, r.AveragePower)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}

	return n
}
