package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/spf13/cobra"

	"github.com/navigatorbuilds/elara-core/logger"
	"github.com/navigatorbuilds/elara-core/sym"
)

// DoctorCmd runs a battery of local health checks: data directory
// reachability, store openability, and host resource headroom.
var DoctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose local node health",
	Long:  `Check the data directory, identity, stores, and host resources for problems.`,
	RunE:  runDoctor,
}

type checkResult struct {
	name string
	ok   bool
	note string
}

func runDoctor(cmd *cobra.Command, args []string) error {
	var results []checkResult

	cfg, err := loadConfig()
	if err != nil {
		results = append(results, checkResult{"configuration", false, err.Error()})
		printDoctorResults(results)
		return errCheckFailure
	}
	results = append(results, checkResult{"configuration", true, cfg.DataDir})

	if _, err := os.Stat(cfg.DataDir); err != nil {
		results = append(results, checkResult{"data directory", false, err.Error()})
	} else {
		results = append(results, checkResult{"data directory", true, cfg.DataDir})
	}

	if id, err := openIdentity(cfg); err != nil {
		results = append(results, checkResult{"identity", false, err.Error()})
	} else {
		results = append(results, checkResult{"identity", true, id.Hash})
	}

	if d, err := openDAG(cfg); err != nil {
		results = append(results, checkResult{sym.DB + " dag store", false, err.Error()})
	} else {
		stats, statErr := d.Stats()
		d.Close()
		if statErr != nil {
			results = append(results, checkResult{sym.DB + " dag store", false, statErr.Error()})
		} else {
			results = append(results, checkResult{sym.DB + " dag store", true, pluralRecords(stats.RecordCount)})
		}
	}

	if w, err := openWitnesses(cfg); err != nil {
		results = append(results, checkResult{sym.Witness + " witness store", false, err.Error()})
	} else {
		w.Close()
		results = append(results, checkResult{sym.Witness + " witness store", true, "reachable"})
	}

	if reg, err := openDecisions(cfg); err != nil {
		results = append(results, checkResult{"decision registry", false, err.Error()})
	} else {
		reg.Close()
		results = append(results, checkResult{"decision registry", true, "reachable"})
	}

	if v, err := mem.VirtualMemory(); err != nil {
		results = append(results, checkResult{"memory", false, err.Error()})
	} else {
		results = append(results, checkResult{"memory", v.UsedPercent < 95, fmt.Sprintf("%.1f%% used", v.UsedPercent)})
	}

	if percents, err := cpu.Percent(0, false); err != nil || len(percents) == 0 {
		results = append(results, checkResult{"cpu", false, "unavailable"})
	} else {
		results = append(results, checkResult{"cpu", percents[0] < 95, fmt.Sprintf("%.1f%% load", percents[0])})
	}

	if usage, err := disk.Usage(cfg.DataDir); err != nil {
		results = append(results, checkResult{"disk", false, err.Error()})
	} else {
		results = append(results, checkResult{"disk", usage.UsedPercent < 95, fmt.Sprintf("%.1f%% used on %s", usage.UsedPercent, usage.Path)})
	}

	printDoctorResults(results)
	fmt.Printf("log level: %s (%s)\n", logger.LevelName(logger.Verbosity), logger.VerbosityDescription(logger.Verbosity))
	if logger.ShouldLogTrace(logger.Verbosity) {
		var names []string
		for _, cat := range logger.EnabledCategories(logger.Verbosity) {
			names = append(names, logger.CategoryName(cat))
		}
		fmt.Printf("enabled output categories: %s\n", strings.Join(names, ", "))
	}

	for _, r := range results {
		if !r.ok {
			return errCheckFailure
		}
	}
	return nil
}

func pluralRecords(n int) string {
	if n == 1 {
		return "1 record"
	}
	return fmt.Sprintf("%d records", n)
}

func printDoctorResults(results []checkResult) {
	fmt.Printf("%-24s %-6s %s\n", "CHECK", "STATUS", "DETAIL")
	for _, r := range results {
		status := "FAIL"
		if r.ok {
			status = "OK"
		}
		fmt.Printf("%-24s %-6s %s\n", r.name, status, r.note)
	}
}
