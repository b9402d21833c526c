package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/anggaran_backend/config"
	"bitbucket.org/mmdatafocus/anggaran_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// anggaran-recalc rewrites Anggaran.total_amount from its allocations.
// The total is maintained on every allocation change; this repairs rows edited outside the API.
func main() {
	anggaranID := flag.Int("anggaran-id", 0, "Optional: a single anggaran id. Defaults to every ledger of --tahun.")
	tahun := flag.String("tahun", "", "Optional: fiscal year filter (e.g. 2026-Murni)")
	actor := flag.String("actor", "recalc", "Actor recorded in the history (user:<id> for an account)")
	dryRun := flag.Bool("dry-run", false, "If true, only report ledgers whose total drifted")
	continueOnError := flag.Bool("continue-on-error", false, "Skip failing ledgers and continue with the rest")
	flag.Parse()

	if strings.TrimSpace(*actor) == "" {
		fmt.Fprintln(os.Stderr, "--actor must not be empty")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	logger := config.GetLogger()
	ctx := models.ContextWithActor(context.Background(), models.ResolveActorRef(*actor))

	var ledgers []*models.Anggaran
	if *anggaranID > 0 {
		a, err := models.GetAnggaran(ctx, *anggaranID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load anggaran %d: %v\n", *anggaranID, err)
			os.Exit(1)
		}
		ledgers = append(ledgers, a)
	} else {
		list, err := models.ListAnggaran(ctx, strings.TrimSpace(*tahun))
		if err != nil {
			fmt.Fprintf(os.Stderr, "list anggaran: %v\n", err)
			os.Exit(1)
		}
		ledgers = list
	}

	if *dryRun {
		fmt.Println("[dry-run] no changes will be written")
	}

	var drifted, fixed int
	for _, a := range ledgers {
		sum := decimal.Zero
		for _, alokasi := range a.Alokasi {
			sum = sum.Add(alokasi.Amount)
		}
		if sum.Equal(a.TotalAmount) {
			continue
		}
		drifted++
		fmt.Printf("anggaran=%d tahun=%s sub_kegiatan=%d stored=%s allocations=%s\n",
			a.ID, a.TahunAnggaran, a.SubKegiatanId, a.TotalAmount.String(), sum.String())
		if *dryRun {
			continue
		}
		if _, err := models.RecalculateAnggaranTotal(ctx, a.ID); err != nil {
			logger.WithFields(logrus.Fields{
				"field":      "anggaran-recalc",
				"anggaranId": a.ID,
			}).Error(err.Error())
			if *continueOnError {
				continue
			}
			os.Exit(1)
		}
		fixed++
	}

	fmt.Printf("checked=%d drifted=%d fixed=%d\n", len(ledgers), drifted, fixed)
}
