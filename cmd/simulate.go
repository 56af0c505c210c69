package cmd

import (
	"context"
	"fmt"
	"sync"

	"casino/config"
	"casino/events"
	"casino/games/randutil"
	"casino/games/roulette"
	"casino/models"
	"casino/repository/memstore"
	"casino/service"

	"github.com/coder/quartz"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// SimulationOptions controls a simulation run
type SimulationOptions struct {
	Spins       int
	Workers     int
	Seed        int64
	RouletteBet []roulette.Bet
}

// GameReport summarises one game over a simulation
type GameReport struct {
	Rounds   int64   `json:"rounds"`
	Wins     int64   `json:"wins"`
	Staked   int64   `json:"staked"`
	Returned int64   `json:"returned"`
	RTP      float64 `json:"rtp"`
	HitRate  float64 `json:"hit_rate"`
}

func (r *GameReport) add(stats *models.GameStats) {
	if stats == nil {
		return
	}
	r.Rounds += stats.Bets.Count
	r.Wins += stats.Wins.Count
	r.Staked += stats.Bets.Total
	r.Returned += stats.Wins.Total + stats.Refunds.Total
}

func (r *GameReport) finish() {
	if r.Staked > 0 {
		r.RTP = float64(r.Returned) / float64(r.Staked)
	}
	if r.Rounds > 0 {
		r.HitRate = float64(r.Wins) / float64(r.Rounds)
	}
}

// SimulationReport is the outcome of a simulation run
type SimulationReport struct {
	Spins          int        `json:"spins"`
	Workers        int        `json:"workers"`
	Seed           int64      `json:"seed"`
	Slots          GameReport `json:"slots"`
	Roulette       GameReport `json:"roulette"`
	LedgersChecked int        `json:"ledgers_checked"`
}

// Simulate plays slots and roulette against a throwaway in-memory store.
// Each worker owns an account and a source seeded from opts.Seed, so a run is
// reproducible for a given seed and worker count.
func Simulate(ctx context.Context, cfg *config.Config, opts SimulationOptions) (*SimulationReport, error) {
	if opts.Spins <= 0 {
		return nil, fmt.Errorf("spins must be positive")
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Workers > opts.Spins {
		opts.Workers = opts.Spins
	}
	rouletteStake, err := roulette.Validate(opts.RouletteBet)
	if err != nil {
		return nil, err
	}

	bus := events.NewBus()
	factory := memstore.NewFactory(bus, quartz.NewReal())
	ledger := service.NewLedgerService(factory)

	report := &SimulationReport{
		Spins:   opts.Spins,
		Workers: opts.Workers,
		Seed:    opts.Seed,
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	perWorker := opts.Spins / opts.Workers
	remainder := opts.Spins % opts.Workers

	for w := 0; w < opts.Workers; w++ {
		rounds := perWorker
		if w < remainder {
			rounds++
		}
		worker := w

		g.Go(func() error {
			rng := randutil.New(opts.Seed + int64(worker))
			slots := service.NewSlotsService(factory, rng)
			wheel := service.NewRouletteService(factory, rng, nil)

			account, err := ledger.OpenAccount(gctx, fmt.Sprintf("sim-%d", worker), int64(rounds)*(cfg.SlotStake+rouletteStake))
			if err != nil {
				return err
			}

			for i := 0; i < rounds; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				if _, err := slots.Spin(gctx, account.ID); err != nil {
					return fmt.Errorf("worker %d slots round %d: %w", worker, i, err)
				}
				if _, err := wheel.SettleBets(gctx, account.ID, opts.RouletteBet); err != nil {
					return fmt.Errorf("worker %d roulette round %d: %w", worker, i, err)
				}
			}

			if _, err := ledger.Verify(gctx, account.ID); err != nil {
				return err
			}
			stats, err := ledger.GetStatistics(gctx, account.ID)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			report.Slots.add(stats.ByGame[models.GameSlots])
			report.Roulette.add(stats.ByGame[models.GameRoulette])
			report.LedgersChecked++
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	bus.Wait()

	report.Slots.finish()
	report.Roulette.finish()

	log.WithFields(log.Fields{
		"spins":        report.Spins,
		"slots_rtp":    report.Slots.RTP,
		"roulette_rtp": report.Roulette.RTP,
	}).Info("Simulation complete")
	return report, nil
}
