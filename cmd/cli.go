package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"casino/config"
	"casino/database"
	"casino/games/blackjack"
	"casino/games/roulette"
	"casino/models"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
)

// CLI is the command tree of the casino binary
type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`

	Migrate   MigrateCmd   `cmd:"" help:"Manage database migrations"`
	Account   AccountCmd   `cmd:"" help:"Open, adjust and inspect accounts"`
	Blackjack BlackjackCmd `cmd:"" help:"Play blackjack"`
	Roulette  RouletteCmd  `cmd:"" help:"Settle a batch of roulette bets on one spin"`
	Slots     SlotsCmd     `cmd:"" help:"Spin the slot machine"`
	Stats     StatsCmd     `cmd:"" help:"Show ledger statistics for an account"`
	History   HistoryCmd   `cmd:"" help:"List ledger entries, newest first"`
	Verify    VerifyCmd    `cmd:"" help:"Replay an account's ledger and check every invariant"`
	Simulate  SimulateCmd  `cmd:"" help:"Estimate return to player on the in-memory store"`
	Serve     ServeCmd     `cmd:"" help:"Run the engine with its integrations until signalled"`
}

// Globals is bound into every command's Run
type Globals struct {
	Ctx    context.Context
	Config *config.Config
	Out    io.Writer

	app *App
}

// App builds the engine on first use
func (g *Globals) App() (*App, error) {
	if g.app != nil {
		return g.app, nil
	}
	app, err := NewApp(g.Ctx, g.Config)
	if err != nil {
		return nil, err
	}
	g.app = app
	return app, nil
}

// Close releases the engine if a command built one
func (g *Globals) Close() {
	if g.app != nil {
		g.app.Close()
		g.app = nil
	}
}

func (g *Globals) out() io.Writer {
	if g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// print writes v as indented JSON
func (g *Globals) print(v any) error {
	enc := json.NewEncoder(g.out())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// MigrateCmd groups the migration subcommands
type MigrateCmd struct {
	Up     MigrateUpCmd     `cmd:"" help:"Apply all pending migrations"`
	Down   MigrateDownCmd   `cmd:"" help:"Roll back migrations"`
	Status MigrateStatusCmd `cmd:"" help:"Show the current migration version"`
}

type MigrateUpCmd struct{}

func (c *MigrateUpCmd) Run(g *Globals) error {
	return database.MigrateUp(g.Config.GetDatabaseURL())
}

type MigrateDownCmd struct {
	Steps int `arg:"" optional:"" default:"1" help:"Number of migrations to roll back"`
}

func (c *MigrateDownCmd) Run(g *Globals) error {
	return database.MigrateDown(g.Config.GetDatabaseURL(), c.Steps)
}

type MigrateStatusCmd struct{}

func (c *MigrateStatusCmd) Run(g *Globals) error {
	status, err := database.MigrateStatus(g.Config.GetDatabaseURL())
	if err != nil {
		return err
	}
	return g.print(status)
}

// AccountCmd groups account administration
type AccountCmd struct {
	Open   AccountOpenCmd   `cmd:"" help:"Open an account"`
	Adjust AccountAdjustCmd `cmd:"" help:"Post an administrative adjustment"`
	Show   AccountShowCmd   `cmd:"" help:"Show an account"`
}

type AccountOpenCmd struct {
	Username string `arg:"" help:"Unique account name"`
	Balance  *int64 `help:"Opening balance (defaults to STARTING_BALANCE)"`
}

func (c *AccountOpenCmd) Run(g *Globals) error {
	app, err := g.App()
	if err != nil {
		return err
	}
	balance := g.Config.StartingBalance
	if c.Balance != nil {
		balance = *c.Balance
	}
	account, err := app.Ledger.OpenAccount(g.Ctx, c.Username, balance)
	if err != nil {
		return err
	}
	return g.print(account)
}

type AccountAdjustCmd struct {
	AccountID   int64  `arg:"" name:"account" help:"Account ID"`
	Amount      int64  `arg:"" help:"Signed amount to post"`
	Description string `help:"Reason recorded on the entry"`
}

func (c *AccountAdjustCmd) Run(g *Globals) error {
	app, err := g.App()
	if err != nil {
		return err
	}
	entry, err := app.Ledger.Adjust(g.Ctx, c.AccountID, c.Amount, c.Description)
	if err != nil {
		return err
	}
	return g.print(entry)
}

type AccountShowCmd struct {
	AccountID int64 `arg:"" name:"account" help:"Account ID"`
}

func (c *AccountShowCmd) Run(g *Globals) error {
	app, err := g.App()
	if err != nil {
		return err
	}
	account, err := app.Ledger.GetAccount(g.Ctx, c.AccountID)
	if err != nil {
		return err
	}
	return g.print(account)
}

// BlackjackCmd groups the blackjack moves
type BlackjackCmd struct {
	Start  BlackjackStartCmd  `cmd:"" help:"Reserve a wager and deal a new round"`
	Hit    BlackjackActionCmd `cmd:"" help:"Draw a card"`
	Stand  BlackjackActionCmd `cmd:"" help:"Stand on the active hand"`
	Double BlackjackActionCmd `cmd:"" help:"Double the wager and draw one card"`
	Split  BlackjackActionCmd `cmd:"" help:"Split a pair into two hands"`
	Show   BlackjackShowCmd   `cmd:"" help:"Show the most recent round"`
}

type BlackjackStartCmd struct {
	AccountID int64 `arg:"" name:"account" help:"Account ID"`
	Wager     int64 `arg:"" help:"Stake for the first hand"`
}

func (c *BlackjackStartCmd) Run(g *Globals) error {
	app, err := g.App()
	if err != nil {
		return err
	}
	view, err := app.Blackjack.StartGame(g.Ctx, c.AccountID, c.Wager)
	if err != nil {
		return err
	}
	return g.print(view)
}

type BlackjackActionCmd struct {
	AccountID int64 `arg:"" name:"account" help:"Account ID"`
}

// Run plays the move named by the selected command
func (c *BlackjackActionCmd) Run(g *Globals, kctx *kong.Context) error {
	action, err := blackjack.ParseAction(kctx.Selected().Name)
	if err != nil {
		return err
	}
	app, err := g.App()
	if err != nil {
		return err
	}
	view, err := app.Blackjack.ApplyAction(g.Ctx, c.AccountID, action)
	if err != nil {
		return err
	}
	return g.print(view)
}

type BlackjackShowCmd struct {
	AccountID int64 `arg:"" name:"account" help:"Account ID"`
}

func (c *BlackjackShowCmd) Run(g *Globals) error {
	app, err := g.App()
	if err != nil {
		return err
	}
	view, err := app.Blackjack.GetGame(g.Ctx, c.AccountID)
	if err != nil {
		return err
	}
	return g.print(view)
}

type RouletteCmd struct {
	AccountID int64    `arg:"" name:"account" help:"Account ID"`
	Bets      []string `name:"bet" required:"" sep:"none" help:"Bet as amount:odds:n1,n2,... (repeatable)"`
}

func (c *RouletteCmd) Run(g *Globals) error {
	bets, err := parseBets(c.Bets)
	if err != nil {
		return err
	}
	app, err := g.App()
	if err != nil {
		return err
	}
	result, err := app.Roulette.SettleBets(g.Ctx, c.AccountID, bets)
	if err != nil {
		return err
	}
	return g.print(result)
}

func parseBets(raw []string) ([]roulette.Bet, error) {
	bets := make([]roulette.Bet, 0, len(raw))
	for _, s := range raw {
		bet, err := roulette.ParseBet(s)
		if err != nil {
			return nil, err
		}
		bets = append(bets, bet)
	}
	return bets, nil
}

type SlotsCmd struct {
	AccountID int64 `arg:"" name:"account" help:"Account ID"`
}

func (c *SlotsCmd) Run(g *Globals) error {
	app, err := g.App()
	if err != nil {
		return err
	}
	result, err := app.Slots.Spin(g.Ctx, c.AccountID)
	if err != nil {
		return err
	}
	return g.print(result)
}

type StatsCmd struct {
	AccountID int64 `arg:"" name:"account" help:"Account ID"`
}

func (c *StatsCmd) Run(g *Globals) error {
	app, err := g.App()
	if err != nil {
		return err
	}
	stats, err := app.Ledger.GetStatistics(g.Ctx, c.AccountID)
	if err != nil {
		return err
	}
	return g.print(stats)
}

type HistoryCmd struct {
	AccountID int64  `arg:"" name:"account" help:"Account ID"`
	Game      string `help:"Only entries for this game (SLOTS, BLACKJACK, ROULETTE, NONE)"`
	Kind      string `help:"Only entries of this kind (BET, WIN, BONUS, REFUND, ADJUSTMENT)"`
	Reference string `help:"Only entries sharing this reference ID"`
	Limit     int    `default:"50" help:"Maximum entries to return"`
	Offset    int    `default:"0" help:"Entries to skip"`
}

func (c *HistoryCmd) filter() (models.LedgerFilter, error) {
	filter := models.LedgerFilter{
		AccountID: c.AccountID,
		Game:      models.GameKind(c.Game),
		Kind:      models.EntryKind(c.Kind),
		Limit:     c.Limit,
		Offset:    c.Offset,
	}
	if filter.Game != "" && !filter.Game.Valid() {
		return filter, fmt.Errorf("unknown game %q", c.Game)
	}
	if filter.Kind != "" && !filter.Kind.Valid() {
		return filter, fmt.Errorf("unknown entry kind %q", c.Kind)
	}
	if c.Reference != "" {
		ref, err := uuid.Parse(c.Reference)
		if err != nil {
			return filter, fmt.Errorf("invalid reference %q: %w", c.Reference, err)
		}
		filter.ReferenceID = &ref
	}
	return filter, nil
}

func (c *HistoryCmd) Run(g *Globals) error {
	filter, err := c.filter()
	if err != nil {
		return err
	}
	app, err := g.App()
	if err != nil {
		return err
	}
	entries, err := app.Ledger.History(g.Ctx, filter)
	if err != nil {
		return err
	}
	return g.print(entries)
}

type VerifyCmd struct {
	AccountID int64 `arg:"" name:"account" help:"Account ID"`
}

// Run prints the audit even when it fails so the first violation is visible
func (c *VerifyCmd) Run(g *Globals) error {
	app, err := g.App()
	if err != nil {
		return err
	}
	audit, err := app.Ledger.Verify(g.Ctx, c.AccountID)
	if audit != nil {
		if perr := g.print(audit); perr != nil {
			return perr
		}
	}
	return err
}

type SimulateCmd struct {
	Spins   int      `default:"100000" help:"Rounds to play per game"`
	Workers int      `default:"4" help:"Parallel players"`
	Seed    int64    `default:"1" help:"Base RNG seed"`
	Bets    []string `name:"bet" sep:"none" default:"1:1:1,3,5,7,9,12,14,16,18,19,21,23,25,27,30,32,34,36" help:"Roulette bet per round as amount:odds:n1,n2,..."`
}

func (c *SimulateCmd) Run(g *Globals) error {
	bets, err := parseBets(c.Bets)
	if err != nil {
		return err
	}
	report, err := Simulate(g.Ctx, g.Config, SimulationOptions{
		Spins:       c.Spins,
		Workers:     c.Workers,
		Seed:        c.Seed,
		RouletteBet: bets,
	})
	if err != nil {
		return err
	}
	return g.print(report)
}

type ServeCmd struct{}

func (c *ServeCmd) Run(g *Globals) error {
	return Serve(g.Ctx, g.Config)
}
