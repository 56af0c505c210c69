package memstore

import (
	"context"
	"fmt"
	"sort"

	"casino/games/blackjack"
	"casino/models"
)

type accountRepository struct {
	uow *unitOfWork
}

func (r *accountRepository) lookup(id int64) *models.Account {
	u := r.uow
	var account *models.Account
	if staged, ok := u.newAccounts[id]; ok {
		account = cloneAccount(staged)
	} else {
		u.store.mu.Lock()
		committed, ok := u.store.accounts[id]
		if ok {
			account = cloneAccount(committed)
		}
		u.store.mu.Unlock()
	}
	if account == nil {
		return nil
	}
	if balance, ok := u.balances[id]; ok {
		account.Balance = balance
	}
	return account
}

func (r *accountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	return r.lookup(id), nil
}

func (r *accountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	for id, account := range r.uow.newAccounts {
		if account.Username == username {
			return r.lookup(id), nil
		}
	}

	r.uow.store.mu.Lock()
	id, ok := r.uow.store.usernames[username]
	r.uow.store.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return r.lookup(id), nil
}

// GetForUpdate blocks until no other unit of work holds the account
func (r *accountRepository) GetForUpdate(ctx context.Context, id int64) (*models.Account, error) {
	u := r.uow
	if !u.held[id] {
		if err := u.store.acquire(ctx, id); err != nil {
			return nil, err
		}
		u.held[id] = true
	}
	return r.lookup(id), nil
}

// Create stages a new account and holds its lock until the unit of work ends
func (r *accountRepository) Create(ctx context.Context, username string) (*models.Account, error) {
	existing, _ := r.GetByUsername(ctx, username)
	if existing != nil {
		return nil, fmt.Errorf("failed to create account: username %q is already taken", username)
	}

	u := r.uow
	id := u.store.allocate(&u.store.nextAccountID)
	if err := u.store.acquire(ctx, id); err != nil {
		return nil, err
	}
	u.held[id] = true

	now := u.store.clock.Now()
	account := &models.Account{
		ID:        id,
		Username:  username,
		CreatedAt: now,
		UpdatedAt: now,
	}
	u.newAccounts[id] = account
	return cloneAccount(account), nil
}

func (r *accountRepository) UpdateBalance(ctx context.Context, id int64, newBalance int64) error {
	if newBalance < 0 {
		return fmt.Errorf("failed to update balance for account %d: balance cannot be negative", id)
	}
	if r.lookup(id) == nil {
		return models.ErrAccountNotFound
	}
	r.uow.balances[id] = newBalance
	return nil
}

type ledgerRepository struct {
	uow *unitOfWork
}

// chain returns committed then staged entries for an account, in sequence order
func (r *ledgerRepository) chain(accountID int64) []*models.LedgerEntry {
	r.uow.store.mu.Lock()
	committed := r.uow.store.ledger[accountID]
	out := make([]*models.LedgerEntry, 0, len(committed)+len(r.uow.entries[accountID]))
	for _, e := range committed {
		out = append(out, cloneEntry(e))
	}
	r.uow.store.mu.Unlock()

	for _, e := range r.uow.entries[accountID] {
		out = append(out, cloneEntry(e))
	}
	return out
}

func (r *ledgerRepository) Append(ctx context.Context, entry *models.LedgerEntry) error {
	if entry.BalanceAfter != entry.BalanceBefore+entry.Amount {
		return fmt.Errorf("failed to append ledger entry: balance_after %d != balance_before %d + amount %d",
			entry.BalanceAfter, entry.BalanceBefore, entry.Amount)
	}

	chain := r.chain(entry.AccountID)
	if want := int64(len(chain)) + 1; entry.Sequence != want {
		return fmt.Errorf("failed to append ledger entry: sequence %d, expected %d", entry.Sequence, want)
	}

	u := r.uow
	entry.ID = u.store.allocate(&u.store.nextEntryID)
	entry.CreatedAt = u.store.clock.Now()
	u.entries[entry.AccountID] = append(u.entries[entry.AccountID], cloneEntry(entry))
	return nil
}

func (r *ledgerRepository) GetLatest(ctx context.Context, accountID int64) (*models.LedgerEntry, error) {
	chain := r.chain(accountID)
	if len(chain) == 0 {
		return nil, nil
	}
	return chain[len(chain)-1], nil
}

func (r *ledgerRepository) List(ctx context.Context, filter models.LedgerFilter) ([]*models.LedgerEntry, error) {
	var candidates []*models.LedgerEntry
	if filter.AccountID != 0 {
		candidates = r.chain(filter.AccountID)
	} else {
		r.uow.store.mu.Lock()
		ids := make([]int64, 0, len(r.uow.store.ledger))
		for id := range r.uow.store.ledger {
			ids = append(ids, id)
		}
		r.uow.store.mu.Unlock()
		for id := range r.uow.entries {
			ids = append(ids, id)
		}
		seen := make(map[int64]bool, len(ids))
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				candidates = append(candidates, r.chain(id)...)
			}
		}
	}

	matched := make([]*models.LedgerEntry, 0, len(candidates))
	for _, e := range candidates {
		if filter.Game != "" && e.Game != filter.Game {
			continue
		}
		if filter.Kind != "" && e.Kind != filter.Kind {
			continue
		}
		if filter.ReferenceID != nil && (e.ReferenceID == nil || *e.ReferenceID != *filter.ReferenceID) {
			continue
		}
		matched = append(matched, e)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []*models.LedgerEntry{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (r *ledgerRepository) ListChain(ctx context.Context, accountID int64) ([]*models.LedgerEntry, error) {
	return r.chain(accountID), nil
}

func (r *ledgerRepository) GetAggregates(ctx context.Context, accountID int64) ([]models.LedgerAggregate, error) {
	type key struct {
		kind models.EntryKind
		game models.GameKind
	}
	index := make(map[key]int)
	var out []models.LedgerAggregate
	for _, e := range r.chain(accountID) {
		k := key{e.Kind, e.Game}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, models.LedgerAggregate{Kind: e.Kind, Game: e.Game})
		}
		out[i].Count++
		out[i].Sum += e.Amount
	}
	return out, nil
}

type blackjackRepository struct {
	uow *unitOfWork
}

// accountGames returns the account's games oldest first, staged state winning
func (r *blackjackRepository) accountGames(accountID int64) []*blackjack.Game {
	u := r.uow
	u.store.mu.Lock()
	ids := append([]int64(nil), u.store.gameOrder[accountID]...)
	committed := make(map[int64]*blackjack.Game, len(ids))
	for _, id := range ids {
		committed[id] = u.store.games[id]
	}
	u.store.mu.Unlock()

	for _, id := range u.newGames {
		if u.games[id].AccountID == accountID {
			ids = append(ids, id)
		}
	}

	out := make([]*blackjack.Game, 0, len(ids))
	for _, id := range ids {
		if staged, ok := u.games[id]; ok {
			out = append(out, cloneGame(staged))
		} else {
			out = append(out, cloneGame(committed[id]))
		}
	}
	return out
}

func (r *blackjackRepository) GetOpenByAccount(ctx context.Context, accountID int64) (*blackjack.Game, error) {
	for _, g := range r.accountGames(accountID) {
		if !g.GameOver {
			return g, nil
		}
	}
	return nil, nil
}

func (r *blackjackRepository) GetLatestByAccount(ctx context.Context, accountID int64) (*blackjack.Game, error) {
	games := r.accountGames(accountID)
	if len(games) == 0 {
		return nil, nil
	}
	return games[len(games)-1], nil
}

func (r *blackjackRepository) Create(ctx context.Context, game *blackjack.Game) error {
	open, _ := r.GetOpenByAccount(ctx, game.AccountID)
	if open != nil {
		return fmt.Errorf("failed to create blackjack game: account %d already has open game %d", game.AccountID, open.ID)
	}

	u := r.uow
	game.ID = u.store.allocate(&u.store.nextGameID)
	now := u.store.clock.Now()
	game.CreatedAt = now
	game.UpdatedAt = now
	u.games[game.ID] = cloneGame(game)
	u.newGames = append(u.newGames, game.ID)
	return nil
}

func (r *blackjackRepository) Update(ctx context.Context, game *blackjack.Game) error {
	u := r.uow
	if _, staged := u.games[game.ID]; !staged {
		u.store.mu.Lock()
		_, ok := u.store.games[game.ID]
		u.store.mu.Unlock()
		if !ok {
			return fmt.Errorf("failed to update blackjack game %d: not found", game.ID)
		}
	}
	game.UpdatedAt = u.store.clock.Now()
	u.games[game.ID] = cloneGame(game)
	return nil
}

type achievementRepository struct {
	uow *unitOfWork
}

func (r *achievementRepository) ListByAccount(ctx context.Context, accountID int64) ([]*models.Achievement, error) {
	u := r.uow
	u.store.mu.Lock()
	committed := u.store.achievements[accountID]
	out := make([]*models.Achievement, 0, len(committed))
	for _, a := range committed {
		out = append(out, cloneAchievement(a))
	}
	u.store.mu.Unlock()

	for _, a := range u.achievements[accountID] {
		out = append(out, cloneAchievement(a))
	}
	return out, nil
}

func (r *achievementRepository) Unlock(ctx context.Context, achievement *models.Achievement) (bool, error) {
	held, _ := r.ListByAccount(ctx, achievement.AccountID)
	for _, a := range held {
		if a.Code == achievement.Code {
			return false, nil
		}
	}

	u := r.uow
	achievement.ID = u.store.allocate(&u.store.nextAchievementID)
	achievement.UnlockedAt = u.store.clock.Now()
	u.achievements[achievement.AccountID] = append(u.achievements[achievement.AccountID], cloneAchievement(achievement))
	return true, nil
}
