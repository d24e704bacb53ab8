package domain

import "time"

// Account is a custody balance in the internal ledger. User custody, per-
// market pool custody, and the treasury are all accounts; every transfer
// debits one account and credits another inside the same transaction as the
// operation that moves the value.
type Account struct {
	ID        string    `json:"id"`
	Balance   int64     `json:"balance"` // integer cents, never negative
	UpdatedAt time.Time `json:"updated_at"`
}

// UserAccount returns the custody account ID for a user.
func UserAccount(userID string) string { return "user:" + userID }

// PoolAccount returns the custody account ID for a market's pool.
func PoolAccount(marketID string) string { return "pool:" + marketID }
