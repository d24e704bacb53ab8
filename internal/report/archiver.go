// Package report builds and archives settlement reports. After a market
// resolves, its final accounting (pool totals, fee, per-stake payouts) is
// serialized to JSON and uploaded to blob storage for audit and reconciliation.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/predictleague/settlement/internal/domain"
	"github.com/predictleague/settlement/internal/settlement"
)

// SettlementReport is the archived record of a resolved market.
type SettlementReport struct {
	MarketID      string        `json:"market_id"`
	Question      string        `json:"question"`
	CorrectOption int           `json:"correct_option"`
	TotalStaked   int64         `json:"total_staked"`
	FeeCollected  int64         `json:"fee_collected"`
	NetPool       int64         `json:"net_pool"`
	CorrectWeight int64         `json:"correct_weight"`
	JokerReserve  int64         `json:"joker_reserve"`
	ResolvedAt    time.Time     `json:"resolved_at"`
	Stakes        []StakeReport `json:"stakes"`
}

// StakeReport is one stake's line in the settlement report, including the
// payout it is entitled to.
type StakeReport struct {
	UserID    string `json:"user_id"`
	Option    int    `json:"option"`
	Amount    int64  `json:"amount"`
	Risk      bool   `json:"risk"`
	JokerUsed bool   `json:"joker_used"`
	Payout    int64  `json:"payout"`
}

// Archiver uploads settlement reports to blob storage and records the upload
// in the audit log.
type Archiver struct {
	writer domain.BlobWriter
	stakes domain.StakeStore
	audit  domain.AuditStore
}

// NewArchiver creates a new Archiver.
func NewArchiver(writer domain.BlobWriter, stakes domain.StakeStore, audit domain.AuditStore) *Archiver {
	return &Archiver{writer: writer, stakes: stakes, audit: audit}
}

// Archive builds the settlement report for a resolved market and uploads it
// to settlements/YYYY-MM-DD/<market_id>.json. The payout column reports each
// stake's entitlement under the final pool split whether or not it has been
// claimed yet.
func (a *Archiver) Archive(ctx context.Context, m domain.Market) (string, error) {
	if !m.Resolved || m.CorrectOption == nil {
		return "", domain.ErrNotResolved
	}

	stakes, err := a.stakes.ListByMarket(ctx, m.ID, domain.ListOpts{})
	if err != nil {
		return "", fmt.Errorf("report: list stakes for %s: %w", m.ID, err)
	}

	rep := SettlementReport{
		MarketID:      m.ID,
		Question:      m.Question,
		CorrectOption: *m.CorrectOption,
		TotalStaked:   m.TotalStaked,
		FeeCollected:  m.FeeCollected,
		NetPool:       m.NetPool,
		CorrectWeight: m.CorrectWeight,
		JokerReserve:  m.JokerReserve,
		Stakes:        make([]StakeReport, 0, len(stakes)),
	}
	if m.ResolvedAt != nil {
		rep.ResolvedAt = *m.ResolvedAt
	}

	for _, st := range stakes {
		pick := settlement.Pick{
			Correct:   st.Option == *m.CorrectOption,
			Risk:      st.Risk,
			JokerUsed: st.JokerUsed,
		}
		rep.Stakes = append(rep.Stakes, StakeReport{
			UserID:    st.UserID,
			Option:    st.Option,
			Amount:    st.Amount,
			Risk:      st.Risk,
			JokerUsed: st.JokerUsed,
			Payout:    settlement.PoolPayout(pick, st.Amount, m.NetPool, m.JokerReserve, m.CorrectWeight),
		})
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rep); err != nil {
		return "", fmt.Errorf("report: marshal report for %s: %w", m.ID, err)
	}

	path := reportPath(m.ID, rep.ResolvedAt)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf.Bytes()), "application/json"); err != nil {
		return "", fmt.Errorf("report: upload report for %s: %w", m.ID, err)
	}

	if err := a.audit.Log(ctx, "report.archived", map[string]any{
		"market_id": m.ID,
		"path":      path,
		"stakes":    len(rep.Stakes),
	}); err != nil {
		return path, fmt.Errorf("report: audit log for %s: %w", m.ID, err)
	}

	return path, nil
}

// reportPath builds the blob key for a settlement report, partitioned by
// resolution date.
//
//	settlements/2026-08-31/ep42-winner.json
func reportPath(marketID string, resolvedAt time.Time) string {
	return fmt.Sprintf("settlements/%s/%s.json", resolvedAt.Format("2006-01-02"), marketID)
}
