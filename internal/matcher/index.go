package matcher

import (
	"sort"

	"bank-ledger-reconciler/internal/models"

	"github.com/shopspring/decimal"
)

// AmountIndex buckets message transactions by currency and direction and
// keeps each bucket sorted by amount, so candidate lookup is a binary
// search instead of a scan. Pairs outside a bucket or outside the amount
// window are disqualified by scoring anyway, which keeps indexed and
// exhaustive reconciliation identical.
type AmountIndex struct {
	buckets map[bucketKey][]*AmountIndexEntry
	size    int
}

type bucketKey struct {
	currency  models.Currency
	direction models.Direction
}

// AmountIndexEntry is one distinct amount inside a bucket. Positions are
// input positions in ascending order.
type AmountIndexEntry struct {
	Amount    decimal.Decimal
	Positions []int
}

// IndexStats describes the shape of an index
type IndexStats struct {
	Transactions  int
	Buckets       int
	UniqueAmounts int
	LargestBucket int
}

// NewAmountIndex indexes txns by their position in the slice
func NewAmountIndex(txns []*models.CanonicalTransaction) *AmountIndex {
	index := &AmountIndex{
		buckets: make(map[bucketKey][]*AmountIndexEntry),
		size:    len(txns),
	}

	byAmount := make(map[bucketKey]map[string]*AmountIndexEntry)
	for pos, txn := range txns {
		key := bucketKey{currency: txn.Currency, direction: txn.Direction}
		amounts, ok := byAmount[key]
		if !ok {
			amounts = make(map[string]*AmountIndexEntry)
			byAmount[key] = amounts
		}

		amountKey := txn.Amount.String()
		if entry, exists := amounts[amountKey]; exists {
			entry.Positions = append(entry.Positions, pos)
			continue
		}
		entry := &AmountIndexEntry{Amount: txn.Amount, Positions: []int{pos}}
		amounts[amountKey] = entry
		index.buckets[key] = append(index.buckets[key], entry)
	}

	// Sort by amount for range queries
	for _, entries := range index.buckets {
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Amount.LessThan(entries[j].Amount)
		})
	}

	return index
}

// Candidates returns the positions of transactions sharing currency and
// direction with txn whose amount is within tolerance, in input order
func (ai *AmountIndex) Candidates(txn *models.CanonicalTransaction, tolerance decimal.Decimal) []int {
	entries := ai.buckets[bucketKey{currency: txn.Currency, direction: txn.Direction}]
	if len(entries) == 0 {
		return nil
	}

	minAmount := txn.Amount.Sub(tolerance)
	maxAmount := txn.Amount.Add(tolerance)

	// Find starting index using binary search
	start := sort.Search(len(entries), func(i int) bool {
		return entries[i].Amount.GreaterThanOrEqual(minAmount)
	})

	var positions []int
	for i := start; i < len(entries); i++ {
		if entries[i].Amount.GreaterThan(maxAmount) {
			break
		}
		positions = append(positions, entries[i].Positions...)
	}

	sort.Ints(positions)
	return positions
}

// GetIndexStats returns statistics about the index
func (ai *AmountIndex) GetIndexStats() IndexStats {
	stats := IndexStats{Transactions: ai.size, Buckets: len(ai.buckets)}
	for _, entries := range ai.buckets {
		stats.UniqueAmounts += len(entries)
		count := 0
		for _, e := range entries {
			count += len(e.Positions)
		}
		if count > stats.LargestBucket {
			stats.LargestBucket = count
		}
	}
	return stats
}
