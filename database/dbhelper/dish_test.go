package dbhelper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLedgerDateSameInstantSameKey(t *testing.T) {
	// the same delivery instant expressed with the client's offset and
	// after a UTC round-trip through the database must key the same row
	cst := time.FixedZone("CST", 8*3600)
	asClient := time.Date(2026, 9, 1, 0, 30, 0, 0, cst)
	asStored := asClient.UTC()

	assert.Equal(t, ledgerDate(asClient), ledgerDate(asStored))
	assert.Equal(t, "2026-08-31", ledgerDate(asClient))
}

func TestLedgerDateUTCBoundary(t *testing.T) {
	utc := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-09-01", ledgerDate(utc))

	// one second earlier falls on the previous ledger day
	assert.Equal(t, "2026-08-31", ledgerDate(utc.Add(-time.Second)))
}
