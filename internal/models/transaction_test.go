package models

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSettlementKey_ContractScope(t *testing.T) {
	contractID := uuid.New()

	key := SettlementKey(contractID, nil, TransactionPurposeRelease)
	assert.Equal(t, fmt.Sprintf("%s:contract:release", contractID), key)
}

func TestSettlementKey_MilestoneScope(t *testing.T) {
	contractID := uuid.New()
	milestoneID := uuid.New()

	key := SettlementKey(contractID, &milestoneID, TransactionPurposeCommission)
	assert.Equal(t, fmt.Sprintf("%s:%s:commission", contractID, milestoneID), key)

	other := uuid.New()
	assert.NotEqual(t, key, SettlementKey(contractID, &other, TransactionPurposeCommission))
}

func TestLedgerTotals_Held(t *testing.T) {
	totals := LedgerTotals{TotalFunded: 1000, TotalReleased: 300.10, TotalRefunded: 99.90}
	assert.Equal(t, 600.0, totals.Held())

	assert.Equal(t, 0.0, LedgerTotals{}.Held())
}

func TestRoundMoney(t *testing.T) {
	assert.Equal(t, 0.3, RoundMoney(0.1+0.2))
	assert.Equal(t, 150.0, RoundMoney(1000*0.15))
	assert.Equal(t, 33.33, RoundMoney(100.0/3))
}
