package services

import (
	"time"

	"spendwise/internal/ledger"
	"spendwise/internal/logger"
)

const missingID = "0190a0a0-0000-7000-8000-00000000dead"

func init() {
	logger.Init("test")
}

func newTestLedger() *ledger.Ledger {
	return ledger.New(ledger.NewMemoryLocker(), 2*time.Second)
}
