package domain

import "time"

// Типы событий журнала шагов транзакции.
const (
	JournalStepExecuted      = "StepExecuted"
	JournalStepFailed        = "StepFailed"
	JournalStepRolledBack    = "StepRolledBack"
	JournalStepRollbackError = "StepRollbackFailed"
)

// JournalEvent фиксирует исход одного шага транзакции по заказу.
type JournalEvent struct {
	OrderID  string
	Step     string
	Type     string
	Reason   string
	Occurred time.Time
}
