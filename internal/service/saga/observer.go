package saga

import "time"

// Observer получает уведомления о ходе выполнения транзакции.
// Вызовы происходят синхронно в горутине транзакции.
type Observer interface {
	StepExecuted(step string, index int, duration time.Duration)
	StepFailed(step string, index int, err error)
	StepRolledBack(step string, index int)
	RollbackFailed(step string, index int, err error)
}

// Observers рассылает уведомления нескольким наблюдателям по порядку.
type Observers []Observer

func (o Observers) StepExecuted(step string, index int, duration time.Duration) {
	for _, obs := range o {
		obs.StepExecuted(step, index, duration)
	}
}

func (o Observers) StepFailed(step string, index int, err error) {
	for _, obs := range o {
		obs.StepFailed(step, index, err)
	}
}

func (o Observers) StepRolledBack(step string, index int) {
	for _, obs := range o {
		obs.StepRolledBack(step, index)
	}
}

func (o Observers) RollbackFailed(step string, index int, err error) {
	for _, obs := range o {
		obs.RollbackFailed(step, index, err)
	}
}

var _ Observer = Observers(nil)
