package commerce

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/saga"
)

// journalObserver пишет исход каждого шага в журнал заказа.
// Ошибки записи журнала только логируются.
type journalObserver struct {
	repo    domain.JournalRepository
	orderID string
	clock   func() time.Time
	logger  *log.Entry
}

func newJournalObserver(repo domain.JournalRepository, orderID string, clock func() time.Time, logger *log.Entry) *journalObserver {
	return &journalObserver{repo: repo, orderID: orderID, clock: clock, logger: logger}
}

func (j *journalObserver) StepExecuted(step string, index int, duration time.Duration) {
	j.append(step, domain.JournalStepExecuted, "")
}

func (j *journalObserver) StepFailed(step string, index int, err error) {
	j.append(step, domain.JournalStepFailed, err.Error())
}

func (j *journalObserver) StepRolledBack(step string, index int) {
	j.append(step, domain.JournalStepRolledBack, "")
}

func (j *journalObserver) RollbackFailed(step string, index int, err error) {
	j.append(step, domain.JournalStepRollbackError, err.Error())
}

func (j *journalObserver) append(step, eventType, reason string) {
	event := domain.JournalEvent{
		OrderID:  j.orderID,
		Step:     step,
		Type:     eventType,
		Reason:   reason,
		Occurred: j.clock().UTC(),
	}
	if err := j.repo.Append(event); err != nil {
		j.logger.WithError(err).WithFields(log.Fields{
			"order_id": j.orderID,
			"step":     step,
		}).Warn("failed to append journal event")
	}
}

var _ saga.Observer = (*journalObserver)(nil)
