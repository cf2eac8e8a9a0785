package saga

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
)

type aggregateState int

const (
	stateIdle aggregateState = iota
	stateExecuting
	stateCompleted
	stateFailed
	stateRolledBack
)

func (s aggregateState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateExecuting:
		return "executing"
	case stateCompleted:
		return "completed"
	case stateFailed:
		return "failed"
	case stateRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// Options задаёт параметры транзакции.
type Options struct {
	Name     string
	Logger   *log.Entry
	Observer Observer
}

// Option настраивает SequentialAggregate.
type Option func(*Options)

// WithName задаёт имя транзакции для логов.
func WithName(name string) Option {
	return func(opts *Options) {
		opts.Name = name
	}
}

// WithLogger задаёт logger транзакции.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithObserver добавляет наблюдателя за шагами.
func WithObserver(observer Observer) Option {
	return func(opts *Options) {
		if observer == nil {
			return
		}
		if opts.Observer == nil {
			opts.Observer = observer
			return
		}
		opts.Observer = Observers{opts.Observer, observer}
	}
}

// SequentialAggregate выполняет шаги строго по порядку и при отказе
// компенсирует уже завершённые шаги в обратном порядке.
//
// Экземпляр создаётся на один вызов коммерческой операции и не предназначен
// для конкурентного использования.
type SequentialAggregate struct {
	name         string
	steps        []Step
	lastExecuted int
	failedIndex  int
	state        aggregateState
	rollbackErr  error
	logger       *log.Entry
	observer     Observer
}

// NewSequentialAggregate создаёт транзакцию из фиксированного списка шагов.
// Порядок шагов после создания не меняется.
func NewSequentialAggregate(steps []Step, options ...Option) *SequentialAggregate {
	opts := Options{Name: "transaction"}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New().WithField("component", "saga")
	}

	owned := make([]Step, len(steps))
	copy(owned, steps)

	return &SequentialAggregate{
		name:        opts.Name,
		steps:       owned,
		failedIndex: -1,
		logger:      logger.WithField("transaction", opts.Name),
		observer:    opts.Observer,
	}
}

// LastExecuted возвращает число успешно завершённых шагов.
func (a *SequentialAggregate) LastExecuted() int {
	return a.lastExecuted
}

// FailedStep возвращает индекс упавшего шага или -1.
func (a *SequentialAggregate) FailedStep() int {
	return a.failedIndex
}

// RollbackErrors возвращает ошибки компенсации, собранные при последнем откате.
func (a *SequentialAggregate) RollbackErrors() error {
	return a.rollbackErr
}

// State возвращает текущее состояние транзакции.
func (a *SequentialAggregate) State() string {
	return a.state.String()
}

// Len возвращает количество шагов транзакции.
func (a *SequentialAggregate) Len() int {
	return len(a.steps)
}

// Execute выполняет шаги по порядку. При ошибке шага i откатываются шаги [0, i)
// и возвращается исходная ошибка шага. Ошибки, помеченные Fatal, возвращаются
// без компенсации. Паника runtime.Error пробрасывается дальше как есть.
func (a *SequentialAggregate) Execute(ctx context.Context) error {
	if a.state != stateIdle {
		return ErrAlreadyExecuted
	}
	if len(a.steps) == 0 {
		return ErrNoSteps
	}
	a.state = stateExecuting

	for i, step := range a.steps {
		start := time.Now()
		err := a.executeStep(ctx, step)
		if err == nil {
			a.lastExecuted = i + 1
			a.notifyExecuted(step.Name(), i, time.Since(start))
			continue
		}

		a.state = stateFailed
		a.failedIndex = i
		a.notifyFailed(step.Name(), i, err)

		if IsFatal(err) {
			a.logger.WithError(err).WithFields(log.Fields{
				"step":          step.Name(),
				"step_index":    i,
				"last_executed": a.lastExecuted,
			}).Error("fatal step error, skipping compensation")
			return err
		}

		a.logger.WithError(err).WithFields(log.Fields{
			"step":          step.Name(),
			"step_index":    i,
			"last_executed": a.lastExecuted,
		}).Warn("step failed, rolling back executed steps")

		if rbErr := a.Rollback(ctx); rbErr != nil {
			a.logger.WithError(rbErr).Warn("rollback finished with errors")
		}
		return err
	}

	a.state = stateCompleted
	a.logger.WithField("steps", len(a.steps)).Debug("transaction completed")
	return nil
}

// Rollback компенсирует шаги с индексами меньше LastExecuted в обратном порядке.
// Ошибка одного шага не останавливает компенсацию более ранних.
// Допустим один раз и только после неудачного Execute.
func (a *SequentialAggregate) Rollback(ctx context.Context) error {
	if a.state != stateFailed {
		return ErrNotRollbackable
	}
	a.state = stateRolledBack

	// Компенсация должна дойти до конца, даже если контекст запроса уже отменён.
	rbCtx := context.WithoutCancel(ctx)

	var result *multierror.Error
	for i := a.lastExecuted - 1; i >= 0; i-- {
		step := a.steps[i]
		if err := a.rollbackStep(rbCtx, step); err != nil {
			a.logger.WithError(err).WithFields(log.Fields{
				"step":       step.Name(),
				"step_index": i,
			}).Warn("step rollback failed")
			a.notifyRollbackFailed(step.Name(), i, err)
			result = multierror.Append(result, fmt.Errorf("rollback %s: %w", step.Name(), err))
			continue
		}
		a.notifyRolledBack(step.Name(), i)
	}

	a.lastExecuted = 0
	a.rollbackErr = result.ErrorOrNil()
	return a.rollbackErr
}

func (a *SequentialAggregate) executeStep(ctx context.Context, step Step) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(runtime.Error); ok {
				panic(r)
			}
			err = fmt.Errorf("step %s panicked: %v", step.Name(), r)
		}
	}()
	return step.Execute(ctx)
}

func (a *SequentialAggregate) rollbackStep(ctx context.Context, step Step) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(runtime.Error); ok {
				panic(r)
			}
			err = fmt.Errorf("rollback of step %s panicked: %v", step.Name(), r)
		}
	}()
	return step.Rollback(ctx)
}

func (a *SequentialAggregate) notifyExecuted(step string, index int, duration time.Duration) {
	if a.observer != nil {
		a.observer.StepExecuted(step, index, duration)
	}
}

func (a *SequentialAggregate) notifyFailed(step string, index int, err error) {
	if a.observer != nil {
		a.observer.StepFailed(step, index, err)
	}
}

func (a *SequentialAggregate) notifyRolledBack(step string, index int) {
	if a.observer != nil {
		a.observer.StepRolledBack(step, index)
	}
}

func (a *SequentialAggregate) notifyRollbackFailed(step string, index int, err error) {
	if a.observer != nil {
		a.observer.RollbackFailed(step, index, err)
	}
}
