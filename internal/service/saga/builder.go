package saga

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Builder собирает конвейер шагов и связывает входы шагов с результатами
// шагов, добавленных раньше. Ошибки связывания копятся и возвращаются из Build,
// поэтому неверно собранный конвейер не начинает выполнение.
type Builder struct {
	steps   []Step
	added   map[Step]int
	errs    *multierror.Error
	options []Option
}

// NewBuilder создаёт пустой конвейер с параметрами будущей транзакции.
func NewBuilder(options ...Option) *Builder {
	return &Builder{
		added:   make(map[Step]int),
		options: options,
	}
}

// Add добавляет шаг в конец конвейера.
func (b *Builder) Add(step Step) *Builder {
	if step == nil {
		b.errs = multierror.Append(b.errs, ErrNilStep)
		return b
	}
	if _, ok := b.added[step]; ok {
		b.errs = multierror.Append(b.errs, fmt.Errorf("%w: %s", ErrDuplicateStep, step.Name()))
		return b
	}
	b.added[step] = len(b.steps)
	b.steps = append(b.steps, step)
	return b
}

// Len возвращает количество добавленных шагов.
func (b *Builder) Len() int {
	return len(b.steps)
}

// Build проверяет связи и возвращает транзакцию.
func (b *Builder) Build() (*SequentialAggregate, error) {
	if err := b.errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	if len(b.steps) == 0 {
		return nil, ErrNoSteps
	}
	return NewSequentialAggregate(b.steps, b.options...), nil
}

func (b *Builder) contains(step Step) bool {
	_, ok := b.added[step]
	return ok
}

// Input связывает следующий шаг с результатом producer. Producer должен быть
// уже добавлен в конвейер: иначе Build вернёт ErrUnknownDependency, а
// возвращённый Output будет отдавать ту же ошибку.
func Input[T any](b *Builder, producer Producer[T]) Output[T] {
	if producer == nil {
		b.errs = multierror.Append(b.errs, fmt.Errorf("%w: nil producer", ErrUnknownDependency))
		return unboundOutput[T]{producer: "nil"}
	}
	if !b.contains(producer) {
		b.errs = multierror.Append(b.errs, fmt.Errorf("%w: %s", ErrUnknownDependency, producer.Name()))
		return unboundOutput[T]{producer: producer.Name()}
	}
	return producer.Output()
}
