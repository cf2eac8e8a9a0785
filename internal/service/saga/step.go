package saga

import (
	"context"
	"fmt"
)

// Step: единица работы транзакции, умеющая выполнить себя и откатить.
//
// Execute вызывается не более одного раза за время жизни конвейера.
// Rollback должен быть безопасен, даже если компенсируемого ресурса уже нет.
// Шаги, для которых компенсация не нужна, возвращают nil из Rollback.
// Реализации должны быть указателями: конвейер сравнивает шаги по идентичности.
type Step interface {
	Name() string
	Execute(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Output: доступ только на чтение к результату шага.
// Result возвращает ErrResultNotReady, пока шаг-производитель не завершил Execute.
type Output[T any] interface {
	Result() (T, error)
}

// Producer: шаг, публикующий результат для последующих шагов.
type Producer[T any] interface {
	Step
	Output() Output[T]
}

// Cell: ячейка результата, принадлежащая шагу-производителю.
type Cell[T any] struct {
	value T
	set   bool
}

// Set записывает результат. Вызывается шагом в конце успешного Execute.
func (c *Cell[T]) Set(value T) {
	c.value = value
	c.set = true
}

// Result возвращает записанное значение или ErrResultNotReady.
func (c *Cell[T]) Result() (T, error) {
	if !c.set {
		var zero T
		return zero, ErrResultNotReady
	}
	return c.value, nil
}

// Ready сообщает, записан ли результат.
func (c *Cell[T]) Ready() bool {
	return c.set
}

// Clear сбрасывает ячейку, например после компенсации шага.
func (c *Cell[T]) Clear() {
	var zero T
	c.value = zero
	c.set = false
}

// unboundOutput возвращается для зависимостей, которые нельзя связать.
type unboundOutput[T any] struct {
	producer string
}

func (u unboundOutput[T]) Result() (T, error) {
	var zero T
	return zero, fmt.Errorf("%w: %s", ErrUnknownDependency, u.producer)
}
