package saga

import "errors"

var (
	// ErrResultNotReady: результат шага запрошен до завершения его Execute.
	ErrResultNotReady = errors.New("step result is not ready")
	// ErrUnknownDependency: шаг ссылается на производителя, не добавленного в конвейер раньше него.
	ErrUnknownDependency = errors.New("step depends on a step that is not part of the pipeline yet")
	// ErrDuplicateStep: один и тот же шаг добавлен в конвейер дважды.
	ErrDuplicateStep = errors.New("step is already part of the pipeline")
	// ErrNilStep: в конвейер передан nil.
	ErrNilStep = errors.New("step is nil")
	// ErrNoSteps: конвейер без шагов.
	ErrNoSteps = errors.New("pipeline has no steps")
	// ErrAlreadyExecuted: повторный вызов Execute.
	ErrAlreadyExecuted = errors.New("transaction already executed")
	// ErrNotRollbackable: Rollback вызван не после неудачного Execute или повторно.
	ErrNotRollbackable = errors.New("transaction cannot be rolled back in its current state")
	// ErrFatal помечает ошибки, после которых компенсация не выполняется.
	ErrFatal = errors.New("fatal error")
)

type fatalError struct {
	err error
}

func (e *fatalError) Error() string {
	return "fatal: " + e.err.Error()
}

func (e *fatalError) Unwrap() error {
	return e.err
}

func (e *fatalError) Is(target error) bool {
	return target == ErrFatal
}

// Fatal помечает ошибку как неустранимую: транзакция вернёт её без компенсации.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// IsFatal сообщает, помечена ли ошибка как неустранимая.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}
