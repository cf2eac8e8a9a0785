package domain

import (
	"errors"
	"fmt"
)

var (
	// Ошибка отсутствующего идентификатора клиента.
	ErrCustomerRequired = errors.New("customer_id is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrLineItemsRequired = errors.New("order must contain at least one line item")
	// Ошибка для операций над одной подпиской, пришедших с несколькими позициями.
	ErrSingleLineItemRequired = errors.New("order must contain exactly one line item")
	// Ошибка неподдерживаемого типа операции.
	ErrOperationUnsupported = errors.New("unsupported operation type")
	// ErrOfferNotFound возвращается, если предложение отсутствует в каталоге.
	ErrOfferNotFound = errors.New("offer not found")
	// ErrOfferInactive: предложение снято с продажи (soft delete).
	ErrOfferInactive = errors.New("offer is inactive")
	// ErrSubscriptionNotFound возвращается, если подписка клиента не найдена.
	ErrSubscriptionNotFound = errors.New("subscription not found")
	// ErrSubscriptionExpired: срок подписки истёк, докупка мест невозможна.
	ErrSubscriptionExpired = errors.New("subscription expired")
	// ErrAlreadyExists сигнализирует о попытке повторно создать запись.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrPaymentDeclined: платёж отклонён провайдером (бизнес-ошибка).
	ErrPaymentDeclined = errors.New("payment declined")
	// ErrPaymentGateway: техническая ошибка платёжного шлюза.
	ErrPaymentGateway = errors.New("payment gateway error")
	// ErrAuthorizationUnknown: шлюз не знает переданный код авторизации.
	ErrAuthorizationUnknown = errors.New("authorization code is unknown")
	// ErrCommerceAPI: ошибка удалённого commerce API.
	ErrCommerceAPI = errors.New("commerce api error")
	// ErrPlacedOrderMismatch: состав созданного заказа не совпадает с запрошенным.
	ErrPlacedOrderMismatch = errors.New("placed order does not match requested lines")
	// ErrOutboxPublish: ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// FailureKind: закрытый перечень категорий отказа коммерческой операции.
type FailureKind string

const (
	FailureValidation           FailureKind = "validation_failed"
	FailureOfferNotFound        FailureKind = "offer_not_found"
	FailureOfferInactive        FailureKind = "offer_inactive"
	FailureSubscriptionNotFound FailureKind = "subscription_not_found"
	FailureSubscriptionExpired  FailureKind = "subscription_expired"
	FailureGateway              FailureKind = "gateway_failure"
	FailureCommerceAPI          FailureKind = "commerce_api_failure"
	FailureStorage              FailureKind = "storage_failure"
)

// CommerceError описывает отказ с категорией и контекстом (поле, идентификатор).
type CommerceError struct {
	Kind  FailureKind
	Field string
	ID    string
	Err   error
}

func (e *CommerceError) Error() string {
	switch {
	case e.Field != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Field, e.Err)
	case e.ID != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.ID, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *CommerceError) Unwrap() error {
	return e.Err
}

// ValidationFailed оборачивает ошибку валидации входного заказа.
func ValidationFailed(field string, err error) error {
	return &CommerceError{Kind: FailureValidation, Field: field, Err: err}
}

// OfferNotFound сообщает об отсутствии предложения в каталоге.
func OfferNotFound(offerID string) error {
	return &CommerceError{Kind: FailureOfferNotFound, ID: offerID, Err: ErrOfferNotFound}
}

// OfferInactive сообщает о попытке купить или продлить снятое с продажи предложение.
func OfferInactive(offerID string) error {
	return &CommerceError{Kind: FailureOfferInactive, ID: offerID, Err: ErrOfferInactive}
}

// SubscriptionNotFound сообщает об отсутствии подписки клиента.
func SubscriptionNotFound(subscriptionID string) error {
	return &CommerceError{Kind: FailureSubscriptionNotFound, ID: subscriptionID, Err: ErrSubscriptionNotFound}
}

// SubscriptionExpired сообщает об истёкшей подписке.
func SubscriptionExpired(subscriptionID string) error {
	return &CommerceError{Kind: FailureSubscriptionExpired, ID: subscriptionID, Err: ErrSubscriptionExpired}
}

// GatewayFailure оборачивает ошибку платёжного шлюза.
func GatewayFailure(operation string, err error) error {
	return &CommerceError{Kind: FailureGateway, Field: operation, Err: err}
}

// CommerceAPIFailure оборачивает ошибку удалённого commerce API.
func CommerceAPIFailure(operation string, err error) error {
	return &CommerceError{Kind: FailureCommerceAPI, Field: operation, Err: err}
}

// StorageFailure оборачивает ошибку хранилища.
func StorageFailure(operation string, err error) error {
	return &CommerceError{Kind: FailureStorage, Field: operation, Err: err}
}

// KindOf возвращает категорию отказа или пустую строку для прочих ошибок.
func KindOf(err error) FailureKind {
	var ce *CommerceError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// IsValidation сообщает, что ошибка обнаружена до выполнения шагов транзакции.
func IsValidation(err error) bool {
	switch KindOf(err) {
	case FailureValidation, FailureOfferNotFound, FailureOfferInactive,
		FailureSubscriptionNotFound, FailureSubscriptionExpired:
		return true
	default:
		return false
	}
}
