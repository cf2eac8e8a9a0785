package kafka

// Topics для Kafka.
const (
	TopicTransactionEvents = "storefront.transaction.events"
	// TopicDeadLetterQueue получает события, которые не удалось опубликовать после всех попыток.
	TopicDeadLetterQueue = "storefront.transaction.dlq"
)

// Kafka headers, которые дублируют поля конверта для маршрутизации без разбора тела.
const (
	HeaderEventType     = "x-event-type"
	HeaderAggregateType = "x-aggregate-type"
	HeaderOutboxID      = "x-outbox-id"
)
