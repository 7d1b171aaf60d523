package events

const (
	TopicProductsConsumed = "kiosk.products.consumed"
	TopicConsumeFailed    = "kiosk.consume.failed"
)

// Partition key = room, so the consumption history of one room stays ordered.
func PartitionKey(room string) []byte { return []byte(room) }
