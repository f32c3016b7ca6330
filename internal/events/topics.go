package events

// Topic constants for domain events emitted by the quote service.
const (
	TopicQuoteIssued      = "quote.issued"
	TopicSessionCreated   = "quote.session_created"
	TopicCatalogRefreshed = "catalog.refreshed"
)

// CatalogSubject is recorded as the session id of catalog-wide events.
const CatalogSubject = "catalog"

// DefaultTopics returns the topics forwarded to the message broker.
func DefaultTopics() []string {
	return []string{
		TopicQuoteIssued,
		TopicSessionCreated,
		TopicCatalogRefreshed,
	}
}
