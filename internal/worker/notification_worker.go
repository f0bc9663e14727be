package worker

import (
	"github.com/spec-kit/storefront/internal/catalog"
	"github.com/spec-kit/storefront/internal/events"
	"github.com/spec-kit/storefront/internal/service"
)

// Subscribers are the in-process consumers of catalog mutation events.
type Subscribers struct {
	Invalidator   *catalog.Invalidator
	Reader        *catalog.Reader
	Notifications *service.NotificationService
}

// StartCatalogSubscribers registers subscribers on dispatcher. The reader's
// generation bump runs before the purge, so a miss that arrives once the
// pages are gone cannot join a load started before the write. The audit hook
// runs last.
func StartCatalogSubscribers(dispatcher events.Dispatcher, subs Subscribers) {
	if dispatcher == nil {
		return
	}
	if subs.Reader != nil {
		subs.Reader.Register(dispatcher)
	}
	if subs.Invalidator != nil {
		subs.Invalidator.Register(dispatcher)
	}
	if subs.Notifications != nil {
		subs.Notifications.RegisterHandlers()
	}
}
