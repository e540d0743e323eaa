package tracing

// Span names.
const (
	SpanEmit     = "bus.emit"
	SpanListener = "bus.listener"
	SpanNavigate = "view.navigate"
	SpanPreload  = "view.preload"
)

// Span attribute keys.
const (
	AttrEventName      = "event.name"
	AttrEventListeners = "event.listeners"
	AttrSubscriptionID = "subscription.id"

	AttrViewName    = "view.name"
	AttrViewFrom    = "view.from"
	AttrViewTo      = "view.to"
	AttrViewForce   = "view.force"
	AttrViewReplace = "view.replace_history"
	AttrViewVetoed  = "view.vetoed"
	AttrViewCached  = "view.cached"
)
