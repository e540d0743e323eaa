// Package eventbus provides an in-process publish/subscribe registry for
// named events.
//
// A Bus is an explicit, independently constructible object: application
// wiring passes references around rather than relying on a package-level
// singleton, so tests can build as many isolated buses as they need. Other
// components become event sources by embedding *Bus.
//
// # Delivery
//
// Emit delivers to the exact-name subscriptions first, highest priority
// first with registration order as the tie-break, and then to wildcard
// subscriptions in registration order. All listeners of one Emit share a
// single *Envelope, so StopPropagation and PreventDefault set by one
// listener are visible to the listeners invoked after it.
//
// Listeners registered with Async run on their own goroutine; Emit waits
// for every async listener to settle before it returns. A listener that
// fails or panics is logged and delivery continues, unless the emission was
// made with ThrowOnError.
//
//	bus := eventbus.New()
//	id, _ := bus.On("itinerary:saved", func(ctx context.Context, ev *eventbus.Envelope) error {
//	    return nil
//	}, eventbus.WithPriority(10))
//	defer bus.Off(id)
//
//	payload, err := bus.WaitFor(ctx, "itinerary:loaded", 2*time.Second)
package eventbus
