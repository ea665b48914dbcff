// Package mediator is a synchronous publish/subscribe bus between containers.
//
// Registrations hold their container weakly: registering a handler never
// keeps a container alive, and entries whose container was collected are
// dropped the next time their event is published. Handlers run on the
// publisher's goroutine in registration order.
//
//	added := mediator.NewEvent[Item]("cart.added")
//
//	mediator.Register(m, added, inventory, func(c *store.Container[Inventory], msg mediator.Message[Item]) error {
//	    return c.Update(func(inv Inventory) Inventory { return inv.Reserve(msg.Payload) }, "Reserve")
//	})
//
//	err := mediator.Publish(m, added, Item{SKU: "A-1"})
//
// Every handler runs even when some fail. Failures, including recovered
// panics, come back to the publisher as a single *AggregateError.
//
// # Replay
//
// The mediator remembers every publication. Replay re-delivers them to the
// current registrations, optionally only to those registered under given
// source tags. Containers created late use it to catch up on events that
// were published before they existed. Config.ReplayLimit bounds how many
// publications are kept.
package mediator
