// Package spsc provides a bounded, fixed-capacity channel between exactly one
// producer goroutine and exactly one consumer goroutine.
//
// New is the only way to obtain handles and returns a bound Receiver/Sender
// pair. The ring buffer is never locked: head belongs to the receiver and tail
// to the sender, and the two counting signals (items available, space
// available) carry the hand-off between them.
//
// Either handle may Close the channel; closing is a one-way latch visible from
// both sides. A handle that becomes unreachable closes its side as well. Move
// transfers a handle's ownership and leaves the source detached.
//
// Receive and Send ignore the open flag and may block forever once the peer
// has gone away, and TryReceive/TrySend cannot tell "closed" from "empty" or
// "full". Poll, Offer, ReceiveContext and SendContext report ErrClosed
// explicitly for callers that need to tell the two apart.
package spsc
