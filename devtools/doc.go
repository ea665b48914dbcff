// Package devtools relays container commands to a time-travel debugger and
// applies the debugger's jump instructions back to the containers.
//
// A Bridge is an extension: install it on every container the debugger
// should see. Each committed command becomes an Action carrying the
// container name, id, command label and the JSON-encoded new state. Actions
// reach websocket clients connected to Bridge.ServeHTTP and any channel
// obtained from Bridge.Subscribe.
//
// The debugger moves a container to an earlier state by sending
//
//	{"type": "JUMP", "store": "counter", "state": {"value": 10}}
//
// over the websocket, or by calling the Jump RPC served by NewJumpHandler.
// Jumps are applied through the normal command pipeline with
// store.LabelDevtools and are not echoed back as actions.
package devtools
