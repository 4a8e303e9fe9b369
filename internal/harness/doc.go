// Package harness runs saga scenarios written in YAML.
//
// A scenario scripts a small saga, the store it runs against and the
// expectations it must meet, so saga behaviour can be pinned down without
// writing Go:
//
//	name: dog_birthday
//	description: "Birthday increments the dog's age"
//	initial_state: { name: Tucker, age: 11 }
//	reducer:
//	  - on: DOG
//	    op: replace_with_payload
//	  - on: HAVE_BIRTHDAY
//	    op: increment
//	    path: age
//	saga:
//	  - select: dog
//	    as: dog
//	  - put: { type: DOG, payload: $dog }
//	  - put: { type: HAVE_BIRTHDAY }
//	expect:
//	  - put: { type: DOG }
//	    like: true
//	  - put: { type: HAVE_BIRTHDAY }
//	  - final_state: { name: Tucker, age: 12 }
//
// # Reducer
//
// The store state is a YAML mapping. Each reducer rule applies to actions
// whose type equals `on`:
//
//   - replace_with_payload: the state becomes the action's payload
//   - increment: the number at `path` grows by `by` (default 1)
//   - set: `path` is set to `value`
//   - merge_payload: the payload's keys are merged into the state
//
// A nil state (before the first action, or after a replace with no payload)
// is read as initial_state.
//
// # Saga Steps
//
//   - put: dispatch an action
//   - select: read a dot-separated state path ("" is the whole state)
//   - take: wait for a dispatched action (type string, list, or "*")
//   - returns: finish the saga with a value
//
// `as` binds a select or take result to a name; any string value "$name"
// later in the saga is replaced by the bound value.
//
// # Expectations
//
// put, select, take, returns and final_state, each optionally with
// `not: true`. put and select also accept `like: true` for partial matching.
// Expectations are evaluated in order and the first unmet one fails the
// scenario.
//
// # Determinism
//
// Effects are stamped by a logical clock and traces are rendered as
// canonical JSON, so the same scenario always produces the same golden file.
package harness
