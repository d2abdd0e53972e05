// Package timer implements the stopwatch and countdown engine.
//
// An Engine owns every timer. User actions (Create, Toggle, Reset, AddLap,
// ToggleHidden, Delete) and the periodic Tick are serialized through a single
// lock, so all running timers advance together and no tick sees a
// half-applied action. Ticks use the nominal interval only; drift against
// the wall clock is not corrected.
//
// Collaborators observe the engine through Subscribe and read it through
// Snapshot. They never mutate timers directly.
package timer
