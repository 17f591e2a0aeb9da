// Package miniapp dispatches mini-app event callbacks to leveled handlers.
//
// Handlers declare a level. For each event the executor groups the supporting
// handlers by level and walks the levels in ascending order. All handlers of
// one level are submitted to a shared bounded Pool together and the executor
// waits for every one of them before the next level starts, so level N always
// finishes before level N+1 begins. Inside a level no order is guaranteed.
//
// A handler failure (error, false result or panic) is caught inside its task
// and recorded in the Report; it never fails the level. Only cancellation of
// the wait itself abandons the remaining levels of that dispatch.
package miniapp
