package miniapp

import (
	"context"
	"fmt"
	"time"

	"dingd/pkg/types"
)

// Task binds one handler to one payload for a single pool submission.
type Task struct {
	Payload *types.EventPayload
	Handler Handler
}

// Call runs the handler, converting an error or panic into the result. It
// never panics.
func (t Task) Call(ctx context.Context) (res TaskResult) {
	res = TaskResult{Handler: t.Handler.Name(), Level: t.Handler.Level()}
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		if r := recover(); r != nil {
			res.OK = false
			res.Panicked = true
			res.Err = fmt.Errorf("handler %s panicked: %v", res.Handler, r)
		}
	}()
	ok, err := t.Handler.Process(ctx, t.Payload)
	res.OK = ok && err == nil
	res.Err = err
	return res
}
