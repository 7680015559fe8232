package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/ignatzorin/freelance-contracts/internal/logger"
)

// SafeGo запускает горутину с перехватом panic: сбой фонового
// обработчика не роняет процесс расчётов.
func SafeGo(fn func()) {
	go func() {
		defer recoverPanic()
		fn()
	}()
}

// SafeGoWithContext запускает горутину с контекстом и перехватом panic.
func SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	go func() {
		defer recoverPanic()
		fn(ctx)
	}()
}

func recoverPanic() {
	if r := recover(); r != nil {
		logger.Log.WithField("panic", r).
			Errorf("паника в фоновой горутине\n%s", debug.Stack())
	}
}
