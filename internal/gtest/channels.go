package gtest

import (
	"os"
	"strconv"
	"testing"
	"time"
)

// timeFactor is read once from LOCKSTEP_TEST_TIME_FACTOR,
// to allow slower machines (or the race detector) to extend every timeout.
var timeFactor = func() int64 {
	s := os.Getenv("LOCKSTEP_TEST_TIME_FACTOR")
	if s == "" {
		return 1
	}
	f, err := strconv.ParseInt(s, 10, 64)
	if err != nil || f < 1 {
		panic("LOCKSTEP_TEST_TIME_FACTOR must be a positive integer")
	}
	return f
}()

// ScaleMs returns ms milliseconds scaled by LOCKSTEP_TEST_TIME_FACTOR.
func ScaleMs(ms int64) time.Duration {
	return time.Duration(ms*timeFactor) * time.Millisecond
}

// ReceiveSoon receives a value from ch,
// failing the test if no value arrives within a short, scaled timeout.
func ReceiveSoon[T any](t testing.TB, ch <-chan T) T {
	t.Helper()
	return ReceiveOrTimeout(t, ch, ScaleMs(250))
}

// ReceiveOrTimeout receives a value from ch,
// failing the test if no value arrives within timeout.
func ReceiveOrTimeout[T any](t testing.TB, ch <-chan T, timeout time.Duration) T {
	t.Helper()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case v := <-ch:
		return v
	case <-timer.C:
		t.Fatalf("did not receive value within %s", timeout)
	}

	panic("unreachable")
}

// SendSoon sends v on ch,
// failing the test if the send does not complete within a short, scaled timeout.
func SendSoon[T any](t testing.TB, ch chan<- T, v T) {
	t.Helper()

	timer := time.NewTimer(ScaleMs(250))
	defer timer.Stop()

	select {
	case ch <- v:
		// Okay.
	case <-timer.C:
		t.Fatalf("could not send value within %s", ScaleMs(250))
	}
}

// NotSending fails the test if a value is immediately available on ch.
func NotSending[T any](t testing.TB, ch <-chan T) {
	t.Helper()

	select {
	case v := <-ch:
		t.Fatalf("expected no value to be ready, got %v", v)
	default:
		// Okay.
	}
}
