package service

import (
	"context"
	"time"
)

// StringSet is a set of strings (all elements are unique)
type StringSet map[string]struct{}

// Push adds the string to the set if not already exists
func (ss StringSet) Push(s string) {
	ss[s] = struct{}{}
}

// Pop removes the string from the set
func (ss StringSet) Pop(s string) {
	delete(ss, s)
}

// Slice returns a slice from the set
func (ss StringSet) Slice() []string {
	sl := make([]string, 0, len(ss))
	for k := range ss {
		sl = append(sl, k)
	}
	return sl
}

// Exists returns true if the string already exists in the Set
func (ss StringSet) Exists(s string) bool {
	_, ok := ss[s]
	return ok
}

// Retriable runs fn up to nbRetries times with a fixed delay between
// attempts. Fatal errors stop the retries immediately.
func Retriable(ctx context.Context, fn func() error, delay time.Duration, nbRetries int) error {
	var err error
	for i := 0; i < nbRetries; i++ {
		if err = fn(); err == nil || Fatal(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return MergeErrors(true, err, ctx.Err())
		case <-time.After(delay):
		}
	}
	return err
}
