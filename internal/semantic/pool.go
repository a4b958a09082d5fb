// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package semantic

import "context"

// Pool serializes access to a fixed set of slots. The ONNX engines do not
// share tensors across goroutines, so concurrent callers lease a slot, run,
// and return it exactly once.
type Pool struct {
	slots chan struct{}
}

// NewPool creates a pool with the given slot count (minimum 1).
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{slots: make(chan struct{}, size)}
	for i := 0; i < size; i++ {
		p.slots <- struct{}{}
	}
	return p
}

// With runs fn while holding one slot. The slot is returned even when fn
// panics.
func (p *Pool) With(ctx context.Context, fn func() error) error {
	select {
	case <-p.slots:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { p.slots <- struct{}{} }()
	return fn()
}
