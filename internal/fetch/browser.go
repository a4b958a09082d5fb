// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fetch

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Driver is one leased headless-browser session. Implementations live
// outside this module; the pool only needs navigation, cookie clearing, and
// teardown.
type Driver interface {
	// PageSource navigates to url, waits for the body plus a short JS
	// settle, and returns the rendered source.
	PageSource(ctx context.Context, url string) (string, error)
	// ClearCookies resets session state before the driver goes back to
	// the pool.
	ClearCookies() error
	// Close tears the driver down for good.
	Close() error
}

// DriverFactory builds a fresh driver for the pool.
type DriverFactory func() (Driver, error)

// ErrNoDriver is returned when the pool has shrunk to zero drivers.
var ErrNoDriver = errors.New("browser driver pool exhausted")

// DriverPool is a cyclic, bounded pool of browser drivers. A driver handles
// one request at a time; on error it is discarded and the pool shrinks.
type DriverPool struct {
	slots chan Driver

	mu   sync.Mutex
	live int
}

// NewDriverPool creates size drivers up front. Factory failures shrink the
// initial pool instead of failing construction; a pool of zero drivers is
// usable and rejects every lease.
func NewDriverPool(size int, factory DriverFactory) *DriverPool {
	p := &DriverPool{slots: make(chan Driver, size)}
	for i := 0; i < size; i++ {
		driver, err := factory()
		if err != nil {
			log.Warnf("browser pool: driver %d unavailable: %v", i, err)
			continue
		}
		p.slots <- driver
		p.live++
	}
	return p
}

// Fetch leases a driver, loads the page, and returns the rendered source.
// The driver goes back to the pool with cleared cookies; on any driver error
// it is closed and dropped. Blocks until a driver is free unless the pool
// has shrunk to nothing.
func (p *DriverPool) Fetch(ctx context.Context, url string) (string, error) {
	p.mu.Lock()
	if p.live == 0 {
		p.mu.Unlock()
		return "", ErrNoDriver
	}
	p.mu.Unlock()

	var driver Driver
	select {
	case driver = <-p.slots:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	source, err := driver.PageSource(ctx, url)
	if err != nil {
		p.discard(driver)
		log.Warnf("browser pool: discarding driver after error: %v", err)
		return "", err
	}

	if err = driver.ClearCookies(); err != nil {
		p.discard(driver)
		log.Warnf("browser pool: discarding driver, cookie reset failed: %v", err)
		return source, nil
	}

	p.slots <- driver
	return source, nil
}

func (p *DriverPool) discard(driver Driver) {
	_ = driver.Close()
	p.mu.Lock()
	p.live--
	p.mu.Unlock()
}

// Size returns the number of drivers still owned by the pool.
func (p *DriverPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live
}

// Close shuts down all idle drivers.
func (p *DriverPool) Close() {
	for {
		select {
		case driver := <-p.slots:
			p.discard(driver)
		default:
			return
		}
	}
}
