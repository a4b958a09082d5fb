// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package aggregator

import (
	"errors"
	"fmt"

	git "github.com/go-git/go-git/v6"
	log "github.com/sirupsen/logrus"
)

// Updater probes the deployment checkout for upstream changes. The daemon
// exits when the probe reports an update; the process supervisor restarts
// it on the new code.
type Updater struct {
	dir string
}

// NewUpdater watches the git checkout rooted at dir. An empty dir means the
// working directory.
func NewUpdater(dir string) *Updater {
	if dir == "" {
		dir = "."
	}
	return &Updater{dir: dir}
}

// Probe pulls the tracking branch and reports whether HEAD moved. Errors are
// soft: a failed probe means "no update" and the daemon keeps running the
// current code.
func (u *Updater) Probe() bool {
	updated, err := u.pull()
	if err != nil {
		log.Warnf("self-update probe failed: %v", err)
		return false
	}
	return updated
}

func (u *Updater) pull() (bool, error) {
	repo, err := git.PlainOpen(u.dir)
	if err != nil {
		return false, fmt.Errorf("open checkout %s: %w", u.dir, err)
	}

	before, err := repo.Head()
	if err != nil {
		return false, fmt.Errorf("resolve head: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return false, err
	}
	if err = wt.Pull(&git.PullOptions{RemoteName: "origin"}); err != nil {
		if errors.Is(err, git.NoErrAlreadyUpToDate) {
			return false, nil
		}
		return false, fmt.Errorf("pull: %w", err)
	}

	after, err := repo.Head()
	if err != nil {
		return false, fmt.Errorf("resolve head after pull: %w", err)
	}

	if before.Hash() != after.Hash() {
		log.Infof("self-update: %s -> %s", before.Hash().String()[:8], after.Hash().String()[:8])
		return true, nil
	}
	return false, nil
}
