// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package runtimeenv collects process-wide setup that does not belong to any
// single engine or transport: privilege dropping for long-running staging
// daemons, systemd readiness notification, and an optional gops debug agent.
package runtimeenv

import (
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"strconv"
	"syscall"

	"github.com/google/gops/agent"

	"github.com/adios-io/adios/pkg/log"
)

// DropPrivileges changes the process's user and group to those named.
// The go runtime takes care of all threads (not only the calling one)
// executing the underlying syscall.
func DropPrivileges(username string, group string) error {
	if group != "" {
		g, err := user.LookupGroup(group)
		if err != nil {
			log.Warn("Error while looking up group")
			return err
		}

		gid, _ := strconv.Atoi(g.Gid)
		if err := syscall.Setgid(gid); err != nil {
			log.Warn("Error while setting gid")
			return err
		}
	}

	if username != "" {
		u, err := user.Lookup(username)
		if err != nil {
			log.Warn("Error while looking up user")
			return err
		}

		uid, _ := strconv.Atoi(u.Uid)
		if err := syscall.Setuid(uid); err != nil {
			log.Warn("Error while setting uid")
			return err
		}
	}

	return nil
}

// SystemdNotify informs systemd that the process is running, if started
// via systemd: https://www.freedesktop.org/software/systemd/man/sd_notify.html
func SystemdNotify(ready bool, status string) {
	if os.Getenv("NOTIFY_SOCKET") == "" {
		// Not started using systemd
		return
	}

	args := []string{fmt.Sprintf("--pid=%d", os.Getpid())}
	if ready {
		args = append(args, "--ready")
	}

	if status != "" {
		args = append(args, fmt.Sprintf("--status=%s", status))
	}

	cmd := exec.Command("systemd-notify", args...)
	cmd.Run() // errors ignored on purpose, there is not much to do anyways.
}

// StartDebugAgent starts a gops agent so a running staging transport daemon
// can be inspected live (stack dumps, heap profile, GC stats) without
// restarting it. A second call while an agent is already listening fails:
// agent.Listen's error is logged and returned.
func StartDebugAgent() error {
	if err := agent.Listen(agent.Options{}); err != nil {
		log.Warnf("gops agent not started: %s", err.Error())
		return err
	}
	return nil
}

// StopDebugAgent stops a previously started gops agent.
func StopDebugAgent() {
	agent.Close()
}
