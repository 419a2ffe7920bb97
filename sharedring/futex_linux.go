//go:build linux && (amd64 || arm64)

/*
 *
 * Copyright 2025 gRPC authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package sharedring

import (
	"fmt"
	"sync/atomic"
	"syscall"
	"unsafe"
)

// The futex words live in a MAP_SHARED file mapping used by two
// processes, so the shared (non-private) operations are required.
const (
	futexWaitShared = 0 // FUTEX_WAIT
	futexWakeShared = 1 // FUTEX_WAKE
)

// futexWait waits for the value at addr to change from val. Callers
// must re-check their condition after this returns: wakeups may be
// spurious.
func futexWait(addr *uint32, val uint32) error {
	if atomic.LoadUint32(addr) != val {
		return nil
	}

	_, _, errno := syscall.RawSyscall6(
		syscall.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		futexWaitShared,
		uintptr(val),
		0,
		0,
		0,
	)
	if errno != 0 {
		if errno == syscall.EAGAIN || errno == syscall.EINTR {
			return nil
		}
		return fmt.Errorf("sharedring: futex wait: %w", errno)
	}
	return nil
}

// futexWaitTimeout waits on addr until the value changes from val or
// timeoutNs elapses.
func futexWaitTimeout(addr *uint32, val uint32, timeoutNs int64) error {
	if timeoutNs <= 0 {
		return futexWait(addr, val)
	}
	if atomic.LoadUint32(addr) != val {
		return nil
	}

	var ts syscall.Timespec
	ts.Sec = timeoutNs / 1e9
	ts.Nsec = timeoutNs % 1e9

	_, _, errno := syscall.RawSyscall6(
		syscall.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		futexWaitShared,
		uintptr(val),
		uintptr(unsafe.Pointer(&ts)),
		0,
		0,
	)
	if errno != 0 {
		switch errno {
		case syscall.EAGAIN, syscall.EINTR:
			return nil
		case syscall.ETIMEDOUT:
			return ErrFutexTimeout
		default:
			return fmt.Errorf("sharedring: futex wait: %w", errno)
		}
	}
	return nil
}

// futexWake wakes up to n threads/processes waiting on addr.
func futexWake(addr *uint32, n int) (int, error) {
	r1, _, errno := syscall.RawSyscall6(
		syscall.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		futexWakeShared,
		uintptr(n),
		0,
		0,
		0,
	)
	if errno != 0 {
		return 0, fmt.Errorf("sharedring: futex wake: %w", errno)
	}
	return int(r1), nil
}
