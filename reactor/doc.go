// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the core poll-mode event reactor abstraction and
// its Linux epoll implementation, used by the user-space-driver ring mode
// for fd readiness notification.
package reactor
