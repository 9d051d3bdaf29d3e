// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package queue defines the work-queue contract shared by every queue
// backend: badgerqueue (embedded, default) and natsqueue (behind the
// "nats" build tag). A backend hands the scheduler an Enqueuer and hands
// the timelapse worker a Consumer; the two sides never touch each
// other's concrete type.
package queue
