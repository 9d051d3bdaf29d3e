// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package natsqueue is the NATS JetStream work-queue backend, built only
// with -tags=nats. It exists for multi-host deployments where the
// controller and one or more worker processes run on separate machines
// and badgerqueue's single-file embedded store cannot be shared between
// them. Without the nats tag, Open returns an error directing the
// operator to rebuild with the tag or use the default badger backend.
package natsqueue
