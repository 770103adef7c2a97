// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mikhail Levitin

// Package client implements the sync client application runtime.
//
// It wires account sign-in, the storage transport, local collection stores,
// and the background sync job into a single process lifecycle.
package client
