// Copyright 2025 The go-highway Authors. SPDX-License-Identifier: Apache-2.0

//go:build !dslashdebug

package field

const debugChecks = false
