// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package evaluate

// BackendErrors exposes the backend error counter to tests.
var BackendErrors = backendErrors
