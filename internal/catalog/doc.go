// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package catalog holds the node capability contract: for every node kind,
// its port signature, classification, arity policy, parameters and typed
// lowering templates. Kinds are declared in HCL manifests; the Go side
// contributes named derived hooks through Modules. The two halves are
// cross-checked by Validate, so a manifest referencing a hook nobody
// registered fails at startup rather than during a compile.
package catalog
