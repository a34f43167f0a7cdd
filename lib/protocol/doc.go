// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package protocol defines the messages exchanged between digestd and
// its clients, and the classification of inbound messages.
//
// Every inbound [Message] carries a [Kind] tag and is classified into
// exactly one [Request]: a [Submission] (hash the staged payload) or a
// [ResizeCommand] (grow the worker pool). The resize command reuses
// the Size field for the desired worker count.
//
// A [Response] is addressed to the requester identity carried by the
// submission so that concurrent requesters can be answered out of
// order. Status 0 is success; negative values name the failure (see
// [Status]). There is no response for a resize command.
package protocol
