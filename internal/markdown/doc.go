// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package markdown renders assistant responses for the terminal.
//
// Prose goes through glamour. Fenced code blocks are cut out first and
// rendered separately with chroma under a language header, so a long code
// listing keeps its own box regardless of the surrounding word wrap.
// Math written as $$...$$ becomes a "math" code block and $...$ becomes
// inline code, which keeps formulas verbatim.
//
// Rendering never fails from the caller's point of view: when glamour
// cannot be initialized, or a render errors, the literal text is returned.
package markdown
