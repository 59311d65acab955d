// Package prompt builds the initial prompt of a run and owns the state that
// grows as the loop appends generations and observations.
//
// A Template is an ordered list of role-tagged turns. Render resolves the
// question into it, optionally splices in the most similar worked example,
// and serializes it with one of three encodings:
//
//   - EncodingRaw: plain text, one turn per block, for text completion models.
//   - EncodingChatML: <|im_start|>role ... <|im_end|> blocks with an open
//     assistant turn at the end, for text completion models trained on chat markup.
//   - EncodingRoleList: an ordered list of {role, content} turns, for chat
//     completion APIs.
//
// The first two produce a text State and the last one a turns State. A State
// never changes variant after Render.
package prompt
