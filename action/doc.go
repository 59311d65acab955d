// Package action extracts protocol directives from a block of model output.
//
// The grammar is line oriented and case sensitive:
//
//	Action: <name>
//	Action Input <k>: ```<value>```
//	Final Answer: <text to the end of the generation>
//
// The first Action line wins, every well-formed Action Input is collected in
// order of appearance and the first Final Answer line wins. The scanner never
// backtracks: each line is classified once by its prefix, and an input value
// is read by a single forward search for the closing fence.
package action
