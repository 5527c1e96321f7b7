// Package embeddings reads word embedding files in the common
// line-oriented text format: a header line with the item count and
// dimensionality, then one line per token holding the token followed by
// its vector components.
//
//	3 4
//	king 0.12 -0.43 0.88 0.01
//	queen 0.10 -0.40 0.91 0.03
//	apple -0.55 0.20 0.05 0.77
//
// Load streams the file into a vectorstore.Store and a Vocabulary that
// maps tokens to the dense item ids the store assigns.
package embeddings
