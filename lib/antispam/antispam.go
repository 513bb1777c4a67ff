// Package antispam provides a naive-bayes spam classifier with a flat-file persistent model.
// The primary type in this package is the Detector, which trains a Model on spam and ham
// messages and scores new messages against it.
//
// Messages are split into tokens by Tokenize: the text is lower-cased and three kinds of tokens
// are extracted, numeric literals with group separators or a decimal point (e.g. "$1,000.50"),
// hyphenated word pairs (e.g. "e-mail") and plain words. Tokens shorter than three runes are dropped.
//
// Training is occurrence-weighted: each call increments the spam or ham message total once,
// and each token occurrence increments the token's spam or ham counter.
//
// Score combines per-token ratings into a single probability:
//
//   - unknown tokens are rated 0.4;
//   - tokens seen only in spam are rated 0.99, seen only in ham 0.01;
//   - tokens seen in both are rated spam_prob/(ham_prob+spam_prob), at least 0.01;
//   - messages with more than 20 tokens keep only the 10 lowest and 10 highest ratings;
//   - the final score is product/(product+alt_product) of the ratings and their complements.
//
// IsSpam reports whether the score is above Threshold (0.9).
//
// The Model is persisted as a JSON array [spam_total, ham_total, {"token": [ham, spam]}].
// Load and Save report ErrNoPath and *FormatError, file system errors are returned unchanged.
//
// Detector guards its model with a lock, so it can be trained and queried from several goroutines.
// Persisted files assume a single writer.
package antispam
