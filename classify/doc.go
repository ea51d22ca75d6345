// Package classify identifies the language of captured text.
//
// Script guesses from the Unicode scripts present and needs no data.
// Trigram ranks character n-gram profiles in the style of NTextCat; its
// profiles are built on first use from the embedded seed corpora or from
// <lang>.txt files in a profile directory.
package classify
