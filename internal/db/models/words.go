package models

import "github.com/uptrace/bun"

// PrefixWord is the first half of a game key.
type PrefixWord struct {
	bun.BaseModel `bun:"table:prefix_word,alias:pw"`

	Word string `bun:"word,pk"`
}

// SuffixWord is the second half of a game key.
type SuffixWord struct {
	bun.BaseModel `bun:"table:suffix_word,alias:sw"`

	Word string `bun:"word,pk"`
}
