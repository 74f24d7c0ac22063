package keyvault

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// WordSource provides the two word lists keys are built from.
type WordSource interface {
	PrefixWords(ctx context.Context) ([]string, error)
	SuffixWords(ctx context.Context) ([]string, error)
}

// LoadWords fetches both lists concurrently.
func LoadWords(ctx context.Context, src WordSource) (prefix, suffix []string, err error) {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if prefix, err = src.PrefixWords(ctx); err != nil {
			return fmt.Errorf("load prefix words: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if suffix, err = src.SuffixWords(ctx); err != nil {
			return fmt.Errorf("load suffix words: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return prefix, suffix, nil
}

// ValidateWords checks that both lists are non-empty, of equal length and
// free of duplicates, so the vault holds exactly len*len distinct keys.
func ValidateWords(prefix, suffix []string) error {
	if len(prefix) == 0 || len(suffix) == 0 {
		return fmt.Errorf("word lists must be non-empty (prefix=%d suffix=%d)", len(prefix), len(suffix))
	}
	if len(prefix) != len(suffix) {
		return fmt.Errorf("word lists differ in length (prefix=%d suffix=%d)", len(prefix), len(suffix))
	}
	for name, list := range map[string][]string{"prefix": prefix, "suffix": suffix} {
		seen := make(map[string]struct{}, len(list))
		for _, w := range list {
			if w == "" {
				return fmt.Errorf("%s list contains an empty word", name)
			}
			if strings.ContainsAny(w, " \t\n") {
				return fmt.Errorf("%s word %q contains whitespace", name, w)
			}
			if _, dup := seen[w]; dup {
				return fmt.Errorf("%s list contains %q twice", name, w)
			}
			seen[w] = struct{}{}
		}
	}
	return nil
}
