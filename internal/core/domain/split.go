package domain

import "fmt"

// SplitRow is one leaf produced by SplitPrimaryKey: a full primary key
// tuple and the payload stored beneath it.
type SplitRow struct {
	PrimaryKey []string
	Data       any
}

// SplitPrimaryKey walks a whole-category payload down to the category's
// declared primary-key arity and returns one row per leaf. An arity of
// zero yields the payload itself under an empty key. Levels that are not
// nested maps cannot be split further and are reported as invalid input;
// the migration fallback logs and skips such rows.
func SplitPrimaryKey(data map[string]any, arity int) ([]SplitRow, error) {
	if arity == 0 {
		return []SplitRow{{PrimaryKey: nil, Data: data}}, nil
	}

	rows := []SplitRow{}
	var walk func(prefix []string, level int, node map[string]any) error
	walk = func(prefix []string, level int, node map[string]any) error {
		for key, value := range node {
			pkey := append(append([]string(nil), prefix...), key)
			if level == arity {
				rows = append(rows, SplitRow{PrimaryKey: pkey, Data: value})
				continue
			}
			child, ok := value.(map[string]any)
			if !ok {
				return fmt.Errorf(
					"%w: expected nested mapping at %v, got %T",
					ErrInvalidInput, pkey, value,
				)
			}
			if err := walk(pkey, level+1, child); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(nil, 1, data); err != nil {
		return nil, err
	}
	return rows, nil
}
