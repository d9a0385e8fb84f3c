package aggregation

import (
	"sort"

	"github.com/shopspring/decimal"
)

// DefaultTopN est la taille des classements quand aucune n'est demandée.
const DefaultTopN = 5

type Ranked[K comparable] struct {
	Key   K
	Total decimal.Decimal
	Count int
}

// TopN regroupe les lignes par entité propriétaire, somme value, trie par total
// décroissant et garde les n premiers. Le tri est stable : à total égal, l'ordre
// de première apparition est conservé. key renvoie false pour une ligne sans
// propriétaire, qui est ignorée.
func TopN[T any, K comparable](rows []T, key func(T) (K, bool), value func(T) decimal.Decimal, n int) []Ranked[K] {
	if n <= 0 {
		n = DefaultTopN
	}

	index := make(map[K]int)
	groups := make([]Ranked[K], 0)
	for _, row := range rows {
		k, ok := key(row)
		if !ok {
			continue
		}
		i, seen := index[k]
		if !seen {
			i = len(groups)
			index[k] = i
			groups = append(groups, Ranked[K]{Key: k})
		}
		groups[i].Total = groups[i].Total.Add(value(row))
		groups[i].Count++
	}

	sort.SliceStable(groups, func(a, b int) bool {
		return groups[a].Total.GreaterThan(groups[b].Total)
	})

	if len(groups) > n {
		groups = groups[:n]
	}
	return groups
}
